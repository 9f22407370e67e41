package handler

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/internal/utils"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ArchiveRequest selects which gradebook rendering to archive.
type ArchiveRequest struct {
	Format string `json:"format" validate:"omitempty,oneof=csv xlsx"`
}

// ExportHandler wires gradebook download and archive routes.
type ExportHandler struct {
	service   service.ExportService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(service service.ExportService, validator *validator.Validate, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "export_handler").Logger(),
	}
}

// Register attaches export endpoints to the router group.
func (h *ExportHandler) Register(router fiber.Router) {
	router.Get("/grades.csv", h.gradesCSV)
	router.Get("/grades.xlsx", h.gradesXLSX)
	router.Post("/grades/archive", h.archive)
}

func (h *ExportHandler) gradesCSV(c *fiber.Ctx) error {
	data, err := h.service.GradesCSV(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendAttachment(c, "grades.csv", csvContentType, data)
}

func (h *ExportHandler) gradesXLSX(c *fiber.Ctx) error {
	data, err := h.service.GradesXLSX(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendAttachment(c, "grades.xlsx", xlsxContentType, data)
}

func (h *ExportHandler) archive(c *fiber.Ctx) error {
	var payload ArchiveRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return invalidBody(c)
		}
	}
	payload.Format = strings.ToLower(strings.TrimSpace(payload.Format))
	if err := h.validator.Struct(payload); err != nil {
		return respondError(c, h.logger, err)
	}

	var (
		data []byte
		err  error
		name string
	)
	if payload.Format == "xlsx" {
		name = "grades.xlsx"
		data, err = h.service.GradesXLSX(c.UserContext())
	} else {
		name = "grades.csv"
		data, err = h.service.GradesCSV(c.UserContext())
	}
	if err != nil {
		return respondError(c, h.logger, err)
	}

	archived, err := h.service.Archive(c.UserContext(), name, data)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "export archived", archived)
}
