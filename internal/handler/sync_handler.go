package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/internal/utils"
)

// SyncHandler wires LMS sync and file import routes.
type SyncHandler struct {
	roster  service.RosterService
	imports service.ImportService
	feed    service.Feed
	logger  zerolog.Logger
}

// NewSyncHandler constructs the handler. A nil feed leaves /sync answering 503.
func NewSyncHandler(roster service.RosterService, imports service.ImportService, feed service.Feed, logger zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		roster:  roster,
		imports: imports,
		feed:    feed,
		logger:  logger.With().Str("component", "sync_handler").Logger(),
	}
}

// Register attaches /sync and /imports endpoints to the router group.
func (h *SyncHandler) Register(router fiber.Router) {
	router.Post("/sync", h.sync)
	router.Post("/imports/students", h.importFile(h.imports.ImportStudentsCSV, "students imported"))
	router.Post("/imports/assignments", h.importFile(h.imports.ImportAssignmentsJSON, "assignments imported"))
	router.Post("/imports/submissions", h.importFile(h.imports.ImportSubmissionsCSV, "submissions imported"))
	router.Post("/imports/assignments/:id/files", h.importTextFiles)
}

func (h *SyncHandler) sync(c *fiber.Ctx) error {
	report, err := h.roster.SyncFromFeed(c.UserContext(), h.feed)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Int("students", report.Students.Created+report.Students.Updated).
		Int("assignments", report.Assignments.Created+report.Assignments.Updated).
		Int("submissions", report.Submissions.Created+report.Submissions.Updated).
		Msg("lms sync completed")

	return utils.SendSuccess(c, "lms sync completed", report)
}

type importFunc func(ctx context.Context, r io.Reader) (dto.ImportReport, error)

func (h *SyncHandler) importFile(run importFunc, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header, err := c.FormFile("file")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "file is required")
		}

		file, err := header.Open()
		if err != nil {
			return respondError(c, h.logger, fmt.Errorf("open upload: %w", err))
		}
		defer file.Close()

		report, err := run(c.UserContext(), file)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		return utils.SendSuccess(c, message, report)
	}
}

func (h *SyncHandler) importTextFiles(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "multipart form is required")
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "files are required")
	}

	files := make([]dto.TextFile, 0, len(headers))
	for _, header := range headers {
		content, err := readUpload(header)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		files = append(files, dto.TextFile{Name: header.Filename, Content: content})
	}

	report, err := h.imports.ImportTextFiles(c.UserContext(), id, files)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission files imported", report)
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", header.Filename, err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", header.Filename, err)
	}
	return content, nil
}
