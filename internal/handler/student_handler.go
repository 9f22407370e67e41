package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/internal/utils"
)

// StudentHandler wires roster, notes, skills and report routes for students.
type StudentHandler struct {
	roster  service.RosterService
	skills  service.SkillService
	exports service.ExportService
	logger  zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(roster service.RosterService, skills service.SkillService, exports service.ExportService, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		roster:  roster,
		skills:  skills,
		exports: exports,
		logger:  logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student endpoints to the router group.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Get("/:id/notes", h.listNotes)
	router.Post("/:id/notes", h.addNote)
	router.Get("/:id/skills", h.listSkills)
	router.Post("/:id/skills/refresh", h.refreshSkills)
	router.Get("/:id/report", h.report)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	students, err := h.roster.ListStudents(c.UserContext(), strings.TrimSpace(c.Query("search")))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "students retrieved", students)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	student, err := h.roster.AddStudent(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "student created", student)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	student, err := h.roster.GetStudent(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) listNotes(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	notes, err := h.roster.ListNotes(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "notes retrieved", notes)
}

func (h *StudentHandler) addNote(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.NoteCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	note, err := h.roster.AddNote(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "note added", note)
}

func (h *StudentHandler) listSkills(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	skills, err := h.skills.ListStudentSkills(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "skills retrieved", skills)
}

func (h *StudentHandler) refreshSkills(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	skills, err := h.skills.UpdateStudentSkills(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "skills recomputed", skills)
}

func (h *StudentHandler) report(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.exports.StudentReport(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student report generated", report)
}
