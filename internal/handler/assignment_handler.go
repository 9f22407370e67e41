package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/internal/utils"
)

// AssignmentHandler wires assignment, rubric and assignment recommendation routes.
type AssignmentHandler struct {
	roster          service.RosterService
	recommendations service.RecommendationService
	logger          zerolog.Logger
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(roster service.RosterService, recommendations service.RecommendationService, logger zerolog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		roster:          roster,
		recommendations: recommendations,
		logger:          logger.With().Str("component", "assignment_handler").Logger(),
	}
}

// Register attaches assignment endpoints to the router group.
func (h *AssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id/rubric", h.getRubric)
	router.Put("/:id/rubric", h.setRubric)
	router.Get("/:id/recommendations", h.recommend)
}

func (h *AssignmentHandler) list(c *fiber.Ctx) error {
	assignments, err := h.roster.ListAssignments(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	assignment, err := h.roster.AddAssignment(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendCreated(c, "assignment created", assignment)
}

func (h *AssignmentHandler) getRubric(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	rubric, err := h.roster.GetAssignmentRubric(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "rubric retrieved", rubric)
}

func (h *AssignmentHandler) setRubric(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RubricUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	rubric, err := h.roster.SetAssignmentRubric(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "rubric updated", rubric)
}

func (h *AssignmentHandler) recommend(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	recommendations, err := h.recommendations.AssignmentRecommendations(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "assignment recommendations generated", recommendations)
}
