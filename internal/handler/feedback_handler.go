package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/internal/utils"
)

// FeedbackHandler wires the instructor review queue.
type FeedbackHandler struct {
	service service.FeedbackService
	logger  zerolog.Logger
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(service service.FeedbackService, logger zerolog.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
		logger:  logger.With().Str("component", "feedback_handler").Logger(),
	}
}

// Register attaches feedback queue endpoints to the router group.
func (h *FeedbackHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/stats", h.stats)
	router.Post("", h.enqueue)
	router.Post("/batch", h.queueEvaluated)
	router.Post("/class", h.queueClassInsight)
	router.Post("/publish", h.publishAll)
	router.Post("/submissions/:id", h.queueSubmission)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.edit)
	router.Post("/:id/approve", h.approve)
	router.Post("/:id/reject", h.reject)
	router.Post("/:id/publish", h.publish)
}

func (h *FeedbackHandler) list(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil || limit < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	items, err := h.service.List(c.UserContext(), strings.TrimSpace(c.Query("status")), limit)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "feedback retrieved", items)
}

func (h *FeedbackHandler) stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "feedback stats retrieved", stats)
}

func (h *FeedbackHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "feedback retrieved", item)
}

func (h *FeedbackHandler) enqueue(c *fiber.Ctx) error {
	var payload dto.FeedbackEnqueueRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	item, err := h.service.Enqueue(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "feedback queued", item)
}

func (h *FeedbackHandler) queueSubmission(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := h.service.QueueSubmissionFeedback(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "feedback queued", item)
}

func (h *FeedbackHandler) queueClassInsight(c *fiber.Ctx) error {
	var payload dto.ClassInsightFeedbackRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	item, err := h.service.QueueClassInsight(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "class feedback queued", item)
}

func (h *FeedbackHandler) queueEvaluated(c *fiber.Ctx) error {
	var payload dto.FeedbackBatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return invalidBody(c)
		}
	}

	result, err := h.service.QueueEvaluatedFeedback(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "evaluated feedback queued", result)
}

func (h *FeedbackHandler) edit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FeedbackEditRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	item, err := h.service.Edit(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "feedback updated", item)
}

func (h *FeedbackHandler) approve(c *fiber.Ctx) error {
	return h.transition(c, "feedback approved", h.service.Approve)
}

func (h *FeedbackHandler) reject(c *fiber.Ctx) error {
	return h.transition(c, "feedback rejected", h.service.Reject)
}

func (h *FeedbackHandler) publish(c *fiber.Ctx) error {
	return h.transition(c, "feedback published", h.service.Publish)
}

func (h *FeedbackHandler) transition(c *fiber.Ctx, message string, apply func(ctx context.Context, id uint) (dto.FeedbackResponse, error)) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := apply(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, message, item)
}

func (h *FeedbackHandler) publishAll(c *fiber.Ctx) error {
	result, err := h.service.PublishAllApproved(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "approved feedback processed", result)
}
