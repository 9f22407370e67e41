package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/internal/utils"
)

// EvaluationHandler wires submission intake and evaluation routes.
type EvaluationHandler struct {
	roster      service.RosterService
	evaluations service.EvaluationService
	logger      zerolog.Logger
}

// NewEvaluationHandler constructs the handler.
func NewEvaluationHandler(roster service.RosterService, evaluations service.EvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		roster:      roster,
		evaluations: evaluations,
		logger:      logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register attaches submission and evaluation endpoints. Any limiters given run in front of
// the routes that call the evaluator.
func (h *EvaluationHandler) Register(router fiber.Router, limiters ...fiber.Handler) {
	router.Post("/submissions", h.createSubmission)
	router.Get("/submissions/:id/evaluations", h.listEvaluations)
	router.Post("/submissions/:id/evaluate", withLimiters(limiters, h.evaluate)...)
	router.Post("/submissions/:id/manual-evaluation", h.manualEvaluation)
	router.Post("/evaluations/batch", withLimiters(limiters, h.batch)...)
	router.Post("/evaluations/adhoc", withLimiters(limiters, h.adhoc)...)
	router.Post("/evaluations/:id/confirm", h.confirm)
}

func withLimiters(limiters []fiber.Handler, handler fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, len(limiters)+1)
	chain = append(chain, limiters...)
	return append(chain, handler)
}

func (h *EvaluationHandler) createSubmission(c *fiber.Ctx) error {
	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	submission, err := h.roster.AddSubmission(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendCreated(c, "submission recorded", submission)
}

func (h *EvaluationHandler) listEvaluations(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	evaluations, err := h.evaluations.ListEvaluations(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "evaluations retrieved", evaluations)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EvaluateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return invalidBody(c)
		}
	}

	evaluation, err := h.evaluations.Evaluate(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "submission evaluated", evaluation)
}

func (h *EvaluationHandler) manualEvaluation(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ManualEvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	evaluation, err := h.evaluations.AddManualEvaluation(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendCreated(c, "manual evaluation recorded", evaluation)
}

func (h *EvaluationHandler) confirm(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ConfirmEvaluationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return invalidBody(c)
		}
	}

	evaluation, err := h.evaluations.ConfirmEvaluation(c.UserContext(), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "evaluation confirmed", evaluation)
}

func (h *EvaluationHandler) batch(c *fiber.Ctx) error {
	var payload dto.BatchEvaluationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return invalidBody(c)
		}
	}

	result, err := h.evaluations.EvaluateAllPending(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "batch evaluation completed", result)
}

func (h *EvaluationHandler) adhoc(c *fiber.Ctx) error {
	var payload dto.AdhocEvaluationRequest
	if err := c.BodyParser(&payload); err != nil {
		return invalidBody(c)
	}

	result, err := h.evaluations.EvaluateText(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "text evaluated", result)
}
