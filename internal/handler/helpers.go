package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jamditis/class/internal/middleware"
	"github.com/jamditis/class/internal/rubric"
	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/internal/utils"
)

const dateLayout = "2006-01-02"

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

// parseQueryTime accepts RFC3339 timestamps or plain dates.
func parseQueryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, errors.New("invalid " + key + " date")
	}
	return &parsed, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func invalidBody(c *fiber.Ctx) error {
	return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
}

// statusFor maps service errors onto HTTP statuses. Zero means unmapped.
func statusFor(err error) int {
	switch {
	case isValidationError(err),
		errors.Is(err, rubric.ErrInvalidRubric),
		errors.Is(err, service.ErrInvalidImport),
		errors.Is(err, service.ErrInvalidScore),
		errors.Is(err, service.ErrInvalidSkillLevel),
		errors.Is(err, service.ErrInvalidFeedback),
		errors.Is(err, service.ErrInvalidRange):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrStudentNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrSubmissionNotFound),
		errors.Is(err, service.ErrEvaluationNotFound),
		errors.Is(err, service.ErrFeedbackNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrMissingExternalRef),
		errors.Is(err, service.ErrNoFinalEvaluation):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrParse),
		errors.Is(err, service.ErrPublishFailed):
		return fiber.StatusBadGateway
	case errors.Is(err, service.ErrEvaluatorUnavailable),
		errors.Is(err, service.ErrSyncUnavailable),
		errors.Is(err, service.ErrArchiveUnavailable):
		return fiber.StatusServiceUnavailable
	}
	return 0
}

// respondError writes the mapped status, or logs and returns 500 for anything unmapped.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	}

	status := statusFor(err)
	if status == 0 {
		requestLogger(logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
	if status >= fiber.StatusInternalServerError {
		requestLogger(logger, c).Warn().Err(err).Int("status", status).Msg("upstream failure")
	}
	return utils.SendError(c, status, err.Error())
}
