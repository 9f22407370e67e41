package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jamditis/class/internal/service"
	"github.com/jamditis/class/internal/utils"
)

// AnalyticsHandler wires per-student and class-wide analytics routes.
type AnalyticsHandler struct {
	analytics       service.AnalyticsService
	insights        service.InsightService
	recommendations service.RecommendationService
	snapshots       service.SnapshotService
	logger          zerolog.Logger
}

// NewAnalyticsHandler constructs the handler.
func NewAnalyticsHandler(
	analytics service.AnalyticsService,
	insights service.InsightService,
	recommendations service.RecommendationService,
	snapshots service.SnapshotService,
	logger zerolog.Logger,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics:       analytics,
		insights:        insights,
		recommendations: recommendations,
		snapshots:       snapshots,
		logger:          logger.With().Str("component", "analytics_handler").Logger(),
	}
}

// RegisterStudentRoutes attaches the per-student analytics endpoints to the students group.
func (h *AnalyticsHandler) RegisterStudentRoutes(router fiber.Router) {
	router.Get("/:id/summary", h.studentSummary)
	router.Get("/:id/progression", h.studentProgression)
	router.Get("/:id/strengths", h.studentStrengths)
	router.Get("/:id/insights", h.studentInsights)
	router.Get("/:id/recommendations", h.studentRecommendations)
}

// Register attaches class-wide analytics endpoints to the router group.
func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/overview", h.overview)
	router.Get("/groups", h.groups)
	router.Get("/insights", h.classInsights)
	router.Get("/recommendations", h.classRecommendations)
	router.Post("/snapshots", h.createSnapshot)
	router.Get("/snapshots", h.snapshotHistory)
}

// studentRoute resolves the :id parameter and runs fetch against it.
func (h *AnalyticsHandler) studentRoute(c *fiber.Ctx, message string, fetch func(id uint) (interface{}, error)) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := fetch(id)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, message, result)
}

func (h *AnalyticsHandler) studentSummary(c *fiber.Ctx) error {
	return h.studentRoute(c, "student summary retrieved", func(id uint) (interface{}, error) {
		return h.analytics.StudentSummary(c.UserContext(), id)
	})
}

func (h *AnalyticsHandler) studentProgression(c *fiber.Ctx) error {
	return h.studentRoute(c, "student progression retrieved", func(id uint) (interface{}, error) {
		return h.analytics.StudentProgression(c.UserContext(), id)
	})
}

func (h *AnalyticsHandler) studentStrengths(c *fiber.Ctx) error {
	return h.studentRoute(c, "strengths and weaknesses retrieved", func(id uint) (interface{}, error) {
		return h.analytics.StrengthsWeaknesses(c.UserContext(), id)
	})
}

func (h *AnalyticsHandler) studentInsights(c *fiber.Ctx) error {
	return h.studentRoute(c, "student insights generated", func(id uint) (interface{}, error) {
		return h.insights.StudentInsights(c.UserContext(), id)
	})
}

func (h *AnalyticsHandler) studentRecommendations(c *fiber.Ctx) error {
	return h.studentRoute(c, "student recommendations generated", func(id uint) (interface{}, error) {
		return h.recommendations.StudentRecommendations(c.UserContext(), id)
	})
}

func (h *AnalyticsHandler) overview(c *fiber.Ctx) error {
	overview, err := h.analytics.ClassOverview(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "class overview retrieved", overview)
}

func (h *AnalyticsHandler) groups(c *fiber.Ctx) error {
	groups, err := h.analytics.StudentGroups(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student groups retrieved", groups)
}

func (h *AnalyticsHandler) classInsights(c *fiber.Ctx) error {
	insights, err := h.insights.ClassInsights(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "class insights generated", insights)
}

func (h *AnalyticsHandler) classRecommendations(c *fiber.Ctx) error {
	recommendations, err := h.recommendations.ClassRecommendations(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "class recommendations generated", recommendations)
}

func (h *AnalyticsHandler) createSnapshot(c *fiber.Ctx) error {
	snapshot, err := h.snapshots.Create(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "snapshot created", snapshot)
}

func (h *AnalyticsHandler) snapshotHistory(c *fiber.Ctx) error {
	from, err := parseQueryTime(c, "from")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	to, err := parseQueryTime(c, "to")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	history, err := h.snapshots.History(c.UserContext(), from, to)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "snapshots retrieved", history)
}
