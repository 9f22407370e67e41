package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jamditis/class/internal/config"
	"github.com/jamditis/class/internal/handler"
	"github.com/jamditis/class/internal/middleware"
	"github.com/jamditis/class/internal/observability"
)

// InstructorRoles may use every protected route.
var InstructorRoles = []string{"instructor", "admin"}

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	StudentHandler    *handler.StudentHandler
	AssignmentHandler *handler.AssignmentHandler
	EvaluationHandler *handler.EvaluationHandler
	AnalyticsHandler  *handler.AnalyticsHandler
	FeedbackHandler   *handler.FeedbackHandler
	SyncHandler       *handler.SyncHandler
	ExportHandler     *handler.ExportHandler
	HealthProbes      map[string]handler.HealthProbe
	JWTMiddleware     fiber.Handler
	RoleMiddleware    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	roleMiddleware := deps.RoleMiddleware
	if roleMiddleware == nil {
		roleMiddleware = middleware.RequireRole(InstructorRoles...)
	}

	protected := api.Group("", jwtMiddleware, roleMiddleware)

	students := protected.Group("/students")
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(students)
	}
	if deps.AnalyticsHandler != nil {
		deps.AnalyticsHandler.RegisterStudentRoutes(students)
		deps.AnalyticsHandler.Register(protected.Group("/analytics"))
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(protected.Group("/assignments"))
	}

	if deps.EvaluationHandler != nil {
		limit := cfg.EvaluateRateLimit
		deps.EvaluationHandler.Register(protected, middleware.RateLimit("evaluate", limit, time.Minute))
	}

	if deps.FeedbackHandler != nil {
		deps.FeedbackHandler.Register(protected.Group("/feedback"))
	}

	if deps.SyncHandler != nil {
		deps.SyncHandler.Register(protected)
	}

	if deps.ExportHandler != nil {
		deps.ExportHandler.Register(protected.Group("/exports"))
	}
}
