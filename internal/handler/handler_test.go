package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/config"
	"github.com/jamditis/class/internal/database"
	"github.com/jamditis/class/internal/handler"
	"github.com/jamditis/class/internal/middleware"
	"github.com/jamditis/class/internal/repository"
	"github.com/jamditis/class/internal/router"
	"github.com/jamditis/class/internal/service"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testOptions struct {
	role   string
	probes map[string]handler.HealthProbe
}

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	return setupAppWith(t, testOptions{role: "instructor"})
}

// setupAppWith wires the real services over a private in-memory database. No evaluator,
// LMS feed or uploader is configured, so those routes report unavailability.
func setupAppWith(t *testing.T, opts testOptions) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := database.Connect("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	students := repository.NewStudentRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	submissions := repository.NewSubmissionRepository(db)
	evaluations := repository.NewEvaluationRepository(db)
	notes := repository.NewStudentNoteRepository(db)

	analytics := service.NewAnalyticsService(students, assignments, submissions, nil, service.AnalyticsConfig{Thresholds: service.DefaultGroupingThresholds()}, logger)
	skills := service.NewSkillService(students, evaluations, repository.NewSkillAssessmentRepository(db), logger)
	evaluationService := service.NewEvaluationService(submissions, evaluations, nil, skills, analytics, nil, validate, logger, service.EvaluationConfig{})
	roster := service.NewRosterService(students, assignments, submissions, notes, analytics, nil, validate, logger)
	imports := service.NewImportService(students, assignments, submissions, analytics, logger)
	exports := service.NewExportService(students, assignments, submissions, notes, analytics, skills, nil, logger)
	feedback := service.NewFeedbackService(repository.NewFeedbackRepository(db), submissions, nil, nil, validate, logger)
	insights := service.NewInsightService(analytics, nil, logger)
	recommendations := service.NewRecommendationService(analytics, assignments, submissions, nil, logger)
	snapshots := service.NewSnapshotService(repository.NewProgressSnapshotRepository(db), analytics, insights, nil, logger)

	app := fiber.New()
	router.Register(app, config.Config{AppName: "Test", JWTSecret: "secret"}, router.Dependencies{
		StudentHandler:    handler.NewStudentHandler(roster, skills, exports, logger),
		AssignmentHandler: handler.NewAssignmentHandler(roster, recommendations, logger),
		EvaluationHandler: handler.NewEvaluationHandler(roster, evaluationService, logger),
		AnalyticsHandler:  handler.NewAnalyticsHandler(analytics, insights, recommendations, snapshots, logger),
		FeedbackHandler:   handler.NewFeedbackHandler(feedback, logger),
		SyncHandler:       handler.NewSyncHandler(roster, imports, nil, logger),
		ExportHandler:     handler.NewExportHandler(exports, validate, logger),
		HealthProbes:      opts.probes,
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals(middleware.LocalUserID, "1")
			c.Locals(middleware.LocalUserRoles, []string{opts.role})
			return c.Next()
		},
	})

	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) apiResponse {
	t.Helper()
	defer resp.Body.Close()

	var envelope apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	if target != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, target))
	}
	return envelope
}

// requireContract validates the raw response body against a schema under testdata/contracts.
func requireContract(t *testing.T, resp *http.Response, name string) []byte {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("testdata", "contracts", name))
	require.NoError(t, err)
	schema, err := jsonschema.NewCompiler().Compile("file://" + schemaPath)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
	return body
}

func TestHealthReportsDegradedProbe(t *testing.T) {
	app, _ := setupAppWith(t, testOptions{
		role: "instructor",
		probes: map[string]handler.HealthProbe{
			"database": func(context.Context) error { return nil },
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		},
	})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Test", resp.Header.Get("X-Application"))

	var health handler.HealthResponse
	envelope := decodeResponse(t, resp, &health)
	require.True(t, envelope.Success)
	require.Equal(t, "degraded", health.Status)
	require.Equal(t, map[string]string{"database": "up", "redis": "down"}, health.Components)
}

func TestProtectedRoutesRequireInstructorRole(t *testing.T) {
	app, _ := setupAppWith(t, testOptions{role: "student"})

	resp := doJSON(t, app, http.MethodGet, "/api/v1/students", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	app, _ := setupAppWith(t, testOptions{role: "student"})

	resp := doJSON(t, app, http.MethodGet, "/metrics", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
