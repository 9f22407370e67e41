package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/jamditis/class/internal/dto"
)

func TestClassOverviewContract(t *testing.T) {
	app, _ := setupApp(t)
	seed := seedSubmission(t, app, "My essay")

	resp := doJSON(t, app, http.MethodPost, fmt.Sprintf("/api/v1/submissions/%d/manual-evaluation", seed.submissionID), map[string]interface{}{"score": 18})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/analytics/overview", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	requireContract(t, resp, "class_overview.schema.json")

	var groups dto.StudentGroupsResponse
	resp = doJSON(t, app, http.MethodGet, "/api/v1/analytics/groups", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &groups)
	require.Len(t, groups["high_performers"], 1)
}

func TestStudentAnalyticsRoutes(t *testing.T) {
	app, _ := setupApp(t)
	seed := seedSubmission(t, app, "My essay")
	base := fmt.Sprintf("/api/v1/students/%d", seed.studentID)

	for _, suffix := range []string{"/summary", "/progression", "/strengths", "/insights", "/recommendations"} {
		resp := doJSON(t, app, http.MethodGet, base+suffix, nil)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, suffix)

		resp = doJSON(t, app, http.MethodGet, "/api/v1/students/404"+suffix, nil)
		require.Equal(t, fiber.StatusNotFound, resp.StatusCode, suffix)
	}

	var insights dto.StudentInsightResponse
	resp := doJSON(t, app, http.MethodGet, base+"/insights", nil)
	decodeResponse(t, resp, &insights)
	require.False(t, insights.Available)
}

func TestSnapshotRoutes(t *testing.T) {
	app, _ := setupApp(t)
	seedSubmission(t, app, "My essay")

	var snapshot dto.SnapshotResponse
	resp := doJSON(t, app, http.MethodPost, "/api/v1/analytics/snapshots", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	decodeResponse(t, resp, &snapshot)
	require.NotZero(t, snapshot.ID)

	var history []dto.SnapshotResponse
	resp = doJSON(t, app, http.MethodGet, "/api/v1/analytics/snapshots", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	decodeResponse(t, resp, &history)
	require.Len(t, history, 1)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/analytics/snapshots?from=yesterday", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/v1/analytics/snapshots?from=2026-03-01&to=2026-02-01", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
