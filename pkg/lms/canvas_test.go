package lms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{BaseURL: server.URL, Token: "tkn", CourseID: "101", RetryWait: time.Millisecond})
	require.NoError(t, err)
	return client
}

func TestClientStudentsFollowsPagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/courses/101/users", r.URL.Path)
		require.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))

		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode([]Student{{ID: 2, SortableName: "Lovelace, Ada"}})
			return
		}
		require.Equal(t, "student", r.URL.Query().Get("enrollment_type[]"))
		w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses/101/users?page=2>; rel="next", <%s/api/v1/courses/101/users?page=1>; rel="first"`, server.URL, server.URL))
		_ = json.NewEncoder(w).Encode([]Student{{ID: 1, Name: "Grace Hopper", Email: "grace@example.edu"}})
	}))
	defer server.Close()

	students, err := newTestClient(t, server).Students(context.Background())
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "1", students[0].Ref())
	require.Equal(t, "Lovelace, Ada", students[1].DisplayName())
}

func TestClientRetriesRateLimitedRequests(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`[{"id":7,"name":"Essay","points_possible":25}]`))
	}))
	defer server.Close()

	assignments, err := newTestClient(t, server).Assignments(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	require.Equal(t, 25.0, assignments[0].Points())
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientGivesUpAfterThreeRateLimits(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).Submissions(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
	require.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient(t, server).CreateAnnouncement(context.Background(), "Hi", "Welcome")
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientPublishEndpoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/api/v1/courses/101/assignments/55/submissions/9":
			comment := body["comment"].(map[string]interface{})
			require.Equal(t, "Nice work", comment["text_comment"])
			_, _ = w.Write([]byte(`{"id":3,"submission_comments":[{"id":40},{"id":41}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/courses/101/discussion_topics":
			if body["is_announcement"] == true {
				_, _ = w.Write([]byte(`{"id":501}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":500}`))
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/courses/101/discussion_topics/77/entries":
			require.Equal(t, "Reply", body["message"])
			_, _ = w.Write([]byte(`{"id":900}`))
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	ctx := context.Background()

	id, err := client.PostSubmissionComment(ctx, "55", "9", "Nice work")
	require.NoError(t, err)
	require.Equal(t, "41", id)

	id, err = client.CreateDiscussionTopic(ctx, "Class Insight", "Body")
	require.NoError(t, err)
	require.Equal(t, "500", id)

	id, err = client.CreateAnnouncement(ctx, "Course Announcement", "Body")
	require.NoError(t, err)
	require.Equal(t, "501", id)

	id, err = client.PostDiscussionEntry(ctx, "77", "Reply")
	require.NoError(t, err)
	require.Equal(t, "900", id)
}

func TestSubmissionContentByType(t *testing.T) {
	require.Equal(t, "essay", Submission{SubmissionType: SubmissionTypeText, Body: "essay"}.Content())
	require.Equal(t, "https://x", Submission{SubmissionType: SubmissionTypeURL, URL: "https://x"}.Content())
	upload := Submission{SubmissionType: SubmissionTypeUpload, Attachments: []Attachment{{URL: "a"}, {URL: ""}, {URL: "b"}}}
	require.Equal(t, "a\nb", upload.Content())
	require.Empty(t, Submission{SubmissionType: "on_paper"}.Content())
}

func TestNextLink(t *testing.T) {
	require.Equal(t, "https://c/x?page=3", nextLink(`<https://c/x?page=1>; rel="current", <https://c/x?page=3>; rel="next"`))
	require.Empty(t, nextLink(`<https://c/x?page=1>; rel="last"`))
	require.Empty(t, nextLink(""))
}

func TestNewClientRequiresConfiguration(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "https://canvas.example.edu"})
	require.ErrorIs(t, err, ErrNotConfigured)
}
