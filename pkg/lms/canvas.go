// Package lms is a thin Canvas REST client covering roster sync and feedback publishing.
package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotConfigured is returned when the client lacks a base URL, token or course id.
var ErrNotConfigured = errors.New("canvas client is not configured")

// StatusError reports a non-2xx response from Canvas.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("canvas returned status %d: %s", e.Code, e.Body)
}

// HTTPStatusCode exposes the response status.
func (e *StatusError) HTTPStatusCode() int { return e.Code }

// Config holds Canvas credentials and retry tuning.
type Config struct {
	BaseURL    string
	Token      string
	CourseID   string
	HTTPClient *http.Client
	// MaxAttempts bounds requests retried after a 429. Defaults to 3.
	MaxAttempts int
	// RetryWait is used when a 429 carries no usable Retry-After header.
	RetryWait    time.Duration
	MaxRetryWait time.Duration
	Logger       zerolog.Logger
}

// Client talks to the Canvas REST API for a single course.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient constructs a Canvas client. It does not contact Canvas.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || cfg.Token == "" || cfg.CourseID == "" {
		return nil, ErrNotConfigured
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = time.Second
	}
	if cfg.MaxRetryWait <= 0 {
		cfg.MaxRetryWait = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: cfg.Logger.With().Str("component", "canvas").Logger(),
	}, nil
}

// Students lists students enrolled in the course.
func (c *Client) Students(ctx context.Context) ([]Student, error) {
	params := url.Values{}
	params.Set("enrollment_type[]", "student")
	params.Set("per_page", "100")

	var students []Student
	if err := c.getAll(ctx, c.coursePath("/users"), params, &students); err != nil {
		return nil, fmt.Errorf("fetch students: %w", err)
	}
	return students, nil
}

// Assignments lists every assignment in the course.
func (c *Client) Assignments(ctx context.Context) ([]Assignment, error) {
	params := url.Values{}
	params.Set("per_page", "100")

	var assignments []Assignment
	if err := c.getAll(ctx, c.coursePath("/assignments"), params, &assignments); err != nil {
		return nil, fmt.Errorf("fetch assignments: %w", err)
	}
	return assignments, nil
}

// Submissions lists submissions for all students and assignments.
func (c *Client) Submissions(ctx context.Context) ([]Submission, error) {
	params := url.Values{}
	params.Set("student_ids[]", "all")
	params.Set("per_page", "100")

	var submissions []Submission
	if err := c.getAll(ctx, c.coursePath("/students/submissions"), params, &submissions); err != nil {
		return nil, fmt.Errorf("fetch submissions: %w", err)
	}
	return submissions, nil
}

type created struct {
	ID                 int64 `json:"id"`
	SubmissionComments []struct {
		ID int64 `json:"id"`
	} `json:"submission_comments"`
}

// PostSubmissionComment adds a comment to a student's submission and returns the comment id.
func (c *Client) PostSubmissionComment(ctx context.Context, assignmentRef, studentRef, text string) (string, error) {
	path := c.coursePath(fmt.Sprintf("/assignments/%s/submissions/%s", url.PathEscape(assignmentRef), url.PathEscape(studentRef)))
	body := map[string]interface{}{"comment": map[string]string{"text_comment": text}}

	var result created
	if err := c.send(ctx, http.MethodPut, path, body, &result); err != nil {
		return "", fmt.Errorf("post submission comment: %w", err)
	}
	if n := len(result.SubmissionComments); n > 0 {
		return strconv.FormatInt(result.SubmissionComments[n-1].ID, 10), nil
	}
	return strconv.FormatInt(result.ID, 10), nil
}

// CreateDiscussionTopic starts a course discussion and returns its id.
func (c *Client) CreateDiscussionTopic(ctx context.Context, title, message string) (string, error) {
	return c.createTopic(ctx, title, message, false)
}

// CreateAnnouncement posts a course announcement and returns its id.
func (c *Client) CreateAnnouncement(ctx context.Context, title, message string) (string, error) {
	return c.createTopic(ctx, title, message, true)
}

func (c *Client) createTopic(ctx context.Context, title, message string, announcement bool) (string, error) {
	body := map[string]interface{}{"title": title, "message": message, "is_announcement": announcement}

	var result created
	if err := c.send(ctx, http.MethodPost, c.coursePath("/discussion_topics"), body, &result); err != nil {
		return "", fmt.Errorf("create discussion topic: %w", err)
	}
	return strconv.FormatInt(result.ID, 10), nil
}

// PostDiscussionEntry replies to an existing discussion topic and returns the entry id.
func (c *Client) PostDiscussionEntry(ctx context.Context, topicRef, message string) (string, error) {
	path := c.coursePath(fmt.Sprintf("/discussion_topics/%s/entries", url.PathEscape(topicRef)))

	var result created
	if err := c.send(ctx, http.MethodPost, path, map[string]string{"message": message}, &result); err != nil {
		return "", fmt.Errorf("post discussion entry: %w", err)
	}
	return strconv.FormatInt(result.ID, 10), nil
}

func (c *Client) coursePath(suffix string) string {
	return fmt.Sprintf("%s/api/v1/courses/%s%s", c.cfg.BaseURL, url.PathEscape(c.cfg.CourseID), suffix)
}

// getAll follows Link rel="next" headers and appends every page into out, which must point to a slice.
func (c *Client) getAll(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	next := endpoint
	if len(params) > 0 {
		next += "?" + params.Encode()
	}

	var merged []json.RawMessage
	for next != "" {
		resp, err := c.do(ctx, http.MethodGet, next, nil)
		if err != nil {
			return err
		}

		var page []json.RawMessage
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode page: %w", err)
		}
		merged = append(merged, page...)
		next = nextLink(resp.Header.Get("Link"))
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) send(ctx context.Context, method, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := c.do(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do issues one request, retrying only on 429 up to MaxAttempts.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= c.cfg.MaxAttempts {
			return nil, statusErr
		}

		wait := c.retryAfter(resp)
		c.logger.Warn().Int("attempt", attempt).Dur("wait", wait).Str("path", req.URL.Path).Msg("canvas rate limited")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) retryAfter(resp *http.Response) time.Duration {
	wait := c.cfg.RetryWait
	if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		} else if at, err := http.ParseTime(ra); err == nil {
			if d := time.Until(at); d > 0 {
				wait = d
			}
		}
	}
	if wait > c.cfg.MaxRetryWait {
		wait = c.cfg.MaxRetryWait
	}
	return wait
}

// nextLink extracts the rel="next" URL from an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segments := strings.Split(part, ";")
		if len(segments) < 2 {
			continue
		}
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segments[1:] {
			param = strings.ReplaceAll(strings.TrimSpace(param), " ", "")
			if param == `rel="next"` || param == "rel=next" {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
