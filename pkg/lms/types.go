package lms

import (
	"strconv"
	"strings"
	"time"
)

// Student is a course enrollment as reported by Canvas.
type Student struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	SortableName string `json:"sortable_name"`
	Email        string `json:"email"`
}

// Ref returns the Canvas id as a string.
func (s Student) Ref() string { return strconv.FormatInt(s.ID, 10) }

// DisplayName prefers the full name and falls back to the sortable one.
func (s Student) DisplayName() string {
	if name := strings.TrimSpace(s.Name); name != "" {
		return name
	}
	if name := strings.TrimSpace(s.SortableName); name != "" {
		return name
	}
	return "Unknown"
}

// Assignment is a Canvas assignment.
type Assignment struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	PointsPossible *float64   `json:"points_possible"`
	DueAt          *time.Time `json:"due_at"`
}

// Ref returns the Canvas id as a string.
func (a Assignment) Ref() string { return strconv.FormatInt(a.ID, 10) }

// Points returns points possible, treating a missing value as ungraded.
func (a Assignment) Points() float64 {
	if a.PointsPossible == nil {
		return 0
	}
	return *a.PointsPossible
}

// Attachment is an uploaded file on a submission.
type Attachment struct {
	URL         string `json:"url"`
	DisplayName string `json:"display_name"`
}

// Canvas submission types that carry content.
const (
	SubmissionTypeText   = "online_text_entry"
	SubmissionTypeURL    = "online_url"
	SubmissionTypeUpload = "online_upload"
)

// Submission is a Canvas submission record.
type Submission struct {
	ID             int64        `json:"id"`
	UserID         int64        `json:"user_id"`
	AssignmentID   int64        `json:"assignment_id"`
	WorkflowState  string       `json:"workflow_state"`
	SubmittedAt    *time.Time   `json:"submitted_at"`
	Late           bool         `json:"late"`
	Missing        bool         `json:"missing"`
	SubmissionType string       `json:"submission_type"`
	Body           string       `json:"body"`
	URL            string       `json:"url"`
	Attachments    []Attachment `json:"attachments"`
}

// Ref returns the Canvas id as a string.
func (s Submission) Ref() string { return strconv.FormatInt(s.ID, 10) }

// UserRef returns the Canvas user id as a string.
func (s Submission) UserRef() string { return strconv.FormatInt(s.UserID, 10) }

// AssignmentRef returns the Canvas assignment id as a string.
func (s Submission) AssignmentRef() string { return strconv.FormatInt(s.AssignmentID, 10) }

// Content flattens the submission body: the text entry, the URL, or attachment URLs one per line.
func (s Submission) Content() string {
	switch s.SubmissionType {
	case SubmissionTypeText:
		return s.Body
	case SubmissionTypeURL:
		return s.URL
	case SubmissionTypeUpload:
		urls := make([]string, 0, len(s.Attachments))
		for _, attachment := range s.Attachments {
			if attachment.URL != "" {
				urls = append(urls, attachment.URL)
			}
		}
		return strings.Join(urls, "\n")
	}
	return ""
}
