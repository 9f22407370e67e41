package dto

import (
	"time"

	"github.com/jamditis/class/internal/models"
)

// SubmissionCreateRequest represents a manually recorded submission.
type SubmissionCreateRequest struct {
	StudentID    uint       `json:"student_id" validate:"required,gt=0"`
	AssignmentID uint       `json:"assignment_id" validate:"required,gt=0"`
	Content      string     `json:"content"`
	FilePath     string     `json:"file_path" validate:"omitempty,max=512"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	Status       string     `json:"status" validate:"omitempty,oneof=pending submitted late missing excused"`
}

// SubmissionResponse represents a submission to API consumers.
type SubmissionResponse struct {
	ID           uint       `json:"id"`
	StudentID    uint       `json:"student_id"`
	AssignmentID uint       `json:"assignment_id"`
	ExternalID   string     `json:"external_id,omitempty"`
	Content      string     `json:"content"`
	FilePath     string     `json:"file_path,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at"`
	Status       string     `json:"status"`
	Source       string     `json:"source"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewSubmissionResponse converts a submission model into a DTO.
func NewSubmissionResponse(submission models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:           submission.ID,
		StudentID:    submission.StudentID,
		AssignmentID: submission.AssignmentID,
		ExternalID:   submission.ExternalID,
		Content:      submission.Content,
		FilePath:     submission.FilePath,
		SubmittedAt:  submission.SubmittedAt,
		Status:       submission.Status,
		Source:       submission.Source,
		UpdatedAt:    submission.UpdatedAt,
	}
}
