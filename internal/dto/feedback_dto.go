package dto

import (
	"time"

	"github.com/jamditis/class/internal/models"
)

// FeedbackEnqueueRequest queues arbitrary content for review.
type FeedbackEnqueueRequest struct {
	FeedbackType       string                 `json:"feedback_type" validate:"required,oneof=submission_comment discussion_post discussion_entry announcement"`
	SubmissionID       *uint                  `json:"submission_id" validate:"omitempty,gt=0"`
	DiscussionTopicRef string                 `json:"discussion_topic_ref" validate:"omitempty,max=64"`
	Title              string                 `json:"title" validate:"omitempty,max=255"`
	Content            string                 `json:"content" validate:"required"`
	GeneratedBy        string                 `json:"generated_by" validate:"omitempty,max=32"`
	GenerationContext  map[string]interface{} `json:"generation_context"`
}

// ClassInsightFeedbackRequest queues a class-wide post or announcement.
type ClassInsightFeedbackRequest struct {
	Title        string `json:"title" validate:"omitempty,max=255"`
	Content      string `json:"content" validate:"required"`
	FeedbackType string `json:"feedback_type" validate:"omitempty,oneof=discussion_post announcement"`
}

// FeedbackEditRequest replaces the content and optionally the title of a queued item.
type FeedbackEditRequest struct {
	Content string  `json:"content" validate:"required"`
	Title   *string `json:"title" validate:"omitempty,max=255"`
}

// FeedbackBatchRequest queues feedback for every evaluated submission.
type FeedbackBatchRequest struct {
	AssignmentID *uint `json:"assignment_id" validate:"omitempty,gt=0"`
	Limit        int   `json:"limit" validate:"gte=0"`
}

// FeedbackResponse represents a queued feedback item.
type FeedbackResponse struct {
	ID                 uint                   `json:"id"`
	FeedbackType       string                 `json:"feedback_type"`
	StudentID          *uint                  `json:"student_id,omitempty"`
	SubmissionID       *uint                  `json:"submission_id,omitempty"`
	DiscussionTopicRef string                 `json:"discussion_topic_ref,omitempty"`
	Title              string                 `json:"title,omitempty"`
	Content            string                 `json:"content"`
	OriginalContent    string                 `json:"original_content"`
	Status             string                 `json:"status"`
	GeneratedBy        string                 `json:"generated_by"`
	GenerationContext  map[string]interface{} `json:"generation_context,omitempty"`
	ReviewedAt         *time.Time             `json:"reviewed_at,omitempty"`
	PublishedAt        *time.Time             `json:"published_at,omitempty"`
	ExternalID         string                 `json:"external_id,omitempty"`
	LastError          string                 `json:"last_error,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
}

// NewFeedbackResponse converts a feedback model into a DTO.
func NewFeedbackResponse(item models.FeedbackItem) FeedbackResponse {
	var generation map[string]interface{}
	if item.GenerationContext != nil {
		generation = map[string]interface{}(item.GenerationContext)
	}

	return FeedbackResponse{
		ID:                 item.ID,
		FeedbackType:       item.FeedbackType,
		StudentID:          item.StudentID,
		SubmissionID:       item.SubmissionID,
		DiscussionTopicRef: item.DiscussionTopicRef,
		Title:              item.Title,
		Content:            item.Content,
		OriginalContent:    item.OriginalContent,
		Status:             item.Status,
		GeneratedBy:        item.GeneratedBy,
		GenerationContext:  generation,
		ReviewedAt:         item.ReviewedAt,
		PublishedAt:        item.PublishedAt,
		ExternalID:         item.ExternalID,
		LastError:          item.LastError,
		CreatedAt:          item.CreatedAt,
	}
}

// FeedbackBatchResponse lists items queued by a batch request.
type FeedbackBatchResponse struct {
	Queued  []FeedbackResponse `json:"queued"`
	Skipped int                `json:"skipped"`
}

// FeedbackStatsResponse counts queue items per status.
type FeedbackStatsResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// PublishResult reports the outcome for one item in a bulk publish.
type PublishResult struct {
	ID         uint   `json:"id"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PublishAllResponse summarises a bulk publish.
type PublishAllResponse struct {
	Published int             `json:"published"`
	Failed    int             `json:"failed"`
	Results   []PublishResult `json:"results"`
}
