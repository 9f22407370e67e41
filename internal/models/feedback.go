package models

import (
	"time"

	"gorm.io/datatypes"
)

// Feedback item types.
const (
	FeedbackTypeSubmissionComment = "submission_comment"
	FeedbackTypeDiscussionPost    = "discussion_post"
	FeedbackTypeDiscussionEntry   = "discussion_entry"
	FeedbackTypeAnnouncement      = "announcement"
)

// Feedback item statuses.
const (
	FeedbackStatusPending   = "pending"
	FeedbackStatusApproved  = "approved"
	FeedbackStatusEdited    = "edited"
	FeedbackStatusRejected  = "rejected"
	FeedbackStatusPublished = "published"
)

// FeedbackStatuses lists every queue status.
var FeedbackStatuses = []string{
	FeedbackStatusPending,
	FeedbackStatusApproved,
	FeedbackStatusEdited,
	FeedbackStatusRejected,
	FeedbackStatusPublished,
}

// FeedbackItem is content awaiting instructor review before it reaches the LMS.
// OriginalContent holds the content as first queued and is never rewritten.
type FeedbackItem struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	FeedbackType       string            `gorm:"size:32;not null" json:"feedback_type"`
	StudentID          *uint             `gorm:"index" json:"student_id,omitempty"`
	SubmissionID       *uint             `gorm:"index" json:"submission_id,omitempty"`
	DiscussionTopicRef string            `gorm:"size:64" json:"discussion_topic_ref,omitempty"`
	Title              string            `gorm:"size:255" json:"title,omitempty"`
	Content            string            `gorm:"type:text;not null" json:"content"`
	OriginalContent    string            `gorm:"type:text;not null" json:"original_content"`
	Status             string            `gorm:"size:32;not null;default:pending;index" json:"status"`
	GeneratedBy        string            `gorm:"size:32;not null;default:automated" json:"generated_by"`
	GenerationContext  datatypes.JSONMap `json:"generation_context,omitempty"`
	ReviewedAt         *time.Time        `json:"reviewed_at,omitempty"`
	PublishedAt        *time.Time        `json:"published_at,omitempty"`
	ExternalID         string            `gorm:"size:64" json:"external_id,omitempty"`
	LastError          string            `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IsTerminal reports whether no further transitions are allowed.
func (f FeedbackItem) IsTerminal() bool {
	return f.Status == FeedbackStatusRejected || f.Status == FeedbackStatusPublished
}
