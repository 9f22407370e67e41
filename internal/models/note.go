package models

import "time"

// Note types recorded by instructors.
const (
	NoteTypeGeneral = "general"
	NoteTypeMeeting = "meeting"
	NoteTypeConcern = "concern"
	NoteTypePraise  = "praise"
)

// StudentNote is an instructor observation about a student, optionally tied to an assignment.
type StudentNote struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    uint      `gorm:"not null;index" json:"student_id"`
	AssignmentID *uint     `json:"assignment_id,omitempty"`
	NoteType     string    `gorm:"size:32;not null;default:general" json:"note_type"`
	Content      string    `gorm:"type:text;not null" json:"content"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
