package dto

import (
	"time"

	"github.com/jamditis/class/internal/models"
)

// StudentCreateRequest represents the payload for enrolling a student by hand.
type StudentCreateRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Email      string `json:"email" validate:"omitempty,email,max=255"`
	ExternalID string `json:"external_id" validate:"omitempty,max=64"`
}

// StudentResponse represents a student to API consumers.
type StudentResponse struct {
	ID         uint      `json:"id"`
	ExternalID string    `json:"external_id,omitempty"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewStudentResponse converts a student model into a DTO.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:         student.ID,
		ExternalID: student.ExternalRef(),
		Name:       student.Name,
		Email:      student.Email,
		CreatedAt:  student.CreatedAt,
	}
}

// NoteCreateRequest represents an instructor note about a student.
type NoteCreateRequest struct {
	AssignmentID *uint  `json:"assignment_id" validate:"omitempty,gt=0"`
	NoteType     string `json:"note_type" validate:"omitempty,oneof=general meeting concern praise"`
	Content      string `json:"content" validate:"required"`
}

// NoteResponse describes a stored note.
type NoteResponse struct {
	ID           uint      `json:"id"`
	StudentID    uint      `json:"student_id"`
	AssignmentID *uint     `json:"assignment_id,omitempty"`
	NoteType     string    `json:"note_type"`
	Content      string    `json:"content"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewNoteResponse converts a note model into a DTO.
func NewNoteResponse(note models.StudentNote) NoteResponse {
	return NoteResponse{
		ID:           note.ID,
		StudentID:    note.StudentID,
		AssignmentID: note.AssignmentID,
		NoteType:     note.NoteType,
		Content:      note.Content,
		CreatedAt:    note.CreatedAt,
	}
}

// SkillAssessmentResponse describes the current estimate for one skill.
type SkillAssessmentResponse struct {
	SkillName     string            `json:"skill_name"`
	SkillLevel    models.SkillLevel `json:"skill_level"`
	Confidence    float64           `json:"confidence"`
	EvidenceCount int               `json:"evidence_count"`
	AssessedAt    time.Time         `json:"assessed_at"`
}

// NewSkillAssessmentResponse converts a skill assessment model into a DTO.
func NewSkillAssessmentResponse(assessment models.SkillAssessment) SkillAssessmentResponse {
	return SkillAssessmentResponse{
		SkillName:     assessment.SkillName,
		SkillLevel:    assessment.SkillLevel,
		Confidence:    assessment.Confidence,
		EvidenceCount: assessment.EvidenceCount,
		AssessedAt:    assessment.AssessedAt,
	}
}
