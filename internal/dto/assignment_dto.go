package dto

import (
	"time"

	"github.com/jamditis/class/internal/models"
)

// AssignmentCreateRequest represents the payload for adding an assignment by hand.
type AssignmentCreateRequest struct {
	Name           string     `json:"name" validate:"required,max=255"`
	Description    string     `json:"description"`
	PointsPossible float64    `json:"points_possible" validate:"gte=0"`
	DueDate        *time.Time `json:"due_date"`
	AssignmentType string     `json:"assignment_type" validate:"omitempty,oneof=written visual research strategy comprehensive general"`
	ExternalID     string     `json:"external_id" validate:"omitempty,max=64"`
	SkillsAssessed []string   `json:"skills_assessed" validate:"omitempty,dive,required"`
}

// AssignmentResponse represents an assignment to API consumers.
type AssignmentResponse struct {
	ID              uint       `json:"id"`
	ExternalID      string     `json:"external_id,omitempty"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	PointsPossible  float64    `json:"points_possible"`
	DueDate         *time.Time `json:"due_date"`
	AssignmentType  string     `json:"assignment_type"`
	SkillsAssessed  []string   `json:"skills_assessed"`
	HasCustomRubric bool       `json:"has_custom_rubric"`
}

// NewAssignmentResponse converts an assignment model into a DTO.
func NewAssignmentResponse(assignment models.Assignment) AssignmentResponse {
	skills := []string(assignment.SkillsAssessed)
	if skills == nil {
		skills = []string{}
	}

	custom := assignment.CustomRubric()
	return AssignmentResponse{
		ID:              assignment.ID,
		ExternalID:      assignment.ExternalRef(),
		Name:            assignment.Name,
		Description:     assignment.Description,
		PointsPossible:  assignment.PointsPossible,
		DueDate:         assignment.DueDate,
		AssignmentType:  assignment.AssignmentType,
		SkillsAssessed:  skills,
		HasCustomRubric: custom != nil && len(custom.Criteria) > 0,
	}
}

// RubricUpdateRequest replaces an assignment's rubric override.
type RubricUpdateRequest struct {
	Criteria       []models.Criterion `json:"criteria" validate:"required,min=1"`
	SkillsAssessed []string           `json:"skills_assessed"`
}

// RubricResponse describes the rubric an assignment is scored against.
type RubricResponse struct {
	AssignmentID uint          `json:"assignment_id"`
	Custom       bool          `json:"custom"`
	Rubric       models.Rubric `json:"rubric"`
}
