package models

import (
	"time"

	"gorm.io/datatypes"
)

// Assignment types drive default rubric selection.
const (
	AssignmentTypeWritten       = "written"
	AssignmentTypeVisual        = "visual"
	AssignmentTypeResearch      = "research"
	AssignmentTypeStrategy      = "strategy"
	AssignmentTypeComprehensive = "comprehensive"
	AssignmentTypeGeneral       = "general"
)

// Assignment is a gradeable unit of coursework.
type Assignment struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	ExternalID     *string                     `gorm:"size:64;uniqueIndex" json:"external_id,omitempty"`
	Name           string                      `gorm:"size:255;not null" json:"name"`
	Description    string                      `gorm:"type:text" json:"description"`
	PointsPossible float64                     `gorm:"not null;default:0" json:"points_possible"`
	DueDate        *time.Time                  `json:"due_date"`
	AssignmentType string                      `gorm:"size:32;not null;default:general" json:"assignment_type"`
	Rubric         datatypes.JSONType[*Rubric] `json:"rubric"`
	SkillsAssessed datatypes.JSONSlice[string] `json:"skills_assessed"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	Submissions    []Submission                `json:"-"`
}

// ExternalRef returns the LMS identifier of the assignment, or an empty string.
func (a Assignment) ExternalRef() string {
	if a.ExternalID == nil {
		return ""
	}
	return *a.ExternalID
}

// CustomRubric returns the assignment-specific rubric override, if any.
func (a Assignment) CustomRubric() *Rubric {
	return a.Rubric.Data()
}

// Percentage converts a score into a percentage of pointsPossible.
// Ungraded assignments (zero or negative points) always yield 0.
func Percentage(score, pointsPossible float64) float64 {
	if pointsPossible <= 0 {
		return 0
	}
	return score / pointsPossible * 100
}

// Rubric is a weighted set of criteria used to structure scoring.
type Rubric struct {
	Criteria       []Criterion `json:"criteria"`
	SkillsAssessed []string    `json:"skills_assessed,omitempty"`
}

// Criterion is a single rubric line. Weights are relative importance hints, not normalised.
type Criterion struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Weight      int                   `json:"weight"`
	Levels      map[SkillLevel]string `json:"levels"`
}
