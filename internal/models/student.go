package models

import "time"

// Student represents an enrolled learner. Students are never hard-deleted so grade history persists.
type Student struct {
	ID               uint              `gorm:"primaryKey" json:"id"`
	ExternalID       *string           `gorm:"size:64;uniqueIndex" json:"external_id,omitempty"`
	Name             string            `gorm:"size:255;not null;index" json:"name"`
	Email            string            `gorm:"size:255" json:"email"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Submissions      []Submission      `json:"-"`
	SkillAssessments []SkillAssessment `json:"-"`
	Notes            []StudentNote     `json:"-"`
}

// ExternalRef returns the LMS identifier of the student, or an empty string.
func (s Student) ExternalRef() string {
	if s.ExternalID == nil {
		return ""
	}
	return *s.ExternalID
}

// StringPtr returns a pointer to value, or nil when value is blank.
func StringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
