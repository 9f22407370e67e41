package models

import "time"

// Submission statuses.
const (
	SubmissionStatusPending   = "pending"
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusLate      = "late"
	SubmissionStatusMissing   = "missing"
	SubmissionStatusExcused   = "excused"
)

// Submission provenance tags.
const (
	SubmissionSourceCanvas     = "canvas"
	SubmissionSourceManual     = "manual"
	SubmissionSourceCSVImport  = "csv_import"
	SubmissionSourceFileImport = "file_import"
)

// Submission is a student's work for one assignment. The (student, assignment) pair is unique.
type Submission struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	StudentID    uint         `gorm:"not null;uniqueIndex:idx_submissions_student_assignment" json:"student_id"`
	AssignmentID uint         `gorm:"not null;uniqueIndex:idx_submissions_student_assignment;index" json:"assignment_id"`
	ExternalID   string       `gorm:"size:64" json:"external_id,omitempty"`
	Content      string       `gorm:"type:text" json:"content"`
	FilePath     string       `gorm:"size:512" json:"file_path,omitempty"`
	SubmittedAt  *time.Time   `json:"submitted_at"`
	Status       string       `gorm:"size:32;not null;default:pending" json:"status"`
	Source       string       `gorm:"size:32;not null;default:canvas" json:"source"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Student      Student      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Assignment   Assignment   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Evaluations  []Evaluation `json:"-"`
}

// IsTurnedIn reports whether the submission counts toward submission rates.
func (s Submission) IsTurnedIn() bool {
	return s.Status == SubmissionStatusSubmitted || s.Status == SubmissionStatusLate
}

// FinalEvaluation returns the final evaluation among the loaded evaluations, if any.
func (s Submission) FinalEvaluation() *Evaluation {
	for i := range s.Evaluations {
		if s.Evaluations[i].IsFinal {
			return &s.Evaluations[i]
		}
	}
	return nil
}

// ValidSubmissionStatus reports whether status is a known submission status.
func ValidSubmissionStatus(status string) bool {
	switch status {
	case SubmissionStatusPending, SubmissionStatusSubmitted, SubmissionStatusLate, SubmissionStatusMissing, SubmissionStatusExcused:
		return true
	}
	return false
}
