package dto

import "time"

// ImportReport counts the outcome of an import or sync step.
type ImportReport struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// AddError records a row-level problem and counts the row as skipped.
func (r *ImportReport) AddError(message string) {
	r.Skipped++
	r.Errors = append(r.Errors, message)
}

// Record counts a successful upsert.
func (r *ImportReport) Record(created bool) {
	if created {
		r.Created++
		return
	}
	r.Updated++
}

// SyncReport summarises one pull from the LMS.
type SyncReport struct {
	Students    ImportReport `json:"students"`
	Assignments ImportReport `json:"assignments"`
	Submissions ImportReport `json:"submissions"`
	SyncedAt    time.Time    `json:"synced_at"`
}

// TextFile is one uploaded submission file.
type TextFile struct {
	Name    string
	Content []byte
}

// ArchiveResponse points at an uploaded export.
type ArchiveResponse struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// SubmissionDetail is one row of a student report.
type SubmissionDetail struct {
	AssignmentID   uint       `json:"assignment_id"`
	AssignmentName string     `json:"assignment_name"`
	Status         string     `json:"status"`
	SubmittedAt    *time.Time `json:"submitted_at"`
	Score          *float64   `json:"score"`
	PointsPossible float64    `json:"points_possible"`
	Feedback       string     `json:"feedback,omitempty"`
}

// StudentReportResponse is a full export of one student's record.
type StudentReportResponse struct {
	Summary             StudentSummaryResponse      `json:"summary"`
	Progression         StudentProgressionResponse  `json:"progression"`
	StrengthsWeaknesses StrengthsWeaknessesResponse `json:"strengths_weaknesses"`
	Skills              []SkillAssessmentResponse   `json:"skills"`
	Notes               []NoteResponse              `json:"notes"`
	Submissions         []SubmissionDetail          `json:"submissions"`
	GeneratedAt         time.Time                   `json:"generated_at"`
}
