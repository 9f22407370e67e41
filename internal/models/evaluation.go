package models

import (
	"time"

	"gorm.io/datatypes"
)

// Evaluation sources.
const (
	EvaluationSourceAutomated  = "automated"
	EvaluationSourceManual     = "manual"
	EvaluationSourceAIAssisted = "ai_assisted"
)

// Evaluation is a scored judgment of a submission. At most one evaluation per submission is final;
// earlier evaluations are retained for audit.
type Evaluation struct {
	ID                  uint                                          `gorm:"primaryKey" json:"id"`
	SubmissionID        uint                                          `gorm:"not null;index;uniqueIndex:idx_evaluations_single_final,where:is_final = true" json:"submission_id"`
	Source              string                                        `gorm:"size:32;not null" json:"source"`
	Score               *float64                                      `json:"score"`
	ScoreBreakdown      datatypes.JSONType[map[string]CriterionScore] `json:"score_breakdown"`
	Feedback            string                                        `gorm:"type:text" json:"feedback"`
	NextSteps           string                                        `gorm:"type:text" json:"next_steps"`
	Strengths           datatypes.JSONSlice[string]                   `json:"strengths"`
	AreasForImprovement datatypes.JSONSlice[string]                   `json:"areas_for_improvement"`
	SkillRatings        datatypes.JSONType[map[string]SkillLevel]     `json:"skill_ratings"`
	AILikelihood        datatypes.JSONType[*AILikelihood]             `json:"ai_likelihood"`
	Model               string                                        `gorm:"size:128" json:"model,omitempty"`
	PromptVersion       string                                        `gorm:"size:16" json:"prompt_version,omitempty"`
	RawResponse         string                                        `gorm:"type:text" json:"-"`
	ContextNotes        string                                        `gorm:"type:text" json:"context_notes,omitempty"`
	IsFinal             bool                                          `gorm:"not null;default:false;index" json:"is_final"`
	ConfirmedFromID     *uint                                         `json:"confirmed_from_id,omitempty"`
	CreatedAt           time.Time                                     `json:"created_at"`
	UpdatedAt           time.Time                                     `json:"updated_at"`
	Submission          Submission                                    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// CriterionScore is the evaluator's judgment for one rubric criterion.
type CriterionScore struct {
	Level    SkillLevel `json:"level"`
	Score    float64    `json:"score"`
	Feedback string     `json:"feedback"`
}

// AILikelihood is the evaluator's estimate that a submission was machine-written.
type AILikelihood struct {
	Score   float64  `json:"score"`
	Signals []string `json:"signals"`
	Note    string   `json:"note"`
}

// Ratings returns the evaluation's skill ratings.
func (e Evaluation) Ratings() map[string]SkillLevel {
	return e.SkillRatings.Data()
}

// Breakdown returns the per-criterion score breakdown.
func (e Evaluation) Breakdown() map[string]CriterionScore {
	return e.ScoreBreakdown.Data()
}
