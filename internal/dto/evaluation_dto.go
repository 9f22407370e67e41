package dto

import (
	"time"

	"github.com/jamditis/class/internal/models"
)

// EvaluateRequest controls a single evaluator run.
type EvaluateRequest struct {
	Force        bool   `json:"force"`
	ContextNotes string `json:"context_notes"`
}

// EvaluationResponse describes a stored evaluation.
type EvaluationResponse struct {
	ID                  uint                             `json:"id"`
	SubmissionID        uint                             `json:"submission_id"`
	Source              string                           `json:"source"`
	Score               *float64                         `json:"score"`
	ScoreBreakdown      map[string]models.CriterionScore `json:"score_breakdown"`
	Feedback            string                           `json:"feedback"`
	NextSteps           string                           `json:"next_steps"`
	Strengths           []string                         `json:"strengths"`
	AreasForImprovement []string                         `json:"areas_for_improvement"`
	SkillRatings        map[string]models.SkillLevel     `json:"skill_ratings"`
	AILikelihood        *models.AILikelihood             `json:"ai_likelihood,omitempty"`
	Model               string                           `json:"model,omitempty"`
	PromptVersion       string                           `json:"prompt_version,omitempty"`
	ContextNotes        string                           `json:"context_notes,omitempty"`
	IsFinal             bool                             `json:"is_final"`
	ConfirmedFromID     *uint                            `json:"confirmed_from_id,omitempty"`
	CreatedAt           time.Time                        `json:"created_at"`
}

// NewEvaluationResponse converts an evaluation model into a DTO.
func NewEvaluationResponse(evaluation models.Evaluation) EvaluationResponse {
	return EvaluationResponse{
		ID:                  evaluation.ID,
		SubmissionID:        evaluation.SubmissionID,
		Source:              evaluation.Source,
		Score:               evaluation.Score,
		ScoreBreakdown:      evaluation.Breakdown(),
		Feedback:            evaluation.Feedback,
		NextSteps:           evaluation.NextSteps,
		Strengths:           nonNil(evaluation.Strengths),
		AreasForImprovement: nonNil(evaluation.AreasForImprovement),
		SkillRatings:        evaluation.Ratings(),
		AILikelihood:        evaluation.AILikelihood.Data(),
		Model:               evaluation.Model,
		PromptVersion:       evaluation.PromptVersion,
		ContextNotes:        evaluation.ContextNotes,
		IsFinal:             evaluation.IsFinal,
		ConfirmedFromID:     evaluation.ConfirmedFromID,
		CreatedAt:           evaluation.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// ManualEvaluationRequest records an instructor's own evaluation.
type ManualEvaluationRequest struct {
	Score               *float64                         `json:"score" validate:"required,gte=0"`
	ScoreBreakdown      map[string]models.CriterionScore `json:"score_breakdown"`
	Feedback            string                           `json:"feedback"`
	NextSteps           string                           `json:"next_steps"`
	Strengths           []string                         `json:"strengths"`
	AreasForImprovement []string                         `json:"areas_for_improvement"`
	SkillRatings        map[string]string                `json:"skill_ratings"`
}

// ConfirmEvaluationRequest carries sparse overrides applied when confirming an evaluation.
// Nil fields keep the original's value.
type ConfirmEvaluationRequest struct {
	Score               *float64                         `json:"score" validate:"omitempty,gte=0"`
	ScoreBreakdown      map[string]models.CriterionScore `json:"score_breakdown"`
	Feedback            *string                          `json:"feedback"`
	Strengths           []string                         `json:"strengths"`
	AreasForImprovement []string                         `json:"areas_for_improvement"`
	SkillRatings        map[string]string                `json:"skill_ratings"`
}

// BatchEvaluationRequest selects pending submissions for evaluation.
type BatchEvaluationRequest struct {
	AssignmentID *uint `json:"assignment_id" validate:"omitempty,gt=0"`
	Limit        int   `json:"limit" validate:"gte=0"`
}

// BatchFailure reports one submission the batch could not evaluate.
type BatchFailure struct {
	SubmissionID uint   `json:"submission_id"`
	Error        string `json:"error"`
}

// BatchEvaluationResponse summarises a batch run.
type BatchEvaluationResponse struct {
	Evaluated []EvaluationResponse `json:"evaluated"`
	Failures  []BatchFailure       `json:"failures"`
	Cancelled bool                 `json:"cancelled"`
}

// AdhocEvaluationRequest scores free text without persisting anything.
type AdhocEvaluationRequest struct {
	Content        string  `json:"content" validate:"required"`
	AssignmentName string  `json:"assignment_name"`
	Description    string  `json:"description"`
	AssignmentType string  `json:"assignment_type" validate:"omitempty,oneof=written visual research strategy comprehensive general"`
	PointsPossible float64 `json:"points_possible" validate:"gte=0"`
	ContextNotes   string  `json:"context_notes"`
}

// AdhocEvaluationResponse is the evaluator's judgment of ad-hoc text.
type AdhocEvaluationResponse struct {
	Score               float64                          `json:"score"`
	PointsPossible      float64                          `json:"points_possible"`
	ScoreBreakdown      map[string]models.CriterionScore `json:"score_breakdown"`
	Feedback            string                           `json:"feedback"`
	NextSteps           string                           `json:"next_steps"`
	Strengths           []string                         `json:"strengths"`
	AreasForImprovement []string                         `json:"areas_for_improvement"`
	SkillRatings        map[string]models.SkillLevel     `json:"skill_ratings"`
	AILikelihood        *models.AILikelihood             `json:"ai_likelihood,omitempty"`
	Model               string                           `json:"model"`
	PromptVersion       string                           `json:"prompt_version"`
}
