package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/events"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/observability"
	"github.com/jamditis/class/internal/repository"
	"github.com/jamditis/class/internal/rubric"
	"github.com/jamditis/class/pkg/ai"
)

// Default batch sizes for EvaluateAllPending.
const (
	DefaultBatchSize = 50
	MaxBatchSize     = 200
)

// EvaluationService scores submissions and maintains the final-evaluation history.
type EvaluationService interface {
	Evaluate(ctx context.Context, submissionID uint, opts dto.EvaluateRequest) (dto.EvaluationResponse, error)
	EvaluateAllPending(ctx context.Context, payload dto.BatchEvaluationRequest) (dto.BatchEvaluationResponse, error)
	AddManualEvaluation(ctx context.Context, submissionID uint, payload dto.ManualEvaluationRequest) (dto.EvaluationResponse, error)
	ConfirmEvaluation(ctx context.Context, evaluationID uint, payload dto.ConfirmEvaluationRequest) (dto.EvaluationResponse, error)
	ListEvaluations(ctx context.Context, submissionID uint) ([]dto.EvaluationResponse, error)
	EvaluateText(ctx context.Context, payload dto.AdhocEvaluationRequest) (dto.AdhocEvaluationResponse, error)
}

// CacheInvalidator drops derived analytics after the underlying data changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// EvaluationConfig describes evaluator knobs.
type EvaluationConfig struct {
	ContentLimit    int
	MaxBatchSize    int
	TeachingContext rubric.TeachingContext
}

type evaluationService struct {
	submissions repository.SubmissionRepository
	evaluations repository.EvaluationRepository
	completer   ai.Completer
	skills      SkillService
	cache       CacheInvalidator
	publisher   events.Publisher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	config      EvaluationConfig
}

// NewEvaluationService constructs the evaluator. completer may be nil when no model is configured.
func NewEvaluationService(submissions repository.SubmissionRepository, evaluations repository.EvaluationRepository, completer ai.Completer, skills SkillService, cache CacheInvalidator, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger, cfg EvaluationConfig) EvaluationService {
	if cfg.ContentLimit <= 0 {
		cfg.ContentLimit = DefaultContentLimit
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = MaxBatchSize
	}
	if publisher == nil {
		publisher = events.Nop()
	}

	return &evaluationService{
		submissions: submissions,
		evaluations: evaluations,
		completer:   completer,
		skills:      skills,
		cache:       cache,
		publisher:   publisher,
		validator:   validate,
		logger:      logger.With().Str("component", "evaluation_service").Logger(),
		tracer:      otel.Tracer("github.com/jamditis/class/internal/service/evaluation"),
		config:      cfg,
	}
}

func (s *evaluationService) Evaluate(ctx context.Context, submissionID uint, opts dto.EvaluateRequest) (dto.EvaluationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.evaluate", trace.WithAttributes(
		attribute.Int64("submission.id", int64(submissionID)),
		attribute.Bool("evaluation.force", opts.Force),
	))
	defer span.End()

	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	if !opts.Force {
		if final := submission.FinalEvaluation(); final != nil {
			span.SetAttributes(attribute.Bool("evaluation.cached", true))
			return dto.NewEvaluationResponse(*final), nil
		}
	}

	if strings.TrimSpace(submission.Content) == "" {
		observability.Evaluations().WithLabelValues(models.EvaluationSourceAutomated, "empty").Inc()
		return dto.EvaluationResponse{}, ErrEmptyContent
	}

	assignment := submission.Assignment
	prompt := buildEvaluationPrompt(evaluationPrompt{
		AssignmentName:  assignment.Name,
		Description:     assignment.Description,
		PointsPossible:  assignment.PointsPossible,
		Rubric:          rubric.Resolve(assignment),
		TeachingContext: s.config.TeachingContext.ForAssignment(assignment.Name),
		ContextNotes:    opts.ContextNotes,
		Content:         submission.Content,
		ContentLimit:    s.config.ContentLimit,
	})

	parsed, completion, err := s.score(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("evaluation failed")
		return dto.EvaluationResponse{}, err
	}

	score := clampScore(parsed.OverallScore, assignment.PointsPossible)
	evaluation := models.Evaluation{
		SubmissionID:        submission.ID,
		Source:              models.EvaluationSourceAutomated,
		Score:               &score,
		ScoreBreakdown:      datatypes.NewJSONType(parsed.ScoreBreakdown),
		Feedback:            parsed.OverallFeedback,
		NextSteps:           parsed.NextSteps,
		Strengths:           datatypes.JSONSlice[string](parsed.Strengths),
		AreasForImprovement: datatypes.JSONSlice[string](parsed.AreasForImprovement),
		SkillRatings:        datatypes.NewJSONType(parsed.SkillRatings),
		AILikelihood:        datatypes.NewJSONType(parsed.AILikelihood),
		Model:               completion.Model,
		PromptVersion:       PromptVersion,
		RawResponse:         completion.Content,
		ContextNotes:        strings.TrimSpace(opts.ContextNotes),
	}

	if err := s.evaluations.CreateFinal(ctx, &evaluation); err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("store evaluation: %w", err)
	}

	s.afterFinalize(ctx, submission, evaluation)
	return dto.NewEvaluationResponse(evaluation), nil
}

// score runs one completion and parses it against the scoring contract.
func (s *evaluationService) score(ctx context.Context, prompt ai.Prompt) (scoredResponse, ai.Completion, error) {
	if s.completer == nil {
		observability.Evaluations().WithLabelValues(models.EvaluationSourceAutomated, "unavailable").Inc()
		return scoredResponse{}, ai.Completion{}, ErrEvaluatorUnavailable
	}

	completion, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		observability.Evaluations().WithLabelValues(models.EvaluationSourceAutomated, "unavailable").Inc()
		return scoredResponse{}, ai.Completion{}, fmt.Errorf("%w: %w", ErrEvaluatorUnavailable, err)
	}

	parsed, err := parseScoredResponse(completion.Content)
	if err != nil {
		observability.Evaluations().WithLabelValues(models.EvaluationSourceAutomated, "parse_error").Inc()
		return scoredResponse{}, completion, err
	}
	return parsed, completion, nil
}

func (s *evaluationService) EvaluateAllPending(ctx context.Context, payload dto.BatchEvaluationRequest) (dto.BatchEvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BatchEvaluationResponse{}, err
	}

	limit := payload.Limit
	if limit <= 0 {
		limit = DefaultBatchSize
	}
	if limit > s.config.MaxBatchSize {
		limit = s.config.MaxBatchSize
	}

	pending, err := s.submissions.ListPendingEvaluation(ctx, payload.AssignmentID, limit)
	if err != nil {
		return dto.BatchEvaluationResponse{}, err
	}

	response := dto.BatchEvaluationResponse{
		Evaluated: make([]dto.EvaluationResponse, 0, len(pending)),
		Failures:  []dto.BatchFailure{},
	}
	for _, submission := range pending {
		if ctx.Err() != nil {
			response.Cancelled = true
			break
		}

		evaluation, err := s.Evaluate(ctx, submission.ID, dto.EvaluateRequest{})
		if err != nil {
			response.Failures = append(response.Failures, dto.BatchFailure{SubmissionID: submission.ID, Error: err.Error()})
			continue
		}
		response.Evaluated = append(response.Evaluated, evaluation)
	}

	s.logger.Info().
		Int("evaluated", len(response.Evaluated)).
		Int("failed", len(response.Failures)).
		Bool("cancelled", response.Cancelled).
		Msg("batch evaluation finished")
	return response, nil
}

func (s *evaluationService) AddManualEvaluation(ctx context.Context, submissionID uint, payload dto.ManualEvaluationRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}
	if err := validateScore(*payload.Score, submission.Assignment.PointsPossible); err != nil {
		return dto.EvaluationResponse{}, err
	}
	ratings, err := parseRatings(payload.SkillRatings)
	if err != nil {
		return dto.EvaluationResponse{}, err
	}

	score := *payload.Score
	evaluation := models.Evaluation{
		SubmissionID:        submission.ID,
		Source:              models.EvaluationSourceManual,
		Score:               &score,
		ScoreBreakdown:      datatypes.NewJSONType(payload.ScoreBreakdown),
		Feedback:            strings.TrimSpace(payload.Feedback),
		NextSteps:           strings.TrimSpace(payload.NextSteps),
		Strengths:           datatypes.JSONSlice[string](payload.Strengths),
		AreasForImprovement: datatypes.JSONSlice[string](payload.AreasForImprovement),
		SkillRatings:        datatypes.NewJSONType(ratings),
	}
	if err := s.evaluations.CreateFinal(ctx, &evaluation); err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("store evaluation: %w", err)
	}

	s.afterFinalize(ctx, submission, evaluation)
	return dto.NewEvaluationResponse(evaluation), nil
}

func (s *evaluationService) ConfirmEvaluation(ctx context.Context, evaluationID uint, payload dto.ConfirmEvaluationRequest) (dto.EvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluationResponse{}, err
	}

	original, err := s.evaluations.GetByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluationResponse{}, ErrEvaluationNotFound
		}
		return dto.EvaluationResponse{}, err
	}

	confirmed := models.Evaluation{
		SubmissionID:        original.SubmissionID,
		Source:              models.EvaluationSourceAIAssisted,
		Score:               original.Score,
		ScoreBreakdown:      original.ScoreBreakdown,
		Feedback:            original.Feedback,
		NextSteps:           original.NextSteps,
		Strengths:           original.Strengths,
		AreasForImprovement: original.AreasForImprovement,
		SkillRatings:        original.SkillRatings,
		AILikelihood:        original.AILikelihood,
		Model:               original.Model,
		PromptVersion:       original.PromptVersion,
		ContextNotes:        original.ContextNotes,
		ConfirmedFromID:     &original.ID,
	}

	if payload.Score != nil {
		if err := validateScore(*payload.Score, original.Submission.Assignment.PointsPossible); err != nil {
			return dto.EvaluationResponse{}, err
		}
		score := *payload.Score
		confirmed.Score = &score
	}
	if payload.ScoreBreakdown != nil {
		confirmed.ScoreBreakdown = datatypes.NewJSONType(payload.ScoreBreakdown)
	}
	if payload.Feedback != nil {
		confirmed.Feedback = strings.TrimSpace(*payload.Feedback)
	}
	if payload.Strengths != nil {
		confirmed.Strengths = datatypes.JSONSlice[string](payload.Strengths)
	}
	if payload.AreasForImprovement != nil {
		confirmed.AreasForImprovement = datatypes.JSONSlice[string](payload.AreasForImprovement)
	}
	if payload.SkillRatings != nil {
		ratings, err := parseRatings(payload.SkillRatings)
		if err != nil {
			return dto.EvaluationResponse{}, err
		}
		confirmed.SkillRatings = datatypes.NewJSONType(ratings)
	}

	if err := s.evaluations.CreateFinal(ctx, &confirmed); err != nil {
		return dto.EvaluationResponse{}, fmt.Errorf("store evaluation: %w", err)
	}

	s.afterFinalize(ctx, original.Submission, confirmed)
	return dto.NewEvaluationResponse(confirmed), nil
}

func (s *evaluationService) ListEvaluations(ctx context.Context, submissionID uint) ([]dto.EvaluationResponse, error) {
	if _, err := s.loadSubmission(ctx, submissionID); err != nil {
		return nil, err
	}

	evaluations, err := s.evaluations.ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.EvaluationResponse, 0, len(evaluations))
	for _, evaluation := range evaluations {
		responses = append(responses, dto.NewEvaluationResponse(evaluation))
	}
	return responses, nil
}

func (s *evaluationService) EvaluateText(ctx context.Context, payload dto.AdhocEvaluationRequest) (dto.AdhocEvaluationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AdhocEvaluationResponse{}, err
	}
	if strings.TrimSpace(payload.Content) == "" {
		return dto.AdhocEvaluationResponse{}, ErrEmptyContent
	}

	name := strings.TrimSpace(payload.AssignmentName)
	if name == "" {
		name = "Ad-hoc submission"
	}
	points := payload.PointsPossible
	if points == 0 {
		points = 100
	}

	ctx, span := s.tracer.Start(ctx, "evaluation.adhoc")
	defer span.End()

	parsed, completion, err := s.score(ctx, buildEvaluationPrompt(evaluationPrompt{
		AssignmentName:  name,
		Description:     payload.Description,
		PointsPossible:  points,
		Rubric:          rubric.ForType(payload.AssignmentType),
		TeachingContext: s.config.TeachingContext.ForAssignment(name),
		ContextNotes:    payload.ContextNotes,
		Content:         payload.Content,
		ContentLimit:    s.config.ContentLimit,
	}))
	if err != nil {
		return dto.AdhocEvaluationResponse{}, err
	}

	return dto.AdhocEvaluationResponse{
		Score:               clampScore(parsed.OverallScore, points),
		PointsPossible:      points,
		ScoreBreakdown:      parsed.ScoreBreakdown,
		Feedback:            parsed.OverallFeedback,
		NextSteps:           parsed.NextSteps,
		Strengths:           parsed.Strengths,
		AreasForImprovement: parsed.AreasForImprovement,
		SkillRatings:        parsed.SkillRatings,
		AILikelihood:        parsed.AILikelihood,
		Model:               completion.Model,
		PromptVersion:       PromptVersion,
	}, nil
}

func (s *evaluationService) loadSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

// afterFinalize refreshes derived state once a new final evaluation is stored.
// Failures here are logged; the evaluation itself is already committed.
func (s *evaluationService) afterFinalize(ctx context.Context, submission models.Submission, evaluation models.Evaluation) {
	observability.Evaluations().WithLabelValues(evaluation.Source, "success").Inc()

	if s.skills != nil {
		if _, err := s.skills.UpdateStudentSkills(ctx, submission.StudentID); err != nil {
			s.logger.Warn().Err(err).Uint("student_id", submission.StudentID).Msg("skill update failed")
		}
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}

	data := map[string]interface{}{
		"evaluation_id": evaluation.ID,
		"submission_id": evaluation.SubmissionID,
		"student_id":    submission.StudentID,
		"assignment_id": submission.AssignmentID,
		"source":        evaluation.Source,
	}
	if evaluation.Score != nil {
		data["score"] = *evaluation.Score
	}
	if err := s.publisher.Publish(ctx, events.New(events.EvaluationFinalized, data)); err != nil {
		s.logger.Warn().Err(err).Uint("evaluation_id", evaluation.ID).Msg("failed to publish evaluation event")
	}
}

func validateScore(score, pointsPossible float64) error {
	if score < 0 || (pointsPossible > 0 && score > pointsPossible) {
		return fmt.Errorf("%w: %s not within 0-%s", ErrInvalidScore, formatPoints(score), formatPoints(pointsPossible))
	}
	return nil
}

func parseRatings(raw map[string]string) (map[string]models.SkillLevel, error) {
	ratings := make(map[string]models.SkillLevel, len(raw))
	for skill, label := range raw {
		level, ok := models.ParseSkillLevel(label)
		if !ok {
			return nil, fmt.Errorf("%w: %q for %s", ErrInvalidSkillLevel, label, skill)
		}
		ratings[strings.TrimSpace(skill)] = level
	}
	return ratings, nil
}
