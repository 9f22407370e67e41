package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
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
)

// Default titles used when a queued post has none.
const (
	DefaultDiscussionTitle   = "Class Insight"
	DefaultAnnouncementTitle = "Course Announcement"
)

const (
	defaultFeedbackListLimit = 50
	feedbackHighlights       = 3
)

// LMSPublisher delivers approved feedback to the learning management system.
type LMSPublisher interface {
	PostSubmissionComment(ctx context.Context, assignmentRef, studentRef, text string) (string, error)
	CreateDiscussionTopic(ctx context.Context, title, message string) (string, error)
	CreateAnnouncement(ctx context.Context, title, message string) (string, error)
	PostDiscussionEntry(ctx context.Context, topicRef, message string) (string, error)
}

// FeedbackService manages the instructor review queue for outbound feedback.
type FeedbackService interface {
	Enqueue(ctx context.Context, payload dto.FeedbackEnqueueRequest) (dto.FeedbackResponse, error)
	QueueSubmissionFeedback(ctx context.Context, submissionID uint) (dto.FeedbackResponse, error)
	QueueClassInsight(ctx context.Context, payload dto.ClassInsightFeedbackRequest) (dto.FeedbackResponse, error)
	QueueEvaluatedFeedback(ctx context.Context, payload dto.FeedbackBatchRequest) (dto.FeedbackBatchResponse, error)
	List(ctx context.Context, status string, limit int) ([]dto.FeedbackResponse, error)
	Get(ctx context.Context, id uint) (dto.FeedbackResponse, error)
	Edit(ctx context.Context, id uint, payload dto.FeedbackEditRequest) (dto.FeedbackResponse, error)
	Approve(ctx context.Context, id uint) (dto.FeedbackResponse, error)
	Reject(ctx context.Context, id uint) (dto.FeedbackResponse, error)
	Publish(ctx context.Context, id uint) (dto.FeedbackResponse, error)
	PublishAllApproved(ctx context.Context) (dto.PublishAllResponse, error)
	Stats(ctx context.Context) (dto.FeedbackStatsResponse, error)
}

type feedbackService struct {
	repo        repository.FeedbackRepository
	submissions repository.SubmissionRepository
	lms         LMSPublisher
	publisher   events.Publisher
	sanitizer   *bluemonday.Policy
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	locks       *keyedMutex
	now         func() time.Time
}

// NewFeedbackService constructs the feedback queue. lms may be nil, in which case publishing fails.
func NewFeedbackService(repo repository.FeedbackRepository, submissions repository.SubmissionRepository, lms LMSPublisher, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) FeedbackService {
	if publisher == nil {
		publisher = events.Nop()
	}

	return &feedbackService{
		repo:        repo,
		submissions: submissions,
		lms:         lms,
		publisher:   publisher,
		sanitizer:   bluemonday.StrictPolicy(),
		validator:   validate,
		logger:      logger.With().Str("component", "feedback_service").Logger(),
		tracer:      otel.Tracer("github.com/jamditis/class/internal/service/feedback"),
		locks:       newKeyedMutex(),
		now:         time.Now,
	}
}

func (s *feedbackService) Enqueue(ctx context.Context, payload dto.FeedbackEnqueueRequest) (dto.FeedbackResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	content := s.sanitize(payload.Content)
	if content == "" {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: content empty after sanitization", ErrInvalidFeedback)
	}

	item := models.FeedbackItem{
		FeedbackType:       payload.FeedbackType,
		DiscussionTopicRef: strings.TrimSpace(payload.DiscussionTopicRef),
		Title:              strings.TrimSpace(payload.Title),
		Content:            content,
		OriginalContent:    content,
		Status:             models.FeedbackStatusPending,
		GeneratedBy:        payload.GeneratedBy,
	}
	if item.GeneratedBy == "" {
		item.GeneratedBy = models.EvaluationSourceManual
	}
	if payload.GenerationContext != nil {
		item.GenerationContext = datatypes.JSONMap(payload.GenerationContext)
	}

	switch payload.FeedbackType {
	case models.FeedbackTypeSubmissionComment:
		if payload.SubmissionID == nil {
			return dto.FeedbackResponse{}, fmt.Errorf("%w: submission_comment requires submission_id", ErrInvalidFeedback)
		}
		submission, err := s.loadSubmission(ctx, *payload.SubmissionID)
		if err != nil {
			return dto.FeedbackResponse{}, err
		}
		item.SubmissionID = &submission.ID
		item.StudentID = &submission.StudentID
	case models.FeedbackTypeDiscussionEntry:
		if item.DiscussionTopicRef == "" {
			return dto.FeedbackResponse{}, fmt.Errorf("%w: discussion_entry requires discussion_topic_ref", ErrInvalidFeedback)
		}
	}

	if err := s.repo.Create(ctx, &item); err != nil {
		return dto.FeedbackResponse{}, err
	}

	observability.FeedbackQueued().WithLabelValues(item.FeedbackType).Inc()
	s.logger.Info().Uint("feedback_id", item.ID).Str("type", item.FeedbackType).Msg("feedback queued")
	return dto.NewFeedbackResponse(item), nil
}

func (s *feedbackService) QueueSubmissionFeedback(ctx context.Context, submissionID uint) (dto.FeedbackResponse, error) {
	submission, err := s.loadSubmission(ctx, submissionID)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}

	final := submission.FinalEvaluation()
	if final == nil {
		return dto.FeedbackResponse{}, ErrNoFinalEvaluation
	}

	return s.Enqueue(ctx, dto.FeedbackEnqueueRequest{
		FeedbackType: models.FeedbackTypeSubmissionComment,
		SubmissionID: &submission.ID,
		Content:      composeSubmissionFeedback(*final, submission.Assignment.PointsPossible),
		GeneratedBy:  final.Source,
		GenerationContext: map[string]interface{}{
			"evaluation_id":  final.ID,
			"generated_from": "evaluation",
		},
	})
}

func (s *feedbackService) QueueClassInsight(ctx context.Context, payload dto.ClassInsightFeedbackRequest) (dto.FeedbackResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	feedbackType := payload.FeedbackType
	if feedbackType == "" {
		feedbackType = models.FeedbackTypeDiscussionPost
	}
	return s.Enqueue(ctx, dto.FeedbackEnqueueRequest{
		FeedbackType: feedbackType,
		Title:        payload.Title,
		Content:      payload.Content,
		GeneratedBy:  models.EvaluationSourceManual,
		GenerationContext: map[string]interface{}{
			"generated_from": "class_insight",
		},
	})
}

func (s *feedbackService) QueueEvaluatedFeedback(ctx context.Context, payload dto.FeedbackBatchRequest) (dto.FeedbackBatchResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackBatchResponse{}, err
	}

	submissions, err := s.submissions.ListWithFinalEvaluations(ctx, repository.SubmissionFilter{AssignmentID: payload.AssignmentID})
	if err != nil {
		return dto.FeedbackBatchResponse{}, err
	}

	response := dto.FeedbackBatchResponse{Queued: []dto.FeedbackResponse{}}
	for _, submission := range submissions {
		if err := ctx.Err(); err != nil {
			return response, err
		}
		if payload.Limit > 0 && len(response.Queued) >= payload.Limit {
			break
		}
		if submission.FinalEvaluation() == nil {
			continue
		}

		exists, err := s.repo.HasActiveSubmissionComment(ctx, submission.ID)
		if err != nil {
			return response, err
		}
		if exists {
			response.Skipped++
			continue
		}

		item, err := s.QueueSubmissionFeedback(ctx, submission.ID)
		if err != nil {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("failed to queue submission feedback")
			response.Skipped++
			continue
		}
		response.Queued = append(response.Queued, item)
	}
	return response, nil
}

func (s *feedbackService) List(ctx context.Context, status string, limit int) ([]dto.FeedbackResponse, error) {
	filter := repository.FeedbackFilter{Limit: limit}
	if filter.Limit <= 0 {
		filter.Limit = defaultFeedbackListLimit
	}
	if status = strings.TrimSpace(status); status != "" {
		filter.Statuses = []string{status}
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.FeedbackResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewFeedbackResponse(item))
	}
	return responses, nil
}

func (s *feedbackService) Get(ctx context.Context, id uint) (dto.FeedbackResponse, error) {
	item, err := s.load(ctx, id)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}
	return dto.NewFeedbackResponse(item), nil
}

func (s *feedbackService) Edit(ctx context.Context, id uint, payload dto.FeedbackEditRequest) (dto.FeedbackResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.FeedbackResponse{}, err
	}

	content := s.sanitize(payload.Content)
	if content == "" {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: content empty after sanitization", ErrInvalidFeedback)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.load(ctx, id)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}

	updates := map[string]interface{}{"content": content}
	if payload.Title != nil {
		updates["title"] = strings.TrimSpace(*payload.Title)
	}
	if content != item.OriginalContent {
		updates["status"] = models.FeedbackStatusEdited
		updates["reviewed_at"] = s.now().UTC()
	}

	return s.transition(ctx, id, []string{models.FeedbackStatusPending, models.FeedbackStatusApproved, models.FeedbackStatusEdited}, updates)
}

func (s *feedbackService) Approve(ctx context.Context, id uint) (dto.FeedbackResponse, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	return s.transition(ctx, id, []string{models.FeedbackStatusPending}, map[string]interface{}{
		"status":      models.FeedbackStatusApproved,
		"reviewed_at": s.now().UTC(),
	})
}

func (s *feedbackService) Reject(ctx context.Context, id uint) (dto.FeedbackResponse, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	return s.transition(ctx, id, []string{models.FeedbackStatusPending, models.FeedbackStatusApproved, models.FeedbackStatusEdited}, map[string]interface{}{
		"status":      models.FeedbackStatusRejected,
		"reviewed_at": s.now().UTC(),
	})
}

// Publish dispatches an approved or edited item to the LMS.
// The item lock is held across the LMS call so one process never publishes an item twice.
func (s *feedbackService) Publish(ctx context.Context, id uint) (dto.FeedbackResponse, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.publish", trace.WithAttributes(attribute.Int64("feedback.id", int64(id))))
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	item, err := s.load(ctx, id)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}
	if item.Status != models.FeedbackStatusApproved && item.Status != models.FeedbackStatusEdited {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: cannot publish from %s", ErrInvalidTransition, item.Status)
	}
	span.SetAttributes(attribute.String("feedback.type", item.FeedbackType))

	// an external id on an unpublished item means the LMS already accepted the post
	externalID := item.ExternalID
	if externalID == "" {
		externalID, err = s.dispatch(ctx, item)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.FeedbackPublishes().WithLabelValues(item.FeedbackType, "failure").Inc()
		if errors.Is(err, ErrMissingExternalRef) || errors.Is(err, ErrSubmissionNotFound) {
			return dto.FeedbackResponse{}, err
		}
		if recordErr := s.repo.RecordError(ctx, id, err.Error()); recordErr != nil {
			s.logger.Error().Err(recordErr).Uint("feedback_id", id).Msg("failed to record publish error")
		}
		s.logger.Warn().Err(err).Uint("feedback_id", id).Msg("feedback publish failed")
		return dto.FeedbackResponse{}, fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	response, err := s.transition(ctx, id, []string{models.FeedbackStatusApproved, models.FeedbackStatusEdited}, map[string]interface{}{
		"status":       models.FeedbackStatusPublished,
		"external_id":  externalID,
		"published_at": s.now().UTC(),
		"last_error":   "",
	})
	if err != nil {
		if recordErr := s.repo.RecordExternalID(ctx, id, externalID); recordErr != nil {
			s.logger.Error().Err(recordErr).Uint("feedback_id", id).Str("external_id", externalID).Msg("failed to record external id of posted feedback")
		}
		return dto.FeedbackResponse{}, err
	}

	observability.FeedbackPublishes().WithLabelValues(item.FeedbackType, "success").Inc()
	if err := s.publisher.Publish(ctx, events.New(events.FeedbackPublished, map[string]interface{}{
		"feedback_id":   id,
		"feedback_type": item.FeedbackType,
		"external_id":   externalID,
	})); err != nil {
		s.logger.Warn().Err(err).Uint("feedback_id", id).Msg("failed to publish feedback event")
	}
	return response, nil
}

func (s *feedbackService) PublishAllApproved(ctx context.Context) (dto.PublishAllResponse, error) {
	items, err := s.repo.List(ctx, repository.FeedbackFilter{
		Statuses: []string{models.FeedbackStatusApproved, models.FeedbackStatusEdited},
	})
	if err != nil {
		return dto.PublishAllResponse{}, err
	}

	response := dto.PublishAllResponse{Results: make([]dto.PublishResult, 0, len(items))}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return response, err
		}

		published, err := s.Publish(ctx, item.ID)
		if err != nil {
			response.Failed++
			response.Results = append(response.Results, dto.PublishResult{ID: item.ID, Error: err.Error()})
			continue
		}
		response.Published++
		response.Results = append(response.Results, dto.PublishResult{ID: item.ID, ExternalID: published.ExternalID})
	}

	s.logger.Info().Int("published", response.Published).Int("failed", response.Failed).Msg("bulk publish finished")
	return response, nil
}

func (s *feedbackService) Stats(ctx context.Context) (dto.FeedbackStatsResponse, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return dto.FeedbackStatsResponse{}, err
	}

	var total int64
	for _, count := range counts {
		total += count
	}
	return dto.FeedbackStatsResponse{Counts: counts, Total: total}, nil
}

func (s *feedbackService) dispatch(ctx context.Context, item models.FeedbackItem) (string, error) {
	if s.lms == nil {
		return "", ErrSyncUnavailable
	}

	switch item.FeedbackType {
	case models.FeedbackTypeSubmissionComment:
		if item.SubmissionID == nil {
			return "", fmt.Errorf("%w: item has no submission", ErrMissingExternalRef)
		}
		submission, err := s.loadSubmission(ctx, *item.SubmissionID)
		if err != nil {
			return "", err
		}
		studentRef := submission.Student.ExternalRef()
		if studentRef == "" {
			return "", fmt.Errorf("%w: student %d has no LMS id", ErrMissingExternalRef, submission.StudentID)
		}
		assignmentRef := submission.Assignment.ExternalRef()
		if assignmentRef == "" {
			return "", fmt.Errorf("%w: assignment %d has no LMS id", ErrMissingExternalRef, submission.AssignmentID)
		}
		return s.lms.PostSubmissionComment(ctx, assignmentRef, studentRef, item.Content)
	case models.FeedbackTypeDiscussionPost:
		return s.lms.CreateDiscussionTopic(ctx, titleOr(item.Title, DefaultDiscussionTitle), item.Content)
	case models.FeedbackTypeAnnouncement:
		return s.lms.CreateAnnouncement(ctx, titleOr(item.Title, DefaultAnnouncementTitle), item.Content)
	case models.FeedbackTypeDiscussionEntry:
		if item.DiscussionTopicRef == "" {
			return "", fmt.Errorf("%w: no discussion topic", ErrMissingExternalRef)
		}
		return s.lms.PostDiscussionEntry(ctx, item.DiscussionTopicRef, item.Content)
	}
	return "", fmt.Errorf("%w: unknown type %q", ErrInvalidFeedback, item.FeedbackType)
}

// transition applies a conditional update and reloads the item.
func (s *feedbackService) transition(ctx context.Context, id uint, from []string, updates map[string]interface{}) (dto.FeedbackResponse, error) {
	ok, err := s.repo.Transition(ctx, id, from, updates)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}

	item, err := s.load(ctx, id)
	if err != nil {
		return dto.FeedbackResponse{}, err
	}
	if !ok {
		return dto.FeedbackResponse{}, fmt.Errorf("%w: item is %s", ErrInvalidTransition, item.Status)
	}
	return dto.NewFeedbackResponse(item), nil
}

func (s *feedbackService) load(ctx context.Context, id uint) (models.FeedbackItem, error) {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FeedbackItem{}, ErrFeedbackNotFound
		}
		return models.FeedbackItem{}, err
	}
	return item, nil
}

func (s *feedbackService) loadSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *feedbackService) sanitize(content string) string {
	return plainText(s.sanitizer, content)
}

// composeSubmissionFeedback renders a final evaluation as a markdown comment.
func composeSubmissionFeedback(evaluation models.Evaluation, pointsPossible float64) string {
	var parts []string
	if feedback := strings.TrimSpace(evaluation.Feedback); feedback != "" {
		parts = append(parts, feedback)
	}
	if len(evaluation.Strengths) > 0 {
		parts = append(parts, "\n**Strengths:**")
		for _, item := range headOf(evaluation.Strengths, feedbackHighlights) {
			parts = append(parts, "- "+item)
		}
	}
	if len(evaluation.AreasForImprovement) > 0 {
		parts = append(parts, "\n**Areas for growth:**")
		for _, item := range headOf(evaluation.AreasForImprovement, feedbackHighlights) {
			parts = append(parts, "- "+item)
		}
	}
	if evaluation.Score != nil {
		parts = append(parts, fmt.Sprintf("\n**Score:** %s/%s", formatPoints(*evaluation.Score), formatPoints(pointsPossible)))
	}
	return strings.Join(parts, "\n")
}

func headOf(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func titleOr(title, fallback string) string {
	if strings.TrimSpace(title) == "" {
		return fallback
	}
	return title
}

// keyedMutex serialises work per id within one process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint]*keyedLock)}
}

// Lock acquires the lock for key and returns its release function.
func (k *keyedMutex) Lock(key uint) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
