package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jamditis/class/internal/models"
)

// FeedbackFilter narrows feedback queue listings.
type FeedbackFilter struct {
	Statuses []string
	Limit    int
}

// FeedbackRepository exposes persistence helpers for the feedback queue.
type FeedbackRepository interface {
	Create(ctx context.Context, item *models.FeedbackItem) error
	GetByID(ctx context.Context, id uint) (models.FeedbackItem, error)
	List(ctx context.Context, filter FeedbackFilter) ([]models.FeedbackItem, error)
	Transition(ctx context.Context, id uint, from []string, updates map[string]interface{}) (bool, error)
	RecordError(ctx context.Context, id uint, message string) error
	RecordExternalID(ctx context.Context, id uint, externalID string) error
	CountByStatus(ctx context.Context) (map[string]int64, error)
	HasActiveSubmissionComment(ctx context.Context, submissionID uint) (bool, error)
}

// NewFeedbackRepository constructs a feedback repository.
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

type feedbackRepository struct {
	db *gorm.DB
}

func (r *feedbackRepository) Create(ctx context.Context, item *models.FeedbackItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *feedbackRepository) GetByID(ctx context.Context, id uint) (models.FeedbackItem, error) {
	var item models.FeedbackItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return models.FeedbackItem{}, err
	}
	return item, nil
}

func (r *feedbackRepository) List(ctx context.Context, filter FeedbackFilter) ([]models.FeedbackItem, error) {
	query := r.db.WithContext(ctx).Model(&models.FeedbackItem{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var items []models.FeedbackItem
	if err := query.Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Transition applies updates only while the item is in one of the from statuses.
// It reports false when the item was not in an allowed state.
func (r *feedbackRepository) Transition(ctx context.Context, id uint, from []string, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.FeedbackItem{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *feedbackRepository) RecordError(ctx context.Context, id uint, message string) error {
	return r.db.WithContext(ctx).
		Model(&models.FeedbackItem{}).
		Where("id = ?", id).
		Update("last_error", message).Error
}

// RecordExternalID stores the LMS id of a post whose status update did not complete.
func (r *feedbackRepository) RecordExternalID(ctx context.Context, id uint, externalID string) error {
	return r.db.WithContext(ctx).
		Model(&models.FeedbackItem{}).
		Where("id = ? AND external_id = ?", id, "").
		Update("external_id", externalID).Error
}

func (r *feedbackRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Total  int64
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.FeedbackItem{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(models.FeedbackStatuses))
	for _, status := range models.FeedbackStatuses {
		counts[status] = 0
	}
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

// HasActiveSubmissionComment reports whether a non-rejected comment is already queued for the submission.
func (r *feedbackRepository) HasActiveSubmissionComment(ctx context.Context, submissionID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FeedbackItem{}).
		Where("submission_id = ? AND feedback_type = ? AND status <> ?", submissionID, models.FeedbackTypeSubmissionComment, models.FeedbackStatusRejected).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
