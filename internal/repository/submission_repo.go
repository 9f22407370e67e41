package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jamditis/class/internal/models"
)

// SubmissionRepository exposes persistence helpers for submissions.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByPair(ctx context.Context, studentID, assignmentID uint) (models.Submission, error)
	Upsert(ctx context.Context, submission *models.Submission) (bool, error)
	ListPendingEvaluation(ctx context.Context, assignmentID *uint, limit int) ([]models.Submission, error)
	ListWithFinalEvaluations(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	StudentID    *uint
	AssignmentID *uint
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

type submissionRepository struct {
	db *gorm.DB
}

func finalOnly(db *gorm.DB) *gorm.DB {
	return db.Where("is_final = ?", true)
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Assignment").
		Preload("Evaluations", finalOnly).
		First(&submission, id).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) GetByPair(ctx context.Context, studentID, assignmentID uint) (models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND assignment_id = ?", studentID, assignmentID).
		First(&submission).Error
	if err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

// Upsert writes a submission keyed by (student, assignment) and reports whether a row was created.
// A resync updates the existing row in place.
func (r *submissionRepository) Upsert(ctx context.Context, submission *models.Submission) (bool, error) {
	existing, err := r.GetByPair(ctx, submission.StudentID, submission.AssignmentID)
	switch {
	case err == nil:
		submission.ID = existing.ID
		submission.CreatedAt = existing.CreatedAt
		err = r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"external_id":  submission.ExternalID,
			"content":      submission.Content,
			"file_path":    submission.FilePath,
			"submitted_at": submission.SubmittedAt,
			"status":       submission.Status,
			"source":       submission.Source,
		}).Error
		return false, err
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	err = r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "assignment_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"external_id", "content", "file_path", "submitted_at", "status", "source", "updated_at"}),
	}).Create(submission).Error
	return err == nil, err
}

// ListPendingEvaluation returns submissions with content and no final evaluation, oldest first.
func (r *submissionRepository) ListPendingEvaluation(ctx context.Context, assignmentID *uint, limit int) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("content IS NOT NULL AND TRIM(content) <> ''").
		Where("NOT EXISTS (SELECT 1 FROM evaluations e WHERE e.submission_id = submissions.id AND e.is_final = ?)", true)
	if assignmentID != nil {
		query = query.Where("assignment_id = ?", *assignmentID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var submissions []models.Submission
	if err := query.Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// ListWithFinalEvaluations returns submissions with their student, assignment and final evaluation loaded.
func (r *submissionRepository) ListWithFinalEvaluations(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Assignment").
		Preload("Evaluations", finalOnly)
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.AssignmentID != nil {
		query = query.Where("assignment_id = ?", *filter.AssignmentID)
	}

	var submissions []models.Submission
	if err := query.Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}
