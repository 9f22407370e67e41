package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jamditis/class/internal/models"
)

// EvaluationRepository exposes persistence helpers for evaluations.
type EvaluationRepository interface {
	GetByID(ctx context.Context, id uint) (models.Evaluation, error)
	GetFinal(ctx context.Context, submissionID uint) (models.Evaluation, error)
	ListBySubmission(ctx context.Context, submissionID uint) ([]models.Evaluation, error)
	ListFinalByStudent(ctx context.Context, studentID uint) ([]models.Evaluation, error)
	CreateFinal(ctx context.Context, evaluation *models.Evaluation) error
}

// NewEvaluationRepository constructs an evaluation repository.
func NewEvaluationRepository(db *gorm.DB) EvaluationRepository {
	return &evaluationRepository{db: db}
}

type evaluationRepository struct {
	db *gorm.DB
}

func (r *evaluationRepository) GetByID(ctx context.Context, id uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).
		Preload("Submission").
		Preload("Submission.Assignment").
		First(&evaluation, id).Error
	if err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

func (r *evaluationRepository) GetFinal(ctx context.Context, submissionID uint) (models.Evaluation, error) {
	var evaluation models.Evaluation
	err := r.db.WithContext(ctx).
		Where("submission_id = ? AND is_final = ?", submissionID, true).
		First(&evaluation).Error
	if err != nil {
		return models.Evaluation{}, err
	}
	return evaluation, nil
}

// ListBySubmission returns the full evaluation history, newest first.
func (r *evaluationRepository) ListBySubmission(ctx context.Context, submissionID uint) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at DESC, id DESC").
		Find(&evaluations).Error
	if err != nil {
		return nil, err
	}
	return evaluations, nil
}

// ListFinalByStudent returns the final evaluations of every submission by the student, with submissions loaded.
func (r *evaluationRepository) ListFinalByStudent(ctx context.Context, studentID uint) ([]models.Evaluation, error) {
	var evaluations []models.Evaluation
	err := r.db.WithContext(ctx).
		Joins("JOIN submissions ON submissions.id = evaluations.submission_id").
		Where("submissions.student_id = ? AND evaluations.is_final = ?", studentID, true).
		Preload("Submission").
		Order("evaluations.id ASC").
		Find(&evaluations).Error
	if err != nil {
		return nil, err
	}
	return evaluations, nil
}

// CreateFinal stores evaluation as the single final evaluation of its submission.
// The previous final evaluation is demoted in the same transaction; a concurrent writer
// that loses the unique-index race is retried once.
func (r *evaluationRepository) CreateFinal(ctx context.Context, evaluation *models.Evaluation) error {
	err := r.swapFinal(ctx, evaluation)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = r.swapFinal(ctx, evaluation)
	}
	return err
}

func (r *evaluationRepository) swapFinal(ctx context.Context, evaluation *models.Evaluation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Evaluation{}).
			Where("submission_id = ? AND is_final = ?", evaluation.SubmissionID, true).
			Update("is_final", false).Error
		if err != nil {
			return err
		}

		evaluation.ID = 0
		evaluation.IsFinal = true
		return tx.Omit(clause.Associations).Create(evaluation).Error
	})
}
