package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jamditis/class/internal/models"
)

// SkillAssessmentRepository exposes persistence helpers for cumulative skill assessments.
type SkillAssessmentRepository interface {
	Upsert(ctx context.Context, assessments []models.SkillAssessment) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.SkillAssessment, error)
}

// NewSkillAssessmentRepository constructs a skill assessment repository.
func NewSkillAssessmentRepository(db *gorm.DB) SkillAssessmentRepository {
	return &skillAssessmentRepository{db: db}
}

type skillAssessmentRepository struct {
	db *gorm.DB
}

// Upsert writes assessments keyed by (student, skill); existing rows keep their id.
func (r *skillAssessmentRepository) Upsert(ctx context.Context, assessments []models.SkillAssessment) error {
	if len(assessments) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "skill_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"skill_level", "confidence", "evidence_count", "assessed_at", "updated_at"}),
	}).Create(&assessments).Error
}

func (r *skillAssessmentRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.SkillAssessment, error) {
	var assessments []models.SkillAssessment
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("skill_name ASC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}
