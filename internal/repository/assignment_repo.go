package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jamditis/class/internal/models"
)

// AssignmentRepository exposes persistence helpers for assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	GetByID(ctx context.Context, id uint) (models.Assignment, error)
	GetByExternalID(ctx context.Context, externalID string) (models.Assignment, error)
	FindByName(ctx context.Context, name string) (models.Assignment, error)
	List(ctx context.Context) ([]models.Assignment, error)
	UpsertByExternalID(ctx context.Context, assignment *models.Assignment) (bool, error)
	UpdateRubric(ctx context.Context, id uint, rubric *models.Rubric) error
}

// NewAssignmentRepository constructs an assignment repository.
func NewAssignmentRepository(db *gorm.DB) AssignmentRepository {
	return &assignmentRepository{db: db}
}

type assignmentRepository struct {
	db *gorm.DB
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepository) GetByID(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, id).Error; err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) GetByExternalID(ctx context.Context, externalID string) (models.Assignment, error) {
	var assignment models.Assignment
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&assignment).Error
	if err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (r *assignmentRepository) FindByName(ctx context.Context, name string) (models.Assignment, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return models.Assignment{}, gorm.ErrRecordNotFound
	}

	var assignment models.Assignment
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", normalized).Order("id").First(&assignment).Error
	if err == nil {
		return assignment, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Assignment{}, err
	}

	err = r.db.WithContext(ctx).Where("LOWER(name) LIKE ?", "%"+normalized+"%").Order("id").First(&assignment).Error
	if err != nil {
		return models.Assignment{}, err
	}
	return assignment, nil
}

// List returns assignments in syllabus order: by due date, undated last.
func (r *assignmentRepository) List(ctx context.Context) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := r.db.WithContext(ctx).
		Order("CASE WHEN due_date IS NULL THEN 1 ELSE 0 END").
		Order("due_date ASC").
		Order("id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpsertByExternalID inserts or refreshes an assignment keyed by its LMS id. Custom rubrics are kept on update.
func (r *assignmentRepository) UpsertByExternalID(ctx context.Context, assignment *models.Assignment) (bool, error) {
	if assignment.ExternalID == nil || *assignment.ExternalID == "" {
		return false, errors.New("assignment external id is required for upsert")
	}

	existing, err := r.GetByExternalID(ctx, *assignment.ExternalID)
	switch {
	case err == nil:
		assignment.ID = existing.ID
		assignment.Rubric = existing.Rubric
		err = r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"name":            assignment.Name,
			"description":     assignment.Description,
			"points_possible": assignment.PointsPossible,
			"due_date":        assignment.DueDate,
			"assignment_type": assignment.AssignmentType,
		}).Error
		return false, err
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "points_possible", "due_date", "assignment_type", "updated_at"}),
	}).Create(assignment).Error
	return err == nil, err
}

func (r *assignmentRepository) UpdateRubric(ctx context.Context, id uint, rubric *models.Rubric) error {
	result := r.db.WithContext(ctx).Model(&models.Assignment{}).Where("id = ?", id).
		Update("rubric", datatypes.NewJSONType(rubric))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
