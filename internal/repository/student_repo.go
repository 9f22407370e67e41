package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jamditis/class/internal/models"
)

// StudentRepository exposes persistence helpers for students.
type StudentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	GetByID(ctx context.Context, id uint) (models.Student, error)
	GetByExternalID(ctx context.Context, externalID string) (models.Student, error)
	FindByName(ctx context.Context, name string) (models.Student, error)
	List(ctx context.Context, search string) ([]models.Student, error)
	UpsertByExternalID(ctx context.Context, student *models.Student) (bool, error)
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

type studentRepository struct {
	db *gorm.DB
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) GetByExternalID(ctx context.Context, externalID string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&student).Error
	if err != nil {
		return models.Student{}, err
	}
	return student, nil
}

// FindByName prefers an exact case-insensitive match and falls back to a partial one.
func (r *studentRepository) FindByName(ctx context.Context, name string) (models.Student, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return models.Student{}, gorm.ErrRecordNotFound
	}

	var student models.Student
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", normalized).Order("id").First(&student).Error
	if err == nil {
		return student, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Student{}, err
	}

	err = r.db.WithContext(ctx).Where("LOWER(name) LIKE ?", "%"+normalized+"%").Order("id").First(&student).Error
	if err != nil {
		return models.Student{}, err
	}
	return student, nil
}

func (r *studentRepository) List(ctx context.Context, search string) ([]models.Student, error) {
	query := r.db.WithContext(ctx).Model(&models.Student{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var students []models.Student
	if err := query.Order("name ASC, id ASC").Find(&students).Error; err != nil {
		return nil, err
	}
	return students, nil
}

// UpsertByExternalID inserts or refreshes a student keyed by its LMS id and reports whether a row was created.
func (r *studentRepository) UpsertByExternalID(ctx context.Context, student *models.Student) (bool, error) {
	if student.ExternalID == nil || *student.ExternalID == "" {
		return false, errors.New("student external id is required for upsert")
	}

	existing, err := r.GetByExternalID(ctx, *student.ExternalID)
	switch {
	case err == nil:
		student.ID = existing.ID
		student.CreatedAt = existing.CreatedAt
		err = r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"name":  student.Name,
			"email": student.Email,
		}).Error
		return false, err
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, err
	}

	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
	}).Create(student).Error
	return err == nil, err
}
