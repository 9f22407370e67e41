package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jamditis/class/internal/models"
)

// StudentNoteRepository exposes persistence helpers for instructor notes.
type StudentNoteRepository interface {
	Create(ctx context.Context, note *models.StudentNote) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.StudentNote, error)
}

// NewStudentNoteRepository constructs a note repository.
func NewStudentNoteRepository(db *gorm.DB) StudentNoteRepository {
	return &studentNoteRepository{db: db}
}

type studentNoteRepository struct {
	db *gorm.DB
}

func (r *studentNoteRepository) Create(ctx context.Context, note *models.StudentNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *studentNoteRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.StudentNote, error) {
	var notes []models.StudentNote
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("created_at DESC, id DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
