package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jamditis/class/internal/models"
)

// ProgressSnapshotRepository appends and queries progress snapshots.
type ProgressSnapshotRepository interface {
	Create(ctx context.Context, snapshot *models.ProgressSnapshot) error
	ListBetween(ctx context.Context, from, to time.Time) ([]models.ProgressSnapshot, error)
}

// NewProgressSnapshotRepository constructs a snapshot repository.
func NewProgressSnapshotRepository(db *gorm.DB) ProgressSnapshotRepository {
	return &progressSnapshotRepository{db: db}
}

type progressSnapshotRepository struct {
	db *gorm.DB
}

func (r *progressSnapshotRepository) Create(ctx context.Context, snapshot *models.ProgressSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// ListBetween returns snapshots taken in [from, to], oldest first.
func (r *progressSnapshotRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.ProgressSnapshot, error) {
	var snapshots []models.ProgressSnapshot
	err := r.db.WithContext(ctx).
		Where("snapshot_date >= ? AND snapshot_date <= ?", from, to).
		Order("snapshot_date ASC, id ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
