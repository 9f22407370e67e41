package models

import (
	"time"

	"gorm.io/datatypes"
)

// SkillHistogram counts skill ratings per skill and level.
type SkillHistogram map[string]map[SkillLevel]int

// ProgressSnapshot is an immutable point-in-time capture of class progress.
type ProgressSnapshot struct {
	ID                uint                               `gorm:"primaryKey" json:"id"`
	SnapshotDate      time.Time                          `gorm:"not null;index" json:"snapshot_date"`
	ClassAverage      float64                            `json:"class_average"`
	SubmissionRate    float64                            `json:"submission_rate"`
	SkillDistribution datatypes.JSONType[SkillHistogram] `json:"skill_distribution"`
	StudentClusters   datatypes.JSONType[map[string]int] `json:"student_clusters"`
	Insights          datatypes.JSONSlice[string]        `json:"insights"`
	Recommendations   datatypes.JSONSlice[string]        `json:"recommendations"`
	CreatedAt         time.Time                          `json:"created_at"`
}
