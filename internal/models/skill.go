package models

import (
	"strings"
	"time"
)

// SkillLevel is an ordinal judgment of demonstrated ability.
type SkillLevel string

// Skill levels, lowest to highest.
const (
	SkillLevelEmerging   SkillLevel = "emerging"
	SkillLevelDeveloping SkillLevel = "developing"
	SkillLevelProficient SkillLevel = "proficient"
	SkillLevelAdvanced   SkillLevel = "advanced"
)

// SkillLevels lists every level from highest to lowest.
var SkillLevels = []SkillLevel{SkillLevelAdvanced, SkillLevelProficient, SkillLevelDeveloping, SkillLevelEmerging}

// Rank returns the ordinal value of the level; unknown levels rank 0.
func (l SkillLevel) Rank() int {
	switch l {
	case SkillLevelEmerging:
		return 1
	case SkillLevelDeveloping:
		return 2
	case SkillLevelProficient:
		return 3
	case SkillLevelAdvanced:
		return 4
	default:
		return 0
	}
}

// Valid reports whether l is one of the four known levels.
func (l SkillLevel) Valid() bool {
	return l.Rank() > 0
}

// BelowProficient reports whether l is emerging or developing.
func (l SkillLevel) BelowProficient() bool {
	return l == SkillLevelEmerging || l == SkillLevelDeveloping
}

// ParseSkillLevel normalises a label into a SkillLevel.
func ParseSkillLevel(value string) (SkillLevel, bool) {
	level := SkillLevel(strings.ToLower(strings.TrimSpace(value)))
	return level, level.Valid()
}

// SkillAssessment is the cumulative estimate of one student's level in one skill.
// Rows are recomputed from final evaluations and never edited directly.
type SkillAssessment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	StudentID     uint       `gorm:"not null;uniqueIndex:idx_skill_assessments_student_skill" json:"student_id"`
	SkillName     string     `gorm:"size:100;not null;uniqueIndex:idx_skill_assessments_student_skill" json:"skill_name"`
	SkillLevel    SkillLevel `gorm:"size:32;not null" json:"skill_level"`
	Confidence    float64    `gorm:"not null;default:0.5" json:"confidence"`
	EvidenceCount int        `gorm:"not null;default:0" json:"evidence_count"`
	AssessedAt    time.Time  `json:"assessed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
