package dto

import (
	"time"

	"github.com/jamditis/class/internal/models"
)

// StudentSummaryResponse aggregates one student's record across all assignments.
type StudentSummaryResponse struct {
	Student           StudentResponse              `json:"student"`
	TotalAssignments  int                          `json:"total_assignments"`
	Submissions       int                          `json:"submissions"`
	OnTimeRate        float64                      `json:"on_time_rate"`
	Evaluated         int                          `json:"evaluated"`
	TotalEarned       float64                      `json:"total_earned"`
	TotalPossible     float64                      `json:"total_possible"`
	OverallPercentage float64                      `json:"overall_percentage"`
	PerformanceByType map[string]float64           `json:"performance_by_type"`
	CurrentSkills     map[string]models.SkillLevel `json:"current_skills"`
}

// TimelinePoint is one evaluated submission on a student's timeline.
type TimelinePoint struct {
	SubmissionID   uint      `json:"submission_id"`
	AssignmentID   uint      `json:"assignment_id"`
	AssignmentName string    `json:"assignment_name"`
	AssignmentType string    `json:"assignment_type"`
	Date           time.Time `json:"date"`
	Score          float64   `json:"score"`
	PointsPossible float64   `json:"points_possible"`
	Percentage     float64   `json:"percentage"`
}

// SkillTrendPoint is one rating of a skill over time.
type SkillTrendPoint struct {
	Date  time.Time         `json:"date"`
	Level models.SkillLevel `json:"level"`
	Rank  int               `json:"rank"`
}

// StudentProgressionResponse describes how a student's work changed over time.
type StudentProgressionResponse struct {
	StudentID   uint                         `json:"student_id"`
	Timeline    []TimelinePoint              `json:"timeline"`
	SkillTrends map[string][]SkillTrendPoint `json:"skill_trends"`
}

// CountedItem is a normalised phrase with its frequency.
type CountedItem struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// StrengthsWeaknessesResponse lists recurring feedback themes for a student.
type StrengthsWeaknessesResponse struct {
	StudentID           uint               `json:"student_id"`
	Strengths           []CountedItem      `json:"strengths"`
	AreasForImprovement []CountedItem      `json:"areas_for_improvement"`
	SkillAverages       map[string]float64 `json:"skill_averages"`
}

// AssignmentStats summarises class performance on one assignment.
type AssignmentStats struct {
	AssignmentID      uint     `json:"assignment_id"`
	Name              string   `json:"name"`
	AssignmentType    string   `json:"assignment_type"`
	PointsPossible    float64  `json:"points_possible"`
	Submitted         int      `json:"submitted"`
	TotalStudents     int      `json:"total_students"`
	SubmissionRate    float64  `json:"submission_rate"`
	Evaluated         int      `json:"evaluated"`
	AveragePercentage *float64 `json:"average_percentage"`
}

// ClassOverviewResponse summarises the whole class.
type ClassOverviewResponse struct {
	TotalStudents     int                   `json:"total_students"`
	TotalAssignments  int                   `json:"total_assignments"`
	ClassAverage      float64               `json:"class_average"`
	Assignments       []AssignmentStats     `json:"assignments"`
	GradeDistribution map[string]int        `json:"grade_distribution"`
	SkillDistribution models.SkillHistogram `json:"skill_distribution"`
	GeneratedAt       time.Time             `json:"generated_at"`
}

// StudentGroupMember is one student placed into a performance group.
type StudentGroupMember struct {
	ID             uint    `json:"id"`
	Name           string  `json:"name"`
	Average        float64 `json:"average"`
	Trend          float64 `json:"trend"`
	SubmissionRate float64 `json:"submission_rate"`
}

// StudentGroupsResponse maps every group name to its members.
type StudentGroupsResponse map[string][]StudentGroupMember

// StudentInsightResponse is the best-effort narrative about one student.
type StudentInsightResponse struct {
	StudentID          uint     `json:"student_id"`
	Available          bool     `json:"available"`
	Error              string   `json:"error,omitempty"`
	OverallAssessment  string   `json:"overall_assessment"`
	Recommendations    []string `json:"recommendations"`
	TeachingStrategies []string `json:"teaching_strategies"`
	Concerns           []string `json:"concerns"`
}

// ClassInsightResponse is the best-effort narrative about the class.
type ClassInsightResponse struct {
	Available              bool              `json:"available"`
	Error                  string            `json:"error,omitempty"`
	ClassHealth            string            `json:"class_health"`
	SkillsNeedingAttention []string          `json:"skills_needing_attention"`
	GroupRecommendations   map[string]string `json:"group_recommendations"`
	PatternsAndConcerns    []string          `json:"patterns_and_concerns"`
	SuggestedInterventions []string          `json:"suggested_interventions"`
}

// SnapshotResponse describes a stored progress snapshot.
type SnapshotResponse struct {
	ID                uint                  `json:"id"`
	SnapshotDate      time.Time             `json:"snapshot_date"`
	ClassAverage      float64               `json:"class_average"`
	SubmissionRate    float64               `json:"submission_rate"`
	SkillDistribution models.SkillHistogram `json:"skill_distribution"`
	StudentClusters   map[string]int        `json:"student_clusters"`
	Insights          []string              `json:"insights"`
	Recommendations   []string              `json:"recommendations"`
}

// NewSnapshotResponse converts a snapshot model into a DTO.
func NewSnapshotResponse(snapshot models.ProgressSnapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:                snapshot.ID,
		SnapshotDate:      snapshot.SnapshotDate,
		ClassAverage:      snapshot.ClassAverage,
		SubmissionRate:    snapshot.SubmissionRate,
		SkillDistribution: snapshot.SkillDistribution.Data(),
		StudentClusters:   snapshot.StudentClusters.Data(),
		Insights:          nonNil(snapshot.Insights),
		Recommendations:   nonNil(snapshot.Recommendations),
	}
}
