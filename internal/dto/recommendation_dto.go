package dto

import "github.com/jamditis/class/internal/models"

// SkillRecommendation lists practice activities for a skill at its current level.
type SkillRecommendation struct {
	Skill        string            `json:"skill"`
	CurrentLevel models.SkillLevel `json:"current_level"`
	Activities   []string          `json:"activities"`
}

// AIRecommendation is one model-suggested next step.
type AIRecommendation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ActionItems []string `json:"action_items"`
}

// StudentRecommendationResponse gathers everything suggested for one student.
type StudentRecommendationResponse struct {
	StudentID         uint                  `json:"student_id"`
	OverallPercentage float64               `json:"overall_percentage"`
	OnTimeRate        float64               `json:"on_time_rate"`
	SkillResources    []SkillRecommendation `json:"skill_resources"`
	PrioritySkills    []string              `json:"priority_skills"`
	AIRecommendations []AIRecommendation    `json:"ai_recommendations"`
	Encouragement     string                `json:"encouragement,omitempty"`
	AIAvailable       bool                  `json:"ai_available"`
	AIError           string                `json:"ai_error,omitempty"`
}

// InterventionStrategy is the static playbook for one student group.
type InterventionStrategy struct {
	Description       string   `json:"description"`
	ImmediateActions  []string `json:"immediate_actions"`
	SupportStrategies []string `json:"support_strategies"`
	Communication     []string `json:"communication"`
}

// GroupRecommendation pairs a non-empty group with its strategy and metrics.
type GroupRecommendation struct {
	Group        string               `json:"group"`
	Count        int                  `json:"count"`
	Students     []StudentGroupMember `json:"students"`
	AverageScore float64              `json:"average_score"`
	AverageTrend float64              `json:"average_trend"`
	Strategy     InterventionStrategy `json:"strategy"`
}

// ClassAIRecommendations is the model's class-level advice.
type ClassAIRecommendations struct {
	ClassHealthAssessment  string   `json:"class_health_assessment"`
	ImmediatePriorities    []string `json:"immediate_priorities"`
	TeachingAdjustments    []string `json:"teaching_adjustments"`
	UpcomingConsiderations []string `json:"upcoming_assignment_considerations"`
	PositiveObservations   []string `json:"positive_observations"`
}

// ClassRecommendationResponse gathers class-wide suggestions.
type ClassRecommendationResponse struct {
	ClassAverage           float64                 `json:"class_average"`
	GradeDistribution      map[string]int          `json:"grade_distribution"`
	SkillsNeedingAttention []string                `json:"skills_needing_attention"`
	Groups                 []GroupRecommendation   `json:"groups"`
	AIRecommendations      *ClassAIRecommendations `json:"ai_recommendations,omitempty"`
	AIAvailable            bool                    `json:"ai_available"`
	AIError                string                  `json:"ai_error,omitempty"`
}

// AssignmentAIRecommendations is the model's advice on improving an assignment.
type AssignmentAIRecommendations struct {
	AssignmentFeedback       string   `json:"assignment_feedback"`
	InstructionsImprovements []string `json:"instructions_improvements"`
	RubricAdjustments        []string `json:"rubric_adjustments"`
	PreparationActivities    []string `json:"preparation_activities"`
	CommonMisconceptions     []string `json:"common_misconceptions"`
}

// AssignmentRecommendationResponse summarises how the class did on one assignment.
type AssignmentRecommendationResponse struct {
	AssignmentID      uint                         `json:"assignment_id"`
	Name              string                       `json:"name"`
	Evaluated         int                          `json:"evaluated"`
	AverageScore      float64                      `json:"average_score"`
	ScoreDistribution map[string]int               `json:"score_distribution"`
	CommonIssues      []CountedItem                `json:"common_issues"`
	CommonStrengths   []CountedItem                `json:"common_strengths"`
	AIRecommendations *AssignmentAIRecommendations `json:"ai_recommendations,omitempty"`
	AIAvailable       bool                         `json:"ai_available"`
	AIError           string                       `json:"ai_error,omitempty"`
}
