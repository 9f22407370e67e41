package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
	"github.com/jamditis/class/pkg/ai"
)

const recommendationSystemPrompt = "You are an experienced instructor who gives practical, encouraging and specific advice. Respond with JSON only."

const studentRecommendationSchemaJSON = `{
  "type": "object",
  "required": ["top_recommendations"],
  "properties": {
    "top_recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description"],
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "action_items": {"type": "array", "items": {"type": "string"}}
        }
      }
    },
    "encouragement": {"type": "string"}
  }
}`

const classRecommendationSchemaJSON = `{
  "type": "object",
  "required": ["class_health_assessment", "immediate_priorities"],
  "properties": {
    "class_health_assessment": {"type": "string"},
    "immediate_priorities": {"type": "array", "items": {"type": "string"}},
    "teaching_adjustments": {"type": "array", "items": {"type": "string"}},
    "upcoming_assignment_considerations": {"type": "array", "items": {"type": "string"}},
    "positive_observations": {"type": "array", "items": {"type": "string"}}
  }
}`

const assignmentRecommendationSchemaJSON = `{
  "type": "object",
  "required": ["assignment_feedback"],
  "properties": {
    "assignment_feedback": {"type": "string"},
    "instructions_improvements": {"type": "array", "items": {"type": "string"}},
    "rubric_adjustments": {"type": "array", "items": {"type": "string"}},
    "preparation_activities": {"type": "array", "items": {"type": "string"}},
    "common_misconceptions": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	studentRecommendationSchema    = jsonschema.MustCompileString("student_recommendation.json", studentRecommendationSchemaJSON)
	classRecommendationSchema      = jsonschema.MustCompileString("class_recommendation.json", classRecommendationSchemaJSON)
	assignmentRecommendationSchema = jsonschema.MustCompileString("assignment_recommendation.json", assignmentRecommendationSchemaJSON)
)

// skillAttentionRatio is the share of below-proficient ratings that flags a skill class-wide.
const skillAttentionRatio = 0.5

// RecommendationService combines static playbooks with best-effort model advice.
type RecommendationService interface {
	StudentRecommendations(ctx context.Context, studentID uint) (dto.StudentRecommendationResponse, error)
	ClassRecommendations(ctx context.Context) (dto.ClassRecommendationResponse, error)
	AssignmentRecommendations(ctx context.Context, assignmentID uint) (dto.AssignmentRecommendationResponse, error)
}

type recommendationService struct {
	analytics   AnalyticsService
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	completer   ai.Completer
	logger      zerolog.Logger
}

// NewRecommendationService constructs the recommender. completer may be nil.
func NewRecommendationService(analytics AnalyticsService, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, completer ai.Completer, logger zerolog.Logger) RecommendationService {
	return &recommendationService{
		analytics:   analytics,
		assignments: assignments,
		submissions: submissions,
		completer:   completer,
		logger:      logger.With().Str("component", "recommendation_service").Logger(),
	}
}

func (s *recommendationService) StudentRecommendations(ctx context.Context, studentID uint) (dto.StudentRecommendationResponse, error) {
	summary, err := s.analytics.StudentSummary(ctx, studentID)
	if err != nil {
		return dto.StudentRecommendationResponse{}, err
	}
	strengths, err := s.analytics.StrengthsWeaknesses(ctx, studentID)
	if err != nil {
		return dto.StudentRecommendationResponse{}, err
	}

	response := dto.StudentRecommendationResponse{
		StudentID:         studentID,
		OverallPercentage: summary.OverallPercentage,
		OnTimeRate:        summary.OnTimeRate,
		SkillResources:    []dto.SkillRecommendation{},
		PrioritySkills:    []string{},
		AIRecommendations: []dto.AIRecommendation{},
	}
	for _, skill := range sortedSkillNames(summary.CurrentSkills) {
		level := summary.CurrentSkills[skill]
		response.SkillResources = append(response.SkillResources, dto.SkillRecommendation{
			Skill:        skill,
			CurrentLevel: level,
			Activities:   SkillActivities(skill, level),
		})
		if level.BelowProficient() {
			response.PrioritySkills = append(response.PrioritySkills, skill)
		}
	}

	var parsed struct {
		TopRecommendations []dto.AIRecommendation `json:"top_recommendations"`
		Encouragement      string                 `json:"encouragement"`
	}
	prompt := studentRecommendationPrompt(summary, strengths, response.PrioritySkills)
	if err := s.complete(ctx, prompt, 1000, studentRecommendationSchema, &parsed); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("student recommendations unavailable")
		response.AIError = err.Error()
		return response, nil
	}

	response.AIAvailable = true
	response.Encouragement = parsed.Encouragement
	for _, rec := range parsed.TopRecommendations {
		rec.ActionItems = orEmpty(rec.ActionItems)
		response.AIRecommendations = append(response.AIRecommendations, rec)
	}
	return response, nil
}

func (s *recommendationService) ClassRecommendations(ctx context.Context) (dto.ClassRecommendationResponse, error) {
	overview, err := s.analytics.ClassOverview(ctx)
	if err != nil {
		return dto.ClassRecommendationResponse{}, err
	}
	groups, err := s.analytics.StudentGroups(ctx)
	if err != nil {
		return dto.ClassRecommendationResponse{}, err
	}

	response := dto.ClassRecommendationResponse{
		ClassAverage:           overview.ClassAverage,
		GradeDistribution:      overview.GradeDistribution,
		SkillsNeedingAttention: skillsNeedingAttention(overview.SkillDistribution),
		Groups:                 groupRecommendations(groups),
	}

	var parsed dto.ClassAIRecommendations
	prompt := classRecommendationPrompt(overview, groups, response.SkillsNeedingAttention)
	if err := s.complete(ctx, prompt, 800, classRecommendationSchema, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("class recommendations unavailable")
		response.AIError = err.Error()
		return response, nil
	}

	parsed.ImmediatePriorities = orEmpty(parsed.ImmediatePriorities)
	parsed.TeachingAdjustments = orEmpty(parsed.TeachingAdjustments)
	parsed.UpcomingConsiderations = orEmpty(parsed.UpcomingConsiderations)
	parsed.PositiveObservations = orEmpty(parsed.PositiveObservations)
	response.AIAvailable = true
	response.AIRecommendations = &parsed
	return response, nil
}

func (s *recommendationService) AssignmentRecommendations(ctx context.Context, assignmentID uint) (dto.AssignmentRecommendationResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentRecommendationResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentRecommendationResponse{}, err
	}

	submissions, err := s.submissions.ListWithFinalEvaluations(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return dto.AssignmentRecommendationResponse{}, err
	}

	var (
		percentages []float64
		issues      []string
		strengths   []string
	)
	for _, evaluation := range finalEvaluations(submissions) {
		if evaluation.Score != nil {
			percentages = append(percentages, models.Percentage(*evaluation.Score, assignment.PointsPossible))
		}
		issues = append(issues, evaluation.AreasForImprovement...)
		strengths = append(strengths, evaluation.Strengths...)
	}

	response := dto.AssignmentRecommendationResponse{
		AssignmentID:      assignment.ID,
		Name:              assignment.Name,
		Evaluated:         len(percentages),
		AverageScore:      mean(percentages),
		ScoreDistribution: gradeDistribution(percentages),
		CommonIssues:      topCounted(issues, topItemLimit),
		CommonStrengths:   topCounted(strengths, topItemLimit),
	}
	if response.Evaluated == 0 {
		return response, nil
	}

	var parsed dto.AssignmentAIRecommendations
	if err := s.complete(ctx, assignmentRecommendationPrompt(assignment, response), 600, assignmentRecommendationSchema, &parsed); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignmentID).Msg("assignment recommendations unavailable")
		response.AIError = err.Error()
		return response, nil
	}

	parsed.InstructionsImprovements = orEmpty(parsed.InstructionsImprovements)
	parsed.RubricAdjustments = orEmpty(parsed.RubricAdjustments)
	parsed.PreparationActivities = orEmpty(parsed.PreparationActivities)
	parsed.CommonMisconceptions = orEmpty(parsed.CommonMisconceptions)
	response.AIAvailable = true
	response.AIRecommendations = &parsed
	return response, nil
}

func (s *recommendationService) complete(ctx context.Context, user string, maxTokens int, schema *jsonschema.Schema, out interface{}) error {
	return completeStructured(ctx, s.completer, ai.Prompt{
		System:    recommendationSystemPrompt,
		User:      user,
		MaxTokens: maxTokens,
		JSON:      true,
	}, schema, out)
}

// skillsNeedingAttention lists skills where most ratings sit below proficient.
func skillsNeedingAttention(histogram models.SkillHistogram) []string {
	skills := make([]string, 0, len(histogram))
	for skill := range histogram {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	result := []string{}
	for _, skill := range skills {
		levels := histogram[skill]
		total := 0
		for _, count := range levels {
			total += count
		}
		if total == 0 {
			continue
		}
		low := levels[models.SkillLevelEmerging] + levels[models.SkillLevelDeveloping]
		if float64(low)/float64(total) > skillAttentionRatio {
			result = append(result, skill)
		}
	}
	return result
}

// groupRecommendations pairs every non-empty group with its playbook, in display order.
func groupRecommendations(groups dto.StudentGroupsResponse) []dto.GroupRecommendation {
	result := []dto.GroupRecommendation{}
	for _, name := range GroupNames {
		members := groups[name]
		if len(members) == 0 {
			continue
		}
		averages := make([]float64, 0, len(members))
		trends := make([]float64, 0, len(members))
		for _, member := range members {
			averages = append(averages, member.Average)
			trends = append(trends, member.Trend)
		}
		result = append(result, dto.GroupRecommendation{
			Group:        name,
			Count:        len(members),
			Students:     members,
			AverageScore: mean(averages),
			AverageTrend: mean(trends),
			Strategy:     InterventionFor(name),
		})
	}
	return result
}

func studentRecommendationPrompt(summary dto.StudentSummaryResponse, strengths dto.StrengthsWeaknessesResponse, priority []string) string {
	var b strings.Builder
	b.WriteString("Generate personalized learning recommendations for this student.\n\n")
	fmt.Fprintf(&b, "STUDENT: %s\n", summary.Student.Name)
	fmt.Fprintf(&b, "OVERALL GRADE: %.1f%%\n", summary.OverallPercentage)
	fmt.Fprintf(&b, "ON-TIME RATE: %.1f%%\n\n", summary.OnTimeRate)
	writeJSONSection(&b, "SKILL LEVELS", summary.CurrentSkills)
	writeJSONSection(&b, "PRIORITY SKILLS", priority)
	writeJSONSection(&b, "RECURRING STRENGTHS", strengths.Strengths)
	writeJSONSection(&b, "RECURRING AREAS FOR IMPROVEMENT", strengths.AreasForImprovement)
	b.WriteString(`Provide 3 specific, actionable recommendations that build on the student's strengths and address the priority skills.

Respond in JSON format:
{"top_recommendations": [{"title": "...", "description": "...", "action_items": ["...", "..."]}], "encouragement": "..."}`)
	return b.String()
}

func classRecommendationPrompt(overview dto.ClassOverviewResponse, groups dto.StudentGroupsResponse, attention []string) string {
	var b strings.Builder
	b.WriteString("Provide teaching recommendations for this class.\n\n")
	fmt.Fprintf(&b, "CLASS AVERAGE: %.1f%%\n", overview.ClassAverage)
	fmt.Fprintf(&b, "STUDENTS: %d\n\n", overview.TotalStudents)
	writeJSONSection(&b, "GRADE DISTRIBUTION", overview.GradeDistribution)
	writeJSONSection(&b, "SKILLS NEEDING ATTENTION", attention)
	b.WriteString("GROUP SIZES:\n")
	for _, name := range GroupNames {
		fmt.Fprintf(&b, "- %s: %d\n", strings.ReplaceAll(name, "_", " "), len(groups[name]))
	}
	b.WriteString(`
Respond in JSON format:
{"class_health_assessment": "...", "immediate_priorities": ["..."], "teaching_adjustments": ["..."], "upcoming_assignment_considerations": ["..."], "positive_observations": ["..."]}`)
	return b.String()
}

func assignmentRecommendationPrompt(assignment models.Assignment, stats dto.AssignmentRecommendationResponse) string {
	var b strings.Builder
	b.WriteString("Review how the class performed on this assignment and suggest improvements.\n\n")
	fmt.Fprintf(&b, "ASSIGNMENT: %s\n", assignment.Name)
	fmt.Fprintf(&b, "TYPE: %s\n", assignment.AssignmentType)
	fmt.Fprintf(&b, "EVALUATED SUBMISSIONS: %d\n", stats.Evaluated)
	fmt.Fprintf(&b, "AVERAGE SCORE: %.1f%%\n\n", stats.AverageScore)
	if description := strings.TrimSpace(assignment.Description); description != "" {
		fmt.Fprintf(&b, "DESCRIPTION:\n%s\n\n", truncateRunes(description, 1500))
	}
	writeJSONSection(&b, "SCORE DISTRIBUTION", stats.ScoreDistribution)
	writeJSONSection(&b, "COMMON ISSUES", stats.CommonIssues)
	writeJSONSection(&b, "COMMON STRENGTHS", stats.CommonStrengths)
	b.WriteString(`Respond in JSON format:
{"assignment_feedback": "...", "instructions_improvements": ["..."], "rubric_adjustments": ["..."], "preparation_activities": ["..."], "common_misconceptions": ["..."]}`)
	return b.String()
}
