package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/pkg/ai"
)

const insightSystemPrompt = "You analyse coursework performance data for an instructor. Be specific, reference actual data patterns and respond with JSON only."

const studentInsightSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["overall_assessment", "recommendations", "teaching_strategies"],
  "properties": {
    "overall_assessment": {"type": "string"},
    "recommendations": {"type": "array", "items": {"type": "string"}},
    "teaching_strategies": {"type": "array", "items": {"type": "string"}},
    "concerns": {"type": ["array", "null"], "items": {"type": "string"}}
  }
}`

const classInsightSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["class_health", "skills_needing_attention", "patterns_and_concerns", "suggested_interventions"],
  "properties": {
    "class_health": {"type": "string"},
    "skills_needing_attention": {"type": "array", "items": {"type": "string"}},
    "group_recommendations": {"type": "object", "additionalProperties": {"type": "string"}},
    "patterns_and_concerns": {"type": "array", "items": {"type": "string"}},
    "suggested_interventions": {"type": "array", "items": {"type": "string"}}
  }
}`

var (
	studentInsightSchema = jsonschema.MustCompileString("student_insight.json", studentInsightSchemaJSON)
	classInsightSchema   = jsonschema.MustCompileString("class_insight.json", classInsightSchemaJSON)
)

// InsightService produces narrative insights. Model failures degrade to an unavailable result.
type InsightService interface {
	StudentInsights(ctx context.Context, studentID uint) (dto.StudentInsightResponse, error)
	ClassInsights(ctx context.Context) (dto.ClassInsightResponse, error)
}

type insightService struct {
	analytics AnalyticsService
	completer ai.Completer
	logger    zerolog.Logger
}

// NewInsightService constructs the insight generator. completer may be nil.
func NewInsightService(analytics AnalyticsService, completer ai.Completer, logger zerolog.Logger) InsightService {
	return &insightService{
		analytics: analytics,
		completer: completer,
		logger:    logger.With().Str("component", "insight_service").Logger(),
	}
}

func (s *insightService) StudentInsights(ctx context.Context, studentID uint) (dto.StudentInsightResponse, error) {
	summary, err := s.analytics.StudentSummary(ctx, studentID)
	if err != nil {
		return dto.StudentInsightResponse{}, err
	}
	progression, err := s.analytics.StudentProgression(ctx, studentID)
	if err != nil {
		return dto.StudentInsightResponse{}, err
	}
	strengths, err := s.analytics.StrengthsWeaknesses(ctx, studentID)
	if err != nil {
		return dto.StudentInsightResponse{}, err
	}

	response := dto.StudentInsightResponse{
		StudentID:          studentID,
		Recommendations:    []string{},
		TeachingStrategies: []string{},
		Concerns:           []string{},
	}

	var parsed struct {
		OverallAssessment  string   `json:"overall_assessment"`
		Recommendations    []string `json:"recommendations"`
		TeachingStrategies []string `json:"teaching_strategies"`
		Concerns           []string `json:"concerns"`
	}
	if err := s.complete(ctx, studentInsightPrompt(summary, progression, strengths), 1000, studentInsightSchema, &parsed); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("student insights unavailable")
		response.Error = err.Error()
		return response, nil
	}

	response.Available = true
	response.OverallAssessment = parsed.OverallAssessment
	response.Recommendations = orEmpty(parsed.Recommendations)
	response.TeachingStrategies = orEmpty(parsed.TeachingStrategies)
	response.Concerns = orEmpty(parsed.Concerns)
	return response, nil
}

func (s *insightService) ClassInsights(ctx context.Context) (dto.ClassInsightResponse, error) {
	overview, err := s.analytics.ClassOverview(ctx)
	if err != nil {
		return dto.ClassInsightResponse{}, err
	}
	groups, err := s.analytics.StudentGroups(ctx)
	if err != nil {
		return dto.ClassInsightResponse{}, err
	}

	response := dto.ClassInsightResponse{
		SkillsNeedingAttention: []string{},
		GroupRecommendations:   map[string]string{},
		PatternsAndConcerns:    []string{},
		SuggestedInterventions: []string{},
	}

	var parsed struct {
		ClassHealth            string            `json:"class_health"`
		SkillsNeedingAttention []string          `json:"skills_needing_attention"`
		GroupRecommendations   map[string]string `json:"group_recommendations"`
		PatternsAndConcerns    []string          `json:"patterns_and_concerns"`
		SuggestedInterventions []string          `json:"suggested_interventions"`
	}
	if err := s.complete(ctx, classInsightPrompt(overview, groups), 1500, classInsightSchema, &parsed); err != nil {
		s.logger.Warn().Err(err).Msg("class insights unavailable")
		response.Error = err.Error()
		return response, nil
	}

	response.Available = true
	response.ClassHealth = parsed.ClassHealth
	response.SkillsNeedingAttention = orEmpty(parsed.SkillsNeedingAttention)
	response.PatternsAndConcerns = orEmpty(parsed.PatternsAndConcerns)
	response.SuggestedInterventions = orEmpty(parsed.SuggestedInterventions)
	if parsed.GroupRecommendations != nil {
		response.GroupRecommendations = parsed.GroupRecommendations
	}
	return response, nil
}

func (s *insightService) complete(ctx context.Context, user string, maxTokens int, schema *jsonschema.Schema, out interface{}) error {
	return completeStructured(ctx, s.completer, ai.Prompt{
		System:    insightSystemPrompt,
		User:      user,
		MaxTokens: maxTokens,
		JSON:      true,
	}, schema, out)
}

// completeStructured runs one completion and decodes the schema-validated result into out.
func completeStructured(ctx context.Context, completer ai.Completer, prompt ai.Prompt, schema *jsonschema.Schema, out interface{}) error {
	if completer == nil {
		return ErrEvaluatorUnavailable
	}

	completion, err := completer.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEvaluatorUnavailable, err)
	}

	var doc interface{}
	if err := decodeStructured(completion.Content, schema, &doc); err != nil {
		return err
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	if err := json.Unmarshal(encoded, out); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	return nil
}

func studentInsightPrompt(summary dto.StudentSummaryResponse, progression dto.StudentProgressionResponse, strengths dto.StrengthsWeaknessesResponse) string {
	var b strings.Builder
	b.WriteString("Analyze this student's performance data and provide actionable insights.\n\n")
	fmt.Fprintf(&b, "STUDENT: %s\n\n", summary.Student.Name)
	b.WriteString("PERFORMANCE METRICS:\n")
	fmt.Fprintf(&b, "- Overall grade: %.1f%%\n", summary.OverallPercentage)
	fmt.Fprintf(&b, "- Submissions: %d/%d\n", summary.Submissions, summary.TotalAssignments)
	fmt.Fprintf(&b, "- On-time rate: %.1f%%\n\n", summary.OnTimeRate)
	writeJSONSection(&b, "PERFORMANCE BY ASSIGNMENT TYPE", summary.PerformanceByType)
	writeJSONSection(&b, "CURRENT SKILL LEVELS", summary.CurrentSkills)
	writeJSONSection(&b, "RECURRING STRENGTHS", strengths.Strengths)
	writeJSONSection(&b, "RECURRING AREAS FOR IMPROVEMENT", strengths.AreasForImprovement)
	writeJSONSection(&b, "SKILL PROGRESSION", progression.SkillTrends)
	b.WriteString(`Based on this data, provide:
1. A brief overall assessment (2-3 sentences)
2. Two specific, actionable recommendations for this student
3. Teaching strategies that might help this student
4. Any concerns that warrant instructor attention

Respond in JSON format:
{"overall_assessment": "...", "recommendations": ["...", "..."], "teaching_strategies": ["...", "..."], "concerns": ["..."]}
Use an empty concerns array when there are none.`)
	return b.String()
}

func classInsightPrompt(overview dto.ClassOverviewResponse, groups dto.StudentGroupsResponse) string {
	averages := map[string]float64{}
	for _, stats := range overview.Assignments {
		if stats.AveragePercentage != nil {
			averages[stats.Name] = *stats.AveragePercentage
		}
	}

	var b strings.Builder
	b.WriteString("Analyze this class performance data and provide insights for the instructor.\n\n")
	b.WriteString("CLASS SUMMARY:\n")
	fmt.Fprintf(&b, "- Students: %d\n", overview.TotalStudents)
	fmt.Fprintf(&b, "- Class average: %.1f%%\n\n", overview.ClassAverage)
	writeJSONSection(&b, "GRADE DISTRIBUTION", overview.GradeDistribution)
	writeJSONSection(&b, "ASSIGNMENT AVERAGES", averages)
	writeJSONSection(&b, "SKILL DISTRIBUTION", overview.SkillDistribution)
	b.WriteString("STUDENT GROUPINGS:\n")
	for _, name := range GroupNames {
		fmt.Fprintf(&b, "- %s: %d\n", strings.ReplaceAll(name, "_", " "), len(groups[name]))
	}
	b.WriteString(`
Based on this data, provide:
1. Overall class health assessment (2-3 sentences)
2. Which skills need more class-wide instruction
3. Specific recommendations for different student groups
4. Any patterns or concerns the instructor should address

Respond in JSON format:
{"class_health": "...", "skills_needing_attention": ["..."], "group_recommendations": {"struggling": "...", "at_risk": "...", "high_performers": "..."}, "patterns_and_concerns": ["..."], "suggested_interventions": ["..."]}`)
	return b.String()
}

func writeJSONSection(b *strings.Builder, title string, value interface{}) {
	encoded, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		encoded = []byte("{}")
	}
	fmt.Fprintf(b, "%s:\n%s\n\n", title, encoded)
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
