package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
)

const (
	overviewCacheKey = "analytics:class_overview"
	groupsCacheKey   = "analytics:student_groups"
	topItemLimit     = 5
)

// AnalyticsService computes progression and aggregate views over stored evaluations.
type AnalyticsService interface {
	StudentSummary(ctx context.Context, studentID uint) (dto.StudentSummaryResponse, error)
	StudentProgression(ctx context.Context, studentID uint) (dto.StudentProgressionResponse, error)
	StrengthsWeaknesses(ctx context.Context, studentID uint) (dto.StrengthsWeaknessesResponse, error)
	ClassOverview(ctx context.Context) (dto.ClassOverviewResponse, error)
	StudentGroups(ctx context.Context) (dto.StudentGroupsResponse, error)
	Invalidate(ctx context.Context)
}

// AnalyticsConfig describes analyzer knobs.
type AnalyticsConfig struct {
	CacheTTL   time.Duration
	Thresholds GroupingThresholds
}

type analyticsService struct {
	students repository.StudentRepository
	source   gradebookSource
	cache    *redis.Client
	config   AnalyticsConfig
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAnalyticsService builds the analyzer. cache may be nil.
func NewAnalyticsService(students repository.StudentRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, cache *redis.Client, cfg AnalyticsConfig, logger zerolog.Logger) AnalyticsService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.Thresholds == (GroupingThresholds{}) {
		cfg.Thresholds = DefaultGroupingThresholds()
	}

	return &analyticsService{
		students: students,
		source: gradebookSource{
			students:    students,
			assignments: assignments,
			submissions: submissions,
		},
		cache:  cache,
		config: cfg,
		logger: logger.With().Str("component", "analytics_service").Logger(),
		now:    time.Now,
	}
}

func (s *analyticsService) StudentSummary(ctx context.Context, studentID uint) (dto.StudentSummaryResponse, error) {
	student, book, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return dto.StudentSummaryResponse{}, err
	}
	return summarize(student, book), nil
}

func (s *analyticsService) StudentProgression(ctx context.Context, studentID uint) (dto.StudentProgressionResponse, error) {
	_, book, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return dto.StudentProgressionResponse{}, err
	}
	return progressionOf(studentID, book.submissionsFor(studentID)), nil
}

func (s *analyticsService) StrengthsWeaknesses(ctx context.Context, studentID uint) (dto.StrengthsWeaknessesResponse, error) {
	_, book, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return dto.StrengthsWeaknessesResponse{}, err
	}
	return strengthsOf(studentID, book.submissionsFor(studentID)), nil
}

func (s *analyticsService) ClassOverview(ctx context.Context) (dto.ClassOverviewResponse, error) {
	var cached dto.ClassOverviewResponse
	if s.readCache(ctx, overviewCacheKey, &cached) {
		return cached, nil
	}

	book, err := s.source.load(ctx, nil)
	if err != nil {
		return dto.ClassOverviewResponse{}, err
	}

	overview := overviewOf(book)
	overview.GeneratedAt = s.now().UTC()
	s.writeCache(ctx, overviewCacheKey, overview)
	return overview, nil
}

func (s *analyticsService) StudentGroups(ctx context.Context) (dto.StudentGroupsResponse, error) {
	var cached dto.StudentGroupsResponse
	if s.readCache(ctx, groupsCacheKey, &cached) {
		return cached, nil
	}

	book, err := s.source.load(ctx, nil)
	if err != nil {
		return nil, err
	}

	groups := groupsOf(book, s.config.Thresholds)
	s.writeCache(ctx, groupsCacheKey, groups)
	return groups, nil
}

// Invalidate drops cached class-wide views.
func (s *analyticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, overviewCacheKey, groupsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate analytics cache")
	}
}

func (s *analyticsService) loadStudent(ctx context.Context, studentID uint) (models.Student, gradebook, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, gradebook{}, ErrStudentNotFound
		}
		return models.Student{}, gradebook{}, err
	}

	book, err := s.source.load(ctx, &studentID)
	if err != nil {
		return models.Student{}, gradebook{}, err
	}
	return student, book, nil
}

func (s *analyticsService) readCache(ctx context.Context, key string, out interface{}) bool {
	if s.cache == nil {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read analytics cache")
		}
		return false
	}
	if err := json.Unmarshal([]byte(cached), out); err != nil {
		return false
	}
	s.logger.Debug().Str("key", key).Msg("analytics cache hit")
	return true
}

func (s *analyticsService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.config.CacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store analytics cache")
	}
}

func summarize(student models.Student, book gradebook) dto.StudentSummaryResponse {
	submissions := book.submissionsFor(student.ID)
	summary := dto.StudentSummaryResponse{
		Student:           dto.NewStudentResponse(student),
		TotalAssignments:  len(book.assignments),
		TotalPossible:     book.totalPossible(),
		PerformanceByType: map[string]float64{},
		CurrentSkills:     currentSkills(finalEvaluations(submissions)),
	}

	onTime := 0
	byType := map[string][]float64{}
	for _, submission := range submissions {
		if submission.IsTurnedIn() {
			summary.Submissions++
			if submission.Status == models.SubmissionStatusSubmitted {
				onTime++
			}
		}

		final := submission.FinalEvaluation()
		if final == nil || final.Score == nil {
			continue
		}
		summary.Evaluated++
		summary.TotalEarned += *final.Score

		// ungraded assignments count as 0%, as they do for grouping
		assignment := submission.Assignment
		kind := assignment.AssignmentType
		if kind == "" {
			kind = models.AssignmentTypeGeneral
		}
		byType[kind] = append(byType[kind], models.Percentage(*final.Score, assignment.PointsPossible))
	}

	if summary.Submissions > 0 {
		summary.OnTimeRate = float64(onTime) / float64(summary.Submissions) * 100
	}
	summary.OverallPercentage = models.Percentage(summary.TotalEarned, summary.TotalPossible)
	for kind, percentages := range byType {
		summary.PerformanceByType[kind] = mean(percentages)
	}
	return summary
}

func progressionOf(studentID uint, submissions []models.Submission) dto.StudentProgressionResponse {
	progression := dto.StudentProgressionResponse{
		StudentID:   studentID,
		Timeline:    []dto.TimelinePoint{},
		SkillTrends: map[string][]dto.SkillTrendPoint{},
	}

	for _, submission := range timelineOf(submissions) {
		final := submission.FinalEvaluation()
		score := scoreOf(final)
		assignment := submission.Assignment
		progression.Timeline = append(progression.Timeline, dto.TimelinePoint{
			SubmissionID:   submission.ID,
			AssignmentID:   assignment.ID,
			AssignmentName: assignment.Name,
			AssignmentType: assignment.AssignmentType,
			Date:           *submission.SubmittedAt,
			Score:          score,
			PointsPossible: assignment.PointsPossible,
			Percentage:     models.Percentage(score, assignment.PointsPossible),
		})

		for _, skill := range sortedSkillNames(final.Ratings()) {
			level := final.Ratings()[skill]
			progression.SkillTrends[skill] = append(progression.SkillTrends[skill], dto.SkillTrendPoint{
				Date:  *submission.SubmittedAt,
				Level: level,
				Rank:  level.Rank(),
			})
		}
	}
	return progression
}

func strengthsOf(studentID uint, submissions []models.Submission) dto.StrengthsWeaknessesResponse {
	var strengths, improvements []string
	ranks := map[string][]float64{}
	for _, submission := range submissions {
		final := submission.FinalEvaluation()
		if final == nil {
			continue
		}
		strengths = append(strengths, final.Strengths...)
		improvements = append(improvements, final.AreasForImprovement...)
		for skill, level := range final.Ratings() {
			ranks[skill] = append(ranks[skill], float64(level.Rank()))
		}
	}

	averages := make(map[string]float64, len(ranks))
	for skill, values := range ranks {
		averages[skill] = mean(values)
	}

	return dto.StrengthsWeaknessesResponse{
		StudentID:           studentID,
		Strengths:           topCounted(strengths, topItemLimit),
		AreasForImprovement: topCounted(improvements, topItemLimit),
		SkillAverages:       averages,
	}
}

func overviewOf(book gradebook) dto.ClassOverviewResponse {
	overview := dto.ClassOverviewResponse{
		TotalStudents:     len(book.students),
		TotalAssignments:  len(book.assignments),
		Assignments:       make([]dto.AssignmentStats, 0, len(book.assignments)),
		GradeDistribution: gradeDistribution(nil),
		SkillDistribution: models.SkillHistogram{},
	}

	byAssignment := map[uint][]models.Submission{}
	for _, submission := range book.submissions {
		byAssignment[submission.AssignmentID] = append(byAssignment[submission.AssignmentID], submission)
	}

	var all []float64
	for _, assignment := range book.assignments {
		stats := dto.AssignmentStats{
			AssignmentID:   assignment.ID,
			Name:           assignment.Name,
			AssignmentType: assignment.AssignmentType,
			PointsPossible: assignment.PointsPossible,
			TotalStudents:  len(book.students),
		}

		var percentages []float64
		for _, submission := range byAssignment[assignment.ID] {
			if submission.IsTurnedIn() {
				stats.Submitted++
			}
			final := submission.FinalEvaluation()
			if final == nil {
				continue
			}
			for skill, level := range final.Ratings() {
				if overview.SkillDistribution[skill] == nil {
					overview.SkillDistribution[skill] = map[models.SkillLevel]int{}
				}
				overview.SkillDistribution[skill][level]++
			}
			if final.Score == nil {
				continue
			}
			stats.Evaluated++
			if assignment.PointsPossible > 0 {
				percentages = append(percentages, models.Percentage(*final.Score, assignment.PointsPossible))
			}
		}

		if stats.TotalStudents > 0 {
			stats.SubmissionRate = float64(stats.Submitted) / float64(stats.TotalStudents) * 100
		}
		if len(percentages) > 0 {
			average := mean(percentages)
			stats.AveragePercentage = &average
		}
		all = append(all, percentages...)
		overview.Assignments = append(overview.Assignments, stats)
	}

	overview.ClassAverage = mean(all)
	overview.GradeDistribution = gradeDistribution(all)
	return overview
}

func groupsOf(book gradebook, thresholds GroupingThresholds) dto.StudentGroupsResponse {
	groups := emptyGroups()
	for _, student := range book.students {
		summary := summarize(student, book)

		var percentages []float64
		for _, submission := range timelineOf(book.submissionsFor(student.ID)) {
			percentages = append(percentages, models.Percentage(scoreOf(submission.FinalEvaluation()), submission.Assignment.PointsPossible))
		}

		rate := 0.0
		if summary.TotalAssignments > 0 {
			rate = float64(summary.Submissions) / float64(summary.TotalAssignments)
		}
		perf := performance{
			Overall:        summary.OverallPercentage,
			Trend:          trendOf(percentages),
			Variance:       varianceOf(percentages),
			SubmissionRate: rate,
		}

		name := classify(perf, thresholds)
		groups[name] = append(groups[name], dto.StudentGroupMember{
			ID:             student.ID,
			Name:           student.Name,
			Average:        perf.Overall,
			Trend:          perf.Trend,
			SubmissionRate: rate * 100,
		})
	}
	return groups
}

// gradeDistribution buckets percentages into letter grades with inclusive lower bounds.
func gradeDistribution(percentages []float64) map[string]int {
	distribution := map[string]int{"A": 0, "B": 0, "C": 0, "D": 0, "F": 0}
	for _, p := range percentages {
		switch {
		case p >= 90:
			distribution["A"]++
		case p >= 80:
			distribution["B"]++
		case p >= 70:
			distribution["C"]++
		case p >= 60:
			distribution["D"]++
		default:
			distribution["F"]++
		}
	}
	return distribution
}

// topCounted normalises phrases and returns the most frequent, keeping first-seen order on ties.
func topCounted(items []string, limit int) []dto.CountedItem {
	counts := map[string]int{}
	var order []string
	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" {
			continue
		}
		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	result := make([]dto.CountedItem, 0, len(order))
	for _, key := range order {
		result = append(result, dto.CountedItem{Text: key, Count: counts[key]})
	}
	return result
}

func sortedSkillNames(ratings map[string]models.SkillLevel) []string {
	names := make([]string, 0, len(ratings))
	for name := range ratings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
