package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/events"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
)

// DefaultSnapshotWindow is the history range used when no bounds are given.
const DefaultSnapshotWindow = 30 * 24 * time.Hour

// SnapshotService records and lists point-in-time class progress.
type SnapshotService interface {
	Create(ctx context.Context) (dto.SnapshotResponse, error)
	History(ctx context.Context, from, to *time.Time) ([]dto.SnapshotResponse, error)
}

type snapshotService struct {
	repo      repository.ProgressSnapshotRepository
	analytics AnalyticsService
	insights  InsightService
	publisher events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSnapshotService constructs the snapshot recorder. insights and publisher may be nil.
func NewSnapshotService(repo repository.ProgressSnapshotRepository, analytics AnalyticsService, insights InsightService, publisher events.Publisher, logger zerolog.Logger) SnapshotService {
	if publisher == nil {
		publisher = events.Nop()
	}
	return &snapshotService{
		repo:      repo,
		analytics: analytics,
		insights:  insights,
		publisher: publisher,
		logger:    logger.With().Str("component", "snapshot_service").Logger(),
		now:       time.Now,
	}
}

func (s *snapshotService) Create(ctx context.Context) (dto.SnapshotResponse, error) {
	overview, err := s.analytics.ClassOverview(ctx)
	if err != nil {
		return dto.SnapshotResponse{}, err
	}
	groups, err := s.analytics.StudentGroups(ctx)
	if err != nil {
		return dto.SnapshotResponse{}, err
	}

	clusters := make(map[string]int, len(groups))
	for name, members := range groups {
		clusters[name] = len(members)
	}

	var rates []float64
	for _, stats := range overview.Assignments {
		rates = append(rates, stats.SubmissionRate)
	}

	insights, recommendations := []string{}, []string{}
	if s.insights != nil {
		class, err := s.insights.ClassInsights(ctx)
		if err == nil && class.Available {
			insights = class.PatternsAndConcerns
			recommendations = class.SuggestedInterventions
		}
	}

	snapshot := models.ProgressSnapshot{
		SnapshotDate:      s.now().UTC(),
		ClassAverage:      overview.ClassAverage,
		SubmissionRate:    mean(rates),
		SkillDistribution: datatypes.NewJSONType(overview.SkillDistribution),
		StudentClusters:   datatypes.NewJSONType(clusters),
		Insights:          datatypes.JSONSlice[string](insights),
		Recommendations:   datatypes.JSONSlice[string](recommendations),
	}
	if err := s.repo.Create(ctx, &snapshot); err != nil {
		return dto.SnapshotResponse{}, err
	}

	if err := s.publisher.Publish(ctx, events.New(events.SnapshotCreated, map[string]interface{}{
		"snapshot_id":   snapshot.ID,
		"class_average": snapshot.ClassAverage,
	})); err != nil {
		s.logger.Warn().Err(err).Uint("snapshot_id", snapshot.ID).Msg("failed to publish snapshot event")
	}

	s.logger.Info().Uint("snapshot_id", snapshot.ID).Float64("class_average", snapshot.ClassAverage).Msg("progress snapshot created")
	return dto.NewSnapshotResponse(snapshot), nil
}

func (s *snapshotService) History(ctx context.Context, from, to *time.Time) ([]dto.SnapshotResponse, error) {
	end := s.now().UTC()
	if to != nil {
		end = *to
	}
	start := end.Add(-DefaultSnapshotWindow)
	if from != nil {
		start = *from
	}
	if start.After(end) {
		return nil, ErrInvalidRange
	}

	snapshots, err := s.repo.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SnapshotResponse, 0, len(snapshots))
	for _, snapshot := range snapshots {
		responses = append(responses, dto.NewSnapshotResponse(snapshot))
	}
	return responses, nil
}
