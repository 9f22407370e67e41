package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
)

// confidenceEvidence is the number of ratings at which a skill estimate reaches full confidence.
const confidenceEvidence = 5

// SkillService folds final evaluations into per-student skill assessments.
type SkillService interface {
	UpdateStudentSkills(ctx context.Context, studentID uint) ([]dto.SkillAssessmentResponse, error)
	UpdateAll(ctx context.Context) (int, error)
	ListStudentSkills(ctx context.Context, studentID uint) ([]dto.SkillAssessmentResponse, error)
}

type skillService struct {
	students    repository.StudentRepository
	evaluations repository.EvaluationRepository
	skills      repository.SkillAssessmentRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSkillService constructs the skill assessment updater.
func NewSkillService(students repository.StudentRepository, evaluations repository.EvaluationRepository, skills repository.SkillAssessmentRepository, logger zerolog.Logger) SkillService {
	return &skillService{
		students:    students,
		evaluations: evaluations,
		skills:      skills,
		logger:      logger.With().Str("component", "skill_service").Logger(),
		now:         time.Now,
	}
}

func (s *skillService) UpdateStudentSkills(ctx context.Context, studentID uint) ([]dto.SkillAssessmentResponse, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}

	evaluations, err := s.evaluations.ListFinalByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("load final evaluations: %w", err)
	}

	assessedAt := s.now().UTC()
	observations := collectObservations(evaluations)
	skills := make([]string, 0, len(observations))
	for skill := range observations {
		skills = append(skills, skill)
	}
	sort.Strings(skills)

	assessments := make([]models.SkillAssessment, 0, len(skills))
	for _, skill := range skills {
		level, ok := recencyVote(observations[skill])
		if !ok {
			continue
		}
		evidence := len(observations[skill])
		assessments = append(assessments, models.SkillAssessment{
			StudentID:     studentID,
			SkillName:     skill,
			SkillLevel:    level,
			Confidence:    math.Min(1, float64(evidence)/confidenceEvidence),
			EvidenceCount: evidence,
			AssessedAt:    assessedAt,
		})
	}

	if err := s.skills.Upsert(ctx, assessments); err != nil {
		return nil, fmt.Errorf("store skill assessments: %w", err)
	}

	s.logger.Debug().Uint("student_id", studentID).Int("skills", len(assessments)).Msg("skill assessments updated")
	return s.ListStudentSkills(ctx, studentID)
}

func (s *skillService) UpdateAll(ctx context.Context) (int, error) {
	students, err := s.students.List(ctx, "")
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, student := range students {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if _, err := s.UpdateStudentSkills(ctx, student.ID); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

func (s *skillService) ListStudentSkills(ctx context.Context, studentID uint) ([]dto.SkillAssessmentResponse, error) {
	if err := s.ensureStudent(ctx, studentID); err != nil {
		return nil, err
	}

	assessments, err := s.skills.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SkillAssessmentResponse, 0, len(assessments))
	for _, assessment := range assessments {
		responses = append(responses, dto.NewSkillAssessmentResponse(assessment))
	}
	return responses, nil
}

func (s *skillService) ensureStudent(ctx context.Context, studentID uint) error {
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		return err
	}
	return nil
}
