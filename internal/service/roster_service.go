package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/events"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
	"github.com/jamditis/class/internal/rubric"
	"github.com/jamditis/class/pkg/lms"
)

// Feed lists course data from an external LMS.
type Feed interface {
	Students(ctx context.Context) ([]lms.Student, error)
	Assignments(ctx context.Context) ([]lms.Assignment, error)
	Submissions(ctx context.Context) ([]lms.Submission, error)
}

// RosterService maintains students, assignments, submissions and instructor notes.
type RosterService interface {
	SyncFromFeed(ctx context.Context, feed Feed) (dto.SyncReport, error)
	AddStudent(ctx context.Context, payload dto.StudentCreateRequest) (dto.StudentResponse, error)
	GetStudent(ctx context.Context, id uint) (dto.StudentResponse, error)
	ListStudents(ctx context.Context, search string) ([]dto.StudentResponse, error)
	AddAssignment(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	ListAssignments(ctx context.Context) ([]dto.AssignmentResponse, error)
	GetAssignmentRubric(ctx context.Context, id uint) (dto.RubricResponse, error)
	SetAssignmentRubric(ctx context.Context, id uint, payload dto.RubricUpdateRequest) (dto.RubricResponse, error)
	AddSubmission(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	AddNote(ctx context.Context, studentID uint, payload dto.NoteCreateRequest) (dto.NoteResponse, error)
	ListNotes(ctx context.Context, studentID uint) ([]dto.NoteResponse, error)
}

type rosterService struct {
	students    repository.StudentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	notes       repository.StudentNoteRepository
	cache       CacheInvalidator
	publisher   events.Publisher
	sanitizer   *bluemonday.Policy
	validator   *validator.Validate
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRosterService constructs the roster service. cache and publisher may be nil.
func NewRosterService(students repository.StudentRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, notes repository.StudentNoteRepository, cache CacheInvalidator, publisher events.Publisher, validate *validator.Validate, logger zerolog.Logger) RosterService {
	if publisher == nil {
		publisher = events.Nop()
	}

	return &rosterService{
		students:    students,
		assignments: assignments,
		submissions: submissions,
		notes:       notes,
		cache:       cache,
		publisher:   publisher,
		sanitizer:   bluemonday.StrictPolicy(),
		validator:   validate,
		logger:      logger.With().Str("component", "roster_service").Logger(),
		now:         time.Now,
	}
}

// SyncFromFeed pulls students, then assignments, then submissions. Records are keyed by their
// LMS ids so repeated syncs update rows in place.
func (s *rosterService) SyncFromFeed(ctx context.Context, feed Feed) (dto.SyncReport, error) {
	if feed == nil {
		return dto.SyncReport{}, ErrSyncUnavailable
	}

	report := dto.SyncReport{
		Students:    dto.ImportReport{Errors: []string{}},
		Assignments: dto.ImportReport{Errors: []string{}},
		Submissions: dto.ImportReport{Errors: []string{}},
	}

	remoteStudents, err := feed.Students(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch students: %w", err)
	}
	studentIDs := make(map[string]uint, len(remoteStudents))
	for _, remote := range remoteStudents {
		student := models.Student{
			ExternalID: models.StringPtr(remote.Ref()),
			Name:       remote.DisplayName(),
			Email:      strings.TrimSpace(remote.Email),
		}
		created, err := s.students.UpsertByExternalID(ctx, &student)
		if err != nil {
			report.Students.AddError(fmt.Sprintf("student %s: %v", remote.Ref(), err))
			continue
		}
		report.Students.Record(created)
		studentIDs[remote.Ref()] = student.ID
	}

	remoteAssignments, err := feed.Assignments(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch assignments: %w", err)
	}
	assignmentIDs := make(map[string]uint, len(remoteAssignments))
	for _, remote := range remoteAssignments {
		assignment := models.Assignment{
			ExternalID:     models.StringPtr(remote.Ref()),
			Name:           strings.TrimSpace(remote.Name),
			Description:    remote.Description,
			PointsPossible: remote.Points(),
			DueDate:        remote.DueAt,
			AssignmentType: DetectAssignmentType(remote.Name),
		}
		created, err := s.assignments.UpsertByExternalID(ctx, &assignment)
		if err != nil {
			report.Assignments.AddError(fmt.Sprintf("assignment %s: %v", remote.Ref(), err))
			continue
		}
		report.Assignments.Record(created)
		assignmentIDs[remote.Ref()] = assignment.ID
	}

	remoteSubmissions, err := feed.Submissions(ctx)
	if err != nil {
		return report, fmt.Errorf("fetch submissions: %w", err)
	}
	for _, remote := range remoteSubmissions {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		studentID, ok := studentIDs[remote.UserRef()]
		if !ok {
			report.Submissions.AddError(fmt.Sprintf("submission %s: unknown student %s", remote.Ref(), remote.UserRef()))
			continue
		}
		assignmentID, ok := assignmentIDs[remote.AssignmentRef()]
		if !ok {
			report.Submissions.AddError(fmt.Sprintf("submission %s: unknown assignment %s", remote.Ref(), remote.AssignmentRef()))
			continue
		}

		submission := models.Submission{
			StudentID:    studentID,
			AssignmentID: assignmentID,
			ExternalID:   remote.Ref(),
			Content:      remote.Content(),
			SubmittedAt:  remote.SubmittedAt,
			Status:       MapSubmissionStatus(remote),
			Source:       models.SubmissionSourceCanvas,
		}
		created, err := s.submissions.Upsert(ctx, &submission)
		if err != nil {
			report.Submissions.AddError(fmt.Sprintf("submission %s: %v", remote.Ref(), err))
			continue
		}
		report.Submissions.Record(created)
	}

	report.SyncedAt = s.now().UTC()
	s.invalidate(ctx)

	if err := s.publisher.Publish(ctx, events.New(events.RosterSynced, map[string]interface{}{
		"students":    report.Students.Created + report.Students.Updated,
		"assignments": report.Assignments.Created + report.Assignments.Updated,
		"submissions": report.Submissions.Created + report.Submissions.Updated,
	})); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish sync event")
	}

	s.logger.Info().
		Int("students", report.Students.Created+report.Students.Updated).
		Int("assignments", report.Assignments.Created+report.Assignments.Updated).
		Int("submissions", report.Submissions.Created+report.Submissions.Updated).
		Msg("lms sync finished")
	return report, nil
}

func (s *rosterService) AddStudent(ctx context.Context, payload dto.StudentCreateRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.StudentResponse{}, err
	}

	student := models.Student{
		ExternalID: models.StringPtr(strings.TrimSpace(payload.ExternalID)),
		Name:       strings.TrimSpace(payload.Name),
		Email:      strings.TrimSpace(payload.Email),
	}
	if student.ExternalID != nil {
		if _, err := s.students.UpsertByExternalID(ctx, &student); err != nil {
			return dto.StudentResponse{}, err
		}
	} else if err := s.students.Create(ctx, &student); err != nil {
		return dto.StudentResponse{}, err
	}

	s.invalidate(ctx)
	return s.GetStudent(ctx, student.ID)
}

func (s *rosterService) GetStudent(ctx context.Context, id uint) (dto.StudentResponse, error) {
	student, err := s.students.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StudentResponse{}, ErrStudentNotFound
		}
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *rosterService) ListStudents(ctx context.Context, search string) ([]dto.StudentResponse, error) {
	students, err := s.students.List(ctx, search)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		responses = append(responses, dto.NewStudentResponse(student))
	}
	return responses, nil
}

func (s *rosterService) AddAssignment(ctx context.Context, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignmentType := payload.AssignmentType
	if assignmentType == "" {
		assignmentType = DetectAssignmentType(payload.Name)
	}
	assignment := models.Assignment{
		ExternalID:     models.StringPtr(strings.TrimSpace(payload.ExternalID)),
		Name:           strings.TrimSpace(payload.Name),
		Description:    payload.Description,
		PointsPossible: payload.PointsPossible,
		DueDate:        payload.DueDate,
		AssignmentType: assignmentType,
		SkillsAssessed: datatypes.JSONSlice[string](payload.SkillsAssessed),
	}
	if assignment.ExternalID != nil {
		if _, err := s.assignments.UpsertByExternalID(ctx, &assignment); err != nil {
			return dto.AssignmentResponse{}, err
		}
	} else if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.invalidate(ctx)
	stored, err := s.loadAssignment(ctx, assignment.ID)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	return dto.NewAssignmentResponse(stored), nil
}

func (s *rosterService) ListAssignments(ctx context.Context) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, dto.NewAssignmentResponse(assignment))
	}
	return responses, nil
}

// GetAssignmentRubric returns the effective rubric: the custom one if set, otherwise the type default.
func (s *rosterService) GetAssignmentRubric(ctx context.Context, id uint) (dto.RubricResponse, error) {
	assignment, err := s.loadAssignment(ctx, id)
	if err != nil {
		return dto.RubricResponse{}, err
	}

	custom := assignment.CustomRubric()
	return dto.RubricResponse{
		AssignmentID: assignment.ID,
		Custom:       custom != nil && len(custom.Criteria) > 0,
		Rubric:       rubric.Resolve(assignment),
	}, nil
}

func (s *rosterService) SetAssignmentRubric(ctx context.Context, id uint, payload dto.RubricUpdateRequest) (dto.RubricResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.RubricResponse{}, err
	}

	custom := models.Rubric{Criteria: payload.Criteria, SkillsAssessed: payload.SkillsAssessed}
	if err := rubric.Validate(custom); err != nil {
		return dto.RubricResponse{}, err
	}
	if err := s.assignments.UpdateRubric(ctx, id, &custom); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RubricResponse{}, ErrAssignmentNotFound
		}
		return dto.RubricResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", id).Int("criteria", len(custom.Criteria)).Msg("assignment rubric updated")
	return s.GetAssignmentRubric(ctx, id)
}

// AddSubmission records a manually entered submission, replacing any existing one for the pair.
func (s *rosterService) AddSubmission(ctx context.Context, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if _, err := s.GetStudent(ctx, payload.StudentID); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if _, err := s.loadAssignment(ctx, payload.AssignmentID); err != nil {
		return dto.SubmissionResponse{}, err
	}

	status := payload.Status
	if status == "" {
		status = models.SubmissionStatusSubmitted
	}
	submittedAt := payload.SubmittedAt
	if submittedAt == nil {
		now := s.now().UTC()
		submittedAt = &now
	}

	submission := models.Submission{
		StudentID:    payload.StudentID,
		AssignmentID: payload.AssignmentID,
		Content:      payload.Content,
		FilePath:     strings.TrimSpace(payload.FilePath),
		SubmittedAt:  submittedAt,
		Status:       status,
		Source:       models.SubmissionSourceManual,
	}
	if _, err := s.submissions.Upsert(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, err
	}

	s.invalidate(ctx)
	stored, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	return dto.NewSubmissionResponse(stored), nil
}

func (s *rosterService) AddNote(ctx context.Context, studentID uint, payload dto.NoteCreateRequest) (dto.NoteResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NoteResponse{}, err
	}
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return dto.NoteResponse{}, err
	}
	if payload.AssignmentID != nil {
		if _, err := s.loadAssignment(ctx, *payload.AssignmentID); err != nil {
			return dto.NoteResponse{}, err
		}
	}

	content := plainText(s.sanitizer, payload.Content)
	if content == "" {
		return dto.NoteResponse{}, ErrEmptyContent
	}
	noteType := payload.NoteType
	if noteType == "" {
		noteType = models.NoteTypeGeneral
	}

	note := models.StudentNote{
		StudentID:    studentID,
		AssignmentID: payload.AssignmentID,
		NoteType:     noteType,
		Content:      content,
	}
	if err := s.notes.Create(ctx, &note); err != nil {
		return dto.NoteResponse{}, err
	}
	return dto.NewNoteResponse(note), nil
}

func (s *rosterService) ListNotes(ctx context.Context, studentID uint) ([]dto.NoteResponse, error) {
	if _, err := s.GetStudent(ctx, studentID); err != nil {
		return nil, err
	}

	notes, err := s.notes.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.NoteResponse, 0, len(notes))
	for _, note := range notes {
		responses = append(responses, dto.NewNoteResponse(note))
	}
	return responses, nil
}

func (s *rosterService) loadAssignment(ctx context.Context, id uint) (models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Assignment{}, ErrAssignmentNotFound
		}
		return models.Assignment{}, err
	}
	return assignment, nil
}

func (s *rosterService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

var assignmentTypeKeywords = []struct {
	assignmentType string
	keywords       []string
}{
	{models.AssignmentTypeWritten, []string{"write", "copy", "analysis", "essay", "reflection"}},
	{models.AssignmentTypeVisual, []string{"poster", "slide", "image", "graphic", "visual"}},
	{models.AssignmentTypeResearch, []string{"research", "dossier"}},
	{models.AssignmentTypeStrategy, []string{"strategy", "campaign", "persona"}},
	{models.AssignmentTypeComprehensive, []string{"final"}},
}

// DetectAssignmentType infers an assignment type from keywords in its name.
func DetectAssignmentType(name string) string {
	lower := strings.ToLower(name)
	for _, entry := range assignmentTypeKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				return entry.assignmentType
			}
		}
	}
	return models.AssignmentTypeGeneral
}

// MapSubmissionStatus converts an LMS submission state into a local status.
func MapSubmissionStatus(remote lms.Submission) string {
	switch {
	case remote.WorkflowState == "unsubmitted":
		return models.SubmissionStatusPending
	case remote.Late:
		return models.SubmissionStatusLate
	case remote.SubmittedAt != nil:
		return models.SubmissionStatusSubmitted
	default:
		return models.SubmissionStatusMissing
	}
}
