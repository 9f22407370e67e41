package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/events"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/rubric"
	"github.com/jamditis/class/pkg/lms"
)

func newRosterService(env *testEnv, cache CacheInvalidator, publisher *recordingPublisher) RosterService {
	var pub events.Publisher
	if publisher != nil {
		pub = publisher
	}
	return NewRosterService(env.students, env.assignments, env.submissions, env.notes, cache, pub, env.validate, env.logger)
}

func courseFeed() staticFeed {
	due := time.Date(2026, 2, 1, 23, 59, 0, 0, time.UTC)
	submitted := due.Add(-time.Hour)
	points := 20.0
	return staticFeed{
		students: []lms.Student{
			{ID: 101, Name: "Ada Byron", Email: "ada@example.edu"},
			{ID: 102, SortableName: "Hopper, Grace", Email: "grace@example.edu"},
		},
		assignments: []lms.Assignment{
			{ID: 501, Name: "Persuasive Essay", PointsPossible: &points, DueAt: &due},
			{ID: 502, Name: "Welcome survey"},
		},
		submissions: []lms.Submission{
			{ID: 9001, UserID: 101, AssignmentID: 501, SubmittedAt: &submitted, SubmissionType: lms.SubmissionTypeText, Body: "My essay"},
			{ID: 9002, UserID: 102, AssignmentID: 501, WorkflowState: "unsubmitted"},
			{ID: 9003, UserID: 999, AssignmentID: 501, SubmittedAt: &submitted},
		},
	}
}

func TestSyncFromFeedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := &countingInvalidator{}
	publisher := &recordingPublisher{}
	service := newRosterService(env, cache, publisher)

	report, err := service.SyncFromFeed(ctx, courseFeed())
	require.NoError(t, err)
	require.Equal(t, 2, report.Students.Created)
	require.Equal(t, 2, report.Assignments.Created)
	require.Equal(t, 2, report.Submissions.Created)
	require.Equal(t, 1, report.Submissions.Skipped)
	require.Len(t, report.Submissions.Errors, 1)
	require.Contains(t, report.Submissions.Errors[0], "unknown student 999")
	require.False(t, report.SyncedAt.IsZero())

	again, err := service.SyncFromFeed(ctx, courseFeed())
	require.NoError(t, err)
	require.Zero(t, again.Students.Created)
	require.Equal(t, 2, again.Students.Updated)
	require.Equal(t, 2, again.Submissions.Updated)

	students, err := service.ListStudents(ctx, "")
	require.NoError(t, err)
	require.Len(t, students, 2)

	assignments, err := service.ListAssignments(ctx)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	types := map[string]string{}
	for _, assignment := range assignments {
		types[assignment.Name] = assignment.AssignmentType
	}
	require.Equal(t, models.AssignmentTypeWritten, types["Persuasive Essay"])
	require.Equal(t, models.AssignmentTypeGeneral, types["Welcome survey"])

	pending, err := env.submissions.ListPendingEvaluation(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, models.SubmissionSourceCanvas, pending[0].Source)

	require.Equal(t, 2, cache.count)
	require.Equal(t, []string{events.RosterSynced, events.RosterSynced}, publisher.types())
}

func TestSyncFromFeedWithoutFeed(t *testing.T) {
	env := newTestEnv(t)
	_, err := newRosterService(env, nil, nil).SyncFromFeed(context.Background(), nil)
	require.ErrorIs(t, err, ErrSyncUnavailable)
}

func TestDetectAssignmentType(t *testing.T) {
	cases := map[string]string{
		"Reflection journal":     models.AssignmentTypeWritten,
		"Campaign poster":        models.AssignmentTypeVisual,
		"Source dossier":         models.AssignmentTypeResearch,
		"Audience persona":       models.AssignmentTypeStrategy,
		"Final portfolio":        models.AssignmentTypeComprehensive,
		"Attendance check":       models.AssignmentTypeGeneral,
		"Write the final report": models.AssignmentTypeWritten,
	}
	for name, expected := range cases {
		require.Equal(t, expected, DetectAssignmentType(name), name)
	}
}

func TestMapSubmissionStatus(t *testing.T) {
	at := time.Now()
	require.Equal(t, models.SubmissionStatusPending, MapSubmissionStatus(lms.Submission{WorkflowState: "unsubmitted", Late: true}))
	require.Equal(t, models.SubmissionStatusLate, MapSubmissionStatus(lms.Submission{Late: true, SubmittedAt: &at}))
	require.Equal(t, models.SubmissionStatusSubmitted, MapSubmissionStatus(lms.Submission{SubmittedAt: &at}))
	require.Equal(t, models.SubmissionStatusMissing, MapSubmissionStatus(lms.Submission{WorkflowState: "graded"}))
}

func TestAddSubmissionDefaultsAndReplaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	service := newRosterService(env, nil, nil)

	student, err := service.AddStudent(ctx, dto.StudentCreateRequest{Name: " Ada Byron ", Email: "ada@example.edu"})
	require.NoError(t, err)
	require.Equal(t, "Ada Byron", student.Name)
	assignment, err := service.AddAssignment(ctx, dto.AssignmentCreateRequest{Name: "Infographic", PointsPossible: 10})
	require.NoError(t, err)
	require.Equal(t, models.AssignmentTypeVisual, assignment.AssignmentType)

	first, err := service.AddSubmission(ctx, dto.SubmissionCreateRequest{StudentID: student.ID, AssignmentID: assignment.ID, Content: "draft"})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusSubmitted, first.Status)
	require.NotNil(t, first.SubmittedAt)

	second, err := service.AddSubmission(ctx, dto.SubmissionCreateRequest{StudentID: student.ID, AssignmentID: assignment.ID, Content: "final", Status: models.SubmissionStatusLate})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "final", second.Content)
	require.Equal(t, models.SubmissionStatusLate, second.Status)

	_, err = service.AddSubmission(ctx, dto.SubmissionCreateRequest{StudentID: 404, AssignmentID: assignment.ID})
	require.ErrorIs(t, err, ErrStudentNotFound)
	_, err = service.AddSubmission(ctx, dto.SubmissionCreateRequest{StudentID: student.ID, AssignmentID: 404})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestAddNoteStripsMarkup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	service := newRosterService(env, nil, nil)
	student := env.addStudent(t, "Ada Byron", "")

	note, err := service.AddNote(ctx, student.ID, dto.NoteCreateRequest{Content: "<b>Met</b> after class", NoteType: models.NoteTypeMeeting})
	require.NoError(t, err)
	require.Equal(t, "Met after class", note.Content)
	require.Equal(t, models.NoteTypeMeeting, note.NoteType)

	plain, err := service.AddNote(ctx, student.ID, dto.NoteCreateRequest{Content: `Ada's "draft" & outline: 3 < 5`})
	require.NoError(t, err)
	require.Equal(t, `Ada's "draft" & outline: 3 < 5`, plain.Content)

	_, err = service.AddNote(ctx, student.ID, dto.NoteCreateRequest{Content: "<img src=x>"})
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = service.AddNote(ctx, student.ID, dto.NoteCreateRequest{Content: "about a missing task", AssignmentID: uintPtr(404)})
	require.ErrorIs(t, err, ErrAssignmentNotFound)

	notes, err := service.ListNotes(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	_, err = service.ListNotes(ctx, 404)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestAssignmentRubricFallsBackToTypeDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	service := newRosterService(env, nil, nil)
	assignment := env.addAssignment(t, "Essay", 20, models.AssignmentTypeWritten, time.Now())

	effective, err := service.GetAssignmentRubric(ctx, assignment.ID)
	require.NoError(t, err)
	require.False(t, effective.Custom)
	require.Equal(t, rubric.ForType(models.AssignmentTypeWritten), effective.Rubric)

	_, err = service.SetAssignmentRubric(ctx, assignment.ID, dto.RubricUpdateRequest{Criteria: []models.Criterion{{Name: "Voice", Weight: 0}}})
	require.ErrorIs(t, err, rubric.ErrInvalidRubric)

	levels := map[models.SkillLevel]string{
		models.SkillLevelAdvanced:   "Distinct voice throughout",
		models.SkillLevelProficient: "Consistent voice",
		models.SkillLevelDeveloping: "Voice emerging",
		models.SkillLevelEmerging:   "Voice absent",
	}
	custom, err := service.SetAssignmentRubric(ctx, assignment.ID, dto.RubricUpdateRequest{
		Criteria:       []models.Criterion{{Name: "Voice", Weight: 100, Levels: levels}},
		SkillsAssessed: []string{"writing"},
	})
	require.NoError(t, err)
	require.True(t, custom.Custom)
	require.Equal(t, "Voice", custom.Rubric.Criteria[0].Name)

	_, err = service.SetAssignmentRubric(ctx, 404, dto.RubricUpdateRequest{Criteria: []models.Criterion{{Name: "Voice", Weight: 100, Levels: levels}}})
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
