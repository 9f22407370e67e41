package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/models"
)

func newImportService(env *testEnv, cache CacheInvalidator) ImportService {
	return NewImportService(env.students, env.assignments, env.submissions, cache, env.logger)
}

func TestImportStudentsCSVSkipsKnownNames(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	cache := &countingInvalidator{}
	service := newImportService(env, cache)
	env.addStudent(t, "Grace Hopper", "")

	csvData := "\ufeffName,Email,Canvas_ID\n" +
		"Ada Byron,ada@example.edu,101\n" +
		"grace hopper,grace@example.edu,\n" +
		"Katherine Johnson,kj@example.edu,\n" +
		",nobody@example.edu,\n"

	report, err := service.ImportStudentsCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 2, report.Created)
	require.Equal(t, 2, report.Skipped)
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0], "row 5")
	require.Equal(t, 1, cache.count)

	again, err := service.ImportStudentsCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	require.Zero(t, again.Created)
	require.Equal(t, 1, again.Updated)

	_, err = service.ImportStudentsCSV(ctx, strings.NewReader("email\nx@example.edu\n"))
	require.ErrorIs(t, err, ErrInvalidImport)
}

func TestImportAssignmentsJSON(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	service := newImportService(env, nil)

	payload := `[
	  {"name": "Media Analysis Essay", "points_possible": 20, "due_date": "2026-02-01"},
	  {"name": "Campaign Plan", "external_id": "601", "assignment_type": "Strategy", "due_date": "2026-03-01T17:00:00Z"},
	  {"name": "Broken rubric", "rubric": {"criteria": []}},
	  {"name": ""}
	]`
	report, err := service.ImportAssignmentsJSON(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, 2, report.Created)
	require.Len(t, report.Errors, 2)

	essay, err := env.assignments.FindByName(ctx, "media analysis essay")
	require.NoError(t, err)
	require.Equal(t, models.AssignmentTypeWritten, essay.AssignmentType)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), essay.DueDate.UTC())

	plan, err := env.assignments.FindByName(ctx, "Campaign Plan")
	require.NoError(t, err)
	require.Equal(t, models.AssignmentTypeStrategy, plan.AssignmentType)

	again, err := service.ImportAssignmentsJSON(ctx, strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, 1, again.Updated)
	require.Equal(t, 3, again.Skipped)

	_, err = service.ImportAssignmentsJSON(ctx, strings.NewReader("{not json"))
	require.ErrorIs(t, err, ErrInvalidImport)
}

func TestImportSubmissionsCSV(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	service := newImportService(env, nil)
	ada := env.addStudent(t, "Ada Byron", "")
	env.addStudent(t, "Grace Hopper", "")
	essay := env.addAssignment(t, "Essay", 20, models.AssignmentTypeWritten, time.Now())

	csvData := "student_name,assignment_name,content,submitted_at,status\n" +
		"Ada Byron,Essay,First draft,2026-01-15 10:00:00,late\n" +
		"Grace Hopper,Essay,Draft,,graded\n" +
		"Nobody,Essay,Draft,,\n" +
		"Grace Hopper,Essay,,,\n"

	report, err := service.ImportSubmissionsCSV(ctx, strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 1, report.Created)
	require.Equal(t, 3, report.Skipped)
	require.Contains(t, report.Errors[0], `unknown status "graded"`)
	require.Contains(t, report.Errors[1], ErrStudentNotFound.Error())
	require.Contains(t, report.Errors[2], "content is required")

	submission, err := env.submissions.GetByPair(ctx, ada.ID, essay.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusLate, submission.Status)
	require.Equal(t, models.SubmissionSourceCSVImport, submission.Source)
	require.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), submission.SubmittedAt.UTC())

	_, err = service.ImportSubmissionsCSV(ctx, strings.NewReader("student_name,content\nAda,x\n"))
	require.ErrorIs(t, err, ErrInvalidImport)
}

func TestImportTextFilesMatchesStudentsByFileName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	service := newImportService(env, nil)
	ada := env.addStudent(t, "Ada Byron", "")
	essay := env.addAssignment(t, "Essay", 20, models.AssignmentTypeWritten, time.Now())

	earlier := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	env.addSubmission(t, ada, essay, "old text", models.SubmissionStatusLate, earlier)

	report, err := service.ImportTextFiles(ctx, essay.ID, []dto.TextFile{
		{Name: "Ada Byron.md", Content: []byte("# Essay\n\nNew text about media literacy.")},
		{Name: "Unknown Person.txt", Content: []byte("text")},
		{Name: "diagram.png", Content: []byte("\x89PNG\r\n\x1a\n")},
		{Name: "Ada Byron.txt", Content: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Updated)
	require.Equal(t, 3, report.Skipped)
	require.Contains(t, report.Errors[0], "no student matches")
	require.Contains(t, report.Errors[1], "unsupported extension")
	require.Contains(t, report.Errors[2], "unsupported content type")

	submission, err := env.submissions.GetByPair(ctx, ada.ID, essay.ID)
	require.NoError(t, err)
	require.Equal(t, "# Essay\n\nNew text about media literacy.", submission.Content)
	require.Equal(t, models.SubmissionSourceFileImport, submission.Source)
	require.Equal(t, models.SubmissionStatusSubmitted, submission.Status)
	require.Equal(t, earlier, submission.SubmittedAt.UTC())

	_, err = service.ImportTextFiles(ctx, 404, nil)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
