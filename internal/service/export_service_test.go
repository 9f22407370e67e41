package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/models"
)

type failingUploader struct{}

func (failingUploader) Upload(context.Context, string, io.Reader) (string, error) {
	return "", errors.New("quota exceeded")
}

func newExportService(env *testEnv, uploader Uploader) ExportService {
	skills := NewSkillService(env.students, env.evaluations, env.skills, env.logger)
	return NewExportService(env.students, env.assignments, env.submissions, env.notes, env.analytics(nil), skills, uploader, env.logger)
}

// seedGradebook creates two students over two assignments. Ada has one graded and one
// unevaluated submission; Grace has nothing submitted.
func seedGradebook(t *testing.T, env *testEnv) (models.Student, models.Student) {
	t.Helper()
	start := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	essay := env.addAssignment(t, "Essay", 20, models.AssignmentTypeWritten, start)
	poster := env.addAssignment(t, "Poster", 10, models.AssignmentTypeVisual, start.AddDate(0, 0, 7))

	ada := env.addStudent(t, "Ada Byron", "")
	grace := env.addStudent(t, "Grace Hopper", "")
	env.finalize(t, env.addSubmission(t, ada, essay, "essay", models.SubmissionStatusSubmitted, start), 17.5, nil, nil, nil)
	env.addSubmission(t, ada, poster, "poster", models.SubmissionStatusSubmitted, start.AddDate(0, 0, 7))
	return ada, grace
}

func TestGradesCSVMarksMissingAndUngradedCells(t *testing.T) {
	env := newTestEnv(t)
	ada, grace := seedGradebook(t, env)

	data, err := newExportService(env, nil).GradesCSV(context.Background())
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"Student Name", "Email", "Essay", "Poster", "Total", "Percentage"},
		{"Ada Byron", ada.Email, "17.5", "", "17.5", "58.3%"},
		{"Grace Hopper", grace.Email, "Missing", "Missing", "0", "0.0%"},
	}, rows)
}

func TestGradesXLSXContainsGradesSheet(t *testing.T) {
	env := newTestEnv(t)
	seedGradebook(t, env)

	data, err := newExportService(env, nil).GradesXLSX(context.Background())
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	require.Equal(t, []string{gradesSheet}, book.GetSheetList())
	rows, err := book.GetRows(gradesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, "Percentage", rows[0][5])
	require.Equal(t, "Missing", rows[2][2])
}

func TestArchiveUploadsExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	uploader := &memoryUploader{}

	archived, err := newExportService(env, uploader).Archive(ctx, "grades.csv", []byte("a,b\n"))
	require.NoError(t, err)
	require.Equal(t, dto.ArchiveResponse{Name: "grades.csv", URL: "https://files.example.edu/grades.csv"}, archived)
	require.Equal(t, []byte("a,b\n"), uploader.files["grades.csv"])

	_, err = newExportService(env, nil).Archive(ctx, "grades.csv", nil)
	require.ErrorIs(t, err, ErrArchiveUnavailable)

	_, err = newExportService(env, failingUploader{}).Archive(ctx, "grades.csv", nil)
	require.ErrorContains(t, err, "quota exceeded")
}

func TestStudentReportCollectsRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada, _ := seedGradebook(t, env)
	require.NoError(t, env.notes.Create(ctx, &models.StudentNote{StudentID: ada.ID, NoteType: models.NoteTypePraise, Content: "Great questions"}))

	report, err := newExportService(env, nil).StudentReport(ctx, ada.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada Byron", report.Summary.Student.Name)
	require.Len(t, report.Notes, 1)
	require.Len(t, report.Submissions, 2)

	scored := 0
	for _, detail := range report.Submissions {
		if detail.Score != nil {
			scored++
			require.Equal(t, "Essay", detail.AssignmentName)
			require.InDelta(t, 17.5, *detail.Score, 0.001)
		}
	}
	require.Equal(t, 1, scored)

	_, err = newExportService(env, nil).StudentReport(ctx, 404)
	require.ErrorIs(t, err, ErrStudentNotFound)
}
