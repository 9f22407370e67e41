package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
)

const (
	gradesSheet   = "Grades"
	missingMarker = "Missing"
)

// Uploader stores an export file and returns a URL for it.
type Uploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// ExportService renders gradebooks and student reports.
type ExportService interface {
	GradesCSV(ctx context.Context) ([]byte, error)
	GradesXLSX(ctx context.Context) ([]byte, error)
	StudentReport(ctx context.Context, studentID uint) (dto.StudentReportResponse, error)
	Archive(ctx context.Context, name string, data []byte) (dto.ArchiveResponse, error)
}

type exportService struct {
	source    gradebookSource
	analytics AnalyticsService
	skills    SkillService
	notes     repository.StudentNoteRepository
	uploader  Uploader
	logger    zerolog.Logger
	now       func() time.Time
}

// NewExportService constructs the exporter. uploader may be nil, which disables archiving.
func NewExportService(students repository.StudentRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, notes repository.StudentNoteRepository, analytics AnalyticsService, skills SkillService, uploader Uploader, logger zerolog.Logger) ExportService {
	return &exportService{
		source: gradebookSource{
			students:    students,
			assignments: assignments,
			submissions: submissions,
		},
		analytics: analytics,
		skills:    skills,
		notes:     notes,
		uploader:  uploader,
		logger:    logger.With().Str("component", "export_service").Logger(),
		now:       time.Now,
	}
}

func (s *exportService) GradesCSV(ctx context.Context) ([]byte, error) {
	rows, err := s.gradeRows(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *exportService) GradesXLSX(ctx context.Context) ([]byte, error) {
	rows, err := s.gradeRows(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(gradesSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(gradesSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// gradeRows builds the gradebook table: a header, then one row per student ordered by name.
// Assignment columns follow syllabus order.
func (s *exportService) gradeRows(ctx context.Context) ([][]string, error) {
	book, err := s.source.load(ctx, nil)
	if err != nil {
		return nil, err
	}

	students := append([]models.Student(nil), book.students...)
	sort.SliceStable(students, func(i, j int) bool {
		return strings.ToLower(students[i].Name) < strings.ToLower(students[j].Name)
	})

	header := []string{"Student Name", "Email"}
	for _, assignment := range book.assignments {
		header = append(header, assignment.Name)
	}
	header = append(header, "Total", "Percentage")

	type pair struct{ student, assignment uint }
	byPair := make(map[pair]models.Submission, len(book.submissions))
	for _, submission := range book.submissions {
		byPair[pair{submission.StudentID, submission.AssignmentID}] = submission
	}

	totalPossible := book.totalPossible()
	rows := [][]string{header}
	for _, student := range students {
		row := []string{student.Name, student.Email}
		earned := 0.0
		for _, assignment := range book.assignments {
			submission, ok := byPair[pair{student.ID, assignment.ID}]
			if !ok {
				row = append(row, missingMarker)
				continue
			}
			final := submission.FinalEvaluation()
			if final == nil || final.Score == nil {
				row = append(row, "")
				continue
			}
			earned += *final.Score
			row = append(row, formatPoints(*final.Score))
		}
		row = append(row, formatPoints(earned), fmt.Sprintf("%.1f%%", models.Percentage(earned, totalPossible)))
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *exportService) StudentReport(ctx context.Context, studentID uint) (dto.StudentReportResponse, error) {
	summary, err := s.analytics.StudentSummary(ctx, studentID)
	if err != nil {
		return dto.StudentReportResponse{}, err
	}
	progression, err := s.analytics.StudentProgression(ctx, studentID)
	if err != nil {
		return dto.StudentReportResponse{}, err
	}
	strengths, err := s.analytics.StrengthsWeaknesses(ctx, studentID)
	if err != nil {
		return dto.StudentReportResponse{}, err
	}
	skills, err := s.skills.ListStudentSkills(ctx, studentID)
	if err != nil {
		return dto.StudentReportResponse{}, err
	}
	notes, err := s.notes.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentReportResponse{}, err
	}
	book, err := s.source.load(ctx, &studentID)
	if err != nil {
		return dto.StudentReportResponse{}, err
	}

	report := dto.StudentReportResponse{
		Summary:             summary,
		Progression:         progression,
		StrengthsWeaknesses: strengths,
		Skills:              skills,
		Notes:               make([]dto.NoteResponse, 0, len(notes)),
		Submissions:         []dto.SubmissionDetail{},
		GeneratedAt:         s.now().UTC(),
	}
	for _, note := range notes {
		report.Notes = append(report.Notes, dto.NewNoteResponse(note))
	}
	for _, submission := range book.submissionsFor(studentID) {
		detail := dto.SubmissionDetail{
			AssignmentID:   submission.AssignmentID,
			AssignmentName: submission.Assignment.Name,
			Status:         submission.Status,
			SubmittedAt:    submission.SubmittedAt,
			PointsPossible: submission.Assignment.PointsPossible,
		}
		if final := submission.FinalEvaluation(); final != nil {
			detail.Score = final.Score
			detail.Feedback = final.Feedback
		}
		report.Submissions = append(report.Submissions, detail)
	}
	return report, nil
}

func (s *exportService) Archive(ctx context.Context, name string, data []byte) (dto.ArchiveResponse, error) {
	if s.uploader == nil {
		return dto.ArchiveResponse{}, ErrArchiveUnavailable
	}

	url, err := s.uploader.Upload(ctx, name, bytes.NewReader(data))
	if err != nil {
		return dto.ArchiveResponse{}, fmt.Errorf("archive %s: %w", name, err)
	}

	s.logger.Info().Str("name", name).Int("bytes", len(data)).Msg("export archived")
	return dto.ArchiveResponse{Name: name, URL: url}, nil
}
