package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
	"github.com/jamditis/class/internal/rubric"
)

// ImportService loads course data from instructor-supplied files.
type ImportService interface {
	ImportStudentsCSV(ctx context.Context, r io.Reader) (dto.ImportReport, error)
	ImportAssignmentsJSON(ctx context.Context, r io.Reader) (dto.ImportReport, error)
	ImportSubmissionsCSV(ctx context.Context, r io.Reader) (dto.ImportReport, error)
	ImportTextFiles(ctx context.Context, assignmentID uint, files []dto.TextFile) (dto.ImportReport, error)
}

type importService struct {
	students    repository.StudentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	cache       CacheInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewImportService constructs the file importer.
func NewImportService(students repository.StudentRepository, assignments repository.AssignmentRepository, submissions repository.SubmissionRepository, cache CacheInvalidator, logger zerolog.Logger) ImportService {
	return &importService{
		students:    students,
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		logger:      logger.With().Str("component", "import_service").Logger(),
		now:         time.Now,
	}
}

// assignmentImport is one entry of an assignments JSON file.
type assignmentImport struct {
	Name           string         `json:"name"`
	ExternalID     string         `json:"external_id"`
	PointsPossible float64        `json:"points_possible"`
	DueDate        string         `json:"due_date"`
	AssignmentType string         `json:"assignment_type"`
	Description    string         `json:"description"`
	Rubric         *models.Rubric `json:"rubric"`
	SkillsAssessed []string       `json:"skills_assessed"`
}

var importTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

// ImportStudentsCSV reads name, email and canvas_id columns. Rows with an LMS id upsert;
// rows without one are skipped when a student with the same name exists.
func (s *importService) ImportStudentsCSV(ctx context.Context, r io.Reader) (dto.ImportReport, error) {
	rows, header, err := readCSV(r, []string{"name"})
	if err != nil {
		return dto.ImportReport{}, err
	}

	report := dto.ImportReport{Errors: []string{}}
	for i, row := range rows {
		line := i + 2
		name := header.value(row, "name")
		if name == "" {
			report.AddError(fmt.Sprintf("row %d: name is required", line))
			continue
		}

		student := models.Student{
			Name:       name,
			Email:      header.value(row, "email"),
			ExternalID: models.StringPtr(header.value(row, "canvas_id")),
		}
		if student.ExternalID != nil {
			created, err := s.students.UpsertByExternalID(ctx, &student)
			if err != nil {
				report.AddError(fmt.Sprintf("row %d: %v", line, err))
				continue
			}
			report.Record(created)
			continue
		}

		existing, err := s.students.FindByName(ctx, name)
		if err == nil && strings.EqualFold(existing.Name, name) {
			report.Skipped++
			continue
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			report.AddError(fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		if err := s.students.Create(ctx, &student); err != nil {
			report.AddError(fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		report.Record(true)
	}

	s.finish(ctx, "students", report)
	return report, nil
}

func (s *importService) ImportAssignmentsJSON(ctx context.Context, r io.Reader) (dto.ImportReport, error) {
	var items []assignmentImport
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return dto.ImportReport{}, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	report := dto.ImportReport{Errors: []string{}}
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			report.AddError(fmt.Sprintf("item %d: name is required", i+1))
			continue
		}

		assignmentType := strings.ToLower(strings.TrimSpace(item.AssignmentType))
		if assignmentType == "" {
			assignmentType = DetectAssignmentType(name)
		}
		assignment := models.Assignment{
			ExternalID:     models.StringPtr(strings.TrimSpace(item.ExternalID)),
			Name:           name,
			Description:    item.Description,
			PointsPossible: item.PointsPossible,
			DueDate:        parseImportTime(item.DueDate),
			AssignmentType: assignmentType,
			SkillsAssessed: datatypes.JSONSlice[string](item.SkillsAssessed),
		}
		if item.Rubric != nil {
			if err := rubric.Validate(*item.Rubric); err != nil {
				report.AddError(fmt.Sprintf("item %d: %v", i+1, err))
				continue
			}
			assignment.Rubric = datatypes.NewJSONType(item.Rubric)
		}

		if assignment.ExternalID != nil {
			created, err := s.assignments.UpsertByExternalID(ctx, &assignment)
			if err != nil {
				report.AddError(fmt.Sprintf("item %d: %v", i+1, err))
				continue
			}
			report.Record(created)
			continue
		}

		existing, err := s.assignments.FindByName(ctx, name)
		if err == nil && strings.EqualFold(existing.Name, name) {
			report.Skipped++
			continue
		}
		if err := s.assignments.Create(ctx, &assignment); err != nil {
			report.AddError(fmt.Sprintf("item %d: %v", i+1, err))
			continue
		}
		report.Record(true)
	}

	s.finish(ctx, "assignments", report)
	return report, nil
}

// ImportSubmissionsCSV reads student_id or student_name, assignment_id or assignment_name,
// content, submitted_at and status columns.
func (s *importService) ImportSubmissionsCSV(ctx context.Context, r io.Reader) (dto.ImportReport, error) {
	rows, header, err := readCSV(r, []string{"content"})
	if err != nil {
		return dto.ImportReport{}, err
	}
	if !header.hasAny("student_id", "student_name") || !header.hasAny("assignment_id", "assignment_name") {
		return dto.ImportReport{}, fmt.Errorf("%w: student and assignment columns are required", ErrInvalidImport)
	}

	report := dto.ImportReport{Errors: []string{}}
	for i, row := range rows {
		line := i + 2
		student, err := s.resolveStudent(ctx, header.value(row, "student_id"), header.value(row, "student_name"))
		if err != nil {
			report.AddError(fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		assignment, err := s.resolveAssignment(ctx, header.value(row, "assignment_id"), header.value(row, "assignment_name"))
		if err != nil {
			report.AddError(fmt.Sprintf("row %d: %v", line, err))
			continue
		}

		content := header.value(row, "content")
		if content == "" {
			report.AddError(fmt.Sprintf("row %d: content is required", line))
			continue
		}
		status := strings.ToLower(header.value(row, "status"))
		if status == "" {
			status = models.SubmissionStatusSubmitted
		}
		if !models.ValidSubmissionStatus(status) {
			report.AddError(fmt.Sprintf("row %d: unknown status %q", line, status))
			continue
		}
		submittedAt := parseImportTime(header.value(row, "submitted_at"))
		if submittedAt == nil {
			now := s.now().UTC()
			submittedAt = &now
		}

		created, err := s.submissions.Upsert(ctx, &models.Submission{
			StudentID:    student.ID,
			AssignmentID: assignment.ID,
			Content:      content,
			SubmittedAt:  submittedAt,
			Status:       status,
			Source:       models.SubmissionSourceCSVImport,
		})
		if err != nil {
			report.AddError(fmt.Sprintf("row %d: %v", line, err))
			continue
		}
		report.Record(created)
	}

	s.finish(ctx, "submissions", report)
	return report, nil
}

// ImportTextFiles stores each .txt or .md file as the submission of the student named by its file stem.
func (s *importService) ImportTextFiles(ctx context.Context, assignmentID uint, files []dto.TextFile) (dto.ImportReport, error) {
	if _, err := s.assignments.GetByID(ctx, assignmentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ImportReport{}, ErrAssignmentNotFound
		}
		return dto.ImportReport{}, err
	}

	report := dto.ImportReport{Errors: []string{}}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		ext := strings.ToLower(filepath.Ext(file.Name))
		if ext != ".txt" && ext != ".md" {
			report.AddError(fmt.Sprintf("%s: unsupported extension", file.Name))
			continue
		}
		if mime := mimetype.Detect(file.Content); !strings.HasPrefix(mime.String(), "text/") {
			report.AddError(fmt.Sprintf("%s: unsupported content type %s", file.Name, mime.String()))
			continue
		}

		stem := strings.TrimSpace(strings.TrimSuffix(filepath.Base(file.Name), filepath.Ext(file.Name)))
		student, err := s.students.FindByName(ctx, stem)
		if err != nil {
			report.AddError(fmt.Sprintf("%s: no student matches %q", file.Name, stem))
			continue
		}

		submittedAt := s.now().UTC()
		if existing, err := s.submissions.GetByPair(ctx, student.ID, assignmentID); err == nil && existing.SubmittedAt != nil {
			submittedAt = *existing.SubmittedAt
		}

		created, err := s.submissions.Upsert(ctx, &models.Submission{
			StudentID:    student.ID,
			AssignmentID: assignmentID,
			Content:      string(file.Content),
			FilePath:     file.Name,
			SubmittedAt:  &submittedAt,
			Status:       models.SubmissionStatusSubmitted,
			Source:       models.SubmissionSourceFileImport,
		})
		if err != nil {
			report.AddError(fmt.Sprintf("%s: %v", file.Name, err))
			continue
		}
		report.Record(created)
	}

	s.finish(ctx, "text_files", report)
	return report, nil
}

func (s *importService) resolveStudent(ctx context.Context, id, name string) (models.Student, error) {
	var (
		student models.Student
		err     error
	)
	if id != "" {
		parsed, parseErr := strconv.ParseUint(id, 10, 64)
		if parseErr != nil {
			return models.Student{}, fmt.Errorf("invalid student_id %q", id)
		}
		student, err = s.students.GetByID(ctx, uint(parsed))
	} else {
		student, err = s.students.FindByName(ctx, name)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Student{}, ErrStudentNotFound
	}
	return student, err
}

func (s *importService) resolveAssignment(ctx context.Context, id, name string) (models.Assignment, error) {
	var (
		assignment models.Assignment
		err        error
	)
	if id != "" {
		parsed, parseErr := strconv.ParseUint(id, 10, 64)
		if parseErr != nil {
			return models.Assignment{}, fmt.Errorf("invalid assignment_id %q", id)
		}
		assignment, err = s.assignments.GetByID(ctx, uint(parsed))
	} else {
		assignment, err = s.assignments.FindByName(ctx, name)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Assignment{}, ErrAssignmentNotFound
	}
	return assignment, err
}

func (s *importService) finish(ctx context.Context, kind string, report dto.ImportReport) {
	if report.Created+report.Updated > 0 && s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	s.logger.Info().
		Str("kind", kind).
		Int("created", report.Created).
		Int("updated", report.Updated).
		Int("skipped", report.Skipped).
		Msg("import finished")
}

type csvHeader map[string]int

func (h csvHeader) value(row []string, column string) string {
	idx, ok := h[column]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func (h csvHeader) hasAny(columns ...string) bool {
	for _, column := range columns {
		if _, ok := h[column]; ok {
			return true
		}
	}
	return false
}

// readCSV reads a header row plus records and checks the required columns exist.
func readCSV(r io.Reader, required []string) ([][]string, csvHeader, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%w: missing header row", ErrInvalidImport)
	}

	header := make(csvHeader, len(records[0]))
	for i, column := range records[0] {
		header[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(column, "\ufeff")))] = i
	}
	for _, column := range required {
		if _, ok := header[column]; !ok {
			return nil, nil, fmt.Errorf("%w: missing required column %s", ErrInvalidImport, column)
		}
	}
	return records[1:], header, nil
}

func parseImportTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range importTimeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			utc := parsed.UTC()
			return &utc
		}
	}
	return nil
}
