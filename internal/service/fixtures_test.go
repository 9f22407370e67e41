package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jamditis/class/internal/events"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
	"github.com/jamditis/class/pkg/ai"
	"github.com/jamditis/class/pkg/lms"
)

// testEnv bundles real repositories over an in-memory sqlite database.
type testEnv struct {
	db          *gorm.DB
	students    repository.StudentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	evaluations repository.EvaluationRepository
	feedback    repository.FeedbackRepository
	notes       repository.StudentNoteRepository
	skills      repository.SkillAssessmentRepository
	snapshots   repository.ProgressSnapshotRepository
	validate    *validator.Validate
	logger      zerolog.Logger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	return &testEnv{
		db:          db,
		students:    repository.NewStudentRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		submissions: repository.NewSubmissionRepository(db),
		evaluations: repository.NewEvaluationRepository(db),
		feedback:    repository.NewFeedbackRepository(db),
		notes:       repository.NewStudentNoteRepository(db),
		skills:      repository.NewSkillAssessmentRepository(db),
		snapshots:   repository.NewProgressSnapshotRepository(db),
		validate:    validator.New(),
		logger:      zerolog.Nop(),
	}
}

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func (e *testEnv) analytics(cache *redis.Client) AnalyticsService {
	return NewAnalyticsService(e.students, e.assignments, e.submissions, cache, AnalyticsConfig{}, e.logger)
}

func (e *testEnv) addStudent(t *testing.T, name, externalID string) models.Student {
	t.Helper()
	student := models.Student{Name: name, Email: fmt.Sprintf("%s@example.edu", uuid.NewString()[:8]), ExternalID: models.StringPtr(externalID)}
	require.NoError(t, e.students.Create(context.Background(), &student))
	return student
}

func (e *testEnv) addAssignment(t *testing.T, name string, points float64, kind string, due time.Time) models.Assignment {
	t.Helper()
	assignment := models.Assignment{Name: name, PointsPossible: points, AssignmentType: kind, DueDate: &due}
	require.NoError(t, e.assignments.Create(context.Background(), &assignment))
	return assignment
}

func (e *testEnv) addSubmission(t *testing.T, student models.Student, assignment models.Assignment, content, status string, at time.Time) models.Submission {
	t.Helper()
	submission := models.Submission{
		StudentID:    student.ID,
		AssignmentID: assignment.ID,
		Content:      content,
		Status:       status,
		SubmittedAt:  &at,
		Source:       models.SubmissionSourceManual,
	}
	_, err := e.submissions.Upsert(context.Background(), &submission)
	require.NoError(t, err)
	return submission
}

// finalize stores a final manual evaluation with the given score and ratings.
func (e *testEnv) finalize(t *testing.T, submission models.Submission, score float64, ratings map[string]models.SkillLevel, strengths, areas []string) models.Evaluation {
	t.Helper()
	evaluation := models.Evaluation{
		SubmissionID:        submission.ID,
		Source:              models.EvaluationSourceManual,
		Score:               &score,
		Feedback:            "Solid work overall.",
		Strengths:           datatypes.JSONSlice[string](strengths),
		AreasForImprovement: datatypes.JSONSlice[string](areas),
		SkillRatings:        datatypes.NewJSONType(ratings),
	}
	require.NoError(t, e.evaluations.CreateFinal(context.Background(), &evaluation))
	return evaluation
}

// scriptedCompleter returns canned completions in order, repeating the last one.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []ai.Prompt
}

func (c *scriptedCompleter) Complete(_ context.Context, prompt ai.Prompt) (ai.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return ai.Completion{}, c.err
	}
	if len(c.responses) == 0 {
		return ai.Completion{}, errors.New("no scripted response")
	}
	content := c.responses[0]
	if len(c.responses) > 1 {
		c.responses = c.responses[1:]
	}
	return ai.Completion{Content: content, Model: "test-model"}, nil
}

func (c *scriptedCompleter) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

// fakeLMS records outbound posts and can be told to fail.
type fakeLMS struct {
	mu       sync.Mutex
	err      error
	comments []string
	topics   []string
	posts    int
}

func (f *fakeLMS) next(kind string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.posts++
	return fmt.Sprintf("%s-%d", kind, f.posts), nil
}

func (f *fakeLMS) PostSubmissionComment(_ context.Context, assignmentRef, studentRef, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := f.next("comment")
	if err == nil {
		f.comments = append(f.comments, assignmentRef+"/"+studentRef+": "+text)
	}
	return id, err
}

func (f *fakeLMS) CreateDiscussionTopic(_ context.Context, title, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := f.next("topic")
	if err == nil {
		f.topics = append(f.topics, title)
	}
	return id, err
}

func (f *fakeLMS) CreateAnnouncement(_ context.Context, title, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, err := f.next("announcement")
	if err == nil {
		f.topics = append(f.topics, title)
	}
	return id, err
}

func (f *fakeLMS) PostDiscussionEntry(_ context.Context, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next("entry")
}

// staticFeed serves a fixed course.
type staticFeed struct {
	students    []lms.Student
	assignments []lms.Assignment
	submissions []lms.Submission
}

func (f staticFeed) Students(context.Context) ([]lms.Student, error)       { return f.students, nil }
func (f staticFeed) Assignments(context.Context) ([]lms.Assignment, error) { return f.assignments, nil }
func (f staticFeed) Submissions(context.Context) ([]lms.Submission, error) { return f.submissions, nil }

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]string, 0, len(p.events))
	for _, event := range p.events {
		result = append(result, event.Type)
	}
	return result
}

// countingInvalidator counts cache invalidations.
type countingInvalidator struct {
	mu    sync.Mutex
	count int
}

func (c *countingInvalidator) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
}

// memoryUploader keeps uploaded exports in memory.
type memoryUploader struct {
	files map[string][]byte
}

func (u *memoryUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if u.files == nil {
		u.files = map[string][]byte{}
	}
	u.files[name] = data
	return "https://files.example.edu/" + name, nil
}

func floatPtr(v float64) *float64 { return &v }

func uintPtr(v uint) *uint { return &v }
