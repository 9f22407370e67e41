package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/events"
	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
)

type feedbackFixture struct {
	env        *testEnv
	lms        *fakeLMS
	publisher  *recordingPublisher
	service    FeedbackService
	student    models.Student
	assignment models.Assignment
	submission models.Submission
}

func newFeedbackFixture(t *testing.T) *feedbackFixture {
	t.Helper()
	env := newTestEnv(t)
	f := &feedbackFixture{env: env, lms: &fakeLMS{}, publisher: &recordingPublisher{}}
	f.service = NewFeedbackService(env.feedback, env.submissions, f.lms, f.publisher, env.validate, env.logger)

	f.student = env.addStudent(t, "Ada Byron", "101")
	f.assignment = env.addAssignment(t, "Essay 1", 10, models.AssignmentTypeWritten, time.Now())
	require.NoError(t, env.db.Model(&f.assignment).Update("external_id", "501").Error)
	f.submission = env.addSubmission(t, f.student, f.assignment, "essay", models.SubmissionStatusSubmitted, time.Now())
	return f
}

func (f *feedbackFixture) queueComment(t *testing.T, content string) dto.FeedbackResponse {
	t.Helper()
	item, err := f.service.Enqueue(context.Background(), dto.FeedbackEnqueueRequest{
		FeedbackType: models.FeedbackTypeSubmissionComment,
		SubmissionID: &f.submission.ID,
		Content:      content,
	})
	require.NoError(t, err)
	return item
}

func TestEnqueueValidatesTargets(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	_, err := f.service.Enqueue(ctx, dto.FeedbackEnqueueRequest{FeedbackType: models.FeedbackTypeSubmissionComment, Content: "Nice"})
	require.ErrorIs(t, err, ErrInvalidFeedback)

	_, err = f.service.Enqueue(ctx, dto.FeedbackEnqueueRequest{FeedbackType: models.FeedbackTypeDiscussionEntry, Content: "Nice"})
	require.ErrorIs(t, err, ErrInvalidFeedback)

	_, err = f.service.Enqueue(ctx, dto.FeedbackEnqueueRequest{FeedbackType: models.FeedbackTypeSubmissionComment, SubmissionID: uintPtr(777), Content: "Nice"})
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = f.service.Enqueue(ctx, dto.FeedbackEnqueueRequest{FeedbackType: "tweet", Content: "Nice"})
	require.Error(t, err)

	_, err = f.service.Enqueue(ctx, dto.FeedbackEnqueueRequest{FeedbackType: models.FeedbackTypeAnnouncement, Content: "<script>alert(1)</script>"})
	require.ErrorIs(t, err, ErrInvalidFeedback)
}

func TestEnqueueSanitizesAndLinksStudent(t *testing.T) {
	f := newFeedbackFixture(t)

	item := f.queueComment(t, "<script>alert(1)</script>Great <b>work</b>")
	require.Equal(t, models.FeedbackStatusPending, item.Status)
	require.Equal(t, "Great work", item.Content)
	require.Equal(t, item.Content, item.OriginalContent)
	require.Equal(t, f.student.ID, *item.StudentID)
	require.Equal(t, models.EvaluationSourceManual, item.GeneratedBy)
}

func TestEditMarksEditedOnlyWhenContentChanges(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()
	item := f.queueComment(t, "Original text")

	same, err := f.service.Edit(ctx, item.ID, dto.FeedbackEditRequest{Content: " Original text "})
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusPending, same.Status)

	edited, err := f.service.Edit(ctx, item.ID, dto.FeedbackEditRequest{Content: "Revised text"})
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusEdited, edited.Status)
	require.Equal(t, "Revised text", edited.Content)
	require.Equal(t, "Original text", edited.OriginalContent)
	require.NotNil(t, edited.ReviewedAt)

	_, err = f.service.Edit(ctx, 999, dto.FeedbackEditRequest{Content: "x"})
	require.ErrorIs(t, err, ErrFeedbackNotFound)
}

func TestPlainTextSurvivesEditAndPublish(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	original := `Don't say "very unique" & keep a < b clear.`
	item := f.queueComment(t, original)
	require.Equal(t, original, item.Content)
	require.Equal(t, original, item.OriginalContent)

	revised := `Don't say "very unique" & keep a < b & c > d clear.`
	edited, err := f.service.Edit(ctx, item.ID, dto.FeedbackEditRequest{Content: revised})
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusEdited, edited.Status)
	require.Equal(t, revised, edited.Content)
	require.Equal(t, original, edited.OriginalContent)

	published, err := f.service.Publish(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusPublished, published.Status)
	require.Equal(t, []string{"501/101: " + revised}, f.lms.comments)
}

func TestEditAfterApproveThenPublish(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()
	item := f.queueComment(t, "Strong opening")

	_, err := f.service.Approve(ctx, item.ID)
	require.NoError(t, err)

	unchanged, err := f.service.Edit(ctx, item.ID, dto.FeedbackEditRequest{Content: "Strong opening"})
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusApproved, unchanged.Status)

	edited, err := f.service.Edit(ctx, item.ID, dto.FeedbackEditRequest{Content: "Strong opening and a sharp thesis"})
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusEdited, edited.Status)
	require.Equal(t, "Strong opening", edited.OriginalContent)

	_, err = f.service.Approve(ctx, item.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	published, err := f.service.Publish(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusPublished, published.Status)
	require.Equal(t, "Strong opening", published.OriginalContent)
	require.Equal(t, []string{"501/101: Strong opening and a sharp thesis"}, f.lms.comments)
}

// failingPublishRepo fails the first status update to published.
type failingPublishRepo struct {
	repository.FeedbackRepository
	failed bool
}

func (r *failingPublishRepo) Transition(ctx context.Context, id uint, from []string, updates map[string]interface{}) (bool, error) {
	if updates["status"] == models.FeedbackStatusPublished && !r.failed {
		r.failed = true
		return false, errors.New("database is locked")
	}
	return r.FeedbackRepository.Transition(ctx, id, from, updates)
}

func TestPublishDoesNotRepostAfterStatusUpdateFailure(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()
	f.service = NewFeedbackService(&failingPublishRepo{FeedbackRepository: f.env.feedback}, f.env.submissions, f.lms, f.publisher, f.env.validate, f.env.logger)

	item := f.queueComment(t, "Well argued")
	_, err := f.service.Approve(ctx, item.ID)
	require.NoError(t, err)

	_, err = f.service.Publish(ctx, item.ID)
	require.Error(t, err)

	stored, err := f.service.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusApproved, stored.Status)
	require.Equal(t, "comment-1", stored.ExternalID)

	result, err := f.service.PublishAllApproved(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, result.Published)
	require.Equal(t, "comment-1", result.Results[0].ExternalID)
	require.Len(t, f.lms.comments, 1)
}

func TestReviewTransitions(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()
	item := f.queueComment(t, "Well argued")

	approved, err := f.service.Approve(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusApproved, approved.Status)

	_, err = f.service.Approve(ctx, item.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	rejected, err := f.service.Reject(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusRejected, rejected.Status)

	_, err = f.service.Edit(ctx, item.ID, dto.FeedbackEditRequest{Content: "Too late"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.service.Publish(ctx, item.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPublishSubmissionComment(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()
	item := f.queueComment(t, "Well argued")

	_, err := f.service.Publish(ctx, item.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.service.Approve(ctx, item.ID)
	require.NoError(t, err)

	published, err := f.service.Publish(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusPublished, published.Status)
	require.Equal(t, "comment-1", published.ExternalID)
	require.NotNil(t, published.PublishedAt)
	require.Equal(t, []string{"501/101: Well argued"}, f.lms.comments)
	require.Equal(t, []string{events.FeedbackPublished}, f.publisher.types())

	_, err = f.service.Publish(ctx, item.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Len(t, f.lms.comments, 1)
}

func TestPublishFailureRecordsErrorAndKeepsStatus(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()
	item := f.queueComment(t, "Well argued")
	_, err := f.service.Approve(ctx, item.ID)
	require.NoError(t, err)

	f.lms.err = errors.New("lms returned 503")
	_, err = f.service.Publish(ctx, item.ID)
	require.ErrorIs(t, err, ErrPublishFailed)

	stored, err := f.service.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusApproved, stored.Status)
	require.Contains(t, stored.LastError, "503")
	require.Empty(t, stored.ExternalID)

	f.lms.err = nil
	published, err := f.service.Publish(ctx, item.ID)
	require.NoError(t, err)
	require.Empty(t, published.LastError)
}

func TestPublishRequiresExternalReferences(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	local := f.env.addStudent(t, "Local Only", "")
	submission := f.env.addSubmission(t, local, f.assignment, "essay", models.SubmissionStatusSubmitted, time.Now())
	item, err := f.service.Enqueue(ctx, dto.FeedbackEnqueueRequest{
		FeedbackType: models.FeedbackTypeSubmissionComment,
		SubmissionID: &submission.ID,
		Content:      "Nice",
	})
	require.NoError(t, err)
	_, err = f.service.Approve(ctx, item.ID)
	require.NoError(t, err)

	_, err = f.service.Publish(ctx, item.ID)
	require.ErrorIs(t, err, ErrMissingExternalRef)

	stored, err := f.service.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusApproved, stored.Status)
	require.Empty(t, stored.LastError)
	require.Empty(t, f.lms.comments)
}

func TestPublishClassPostsUseDefaultTitles(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	post, err := f.service.QueueClassInsight(ctx, dto.ClassInsightFeedbackRequest{Content: "Most of you nailed the thesis."})
	require.NoError(t, err)
	require.Equal(t, models.FeedbackTypeDiscussionPost, post.FeedbackType)

	announcement, err := f.service.QueueClassInsight(ctx, dto.ClassInsightFeedbackRequest{Content: "Deadline moved.", FeedbackType: models.FeedbackTypeAnnouncement})
	require.NoError(t, err)

	for _, id := range []uint{post.ID, announcement.ID} {
		_, err = f.service.Approve(ctx, id)
		require.NoError(t, err)
	}

	result, err := f.service.PublishAllApproved(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Published)
	require.Zero(t, result.Failed)
	require.Equal(t, []string{DefaultDiscussionTitle, DefaultAnnouncementTitle}, f.lms.topics)
}

func TestPublishAllApprovedReportsPerItemFailures(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()

	good := f.queueComment(t, "Well argued")
	entry, err := f.service.Enqueue(ctx, dto.FeedbackEnqueueRequest{
		FeedbackType:       models.FeedbackTypeDiscussionEntry,
		DiscussionTopicRef: "topic-9",
		Content:            "Reply",
	})
	require.NoError(t, err)
	pending := f.queueComment(t, "Not yet reviewed")

	_, err = f.service.Approve(ctx, good.ID)
	require.NoError(t, err)
	_, err = f.service.Edit(ctx, entry.ID, dto.FeedbackEditRequest{Content: "Edited reply"})
	require.NoError(t, err)

	result, err := f.service.PublishAllApproved(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, result.Published)
	require.Len(t, result.Results, 2)

	untouched, err := f.service.Get(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, models.FeedbackStatusPending, untouched.Status)

	stats, err := f.service.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Counts, len(models.FeedbackStatuses))
	require.Equal(t, int64(2), stats.Counts[models.FeedbackStatusPublished])
	require.Equal(t, int64(1), stats.Counts[models.FeedbackStatusPending])
	require.Zero(t, stats.Counts[models.FeedbackStatusRejected])
	require.Equal(t, int64(3), stats.Total)
}

func TestQueueEvaluatedFeedbackSkipsExistingComments(t *testing.T) {
	f := newFeedbackFixture(t)
	ctx := context.Background()
	f.env.finalize(t, f.submission, 8, nil, []string{"Clear thesis"}, []string{"Citations"})

	other := f.env.addStudent(t, "Grace Hopper", "102")
	f.env.addSubmission(t, other, f.assignment, "no evaluation yet", models.SubmissionStatusSubmitted, time.Now())

	first, err := f.service.QueueEvaluatedFeedback(ctx, dto.FeedbackBatchRequest{})
	require.NoError(t, err)
	require.Len(t, first.Queued, 1)
	require.Equal(t, f.submission.ID, *first.Queued[0].SubmissionID)
	require.Contains(t, first.Queued[0].Content, "**Score:** 8/10")

	second, err := f.service.QueueEvaluatedFeedback(ctx, dto.FeedbackBatchRequest{})
	require.NoError(t, err)
	require.Empty(t, second.Queued)
	require.Equal(t, 1, second.Skipped)

	_, err = f.service.QueueSubmissionFeedback(ctx, f.env.addSubmission(t, f.env.addStudent(t, "Katherine Johnson", ""), f.assignment, "x", models.SubmissionStatusSubmitted, time.Now()).ID)
	require.ErrorIs(t, err, ErrNoFinalEvaluation)
}

func TestComposeSubmissionFeedbackLimitsHighlights(t *testing.T) {
	score := 17.5
	content := composeSubmissionFeedback(models.Evaluation{
		Feedback:            "Strong draft.",
		Score:               &score,
		Strengths:           datatypes.JSONSlice[string]{"one", "two", "three", "four"},
		AreasForImprovement: datatypes.JSONSlice[string]{"citations"},
	}, 20)

	require.Equal(t, "Strong draft.\n\n**Strengths:**\n- one\n- two\n- three\n\n**Areas for growth:**\n- citations\n\n**Score:** 17.5/20", content)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	locks := newKeyedMutex()
	unlock := locks.Lock(7)
	require.Len(t, locks.locks, 1)
	unlock()
	require.Empty(t, locks.locks)
}
