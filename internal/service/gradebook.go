package service

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/repository"
)

// gradebook is an in-memory view of the course used by the analyzer.
// Submissions carry their student, assignment and final evaluation.
type gradebook struct {
	students    []models.Student
	assignments []models.Assignment
	submissions []models.Submission
}

type gradebookSource struct {
	students    repository.StudentRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
}

// load reads students, assignments and submissions concurrently.
// A non-nil studentID restricts submissions to that student.
func (g gradebookSource) load(ctx context.Context, studentID *uint) (gradebook, error) {
	var book gradebook
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		students, err := g.students.List(groupCtx, "")
		book.students = students
		return err
	})
	group.Go(func() error {
		assignments, err := g.assignments.List(groupCtx)
		book.assignments = assignments
		return err
	})
	group.Go(func() error {
		submissions, err := g.submissions.ListWithFinalEvaluations(groupCtx, repository.SubmissionFilter{StudentID: studentID})
		book.submissions = submissions
		return err
	})

	if err := group.Wait(); err != nil {
		return gradebook{}, err
	}
	return book, nil
}

func (b gradebook) totalPossible() float64 {
	total := 0.0
	for _, assignment := range b.assignments {
		total += assignment.PointsPossible
	}
	return total
}

func (b gradebook) submissionsFor(studentID uint) []models.Submission {
	var result []models.Submission
	for _, submission := range b.submissions {
		if submission.StudentID == studentID {
			result = append(result, submission)
		}
	}
	return result
}

// finalEvaluations returns each submission's final evaluation with its submission attached.
func finalEvaluations(submissions []models.Submission) []models.Evaluation {
	evaluations := make([]models.Evaluation, 0, len(submissions))
	for _, submission := range submissions {
		final := submission.FinalEvaluation()
		if final == nil {
			continue
		}
		evaluation := *final
		evaluation.Submission = submission
		evaluation.Submission.Evaluations = nil
		evaluations = append(evaluations, evaluation)
	}
	return evaluations
}

// timelineOf returns the evaluated, dated submissions in submission order.
func timelineOf(submissions []models.Submission) []models.Submission {
	var timeline []models.Submission
	for _, submission := range submissions {
		if submission.SubmittedAt == nil || submission.FinalEvaluation() == nil {
			continue
		}
		timeline = append(timeline, submission)
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].SubmittedAt.Before(*timeline[j].SubmittedAt)
	})
	return timeline
}

func scoreOf(evaluation *models.Evaluation) float64 {
	if evaluation == nil || evaluation.Score == nil {
		return 0
	}
	return *evaluation.Score
}
