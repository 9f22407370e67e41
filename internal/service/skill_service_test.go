package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jamditis/class/internal/models"
)

func observation(day int, id uint, level models.SkillLevel) skillObservation {
	return skillObservation{At: time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC), EvaluationID: id, Level: level}
}

func TestRecencyVoteFavoursRecentRatings(t *testing.T) {
	level, ok := recencyVote([]skillObservation{
		observation(3, 3, models.SkillLevelProficient),
		observation(1, 1, models.SkillLevelDeveloping),
		observation(2, 2, models.SkillLevelDeveloping),
		observation(4, 4, models.SkillLevelProficient),
	})
	require.True(t, ok)
	// developing weighs 1 + 1.25, proficient weighs 1.5 + 1.75
	require.Equal(t, models.SkillLevelProficient, level)
}

func TestRecencyVoteTieGoesToEarliestLevel(t *testing.T) {
	level, ok := recencyVote([]skillObservation{
		observation(1, 1, models.SkillLevelAdvanced),
		observation(2, 2, models.SkillLevelEmerging),
		observation(3, 3, models.SkillLevelEmerging),
		observation(4, 4, models.SkillLevelAdvanced),
	})
	require.True(t, ok)
	// both levels weigh 2.75
	require.Equal(t, models.SkillLevelAdvanced, level)

	level, ok = recencyVote([]skillObservation{
		observation(1, 2, models.SkillLevelDeveloping),
		observation(1, 1, models.SkillLevelEmerging),
	})
	require.True(t, ok)
	require.Equal(t, models.SkillLevelDeveloping, level)

	_, ok = recencyVote(nil)
	require.False(t, ok)
}

func TestUpdateStudentSkillsRecomputesFromFinalEvaluations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	service := NewSkillService(env.students, env.evaluations, env.skills, env.logger)
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	student := env.addStudent(t, "Ada Byron", "")
	var assignments []models.Assignment
	for i := 0; i < 5; i++ {
		assignments = append(assignments, env.addAssignment(t, "Task", 10, models.AssignmentTypeWritten, start.AddDate(0, 0, i)))
	}
	levels := []models.SkillLevel{
		models.SkillLevelEmerging,
		models.SkillLevelDeveloping,
		models.SkillLevelDeveloping,
		models.SkillLevelProficient,
		models.SkillLevelProficient,
	}
	for i, level := range levels {
		submission := env.addSubmission(t, student, assignments[i], "work", models.SubmissionStatusSubmitted, start.AddDate(0, 0, i))
		env.finalize(t, submission, 8, map[string]models.SkillLevel{"writing": level, "design": models.SkillLevelAdvanced}, nil, nil)
	}

	skills, err := service.UpdateStudentSkills(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, skills, 2)

	byName := map[string]models.SkillLevel{}
	for _, skill := range skills {
		byName[skill.SkillName] = skill.SkillLevel
		require.Equal(t, 5, skill.EvidenceCount)
		require.InDelta(t, 1.0, skill.Confidence, 0.001)
	}
	require.Equal(t, models.SkillLevelProficient, byName["writing"])
	require.Equal(t, models.SkillLevelAdvanced, byName["design"])

	again, err := service.UpdateStudentSkills(ctx, student.ID)
	require.NoError(t, err)
	require.Len(t, again, 2)

	_, err = service.UpdateStudentSkills(ctx, 4040)
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestUpdateAllCoversEveryStudent(t *testing.T) {
	env := newTestEnv(t)
	service := NewSkillService(env.students, env.evaluations, env.skills, env.logger)
	env.addStudent(t, "Ada Byron", "")
	env.addStudent(t, "Grace Hopper", "")

	updated, err := service.UpdateAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, updated)
}
