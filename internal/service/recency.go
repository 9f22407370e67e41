package service

import (
	"sort"
	"strings"
	"time"

	"github.com/jamditis/class/internal/models"
)

// skillObservation is one skill rating taken from a final evaluation.
type skillObservation struct {
	At           time.Time
	EvaluationID uint
	Level        models.SkillLevel
}

// evaluationTime is when the rated work happened: the submission time, else the evaluation time.
func evaluationTime(evaluation models.Evaluation, submission models.Submission) time.Time {
	if submission.SubmittedAt != nil {
		return *submission.SubmittedAt
	}
	return evaluation.CreatedAt
}

// collectObservations groups the valid skill ratings of final evaluations by normalised skill name.
// Unknown level labels are dropped.
func collectObservations(evaluations []models.Evaluation) map[string][]skillObservation {
	bySkill := make(map[string][]skillObservation)
	for _, evaluation := range evaluations {
		at := evaluationTime(evaluation, evaluation.Submission)
		for skill, raw := range evaluation.Ratings() {
			level, ok := models.ParseSkillLevel(string(raw))
			name := strings.TrimSpace(skill)
			if !ok || name == "" {
				continue
			}
			bySkill[name] = append(bySkill[name], skillObservation{At: at, EvaluationID: evaluation.ID, Level: level})
		}
	}
	return bySkill
}

// recencyVote picks the level with the largest recency-weighted support.
// Observations are ordered oldest first and observation i of n weighs 1 + i/n.
// Ties go to the level that appeared first chronologically.
func recencyVote(observations []skillObservation) (models.SkillLevel, bool) {
	if len(observations) == 0 {
		return "", false
	}

	ordered := make([]skillObservation, len(observations))
	copy(ordered, observations)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].At.Equal(ordered[j].At) {
			return ordered[i].At.Before(ordered[j].At)
		}
		return ordered[i].EvaluationID < ordered[j].EvaluationID
	})

	n := float64(len(ordered))
	weights := make(map[models.SkillLevel]float64)
	var firstSeen []models.SkillLevel
	for i, obs := range ordered {
		if _, seen := weights[obs.Level]; !seen {
			firstSeen = append(firstSeen, obs.Level)
		}
		weights[obs.Level] += 1 + float64(i)/n
	}

	winner := firstSeen[0]
	for _, level := range firstSeen[1:] {
		if weights[level] > weights[winner] {
			winner = level
		}
	}
	return winner, true
}

// currentSkills resolves every skill's current level from a set of final evaluations.
func currentSkills(evaluations []models.Evaluation) map[string]models.SkillLevel {
	skills := make(map[string]models.SkillLevel)
	for skill, observations := range collectObservations(evaluations) {
		if level, ok := recencyVote(observations); ok {
			skills[skill] = level
		}
	}
	return skills
}
