// Package rubric resolves, validates and renders the scoring rubrics used by the evaluator.
package rubric

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jamditis/class/internal/models"
)

// Rubric and Criterion are stored on assignments as JSON, so the model types are shared.
type (
	Rubric    = models.Rubric
	Criterion = models.Criterion
)

// ErrInvalidRubric is returned by Validate for malformed rubrics.
var ErrInvalidRubric = errors.New("invalid rubric")

// Resolve returns the effective rubric for an assignment: its custom rubric when it has criteria,
// otherwise the default for its type, otherwise the general rubric.
func Resolve(assignment models.Assignment) Rubric {
	if custom := assignment.CustomRubric(); custom != nil && len(custom.Criteria) > 0 {
		return *custom
	}
	return ForType(assignment.AssignmentType)
}

// ForType returns the built-in rubric for an assignment type, falling back to general.
func ForType(assignmentType string) Rubric {
	defaults := Defaults()
	if r, ok := defaults[strings.ToLower(strings.TrimSpace(assignmentType))]; ok {
		return r
	}
	return defaults[models.AssignmentTypeGeneral]
}

// Validate checks that a custom rubric can drive an evaluation.
func Validate(r Rubric) error {
	if len(r.Criteria) == 0 {
		return fmt.Errorf("%w: at least one criterion is required", ErrInvalidRubric)
	}

	seen := make(map[string]struct{}, len(r.Criteria))
	for i, criterion := range r.Criteria {
		name := strings.TrimSpace(criterion.Name)
		if name == "" {
			return fmt.Errorf("%w: criterion %d has no name", ErrInvalidRubric, i+1)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate criterion %q", ErrInvalidRubric, name)
		}
		seen[key] = struct{}{}

		if criterion.Weight <= 0 {
			return fmt.Errorf("%w: criterion %q must have a positive weight", ErrInvalidRubric, name)
		}
		for _, level := range models.SkillLevels {
			if strings.TrimSpace(criterion.Levels[level]) == "" {
				return fmt.Errorf("%w: criterion %q is missing the %s level", ErrInvalidRubric, name, level)
			}
		}
	}
	return nil
}

// Render formats the criteria as a numbered list for an evaluation prompt.
// Levels are listed from advanced down to emerging.
func Render(r Rubric) string {
	var b strings.Builder
	for i, criterion := range r.Criteria {
		fmt.Fprintf(&b, "%d. %s (%d%%)\n", i+1, criterion.Name, criterion.Weight)
		if criterion.Description != "" {
			fmt.Fprintf(&b, "   Description: %s\n", criterion.Description)
		}
		if len(criterion.Levels) == 0 {
			continue
		}
		b.WriteString("   Levels:\n")
		for _, level := range models.SkillLevels {
			if text, ok := criterion.Levels[level]; ok {
				fmt.Fprintf(&b, "   - %s: %s\n", level, text)
			}
		}
	}
	return b.String()
}

// Skills returns the skills a rubric assesses, falling back to the assignment's own list.
func Skills(r Rubric, assignment models.Assignment) []string {
	if len(r.SkillsAssessed) > 0 {
		return r.SkillsAssessed
	}
	return assignment.SkillsAssessed
}
