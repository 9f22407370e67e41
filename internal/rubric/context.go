package rubric

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// AssignmentContext is instructor guidance for assignments whose name contains one of Keywords.
type AssignmentContext struct {
	Keywords []string `mapstructure:"keywords"`
	Text     string   `mapstructure:"text"`
}

// TeachingContext carries course-level evaluation guidance added to every prompt.
type TeachingContext struct {
	Course      string              `mapstructure:"course"`
	Assignments []AssignmentContext `mapstructure:"assignments"`
}

// LoadTeachingContext reads a YAML (or any viper-supported) file. An empty path yields an empty context.
func LoadTeachingContext(path string) (TeachingContext, error) {
	if strings.TrimSpace(path) == "" {
		return TeachingContext{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return TeachingContext{}, fmt.Errorf("read teaching context: %w", err)
	}

	var ctx TeachingContext
	if err := v.Unmarshal(&ctx); err != nil {
		return TeachingContext{}, fmt.Errorf("decode teaching context: %w", err)
	}
	return ctx, nil
}

// ForAssignment assembles the guidance for one assignment: course text, the first assignment
// context whose keyword appears in the name, and the machine-writing guidance.
func (c TeachingContext) ForAssignment(name string) string {
	parts := make([]string, 0, 3)
	if course := strings.TrimSpace(c.Course); course != "" {
		parts = append(parts, course)
	}

	lowered := strings.ToLower(name)
	if lowered != "" {
	match:
		for _, assignment := range c.Assignments {
			for _, keyword := range assignment.Keywords {
				keyword = strings.ToLower(strings.TrimSpace(keyword))
				if keyword != "" && strings.Contains(lowered, keyword) {
					parts = append(parts, strings.TrimSpace(assignment.Text))
					break match
				}
			}
		}
	}

	parts = append(parts, aiWritingGuidance)
	return strings.Join(parts, "\n\n")
}

const aiWritingGuidance = `### Machine-written text

Estimate how likely it is that the submission was produced by a language model and report it as
ai_likelihood. A high estimate is not an automatic failure, but it should lower the score and be
mentioned in the feedback.

Signals worth weighing:
- stock vocabulary such as "delve", "leverage", "seamlessly", "robust", "holistic", "pivotal"
- stock framings such as "in today's digital landscape" or "it's worth noting that"
- contrast templates of the form "not just X, it's Y"
- padding phrases ("in order to", "due to the fact that", "at the end of the day")
- a rigid five-paragraph shape with a conclusion that restates the introduction
- no concrete detail that only this student would know

When the writing is largely generated, say so plainly and ask for the student's own analysis.
When only some phrases read as generated, point to the specific passages that are stronger.
Using tools for research or brainstorming is fine; the submission itself should be the student's voice.`
