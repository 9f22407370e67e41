package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/jamditis/class/internal/models"
	"github.com/jamditis/class/internal/rubric"
	"github.com/jamditis/class/pkg/ai"
)

// PromptVersion identifies the evaluation prompt and response contract stored with each evaluation.
const PromptVersion = "1.1"

// DefaultContentLimit caps how many characters of a submission reach the evaluator.
const DefaultContentLimit = 10000

const evaluationSystemPrompt = "You are an experienced instructor evaluating student work for an undergraduate multimedia production course. " +
	"Be specific, constructive and honest. Calibrate scores carefully: not every submission is advanced, and emerging does not mean failure."

const evaluationResponseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["overall_score", "skill_ratings", "strengths", "areas_for_improvement", "overall_feedback"],
  "properties": {
    "overall_score": {"type": "number"},
    "score_breakdown": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "level": {"type": "string"},
          "score": {"type": "number"},
          "feedback": {"type": "string"}
        }
      }
    },
    "skill_ratings": {
      "type": "object",
      "additionalProperties": {"enum": ["emerging", "developing", "proficient", "advanced"]}
    },
    "strengths": {"type": "array", "items": {"type": "string"}},
    "areas_for_improvement": {"type": "array", "items": {"type": "string"}},
    "overall_feedback": {"type": "string"},
    "next_steps": {"type": "string"},
    "ai_likelihood": {
      "type": "object",
      "required": ["score"],
      "properties": {
        "score": {"type": "number", "minimum": 0, "maximum": 100},
        "signals": {"type": "array", "items": {"type": "string"}},
        "note": {"type": "string"}
      }
    }
  }
}`

var evaluationSchema = jsonschema.MustCompileString("evaluation_response.json", evaluationResponseSchema)

// scoredResponse is the evaluator output once it passes the schema.
type scoredResponse struct {
	OverallScore        float64                          `json:"overall_score"`
	ScoreBreakdown      map[string]models.CriterionScore `json:"score_breakdown"`
	SkillRatings        map[string]models.SkillLevel     `json:"skill_ratings"`
	Strengths           []string                         `json:"strengths"`
	AreasForImprovement []string                         `json:"areas_for_improvement"`
	OverallFeedback     string                           `json:"overall_feedback"`
	NextSteps           string                           `json:"next_steps"`
	AILikelihood        *models.AILikelihood             `json:"ai_likelihood"`
}

type evaluationPrompt struct {
	AssignmentName  string
	Description     string
	PointsPossible  float64
	Rubric          rubric.Rubric
	TeachingContext string
	ContextNotes    string
	Content         string
	ContentLimit    int
}

func buildEvaluationPrompt(in evaluationPrompt) ai.Prompt {
	limit := in.ContentLimit
	if limit <= 0 {
		limit = DefaultContentLimit
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ASSIGNMENT: %s\n", in.AssignmentName)
	fmt.Fprintf(&b, "DESCRIPTION: %s\n", in.Description)
	fmt.Fprintf(&b, "POINTS POSSIBLE: %s\n\n", formatPoints(in.PointsPossible))
	b.WriteString("RUBRIC CRITERIA:\n")
	b.WriteString(rubric.Render(in.Rubric))

	if ctx := strings.TrimSpace(in.TeachingContext); ctx != "" {
		b.WriteString("\nTEACHING CONTEXT:\n")
		b.WriteString(ctx)
		b.WriteString("\n")
	}
	if notes := strings.TrimSpace(in.ContextNotes); notes != "" {
		b.WriteString("\nINSTRUCTOR NOTES FOR THIS SUBMISSION:\n")
		b.WriteString(notes)
		b.WriteString("\n")
	}

	b.WriteString("\nSTUDENT SUBMISSION:\n---\n")
	b.WriteString(truncateRunes(in.Content, limit))
	b.WriteString("\n---\n\n")
	fmt.Fprintf(&b, `Evaluate this submission and respond with a JSON object containing:

{
  "overall_score": <number from 0 to %s>,
  "score_breakdown": {"<criterion name>": {"level": "<emerging|developing|proficient|advanced>", "score": <number>, "feedback": "<brief specific feedback>"}},
  "skill_ratings": {"<skill name>": "<emerging|developing|proficient|advanced>"},
  "strengths": ["<specific strength>"],
  "areas_for_improvement": ["<specific area>"],
  "overall_feedback": "<2-3 sentences of constructive, encouraging feedback>",
  "next_steps": "<1-2 specific suggestions for what to focus on next>",
  "ai_likelihood": {"score": <0-100>, "signals": ["<observed signal>"], "note": "<one sentence>"}
}

Reference actual content from the submission. Respond ONLY with the JSON object.`, formatPoints(in.PointsPossible))

	return ai.Prompt{
		System: evaluationSystemPrompt,
		User:   b.String(),
		JSON:   true,
	}
}

// parseScoredResponse validates raw evaluator output against the response schema.
func parseScoredResponse(raw string) (scoredResponse, error) {
	var doc interface{}
	if err := decodeStructured(raw, evaluationSchema, &doc, normalizeRatings); err != nil {
		return scoredResponse{}, err
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return scoredResponse{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	var parsed scoredResponse
	if err := json.Unmarshal(encoded, &parsed); err != nil {
		return scoredResponse{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	for name, criterion := range parsed.ScoreBreakdown {
		if level, ok := models.ParseSkillLevel(string(criterion.Level)); ok {
			criterion.Level = level
			parsed.ScoreBreakdown[name] = criterion
		}
	}
	return parsed, nil
}

// decodeStructured strips code fences, decodes JSON and validates it against schema.
// Optional fixups run on the decoded document before validation.
func decodeStructured(raw string, schema *jsonschema.Schema, out *interface{}, fixups ...func(interface{})) error {
	text := stripCodeFences(raw)
	if text == "" {
		return fmt.Errorf("%w: empty response", ErrParse)
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}
	for _, fix := range fixups {
		fix(doc)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	*out = doc
	return nil
}

// normalizeRatings lowercases skill rating labels so "Proficient " validates as proficient.
func normalizeRatings(doc interface{}) {
	root, ok := doc.(map[string]interface{})
	if !ok {
		return
	}
	ratings, ok := root["skill_ratings"].(map[string]interface{})
	if !ok {
		return
	}
	for skill, value := range ratings {
		if label, ok := value.(string); ok {
			ratings[skill] = strings.ToLower(strings.TrimSpace(label))
		}
	}
}

func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if newline := strings.IndexByte(text, '\n'); newline >= 0 {
			text = text[newline+1:]
		} else {
			text = strings.TrimPrefix(text, "json")
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func truncateRunes(value string, limit int) string {
	if limit <= 0 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

// clampScore bounds score to [0, pointsPossible]; ungraded assignments only clamp at zero.
func clampScore(score, pointsPossible float64) float64 {
	if score < 0 {
		return 0
	}
	if pointsPossible > 0 && score > pointsPossible {
		return pointsPossible
	}
	return score
}

func formatPoints(points float64) string {
	return strconv.FormatFloat(points, 'f', -1, 64)
}
