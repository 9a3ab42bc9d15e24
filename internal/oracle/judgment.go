package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/stepwise/internal/llm"
)

// JudgmentSchema constrains evaluation responses.
var JudgmentSchema = &llm.Schema{
	Name:        "answer-judgment",
	Description: "Whether the learner's answer is correct, with short feedback",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{
				"type":        "boolean",
				"description": "True only if the answer is correct and complete",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "One or two encouraging sentences addressed to the learner",
				"minLength":   1,
			},
		},
		"required":             []any{"is_correct", "feedback"},
		"additionalProperties": false,
	},
}

// ParseJudgment extracts a Judgment from raw model output. It tolerates
// Markdown code fences and prose around the object, then validates the
// object against JudgmentSchema. Every failure wraps ErrMalformed.
func ParseJudgment(raw []byte) (Judgment, error) {
	obj := llm.ExtractJSON(raw)
	if len(obj) == 0 {
		return Judgment{}, fmt.Errorf("%w: empty response", ErrMalformed)
	}
	if err := llm.ValidateJSON(JudgmentSchema, obj); err != nil {
		return Judgment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var j Judgment
	if err := json.Unmarshal(obj, &j); err != nil {
		return Judgment{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	j.Feedback = strings.TrimSpace(j.Feedback)
	if j.Feedback == "" {
		return Judgment{}, fmt.Errorf("%w: empty feedback", ErrMalformed)
	}
	return j, nil
}
