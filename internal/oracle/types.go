// Package oracle turns tutoring requests into model calls. It produces
// explanations and questions as free text, and judges learner answers
// through a single validated parsing boundary.
package oracle

import (
	"errors"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

var (
	// ErrUnavailable covers timeouts and provider failures. The caller
	// should retry the same phase on the next turn.
	ErrUnavailable = errors.New("oracle unavailable")

	// ErrMalformed means the model answered but not in the expected shape.
	ErrMalformed = errors.New("oracle output malformed")
)

// Purpose selects the prompt used for a generation request.
type Purpose string

const (
	PurposeExplain  Purpose = "explain"
	PurposePractice Purpose = "practice"
	PurposeAssess   Purpose = "assess"
	PurposeSummary  Purpose = "summary"
	PurposeComplete Purpose = "complete"
)

// Prompt is a generation request for one skill.
type Prompt struct {
	Purpose Purpose
	Skill   skillgraph.Skill

	// Next is the skill introduced by a summary, if any.
	Next *skillgraph.Skill

	// Struggled asks for a different angle after the learner missed a
	// question on this skill.
	Struggled bool

	// Feedback is the most recent judgment feedback, used to steer a
	// re-explanation.
	Feedback string
}

// QuestionKind says where a question came from.
type QuestionKind string

const (
	KindProbe    QuestionKind = "probe"
	KindPractice QuestionKind = "practice"
	KindAssess   QuestionKind = "assessment"
)

// Question is a posed question together with the learner's answer.
type Question struct {
	Skill  skillgraph.Skill
	Kind   QuestionKind
	Text   string
	Answer string
}

// Judgment is the oracle's verdict on an answer.
type Judgment struct {
	Correct  bool   `json:"is_correct"`
	Feedback string `json:"feedback"`
}
