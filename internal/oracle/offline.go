package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/stepwise/internal/llm"
)

var unsureAnswers = map[string]bool{
	"":             true,
	"?":            true,
	"idk":          true,
	"i don't know": true,
	"i dont know":  true,
	"no idea":      true,
	"not sure":     true,
	"pass":         true,
	"skip":         true,
}

// NewOfflineProvider returns a mock provider that needs no network. It
// accepts any attempted answer as correct and echoes the concept name in
// generated text, which is enough to walk through a curriculum by hand.
func NewOfflineProvider() *llm.MockProvider {
	m := llm.NewMockProvider()
	m.Respond = offlineResponse
	return m
}

func offlineResponse(req llm.Request) llm.MockResponse {
	var last string
	if n := len(req.Messages); n > 0 {
		last = req.Messages[n-1].Content
	}

	if req.Schema != nil {
		answer := normalizeAnswer(field(last, "Learner's answer:"))
		j := Judgment{Correct: true, Feedback: "That's right."}
		if unsureAnswers[answer] {
			j = Judgment{Correct: false, Feedback: "No problem, let's look at it again."}
		}
		b, _ := json.Marshal(j)
		return llm.MockResponse{Content: b}
	}

	concept := field(last, "Concept:")
	if concept == "" {
		concept = "this topic"
	}
	text := fmt.Sprintf("(offline) Let's work on **%s**. Tell me what you think.", concept)
	b, _ := json.Marshal(text)
	return llm.MockResponse{Content: b}
}

// field returns the value of the first "Label: value" line in s.
func field(s, label string) string {
	for _, line := range strings.Split(s, "\n") {
		if v, ok := strings.CutPrefix(line, label); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
