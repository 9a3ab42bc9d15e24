package tutor

import "fmt"

// Phase is a tutoring session state.
type Phase uint8

const (
	AwaitingGoal Phase = iota
	StartAssessment
	AssessmentAsk
	AssessmentEvaluate
	Crawl
	WalkAsk
	WalkEvaluate
	RunAsk
	RunEvaluate
	Summary
)

var phaseNames = [...]string{
	AwaitingGoal:       "awaiting_goal",
	StartAssessment:    "start_assessment",
	AssessmentAsk:      "assessment_ask",
	AssessmentEvaluate: "assessment_evaluate",
	Crawl:              "crawl",
	WalkAsk:            "walk_ask",
	WalkEvaluate:       "walk_evaluate",
	RunAsk:             "run_ask",
	RunEvaluate:        "run_evaluate",
	Summary:            "summary",
}

// Phases lists every phase in declaration order.
func Phases() []Phase {
	out := make([]Phase, len(phaseNames))
	for i := range phaseNames {
		out[i] = Phase(i)
	}
	return out
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	return int(p) < len(phaseNames)
}

// ParsePhase is the inverse of String.
func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if name == s {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid phase %d", uint8(p))
	}
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// transitions holds the legal moves between distinct phases. Staying in
// place is always allowed, as is returning to AwaitingGoal on reset.
var transitions = map[Phase][]Phase{
	AwaitingGoal:       {StartAssessment},
	StartAssessment:    {AssessmentAsk, Crawl},
	AssessmentAsk:      {AssessmentEvaluate, Crawl},
	AssessmentEvaluate: {AssessmentAsk},
	Crawl:              {WalkAsk},
	WalkAsk:            {WalkEvaluate},
	WalkEvaluate:       {RunAsk, Crawl},
	RunAsk:             {RunEvaluate},
	RunEvaluate:        {Summary, Crawl},
	Summary:            {Crawl},
}

// CanTransition reports whether the machine may move from one phase to
// another.
func CanTransition(from, to Phase) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to || to == AwaitingGoal {
		return true
	}
	for _, p := range transitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// waitsForLearner reports whether a phase consumes the learner's utterance.
func (p Phase) waitsForLearner() bool {
	switch p {
	case AwaitingGoal, AssessmentEvaluate, WalkEvaluate, RunEvaluate:
		return true
	}
	return false
}
