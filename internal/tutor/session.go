package tutor

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/abhisek/stepwise/internal/diagnostic"
	"github.com/abhisek/stepwise/internal/skillgraph"
)

// Session is one learner's cursor through the tutoring flow. It is a plain
// value: Step takes one and returns the next.
type Session struct {
	Phase Phase `json:"phase"`

	// Goal is the resolved scope being worked toward.
	Goal *skillgraph.Scope `json:"goal,omitempty"`

	Plan      []skillgraph.SkillID `json:"plan,omitempty"`
	PlanIndex int                  `json:"plan_index"`

	// Current is the plan skill being taught.
	Current skillgraph.SkillID `json:"current,omitempty"`

	Diagnostic diagnostic.State   `json:"diagnostic"`
	UnderTest  skillgraph.SkillID `json:"under_test,omitempty"`

	LastQuestion string `json:"last_question,omitempty"`
	LastFeedback string `json:"last_feedback,omitempty"`
	LastReply    string `json:"last_reply,omitempty"`

	// Misses counts incorrect answers per skill since it was last started.
	Misses map[skillgraph.SkillID]int `json:"misses,omitempty"`

	Turns int `json:"turns"`
}

// NewSession returns a session waiting for a goal.
func NewSession() Session {
	return Session{Phase: AwaitingGoal}
}

// Remaining returns the plan skills not yet completed.
func (s Session) Remaining() []skillgraph.SkillID {
	if s.PlanIndex < 0 || s.PlanIndex >= len(s.Plan) {
		return nil
	}
	return s.Plan[s.PlanIndex:]
}

// clear drops everything tied to the current goal. Turns survive.
func (s *Session) clear() {
	*s = Session{Phase: AwaitingGoal, Turns: s.Turns}
}

// Encode serializes the session for storage.
func (s Session) Encode() ([]byte, error) {
	return json.Marshal(s)
}

// DecodeSession restores a stored session. A blob that decodes but does not
// describe a reachable session is rejected like unreadable JSON.
func DecodeSession(b []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Validate checks that the fields the current phase relies on are present.
func (s Session) Validate() error {
	if !s.Phase.Valid() {
		return fmt.Errorf("invalid phase %d", uint8(s.Phase))
	}
	if s.PlanIndex < 0 || s.PlanIndex > len(s.Plan) {
		return fmt.Errorf("plan index %d outside plan of %d skills", s.PlanIndex, len(s.Plan))
	}
	if s.Phase != AwaitingGoal && s.Goal == nil {
		return fmt.Errorf("phase %s without a goal", s.Phase)
	}
	switch s.Phase {
	case WalkAsk, WalkEvaluate, RunAsk, RunEvaluate, Summary:
		if s.Current == 0 {
			return fmt.Errorf("phase %s without a current skill", s.Phase)
		}
	}
	for _, n := range s.Misses {
		if n < 0 {
			return errors.New("negative miss count")
		}
	}
	return nil
}
