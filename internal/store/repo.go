package store

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	From    time.Time // created_at >= From
	Learner string    // mastery events only
}

// CurriculumRepo stores the skill graph.
type CurriculumRepo interface {
	// Replace swaps the stored curriculum for skills in one transaction.
	// Skills no longer present are removed with their edges.
	Replace(ctx context.Context, skills []skillgraph.Skill) error

	// LoadSkills returns every skill with its direct prerequisites, in
	// ascending identifier order.
	LoadSkills(ctx context.Context) ([]skillgraph.Skill, error)
}

// MasteryRepo stores per-learner mastery sets.
type MasteryRepo interface {
	Mastered(ctx context.Context, learner string) (skillgraph.MasterySet, error)

	// Commit marks skill as mastered. It is idempotent; added reports
	// whether a new row was written.
	Commit(ctx context.Context, learner string, skill skillgraph.SkillID, reason string) (added bool, err error)

	// Reset forgets every mastered skill of learner. Only administrative
	// tooling calls it; tutoring never shrinks a mastery set.
	Reset(ctx context.Context, learner string) error
}

// SessionRepo stores serialized tutoring sessions.
type SessionRepo interface {
	Load(ctx context.Context, token string) (data []byte, found bool, err error)
	Save(ctx context.Context, token string, data []byte) error
	Delete(ctx context.Context, token string) error
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	CostUSD      float64
	Success      bool
	ErrorMessage string
}

// MasteryEventData captures one mastery commit.
type MasteryEventData struct {
	Learner string
	SkillID skillgraph.SkillID
	Reason  string
}

// LLMRequestEvent is a stored LLMRequestEventData.
type LLMRequestEvent struct {
	LLMRequestEventData
	Sequence  int64
	CreatedAt time.Time
}

// MasteryEvent is a stored MasteryEventData.
type MasteryEvent struct {
	MasteryEventData
	Sequence  int64
	CreatedAt time.Time
}

// EventRepo provides append and query access to domain events. All event
// types share one global sequence.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
	AppendMasteryEvent(ctx context.Context, data MasteryEventData) error
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	QueryMasteryEvents(ctx context.Context, opts QueryOpts) ([]MasteryEvent, error)
}
