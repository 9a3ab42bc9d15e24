// Package coach runs tutoring turns end to end: it serializes turns per
// learner, loads the session and the curriculum and mastery snapshot,
// steps the state machine and persists the outcome.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/stepwise/internal/logger"
	"github.com/abhisek/stepwise/internal/oracle"
	"github.com/abhisek/stepwise/internal/skillgraph"
	"github.com/abhisek/stepwise/internal/store"
	"github.com/abhisek/stepwise/internal/tutor"
)

var (
	// ErrPersistence means a session, curriculum or mastery read or write
	// failed. The turn was not applied.
	ErrPersistence = errors.New("persistence unavailable")

	ErrEmptyToken = errors.New("learner token is required")
)

// Curriculum reads the skill graph.
type Curriculum interface {
	LoadSkills(ctx context.Context) ([]skillgraph.Skill, error)
}

// MasteryStore reads and grows learner mastery sets.
type MasteryStore interface {
	Mastered(ctx context.Context, learner string) (skillgraph.MasterySet, error)
	Commit(ctx context.Context, learner string, skill skillgraph.SkillID, reason string) (bool, error)
}

// SessionStore persists serialized sessions by token.
type SessionStore interface {
	Load(ctx context.Context, token string) ([]byte, bool, error)
	Save(ctx context.Context, token string, data []byte) error
	Delete(ctx context.Context, token string) error
}

// EventRecorder appends mastery events. store.EventRepo satisfies it.
type EventRecorder interface {
	AppendMasteryEvent(ctx context.Context, data store.MasteryEventData) error
}

// Deps are the collaborators of a Coach. Events and Locker are optional.
type Deps struct {
	Curriculum Curriculum
	Mastery    MasteryStore
	Sessions   SessionStore
	Events     EventRecorder
	Machine    *tutor.Machine
	Locker     Locker
	Log        *logger.Logger
}

// Coach is the entry point for learner turns.
type Coach struct {
	curriculum Curriculum
	mastery    MasteryStore
	sessions   SessionStore
	events     EventRecorder
	machine    *tutor.Machine
	locker     Locker
	log        *logger.Logger
}

// New creates a Coach. Without a Locker, turns are serialized in process.
func New(d Deps) *Coach {
	c := &Coach{
		curriculum: d.Curriculum,
		mastery:    d.Mastery,
		sessions:   d.Sessions,
		events:     d.Events,
		machine:    d.Machine,
		locker:     d.Locker,
		log:        d.Log,
	}
	if c.locker == nil {
		c.locker = NewMemoryLocker()
	}
	if c.log == nil {
		c.log = logger.Nop()
	}
	return c
}

// Reply is what the learner sees after a turn.
type Reply struct {
	Text  string      `json:"reply"`
	Phase tutor.Phase `json:"phase"`

	// Mastered lists the skills committed during this turn.
	Mastered []skillgraph.SkillID `json:"mastered,omitempty"`
}

// HandleTurn processes one learner message.
func (c *Coach) HandleTurn(ctx context.Context, token, utterance string) (Reply, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Reply{}, ErrEmptyToken
	}

	unlock, err := c.locker.Lock(ctx, token)
	if err != nil {
		return Reply{}, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	start := time.Now()
	log := c.log.With("token", token)

	sess, err := c.loadSession(ctx, token, log)
	if err != nil {
		return Reply{}, err
	}
	snap, err := c.snapshot(ctx, token)
	if err != nil {
		return Reply{}, err
	}

	res, err := c.machine.Step(ctx, sess, utterance, snap)
	if err != nil {
		return Reply{}, fmt.Errorf("step session: %w", err)
	}

	// Commits and the session are written together even if the caller
	// has gone away by now.
	wctx := context.WithoutCancel(ctx)

	var committed []skillgraph.SkillID
	for _, e := range res.Effects {
		added, err := c.mastery.Commit(wctx, token, e.Skill, string(e.Trigger))
		if err != nil {
			return Reply{}, fmt.Errorf("%w: commit mastery: %v", ErrPersistence, err)
		}
		committed = append(committed, e.Skill)
		masteryCommits.WithLabelValues(string(e.Trigger)).Inc()
		if added {
			c.recordMastery(wctx, token, e, log)
		}
	}

	data, err := res.Session.Encode()
	if err != nil {
		return Reply{}, fmt.Errorf("encode session: %w", err)
	}
	if err := c.sessions.Save(wctx, token, data); err != nil {
		return Reply{}, fmt.Errorf("%w: save session: %v", ErrPersistence, err)
	}

	observeTurn(res, time.Since(start))
	log.Info("turn handled",
		"from", sess.Phase,
		"to", res.Session.Phase,
		"turn", res.Session.Turns,
		"committed", len(committed),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if res.OracleErr != nil {
		log.Warn("oracle failure downgraded", "phase", res.Session.Phase, "error", res.OracleErr)
	}

	return Reply{Text: res.Reply, Phase: res.Session.Phase, Mastered: committed}, nil
}

// CurrentPlan returns the plan skills the learner has not completed yet.
// A learner without a session has an empty plan.
func (c *Coach) CurrentPlan(ctx context.Context, token string) ([]skillgraph.Skill, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	sess, err := c.loadSession(ctx, token, c.log)
	if err != nil {
		return nil, err
	}
	remaining := sess.Remaining()
	if len(remaining) == 0 {
		return []skillgraph.Skill{}, nil
	}

	skills, err := c.curriculum.LoadSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load curriculum: %v", ErrPersistence, err)
	}
	g := skillgraph.New(skills)

	out := make([]skillgraph.Skill, 0, len(remaining))
	for _, id := range remaining {
		if s, err := g.Skill(id); err == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// Reset forgets the learner's session. Mastery is kept.
func (c *Coach) Reset(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	unlock, err := c.locker.Lock(ctx, token)
	if err != nil {
		return fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	if err := c.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: delete session: %v", ErrPersistence, err)
	}
	c.log.Info("session reset", "token", token)
	return nil
}

func (c *Coach) loadSession(ctx context.Context, token string, log *logger.Logger) (tutor.Session, error) {
	data, found, err := c.sessions.Load(ctx, token)
	if err != nil {
		return tutor.Session{}, fmt.Errorf("%w: load session: %v", ErrPersistence, err)
	}
	if !found {
		return tutor.NewSession(), nil
	}
	sess, err := tutor.DecodeSession(data)
	if err != nil {
		// A blob we cannot read is not an outage; start over.
		log.Warn("discarding unreadable session", "error", err)
		return tutor.NewSession(), nil
	}
	return sess, nil
}

func (c *Coach) snapshot(ctx context.Context, token string) (tutor.Snapshot, error) {
	skills, err := c.curriculum.LoadSkills(ctx)
	if err != nil {
		return tutor.Snapshot{}, fmt.Errorf("%w: load curriculum: %v", ErrPersistence, err)
	}
	mastered, err := c.mastery.Mastered(ctx, token)
	if err != nil {
		return tutor.Snapshot{}, fmt.Errorf("%w: load mastery: %v", ErrPersistence, err)
	}
	return tutor.Snapshot{Graph: skillgraph.New(skills), Mastered: mastered}, nil
}

func (c *Coach) recordMastery(ctx context.Context, token string, e tutor.CommitMastery, log *logger.Logger) {
	log.Info("skill mastered", "skill", e.Skill, "trigger", e.Trigger)
	if c.events == nil {
		return
	}
	err := c.events.AppendMasteryEvent(ctx, store.MasteryEventData{
		Learner: token,
		SkillID: e.Skill,
		Reason:  string(e.Trigger),
	})
	if err != nil {
		log.Warn("failed to record mastery event", "skill", e.Skill, "error", err)
	}
}

func oracleFailureKind(err error) string {
	if errors.Is(err, oracle.ErrMalformed) {
		return "malformed"
	}
	return "unavailable"
}
