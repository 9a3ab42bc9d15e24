package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/stepwise/internal/curriculum"
	"github.com/abhisek/stepwise/internal/oracle"
	"github.com/abhisek/stepwise/internal/skillgraph"
	"github.com/abhisek/stepwise/internal/store"
	"github.com/abhisek/stepwise/internal/tutor"
)

type ids = []skillgraph.SkillID

type fixture struct {
	coach *Coach
	store *store.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })

	cur, err := curriculum.Default()
	require.NoError(t, err)
	require.NoError(t, s.CurriculumRepo().Replace(context.Background(), cur.Skills))

	svc := oracle.NewService(oracle.NewOfflineProvider(), oracle.DefaultConfig(), nil)
	c := New(Deps{
		Curriculum: s.CurriculumRepo(),
		Mastery:    s.MasteryRepo(),
		Sessions:   s.SessionRepo(),
		Events:     s.EventRepo(),
		Machine:    tutor.NewMachine(svc, tutor.Options{DefaultGoal: cur.DefaultGoal}),
	})
	return &fixture{coach: c, store: s}
}

func (f *fixture) turn(t *testing.T, token, msg string) Reply {
	t.Helper()
	r, err := f.coach.HandleTurn(context.Background(), token, msg)
	require.NoError(t, err, "turn %q", msg)
	require.NotEmpty(t, r.Text, "turn %q produced no reply", msg)
	return r
}

func (f *fixture) mastered(t *testing.T, token string) ids {
	t.Helper()
	m, err := f.store.MasteryRepo().Mastered(context.Background(), token)
	require.NoError(t, err)
	return m.Sorted()
}

func TestHandleTurn_FirstContact(t *testing.T) {
	f := newFixture(t)

	r := f.turn(t, "alice", "hello there")
	assert.Equal(t, tutor.AwaitingGoal, r.Phase)
	assert.Contains(t, r.Text, "couldn't find")

	data, found, err := f.store.SessionRepo().Load(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, found, "session should be saved after the first turn")
	sess, err := tutor.DecodeSession(data)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.Turns)
}

func TestHandleTurn_DiagnosticCreditsWholeClosure(t *testing.T) {
	f := newFixture(t)

	r := f.turn(t, "bob", "continue")
	require.Equal(t, tutor.AssessmentEvaluate, r.Phase)

	r = f.turn(t, "bob", "x = 3")
	assert.Equal(t, tutor.AwaitingGoal, r.Phase, "nothing left to teach")
	assert.Equal(t, ids{1, 2, 3, 4, 5, 6, 7}, r.Mastered)
	assert.Equal(t, ids{1, 2, 3, 4, 5, 6, 7}, f.mastered(t, "bob"))

	events, err := f.store.EventRepo().QueryMasteryEvents(context.Background(), store.QueryOpts{Learner: "bob"})
	require.NoError(t, err)
	require.Len(t, events, 7)
	for _, e := range events {
		assert.Equal(t, string(tutor.TriggerDiagnostic), e.Reason)
	}
}

func TestHandleTurn_TeachesToMastery(t *testing.T) {
	f := newFixture(t)
	const who = "carol"

	r := f.turn(t, who, "Integer arithmetic")
	require.Equal(t, tutor.AssessmentEvaluate, r.Phase)

	r = f.turn(t, who, "idk")
	assert.Equal(t, tutor.WalkAsk, r.Phase)
	assert.Contains(t, r.Text, "Integer arithmetic")
	assert.Empty(t, r.Mastered)

	r = f.turn(t, who, "ok")
	assert.Equal(t, tutor.WalkEvaluate, r.Phase)

	r = f.turn(t, who, "3")
	assert.Equal(t, tutor.RunEvaluate, r.Phase)

	plan, err := f.coach.CurrentPlan(context.Background(), who)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, skillgraph.SkillID(1), plan[0].ID)

	r = f.turn(t, who, "5")
	assert.Equal(t, tutor.AwaitingGoal, r.Phase)
	assert.Equal(t, ids{1}, r.Mastered)
	assert.Equal(t, ids{1}, f.mastered(t, who))

	events, err := f.store.EventRepo().QueryMasteryEvents(context.Background(), store.QueryOpts{Learner: who})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(tutor.TriggerAssessment), events[0].Reason)
}

func TestHandleTurn_LearnersAreIsolated(t *testing.T) {
	f := newFixture(t)

	f.turn(t, "dave", "continue")
	f.turn(t, "dave", "x = 3")

	r := f.turn(t, "erin", "hi")
	assert.Equal(t, tutor.AwaitingGoal, r.Phase)
	assert.Empty(t, f.mastered(t, "erin"))
}

func TestHandleTurn_CorruptSessionStartsFresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SessionRepo().Save(ctx, "frank", []byte("{not json")))

	r := f.turn(t, "frank", "Integer arithmetic")
	assert.Equal(t, tutor.AssessmentEvaluate, r.Phase)
}

func TestHandleTurn_InconsistentSessionStartsFresh(t *testing.T) {
	blobs := map[string]string{
		"grace": `{"phase":"start_assessment"}`,
		"heidi": `{"phase":"crawl","goal":{"kind":"skill","label":"x","skills":[2]},"plan":[1,2],"plan_index":-1}`,
		"ivan":  `{"phase":"walk_ask","goal":{"kind":"skill","label":"x","skills":[2]},"plan":[1,2]}`,
	}
	for token, blob := range blobs {
		t.Run(token, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			require.NoError(t, f.store.SessionRepo().Save(ctx, token, []byte(blob)))

			plan, err := f.coach.CurrentPlan(ctx, token)
			require.NoError(t, err)
			assert.Empty(t, plan)

			r := f.turn(t, token, "Integer arithmetic")
			assert.Equal(t, tutor.AssessmentEvaluate, r.Phase)
		})
	}
}

func TestHandleTurn_EmptyToken(t *testing.T) {
	f := newFixture(t)
	_, err := f.coach.HandleTurn(context.Background(), "  ", "hi")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

type failingSessions struct{ err error }

func (f failingSessions) Load(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingSessions) Save(context.Context, string, []byte) error           { return f.err }
func (f failingSessions) Delete(context.Context, string) error                 { return f.err }

type failingCurriculum struct{}

func (failingCurriculum) LoadSkills(context.Context) ([]skillgraph.Skill, error) {
	return nil, errors.New("disk on fire")
}

func TestHandleTurn_PersistenceErrors(t *testing.T) {
	f := newFixture(t)
	svc := oracle.NewService(oracle.NewOfflineProvider(), oracle.DefaultConfig(), nil)
	machine := tutor.NewMachine(svc, tutor.Options{})

	t.Run("session load", func(t *testing.T) {
		c := New(Deps{
			Curriculum: f.store.CurriculumRepo(),
			Mastery:    f.store.MasteryRepo(),
			Sessions:   failingSessions{err: errors.New("connection refused")},
			Machine:    machine,
		})
		_, err := c.HandleTurn(context.Background(), "gina", "hi")
		assert.ErrorIs(t, err, ErrPersistence)
	})

	t.Run("curriculum load", func(t *testing.T) {
		c := New(Deps{
			Curriculum: failingCurriculum{},
			Mastery:    f.store.MasteryRepo(),
			Sessions:   f.store.SessionRepo(),
			Machine:    machine,
		})
		_, err := c.HandleTurn(context.Background(), "gina", "hi")
		assert.ErrorIs(t, err, ErrPersistence)

		_, found, err := f.store.SessionRepo().Load(context.Background(), "gina")
		require.NoError(t, err)
		assert.False(t, found, "failed turn must not save a session")
	})
}

func TestCurrentPlan_NoSession(t *testing.T) {
	f := newFixture(t)
	plan, err := f.coach.CurrentPlan(context.Background(), "henry")
	require.NoError(t, err)
	assert.Empty(t, plan)
}

func TestReset_KeepsMastery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.turn(t, "ivy", "continue")
	f.turn(t, "ivy", "x = 3")
	f.turn(t, "ivy", "Integer arithmetic")

	require.NoError(t, f.coach.Reset(ctx, "ivy"))
	_, found, err := f.store.SessionRepo().Load(ctx, "ivy")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Len(t, f.mastered(t, "ivy"), 7)
}

func TestHandleTurn_ConcurrentTurnsSerialized(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.coach.HandleTurn(context.Background(), "jack", "hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, found, err := f.store.SessionRepo().Load(context.Background(), "jack")
	require.NoError(t, err)
	require.True(t, found)
	sess, err := tutor.DecodeSession(data)
	require.NoError(t, err)
	assert.Equal(t, 8, sess.Turns, "every turn must observe the previous one")
}

// cancellingOracle cancels the turn's context once the oracle has answered,
// like a client that hangs up mid-request.
type cancellingOracle struct {
	inner  tutor.Oracle
	cancel context.CancelFunc
}

func (o cancellingOracle) Generate(ctx context.Context, p oracle.Prompt) (string, error) {
	defer o.cancel()
	return o.inner.Generate(ctx, p)
}

func (o cancellingOracle) Evaluate(ctx context.Context, q oracle.Question) (oracle.Judgment, error) {
	defer o.cancel()
	return o.inner.Evaluate(ctx, q)
}

func TestHandleTurn_WritesBackAfterCallerCancels(t *testing.T) {
	f := newFixture(t)
	f.turn(t, "judy", "Integer arithmetic")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := oracle.NewService(oracle.NewOfflineProvider(), oracle.DefaultConfig(), nil)
	c := New(Deps{
		Curriculum: f.store.CurriculumRepo(),
		Mastery:    f.store.MasteryRepo(),
		Sessions:   f.store.SessionRepo(),
		Machine:    tutor.NewMachine(cancellingOracle{inner: svc, cancel: cancel}, tutor.Options{}),
	})

	r, err := c.HandleTurn(ctx, "judy", "2")
	require.NoError(t, err)
	assert.Equal(t, ids{1}, r.Mastered)
	require.Error(t, ctx.Err(), "oracle should have cancelled the turn")

	mastered, err := f.store.MasteryRepo().Mastered(context.Background(), "judy")
	require.NoError(t, err)
	assert.True(t, mastered.Has(1))

	data, found, err := f.store.SessionRepo().Load(context.Background(), "judy")
	require.NoError(t, err)
	require.True(t, found)
	sess, err := tutor.DecodeSession(data)
	require.NoError(t, err)
	assert.Equal(t, r.Phase, sess.Phase)
	assert.Equal(t, 2, sess.Turns)
}
