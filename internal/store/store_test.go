package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := Open("file:" + name + "?mode=memory&cache=shared")
	require.NoError(t, err, "open test store")
	t.Cleanup(func() { s.Close() })
	return s
}

type ids = []skillgraph.SkillID

func algebra() []skillgraph.Skill {
	return []skillgraph.Skill{
		{ID: 1, Name: "Integers", Subject: "Algebra", Stage: "Foundations", ProbeQuestion: "What is -3 + 5?"},
		{ID: 2, Name: "Variables", Subject: "Algebra", Stage: "Foundations", Prerequisites: ids{1}},
		{ID: 3, Name: "One-step equations", Subject: "Algebra", Stage: "Equations", Prerequisites: ids{2, 1, 2}},
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)

	var fk int
	require.NoError(t, s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var busy int
	require.NoError(t, s.DB().QueryRow("PRAGMA busy_timeout").Scan(&busy))
	assert.Equal(t, 5000, busy)
}

func TestMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, table := range Tables {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table.Name,
		).Scan(&name)
		require.NoError(t, err, "table %s", table.Name)
	}
}

func TestCurriculumRoundTrip(t *testing.T) {
	s := openTestStore(t)
	repo := s.CurriculumRepo()
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, algebra()))

	got, err := repo.LoadSkills(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Integers", got[0].Name)
	assert.Equal(t, "What is -3 + 5?", got[0].ProbeQuestion)
	assert.Empty(t, got[0].Prerequisites)
	assert.Equal(t, ids{1}, got[1].Prerequisites)
	assert.Equal(t, ids{1, 2}, got[2].Prerequisites, "duplicate edges collapse")
	assert.Equal(t, "Equations", got[2].Stage)
}

func TestCurriculumReplaceRemovesStale(t *testing.T) {
	s := openTestStore(t)
	repo := s.CurriculumRepo()
	ctx := context.Background()

	require.NoError(t, repo.Replace(ctx, algebra()))
	require.NoError(t, repo.Replace(ctx, []skillgraph.Skill{
		{ID: 1, Name: "Whole numbers"},
		{ID: 4, Name: "Fractions", Prerequisites: ids{1}},
	}))

	got, err := repo.LoadSkills(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Whole numbers", got[0].Name)
	assert.Equal(t, skillgraph.SkillID(4), got[1].ID)
	assert.Equal(t, ids{1}, got[1].Prerequisites)

	var edges int
	require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM prerequisites").Scan(&edges))
	assert.Equal(t, 1, edges)

	require.NoError(t, repo.Replace(ctx, nil))
	got, err = repo.LoadSkills(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMasteryCommitIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	repo := s.MasteryRepo()
	ctx := context.Background()

	added, err := repo.Commit(ctx, "learner-a", 2, "diagnostic")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = repo.Commit(ctx, "learner-a", 2, "assessment")
	require.NoError(t, err)
	assert.False(t, added, "second commit of the same skill is a no-op")

	_, err = repo.Commit(ctx, "learner-b", 3, "assessment")
	require.NoError(t, err)

	m, err := repo.Mastered(ctx, "learner-a")
	require.NoError(t, err)
	assert.Equal(t, ids{2}, m.Sorted())

	m, err = repo.Mastered(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, m.Sorted())

	require.NoError(t, repo.Reset(ctx, "learner-a"))
	m, err = repo.Mastered(ctx, "learner-a")
	require.NoError(t, err)
	assert.Empty(t, m.Sorted())

	m, err = repo.Mastered(ctx, "learner-b")
	require.NoError(t, err)
	assert.Equal(t, ids{3}, m.Sorted(), "other learners are untouched")
}

func TestSessionSaveLoadDelete(t *testing.T) {
	s := openTestStore(t)
	repo := s.SessionRepo()
	ctx := context.Background()

	_, found, err := repo.Load(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Save(ctx, "tok", []byte(`{"phase":"Crawl"}`)))
	require.NoError(t, repo.Save(ctx, "tok", []byte(`{"phase":"Walk_Ask"}`)))

	data, found, err := repo.Load(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"phase":"Walk_Ask"}`, string(data))

	require.NoError(t, repo.Delete(ctx, "tok"))
	_, found, err = repo.Load(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSequenceCounter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		seq, err := s.seq.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(i), seq)
	}
}

func TestEventsShareSequence(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "mock", Model: "mock", Purpose: "judge", Success: true, InputTokens: 10,
	}))
	require.NoError(t, repo.AppendMasteryEvent(ctx, MasteryEventData{Learner: "a", SkillID: 3, Reason: "assessment"}))
	require.NoError(t, repo.AppendMasteryEvent(ctx, MasteryEventData{Learner: "b", SkillID: 1, Reason: "diagnostic"}))
	require.NoError(t, repo.AppendLLMRequest(ctx, LLMRequestEventData{
		Provider: "mock", Model: "mock", Purpose: "explain", ErrorMessage: "boom",
	}))

	llm, err := repo.QueryLLMEvents(ctx, QueryOpts{})
	require.NoError(t, err)
	require.Len(t, llm, 2)
	assert.Equal(t, int64(1), llm[0].Sequence)
	assert.Equal(t, int64(4), llm[1].Sequence)
	assert.True(t, llm[0].Success)
	assert.Equal(t, 10, llm[0].InputTokens)
	assert.Equal(t, "boom", llm[1].ErrorMessage)
	assert.False(t, llm[1].CreatedAt.IsZero())

	mastery, err := repo.QueryMasteryEvents(ctx, QueryOpts{Learner: "b"})
	require.NoError(t, err)
	require.Len(t, mastery, 1)
	assert.Equal(t, skillgraph.SkillID(1), mastery[0].SkillID)
	assert.Equal(t, int64(3), mastery[0].Sequence)

	after, err := repo.QueryLLMEvents(ctx, QueryOpts{After: 1, Limit: 5})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "explain", after[0].Purpose)
}

func TestResolveDSN(t *testing.T) {
	driver, dialectName, source := resolveDSN("postgres://u:p@localhost/stepwise")
	assert.Equal(t, "pgx", driver)
	assert.Equal(t, "postgres", dialectName)
	assert.Equal(t, "postgres://u:p@localhost/stepwise", source)

	driver, dialectName, source = resolveDSN("/tmp/stepwise.db")
	assert.Equal(t, "sqlite", driver)
	assert.Equal(t, "sqlite3", dialectName)
	assert.True(t, strings.HasPrefix(source, "file:/tmp/stepwise.db?_pragma=busy_timeout(5000)"))
	assert.Contains(t, source, "&_pragma=foreign_keys(1)")
}

func TestEnsureDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a", "b", "stepwise.db")
	require.NoError(t, EnsureDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	for _, dsn := range []string{"", ":memory:", "file:x?mode=memory", "postgres://u@h/db"} {
		assert.NoError(t, EnsureDir(dsn), dsn)
	}
	_, err = os.Stat("file:x?mode=memory")
	assert.True(t, os.IsNotExist(err))
}
