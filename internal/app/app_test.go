package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/stepwise/internal/config"
	"github.com/abhisek/stepwise/internal/skillgraph"
	"github.com/abhisek/stepwise/internal/tutor"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.DB = "file:" + name + "?mode=memory&cache=shared"
	return cfg
}

func TestNew_OfflineSeedsBuiltinCurriculum(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t), nil, Options{Offline: true})
	require.NoError(t, err)
	defer a.Close()

	skills, err := a.Store.CurriculumRepo().LoadSkills(ctx)
	require.NoError(t, err)
	assert.Len(t, skills, 7)

	r, err := a.Coach.HandleTurn(ctx, "alice", "continue")
	require.NoError(t, err)
	assert.Equal(t, tutor.AssessmentEvaluate, r.Phase, "default goal should start placement")
}

func TestNew_KeepsExistingCurriculum(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	first, err := New(ctx, cfg, nil, Options{Offline: true})
	require.NoError(t, err)
	defer first.Close()
	require.NoError(t, first.Store.CurriculumRepo().Replace(ctx, []skillgraph.Skill{
		{ID: 1, Name: "Counting", ProbeQuestion: "What comes after 4?"},
	}))

	second, err := New(ctx, cfg, nil, Options{Offline: true})
	require.NoError(t, err)
	defer second.Close()

	skills, err := second.Store.CurriculumRepo().LoadSkills(ctx)
	require.NoError(t, err)
	require.Len(t, skills, 1)
	assert.Equal(t, "Counting", skills[0].Name)
}

func TestNew_CurriculumFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geometry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_goal: Angles
skills:
  - id: 1
    name: Angles
    subject: Geometry
    probe: How many degrees are in a right angle?
`), 0o644))

	cfg := testConfig(t)
	cfg.Curriculum = path
	a, err := New(context.Background(), cfg, nil, Options{Offline: true})
	require.NoError(t, err)
	defer a.Close()

	r, err := a.Coach.HandleTurn(context.Background(), "bob", "default")
	require.NoError(t, err)
	assert.Equal(t, tutor.AssessmentEvaluate, r.Phase)
	assert.Contains(t, r.Text, "right angle")
}

func TestNew_Errors(t *testing.T) {
	t.Run("llm not configured", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.LLMErr = assert.AnError
		_, err := New(context.Background(), cfg, nil, Options{})
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("missing curriculum file", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Curriculum = filepath.Join(t.TempDir(), "nope.yaml")
		_, err := New(context.Background(), cfg, nil, Options{Offline: true})
		assert.Error(t, err)
	})
}
