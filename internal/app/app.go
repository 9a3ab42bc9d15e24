// Package app wires the store, curriculum, oracle and coach together.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/abhisek/stepwise/internal/coach"
	"github.com/abhisek/stepwise/internal/config"
	"github.com/abhisek/stepwise/internal/curriculum"
	"github.com/abhisek/stepwise/internal/llm"
	"github.com/abhisek/stepwise/internal/logger"
	"github.com/abhisek/stepwise/internal/oracle"
	"github.com/abhisek/stepwise/internal/store"
	"github.com/abhisek/stepwise/internal/tutor"
)

// Options select optional behaviour of New.
type Options struct {
	// Offline replaces the configured LLM with a canned local oracle.
	Offline bool
}

// App holds the long-lived dependencies of a process.
type App struct {
	Config config.Config
	Log    *logger.Logger
	Store  *store.Store
	Coach  *coach.Coach

	closers []io.Closer
}

// New opens the store, seeds the curriculum when the store has none and
// builds the coach.
func New(ctx context.Context, cfg config.Config, log *logger.Logger, opts Options) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Log: log}

	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Store = st
	a.closers = append(a.closers, st)

	cur, err := a.seedCurriculum(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	provider, err := a.provider(ctx, opts)
	if err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.locker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	ocfg := oracle.DefaultConfig()
	ocfg.Timeout = cfg.OracleTimeout
	svc := oracle.NewService(provider, ocfg, log.With("service", "oracle"))

	goal := cfg.DefaultGoal
	if goal == "" && cur != nil {
		goal = cur.DefaultGoal
	}
	machine := tutor.NewMachine(svc, tutor.Options{
		ProbeOrder:  cfg.ProbeOrder,
		DefaultGoal: goal,
		Log:         log.With("service", "tutor"),
	})

	a.Coach = coach.New(coach.Deps{
		Curriculum: st.CurriculumRepo(),
		Mastery:    st.MasteryRepo(),
		Sessions:   st.SessionRepo(),
		Events:     st.EventRepo(),
		Machine:    machine,
		Locker:     locker,
		Log:        log.With("service", "coach"),
	})
	return a, nil
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the configured database, or the per-user default.
func OpenStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	dsn := cfg.DB
	if dsn == "" {
		var err error
		if dsn, err = store.DefaultDBPath(); err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
	} else if err := store.EnsureDir(dsn); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	st, err := store.OpenContext(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// LoadCurriculum reads the configured file, or the built-in path.
func LoadCurriculum(cfg config.Config) (*curriculum.Curriculum, error) {
	if cfg.Curriculum != "" {
		return curriculum.Load(cfg.Curriculum)
	}
	return curriculum.Default()
}

// seedCurriculum imports the configured curriculum into an empty store. A
// store that already holds skills is left alone; use the import command to
// replace it.
func (a *App) seedCurriculum(ctx context.Context) (*curriculum.Curriculum, error) {
	cur, err := LoadCurriculum(a.Config)
	if err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	repo := a.Store.CurriculumRepo()
	existing, err := repo.LoadSkills(ctx)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}
	if len(existing) > 0 {
		return cur, nil
	}

	if err := repo.Replace(ctx, cur.Skills); err != nil {
		return nil, fmt.Errorf("seed curriculum: %w", err)
	}
	a.Log.Info("curriculum seeded", "skills", len(cur.Skills), "default_goal", cur.DefaultGoal)
	return cur, nil
}

func (a *App) provider(ctx context.Context, opts Options) (llm.Provider, error) {
	cfg := a.Config.LLM
	if opts.Offline {
		cfg = llm.DefaultConfig()
		cfg.Provider = llm.ProviderMock
		cfg.Mock = oracle.NewOfflineProvider()
	} else if a.Config.LLMErr != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", a.Config.LLMErr)
	}

	p, err := llm.NewProvider(ctx, cfg, a.Store.EventRepo(), a.Log.With("service", "llm"))
	if err != nil {
		return nil, err
	}
	a.Log.Info("llm provider ready", "provider", cfg.Provider, "model", p.ModelID())
	return p, nil
}

func (a *App) locker(ctx context.Context) (coach.Locker, error) {
	if a.Config.Lock != config.LockRedis {
		return coach.NewMemoryLocker(), nil
	}
	l, err := coach.NewRedisLocker(ctx, a.Config.RedisAddr, coach.RedisLockerConfig{}, a.Log)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.closers = append(a.closers, l)
	return l, nil
}
