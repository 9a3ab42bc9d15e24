// Package config collects process settings from STEPWISE_* environment
// variables. Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/abhisek/stepwise/internal/diagnostic"
	"github.com/abhisek/stepwise/internal/llm"
)

// Lock backends accepted by Config.Lock.
const (
	LockMemory = "memory"
	LockRedis  = "redis"
)

type Config struct {
	// DB is a SQLite path or URI, or a postgres:// DSN. Empty means the
	// per-user default location.
	DB string

	// Addr is the HTTP listen address.
	Addr string

	// Curriculum is a YAML file seeded into an empty store. Empty means the
	// built-in algebra path.
	Curriculum string

	LogMode string

	Lock      string
	RedisAddr string

	// DefaultGoal overrides the curriculum's default goal.
	DefaultGoal string
	ProbeOrder  diagnostic.Order

	OracleTimeout time.Duration

	LLM llm.Config

	// LLMErr is set when no usable provider is configured. Commands that
	// need the oracle fail with it; the rest ignore it.
	LLMErr error
}

// Default returns settings for a local single-process run.
func Default() Config {
	return Config{
		Addr:          ":8080",
		LogMode:       "dev",
		Lock:          LockMemory,
		ProbeOrder:    diagnostic.OrderDescendingID,
		OracleTimeout: 20 * time.Second,
	}
}

// FromEnv overlays the environment on Default. It returns an error only for
// values that are present but invalid.
func FromEnv() (Config, error) {
	cfg := Default()

	setString(&cfg.DB, "STEPWISE_DB")
	setString(&cfg.Addr, "STEPWISE_ADDR")
	setString(&cfg.Curriculum, "STEPWISE_CURRICULUM")
	setString(&cfg.LogMode, "STEPWISE_LOG_MODE")
	setString(&cfg.Lock, "STEPWISE_LOCK")
	cfg.Lock = strings.ToLower(cfg.Lock)
	setString(&cfg.RedisAddr, "STEPWISE_REDIS_ADDR")
	setString(&cfg.DefaultGoal, "STEPWISE_DEFAULT_GOAL")

	if v := os.Getenv("STEPWISE_PROBE_ORDER"); v != "" {
		order, err := diagnostic.ParseOrder(v)
		if err != nil {
			return cfg, fmt.Errorf("STEPWISE_PROBE_ORDER: %w", err)
		}
		cfg.ProbeOrder = order
	}

	if v := os.Getenv("STEPWISE_ORACLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return cfg, fmt.Errorf("STEPWISE_ORACLE_TIMEOUT: invalid duration %q", v)
		}
		cfg.OracleTimeout = d
	}

	cfg.LLM, cfg.LLMErr = llm.LoadConfig()
	return cfg, cfg.Validate()
}

// Validate checks the non-LLM settings.
func (c Config) Validate() error {
	switch c.Lock {
	case LockMemory:
	case LockRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("STEPWISE_REDIS_ADDR is required when STEPWISE_LOCK=redis")
		}
	default:
		return fmt.Errorf("unknown lock backend %q (want %q or %q)", c.Lock, LockMemory, LockRedis)
	}
	if c.Addr == "" {
		return fmt.Errorf("listen address is empty")
	}
	return nil
}

func setString(dst *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*dst = v
	}
}
