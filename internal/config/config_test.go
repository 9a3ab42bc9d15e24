package config

import (
	"strings"
	"testing"
	"time"

	"github.com/abhisek/stepwise/internal/diagnostic"
	"github.com/abhisek/stepwise/internal/llm"
)

var envVars = []string{
	"STEPWISE_DB", "STEPWISE_ADDR", "STEPWISE_CURRICULUM", "STEPWISE_LOG_MODE",
	"STEPWISE_LOCK", "STEPWISE_REDIS_ADDR", "STEPWISE_DEFAULT_GOAL",
	"STEPWISE_PROBE_ORDER", "STEPWISE_ORACLE_TIMEOUT",
	"STEPWISE_LLM_PROVIDER", "STEPWISE_GEMINI_API_KEY", "STEPWISE_OPENAI_API_KEY",
	"STEPWISE_ANTHROPIC_API_KEY", "STEPWISE_OPENROUTER_API_KEY",
	"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range envVars {
		t.Setenv(v, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.Lock != LockMemory || cfg.LogMode != "dev" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ProbeOrder != diagnostic.OrderDescendingID {
		t.Errorf("ProbeOrder = %q", cfg.ProbeOrder)
	}
	if cfg.OracleTimeout != 20*time.Second {
		t.Errorf("OracleTimeout = %v", cfg.OracleTimeout)
	}
	if cfg.LLMErr == nil {
		t.Error("expected LLMErr without any provider key")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STEPWISE_DB", "postgres://u:p@db/stepwise")
	t.Setenv("STEPWISE_ADDR", "127.0.0.1:9000")
	t.Setenv("STEPWISE_LOCK", "redis")
	t.Setenv("STEPWISE_REDIS_ADDR", "redis:6379")
	t.Setenv("STEPWISE_DEFAULT_GOAL", "Algebra")
	t.Setenv("STEPWISE_PROBE_ORDER", "queue")
	t.Setenv("STEPWISE_ORACLE_TIMEOUT", "5s")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DB != "postgres://u:p@db/stepwise" {
		t.Errorf("DB = %q", cfg.DB)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.RedisAddr != "redis:6379" || cfg.Lock != LockRedis {
		t.Errorf("unexpected network settings: %+v", cfg)
	}
	if cfg.DefaultGoal != "Algebra" || cfg.ProbeOrder != diagnostic.OrderQueue {
		t.Errorf("unexpected tutoring settings: %+v", cfg)
	}
	if cfg.OracleTimeout != 5*time.Second {
		t.Errorf("OracleTimeout = %v", cfg.OracleTimeout)
	}
	if cfg.LLMErr != nil || cfg.LLM.Provider != llm.ProviderOpenAI {
		t.Errorf("LLM = %q, err %v; want discovered openai", cfg.LLM.Provider, cfg.LLMErr)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"probe order", map[string]string{"STEPWISE_PROBE_ORDER": "random"}, "STEPWISE_PROBE_ORDER"},
		{"timeout", map[string]string{"STEPWISE_ORACLE_TIMEOUT": "soon"}, "STEPWISE_ORACLE_TIMEOUT"},
		{"negative timeout", map[string]string{"STEPWISE_ORACLE_TIMEOUT": "-1s"}, "STEPWISE_ORACLE_TIMEOUT"},
		{"lock", map[string]string{"STEPWISE_LOCK": "etcd"}, "unknown lock backend"},
		{"redis without addr", map[string]string{"STEPWISE_LOCK": "redis"}, "STEPWISE_REDIS_ADDR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}
