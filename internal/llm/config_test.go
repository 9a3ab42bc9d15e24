package llm

import (
	"testing"
	"time"
)

var providerKeyVars = []string{
	"STEPWISE_LLM_PROVIDER", "STEPWISE_LLM_TIMEOUT",
	"STEPWISE_GEMINI_API_KEY", "STEPWISE_ANTHROPIC_API_KEY",
	"STEPWISE_OPENAI_API_KEY", "STEPWISE_OPENROUTER_API_KEY",
	"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
}

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range providerKeyVars {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("STEPWISE_LLM_PROVIDER", "anthropic")
	t.Setenv("STEPWISE_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("STEPWISE_ANTHROPIC_MODEL", "claude-sonnet")
	t.Setenv("STEPWISE_LLM_TIMEOUT", "7s")

	cfg := ConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Provider != ProviderAnthropic || cfg.Timeout != 7*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Model() != "claude-sonnet-4-5-20250929" {
		t.Errorf("model = %q", cfg.Model())
	}
}

func TestConfigFromEnv_BadTimeoutIgnored(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("STEPWISE_LLM_TIMEOUT", "soon")
	if got := ConfigFromEnv().Timeout; got != DefaultConfig().Timeout {
		t.Errorf("timeout = %s", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"gemini without key", Config{Provider: ProviderGemini}, true},
		{"gemini with key", Config{Provider: ProviderGemini, Gemini: GeminiConfig{APIKey: "k"}}, false},
		{"openrouter without key", Config{Provider: ProviderOpenRouter}, true},
		{"mock", Config{Provider: ProviderMock}, false},
		{"unknown", Config{Provider: "llama"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDiscoverConfig(t *testing.T) {
	clearProviderEnv(t)
	if _, ok := DiscoverConfig(); ok {
		t.Fatal("nothing should be discovered without keys")
	}

	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("OPENAI_API_KEY", "o")
	cfg, ok := DiscoverConfig()
	if !ok || cfg.Provider != ProviderOpenAI || cfg.OpenAI.APIKey != "o" {
		t.Errorf("discovered %+v, want openai ahead of anthropic", cfg)
	}
}

func TestLoadConfig_FallsBackToDiscovery(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GEMINI_API_KEY", "g")
	t.Setenv("STEPWISE_LLM_TIMEOUT", "3s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Provider != ProviderGemini || cfg.Gemini.APIKey != "g" || cfg.Timeout != 3*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_ExplicitProviderNotOverridden(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("STEPWISE_LLM_PROVIDER", "openai")
	t.Setenv("GEMINI_API_KEY", "g")

	if _, err := LoadConfig(); err == nil {
		t.Fatal("explicit provider without key should fail rather than switch vendors")
	}
}
