package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/stepwise/internal/logger"
)

// NewProvider creates a Provider from configuration, wrapped so that every
// attempt is recorded and transient failures are retried:
// caller → retry → logging → base.
func NewProvider(ctx context.Context, cfg Config, events EventRecorder, log *logger.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case ProviderMock:
		if cfg.Mock != nil {
			base = cfg.Mock
		} else {
			base = NewMockProvider()
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	retry := cfg.Retry
	if retry.Budget == 0 {
		retry.Budget = cfg.Timeout
	}
	logged := WithLogging(base, cfg.Provider, events, log)
	return WithRetry(logged, retry), nil
}
