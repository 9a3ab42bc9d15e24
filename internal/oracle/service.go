package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/stepwise/internal/llm"
	"github.com/abhisek/stepwise/internal/logger"
)

// Config holds oracle settings.
type Config struct {
	// Timeout bounds one oracle call, retries included.
	Timeout time.Duration

	GenerateMaxTokens int
	JudgeMaxTokens    int
	Temperature       float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:           20 * time.Second,
		GenerateMaxTokens: 1024,
		JudgeMaxTokens:    256,
		Temperature:       0.5,
	}
}

// Service answers Generate and Evaluate requests with an llm.Provider.
type Service struct {
	provider llm.Provider
	cfg      Config
	log      *logger.Logger
}

// NewService creates an oracle. A nil logger discards output.
func NewService(provider llm.Provider, cfg Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{provider: provider, cfg: cfg, log: log}
}

// Generate returns free text for the prompt.
func (s *Service) Generate(ctx context.Context, p Prompt) (string, error) {
	system, user, err := buildPrompt(p)
	if err != nil {
		return "", fmt.Errorf("build %s prompt: %w", p.Purpose, err)
	}

	ctx, cancel := s.withTimeout(llm.WithSkill(llm.WithPurpose(ctx, string(p.Purpose)), p.Skill.Name))
	defer cancel()

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
		MaxTokens:   s.cfg.GenerateMaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		s.log.Warn("oracle generate failed", "purpose", p.Purpose, "skill", p.Skill.ID, "error", err)
		return "", classify(err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty %s text", ErrMalformed, p.Purpose)
	}
	return text, nil
}

// Evaluate judges the learner's answer to q.
func (s *Service) Evaluate(ctx context.Context, q Question) (Judgment, error) {
	user, err := buildJudgeMessage(q)
	if err != nil {
		return Judgment{}, fmt.Errorf("build judge prompt: %w", err)
	}

	ctx, cancel := s.withTimeout(llm.WithSkill(llm.WithPurpose(ctx, "judge"), q.Skill.Name))
	defer cancel()

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:    judgeSystemPrompt,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: user}},
		Schema:    JudgmentSchema,
		MaxTokens: s.cfg.JudgeMaxTokens,
	})
	if err != nil {
		s.log.Warn("oracle evaluate failed", "kind", q.Kind, "skill", q.Skill.ID, "error", err)
		return Judgment{}, classify(err)
	}

	j, err := ParseJudgment(resp.Content)
	if err != nil {
		s.log.Warn("unparsable judgment", "skill", q.Skill.ID, "error", err)
		return Judgment{}, err
	}
	return j, nil
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// classify maps provider errors onto the oracle taxonomy.
func classify(err error) error {
	if llm.IsContentError(err) {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: timed out", ErrUnavailable)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// normalizeAnswer collapses whitespace so empty-looking answers compare
// equal.
func normalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
