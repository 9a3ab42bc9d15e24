package llm

import "context"

// labels annotate the requests made with a context. They end up in request
// events and log lines, never in the prompt.
type labels struct {
	purpose string
	skill   string
}

type labelsKey struct{}

func labelsFrom(ctx context.Context) labels {
	l, _ := ctx.Value(labelsKey{}).(labels)
	return l
}

// WithPurpose labels requests with what they are for ("explain", "judge").
func WithPurpose(ctx context.Context, purpose string) context.Context {
	l := labelsFrom(ctx)
	l.purpose = purpose
	return context.WithValue(ctx, labelsKey{}, l)
}

// WithSkill labels requests with the skill being taught or judged.
func WithSkill(ctx context.Context, skill string) context.Context {
	l := labelsFrom(ctx)
	l.skill = skill
	return context.WithValue(ctx, labelsKey{}, l)
}

// PurposeFrom returns the purpose label, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p := labelsFrom(ctx).purpose; p != "" {
		return p
	}
	return "unknown"
}

// SkillFrom returns the skill label, or "".
func SkillFrom(ctx context.Context) string {
	return labelsFrom(ctx).skill
}
