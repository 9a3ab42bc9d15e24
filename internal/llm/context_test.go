package llm

import (
	"context"
	"testing"
)

func TestLabels(t *testing.T) {
	ctx := context.Background()
	if got := PurposeFrom(ctx); got != "unknown" {
		t.Errorf("PurposeFrom(empty) = %q, want unknown", got)
	}
	if got := SkillFrom(ctx); got != "" {
		t.Errorf("SkillFrom(empty) = %q, want empty", got)
	}

	ctx = WithSkill(WithPurpose(ctx, "explain"), "Integer arithmetic")
	ctx = WithPurpose(ctx, "judge")
	if got := PurposeFrom(ctx); got != "judge" {
		t.Errorf("PurposeFrom = %q, want judge", got)
	}
	if got := SkillFrom(ctx); got != "Integer arithmetic" {
		t.Errorf("SkillFrom = %q, want the skill set before the purpose changed", got)
	}
}
