package llm

import (
	"context"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(judgmentTestSchema().Definition)

	if s.Type != genai.TypeObject {
		t.Fatalf("type = %q, want object", s.Type)
	}
	if got := s.Properties["is_correct"]; got == nil || got.Type != genai.TypeBoolean {
		t.Errorf("is_correct = %+v", got)
	}
	if got := s.Properties["feedback"]; got == nil || got.Type != genai.TypeString {
		t.Errorf("feedback = %+v", got)
	}
	if len(s.Required) != 2 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestGeminiSchema_Nested(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type":        "array",
		"description": "steps",
		"items": map[string]any{
			"type": "string",
			"enum": []string{"a", "b"},
		},
	})
	if s.Type != genai.TypeArray || s.Description != "steps" {
		t.Fatalf("schema = %+v", s)
	}
	if s.Items == nil || s.Items.Type != genai.TypeString || len(s.Items.Enum) != 2 {
		t.Errorf("items = %+v", s.Items)
	}
}

func TestStringList(t *testing.T) {
	if got := stringList([]any{"a", 1, "b"}); len(got) != 2 || got[1] != "b" {
		t.Errorf("[]any: %v", got)
	}
	if got := stringList([]string{"x"}); len(got) != 1 {
		t.Errorf("[]string: %v", got)
	}
	if got := stringList("x"); got != nil {
		t.Errorf("scalar: %v", got)
	}
}

func TestGeminiContents(t *testing.T) {
	got := geminiContents([]Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Role != genai.RoleUser || got[1].Role != genai.RoleModel {
		t.Errorf("roles = %q, %q", got[0].Role, got[1].Role)
	}
}

func TestGeminiModels(t *testing.T) {
	tests := map[string]string{
		"gemini-flash":          "gemini-2.5-flash",
		"gemini-pro":            "gemini-2.5-pro",
		"gemini-2.0-flash-lite": "gemini-2.0-flash-lite",
	}
	for name, want := range tests {
		if got := resolveModel(name, geminiModels); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), GeminiConfig{}); err == nil {
		t.Fatal("expected error without API key")
	}
}
