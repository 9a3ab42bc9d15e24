package curriculum

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(c.Skills) != 7 || c.DefaultGoal != "7" {
		t.Fatalf("skills = %d, default goal = %q", len(c.Skills), c.DefaultGoal)
	}

	g := skillgraph.New(c.Skills)
	plan, err := g.BuildPlan([]skillgraph.SkillID{7}, skillgraph.NewSkillSet())
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan) != 7 || plan[0] != 1 || plan[6] != 7 {
		t.Errorf("plan = %v", plan)
	}
	for _, s := range c.Skills {
		if !s.HasProbe() || s.ExplainSeed == "" || s.PracticeSeed == "" || s.AssessSeed == "" {
			t.Errorf("skill %d is missing content", s.ID)
		}
	}
}

func TestParse(t *testing.T) {
	data := `
skills:
  - id: 10
    name: Angles
    subject: Geometry
    probe: How many degrees are in a right angle?
  - id: 11
    name: Triangles
    subject: Geometry
    prerequisites: [10]
`
	c, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(c.Skills) != 2 || c.DefaultGoal != "" {
		t.Fatalf("curriculum = %+v", c)
	}
	if !slices.Equal(c.Skills[1].Prerequisites, []skillgraph.SkillID{10}) {
		t.Errorf("prerequisites = %v", c.Skills[1].Prerequisites)
	}
	if c.Skills[0].ProbeQuestion == "" {
		t.Error("probe not mapped")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", ``, "empty"},
		{"no skills", `skills: []`, "no skills"},
		{"unknown field", "skills:\n  - id: 1\n    name: a\n    explaination: typo\n", "explaination"},
		{"cycle", "skills:\n  - {id: 1, name: a}\n  - {id: 2, name: b, prerequisites: [3]}\n  - {id: 3, name: c, prerequisites: [2]}\n", "cycle"},
		{"dangling", "skills:\n  - {id: 1, name: a, prerequisites: [9]}\n  - {id: 2, name: b}\n", "nonexistent"},
		{"bad default", "default_goal: \"42\"\nskills:\n  - {id: 1, name: a}\n", "default goal"},
		{"missing id", "skills:\n  - {name: a}\n", "must be positive"},
		{"not yaml", "skills: [", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatal(err)
	}
	data, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal()): %v\n%s", err, data)
	}
	if !slices.EqualFunc(got.Skills, c.Skills, func(a, b skillgraph.Skill) bool {
		return a.ID == b.ID && a.Name == b.Name && a.ProbeQuestion == b.ProbeQuestion &&
			slices.Equal(a.Prerequisites, b.Prerequisites)
	}) {
		t.Errorf("round trip changed skills")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("skills:\n  - {id: 1, name: Counting}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil || len(c.Skills) != 1 {
		t.Fatalf("Load = (%+v, %v)", c, err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
