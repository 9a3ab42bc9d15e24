package skillgraph

import (
	"fmt"
	"strconv"
	"strings"
)

// ScopeKind says how a goal was interpreted.
type ScopeKind string

const (
	ScopeSkill   ScopeKind = "skill"
	ScopeSubject ScopeKind = "subject"
	ScopeStage   ScopeKind = "stage"
)

// Scope is a resolved learning goal.
type Scope struct {
	Kind   ScopeKind `json:"kind"`
	Label  string    `json:"label"`
	Skills []SkillID `json:"skills"`
}

// ErrAmbiguousGoal is returned when a goal matches more than one skill by name.
type ErrAmbiguousGoal struct {
	Text    string
	Matches []Skill
}

func (e *ErrAmbiguousGoal) Error() string {
	names := make([]string, len(e.Matches))
	for i, s := range e.Matches {
		names[i] = s.Name
	}
	return fmt.Sprintf("goal %q matches several skills: %s", e.Text, strings.Join(names, ", "))
}

// ResolveScope interprets a learner's stated goal. It tries, in order: a skill
// identifier ("7", "skill 7", "#7"), an exact skill name, a subject, a stage,
// and finally a unique partial skill name. Unknown text yields an error
// wrapping ErrSkillNotFound.
func (g *Graph) ResolveScope(text string) (Scope, error) {
	goal := normalizeGoal(text)
	if goal == "" {
		return Scope{}, fmt.Errorf("%w: empty goal", ErrSkillNotFound)
	}

	if id, ok := parseSkillRef(goal); ok {
		s, err := g.Skill(id)
		if err != nil {
			return Scope{}, err
		}
		return Scope{Kind: ScopeSkill, Label: s.Name, Skills: []SkillID{s.ID}}, nil
	}

	if s, ok := g.FindByName(goal); ok {
		return Scope{Kind: ScopeSkill, Label: s.Name, Skills: []SkillID{s.ID}}, nil
	}

	for _, subject := range g.subjects {
		if strings.EqualFold(subject, goal) {
			return Scope{Kind: ScopeSubject, Label: subject, Skills: g.BySubject(subject)}, nil
		}
	}
	for _, stage := range g.stages {
		if strings.EqualFold(stage, goal) {
			return Scope{Kind: ScopeStage, Label: stage, Skills: g.ByStage(stage)}, nil
		}
	}

	var matches []Skill
	for _, s := range g.skills {
		if strings.Contains(strings.ToLower(s.Name), goal) {
			matches = append(matches, s)
		}
	}
	switch len(matches) {
	case 0:
		return Scope{}, fmt.Errorf("%w: no skill, subject or stage matches %q", ErrSkillNotFound, text)
	case 1:
		return Scope{Kind: ScopeSkill, Label: matches[0].Name, Skills: []SkillID{matches[0].ID}}, nil
	default:
		return Scope{}, &ErrAmbiguousGoal{Text: text, Matches: matches}
	}
}

// goalPrefixes are filler phrases learners put in front of the actual topic.
var goalPrefixes = []string{
	"i want to learn ",
	"i'd like to learn ",
	"teach me ",
	"learn ",
	"i want to study ",
	"study ",
}

func normalizeGoal(text string) string {
	goal := strings.ToLower(strings.TrimSpace(text))
	goal = strings.TrimRight(goal, ".!?")
	for _, p := range goalPrefixes {
		if strings.HasPrefix(goal, p) {
			goal = strings.TrimPrefix(goal, p)
			break
		}
	}
	goal = strings.TrimPrefix(goal, "about ")
	return strings.TrimSpace(goal)
}

func parseSkillRef(goal string) (SkillID, bool) {
	goal = strings.TrimPrefix(goal, "skill")
	goal = strings.TrimSpace(strings.TrimPrefix(goal, "#"))
	n, err := strconv.Atoi(goal)
	if err != nil {
		return 0, false
	}
	return SkillID(n), true
}
