package skillgraph

import (
	"slices"
	"sort"
	"strings"
)

// Graph is an immutable view of the skills and their depends-on edges.
// It is safe for concurrent readers.
type Graph struct {
	skills     []Skill
	byID       map[SkillID]*Skill
	dependents map[SkillID][]SkillID
	bySubject  map[string][]SkillID
	byStage    map[string][]SkillID
	subjects   []string
	stages     []string
}

// New builds a graph from a slice of skills. Prerequisites that reference
// unknown skills are kept on the skill but ignored by adjacency lookups;
// use Validate to reject such data up front.
func New(skills []Skill) *Graph {
	g := &Graph{
		skills:     slices.Clone(skills),
		byID:       make(map[SkillID]*Skill, len(skills)),
		dependents: make(map[SkillID][]SkillID),
		bySubject:  make(map[string][]SkillID),
		byStage:    make(map[string][]SkillID),
	}

	sort.SliceStable(g.skills, func(i, j int) bool {
		return g.skills[i].ID < g.skills[j].ID
	})

	for i := range g.skills {
		g.byID[g.skills[i].ID] = &g.skills[i]
	}

	for i := range g.skills {
		s := &g.skills[i]
		for _, prereq := range s.Prerequisites {
			if _, ok := g.byID[prereq]; !ok || slices.Contains(g.dependents[prereq], s.ID) {
				continue
			}
			g.dependents[prereq] = append(g.dependents[prereq], s.ID)
		}
		if s.Subject != "" {
			if _, seen := g.bySubject[s.Subject]; !seen {
				g.subjects = append(g.subjects, s.Subject)
			}
			g.bySubject[s.Subject] = append(g.bySubject[s.Subject], s.ID)
		}
		if s.Stage != "" {
			if _, seen := g.byStage[s.Stage]; !seen {
				g.stages = append(g.stages, s.Stage)
			}
			g.byStage[s.Stage] = append(g.byStage[s.Stage], s.ID)
		}
	}

	return g
}

// Len returns the number of skills.
func (g *Graph) Len() int {
	return len(g.skills)
}

// Skill returns a skill by ID.
func (g *Graph) Skill(id SkillID) (Skill, error) {
	s, ok := g.byID[id]
	if !ok {
		return Skill{}, notFound(id)
	}
	return *s, nil
}

// Has reports whether id is part of the graph.
func (g *Graph) Has(id SkillID) bool {
	_, ok := g.byID[id]
	return ok
}

// Skills returns all skills in ascending identifier order.
func (g *Graph) Skills() []Skill {
	return slices.Clone(g.skills)
}

// DirectPrerequisites returns the one-hop prerequisites of id that exist in the
// graph, in ascending order.
func (g *Graph) DirectPrerequisites(id SkillID) []SkillID {
	s, ok := g.byID[id]
	if !ok {
		return nil
	}
	out := make([]SkillID, 0, len(s.Prerequisites))
	for _, p := range s.Prerequisites {
		if _, known := g.byID[p]; known && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out
}

// Dependents returns skills that directly depend on id, in ascending order.
func (g *Graph) Dependents(id SkillID) []SkillID {
	return slices.Clone(g.dependents[id])
}

// Subjects returns subject names in order of first appearance.
func (g *Graph) Subjects() []string {
	return slices.Clone(g.subjects)
}

// Stages returns stage names in order of first appearance.
func (g *Graph) Stages() []string {
	return slices.Clone(g.stages)
}

// BySubject returns the skills of a subject (case-insensitive).
func (g *Graph) BySubject(subject string) []SkillID {
	for name, ids := range g.bySubject {
		if strings.EqualFold(name, subject) {
			return slices.Clone(ids)
		}
	}
	return nil
}

// ByStage returns the skills of a stage (case-insensitive).
func (g *Graph) ByStage(stage string) []SkillID {
	for name, ids := range g.byStage {
		if strings.EqualFold(name, stage) {
			return slices.Clone(ids)
		}
	}
	return nil
}

// FindByName returns the skill whose name matches exactly (case-insensitive).
func (g *Graph) FindByName(name string) (Skill, bool) {
	for i := range g.skills {
		if strings.EqualFold(g.skills[i].Name, name) {
			return g.skills[i], true
		}
	}
	return Skill{}, false
}
