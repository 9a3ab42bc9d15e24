package skillgraph

import (
	"fmt"
	"slices"
	"strings"
)

// Validate performs the structural checks a curriculum must pass before it is
// stored. Returns a combined error describing all problems found, or nil.
func Validate(skills []Skill) error {
	var errs []string

	idSet := make(map[SkillID]bool, len(skills))
	for _, s := range skills {
		if idSet[s.ID] {
			errs = append(errs, fmt.Sprintf("duplicate skill ID: %d", s.ID))
		}
		idSet[s.ID] = true
		if s.ID <= 0 {
			errs = append(errs, fmt.Sprintf("skill ID %d must be positive", s.ID))
		}
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, fmt.Sprintf("skill %d has no name", s.ID))
		}
	}

	for _, s := range skills {
		for _, prereq := range s.Prerequisites {
			if !idSet[prereq] {
				errs = append(errs, fmt.Sprintf("skill %d references nonexistent prerequisite %d", s.ID, prereq))
			}
			if prereq == s.ID {
				errs = append(errs, fmt.Sprintf("skill %d lists itself as a prerequisite", s.ID))
			}
		}
	}

	// Cycle check with Kahn's algorithm over known edges.
	inDegree := make(map[SkillID]int, len(skills))
	adj := make(map[SkillID][]SkillID)
	for _, s := range skills {
		seen := make(map[SkillID]bool)
		for _, prereq := range s.Prerequisites {
			if !idSet[prereq] || seen[prereq] {
				continue
			}
			seen[prereq] = true
			inDegree[s.ID]++
			adj[prereq] = append(adj[prereq], s.ID)
		}
	}

	var queue []SkillID
	for id := range idSet {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range adj[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited < len(idSet) {
		var cycleNodes []SkillID
		for id := range idSet {
			if inDegree[id] > 0 {
				cycleNodes = append(cycleNodes, id)
			}
		}
		slices.Sort(cycleNodes)
		parts := make([]string, len(cycleNodes))
		for i, id := range cycleNodes {
			parts[i] = id.String()
		}
		errs = append(errs, fmt.Sprintf("cycle detected involving skills: %s", strings.Join(parts, ", ")))
	}

	if len(skills) > 0 && !slices.ContainsFunc(skills, func(s Skill) bool { return len(s.Prerequisites) == 0 }) {
		errs = append(errs, "no root skills found (at least one skill must have no prerequisites)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("skill graph validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
