package skillgraph

import "slices"

// Closure returns every skill transitively required by id. The result never
// contains id itself, even when the data contains a cycle through it.
// The walk uses an explicit stack and a visited set, so it terminates in
// O(V+E) over the reachable subgraph regardless of depth or cycles.
func (g *Graph) Closure(id SkillID) (SkillSet, error) {
	if !g.Has(id) {
		return nil, notFound(id)
	}
	return g.closure(id), nil
}

func (g *Graph) closure(id SkillID) SkillSet {
	out := make(SkillSet)
	visited := SkillSet{id: true}
	stack := g.DirectPrerequisites(id)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		out[cur] = true
		for _, p := range g.DirectPrerequisites(cur) {
			if !visited[p] {
				stack = append(stack, p)
			}
		}
	}
	return out
}

// NextUnmastered returns the most foundational unmastered skill on the way to
// goal. It reports false when goal is already mastered.
//
// Among the unmastered members of closure(goal) ∪ {goal}, the lowest-ID one
// whose own closure is fully mastered wins. If inconsistent data leaves no
// such member, the lowest-ID unmastered member is returned instead.
func (g *Graph) NextUnmastered(mastered MasterySet, goal SkillID) (SkillID, bool, error) {
	if !g.Has(goal) {
		return 0, false, notFound(goal)
	}
	if mastered.Has(goal) {
		return 0, false, nil
	}

	candidates := g.closure(goal)
	candidates.Add(goal)

	var unmastered []SkillID
	for _, id := range candidates.Sorted() {
		if !mastered.Has(id) {
			unmastered = append(unmastered, id)
		}
	}

	for _, id := range unmastered {
		if g.closure(id).SubsetOf(mastered) {
			return id, true, nil
		}
	}
	return unmastered[0], true, nil
}

// BuildPlan orders the scope and all of its prerequisites so that every
// prerequisite precedes its dependents, then drops mastered skills.
//
// Edges are only counted between members of the union. Weakly connected
// components are sorted independently with Kahn's algorithm and concatenated
// in the order the scope first reaches them.
func (g *Graph) BuildPlan(scope []SkillID, mastered MasterySet) ([]SkillID, error) {
	union := make(SkillSet)
	var seeds []SkillID
	for _, id := range scope {
		if !g.Has(id) {
			return nil, notFound(id)
		}
		if slices.Contains(seeds, id) {
			continue
		}
		seeds = append(seeds, id)
		union.Add(id)
		for p := range g.closure(id) {
			union.Add(p)
		}
	}

	assigned := make(SkillSet, len(union))
	var plan []SkillID
	for _, seed := range seeds {
		if assigned.Has(seed) {
			continue
		}
		component := g.component(seed, union, assigned)
		for _, id := range g.topoSort(component) {
			if !mastered.Has(id) {
				plan = append(plan, id)
			}
		}
	}
	return plan, nil
}

// component collects the weakly connected component of seed within union,
// marking its members as assigned.
func (g *Graph) component(seed SkillID, union, assigned SkillSet) SkillSet {
	comp := make(SkillSet)
	queue := []SkillID{seed}
	assigned.Add(seed)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		comp.Add(cur)

		neighbors := append(g.DirectPrerequisites(cur), g.dependents[cur]...)
		for _, n := range neighbors {
			if union.Has(n) && !assigned.Has(n) {
				assigned.Add(n)
				queue = append(queue, n)
			}
		}
	}
	return comp
}

// topoSort runs Kahn's algorithm over members. Ties are broken by ascending
// ID. Members left over by a cycle are appended in ascending order so that no
// skill silently disappears from a plan.
func (g *Graph) topoSort(members SkillSet) []SkillID {
	inDegree := make(map[SkillID]int, len(members))
	for id := range members {
		for _, p := range g.DirectPrerequisites(id) {
			if members.Has(p) {
				inDegree[id]++
			}
		}
	}

	var queue []SkillID
	for _, id := range members.Sorted() {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]SkillID, 0, len(members))
	done := make(SkillSet, len(members))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		done.Add(id)

		for _, dep := range g.dependents[id] {
			if !members.Has(dep) {
				continue
			}
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) < len(members) {
		for _, id := range members.Sorted() {
			if !done.Has(id) {
				order = append(order, id)
			}
		}
	}
	return order
}
