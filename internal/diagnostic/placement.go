// Package diagnostic locates a learner's mastery frontier with as few probe
// questions as possible.
//
// Placement assumes mastery is monotonic: a learner who answers a probe on an
// advanced skill correctly is credited with everything beneath it, while a
// miss only descends one level toward more foundational material.
package diagnostic

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

// Order decides which probe is preferred within the gateway and internal groups.
type Order string

const (
	// OrderDescendingID treats higher identifiers as more advanced. This is a
	// curriculum-authoring convention, not a property of the graph.
	OrderDescendingID Order = "descending-id"

	// OrderQueue keeps the queue order, so prerequisites prepended after a
	// miss are tried first.
	OrderQueue Order = "queue"
)

// ParseOrder validates an order name. An empty name selects the default.
func ParseOrder(s string) (Order, error) {
	switch Order(s) {
	case "":
		return OrderDescendingID, nil
	case OrderDescendingID, OrderQueue:
		return Order(s), nil
	default:
		return "", fmt.Errorf("unknown probe order %q (want %q or %q)", s, OrderDescendingID, OrderQueue)
	}
}

// Graph is the read access placement needs.
type Graph interface {
	Skill(id skillgraph.SkillID) (skillgraph.Skill, error)
	DirectPrerequisites(id skillgraph.SkillID) []skillgraph.SkillID
	Closure(id skillgraph.SkillID) (skillgraph.SkillSet, error)
}

// State is the diagnostic queue of one learner. It is plain data so it can be
// stored inside a session between turns.
type State struct {
	// Queue holds the unmastered skills still under consideration.
	Queue []skillgraph.SkillID `json:"queue"`

	// Failed holds skills whose probe was answered incorrectly. They stay in
	// the queue (they still need teaching) but are never probed again.
	Failed []skillgraph.SkillID `json:"failed,omitempty"`
}

// NewState seeds the queue with the unmastered members of the scope and their
// closures, in ascending order.
func NewState(g Graph, scope []skillgraph.SkillID, mastered skillgraph.MasterySet) (State, error) {
	all := make(skillgraph.SkillSet)
	for _, id := range scope {
		c, err := g.Closure(id)
		if err != nil {
			return State{}, err
		}
		all.Add(id)
		for p := range c {
			all.Add(p)
		}
	}

	var st State
	for _, id := range all.Sorted() {
		if !mastered.Has(id) {
			st.Queue = append(st.Queue, id)
		}
	}
	return st, nil
}

// Empty reports whether nothing is left to place.
func (s *State) Empty() bool {
	return len(s.Queue) == 0
}

// Candidates returns the queued skills that may still be probed.
func (s *State) Candidates() []skillgraph.SkillID {
	out := make([]skillgraph.SkillID, 0, len(s.Queue))
	for _, id := range s.Queue {
		if !slices.Contains(s.Failed, id) {
			out = append(out, id)
		}
	}
	return out
}

// SelectProbe picks the next skill to probe among candidates.
//
// Gateways (candidates no other candidate depends on directly) come first,
// internal skills after. Within each group the order decides. The first
// candidate with a probe question wins; false means placement is exhausted.
func SelectProbe(g Graph, candidates []skillgraph.SkillID, order Order) (skillgraph.SkillID, bool) {
	if len(candidates) == 0 {
		return 0, false
	}

	inSet := skillgraph.NewSkillSet(candidates...)
	internal := make(skillgraph.SkillSet)
	for _, id := range candidates {
		for _, p := range g.DirectPrerequisites(id) {
			if inSet.Has(p) && p != id {
				internal.Add(p)
			}
		}
	}

	var gateways, rest []skillgraph.SkillID
	for _, id := range candidates {
		if internal.Has(id) {
			rest = append(rest, id)
		} else {
			gateways = append(gateways, id)
		}
	}

	if order != OrderQueue {
		desc := func(a, b skillgraph.SkillID) int { return cmp.Compare(b, a) }
		slices.SortStableFunc(gateways, desc)
		slices.SortStableFunc(rest, desc)
	}

	for _, id := range append(gateways, rest...) {
		s, err := g.Skill(id)
		if err != nil || !s.HasProbe() {
			continue
		}
		return id, true
	}
	return 0, false
}

// OnCorrect credits the learner with id and its entire closure. It returns the
// skills that must be committed as mastered (already mastered ones are left
// out) and removes every credited skill from the queue.
func (s *State) OnCorrect(g Graph, id skillgraph.SkillID, mastered skillgraph.MasterySet) ([]skillgraph.SkillID, error) {
	c, err := g.Closure(id)
	if err != nil {
		return nil, err
	}
	c.Add(id)

	var commits []skillgraph.SkillID
	for _, sid := range c.Sorted() {
		if !mastered.Has(sid) {
			commits = append(commits, sid)
		}
	}

	s.Queue = slices.DeleteFunc(s.Queue, c.Has)
	s.Failed = slices.DeleteFunc(s.Failed, c.Has)
	return commits, nil
}

// OnIncorrect records the miss and prepends the unmastered direct
// prerequisites of id to the queue. Mastery is unchanged.
func (s *State) OnIncorrect(g Graph, id skillgraph.SkillID, mastered skillgraph.MasterySet) {
	if !slices.Contains(s.Failed, id) {
		s.Failed = append(s.Failed, id)
	}

	var front []skillgraph.SkillID
	for _, p := range g.DirectPrerequisites(id) {
		if !mastered.Has(p) {
			front = append(front, p)
		}
	}
	if len(front) == 0 {
		return
	}

	prepend := skillgraph.NewSkillSet(front...)
	rest := slices.DeleteFunc(slices.Clone(s.Queue), prepend.Has)
	s.Queue = append(front, rest...)
}
