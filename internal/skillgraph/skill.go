package skillgraph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
)

// ErrSkillNotFound is returned when a skill identifier is not part of the graph.
var ErrSkillNotFound = errors.New("skill not found")

// SkillID identifies a skill. Identifiers are stable and unique.
type SkillID int

func (id SkillID) String() string {
	return strconv.Itoa(int(id))
}

// Skill is a single node in the curriculum graph.
type Skill struct {
	ID      SkillID
	Name    string
	Subject string // Optional grouping, e.g. "Algebra"
	Stage   string // Optional grouping, e.g. "Linear equations"

	// Seeds for the generated content of each tutoring phase.
	ExplainSeed  string
	PracticeSeed string
	AssessSeed   string

	// ProbeQuestion is the canned diagnostic question. Skills without one
	// are never probed during placement.
	ProbeQuestion string

	// Prerequisites are the direct (one-hop) prerequisites of this skill.
	Prerequisites []SkillID
}

// HasProbe reports whether the skill can be used as a diagnostic probe.
func (s Skill) HasProbe() bool {
	return s.ProbeQuestion != ""
}

// SkillSet is an unordered set of skill identifiers.
type SkillSet map[SkillID]bool

// NewSkillSet builds a set from the given identifiers.
func NewSkillSet(ids ...SkillID) SkillSet {
	s := make(SkillSet, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// Has reports membership.
func (s SkillSet) Has(id SkillID) bool {
	return s[id]
}

// Add inserts id into the set.
func (s SkillSet) Add(id SkillID) {
	s[id] = true
}

// Sorted returns the members in ascending identifier order.
func (s SkillSet) Sorted() []SkillID {
	out := make([]SkillID, 0, len(s))
	for id, ok := range s {
		if ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// SubsetOf reports whether every member of s is in other.
func (s SkillSet) SubsetOf(other SkillSet) bool {
	for id, ok := range s {
		if ok && !other[id] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s SkillSet) Clone() SkillSet {
	out := make(SkillSet, len(s))
	for id, ok := range s {
		if ok {
			out[id] = true
		}
	}
	return out
}

// MasterySet is the set of skills a learner has demonstrated. It only grows:
// nothing in this module removes a member.
type MasterySet = SkillSet

func notFound(id SkillID) error {
	return fmt.Errorf("%w: %d", ErrSkillNotFound, id)
}
