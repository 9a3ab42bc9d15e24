package diagnostic

import (
	"math"
	"slices"
	"testing"

	"github.com/abhisek/stepwise/internal/skillgraph"
)

type ids = []skillgraph.SkillID

func chain() *skillgraph.Graph {
	return skillgraph.New([]skillgraph.Skill{
		{ID: 1, Name: "Integers", ProbeQuestion: "What is -3 + 5?"},
		{ID: 2, Name: "Variables", ProbeQuestion: "If x = 4, what is x + 2?", Prerequisites: ids{1}},
		{ID: 3, Name: "One-step equations", ProbeQuestion: "Solve x + 3 = 7.", Prerequisites: ids{2}},
	})
}

// branching: 5 depends on 3 and 4; 3 depends on 1; 4 depends on 2.
// Skill 4 has no probe question.
func branching() *skillgraph.Graph {
	return skillgraph.New([]skillgraph.Skill{
		{ID: 1, Name: "a", ProbeQuestion: "q1"},
		{ID: 2, Name: "b", ProbeQuestion: "q2"},
		{ID: 3, Name: "c", ProbeQuestion: "q3", Prerequisites: ids{1}},
		{ID: 4, Name: "d", Prerequisites: ids{2}},
		{ID: 5, Name: "e", ProbeQuestion: "q5", Prerequisites: ids{3, 4}},
	})
}

func TestNewState(t *testing.T) {
	st, err := NewState(branching(), ids{5}, skillgraph.NewSkillSet(2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(st.Queue, ids{1, 3, 4, 5}) {
		t.Errorf("queue = %v, want [1 3 4 5]", st.Queue)
	}
}

func TestNewState_UnknownScope(t *testing.T) {
	if _, err := NewState(chain(), ids{42}, skillgraph.NewSkillSet()); err == nil {
		t.Fatal("expected error for unknown scope skill")
	}
}

func TestSelectProbe_ScenarioB(t *testing.T) {
	g := chain()
	st := State{Queue: ids{1, 2, 3}}

	got, ok := SelectProbe(g, st.Candidates(), OrderDescendingID)
	if !ok || got != 3 {
		t.Fatalf("SelectProbe = (%d, %v), want (3, true)", got, ok)
	}

	commits, err := st.OnCorrect(g, 3, skillgraph.NewSkillSet())
	if err != nil {
		t.Fatalf("OnCorrect: %v", err)
	}
	if !slices.Equal(commits, ids{1, 2, 3}) {
		t.Errorf("commits = %v, want [1 2 3]", commits)
	}
	if !st.Empty() {
		t.Errorf("queue = %v, want empty", st.Queue)
	}
}

func TestSelectProbe_ScenarioC(t *testing.T) {
	g := chain()
	st := State{Queue: ids{1, 2, 3}}

	st.OnIncorrect(g, 3, skillgraph.NewSkillSet())
	if !slices.Equal(st.Queue, ids{2, 1, 3}) {
		t.Fatalf("queue = %v, want [2 1 3]", st.Queue)
	}

	got, ok := SelectProbe(g, st.Candidates(), OrderDescendingID)
	if !ok || got != 2 {
		t.Errorf("SelectProbe = (%d, %v), want (2, true)", got, ok)
	}
}

func TestSelectProbe_GatewaysBeforeInternal(t *testing.T) {
	g := branching()
	// 5 is the only gateway; internal skills follow in descending order,
	// skipping 4 which has no probe.
	got, ok := SelectProbe(g, ids{1, 3, 4, 5}, OrderDescendingID)
	if !ok || got != 5 {
		t.Fatalf("got (%d, %v), want 5", got, ok)
	}

	got, ok = SelectProbe(g, ids{1, 3, 4}, OrderDescendingID)
	if !ok || got != 3 {
		t.Errorf("without 5: got (%d, %v), want 3", got, ok)
	}

	got, ok = SelectProbe(g, ids{4, 2}, OrderDescendingID)
	if !ok || got != 2 {
		t.Errorf("probe-less gateway: got (%d, %v), want 2", got, ok)
	}
}

func TestSelectProbe_QueueOrder(t *testing.T) {
	g := branching()
	got, ok := SelectProbe(g, ids{1, 2}, OrderQueue)
	if !ok || got != 1 {
		t.Errorf("got (%d, %v), want 1", got, ok)
	}
	got, _ = SelectProbe(g, ids{1, 2}, OrderDescendingID)
	if got != 2 {
		t.Errorf("descending: got %d, want 2", got)
	}
}

func TestSelectProbe_Exhausted(t *testing.T) {
	g := branching()
	if _, ok := SelectProbe(g, nil, OrderDescendingID); ok {
		t.Error("empty candidates should be exhausted")
	}
	if _, ok := SelectProbe(g, ids{4}, OrderDescendingID); ok {
		t.Error("candidates without probes should be exhausted")
	}
	if _, ok := SelectProbe(g, ids{99}, OrderDescendingID); ok {
		t.Error("unknown candidates should be skipped")
	}
}

func TestSelectProbe_CycleTerminates(t *testing.T) {
	g := skillgraph.New([]skillgraph.Skill{
		{ID: 1, Name: "a", ProbeQuestion: "q", Prerequisites: ids{2}},
		{ID: 2, Name: "b", ProbeQuestion: "q", Prerequisites: ids{1}},
	})
	got, ok := SelectProbe(g, ids{1, 2}, OrderDescendingID)
	if !ok || got != 2 {
		t.Errorf("got (%d, %v), want (2, true)", got, ok)
	}
}

func TestOnCorrect_RemovesWholeClosure(t *testing.T) {
	g := branching()
	st, _ := NewState(g, ids{5}, skillgraph.NewSkillSet())
	st.OnIncorrect(g, 5, skillgraph.NewSkillSet())

	commits, err := st.OnCorrect(g, 3, skillgraph.NewSkillSet(1))
	if err != nil {
		t.Fatalf("OnCorrect: %v", err)
	}
	if !slices.Equal(commits, ids{3}) {
		t.Errorf("commits = %v, want [3] (1 already mastered)", commits)
	}
	for _, id := range (ids{1, 3}) {
		if slices.Contains(st.Queue, id) {
			t.Errorf("queue %v still contains %d", st.Queue, id)
		}
	}
	if !slices.Contains(st.Queue, 5) || !slices.Contains(st.Failed, 5) {
		t.Errorf("failed skill 5 should remain queued: queue=%v failed=%v", st.Queue, st.Failed)
	}
}

func TestOnIncorrect_SkipsMasteredPrerequisites(t *testing.T) {
	g := branching()
	st := State{Queue: ids{4, 5}}
	st.OnIncorrect(g, 5, skillgraph.NewSkillSet(3))

	if !slices.Equal(st.Queue, ids{4, 5}) {
		t.Errorf("queue = %v, want [4 5]", st.Queue)
	}
	if !slices.Equal(st.Candidates(), ids{4}) {
		t.Errorf("candidates = %v, want [4]", st.Candidates())
	}
}

func TestOnIncorrect_DirectOnly(t *testing.T) {
	g := chain()
	st := State{Queue: ids{3}}
	st.OnIncorrect(g, 3, skillgraph.NewSkillSet())
	if !slices.Equal(st.Queue, ids{2, 3}) {
		t.Errorf("queue = %v, want [2 3]: only the direct prerequisite is added", st.Queue)
	}
}

func TestPlacementLoop_Terminates(t *testing.T) {
	g := branching()
	mastered := skillgraph.NewSkillSet()
	st, _ := NewState(g, ids{5}, mastered)

	probes := 0
	for {
		id, ok := SelectProbe(g, st.Candidates(), OrderDescendingID)
		if !ok {
			break
		}
		probes++
		if probes > 10 {
			t.Fatal("placement did not terminate")
		}
		// Learner knows exactly skills 1 and 2.
		if id == 1 || id == 2 {
			commits, _ := st.OnCorrect(g, id, mastered)
			for _, c := range commits {
				mastered.Add(c)
			}
			continue
		}
		st.OnIncorrect(g, id, mastered)
	}

	if !slices.Equal(mastered.Sorted(), ids{1, 2}) {
		t.Errorf("mastered = %v, want [1 2]", mastered.Sorted())
	}
	if probes != 4 {
		t.Errorf("probes = %d, want 4 (5, 3, 1, 2)", probes)
	}
}

func TestParseOrder(t *testing.T) {
	if o, err := ParseOrder(""); err != nil || o != OrderDescendingID {
		t.Errorf("ParseOrder(\"\") = (%q, %v)", o, err)
	}
	if o, err := ParseOrder("queue"); err != nil || o != OrderQueue {
		t.Errorf("ParseOrder(queue) = (%q, %v)", o, err)
	}
	if _, err := ParseOrder("random"); err == nil {
		t.Error("expected error for unknown order")
	}
}

func TestSelectProbe_ExtremeIDs(t *testing.T) {
	lo, hi := skillgraph.SkillID(math.MinInt), skillgraph.SkillID(math.MaxInt)
	g := skillgraph.New([]skillgraph.Skill{
		{ID: lo, Name: "lo", ProbeQuestion: "q"},
		{ID: hi, Name: "hi", ProbeQuestion: "q"},
	})
	got, ok := SelectProbe(g, ids{lo, hi}, OrderDescendingID)
	if !ok || got != hi {
		t.Errorf("got (%d, %v), want (%d, true)", got, ok, hi)
	}
}
