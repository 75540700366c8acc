// # internal/flow/walker_test.go
package flow

import (
	"strings"
	"testing"
)

// buildLoop returns a graph shaped like a while loop:
// Start -> LoopLabel <- [body assign back-edge], exit condition hangs off
// the label.
func buildLoop(b *Builder) (start *Start, label *Label, exit *Condition) {
	start = b.NewStart()
	label = b.NewLoopLabel()
	label.AddAntecedent(start)
	body := b.NewAssign(label, "x", 2, false)
	label.AddAntecedent(body)
	exit = b.NewFalseCondition(label, "cond", 1)
	return start, label, exit
}

func TestFinishLabelCollapse(t *testing.T) {
	b := NewBuilder()

	empty := b.NewBranchLabel()
	if got := b.FinishLabel(empty); got.Kind() != KindUnreachable {
		t.Errorf("empty label should collapse to Unreachable, got %v", got.Kind())
	}

	start := b.NewStart()
	single := b.NewBranchLabel()
	single.AddAntecedent(start)
	if got := b.FinishLabel(single); got != Node(start) {
		t.Error("single-antecedent label should collapse to its antecedent")
	}

	multi := b.NewBranchLabel()
	multi.AddAntecedent(start)
	multi.AddAntecedent(b.NewAssign(start, "x", 1, false))
	if got := b.FinishLabel(multi); got != Node(multi) {
		t.Error("multi-antecedent label should be returned as-is")
	}
}

func TestAntecedentOrderStable(t *testing.T) {
	b := NewBuilder()
	start := b.NewStart()
	first := b.NewAssign(start, "a", 1, false)
	second := b.NewAssign(start, "b", 2, false)

	label := b.NewBranchLabel()
	label.AddAntecedent(first)
	label.AddAntecedent(second)

	ants := label.Antecedents()
	if len(ants) != 2 || ants[0] != Node(first) || ants[1] != Node(second) {
		t.Error("label antecedents must keep insertion (textual) order")
	}
}

func TestBuildGraphLoopTerminates(t *testing.T) {
	b := NewBuilder()
	_, label, exit := buildLoop(b)

	root := BuildGraph(exit)
	if root == nil {
		t.Fatal("expected a wrapper graph")
	}

	// Exactly one Circular marker: the back-edge re-entering the loop label.
	circular := 0
	var count func(n *GraphNode, seen map[*GraphNode]bool)
	count = func(n *GraphNode, seen map[*GraphNode]bool) {
		if seen[n] {
			return
		}
		seen[n] = true
		if n.Circular {
			circular++
			if n.Flow != Node(label) {
				t.Errorf("circular marker should reference the loop label, got %v", n.Flow.Kind())
			}
			if len(n.Antecedents) != 0 {
				t.Error("circular markers must be terminal")
			}
		}
		for _, ant := range n.Antecedents {
			count(ant, seen)
		}
	}
	count(root, make(map[*GraphNode]bool))
	if circular != 1 {
		t.Errorf("expected exactly 1 circular marker, got %d", circular)
	}
}

func TestBuildGraphDeepNestingNoOverflow(t *testing.T) {
	b := NewBuilder()
	// A pathological chain of 100k nested nodes; recursion here would blow
	// the stack.
	var cur Node = b.NewStart()
	for i := 0; i < 100_000; i++ {
		cur = b.NewAssign(cur, "x", i, false)
	}
	root := BuildGraph(cur)
	if root == nil || root.Flow != cur {
		t.Fatal("expected wrapper graph rooted at the last node")
	}
}

func TestBuildGraphSharesCompletedNodes(t *testing.T) {
	b := NewBuilder()
	start := b.NewStart()
	left := b.NewTrueCondition(start, "c", 1)
	right := b.NewFalseCondition(start, "c", 1)
	label := b.NewBranchLabel()
	label.AddAntecedent(left)
	label.AddAntecedent(right)

	root := BuildGraph(label)
	if len(root.Antecedents) != 2 {
		t.Fatalf("expected 2 antecedents, got %d", len(root.Antecedents))
	}
	if root.Antecedents[0].Antecedents[0] != root.Antecedents[1].Antecedents[0] {
		t.Error("a node reachable on two paths should be one shared wrapper")
	}
}

func TestComputeLevels(t *testing.T) {
	b := NewBuilder()
	start := b.NewStart()
	a := b.NewAssign(start, "a", 1, false)
	bAssign := b.NewAssign(a, "b", 2, false)
	label := b.NewBranchLabel()
	label.AddAntecedent(bAssign)
	label.AddAntecedent(start) // short path straight from start

	root := BuildGraph(label)
	if root.Level != 0 {
		t.Errorf("root level should be 0, got %d", root.Level)
	}

	// start is reachable via both the long and the short path; longest wins.
	var startWrapper *GraphNode
	var find func(n *GraphNode, seen map[*GraphNode]bool)
	find = func(n *GraphNode, seen map[*GraphNode]bool) {
		if seen[n] {
			return
		}
		seen[n] = true
		if n.Flow == Node(start) && !n.Circular {
			startWrapper = n
		}
		for _, ant := range n.Antecedents {
			find(ant, seen)
		}
	}
	find(root, make(map[*GraphNode]bool))
	if startWrapper == nil {
		t.Fatal("start wrapper not found")
	}
	if startWrapper.Level != 3 {
		t.Errorf("expected longest-path level 3 for start, got %d", startWrapper.Level)
	}
}

func TestWalkBackVisitsOnce(t *testing.T) {
	b := NewBuilder()
	start := b.NewStart()
	left := b.NewTrueCondition(start, "c", 1)
	right := b.NewFalseCondition(start, "c", 1)
	label := b.NewBranchLabel()
	label.AddAntecedent(left)
	label.AddAntecedent(right)

	visits := make(map[int]int)
	WalkBack(label, func(n Node) bool {
		visits[n.ID()]++
		return true
	})

	for id, count := range visits {
		if count != 1 {
			t.Errorf("node %d visited %d times", id, count)
		}
	}
	if len(visits) != 4 {
		t.Errorf("expected 4 distinct nodes, got %d", len(visits))
	}
}

func TestWalkBackLoopSafe(t *testing.T) {
	b := NewBuilder()
	_, _, exit := buildLoop(b)

	visited := 0
	WalkBack(exit, func(n Node) bool {
		visited++
		if visited > 10 {
			t.Fatal("walk did not terminate on loop")
		}
		return true
	})
}

func TestRenderMarksCircular(t *testing.T) {
	b := NewBuilder()
	_, _, exit := buildLoop(b)

	out := Render(BuildGraph(exit))
	if !strings.Contains(out, "↺") {
		t.Error("render should mark circular wrappers")
	}
	if !strings.Contains(out, "LoopLabel") {
		t.Error("render should name node kinds")
	}
}
