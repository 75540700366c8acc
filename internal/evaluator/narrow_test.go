// # internal/evaluator/narrow_test.go
package evaluator

import (
	"testing"

	"pyscope/internal/flow"
)

func TestNarrowStraightLine(t *testing.T) {
	e := New()
	b := flow.NewBuilder()
	start := b.NewStart()
	assignX := b.NewAssign(start, "x", 1, false)

	if got := e.NarrowBinding(assignX, "x"); got != StateBound {
		t.Errorf("x should be bound at its assign, got %v", got)
	}
	if got := e.NarrowBinding(assignX, "y"); got != StateUnbound {
		t.Errorf("y should be unbound, got %v", got)
	}
	if got := e.NarrowBinding(start, "x"); got != StateUnbound {
		t.Errorf("x before any assign should be unbound, got %v", got)
	}
}

func TestNarrowDelete(t *testing.T) {
	e := New()
	b := flow.NewBuilder()
	start := b.NewStart()
	assignX := b.NewAssign(start, "x", 1, false)
	delX := b.NewAssign(assignX, "x", 2, true)

	if got := e.NarrowBinding(delX, "x"); got != StateUnbound {
		t.Errorf("x past del should be unbound, got %v", got)
	}
}

func TestNarrowPossiblyUnbound(t *testing.T) {
	// if cond: x = 1
	// use(x)  -> possibly unbound
	e := New()
	b := flow.NewBuilder()
	start := b.NewStart()
	trueNode := b.NewTrueCondition(start, "cond", 1)
	falseNode := b.NewFalseCondition(start, "cond", 1)
	assignX := b.NewAssign(trueNode, "x", 2, false)

	join := b.NewBranchLabel()
	join.AddAntecedent(assignX)
	join.AddAntecedent(falseNode)

	if got := e.NarrowBinding(b.FinishLabel(join), "x"); got != StatePossiblyUnbound {
		t.Errorf("expected possibly unbound, got %v", got)
	}
}

func TestNarrowBoundOnAllBranches(t *testing.T) {
	e := New()
	b := flow.NewBuilder()
	start := b.NewStart()
	trueNode := b.NewTrueCondition(start, "cond", 1)
	falseNode := b.NewFalseCondition(start, "cond", 1)
	thenAssign := b.NewAssign(trueNode, "x", 2, false)
	elseAssign := b.NewAssign(falseNode, "x", 4, false)

	join := b.NewBranchLabel()
	join.AddAntecedent(thenAssign)
	join.AddAntecedent(elseAssign)

	if got := e.NarrowBinding(b.FinishLabel(join), "x"); got != StateBound {
		t.Errorf("x assigned on both branches should be bound, got %v", got)
	}
}

func TestNarrowWildcardImportBinds(t *testing.T) {
	e := New()
	b := flow.NewBuilder()
	start := b.NewStart()
	wild := b.NewWildcardImport(start, "os", 1)

	if got := e.NarrowBinding(wild, "anything"); got != StateBound {
		t.Errorf("any name past a wildcard import reads bound, got %v", got)
	}
}

func TestNarrowLoopAssignedInBody(t *testing.T) {
	// while cond: x = 1
	// The condition re-test sees x bound on the back edge, unbound on
	// entry: possibly unbound.
	e := New()
	b := flow.NewBuilder()
	start := b.NewStart()
	label := b.NewLoopLabel()
	label.AddAntecedent(start)
	trueNode := b.NewTrueCondition(label, "cond", 1)
	assignX := b.NewAssign(trueNode, "x", 2, false)
	label.AddAntecedent(assignX)
	exit := b.NewFalseCondition(label, "cond", 1)

	if got := e.NarrowBinding(exit, "x"); got != StatePossiblyUnbound {
		t.Errorf("expected possibly unbound after the loop, got %v", got)
	}
}

func TestNarrowLoopAssignedBeforeEntry(t *testing.T) {
	e := New()
	b := flow.NewBuilder()
	start := b.NewStart()
	pre := b.NewAssign(start, "x", 1, false)
	label := b.NewLoopLabel()
	label.AddAntecedent(pre)
	trueNode := b.NewTrueCondition(label, "cond", 2)
	body := b.NewAssign(trueNode, "y", 3, false)
	label.AddAntecedent(body)
	exit := b.NewFalseCondition(label, "cond", 2)

	if got := e.NarrowBinding(exit, "x"); got != StateBound {
		t.Errorf("x assigned before the loop should stay bound, got %v", got)
	}
}

func TestNarrowPureCycleIsUnknown(t *testing.T) {
	// A loop label whose only evidence is its own back edge: the walk must
	// terminate and report no evidence.
	e := New()
	b := flow.NewBuilder()
	label := b.NewLoopLabel()
	body := b.NewAssign(label, "y", 1, false)
	label.AddAntecedent(body)

	if got := e.NarrowBinding(label, "x"); got != StateUnknown {
		t.Errorf("pure cycle should yield unknown, got %v", got)
	}
}

func TestNarrowUnreachableIsUnknown(t *testing.T) {
	e := New()
	b := flow.NewBuilder()
	if got := e.NarrowBinding(b.NewUnreachable(), "x"); got != StateUnknown {
		t.Errorf("unreachable use point should be unknown, got %v", got)
	}
}

func TestNarrowCountsCacheEntries(t *testing.T) {
	e := New()
	b := flow.NewBuilder()
	start := b.NewStart()
	assignX := b.NewAssign(start, "x", 1, false)

	before := e.EntryCount()
	e.NarrowBinding(assignX, "y")
	if e.EntryCount() <= before {
		t.Error("a completed walk should add its cache size to the entry count")
	}
}

func TestBindStateString(t *testing.T) {
	cases := map[BindState]string{
		StateUnknown:         "unknown",
		StateUnbound:         "unbound",
		StateBound:           "bound",
		StatePossiblyUnbound: "possibly unbound",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
