// # internal/evaluator/narrow.go
package evaluator

import (
	"pyscope/internal/flow"
)

// BindState is the flow-sensitive binding status of a name at a program
// point, determined by walking the flow graph backward from the point of
// use toward the scope's Start node.
type BindState int

const (
	// StateUnknown means no path contributed evidence, either because the
	// use point is unreachable or every path was part of an unresolved
	// cycle.
	StateUnknown BindState = iota
	StateUnbound
	StateBound
	StatePossiblyUnbound
)

func (s BindState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StatePossiblyUnbound:
		return "possibly unbound"
	}
	return "unknown"
}

// NarrowBinding resolves the binding state of name at node. Results for
// intermediate nodes are memoized within the walk; loop back-edges are
// detected through an on-path set and contribute nothing, so the walk
// terminates on arbitrary cyclic graphs. Completed cache sizes feed the
// evaluator's entry count.
func (e *Evaluator) NarrowBinding(node flow.Node, name string) BindState {
	w := &narrowWalk{
		name:   name,
		cache:  make(map[int]BindState),
		onPath: make(map[int]bool),
	}
	state, _ := w.walk(node)

	e.mu.Lock()
	if !e.disposed {
		e.narrowEntries += len(w.cache)
	}
	e.mu.Unlock()
	return state
}

type narrowWalk struct {
	name   string
	cache  map[int]BindState
	onPath map[int]bool
}

// walk returns the state at node plus an incomplete flag. Incomplete means
// the result depended on a node still on the walk path (a loop back-edge);
// such results are never cached because the cycle may resolve differently
// once the remaining branches are known.
func (w *narrowWalk) walk(node flow.Node) (BindState, bool) {
	id := node.ID()
	if state, ok := w.cache[id]; ok {
		return state, false
	}
	if w.onPath[id] {
		return StateUnknown, true
	}
	w.onPath[id] = true
	defer delete(w.onPath, id)

	state, incomplete := w.eval(node)
	if !incomplete {
		w.cache[id] = state
	}
	return state, incomplete
}

func (w *narrowWalk) eval(node flow.Node) (BindState, bool) {
	switch n := node.(type) {
	case *flow.Start:
		return StateUnbound, false

	case *flow.Unreachable:
		return StateUnknown, false

	case *flow.Assign:
		if n.Target == w.name {
			if n.Deleted {
				return StateUnbound, false
			}
			return StateBound, false
		}
		return w.walk(n.Antecedents()[0])

	case *flow.WildcardImport:
		// A wildcard import may bind any name; treating it as binding
		// suppresses false positives past it.
		return StateBound, false

	case *flow.Label:
		return w.combine(n.Antecedents())

	default:
		ants := node.Antecedents()
		if len(ants) == 0 {
			return StateUnknown, false
		}
		return w.walk(ants[0])
	}
}

// combine merges branch states at a join point. Unknown branches are
// silent; a mix of bound and unbound evidence yields possibly-unbound.
func (w *narrowWalk) combine(ants []flow.Node) (BindState, bool) {
	sawBound := false
	sawUnbound := false
	anyIncomplete := false
	for _, ant := range ants {
		state, incomplete := w.walk(ant)
		anyIncomplete = anyIncomplete || incomplete
		switch state {
		case StateBound:
			sawBound = true
		case StateUnbound:
			sawUnbound = true
		case StatePossiblyUnbound:
			sawBound = true
			sawUnbound = true
		}
	}
	switch {
	case sawBound && sawUnbound:
		return StatePossiblyUnbound, anyIncomplete
	case sawBound:
		return StateBound, anyIncomplete
	case sawUnbound:
		return StateUnbound, anyIncomplete
	default:
		return StateUnknown, anyIncomplete
	}
}
