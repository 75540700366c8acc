// # internal/flow/walker.go
package flow

// GraphNode wraps a flow node inside the backward wrapper graph built from
// a use-point. Antecedents here are the flow node's predecessors in
// execution order; the wrapper graph is acyclic because loop back-edges
// terminate at Circular markers.
type GraphNode struct {
	Flow        Node
	Circular    bool
	Antecedents []*GraphNode
	Level       int
}

// BuildGraph constructs the wrapper graph rooted at the given flow node by
// following antecedent links outward. Nodes already completed are shared
// (the wrapper graph is a DAG, matching the flow graph's edge multiplicity
// and order); a node re-encountered while still on the current path yields
// a terminal Circular marker instead of recursing, so arbitrarily nested
// loops can never overflow the stack. The traversal is iterative and
// deterministic.
func BuildGraph(root Node) *GraphNode {
	if root == nil {
		return nil
	}

	done := make(map[int]*GraphNode)
	onPath := make(map[int]bool)

	type frame struct {
		node    Node
		wrapper *GraphNode
		next    int // index of the next antecedent to visit
	}

	rootWrapper := &GraphNode{Flow: root}
	onPath[root.ID()] = true
	stack := []*frame{{node: root, wrapper: rootWrapper}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		ants := top.node.Antecedents()

		if top.next >= len(ants) {
			onPath[top.node.ID()] = false
			done[top.node.ID()] = top.wrapper
			stack = stack[:len(stack)-1]
			continue
		}

		ant := ants[top.next]
		top.next++

		if onPath[ant.ID()] {
			top.wrapper.Antecedents = append(top.wrapper.Antecedents, &GraphNode{
				Flow:     ant,
				Circular: true,
			})
			continue
		}
		if w, ok := done[ant.ID()]; ok {
			top.wrapper.Antecedents = append(top.wrapper.Antecedents, w)
			continue
		}

		w := &GraphNode{Flow: ant}
		top.wrapper.Antecedents = append(top.wrapper.Antecedents, w)
		onPath[ant.ID()] = true
		stack = append(stack, &frame{node: ant, wrapper: w})
	}

	ComputeLevels(rootWrapper)
	return rootWrapper
}

// ComputeLevels assigns each wrapper node its longest-path distance from
// the root: a node's level is the maximum level among the wrapper nodes
// that reach it, plus one. Used only for presentation layout.
func ComputeLevels(root *GraphNode) {
	if root == nil {
		return
	}
	root.Level = 0

	// Longest-path numbering over a DAG via repeated relaxation in
	// topological order (DFS postorder reversed).
	order := topoOrder(root)
	for _, n := range order {
		for _, ant := range n.Antecedents {
			if ant.Level < n.Level+1 {
				ant.Level = n.Level + 1
			}
		}
	}
}

func topoOrder(root *GraphNode) []*GraphNode {
	var order []*GraphNode
	seen := make(map[*GraphNode]bool)

	type frame struct {
		node *GraphNode
		next int
	}
	stack := []*frame{{node: root}}
	seen[root] = true
	var post []*GraphNode

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.node.Antecedents) {
			post = append(post, top.node)
			stack = stack[:len(stack)-1]
			continue
		}
		next := top.node.Antecedents[top.next]
		top.next++
		if !seen[next] {
			seen[next] = true
			stack = append(stack, &frame{node: next})
		}
	}

	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	return order
}

// WalkBack invokes visit for each flow node reachable backward from root,
// in deterministic order (node first, then antecedents in branch order).
// Returning false from visit stops the walk down that path; loop re-entry
// stops automatically.
func WalkBack(root Node, visit func(Node) bool) {
	if root == nil {
		return
	}
	seen := make(map[int]bool)
	var walk func(Node)
	walk = func(n Node) {
		if seen[n.ID()] {
			return
		}
		seen[n.ID()] = true
		if !visit(n) {
			return
		}
		for _, ant := range n.Antecedents() {
			walk(ant)
		}
	}
	walk(root)
}
