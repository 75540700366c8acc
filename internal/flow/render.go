// # internal/flow/render.go
package flow

import (
	"fmt"
	"sort"
	"strings"
)

// Render dumps the wrapper graph as an indented box-drawing diagram, one
// node per line grouped by level. Diagnostic tooling only; narrowing never
// reads this output.
func Render(root *GraphNode) string {
	if root == nil {
		return ""
	}

	byLevel := make(map[int][]*GraphNode)
	maxLevel := 0
	seen := make(map[*GraphNode]bool)

	var collect func(n *GraphNode)
	collect = func(n *GraphNode) {
		if seen[n] {
			return
		}
		seen[n] = true
		byLevel[n.Level] = append(byLevel[n.Level], n)
		if n.Level > maxLevel {
			maxLevel = n.Level
		}
		for _, ant := range n.Antecedents {
			collect(ant)
		}
	}
	collect(root)

	var b strings.Builder
	for level := 0; level <= maxLevel; level++ {
		nodes := byLevel[level]
		sort.Slice(nodes, func(i, j int) bool {
			return nodes[i].Flow.ID() < nodes[j].Flow.ID()
		})
		for _, n := range nodes {
			indent := strings.Repeat("│ ", level)
			connector := "┌─"
			if level == 0 {
				connector = "●─"
			}
			b.WriteString(indent)
			b.WriteString(connector)
			b.WriteString(describe(n))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func describe(n *GraphNode) string {
	label := fmt.Sprintf("%s#%d", n.Flow.Kind(), n.Flow.ID())
	switch fn := n.Flow.(type) {
	case *Assign:
		label += " " + fn.Target
	case *Condition:
		label += " (" + fn.Expr + ")"
	case *Call:
		label += " " + fn.Callee + "()"
	case *WildcardImport:
		label += " from " + fn.Module + " import *"
	}
	if n.Circular {
		label += " ↺"
	}
	return label
}
