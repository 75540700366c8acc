// # internal/flow/node.go
package flow

// NodeKind discriminates the closed set of flow node variants.
type NodeKind int

const (
	KindStart NodeKind = iota
	KindUnreachable
	KindAssign
	KindBranchLabel
	KindLoopLabel
	KindTrueCondition
	KindFalseCondition
	KindCall
	KindWildcardImport
	KindExhaustedMatch
	KindPreFinallyGate
	KindPostFinallyGate
)

func (k NodeKind) String() string {
	switch k {
	case KindStart:
		return "Start"
	case KindUnreachable:
		return "Unreachable"
	case KindAssign:
		return "Assign"
	case KindBranchLabel:
		return "BranchLabel"
	case KindLoopLabel:
		return "LoopLabel"
	case KindTrueCondition:
		return "TrueCondition"
	case KindFalseCondition:
		return "FalseCondition"
	case KindCall:
		return "Call"
	case KindWildcardImport:
		return "WildcardImport"
	case KindExhaustedMatch:
		return "ExhaustedMatch"
	case KindPreFinallyGate:
		return "PreFinallyGate"
	case KindPostFinallyGate:
		return "PostFinallyGate"
	}
	return "Unknown"
}

// Node is one program point in a scope's control-flow graph. The graph is
// built once during binding and never mutated afterwards; a rebind replaces
// it wholesale. Antecedents are the node's predecessors in execution order.
// Labels may have many antecedents, Start and Unreachable have none, every
// other kind has exactly one.
type Node interface {
	ID() int
	Kind() NodeKind
	Antecedents() []Node
}

type Start struct {
	id int
}

func (n *Start) ID() int             { return n.id }
func (n *Start) Kind() NodeKind      { return KindStart }
func (n *Start) Antecedents() []Node { return nil }

type Unreachable struct {
	id int
}

func (n *Unreachable) ID() int             { return n.id }
func (n *Unreachable) Kind() NodeKind      { return KindUnreachable }
func (n *Unreachable) Antecedents() []Node { return nil }

// Assign records a binding of a name at a program point.
type Assign struct {
	id         int
	Target     string
	Line       int
	Deleted    bool // del statement: the name becomes unbound past here
	antecedent Node
}

func (n *Assign) ID() int             { return n.id }
func (n *Assign) Kind() NodeKind      { return KindAssign }
func (n *Assign) Antecedents() []Node { return []Node{n.antecedent} }

// Label joins multiple control-flow branches. Antecedent order is the
// textual order of the contributing branches; narrowing combines types in
// that order, so it must stay stable.
type Label struct {
	id          int
	kind        NodeKind // KindBranchLabel or KindLoopLabel
	antecedents []Node
}

func (n *Label) ID() int             { return n.id }
func (n *Label) Kind() NodeKind      { return n.kind }
func (n *Label) Antecedents() []Node { return n.antecedents }

// AddAntecedent appends a predecessor. Used only during binding; the graph
// is frozen once the scope's bind completes.
func (n *Label) AddAntecedent(ant Node) {
	n.antecedents = append(n.antecedents, ant)
}

// Condition gates flow on a test expression's truthiness.
type Condition struct {
	id         int
	kind       NodeKind // KindTrueCondition or KindFalseCondition
	Expr       string
	Line       int
	antecedent Node
}

func (n *Condition) ID() int             { return n.id }
func (n *Condition) Kind() NodeKind      { return n.kind }
func (n *Condition) Antecedents() []Node { return []Node{n.antecedent} }

// Call marks a call site whose return type may be NoReturn.
type Call struct {
	id         int
	Callee     string
	Line       int
	antecedent Node
}

func (n *Call) ID() int             { return n.id }
func (n *Call) Kind() NodeKind      { return KindCall }
func (n *Call) Antecedents() []Node { return []Node{n.antecedent} }

// WildcardImport marks a `from mod import *`, which may bind any name.
type WildcardImport struct {
	id         int
	Module     string
	Line       int
	antecedent Node
}

func (n *WildcardImport) ID() int             { return n.id }
func (n *WildcardImport) Kind() NodeKind      { return KindWildcardImport }
func (n *WildcardImport) Antecedents() []Node { return []Node{n.antecedent} }

// ExhaustedMatch is the fall-through point of a match statement after all
// case patterns failed.
type ExhaustedMatch struct {
	id         int
	Subject    string
	Line       int
	antecedent Node
}

func (n *ExhaustedMatch) ID() int             { return n.id }
func (n *ExhaustedMatch) Kind() NodeKind      { return KindExhaustedMatch }
func (n *ExhaustedMatch) Antecedents() []Node { return []Node{n.antecedent} }

// FinallyGate brackets a finally suite. The pre gate is crossed on any
// entry into the finally block, the post gate on normal completion.
type FinallyGate struct {
	id         int
	kind       NodeKind // KindPreFinallyGate or KindPostFinallyGate
	antecedent Node
}

func (n *FinallyGate) ID() int             { return n.id }
func (n *FinallyGate) Kind() NodeKind      { return n.kind }
func (n *FinallyGate) Antecedents() []Node { return []Node{n.antecedent} }
