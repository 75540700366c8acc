// # internal/flow/builder.go
package flow

// Builder hands out flow nodes with scope-stable ids. One builder exists
// per bound scope; ids restart at zero for each scope so graphs stay
// deterministic across rebinds of unrelated files.
type Builder struct {
	nextID int
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) allocID() int {
	id := b.nextID
	b.nextID++
	return id
}

func (b *Builder) NewStart() *Start {
	return &Start{id: b.allocID()}
}

func (b *Builder) NewUnreachable() *Unreachable {
	return &Unreachable{id: b.allocID()}
}

func (b *Builder) NewAssign(ant Node, target string, line int, deleted bool) *Assign {
	return &Assign{id: b.allocID(), antecedent: ant, Target: target, Line: line, Deleted: deleted}
}

func (b *Builder) NewBranchLabel() *Label {
	return &Label{id: b.allocID(), kind: KindBranchLabel}
}

func (b *Builder) NewLoopLabel() *Label {
	return &Label{id: b.allocID(), kind: KindLoopLabel}
}

func (b *Builder) NewTrueCondition(ant Node, expr string, line int) *Condition {
	return &Condition{id: b.allocID(), kind: KindTrueCondition, antecedent: ant, Expr: expr, Line: line}
}

func (b *Builder) NewFalseCondition(ant Node, expr string, line int) *Condition {
	return &Condition{id: b.allocID(), kind: KindFalseCondition, antecedent: ant, Expr: expr, Line: line}
}

func (b *Builder) NewCall(ant Node, callee string, line int) *Call {
	return &Call{id: b.allocID(), antecedent: ant, Callee: callee, Line: line}
}

func (b *Builder) NewWildcardImport(ant Node, module string, line int) *WildcardImport {
	return &WildcardImport{id: b.allocID(), antecedent: ant, Module: module, Line: line}
}

func (b *Builder) NewExhaustedMatch(ant Node, subject string, line int) *ExhaustedMatch {
	return &ExhaustedMatch{id: b.allocID(), antecedent: ant, Subject: subject, Line: line}
}

func (b *Builder) NewPreFinallyGate(ant Node) *FinallyGate {
	return &FinallyGate{id: b.allocID(), kind: KindPreFinallyGate, antecedent: ant}
}

func (b *Builder) NewPostFinallyGate(ant Node) *FinallyGate {
	return &FinallyGate{id: b.allocID(), kind: KindPostFinallyGate, antecedent: ant}
}

// FinishLabel collapses degenerate labels: a label with no antecedents is
// unreachable flow, a label with exactly one antecedent is that antecedent.
// Multi-antecedent labels are returned as-is with their branch order fixed.
func (b *Builder) FinishLabel(label *Label) Node {
	switch len(label.antecedents) {
	case 0:
		return b.NewUnreachable()
	case 1:
		return label.antecedents[0]
	default:
		return label
	}
}
