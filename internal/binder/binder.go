// # internal/binder/binder.go
package binder

import (
	"pyscope/internal/flow"
	"pyscope/internal/parser"
)

type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeClass
)

// Use is a load of a name together with the flow node in effect at the
// point of the load. The narrowing walk starts from that node.
type Use struct {
	Name     string
	Location parser.Location
	Node     flow.Node
}

// CallUse is a call site with its flow position, used for arity checks.
type CallUse struct {
	Info parser.CallInfo
	Node flow.Node
}

// Scope is one bound lexical scope: its local bindings, its flow graph,
// and every name load and call site inside it.
type Scope struct {
	Kind     ScopeKind
	Name     string
	Parent   *Scope
	Children []*Scope

	// Bindings holds every name assigned anywhere in this scope
	// (assignments, imports, defs, loop targets, captures, params).
	Bindings map[string]bool
	// DefLines records the lines a name is bound at, in textual order,
	// for go-to-definition and reference queries.
	DefLines map[string][]int
	// Globals holds names declared global/nonlocal, which are therefore
	// not local even when assigned.
	Globals map[string]bool

	Start flow.Node
	End   flow.Node // flow state at the textual end of the scope

	Uses  []Use
	Calls []CallUse

	// Functions maps locally defined function names to their defs so call
	// sites can be matched against normalized parameter lists.
	Functions map[string]*parser.FuncDefStmt

	// UnreachableLines records the first statement line of each block
	// region that can never execute.
	UnreachableLines []int

	HasWildcardImport bool
}

// Result is the outcome of binding one parse result.
type Result struct {
	ModuleScope *Scope
}

// LookupScope walks the lexical chain for a binding of name.
func (s *Scope) LookupScope(name string) *Scope {
	for cur := s; cur != nil; cur = cur.Parent {
		// Class scopes are skipped for lookups originating in nested
		// functions, but module-level lookup through them is fine for
		// this core's purposes.
		if cur.Bindings[name] {
			return cur
		}
	}
	return nil
}

type loopContext struct {
	breakLabel    *flow.Label
	continueLabel *flow.Label
}

type binder struct {
	builder *flow.Builder
	scope   *Scope
	loops   []loopContext
}

// Bind builds the module scope for a parse result. The flow graphs are
// immutable once Bind returns; a rebind constructs fresh ones.
func Bind(pr *parser.ParseResult) *Result {
	b := &binder{builder: flow.NewBuilder()}
	module := &Scope{
		Kind:      ScopeModule,
		Bindings:  make(map[string]bool),
		DefLines:  make(map[string][]int),
		Globals:   make(map[string]bool),
		Functions: make(map[string]*parser.FuncDefStmt),
	}
	b.scope = module
	module.Start = b.builder.NewStart()

	cur := b.bindBlock(pr.Body, flow.Node(module.Start))
	module.End = cur
	return &Result{ModuleScope: module}
}

// bindBlock threads flow through a statement list, recording the first
// statement of any region that follows terminal flow as unreachable.
func (b *binder) bindBlock(stmts []parser.Stmt, cur flow.Node) flow.Node {
	reportedUnreachable := false
	for _, stmt := range stmts {
		if cur.Kind() == flow.KindUnreachable && !reportedUnreachable {
			b.scope.UnreachableLines = append(b.scope.UnreachableLines, stmt.Line())
			reportedUnreachable = true
		}
		cur = b.bindStmt(stmt, cur)
	}
	return cur
}

func (b *binder) bindStmt(stmt parser.Stmt, cur flow.Node) flow.Node {
	switch s := stmt.(type) {
	case *parser.AssignStmt:
		b.recordUses(s.Refs, cur)
		cur = b.recordCalls(s.Calls, cur)
		for _, target := range s.Targets {
			b.bindName(target, s.Line())
			cur = b.builder.NewAssign(cur, target, s.Line(), false)
		}
		return cur

	case *parser.DelStmt:
		for _, name := range s.Names {
			cur = b.builder.NewAssign(cur, name, s.Line(), true)
		}
		return cur

	case *parser.ExprStmt:
		b.recordUses(s.Refs, cur)
		return b.recordCalls(s.Calls, cur)

	case *parser.ImportStmt:
		return b.bindImport(s, cur)

	case *parser.IfStmt:
		return b.bindIf(s, cur)

	case *parser.WhileStmt:
		return b.bindWhile(s, cur)

	case *parser.ForStmt:
		return b.bindFor(s, cur)

	case *parser.TryStmt:
		return b.bindTry(s, cur)

	case *parser.MatchStmt:
		return b.bindMatch(s, cur)

	case *parser.ReturnStmt:
		b.recordUses(s.Refs, cur)
		b.recordCalls(s.Calls, cur)
		return b.builder.NewUnreachable()

	case *parser.RaiseStmt:
		b.recordUses(s.Refs, cur)
		return b.builder.NewUnreachable()

	case *parser.BreakStmt:
		if len(b.loops) > 0 {
			top := b.loops[len(b.loops)-1]
			if cur.Kind() != flow.KindUnreachable {
				top.breakLabel.AddAntecedent(cur)
			}
		}
		return b.builder.NewUnreachable()

	case *parser.ContinueStmt:
		if len(b.loops) > 0 {
			top := b.loops[len(b.loops)-1]
			if cur.Kind() != flow.KindUnreachable {
				top.continueLabel.AddAntecedent(cur)
			}
		}
		return b.builder.NewUnreachable()

	case *parser.FuncDefStmt:
		b.bindName(s.Name, s.Line())
		b.scope.Functions[s.Name] = s
		b.bindFunctionScope(s)
		return b.builder.NewAssign(cur, s.Name, s.Line(), false)

	case *parser.ClassDefStmt:
		b.bindName(s.Name, s.Line())
		b.bindClassScope(s)
		return b.builder.NewAssign(cur, s.Name, s.Line(), false)

	case *parser.GlobalStmt:
		for _, name := range s.Names {
			b.scope.Globals[name] = true
		}
		return cur
	}
	return cur
}

func (b *binder) bindImport(s *parser.ImportStmt, cur flow.Node) flow.Node {
	if s.Import.IsWildcard {
		b.scope.HasWildcardImport = true
		return b.builder.NewWildcardImport(cur, s.Import.Module, s.Line())
	}
	for _, name := range s.Import.BoundNames() {
		b.bindName(name, s.Line())
		cur = b.builder.NewAssign(cur, name, s.Line(), false)
	}
	return cur
}

func (b *binder) bindIf(s *parser.IfStmt, cur flow.Node) flow.Node {
	b.recordUses(s.CondRefs, cur)

	trueNode := b.builder.NewTrueCondition(cur, s.Cond, s.Line())
	falseNode := b.builder.NewFalseCondition(cur, s.Cond, s.Line())

	thenEnd := b.bindBlock(s.Then, trueNode)
	elseEnd := flow.Node(falseNode)
	if len(s.Else) > 0 {
		elseEnd = b.bindBlock(s.Else, falseNode)
	}

	// Branch order is textual: then first, else second. Narrowing relies
	// on this order being stable.
	post := b.builder.NewBranchLabel()
	if thenEnd.Kind() != flow.KindUnreachable {
		post.AddAntecedent(thenEnd)
	}
	if elseEnd.Kind() != flow.KindUnreachable {
		post.AddAntecedent(elseEnd)
	}
	return b.builder.FinishLabel(post)
}

func (b *binder) bindWhile(s *parser.WhileStmt, cur flow.Node) flow.Node {
	loopLabel := b.builder.NewLoopLabel()
	loopLabel.AddAntecedent(cur)

	b.recordUses(s.CondRefs, loopLabel)
	trueNode := b.builder.NewTrueCondition(loopLabel, s.Cond, s.Line())
	falseNode := b.builder.NewFalseCondition(loopLabel, s.Cond, s.Line())

	breakLabel := b.builder.NewBranchLabel()
	b.loops = append(b.loops, loopContext{breakLabel: breakLabel, continueLabel: loopLabel})
	bodyEnd := b.bindBlock(s.Body, trueNode)
	b.loops = b.loops[:len(b.loops)-1]

	if bodyEnd.Kind() != flow.KindUnreachable {
		loopLabel.AddAntecedent(bodyEnd)
	}

	exitEnd := flow.Node(falseNode)
	if len(s.Else) > 0 {
		exitEnd = b.bindBlock(s.Else, falseNode)
	}
	if exitEnd.Kind() != flow.KindUnreachable {
		breakLabel.AddAntecedent(exitEnd)
	}
	return b.builder.FinishLabel(breakLabel)
}

func (b *binder) bindFor(s *parser.ForStmt, cur flow.Node) flow.Node {
	// The iterable is evaluated once, before the loop.
	b.recordUses(s.IterRefs, cur)

	loopLabel := b.builder.NewLoopLabel()
	loopLabel.AddAntecedent(cur)

	// Loop targets rebind on every iteration.
	bodyStart := flow.Node(loopLabel)
	for _, target := range s.Targets {
		b.bindName(target, s.Line())
		bodyStart = b.builder.NewAssign(bodyStart, target, s.Line(), false)
	}

	breakLabel := b.builder.NewBranchLabel()
	b.loops = append(b.loops, loopContext{breakLabel: breakLabel, continueLabel: loopLabel})
	bodyEnd := b.bindBlock(s.Body, bodyStart)
	b.loops = b.loops[:len(b.loops)-1]

	if bodyEnd.Kind() != flow.KindUnreachable {
		loopLabel.AddAntecedent(bodyEnd)
	}

	// Exhaustion exits from the loop head, before another target rebind.
	exitEnd := flow.Node(loopLabel)
	if len(s.Else) > 0 {
		exitEnd = b.bindBlock(s.Else, loopLabel)
	}
	if exitEnd.Kind() != flow.KindUnreachable {
		breakLabel.AddAntecedent(exitEnd)
	}
	return b.builder.FinishLabel(breakLabel)
}

func (b *binder) bindTry(s *parser.TryStmt, cur flow.Node) flow.Node {
	preTry := cur
	bodyEnd := b.bindBlock(s.Body, preTry)

	join := b.builder.NewBranchLabel()

	// Handlers can be entered from any point inside the body, so their
	// entry joins the pre-try state with the body's end state.
	var handlerEnds []flow.Node
	for _, handler := range s.Handlers {
		entry := b.builder.NewBranchLabel()
		entry.AddAntecedent(preTry)
		if bodyEnd.Kind() != flow.KindUnreachable {
			entry.AddAntecedent(bodyEnd)
		}
		handlerStart := b.builder.FinishLabel(entry)
		if handler.Name != "" {
			b.bindName(handler.Name, handler.LineNo)
			handlerStart = b.builder.NewAssign(handlerStart, handler.Name, handler.LineNo, false)
		}
		hEnd := b.bindBlock(handler.Body, handlerStart)
		if handler.Name != "" && hEnd.Kind() != flow.KindUnreachable {
			// The exception alias is unbound past the handler suite.
			hEnd = b.builder.NewAssign(hEnd, handler.Name, handler.LineNo, true)
		}
		handlerEnds = append(handlerEnds, hEnd)
	}

	normalEnd := bodyEnd
	if len(s.OrElse) > 0 && bodyEnd.Kind() != flow.KindUnreachable {
		normalEnd = b.bindBlock(s.OrElse, bodyEnd)
	}
	if normalEnd.Kind() != flow.KindUnreachable {
		join.AddAntecedent(normalEnd)
	}
	for _, hEnd := range handlerEnds {
		if hEnd.Kind() != flow.KindUnreachable {
			join.AddAntecedent(hEnd)
		}
	}

	joined := b.builder.FinishLabel(join)
	if len(s.Finally) == 0 {
		return joined
	}

	// The finally suite runs on every path, exceptional or not; the
	// gates bracket it so narrowing can tell the difference between
	// in-finally and post-finally states.
	pre := b.builder.NewPreFinallyGate(joined)
	finallyEnd := b.bindBlock(s.Finally, pre)
	if finallyEnd.Kind() == flow.KindUnreachable {
		return finallyEnd
	}
	return b.builder.NewPostFinallyGate(finallyEnd)
}

func (b *binder) bindMatch(s *parser.MatchStmt, cur flow.Node) flow.Node {
	b.recordUses(s.SubjectRefs, cur)

	post := b.builder.NewBranchLabel()
	for _, c := range s.Cases {
		caseStart := flow.Node(b.builder.NewTrueCondition(cur, c.Pattern, c.LineNo))
		for _, capture := range c.Captures {
			b.bindName(capture, c.LineNo)
			caseStart = b.builder.NewAssign(caseStart, capture, c.LineNo, false)
		}
		caseEnd := b.bindBlock(c.Body, caseStart)
		if caseEnd.Kind() != flow.KindUnreachable {
			post.AddAntecedent(caseEnd)
		}
	}

	// Fall-through when every pattern failed.
	exhausted := b.builder.NewExhaustedMatch(cur, s.Subject, s.Line())
	post.AddAntecedent(exhausted)
	return b.builder.FinishLabel(post)
}

// bindFunctionScope binds a nested function body in its own scope with its
// own flow builder, so node ids stay scope-local and deterministic.
func (b *binder) bindFunctionScope(def *parser.FuncDefStmt) {
	child := &Scope{
		Kind:      ScopeFunction,
		Name:      def.Name,
		Parent:    b.scope,
		Bindings:  make(map[string]bool),
		DefLines:  make(map[string][]int),
		Globals:   make(map[string]bool),
		Functions: make(map[string]*parser.FuncDefStmt),
	}
	b.scope.Children = append(b.scope.Children, child)

	nested := &binder{builder: flow.NewBuilder(), scope: child}
	start := nested.builder.NewStart()
	child.Start = start

	// Parameters are bound at scope entry.
	cur := flow.Node(start)
	for _, p := range def.Params {
		if p.Name == "" || p.Name == "/" {
			continue
		}
		child.Bindings[p.Name] = true
		child.DefLines[p.Name] = append(child.DefLines[p.Name], def.Line())
		cur = nested.builder.NewAssign(cur, p.Name, def.Line(), false)
	}

	child.End = nested.bindBlock(def.Body, cur)
}

func (b *binder) bindClassScope(def *parser.ClassDefStmt) {
	child := &Scope{
		Kind:      ScopeClass,
		Name:      def.Name,
		Parent:    b.scope,
		Bindings:  make(map[string]bool),
		DefLines:  make(map[string][]int),
		Globals:   make(map[string]bool),
		Functions: make(map[string]*parser.FuncDefStmt),
	}
	b.scope.Children = append(b.scope.Children, child)

	nested := &binder{builder: flow.NewBuilder(), scope: child}
	start := nested.builder.NewStart()
	child.Start = start
	child.End = nested.bindBlock(def.Body, start)
}

func (b *binder) recordUses(refs []parser.NameRef, node flow.Node) {
	for _, ref := range refs {
		b.scope.Uses = append(b.scope.Uses, Use{Name: ref.Name, Location: ref.Location, Node: node})
	}
}

func (b *binder) recordCalls(calls []parser.CallInfo, cur flow.Node) flow.Node {
	for _, call := range calls {
		cur = b.builder.NewCall(cur, call.Callee, call.Location.Line)
		b.scope.Calls = append(b.scope.Calls, CallUse{Info: call, Node: cur})
	}
	return cur
}

func (b *binder) bindName(name string, line int) {
	b.scope.Bindings[name] = true
	b.scope.DefLines[name] = append(b.scope.DefLines[name], line)
}
