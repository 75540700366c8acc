// # internal/binder/binder_test.go
package binder

import (
	"testing"

	"pyscope/internal/flow"
	"pyscope/internal/parser"
)

func assign(line int, targets ...string) *parser.AssignStmt {
	s := &parser.AssignStmt{Targets: targets}
	s.LineNo = line
	return s
}

func bindBody(stmts ...parser.Stmt) *Result {
	return Bind(&parser.ParseResult{Body: stmts})
}

func TestBindRecordsBindingsAndDefLines(t *testing.T) {
	res := bindBody(
		assign(1, "x"),
		assign(3, "x", "y"),
	)

	scope := res.ModuleScope
	if !scope.Bindings["x"] || !scope.Bindings["y"] {
		t.Fatal("expected x and y bound at module scope")
	}
	if got := scope.DefLines["x"]; len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("unexpected def lines for x: %v", got)
	}
	if scope.End.Kind() != flow.KindAssign {
		t.Errorf("expected flow to end at an assign node, got %v", scope.End.Kind())
	}
}

func TestBindIfJoinsBranches(t *testing.T) {
	ifStmt := &parser.IfStmt{
		Cond: "cond",
		Then: []parser.Stmt{assign(2, "x")},
		Else: []parser.Stmt{assign(4, "y")},
	}
	ifStmt.LineNo = 1

	res := bindBody(ifStmt)
	end := res.ModuleScope.End
	if end.Kind() != flow.KindBranchLabel {
		t.Fatalf("expected branch label at join, got %v", end.Kind())
	}
	ants := end.Antecedents()
	if len(ants) != 2 {
		t.Fatalf("expected 2 antecedents, got %d", len(ants))
	}
	// Textual order: then branch first.
	thenAssign, ok := ants[0].(*flow.Assign)
	if !ok || thenAssign.Target != "x" {
		t.Error("first antecedent should be the then-branch assign of x")
	}
	elseAssign, ok := ants[1].(*flow.Assign)
	if !ok || elseAssign.Target != "y" {
		t.Error("second antecedent should be the else-branch assign of y")
	}
}

func TestBindIfWithTerminalBranchCollapses(t *testing.T) {
	ret := &parser.ReturnStmt{}
	ret.LineNo = 3
	ifStmt := &parser.IfStmt{
		Cond: "cond",
		Then: []parser.Stmt{assign(2, "x"), ret},
	}
	ifStmt.LineNo = 1

	res := bindBody(ifStmt)
	// Then branch ends unreachable; only the false condition survives, so
	// the join collapses to it.
	if res.ModuleScope.End.Kind() != flow.KindFalseCondition {
		t.Errorf("expected collapse to the false condition, got %v", res.ModuleScope.End.Kind())
	}
}

func TestBindUnreachableAfterReturn(t *testing.T) {
	ret := &parser.ReturnStmt{}
	ret.LineNo = 1

	res := bindBody(ret, assign(2, "x"), assign(3, "y"))
	scope := res.ModuleScope
	if len(scope.UnreachableLines) != 1 || scope.UnreachableLines[0] != 2 {
		t.Errorf("expected one unreachable region starting at line 2, got %v", scope.UnreachableLines)
	}
}

func TestBindWhileLoopBackEdge(t *testing.T) {
	loop := &parser.WhileStmt{
		Cond: "cond",
		Body: []parser.Stmt{assign(2, "x")},
	}
	loop.LineNo = 1

	res := bindBody(loop)
	// The exit is the false condition off the loop label (no break, no
	// else, so the break label collapses).
	end := res.ModuleScope.End
	cond, ok := end.(*flow.Condition)
	if !ok || cond.Kind() != flow.KindFalseCondition {
		t.Fatalf("expected false condition exit, got %v", end.Kind())
	}

	label := cond.Antecedents()[0]
	if label.Kind() != flow.KindLoopLabel {
		t.Fatalf("condition should hang off the loop label, got %v", label.Kind())
	}
	ants := label.Antecedents()
	if len(ants) != 2 {
		t.Fatalf("loop label should have entry and back edge, got %d antecedents", len(ants))
	}
	back, ok := ants[1].(*flow.Assign)
	if !ok || back.Target != "x" {
		t.Error("back edge should come from the body assign")
	}
}

func TestBindWhileBreakReachesExit(t *testing.T) {
	brk := &parser.BreakStmt{}
	brk.LineNo = 3
	inner := &parser.IfStmt{Cond: "done", Then: []parser.Stmt{brk}}
	inner.LineNo = 2
	loop := &parser.WhileStmt{
		Cond: "True",
		Body: []parser.Stmt{inner, assign(4, "x")},
	}
	loop.LineNo = 1

	res := bindBody(loop)
	end := res.ModuleScope.End
	if end.Kind() != flow.KindBranchLabel {
		t.Fatalf("break should keep the exit label alive, got %v", end.Kind())
	}
	// Exit label joins the break edge and the false-condition path.
	if len(end.Antecedents()) != 2 {
		t.Errorf("expected 2 exit paths, got %d", len(end.Antecedents()))
	}
}

func TestBindForExhaustionExitsFromHead(t *testing.T) {
	loop := &parser.ForStmt{
		Targets:  []string{"item"},
		IterExpr: "items",
		Body:     []parser.Stmt{assign(2, "x")},
	}
	loop.LineNo = 1

	res := bindBody(loop)
	// No break and no else: exit collapses to the loop label itself, i.e.
	// the point before the per-iteration target rebind.
	if res.ModuleScope.End.Kind() != flow.KindLoopLabel {
		t.Errorf("exhaustion should exit from the loop head, got %v", res.ModuleScope.End.Kind())
	}
	if !res.ModuleScope.Bindings["item"] {
		t.Error("loop target should be bound in the scope")
	}
}

func TestBindTryHandlerAliasDeleted(t *testing.T) {
	try := &parser.TryStmt{
		Body: []parser.Stmt{assign(2, "x")},
		Handlers: []parser.ExceptHandler{
			{Name: "e", ExprText: "ValueError", Body: []parser.Stmt{assign(4, "y")}, LineNo: 3},
		},
	}
	try.LineNo = 1

	res := bindBody(try)
	end := res.ModuleScope.End
	if end.Kind() != flow.KindBranchLabel {
		t.Fatalf("expected join label after try, got %v", end.Kind())
	}
	ants := end.Antecedents()
	if len(ants) != 2 {
		t.Fatalf("expected normal path and handler path, got %d", len(ants))
	}
	// The handler path ends with the alias unbind.
	del, ok := ants[1].(*flow.Assign)
	if !ok || del.Target != "e" || !del.Deleted {
		t.Error("handler path should end with a deleting assign of the alias")
	}
	if !res.ModuleScope.Bindings["e"] {
		t.Error("exception alias should appear in scope bindings")
	}
}

func TestBindTryFinallyGates(t *testing.T) {
	try := &parser.TryStmt{
		Body:    []parser.Stmt{assign(2, "x")},
		Finally: []parser.Stmt{assign(4, "y")},
	}
	try.LineNo = 1

	res := bindBody(try)
	end := res.ModuleScope.End
	if end.Kind() != flow.KindPostFinallyGate {
		t.Fatalf("expected post-finally gate, got %v", end.Kind())
	}

	foundPre := false
	flow.WalkBack(end, func(n flow.Node) bool {
		if n.Kind() == flow.KindPreFinallyGate {
			foundPre = true
		}
		return true
	})
	if !foundPre {
		t.Error("pre-finally gate should precede the finally suite")
	}
}

func TestBindMatchFallThrough(t *testing.T) {
	match := &parser.MatchStmt{
		Subject: "cmd",
		Cases: []parser.MatchCase{
			{Pattern: "Quit()", Captures: []string{"q"}, Body: []parser.Stmt{assign(3, "x")}, LineNo: 2},
		},
	}
	match.LineNo = 1

	res := bindBody(match)
	end := res.ModuleScope.End
	if end.Kind() != flow.KindBranchLabel {
		t.Fatalf("expected post-match label, got %v", end.Kind())
	}
	ants := end.Antecedents()
	if len(ants) != 2 {
		t.Fatalf("expected case path plus exhaustion path, got %d", len(ants))
	}
	if ants[len(ants)-1].Kind() != flow.KindExhaustedMatch {
		t.Error("the last antecedent should be the exhausted-match fall-through")
	}
	if !res.ModuleScope.Bindings["q"] {
		t.Error("pattern capture should be bound")
	}
}

func TestBindWildcardImport(t *testing.T) {
	imp := &parser.ImportStmt{Import: parser.Import{Module: "os", IsWildcard: true}}
	imp.LineNo = 1

	res := bindBody(imp)
	if !res.ModuleScope.HasWildcardImport {
		t.Error("wildcard import flag should be set")
	}
	if res.ModuleScope.End.Kind() != flow.KindWildcardImport {
		t.Errorf("flow should pass through a wildcard-import node, got %v", res.ModuleScope.End.Kind())
	}
}

func TestBindImportBindsNames(t *testing.T) {
	plain := &parser.ImportStmt{Import: parser.Import{Module: "os.path"}}
	plain.LineNo = 1
	from := &parser.ImportStmt{Import: parser.Import{Module: "typing", Items: []string{"Any", "cast"}}}
	from.LineNo = 2
	aliased := &parser.ImportStmt{Import: parser.Import{Module: "numpy", Alias: "np"}}
	aliased.LineNo = 3

	res := bindBody(plain, from, aliased)
	scope := res.ModuleScope
	for _, name := range []string{"os", "Any", "cast", "np"} {
		if !scope.Bindings[name] {
			t.Errorf("expected %s bound", name)
		}
	}
	if scope.Bindings["path"] {
		t.Error("dotted import should only bind the top-level package")
	}
}

func TestBindFunctionScope(t *testing.T) {
	inner := assign(3, "local")
	def := &parser.FuncDefStmt{
		Name: "handler",
		Params: []parser.ParamDecl{
			{Name: "self"},
			{Name: ""},
			{Name: "arg"},
		},
		Body: []parser.Stmt{inner},
	}
	def.LineNo = 2

	res := bindBody(assign(1, "x"), def)
	module := res.ModuleScope
	if !module.Bindings["handler"] {
		t.Fatal("def should bind the function name at module scope")
	}
	if module.Functions["handler"] != def {
		t.Error("Functions map should point at the def")
	}
	if len(module.Children) != 1 {
		t.Fatalf("expected one child scope, got %d", len(module.Children))
	}

	child := module.Children[0]
	if child.Kind != ScopeFunction || child.Name != "handler" {
		t.Error("child scope should be the function scope")
	}
	if !child.Bindings["self"] || !child.Bindings["arg"] || !child.Bindings["local"] {
		t.Error("params and locals should be bound in the function scope")
	}
	if child.Bindings[""] {
		t.Error("the bare * separator must not be bound")
	}
	if child.Start.ID() != 0 {
		t.Error("child scope flow ids should restart at zero")
	}
}

func TestBindGlobalDeclaration(t *testing.T) {
	g := &parser.GlobalStmt{Names: []string{"counter"}}
	g.LineNo = 2
	def := &parser.FuncDefStmt{
		Name: "bump",
		Body: []parser.Stmt{g, assign(3, "counter")},
	}
	def.LineNo = 1

	res := bindBody(def)
	child := res.ModuleScope.Children[0]
	if !child.Globals["counter"] {
		t.Error("global declaration should be recorded")
	}
}

func TestLookupScope(t *testing.T) {
	def := &parser.FuncDefStmt{
		Name: "f",
		Body: []parser.Stmt{assign(2, "local")},
	}
	def.LineNo = 1

	res := bindBody(assign(1, "top"), def)
	child := res.ModuleScope.Children[0]

	if got := child.LookupScope("local"); got != child {
		t.Error("local name should resolve to the function scope")
	}
	if got := child.LookupScope("top"); got != res.ModuleScope {
		t.Error("outer name should resolve to the module scope")
	}
	if got := child.LookupScope("missing"); got != nil {
		t.Error("unknown name should resolve to nil")
	}
}
