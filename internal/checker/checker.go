// # internal/checker/checker.go
package checker

import (
	"fmt"
	"sort"
	"strings"

	"pyscope/internal/binder"
	"pyscope/internal/evaluator"
	"pyscope/internal/params"
	"pyscope/internal/parser"
)

// Checker runs the per-file analysis passes over a bound source file. It
// borrows the program's evaluator; a checker is cheap and rebuilt per run.
type Checker struct {
	eval *evaluator.Evaluator

	// ExtraGlobals are names bound by implicit predecessor scopes, such as
	// earlier chained cells in a REPL session.
	ExtraGlobals map[string]bool
}

func New(eval *evaluator.Evaluator) *Checker {
	return &Checker{eval: eval}
}

// Check produces the full diagnostic set for one parsed and bound file,
// sorted by position for stable output.
func (c *Checker) Check(pr *parser.ParseResult, bound *binder.Result) []Diagnostic {
	var diags []Diagnostic

	used := make(map[string]bool)
	c.walkScope(bound.ModuleScope, &diags, used)
	diags = append(diags, c.checkUnusedImports(pr, bound.ModuleScope, used)...)

	sort.SliceStable(diags, func(i, j int) bool {
		if diags[i].Line != diags[j].Line {
			return diags[i].Line < diags[j].Line
		}
		return diags[i].Column < diags[j].Column
	})
	return diags
}

func (c *Checker) walkScope(scope *binder.Scope, diags *[]Diagnostic, used map[string]bool) {
	c.checkNames(scope, diags, used)
	c.checkCalls(scope, diags, used)

	for _, line := range scope.UnreachableLines {
		*diags = append(*diags, Diagnostic{
			Severity: SeverityHint,
			Rule:     RuleUnreachable,
			Message:  "Code is unreachable",
			Line:     line,
			Column:   1,
		})
	}

	for _, child := range scope.Children {
		c.walkScope(child, diags, used)
	}
}

// checkNames resolves every name load in the scope. Local names get the
// flow-sensitive treatment; everything else resolves lexically.
func (c *Checker) checkNames(scope *binder.Scope, diags *[]Diagnostic, used map[string]bool) {
	for _, use := range scope.Uses {
		used[use.Name] = true

		if scope.Bindings[use.Name] && !scope.Globals[use.Name] {
			switch c.eval.NarrowBinding(use.Node, use.Name) {
			case evaluator.StateUnbound:
				*diags = append(*diags, Diagnostic{
					Severity: SeverityError,
					Rule:     RuleUnboundVariable,
					Message:  fmt.Sprintf("%q is unbound", use.Name),
					Line:     use.Location.Line,
					Column:   use.Location.Column,
				})
			case evaluator.StatePossiblyUnbound:
				*diags = append(*diags, Diagnostic{
					Severity: SeverityWarning,
					Rule:     RulePossiblyUnbound,
					Message:  fmt.Sprintf("%q is possibly unbound", use.Name),
					Line:     use.Location.Line,
					Column:   use.Location.Column,
				})
			}
			continue
		}

		if c.resolvesLexically(scope, use.Name) {
			continue
		}
		*diags = append(*diags, Diagnostic{
			Severity: SeverityError,
			Rule:     RuleUndefinedVariable,
			Message:  fmt.Sprintf("%q is not defined", use.Name),
			Line:     use.Location.Line,
			Column:   use.Location.Column,
		})
	}
}

// resolvesLexically reports whether a name finds a binding outside its own
// scope. Class scopes are invisible to enclosed functions, matching the
// language's scoping rules; a wildcard import anywhere on the chain makes
// any name plausible.
func (c *Checker) resolvesLexically(scope *binder.Scope, name string) bool {
	if builtinNames[name] || c.ExtraGlobals[name] {
		return true
	}
	origin := scope
	for cur := scope; cur != nil; cur = cur.Parent {
		if cur.HasWildcardImport {
			return true
		}
		if cur != origin && cur.Kind == binder.ScopeClass {
			continue
		}
		if cur.Bindings[name] {
			return true
		}
	}
	return false
}

// checkCalls validates call sites against normalized parameter lists for
// callees that resolve to a locally defined function. Calls through
// attributes, star-arguments, or ParamSpec-carrying signatures are left to
// the full evaluator.
func (c *Checker) checkCalls(scope *binder.Scope, diags *[]Diagnostic, used map[string]bool) {
	for _, call := range scope.Calls {
		info := call.Info
		if base, _, found := strings.Cut(info.Callee, "."); found || base == "" {
			if base != "" {
				used[base] = true
			}
			continue
		}
		used[info.Callee] = true
		if info.HasStarArgs || info.HasKwargsArgs {
			continue
		}

		def := c.lookupFunction(scope, info.Callee)
		if def == nil {
			continue
		}
		details := params.Normalize(c.eval.FunctionType(def))
		if details.ParamSpec != nil {
			continue
		}
		*diags = append(*diags, matchArguments(info, details)...)
	}
}

func (c *Checker) lookupFunction(scope *binder.Scope, name string) *parser.FuncDefStmt {
	origin := scope
	for cur := scope; cur != nil; cur = cur.Parent {
		if cur != origin && cur.Kind == binder.ScopeClass {
			continue
		}
		if def, ok := cur.Functions[name]; ok {
			return def
		}
		// A local rebinding shadows any outer function definition.
		if cur.Bindings[name] {
			return nil
		}
	}
	return nil
}

// matchArguments simulates binding the call's arguments to the virtual
// parameter list, reporting arity and keyword mismatches.
func matchArguments(info parser.CallInfo, details *params.ParamListDetails) []Diagnostic {
	var diags []Diagnostic
	report := func(msg string) {
		diags = append(diags, Diagnostic{
			Severity: SeverityError,
			Rule:     RuleCallIssue,
			Message:  msg,
			Line:     info.Location.Line,
			Column:   info.Location.Column,
		})
	}

	tracker := params.NewParamAssignmentTracker(details)

	posIdx := 0
	for i := 0; i < info.PositionalArgs; i++ {
		for posIdx < len(details.Params) && details.Params[posIdx].Kind == params.KindKeyword {
			posIdx++
		}
		if posIdx >= len(details.Params) {
			limit := positionalCapacity(details)
			report(fmt.Sprintf("Expected at most %d positional argument(s) to %q, got %d",
				limit, info.Callee, info.PositionalArgs))
			break
		}
		tracker.Assign(posIdx)
		if posIdx != details.ArgsIndex {
			posIdx++
		}
	}

	for _, kw := range info.KeywordArgs {
		idx := -1
		for i, vp := range details.Params {
			if i == details.KwargsIndex || i == details.ArgsIndex {
				continue
			}
			if vp.Kind == params.KindPositional || vp.Kind == params.KindExpandedArgs {
				continue
			}
			if vp.Name == kw {
				idx = i
				break
			}
		}
		switch {
		case idx >= 0:
			if tracker.Count(idx) > 0 {
				report(fmt.Sprintf("Multiple values for argument %q in call to %q", kw, info.Callee))
			}
			tracker.Assign(idx)
		case details.KwargsIndex >= 0:
			tracker.Assign(details.KwargsIndex)
		default:
			report(fmt.Sprintf("No parameter named %q in call to %q", kw, info.Callee))
		}
	}

	if missing := tracker.UnassignedRequired(); len(missing) > 0 {
		report(fmt.Sprintf("Missing argument(s) for %q: %s",
			info.Callee, strings.Join(missing, ", ")))
	}
	return diags
}

// positionalCapacity counts the slots a positional argument may land in.
func positionalCapacity(details *params.ParamListDetails) int {
	if details.ArgsIndex >= 0 {
		return len(details.Params)
	}
	n := 0
	for _, vp := range details.Params {
		if vp.Kind != params.KindKeyword {
			n++
		}
	}
	return n
}

// checkUnusedImports flags module-level import bindings with no load
// anywhere in the file. Wildcard imports are exempt; so are names
// conventionally re-exported via a bare underscore alias.
func (c *Checker) checkUnusedImports(pr *parser.ParseResult, module *binder.Scope, used map[string]bool) []Diagnostic {
	var diags []Diagnostic
	if module.HasWildcardImport {
		return diags
	}
	for _, imp := range pr.Imports {
		for _, name := range imp.BoundNames() {
			if used[name] || name == "_" || module.Globals[name] {
				continue
			}
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Rule:     RuleUnusedImport,
				Message:  fmt.Sprintf("Import %q is not accessed", name),
				Line:     imp.Location.Line,
				Column:   imp.Location.Column,
			})
		}
	}
	return diags
}

// HoverText renders the signature of a locally defined function for hover
// queries. Returns the empty string when the name is not a known function.
func (c *Checker) HoverText(scope *binder.Scope, name string) string {
	def := c.lookupFunction(scope, name)
	if def == nil {
		return ""
	}
	fn := c.eval.FunctionType(def)
	return fmt.Sprintf("def %s%s", fn.Name, fn.String())
}
