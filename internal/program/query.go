// # internal/program/query.go
package program

import (
	"context"
	"sort"
	"strings"

	"pyscope/internal/binder"
	"pyscope/internal/checker"
)

// Location is a position inside a file, 1-based.
type Location struct {
	Path string
	Line int
	Col  int
}

// ensureBoundFor resolves a path and drives the file to at least the
// Bound state. Returns nil when the file is unknown or unparseable; query
// operations answer nil rather than erroring for unresolvable inputs.
func (p *Program) ensureBoundFor(ctx context.Context, path string) *SourceFileInfo {
	fi := p.GetSourceFileInfo(path)
	if fi == nil {
		return nil
	}
	if ctx.Err() != nil {
		return nil
	}
	if err := p.ensureParsed(fi); err != nil {
		return nil
	}
	if err := p.ensureBound(fi); err != nil {
		return nil
	}
	return fi
}

// GetDefinitionsForPosition maps the name used at a position to its
// binding sites, searching the lexical chain outward.
func (p *Program) GetDefinitionsForPosition(ctx context.Context, path string, line, col int) []Location {
	fi := p.ensureBoundFor(ctx, path)
	if fi == nil {
		return nil
	}
	scope, name := findUseAt(fi.SourceFile.BindResult().ModuleScope, line, col)
	if name == "" {
		return nil
	}
	target := scope.LookupScope(name)
	if target == nil {
		return nil
	}
	var out []Location
	for _, defLine := range target.DefLines[name] {
		out = append(out, Location{Path: fi.Path, Line: defLine, Col: 1})
	}
	return out
}

// GetReferencesForName lists every load of a name in a file, plus its
// binding sites.
func (p *Program) GetReferencesForName(ctx context.Context, path, name string) []Location {
	fi := p.ensureBoundFor(ctx, path)
	if fi == nil {
		return nil
	}
	var out []Location
	var walk func(scope *binder.Scope)
	walk = func(scope *binder.Scope) {
		for _, defLine := range scope.DefLines[name] {
			out = append(out, Location{Path: fi.Path, Line: defLine, Col: 1})
		}
		for _, use := range scope.Uses {
			if use.Name == name {
				out = append(out, Location{Path: fi.Path, Line: use.Location.Line, Col: use.Location.Column})
			}
		}
		for _, child := range scope.Children {
			walk(child)
		}
	}
	walk(fi.SourceFile.BindResult().ModuleScope)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Col < out[j].Col
	})
	return out
}

// GetHoverForPosition renders what is known about the name at a position:
// a function signature when the name resolves to a local def, otherwise
// its flow-sensitive binding state.
func (p *Program) GetHoverForPosition(ctx context.Context, path string, line, col int) string {
	fi := p.ensureBoundFor(ctx, path)
	if fi == nil {
		return ""
	}
	scope, name := findUseAt(fi.SourceFile.BindResult().ModuleScope, line, col)
	if name == "" {
		return ""
	}

	chk := checker.New(p.eval)
	if text := chk.HoverText(scope, name); text != "" {
		return text
	}
	for _, use := range scope.Uses {
		if use.Name == name && use.Location.Line == line && use.Location.Column == col {
			return name + ": " + p.eval.NarrowBinding(use.Node, name).String()
		}
	}
	return name
}

// GetCompletionsForPosition lists the names visible from the scope
// enclosing a position, sorted and deduplicated.
func (p *Program) GetCompletionsForPosition(ctx context.Context, path string, line, col int) []string {
	fi := p.ensureBoundFor(ctx, path)
	if fi == nil {
		return nil
	}
	scope := scopeForLine(fi.SourceFile.BindResult().ModuleScope, line)

	seen := make(map[string]bool)
	origin := scope
	for cur := scope; cur != nil; cur = cur.Parent {
		if cur != origin && cur.Kind == binder.ScopeClass {
			continue
		}
		for name := range cur.Bindings {
			if name != "" && name != "/" {
				seen[name] = true
			}
		}
	}
	for name := range p.chainedGlobals(fi) {
		seen[name] = true
	}

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// findUseAt locates the name loaded at an exact position, searching all
// scopes. Falls back to any use on the same line when the column does not
// match a recorded load.
func findUseAt(root *binder.Scope, line, col int) (*binder.Scope, string) {
	var lineScope *binder.Scope
	var lineName string
	var walk func(scope *binder.Scope) (*binder.Scope, string)
	walk = func(scope *binder.Scope) (*binder.Scope, string) {
		for _, use := range scope.Uses {
			if use.Location.Line == line {
				if use.Location.Column == col {
					return scope, use.Name
				}
				if lineName == "" {
					lineScope, lineName = scope, use.Name
				}
			}
		}
		for _, child := range scope.Children {
			if s, n := walk(child); n != "" {
				return s, n
			}
		}
		return nil, ""
	}
	if s, n := walk(root); n != "" {
		return s, n
	}
	return lineScope, lineName
}

// scopeForLine picks the innermost scope whose recorded activity spans the
// line. Spans come from def and use lines, which is approximate but
// sufficient for completion scoping.
func scopeForLine(root *binder.Scope, line int) *binder.Scope {
	best := root
	var walk func(scope *binder.Scope)
	walk = func(scope *binder.Scope) {
		for _, child := range scope.Children {
			lo, hi := scopeSpan(child)
			if lo <= line && line <= hi {
				best = child
				walk(child)
			}
		}
	}
	walk(root)
	return best
}

func scopeSpan(scope *binder.Scope) (int, int) {
	lo, hi := 0, 0
	note := func(line int) {
		if line == 0 {
			return
		}
		if lo == 0 || line < lo {
			lo = line
		}
		if line > hi {
			hi = line
		}
	}
	for _, lines := range scope.DefLines {
		for _, line := range lines {
			note(line)
		}
	}
	for _, use := range scope.Uses {
		note(use.Location.Line)
	}
	for _, child := range scope.Children {
		clo, chi := scopeSpan(child)
		note(clo)
		note(chi)
	}
	return lo, hi
}

// GetDiagnosticsForFile returns the published diagnostics and version for
// a file. A nil version means nothing was ever published.
func (p *Program) GetDiagnosticsForFile(path string) ([]checker.Diagnostic, *int) {
	fi := p.GetSourceFileInfo(path)
	if fi == nil {
		return nil, nil
	}
	return fi.SourceFile.Diagnostics(), fi.DiagnosticsVersion
}

// DebugDumpImports renders the import edges of a file for diagnostics.
func (p *Program) DebugDumpImports(path string) string {
	fi := p.GetSourceFileInfo(path)
	if fi == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(fi.Path + "\n")
	for _, imported := range fi.Imports {
		b.WriteString("  -> " + imported.Path + "\n")
	}
	for _, importer := range fi.ImportedBy {
		b.WriteString("  <- " + importer.Path + "\n")
	}
	return b.String()
}
