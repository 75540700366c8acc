// # internal/program/cycles.go
package program

import (
	"strings"

	"pyscope/internal/checker"
	"pyscope/internal/shared/observability"
)

// detectAndReportImportCycles explores root's import edges with an
// explicit path. A cycle is reportable only when it loops back to the
// traversal root and its length exceeds one; the report is attached to a
// canonical member so the same cycle discovered from different starting
// files produces one diagnostic. Cycle-free files are marked so repeat
// checks are cheap.
func (p *Program) detectAndReportImportCycles(root *SourceFileInfo) {
	if root.NoCircularDependencyConfirmed {
		return
	}

	var cycles [][]*SourceFileInfo
	onStack := map[string]bool{root.Path: true}
	path := []*SourceFileInfo{root}

	var visit func(fi *SourceFileInfo, depth int)
	visit = func(fi *SourceFileInfo, depth int) {
		if depth > p.cfg.Tuning.MaxImportDepth {
			p.attachDepthDiagnostic(root)
			return
		}
		for _, imported := range fi.Imports {
			if imported == root {
				if len(path) > 1 {
					cycles = append(cycles, append([]*SourceFileInfo(nil), path...))
				}
				continue
			}
			if onStack[imported.Path] {
				// A cycle not through the root; its own traversal reports it.
				continue
			}
			onStack[imported.Path] = true
			path = append(path, imported)
			visit(imported, depth+1)
			path = path[:len(path)-1]
			delete(onStack, imported.Path)
		}
	}
	visit(root, 0)

	if len(cycles) == 0 {
		root.NoCircularDependencyConfirmed = true
		return
	}

	reported := make(map[string]bool)
	for _, cycle := range cycles {
		canonical := canonicalizeCycle(cycle)
		key := cycleKey(canonical)
		if reported[key] {
			continue
		}
		reported[key] = true
		p.attachCycleDiagnostic(canonical)
		observability.ImportCyclesTotal.Inc()
	}
}

// canonicalizeCycle rotates the cycle so it starts at its
// lexicographically smallest path, making the report deterministic
// regardless of which file triggered detection.
func canonicalizeCycle(cycle []*SourceFileInfo) []*SourceFileInfo {
	smallest := 0
	for i := 1; i < len(cycle); i++ {
		if cycle[i].Path < cycle[smallest].Path {
			smallest = i
		}
	}
	rotated := make([]*SourceFileInfo, 0, len(cycle))
	rotated = append(rotated, cycle[smallest:]...)
	rotated = append(rotated, cycle[:smallest]...)
	return rotated
}

func cycleKey(cycle []*SourceFileInfo) string {
	paths := make([]string, len(cycle))
	for i, fi := range cycle {
		paths[i] = fi.Path
	}
	return strings.Join(paths, "\x00")
}

// attachCycleDiagnostic reports the cycle on its canonical first file.
func (p *Program) attachCycleDiagnostic(cycle []*SourceFileInfo) {
	names := make([]string, 0, len(cycle)+1)
	for _, fi := range cycle {
		names = append(names, fi.Path)
	}
	names = append(names, cycle[0].Path)

	first := cycle[0]
	diag := checker.Diagnostic{
		Severity: SeverityForRule(checker.RuleImportCycle),
		Rule:     checker.RuleImportCycle,
		Message:  "Import cycle detected: " + strings.Join(names, " -> "),
		Line:     1,
		Column:   1,
	}
	before := len(first.SourceFile.importDiagnostics)
	first.SourceFile.importDiagnostics = appendUniqueDiagnostic(first.SourceFile.importDiagnostics, diag)
	if len(first.SourceFile.importDiagnostics) != before {
		first.SourceFile.MarkReanalysisRequired(false)
	}
}

func (p *Program) attachDepthDiagnostic(root *SourceFileInfo) {
	diag := checker.Diagnostic{
		Severity: checker.SeverityWarning,
		Rule:     checker.RuleImportCycle,
		Message:  "Maximum import depth exceeded; import chain truncated",
		Line:     1,
		Column:   1,
	}
	before := len(root.SourceFile.importDiagnostics)
	root.SourceFile.importDiagnostics = appendUniqueDiagnostic(root.SourceFile.importDiagnostics, diag)
	if len(root.SourceFile.importDiagnostics) != before {
		root.SourceFile.MarkReanalysisRequired(false)
	}
}

func appendUniqueDiagnostic(diags []checker.Diagnostic, diag checker.Diagnostic) []checker.Diagnostic {
	for _, cur := range diags {
		if cur == diag {
			return diags
		}
	}
	return append(diags, diag)
}

// GetImportCyclesFor returns the cycle diagnostics currently attached to a
// file, for presentation layers.
func (p *Program) GetImportCyclesFor(path string) []checker.Diagnostic {
	fi := p.GetSourceFileInfo(path)
	if fi == nil {
		return nil
	}
	var out []checker.Diagnostic
	for _, d := range fi.SourceFile.importDiagnostics {
		if d.Rule == checker.RuleImportCycle {
			out = append(out, d)
		}
	}
	return out
}
