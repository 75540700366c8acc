// # internal/program/eviction.go
package program

import (
	"sort"

	"pyscope/internal/shared/observability"
)

// markFileDirtyRecursive invalidates everything that transitively imports
// fi. Importers only need re-checking, not re-binding, unless their own
// content changes; chained dependents are re-checked too even without an
// import edge, because a predecessor cell's bindings feed their checks.
func (p *Program) markFileDirtyRecursive(fi *SourceFileInfo, visited map[string]bool) {
	if visited[fi.Path] {
		return
	}
	visited[fi.Path] = true

	for _, importer := range fi.ImportedBy {
		importer.SourceFile.MarkReanalysisRequired(false)
		importer.NoCircularDependencyConfirmed = false
		p.markFileDirtyRecursive(importer, visited)
	}

	for _, other := range p.files {
		if other.ChainedSourceFile == fi && !visited[other.Path] {
			other.SourceFile.MarkReanalysisRequired(false)
			p.markFileDirtyRecursive(other, visited)
		}
	}
}

// removeUnneededFiles sweeps the registry, evicting records nothing needs
// anymore. Returns the evicted paths so callers can clear their published
// diagnostics.
func (p *Program) removeUnneededFiles() []string {
	var cleared []string
	// Re-run until stable: evicting one record can strand another.
	for {
		removed := false
		for _, path := range p.sortedPaths() {
			fi := p.files[path]
			if p.isFileNeeded(fi) {
				continue
			}
			p.evictFile(fi)
			cleared = append(cleared, path)
			removed = true
		}
		if !removed {
			break
		}
	}
	if len(cleared) > 0 {
		p.updateGauges()
	}
	return cleared
}

func (p *Program) evictFile(fi *SourceFileInfo) {
	for _, imported := range append([]*SourceFileInfo(nil), fi.Imports...) {
		removeImportEdge(fi, imported)
	}
	for _, importer := range append([]*SourceFileInfo(nil), fi.ImportedBy...) {
		removeImportEdge(importer, fi)
	}
	for _, stub := range append([]*SourceFileInfo(nil), fi.Shadows...) {
		removeShadowEdge(fi, stub)
	}
	for _, impl := range append([]*SourceFileInfo(nil), fi.ShadowedBy...) {
		removeShadowEdge(impl, fi)
	}
	// Implicit links are plain pointers, not edges, so survivors pointing at
	// the evicted record must be unlinked here. A nil builtins link
	// re-resolves on the next import update.
	for _, other := range p.files {
		if other == fi {
			continue
		}
		if other.ChainedSourceFile == fi {
			other.ChainedSourceFile = nil
		}
		if other.BuiltinsImport == fi {
			other.BuiltinsImport = nil
		}
		if other.IPythonDisplayImport == fi {
			other.IPythonDisplayImport = nil
		}
	}
	delete(p.files, fi.Path)
	observability.EvictedFilesTotal.Inc()
	p.logger.Debug("evicted file record", "path", fi.Path)
}

// isFileNeeded is the reachability predicate behind eviction: a file is
// needed iff tracked, open, part of a shadow pair, or reachable over a
// reverse dependency path from a needed file. Reverse dependencies cover
// import edges and the implicit links, which carry no ImportedBy entry.
// The walk is cycle-safe over path keys, so mutually importing abandoned
// files do not keep each other alive.
func (p *Program) isFileNeeded(fi *SourceFileInfo) bool {
	return p.isNeededRecursive(fi, make(map[string]bool))
}

func (p *Program) isNeededRecursive(fi *SourceFileInfo, visited map[string]bool) bool {
	if visited[fi.Path] {
		return false
	}
	visited[fi.Path] = true

	if fi.IsTracked || fi.IsOpenByClient || len(fi.Shadows) > 0 || len(fi.ShadowedBy) > 0 {
		return true
	}
	for _, importer := range fi.ImportedBy {
		if p.isNeededRecursive(importer, visited) {
			return true
		}
	}
	for _, other := range p.files {
		if other.ChainedSourceFile != fi && other.BuiltinsImport != fi && other.IPythonDisplayImport != fi {
			continue
		}
		if p.isNeededRecursive(other, visited) {
			return true
		}
	}
	return false
}

// GetImpact lists every file transitively importing path, sorted, for
// impact reporting.
func (p *Program) GetImpact(path string) []string {
	fi := p.GetSourceFileInfo(path)
	if fi == nil {
		return nil
	}
	visited := make(map[string]bool)
	var collect func(cur *SourceFileInfo)
	collect = func(cur *SourceFileInfo) {
		for _, importer := range cur.ImportedBy {
			if visited[importer.Path] {
				continue
			}
			visited[importer.Path] = true
			collect(importer)
		}
	}
	collect(fi)

	out := make([]string, 0, len(visited))
	for path := range visited {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}
