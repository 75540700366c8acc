// # internal/program/imports.go
package program

import (
	"strings"

	"pyscope/internal/checker"
	"pyscope/internal/importresolver"
)

// updateSourceFileImports recomputes fi's outgoing edges after a reparse:
// resolve every import, apply the third-party admission gate, diff against
// the previous edge set, and relink both directions. Idempotent under
// repeated calls with unchanged imports.
func (p *Program) updateSourceFileImports(fi *SourceFileInfo) {
	var importDiags []checker.Diagnostic
	newImports := make([]*SourceFileInfo, 0, len(fi.SourceFile.GetImports()))
	seen := make(map[string]bool)

	for _, imp := range fi.SourceFile.GetImports() {
		desc := importresolver.ParseDescriptor(imp.Module, imp.RelativeLevel)
		resolved := p.resolver.Resolve(fi.Path, desc)

		if !resolved.IsImportFound {
			if !resolved.IsStdlib {
				importDiags = append(importDiags, checker.Diagnostic{
					Severity: SeverityForRule(checker.RuleMissingImport),
					Rule:     checker.RuleMissingImport,
					Message:  `Import "` + desc.Name() + `" could not be resolved`,
					Line:     imp.Location.Line,
					Column:   imp.Location.Column,
				})
			}
			continue
		}
		if resolved.Path == "" || !p.isImportAllowed(fi, resolved) {
			continue
		}

		path := p.normalizePath(resolved.Path)
		if path == fi.Path || seen[path] {
			continue
		}
		seen[path] = true

		target := p.getOrCreate(path)
		target.IsThirdPartyImport = target.IsThirdPartyImport || resolved.IsThirdParty
		target.IsThirdPartyPyTypedPresent = target.IsThirdPartyPyTypedPresent || resolved.HasPyTyped
		target.IsTypeshedFile = target.IsTypeshedFile ||
			(p.cfg.TypeshedPath != "" && strings.HasPrefix(path, p.normalizePath(p.cfg.TypeshedPath)))
		newImports = append(newImports, target)

		if resolved.IsStubFile {
			p.linkShadowImplementation(target, resolved)
		}
	}

	// Diff against the previous edge set.
	for _, old := range append([]*SourceFileInfo(nil), fi.Imports...) {
		if !seen[old.Path] {
			removeImportEdge(fi, old)
		}
	}
	for _, target := range newImports {
		addImportEdge(fi, target)
	}

	p.wireBuiltinsImport(fi)
	fi.SourceFile.setImportDiagnostics(importDiags)
	p.updateGauges()
}

// linkShadowImplementation pairs a stub with the source file standing in
// for its doc-strings, when one exists next to it.
func (p *Program) linkShadowImplementation(stub *SourceFileInfo, resolved *importresolver.ResolvedImport) {
	if !strings.HasSuffix(resolved.Path, ".pyi") {
		return
	}
	implPath := strings.TrimSuffix(resolved.Path, ".pyi") + ".py"
	desc := importresolver.ParseDescriptor(resolved.ModuleName, 0)
	implResolved := p.resolver.Resolve(implPath, desc)
	if !implResolved.IsImportFound || implResolved.IsStubFile {
		return
	}
	impl := p.getOrCreate(p.normalizePath(implResolved.Path))
	addShadowEdge(impl, stub)
}

// wireBuiltinsImport gives every file except builtins itself an implicit
// builtins predecessor, when a builtins module resolves.
func (p *Program) wireBuiltinsImport(fi *SourceFileInfo) {
	if strings.HasSuffix(fi.Path, "builtins.pyi") || strings.HasSuffix(fi.Path, "builtins.py") {
		return
	}
	if fi.BuiltinsImport != nil {
		return
	}
	resolved := p.resolver.Resolve(fi.Path, importresolver.ParseDescriptor("builtins", 0))
	if !resolved.IsImportFound || resolved.Path == "" {
		return
	}
	fi.BuiltinsImport = p.getOrCreate(p.normalizePath(resolved.Path))
}

// isImportAllowed is the third-party admission gate bounding the
// transitive closure. Native extensions are never tracked; untyped
// third-party code enters only when configured in, marker-typed, imported
// by third-party code, or allow-listed.
func (p *Program) isImportAllowed(importer *SourceFileInfo, resolved *importresolver.ResolvedImport) bool {
	if resolved.IsNativeLib {
		return false
	}
	if !resolved.IsThirdParty {
		return true
	}
	if p.cfg.UseLibraryCodeForTypes || resolved.HasPyTyped || resolved.IsStubFile {
		return true
	}
	if importer.IsThirdPartyImport {
		return true
	}
	return p.isAllowListed(resolved.ModuleName)
}

// isAllowListed matches exactly or as a dotted-child prefix: allowing
// "pkg" admits "pkg.sub" but not "pkgother".
func (p *Program) isAllowListed(moduleName string) bool {
	for _, allowed := range p.cfg.AllowedThirdParty {
		if moduleName == allowed || strings.HasPrefix(moduleName, allowed+".") {
			return true
		}
	}
	return false
}

// SeverityForRule maps resolution rules to their default severity.
func SeverityForRule(rule string) checker.Severity {
	switch rule {
	case checker.RuleImportCycle:
		return checker.SeverityInformation
	case checker.RuleMissingImport:
		return checker.SeverityError
	default:
		return checker.SeverityWarning
	}
}
