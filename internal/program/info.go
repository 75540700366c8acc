// # internal/program/info.go
package program

// SourceFileInfo is one file's membership record in the registry: its
// provenance, its import-graph edges, and its implicit-import links. Edge
// slices hold direct pointers; the registry keeps them symmetric and is
// the only mutator.
type SourceFileInfo struct {
	Path       string // normalized absolute path, registry key
	SourceFile *SourceFile

	// Provenance flags are independent booleans, not an enum: a file can
	// be tracked and third-party at once (an explicitly opened library
	// file, for example).
	IsTracked                  bool
	IsOpenByClient             bool
	IsThirdPartyImport         bool
	IsThirdPartyPyTypedPresent bool
	IsTypeshedFile             bool

	Imports    []*SourceFileInfo
	ImportedBy []*SourceFileInfo

	// Shadow edges pair a stub with the implementation file standing in
	// for its doc-strings. Independent of the import graph.
	Shadows    []*SourceFileInfo
	ShadowedBy []*SourceFileInfo

	// Implicit predecessor scopes, bound before this file's own scope in
	// the order: chained file, ipython display shim, builtins.
	BuiltinsImport       *SourceFileInfo
	ChainedSourceFile    *SourceFileInfo
	IPythonDisplayImport *SourceFileInfo

	// DiagnosticsVersion is the last published version for this file.
	// nil means no diagnostics were ever published.
	DiagnosticsVersion *int

	// NoCircularDependencyConfirmed lets repeat cycle checks skip files
	// already proven cycle-free. Cleared on reparse.
	NoCircularDependencyConfirmed bool
}

func contains(list []*SourceFileInfo, fi *SourceFileInfo) bool {
	for _, cur := range list {
		if cur == fi {
			return true
		}
	}
	return false
}

func remove(list []*SourceFileInfo, fi *SourceFileInfo) []*SourceFileInfo {
	for i, cur := range list {
		if cur == fi {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// addImportEdge links importer → imported symmetrically. Idempotent.
func addImportEdge(importer, imported *SourceFileInfo) {
	if contains(importer.Imports, imported) {
		return
	}
	importer.Imports = append(importer.Imports, imported)
	imported.ImportedBy = append(imported.ImportedBy, importer)
}

// removeImportEdge unlinks both directions. No-op when absent.
func removeImportEdge(importer, imported *SourceFileInfo) {
	importer.Imports = remove(importer.Imports, imported)
	imported.ImportedBy = remove(imported.ImportedBy, importer)
}

// addShadowEdge records impl shadowing stub, symmetrically.
func addShadowEdge(impl, stub *SourceFileInfo) {
	if contains(impl.Shadows, stub) {
		return
	}
	impl.Shadows = append(impl.Shadows, stub)
	stub.ShadowedBy = append(stub.ShadowedBy, impl)
}

func removeShadowEdge(impl, stub *SourceFileInfo) {
	impl.Shadows = remove(impl.Shadows, stub)
	stub.ShadowedBy = remove(stub.ShadowedBy, impl)
}
