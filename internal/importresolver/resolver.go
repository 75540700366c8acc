// # internal/importresolver/resolver.go
package importresolver

import (
	"os"
	"path/filepath"
	"strings"
)

// ModuleDescriptor is a parsed import target: leading dots for relative
// imports plus the dotted name parts.
type ModuleDescriptor struct {
	LeadingDots int
	NameParts   []string
}

func (d ModuleDescriptor) Name() string {
	return strings.Repeat(".", d.LeadingDots) + strings.Join(d.NameParts, ".")
}

// ParseDescriptor splits a dotted module reference into a descriptor.
func ParseDescriptor(module string, relativeLevel int) ModuleDescriptor {
	d := ModuleDescriptor{LeadingDots: relativeLevel}
	if module != "" {
		d.NameParts = strings.Split(module, ".")
	}
	return d
}

// ResolvedImport is the outcome of resolving one descriptor. An unresolved
// import still carries its classification so diagnostics can phrase the
// failure usefully.
type ResolvedImport struct {
	IsImportFound bool
	Path          string
	ModuleName    string
	IsStubFile    bool
	IsNativeLib   bool // compiled extension (.so / .pyd), no source to analyze
	IsStdlib      bool
	IsThirdParty  bool
	HasPyTyped    bool
}

// Options configures a resolver for one execution environment.
type Options struct {
	ProjectRoot string
	// TypeshedPath points at bundled stub files for the stdlib and common
	// third-party packages. Searched after the project tree.
	TypeshedPath string
	// ExtraPaths are additional search roots, e.g. a site-packages dir.
	ExtraPaths []string
	// UseLibraryCodeForTypes allows falling back to third-party .py
	// sources when a package ships no stubs and no py.typed marker.
	UseLibraryCodeForTypes bool
	CacheSize              int
}

// Resolver maps module descriptors to filesystem paths. Results are
// LRU-cached per (importing directory, descriptor); the cache is cleared
// when the execution environment changes.
type Resolver struct {
	opts  Options
	cache *resolveCache
}

const defaultCacheSize = 4096

func NewResolver(opts Options) *Resolver {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	return &Resolver{opts: opts, cache: newResolveCache(size)}
}

// Resolve finds the file backing a module descriptor as imported from
// fromPath. Search order: the importing package for relative imports, then
// project root, extra paths, and typeshed for absolute ones.
func (r *Resolver) Resolve(fromPath string, desc ModuleDescriptor) *ResolvedImport {
	fromDir := filepath.Dir(fromPath)
	key := cacheKey{fromDir: fromDir, descriptor: desc.Name()}
	if cached, ok := r.cache.get(key); ok {
		return cached
	}

	result := r.resolveUncached(fromDir, desc)
	r.cache.put(key, result)
	return result
}

func (r *Resolver) resolveUncached(fromDir string, desc ModuleDescriptor) *ResolvedImport {
	result := &ResolvedImport{ModuleName: desc.Name()}

	if desc.LeadingDots > 0 {
		// One dot is the importing package itself; each further dot
		// climbs one package level.
		base := fromDir
		for i := 1; i < desc.LeadingDots; i++ {
			base = filepath.Dir(base)
		}
		r.resolveInRoot(base, desc.NameParts, result)
		return result
	}

	if len(desc.NameParts) == 0 {
		return result
	}
	result.IsStdlib = IsStdlibModule(strings.Join(desc.NameParts, "."))

	roots := append([]string{r.opts.ProjectRoot}, r.opts.ExtraPaths...)
	if r.opts.TypeshedPath != "" {
		roots = append(roots, r.opts.TypeshedPath)
	}
	for i, root := range roots {
		if root == "" {
			continue
		}
		if r.resolveInRoot(root, desc.NameParts, result) {
			thirdParty := i > 0 && root != r.opts.TypeshedPath && !result.IsStdlib
			result.IsThirdParty = thirdParty
			if thirdParty && !result.IsStubFile && !result.HasPyTyped &&
				!r.opts.UseLibraryCodeForTypes {
				// Untyped library source is ignored unless configured in;
				// the import still counts as found.
				result.Path = ""
			}
			return result
		}
	}
	return result
}

// resolveInRoot tries the candidate forms of a module under one search
// root: stub file, source file, package, then native extension.
func (r *Resolver) resolveInRoot(root string, parts []string, result *ResolvedImport) bool {
	base := filepath.Join(append([]string{root}, parts...)...)

	candidates := []struct {
		path   string
		stub   bool
		native bool
	}{
		{path: base + ".pyi", stub: true},
		{path: base + ".py"},
		{path: filepath.Join(base, "__init__.pyi"), stub: true},
		{path: filepath.Join(base, "__init__.py")},
		{path: base + ".so", native: true},
		{path: base + ".pyd", native: true},
	}

	for _, cand := range candidates {
		info, err := os.Stat(cand.path)
		if err != nil || info.IsDir() {
			continue
		}
		result.IsImportFound = true
		result.Path = cand.path
		result.IsStubFile = cand.stub
		result.IsNativeLib = cand.native
		if len(parts) > 0 {
			marker := filepath.Join(root, parts[0], "py.typed")
			if _, err := os.Stat(marker); err == nil {
				result.HasPyTyped = true
			}
		}
		return true
	}
	return false
}

// ModuleNameForPath derives the dotted module name of a file from its
// position in the package tree. Directories without an __init__.py are
// treated as plain folders, not packages.
func (r *Resolver) ModuleNameForPath(filePath string) string {
	rel, err := filepath.Rel(r.opts.ProjectRoot, filePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return ""
	}

	parts := strings.Split(rel, string(os.PathSeparator))

	packageStart := 0
	for i := 0; i < len(parts)-1; i++ {
		checkPath := filepath.Join(r.opts.ProjectRoot, filepath.Join(parts[:i+1]...), "__init__.py")
		if _, err := os.Stat(checkPath); os.IsNotExist(err) {
			packageStart = i + 1
		} else {
			break
		}
	}
	parts = parts[packageStart:]

	last := parts[len(parts)-1]
	last = strings.TrimSuffix(last, ".pyi")
	last = strings.TrimSuffix(last, ".py")
	parts[len(parts)-1] = last

	if parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

// CacheLen reports the resolution cache occupancy for metrics.
func (r *Resolver) CacheLen() int {
	return r.cache.len()
}

// InvalidateCache drops all memoized resolutions, used after execution
// environment or search path changes.
func (r *Resolver) InvalidateCache() {
	r.cache.clear()
}
