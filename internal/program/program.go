// # internal/program/program.go
package program

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"pyscope/internal/config"
	"pyscope/internal/evaluator"
	"pyscope/internal/importresolver"
	"pyscope/internal/parser"
	"pyscope/internal/shared/observability"
	"pyscope/internal/shared/util"
	"pyscope/internal/xerrors"
)

// MaxAnalysisTime is the cooperative time budget for one Analyze pass.
// Open files get their own, typically tighter, slice so interactive
// feedback stays fast.
type MaxAnalysisTime struct {
	OpenFilesTimeInMs   int
	NoOpenFilesTimeInMs int
}

// Program is the source-file registry: the single authority over which
// files are part of the analysis session, their pipeline state, and the
// import graph between them. Single-threaded by design; all concurrency
// is re-entrancy under a time budget.
type Program struct {
	cfg      *config.Config
	resolver *importresolver.Resolver
	parser   *parser.Parser
	eval     *evaluator.Evaluator
	cache    *CacheManager
	logger   *slog.Logger

	files map[string]*SourceFileInfo

	diagVersion int
	resetCount  int
}

type Option func(*Program)

func WithCacheManager(cm *CacheManager) Option {
	return func(p *Program) { p.cache = cm }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Program) { p.logger = logger }
}

func New(cfg *config.Config, opts ...Option) *Program {
	p := &Program{
		cfg:    cfg,
		parser: parser.NewParser(),
		eval:   evaluator.New(),
		logger: slog.Default(),
		files:  make(map[string]*SourceFileInfo),
		resolver: importresolver.NewResolver(importresolver.Options{
			ProjectRoot:            cfg.ProjectRoot,
			TypeshedPath:           cfg.TypeshedPath,
			ExtraPaths:             cfg.ExtraPaths,
			UseLibraryCodeForTypes: cfg.UseLibraryCodeForTypes,
			CacheSize:              cfg.Tuning.ResolverCacheSize,
		}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cache == nil {
		p.cache = NewCacheManager()
	}
	p.cache.register(p)
	return p
}

// Evaluator exposes the current evaluator instance for collaborators. The
// pointer is invalidated by resets; callers must not retain it across
// Analyze passes.
func (p *Program) Evaluator() *evaluator.Evaluator { return p.eval }

// Resolver exposes the import resolver, mainly for tests and queries.
func (p *Program) Resolver() *importresolver.Resolver { return p.resolver }

// normalizePath gives the registry key for a path: absolute and cleaned.
func (p *Program) normalizePath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return filepath.Clean(abs)
}

// registerNewFile inserts a record for a path not yet present. A duplicate
// insert is an invariant violation, not a user-input condition.
func (p *Program) registerNewFile(path string) *SourceFileInfo {
	if _, exists := p.files[path]; exists {
		panic(fmt.Sprintf("duplicate registry insert for %s", path))
	}
	fi := &SourceFileInfo{Path: path, SourceFile: NewSourceFile(path)}
	p.files[path] = fi
	return fi
}

// getOrCreate upserts a record for a normalized path.
func (p *Program) getOrCreate(path string) *SourceFileInfo {
	if fi, ok := p.files[path]; ok {
		return fi
	}
	return p.registerNewFile(path)
}

// sortedPaths returns registry keys in stable order so every pass over
// the registry is deterministic.
func (p *Program) sortedPaths() []string {
	return util.SortedStringKeys(p.files)
}

// SetTrackedFiles replaces the tracked set wholesale. Previously tracked
// files absent from the new set become untracked and eviction candidates.
// Returns the paths whose diagnostics the caller must clear because their
// records were removed by the sweep.
func (p *Program) SetTrackedFiles(paths []string) []string {
	newSet := make(map[string]bool, len(paths))
	for _, path := range paths {
		newSet[p.normalizePath(path)] = true
	}

	for path, fi := range p.files {
		if fi.IsTracked && !newSet[path] {
			fi.IsTracked = false
		}
	}
	for path := range newSet {
		fi := p.getOrCreate(path)
		if !fi.IsTracked {
			fi.IsTracked = true
			fi.SourceFile.MarkDirty()
		}
	}

	cleared := p.removeUnneededFiles()
	p.updateGauges()
	return cleared
}

// AddTrackedFile upserts a tracked file. Opening flags are untouched.
func (p *Program) AddTrackedFile(path string) *SourceFileInfo {
	fi := p.getOrCreate(p.normalizePath(path))
	if !fi.IsTracked {
		fi.IsTracked = true
		fi.SourceFile.MarkDirty()
	}
	p.updateGauges()
	return fi
}

func (p *Program) AddTrackedFiles(paths []string) {
	for _, path := range paths {
		p.AddTrackedFile(path)
	}
}

// SetFileOpened registers an editor-open file with its buffer content.
// Opening an already-tracked file only flips the flag and resets the
// diagnostics sentinel so diagnostics are republished.
func (p *Program) SetFileOpened(path string, content []byte) *SourceFileInfo {
	fi := p.getOrCreate(p.normalizePath(path))
	fi.IsOpenByClient = true
	fi.DiagnosticsVersion = nil
	fi.SourceFile.SetClientContent(content)
	return fi
}

// SetFileContent updates an open file's buffer (editor edit).
func (p *Program) SetFileContent(path string, content []byte) {
	norm := p.normalizePath(path)
	fi, ok := p.files[norm]
	if !ok {
		return
	}
	fi.SourceFile.SetClientContent(content)
	p.markFileDirtyRecursive(fi, make(map[string]bool))
}

// SetFileClosed drops the editor buffer. If disk content differs from the
// last-analyzed state the file is marked dirty so a later analyze reads
// fresh content. Returns the diagnostic-clear set from the sweep.
func (p *Program) SetFileClosed(path string) []string {
	norm := p.normalizePath(path)
	fi, ok := p.files[norm]
	if !ok {
		return nil
	}
	fi.IsOpenByClient = false
	fi.SourceFile.clientContent = nil
	if fi.SourceFile.DiskContentDiffers() {
		fi.SourceFile.MarkDirty()
		p.markFileDirtyRecursive(fi, make(map[string]bool))
	}
	return p.removeUnneededFiles()
}

// MarkAllFilesDirty forces reanalysis of every file in the registry.
func (p *Program) MarkAllFilesDirty() {
	for _, fi := range p.files {
		fi.SourceFile.MarkDirty()
		fi.NoCircularDependencyConfirmed = false
	}
}

// MarkFilesDirty invalidates the named files and, transitively, everything
// importing them.
func (p *Program) MarkFilesDirty(paths []string) {
	visited := make(map[string]bool)
	for _, path := range paths {
		fi, ok := p.files[p.normalizePath(path)]
		if !ok {
			continue
		}
		fi.SourceFile.MarkDirty()
		fi.NoCircularDependencyConfirmed = false
		p.markFileDirtyRecursive(fi, visited)
	}
}

func (p *Program) ContainsSourceFile(path string) bool {
	_, ok := p.files[p.normalizePath(path)]
	return ok
}

func (p *Program) GetSourceFileInfo(path string) *SourceFileInfo {
	return p.files[p.normalizePath(path)]
}

func (p *Program) GetFileCount() int { return len(p.files) }

func (p *Program) GetTracked() []*SourceFileInfo {
	var out []*SourceFileInfo
	for _, path := range p.sortedPaths() {
		if fi := p.files[path]; fi.IsTracked {
			out = append(out, fi)
		}
	}
	return out
}

func (p *Program) GetOpened() []*SourceFileInfo {
	var out []*SourceFileInfo
	for _, path := range p.sortedPaths() {
		if fi := p.files[path]; fi.IsOpenByClient {
			out = append(out, fi)
		}
	}
	return out
}

// SetChainedSourceFile links a synthetic predecessor scope ahead of path's
// own module scope (REPL/notebook cell semantics). Passing an empty
// chained path clears the link.
func (p *Program) SetChainedSourceFile(path, chainedPath string) {
	fi := p.getOrCreate(p.normalizePath(path))
	if chainedPath == "" {
		fi.ChainedSourceFile = nil
	} else {
		fi.ChainedSourceFile = p.getOrCreate(p.normalizePath(chainedPath))
	}
	fi.SourceFile.MarkReanalysisRequired(true)
}

// Analyze is the cooperative scheduler. Open files needing checking run
// first under the open-files budget; when a budget was given and open
// files existed, Analyze returns immediately after finishing them so the
// caller can flush results. Closed files then run under the no-open-files
// budget. Returns true iff more work remains.
func (p *Program) Analyze(ctx context.Context, maxTime *MaxAnalysisTime) bool {
	ctx, span := observability.Tracer.Start(ctx, "program.Analyze")
	defer span.End()

	start := time.Now()

	openFiles := p.filesNeedingChecking(true)
	if len(openFiles) > 0 {
		for _, fi := range openFiles {
			if ctx.Err() != nil {
				return true
			}
			if maxTime != nil && elapsedMs(start) >= maxTime.OpenFilesTimeInMs {
				return true
			}
			if err := p.checkFile(ctx, fi); err != nil {
				if ctx.Err() != nil {
					return true
				}
				p.logger.Error("analysis failed", "path", fi.Path, "error", err)
			}
		}
		observability.AnalyzePassDuration.WithLabelValues("open").Observe(time.Since(start).Seconds())
		if maxTime != nil {
			// Flush open-file results to the caller before touching the
			// long tail of closed files.
			return p.hasWorkRemaining()
		}
	}

	closedStart := time.Now()
	for _, fi := range p.filesNeedingChecking(false) {
		if ctx.Err() != nil {
			return true
		}
		if maxTime != nil && elapsedMs(closedStart) >= maxTime.NoOpenFilesTimeInMs {
			return true
		}
		if err := p.checkFile(ctx, fi); err != nil {
			if ctx.Err() != nil {
				return true
			}
			p.logger.Error("analysis failed", "path", fi.Path, "error", err)
		}
	}
	observability.AnalyzePassDuration.WithLabelValues("all").Observe(time.Since(start).Seconds())

	p.handleMemoryHighUsage()
	return p.hasWorkRemaining()
}

// AnalyzeFile drives one file through the full pipeline immediately,
// ignoring budgets.
func (p *Program) AnalyzeFile(ctx context.Context, path string) error {
	fi, ok := p.files[p.normalizePath(path)]
	if !ok {
		err := xerrors.New(xerrors.CodeNotFound, "file not in program")
		return xerrors.AddContext(err, xerrors.CtxPath, path)
	}
	return p.checkFile(ctx, fi)
}

func elapsedMs(start time.Time) int {
	return int(time.Since(start) / time.Millisecond)
}

func (p *Program) filesNeedingChecking(open bool) []*SourceFileInfo {
	var out []*SourceFileInfo
	for _, path := range p.sortedPaths() {
		fi := p.files[path]
		if fi.IsOpenByClient != open {
			continue
		}
		if !open && !fi.IsTracked {
			continue
		}
		if fi.SourceFile.IsCheckingRequired() && !fi.SourceFile.IsFileDeleted() {
			out = append(out, fi)
		}
	}
	return out
}

func (p *Program) hasWorkRemaining() bool {
	for _, fi := range p.files {
		if !fi.IsTracked && !fi.IsOpenByClient {
			continue
		}
		if fi.SourceFile.IsCheckingRequired() && !fi.SourceFile.IsFileDeleted() {
			return true
		}
	}
	return false
}

// checkFile drives one file to the Checked state: parse, import graph
// maintenance, implicit-predecessor binding, bind, check, publish.
// Cancellation passes through untouched; any other failure during
// evaluation discards the evaluator before the error is re-raised, so the
// next call starts from a clean cache.
func (p *Program) checkFile(ctx context.Context, fi *SourceFileInfo) error {
	if err := p.ensureParsed(fi); err != nil {
		return err
	}
	if err := p.ensureBound(fi); err != nil {
		return err
	}
	if !fi.SourceFile.IsCheckingRequired() {
		return nil
	}

	p.detectAndReportImportCycles(fi)

	start := time.Now()
	err := p.eval.RunWithCancellation(ctx, func(ctx context.Context) error {
		return p.runGuarded(func() {
			fi.SourceFile.Check(p.eval, p.chainedGlobals(fi))
		})
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.resetEvaluator("unexpected_error")
		return err
	}
	observability.PhaseDuration.WithLabelValues("check").Observe(time.Since(start).Seconds())

	p.publishDiagnostics(fi)
	return nil
}

// runGuarded converts a panic inside evaluation into an error so the
// caller can reset the evaluator and still propagate the failure.
func (p *Program) runGuarded(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panic: %v", r)
		}
	}()
	fn()
	return nil
}

func (p *Program) ensureParsed(fi *SourceFileInfo) error {
	if !fi.SourceFile.IsParseRequired() {
		return nil
	}
	changed, err := fi.SourceFile.Parse(p.parser)
	if err != nil {
		return err
	}
	if changed {
		fi.NoCircularDependencyConfirmed = false
		p.updateSourceFileImports(fi)
	}
	return nil
}

// ensureBound binds fi, recursing into its implicit predecessor chain
// first. An implicit-import cycle indicates corrupted configuration and
// aborts loudly.
func (p *Program) ensureBound(fi *SourceFileInfo) error {
	return p.bindWithImplicits(fi, make(map[string]bool))
}

func (p *Program) bindWithImplicits(fi *SourceFileInfo, onStack map[string]bool) error {
	if !fi.SourceFile.IsBindingRequired() {
		return nil
	}
	if onStack[fi.Path] {
		panic(fmt.Sprintf("implicit import cycle through %s", fi.Path))
	}
	onStack[fi.Path] = true
	defer delete(onStack, fi.Path)

	// Predecessor scopes bind first, in priority order.
	for _, pred := range p.implicitPredecessors(fi) {
		if err := p.ensureParsed(pred); err != nil {
			continue
		}
		if err := p.bindWithImplicits(pred, onStack); err != nil {
			return err
		}
	}

	if err := p.ensureParsed(fi); err != nil {
		return err
	}
	if fi.SourceFile.ParseResult() == nil {
		return fmt.Errorf("cannot bind unparsed file: %s", fi.Path)
	}

	start := time.Now()
	fi.SourceFile.Bind()
	observability.PhaseDuration.WithLabelValues("bind").Observe(time.Since(start).Seconds())
	return nil
}

// implicitPredecessors returns the ordered list of scopes that must be
// bound before fi: chained file, ipython display shim, then builtins.
func (p *Program) implicitPredecessors(fi *SourceFileInfo) []*SourceFileInfo {
	var preds []*SourceFileInfo
	if fi.ChainedSourceFile != nil {
		preds = append(preds, fi.ChainedSourceFile)
	}
	if fi.IPythonDisplayImport != nil {
		preds = append(preds, fi.IPythonDisplayImport)
	}
	if fi.BuiltinsImport != nil {
		preds = append(preds, fi.BuiltinsImport)
	}
	return preds
}

// chainedGlobals collects names bound by the chained predecessor chain so
// the checker treats them as ambient.
func (p *Program) chainedGlobals(fi *SourceFileInfo) map[string]bool {
	if fi.ChainedSourceFile == nil {
		return nil
	}
	globals := make(map[string]bool)
	seen := make(map[string]bool)
	for cur := fi.ChainedSourceFile; cur != nil; cur = cur.ChainedSourceFile {
		if seen[cur.Path] {
			break
		}
		seen[cur.Path] = true
		if bound := cur.SourceFile.BindResult(); bound != nil {
			for name := range bound.ModuleScope.Bindings {
				globals[name] = true
			}
		}
	}
	return globals
}

// publishDiagnostics bumps the global version and stamps it on the file.
// Callers diff versions: unchanged means no change, a new version with an
// empty slice means clear.
func (p *Program) publishDiagnostics(fi *SourceFileInfo) {
	p.diagVersion++
	version := p.diagVersion
	fi.DiagnosticsVersion = &version
	for _, d := range fi.SourceFile.Diagnostics() {
		observability.DiagnosticsPublished.WithLabelValues(d.Severity.String()).Inc()
	}
}

// resetEvaluator discards the evaluator and installs a fresh one. The sole
// coherency mechanism for its internal caches.
func (p *Program) resetEvaluator(reason string) {
	p.logger.Info("resetting type evaluator", "reason", reason)
	p.eval.Dispose()
	p.eval = evaluator.New()
	p.resetCount++
	observability.EvaluatorResetsTotal.WithLabelValues(reason).Inc()
}

// EvaluatorResets counts evaluator replacements over this program's
// lifetime, for run snapshots.
func (p *Program) EvaluatorResets() int { return p.resetCount }

// InvalidateConfiguration applies a new config: resolver rebuilt, caches
// dropped, evaluator reset, everything dirty.
func (p *Program) InvalidateConfiguration(cfg *config.Config) {
	p.cfg = cfg
	p.resolver = importresolver.NewResolver(importresolver.Options{
		ProjectRoot:            cfg.ProjectRoot,
		TypeshedPath:           cfg.TypeshedPath,
		ExtraPaths:             cfg.ExtraPaths,
		UseLibraryCodeForTypes: cfg.UseLibraryCodeForTypes,
		CacheSize:              cfg.Tuning.ResolverCacheSize,
	})
	p.resetEvaluator("config_change")
	p.MarkAllFilesDirty()
}

func (p *Program) updateGauges() {
	tracked := 0
	edges := 0
	for _, fi := range p.files {
		if fi.IsTracked {
			tracked++
		}
		edges += len(fi.Imports)
	}
	observability.TrackedFiles.Set(float64(tracked))
	observability.RegistryFiles.Set(float64(len(p.files)))
	observability.ImportEdges.Set(float64(edges))
}
