// # cmd/pyscope/app.go
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pyscope/internal/checker"
	"pyscope/internal/config"
	"pyscope/internal/history"
	"pyscope/internal/program"
	"pyscope/internal/watcher"
)

// Budgets for one cooperative Analyze slice in watch mode. The CLI has no
// editor-open files, so the closed-files slice does the real work.
var analysisBudget = &program.MaxAnalysisTime{
	OpenFilesTimeInMs:   50,
	NoOpenFilesTimeInMs: 200,
}

type App struct {
	Config     *config.Config
	Program    *program.Program
	cache      *program.CacheManager
	store      *history.Store
	teaProgram *tea.Program
}

// Finding is one diagnostic paired with the file it belongs to.
type Finding struct {
	Path string
	Diag checker.Diagnostic
}

// Summary is the outcome of one analysis run, in the shape the terminal,
// the TUI, and the history store all consume.
type Summary struct {
	Duration      time.Duration
	TrackedFiles  int
	RegistryFiles int
	ImportEdges   int

	ErrorCount        int
	WarningCount      int
	UnusedImportCount int

	Cycles   []string
	Findings []Finding
}

func NewApp(cfg *config.Config) (*App, error) {
	cache := program.NewCacheManager()
	prog := program.New(cfg,
		program.WithCacheManager(cache),
		program.WithLogger(slog.Default()),
	)

	app := &App{
		Config:  cfg,
		Program: prog,
		cache:   cache,
	}

	store, err := history.Open(cfg.History.DBPath)
	if err != nil {
		// History is a convenience layer; analysis runs fine without it.
		slog.Warn("history store unavailable", "path", cfg.History.DBPath, "error", err)
	} else {
		app.store = store
	}

	return app, nil
}

func (a *App) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
	a.cache.Unregister(a.Program)
}

// InitialIndex walks the workspace and registers every Python source as
// tracked, capped by the configured index size.
func (a *App) InitialIndex(ctx context.Context) error {
	indexed, truncated, err := a.Program.IndexWorkspace(ctx)
	if err != nil {
		return err
	}
	if truncated {
		slog.Warn("workspace index truncated",
			"indexed", indexed, "limit", a.Config.Tuning.MaxWorkspaceIndexSize)
	}
	slog.Info("workspace indexed", "files", indexed)
	return nil
}

// RunAnalysis drives Analyze to completion in budgeted slices and collects
// the published diagnostics into a Summary.
func (a *App) RunAnalysis(ctx context.Context) Summary {
	start := time.Now()
	for a.Program.Analyze(ctx, analysisBudget) {
		if ctx.Err() != nil {
			break
		}
	}
	return a.collectSummary(time.Since(start))
}

func (a *App) collectSummary(duration time.Duration) Summary {
	s := Summary{
		Duration:      duration,
		RegistryFiles: a.Program.GetFileCount(),
	}

	seenCycles := make(map[string]bool)
	for _, fi := range a.Program.GetTracked() {
		s.TrackedFiles++
		s.ImportEdges += len(fi.Imports)

		for _, d := range fi.SourceFile.Diagnostics() {
			s.Findings = append(s.Findings, Finding{Path: fi.Path, Diag: d})
			switch {
			case d.Rule == checker.RuleImportCycle:
				if !seenCycles[d.Message] {
					seenCycles[d.Message] = true
					s.Cycles = append(s.Cycles, d.Message)
				}
			case d.Rule == checker.RuleUnusedImport:
				s.UnusedImportCount++
			}
			switch d.Severity {
			case checker.SeverityError:
				s.ErrorCount++
			case checker.SeverityWarning:
				s.WarningCount++
			}
		}
	}
	return s
}

// HandleChanges is the watcher callback: invalidate, re-analyze, publish.
func (a *App) HandleChanges(paths []string) {
	slog.Info("detected changes", "count", len(paths))

	a.Program.MarkFilesDirty(paths)
	summary := a.RunAnalysis(context.Background())
	a.RecordSnapshot(summary)

	if a.teaProgram != nil {
		a.teaProgram.Send(updateMsg{summary: summary})
	} else {
		a.PrintSummary(summary)
	}
}

// RecordSnapshot persists the run outcome for trend reporting. Best effort.
func (a *App) RecordSnapshot(s Summary) {
	if a.store == nil {
		return
	}

	commitHash, commitTime := history.ResolveGitMetadata(a.Config.ProjectRoot)
	runID, err := a.store.Record(history.Snapshot{
		SchemaVersion:     history.SchemaVersion,
		Timestamp:         time.Now().UTC(),
		CommitHash:        commitHash,
		CommitTimestamp:   commitTime,
		TrackedFiles:      s.TrackedFiles,
		RegistryFiles:     s.RegistryFiles,
		ImportEdges:       s.ImportEdges,
		ErrorCount:        s.ErrorCount,
		WarningCount:      s.WarningCount,
		CycleCount:        len(s.Cycles),
		UnusedImportCount: s.UnusedImportCount,
		EvaluatorResets:   a.Program.EvaluatorResets(),
		AnalysisMs:        s.Duration.Milliseconds(),
	})
	if err != nil {
		slog.Warn("failed to record analysis snapshot", "error", err)
		return
	}
	slog.Debug("recorded analysis snapshot", "run_id", runID)
}

func (a *App) PrintSummary(s Summary) {
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Analyzed %d files (%d in registry, %d import edges) in %v\n",
		s.TrackedFiles, s.RegistryFiles, s.ImportEdges, s.Duration.Round(time.Millisecond))

	if len(s.Cycles) > 0 {
		fmt.Printf("FOUND %d IMPORT CYCLES:\n", len(s.Cycles))
		for _, c := range s.Cycles {
			fmt.Printf("   %s\n", c)
		}
	} else {
		fmt.Println("No import cycles found.")
	}

	if s.ErrorCount > 0 || s.WarningCount > 0 {
		fmt.Printf("FOUND %d ERRORS, %d WARNINGS:\n", s.ErrorCount, s.WarningCount)
		for _, f := range s.Findings {
			if f.Diag.Rule == checker.RuleImportCycle {
				continue
			}
			fmt.Printf("   %s:%d:%d %s: %s (%s)\n",
				f.Path, f.Diag.Line, f.Diag.Column, f.Diag.Severity, f.Diag.Message, f.Diag.Rule)
		}
	} else {
		fmt.Println("No errors or warnings found.")
	}
	fmt.Println(strings.Repeat("-", 40))
}

func (a *App) RunUI(initial Summary) error {
	m := initialModel()
	p := tea.NewProgram(m, tea.WithAltScreen())
	a.teaProgram = p

	go func() {
		a.teaProgram.Send(updateMsg{summary: initial})
	}()

	_, err := p.Run()
	return err
}

func (a *App) StartWatcher(ctx context.Context) error {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return err
	}
	// Note: the watcher is not closed here, it runs for the process lifetime.
	return w.Watch([]string{a.Config.ProjectRoot})
}

// ServeMetrics exposes Prometheus metrics and a liveness endpoint.
func (a *App) ServeMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
}
