// # cmd/pyscope/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pyscope/internal/config"
	"pyscope/internal/shared/observability"
)

var (
	configPath = flag.String("config", "./pyscope.toml", "Path to config file")
	once       = flag.Bool("once", false, "Run single analysis pass and exit")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	serve      = flag.Bool("serve", false, "Expose metrics and health endpoints")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.3.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("pyscope v%s\n", VERSION)
		os.Exit(0)
	}

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stdout
	if *ui {
		// In UI mode, avoid stdout logs corrupting the TUI.
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else {
			if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
				fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
			} else {
				f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
				if err == nil {
					output = f
				} else {
					fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
				}
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath == "./pyscope.toml" {
			if os.IsNotExist(err) {
				slog.Debug("no config file found, using defaults")
				cfg = config.Default()
				err = nil
			}
		}
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}

	if flag.NArg() > 0 {
		cfg.ProjectRoot = flag.Arg(0)
	}
	if !filepath.IsAbs(cfg.ProjectRoot) {
		cwd, _ := os.Getwd()
		cfg.ProjectRoot = filepath.Join(cwd, cfg.ProjectRoot)
	}

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Serve.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer func() { _ = shutdownTracing(ctx) }()
	}

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *serve {
		app.ServeMetrics(cfg.Serve.MetricsAddr)
	}

	if err := app.InitialIndex(ctx); err != nil {
		slog.Error("workspace indexing failed", "error", err)
		os.Exit(1)
	}

	summary := app.RunAnalysis(ctx)
	app.RecordSnapshot(summary)

	if !*ui {
		app.PrintSummary(summary)
	}

	if *once {
		if summary.ErrorCount > 0 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Watch mode
	if err := app.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if *ui {
		if err := app.RunUI(summary); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
	} else {
		// Block forever
		select {}
	}
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pyscope", "pyscope.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "pyscope", "pyscope.log")
	}

	return "pyscope.log"
}
