// # internal/config/config.go
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"pyscope/internal/xerrors"
)

type Config struct {
	// ProjectRoot is the execution environment root analyzed files live in.
	ProjectRoot string `toml:"project_root"`
	// TypeshedPath points at bundled stub files searched after the project.
	TypeshedPath string   `toml:"typeshed_path"`
	ExtraPaths   []string `toml:"extra_paths"`

	// UseLibraryCodeForTypes admits untyped third-party sources into the
	// program instead of treating them as opaque.
	UseLibraryCodeForTypes bool `toml:"use_library_code_for_types"`
	// AllowedThirdParty names third-party modules always admitted, matched
	// exactly or as a dotted prefix.
	AllowedThirdParty []string `toml:"allowed_third_party"`

	Exclude Exclude `toml:"exclude"`
	Watch   Watch   `toml:"watch"`
	Tuning  Tuning  `toml:"tuning"`
	History History `toml:"history"`
	Serve   Serve   `toml:"serve"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Tuning carries the cache and traversal policy thresholds. They encode
// empirical tuning, not correctness requirements, and are configurable for
// exactly that reason.
type Tuning struct {
	MaxCacheEntries       int     `toml:"max_cache_entries"`
	HeapHighWaterRatio    float64 `toml:"heap_high_water_ratio"`
	HeapCriticalRatio     float64 `toml:"heap_critical_ratio"`
	MaxImportDepth        int     `toml:"max_import_depth"`
	MaxWorkspaceIndexSize int     `toml:"max_workspace_index_files"`
	ResolverCacheSize     int     `toml:"resolver_cache_size"`
}

type History struct {
	DBPath string `toml:"db_path"`
}

type Serve struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, xerrors.Wrap(err, xerrors.CodeValidationError, "parse config")
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a config with every default applied, used when no config
// file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (cfg *Config) ApplyDefaults() {
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = "."
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = []string{
			"**/.git", "**/__pycache__", "**/.venv", "**/venv",
			"**/.mypy_cache", "**/.pytest_cache", "**/node_modules",
		}
	}
	if cfg.Tuning.MaxCacheEntries == 0 {
		cfg.Tuning.MaxCacheEntries = 750_000
	}
	if cfg.Tuning.HeapHighWaterRatio == 0 {
		cfg.Tuning.HeapHighWaterRatio = 0.90
	}
	if cfg.Tuning.HeapCriticalRatio == 0 {
		cfg.Tuning.HeapCriticalRatio = 0.95
	}
	if cfg.Tuning.MaxImportDepth == 0 {
		cfg.Tuning.MaxImportDepth = 256
	}
	if cfg.Tuning.MaxWorkspaceIndexSize == 0 {
		cfg.Tuning.MaxWorkspaceIndexSize = 2000
	}
	if cfg.Tuning.ResolverCacheSize == 0 {
		cfg.Tuning.ResolverCacheSize = 4096
	}
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = ".pyscope/history.db"
	}
	if cfg.Serve.MetricsAddr == "" {
		cfg.Serve.MetricsAddr = ":9190"
	}
}
