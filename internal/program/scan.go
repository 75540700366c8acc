// # internal/program/scan.go
package program

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"pyscope/internal/shared/observability"
	"pyscope/internal/shared/util"
)

// ScanWorkspace walks the project root collecting Python source files,
// honoring the configured exclude globs. The result is suitable for
// SetTrackedFiles.
func (p *Program) ScanWorkspace() ([]string, error) {
	dirGlobs := compileGlobs(p.cfg.Exclude.Dirs)
	fileGlobs := compileGlobs(p.cfg.Exclude.Files)

	var paths []string
	err := filepath.WalkDir(p.cfg.ProjectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if matchesAny(dirGlobs, path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".py") && !strings.HasSuffix(path, ".pyi") {
			return nil
		}
		if matchesAny(fileGlobs, path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}

// IndexWorkspace scans and tracks workspace files up to the configured
// cap, rate-limited so a cold start does not monopolize the process.
// Returns the number of files admitted and whether the cap truncated the
// scan.
func (p *Program) IndexWorkspace(ctx context.Context) (int, bool, error) {
	paths, err := p.ScanWorkspace()
	if err != nil {
		return 0, false, err
	}

	limiter := util.NewLimiter(500, 50)
	maxFiles := p.cfg.Tuning.MaxWorkspaceIndexSize
	truncated := len(paths) > maxFiles
	if truncated {
		p.logger.Warn("workspace exceeds index cap; truncating",
			"files", len(paths), "cap", maxFiles)
		paths = paths[:maxFiles]
	}

	indexed := 0
	for _, path := range paths {
		if err := limiter.Wait(ctx, 1); err != nil {
			return indexed, truncated, err
		}
		p.AddTrackedFile(path)
		observability.IndexedFilesTotal.Inc()
		indexed++
	}
	return indexed, truncated, nil
}

func compileGlobs(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			continue
		}
		globs = append(globs, g)
	}
	return globs
}

func matchesAny(globs []glob.Glob, path string) bool {
	normalized := filepath.ToSlash(path)
	for _, g := range globs {
		if g.Match(normalized) {
			return true
		}
	}
	return false
}
