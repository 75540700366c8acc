// # internal/program/sourcefile.go
package program

import (
	"os"
	"time"

	"pyscope/internal/binder"
	"pyscope/internal/checker"
	"pyscope/internal/evaluator"
	"pyscope/internal/parser"
	"pyscope/internal/shared/observability"
)

// FileState is the per-file pipeline position. Edits and dependency
// invalidation move it backward; the registry drives it forward lazily.
type FileState int

const (
	StateUnparsed FileState = iota
	StateParsed
	StateBound
	StateChecked
)

func (s FileState) String() string {
	switch s {
	case StateUnparsed:
		return "unparsed"
	case StateParsed:
		return "parsed"
	case StateBound:
		return "bound"
	case StateChecked:
		return "checked"
	}
	return "unknown"
}

// SourceFile owns one file's parse/bind/check state. The registry drives
// the transitions; SourceFile never reaches into the registry.
type SourceFile struct {
	path  string
	state FileState

	// clientContent overrides disk content while the file is open in an
	// editor. nil means read from disk.
	clientContent []byte
	analyzedHash  string
	isDeleted     bool

	parseResult *parser.ParseResult
	bindResult  *binder.Result
	diagnostics []checker.Diagnostic

	// importDiagnostics holds resolution findings (not-found, cycles,
	// depth) attached during import maintenance, merged into the published
	// set at check time.
	importDiagnostics []checker.Diagnostic
}

func NewSourceFile(path string) *SourceFile {
	return &SourceFile{path: path}
}

func (sf *SourceFile) Path() string     { return sf.path }
func (sf *SourceFile) State() FileState { return sf.state }

func (sf *SourceFile) IsParseRequired() bool    { return sf.state < StateParsed }
func (sf *SourceFile) IsBindingRequired() bool  { return sf.state < StateBound }
func (sf *SourceFile) IsCheckingRequired() bool { return sf.state < StateChecked }
func (sf *SourceFile) IsFileDeleted() bool      { return sf.isDeleted }

// SetClientContent installs or updates the editor buffer. Passing nil
// reverts to disk content.
func (sf *SourceFile) SetClientContent(content []byte) {
	sf.clientContent = content
	sf.MarkDirty()
}

// MarkDirty forces a full reparse on next analysis.
func (sf *SourceFile) MarkDirty() {
	sf.state = StateUnparsed
}

// MarkReanalysisRequired moves the file back to needing a re-check, or a
// full re-bind when the dependency change may have altered symbol tables.
func (sf *SourceFile) MarkReanalysisRequired(forceRebinding bool) {
	floor := StateBound
	if forceRebinding {
		floor = StateParsed
	}
	if sf.state > floor {
		sf.state = floor
	}
}

// DiskContentDiffers reports whether the on-disk bytes no longer match the
// last-analyzed content. Used on file close to catch editors that drop
// unsaved buffers.
func (sf *SourceFile) DiskContentDiffers() bool {
	if sf.analyzedHash == "" {
		return false
	}
	data, err := os.ReadFile(sf.path)
	if err != nil {
		return true
	}
	return parser.HashContent(data) != sf.analyzedHash
}

// Parse brings the file to the Parsed state. Returns whether content
// actually changed since the last parse; an unchanged file skips the
// reparse and keeps its downstream state intact.
func (sf *SourceFile) Parse(p *parser.Parser) (bool, error) {
	content := sf.clientContent
	if content == nil {
		data, err := os.ReadFile(sf.path)
		if err != nil {
			sf.isDeleted = true
			sf.parseResult = nil
			sf.bindResult = nil
			sf.state = StateUnparsed
			return false, err
		}
		content = data
	}
	sf.isDeleted = false

	hash := parser.HashContent(content)
	if hash == sf.analyzedHash && sf.parseResult != nil {
		if sf.state < StateParsed {
			sf.state = StateParsed
		}
		return false, nil
	}

	start := time.Now()
	result, err := p.ParseFile(sf.path, content)
	if err != nil {
		return false, err
	}
	observability.ParsingDuration.Observe(time.Since(start).Seconds())

	sf.parseResult = result
	sf.bindResult = nil
	sf.analyzedHash = hash
	sf.state = StateParsed
	return true, nil
}

// Bind brings the file to the Bound state. The caller guarantees implicit
// predecessor scopes are bound first.
func (sf *SourceFile) Bind() {
	sf.bindResult = binder.Bind(sf.parseResult)
	sf.state = StateBound
}

// Check runs the diagnostic passes and caches their result.
func (sf *SourceFile) Check(eval *evaluator.Evaluator, extraGlobals map[string]bool) {
	chk := checker.New(eval)
	chk.ExtraGlobals = extraGlobals
	diags := chk.Check(sf.parseResult, sf.bindResult)
	diags = append(diags, sf.importDiagnostics...)
	sf.diagnostics = diags
	sf.state = StateChecked
}

// DropCachedTrees releases parse and bind results while keeping the file
// record alive. Used by memory pressure relief for files not currently
// needed; the next analysis reparses from scratch.
func (sf *SourceFile) DropCachedTrees() {
	sf.parseResult = nil
	sf.bindResult = nil
	sf.analyzedHash = ""
	sf.state = StateUnparsed
}

func (sf *SourceFile) GetImports() []parser.Import {
	if sf.parseResult == nil {
		return nil
	}
	return sf.parseResult.Imports
}

func (sf *SourceFile) ParseResult() *parser.ParseResult { return sf.parseResult }
func (sf *SourceFile) BindResult() *binder.Result       { return sf.bindResult }

func (sf *SourceFile) Diagnostics() []checker.Diagnostic { return sf.diagnostics }

func (sf *SourceFile) setImportDiagnostics(diags []checker.Diagnostic) {
	sf.importDiagnostics = diags
	if sf.state > StateBound {
		sf.state = StateBound
	}
}
