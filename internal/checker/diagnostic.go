// # internal/checker/diagnostic.go
package checker

import "fmt"

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInformation
	SeverityHint
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "information"
	case SeverityHint:
		return "hint"
	}
	return "unknown"
}

// Rule names the check that produced a diagnostic. They double as the
// configuration keys for per-rule severity overrides.
const (
	RuleUndefinedVariable  = "reportUndefinedVariable"
	RuleUnboundVariable    = "reportUnboundVariable"
	RulePossiblyUnbound    = "reportPossiblyUnbound"
	RuleUnreachable        = "reportUnreachable"
	RuleCallIssue          = "reportCallIssue"
	RuleUnusedImport       = "reportUnusedImport"
	RuleImportCycle        = "reportImportCycles"
	RuleMissingImport      = "reportMissingImports"
	RuleWildcardFromImport = "reportWildcardImportFromLibrary"
)

// Diagnostic is one analysis finding within a single file.
type Diagnostic struct {
	Severity Severity
	Rule     string
	Message  string
	Line     int
	Column   int
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%d:%d %s: %s (%s)", d.Line, d.Column, d.Severity, d.Message, d.Rule)
}
