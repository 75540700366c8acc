// # internal/parser/types.go
package parser

import (
	"time"

	"pyscope/internal/pytype"
)

// ParseResult is everything one parse pass extracts from a Python source
// file: the import list, module-level symbol bindings, and a compact
// statement IR the binder turns into scope tables and flow graphs.
type ParseResult struct {
	Path        string
	ContentHash string
	Imports     []Import
	Body        []Stmt
	ParsedAt    time.Time
}

type Import struct {
	Module        string   // dotted module as written (resolved later)
	Alias         string   // optional "as" alias
	Items         []string // for "from X import a, b"
	IsRelative    bool
	RelativeLevel int  // number of leading dots
	IsWildcard    bool // from X import *
	Location      Location
}

// BoundNames returns the local names this import statement binds.
func (imp *Import) BoundNames() []string {
	if imp.IsWildcard {
		return nil
	}
	if len(imp.Items) > 0 {
		return imp.Items
	}
	if imp.Alias != "" {
		return []string{imp.Alias}
	}
	// "import a.b.c" binds the top-level package name.
	name := imp.Module
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			name = name[:i]
			break
		}
	}
	if name == "" {
		return nil
	}
	return []string{name}
}

type Location struct {
	Line   int // 1-based
	Column int // 1-based
}

// CallInfo is one call site inside a statement, with just enough shape
// for arity checking against a normalized parameter list.
type CallInfo struct {
	Callee         string
	PositionalArgs int
	KeywordArgs    []string
	HasStarArgs    bool
	HasKwargsArgs  bool
	Location       Location
}

// NameRef is a load of a name inside a statement.
type NameRef struct {
	Name     string
	Location Location
}

// Stmt is the closed statement IR. The binder consumes it to build scope
// symbol tables and flow graphs; the tree-sitter syntax tree itself never
// escapes the parser.
type Stmt interface {
	stmtNode()
	Line() int
}

type stmtBase struct {
	LineNo int
}

func (s stmtBase) stmtNode() {}
func (s stmtBase) Line() int { return s.LineNo }

// AssignStmt binds one or more target names. Refs and Calls cover the
// right-hand side.
type AssignStmt struct {
	stmtBase
	Targets []string
	Refs    []NameRef
	Calls   []CallInfo
}

// DelStmt unbinds names.
type DelStmt struct {
	stmtBase
	Names []string
}

// ExprStmt is a bare expression statement.
type ExprStmt struct {
	stmtBase
	Refs  []NameRef
	Calls []CallInfo
}

type IfStmt struct {
	stmtBase
	Cond     string
	CondRefs []NameRef
	Then     []Stmt
	Else     []Stmt // an elif chain nests here as a single IfStmt
}

type WhileStmt struct {
	stmtBase
	Cond     string
	CondRefs []NameRef
	Body     []Stmt
	Else     []Stmt
}

type ForStmt struct {
	stmtBase
	Targets  []string
	IterExpr string
	IterRefs []NameRef
	Body     []Stmt
	Else     []Stmt
}

type ExceptHandler struct {
	Name     string // bound exception alias, may be empty
	ExprText string
	Body     []Stmt
	LineNo   int
}

type TryStmt struct {
	stmtBase
	Body     []Stmt
	Handlers []ExceptHandler
	OrElse   []Stmt
	Finally  []Stmt
}

type MatchCase struct {
	Pattern  string
	Captures []string // names the pattern binds
	Guard    string
	Body     []Stmt
	LineNo   int
}

type MatchStmt struct {
	stmtBase
	Subject     string
	SubjectRefs []NameRef
	Cases       []MatchCase
}

type ReturnStmt struct {
	stmtBase
	Refs  []NameRef
	Calls []CallInfo
}

type RaiseStmt struct {
	stmtBase
	Refs []NameRef
}

type BreakStmt struct{ stmtBase }

type ContinueStmt struct{ stmtBase }

// ImportStmt mirrors one entry of ParseResult.Imports inside the body so
// flow construction sees imports at their textual position.
type ImportStmt struct {
	stmtBase
	Import Import
}

// ParamDecl is a declared function parameter before type evaluation.
type ParamDecl struct {
	Name       string
	Annotation string // raw annotation text, evaluated lazily
	Category   pytype.ParamCategory
	HasDefault bool
}

type FuncDefStmt struct {
	stmtBase
	Name       string
	Params     []ParamDecl
	Body       []Stmt
	Decorators []string
	ReturnAnno string
}

type ClassDefStmt struct {
	stmtBase
	Name  string
	Bases []string
	Body  []Stmt
}

// GlobalStmt declares names as module-scope inside a function.
type GlobalStmt struct {
	stmtBase
	Names []string
}
