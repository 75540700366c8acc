// # internal/evaluator/evaluator.go
package evaluator

import (
	"context"
	"sync"

	"pyscope/internal/parser"
	"pyscope/internal/pytype"
)

// Evaluator resolves annotation text and flow-sensitive binding states,
// memoizing both. The entry count feeds cache governance: when it crosses
// the configured ceiling the owning program discards the evaluator and
// starts a fresh one.
type Evaluator struct {
	mu sync.Mutex

	annotations map[string]pytype.Type
	functions   map[*parser.FuncDefStmt]*pytype.Function
	paramSpecs  map[string]*pytype.ParamSpec
	typedDicts  map[string]*pytype.TypedDict

	narrowEntries int
	disposed      bool
}

func New() *Evaluator {
	return &Evaluator{
		annotations: make(map[string]pytype.Type),
		functions:   make(map[*parser.FuncDefStmt]*pytype.Function),
		paramSpecs:  make(map[string]*pytype.ParamSpec),
		typedDicts:  make(map[string]*pytype.TypedDict),
	}
}

// EntryCount is the total number of memoized results across all caches.
func (e *Evaluator) EntryCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.annotations) + len(e.functions) + e.narrowEntries
}

// Dispose drops every cache. The evaluator must not be used afterwards;
// callers replace it rather than reviving it.
func (e *Evaluator) Dispose() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.annotations = nil
	e.functions = nil
	e.paramSpecs = nil
	e.typedDicts = nil
	e.narrowEntries = 0
	e.disposed = true
}

func (e *Evaluator) Disposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// RunWithCancellation runs fn, surfacing ctx cancellation as an error
// without treating it as evaluator corruption. Cancellation unwinds
// cleanly: only completed results were memoized, so the caches stay
// valid for the next run.
func (e *Evaluator) RunWithCancellation(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// RegisterParamSpec interns a ParamSpec declaration so every annotation
// mentioning P.args / P.kwargs resolves to the same identity.
func (e *Evaluator) RegisterParamSpec(name string) *pytype.ParamSpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paramSpecLocked(name)
}

func (e *Evaluator) paramSpecLocked(name string) *pytype.ParamSpec {
	if ps, ok := e.paramSpecs[name]; ok {
		return ps
	}
	ps := &pytype.ParamSpec{Name: name}
	e.paramSpecs[name] = ps
	return ps
}

// RegisterTypedDict makes a TypedDict definition visible to annotation
// resolution under its name.
func (e *Evaluator) RegisterTypedDict(td *pytype.TypedDict) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.typedDicts[td.Name] = td
}

// FunctionType evaluates a function definition's declared signature. The
// result is memoized per definition node; a rebind produces new nodes and
// therefore fresh entries.
func (e *Evaluator) FunctionType(def *parser.FuncDefStmt) *pytype.Function {
	e.mu.Lock()
	if fn, ok := e.functions[def]; ok {
		e.mu.Unlock()
		return fn
	}
	e.mu.Unlock()

	isStatic := false
	isMethod := false
	for _, dec := range def.Decorators {
		switch dec {
		case "staticmethod":
			isStatic = true
		case "classmethod":
			isMethod = true
		}
	}

	fn := &pytype.Function{
		Name:       def.Name,
		ReturnType: e.TypeOfAnnotation(def.ReturnAnno),
		IsStatic:   isStatic,
		IsMethod:   isMethod,
	}
	for _, p := range def.Params {
		fn.Params = append(fn.Params, pytype.Param{
			Category:   p.Category,
			Name:       p.Name,
			Type:       e.TypeOfAnnotation(p.Annotation),
			HasDefault: p.HasDefault,
		})
	}

	e.mu.Lock()
	if e.functions != nil {
		e.functions[def] = fn
	}
	e.mu.Unlock()
	return fn
}

// TypeOfAnnotation resolves annotation text to a type, memoized by the
// exact text. Unresolvable annotations evaluate to Unknown rather than
// failing; diagnostics about them belong to a later layer.
func (e *Evaluator) TypeOfAnnotation(text string) pytype.Type {
	if text == "" {
		return pytype.Unknown
	}
	e.mu.Lock()
	if t, ok := e.annotations[text]; ok {
		e.mu.Unlock()
		return t
	}
	e.mu.Unlock()

	t := e.parseAnnotation(text)

	e.mu.Lock()
	if e.annotations != nil {
		e.annotations[text] = t
	}
	e.mu.Unlock()
	return t
}
