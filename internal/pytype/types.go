// # internal/pytype/types.go
package pytype

import (
	"fmt"
	"strings"
)

// Kind discriminates the closed set of type variants the analysis core
// understands. The full evaluator owns richer semantics; this model carries
// exactly what parameter normalization, narrowing and hover need.
type Kind int

const (
	KindAny Kind = iota
	KindUnknown
	KindNever
	KindClass
	KindModule
	KindTuple
	KindTypedDict
	KindParamSpec
	KindParamSpecArgs
	KindParamSpecKwargs
	KindUnion
	KindFunction
)

type Type interface {
	Kind() Kind
	String() string
}

// Singleton sentinel types.
var (
	Any     Type = anyType{}
	Unknown Type = unknownType{}
	Never   Type = neverType{}
)

type anyType struct{}

func (anyType) Kind() Kind     { return KindAny }
func (anyType) String() string { return "Any" }

type unknownType struct{}

func (unknownType) Kind() Kind     { return KindUnknown }
func (unknownType) String() string { return "Unknown" }

type neverType struct{}

func (neverType) Kind() Kind     { return KindNever }
func (neverType) String() string { return "Never" }

// Class is a nominal class reference ("int", "str", user classes).
type Class struct {
	Name string
}

func (c *Class) Kind() Kind     { return KindClass }
func (c *Class) String() string { return c.Name }

func NewClass(name string) *Class { return &Class{Name: name} }

// Module represents an imported module object.
type Module struct {
	Name string
}

func (m *Module) Kind() Kind     { return KindModule }
func (m *Module) String() string { return "Module[" + m.Name + "]" }

// TupleElement is one slot of a tuple type. Unbounded marks a "T, ..." tail.
type TupleElement struct {
	Type      Type
	Unbounded bool
}

// Tuple is a fixed or mixed-arity tuple. Unpacked marks the `*tuple[...]`
// form used in variadic parameter annotations.
type Tuple struct {
	Elements []TupleElement
	Unpacked bool
}

func (t *Tuple) Kind() Kind { return KindTuple }

func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.Elements))
	for _, el := range t.Elements {
		s := el.Type.String()
		if el.Unbounded {
			s += ", ..."
		}
		parts = append(parts, s)
	}
	prefix := ""
	if t.Unpacked {
		prefix = "*"
	}
	return fmt.Sprintf("%stuple[%s]", prefix, strings.Join(parts, ", "))
}

// IsFixedSize reports whether every element is a concrete single slot.
func (t *Tuple) IsFixedSize() bool {
	for _, el := range t.Elements {
		if el.Unbounded {
			return false
		}
	}
	return true
}

// TypedDictEntry is one declared key of a TypedDict.
type TypedDictEntry struct {
	Name     string
	Type     Type
	Required bool
}

// TypedDict models a TypedDict class. ExtraItems is the declared type for
// keys outside the known set; a Never ExtraItems means the dict is closed.
// Unpacked marks the `**kwargs: Unpack[TD]` form.
type TypedDict struct {
	Name       string
	Entries    []TypedDictEntry
	ExtraItems Type
	Unpacked   bool
}

func (t *TypedDict) Kind() Kind     { return KindTypedDict }
func (t *TypedDict) String() string { return t.Name }

// IsClosed reports whether the TypedDict forbids unknown keys entirely.
func (t *TypedDict) IsClosed() bool {
	return t.ExtraItems != nil && t.ExtraItems.Kind() == KindNever
}

// ParamSpec captures an entire parameter-list shape for higher-order
// function typing.
type ParamSpec struct {
	Name string
}

func (p *ParamSpec) Kind() Kind     { return KindParamSpec }
func (p *ParamSpec) String() string { return p.Name }

// ParamSpecArgs is the `P.args` access of a ParamSpec.
type ParamSpecArgs struct {
	ParamSpec *ParamSpec
}

func (p *ParamSpecArgs) Kind() Kind     { return KindParamSpecArgs }
func (p *ParamSpecArgs) String() string { return p.ParamSpec.Name + ".args" }

// ParamSpecKwargs is the `P.kwargs` access of a ParamSpec.
type ParamSpecKwargs struct {
	ParamSpec *ParamSpec
}

func (p *ParamSpecKwargs) Kind() Kind     { return KindParamSpecKwargs }
func (p *ParamSpecKwargs) String() string { return p.ParamSpec.Name + ".kwargs" }

// Union is an unordered combination of member types. Members keep insertion
// order so rendering and narrowing stay deterministic.
type Union struct {
	Members []Type
}

func (u *Union) Kind() Kind { return KindUnion }

func (u *Union) String() string {
	parts := make([]string, 0, len(u.Members))
	for _, m := range u.Members {
		parts = append(parts, m.String())
	}
	return strings.Join(parts, " | ")
}

// Combine merges types into a deduplicated union, flattening nested unions.
// The result keeps first-seen order, which narrowing relies on.
func Combine(types ...Type) Type {
	members := make([]Type, 0, len(types))
	add := func(t Type) {
		for _, m := range members {
			if Equal(m, t) {
				return
			}
		}
		members = append(members, t)
	}
	for _, t := range types {
		if t == nil {
			continue
		}
		if u, ok := t.(*Union); ok {
			for _, m := range u.Members {
				add(m)
			}
			continue
		}
		add(t)
	}
	switch len(members) {
	case 0:
		return Never
	case 1:
		return members[0]
	default:
		return &Union{Members: members}
	}
}

// ParamCategory classifies a declared parameter slot.
type ParamCategory int

const (
	ParamCategorySimple ParamCategory = iota
	ParamCategoryArgsList
	ParamCategoryKwargsDict
)

// Param is one declared parameter of a function signature. A Simple param
// with an empty name is the `*` keyword-only separator; a Simple param
// named "/" is the positional-only separator.
type Param struct {
	Category    ParamCategory
	Name        string
	Type        Type
	HasDefault  bool
	DefaultType Type
}

// Function is a callable signature. MethodKind distinguishes the implicit
// first parameter handling during positional-only inference.
type Function struct {
	Name       string
	Params     []Param
	ReturnType Type
	IsStatic   bool
	IsMethod   bool
}

func (f *Function) Kind() Kind { return KindFunction }

func (f *Function) String() string {
	parts := make([]string, 0, len(f.Params))
	for _, p := range f.Params {
		s := p.Name
		switch p.Category {
		case ParamCategoryArgsList:
			s = "*" + s
		case ParamCategoryKwargsDict:
			s = "**" + s
		default:
			if s == "" {
				s = "*"
			}
		}
		if p.Type != nil && p.Name != "" && p.Name != "/" {
			s += ": " + p.Type.String()
		}
		if p.HasDefault {
			s += " = ..."
		}
		parts = append(parts, s)
	}
	ret := "Unknown"
	if f.ReturnType != nil {
		ret = f.ReturnType.String()
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), ret)
}

// Equal reports structural equality between two types. ParamSpec accesses
// compare by the identity of the underlying ParamSpec, not by name, so
// distinct specs that happen to share a name never match.
func Equal(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch at := a.(type) {
	case anyType, unknownType, neverType:
		return true
	case *Class:
		return at.Name == b.(*Class).Name
	case *Module:
		return at.Name == b.(*Module).Name
	case *Tuple:
		bt := b.(*Tuple)
		if at.Unpacked != bt.Unpacked || len(at.Elements) != len(bt.Elements) {
			return false
		}
		for i := range at.Elements {
			if at.Elements[i].Unbounded != bt.Elements[i].Unbounded {
				return false
			}
			if !Equal(at.Elements[i].Type, bt.Elements[i].Type) {
				return false
			}
		}
		return true
	case *TypedDict:
		bt := b.(*TypedDict)
		if at.Name != bt.Name || len(at.Entries) != len(bt.Entries) {
			return false
		}
		for i := range at.Entries {
			if at.Entries[i].Name != bt.Entries[i].Name ||
				at.Entries[i].Required != bt.Entries[i].Required ||
				!Equal(at.Entries[i].Type, bt.Entries[i].Type) {
				return false
			}
		}
		return Equal(at.ExtraItems, bt.ExtraItems)
	case *ParamSpec:
		return at == b.(*ParamSpec)
	case *ParamSpecArgs:
		return at.ParamSpec == b.(*ParamSpecArgs).ParamSpec
	case *ParamSpecKwargs:
		return at.ParamSpec == b.(*ParamSpecKwargs).ParamSpec
	case *Union:
		bt := b.(*Union)
		if len(at.Members) != len(bt.Members) {
			return false
		}
		for i := range at.Members {
			if !Equal(at.Members[i], bt.Members[i]) {
				return false
			}
		}
		return true
	case *Function:
		bt := b.(*Function)
		if at.Name != bt.Name || len(at.Params) != len(bt.Params) {
			return false
		}
		for i := range at.Params {
			if at.Params[i].Category != bt.Params[i].Category ||
				at.Params[i].Name != bt.Params[i].Name ||
				at.Params[i].HasDefault != bt.Params[i].HasDefault ||
				!Equal(at.Params[i].Type, bt.Params[i].Type) {
				return false
			}
		}
		return Equal(at.ReturnType, bt.ReturnType)
	}
	return false
}
