// # internal/evaluator/evaluator_test.go
package evaluator

import (
	"context"
	"errors"
	"testing"

	"pyscope/internal/parser"
	"pyscope/internal/pytype"
)

func TestTypeOfAnnotationBasics(t *testing.T) {
	e := New()

	cases := map[string]pytype.Kind{
		"int":               pytype.KindClass,
		"Any":               pytype.KindAny,
		"typing.Any":        pytype.KindAny,
		"Never":             pytype.KindNever,
		"NoReturn":          pytype.KindNever,
		"None":              pytype.KindClass,
		"int | str":         pytype.KindUnion,
		"Optional[int]":     pytype.KindUnion,
		"Union[int, str]":   pytype.KindUnion,
		"tuple[int, str]":   pytype.KindTuple,
		"list[int]":         pytype.KindClass, // generic args erased
		`"Forward"`:         pytype.KindClass,
		"typing.Tuple[int]": pytype.KindTuple,
	}
	for text, want := range cases {
		if got := e.TypeOfAnnotation(text).Kind(); got != want {
			t.Errorf("TypeOfAnnotation(%q).Kind() = %v, want %v", text, got, want)
		}
	}

	if e.TypeOfAnnotation("") != pytype.Unknown {
		t.Error("empty annotation should be Unknown")
	}
}

func TestTypeOfAnnotationUnionDedupe(t *testing.T) {
	e := New()
	u := e.TypeOfAnnotation("int | str | int")
	union, ok := u.(*pytype.Union)
	if !ok {
		t.Fatalf("expected union, got %T", u)
	}
	if len(union.Members) != 2 {
		t.Errorf("union should deduplicate, got %d members", len(union.Members))
	}
}

func TestTypeOfAnnotationTupleTail(t *testing.T) {
	e := New()
	tup, ok := e.TypeOfAnnotation("tuple[int, str, ...]").(*pytype.Tuple)
	if !ok {
		t.Fatal("expected tuple")
	}
	if len(tup.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(tup.Elements))
	}
	if tup.Elements[0].Unbounded || !tup.Elements[1].Unbounded {
		t.Error("the ... marker should flag only the preceding element")
	}
}

func TestTypeOfAnnotationUnpackedTuple(t *testing.T) {
	e := New()
	for _, text := range []string{"*tuple[int, str]", "Unpack[tuple[int, str]]"} {
		tup, ok := e.TypeOfAnnotation(text).(*pytype.Tuple)
		if !ok || !tup.Unpacked {
			t.Errorf("%q should evaluate to an unpacked tuple", text)
		}
	}
}

func TestTypeOfAnnotationUnpackedTypedDict(t *testing.T) {
	e := New()
	e.RegisterTypedDict(&pytype.TypedDict{
		Name:    "Movie",
		Entries: []pytype.TypedDictEntry{{Name: "title", Type: pytype.NewClass("str"), Required: true}},
	})

	td, ok := e.TypeOfAnnotation("Unpack[Movie]").(*pytype.TypedDict)
	if !ok {
		t.Fatal("expected TypedDict")
	}
	if !td.Unpacked {
		t.Error("Unpack should mark the TypedDict copy unpacked")
	}

	// The registered definition itself stays untouched.
	plain, _ := e.TypeOfAnnotation("Movie").(*pytype.TypedDict)
	if plain == nil || plain.Unpacked {
		t.Error("the registered TypedDict must not be mutated")
	}
}

func TestParamSpecInterning(t *testing.T) {
	e := New()
	args, ok := e.TypeOfAnnotation("P.args").(*pytype.ParamSpecArgs)
	if !ok {
		t.Fatal("expected ParamSpecArgs")
	}
	kwargs, ok := e.TypeOfAnnotation("P.kwargs").(*pytype.ParamSpecKwargs)
	if !ok {
		t.Fatal("expected ParamSpecKwargs")
	}
	if args.ParamSpec != kwargs.ParamSpec {
		t.Error("P.args and P.kwargs should share one interned ParamSpec")
	}
	if e.RegisterParamSpec("P") != args.ParamSpec {
		t.Error("RegisterParamSpec should return the interned instance")
	}

	if e.RegisterParamSpec("Q") == args.ParamSpec {
		t.Error("distinct names must intern distinct specs")
	}
}

func TestFunctionTypeMemoized(t *testing.T) {
	e := New()
	def := &parser.FuncDefStmt{
		Name: "f",
		Params: []parser.ParamDecl{
			{Name: "a", Annotation: "int"},
			{Name: "b", Category: pytype.ParamCategoryArgsList},
		},
		ReturnAnno: "str",
	}

	first := e.FunctionType(def)
	if first.Name != "f" || len(first.Params) != 2 {
		t.Fatalf("unexpected signature: %v", first)
	}
	if !pytype.Equal(first.ReturnType, pytype.NewClass("str")) {
		t.Error("return annotation should evaluate")
	}
	if e.FunctionType(def) != first {
		t.Error("FunctionType should memoize per definition node")
	}
}

func TestFunctionTypeDecorators(t *testing.T) {
	e := New()
	static := &parser.FuncDefStmt{Name: "s", Decorators: []string{"staticmethod"}}
	class := &parser.FuncDefStmt{Name: "c", Decorators: []string{"classmethod"}}

	if !e.FunctionType(static).IsStatic {
		t.Error("staticmethod decorator should set IsStatic")
	}
	if !e.FunctionType(class).IsMethod {
		t.Error("classmethod decorator should set IsMethod")
	}
}

func TestEntryCountAndDispose(t *testing.T) {
	e := New()
	e.TypeOfAnnotation("int")
	e.TypeOfAnnotation("str")
	if got := e.EntryCount(); got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}

	e.Dispose()
	if !e.Disposed() {
		t.Error("Dispose should mark the evaluator disposed")
	}
	if got := e.EntryCount(); got != 0 {
		t.Errorf("disposed evaluator should report 0 entries, got %d", got)
	}
}

func TestRunWithCancellation(t *testing.T) {
	e := New()

	if err := e.RunWithCancellation(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	sentinel := errors.New("boom")
	if err := e.RunWithCancellation(context.Background(), func(context.Context) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("fn error should pass through, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.RunWithCancellation(ctx, func(context.Context) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("pre-cancelled ctx should surface Canceled, got %v", err)
	}

	ctx2, cancel2 := context.WithCancel(context.Background())
	err := e.RunWithCancellation(ctx2, func(context.Context) error {
		cancel2()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("mid-run cancellation should surface Canceled, got %v", err)
	}
}
