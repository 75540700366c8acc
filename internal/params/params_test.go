// # internal/params/params_test.go
package params

import (
	"testing"

	"pyscope/internal/pytype"
)

func simpleParam(name string) pytype.Param {
	return pytype.Param{Category: pytype.ParamCategorySimple, Name: name}
}

func TestNormalizeSeparators(t *testing.T) {
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			simpleParam("a"),
			simpleParam("b"),
			simpleParam("/"),
			simpleParam("c"),
			simpleParam(""),
			simpleParam("d"),
		},
	}

	details := Normalize(sig)

	if len(details.Params) != 4 {
		t.Fatalf("expected 4 virtual params, got %d", len(details.Params))
	}
	if details.Params[0].Kind != KindPositional || details.Params[1].Kind != KindPositional {
		t.Error("params before / should be positional-only")
	}
	if details.Params[2].Kind != KindStandard {
		t.Errorf("param between / and * should be standard, got %v", details.Params[2].Kind)
	}
	if details.Params[3].Kind != KindKeyword {
		t.Errorf("param after * should be keyword-only, got %v", details.Params[3].Kind)
	}
	if details.PositionOnlyParamCount != 2 {
		t.Errorf("expected 2 position-only params, got %d", details.PositionOnlyParamCount)
	}
	if details.FirstPositionOrKeywordIndex != 2 {
		t.Errorf("expected first position-or-keyword index 2, got %d", details.FirstPositionOrKeywordIndex)
	}
	if details.ArgsIndex != -1 || details.KwargsIndex != -1 {
		t.Error("no variadic slots expected")
	}
}

func TestNormalizeDunderPrefixInference(t *testing.T) {
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			simpleParam("__a"),
			simpleParam("__b"),
			simpleParam("c"),
		},
	}

	details := Normalize(sig)
	if details.Params[0].Kind != KindPositional || details.Params[1].Kind != KindPositional {
		t.Error("leading double-underscore params should infer positional-only")
	}
	if details.Params[2].Kind != KindStandard {
		t.Error("param after the dunder run should be standard")
	}
}

func TestNormalizeDunderNamesDoNotInfer(t *testing.T) {
	// __init__-style names are real dunders, not the legacy prefix convention.
	sig := &pytype.Function{
		Name:   "f",
		Params: []pytype.Param{simpleParam("__state__"), simpleParam("b")},
	}
	details := Normalize(sig)
	if details.Params[0].Kind != KindStandard {
		t.Errorf("dunder name should not trigger positional-only inference, got %v", details.Params[0].Kind)
	}
}

func TestNormalizeMethodSelfPrecedesDunderRun(t *testing.T) {
	sig := &pytype.Function{
		Name:     "m",
		IsMethod: true,
		Params: []pytype.Param{
			simpleParam("self"),
			simpleParam("__x"),
			simpleParam("y"),
		},
	}

	details := Normalize(sig)
	if details.Params[0].Kind != KindPositional {
		t.Error("implicit self ahead of a dunder run should be positional-only")
	}
	if details.Params[1].Kind != KindPositional {
		t.Error("__x should be positional-only")
	}
	if details.Params[2].Kind != KindStandard {
		t.Error("y should be standard")
	}
}

func TestNormalizePlainVariadics(t *testing.T) {
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			simpleParam("a"),
			{Category: pytype.ParamCategoryArgsList, Name: "args"},
			simpleParam("k"),
			{Category: pytype.ParamCategoryKwargsDict, Name: "kwargs"},
		},
	}

	details := Normalize(sig)
	if details.ArgsIndex != 1 {
		t.Errorf("expected ArgsIndex 1, got %d", details.ArgsIndex)
	}
	if details.KwargsIndex != 3 {
		t.Errorf("expected KwargsIndex 3, got %d", details.KwargsIndex)
	}
	if details.Params[2].Kind != KindKeyword {
		t.Error("param after *args should be keyword-only")
	}
}

func TestNormalizeTupleExpansion(t *testing.T) {
	intT := pytype.NewClass("int")
	strT := pytype.NewClass("str")
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			{
				Category: pytype.ParamCategoryArgsList,
				Name:     "args",
				Type: &pytype.Tuple{
					Unpacked: true,
					Elements: []pytype.TupleElement{
						{Type: intT},
						{Type: strT},
					},
				},
			},
			simpleParam("after"),
		},
	}

	details := Normalize(sig)
	if !details.HasUnpackedTuple {
		t.Fatal("expected HasUnpackedTuple")
	}
	if len(details.Params) != 3 {
		t.Fatalf("expected 3 virtual params, got %d", len(details.Params))
	}
	if details.Params[0].Kind != KindExpandedArgs || details.Params[1].Kind != KindExpandedArgs {
		t.Error("expanded tuple slots should carry KindExpandedArgs")
	}
	if !pytype.Equal(details.Params[0].Type, intT) || !pytype.Equal(details.Params[1].Type, strT) {
		t.Error("expanded slots should carry the element types")
	}
	if details.ArgsIndex != -1 {
		t.Errorf("fixed-size expansion leaves no variadic slot, ArgsIndex=%d", details.ArgsIndex)
	}
	if details.Params[2].Kind != KindKeyword {
		t.Error("a parameter after a consumed *args is keyword-only")
	}
}

func TestNormalizeTupleExpansionUnboundedTail(t *testing.T) {
	intT := pytype.NewClass("int")
	strT := pytype.NewClass("str")
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			{
				Category: pytype.ParamCategoryArgsList,
				Name:     "args",
				Type: &pytype.Tuple{
					Unpacked: true,
					Elements: []pytype.TupleElement{
						{Type: intT},
						{Type: strT, Unbounded: true},
					},
				},
			},
		},
	}

	details := Normalize(sig)
	if len(details.Params) != 2 {
		t.Fatalf("expected 2 virtual params, got %d", len(details.Params))
	}
	if details.ArgsIndex != 1 {
		t.Errorf("unbounded tail should become the variadic slot, ArgsIndex=%d", details.ArgsIndex)
	}
	if !pytype.Equal(details.Params[1].Type, strT) {
		t.Error("variadic slot should carry the tail element type")
	}
}

func TestNormalizeEmptyTupleExpansion(t *testing.T) {
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			{
				Category: pytype.ParamCategoryArgsList,
				Name:     "args",
				Type:     &pytype.Tuple{Unpacked: true},
			},
			simpleParam("k"),
		},
	}

	details := Normalize(sig)
	if len(details.Params) != 1 {
		t.Fatalf("zero-length expansion should contribute no slots, got %d", len(details.Params))
	}
	if details.Params[0].Kind != KindKeyword {
		t.Error("zero-length expansion still flips to keyword-only")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	intT := pytype.NewClass("int")
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			simpleParam("a"),
			{
				Category: pytype.ParamCategoryArgsList,
				Name:     "args",
				Type: &pytype.Tuple{
					Unpacked: true,
					Elements: []pytype.TupleElement{{Type: intT}, {Type: intT, Unbounded: true}},
				},
			},
		},
	}

	first := Normalize(sig)
	second := Normalize(sig)
	if len(first.Params) != len(second.Params) {
		t.Fatalf("normalization not stable: %d vs %d slots", len(first.Params), len(second.Params))
	}
	for i := range first.Params {
		if first.Params[i].Kind != second.Params[i].Kind ||
			first.Params[i].Name != second.Params[i].Name ||
			!pytype.Equal(first.Params[i].Type, second.Params[i].Type) {
			t.Errorf("slot %d differs between runs", i)
		}
	}
	if first.ArgsIndex != second.ArgsIndex || first.KwargsIndex != second.KwargsIndex {
		t.Error("variadic indexes differ between runs")
	}
}

func TestNormalizeTypedDictExpansion(t *testing.T) {
	intT := pytype.NewClass("int")
	strT := pytype.NewClass("str")
	td := &pytype.TypedDict{
		Name:     "Movie",
		Unpacked: true,
		Entries: []pytype.TypedDictEntry{
			{Name: "title", Type: strT, Required: true},
			{Name: "year", Type: intT, Required: false},
		},
	}
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			{Category: pytype.ParamCategoryKwargsDict, Name: "kwargs", Type: td},
		},
	}

	details := Normalize(sig)
	if !details.HasUnpackedTypedDict {
		t.Fatal("expected HasUnpackedTypedDict")
	}
	// title, year, plus the synthetic extra-items slot.
	if len(details.Params) != 3 {
		t.Fatalf("expected 3 virtual params, got %d", len(details.Params))
	}
	if details.Params[0].HasDefault {
		t.Error("required key must not carry a default")
	}
	if !details.Params[1].HasDefault {
		t.Error("optional key should carry a default")
	}
	if details.KwargsIndex != 2 {
		t.Errorf("open TypedDict should leave a catch-all kwargs slot, KwargsIndex=%d", details.KwargsIndex)
	}
}

func TestNormalizeClosedTypedDictExpansion(t *testing.T) {
	td := &pytype.TypedDict{
		Name:       "Point",
		Unpacked:   true,
		ExtraItems: pytype.Never,
		Entries: []pytype.TypedDictEntry{
			{Name: "x", Type: pytype.NewClass("int"), Required: true},
		},
	}
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			{Category: pytype.ParamCategoryKwargsDict, Name: "kwargs", Type: td},
		},
	}

	details := Normalize(sig)
	if len(details.Params) != 1 {
		t.Fatalf("closed TypedDict should expand without a catch-all, got %d slots", len(details.Params))
	}
	if details.KwargsIndex != -1 {
		t.Errorf("closed TypedDict should leave KwargsIndex -1, got %d", details.KwargsIndex)
	}
}

func TestNormalizeParamSpecDetection(t *testing.T) {
	spec := &pytype.ParamSpec{Name: "P"}
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			simpleParam("a"),
			{Category: pytype.ParamCategoryArgsList, Name: "args", Type: &pytype.ParamSpecArgs{ParamSpec: spec}},
			{Category: pytype.ParamCategoryKwargsDict, Name: "kwargs", Type: &pytype.ParamSpecKwargs{ParamSpec: spec}},
		},
	}

	details := Normalize(sig)
	if details.ParamSpec != spec {
		t.Fatal("trailing P.args/P.kwargs pair should be recognized")
	}
	if len(details.Params) != 1 {
		t.Fatalf("the pair should be removed from the slot list, got %d", len(details.Params))
	}
	if details.ArgsIndex != -1 || details.KwargsIndex != -1 {
		t.Error("removed pair must not leave variadic indexes behind")
	}
}

func TestNormalizeParamSpecIdentityNotName(t *testing.T) {
	specA := &pytype.ParamSpec{Name: "P"}
	specB := &pytype.ParamSpec{Name: "P"}
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			{Category: pytype.ParamCategoryArgsList, Name: "args", Type: &pytype.ParamSpecArgs{ParamSpec: specA}},
			{Category: pytype.ParamCategoryKwargsDict, Name: "kwargs", Type: &pytype.ParamSpecKwargs{ParamSpec: specB}},
		},
	}

	details := Normalize(sig)
	if details.ParamSpec != nil {
		t.Fatal("same-named but distinct ParamSpecs must not match")
	}
	if len(details.Params) != 2 {
		t.Errorf("slots should remain, got %d", len(details.Params))
	}
}

func TestNormalizeParamSpecPairMustBeTrailing(t *testing.T) {
	spec := &pytype.ParamSpec{Name: "P"}
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			{Category: pytype.ParamCategoryArgsList, Name: "args", Type: &pytype.ParamSpecArgs{ParamSpec: spec}},
			{Category: pytype.ParamCategoryKwargsDict, Name: "kwargs", Type: &pytype.ParamSpecKwargs{ParamSpec: spec}},
			simpleParam("tail"),
		},
	}

	details := Normalize(sig)
	if details.ParamSpec != nil {
		t.Fatal("a non-trailing pair must not be recognized")
	}
}

func TestTrackerArity(t *testing.T) {
	sig := &pytype.Function{
		Name: "f",
		Params: []pytype.Param{
			simpleParam("a"),
			{Category: pytype.ParamCategorySimple, Name: "b", HasDefault: true},
			{Category: pytype.ParamCategoryArgsList, Name: "args"},
		},
	}
	details := Normalize(sig)
	tracker := NewParamAssignmentTracker(details)

	missing := tracker.UnassignedRequired()
	if len(missing) != 1 || missing[0] != "a" {
		t.Fatalf("expected only 'a' missing, got %v", missing)
	}

	tracker.Assign(0)
	if got := tracker.Count(0); got != 1 {
		t.Errorf("expected count 1, got %d", got)
	}
	if len(tracker.UnassignedRequired()) != 0 {
		t.Error("no params should remain unassigned")
	}
	if !tracker.IsSatisfied(1) {
		t.Error("defaulted slot is satisfied with zero assignments")
	}
	if !tracker.IsSatisfied(2) {
		t.Error("variadic slot is satisfied with zero assignments")
	}

	// Out-of-range indexes are ignored, not fatal.
	tracker.Assign(99)
	if tracker.Count(99) != 0 {
		t.Error("out-of-range count should be 0")
	}
}
