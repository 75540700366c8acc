// # internal/params/params.go
package params

import (
	"strings"

	"pyscope/internal/pytype"
)

// VirtualParamKind classifies a normalized parameter slot for call matching.
type VirtualParamKind int

const (
	// KindPositional slots match by position only, never by keyword.
	KindPositional VirtualParamKind = iota
	// KindStandard slots match by position or keyword.
	KindStandard
	// KindKeyword slots match by keyword only.
	KindKeyword
	// KindExpandedArgs marks positional slots produced by unpacked-tuple
	// expansion. They are excluded from keyword matching and from the
	// first position-or-keyword index.
	KindExpandedArgs
)

// VirtualParam is one slot of the flattened parameter list. A single
// declared parameter can expand into zero, one or many virtual params.
type VirtualParam struct {
	Param       pytype.Param
	Name        string
	Type        pytype.Type
	DefaultType pytype.Type
	HasDefault  bool
	DeclIndex   int // structural index into the original declaration
	Kind        VirtualParamKind
}

// ParamListDetails is the normalized view of a signature's parameters.
// ArgsIndex and KwargsIndex are -1 when the list has no variadic slot of
// that kind.
type ParamListDetails struct {
	Params                      []VirtualParam
	FirstPositionOrKeywordIndex int
	PositionOnlyParamCount      int
	ArgsIndex                   int
	KwargsIndex                 int
	ParamSpec                   *pytype.ParamSpec
	HasUnpackedTuple            bool
	HasUnpackedTypedDict        bool
}

// Normalize flattens a signature's declared parameters into virtual slots.
// It is a pure function of the signature: re-running it on the same input
// (including an input whose tuple expansion already happened in a previous
// specialization) yields the same list.
func Normalize(sig *pytype.Function) *ParamListDetails {
	details := &ParamListDetails{
		ArgsIndex:   -1,
		KwargsIndex: -1,
	}

	// An explicit "/" wins over the legacy dunder-prefix convention; it must
	// be located before classification so parameters ahead of it are already
	// positional-only on the first pass.
	posOnlyBoundary := explicitPositionOnlyBoundary(sig)
	if posOnlyBoundary < 0 {
		posOnlyBoundary = inferPositionOnlyBoundary(sig)
	}
	sawKeywordOnly := false

	for declIndex, param := range sig.Params {
		switch param.Category {
		case pytype.ParamCategorySimple:
			if param.Name == "/" {
				continue
			}
			if param.Name == "" {
				// Bare "*" separator.
				sawKeywordOnly = true
				continue
			}
			kind := KindStandard
			if sawKeywordOnly {
				kind = KindKeyword
			} else if declIndex < posOnlyBoundary {
				kind = KindPositional
			}
			details.Params = append(details.Params, VirtualParam{
				Param:       param,
				Name:        param.Name,
				Type:        paramType(param),
				DefaultType: param.DefaultType,
				HasDefault:  param.HasDefault,
				DeclIndex:   declIndex,
				Kind:        kind,
			})

		case pytype.ParamCategoryArgsList:
			if tuple, ok := param.Type.(*pytype.Tuple); ok && tuple.Unpacked {
				details.HasUnpackedTuple = true
				expandTuple(details, param, declIndex, tuple)
				// Expansion consumes the *args slot, so everything after
				// it is keyword-only. A zero-length expansion still flips
				// the boundary.
				sawKeywordOnly = true
				continue
			}
			details.Params = append(details.Params, VirtualParam{
				Param:     param,
				Name:      param.Name,
				Type:      paramType(param),
				DeclIndex: declIndex,
				Kind:      KindPositional,
			})
			details.ArgsIndex = len(details.Params) - 1
			sawKeywordOnly = true

		case pytype.ParamCategoryKwargsDict:
			if td, ok := param.Type.(*pytype.TypedDict); ok && td.Unpacked {
				details.HasUnpackedTypedDict = true
				expandTypedDict(details, param, declIndex, td)
				continue
			}
			details.Params = append(details.Params, VirtualParam{
				Param:     param,
				Name:      param.Name,
				Type:      paramType(param),
				DeclIndex: declIndex,
				Kind:      KindKeyword,
			})
			details.KwargsIndex = len(details.Params) - 1
		}
	}

	detectParamSpec(details)

	details.PositionOnlyParamCount = 0
	details.FirstPositionOrKeywordIndex = len(details.Params)
	for i, vp := range details.Params {
		if vp.Kind == KindPositional {
			details.PositionOnlyParamCount++
		}
		if vp.Kind != KindPositional && vp.Kind != KindExpandedArgs &&
			details.FirstPositionOrKeywordIndex == len(details.Params) {
			details.FirstPositionOrKeywordIndex = i
		}
	}

	return details
}

// expandTuple flattens `*args: *tuple[...]` into one positional slot per
// fixed element, preserving an unbounded tail as the variadic slot.
func expandTuple(details *ParamListDetails, param pytype.Param, declIndex int, tuple *pytype.Tuple) {
	for _, el := range tuple.Elements {
		if el.Unbounded {
			details.Params = append(details.Params, VirtualParam{
				Param: pytype.Param{
					Category: pytype.ParamCategoryArgsList,
					Name:     param.Name,
					Type:     el.Type,
				},
				Name:      param.Name,
				Type:      el.Type,
				DeclIndex: declIndex,
				Kind:      KindExpandedArgs,
			})
			details.ArgsIndex = len(details.Params) - 1
			continue
		}
		details.Params = append(details.Params, VirtualParam{
			Param:     param,
			Name:      param.Name,
			Type:      el.Type,
			DeclIndex: declIndex,
			Kind:      KindExpandedArgs,
		})
	}
}

// expandTypedDict flattens `**kwargs: Unpack[TD]` into one keyword slot per
// declared key. Optional keys carry a default so arity checks treat them as
// omittable. Unless the TypedDict is closed, a synthetic catch-all kwargs
// slot carries the extra-items type.
func expandTypedDict(details *ParamListDetails, param pytype.Param, declIndex int, td *pytype.TypedDict) {
	for _, entry := range td.Entries {
		vp := VirtualParam{
			Param:     param,
			Name:      entry.Name,
			Type:      entry.Type,
			DeclIndex: declIndex,
			Kind:      KindKeyword,
		}
		if !entry.Required {
			vp.HasDefault = true
			vp.DefaultType = entry.Type
		}
		details.Params = append(details.Params, vp)
	}

	if td.IsClosed() {
		return
	}
	extra := td.ExtraItems
	if extra == nil {
		extra = pytype.Unknown
	}
	details.Params = append(details.Params, VirtualParam{
		Param: pytype.Param{
			Category: pytype.ParamCategoryKwargsDict,
			Name:     param.Name,
			Type:     extra,
		},
		Name:      param.Name,
		Type:      extra,
		DeclIndex: declIndex,
		Kind:      KindKeyword,
	})
	details.KwargsIndex = len(details.Params) - 1
}

// detectParamSpec recognizes a trailing `*args: P.args, **kwargs: P.kwargs`
// pair. The check is structural: the two accesses must resolve to the same
// ParamSpec value, not merely the same name. On a match the pair is removed
// from the virtual list and recorded as the list's ParamSpec.
func detectParamSpec(details *ParamListDetails) {
	n := len(details.Params)
	if n < 2 {
		return
	}
	argsSlot := details.Params[n-2]
	kwargsSlot := details.Params[n-1]
	if argsSlot.Param.Category != pytype.ParamCategoryArgsList ||
		kwargsSlot.Param.Category != pytype.ParamCategoryKwargsDict {
		return
	}
	psArgs, ok := argsSlot.Type.(*pytype.ParamSpecArgs)
	if !ok {
		return
	}
	psKwargs, ok := kwargsSlot.Type.(*pytype.ParamSpecKwargs)
	if !ok {
		return
	}
	if psArgs.ParamSpec != psKwargs.ParamSpec {
		return
	}

	details.ParamSpec = psArgs.ParamSpec
	details.Params = details.Params[:n-2]
	if details.ArgsIndex >= n-2 {
		details.ArgsIndex = -1
	}
	if details.KwargsIndex >= n-2 {
		details.KwargsIndex = -1
	}
}

// explicitPositionOnlyBoundary returns the declared index of the "/"
// separator, or -1 when the signature has none.
func explicitPositionOnlyBoundary(sig *pytype.Function) int {
	for i, p := range sig.Params {
		if p.Category == pytype.ParamCategorySimple && p.Name == "/" {
			return i
		}
	}
	return -1
}

// inferPositionOnlyBoundary returns the declared index before which
// parameters are positional-only when no explicit "/" separator exists.
// Legacy convention: leading double-underscore-prefixed names (dunders
// excluded) are positional-only; an implicit self/cls on a non-static
// method does not break the run.
func inferPositionOnlyBoundary(sig *pytype.Function) int {
	start := 0
	if sig.IsMethod && !sig.IsStatic && len(sig.Params) > 0 {
		start = 1
	}

	boundary := start
	for i := start; i < len(sig.Params); i++ {
		p := sig.Params[i]
		if p.Category != pytype.ParamCategorySimple || p.Name == "" || p.Name == "/" {
			break
		}
		if !strings.HasPrefix(p.Name, "__") || isDunderName(p.Name) {
			break
		}
		boundary = i + 1
	}
	if boundary == start {
		return 0
	}
	// The implicit self/cls ahead of the run is positional-only as well.
	return boundary
}

func isDunderName(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4
}

func paramType(param pytype.Param) pytype.Type {
	if param.Type == nil {
		return pytype.Unknown
	}
	return param.Type
}
