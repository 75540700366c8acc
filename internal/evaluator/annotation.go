// # internal/evaluator/annotation.go
package evaluator

import (
	"strings"

	"pyscope/internal/pytype"
)

// parseAnnotation turns annotation text into the type model. The grammar
// covered is the subset parameter normalization and hover care about:
// plain names, None/Never/Any, unions with |, tuple[...] with an
// unbounded "..." tail, Unpack[...], the star-prefixed tuple shorthand,
// and ParamSpec component accesses (P.args / P.kwargs). Everything else
// degrades to a nominal class reference; forward-reference quotes are
// stripped first.
func (e *Evaluator) parseAnnotation(text string) pytype.Type {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"'`)
	if text == "" {
		return pytype.Unknown
	}

	// `*tuple[...]` parameter shorthand.
	if strings.HasPrefix(text, "*") {
		inner := e.parseAnnotation(text[1:])
		if tup, ok := inner.(*pytype.Tuple); ok {
			return &pytype.Tuple{Elements: tup.Elements, Unpacked: true}
		}
		return inner
	}

	if members := splitTopLevel(text, '|'); len(members) > 1 {
		parts := make([]pytype.Type, 0, len(members))
		for _, m := range members {
			parts = append(parts, e.parseAnnotation(m))
		}
		return pytype.Combine(parts...)
	}

	head, args, ok := splitSubscript(text)
	if !ok {
		return e.parseName(text)
	}

	switch stripTypingPrefix(head) {
	case "tuple", "Tuple":
		return e.parseTupleArgs(args)
	case "Unpack":
		if len(args) != 1 {
			return pytype.Unknown
		}
		inner := e.parseAnnotation(args[0])
		switch t := inner.(type) {
		case *pytype.Tuple:
			return &pytype.Tuple{Elements: t.Elements, Unpacked: true}
		case *pytype.TypedDict:
			return &pytype.TypedDict{
				Name:       t.Name,
				Entries:    t.Entries,
				ExtraItems: t.ExtraItems,
				Unpacked:   true,
			}
		}
		return inner
	case "Optional":
		if len(args) != 1 {
			return pytype.Unknown
		}
		return pytype.Combine(e.parseAnnotation(args[0]), pytype.NewClass("None"))
	case "Union":
		parts := make([]pytype.Type, 0, len(args))
		for _, a := range args {
			parts = append(parts, e.parseAnnotation(a))
		}
		return pytype.Combine(parts...)
	}

	// Generic parameters beyond the forms above are erased; the nominal
	// head is all arity checking and hover need.
	return e.parseName(head)
}

func (e *Evaluator) parseName(text string) pytype.Type {
	switch stripTypingPrefix(text) {
	case "Any":
		return pytype.Any
	case "None":
		return pytype.NewClass("None")
	case "Never", "NoReturn":
		return pytype.Never
	}

	if base, ok := strings.CutSuffix(text, ".args"); ok {
		e.mu.Lock()
		ps := e.paramSpecLocked(base)
		e.mu.Unlock()
		return &pytype.ParamSpecArgs{ParamSpec: ps}
	}
	if base, ok := strings.CutSuffix(text, ".kwargs"); ok {
		e.mu.Lock()
		ps := e.paramSpecLocked(base)
		e.mu.Unlock()
		return &pytype.ParamSpecKwargs{ParamSpec: ps}
	}

	e.mu.Lock()
	td, isTD := e.typedDicts[text]
	e.mu.Unlock()
	if isTD {
		return td
	}

	return pytype.NewClass(text)
}

func (e *Evaluator) parseTupleArgs(args []string) pytype.Type {
	tup := &pytype.Tuple{}
	for i, arg := range args {
		if strings.TrimSpace(arg) == "..." {
			// "T, ..." marks the preceding element unbounded.
			if i > 0 && len(tup.Elements) > 0 {
				tup.Elements[len(tup.Elements)-1].Unbounded = true
			}
			continue
		}
		el := pytype.TupleElement{Type: e.parseAnnotation(arg)}
		if inner, ok := el.Type.(*pytype.Tuple); ok && inner.Unpacked {
			// An unpacked tuple nested inside splices as an unbounded
			// region when it is itself unbounded.
			if !inner.IsFixedSize() {
				el.Unbounded = true
			}
		}
		tup.Elements = append(tup.Elements, el)
	}
	return tup
}

// splitSubscript splits "head[a, b]" into head and its top-level args.
func splitSubscript(text string) (string, []string, bool) {
	open := strings.IndexByte(text, '[')
	if open < 0 || !strings.HasSuffix(text, "]") {
		return "", nil, false
	}
	head := strings.TrimSpace(text[:open])
	inner := text[open+1 : len(text)-1]
	return head, splitTopLevel(inner, ','), true
}

// splitTopLevel splits on sep outside any bracket nesting.
func splitTopLevel(text string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[', '(', '{':
			depth++
		case ']', ')', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(text[start:i]))
				start = i + 1
			}
		}
	}
	parts = append(parts, strings.TrimSpace(text[start:]))
	return parts
}

func stripTypingPrefix(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range []string{"typing.", "typing_extensions.", "t."} {
		if rest, ok := strings.CutPrefix(name, prefix); ok {
			return rest
		}
	}
	return name
}
