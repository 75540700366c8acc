// # internal/parser/python.go
package parser

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"pyscope/internal/pytype"
)

// extractor converts tree-sitter nodes into the statement IR. It keeps a
// flat list of every import encountered so the registry can resolve edges
// without re-walking the body.
type extractor struct {
	source  []byte
	imports []Import
}

func (e *extractor) extractBlock(node *sitter.Node) []Stmt {
	var stmts []Stmt
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if s := e.extractStmt(child); s != nil {
			stmts = append(stmts, s...)
		}
	}
	return stmts
}

func (e *extractor) extractStmt(node *sitter.Node) []Stmt {
	switch node.Kind() {
	case "import_statement":
		return e.extractImport(node)
	case "import_from_statement", "future_import_statement":
		return e.extractFromImport(node)
	case "expression_statement":
		return e.extractExpressionStmt(node)
	case "delete_statement":
		return []Stmt{&DelStmt{stmtBase: e.base(node), Names: e.collectTargets(node)}}
	case "if_statement":
		return []Stmt{e.extractIf(node)}
	case "while_statement":
		return []Stmt{e.extractWhile(node)}
	case "for_statement":
		return []Stmt{e.extractFor(node)}
	case "try_statement":
		return []Stmt{e.extractTry(node)}
	case "match_statement":
		return []Stmt{e.extractMatch(node)}
	case "return_statement":
		s := &ReturnStmt{stmtBase: e.base(node)}
		s.Refs, s.Calls = e.collectExprParts(node)
		return []Stmt{s}
	case "raise_statement":
		s := &RaiseStmt{stmtBase: e.base(node)}
		s.Refs, _ = e.collectExprParts(node)
		return []Stmt{s}
	case "break_statement":
		return []Stmt{&BreakStmt{stmtBase: e.base(node)}}
	case "continue_statement":
		return []Stmt{&ContinueStmt{stmtBase: e.base(node)}}
	case "function_definition":
		return []Stmt{e.extractFunction(node, nil)}
	case "class_definition":
		return []Stmt{e.extractClass(node)}
	case "decorated_definition":
		return e.extractDecorated(node)
	case "global_statement", "nonlocal_statement":
		var names []string
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() == "identifier" {
				names = append(names, e.text(child))
			}
		}
		return []Stmt{&GlobalStmt{stmtBase: e.base(node), Names: names}}
	}
	return nil
}

func (e *extractor) extractImport(node *sitter.Node) []Stmt {
	var stmts []Stmt
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "dotted_name", "identifier":
			imp := Import{
				Module:   e.text(child),
				Location: e.location(child),
			}
			e.imports = append(e.imports, imp)
			stmts = append(stmts, &ImportStmt{stmtBase: e.base(child), Import: imp})
		case "aliased_import":
			var module, alias string
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				if sub.Kind() == "dotted_name" || sub.Kind() == "identifier" {
					if module == "" {
						module = e.text(sub)
					} else {
						alias = e.text(sub)
					}
				}
			}
			imp := Import{
				Module:   module,
				Alias:    alias,
				Location: e.location(child),
			}
			e.imports = append(e.imports, imp)
			stmts = append(stmts, &ImportStmt{stmtBase: e.base(child), Import: imp})
		}
	}
	return stmts
}

func (e *extractor) extractFromImport(node *sitter.Node) []Stmt {
	imp := Import{Location: e.location(node)}
	sawImportKeyword := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "relative_import":
			imp.IsRelative = true
			relText := e.text(child)
			imp.RelativeLevel = len(relText) - len(strings.TrimLeft(relText, "."))
			imp.Module = strings.TrimLeft(relText, ".")
		case "dotted_name", "identifier":
			if !sawImportKeyword && !imp.IsRelative && imp.Module == "" {
				imp.Module = e.text(child)
			} else if sawImportKeyword {
				imp.Items = append(imp.Items, e.text(child))
			}
		case "import":
			sawImportKeyword = true
		case "wildcard_import":
			imp.IsWildcard = true
		case "import_list":
			e.collectImportItems(child, &imp)
		case "aliased_import":
			e.collectAliasedItem(child, &imp)
		}
	}

	e.imports = append(e.imports, imp)
	return []Stmt{&ImportStmt{stmtBase: e.base(node), Import: imp}}
}

func (e *extractor) collectImportItems(node *sitter.Node, imp *Import) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "identifier", "dotted_name":
			imp.Items = append(imp.Items, e.text(child))
		case "aliased_import":
			e.collectAliasedItem(child, imp)
		}
	}
}

func (e *extractor) collectAliasedItem(node *sitter.Node, imp *Import) {
	// "from m import name as alias" binds the alias.
	var last string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" || child.Kind() == "dotted_name" {
			last = e.text(child)
		}
	}
	if last != "" {
		imp.Items = append(imp.Items, last)
	}
}

func (e *extractor) extractExpressionStmt(node *sitter.Node) []Stmt {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "assignment", "augmented_assignment":
			s := &AssignStmt{stmtBase: e.base(child)}
			if left := child.ChildByFieldName("left"); left != nil {
				s.Targets = e.collectTargetNames(left)
			}
			if right := child.ChildByFieldName("right"); right != nil {
				s.Refs, s.Calls = e.collectExprParts(right)
			}
			return []Stmt{s}
		}
	}

	s := &ExprStmt{stmtBase: e.base(node)}
	s.Refs, s.Calls = e.collectExprParts(node)
	return []Stmt{s}
}

func (e *extractor) extractIf(node *sitter.Node) *IfStmt {
	s := &IfStmt{stmtBase: e.base(node)}
	if cond := node.ChildByFieldName("condition"); cond != nil {
		s.Cond = e.text(cond)
		s.CondRefs, _ = e.collectExprParts(cond)
	}
	if body := node.ChildByFieldName("consequence"); body != nil {
		s.Then = e.extractBlock(body)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "elif_clause":
			elif := &IfStmt{stmtBase: e.base(child)}
			if cond := child.ChildByFieldName("condition"); cond != nil {
				elif.Cond = e.text(cond)
				elif.CondRefs, _ = e.collectExprParts(cond)
			}
			if body := child.ChildByFieldName("consequence"); body != nil {
				elif.Then = e.extractBlock(body)
			}
			// Chain: the elif becomes the else branch of the nearest if.
			appendElse(s, elif)
		case "else_clause":
			if body := child.ChildByFieldName("body"); body != nil {
				appendElseBlock(s, e.extractBlock(body))
			}
		}
	}
	return s
}

func appendElse(root *IfStmt, elif *IfStmt) {
	cur := root
	for {
		if len(cur.Else) == 1 {
			if next, ok := cur.Else[0].(*IfStmt); ok {
				cur = next
				continue
			}
		}
		cur.Else = []Stmt{elif}
		return
	}
}

func appendElseBlock(root *IfStmt, block []Stmt) {
	cur := root
	for {
		if len(cur.Else) == 1 {
			if next, ok := cur.Else[0].(*IfStmt); ok {
				cur = next
				continue
			}
		}
		cur.Else = block
		return
	}
}

func (e *extractor) extractWhile(node *sitter.Node) *WhileStmt {
	s := &WhileStmt{stmtBase: e.base(node)}
	if cond := node.ChildByFieldName("condition"); cond != nil {
		s.Cond = e.text(cond)
		s.CondRefs, _ = e.collectExprParts(cond)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		s.Body = e.extractBlock(body)
	}
	if alt := node.ChildByFieldName("alternative"); alt != nil {
		if body := alt.ChildByFieldName("body"); body != nil {
			s.Else = e.extractBlock(body)
		}
	}
	return s
}

func (e *extractor) extractFor(node *sitter.Node) *ForStmt {
	s := &ForStmt{stmtBase: e.base(node)}
	if left := node.ChildByFieldName("left"); left != nil {
		s.Targets = e.collectTargetNames(left)
	}
	if right := node.ChildByFieldName("right"); right != nil {
		s.IterExpr = e.text(right)
		s.IterRefs, _ = e.collectExprParts(right)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		s.Body = e.extractBlock(body)
	}
	if alt := node.ChildByFieldName("alternative"); alt != nil {
		if body := alt.ChildByFieldName("body"); body != nil {
			s.Else = e.extractBlock(body)
		}
	}
	return s
}

func (e *extractor) extractTry(node *sitter.Node) *TryStmt {
	s := &TryStmt{stmtBase: e.base(node)}
	if body := node.ChildByFieldName("body"); body != nil {
		s.Body = e.extractBlock(body)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "except_clause", "except_group_clause":
			handler := ExceptHandler{LineNo: int(child.StartPosition().Row) + 1}
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				switch sub.Kind() {
				case "as_pattern":
					handler.ExprText = e.text(sub)
					if alias := sub.ChildByFieldName("alias"); alias != nil {
						handler.Name = e.text(alias)
					}
				case "identifier", "attribute", "tuple":
					if handler.ExprText == "" {
						handler.ExprText = e.text(sub)
					}
				case "block":
					handler.Body = e.extractBlock(sub)
				}
			}
			s.Handlers = append(s.Handlers, handler)
		case "else_clause":
			if body := child.ChildByFieldName("body"); body != nil {
				s.OrElse = e.extractBlock(body)
			}
		case "finally_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				if sub := child.Child(j); sub.Kind() == "block" {
					s.Finally = e.extractBlock(sub)
				}
			}
		}
	}
	return s
}

func (e *extractor) extractMatch(node *sitter.Node) *MatchStmt {
	s := &MatchStmt{stmtBase: e.base(node)}
	if subject := node.ChildByFieldName("subject"); subject != nil {
		s.Subject = e.text(subject)
		s.SubjectRefs, _ = e.collectExprParts(subject)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		for i := uint(0); i < body.ChildCount(); i++ {
			child := body.Child(i)
			if child.Kind() != "case_clause" {
				continue
			}
			c := MatchCase{LineNo: int(child.StartPosition().Row) + 1}
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				switch sub.Kind() {
				case "case_pattern":
					if c.Pattern != "" {
						c.Pattern += " | "
					}
					c.Pattern += e.text(sub)
					e.collectPatternCaptures(sub, &c.Captures)
				case "if_clause":
					c.Guard = e.text(sub)
				case "block":
					c.Body = e.extractBlock(sub)
				}
			}
			s.Cases = append(s.Cases, c)
		}
	}
	return s
}

// collectPatternCaptures gathers capture names from a case pattern. Class
// and value patterns (dotted names, calls) do not capture; "_" is a
// wildcard, not a binding.
func (e *extractor) collectPatternCaptures(node *sitter.Node, out *[]string) {
	kind := node.Kind()
	if kind == "attribute" || kind == "string" || kind == "integer" || kind == "float" {
		return
	}
	if kind == "identifier" {
		name := e.text(node)
		parent := node.Parent()
		// The class name position of a class pattern is a reference.
		if parent != nil && parent.Kind() == "class_pattern" && parent.Child(0) != nil && parent.Child(0).StartByte() == node.StartByte() {
			return
		}
		if name != "_" {
			*out = append(*out, name)
		}
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.collectPatternCaptures(node.Child(i), out)
	}
}

func (e *extractor) extractDecorated(node *sitter.Node) []Stmt {
	var decorators []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "decorator" {
			decorators = append(decorators, strings.TrimPrefix(e.text(child), "@"))
		}
	}
	if def := node.ChildByFieldName("definition"); def != nil {
		switch def.Kind() {
		case "function_definition":
			return []Stmt{e.extractFunction(def, decorators)}
		case "class_definition":
			return []Stmt{e.extractClass(def)}
		}
	}
	return nil
}

func (e *extractor) extractFunction(node *sitter.Node, decorators []string) *FuncDefStmt {
	s := &FuncDefStmt{stmtBase: e.base(node), Decorators: decorators}
	if name := node.ChildByFieldName("name"); name != nil {
		s.Name = e.text(name)
	}
	if ret := node.ChildByFieldName("return_type"); ret != nil {
		s.ReturnAnno = e.text(ret)
	}
	if paramsNode := node.ChildByFieldName("parameters"); paramsNode != nil {
		s.Params = e.extractParams(paramsNode)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		s.Body = e.extractBlock(body)
	}
	return s
}

func (e *extractor) extractParams(node *sitter.Node) []ParamDecl {
	var decls []ParamDecl
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "identifier":
			decls = append(decls, ParamDecl{Name: e.text(child)})
		case "typed_parameter":
			decls = append(decls, e.typedParam(child, false))
		case "default_parameter":
			decl := ParamDecl{HasDefault: true}
			if name := child.ChildByFieldName("name"); name != nil {
				decl.Name = e.text(name)
			}
			decls = append(decls, decl)
		case "typed_default_parameter":
			decl := e.typedParam(child, true)
			decls = append(decls, decl)
		case "list_splat_pattern":
			decls = append(decls, ParamDecl{
				Name:     e.firstIdentifier(child),
				Category: pytype.ParamCategoryArgsList,
			})
		case "dictionary_splat_pattern":
			decls = append(decls, ParamDecl{
				Name:     e.firstIdentifier(child),
				Category: pytype.ParamCategoryKwargsDict,
			})
		case "positional_separator":
			decls = append(decls, ParamDecl{Name: "/"})
		case "keyword_separator":
			decls = append(decls, ParamDecl{Name: ""})
		}
	}
	return decls
}

func (e *extractor) typedParam(node *sitter.Node, hasDefault bool) ParamDecl {
	decl := ParamDecl{HasDefault: hasDefault}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "identifier":
			if decl.Name == "" {
				decl.Name = e.text(child)
			}
		case "list_splat_pattern":
			decl.Name = e.firstIdentifier(child)
			decl.Category = pytype.ParamCategoryArgsList
		case "dictionary_splat_pattern":
			decl.Name = e.firstIdentifier(child)
			decl.Category = pytype.ParamCategoryKwargsDict
		case "type":
			decl.Annotation = e.text(child)
		}
	}
	if name := node.ChildByFieldName("name"); name != nil && decl.Name == "" {
		decl.Name = e.text(name)
	}
	if typ := node.ChildByFieldName("type"); typ != nil && decl.Annotation == "" {
		decl.Annotation = e.text(typ)
	}
	return decl
}

func (e *extractor) extractClass(node *sitter.Node) *ClassDefStmt {
	s := &ClassDefStmt{stmtBase: e.base(node)}
	if name := node.ChildByFieldName("name"); name != nil {
		s.Name = e.text(name)
	}
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := uint(0); i < supers.ChildCount(); i++ {
			child := supers.Child(i)
			if child.Kind() == "identifier" || child.Kind() == "attribute" {
				s.Bases = append(s.Bases, e.text(child))
			}
		}
	}
	if body := node.ChildByFieldName("body"); body != nil {
		s.Body = e.extractBlock(body)
	}
	return s
}

// collectTargetNames returns the simple names bound by an assignment
// target. Attribute and subscript targets bind no new local name.
func (e *extractor) collectTargetNames(node *sitter.Node) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Kind() {
		case "identifier":
			names = append(names, e.text(n))
		case "attribute", "subscript":
			return
		default:
			for i := uint(0); i < n.ChildCount(); i++ {
				walk(n.Child(i))
			}
		}
	}
	walk(node)
	return names
}

func (e *extractor) collectTargets(node *sitter.Node) []string {
	var names []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" {
			names = append(names, e.text(child))
		}
	}
	return names
}

// collectExprParts gathers name loads and call sites from an expression
// subtree. For attribute chains only the leftmost object is a load; call
// keyword names are not loads.
func (e *extractor) collectExprParts(node *sitter.Node) ([]NameRef, []CallInfo) {
	var refs []NameRef
	var calls []CallInfo

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Kind() {
		case "identifier":
			refs = append(refs, NameRef{Name: e.text(n), Location: e.location(n)})
			return
		case "attribute":
			if obj := n.ChildByFieldName("object"); obj != nil {
				walk(obj)
			}
			return
		case "call":
			call := CallInfo{Location: e.location(n)}
			if fn := n.ChildByFieldName("function"); fn != nil {
				call.Callee = e.text(fn)
				walk(fn)
			}
			if args := n.ChildByFieldName("arguments"); args != nil {
				for i := uint(0); i < args.ChildCount(); i++ {
					arg := args.Child(i)
					switch arg.Kind() {
					case "keyword_argument":
						if name := arg.ChildByFieldName("name"); name != nil {
							call.KeywordArgs = append(call.KeywordArgs, e.text(name))
						}
						if value := arg.ChildByFieldName("value"); value != nil {
							walk(value)
						}
					case "list_splat":
						call.HasStarArgs = true
						walk(arg)
					case "dictionary_splat":
						call.HasKwargsArgs = true
						walk(arg)
					case "(", ")", ",", "comment":
						// punctuation
					default:
						call.PositionalArgs++
						walk(arg)
					}
				}
			}
			calls = append(calls, call)
			return
		case "keyword_argument":
			if value := n.ChildByFieldName("value"); value != nil {
				walk(value)
			}
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return refs, calls
}

func (e *extractor) firstIdentifier(node *sitter.Node) string {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "identifier" {
			return e.text(child)
		}
	}
	return ""
}

func (e *extractor) base(node *sitter.Node) stmtBase {
	return stmtBase{LineNo: int(node.StartPosition().Row) + 1}
}

func (e *extractor) location(node *sitter.Node) Location {
	return Location{
		Line:   int(node.StartPosition().Row) + 1,
		Column: int(node.StartPosition().Column) + 1,
	}
}

func (e *extractor) text(node *sitter.Node) string {
	return string(e.source[node.StartByte():node.EndByte()])
}
