// Package python adapts the engine to Python's tree-sitter grammar (spec
// §4.2.2's Python row). Grounded on the teacher's Cabs→Clight frontend stage
// (pkg/clightgen) in the sense that both packages are "one source grammar's
// worth of node-type-to-lowering-rule configuration" sitting on top of a
// shared translation core; the dispatch-table wiring itself follows
// pkg/rtlgen/stmt.go's per-construct registration style.
package python

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Python syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a Python adapter with its dispatch tables populated.
func New() *Adapter {
	e := engine.New(engine.DefaultConfig())
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["integer"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["float"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["none"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary_operator"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["boolean_operator"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["comparison_operator"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["unary_operator"] = (*engine.Engine).LowerUnop
	e.ExprDispatch["not_operator"] = lowerNotOperator
	e.ExprDispatch["attribute"] = (*engine.Engine).LowerAttribute
	e.ExprDispatch["subscript"] = lowerSubscriptOrSlice
	e.ExprDispatch["call"] = (*engine.Engine).LowerCall
	e.ExprDispatch["assignment"] = lowerAssignment
	e.ExprDispatch["list"] = lowerListLiteral
	e.ExprDispatch["tuple"] = lowerListLiteral
	e.ExprDispatch["set"] = lowerListLiteral
	e.ExprDispatch["dictionary"] = lowerDictLiteral
	e.ExprDispatch["list_comprehension"] = lowerComprehension
	e.ExprDispatch["set_comprehension"] = lowerComprehension
	e.ExprDispatch["dictionary_comprehension"] = lowerComprehension
	e.ExprDispatch["generator_expression"] = lowerGeneratorExpression
	e.ExprDispatch["conditional_expression"] = lowerConditionalExpression
	e.ExprDispatch["named_expression"] = lowerWalrus

	e.StmtDispatch["if_statement"] = (*engine.Engine).LowerIf
	e.StmtDispatch["elif_clause"] = (*engine.Engine).LowerIf
	e.StmtDispatch["else_clause"] = (*engine.Engine).LowerAlternative
	e.StmtDispatch["while_statement"] = (*engine.Engine).LowerWhile
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["return_statement"] = lowerReturn
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["continue_statement"] = (*engine.Engine).LowerContinue
	e.StmtDispatch["function_definition"] = lowerFunctionDefWithDecorators
	e.StmtDispatch["class_definition"] = lowerClassDefWithDecorators
	e.StmtDispatch["try_statement"] = lowerTryStatement
	e.StmtDispatch["with_statement"] = lowerWithStatement
	e.StmtDispatch["match_statement"] = lowerMatchStatement
	e.StmtDispatch["import_statement"] = lowerImportStatement
	e.StmtDispatch["import_from_statement"] = lowerImportStatement
	e.StmtDispatch["expression_statement"] = lowerExpressionStatement

	e.Config.CommentTypes["comment"] = true
	e.Config.BlockNodeTypes["block"] = true

	e.StoreTargetOverride = lowerStoreTargetOverride

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

// lowerExpressionStatement unwraps the bare-expression-as-statement node
// tree-sitter-python wraps every top-level expression in (assignments, calls,
// yields); a statement holding more than one named child — Python's chained
// `a = b = 1` — lowers each left-to-right.
func lowerExpressionStatement(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		if e.Config.CommentTypes[c.Type()] {
			continue
		}
		e.LowerStmt(c)
	}
}

func lowerNotOperator(e *engine.Engine, n engine.Node) string {
	argNode, _ := n.ChildByFieldName("argument")
	operand := e.LowerExprOrMissing(argNode, "not_operand")
	reg := e.Emit(ir.UNOP, []string{"not", operand}, n, true)
	return reg
}

// lowerSubscriptOrSlice recognizes a `slice` node nested in the index
// position and lowers it to the CALL_FUNCTION "slice" convention (spec
// §4.2.2's Python row), otherwise falling back to the generic LOAD_INDEX.
func lowerSubscriptOrSlice(e *engine.Engine, n engine.Node) string {
	idxNode, _ := n.ChildByFieldName(e.Config.SubscriptIndexField)
	if idxNode != nil && idxNode.Type() == "slice" {
		valueNode, _ := n.ChildByFieldName(e.Config.SubscriptValueField)
		valueReg := e.LowerExprOrMissing(valueNode, "subscript_value")
		start, hasStart := idxNode.ChildByFieldName("start")
		stop, hasStop := idxNode.ChildByFieldName("stop")
		step, hasStep := idxNode.ChildByFieldName("step")
		args := []string{"slice", valueReg}
		args = append(args, sliceArg(e, start, hasStart, idxNode), sliceArg(e, stop, hasStop, idxNode), sliceArg(e, step, hasStep, idxNode))
		return e.Emit(ir.CALL_FUNCTION, args, n, true)
	}
	return e.LowerSubscript(n)
}

func sliceArg(e *engine.Engine, n engine.Node, has bool, parent engine.Node) string {
	if !has || n == nil {
		return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, parent, true)
	}
	return e.LowerExpr(n)
}

func lowerAssignment(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName(e.Config.AssignLeftField)
	right, _ := n.ChildByFieldName(e.Config.AssignRightField)
	valReg := e.LowerExprOrMissing(right, "assign_value")
	storeTuplePattern(e, left, valReg, n)
	return valReg
}

// storeTuplePattern recurses through Python's tuple/list unpacking patterns
// (spec §4.2.1's destructuring pattern), falling back to a plain store for
// anything else.
func storeTuplePattern(e *engine.Engine, target engine.Node, valReg string, parent engine.Node) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "pattern_list", "tuple_pattern", "list_pattern":
		var entries []adapter.DestructureEntry
		for i, el := range target.NamedChildren() {
			entries = append(entries, adapter.DestructureEntry{Target: el, Index: i})
		}
		adapter.LowerDestructuring(e, entries, valReg, parent)
	default:
		e.LowerStoreTarget(target, valReg, parent)
	}
}

func lowerStoreTargetOverride(e *engine.Engine, target engine.Node, valReg string, parent engine.Node) bool {
	switch target.Type() {
	case "pattern_list", "tuple_pattern", "list_pattern":
		storeTuplePattern(e, target, valReg, parent)
		return true
	}
	return false
}

func lowerListLiteral(e *engine.Engine, n engine.Node) string {
	return e.LowerListLiteral(n.NamedChildren(), "list", n)
}

func lowerDictLiteral(e *engine.Engine, n engine.Node) string {
	var pairs []engine.DictPair
	for _, pairNode := range n.NamedChildren() {
		if pairNode.Type() != "pair" {
			continue
		}
		key, _ := pairNode.ChildByFieldName("key")
		value, _ := pairNode.ChildByFieldName("value")
		pairs = append(pairs, engine.DictPair{KeyNode: key, ValueNode: value})
	}
	return e.LowerDictLiteral(pairs, "dict", n)
}

// lowerComprehension lowers list/set/dict comprehensions as CALL_FUNCTION
// "generator" wrapping an eagerly-built list, per spec §4.2.2: each `for`
// clause becomes a nested foreach-as-index-loop, guarded by any `if` filter
// clauses, appending the body expression to an accumulator.
func lowerComprehension(e *engine.Engine, n engine.Node) string {
	bodyNode, _ := n.ChildByFieldName("body")
	var clauses []engine.Node
	for _, c := range n.NamedChildren() {
		if c.Type() == "for_in_clause" || c.Type() == "if_clause" {
			clauses = append(clauses, c)
		}
	}

	accReg := e.Emit(ir.NEW_ARRAY, []string{"list", e.Emit(ir.CONST, []string{"0"}, n, true)}, n, true)
	emitComprehensionClauses(e, clauses, 0, bodyNode, accReg, n)
	return e.Emit(ir.CALL_FUNCTION, []string{"generator", accReg}, n, true)
}

// emitComprehensionClauses recursively lowers one `for`/`if` clause at a
// time, appending the body expression to accReg once every clause has been
// applied (spec §4.2.2's Python comprehension row).
func emitComprehensionClauses(e *engine.Engine, clauses []engine.Node, idx int, bodyNode engine.Node, accReg string, n engine.Node) {
	if idx == len(clauses) {
		elemReg := e.LowerExprOrMissing(bodyNode, "comprehension_body")
		lenReg := e.Emit(ir.CALL_FUNCTION, []string{"len", accReg}, n, true)
		e.Emit(ir.STORE_INDEX, []string{accReg, lenReg, elemReg}, n, false)
		return
	}

	clause := clauses[idx]
	switch clause.Type() {
	case "for_in_clause":
		left, _ := clause.ChildByFieldName("left")
		right, _ := clause.ChildByFieldName("right")
		adapter.ForEachAsIndexLoop(e, right, nil, n,
			func(elemReg, idxReg string) { storeTuplePattern(e, left, elemReg, n) },
			func(engine.Node) { emitComprehensionClauses(e, clauses, idx+1, bodyNode, accReg, n) },
		)
	case "if_clause":
		named := clause.NamedChildren()
		var condNode engine.Node
		if len(named) > 0 {
			condNode = named[0]
		}
		condReg := e.LowerExprOrMissing(condNode, "comprehension_filter")
		thenLabel := e.FreshLabel("comp_then")
		skipLabel := e.FreshLabel("comp_skip")
		e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(thenLabel, skipLabel)}, n, false)
		e.EmitLabel(thenLabel, n)
		emitComprehensionClauses(e, clauses, idx+1, bodyNode, accReg, n)
		e.Emit(ir.BRANCH, []string{skipLabel}, n, false)
		e.EmitLabel(skipLabel, n)
	}
}

func lowerGeneratorExpression(e *engine.Engine, n engine.Node) string {
	return lowerComprehension(e, n)
}

func lowerConditionalExpression(e *engine.Engine, n engine.Node) string {
	// `a if cond else b` has no named fields in the grammar; the three
	// named children are positional: [trueExpr, condition, falseExpr].
	named := n.NamedChildren()
	var trueNode, condNode, falseNode engine.Node
	if len(named) >= 3 {
		trueNode, condNode, falseNode = named[0], named[1], named[2]
	}
	return adapter.LowerTernary(e, condNode,
		func() string { return e.LowerExprOrMissing(trueNode, "ternary_true") },
		func() string { return e.LowerExprOrMissing(falseNode, "ternary_false") },
		n, "__if_result")
}

func lowerWalrus(e *engine.Engine, n engine.Node) string {
	nameNode, _ := n.ChildByFieldName("name")
	valueNode, _ := n.ChildByFieldName("value")
	valReg := e.LowerExprOrMissing(valueNode, "walrus_value")
	e.LowerStoreTarget(nameNode, valReg, n)
	return valReg
}

func lowerForStatement(e *engine.Engine, n engine.Node) {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	body, _ := n.ChildByFieldName("body")
	adapter.ForEachAsIndexLoop(e, right, body, n,
		func(elemReg, idxReg string) { storeTuplePattern(e, left, elemReg, n) },
		func(b engine.Node) { e.LowerBlock(b) },
	)
}

func lowerReturn(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	var valueNode engine.Node
	if len(named) > 0 {
		valueNode = named[0]
	}
	e.LowerReturn(valueNode, n)
}

// lowerFunctionDefWithDecorators applies decorators bottom-up (spec §4.2.2):
// the function itself is lowered first, then each decorator (innermost —
// closest to `def` — applied first) wraps the stored function reference in
// a CALL_UNKNOWN on the decorator's register and re-stores the result under
// the function's name.
func lowerFunctionDefWithDecorators(e *engine.Engine, n engine.Node) {
	decorators := collectDecorators(n)
	refReg := e.LowerFunctionDef(n)
	applyDecoratorsBottomUp(e, decorators, n, refReg)
}

func lowerClassDefWithDecorators(e *engine.Engine, n engine.Node) {
	decorators := collectDecorators(n)
	refReg := e.LowerClassDef(n)
	applyDecoratorsBottomUp(e, decorators, n, refReg)
}

func collectDecorators(n engine.Node) []engine.Node {
	var decorators []engine.Node
	for _, c := range n.Children() {
		if c.Type() == "decorator" {
			decorators = append(decorators, c)
		}
	}
	return decorators
}

func applyDecoratorsBottomUp(e *engine.Engine, decorators []engine.Node, n engine.Node, initialReg string) {
	if len(decorators) == 0 {
		return
	}
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "decorated")
	reg := initialReg
	for i := len(decorators) - 1; i >= 0; i-- {
		named := decorators[i].NamedChildren()
		if len(named) == 0 {
			continue
		}
		decoReg := e.LowerExpr(named[0])
		reg = e.Emit(ir.CALL_UNKNOWN, []string{decoReg, reg}, decorators[i], true)
	}
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func lowerTryStatement(e *engine.Engine, n engine.Node) {
	body, _ := n.ChildByFieldName("body")
	var catches []engine.CatchClause
	var finallyNode, elseNode engine.Node
	for _, c := range n.NamedChildren() {
		switch c.Type() {
		case "except_clause":
			typeNode, hasType := c.ChildByFieldName("type")
			varName := ""
			if hasType && typeNode != nil {
				if alias, ok := typeNode.ChildByFieldName("alias"); ok && alias != nil {
					varName = engine.Text(alias, e.Source())
				}
			}
			typeName := ""
			if hasType && typeNode != nil {
				typeName = engine.Text(typeNode, e.Source())
			}
			clauseBody, _ := c.ChildByFieldName("body")
			catches = append(catches, engine.CatchClause{Body: clauseBody, VarName: varName, TypeName: typeName})
		case "finally_clause":
			finallyNode, _ = c.ChildByFieldName("body")
		case "else_clause":
			elseNode, _ = c.ChildByFieldName("body")
		}
	}
	e.LowerTryCatch(body, catches, finallyNode, elseNode, n)
}

// lowerWithStatement desugars `with expr as name: body` into explicit
// __enter__/__exit__ method calls, exiting in LIFO order across multiple
// clauses (spec §4.2.2).
func lowerWithStatement(e *engine.Engine, n engine.Node) {
	clausesNode, hasClauses := n.ChildByFieldName("with_clause")
	var items []engine.Node
	if hasClauses && clausesNode != nil {
		for _, c := range clausesNode.NamedChildren() {
			if c.Type() == "with_item" {
				items = append(items, c)
			}
		}
	}
	type bound struct {
		valReg string
		name   engine.Node
	}
	var bounds []bound
	for _, item := range items {
		valueNode, _ := item.ChildByFieldName("value")
		var exprNode, aliasNode engine.Node
		if valueNode != nil && valueNode.Type() == "as_pattern" {
			named := valueNode.NamedChildren()
			if len(named) > 0 {
				exprNode = named[0]
			}
			aliasNode, _ = valueNode.ChildByFieldName("alias")
		} else {
			exprNode = valueNode
		}
		ctxReg := e.LowerExprOrMissing(exprNode, "with_context")
		enterReg := e.Emit(ir.CALL_METHOD, []string{ctxReg, "__enter__"}, item, true)
		if aliasNode != nil {
			e.LowerStoreTarget(aliasNode, enterReg, item)
		}
		bounds = append(bounds, bound{valReg: ctxReg, name: aliasNode})
	}

	body, _ := n.ChildByFieldName("body")
	e.LowerBlock(body)

	for i := len(bounds) - 1; i >= 0; i-- {
		e.Emit(ir.CALL_METHOD, []string{bounds[i].valReg, "__exit__"}, n, true)
	}
}

// lowerMatchStatement lowers Python's structural `match`/`case` as an
// if-else chain over equality, mapping `_` to the default arm (spec
// §4.2.2).
func lowerMatchStatement(e *engine.Engine, n engine.Node) {
	subject, _ := n.ChildByFieldName("subject")
	var cases []adapter.SwitchCase
	for _, c := range n.NamedChildren() {
		if c.Type() != "case_clause" {
			continue
		}
		patternNode, _ := c.ChildByFieldName("pattern")
		body, _ := c.ChildByFieldName("consequence")
		if patternNode != nil && patternNode.Type() == "wildcard_pattern" {
			cases = append(cases, adapter.SwitchCase{Body: body, IsDefault: true})
			continue
		}
		cases = append(cases, adapter.SwitchCase{Values: []engine.Node{patternNode}, Body: body})
	}
	adapter.LowerSwitchAsIfChain(e, subject, cases, n, false, func(body engine.Node) { e.LowerBlock(body) })
}

// lowerImportStatement lowers `import x` / `from x import y` as
// CALL_FUNCTION "import" followed by a STORE_VAR per bound name (spec
// §4.2.2).
func lowerImportStatement(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		name := engine.Text(c, e.Source())
		if name == "" {
			continue
		}
		nameReg := e.Emit(ir.CONST, []string{name}, c, true)
		reg := e.Emit(ir.CALL_FUNCTION, []string{"import", nameReg}, c, true)
		e.Emit(ir.STORE_VAR, []string{name, reg}, c, false)
	}
}
