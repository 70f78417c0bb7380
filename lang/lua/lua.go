// Package lua adapts the engine to Lua's tree-sitter grammar (spec
// §4.2.2's Lua row).
package lua

import (
	"strconv"

	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Lua syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a Lua adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	cfg.NoneLiteral = "None"
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["number"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["nil"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["vararg_expression"] = lowerVararg
	e.ExprDispatch["binary_expression"] = lowerBinary
	e.ExprDispatch["unary_expression"] = lowerUnary
	e.ExprDispatch["dot_index_expression"] = lowerDotIndex
	e.ExprDispatch["bracket_index_expression"] = lowerBracketIndex
	e.ExprDispatch["method_index_expression"] = lowerMethodIndexAsValue
	e.ExprDispatch["function_call"] = lowerFunctionCall
	e.ExprDispatch["function_definition"] = lowerAnonymousFunction
	e.ExprDispatch["table_constructor"] = lowerTableConstructor
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized

	e.StmtDispatch["if_statement"] = lowerIfStatement
	e.StmtDispatch["while_statement"] = (*engine.Engine).LowerWhile
	e.StmtDispatch["repeat_statement"] = lowerRepeatStatement
	e.StmtDispatch["for_numeric_clause"] = lowerNumericFor
	e.StmtDispatch["for_generic_clause"] = lowerGenericFor
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["goto_statement"] = lowerGoto
	e.StmtDispatch["label_statement"] = lowerLabel
	e.StmtDispatch["return_statement"] = lowerReturnStatement
	e.StmtDispatch["assignment_statement"] = lowerAssignmentStatement
	e.StmtDispatch["local_variable_declaration"] = lowerLocalDeclaration
	e.StmtDispatch["function_declaration"] = lowerFunctionDeclaration
	e.StmtDispatch["local_function"] = lowerFunctionDeclaration
	e.StmtDispatch["function_call"] = lowerFunctionCallStatement
	e.StmtDispatch["do_statement"] = lowerDoStatement

	e.StoreTargetOverride = lowerStoreTargetOverride

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

func lowerVararg(e *engine.Engine, n engine.Node) string {
	return e.Emit(ir.CONST, []string{"..."}, n, true)
}

func lowerBinary(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) < 2 {
		return e.Missing("binop_operand", n)
	}
	leftReg := e.LowerExpr(named[0])
	rightReg := e.LowerExpr(named[1])
	op := operatorText(e, n)
	return e.Emit(ir.BINOP, []string{op, leftReg, rightReg}, n, true)
}

func lowerUnary(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("unary_operand", n)
	}
	operandReg := e.LowerExpr(named[0])
	op := operatorText(e, n)
	return e.Emit(ir.UNOP, []string{op, operandReg}, n, true)
}

// operatorText recovers an infix/prefix operator's literal text by scanning
// the node's anonymous (unnamed) children for the first token that isn't
// one of the operand subtrees.
func operatorText(e *engine.Engine, n engine.Node) string {
	for _, c := range n.Children() {
		isNamed := false
		for _, nc := range n.NamedChildren() {
			if nc == c {
				isNamed = true
				break
			}
		}
		if !isNamed {
			return engine.Text(c, e.Source())
		}
	}
	return "?"
}

// lowerDotIndex lowers `a.b` as a field load, distinct from bracket
// indexing (spec §4.2.2: "dot vs bracket index distinct").
func lowerDotIndex(e *engine.Engine, n engine.Node) string {
	tableNode, _ := n.ChildByFieldName("table")
	fieldNode, _ := n.ChildByFieldName("field")
	tableReg := e.LowerExprOrMissing(tableNode, "index_table")
	fieldName := "?"
	if fieldNode != nil {
		fieldName = engine.Text(fieldNode, e.Source())
	}
	return e.Emit(ir.LOAD_FIELD, []string{tableReg, fieldName}, n, true)
}

// lowerBracketIndex lowers `a[k]` as a computed index load, distinct from
// dot indexing (spec §4.2.2).
func lowerBracketIndex(e *engine.Engine, n engine.Node) string {
	tableNode, _ := n.ChildByFieldName("table")
	fieldNode, _ := n.ChildByFieldName("field")
	tableReg := e.LowerExprOrMissing(tableNode, "index_table")
	idxReg := e.LowerExprOrMissing(fieldNode, "index_key")
	return e.Emit(ir.LOAD_INDEX, []string{tableReg, idxReg}, n, true)
}

func lowerMethodIndexAsValue(e *engine.Engine, n engine.Node) string {
	tableNode, _ := n.ChildByFieldName("table")
	methodNode, _ := n.ChildByFieldName("method")
	tableReg := e.LowerExprOrMissing(tableNode, "method_index_table")
	methodName := "?"
	if methodNode != nil {
		methodName = engine.Text(methodNode, e.Source())
	}
	return e.Emit(ir.LOAD_FIELD, []string{tableReg, methodName}, n, true)
}

func lowerArgsList(e *engine.Engine, argsNode engine.Node) []string {
	var args []string
	if argsNode == nil {
		return args
	}
	for _, a := range argsNode.NamedChildren() {
		args = append(args, e.LowerExpr(a))
	}
	return args
}

// lowerFunctionCall lowers both plain calls and `a:m()` method calls (spec
// §4.2.2: "method call a:m() becomes CALL_METHOD").
func lowerFunctionCall(e *engine.Engine, n engine.Node) string {
	calleeNode, _ := n.ChildByFieldName("name")
	argsNode, _ := n.ChildByFieldName("arguments")
	args := lowerArgsList(e, argsNode)
	if argsNode != nil && argsNode.Type() == "table_constructor" {
		args = []string{e.LowerExpr(argsNode)}
	}
	if argsNode != nil && argsNode.Type() == "string" {
		args = []string{e.LowerExpr(argsNode)}
	}

	if calleeNode != nil && calleeNode.Type() == "method_index_expression" {
		tableNode, _ := calleeNode.ChildByFieldName("table")
		methodNode, _ := calleeNode.ChildByFieldName("method")
		tableReg := e.LowerExprOrMissing(tableNode, "method_call_receiver")
		methodName := "?"
		if methodNode != nil {
			methodName = engine.Text(methodNode, e.Source())
		}
		operands := append([]string{tableReg, methodName}, args...)
		return e.Emit(ir.CALL_METHOD, operands, n, true)
	}

	if calleeNode != nil && calleeNode.Type() == "identifier" {
		operands := append([]string{engine.Text(calleeNode, e.Source())}, args...)
		return e.Emit(ir.CALL_FUNCTION, operands, n, true)
	}

	calleeReg := e.LowerExprOrMissing(calleeNode, "call_callee")
	operands := append([]string{calleeReg}, args...)
	return e.Emit(ir.CALL_UNKNOWN, operands, n, true)
}

func lowerFunctionCallStatement(e *engine.Engine, n engine.Node) {
	lowerFunctionCall(e, n)
}

func lowerAnonymousFunction(e *engine.Engine, n engine.Node) string {
	name := adapter.SyntheticName(e, "__anon_func")
	paramsNode, _ := n.ChildByFieldName("parameters")
	bodyNode, _ := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	if paramsNode != nil {
		e.LowerParams(paramsNode)
	}
	if bodyNode != nil {
		e.LowerBlock(bodyNode)
	}
	e.EmitImplicitReturn(n)
	e.EmitLabel(endLabel, n)
	return e.Emit(ir.CONST, []string{"<function:" + name + "@" + funcLabel + ">"}, n, true)
}

// lowerTableConstructor builds a table as NEW_OBJECT followed by per-entry
// STORE_INDEX, with positional entries numbered starting at 1 (spec
// §4.2.2, scenario B).
func lowerTableConstructor(e *engine.Engine, n engine.Node) string {
	tableReg := e.Emit(ir.NEW_OBJECT, []string{"table"}, n, true)
	positional := 1
	for _, field := range n.NamedChildren() {
		switch field.Type() {
		case "field":
			nameNode, hasName := field.ChildByFieldName("name")
			keyNode, hasKey := field.ChildByFieldName("key")
			valueNode, _ := field.ChildByFieldName("value")
			var keyReg string
			switch {
			case hasName && nameNode != nil:
				keyReg = e.Emit(ir.CONST, []string{quoted(engine.Text(nameNode, e.Source()))}, field, true)
			case hasKey && keyNode != nil:
				keyReg = e.LowerExpr(keyNode)
			default:
				keyReg = e.Emit(ir.CONST, []string{strconv.Itoa(positional)}, field, true)
				positional++
			}
			valReg := e.LowerExprOrMissing(valueNode, "table_field_value")
			e.Emit(ir.STORE_INDEX, []string{tableReg, keyReg, valReg}, field, false)
		default:
			keyReg := e.Emit(ir.CONST, []string{strconv.Itoa(positional)}, field, true)
			positional++
			valReg := e.LowerExpr(field)
			e.Emit(ir.STORE_INDEX, []string{tableReg, keyReg, valReg}, field, false)
		}
	}
	return tableReg
}

func quoted(s string) string {
	return "\"" + s + "\""
}

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("paren_expr", n)
	}
	return e.LowerExpr(named[0])
}

// lowerIfStatement hand-rolls Lua's if/elseif/else chain, since tree-sitter
// attaches clauses as sibling children rather than condition/consequence/
// alternative fields.
func lowerIfStatement(e *engine.Engine, n engine.Node) {
	type clause struct {
		cond engine.Node
		body engine.Node
		kind string
	}
	var clauses []clause
	for _, c := range n.NamedChildren() {
		switch c.Type() {
		case "if_clause", "elseif_clause":
			condNode, _ := c.ChildByFieldName("condition")
			bodyNode, _ := c.ChildByFieldName("body")
			clauses = append(clauses, clause{cond: condNode, body: bodyNode, kind: c.Type()})
		case "else_clause":
			bodyNode, _ := c.ChildByFieldName("body")
			clauses = append(clauses, clause{body: bodyNode, kind: "else_clause"})
		}
	}

	endLabel := e.FreshLabel("if_end")
	for i, cl := range clauses {
		if cl.kind == "else_clause" {
			e.LowerBlock(cl.body)
			continue
		}
		condReg := e.LowerExprOrMissing(cl.cond, "if_condition")
		trueLabel := e.FreshLabel("if_true")
		falseLabel := endLabel
		hasMore := i+1 < len(clauses)
		if hasMore {
			falseLabel = e.FreshLabel("if_false")
		}
		e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(trueLabel, falseLabel)}, n, false)
		e.EmitLabel(trueLabel, n)
		e.LowerBlock(cl.body)
		e.Emit(ir.BRANCH, []string{endLabel}, n, false)
		if hasMore {
			e.EmitLabel(falseLabel, n)
		}
	}
	e.EmitLabel(endLabel, n)
}

// lowerRepeatStatement lowers `repeat ... until cond`: the loop continues
// while the condition is false, so the test negates the condition with
// UNOP "!" before branching (spec §4.2.2).
func lowerRepeatStatement(e *engine.Engine, n engine.Node) {
	bodyNode, _ := n.ChildByFieldName("body")
	condNode, _ := n.ChildByFieldName("condition")

	bodyLabel := e.FreshLabel("repeat_body")
	condLabel := e.FreshLabel("repeat_cond")
	endLabel := e.FreshLabel("repeat_end")

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(condLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()

	e.EmitLabel(condLabel, n)
	condReg := e.LowerExprOrMissing(condNode, "repeat_condition")
	negReg := e.Emit(ir.UNOP, []string{"!", condReg}, n, true)
	e.Emit(ir.BRANCH_IF, []string{negReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(endLabel, n)
}

func lowerForStatement(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		switch c.Type() {
		case "for_numeric_clause":
			lowerNumericForWithBody(e, c, n)
			return
		case "for_generic_clause":
			lowerGenericForWithBody(e, c, n)
			return
		}
	}
}

func lowerNumericFor(e *engine.Engine, n engine.Node) {
	lowerNumericForWithBody(e, n, n)
}

func lowerNumericForWithBody(e *engine.Engine, clause, n engine.Node) {
	nameNode, _ := clause.ChildByFieldName("name")
	startNode, _ := clause.ChildByFieldName("start")
	endNode, _ := clause.ChildByFieldName("end")
	stepNode, hasStep := clause.ChildByFieldName("step")
	bodyNode, _ := n.ChildByFieldName("body")

	varName := "?"
	if nameNode != nil {
		varName = engine.Text(nameNode, e.Source())
	}
	startReg := e.LowerExprOrMissing(startNode, "for_start")
	e.Emit(ir.STORE_VAR, []string{varName, startReg}, clause, false)
	limitReg := e.LowerExprOrMissing(endNode, "for_limit")
	var stepReg string
	if hasStep && stepNode != nil {
		stepReg = e.LowerExpr(stepNode)
	} else {
		stepReg = e.Emit(ir.CONST, []string{"1"}, clause, true)
	}

	condLabel := e.FreshLabel("numeric_for_cond")
	bodyLabel := e.FreshLabel("numeric_for_body")
	updateLabel := e.FreshLabel("numeric_for_update")
	endLabel := e.FreshLabel("numeric_for_end")

	e.EmitLabel(condLabel, n)
	curReg := e.Emit(ir.LOAD_VAR, []string{varName}, n, true)
	cmpReg := e.Emit(ir.BINOP, []string{"<=", curReg, limitReg}, n, true)
	e.Emit(ir.BRANCH_IF, []string{cmpReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(updateLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()

	e.EmitLabel(updateLabel, n)
	curReg2 := e.Emit(ir.LOAD_VAR, []string{varName}, n, true)
	nextReg := e.Emit(ir.BINOP, []string{"+", curReg2, stepReg}, n, true)
	e.Emit(ir.STORE_VAR, []string{varName, nextReg}, n, false)
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)

	e.EmitLabel(endLabel, n)
}

func lowerGenericFor(e *engine.Engine, n engine.Node) {
	lowerGenericForWithBody(e, n, n)
}

// lowerGenericForWithBody lowers Lua's `for k, v in iter do ... end`,
// deliberately reproducing the same synthetic-name-vs-comparison-register
// mismatch the source docs flag as a known simplification (spec, "Open
// questions"): the loop's increment is stored into a synthetic `__for_idx`
// name, but the register actually compared and read from each iteration is
// a plain Go-local variable that is never reloaded via LOAD_VAR of that
// name.
func lowerGenericForWithBody(e *engine.Engine, clause, n engine.Node) {
	var names []engine.Node
	for _, c := range clause.NamedChildren() {
		if c.Type() == "identifier" {
			names = append(names, c)
		}
	}
	exprListNode, _ := clause.ChildByFieldName("expression_list")
	if exprListNode == nil {
		for _, c := range clause.NamedChildren() {
			if c.Type() == "expression_list" {
				exprListNode = c
				break
			}
		}
	}
	bodyNode, _ := n.ChildByFieldName("body")

	forIdxName := adapter.SyntheticName(e, "__for_idx")
	var iterReg string
	if exprListNode != nil {
		exprs := exprListNode.NamedChildren()
		if len(exprs) > 0 {
			iterReg = e.LowerExpr(exprs[0])
		}
	}
	if iterReg == "" {
		iterReg = e.Missing("generic_for_iterator", n)
	}

	zeroReg := e.Emit(ir.CONST, []string{"0"}, n, true)
	idxReg := zeroReg
	lenReg := e.Emit(ir.CALL_FUNCTION, []string{"len", iterReg}, n, true)

	condLabel := e.FreshLabel("generic_for_cond")
	bodyLabel := e.FreshLabel("generic_for_body")
	updateLabel := e.FreshLabel("generic_for_update")
	endLabel := e.FreshLabel("generic_for_end")

	e.EmitLabel(condLabel, n)
	cmpReg := e.Emit(ir.BINOP, []string{"<", idxReg, lenReg}, n, true)
	e.Emit(ir.BRANCH_IF, []string{cmpReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(bodyLabel, n)
	elemReg := e.Emit(ir.LOAD_INDEX, []string{iterReg, idxReg}, n, true)
	if len(names) > 0 {
		e.Emit(ir.STORE_VAR, []string{engine.Text(names[0], e.Source()), elemReg}, n, false)
	}
	for _, extra := range names[minInt(1, len(names)):] {
		e.Emit(ir.STORE_VAR, []string{engine.Text(extra, e.Source()), e.Emit(ir.CONST, []string{"None"}, n, true)}, n, false)
	}

	e.PushLoop(updateLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()

	e.EmitLabel(updateLabel, n)
	oneReg := e.Emit(ir.CONST, []string{"1"}, n, true)
	nextReg := e.Emit(ir.BINOP, []string{"+", idxReg, oneReg}, n, true)
	e.Emit(ir.STORE_VAR, []string{forIdxName, nextReg}, n, false)
	idxReg = nextReg
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)

	e.EmitLabel(endLabel, n)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func lowerGoto(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	target := "unknown_label"
	if len(named) > 0 {
		target = "user_" + engine.Text(named[0], e.Source())
	}
	e.Emit(ir.BRANCH, []string{target}, n, false)
}

func lowerLabel(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	name := "unknown_label"
	if len(named) > 0 {
		name = engine.Text(named[0], e.Source())
	}
	e.EmitLabel("user_"+name, n)
}

func lowerReturnStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	if len(named) == 0 {
		e.LowerReturn(nil, n)
		return
	}
	for i, v := range named {
		if i < len(named)-1 {
			e.LowerExpr(v)
			continue
		}
		e.LowerReturn(v, n)
	}
}

// lowerAssignmentStatement handles Lua's `a, b = x, y` parallel
// assignment, splitting the named children at the midpoint (equal-length
// variable and expression lists).
func lowerAssignmentStatement(e *engine.Engine, n engine.Node) {
	varListNode, hasVarList := n.ChildByFieldName("variable_list")
	exprListNode, hasExprList := n.ChildByFieldName("expression_list")
	var lefts, rights []engine.Node
	if hasVarList && hasExprList {
		lefts = varListNode.NamedChildren()
		rights = exprListNode.NamedChildren()
	} else {
		named := n.NamedChildren()
		half := len(named) / 2
		lefts = named[:half]
		rights = named[half:]
	}
	lowerParallelAssign(e, lefts, rights, n)
}

func lowerLocalDeclaration(e *engine.Engine, n engine.Node) {
	var lefts, rights []engine.Node
	for _, c := range n.NamedChildren() {
		if c.Type() == "identifier" {
			lefts = append(lefts, c)
		} else if c.Type() == "expression_list" {
			rights = c.NamedChildren()
		} else {
			rights = append(rights, c)
		}
	}
	lowerParallelAssign(e, lefts, rights, n)
}

func lowerParallelAssign(e *engine.Engine, lefts, rights []engine.Node, n engine.Node) {
	if len(lefts) == len(rights) {
		for i, l := range lefts {
			valReg := e.LowerExpr(rights[i])
			e.LowerStoreTarget(l, valReg, n)
		}
		return
	}
	for i, l := range lefts {
		var valReg string
		if i < len(rights) {
			valReg = e.LowerExpr(rights[i])
		} else {
			valReg = e.Emit(ir.CONST, []string{"None"}, n, true)
		}
		e.LowerStoreTarget(l, valReg, n)
	}
}

func lowerFunctionDeclaration(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "func")
	paramsNode, _ := n.ChildByFieldName("parameters")
	bodyNode, _ := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	if paramsNode != nil {
		e.LowerParams(paramsNode)
	}
	if bodyNode != nil {
		e.LowerBlock(bodyNode)
	}
	e.EmitImplicitReturn(n)
	e.EmitLabel(endLabel, n)
	ref := "<function:" + name + "@" + funcLabel + ">"
	reg := e.Emit(ir.CONST, []string{ref}, n, true)
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func lowerDoStatement(e *engine.Engine, n engine.Node) {
	bodyNode, _ := n.ChildByFieldName("body")
	e.LowerBlock(bodyNode)
}

// lowerStoreTargetOverride routes `a.b = v` and `a[k] = v` assignment
// targets to STORE_FIELD/STORE_INDEX, mirroring the dot-vs-bracket
// distinction the read side already makes (spec §4.2.2).
func lowerStoreTargetOverride(e *engine.Engine, target engine.Node, valReg string, parent engine.Node) bool {
	switch target.Type() {
	case "dot_index_expression":
		tableNode, _ := target.ChildByFieldName("table")
		fieldNode, _ := target.ChildByFieldName("field")
		tableReg := e.LowerExprOrMissing(tableNode, "store_index_table")
		fieldName := "?"
		if fieldNode != nil {
			fieldName = engine.Text(fieldNode, e.Source())
		}
		e.Emit(ir.STORE_FIELD, []string{tableReg, fieldName, valReg}, parent, false)
		return true
	case "bracket_index_expression":
		tableNode, _ := target.ChildByFieldName("table")
		fieldNode, _ := target.ChildByFieldName("field")
		tableReg := e.LowerExprOrMissing(tableNode, "store_index_table")
		idxReg := e.LowerExprOrMissing(fieldNode, "store_index_key")
		e.Emit(ir.STORE_INDEX, []string{tableReg, idxReg, valReg}, parent, false)
		return true
	}
	return false
}
