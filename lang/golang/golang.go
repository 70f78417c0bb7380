// Package golang adapts the engine to Go's own tree-sitter grammar (spec
// §4.2.2's Go row). `func main()`'s body is hoisted to the top level (its
// own custom lowerRoot callback, per spec's documented requirement that
// Go's adapter supply one rather than the default LowerBlock), so its
// locals land in the program's own top-level frame instead of behind a
// function reference nobody calls.
package golang

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Go syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a Go adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["int_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["float_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["interpreted_string_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["raw_string_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["nil"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary_expression"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["unary_expression"] = lowerUnaryExpression
	e.ExprDispatch["selector_expression"] = lowerSelectorExpression
	e.ExprDispatch["index_expression"] = lowerIndexExpression
	e.ExprDispatch["call_expression"] = lowerCallExpression
	e.ExprDispatch["composite_literal"] = lowerCompositeLiteral
	e.ExprDispatch["type_assertion_expression"] = lowerTypeAssertionExpression
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized
	e.ExprDispatch["func_literal"] = lowerFuncLiteral

	e.StmtDispatch["if_statement"] = (*engine.Engine).LowerIf
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["return_statement"] = lowerReturnStatement
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["continue_statement"] = (*engine.Engine).LowerContinue
	e.StmtDispatch["short_var_declaration"] = lowerShortVarDeclaration
	e.StmtDispatch["var_declaration"] = lowerVarDeclaration
	e.StmtDispatch["const_declaration"] = lowerVarDeclaration
	e.StmtDispatch["assignment_statement"] = lowerAssignmentStatement
	e.StmtDispatch["expression_statement"] = lowerExpressionStatement
	e.StmtDispatch["function_declaration"] = lowerFunctionDeclaration
	e.StmtDispatch["method_declaration"] = lowerFunctionDeclaration
	e.StmtDispatch["go_statement"] = lowerGoStatement
	e.StmtDispatch["defer_statement"] = lowerDeferStatement
	e.StmtDispatch["send_statement"] = lowerSendStatement
	e.StmtDispatch["select_statement"] = lowerSelectStatement
	e.StmtDispatch["type_switch_statement"] = lowerTypeSwitchStatement
	e.StmtDispatch["type_declaration"] = lowerTypeDeclaration

	return a
}

// Lower implements adapter.Adapter. Its root callback hoists func main's
// body to the top level (spec §4.2.2) before lowering every other
// top-level declaration normally.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, lowerSourceFile)
}

func lowerSourceFile(e *engine.Engine, root engine.Node) {
	for _, decl := range root.NamedChildren() {
		if isMainFunction(e, decl) {
			bodyNode, _ := decl.ChildByFieldName("body")
			e.LowerBlock(bodyNode)
			continue
		}
		e.LowerStmt(decl)
	}
}

func isMainFunction(e *engine.Engine, decl engine.Node) bool {
	if decl.Type() != "function_declaration" {
		return false
	}
	nameNode, ok := decl.ChildByFieldName("name")
	if !ok || nameNode == nil {
		return false
	}
	return engine.Text(nameNode, e.Source()) == "main"
}

func lowerUnaryExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("unary_operand", n)
	}
	op := "-"
	for _, c := range n.Children() {
		t := c.Type()
		if t == "-" || t == "!" || t == "^" || t == "+" || t == "*" || t == "&" || t == "<-" {
			op = t
		}
	}
	operandReg := e.LowerExpr(named[0])
	if op == "<-" {
		return e.Emit(ir.CALL_FUNCTION, []string{"chan_recv", operandReg}, n, true)
	}
	return e.Emit(ir.UNOP, []string{op, operandReg}, n, true)
}

func lowerSelectorExpression(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("operand")
	fieldNode, _ := n.ChildByFieldName("field")
	objReg := e.LowerExprOrMissing(objNode, "selector_object")
	return e.Emit(ir.LOAD_FIELD, []string{objReg, engine.Text(fieldNode, e.Source())}, n, true)
}

func lowerIndexExpression(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("operand")
	idxNode, _ := n.ChildByFieldName("index")
	objReg := e.LowerExprOrMissing(objNode, "index_object")
	idxReg := e.LowerExprOrMissing(idxNode, "index_value")
	return e.Emit(ir.LOAD_INDEX, []string{objReg, idxReg}, n, true)
}

func lowerCallExpression(e *engine.Engine, n engine.Node) string {
	calleeNode, _ := n.ChildByFieldName("function")
	argsNode, _ := n.ChildByFieldName("arguments")
	var args []string
	if argsNode != nil {
		for _, a := range argsNode.NamedChildren() {
			args = append(args, e.LowerExpr(a))
		}
	}
	if calleeNode != nil && calleeNode.Type() == "selector_expression" {
		objNode, _ := calleeNode.ChildByFieldName("operand")
		fieldNode, _ := calleeNode.ChildByFieldName("field")
		objReg := e.LowerExprOrMissing(objNode, "method_object")
		methodName := engine.Text(fieldNode, e.Source())
		operands := append([]string{objReg, methodName}, args...)
		return e.Emit(ir.CALL_METHOD, operands, n, true)
	}
	if calleeNode != nil && calleeNode.Type() == "identifier" {
		operands := append([]string{engine.Text(calleeNode, e.Source())}, args...)
		return e.Emit(ir.CALL_FUNCTION, operands, n, true)
	}
	calleeReg := e.LowerExprOrMissing(calleeNode, "call_target")
	operands := append([]string{calleeReg}, args...)
	return e.Emit(ir.CALL_UNKNOWN, operands, n, true)
}

// lowerCompositeLiteral lowers `T{field: v, ...}` / `T{v0, v1}` to a
// NEW_OBJECT followed by one STORE_FIELD per keyed element or STORE_INDEX
// per positional element (spec §4.2.2).
func lowerCompositeLiteral(e *engine.Engine, n engine.Node) string {
	typeNode, _ := n.ChildByFieldName("type")
	bodyNode, _ := n.ChildByFieldName("body")
	tag := "composite"
	if typeNode != nil {
		tag = engine.Text(typeNode, e.Source())
	}
	reg := e.Emit(ir.NEW_OBJECT, []string{tag}, n, true)
	if bodyNode == nil {
		return reg
	}
	idx := 0
	for _, elem := range bodyNode.NamedChildren() {
		if elem.Type() == "keyed_element" {
			keyNode, _ := elem.ChildByFieldName("key")
			// tree-sitter-go nests the value inside its own "value" field.
			var valNode engine.Node
			if v, ok := elem.ChildByFieldName("value"); ok {
				valNode = v
			}
			valReg := e.LowerExprOrMissing(valNode, "composite_value")
			if keyNode != nil {
				e.Emit(ir.STORE_FIELD, []string{reg, engine.Text(keyNode, e.Source()), valReg}, elem, false)
			} else {
				idxReg := e.Emit(ir.CONST, []string{itoa(idx)}, elem, true)
				e.Emit(ir.STORE_INDEX, []string{reg, idxReg, valReg}, elem, false)
			}
			idx++
			continue
		}
		valReg := e.LowerExpr(elem)
		idxReg := e.Emit(ir.CONST, []string{itoa(idx)}, elem, true)
		e.Emit(ir.STORE_INDEX, []string{reg, idxReg, valReg}, elem, false)
		idx++
	}
	return reg
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

// lowerTypeAssertionExpression lowers `x.(T)` to a named call (spec
// §4.2.2).
func lowerTypeAssertionExpression(e *engine.Engine, n engine.Node) string {
	operandNode, _ := n.ChildByFieldName("operand")
	typeNode, _ := n.ChildByFieldName("type")
	operandReg := e.LowerExprOrMissing(operandNode, "assert_operand")
	typeText := ""
	if typeNode != nil {
		typeText = engine.Text(typeNode, e.Source())
	}
	typeReg := e.Emit(ir.CONST, []string{typeText}, n, true)
	return e.Emit(ir.CALL_FUNCTION, []string{"type_assert", operandReg, typeReg}, n, true)
}

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("paren_expr", n)
	}
	return e.LowerExpr(named[0])
}

func lowerFuncLiteral(e *engine.Engine, n engine.Node) string {
	name := adapter.SyntheticName(e, "__func_literal")
	paramsNode, _ := n.ChildByFieldName("parameters")
	bodyNode, _ := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	if paramsNode != nil {
		e.LowerParams(paramsNode)
	}
	e.LowerBlock(bodyNode)
	e.EmitImplicitReturn(n)
	e.EmitLabel(endLabel, n)
	return e.Emit(ir.CONST, []string{"<function:" + name + "@" + funcLabel + ">"}, n, true)
}

func lowerForStatement(e *engine.Engine, n engine.Node) {
	if rangeClause, ok := findChildOfType(n, "range_clause"); ok {
		lowerRangeFor(e, n, rangeClause)
		return
	}

	var initNode, condNode, updateNode engine.Node
	if v, ok := n.ChildByFieldName("initializer"); ok {
		initNode = v
	}
	if v, ok := n.ChildByFieldName("condition"); ok {
		condNode = v
	}
	if v, ok := n.ChildByFieldName("update"); ok {
		updateNode = v
	}
	bodyNode, _ := n.ChildByFieldName("body")

	if initNode == nil && condNode == nil && updateNode == nil {
		// Bare `for { ... }`: an unconditional loop.
		lowerBareFor(e, bodyNode, n)
		return
	}
	e.LowerCStyleFor(initNode, condNode, updateNode, bodyNode, n)
}

func lowerBareFor(e *engine.Engine, bodyNode, n engine.Node) {
	bodyLabel := e.FreshLabel("for_body")
	endLabel := e.FreshLabel("for_end")
	e.EmitLabel(bodyLabel, n)
	e.PushLoop(bodyLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()
	e.Emit(ir.BRANCH, []string{bodyLabel}, n, false)
	e.EmitLabel(endLabel, n)
}

func findChildOfType(n engine.Node, typ string) (engine.Node, bool) {
	for _, c := range n.NamedChildren() {
		if c.Type() == typ {
			return c, true
		}
	}
	return nil, false
}

// lowerRangeFor desugars `for range s`/`for v := range s`/`for i, v := range s`.
// The range clause's "left" field is an expression_list; with two names the
// first binds to the loop's own index/key register rather than to a second
// slice of the per-iteration element (spec §4.2.2).
func lowerRangeFor(e *engine.Engine, n, rangeClause engine.Node) {
	var leftNode engine.Node
	if l, ok := rangeClause.ChildByFieldName("left"); ok {
		leftNode = l
	}
	rightNode, _ := rangeClause.ChildByFieldName("right")
	bodyNode, _ := n.ChildByFieldName("body")

	var names []engine.Node
	if leftNode != nil {
		names = leftNode.NamedChildren()
		if len(names) == 0 {
			names = []engine.Node{leftNode}
		}
	}

	iterReg := e.LowerExprOrMissing(rightNode, "range_iterable")
	adapter.ForEachAsIndexLoopFromReg(e, iterReg, bodyNode, n, func(elemReg, idxReg string) {
		switch len(names) {
		case 0:
			return
		case 1:
			e.LowerStoreTarget(names[0], elemReg, n)
		default:
			e.LowerStoreTarget(names[0], idxReg, n)
			e.LowerStoreTarget(names[1], elemReg, n)
		}
	}, func(body engine.Node) {
		e.LowerBlock(body)
	})
}

func lowerReturnStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	if len(named) == 0 {
		e.Emit(ir.RETURN, []string{e.Emit(ir.CONST, []string{"None"}, n, true)}, n, false)
		return
	}
	// Multi-return lowers as multiple sequential RETURN instructions (spec
	// §4.2.2): each return value gets its own RETURN rather than a single
	// tuple-valued one.
	for _, v := range named {
		valReg := e.LowerExpr(v)
		e.Emit(ir.RETURN, []string{valReg}, n, false)
	}
}

func lowerShortVarDeclaration(e *engine.Engine, n engine.Node) {
	leftNode, _ := n.ChildByFieldName("left")
	rightNode, _ := n.ChildByFieldName("right")
	lowerMultiAssign(e, leftNode, rightNode, n)
}

func lowerAssignmentStatement(e *engine.Engine, n engine.Node) {
	leftNode, _ := n.ChildByFieldName("left")
	rightNode, _ := n.ChildByFieldName("right")
	lowerMultiAssign(e, leftNode, rightNode, n)
}

// lowerMultiAssign pairs each left-hand target with its corresponding
// right-hand value, supporting Go's multi-value assignment/declaration
// (`a, b := f()` or `a, b = b, a`).
func lowerMultiAssign(e *engine.Engine, leftNode, rightNode, n engine.Node) {
	if leftNode == nil || rightNode == nil {
		return
	}
	lefts := leftNode.NamedChildren()
	rights := rightNode.NamedChildren()
	if len(lefts) == 0 {
		lefts = []engine.Node{leftNode}
	}
	if len(rights) == 0 {
		rights = []engine.Node{rightNode}
	}
	valRegs := make([]string, len(rights))
	for i, r := range rights {
		valRegs[i] = e.LowerExpr(r)
	}
	for i, l := range lefts {
		var valReg string
		if i < len(valRegs) {
			valReg = valRegs[i]
		} else if len(valRegs) == 1 {
			valReg = valRegs[0]
		} else {
			valReg = e.Missing("assign_value", n)
		}
		e.LowerStoreTarget(l, valReg, n)
	}
}

func lowerVarDeclaration(e *engine.Engine, n engine.Node) {
	for _, spec := range n.NamedChildren() {
		if spec.Type() != "var_spec" && spec.Type() != "const_spec" {
			continue
		}
		nameNode, hasName := spec.ChildByFieldName("name")
		valueNode, hasValue := spec.ChildByFieldName("value")
		if hasName && hasValue && valueNode != nil {
			valReg := e.LowerExpr(valueNode)
			e.LowerStoreTarget(nameNode, valReg, spec)
			continue
		}
		// Multi-name var spec (`var a, b int`): bind each to None.
		for _, c := range spec.NamedChildren() {
			if c.Type() != "identifier" {
				continue
			}
			noneReg := e.Emit(ir.CONST, []string{"None"}, spec, true)
			e.LowerStoreTarget(c, noneReg, spec)
		}
	}
}

func lowerExpressionStatement(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		e.LowerStmt(c)
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

// lowerGoStatement lowers `go f(...)` as `CALL_FUNCTION "go"` wrapping the
// call's own result (spec §4.2.2); no real goroutine scheduling is modeled
// (spec's Non-goals exclude true concurrency).
func lowerGoStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	if len(named) == 0 {
		return
	}
	callReg := e.LowerExpr(named[0])
	e.Emit(ir.CALL_FUNCTION, []string{"go", callReg}, n, true)
}

// lowerDeferStatement lowers `defer f(...)` as `CALL_FUNCTION "defer"`
// wrapping the call (spec §4.2.2); deferred execution ordering is not
// modeled.
func lowerDeferStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	if len(named) == 0 {
		return
	}
	callReg := e.LowerExpr(named[0])
	e.Emit(ir.CALL_FUNCTION, []string{"defer", callReg}, n, true)
}

// lowerSendStatement lowers `ch <- v` as `CALL_FUNCTION "chan_send"` (spec
// §4.2.2).
func lowerSendStatement(e *engine.Engine, n engine.Node) {
	chanNode, _ := n.ChildByFieldName("channel")
	valueNode, _ := n.ChildByFieldName("value")
	chanReg := e.LowerExprOrMissing(chanNode, "chan_target")
	valReg := e.LowerExprOrMissing(valueNode, "chan_value")
	e.Emit(ir.CALL_FUNCTION, []string{"chan_send", chanReg, valReg}, n, true)
}

// lowerSelectStatement lowers `select`'s communication cases as labeled
// arms with branches to a shared end label (spec §4.2.2), the same
// equality-chain-free shape a `switch` with no subject comparison would
// take: every case is unconditionally reachable in source form, so this
// only threads control flow, not a condition chain.
func lowerSelectStatement(e *engine.Engine, n engine.Node) {
	endLabel := e.FreshLabel("select_end")
	e.PushBreakTarget(endLabel)
	for _, c := range n.NamedChildren() {
		if c.Type() != "communication_case" {
			continue
		}
		armLabel := e.FreshLabel("select_case")
		e.EmitLabel(armLabel, c)
		comm, hasComm := c.ChildByFieldName("communication")
		if hasComm && comm != nil {
			e.LowerStmt(comm)
		}
		for _, stmt := range c.NamedChildren() {
			if stmt == comm {
				continue
			}
			e.LowerStmt(stmt)
		}
		e.Emit(ir.BRANCH, []string{endLabel}, c, false)
	}
	e.EmitLabel(endLabel, n)
	e.PopBreakTarget()
}

// lowerTypeSwitchStatement lowers a type-switch's subject assertion as a
// named call (spec §4.2.2) and its cases as an unconditional labeled
// sequence, the same treatment `select` gets, since this engine does not
// model static type information needed to build a true equality chain over
// types.
func lowerTypeSwitchStatement(e *engine.Engine, n engine.Node) {
	var subject engine.Node
	if v, ok := n.ChildByFieldName("value"); ok {
		subject = v
	}
	if subject != nil {
		subjectReg := e.LowerExpr(subject)
		e.Emit(ir.CALL_FUNCTION, []string{"type_switch", subjectReg}, n, true)
	}
	endLabel := e.FreshLabel("type_switch_end")
	e.PushBreakTarget(endLabel)
	bodyNode, _ := n.ChildByFieldName("body")
	if bodyNode != nil {
		for _, c := range bodyNode.NamedChildren() {
			if c.Type() != "type_case" && c.Type() != "default_case" {
				continue
			}
			armLabel := e.FreshLabel("type_switch_case")
			e.EmitLabel(armLabel, c)
			for _, stmt := range c.NamedChildren() {
				e.LowerStmt(stmt)
			}
			e.Emit(ir.BRANCH, []string{endLabel}, c, false)
		}
	}
	e.EmitLabel(endLabel, n)
	e.PopBreakTarget()
}

// lowerTypeDeclaration is a no-op: a type alias/struct/interface
// declaration introduces no runtime value on its own, only the composite
// literals and method declarations that reference its name do.
func lowerTypeDeclaration(e *engine.Engine, n engine.Node) {}
