// Package rust adapts the engine to Rust's tree-sitter grammar (spec
// §4.2.2's Rust row).
package rust

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Rust syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a Rust adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	cfg.NoneLiteral = "()"
	cfg.TrueLiteral = "true"
	cfg.FalseLiteral = "false"
	cfg.DefaultReturnValue = "()"
	cfg.ClassNameField = "name"
	cfg.ClassBodyField = "body"
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["integer_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["float_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["char_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["boolean_literal"] = lowerBoolean
	e.ExprDispatch["unit_expression"] = lowerUnit
	e.ExprDispatch["binary_expression"] = lowerBinary
	e.ExprDispatch["unary_expression"] = lowerUnaryExpression
	e.ExprDispatch["reference_expression"] = lowerReferenceExpression
	e.ExprDispatch["assignment_expression"] = lowerAssignment
	e.ExprDispatch["compound_assignment_expr"] = lowerCompoundAssignment
	e.ExprDispatch["field_expression"] = lowerFieldExpression
	e.ExprDispatch["index_expression"] = lowerIndexExpression
	e.ExprDispatch["call_expression"] = lowerCallExpression
	e.ExprDispatch["macro_invocation"] = lowerMacroInvocation
	e.ExprDispatch["struct_expression"] = lowerStructExpression
	e.ExprDispatch["try_expression"] = lowerTryExpression
	e.ExprDispatch["await_expression"] = lowerAwaitExpression
	e.ExprDispatch["as_expression"] = lowerAsExpression
	e.ExprDispatch["range_expression"] = lowerRangeExpression
	e.ExprDispatch["closure_expression"] = lowerClosureExpression
	e.ExprDispatch["block"] = lowerBlockExpr
	e.ExprDispatch["if_expression"] = lowerIfExpression
	e.ExprDispatch["match_expression"] = lowerMatchExpression
	e.ExprDispatch["loop_expression"] = lowerLoopExpression
	e.ExprDispatch["while_expression"] = lowerWhileExpression
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized
	e.ExprDispatch["return_expression"] = lowerReturnExpression
	e.ExprDispatch["break_expression"] = lowerBreakExpression
	e.ExprDispatch["continue_expression"] = lowerContinueExpression

	e.StmtDispatch["let_declaration"] = lowerLetDeclaration
	e.StmtDispatch["expression_statement"] = lowerExpressionStatement
	e.StmtDispatch["function_item"] = lowerFunctionItem
	e.StmtDispatch["impl_item"] = lowerImplItem
	e.StmtDispatch["struct_item"] = lowerClassLike
	e.StmtDispatch["enum_item"] = lowerClassLike
	e.StmtDispatch["trait_item"] = lowerClassLike
	e.StmtDispatch["mod_item"] = lowerModItem

	e.StoreTargetOverride = lowerStoreTargetOverride

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

func lowerBoolean(e *engine.Engine, n engine.Node) string {
	if engine.Text(n, e.Source()) == "true" {
		return e.LowerCanonicalTrue(n)
	}
	return e.LowerCanonicalFalse(n)
}

func lowerUnit(e *engine.Engine, n engine.Node) string {
	return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
}

func lowerBinary(e *engine.Engine, n engine.Node) string {
	leftNode, _ := n.ChildByFieldName("left")
	opNode, _ := n.ChildByFieldName("operator")
	rightNode, _ := n.ChildByFieldName("right")
	leftReg := e.LowerExprOrMissing(leftNode, "binop_left")
	rightReg := e.LowerExprOrMissing(rightNode, "binop_right")
	op := "?"
	if opNode != nil {
		op = engine.Text(opNode, e.Source())
	}
	return e.Emit(ir.BINOP, []string{op, leftReg, rightReg}, n, true)
}

// lowerUnaryExpression handles `-x`/`!x` and the `*x` dereference read,
// emitting UNOP with the node's operator token text (so `*x` becomes
// UNOP "*", spec §4.2.2). `&x` is a reference_expression, handled by
// lowerReferenceExpression.
func lowerUnaryExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("unary_operand", n)
	}
	operandReg := e.LowerExpr(named[0])
	op := "?"
	for _, c := range n.Children() {
		if c == named[0] {
			continue
		}
		op = engine.Text(c, e.Source())
		break
	}
	return e.Emit(ir.UNOP, []string{op, operandReg}, n, true)
}

// lowerReferenceExpression handles `&x`/`&mut x`, mapped to UNOP with the
// literal `&` operator (spec §4.2.2).
func lowerReferenceExpression(e *engine.Engine, n engine.Node) string {
	valueNode, _ := n.ChildByFieldName("value")
	valueReg := e.LowerExprOrMissing(valueNode, "reference_operand")
	return e.Emit(ir.UNOP, []string{"&", valueReg}, n, true)
}

func lowerAssignment(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	valReg := e.LowerExprOrMissing(right, "assign_value")
	e.LowerStoreTarget(left, valReg, n)
	return valReg
}

func lowerCompoundAssignment(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	opNode, _ := n.ChildByFieldName("operator")
	right, _ := n.ChildByFieldName("right")
	leftReg := e.LowerExprOrMissing(left, "opassign_left")
	rightReg := e.LowerExprOrMissing(right, "opassign_right")
	opText := "?"
	if opNode != nil {
		opText = engine.Text(opNode, e.Source())
	}
	if len(opText) > 1 && opText[len(opText)-1] == '=' {
		opText = opText[:len(opText)-1]
	}
	valReg := e.Emit(ir.BINOP, []string{opText, leftReg, rightReg}, n, true)
	e.LowerStoreTarget(left, valReg, n)
	return valReg
}

func lowerFieldExpression(e *engine.Engine, n engine.Node) string {
	valueNode, _ := n.ChildByFieldName("value")
	fieldNode, _ := n.ChildByFieldName("field")
	valueReg := e.LowerExprOrMissing(valueNode, "field_value")
	fieldName := "?"
	if fieldNode != nil {
		fieldName = engine.Text(fieldNode, e.Source())
	}
	return e.Emit(ir.LOAD_FIELD, []string{valueReg, fieldName}, n, true)
}

func lowerIndexExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) < 2 {
		return e.Missing("index_operands", n)
	}
	objReg := e.LowerExpr(named[0])
	idxReg := e.LowerExpr(named[1])
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

	if calleeNode != nil && calleeNode.Type() == "field_expression" {
		objNode, _ := calleeNode.ChildByFieldName("value")
		methodNode, _ := calleeNode.ChildByFieldName("field")
		objReg := e.LowerExprOrMissing(objNode, "method_call_receiver")
		methodName := "?"
		if methodNode != nil {
			methodName = engine.Text(methodNode, e.Source())
		}
		operands := append([]string{objReg, methodName}, args...)
		return e.Emit(ir.CALL_METHOD, operands, n, true)
	}

	if calleeNode != nil && (calleeNode.Type() == "identifier" || calleeNode.Type() == "scoped_identifier") {
		operands := append([]string{engine.Text(calleeNode, e.Source())}, args...)
		return e.Emit(ir.CALL_FUNCTION, operands, n, true)
	}

	calleeReg := e.LowerExprOrMissing(calleeNode, "call_callee")
	operands := append([]string{calleeReg}, args...)
	return e.Emit(ir.CALL_UNKNOWN, operands, n, true)
}

// lowerMacroInvocation lowers `name!(...)` as a named call whose function
// name carries the trailing `!` (spec §4.2.2: "macros as CALL_FUNCTION
// \"name!\"").
func lowerMacroInvocation(e *engine.Engine, n engine.Node) string {
	macroNode, _ := n.ChildByFieldName("macro")
	macroName := "?"
	if macroNode != nil {
		macroName = engine.Text(macroNode, e.Source()) + "!"
	}
	var args []string
	for _, c := range n.NamedChildren() {
		if macroNode != nil && c == macroNode {
			continue
		}
		if c.Type() == "token_tree" {
			for _, t := range c.NamedChildren() {
				args = append(args, e.LowerExpr(t))
			}
			continue
		}
	}
	operands := append([]string{macroName}, args...)
	return e.Emit(ir.CALL_FUNCTION, operands, n, true)
}

// lowerStructExpression builds a struct literal as NEW_OBJECT followed by
// one STORE_FIELD per field, resolving shorthand fields (`Point { x, y }`)
// to a field whose name and value expression are the same identifier
// (spec §4.2.2: "struct expressions with shorthand fields").
func lowerStructExpression(e *engine.Engine, n engine.Node) string {
	nameNode, _ := n.ChildByFieldName("name")
	typeName := "?"
	if nameNode != nil {
		typeName = engine.Text(nameNode, e.Source())
	}
	objReg := e.Emit(ir.NEW_OBJECT, []string{typeName}, n, true)

	bodyNode, hasBody := n.ChildByFieldName("body")
	fields := n.NamedChildren()
	if hasBody && bodyNode != nil {
		fields = bodyNode.NamedChildren()
	}
	for _, f := range fields {
		if f.Type() != "field_initializer" && f.Type() != "shorthand_field_initializer" {
			continue
		}
		if f.Type() == "shorthand_field_initializer" {
			fieldName := engine.Text(f, e.Source())
			valReg := e.Emit(ir.LOAD_VAR, []string{fieldName}, f, true)
			e.Emit(ir.STORE_FIELD, []string{objReg, fieldName, valReg}, f, false)
			continue
		}
		fieldNode, _ := f.ChildByFieldName("field")
		valueNode, hasValue := f.ChildByFieldName("value")
		fieldName := "?"
		if fieldNode != nil {
			fieldName = engine.Text(fieldNode, e.Source())
		}
		var valReg string
		if hasValue && valueNode != nil {
			valReg = e.LowerExpr(valueNode)
		} else {
			valReg = e.Emit(ir.LOAD_VAR, []string{fieldName}, f, true)
		}
		e.Emit(ir.STORE_FIELD, []string{objReg, fieldName, valReg}, f, false)
	}
	return objReg
}

// lowerTryExpression lowers `expr?` (spec §4.2.2: "? as CALL_FUNCTION
// \"try_unwrap\"").
func lowerTryExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	operandReg := e.Missing("try_operand", n)
	if len(named) > 0 {
		operandReg = e.LowerExpr(named[0])
	}
	return e.Emit(ir.CALL_FUNCTION, []string{"try_unwrap", operandReg}, n, true)
}

func lowerAwaitExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	operandReg := e.Missing("await_operand", n)
	if len(named) > 0 {
		operandReg = e.LowerExpr(named[0])
	}
	return e.Emit(ir.CALL_FUNCTION, []string{"await", operandReg}, n, true)
}

// lowerAsExpression lowers `expr as T` (spec §4.2.2: "as cast as
// CALL_FUNCTION \"as\"").
func lowerAsExpression(e *engine.Engine, n engine.Node) string {
	valueNode, _ := n.ChildByFieldName("value")
	typeNode, _ := n.ChildByFieldName("type")
	valueReg := e.LowerExprOrMissing(valueNode, "cast_value")
	typeName := "?"
	if typeNode != nil {
		typeName = engine.Text(typeNode, e.Source())
	}
	return e.Emit(ir.CALL_FUNCTION, []string{"as", valueReg, typeName}, n, true)
}

// lowerRangeExpression degrades a range literal to SYMBOLIC (spec
// §4.2.2: "range as SYMBOLIC"), since the engine's IR has no native
// range value.
func lowerRangeExpression(e *engine.Engine, n engine.Node) string {
	return e.Emit(ir.SYMBOLIC, []string{"range:" + engine.Text(n, e.Source())}, n, true)
}

func lowerClosureExpression(e *engine.Engine, n engine.Node) string {
	name := adapter.SyntheticName(e, "__closure")
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
		if bodyNode.Type() == "block" {
			e.LowerBlock(bodyNode)
			e.EmitImplicitReturn(n)
		} else {
			valReg := e.LowerExpr(bodyNode)
			e.Emit(ir.RETURN, []string{valReg}, n, false)
		}
	}
	e.EmitLabel(endLabel, n)
	return e.Emit(ir.CONST, []string{"<function:" + name + "@" + funcLabel + ">"}, n, true)
}

// lowerBlockExpr lowers every statement but the last for effect and returns
// the trailing tail expression's own register as the block's value, with no
// phi variable — the same shape scala.go's lowerBlockExpr gives Scala.
func lowerBlockExpr(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
	}
	for _, s := range named[:len(named)-1] {
		e.LowerStmt(s)
	}
	return e.LowerExprOrMissing(named[len(named)-1], "block_result")
}

// lowerIfExpression phis the chosen branch's value (spec §4.2.2).
func lowerIfExpression(e *engine.Engine, n engine.Node) string {
	condNode, _ := n.ChildByFieldName("condition")
	trueNode, _ := n.ChildByFieldName("consequence")
	falseNode, hasAlt := n.ChildByFieldName("alternative")
	return adapter.LowerTernary(e, condNode,
		func() string { return e.LowerExprOrMissing(trueNode, "if_true") },
		func() string {
			if !hasAlt || falseNode == nil {
				return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
			}
			return e.LowerExprOrMissing(falseNode, "if_false")
		},
		n, "__if_result")
}

// lowerMatchExpression desugars `match` as an `==` chain, phi-storing each
// arm's result (spec §4.2.2), reusing the switch-as-if-chain helper the
// same way scala.go's `match` and kotlin.go's `when` already do.
func lowerMatchExpression(e *engine.Engine, n engine.Node) string {
	subject, _ := n.ChildByFieldName("value")
	phiVar := adapter.SyntheticName(e, "__match_result")

	var cases []adapter.SwitchCase
	bodyNode, hasBody := n.ChildByFieldName("body")
	arms := n.NamedChildren()
	if hasBody && bodyNode != nil {
		arms = bodyNode.NamedChildren()
	}
	for _, c := range arms {
		if c.Type() != "match_arm" {
			continue
		}
		patternNode, _ := c.ChildByFieldName("pattern")
		valueNode, _ := c.ChildByFieldName("value")
		isDefault := patternNode != nil && patternNode.Type() == "_"
		var values []engine.Node
		if !isDefault && patternNode != nil {
			values = []engine.Node{patternNode}
		}
		cases = append(cases, adapter.SwitchCase{Values: values, Body: matchArm{value: valueNode}, IsDefault: isDefault})
	}

	adapter.LowerSwitchAsIfChain(e, subject, cases, n, false, func(body engine.Node) {
		arm, ok := body.(matchArm)
		if !ok || arm.value == nil {
			return
		}
		valReg := e.LowerExpr(arm.value)
		e.Emit(ir.STORE_VAR, []string{phiVar, valReg}, n, false)
	})
	return e.Emit(ir.LOAD_VAR, []string{phiVar}, n, true)
}

type matchArm struct {
	node.Node
	value engine.Node
}

func (a matchArm) Type() string { return "match_arm_value" }

func lowerLoopExpression(e *engine.Engine, n engine.Node) string {
	bodyNode, _ := n.ChildByFieldName("body")
	bodyLabel := e.FreshLabel("loop_body")
	endLabel := e.FreshLabel("loop_end")

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(bodyLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()
	e.Emit(ir.BRANCH, []string{bodyLabel}, n, false)

	e.EmitLabel(endLabel, n)
	return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
}

func lowerWhileExpression(e *engine.Engine, n engine.Node) string {
	condNode, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")

	condLabel := e.FreshLabel("while_cond")
	bodyLabel := e.FreshLabel("while_body")
	endLabel := e.FreshLabel("while_end")

	e.EmitLabel(condLabel, n)
	condReg := e.LowerExprOrMissing(condNode, "while_condition")
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)
	e.EmitLabel(bodyLabel, n)
	e.PushLoop(condLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)
	e.EmitLabel(endLabel, n)
	return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
}

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("paren_expr", n)
	}
	return e.LowerExpr(named[0])
}

func lowerReturnExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	var valueNode engine.Node
	if len(named) > 0 {
		valueNode = named[0]
	}
	e.LowerReturn(valueNode, n)
	return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
}

func lowerBreakExpression(e *engine.Engine, n engine.Node) string {
	e.LowerBreak(n)
	return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
}

func lowerContinueExpression(e *engine.Engine, n engine.Node) string {
	e.LowerContinue(n)
	return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
}

// lowerLetDeclaration lowers `let <pattern> = <value>`, extracting the
// bound name through an optional `mut` wrapper (spec §4.2.2: "let
// destructuring (name extracted through mut wrapper)").
func lowerLetDeclaration(e *engine.Engine, n engine.Node) {
	patternNode, _ := n.ChildByFieldName("pattern")
	valueNode, hasValue := n.ChildByFieldName("value")

	var valReg string
	if hasValue && valueNode != nil {
		valReg = e.LowerExpr(valueNode)
	} else {
		valReg = e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
	}
	target := unwrapMutPattern(patternNode)
	e.LowerStoreTarget(target, valReg, n)
}

// unwrapMutPattern extracts the bound identifier through an optional
// `mut_pattern` wrapper (spec §4.2.2).
func unwrapMutPattern(pattern engine.Node) engine.Node {
	if pattern == nil {
		return nil
	}
	if pattern.Type() == "mut_pattern" {
		named := pattern.NamedChildren()
		if len(named) > 0 {
			return named[0]
		}
	}
	return pattern
}

func lowerExpressionStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	if len(named) == 0 {
		return
	}
	e.LowerExpr(named[0])
}

func lowerFunctionItem(e *engine.Engine, n engine.Node) {
	e.LowerFunctionDef(n)
}

// lowerImplItem lowers an `impl` block as a class-shaped container (spec
// §4.2.2: "impl blocks as class-shaped containers"): its methods are
// bound under the implementing type's own name, the same way a class
// body binds its methods.
func lowerImplItem(e *engine.Engine, n engine.Node) {
	typeNode, hasType := n.ChildByFieldName("type")
	bodyNode, _ := n.ChildByFieldName("body")
	name := "impl"
	if hasType && typeNode != nil {
		name = engine.Text(typeNode, e.Source())
	}

	endLabel := e.FreshLabel("end_impl_" + name)
	implLabel := e.FreshLabel("impl_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(implLabel, n)
	if bodyNode != nil {
		e.LowerBlock(bodyNode)
	}
	e.EmitLabel(endLabel, n)
	ref := "<class:" + name + "@" + implLabel + ">"
	reg := e.Emit(ir.CONST, []string{ref}, n, true)
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func lowerClassLike(e *engine.Engine, n engine.Node) {
	e.LowerClassDef(n)
}

func lowerModItem(e *engine.Engine, n engine.Node) {
	bodyNode, hasBody := n.ChildByFieldName("body")
	if hasBody && bodyNode != nil {
		e.LowerBlock(bodyNode)
	}
}

// lowerStoreTargetOverride handles `*x = v` dereference assignment targets
// as STORE_FIELD <ptr>, "*", <val>, the same way c.go's pointer-dereference
// override works.
func lowerStoreTargetOverride(e *engine.Engine, target engine.Node, valReg string, parent engine.Node) bool {
	if target.Type() != "unary_expression" {
		return false
	}
	named := target.NamedChildren()
	if len(named) == 0 {
		return false
	}
	isDeref := false
	for _, c := range target.Children() {
		if c.Type() == "*" {
			isDeref = true
		}
	}
	if !isDeref {
		return false
	}
	operandReg := e.LowerExpr(named[0])
	e.Emit(ir.STORE_FIELD, []string{operandReg, "*", valReg}, parent, false)
	return true
}
