// Package php adapts the engine to PHP's tree-sitter grammar (spec
// §4.2.2's PHP row).
package php

import (
	"strconv"

	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers PHP syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a PHP adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	cfg.NoneLiteral = "None"
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["variable_name"] = lowerVariableName
	e.ExprDispatch["name"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["integer"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["float"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["encapsed_string"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["boolean"] = lowerBoolean
	e.ExprDispatch["null"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary_expression"] = lowerBinary
	e.ExprDispatch["unary_op_expression"] = lowerUnary
	e.ExprDispatch["assignment_expression"] = lowerAssignment
	e.ExprDispatch["augmented_assignment_expression"] = lowerAugmentedAssignment
	e.ExprDispatch["member_access_expression"] = lowerMemberAccess
	e.ExprDispatch["scoped_property_access_expression"] = lowerMemberAccess
	e.ExprDispatch["subscript_expression"] = lowerSubscript
	e.ExprDispatch["function_call_expression"] = lowerFunctionCall
	e.ExprDispatch["member_call_expression"] = lowerMemberCall
	e.ExprDispatch["scoped_call_expression"] = lowerScopedCall
	e.ExprDispatch["object_creation_expression"] = lowerObjectCreation
	e.ExprDispatch["array_creation_expression"] = lowerArrayCreation
	e.ExprDispatch["conditional_expression"] = lowerTernary
	e.ExprDispatch["match_expression"] = lowerMatchExpression
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized
	e.ExprDispatch["anonymous_function_creation_expression"] = lowerAnonymousFunction
	e.ExprDispatch["arrow_function"] = lowerAnonymousFunction

	e.StmtDispatch["if_statement"] = lowerIfStatement
	e.StmtDispatch["while_statement"] = lowerWhileStatement
	e.StmtDispatch["do_statement"] = lowerDoStatement
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["foreach_statement"] = lowerForeachStatement
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["continue_statement"] = (*engine.Engine).LowerContinue
	e.StmtDispatch["return_statement"] = lowerReturnStatement
	e.StmtDispatch["echo_statement"] = lowerEchoStatement
	e.StmtDispatch["expression_statement"] = lowerExpressionStatement
	e.StmtDispatch["function_definition"] = lowerFunctionDefinition
	e.StmtDispatch["class_declaration"] = lowerClassLike
	e.StmtDispatch["interface_declaration"] = lowerClassLike
	e.StmtDispatch["trait_declaration"] = lowerClassLike
	e.StmtDispatch["enum_declaration"] = lowerEnumDeclaration
	e.StmtDispatch["namespace_definition"] = lowerNamespaceDefinition
	e.StmtDispatch["namespace_use_declaration"] = lowerNoop
	e.StmtDispatch["try_statement"] = lowerTryStatement
	e.StmtDispatch["method_declaration"] = lowerMethodDeclaration
	e.StmtDispatch["property_declaration"] = lowerPropertyDeclaration

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

// lowerVariableName lowers `$x`, keeping the sigil in the bound name by
// reading the node's own full source span rather than its inner `name`
// child (spec §4.2.2: "variables retain $ sigil in IR").
func lowerVariableName(e *engine.Engine, n engine.Node) string {
	name := engine.Text(n, e.Source())
	return e.Emit(ir.LOAD_VAR, []string{name}, n, true)
}

func lowerBoolean(e *engine.Engine, n engine.Node) string {
	text := engine.Text(n, e.Source())
	if text == "false" || text == "FALSE" || text == "False" {
		return e.LowerCanonicalFalse(n)
	}
	return e.LowerCanonicalTrue(n)
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

func lowerUnary(e *engine.Engine, n engine.Node) string {
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

func lowerAssignment(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	valReg := e.LowerExprOrMissing(right, "assign_value")
	e.LowerStoreTarget(left, valReg, n)
	return valReg
}

func lowerAugmentedAssignment(e *engine.Engine, n engine.Node) string {
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

func lowerMemberAccess(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("object")
	nameNode, _ := n.ChildByFieldName("name")
	objReg := e.LowerExprOrMissing(objNode, "member_object")
	fieldName := "?"
	if nameNode != nil {
		fieldName = engine.Text(nameNode, e.Source())
	}
	return e.Emit(ir.LOAD_FIELD, []string{objReg, fieldName}, n, true)
}

func lowerSubscript(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("object")
	idxNode, hasIdx := n.ChildByFieldName("index")
	objReg := e.LowerExprOrMissing(objNode, "subscript_object")
	var idxReg string
	if hasIdx && idxNode != nil {
		idxReg = e.LowerExpr(idxNode)
	} else {
		idxReg = e.Emit(ir.CONST, []string{"None"}, n, true)
	}
	return e.Emit(ir.LOAD_INDEX, []string{objReg, idxReg}, n, true)
}

func lowerArgsList(e *engine.Engine, n engine.Node) []string {
	argsNode, _ := n.ChildByFieldName("arguments")
	var args []string
	if argsNode == nil {
		return args
	}
	for _, a := range argsNode.NamedChildren() {
		args = append(args, e.LowerExpr(a))
	}
	return args
}

func lowerFunctionCall(e *engine.Engine, n engine.Node) string {
	calleeNode, _ := n.ChildByFieldName("function")
	args := lowerArgsList(e, n)
	if calleeNode != nil && calleeNode.Type() == "name" {
		operands := append([]string{engine.Text(calleeNode, e.Source())}, args...)
		return e.Emit(ir.CALL_FUNCTION, operands, n, true)
	}
	calleeReg := e.LowerExprOrMissing(calleeNode, "call_callee")
	operands := append([]string{calleeReg}, args...)
	return e.Emit(ir.CALL_UNKNOWN, operands, n, true)
}

func lowerMemberCall(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("object")
	nameNode, _ := n.ChildByFieldName("name")
	objReg := e.LowerExprOrMissing(objNode, "method_call_receiver")
	methodName := "?"
	if nameNode != nil {
		methodName = engine.Text(nameNode, e.Source())
	}
	args := lowerArgsList(e, n)
	operands := append([]string{objReg, methodName}, args...)
	return e.Emit(ir.CALL_METHOD, operands, n, true)
}

func lowerScopedCall(e *engine.Engine, n engine.Node) string {
	scopeNode, _ := n.ChildByFieldName("scope")
	nameNode, _ := n.ChildByFieldName("name")
	scopeReg := e.LowerExprOrMissing(scopeNode, "static_call_scope")
	methodName := "?"
	if nameNode != nil {
		methodName = engine.Text(nameNode, e.Source())
	}
	args := lowerArgsList(e, n)
	operands := append([]string{scopeReg, methodName}, args...)
	return e.Emit(ir.CALL_METHOD, operands, n, true)
}

func lowerObjectCreation(e *engine.Engine, n engine.Node) string {
	classNode, _ := n.ChildByFieldName("class")
	className := "?"
	if classNode != nil {
		className = engine.Text(classNode, e.Source())
	}
	args := lowerArgsList(e, n)
	operands := append([]string{className}, args...)
	return e.Emit(ir.CALL_FUNCTION, operands, n, true)
}

// lowerArrayCreation builds an array as NEW_OBJECT followed by per-element
// STORE_INDEX, detecting associative (keyed) vs indexed (positional)
// elements (spec §4.2.2: "arrays detect associative vs indexed").
func lowerArrayCreation(e *engine.Engine, n engine.Node) string {
	arrReg := e.Emit(ir.NEW_OBJECT, []string{"array"}, n, true)
	positional := 0
	for _, el := range n.NamedChildren() {
		if el.Type() != "array_element_initializer" {
			continue
		}
		keyNode, hasKey := el.ChildByFieldName("key")
		valueNode, _ := el.ChildByFieldName("value")
		var keyReg string
		if hasKey && keyNode != nil {
			keyReg = e.LowerExpr(keyNode)
		} else {
			keyReg = e.Emit(ir.CONST, []string{strconv.Itoa(positional)}, el, true)
			positional++
		}
		valReg := e.LowerExprOrMissing(valueNode, "array_element_value")
		e.Emit(ir.STORE_INDEX, []string{arrReg, keyReg, valReg}, el, false)
	}
	return arrReg
}

func lowerTernary(e *engine.Engine, n engine.Node) string {
	condNode, _ := n.ChildByFieldName("condition")
	trueNode, hasTrue := n.ChildByFieldName("consequence")
	falseNode, _ := n.ChildByFieldName("alternative")
	return adapter.LowerTernary(e, condNode,
		func() string {
			if !hasTrue || trueNode == nil {
				condReg := e.LowerExprOrMissing(condNode, "ternary_condition")
				return condReg
			}
			return e.LowerExpr(trueNode)
		},
		func() string { return e.LowerExprOrMissing(falseNode, "ternary_false") },
		n, "__ternary")
}

// lowerMatchExpression lowers PHP's `match`, which compares with strict
// equality (spec §4.2.2: "match uses ===").
func lowerMatchExpression(e *engine.Engine, n engine.Node) string {
	subject, _ := n.ChildByFieldName("condition")
	phiVar := adapter.SyntheticName(e, "__match_result")

	var cases []adapter.SwitchCase
	for _, arm := range n.NamedChildren() {
		if arm.Type() != "match_conditional_expression" && arm.Type() != "match_default_expression" {
			continue
		}
		isDefault := arm.Type() == "match_default_expression"
		var values []engine.Node
		if !isDefault {
			if condsNode, ok := arm.ChildByFieldName("conditions"); ok && condsNode != nil {
				values = condsNode.NamedChildren()
			}
		}
		body, _ := arm.ChildByFieldName("body")
		cases = append(cases, adapter.SwitchCase{Values: values, Body: matchArm{value: body}, IsDefault: isDefault})
	}

	adapter.LowerSwitchAsIfChain(e, subject, cases, n, true, func(body engine.Node) {
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

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("paren_expr", n)
	}
	return e.LowerExpr(named[0])
}

func lowerAnonymousFunction(e *engine.Engine, n engine.Node) string {
	name := adapter.SyntheticName(e, "__anon_func")
	paramsNode, _ := n.ChildByFieldName("parameters")
	bodyNode, hasBody := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	if paramsNode != nil {
		e.LowerParams(paramsNode)
	}
	if hasBody && bodyNode != nil {
		if bodyNode.Type() == "block" || bodyNode.Type() == "compound_statement" {
			e.LowerBlock(bodyNode)
		} else {
			valReg := e.LowerExpr(bodyNode)
			e.Emit(ir.RETURN, []string{valReg}, n, false)
		}
	}
	e.EmitImplicitReturn(n)
	e.EmitLabel(endLabel, n)
	return e.Emit(ir.CONST, []string{"<function:" + name + "@" + funcLabel + ">"}, n, true)
}

func lowerIfStatement(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")
	altNode, hasAlt := n.ChildByFieldName("alternative")
	hasAlt = hasAlt && altNode != nil

	condReg := e.LowerExprOrMissing(condNode, "if_condition")
	trueLabel := e.FreshLabel("if_true")
	endLabel := e.FreshLabel("if_end")
	falseLabel := endLabel
	if hasAlt {
		falseLabel = e.FreshLabel("if_false")
	}
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(trueLabel, falseLabel)}, n, false)
	e.EmitLabel(trueLabel, n)
	e.LowerBlock(bodyNode)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	if hasAlt {
		e.EmitLabel(falseLabel, n)
		switch altNode.Type() {
		case "else_clause":
			if b, ok := altNode.ChildByFieldName("body"); ok {
				e.LowerBlock(b)
			} else {
				e.LowerBlock(altNode)
			}
		case "else_if_clause":
			lowerIfStatement(e, altNode)
		default:
			e.LowerBlock(altNode)
		}
	}
	e.EmitLabel(endLabel, n)
}

func lowerWhileStatement(e *engine.Engine, n engine.Node) {
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
}

func lowerDoStatement(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")

	bodyLabel := e.FreshLabel("do_body")
	condLabel := e.FreshLabel("do_cond")
	endLabel := e.FreshLabel("do_end")

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(condLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()
	e.EmitLabel(condLabel, n)
	condReg := e.LowerExprOrMissing(condNode, "do_condition")
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)
	e.EmitLabel(endLabel, n)
}

func lowerForStatement(e *engine.Engine, n engine.Node) {
	initNode, _ := n.ChildByFieldName("initialize")
	condNode, _ := n.ChildByFieldName("condition")
	updateNode, _ := n.ChildByFieldName("update")
	bodyNode, _ := n.ChildByFieldName("body")
	e.LowerCStyleFor(initNode, condNode, updateNode, bodyNode, n)
}

// lowerForeachStatement desugars `foreach` to an index loop (spec §4.2.2).
func lowerForeachStatement(e *engine.Engine, n engine.Node) {
	iterNode, _ := n.ChildByFieldName("array")
	bodyNode, _ := n.ChildByFieldName("body")
	valueNode, _ := n.ChildByFieldName("value")
	keyNode, hasKey := n.ChildByFieldName("key")

	adapter.ForEachAsIndexLoop(e, iterNode, bodyNode, n, func(elemReg, idxReg string) {
		if hasKey && keyNode != nil {
			e.LowerStoreTarget(keyNode, idxReg, n)
		}
		if valueNode != nil {
			e.LowerStoreTarget(valueNode, elemReg, n)
		}
	}, func(body engine.Node) {
		e.LowerBlock(body)
	})
}

func lowerReturnStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	var valueNode engine.Node
	if len(named) > 0 {
		valueNode = named[0]
	}
	e.LowerReturn(valueNode, n)
}

func lowerEchoStatement(e *engine.Engine, n engine.Node) {
	for _, v := range n.NamedChildren() {
		valReg := e.LowerExpr(v)
		e.Emit(ir.CALL_FUNCTION, []string{"echo", valReg}, n, false)
	}
}

func lowerExpressionStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	if len(named) == 0 {
		return
	}
	e.LowerExpr(named[0])
}

// lowerFunctionDefinition and lowerMethodDeclaration share one shape via
// lowerFunctionLike.
func lowerFunctionDefinition(e *engine.Engine, n engine.Node) {
	lowerFunctionLike(e, n)
}

func lowerMethodDeclaration(e *engine.Engine, n engine.Node) {
	lowerFunctionLike(e, n)
}

func lowerFunctionLike(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "func")
	if name == "__construct" {
		name = "__init__"
	}
	paramsNode, _ := n.ChildByFieldName("parameters")
	bodyNode, hasBody := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	if paramsNode != nil {
		e.LowerParams(paramsNode)
	}
	if hasBody && bodyNode != nil {
		e.LowerBlock(bodyNode)
	}
	e.EmitImplicitReturn(n)
	e.EmitLabel(endLabel, n)
	ref := "<function:" + name + "@" + funcLabel + ">"
	reg := e.Emit(ir.CONST, []string{ref}, n, true)
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func lowerPropertyDeclaration(e *engine.Engine, n engine.Node) {
	for _, el := range n.NamedChildren() {
		if el.Type() != "property_element" {
			continue
		}
		nameNode, _ := el.ChildByFieldName("name")
		valueNode, hasValue := el.ChildByFieldName("default_value")
		if nameNode == nil {
			continue
		}
		fieldName := engine.Text(nameNode, e.Source())
		var valReg string
		if hasValue && valueNode != nil {
			valReg = e.LowerExpr(valueNode)
		} else {
			valReg = e.Emit(ir.CONST, []string{"None"}, el, true)
		}
		thisReg := e.Emit(ir.LOAD_VAR, []string{"this"}, el, true)
		e.Emit(ir.STORE_FIELD, []string{thisReg, fieldName, valReg}, el, false)
	}
}

// lowerClassLike shares one lowering across class/interface/trait
// declarations (spec §4.2.2: "traits/interfaces/enums share class shape").
func lowerClassLike(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "class")
	bodyNode, _ := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_class_" + name)
	classLabel := e.FreshLabel("class_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(classLabel, n)
	if bodyNode != nil {
		e.LowerBlock(bodyNode)
	}
	e.EmitLabel(endLabel, n)
	ref := "<class:" + name + "@" + classLabel + ">"
	reg := e.Emit(ir.CONST, []string{ref}, n, true)
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

// lowerEnumDeclaration shares the class shape but additionally emits a
// `STORE_FIELD self` per enum case (spec §4.2.2).
func lowerEnumDeclaration(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "enum")
	bodyNode, _ := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_enum_" + name)
	enumLabel := e.FreshLabel("enum_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(enumLabel, n)

	selfReg := e.Emit(ir.CONST, []string{"<class:" + name + "@" + enumLabel + ">"}, n, true)
	if bodyNode != nil {
		for _, member := range bodyNode.NamedChildren() {
			if member.Type() != "enum_case" {
				e.LowerStmt(member)
				continue
			}
			caseNameNode, _ := member.ChildByFieldName("name")
			caseName := "?"
			if caseNameNode != nil {
				caseName = engine.Text(caseNameNode, e.Source())
			}
			valueNode, hasValue := member.ChildByFieldName("value")
			var valReg string
			if hasValue && valueNode != nil {
				valReg = e.LowerExpr(valueNode)
			} else {
				valReg = e.Emit(ir.CONST, []string{"\"" + caseName + "\""}, member, true)
			}
			e.Emit(ir.STORE_FIELD, []string{selfReg, caseName, valReg}, member, false)
		}
	}
	e.EmitLabel(endLabel, n)
	e.Emit(ir.STORE_VAR, []string{name, selfReg}, n, false)
}

// lowerNamespaceDefinition is transparent: its body lowers directly into
// the enclosing scope (spec §4.2.2: "namespaces transparent").
func lowerNamespaceDefinition(e *engine.Engine, n engine.Node) {
	bodyNode, hasBody := n.ChildByFieldName("body")
	if hasBody && bodyNode != nil {
		e.LowerBlock(bodyNode)
		return
	}
	e.LowerBlock(n)
}

func lowerNoop(e *engine.Engine, n engine.Node) {}

func lowerTryStatement(e *engine.Engine, n engine.Node) {
	bodyNode, _ := n.ChildByFieldName("body")
	var catches []engine.CatchClause
	var finallyNode engine.Node
	for _, c := range n.NamedChildren() {
		switch c.Type() {
		case "catch_clause":
			var typeName, varName string
			if t, ok := c.ChildByFieldName("type"); ok && t != nil {
				typeName = engine.Text(t, e.Source())
			}
			if v, ok := c.ChildByFieldName("name"); ok && v != nil {
				varName = engine.Text(v, e.Source())
			}
			body, _ := c.ChildByFieldName("body")
			catches = append(catches, engine.CatchClause{TypeName: typeName, VarName: varName, Body: body})
		case "finally_clause":
			b, _ := c.ChildByFieldName("body")
			finallyNode = b
		}
	}
	e.LowerTryCatch(bodyNode, catches, finallyNode, nil, n)
}
