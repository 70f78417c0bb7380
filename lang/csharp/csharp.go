// Package csharp adapts the engine to C#'s tree-sitter grammar (spec
// §4.2.2's C# row).
package csharp

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers C# syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a C# adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["integer_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["real_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["null_literal"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary_expression"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["prefix_unary_expression"] = lowerPrefixUnaryExpression
	e.ExprDispatch["postfix_unary_expression"] = lowerPostfixUnaryExpression
	e.ExprDispatch["assignment_expression"] = lowerAssignmentExpression
	e.ExprDispatch["member_access_expression"] = lowerMemberAccessExpression
	e.ExprDispatch["conditional_access_expression"] = lowerConditionalAccessExpression
	e.ExprDispatch["element_access_expression"] = lowerElementAccessExpression
	e.ExprDispatch["invocation_expression"] = lowerInvocationExpression
	e.ExprDispatch["object_creation_expression"] = lowerObjectCreationExpression
	e.ExprDispatch["is_expression"] = lowerIsExpression
	e.ExprDispatch["as_expression"] = lowerAsExpression
	e.ExprDispatch["typeof_expression"] = lowerTypeofExpression
	e.ExprDispatch["await_expression"] = lowerAwaitExpression
	e.ExprDispatch["cast_expression"] = lowerCastExpression
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized
	e.ExprDispatch["lambda_expression"] = lowerLambdaExpression
	e.ExprDispatch["conditional_expression"] = lowerTernaryExpression
	e.ExprDispatch["switch_expression"] = lowerSwitchExpression

	e.StmtDispatch["if_statement"] = (*engine.Engine).LowerIf
	e.StmtDispatch["while_statement"] = (*engine.Engine).LowerWhile
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["foreach_statement"] = lowerForeachStatement
	e.StmtDispatch["return_statement"] = lowerReturnStatement
	e.StmtDispatch["yield_statement"] = lowerYieldStatement
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["continue_statement"] = (*engine.Engine).LowerContinue
	e.StmtDispatch["local_declaration_statement"] = lowerLocalDeclarationStatement
	e.StmtDispatch["expression_statement"] = lowerExpressionStatement
	e.StmtDispatch["class_declaration"] = lowerClassDeclaration
	e.StmtDispatch["method_declaration"] = lowerMethodDeclaration
	e.StmtDispatch["constructor_declaration"] = lowerConstructorDeclaration
	e.StmtDispatch["field_declaration"] = lowerFieldDeclaration
	e.StmtDispatch["property_declaration"] = lowerPropertyDeclaration
	e.StmtDispatch["event_field_declaration"] = lowerEventFieldDeclaration
	e.StmtDispatch["try_statement"] = lowerTryStatement
	e.StmtDispatch["switch_statement"] = lowerSwitchStatement

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

func lowerPrefixUnaryExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("unary_operand", n)
	}
	op := "-"
	for _, c := range n.Children() {
		t := c.Type()
		if t == "-" || t == "!" || t == "~" || t == "+" || t == "++" || t == "--" {
			op = t
		}
	}
	if op == "++" || op == "--" {
		dir := "+"
		if op == "--" {
			dir = "-"
		}
		return e.LowerUpdateExpr(named[0], dir, n)
	}
	operandReg := e.LowerExpr(named[0])
	return e.Emit(ir.UNOP, []string{op, operandReg}, n, true)
}

func lowerPostfixUnaryExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("update_target", n)
	}
	op := "+"
	for _, c := range n.Children() {
		if c.Type() == "--" {
			op = "-"
		}
	}
	return e.LowerUpdateExpr(named[0], op, n)
}

func lowerAssignmentExpression(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	valReg := e.LowerExprOrMissing(right, "assign_value")
	e.LowerStoreTarget(left, valReg, n)
	return valReg
}

func lowerMemberAccessExpression(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("expression")
	nameNode, _ := n.ChildByFieldName("name")
	objReg := e.LowerExprOrMissing(objNode, "member_object")
	return e.Emit(ir.LOAD_FIELD, []string{objReg, engine.Text(nameNode, e.Source())}, n, true)
}

// lowerConditionalAccessExpression lowers `a?.b` structurally as LOAD_FIELD
// (spec §4.2.2): the null-guard semantics of `?.` are not modeled, only its
// shape as a field read.
func lowerConditionalAccessExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("conditional_access_object", n)
	}
	objReg := e.LowerExpr(named[0])
	fieldName := "?"
	if len(named) > 1 {
		inner := named[1]
		if innerNamed := inner.NamedChildren(); len(innerNamed) > 0 {
			fieldName = engine.Text(innerNamed[0], e.Source())
		} else {
			fieldName = engine.Text(inner, e.Source())
		}
	}
	return e.Emit(ir.LOAD_FIELD, []string{objReg, fieldName}, n, true)
}

func lowerElementAccessExpression(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("expression")
	argsNode, _ := n.ChildByFieldName("subscript")
	objReg := e.LowerExprOrMissing(objNode, "index_object")
	var idxReg string
	if argsNode != nil {
		named := argsNode.NamedChildren()
		if len(named) > 0 {
			idxReg = e.LowerExpr(named[0])
		}
	}
	if idxReg == "" {
		idxReg = e.Missing("index_value", n)
	}
	return e.Emit(ir.LOAD_INDEX, []string{objReg, idxReg}, n, true)
}

func lowerInvocationExpression(e *engine.Engine, n engine.Node) string {
	calleeNode, _ := n.ChildByFieldName("function")
	argsNode, _ := n.ChildByFieldName("arguments")
	var args []string
	if argsNode != nil {
		for _, a := range argsNode.NamedChildren() {
			args = append(args, e.LowerExpr(a))
		}
	}
	if calleeNode != nil && calleeNode.Type() == "member_access_expression" {
		objNode, _ := calleeNode.ChildByFieldName("expression")
		nameNode, _ := calleeNode.ChildByFieldName("name")
		objReg := e.LowerExprOrMissing(objNode, "method_object")
		methodName := engine.Text(nameNode, e.Source())
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

func lowerObjectCreationExpression(e *engine.Engine, n engine.Node) string {
	typeNode, _ := n.ChildByFieldName("type")
	argsNode, _ := n.ChildByFieldName("arguments")
	typeName := "__anon_type"
	if typeNode != nil {
		typeName = engine.Text(typeNode, e.Source())
	}
	operands := []string{typeName}
	if argsNode != nil {
		for _, arg := range argsNode.NamedChildren() {
			operands = append(operands, e.LowerExpr(arg))
		}
	}
	return e.Emit(ir.CALL_FUNCTION, operands, n, true)
}

// lowerIsExpression lowers `x is T` to a named call (spec §4.2.2).
func lowerIsExpression(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	leftReg := e.LowerExprOrMissing(left, "is_operand")
	typeReg := e.Emit(ir.CONST, []string{engine.Text(right, e.Source())}, n, true)
	return e.Emit(ir.CALL_FUNCTION, []string{"is", leftReg, typeReg}, n, true)
}

// lowerAsExpression lowers `x as T` to a named call (spec §4.2.2).
func lowerAsExpression(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	leftReg := e.LowerExprOrMissing(left, "as_operand")
	typeReg := e.Emit(ir.CONST, []string{engine.Text(right, e.Source())}, n, true)
	return e.Emit(ir.CALL_FUNCTION, []string{"as", leftReg, typeReg}, n, true)
}

// lowerTypeofExpression lowers `typeof(T)` to a named call (spec §4.2.2).
func lowerTypeofExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	typeText := ""
	if len(named) > 0 {
		typeText = engine.Text(named[0], e.Source())
	}
	typeReg := e.Emit(ir.CONST, []string{typeText}, n, true)
	return e.Emit(ir.CALL_FUNCTION, []string{"typeof", typeReg}, n, true)
}

// lowerAwaitExpression lowers `await x` to a named call (spec §4.2.2); no
// suspension semantics are modeled (spec's Non-goals exclude true
// concurrency/async suspension).
func lowerAwaitExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("await_operand", n)
	}
	operandReg := e.LowerExpr(named[0])
	return e.Emit(ir.CALL_FUNCTION, []string{"await", operandReg}, n, true)
}

func lowerCastExpression(e *engine.Engine, n engine.Node) string {
	valueNode, _ := n.ChildByFieldName("value")
	return e.LowerExprOrMissing(valueNode, "cast_value")
}

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("paren_expr", n)
	}
	return e.LowerExpr(named[0])
}

func lowerLambdaExpression(e *engine.Engine, n engine.Node) string {
	name := adapter.SyntheticName(e, "__lambda")
	paramsNode, _ := n.ChildByFieldName("parameters")
	bodyNode, _ := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	if paramsNode != nil {
		e.LowerParams(paramsNode)
	}
	if bodyNode != nil && bodyNode.Type() == "block" {
		e.LowerBlock(bodyNode)
		e.EmitImplicitReturn(n)
	} else if bodyNode != nil {
		valReg := e.LowerExpr(bodyNode)
		e.Emit(ir.RETURN, []string{valReg}, n, false)
	}
	e.EmitLabel(endLabel, n)
	return e.Emit(ir.CONST, []string{"<function:" + name + "@" + funcLabel + ">"}, n, true)
}

func lowerTernaryExpression(e *engine.Engine, n engine.Node) string {
	condNode, _ := n.ChildByFieldName("condition")
	trueNode, _ := n.ChildByFieldName("consequence")
	falseNode, _ := n.ChildByFieldName("alternative")
	return adapter.LowerTernary(e, condNode,
		func() string { return e.LowerExprOrMissing(trueNode, "ternary_true") },
		func() string { return e.LowerExprOrMissing(falseNode, "ternary_false") },
		n, "__ternary")
}

// lowerSwitchExpression lowers a switch-expression (spec §4.2.2) as a phi'd
// equality chain over its arms.
func lowerSwitchExpression(e *engine.Engine, n engine.Node) string {
	subject, _ := n.ChildByFieldName("value")
	phiVar := adapter.SyntheticName(e, "__switch_result")

	var cases []adapter.SwitchCase
	for _, arm := range n.NamedChildren() {
		if arm.Type() != "switch_expression_arm" {
			continue
		}
		patternNode, _ := arm.ChildByFieldName("pattern")
		valueNode, _ := arm.ChildByFieldName("value")
		isDefault := patternNode != nil && patternNode.Type() == "discard_pattern"
		var values []engine.Node
		if !isDefault && patternNode != nil {
			values = []engine.Node{patternNode}
		}
		cases = append(cases, adapter.SwitchCase{Values: values, Body: valueArm{value: valueNode}, IsDefault: isDefault})
	}

	adapter.LowerSwitchAsIfChain(e, subject, cases, n, false, func(body engine.Node) {
		arm, ok := body.(valueArm)
		if !ok || arm.value == nil {
			return
		}
		valReg := e.LowerExpr(arm.value)
		e.Emit(ir.STORE_VAR, []string{phiVar, valReg}, n, false)
	})

	return e.Emit(ir.LOAD_VAR, []string{phiVar}, n, true)
}

type valueArm struct {
	node.Node
	value engine.Node
}

func (a valueArm) Type() string { return "switch_expression_value_arm" }

func lowerForStatement(e *engine.Engine, n engine.Node) {
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
	e.LowerCStyleFor(initNode, condNode, updateNode, bodyNode, n)
}

func lowerForeachStatement(e *engine.Engine, n engine.Node) {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	bodyNode, _ := n.ChildByFieldName("body")
	adapter.ForEachAsIndexLoop(e, right, bodyNode, n, func(elemReg, idxReg string) {
		e.LowerStoreTarget(left, elemReg, n)
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

// lowerYieldStatement lowers `yield return x`/`yield break` as a named call
// (spec §4.2.2).
func lowerYieldStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	var argReg string
	if len(named) > 0 {
		argReg = e.LowerExpr(named[0])
	} else {
		argReg = e.Emit(ir.CONST, []string{"None"}, n, true)
	}
	e.Emit(ir.CALL_FUNCTION, []string{"yield", argReg}, n, true)
}

func lowerLocalDeclarationStatement(e *engine.Engine, n engine.Node) {
	for _, decl := range n.NamedChildren() {
		if decl.Type() != "variable_declaration" {
			continue
		}
		for _, declarator := range decl.NamedChildren() {
			if declarator.Type() != "variable_declarator" {
				continue
			}
			nameNode, _ := declarator.ChildByFieldName("name")
			valueNode, ok := declarator.ChildByFieldName("value")
			if !ok || valueNode == nil {
				continue
			}
			valReg := e.LowerExpr(valueNode)
			e.LowerStoreTarget(nameNode, valReg, declarator)
		}
	}
}

func lowerExpressionStatement(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		e.LowerStmt(c)
	}
}

// lowerClassDeclaration partitions the class body methods-first then
// fields, deferring field initialization after every method becomes
// addressable (spec §4.2.2's "deferred class-body lowering").
func lowerClassDeclaration(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "class")
	bodyNode, _ := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_class_" + name)
	classLabel := e.FreshLabel("class_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(classLabel, n)

	if bodyNode != nil {
		members := bodyNode.NamedChildren()
		for _, m := range members {
			if isMethodLike(m.Type()) {
				e.LowerStmt(m)
			}
		}
		for _, m := range members {
			if !isMethodLike(m.Type()) {
				e.LowerStmt(m)
			}
		}
	}

	e.EmitLabel(endLabel, n)
	ref := "<class:" + name + "@" + classLabel + ">"
	reg := e.Emit(ir.CONST, []string{ref}, n, true)
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func isMethodLike(t string) bool {
	return t == "method_declaration" || t == "constructor_declaration"
}

func lowerMethodDeclaration(e *engine.Engine, n engine.Node) {
	lowerMemberFunction(e, n, "")
}

func lowerConstructorDeclaration(e *engine.Engine, n engine.Node) {
	lowerMemberFunction(e, n, "__init__")
}

func lowerMemberFunction(e *engine.Engine, n engine.Node, forcedName string) {
	name := forcedName
	if name == "" {
		nameNode, _ := n.ChildByFieldName("name")
		name = e.NodeNameOrAnon(nameNode, "method")
	}
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

func lowerFieldDeclaration(e *engine.Engine, n engine.Node) {
	for _, decl := range n.NamedChildren() {
		if decl.Type() != "variable_declaration" {
			continue
		}
		for _, declarator := range decl.NamedChildren() {
			if declarator.Type() != "variable_declarator" {
				continue
			}
			nameNode, _ := declarator.ChildByFieldName("name")
			fieldName := engine.Text(nameNode, e.Source())
			thisReg := e.Emit(ir.LOAD_VAR, []string{"this"}, n, true)
			var valReg string
			if valueNode, ok := declarator.ChildByFieldName("value"); ok && valueNode != nil {
				valReg = e.LowerExpr(valueNode)
			} else {
				valReg = e.Emit(ir.CONST, []string{"None"}, n, true)
			}
			e.Emit(ir.STORE_FIELD, []string{thisReg, fieldName, valReg}, n, false)
		}
	}
}

// lowerPropertyDeclaration lowers an auto-property's initializer as
// STORE_FIELD this, name (spec §4.2.2).
func lowerPropertyDeclaration(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	fieldName := engine.Text(nameNode, e.Source())
	valueNode, hasValue := n.ChildByFieldName("value")
	if !hasValue || valueNode == nil {
		return
	}
	thisReg := e.Emit(ir.LOAD_VAR, []string{"this"}, n, true)
	valReg := e.LowerExpr(valueNode)
	e.Emit(ir.STORE_FIELD, []string{thisReg, fieldName, valReg}, n, false)
}

// lowerEventFieldDeclaration lowers an event declaration to `CONST
// "event:Name"` (spec §4.2.2).
func lowerEventFieldDeclaration(e *engine.Engine, n engine.Node) {
	for _, decl := range n.NamedChildren() {
		if decl.Type() != "variable_declaration" {
			continue
		}
		for _, declarator := range decl.NamedChildren() {
			if declarator.Type() != "variable_declarator" {
				continue
			}
			nameNode, _ := declarator.ChildByFieldName("name")
			eventName := engine.Text(nameNode, e.Source())
			reg := e.Emit(ir.CONST, []string{"event:" + eventName}, n, true)
			e.Emit(ir.STORE_VAR, []string{eventName, reg}, n, false)
		}
	}
}

func lowerTryStatement(e *engine.Engine, n engine.Node) {
	bodyNode, _ := n.ChildByFieldName("body")
	var catches []engine.CatchClause
	var finallyNode engine.Node
	for _, c := range n.NamedChildren() {
		switch c.Type() {
		case "catch_clause":
			var excType, excVar string
			if decl, ok := c.ChildByFieldName("type"); ok && decl != nil {
				excType = engine.Text(decl, e.Source())
			}
			if nameNode, ok := c.ChildByFieldName("name"); ok && nameNode != nil {
				excVar = engine.Text(nameNode, e.Source())
			}
			catchBody, _ := c.ChildByFieldName("body")
			catches = append(catches, engine.CatchClause{TypeName: excType, VarName: excVar, Body: catchBody})
		case "finally_clause":
			fb, _ := c.ChildByFieldName("body")
			finallyNode = fb
		}
	}
	e.LowerTryCatch(bodyNode, catches, finallyNode, nil, n)
}

// lowerSwitchStatement desugars a statement-form switch as an equality
// chain, the same shape switch-expression gets but without the phi store.
func lowerSwitchStatement(e *engine.Engine, n engine.Node) {
	subject, _ := n.ChildByFieldName("value")
	var cases []adapter.SwitchCase
	for _, section := range n.NamedChildren() {
		if section.Type() != "switch_section" {
			continue
		}
		var values []engine.Node
		isDefault := false
		var stmts []engine.Node
		for _, c := range section.NamedChildren() {
			switch c.Type() {
			case "case_switch_label":
				if v, ok := c.ChildByFieldName("value"); ok && v != nil {
					values = append(values, v)
				}
			case "default_switch_label":
				isDefault = true
			default:
				stmts = append(stmts, c)
			}
		}
		cases = append(cases, adapter.SwitchCase{Values: values, Body: caseArm{stmts: stmts}, IsDefault: isDefault})
	}
	adapter.LowerSwitchAsIfChain(e, subject, cases, n, false, func(body engine.Node) {
		arm, ok := body.(caseArm)
		if !ok {
			return
		}
		for _, s := range arm.stmts {
			e.LowerStmt(s)
		}
	})
}

type caseArm struct {
	node.Node
	stmts []engine.Node
}

func (a caseArm) Type() string { return "switch_arm" }
