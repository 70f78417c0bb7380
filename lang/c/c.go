// Package c adapts the engine to C's tree-sitter grammar (spec §4.2.2's C
// row). The `"0"` canonical default-value literal (rather than `None`)
// matches C having no null-object type of its own; pointer handling and the
// preprocessor's noise nodes are this grammar's distinguishing concerns.
package c

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers C syntax trees.
type Adapter struct {
	*engine.Engine
}

// Config returns C's engine configuration. Exported so cpp, which extends C
// by explicit delegation (spec §9), can build on the same base instead of
// duplicating it.
func Config() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.NoneLiteral = "0"
	cfg.DefaultReturnValue = "0"
	cfg.FuncBodyField = "body"
	cfg.NoiseTypes = map[string]bool{
		"preproc_include": true, "preproc_def": true, "preproc_function_def": true,
		"preproc_ifdef": true, "preproc_if": true, "preproc_else": true,
		"preproc_endif": true, "preproc_call": true,
	}
	return cfg
}

// New constructs a C adapter with its dispatch tables populated.
func New() *Adapter {
	e := engine.New(Config())
	a := &Adapter{Engine: e}
	Wire(e)
	return a
}

// Wire populates e's dispatch tables with C's handlers. Exported so cpp can
// call it before layering its own overrides on top (spec §9).
func Wire(e *engine.Engine) {
	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["number_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["char_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["null"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary_expression"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["unary_expression"] = lowerUnaryExpression
	e.ExprDispatch["update_expression"] = lowerUpdateExpression
	e.ExprDispatch["pointer_expression"] = lowerPointerExpression
	e.ExprDispatch["assignment_expression"] = lowerAssignmentExpression
	e.ExprDispatch["field_expression"] = lowerFieldExpression
	e.ExprDispatch["subscript_expression"] = lowerSubscriptExpression
	e.ExprDispatch["call_expression"] = lowerCallExpression
	e.ExprDispatch["sizeof_expression"] = lowerSizeofExpression
	e.ExprDispatch["cast_expression"] = lowerCastExpression
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized
	e.ExprDispatch["comma_expression"] = lowerCommaExpression

	e.StmtDispatch["if_statement"] = (*engine.Engine).LowerIf
	e.StmtDispatch["while_statement"] = (*engine.Engine).LowerWhile
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["do_statement"] = lowerDoStatement
	e.StmtDispatch["return_statement"] = lowerReturnStatement
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["continue_statement"] = (*engine.Engine).LowerContinue
	e.StmtDispatch["goto_statement"] = lowerGotoStatement
	e.StmtDispatch["labeled_statement"] = lowerLabeledStatement
	e.StmtDispatch["declaration"] = lowerDeclaration
	e.StmtDispatch["expression_statement"] = lowerExpressionStatement
	e.StmtDispatch["switch_statement"] = lowerSwitchStatement
	e.StmtDispatch["function_definition"] = lowerFunctionDefinition
	e.StmtDispatch["struct_specifier"] = lowerStructOrUnion
	e.StmtDispatch["union_specifier"] = lowerStructOrUnion
	e.StmtDispatch["enum_specifier"] = lowerEnumSpecifier

	e.StoreTargetOverride = lowerStoreTargetOverride
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

// lowerUnaryExpression handles `&x`, `-x`, `!x`, `~x`, `+x`. Address-of
// lowers to `UNOP "&"` (spec §4.2.2); the rest pass their operator text
// through verbatim.
func lowerUnaryExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("unary_operand", n)
	}
	operand := named[0]
	opText := "&"
	for _, c := range n.Children() {
		t := c.Type()
		if t == "&" || t == "-" || t == "!" || t == "~" || t == "+" {
			opText = t
		}
	}
	operandReg := e.LowerExpr(operand)
	return e.Emit(ir.UNOP, []string{opText, operandReg}, n, true)
}

func lowerUpdateExpression(e *engine.Engine, n engine.Node) string {
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

// lowerPointerExpression lowers `*p` (dereference) to LOAD_FIELD with the
// sentinel field name "*" (spec §4.2.2). `p` is assumed to be the operand;
// `&` prefix is handled separately by lowerUnaryExpression.
func lowerPointerExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("deref_operand", n)
	}
	ptrReg := e.LowerExpr(named[0])
	return e.Emit(ir.LOAD_FIELD, []string{ptrReg, "*"}, n, true)
}

func lowerAssignmentExpression(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	valReg := e.LowerExprOrMissing(right, "assign_value")
	e.LowerStoreTarget(left, valReg, n)
	return valReg
}

func lowerFieldExpression(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("argument")
	fieldNode, _ := n.ChildByFieldName("field")
	objReg := e.LowerExprOrMissing(objNode, "field_object")
	return e.Emit(ir.LOAD_FIELD, []string{objReg, engine.Text(fieldNode, e.Source())}, n, true)
}

func lowerSubscriptExpression(e *engine.Engine, n engine.Node) string {
	arrNode, _ := n.ChildByFieldName("argument")
	idxNode, _ := n.ChildByFieldName("index")
	arrReg := e.LowerExprOrMissing(arrNode, "array_value")
	idxReg := e.LowerExprOrMissing(idxNode, "array_index")
	return e.Emit(ir.LOAD_INDEX, []string{arrReg, idxReg}, n, true)
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
	if calleeNode != nil && calleeNode.Type() == "identifier" {
		operands := append([]string{engine.Text(calleeNode, e.Source())}, args...)
		return e.Emit(ir.CALL_FUNCTION, operands, n, true)
	}
	calleeReg := e.LowerExprOrMissing(calleeNode, "call_target")
	operands := append([]string{calleeReg}, args...)
	return e.Emit(ir.CALL_UNKNOWN, operands, n, true)
}

// lowerSizeofExpression lowers `sizeof(x)`/`sizeof(T)` to `CALL_FUNCTION
// "sizeof"` (spec §4.2.2).
func lowerSizeofExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	var argReg string
	if len(named) > 0 {
		argReg = e.Emit(ir.CONST, []string{engine.Text(named[0], e.Source())}, n, true)
	} else {
		argReg = e.Emit(ir.CONST, []string{engine.Text(n, e.Source())}, n, true)
	}
	return e.Emit(ir.CALL_FUNCTION, []string{"sizeof", argReg}, n, true)
}

// lowerCastExpression is transparent: the cast changes nothing at runtime.
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

// lowerCommaExpression lowers `a, b` by evaluating both and returning b's
// register, C's own left-to-right comma-operator semantics.
func lowerCommaExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("comma_expr", n)
	}
	var last string
	for _, c := range named {
		last = e.LowerExpr(c)
	}
	return last
}

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

// lowerDoStatement lowers `do { body } while (cond)` as a body-then-test
// loop, reusing LowerWhile's label shape but entering the body unconditionally.
func lowerDoStatement(e *engine.Engine, n engine.Node) {
	bodyNode, _ := n.ChildByFieldName("body")
	condNode, _ := n.ChildByFieldName("condition")

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

func lowerReturnStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	var valueNode engine.Node
	if len(named) > 0 {
		valueNode = named[0]
	}
	e.LowerReturn(valueNode, n)
}

// lowerGotoStatement branches to a user-defined label, prefixed "user_" so it
// can never collide with a compiler-generated label (spec §4.2.2).
func lowerGotoStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	if len(named) == 0 {
		return
	}
	labelName := engine.Text(named[0], e.Source())
	e.Emit(ir.BRANCH, []string{"user_" + labelName}, n, false)
}

// lowerLabeledStatement emits a LABEL named "user_<label>" before lowering
// the labeled statement (spec §4.2.2).
func lowerLabeledStatement(e *engine.Engine, n engine.Node) {
	labelNode, _ := n.ChildByFieldName("label")
	stmtNode, _ := n.ChildByFieldName("statement")
	labelName := "user_" + engine.Text(labelNode, e.Source())
	e.EmitLabel(labelName, n)
	e.LowerStmt(stmtNode)
}

func lowerDeclaration(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		if c.Type() != "init_declarator" {
			continue
		}
		declNode, _ := c.ChildByFieldName("declarator")
		valueNode, ok := c.ChildByFieldName("value")
		if !ok || valueNode == nil {
			continue
		}
		valReg := e.LowerExpr(valueNode)
		e.LowerStoreTarget(declNode, valReg, c)
	}
}

func lowerExpressionStatement(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		e.LowerStmt(c)
	}
}

// lowerSwitchStatement desugars switch as an `==` chain with no fall-through
// modeled (spec §4.2.2's explicit "no fall-through" note): each
// `case_statement`'s own trailing statements become its arm body.
func lowerSwitchStatement(e *engine.Engine, n engine.Node) {
	subject, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")
	var cases []adapter.SwitchCase
	if bodyNode != nil {
		for _, c := range bodyNode.NamedChildren() {
			if c.Type() != "case_statement" {
				continue
			}
			valueNode, hasValue := c.ChildByFieldName("value")
			isDefault := !hasValue || valueNode == nil
			var values []engine.Node
			if !isDefault {
				values = []engine.Node{valueNode}
			}
			var stmts []engine.Node
			for _, s := range c.NamedChildren() {
				if s == valueNode {
					continue
				}
				stmts = append(stmts, s)
			}
			cases = append(cases, adapter.SwitchCase{Values: values, Body: caseArm{stmts: stmts}, IsDefault: isDefault})
		}
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

func (a caseArm) Type() string { return "case_arm" }

func lowerFunctionDefinition(e *engine.Engine, n engine.Node) {
	declarator, _ := n.ChildByFieldName("declarator")
	name, paramsNode := extractFuncIdentity(e, declarator)
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
	ref := "<function:" + name + "@" + funcLabel + ">"
	reg := e.Emit(ir.CONST, []string{ref}, n, true)
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

// extractFuncIdentity walks a function_declarator to find its name
// identifier and parameter list, since C's declarator grammar nests the
// name under pointer/array wrappers rather than exposing it as a flat field.
func extractFuncIdentity(e *engine.Engine, declarator engine.Node) (string, engine.Node) {
	if declarator == nil {
		return "__anon_func", nil
	}
	if declarator.Type() == "function_declarator" {
		nameNode, _ := declarator.ChildByFieldName("declarator")
		paramsNode, _ := declarator.ChildByFieldName("parameters")
		name := "__anon_func"
		if nameNode != nil {
			if nameNode.Type() == "identifier" {
				name = engine.Text(nameNode, e.Source())
			} else {
				n2, p2 := extractFuncIdentity(e, nameNode)
				if n2 != "" {
					name = n2
				}
				if p2 != nil {
					paramsNode = p2
				}
			}
		}
		return name, paramsNode
	}
	named := declarator.NamedChildren()
	if len(named) > 0 {
		return extractFuncIdentity(e, named[0])
	}
	return engine.Text(declarator, e.Source()), nil
}

func lowerStructOrUnion(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "struct")
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

// lowerEnumSpecifier lowers each member as STORE_FIELD on a shared enum
// object (spec §4.2.2), at sequential integer values starting from 0.
func lowerEnumSpecifier(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "enum")
	bodyNode, _ := n.ChildByFieldName("body")

	reg := e.Emit(ir.NEW_OBJECT, []string{"enum:" + name}, n, true)
	if bodyNode != nil {
		idx := 0
		for _, member := range bodyNode.NamedChildren() {
			if member.Type() != "enumerator" {
				continue
			}
			memberNameNode, _ := member.ChildByFieldName("name")
			memberName := engine.Text(memberNameNode, e.Source())
			var valReg string
			if valueNode, ok := member.ChildByFieldName("value"); ok && valueNode != nil {
				valReg = e.LowerExpr(valueNode)
			} else {
				valReg = e.Emit(ir.CONST, []string{strconvItoa(idx)}, member, true)
			}
			e.Emit(ir.STORE_FIELD, []string{reg, memberName, valReg}, member, false)
			idx++
		}
	}
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func strconvItoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	if neg {
		digits = "-" + digits
	}
	return digits
}

// lowerStoreTargetOverride handles C's pointer-dereference assignment target
// `*p = v`, storing through the sentinel "*" field name (spec §4.2.2).
func lowerStoreTargetOverride(e *engine.Engine, target engine.Node, valReg string, parent engine.Node) bool {
	if target.Type() != "pointer_expression" {
		return false
	}
	named := target.NamedChildren()
	if len(named) == 0 {
		return false
	}
	ptrReg := e.LowerExpr(named[0])
	e.Emit(ir.STORE_FIELD, []string{ptrReg, "*", valReg}, target, false)
	return true
}
