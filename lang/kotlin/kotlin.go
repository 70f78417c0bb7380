// Package kotlin adapts the engine to Kotlin's tree-sitter grammar (spec
// §4.2.2's Kotlin row): an expression-oriented language where if/when/try
// all yield a value, lowered through the same phi-variable pattern the
// engine's ternary/ForEachAsIndexLoop helpers already generalize.
package kotlin

import (
	"strings"

	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Kotlin syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a Kotlin adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	cfg.IdentifierTypes = map[string]bool{"simple_identifier": true}
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["simple_identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["integer_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["real_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["character_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["null_literal"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["boolean_literal"] = lowerBooleanLiteral

	for _, binLike := range []string{
		"additive_expression", "multiplicative_expression", "equality_expression",
		"comparison_expression", "conjunction_expression", "disjunction_expression",
		"range_expression", "infix_expression", "elvis_expression",
	} {
		e.ExprDispatch[binLike] = (*engine.Engine).LowerBinop
	}
	e.ExprDispatch["prefix_expression"] = (*engine.Engine).LowerUnop
	e.ExprDispatch["postfix_expression"] = lowerPostfixExpression
	e.ExprDispatch["navigation_expression"] = lowerNavigationExpression
	e.ExprDispatch["indexing_expression"] = lowerIndexingExpression
	e.ExprDispatch["call_expression"] = lowerCallExpression
	e.ExprDispatch["as_expression"] = lowerAsExpression
	e.ExprDispatch["is_expression"] = lowerIsExpression
	e.ExprDispatch["if_expression"] = lowerIfExpression
	e.ExprDispatch["when_expression"] = lowerWhenExpression
	e.ExprDispatch["try_expression"] = lowerTryExpression
	e.ExprDispatch["lambda_literal"] = lowerLambdaLiteral
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized
	e.ExprDispatch["jump_expression"] = lowerJumpExpression

	e.StmtDispatch["property_declaration"] = lowerPropertyDeclaration
	e.StmtDispatch["assignment"] = lowerAssignmentStmt
	e.StmtDispatch["function_declaration"] = lowerFunctionDeclStmt
	e.StmtDispatch["class_declaration"] = lowerClassDeclStmt
	e.StmtDispatch["object_declaration"] = lowerObjectDeclaration
	e.StmtDispatch["companion_object"] = lowerObjectDeclaration
	e.StmtDispatch["enum_entry"] = lowerObjectDeclaration
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["while_statement"] = (*engine.Engine).LowerWhile

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

func lowerBooleanLiteral(e *engine.Engine, n engine.Node) string {
	if strings.EqualFold(engine.Text(n, e.Source()), "true") {
		return e.LowerCanonicalTrue(n)
	}
	return e.LowerCanonicalFalse(n)
}

// lowerPostfixExpression handles both the not-null assertion (`x!!`) and a
// postfix increment/decrement (`x++`/`x--`) — both shaped [operand, suffix]
// rather than LowerUnop's prefix [op, operand] (spec §4.2.2: "!!" as UNOP).
func lowerPostfixExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("postfix_operand", n)
	}
	operand := named[0]
	suffix := ""
	for _, c := range n.Children() {
		if c.Type() == "!!" || c.Type() == "++" || c.Type() == "--" {
			suffix = c.Type()
		}
	}
	switch suffix {
	case "++":
		return e.LowerUpdateExpr(operand, "+", n)
	case "--":
		return e.LowerUpdateExpr(operand, "-", n)
	default:
		operandReg := e.LowerExpr(operand)
		return e.Emit(ir.UNOP, []string{"!!", operandReg}, n, true)
	}
}

// lowerNavigationExpression lowers `obj.prop` to LOAD_FIELD — Kotlin's
// navigation_expression wraps the property name in a navigation_suffix
// rather than exposing a flat "attribute" field.
func lowerNavigationExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) < 2 {
		return e.Missing("navigation", n)
	}
	objReg := e.LowerExpr(named[0])
	fieldName := engine.Text(named[len(named)-1], e.Source())
	return e.Emit(ir.LOAD_FIELD, []string{objReg, fieldName}, n, true)
}

func lowerIndexingExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) < 2 {
		return e.Missing("indexing", n)
	}
	objReg := e.LowerExpr(named[0])
	idxReg := e.LowerExpr(named[1])
	return e.Emit(ir.LOAD_INDEX, []string{objReg, idxReg}, n, true)
}

// lowerCallExpression lowers `callee(args)`: a plain-identifier callee
// becomes CALL_FUNCTION, a navigation_expression callee becomes CALL_METHOD,
// anything else goes through CALL_UNKNOWN (same three-way split spec
// §4.1.4's generic LowerCall performs, reimplemented because Kotlin's
// call_expression doesn't separate "function"/"arguments" into fields).
func lowerCallExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("call_target", n)
	}
	callee := named[0]
	var argNodes []engine.Node
	if len(named) > 1 {
		last := named[len(named)-1]
		if last.Type() == "call_suffix" || last.Type() == "value_arguments" {
			argNodes = last.NamedChildren()
		}
	}
	var args []string
	for _, a := range argNodes {
		args = append(args, e.LowerExpr(a))
	}

	switch {
	case callee.Type() == "navigation_expression":
		navNamed := callee.NamedChildren()
		if len(navNamed) < 2 {
			return e.Missing("call_method_target", n)
		}
		objReg := e.LowerExpr(navNamed[0])
		methodName := engine.Text(navNamed[len(navNamed)-1], e.Source())
		operands := append([]string{objReg, methodName}, args...)
		return e.Emit(ir.CALL_METHOD, operands, n, true)
	case callee.Type() == "simple_identifier":
		operands := append([]string{engine.Text(callee, e.Source())}, args...)
		return e.Emit(ir.CALL_FUNCTION, operands, n, true)
	default:
		calleeReg := e.LowerExpr(callee)
		operands := append([]string{calleeReg}, args...)
		return e.Emit(ir.CALL_UNKNOWN, operands, n, true)
	}
}

// lowerAsExpression lowers `x as T` to `CALL_FUNCTION "as"` (spec §4.2.2).
func lowerAsExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("as_value", n)
	}
	valReg := e.LowerExpr(named[0])
	typeName := ""
	if len(named) > 1 {
		typeName = engine.Text(named[1], e.Source())
	}
	typeReg := e.Emit(ir.CONST, []string{typeName}, n, true)
	return e.Emit(ir.CALL_FUNCTION, []string{"as", valReg, typeReg}, n, true)
}

// lowerIsExpression lowers `x is T` to `CALL_FUNCTION "is"` (spec §4.2.2).
func lowerIsExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("is_value", n)
	}
	valReg := e.LowerExpr(named[0])
	typeName := ""
	if len(named) > 1 {
		typeName = engine.Text(named[1], e.Source())
	}
	typeReg := e.Emit(ir.CONST, []string{typeName}, n, true)
	return e.Emit(ir.CALL_FUNCTION, []string{"is", valReg, typeReg}, n, true)
}

// lowerIfExpression lowers Kotlin's expression-oriented if through the
// shared ternary/phi pattern (spec §4.2.2).
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

// lowerWhenExpression desugars `when` as an `==` chain (spec §4.2.2), the
// same shared pattern switch/match uses elsewhere, then loads the phi
// variable each arm stored into.
func lowerWhenExpression(e *engine.Engine, n engine.Node) string {
	subject, _ := n.ChildByFieldName("subject")
	phiVar := adapter.SyntheticName(e, "__when_result")

	var cases []adapter.SwitchCase
	for _, entry := range n.NamedChildren() {
		if entry.Type() != "when_entry" {
			continue
		}
		named := entry.NamedChildren()
		if len(named) == 0 {
			continue
		}
		isDefault := false
		var values []engine.Node
		var bodyNode engine.Node
		for _, c := range entry.Children() {
			if c.Type() == "else" {
				isDefault = true
			}
		}
		bodyNode = named[len(named)-1]
		if !isDefault {
			values = named[:len(named)-1]
		}
		cases = append(cases, adapter.SwitchCase{Values: values, Body: bodyNode, IsDefault: isDefault})
	}

	adapter.LowerSwitchAsIfChain(e, subject, cases, n, false, func(body engine.Node) {
		valReg := e.LowerExprOrMissing(body, "when_arm")
		e.Emit(ir.STORE_VAR, []string{phiVar, valReg}, n, false)
	})
	return e.Emit(ir.LOAD_VAR, []string{phiVar}, n, true)
}

// lowerTryExpression lowers Kotlin's expression-oriented try/catch the same
// way as a statement try/catch, except each block's trailing expression
// stores into a shared phi variable instead of falling off the end (spec
// §4.2.2: "expression-oriented if/when/try with phi variables").
func lowerTryExpression(e *engine.Engine, n engine.Node) string {
	body, _ := n.ChildByFieldName("body")
	phiVar := adapter.SyntheticName(e, "__try_result")

	storeLastExpr := func(b engine.Node) {
		if b == nil {
			reg := e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
			e.Emit(ir.STORE_VAR, []string{phiVar, reg}, n, false)
			return
		}
		named := b.NamedChildren()
		var last engine.Node
		if len(named) > 0 {
			last = named[len(named)-1]
			for _, s := range named[:len(named)-1] {
				e.LowerStmt(s)
			}
		}
		valReg := e.LowerExprOrMissing(last, "try_result")
		e.Emit(ir.STORE_VAR, []string{phiVar, valReg}, n, false)
	}

	var catches []engine.CatchClause
	for _, c := range n.NamedChildren() {
		if c.Type() != "catch_block" {
			continue
		}
		varName, typeName := "", ""
		if pn, ok := c.ChildByFieldName("name"); ok && pn != nil {
			varName = engine.Text(pn, e.Source())
		}
		if tn, ok := c.ChildByFieldName("type"); ok && tn != nil {
			typeName = engine.Text(tn, e.Source())
		}
		cbody, _ := c.ChildByFieldName("body")
		catches = append(catches, engine.CatchClause{Body: cbody, VarName: varName, TypeName: typeName})
	}
	var finallyNode engine.Node
	if fb, ok := n.ChildByFieldName("finally_block"); ok && fb != nil {
		finallyNode = fb
	}

	endLabel := e.FreshLabel("try_end")
	convergeTarget := endLabel
	finallyLabel := ""
	if finallyNode != nil {
		finallyLabel = e.FreshLabel("try_finally")
		convergeTarget = finallyLabel
	}

	bodyLabel := e.FreshLabel("try_body")
	e.EmitLabel(bodyLabel, n)
	storeLastExpr(body)
	e.Emit(ir.BRANCH, []string{convergeTarget}, n, false)

	for _, c := range catches {
		clauseLabel := e.FreshLabel("try_catch")
		e.EmitLabel(clauseLabel, n)
		reg := e.Emit(ir.SYMBOLIC, []string{"caught_exception:" + c.TypeName}, n, true)
		if c.VarName != "" {
			e.Emit(ir.STORE_VAR, []string{c.VarName, reg}, n, false)
		}
		storeLastExpr(c.Body)
		e.Emit(ir.BRANCH, []string{convergeTarget}, n, false)
	}

	if finallyNode != nil {
		e.EmitLabel(finallyLabel, n)
		e.LowerBlock(finallyNode)
		e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	}

	e.EmitLabel(endLabel, n)
	return e.Emit(ir.LOAD_VAR, []string{phiVar}, n, true)
}

// lowerLambdaLiteral lowers `{ params -> body }` under a synthesized name.
func lowerLambdaLiteral(e *engine.Engine, n engine.Node) string {
	name := adapter.SyntheticName(e, "__lambda")
	var paramsNode, bodyNode engine.Node
	if pn, ok := n.ChildByFieldName("parameters"); ok {
		paramsNode = pn
	}
	bodyNode, _ = n.ChildByFieldName("body")

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
	return e.Emit(ir.CONST, []string{ref}, n, true)
}

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("paren_expr", n)
	}
	return e.LowerExpr(named[0])
}

// lowerJumpExpression dispatches return/break/continue/throw by the
// keyword's own text (spec §4.2.2: "jump-expression dispatch by text
// prefix") since tree-sitter-kotlin folds all four into one node type.
func lowerJumpExpression(e *engine.Engine, n engine.Node) string {
	text := engine.Text(n, e.Source())
	named := n.NamedChildren()
	switch {
	case strings.HasPrefix(text, "return"):
		if len(named) > 0 {
			e.LowerReturn(named[0], n)
		} else {
			e.LowerReturn(nil, n)
		}
	case strings.HasPrefix(text, "break"):
		e.LowerBreak(n)
	case strings.HasPrefix(text, "continue"):
		e.LowerContinue(n)
	case strings.HasPrefix(text, "throw"):
		var valReg string
		if len(named) > 0 {
			valReg = e.LowerExpr(named[0])
		} else {
			valReg = e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
		}
		e.Emit(ir.THROW, []string{valReg}, n, false)
	}
	return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
}

func lowerPropertyDeclaration(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	valueNode, ok := n.ChildByFieldName("value")
	if !ok || valueNode == nil {
		return
	}
	valReg := e.LowerExpr(valueNode)
	e.LowerStoreTarget(nameNode, valReg, n)
}

func lowerAssignmentStmt(e *engine.Engine, n engine.Node) {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	valReg := e.LowerExprOrMissing(right, "assign_value")
	e.LowerStoreTarget(left, valReg, n)
}

func lowerFunctionDeclStmt(e *engine.Engine, n engine.Node) { e.LowerFunctionDef(n) }
func lowerClassDeclStmt(e *engine.Engine, n engine.Node)    { e.LowerClassDef(n) }

// lowerObjectDeclaration lowers `object Foo { ... }` and companion objects
// the same way an enum entry lowers: as a singleton NEW_OBJECT tagged
// "enum:Foo" (spec §4.2.2: "object/companion/enum-entry as NEW_OBJECT
// enum:...").
func lowerObjectDeclaration(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "object")
	bodyNode, _ := n.ChildByFieldName("body")

	reg := e.Emit(ir.NEW_OBJECT, []string{"enum:" + name}, n, true)
	if bodyNode != nil {
		e.LowerBlock(bodyNode)
	}
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func lowerForStatement(e *engine.Engine, n engine.Node) {
	varNode, _ := n.ChildByFieldName("variable")
	iterNode, _ := n.ChildByFieldName("iterator")
	bodyNode, _ := n.ChildByFieldName("body")
	adapter.ForEachAsIndexLoop(e, iterNode, bodyNode, n,
		func(elemReg, idxReg string) { e.LowerStoreTarget(varNode, elemReg, n) },
		func(b engine.Node) { e.LowerBlock(b) },
	)
}
