// Package scala adapts the engine to Scala's tree-sitter grammar (spec
// §4.2.2's Scala row). Scala is unit-typed (`()` rather than `None`/`null`)
// and almost everything is an expression, so blocks return the register of
// their last expression instead of falling through to an implicit return.
package scala

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Scala syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a Scala adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	cfg.NoneLiteral = "()"
	cfg.TrueLiteral = "true"
	cfg.FalseLiteral = "false"
	cfg.DefaultReturnValue = "()"
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["integer_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["floating_point_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["character_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["infix_expression"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["prefix_expression"] = (*engine.Engine).LowerUnop
	e.ExprDispatch["field_expression"] = lowerFieldExpression
	e.ExprDispatch["call_expression"] = lowerCallExpression
	e.ExprDispatch["instance_expression"] = lowerInstanceExpression
	e.ExprDispatch["block"] = lowerBlockExpr
	e.ExprDispatch["if_expression"] = lowerIfExpression
	e.ExprDispatch["match_expression"] = lowerMatchExpression
	e.ExprDispatch["for_expression"] = lowerForExpression
	e.ExprDispatch["throw_expression"] = lowerThrowExpression
	e.ExprDispatch["tuple_expression"] = lowerTupleExpression
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized

	e.StmtDispatch["val_definition"] = lowerValDefinition
	e.StmtDispatch["var_definition"] = lowerValDefinition
	e.StmtDispatch["assignment_expression"] = lowerAssignment
	e.StmtDispatch["function_definition"] = lowerFunctionDef
	e.StmtDispatch["class_definition"] = lowerClassLike
	e.StmtDispatch["trait_definition"] = lowerClassLike
	e.StmtDispatch["object_definition"] = lowerClassLike
	e.StmtDispatch["while_expression"] = (*engine.Engine).LowerWhile

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

func lowerFieldExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) < 2 {
		return e.Missing("field_expr", n)
	}
	objReg := e.LowerExpr(named[0])
	fieldName := engine.Text(named[len(named)-1], e.Source())
	return e.Emit(ir.LOAD_FIELD, []string{objReg, fieldName}, n, true)
}

func lowerCallExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("call_target", n)
	}
	callee := named[0]
	var argNodes []engine.Node
	if len(named) > 1 {
		last := named[len(named)-1]
		if last.Type() == "arguments" {
			argNodes = last.NamedChildren()
		}
	}
	var args []string
	for _, a := range argNodes {
		args = append(args, e.LowerExpr(a))
	}
	switch {
	case callee.Type() == "field_expression":
		fn := callee.NamedChildren()
		if len(fn) < 2 {
			return e.Missing("call_method_target", n)
		}
		objReg := e.LowerExpr(fn[0])
		methodName := engine.Text(fn[len(fn)-1], e.Source())
		operands := append([]string{objReg, methodName}, args...)
		return e.Emit(ir.CALL_METHOD, operands, n, true)
	case callee.Type() == "identifier":
		operands := append([]string{engine.Text(callee, e.Source())}, args...)
		return e.Emit(ir.CALL_FUNCTION, operands, n, true)
	default:
		calleeReg := e.LowerExpr(callee)
		operands := append([]string{calleeReg}, args...)
		return e.Emit(ir.CALL_UNKNOWN, operands, n, true)
	}
}

// lowerInstanceExpression lowers `new Foo(args)`.
func lowerInstanceExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("new_target", n)
	}
	typeName := engine.Text(named[0], e.Source())
	objReg := e.Emit(ir.NEW_OBJECT, []string{typeName}, n, true)
	var args []string
	if len(named) > 1 {
		last := named[len(named)-1]
		if last.Type() == "arguments" {
			for _, a := range last.NamedChildren() {
				args = append(args, e.LowerExpr(a))
			}
		}
	}
	operands := append([]string{objReg, "__init__"}, args...)
	e.Emit(ir.CALL_METHOD, operands, n, true)
	return objReg
}

// lowerBlockExpr lowers a `{ ...; lastExpr }` block, returning the register
// of its last expression (spec §4.2.2's "expression-blocks return last
// expression's register") — every statement before it lowers for effect only.
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

// lowerIfExpression is Scala's expression-oriented if, phi'd the same way
// Kotlin's is (spec §4.2.2 generalizes the pattern across both languages).
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

// lowerMatchExpression desugars `match` as an `==` chain against each case
// clause's pattern (spec §4.2.2), storing each arm's result into a phi
// variable the way Kotlin's `when` does.
func lowerMatchExpression(e *engine.Engine, n engine.Node) string {
	subject, _ := n.ChildByFieldName("value")
	phiVar := adapter.SyntheticName(e, "__match_result")

	var cases []adapter.SwitchCase
	for _, c := range n.NamedChildren() {
		if c.Type() != "case_clause" {
			continue
		}
		patternNode, _ := c.ChildByFieldName("pattern")
		bodyNode, _ := c.ChildByFieldName("body")
		isDefault := patternNode != nil && patternNode.Type() == "wildcard_pattern"
		var values []engine.Node
		if !isDefault && patternNode != nil {
			values = []engine.Node{patternNode}
		}
		cases = append(cases, adapter.SwitchCase{Values: values, Body: bodyNode, IsDefault: isDefault})
	}

	adapter.LowerSwitchAsIfChain(e, subject, cases, n, false, func(body engine.Node) {
		valReg := e.LowerExprOrMissing(body, "match_arm")
		e.Emit(ir.STORE_VAR, []string{phiVar, valReg}, n, false)
	})
	return e.Emit(ir.LOAD_VAR, []string{phiVar}, n, true)
}

// lowerForExpression desugars a for-comprehension into explicit
// `CALL_FUNCTION "iter"`/`"next"` calls over its generator, with any guard
// lowered as a conditional branch back to the next iteration (spec §4.2.2).
func lowerForExpression(e *engine.Engine, n engine.Node) string {
	var iterNode, varNode, guardNode, bodyNode engine.Node
	enumerators, _ := n.ChildByFieldName("enumerators")
	if enumerators != nil {
		for _, c := range enumerators.NamedChildren() {
			switch c.Type() {
			case "generator":
				if v, ok := c.ChildByFieldName("pattern"); ok {
					varNode = v
				}
				if v, ok := c.ChildByFieldName("value"); ok {
					iterNode = v
				}
			case "guard":
				named := c.NamedChildren()
				if len(named) > 0 {
					guardNode = named[0]
				}
			}
		}
	}
	bodyNode, _ = n.ChildByFieldName("body")

	sourceReg := e.LowerExprOrMissing(iterNode, "for_source")
	iterReg := e.Emit(ir.CALL_FUNCTION, []string{"iter", sourceReg}, n, true)
	resultsReg := e.LowerListLiteral(nil, "list", n)

	condLabel := e.FreshLabel("forcomp_cond")
	bodyLabel := e.FreshLabel("forcomp_body")
	skipLabel := e.FreshLabel("forcomp_skip")
	endLabel := e.FreshLabel("forcomp_end")

	e.EmitLabel(condLabel, n)
	hasNextReg := e.Emit(ir.CALL_FUNCTION, []string{"has_next", iterReg}, n, true)
	e.Emit(ir.BRANCH_IF, []string{hasNextReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(bodyLabel, n)
	elemReg := e.Emit(ir.CALL_FUNCTION, []string{"next", iterReg}, n, true)
	if varNode != nil {
		e.LowerStoreTarget(varNode, elemReg, n)
	}
	if guardNode != nil {
		guardReg := e.LowerExpr(guardNode)
		keepLabel := e.FreshLabel("forcomp_keep")
		e.Emit(ir.BRANCH_IF, []string{guardReg, ir.JoinBranchTargets(keepLabel, skipLabel)}, n, false)
		e.EmitLabel(keepLabel, n)
	}
	valReg := e.LowerExprOrMissing(bodyNode, "forcomp_body")
	sizeReg := e.Emit(ir.CALL_FUNCTION, []string{"len", resultsReg}, n, true)
	e.Emit(ir.STORE_INDEX, []string{resultsReg, sizeReg, valReg}, n, false)
	e.Emit(ir.BRANCH, []string{skipLabel}, n, false)

	e.EmitLabel(skipLabel, n)
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)

	e.EmitLabel(endLabel, n)
	return resultsReg
}

// lowerThrowExpression is expression-typed: it yields a register like any
// other expression even though control never falls through (spec §4.2.2).
func lowerThrowExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	var valReg string
	if len(named) > 0 {
		valReg = e.LowerExpr(named[0])
	} else {
		valReg = e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
	}
	e.Emit(ir.THROW, []string{valReg}, n, false)
	return e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
}

func lowerTupleExpression(e *engine.Engine, n engine.Node) string {
	return e.LowerListLiteral(n.NamedChildren(), "tuple", n)
}

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("paren_expr", n)
	}
	return e.LowerExpr(named[0])
}

func lowerValDefinition(e *engine.Engine, n engine.Node) {
	patternNode, _ := n.ChildByFieldName("pattern")
	valueNode, ok := n.ChildByFieldName("value")
	if !ok || valueNode == nil {
		return
	}
	valReg := e.LowerExpr(valueNode)
	e.LowerStoreTarget(patternNode, valReg, n)
}

func lowerAssignment(e *engine.Engine, n engine.Node) {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	valReg := e.LowerExprOrMissing(right, "assign_value")
	e.LowerStoreTarget(left, valReg, n)
}

func lowerFunctionDef(e *engine.Engine, n engine.Node) { e.LowerFunctionDef(n) }

// lowerClassLike lowers classes, traits, and objects/case-classes through
// the same generic class shape (spec §4.2.2: "traits/objects/case-classes
// share class lowering").
func lowerClassLike(e *engine.Engine, n engine.Node) { e.LowerClassDef(n) }
