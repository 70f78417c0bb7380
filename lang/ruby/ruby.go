// Package ruby adapts the engine to Ruby's tree-sitter grammar (spec
// §4.2.2's Ruby row).
package ruby

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Ruby syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a Ruby adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	cfg.NoneLiteral = "None"
	cfg.IdentifierTypes = map[string]bool{
		"identifier": true, "instance_variable": true,
		"class_variable": true, "global_variable": true, "constant": true,
	}
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["instance_variable"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["class_variable"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["global_variable"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["constant"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["integer"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["float"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["symbol"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["nil"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary"] = lowerBinary
	e.ExprDispatch["unary"] = lowerUnary
	e.ExprDispatch["assignment"] = lowerAssignment
	e.ExprDispatch["operator_assignment"] = lowerOperatorAssignment
	e.ExprDispatch["call"] = lowerCall
	e.ExprDispatch["element_reference"] = lowerElementReference
	e.ExprDispatch["parenthesized_statements"] = lowerParenthesized
	e.ExprDispatch["conditional"] = lowerTernaryConditional
	e.ExprDispatch["if_modifier"] = lowerIfModifier
	e.ExprDispatch["unless_modifier"] = lowerUnlessModifier

	e.StmtDispatch["if"] = (*engine.Engine).LowerIf
	e.StmtDispatch["unless"] = lowerUnless
	e.StmtDispatch["while"] = (*engine.Engine).LowerWhile
	e.StmtDispatch["until"] = lowerUntil
	e.StmtDispatch["while_modifier"] = lowerWhileModifier
	e.StmtDispatch["until_modifier"] = lowerUntilModifier
	e.StmtDispatch["if_modifier"] = lowerIfModifierStmt
	e.StmtDispatch["unless_modifier"] = lowerUnlessModifierStmt
	e.StmtDispatch["break"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["next"] = (*engine.Engine).LowerContinue
	e.StmtDispatch["return"] = lowerReturn
	e.StmtDispatch["method"] = lowerMethod
	e.StmtDispatch["singleton_method"] = lowerMethod
	e.StmtDispatch["class"] = lowerClassLike
	e.StmtDispatch["module"] = lowerClassLike
	e.StmtDispatch["begin"] = lowerBegin
	e.StmtDispatch["case"] = lowerCaseStatement

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
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
	operandNode, _ := n.ChildByFieldName("operand")
	opNode, _ := n.ChildByFieldName("operator")
	operandReg := e.LowerExprOrMissing(operandNode, "unary_operand")
	op := "?"
	if opNode != nil {
		op = engine.Text(opNode, e.Source())
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

func lowerOperatorAssignment(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	opNode, _ := n.ChildByFieldName("operator")
	right, _ := n.ChildByFieldName("right")
	leftReg := e.LowerExprOrMissing(left, "opassign_left")
	rightReg := e.LowerExprOrMissing(right, "opassign_right")
	opText := "?"
	if opNode != nil {
		opText = engine.Text(opNode, e.Source())
	}
	baseOp := trimTrailingEquals(opText)
	valReg := e.Emit(ir.BINOP, []string{baseOp, leftReg, rightReg}, n, true)
	e.LowerStoreTarget(left, valReg, n)
	return valReg
}

func trimTrailingEquals(op string) string {
	if len(op) > 1 && op[len(op)-1] == '=' {
		return op[:len(op)-1]
	}
	return op
}

// lowerCall lowers method calls, handling a `block`/`do_block` child (spec
// §4.2.2) by lowering it as an anonymous function and passing it as an
// extra argument to the call.
func lowerCall(e *engine.Engine, n engine.Node) string {
	receiverNode, hasReceiver := n.ChildByFieldName("receiver")
	methodNode, _ := n.ChildByFieldName("method")
	argsNode, _ := n.ChildByFieldName("arguments")

	var args []string
	if argsNode != nil {
		for _, a := range argsNode.NamedChildren() {
			args = append(args, e.LowerExpr(a))
		}
	}
	if blockNode, ok := findBlockChild(n); ok {
		args = append(args, lowerBlockAsFunction(e, blockNode))
	}

	methodName := "call"
	if methodNode != nil {
		methodName = engine.Text(methodNode, e.Source())
	}

	if hasReceiver && receiverNode != nil {
		receiverReg := e.LowerExpr(receiverNode)
		operands := append([]string{receiverReg, methodName}, args...)
		return e.Emit(ir.CALL_METHOD, operands, n, true)
	}
	operands := append([]string{methodName}, args...)
	return e.Emit(ir.CALL_FUNCTION, operands, n, true)
}

func findBlockChild(n engine.Node) (engine.Node, bool) {
	for _, c := range n.NamedChildren() {
		if c.Type() == "block" || c.Type() == "do_block" {
			return c, true
		}
	}
	return nil, false
}

func lowerBlockAsFunction(e *engine.Engine, blockNode engine.Node) string {
	name := adapter.SyntheticName(e, "__block")
	paramsNode, _ := blockNode.ChildByFieldName("parameters")
	bodyNode, _ := blockNode.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, blockNode, false)
	e.EmitLabel(funcLabel, blockNode)
	if paramsNode != nil {
		e.LowerParams(paramsNode)
	}
	if bodyNode != nil {
		e.LowerBlock(bodyNode)
	}
	e.EmitImplicitReturn(blockNode)
	e.EmitLabel(endLabel, blockNode)
	return e.Emit(ir.CONST, []string{"<function:" + name + "@" + funcLabel + ">"}, blockNode, true)
}

func lowerElementReference(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("object")
	named := n.NamedChildren()
	objReg := e.LowerExprOrMissing(objNode, "index_object")
	var idxReg string
	if len(named) > 1 {
		idxReg = e.LowerExpr(named[1])
	} else {
		idxReg = e.Missing("index_value", n)
	}
	return e.Emit(ir.LOAD_INDEX, []string{objReg, idxReg}, n, true)
}

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	var last string
	for _, c := range named {
		last = e.LowerExpr(c)
	}
	if last == "" {
		return e.Missing("paren_expr", n)
	}
	return last
}

func lowerTernaryConditional(e *engine.Engine, n engine.Node) string {
	condNode, _ := n.ChildByFieldName("condition")
	trueNode, _ := n.ChildByFieldName("consequence")
	falseNode, _ := n.ChildByFieldName("alternative")
	return adapter.LowerTernary(e, condNode,
		func() string { return e.LowerExprOrMissing(trueNode, "ternary_true") },
		func() string { return e.LowerExprOrMissing(falseNode, "ternary_false") },
		n, "__ternary")
}

// lowerIfModifier lowers `expr if cond` as an expression (spec §4.2.2's
// modifier-form if/unless/while/until): the body runs only when the
// condition is true, and the whole thing still yields a value via phi.
func lowerIfModifier(e *engine.Engine, n engine.Node) string {
	bodyNode, _ := n.ChildByFieldName("body")
	condNode, _ := n.ChildByFieldName("condition")
	return adapter.LowerTernary(e, condNode,
		func() string { return e.LowerExprOrMissing(bodyNode, "modifier_body") },
		func() string { return e.Emit(ir.CONST, []string{"None"}, n, true) },
		n, "__if_mod")
}

// lowerUnlessModifier lowers `expr unless cond` by negating the condition
// with `UNOP "!"` (spec §4.2.2) and reusing the if-modifier shape.
func lowerUnlessModifier(e *engine.Engine, n engine.Node) string {
	bodyNode, _ := n.ChildByFieldName("body")
	condNode, _ := n.ChildByFieldName("condition")
	negatedCond := func() string {
		condReg := e.LowerExprOrMissing(condNode, "modifier_condition")
		return e.Emit(ir.UNOP, []string{"!", condReg}, n, true)
	}
	phiVar := adapter.SyntheticName(e, "__unless_mod")
	trueLabel := e.FreshLabel("unless_mod_true")
	falseLabel := e.FreshLabel("unless_mod_false")
	endLabel := e.FreshLabel("unless_mod_end")

	condReg := negatedCond()
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(trueLabel, falseLabel)}, n, false)
	e.EmitLabel(trueLabel, n)
	bodyReg := e.LowerExprOrMissing(bodyNode, "modifier_body")
	e.Emit(ir.STORE_VAR, []string{phiVar, bodyReg}, n, false)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(falseLabel, n)
	noneReg := e.Emit(ir.CONST, []string{"None"}, n, true)
	e.Emit(ir.STORE_VAR, []string{phiVar, noneReg}, n, false)
	e.EmitLabel(endLabel, n)
	return e.Emit(ir.LOAD_VAR, []string{phiVar}, n, true)
}

// lowerUnless lowers `unless cond ... else ... end` as an ordinary if with
// the condition negated via UNOP "!" (spec §4.2.2).
func lowerUnless(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	consequenceNode, _ := n.ChildByFieldName("consequence")
	alternativeNode, hasAlt := n.ChildByFieldName("alternative")

	condReg := e.LowerExprOrMissing(condNode, "unless_condition")
	negReg := e.Emit(ir.UNOP, []string{"!", condReg}, n, true)

	trueLabel := e.FreshLabel("unless_true")
	falseLabel := e.FreshLabel("unless_false")
	endLabel := e.FreshLabel("unless_end")
	e.Emit(ir.BRANCH_IF, []string{negReg, ir.JoinBranchTargets(trueLabel, falseLabel)}, n, false)

	e.EmitLabel(trueLabel, n)
	e.LowerBlock(consequenceNode)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)

	e.EmitLabel(falseLabel, n)
	if hasAlt && alternativeNode != nil {
		e.LowerBlock(alternativeNode)
	}
	e.EmitLabel(endLabel, n)
}

// lowerUntil lowers `until cond ... end` as a while with the condition
// negated (spec §4.2.2).
func lowerUntil(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")

	condLabel := e.FreshLabel("until_cond")
	bodyLabel := e.FreshLabel("until_body")
	endLabel := e.FreshLabel("until_end")

	e.EmitLabel(condLabel, n)
	condReg := e.LowerExprOrMissing(condNode, "until_condition")
	negReg := e.Emit(ir.UNOP, []string{"!", condReg}, n, true)
	e.Emit(ir.BRANCH_IF, []string{negReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(condLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)

	e.EmitLabel(endLabel, n)
}

func lowerWhileModifier(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")

	condLabel := e.FreshLabel("while_mod_cond")
	bodyLabel := e.FreshLabel("while_mod_body")
	endLabel := e.FreshLabel("while_mod_end")

	e.EmitLabel(condLabel, n)
	condReg := e.LowerExprOrMissing(condNode, "while_mod_condition")
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(condLabel, endLabel)
	e.LowerStmt(bodyNode)
	e.PopLoop()
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)

	e.EmitLabel(endLabel, n)
}

func lowerUntilModifier(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")

	condLabel := e.FreshLabel("until_mod_cond")
	bodyLabel := e.FreshLabel("until_mod_body")
	endLabel := e.FreshLabel("until_mod_end")

	e.EmitLabel(condLabel, n)
	condReg := e.LowerExprOrMissing(condNode, "until_mod_condition")
	negReg := e.Emit(ir.UNOP, []string{"!", condReg}, n, true)
	e.Emit(ir.BRANCH_IF, []string{negReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(condLabel, endLabel)
	e.LowerStmt(bodyNode)
	e.PopLoop()
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)

	e.EmitLabel(endLabel, n)
}

func lowerIfModifierStmt(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")

	trueLabel := e.FreshLabel("if_mod_true")
	endLabel := e.FreshLabel("if_mod_end")
	condReg := e.LowerExprOrMissing(condNode, "if_mod_condition")
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(trueLabel, endLabel)}, n, false)
	e.EmitLabel(trueLabel, n)
	e.LowerStmt(bodyNode)
	e.EmitLabel(endLabel, n)
}

func lowerUnlessModifierStmt(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")

	condReg := e.LowerExprOrMissing(condNode, "unless_mod_condition")
	negReg := e.Emit(ir.UNOP, []string{"!", condReg}, n, true)

	trueLabel := e.FreshLabel("unless_mod_true")
	endLabel := e.FreshLabel("unless_mod_end")
	e.Emit(ir.BRANCH_IF, []string{negReg, ir.JoinBranchTargets(trueLabel, endLabel)}, n, false)
	e.EmitLabel(trueLabel, n)
	e.LowerStmt(bodyNode)
	e.EmitLabel(endLabel, n)
}

func lowerReturn(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	var valueNode engine.Node
	if len(named) > 0 {
		valueNode = named[0]
	}
	e.LowerReturn(valueNode, n)
}

func lowerMethod(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "method")
	if name == "initialize" {
		name = "__init__"
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

// lowerClassLike shares one lowering between `class` and `module` (spec
// §4.2.2: "modules share class shape").
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

// lowerBegin lowers `begin/rescue/else/ensure/end` through the engine's
// uniform try-catch shape (spec §4.2.2).
func lowerBegin(e *engine.Engine, n engine.Node) {
	var bodyStmts []engine.Node
	var catches []engine.CatchClause
	var elseNode, ensureNode engine.Node

	for _, c := range n.NamedChildren() {
		switch c.Type() {
		case "rescue":
			var excType, excVar string
			if exceptions, ok := c.ChildByFieldName("exceptions"); ok && exceptions != nil {
				named := exceptions.NamedChildren()
				if len(named) > 0 {
					excType = engine.Text(named[0], e.Source())
				}
			}
			if v, ok := c.ChildByFieldName("variable"); ok && v != nil {
				excVar = engine.Text(v, e.Source())
			}
			body, _ := c.ChildByFieldName("body")
			catches = append(catches, engine.CatchClause{TypeName: excType, VarName: excVar, Body: body})
		case "else":
			b, _ := c.ChildByFieldName("body")
			elseNode = b
			if elseNode == nil {
				elseNode = c
			}
		case "ensure":
			b, _ := c.ChildByFieldName("body")
			ensureNode = b
			if ensureNode == nil {
				ensureNode = c
			}
		default:
			bodyStmts = append(bodyStmts, c)
		}
	}

	bodyArm := beginBody{stmts: bodyStmts}
	e.LowerTryCatch(bodyArm, catches, ensureNode, elseNode, n)
}

// beginBody carries the begin-clause's own top-level statements (everything
// that isn't a rescue/else/ensure clause) through LowerTryCatch's body
// parameter, since those statements aren't grouped under a single real
// tree node of their own.
type beginBody struct {
	node.Node
	stmts []engine.Node
}

func (b beginBody) Type() string         { return "begin_body" }
func (b beginBody) NamedChildren() []engine.Node { return b.stmts }

// lowerCaseStatement desugars `case/when` into the `==`-chain every
// switch-shaped construct in this engine gets (spec §4.2.2).
func lowerCaseStatement(e *engine.Engine, n engine.Node) {
	var subject engine.Node
	if v, ok := n.ChildByFieldName("value"); ok {
		subject = v
	}
	var cases []adapter.SwitchCase
	for _, c := range n.NamedChildren() {
		switch c.Type() {
		case "when":
			var values []engine.Node
			var stmts []engine.Node
			patterns, hasPatterns := c.ChildByFieldName("pattern")
			if hasPatterns && patterns != nil {
				values = append(values, patterns)
			}
			for _, cc := range c.NamedChildren() {
				if cc == patterns {
					continue
				}
				stmts = append(stmts, cc)
			}
			cases = append(cases, adapter.SwitchCase{Values: values, Body: caseArm{stmts: stmts}})
		case "else":
			var stmts []engine.Node
			if b, ok := c.ChildByFieldName("body"); ok && b != nil {
				stmts = append(stmts, b)
			} else {
				stmts = c.NamedChildren()
			}
			cases = append(cases, adapter.SwitchCase{Body: caseArm{stmts: stmts}, IsDefault: true})
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
