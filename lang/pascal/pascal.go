// Package pascal adapts the engine to Pascal's tree-sitter grammar (spec
// §4.2.2's Pascal row).
package pascal

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Pascal syntax trees.
type Adapter struct {
	*engine.Engine
}

// keywordOperators maps Pascal's k-prefixed keyword token node types to
// their IR operator strings (spec §4.2.2: "operator keyword nodes (kAdd,
// kLt, etc.) mapped to IR operator strings").
var keywordOperators = map[string]string{
	"kAdd": "+", "kSub": "-", "kMul": "*", "kFdiv": "/", "kDiv": "div", "kMod": "mod",
	"kEq": "=", "kNe": "<>", "kLt": "<", "kLe": "<=", "kGt": ">", "kGe": ">=",
	"kAnd": "and", "kOr": "or", "kNot": "not", "kXor": "xor",
	"kShl": "shl", "kShr": "shr",
}

// pascalNoiseTypes are the k-prefixed keyword nodes that carry no value of
// their own and must never be walked as statements/expressions (spec
// §4.2.2: "k-prefixed keyword nodes filtered via a dedicated noise set").
var pascalNoiseTypes = map[string]bool{
	"kBegin": true, "kEnd": true, "kThen": true, "kDo": true, "kOf": true,
	"kProgram": true, "kVar": true, "kConst": true, "kType": true,
	"kProcedure": true, "kFunction": true, "kUses": true, "kInterface": true,
	"kImplementation": true, "kUnit": true,
}

// New constructs a Pascal adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	cfg.NoneLiteral = "None"
	cfg.NoiseTypes = pascalNoiseTypes
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["number"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["nil"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary_expression"] = lowerBinary
	e.ExprDispatch["unary_expression"] = lowerUnary
	e.ExprDispatch["field_designator"] = lowerFieldDesignator
	e.ExprDispatch["array_access"] = lowerArrayAccess
	e.ExprDispatch["call_expression"] = lowerCallExpression
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized
	for kw := range keywordOperators {
		e.ExprDispatch[kw] = lowerKeywordOperatorLeaf
	}

	e.StmtDispatch["if_statement"] = lowerIfStatement
	e.StmtDispatch["while_statement"] = (*engine.Engine).LowerWhile
	e.StmtDispatch["repeat_statement"] = lowerRepeatStatement
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["case_statement"] = lowerCaseStatement
	e.StmtDispatch["assignment_statement"] = lowerAssignmentStatement
	e.StmtDispatch["procedure_declaration"] = lowerRoutineDeclaration
	e.StmtDispatch["function_declaration"] = lowerRoutineDeclaration
	e.StmtDispatch["call_statement"] = lowerCallStatement
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["continue_statement"] = (*engine.Engine).LowerContinue

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

func lowerKeywordOperatorLeaf(e *engine.Engine, n engine.Node) string {
	op, ok := keywordOperators[n.Type()]
	if !ok {
		op = n.Type()
	}
	return e.Emit(ir.CONST, []string{op}, n, true)
}

func lowerBinary(e *engine.Engine, n engine.Node) string {
	leftNode, _ := n.ChildByFieldName("left")
	opNode, _ := n.ChildByFieldName("operator")
	rightNode, _ := n.ChildByFieldName("right")
	leftReg := e.LowerExprOrMissing(leftNode, "binop_left")
	rightReg := e.LowerExprOrMissing(rightNode, "binop_right")
	op := operatorFor(e, opNode, n)
	return e.Emit(ir.BINOP, []string{op, leftReg, rightReg}, n, true)
}

func lowerUnary(e *engine.Engine, n engine.Node) string {
	operandNode, _ := n.ChildByFieldName("operand")
	opNode, _ := n.ChildByFieldName("operator")
	operandReg := e.LowerExprOrMissing(operandNode, "unary_operand")
	op := operatorFor(e, opNode, n)
	return e.Emit(ir.UNOP, []string{op, operandReg}, n, true)
}

// operatorFor resolves an operator node's IR string whether it is one of
// Pascal's k-prefixed keyword nodes or an ordinary punctuation token.
func operatorFor(e *engine.Engine, opNode, parent engine.Node) string {
	if opNode == nil {
		return "?"
	}
	if op, ok := keywordOperators[opNode.Type()]; ok {
		return op
	}
	return engine.Text(opNode, e.Source())
}

func lowerFieldDesignator(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("record")
	fieldNode, _ := n.ChildByFieldName("field")
	objReg := e.LowerExprOrMissing(objNode, "field_record")
	fieldName := "?"
	if fieldNode != nil {
		fieldName = engine.Text(fieldNode, e.Source())
	}
	return e.Emit(ir.LOAD_FIELD, []string{objReg, fieldName}, n, true)
}

func lowerArrayAccess(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("array")
	idxNode, _ := n.ChildByFieldName("index")
	objReg := e.LowerExprOrMissing(objNode, "array_object")
	idxReg := e.LowerExprOrMissing(idxNode, "array_index")
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
	if calleeNode != nil && calleeNode.Type() == "identifier" {
		operands := append([]string{engine.Text(calleeNode, e.Source())}, args...)
		return e.Emit(ir.CALL_FUNCTION, operands, n, true)
	}
	calleeReg := e.LowerExprOrMissing(calleeNode, "call_callee")
	operands := append([]string{calleeReg}, args...)
	return e.Emit(ir.CALL_UNKNOWN, operands, n, true)
}

func lowerCallStatement(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	if len(named) == 0 {
		return
	}
	e.LowerExpr(named[0])
}

func lowerParenthesized(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("paren_expr", n)
	}
	return e.LowerExpr(named[0])
}

func lowerIfStatement(e *engine.Engine, n engine.Node) {
	condNode, _ := n.ChildByFieldName("condition")
	thenNode, _ := n.ChildByFieldName("then")
	elseNode, hasElse := n.ChildByFieldName("else")
	hasElse = hasElse && elseNode != nil

	condReg := e.LowerExprOrMissing(condNode, "if_condition")
	trueLabel := e.FreshLabel("if_true")
	endLabel := e.FreshLabel("if_end")
	falseLabel := endLabel
	if hasElse {
		falseLabel = e.FreshLabel("if_false")
	}
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(trueLabel, falseLabel)}, n, false)
	e.EmitLabel(trueLabel, n)
	e.LowerBlock(thenNode)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	if hasElse {
		e.EmitLabel(falseLabel, n)
		e.LowerBlock(elseNode)
	}
	e.EmitLabel(endLabel, n)
}

// lowerRepeatStatement lowers `repeat ... until cond`. Unlike a negated
// condition, Pascal's adapter swaps which branch target is "continue" and
// which is "end" in the same BRANCH_IF the rest of the pack uses (spec
// §4.2.2: "repeat..until swaps branch targets") rather than emitting an
// extra UNOP "!" the way lua.go's repeat..until does.
func lowerRepeatStatement(e *engine.Engine, n engine.Node) {
	bodyNode, _ := n.ChildByFieldName("body")
	condNode, _ := n.ChildByFieldName("until")

	bodyLabel := e.FreshLabel("repeat_body")
	condLabel := e.FreshLabel("repeat_cond")
	endLabel := e.FreshLabel("repeat_end")

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(condLabel, endLabel)
	if bodyNode != nil {
		for _, c := range bodyNode.NamedChildren() {
			e.LowerStmt(c)
		}
	}
	e.PopLoop()

	e.EmitLabel(condLabel, n)
	condReg := e.LowerExprOrMissing(condNode, "repeat_condition")
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(endLabel, bodyLabel)}, n, false)

	e.EmitLabel(endLabel, n)
}

func lowerForStatement(e *engine.Engine, n engine.Node) {
	varNode, _ := n.ChildByFieldName("variable")
	startNode, _ := n.ChildByFieldName("start")
	endBoundNode, _ := n.ChildByFieldName("stop")
	bodyNode, _ := n.ChildByFieldName("body")
	descending := false
	for _, c := range n.Children() {
		if c.Type() == "kDownto" {
			descending = true
		}
	}

	varName := "?"
	if varNode != nil {
		varName = engine.Text(varNode, e.Source())
	}
	startReg := e.LowerExprOrMissing(startNode, "for_start")
	e.Emit(ir.STORE_VAR, []string{varName, startReg}, n, false)
	limitReg := e.LowerExprOrMissing(endBoundNode, "for_limit")

	condLabel := e.FreshLabel("for_cond")
	bodyLabel := e.FreshLabel("for_body")
	updateLabel := e.FreshLabel("for_update")
	endLabel := e.FreshLabel("for_end")

	cmpOp := "<="
	step := "1"
	if descending {
		cmpOp = ">="
		step = "-1"
	}

	e.EmitLabel(condLabel, n)
	curReg := e.Emit(ir.LOAD_VAR, []string{varName}, n, true)
	cmpReg := e.Emit(ir.BINOP, []string{cmpOp, curReg, limitReg}, n, true)
	e.Emit(ir.BRANCH_IF, []string{cmpReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(bodyLabel, n)
	e.PushLoop(updateLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.PopLoop()

	e.EmitLabel(updateLabel, n)
	curReg2 := e.Emit(ir.LOAD_VAR, []string{varName}, n, true)
	stepReg := e.Emit(ir.CONST, []string{step}, n, true)
	nextReg := e.Emit(ir.BINOP, []string{"+", curReg2, stepReg}, n, true)
	e.Emit(ir.STORE_VAR, []string{varName, nextReg}, n, false)
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)

	e.EmitLabel(endLabel, n)
}

// lowerCaseStatement OR-chains multiple labels per arm (spec §4.2.2: "case
// with multiple labels OR-chained"), which adapter.LowerSwitchAsIfChain
// already does generically whenever a SwitchCase.Values has more than one
// entry.
func lowerCaseStatement(e *engine.Engine, n engine.Node) {
	subject, _ := n.ChildByFieldName("value")
	var cases []adapter.SwitchCase
	for _, arm := range n.NamedChildren() {
		switch arm.Type() {
		case "case_label":
			labelsNode, _ := arm.ChildByFieldName("label")
			bodyNode, _ := arm.ChildByFieldName("body")
			var values []engine.Node
			if labelsNode != nil {
				values = labelsNode.NamedChildren()
				if len(values) == 0 {
					values = []engine.Node{labelsNode}
				}
			}
			cases = append(cases, adapter.SwitchCase{Values: values, Body: caseArm{body: bodyNode}})
		case "else_branch", "case_else":
			bodyNode, _ := arm.ChildByFieldName("body")
			cases = append(cases, adapter.SwitchCase{Body: caseArm{body: bodyNode}, IsDefault: true})
		}
	}
	adapter.LowerSwitchAsIfChain(e, subject, cases, n, false, func(body engine.Node) {
		arm, ok := body.(caseArm)
		if !ok || arm.body == nil {
			return
		}
		e.LowerBlock(arm.body)
	})
}

type caseArm struct {
	node.Node
	body engine.Node
}

func (a caseArm) Type() string { return "case_arm" }

// lowerAssignmentStatement lowers `name := value`. Assignment to the
// enclosing function's own name is Pascal's return-value idiom and lowers
// as RETURN instead of a variable store (spec §4.2.2).
func lowerAssignmentStatement(e *engine.Engine, n engine.Node) {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	valReg := e.LowerExprOrMissing(right, "assign_value")

	if left != nil && left.Type() == "identifier" {
		name := engine.Text(left, e.Source())
		if name == e.CurrentFunctionName() {
			e.Emit(ir.RETURN, []string{valReg}, n, false)
			return
		}
	}
	e.LowerStoreTarget(left, valReg, n)
}

func lowerRoutineDeclaration(e *engine.Engine, n engine.Node) {
	e.LowerFunctionDef(n)
}
