package engine

import (
	"strconv"
	"strings"

	"github.com/tacir/lowercore/ir"
)

// LowerIdentifier emits LOAD_VAR for a bare variable reference (spec §4.1.4).
func (e *Engine) LowerIdentifier(n Node) string {
	reg := e.FreshReg()
	e.emit(ir.LOAD_VAR, reg, []string{Text(n, e.source)}, n)
	return reg
}

// LowerConstLiteral emits CONST with the node's verbatim text (spec §4.1.4).
func (e *Engine) LowerConstLiteral(n Node) string {
	reg := e.FreshReg()
	e.emit(ir.CONST, reg, []string{Text(n, e.source)}, n)
	return reg
}

// LowerCanonicalNone emits the canonical null literal.
func (e *Engine) LowerCanonicalNone(n Node) string {
	reg := e.FreshReg()
	e.emit(ir.CONST, reg, []string{e.Config.NoneLiteral}, n)
	return reg
}

// LowerCanonicalTrue emits the canonical true literal.
func (e *Engine) LowerCanonicalTrue(n Node) string {
	reg := e.FreshReg()
	e.emit(ir.CONST, reg, []string{e.Config.TrueLiteral}, n)
	return reg
}

// LowerCanonicalFalse emits the canonical false literal.
func (e *Engine) LowerCanonicalFalse(n Node) string {
	reg := e.FreshReg()
	e.emit(ir.CONST, reg, []string{e.Config.FalseLiteral}, n)
	return reg
}

// LowerCanonicalBool dispatches a single "boolean" node type to the true/false
// handler by inspecting its text case-insensitively (spec §4.1.4; used by
// grammars with one boolean node type instead of separate true/false types).
func (e *Engine) LowerCanonicalBool(n Node) string {
	if strings.EqualFold(Text(n, e.source), "true") {
		return e.LowerCanonicalTrue(n)
	}
	return e.LowerCanonicalFalse(n)
}

// LowerBinop lowers a binary expression node shaped [lhs, op, rhs] after
// filtering comment/noise children (spec §4.1.4). Operator text passes
// through verbatim — the engine never normalizes operators (spec §9).
func (e *Engine) LowerBinop(n Node) string {
	children := e.filterNoise(n.Children())
	if len(children) < 3 {
		return e.missing("binop", n)
	}
	lhs := e.LowerExpr(children[0])
	opText := Text(children[1], e.source)
	rhs := e.LowerExpr(children[2])
	reg := e.FreshReg()
	e.emit(ir.BINOP, reg, []string{opText, lhs, rhs}, n)
	return reg
}

// LowerUnop lowers a prefix unary expression shaped [op, operand] (spec
// §4.1.4's "same pattern" for a single operand).
func (e *Engine) LowerUnop(n Node) string {
	children := e.filterNoise(n.Children())
	if len(children) < 2 {
		return e.missing("unop", n)
	}
	opText := Text(children[0], e.source)
	operand := e.LowerExpr(children[1])
	reg := e.FreshReg()
	e.emit(ir.UNOP, reg, []string{opText, operand}, n)
	return reg
}

// LowerUpdateExpr lowers `x++`/`--x`-style update expressions: the target's
// current value is read, incremented/decremented by one, and stored back
// (spec §4.1.4). op is "+" or "-". It returns the pre-update value, the
// conventional result of a postfix update.
func (e *Engine) LowerUpdateExpr(target Node, op string, n Node) string {
	oldReg := e.LowerExpr(target)
	oneReg := e.FreshReg()
	e.emit(ir.CONST, oneReg, []string{"1"}, n)
	newReg := e.FreshReg()
	e.emit(ir.BINOP, newReg, []string{op, oldReg, oneReg}, n)
	e.LowerStoreTarget(target, newReg, n)
	return oldReg
}

func (e *Engine) fieldOrFirstNamed(n Node, field string) (Node, bool) {
	if child, ok := n.ChildByFieldName(field); ok && child != nil {
		return child, true
	}
	named := n.NamedChildren()
	if len(named) > 0 {
		return named[0], true
	}
	return nil, false
}

func (e *Engine) lowerCallArgs(argsNode Node) []string {
	if argsNode == nil {
		return nil
	}
	var args []string
	for _, a := range argsNode.NamedChildren() {
		if e.isNoise(a.Type()) {
			continue
		}
		args = append(args, e.LowerExpr(a))
	}
	return args
}

// LowerCall dispatches a call node's callee three ways (spec §4.1.4):
// attribute-like callees become CALL_METHOD, plain identifiers become
// CALL_FUNCTION by static name, anything else is lowered and called through
// CALL_UNKNOWN.
func (e *Engine) LowerCall(n Node) string {
	calleeNode, ok := e.fieldOrFirstNamed(n, e.Config.CallFunctionField)
	argsNode, _ := n.ChildByFieldName(e.Config.CallArgumentsField)
	args := e.lowerCallArgs(argsNode)
	reg := e.FreshReg()

	if !ok {
		e.emit(ir.SYMBOLIC, reg, []string{"unknown_call_target"}, n)
		return reg
	}

	switch {
	case calleeNode.Type() == e.Config.AttributeNodeType:
		objNode, _ := calleeNode.ChildByFieldName(e.Config.AttrObjectField)
		methodNode, _ := calleeNode.ChildByFieldName(e.Config.AttrAttributeField)
		objReg := e.lowerExprOrMissing(objNode, "attr_object")
		methodName := Text(methodNode, e.source)
		operands := append([]string{objReg, methodName}, args...)
		e.emit(ir.CALL_METHOD, reg, operands, n)
	case e.Config.IdentifierTypes[calleeNode.Type()]:
		name := Text(calleeNode, e.source)
		operands := append([]string{name}, args...)
		e.emit(ir.CALL_FUNCTION, reg, operands, n)
	default:
		targetReg := e.LowerExpr(calleeNode)
		operands := append([]string{targetReg}, args...)
		e.emit(ir.CALL_UNKNOWN, reg, operands, n)
	}
	return reg
}

// LowerAttribute lowers a member-access expression (`obj.field`) to
// LOAD_FIELD, the read-side mirror of LowerStoreTarget's STORE_FIELD case
// (spec §3.2). Every adapter with an ATTRIBUTE_NODE_TYPE registers this for
// it.
func (e *Engine) LowerAttribute(n Node) string {
	objNode, _ := n.ChildByFieldName(e.Config.AttrObjectField)
	fieldNode, _ := n.ChildByFieldName(e.Config.AttrAttributeField)
	objReg := e.lowerExprOrMissing(objNode, "attr_object")
	fieldName := Text(fieldNode, e.source)
	reg := e.FreshReg()
	e.emit(ir.LOAD_FIELD, reg, []string{objReg, fieldName}, n)
	return reg
}

// LowerSubscript lowers an index-access expression (`obj[idx]`) to
// LOAD_INDEX, the read-side mirror of LowerStoreTarget's STORE_INDEX case.
func (e *Engine) LowerSubscript(n Node) string {
	valueNode, _ := n.ChildByFieldName(e.Config.SubscriptValueField)
	idxNode, _ := n.ChildByFieldName(e.Config.SubscriptIndexField)
	objReg := e.lowerExprOrMissing(valueNode, "subscript_value")
	idxReg := e.lowerExprOrMissing(idxNode, "subscript_index")
	reg := e.FreshReg()
	e.emit(ir.LOAD_INDEX, reg, []string{objReg, idxReg}, n)
	return reg
}

// LowerStoreTarget classifies an assignment's LHS into a variable, field, or
// index store (spec §4.1.4). An adapter's StoreTargetOverride, if set, gets
// first refusal — this is how C's `*p = v` pointer-dereference target and
// similar grammar-specific shapes are added without touching the engine.
func (e *Engine) LowerStoreTarget(target Node, valReg string, parent Node) {
	if target == nil {
		return
	}
	if e.StoreTargetOverride != nil && e.StoreTargetOverride(e, target, valReg, parent) {
		return
	}
	switch {
	case e.Config.IdentifierTypes[target.Type()]:
		e.emit(ir.STORE_VAR, "", []string{Text(target, e.source), valReg}, target)
	case target.Type() == e.Config.AttributeNodeType:
		objNode, _ := target.ChildByFieldName(e.Config.AttrObjectField)
		fieldNode, _ := target.ChildByFieldName(e.Config.AttrAttributeField)
		objReg := e.lowerExprOrMissing(objNode, "attr_object")
		fieldName := Text(fieldNode, e.source)
		e.emit(ir.STORE_FIELD, "", []string{objReg, fieldName, valReg}, target)
	case target.Type() == e.Config.SubscriptNodeType:
		valueNode, _ := target.ChildByFieldName(e.Config.SubscriptValueField)
		idxNode, _ := target.ChildByFieldName(e.Config.SubscriptIndexField)
		objReg := e.lowerExprOrMissing(valueNode, "subscript_value")
		idxReg := e.lowerExprOrMissing(idxNode, "subscript_index")
		e.emit(ir.STORE_INDEX, "", []string{objReg, idxReg, valReg}, target)
	default:
		// Defensive fallback (spec §7): treat unrecognized target shapes as a
		// plain named store using the target's own text.
		e.emit(ir.STORE_VAR, "", []string{Text(target, e.source), valReg}, target)
	}
}

// LowerAssignment lowers a plain `left = right` node using
// AssignLeftField/AssignRightField and LowerStoreTarget, and returns the
// value register — most grammars treat assignment as an expression, and
// LowerStmt's fallthrough-to-lower_expr rule (spec §4.1.3) means an adapter
// need only register this in ExprDispatch to cover both the statement and
// nested-expression positions.
func (e *Engine) LowerAssignment(n Node) string {
	left, _ := n.ChildByFieldName(e.Config.AssignLeftField)
	right, _ := n.ChildByFieldName(e.Config.AssignRightField)
	valReg := e.lowerExprOrMissing(right, "assign_value")
	e.LowerStoreTarget(left, valReg, n)
	return valReg
}

func (e *Engine) pushLoop(continueLabel, endLabel string) {
	e.PushLoop(continueLabel, endLabel)
}

func (e *Engine) popLoop() {
	e.PopLoop()
}

// PushLoop pushes a loop context onto both loop_stack and
// break_target_stack (spec §3.3). Exported so adapter-level composite
// lowerers (e.g. for-each-as-index-loop, spec §4.2.1) that aren't built out
// of LowerWhile/LowerCStyleFor can still participate in break/continue
// targeting.
func (e *Engine) PushLoop(continueLabel, endLabel string) {
	e.loopStack = append(e.loopStack, loopFrame{ContinueLabel: continueLabel, EndLabel: endLabel})
	e.breakStack = append(e.breakStack, endLabel)
}

// PopLoop pops the innermost loop context from both stacks.
func (e *Engine) PopLoop() {
	if len(e.loopStack) > 0 {
		e.loopStack = e.loopStack[:len(e.loopStack)-1]
	}
	e.popBreakTarget()
}

// PushBreakTarget registers an additional break target not paired with a
// loop (spec §3.3: switch/case end labels also live on break_target_stack).
func (e *Engine) PushBreakTarget(label string) {
	e.breakStack = append(e.breakStack, label)
}

// PopBreakTarget removes the innermost break target.
func (e *Engine) PopBreakTarget() {
	e.popBreakTarget()
}

func (e *Engine) popBreakTarget() {
	if len(e.breakStack) > 0 {
		e.breakStack = e.breakStack[:len(e.breakStack)-1]
	}
}

// LowerIf lowers an if/consequence/alternative node (spec §4.1.4). The
// "elif" case needs no separate code: most grammars nest it as another
// if-shaped node under the alternative field, which LowerBlock dispatches
// straight back into LowerIf through the statement table.
func (e *Engine) LowerIf(n Node) {
	condNode, _ := n.ChildByFieldName(e.Config.IfConditionField)
	conseqNode, _ := n.ChildByFieldName(e.Config.IfConsequenceField)
	altNode, hasAlt := n.ChildByFieldName(e.Config.IfAlternativeField)
	hasAlt = hasAlt && altNode != nil

	condReg := e.lowerExprOrMissing(condNode, "if_condition")

	trueLabel := e.FreshLabel("if_true")
	endLabel := e.FreshLabel("if_end")
	falseLabel := endLabel
	if hasAlt {
		falseLabel = e.FreshLabel("if_false")
	}

	e.emit(ir.BRANCH_IF, "", []string{condReg, ir.JoinBranchTargets(trueLabel, falseLabel)}, n)
	e.EmitLabel(trueLabel, n)
	e.LowerBlock(conseqNode)
	e.emit(ir.BRANCH, "", []string{endLabel}, n)

	if hasAlt {
		e.EmitLabel(falseLabel, n)
		e.LowerAlternative(altNode)
		e.emit(ir.BRANCH, "", []string{endLabel}, n)
	}

	e.EmitLabel(endLabel, n)
}

// LowerAlternative lowers an if-statement's else/elif branch. It is a thin,
// separately named wrapper over LowerBlock (spec §4.1.4 names it as its own
// reusable lowerer) kept distinct so adapters overriding alternative-clause
// handling have a single, obvious seam to hook.
func (e *Engine) LowerAlternative(n Node) {
	e.LowerBlock(n)
}

// LowerWhile lowers a condition-first loop (spec §4.1.4).
func (e *Engine) LowerWhile(n Node) {
	condNode, _ := n.ChildByFieldName(e.Config.WhileConditionField)
	bodyNode, _ := n.ChildByFieldName(e.Config.WhileBodyField)

	condLabel := e.FreshLabel("while_cond")
	bodyLabel := e.FreshLabel("while_body")
	endLabel := e.FreshLabel("while_end")

	e.EmitLabel(condLabel, n)
	condReg := e.lowerExprOrMissing(condNode, "while_condition")
	e.emit(ir.BRANCH_IF, "", []string{condReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n)

	e.EmitLabel(bodyLabel, n)
	e.pushLoop(condLabel, endLabel)
	e.LowerBlock(bodyNode)
	e.popLoop()
	e.emit(ir.BRANCH, "", []string{condLabel}, n)

	e.EmitLabel(endLabel, n)
}

// LowerCStyleFor lowers a three-clause C-style for loop (spec §4.1.4). Any of
// initNode/condNode/updateNode may be nil (a bare `for(;;)`); continueTarget
// is for_update when an update clause exists, else for_cond, per spec.
func (e *Engine) LowerCStyleFor(initNode, condNode, updateNode, bodyNode, n Node) {
	if initNode != nil {
		e.LowerStmt(initNode)
	}

	condLabel := e.FreshLabel("for_cond")
	bodyLabel := e.FreshLabel("for_body")
	updateLabel := e.FreshLabel("for_update")
	endLabel := e.FreshLabel("for_end")

	e.EmitLabel(condLabel, n)
	if condNode != nil {
		condReg := e.LowerExpr(condNode)
		e.emit(ir.BRANCH_IF, "", []string{condReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n)
	} else {
		e.emit(ir.BRANCH, "", []string{bodyLabel}, n)
	}

	e.EmitLabel(bodyLabel, n)
	continueTarget := updateLabel
	if updateNode == nil {
		continueTarget = condLabel
	}
	e.pushLoop(continueTarget, endLabel)
	e.LowerBlock(bodyNode)
	e.popLoop()

	e.EmitLabel(updateLabel, n)
	if updateNode != nil {
		e.LowerStmt(updateNode)
	}
	e.emit(ir.BRANCH, "", []string{condLabel}, n)

	e.EmitLabel(endLabel, n)
}

func (e *Engine) lowerParams(paramsNode Node) {
	if paramsNode == nil {
		return
	}
	for _, p := range paramsNode.NamedChildren() {
		if e.isNoise(p.Type()) {
			continue
		}
		name := e.Config.ExtractParamName(e, p)
		reg := e.FreshReg()
		e.emit(ir.SYMBOLIC, reg, []string{"param:" + name}, p)
		e.emit(ir.STORE_VAR, "", []string{name, reg}, p)
	}
}

func (e *Engine) emitImplicitReturn(n Node) {
	reg := e.FreshReg()
	e.emit(ir.CONST, reg, []string{e.Config.DefaultReturnValue}, n)
	e.emit(ir.RETURN, "", []string{reg}, n)
}

// LowerParams binds each parameter node's extracted name to a SYMBOLIC
// "param:<name>" placeholder register (spec §4.1.4). Exported so an adapter
// lowering an anonymous function shape (arrow function, lambda) that isn't
// built out of LowerFunctionDef can still bind parameters the same way.
func (e *Engine) LowerParams(paramsNode Node) {
	e.lowerParams(paramsNode)
}

// EmitImplicitReturn emits the default-value RETURN a function body falls
// off the end into when it has no explicit return (spec §4.1.4).
func (e *Engine) EmitImplicitReturn(n Node) {
	e.emitImplicitReturn(n)
}

// LowerFunctionDef lowers a function definition to the two-label shape spec
// §4.1.4/§6.3 mandates: an unconditional branch past the body, the body
// itself under its own entry label, an implicit return if control falls off
// the end, then the end-sentinel label and the `<function:name@label>`
// reference stored into the function's own name.
func (e *Engine) LowerFunctionDef(n Node) string {
	nameNode, _ := n.ChildByFieldName(e.Config.FuncNameField)
	name := e.nodeNameOrAnon(nameNode, "func")
	paramsNode, _ := n.ChildByFieldName(e.Config.FuncParamsField)
	bodyNode, _ := n.ChildByFieldName(e.Config.FuncBodyField)

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)

	e.emit(ir.BRANCH, "", []string{endLabel}, n)
	e.EmitLabel(funcLabel, n)

	prevName := e.currentFunctionName
	e.currentFunctionName = name
	e.lowerParams(paramsNode)
	e.LowerBlock(bodyNode)
	e.emitImplicitReturn(n)
	e.currentFunctionName = prevName

	e.EmitLabel(endLabel, n)
	ref := "<function:" + name + "@" + funcLabel + ">"
	refReg := e.FreshReg()
	e.emit(ir.CONST, refReg, []string{ref}, n)
	e.emit(ir.STORE_VAR, "", []string{name, refReg}, n)
	return refReg
}

// LowerClassDef lowers a class definition analogously to LowerFunctionDef,
// with class_<name>/end_class_<name> labels and a `<class:name@label>`
// reference (spec §4.1.4, §6.3).
func (e *Engine) LowerClassDef(n Node) string {
	nameNode, _ := n.ChildByFieldName(e.Config.ClassNameField)
	name := e.nodeNameOrAnon(nameNode, "class")
	bodyNode, _ := n.ChildByFieldName(e.Config.ClassBodyField)

	endLabel := e.FreshLabel("end_class_" + name)
	classLabel := e.FreshLabel("class_" + name)

	e.emit(ir.BRANCH, "", []string{endLabel}, n)
	e.EmitLabel(classLabel, n)
	e.LowerBlock(bodyNode)
	e.EmitLabel(endLabel, n)

	ref := "<class:" + name + "@" + classLabel + ">"
	refReg := e.FreshReg()
	e.emit(ir.CONST, refReg, []string{ref}, n)
	e.emit(ir.STORE_VAR, "", []string{name, refReg}, n)
	return refReg
}

// LowerReturn lowers a return statement; valueNode may be nil for a bare
// `return` (spec §4.1.4).
func (e *Engine) LowerReturn(valueNode, n Node) {
	var reg string
	if valueNode != nil {
		reg = e.LowerExpr(valueNode)
	} else {
		reg = e.FreshReg()
		e.emit(ir.CONST, reg, []string{e.Config.DefaultReturnValue}, n)
	}
	e.emit(ir.RETURN, "", []string{reg}, n)
}

// LowerBreak lowers `break`, branching to the innermost break target, or
// degrading to a SYMBOLIC placeholder outside any loop/switch (spec §4.1.4,
// §7).
func (e *Engine) LowerBreak(n Node) {
	if len(e.breakStack) == 0 {
		reg := e.FreshReg()
		e.emit(ir.SYMBOLIC, reg, []string{"break_outside_loop_or_switch"}, n)
		return
	}
	target := e.breakStack[len(e.breakStack)-1]
	e.emit(ir.BRANCH, "", []string{target}, n)
}

// LowerContinue lowers `continue`, branching to the innermost loop's
// continue label, or degrading outside any loop (spec §4.1.4, §7).
func (e *Engine) LowerContinue(n Node) {
	if len(e.loopStack) == 0 {
		reg := e.FreshReg()
		e.emit(ir.SYMBOLIC, reg, []string{"continue_outside_loop"}, n)
		return
	}
	target := e.loopStack[len(e.loopStack)-1].ContinueLabel
	e.emit(ir.BRANCH, "", []string{target}, n)
}

// CatchClause is the uniform shape an adapter extracts a grammar's
// catch/rescue/except clause into before calling LowerTryCatch (spec
// §4.2.1).
type CatchClause struct {
	Body     Node
	VarName  string // "" if the clause binds no variable
	TypeName string // "" if the clause names no type
}

// LowerTryCatch lowers a try/catch/finally/else construct into the uniform
// shape spec §4.1.4 describes: the body, followed by each catch clause
// (SYMBOLIC "caught_exception:<type>" plus an optional bind), converging on
// finally if present, then the end label.
func (e *Engine) LowerTryCatch(body Node, catches []CatchClause, finallyNode, elseNode, n Node) {
	endLabel := e.FreshLabel("try_end")
	finallyLabel := ""
	convergeTarget := endLabel
	if finallyNode != nil {
		finallyLabel = e.FreshLabel("try_finally")
		convergeTarget = finallyLabel
	}

	bodyLabel := e.FreshLabel("try_body")
	e.EmitLabel(bodyLabel, n)
	e.LowerBlock(body)
	if elseNode != nil {
		e.LowerBlock(elseNode)
	}
	e.emit(ir.BRANCH, "", []string{convergeTarget}, n)

	for _, c := range catches {
		clauseLabel := e.FreshLabel("try_catch")
		e.EmitLabel(clauseLabel, n)
		reg := e.FreshReg()
		e.emit(ir.SYMBOLIC, reg, []string{"caught_exception:" + c.TypeName}, n)
		if c.VarName != "" {
			e.emit(ir.STORE_VAR, "", []string{c.VarName, reg}, n)
		}
		e.LowerBlock(c.Body)
		e.emit(ir.BRANCH, "", []string{convergeTarget}, n)
	}

	if finallyNode != nil {
		e.EmitLabel(finallyLabel, n)
		e.LowerBlock(finallyNode)
		e.emit(ir.BRANCH, "", []string{endLabel}, n)
	}

	e.EmitLabel(endLabel, n)
}

// LowerListLiteral lowers a list/array/tuple literal into NEW_ARRAY plus one
// STORE_INDEX per element, indexed from 0 (spec §4.1.4).
func (e *Engine) LowerListLiteral(elements []Node, tag string, n Node) string {
	sizeReg := e.FreshReg()
	e.emit(ir.CONST, sizeReg, []string{strconv.Itoa(len(elements))}, n)
	reg := e.FreshReg()
	e.emit(ir.NEW_ARRAY, reg, []string{tag, sizeReg}, n)
	for i, el := range elements {
		idxReg := e.FreshReg()
		e.emit(ir.CONST, idxReg, []string{strconv.Itoa(i)}, el)
		valReg := e.LowerExpr(el)
		e.emit(ir.STORE_INDEX, "", []string{reg, idxReg, valReg}, el)
	}
	return reg
}

// DictPair is one key/value entry of a dict/map/table literal. Either
// KeyNode or KeyLiteral should be set: KeyNode for an expression key,
// KeyLiteral for a literal key text a grammar never wraps in its own node
// (e.g. a bareword key in a table constructor).
type DictPair struct {
	KeyNode    Node
	KeyLiteral string
	ValueNode  Node
}

// LowerDictLiteral lowers a dict/map/table literal into NEW_OBJECT plus one
// STORE_INDEX per pair (spec §4.1.4).
func (e *Engine) LowerDictLiteral(pairs []DictPair, tag string, n Node) string {
	reg := e.FreshReg()
	e.emit(ir.NEW_OBJECT, reg, []string{tag}, n)
	for _, p := range pairs {
		var keyReg string
		if p.KeyNode != nil {
			keyReg = e.LowerExpr(p.KeyNode)
		} else {
			keyReg = e.FreshReg()
			e.emit(ir.CONST, keyReg, []string{p.KeyLiteral}, n)
		}
		valReg := e.LowerExpr(p.ValueNode)
		e.emit(ir.STORE_INDEX, "", []string{reg, keyReg, valReg}, n)
	}
	return reg
}
