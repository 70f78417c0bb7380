// Package java adapts the engine to Java's tree-sitter grammar (spec
// §4.2.2's Java row). Grounded on the same dispatch-table wiring style as
// lang/python, generalized to Java's field-access/method-invocation shapes,
// which differ enough from the engine's generic call/attribute defaults
// that this adapter overrides most of them with Java-specific lowerers
// rather than reusing the generic ones — the same way the teacher's
// pkg/cshmgen overrides only the constructs C needs beyond Clight's shared
// core.
package java

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers Java syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a Java adapter with its dispatch tables populated.
func New() *Adapter {
	cfg := engine.DefaultConfig()
	cfg.IfConsequenceField = "consequence"
	cfg.DefaultReturnValue = "None"
	e := engine.New(cfg)
	a := &Adapter{Engine: e}

	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["decimal_integer_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["decimal_floating_point_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["character_literal"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["null_literal"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary_expression"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["unary_expression"] = (*engine.Engine).LowerUnop
	e.ExprDispatch["update_expression"] = lowerUpdateExpression
	e.ExprDispatch["assignment_expression"] = lowerAssignmentExpression
	e.ExprDispatch["field_access"] = lowerFieldAccess
	e.ExprDispatch["array_access"] = lowerArrayAccess
	e.ExprDispatch["method_invocation"] = lowerMethodInvocation
	e.ExprDispatch["object_creation_expression"] = lowerObjectCreation
	e.ExprDispatch["instanceof_expression"] = lowerInstanceof
	e.ExprDispatch["cast_expression"] = lowerCastExpression
	e.ExprDispatch["parenthesized_expression"] = lowerParenthesized
	e.ExprDispatch["lambda_expression"] = lowerLambdaExpression
	e.ExprDispatch["method_reference"] = lowerMethodReference
	e.ExprDispatch["scoped_identifier"] = lowerScopedIdentifier
	e.ExprDispatch["array_creation_expression"] = lowerArrayCreation
	e.ExprDispatch["ternary_expression"] = lowerTernaryExpression

	e.StmtDispatch["if_statement"] = (*engine.Engine).LowerIf
	e.StmtDispatch["while_statement"] = (*engine.Engine).LowerWhile
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["enhanced_for_statement"] = lowerEnhancedFor
	e.StmtDispatch["return_statement"] = lowerReturn
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["continue_statement"] = (*engine.Engine).LowerContinue
	e.StmtDispatch["local_variable_declaration"] = lowerLocalVariableDeclaration
	e.StmtDispatch["expression_statement"] = lowerExpressionStatement
	e.StmtDispatch["class_declaration"] = lowerClassDeclaration
	e.StmtDispatch["method_declaration"] = lowerMethodDeclaration
	e.StmtDispatch["constructor_declaration"] = lowerConstructorDeclaration
	e.StmtDispatch["field_declaration"] = lowerFieldDeclaration
	e.StmtDispatch["try_statement"] = lowerTryStatement
	e.StmtDispatch["switch_expression"] = lowerSwitchStatement
	e.StmtDispatch["switch_statement"] = lowerSwitchStatement

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
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

func lowerAssignmentExpression(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	valReg := e.LowerExprOrMissing(right, "assign_value")
	e.LowerStoreTarget(left, valReg, n)
	return valReg
}

func lowerFieldAccess(e *engine.Engine, n engine.Node) string {
	objNode, _ := n.ChildByFieldName("object")
	fieldNode, _ := n.ChildByFieldName("field")
	objReg := e.LowerExprOrMissing(objNode, "field_object")
	return e.Emit(ir.LOAD_FIELD, []string{objReg, engine.Text(fieldNode, e.Source())}, n, true)
}

func lowerArrayAccess(e *engine.Engine, n engine.Node) string {
	arrNode, _ := n.ChildByFieldName("array")
	idxNode, _ := n.ChildByFieldName("index")
	arrReg := e.LowerExprOrMissing(arrNode, "array_value")
	idxReg := e.LowerExprOrMissing(idxNode, "array_index")
	return e.Emit(ir.LOAD_INDEX, []string{arrReg, idxReg}, n, true)
}

// lowerMethodInvocation lowers `obj.name(args)` to CALL_METHOD, or a bare
// `name(args)` to CALL_FUNCTION by static name — method_invocation's
// "object" field is absent for same-class calls (spec §4.1.4's CALL_METHOD
// vs CALL_FUNCTION split, applied here since Java's call node shape doesn't
// match the engine's generic CallFunctionField/AttributeNodeType config).
func lowerMethodInvocation(e *engine.Engine, n engine.Node) string {
	nameNode, _ := n.ChildByFieldName("name")
	argsNode, _ := n.ChildByFieldName("arguments")
	var args []string
	if argsNode != nil {
		for _, a := range argsNode.NamedChildren() {
			args = append(args, e.LowerExpr(a))
		}
	}
	name := engine.Text(nameNode, e.Source())
	if objNode, ok := n.ChildByFieldName("object"); ok && objNode != nil {
		objReg := e.LowerExpr(objNode)
		operands := append([]string{objReg, name}, args...)
		return e.Emit(ir.CALL_METHOD, operands, n, true)
	}
	operands := append([]string{name}, args...)
	return e.Emit(ir.CALL_FUNCTION, operands, n, true)
}

func lowerObjectCreation(e *engine.Engine, n engine.Node) string {
	typeNode, _ := n.ChildByFieldName("type")
	argsNode, _ := n.ChildByFieldName("arguments")
	name := engine.Text(typeNode, e.Source())
	objReg := e.Emit(ir.NEW_OBJECT, []string{name}, n, true)
	var args []string
	if argsNode != nil {
		for _, a := range argsNode.NamedChildren() {
			args = append(args, e.LowerExpr(a))
		}
	}
	operands := append([]string{objReg, "__init__"}, args...)
	e.Emit(ir.CALL_METHOD, operands, n, true)
	return objReg
}

func lowerInstanceof(e *engine.Engine, n engine.Node) string {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	leftReg := e.LowerExprOrMissing(left, "instanceof_value")
	typeName := engine.Text(right, e.Source())
	typeReg := e.Emit(ir.CONST, []string{typeName}, n, true)
	return e.Emit(ir.CALL_FUNCTION, []string{"instanceof", leftReg, typeReg}, n, true)
}

// lowerCastExpression is transparent: a cast changes nothing at runtime
// (spec §4.2.2's "cast is transparent").
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

// lowerLambdaExpression lowers a lambda the way an anonymous function is
// lowered everywhere else (spec §4.2.1's closures/lambdas pattern): under a
// synthesized name, with the lambda's own parameter list.
func lowerLambdaExpression(e *engine.Engine, n engine.Node) string {
	name := adapter.SyntheticName(e, "__lambda")
	paramsNode, _ := n.ChildByFieldName("parameters")
	bodyNode, _ := n.ChildByFieldName("body")

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	e.LowerParams(paramsNode)
	if bodyNode != nil && bodyNode.Type() == "block" {
		e.LowerBlock(bodyNode)
		e.EmitImplicitReturn(n)
	} else {
		e.LowerReturn(bodyNode, n)
	}
	e.EmitLabel(endLabel, n)
	ref := "<function:" + name + "@" + funcLabel + ">"
	return e.Emit(ir.CONST, []string{ref}, n, true)
}

// lowerMethodReference lowers `obj::method` as LOAD_FIELD, the same shape a
// bound method reference has at runtime (spec §4.2.2).
func lowerMethodReference(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) < 2 {
		return e.Missing("method_reference", n)
	}
	objReg := e.LowerExpr(named[0])
	methodName := engine.Text(named[len(named)-1], e.Source())
	return e.Emit(ir.LOAD_FIELD, []string{objReg, methodName}, n, true)
}

// lowerScopedIdentifier lowers a dotted name (`a.b.c`) as one LOAD_VAR of
// its full joined text, per spec §4.2.2.
func lowerScopedIdentifier(e *engine.Engine, n engine.Node) string {
	return e.Emit(ir.LOAD_VAR, []string{engine.Text(n, e.Source())}, n, true)
}

func lowerArrayCreation(e *engine.Engine, n engine.Node) string {
	var elements []engine.Node
	if initNode, ok := n.ChildByFieldName("value"); ok && initNode != nil {
		elements = initNode.NamedChildren()
	}
	return e.LowerListLiteral(elements, "array", n)
}

func lowerTernaryExpression(e *engine.Engine, n engine.Node) string {
	condNode, _ := n.ChildByFieldName("condition")
	trueNode, _ := n.ChildByFieldName("consequence")
	falseNode, _ := n.ChildByFieldName("alternative")
	return adapter.LowerTernary(e, condNode,
		func() string { return e.LowerExprOrMissing(trueNode, "ternary_true") },
		func() string { return e.LowerExprOrMissing(falseNode, "ternary_false") },
		n, "__if_result")
}

func lowerForStatement(e *engine.Engine, n engine.Node) {
	var initNode, condNode, updateNode engine.Node
	if v, ok := n.ChildByFieldName("init"); ok {
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

// lowerEnhancedFor desugars Java's `for (T x : iterable)` into the shared
// foreach-as-index-loop (spec §4.2.2).
func lowerEnhancedFor(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	valueNode, _ := n.ChildByFieldName("value")
	bodyNode, _ := n.ChildByFieldName("body")
	adapter.ForEachAsIndexLoop(e, valueNode, bodyNode, n,
		func(elemReg, idxReg string) { e.LowerStoreTarget(nameNode, elemReg, n) },
		func(b engine.Node) { e.LowerBlock(b) },
	)
}

func lowerReturn(e *engine.Engine, n engine.Node) {
	named := n.NamedChildren()
	var valueNode engine.Node
	if len(named) > 0 {
		valueNode = named[0]
	}
	e.LowerReturn(valueNode, n)
}

// lowerLocalVariableDeclaration iterates each declarator in `T a = 1, b = 2;`.
func lowerLocalVariableDeclaration(e *engine.Engine, n engine.Node) {
	for _, d := range n.NamedChildren() {
		if d.Type() != "variable_declarator" {
			continue
		}
		nameNode, _ := d.ChildByFieldName("name")
		valueNode, hasValue := d.ChildByFieldName("value")
		if !hasValue || valueNode == nil {
			continue
		}
		valReg := e.LowerExpr(valueNode)
		e.LowerStoreTarget(nameNode, valReg, d)
	}
}

func lowerExpressionStatement(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		e.LowerStmt(c)
	}
}

// lowerClassDeclaration partitions the class body so every method lowers
// before any field initializer, then lowers fields (spec §4.2.2's "class
// body partitioned — methods first, then fields/initializers").
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
			switch m.Type() {
			case "method_declaration", "constructor_declaration":
				e.LowerStmt(m)
			}
		}
		for _, m := range members {
			switch m.Type() {
			case "field_declaration":
				e.LowerStmt(m)
			}
		}
	}

	e.EmitLabel(endLabel, n)
	ref := "<class:" + name + "@" + classLabel + ">"
	reg := e.Emit(ir.CONST, []string{ref}, n, true)
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func lowerMethodDeclaration(e *engine.Engine, n engine.Node) {
	e.LowerFunctionDef(n)
}

// lowerConstructorDeclaration lowers a constructor as a function named
// `__init__` (spec §4.2.2), reusing the node's own parameters/body.
func lowerConstructorDeclaration(e *engine.Engine, n engine.Node) {
	paramsNode, _ := n.ChildByFieldName("parameters")
	bodyNode, _ := n.ChildByFieldName("body")
	name := "__init__"

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	e.LowerParams(paramsNode)
	e.LowerBlock(bodyNode)
	e.EmitImplicitReturn(n)
	e.EmitLabel(endLabel, n)
	ref := "<function:" + name + "@" + funcLabel + ">"
	reg := e.Emit(ir.CONST, []string{ref}, n, true)
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

func lowerFieldDeclaration(e *engine.Engine, n engine.Node) {
	for _, d := range n.NamedChildren() {
		if d.Type() != "variable_declarator" {
			continue
		}
		nameNode, _ := d.ChildByFieldName("name")
		valueNode, hasValue := d.ChildByFieldName("value")
		if !hasValue || valueNode == nil {
			continue
		}
		valReg := e.LowerExpr(valueNode)
		e.LowerStoreTarget(nameNode, valReg, d)
	}
}

// lowerTryStatement extracts each catch clause's formal type+var (spec
// §4.2.2's "catch-formal type+var extraction").
func lowerTryStatement(e *engine.Engine, n engine.Node) {
	body, _ := n.ChildByFieldName("body")
	var catches []engine.CatchClause
	var finallyNode engine.Node
	for _, c := range n.NamedChildren() {
		switch c.Type() {
		case "catch_clause":
			paramNode, _ := c.ChildByFieldName("parameter")
			varName, typeName := "", ""
			if paramNode != nil {
				if nn, ok := paramNode.ChildByFieldName("name"); ok && nn != nil {
					varName = engine.Text(nn, e.Source())
				}
				if tn, ok := paramNode.ChildByFieldName("type"); ok && tn != nil {
					typeName = engine.Text(tn, e.Source())
				}
			}
			clauseBody, _ := c.ChildByFieldName("body")
			catches = append(catches, engine.CatchClause{Body: clauseBody, VarName: varName, TypeName: typeName})
		case "finally_clause":
			fb, _ := c.ChildByFieldName("body")
			finallyNode = fb
		}
	}
	e.LowerTryCatch(body, catches, finallyNode, nil, n)
}

// lowerSwitchStatement desugars switch/switch-expression as an `==` chain
// (spec §4.2.2), with break_target_stack participation through
// LowerSwitchAsIfChain.
func lowerSwitchStatement(e *engine.Engine, n engine.Node) {
	subject, _ := n.ChildByFieldName("condition")
	bodyNode, _ := n.ChildByFieldName("body")
	var cases []adapter.SwitchCase
	if bodyNode != nil {
		for _, grp := range bodyNode.NamedChildren() {
			if grp.Type() != "switch_block_statement_group" && grp.Type() != "switch_rule" {
				continue
			}
			var labels []engine.Node
			isDefault := false
			var stmts []engine.Node
			for _, c := range grp.Children() {
				switch c.Type() {
				case "switch_label":
					named := c.NamedChildren()
					if len(named) == 0 {
						isDefault = true
					} else {
						labels = append(labels, named[0])
					}
				default:
					if c.Type() != "case" && c.Type() != "default" && c.Type() != ":" && c.Type() != "->" {
						stmts = append(stmts, c)
					}
				}
			}
			armBody := armNode{stmts: stmts}
			cases = append(cases, adapter.SwitchCase{Values: labels, Body: armBody, IsDefault: isDefault})
		}
	}
	adapter.LowerSwitchAsIfChain(e, subject, cases, n, false, func(body engine.Node) {
		arm, ok := body.(armNode)
		if !ok {
			return
		}
		for _, s := range arm.stmts {
			e.LowerStmt(s)
		}
	})
}

// armNode adapts a collected statement list to satisfy engine.Node's
// interface just enough to round-trip through adapter.SwitchCase.Body; only
// Type() is ever consulted by the callback above, which type-asserts back
// to armNode directly rather than walking the tree.
type armNode struct {
	node.Node
	stmts []engine.Node
}

func (a armNode) Type() string { return "switch_arm" }
