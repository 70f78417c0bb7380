// Package javascript adapts the engine to JavaScript's tree-sitter grammar
// (spec §4.2.2's JavaScript row). TypeScript's adapter builds on top of this
// one the way the teacher's Csharpminor stage sits directly on Clight
// (pkg/cshmgen wraps pkg/clight's AST rather than re-deriving it) — spec §9
// calls this "inheritance modeled as explicit delegation" for
// non-inheriting host languages, here the delegation being TypeScript
// importing and extending this package's dispatch tables.
package javascript

import (
	"github.com/tacir/lowercore/adapter"
	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers JavaScript syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a JavaScript adapter with its dispatch tables populated.
func New() *Adapter {
	e := engine.New(Config())
	a := &Adapter{Engine: e}
	Wire(e)
	return a
}

// Config returns the engine Config JavaScript (and, by extension,
// TypeScript, which starts from this and overrides parameter-name
// extraction) uses. Exported so the TypeScript adapter can build its
// engine on the same Config before calling Wire.
func Config() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.AttrObjectField = "object"
	cfg.AttrAttributeField = "property"
	cfg.AttributeNodeType = "member_expression"
	cfg.SubscriptValueField = "object"
	cfg.SubscriptIndexField = "index"
	cfg.SubscriptNodeType = "subscript_expression"
	cfg.NoneLiteral = "None"
	cfg.TrueLiteral = "True"
	cfg.FalseLiteral = "False"
	cfg.DefaultReturnValue = "None"
	return cfg
}

// Wire populates e's dispatch tables with JavaScript's handlers. Exported so
// the TypeScript adapter can call it first and layer its own overrides on
// top (spec §9's delegation pattern).
func Wire(e *engine.Engine) {
	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["number"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["string"] = (*engine.Engine).LowerConstLiteral
	e.ExprDispatch["true"] = (*engine.Engine).LowerCanonicalTrue
	e.ExprDispatch["false"] = (*engine.Engine).LowerCanonicalFalse
	e.ExprDispatch["null"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["undefined"] = (*engine.Engine).LowerCanonicalNone
	e.ExprDispatch["binary_expression"] = (*engine.Engine).LowerBinop
	e.ExprDispatch["unary_expression"] = (*engine.Engine).LowerUnop
	e.ExprDispatch["member_expression"] = (*engine.Engine).LowerAttribute
	e.ExprDispatch["subscript_expression"] = (*engine.Engine).LowerSubscript
	e.ExprDispatch["call_expression"] = (*engine.Engine).LowerCall
	e.ExprDispatch["assignment_expression"] = (*engine.Engine).LowerAssignment
	e.ExprDispatch["new_expression"] = lowerNewExpression
	e.ExprDispatch["array"] = lowerArrayLiteral
	e.ExprDispatch["object"] = lowerObjectLiteral
	e.ExprDispatch["template_string"] = lowerTemplateString
	e.ExprDispatch["spread_element"] = lowerSpreadElement
	e.ExprDispatch["await_expression"] = namedUnaryCall("await")
	e.ExprDispatch["yield_expression"] = namedUnaryCall("yield")
	e.ExprDispatch["arrow_function"] = lowerClosure("__arrow")
	e.ExprDispatch["function_expression"] = lowerClosure("__lambda")
	e.ExprDispatch["update_expression"] = lowerUpdateExpression
	e.ExprDispatch["ternary_expression"] = lowerTernaryExpression

	e.StmtDispatch["if_statement"] = (*engine.Engine).LowerIf
	e.StmtDispatch["else_clause"] = (*engine.Engine).LowerAlternative
	e.StmtDispatch["while_statement"] = (*engine.Engine).LowerWhile
	e.StmtDispatch["for_statement"] = lowerForStatement
	e.StmtDispatch["for_in_statement"] = lowerForInOf
	e.StmtDispatch["return_statement"] = lowerReturn
	e.StmtDispatch["break_statement"] = (*engine.Engine).LowerBreak
	e.StmtDispatch["continue_statement"] = (*engine.Engine).LowerContinue
	e.StmtDispatch["function_declaration"] = lowerFunctionDeclStmt
	e.StmtDispatch["class_declaration"] = lowerClassDeclStmt
	e.StmtDispatch["variable_declarator"] = lowerVariableDeclarator
	e.StmtDispatch["variable_declaration"] = lowerVariableDeclaration
	e.StmtDispatch["lexical_declaration"] = lowerVariableDeclaration
	e.StmtDispatch["try_statement"] = lowerTryStatement
	e.StmtDispatch["switch_statement"] = lowerSwitchStatement
	e.StmtDispatch["expression_statement"] = lowerExpressionStatement

	e.StoreTargetOverride = lowerStoreTargetOverride
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

// lowerExpressionStatement unwraps tree-sitter-javascript's
// expression_statement wrapper around a bare expression used as a statement.
func lowerExpressionStatement(e *engine.Engine, n engine.Node) {
	for _, c := range n.NamedChildren() {
		e.LowerStmt(c)
	}
}

func lowerFunctionDeclStmt(e *engine.Engine, n engine.Node) { e.LowerFunctionDef(n) }
func lowerClassDeclStmt(e *engine.Engine, n engine.Node)    { e.LowerClassDef(n) }

func namedUnaryCall(name string) engine.ExprHandler {
	return func(e *engine.Engine, n engine.Node) string {
		named := n.NamedChildren()
		var argReg string
		if len(named) > 0 {
			argReg = e.LowerExpr(named[0])
		} else {
			argReg = e.Emit(ir.CONST, []string{e.Config.NoneLiteral}, n, true)
		}
		return e.Emit(ir.CALL_FUNCTION, []string{name, argReg}, n, true)
	}
}

func lowerNewExpression(e *engine.Engine, n engine.Node) string {
	calleeNode, _ := n.ChildByFieldName("constructor")
	argsNode, _ := n.ChildByFieldName("arguments")
	name := engine.Text(calleeNode, e.Source())
	var args []string
	if argsNode != nil {
		for _, a := range argsNode.NamedChildren() {
			args = append(args, e.LowerExpr(a))
		}
	}
	objReg := e.Emit(ir.NEW_OBJECT, []string{name}, n, true)
	operands := append([]string{objReg, "constructor"}, args...)
	e.Emit(ir.CALL_METHOD, operands, n, true)
	return objReg
}

func lowerArrayLiteral(e *engine.Engine, n engine.Node) string {
	return e.LowerListLiteral(n.NamedChildren(), "array", n)
}

func lowerObjectLiteral(e *engine.Engine, n engine.Node) string {
	var pairs []engine.DictPair
	for _, p := range n.NamedChildren() {
		switch p.Type() {
		case "pair":
			key, _ := p.ChildByFieldName("key")
			value, _ := p.ChildByFieldName("value")
			pairs = append(pairs, engine.DictPair{KeyNode: key, ValueNode: value})
		case "shorthand_property_identifier":
			name := engine.Text(p, e.Source())
			pairs = append(pairs, engine.DictPair{KeyLiteral: name, ValueNode: p})
		}
	}
	return e.LowerDictLiteral(pairs, "object", n)
}

// lowerTemplateString lowers a template literal's fragments and
// `${...}` substitutions into a left-to-right BINOP "+" chain (spec
// §4.2.2).
func lowerTemplateString(e *engine.Engine, n engine.Node) string {
	var reg string
	for _, c := range n.NamedChildren() {
		var partReg string
		if c.Type() == "template_substitution" {
			named := c.NamedChildren()
			if len(named) > 0 {
				partReg = e.LowerExpr(named[0])
			} else {
				partReg = e.Emit(ir.CONST, []string{""}, c, true)
			}
		} else {
			partReg = e.Emit(ir.CONST, []string{engine.Text(c, e.Source())}, c, true)
		}
		if reg == "" {
			reg = partReg
			continue
		}
		reg = e.Emit(ir.BINOP, []string{"+", reg, partReg}, n, true)
	}
	if reg == "" {
		reg = e.Emit(ir.CONST, []string{"\"\""}, n, true)
	}
	return reg
}

func lowerSpreadElement(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	var argReg string
	if len(named) > 0 {
		argReg = e.LowerExpr(named[0])
	}
	return e.Emit(ir.CALL_FUNCTION, []string{"spread", argReg}, n, true)
}

// lowerClosure returns an expr handler that lowers an anonymous function
// expression as a regularly-shaped function definition under a freshly
// synthesized name (spec §4.2.1's closures/lambdas pattern).
func lowerClosure(prefix string) engine.ExprHandler {
	return func(e *engine.Engine, n engine.Node) string {
		name := adapter.SyntheticName(e, prefix)
		return lowerAnonymousFunction(e, n, name)
	}
}

func lowerAnonymousFunction(e *engine.Engine, n engine.Node, name string) string {
	paramsNode, _ := n.ChildByFieldName(e.Config.FuncParamsField)
	bodyNode, _ := n.ChildByFieldName(e.Config.FuncBodyField)

	endLabel := e.FreshLabel("end_" + name)
	funcLabel := e.FreshLabel("func_" + name)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)
	e.EmitLabel(funcLabel, n)
	e.LowerParams(paramsNode)
	if bodyNode != nil && bodyNode.Type() == "statement_block" {
		e.LowerBlock(bodyNode)
		e.EmitImplicitReturn(n)
	} else {
		// Concise arrow body: a bare expression is the return value.
		e.LowerReturn(bodyNode, n)
	}
	e.EmitLabel(endLabel, n)
	ref := "<function:" + name + "@" + funcLabel + ">"
	return e.Emit(ir.CONST, []string{ref}, n, true)
}

func lowerUpdateExpression(e *engine.Engine, n engine.Node) string {
	named := n.NamedChildren()
	if len(named) == 0 {
		return e.Missing("update_target", n)
	}
	opText := "+"
	if len(n.Children()) > 0 {
		for _, c := range n.Children() {
			if c.Type() == "--" {
				opText = "-"
			}
		}
	}
	return e.LowerUpdateExpr(named[0], opText, n)
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
	init, _ := n.ChildByFieldName("initializer")
	cond, _ := n.ChildByFieldName("condition")
	update, _ := n.ChildByFieldName("increment")
	body, _ := n.ChildByFieldName("body")
	e.LowerCStyleFor(init, cond, update, body, n)
}

// lowerForInOf handles both `for...in` and `for...of`, distinguished by an
// anonymous "in"/"of" token child; `for...in` additionally wraps the
// iterable in a `keys()` helper call before the shared indexed-loop
// desugaring (spec §4.2.2).
func lowerForInOf(e *engine.Engine, n engine.Node) {
	left, _ := n.ChildByFieldName("left")
	right, _ := n.ChildByFieldName("right")
	body, _ := n.ChildByFieldName("body")

	isForIn := false
	for _, c := range n.Children() {
		if c.Type() == "in" {
			isForIn = true
		}
	}

	rightReg := e.LowerExprOrMissing(right, "for_in_of_source")
	iterReg := rightReg
	if isForIn {
		iterReg = e.Emit(ir.CALL_FUNCTION, []string{"keys", rightReg}, n, true)
	}

	adapter.ForEachAsIndexLoopFromReg(e, iterReg, body, n,
		func(elemReg, idxReg string) { storePattern(e, left, elemReg, n) },
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

// lowerVariableDeclaration handles `var`/`let`/`const` statements, each of
// which may bind more than one declarator in a single statement.
func lowerVariableDeclaration(e *engine.Engine, n engine.Node) {
	for _, d := range n.NamedChildren() {
		if d.Type() == "variable_declarator" {
			lowerVariableDeclarator(e, d)
		}
	}
}

func lowerVariableDeclarator(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	valueNode, hasValue := n.ChildByFieldName("value")
	if !hasValue || valueNode == nil {
		return
	}
	valReg := e.LowerExpr(valueNode)
	storePattern(e, nameNode, valReg, n)
}

// storePattern recurses through JS's object/array destructuring patterns
// (spec §4.2.1, Scenario F), falling back to a plain store.
func storePattern(e *engine.Engine, target engine.Node, valReg string, parent engine.Node) {
	if target == nil {
		return
	}
	switch target.Type() {
	case "object_pattern":
		var entries []adapter.DestructureEntry
		for _, p := range target.NamedChildren() {
			switch p.Type() {
			case "shorthand_property_identifier_pattern":
				entries = append(entries, adapter.DestructureEntry{Target: p, Key: engine.Text(p, e.Source())})
			case "pair_pattern":
				key, _ := p.ChildByFieldName("key")
				value, _ := p.ChildByFieldName("value")
				entries = append(entries, adapter.DestructureEntry{Target: value, Key: engine.Text(key, e.Source())})
			}
		}
		adapter.LowerDestructuring(e, entries, valReg, parent)
	case "array_pattern":
		var entries []adapter.DestructureEntry
		for i, el := range target.NamedChildren() {
			entries = append(entries, adapter.DestructureEntry{Target: el, Index: i})
		}
		adapter.LowerDestructuring(e, entries, valReg, parent)
	default:
		e.LowerStoreTarget(target, valReg, parent)
	}
}

func lowerStoreTargetOverride(e *engine.Engine, target engine.Node, valReg string, parent engine.Node) bool {
	switch target.Type() {
	case "object_pattern", "array_pattern":
		storePattern(e, target, valReg, parent)
		return true
	}
	return false
}

func lowerTryStatement(e *engine.Engine, n engine.Node) {
	body, _ := n.ChildByFieldName("body")
	var catches []engine.CatchClause
	var finallyNode engine.Node
	if handler, ok := n.ChildByFieldName("handler"); ok && handler != nil {
		paramNode, hasParam := handler.ChildByFieldName("parameter")
		varName := ""
		if hasParam && paramNode != nil {
			varName = engine.Text(paramNode, e.Source())
		}
		clauseBody, _ := handler.ChildByFieldName("body")
		catches = append(catches, engine.CatchClause{Body: clauseBody, VarName: varName})
	}
	if fin, ok := n.ChildByFieldName("finalizer"); ok && fin != nil {
		finallyNode = fin
	}
	e.LowerTryCatch(body, catches, finallyNode, nil, n)
}

func lowerSwitchStatement(e *engine.Engine, n engine.Node) {
	subject, _ := n.ChildByFieldName("value")
	body, _ := n.ChildByFieldName("body")
	var cases []adapter.SwitchCase
	if body != nil {
		for _, c := range body.NamedChildren() {
			switch c.Type() {
			case "switch_case":
				valueNode, _ := c.ChildByFieldName("value")
				cases = append(cases, adapter.SwitchCase{Values: []engine.Node{valueNode}, Body: c})
			case "switch_default":
				cases = append(cases, adapter.SwitchCase{Body: c, IsDefault: true})
			}
		}
	}
	adapter.LowerSwitchAsIfChain(e, subject, cases, n, true, func(arm engine.Node) {
		for _, stmt := range arm.NamedChildren() {
			if stmt.Type() == "switch_case" || stmt.Type() == "switch_default" {
				continue
			}
			e.LowerStmt(stmt)
		}
	})
}
