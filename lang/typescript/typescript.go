// Package typescript adapts the engine to TypeScript's tree-sitter grammar
// (spec §4.2.2's "inherits JS" row). It delegates to javascript.Wire for
// every construct JavaScript already covers, then layers TypeScript-only
// handlers and erasures on top — spec §9's explicit-delegation model for a
// host language without real interface inheritance, grounded on the
// teacher's pkg/cshmgen sitting directly atop pkg/clight.
package typescript

import (
	"strconv"

	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/lang/javascript"
	"github.com/tacir/lowercore/node"
)

// Adapter lowers TypeScript syntax trees.
type Adapter struct {
	*engine.Engine
}

// New constructs a TypeScript adapter: JavaScript's full dispatch table,
// plus TypeScript's type-erasure and type-only-construct handlers.
func New() *Adapter {
	e := engine.New(javascript.Config())
	a := &Adapter{Engine: e}
	javascript.Wire(e)

	// Type annotations/assertions/non-null/satisfies are erased: the
	// underlying expression lowers as if the wrapper weren't there.
	e.ExprDispatch["as_expression"] = transparentFirstChild
	e.ExprDispatch["satisfies_expression"] = transparentFirstChild
	e.ExprDispatch["non_null_expression"] = transparentFirstChild
	e.ExprDispatch["type_assertion"] = lowerAngleTypeAssertion

	e.StmtDispatch["type_alias_declaration"] = lowerNoop
	e.StmtDispatch["interface_declaration"] = lowerInterfaceDeclaration
	e.StmtDispatch["enum_declaration"] = lowerEnumDeclaration
	e.StmtDispatch["ambient_declaration"] = lowerNoop

	e.Config.ExtractParamName = extractParamName

	return a
}

// Lower implements adapter.Adapter.
func (a *Adapter) Lower(root node.Node, source []byte, filePath string) []ir.Instruction {
	return a.Engine.LowerProgram(root, source, filePath, func(e *engine.Engine, root engine.Node) {
		e.LowerBlock(root)
	})
}

// transparentFirstChild lowers the expression a type-only wrapper node holds
// (`expr as T`, `expr!`, `expr satisfies T`), discarding the type operand
// entirely (spec §4.2.2's TypeScript row: "type annotations ... stripped").
func transparentFirstChild(e *engine.Engine, n engine.Node) string {
	exprNode, _ := n.ChildByFieldName("expression")
	if exprNode == nil {
		named := n.NamedChildren()
		if len(named) > 0 {
			exprNode = named[0]
		}
	}
	return e.LowerExprOrMissing(exprNode, "type_wrapped_expr")
}

// lowerAngleTypeAssertion handles the older `<T>expr` cast syntax.
func lowerAngleTypeAssertion(e *engine.Engine, n engine.Node) string {
	exprNode, _ := n.ChildByFieldName("expression")
	return e.LowerExprOrMissing(exprNode, "type_assertion_expr")
}

// lowerNoop discards a purely type-level declaration (type alias, ambient
// declaration) that has no runtime representation.
func lowerNoop(e *engine.Engine, n engine.Node) {}

// lowerInterfaceDeclaration lowers an interface to `NEW_OBJECT
// "interface:Foo"` with one STORE_INDEX per named member signature (spec
// §4.2.2): interfaces carry no implementation, only shape, so each member is
// represented by a placeholder rather than a lowered body.
func lowerInterfaceDeclaration(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "interface")
	bodyNode, _ := n.ChildByFieldName("body")

	reg := e.Emit(ir.NEW_OBJECT, []string{"interface:" + name}, n, true)
	if bodyNode != nil {
		for _, member := range bodyNode.NamedChildren() {
			memberNameNode, _ := member.ChildByFieldName("name")
			memberName := e.NodeNameOrAnon(memberNameNode, "member")
			keyReg := e.Emit(ir.CONST, []string{memberName}, member, true)
			placeholder := e.Emit(ir.SYMBOLIC, []string{"interface_member:" + memberName}, member, true)
			e.Emit(ir.STORE_INDEX, []string{reg, keyReg, placeholder}, member, false)
		}
	}
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

// lowerEnumDeclaration lowers an enum to `NEW_OBJECT "enum:Color"` with each
// member stored at its positional index, 0..n-1 (spec §4.2.2).
func lowerEnumDeclaration(e *engine.Engine, n engine.Node) {
	nameNode, _ := n.ChildByFieldName("name")
	name := e.NodeNameOrAnon(nameNode, "enum")
	bodyNode, _ := n.ChildByFieldName("body")

	reg := e.Emit(ir.NEW_OBJECT, []string{"enum:" + name}, n, true)
	if bodyNode != nil {
		idx := 0
		for _, member := range bodyNode.NamedChildren() {
			if member.Type() != "enum_assignment" && member.Type() != "property_identifier" {
				continue
			}
			memberName := ""
			if member.Type() == "enum_assignment" {
				mn, _ := member.ChildByFieldName("name")
				memberName = engine.Text(mn, e.Source())
			} else {
				memberName = engine.Text(member, e.Source())
			}
			keyReg := e.Emit(ir.CONST, []string{strconv.Itoa(idx)}, member, true)
			valReg := e.Emit(ir.CONST, []string{memberName}, member, true)
			e.Emit(ir.STORE_INDEX, []string{reg, keyReg, valReg}, member, false)
			idx++
		}
	}
	e.Emit(ir.STORE_VAR, []string{name, reg}, n, false)
}

// extractParamName reads a parameter's bound identifier out of
// tree-sitter-typescript's typed-parameter wrappers (`required_parameter`/
// `optional_parameter`), which expose the name under a "pattern" field
// rather than "name" the way a bare JS parameter does.
func extractParamName(e *engine.Engine, param engine.Node) string {
	if patternNode, ok := param.ChildByFieldName("pattern"); ok && patternNode != nil {
		return engine.Text(patternNode, e.Source())
	}
	if nameNode, ok := param.ChildByFieldName("name"); ok && nameNode != nil {
		return engine.Text(nameNode, e.Source())
	}
	return engine.Text(param, e.Source())
}
