package csharp

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerIsExpressionEmitsNamedCall(t *testing.T) {
	left := testutil.Leaf("identifier", "obj")
	right := testutil.AnonLeaf("identifier", "Widget")
	isExpr := testutil.Node("is_expression", testutil.Fields{"left": left, "right": right})
	decl := testutil.Node("variable_declarator", testutil.Fields{
		"name":  testutil.Leaf("identifier", "ok"),
		"value": isExpr,
	})
	local := testutil.Node("local_declaration_statement", nil,
		testutil.Node("variable_declaration", nil, decl))
	root := testutil.Node("compilation_unit", nil, local)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "i.cs")

	var sawIs bool
	for _, i := range instrs {
		if i.Opcode == ir.CALL_FUNCTION && len(i.Operands) > 0 && i.Operands[0] == "is" {
			sawIs = true
		}
	}
	if !sawIs {
		t.Errorf("expected CALL_FUNCTION is, got %v", instrs)
	}
}

func TestLowerPropertyDeclarationStoresThisField(t *testing.T) {
	prop := testutil.Node("property_declaration", testutil.Fields{
		"name":  testutil.Leaf("identifier", "Count"),
		"value": testutil.Leaf("integer_literal", "0"),
	})
	body := testutil.Node("declaration_list", nil, prop)
	class := testutil.Node("class_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "Counter"),
		"body": body,
	})
	root := testutil.Node("compilation_unit", nil, class)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "p.cs")

	var sawStoreField bool
	for _, i := range instrs {
		if i.Opcode == ir.STORE_FIELD && len(i.Operands) >= 2 && i.Operands[1] == "Count" {
			sawStoreField = true
		}
	}
	if !sawStoreField {
		t.Errorf("expected STORE_FIELD this, Count, got %v", instrs)
	}
}

func TestLowerEventFieldDeclarationEmitsEventConst(t *testing.T) {
	declarator := testutil.Node("variable_declarator", testutil.Fields{"name": testutil.Leaf("identifier", "Changed")})
	varDecl := testutil.Node("variable_declaration", nil, declarator)
	event := testutil.Node("event_field_declaration", nil, varDecl)
	body := testutil.Node("declaration_list", nil, event)
	class := testutil.Node("class_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "Button"),
		"body": body,
	})
	root := testutil.Node("compilation_unit", nil, class)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "e.cs")

	var sawEventConst bool
	for _, i := range instrs {
		if i.Opcode == ir.CONST && len(i.Operands) > 0 && i.Operands[0] == "event:Changed" {
			sawEventConst = true
		}
	}
	if !sawEventConst {
		t.Errorf("expected CONST event:Changed, got %v", instrs)
	}
}
