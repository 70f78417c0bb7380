package typescript

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerEnumDeclarationIndexesMembers(t *testing.T) {
	red := testutil.Leaf("property_identifier", "Red")
	green := testutil.Leaf("property_identifier", "Green")
	body := testutil.Node("enum_body", nil, red, green)
	name := testutil.Leaf("identifier", "Color")
	enumDecl := testutil.Node("enum_declaration", testutil.Fields{"name": name, "body": body})
	root := testutil.Node("program", nil, enumDecl)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "c.ts")

	var sawEnumTag, sawStoreColor bool
	var storeIndexCount int
	for _, i := range instrs {
		if i.Opcode == ir.NEW_OBJECT && i.Operands[0] == "enum:Color" {
			sawEnumTag = true
		}
		if i.Opcode == ir.STORE_VAR && i.Operands[0] == "Color" {
			sawStoreColor = true
		}
		if i.Opcode == ir.STORE_INDEX {
			storeIndexCount++
		}
	}
	if !sawEnumTag || !sawStoreColor {
		t.Errorf("sawEnumTag=%v sawStoreColor=%v, instrs=%v", sawEnumTag, sawStoreColor, instrs)
	}
	if storeIndexCount != 2 {
		t.Errorf("got %d STORE_INDEX, want 2", storeIndexCount)
	}
}

func TestAsExpressionIsTransparent(t *testing.T) {
	expr := testutil.Leaf("identifier", "x")
	typeNode := testutil.Leaf("predefined_type", "number")
	asExpr := testutil.Node("as_expression", testutil.Fields{"expression": expr}, expr, typeNode)
	root := testutil.Node("program", nil, testutil.Node("expression_statement", nil, asExpr))

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "a.ts")

	var sawLoadX bool
	for _, i := range instrs {
		if i.Opcode == ir.LOAD_VAR && len(i.Operands) > 0 && i.Operands[0] == "x" {
			sawLoadX = true
		}
	}
	if !sawLoadX {
		t.Errorf("expected LOAD_VAR x from transparent as_expression, got %v", instrs)
	}
}
