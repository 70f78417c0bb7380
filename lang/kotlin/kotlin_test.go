package kotlin

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerWhenExpressionBuildsEqualityChain(t *testing.T) {
	subject := testutil.Leaf("simple_identifier", "n")
	one := testutil.Leaf("integer_literal", "1")
	armVal := testutil.Leaf("integer_literal", "100")
	entry := testutil.Node("when_entry", nil, one, armVal)
	elseVal := testutil.Leaf("integer_literal", "0")
	elseEntry := testutil.Node("when_entry", nil, testutil.AnonLeaf("else", "else"), elseVal)
	when := testutil.Node("when_expression", testutil.Fields{"subject": subject}, entry, elseEntry)
	root := testutil.Node("source_file", nil, when)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "w.kt")

	var sawEq bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && len(i.Operands) > 0 && i.Operands[0] == "==" {
			sawEq = true
		}
	}
	if !sawEq {
		t.Errorf("expected == comparison in when lowering, got %v", instrs)
	}
}

func TestLowerElvisExpressionEmitsBinop(t *testing.T) {
	left := testutil.Leaf("simple_identifier", "a")
	right := testutil.Leaf("integer_literal", "0")
	elvis := testutil.Node("elvis_expression", nil, left, testutil.AnonLeaf("?:", "?:"), right)
	root := testutil.Node("source_file", nil, testutil.Node("property_declaration",
		testutil.Fields{"name": testutil.Leaf("simple_identifier", "x"), "value": elvis}))

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "e.kt")

	var sawElvis bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && len(i.Operands) > 0 && i.Operands[0] == "?:" {
			sawElvis = true
		}
	}
	if !sawElvis {
		t.Errorf("expected BINOP ?: , got %v", instrs)
	}
}

func TestLowerNotNullAssertionEmitsUnop(t *testing.T) {
	x := testutil.Leaf("simple_identifier", "x")
	assertion := testutil.Node("postfix_expression", nil, x, testutil.AnonLeaf("!!", "!!"))
	root := testutil.Node("source_file", nil, testutil.Node("property_declaration",
		testutil.Fields{"name": testutil.Leaf("simple_identifier", "y"), "value": assertion}))

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "nn.kt")

	var sawBang bool
	for _, i := range instrs {
		if i.Opcode == ir.UNOP && len(i.Operands) > 0 && i.Operands[0] == "!!" {
			sawBang = true
		}
	}
	if !sawBang {
		t.Errorf("expected UNOP !!, got %v", instrs)
	}
}
