package c

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerPointerDereferenceEmitsStarField(t *testing.T) {
	p := testutil.Leaf("identifier", "p")
	deref := testutil.Node("pointer_expression", nil, p)
	assign := testutil.Node("expression_statement", nil,
		testutil.Node("assignment_expression", testutil.Fields{
			"left":  deref,
			"right": testutil.Leaf("number_literal", "1"),
		}))
	body := testutil.Node("compound_statement", nil, assign)
	declarator := testutil.Node("function_declarator", testutil.Fields{
		"declarator": testutil.Leaf("identifier", "store"),
		"parameters": testutil.Node("parameter_list", nil),
	})
	fn := testutil.Node("function_definition", testutil.Fields{"declarator": declarator, "body": body})
	root := testutil.Node("translation_unit", nil, fn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "s.c")

	var sawStarStore bool
	for _, i := range instrs {
		if i.Opcode == ir.STORE_FIELD && len(i.Operands) >= 2 && i.Operands[1] == "*" {
			sawStarStore = true
		}
	}
	if !sawStarStore {
		t.Errorf("expected STORE_FIELD with sentinel '*' field, got %v", instrs)
	}
}

func TestLowerSizeofEmitsNamedCall(t *testing.T) {
	arg := testutil.Leaf("identifier", "x")
	sizeofExpr := testutil.Node("sizeof_expression", nil, arg)
	decl := testutil.Node("declaration", nil,
		testutil.Node("init_declarator", testutil.Fields{
			"declarator": testutil.Leaf("identifier", "n"),
			"value":      sizeofExpr,
		}))
	root := testutil.Node("translation_unit", nil, decl)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "sz.c")

	var sawSizeof bool
	for _, i := range instrs {
		if i.Opcode == ir.CALL_FUNCTION && len(i.Operands) > 0 && i.Operands[0] == "sizeof" {
			sawSizeof = true
		}
	}
	if !sawSizeof {
		t.Errorf("expected CALL_FUNCTION sizeof, got %v", instrs)
	}
}

func TestLowerSwitchStatementBuildsEqualityChain(t *testing.T) {
	subject := testutil.Leaf("identifier", "n")
	one := testutil.Leaf("number_literal", "1")
	armBody := testutil.Node("expression_statement", nil, testutil.Leaf("number_literal", "100"))
	caseStmt := testutil.Node("case_statement", testutil.Fields{"value": one}, armBody)
	body := testutil.Node("compound_statement", nil, caseStmt)
	sw := testutil.Node("switch_statement", testutil.Fields{"condition": subject, "body": body})
	root := testutil.Node("translation_unit", nil, sw)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "sw.c")

	var sawEq bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && len(i.Operands) > 0 && i.Operands[0] == "==" {
			sawEq = true
		}
	}
	if !sawEq {
		t.Errorf("expected == comparison in switch lowering, got %v", instrs)
	}
}
