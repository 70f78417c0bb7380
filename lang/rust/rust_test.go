package rust

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerTryExpressionEmitsTryUnwrap(t *testing.T) {
	call := testutil.Node("call_expression", testutil.Fields{
		"function":  testutil.Leaf("identifier", "read_file"),
		"arguments": testutil.Node("arguments", nil),
	})
	try := testutil.Node("try_expression", nil, call)
	stmt := testutil.Node("expression_statement", nil, try)
	root := testutil.Node("program", nil, stmt)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "t.rs")

	var sawTryUnwrap bool
	for _, i := range instrs {
		if i.Opcode == ir.CALL_FUNCTION && len(i.Operands) > 0 && i.Operands[0] == "try_unwrap" {
			sawTryUnwrap = true
		}
	}
	if !sawTryUnwrap {
		t.Errorf("expected CALL_FUNCTION try_unwrap for `?`, got %v", instrs)
	}
}

func TestLowerMacroInvocationAppendsBang(t *testing.T) {
	macro := testutil.Node("macro_invocation", testutil.Fields{
		"macro": testutil.Leaf("identifier", "println"),
	}, testutil.Node("token_tree", nil, testutil.Leaf("string_literal", "\"hi\"")))
	stmt := testutil.Node("expression_statement", nil, macro)
	root := testutil.Node("program", nil, stmt)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "m.rs")

	var sawBang bool
	for _, i := range instrs {
		if i.Opcode == ir.CALL_FUNCTION && len(i.Operands) > 0 && i.Operands[0] == "println!" {
			sawBang = true
		}
	}
	if !sawBang {
		t.Errorf("expected CALL_FUNCTION println!, got %v", instrs)
	}
}

func TestLowerLetDeclarationUnwrapsMutPattern(t *testing.T) {
	pattern := testutil.Node("mut_pattern", nil, testutil.Leaf("identifier", "count"))
	let := testutil.Node("let_declaration", testutil.Fields{
		"pattern": pattern,
		"value":   testutil.Leaf("integer_literal", "0"),
	})
	root := testutil.Node("program", nil, let)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "l.rs")

	var sawStore bool
	for _, i := range instrs {
		if i.Opcode == ir.STORE_VAR && len(i.Operands) > 0 && i.Operands[0] == "count" {
			sawStore = true
		}
	}
	if !sawStore {
		t.Errorf("expected STORE_VAR count through the mut wrapper, got %v", instrs)
	}
}

func TestLowerIfExpressionPhisBranchResult(t *testing.T) {
	ifExpr := testutil.Node("if_expression", testutil.Fields{
		"condition":   testutil.Leaf("identifier", "ready"),
		"consequence": testutil.Node("block", nil, testutil.Leaf("integer_literal", "1")),
		"alternative": testutil.Node("block", nil, testutil.Leaf("integer_literal", "2")),
	})
	let := testutil.Node("let_declaration", testutil.Fields{
		"pattern": testutil.Leaf("identifier", "x"),
		"value":   ifExpr,
	})
	root := testutil.Node("program", nil, let)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "i.rs")

	var sawPhiStore bool
	for _, i := range instrs {
		if i.Opcode == ir.STORE_VAR && len(i.Operands) > 0 && i.Operands[0] == "x" {
			sawPhiStore = true
		}
	}
	if !sawPhiStore {
		t.Errorf("expected the if-expression's result stored into x, got %v", instrs)
	}
}
