package java

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerMethodDeclarationEmitsFunctionRef(t *testing.T) {
	a := testutil.Leaf("identifier", "a")
	b := testutil.Leaf("identifier", "b")
	params := testutil.Node("formal_parameters", nil,
		testutil.Node("formal_parameter", testutil.Fields{"name": a}),
		testutil.Node("formal_parameter", testutil.Fields{"name": b}),
	)
	binop := testutil.Node("binary_expression", nil,
		testutil.Leaf("identifier", "a"), testutil.AnonLeaf("+", "+"), testutil.Leaf("identifier", "b"))
	ret := testutil.Node("return_statement", nil, binop)
	body := testutil.Node("block", nil, ret)
	name := testutil.Leaf("identifier", "add")
	method := testutil.Node("method_declaration", testutil.Fields{"name": name, "parameters": params, "body": body})
	classBody := testutil.Node("class_body", nil, method)
	className := testutil.Leaf("identifier", "Calc")
	class := testutil.Node("class_declaration", testutil.Fields{"name": className, "body": classBody})
	root := testutil.Node("program", nil, class)

	tree := testutil.Build(root)
	a2 := New()
	instrs := a2.Lower(tree.Root, tree.Source, "Calc.java")

	var sawFuncRef, sawClassRef, sawBinop bool
	for _, i := range instrs {
		if i.Opcode == ir.STORE_VAR && len(i.Operands) > 0 && i.Operands[0] == "add" {
			sawFuncRef = true
		}
		if i.Opcode == ir.STORE_VAR && len(i.Operands) > 0 && i.Operands[0] == "Calc" {
			sawClassRef = true
		}
		if i.Opcode == ir.BINOP && len(i.Operands) > 0 && i.Operands[0] == "+" {
			sawBinop = true
		}
	}
	if !sawFuncRef || !sawClassRef || !sawBinop {
		t.Errorf("sawFuncRef=%v sawClassRef=%v sawBinop=%v, instrs=%v", sawFuncRef, sawClassRef, sawBinop, instrs)
	}
}

func TestLowerEnhancedForDesugarsToIndexLoop(t *testing.T) {
	items := testutil.Leaf("identifier", "items")
	x := testutil.Leaf("identifier", "x")
	callArgs := testutil.Node("argument_list", nil, x)
	callName := testutil.Leaf("identifier", "use")
	call := testutil.Node("method_invocation", testutil.Fields{"name": callName, "arguments": callArgs})
	exprStmt := testutil.Node("expression_statement", nil, call)
	body := testutil.Node("block", nil, exprStmt)
	forStmt := testutil.Node("enhanced_for_statement", testutil.Fields{"name": x, "value": items, "body": body})
	root := testutil.Node("program", nil, forStmt)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "Loop.java")

	var sawLen, sawLoadIndex bool
	for _, i := range instrs {
		if i.Opcode == ir.CALL_FUNCTION && len(i.Operands) > 0 && i.Operands[0] == "len" {
			sawLen = true
		}
		if i.Opcode == ir.LOAD_INDEX {
			sawLoadIndex = true
		}
	}
	if !sawLen || !sawLoadIndex {
		t.Errorf("sawLen=%v sawLoadIndex=%v, instrs=%v", sawLen, sawLoadIndex, instrs)
	}
}

func TestLowerSwitchStatementEmitsEqualityChain(t *testing.T) {
	subject := testutil.Leaf("identifier", "n")
	one := testutil.Leaf("decimal_integer_literal", "1")
	label := testutil.Node("switch_label", nil, one)
	call := testutil.Node("method_invocation", testutil.Fields{
		"name": testutil.Leaf("identifier", "onOne"), "arguments": testutil.Node("argument_list", nil)})
	exprStmt := testutil.Node("expression_statement", nil, call)
	grp := testutil.Node("switch_block_statement_group", nil, label, exprStmt)
	block := testutil.Node("switch_block", nil, grp)
	sw := testutil.Node("switch_statement", testutil.Fields{"condition": subject, "body": block})
	root := testutil.Node("program", nil, sw)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "Sw.java")

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
