package javascript

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerFunctionDeclarationScenarioA(t *testing.T) {
	paramA := testutil.Leaf("identifier", "a")
	paramB := testutil.Leaf("identifier", "b")
	params := testutil.Node("formal_parameters", nil, paramA, paramB)

	binop := testutil.Node("binary_expression", nil,
		testutil.Leaf("identifier", "a"), testutil.AnonLeaf("+", "+"), testutil.Leaf("identifier", "b"))
	ret := testutil.Node("return_statement", nil, binop)
	body := testutil.Node("statement_block", nil, ret)
	name := testutil.Leaf("identifier", "add")
	fn := testutil.Node("function_declaration", testutil.Fields{"name": name, "parameters": params, "body": body})
	root := testutil.Node("program", nil, fn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "add.js")

	if instrs[0].Opcode != ir.LABEL || instrs[0].Label != "entry" {
		t.Fatalf("instrs[0] = %+v, want LABEL entry", instrs[0])
	}

	var sawBinop, sawReturn, sawStoreAdd bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && i.Operands[0] == "+" {
			sawBinop = true
		}
		if i.Opcode == ir.RETURN {
			sawReturn = true
		}
		if i.Opcode == ir.STORE_VAR && i.Operands[0] == "add" {
			sawStoreAdd = true
		}
	}
	if !sawBinop || !sawReturn || !sawStoreAdd {
		t.Errorf("binop=%v return=%v storeAdd=%v, instrs=%v", sawBinop, sawReturn, sawStoreAdd, instrs)
	}
}

func TestLowerArrayDestructuring(t *testing.T) {
	left := testutil.Node("array_pattern", nil, testutil.Leaf("identifier", "x"), testutil.Leaf("identifier", "y"))
	right := testutil.Leaf("identifier", "pair")
	declarator := testutil.Node("variable_declarator", testutil.Fields{"name": left, "value": right})
	decl := testutil.Node("lexical_declaration", nil, declarator)
	root := testutil.Node("program", nil, decl)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "t.js")

	var indexLoads, storeX, storeY int
	for _, i := range instrs {
		if i.Opcode == ir.LOAD_INDEX {
			indexLoads++
		}
		if i.Opcode == ir.STORE_VAR && i.Operands[0] == "x" {
			storeX++
		}
		if i.Opcode == ir.STORE_VAR && i.Operands[0] == "y" {
			storeY++
		}
	}
	if indexLoads != 2 {
		t.Errorf("got %d LOAD_INDEX, want 2", indexLoads)
	}
	if storeX != 1 || storeY != 1 {
		t.Errorf("got storeX=%d storeY=%d, want 1 each", storeX, storeY)
	}
}

func TestLowerSwitchStatementFallsToDefault(t *testing.T) {
	subject := testutil.Leaf("identifier", "x")
	caseBody := testutil.Node("switch_case", testutil.Fields{"value": testutil.Leaf("number", "1")},
		testutil.Node("break_statement", nil))
	defaultBody := testutil.Node("switch_default", nil, testutil.Node("break_statement", nil))
	body := testutil.Node("switch_body", nil, caseBody, defaultBody)
	sw := testutil.Node("switch_statement", testutil.Fields{"value": subject, "body": body})
	root := testutil.Node("program", nil, sw)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "s.js")

	var sawStrictEq bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && i.Operands[0] == "===" {
			sawStrictEq = true
		}
	}
	if !sawStrictEq {
		t.Errorf("expected strict-equality BINOP in switch lowering, got %v", instrs)
	}
}
