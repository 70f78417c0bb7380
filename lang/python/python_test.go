package python

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerFunctionDefScenarioA(t *testing.T) {
	paramA := testutil.Leaf("identifier", "a")
	paramB := testutil.Leaf("identifier", "b")
	params := testutil.Node("parameters", nil, paramA, paramB)

	binop := testutil.Node("binary_operator", nil,
		testutil.Leaf("identifier", "a"), testutil.AnonLeaf("+", "+"), testutil.Leaf("identifier", "b"))
	ret := testutil.Node("return_statement", nil, binop)
	body := testutil.Node("block", nil, ret)
	name := testutil.Leaf("identifier", "add")
	fn := testutil.Node("function_definition", testutil.Fields{"name": name, "parameters": params, "body": body})
	root := testutil.Node("module", nil, fn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "add.py")

	if instrs[0].Opcode != ir.LABEL || instrs[0].Label != "entry" {
		t.Fatalf("instrs[0] = %+v, want LABEL entry", instrs[0])
	}

	var sawParamA, sawParamB, sawBinop, sawReturn, sawFuncLabel, sawStoreAdd bool
	for _, i := range instrs {
		if i.Opcode == ir.SYMBOLIC && i.Operands[0] == "param:a" {
			sawParamA = true
		}
		if i.Opcode == ir.SYMBOLIC && i.Operands[0] == "param:b" {
			sawParamB = true
		}
		if i.Opcode == ir.BINOP && i.Operands[0] == "+" {
			sawBinop = true
		}
		if i.Opcode == ir.RETURN {
			sawReturn = true
		}
		if i.Opcode == ir.LABEL && len(i.Label) > 9 && i.Label[:9] == "func_add_" {
			sawFuncLabel = true
		}
		if i.Opcode == ir.STORE_VAR && i.Operands[0] == "add" {
			sawStoreAdd = true
		}
	}
	for name, saw := range map[string]bool{
		"param:a": sawParamA, "param:b": sawParamB, "binop": sawBinop,
		"return": sawReturn, "func label": sawFuncLabel, "store add": sawStoreAdd,
	} {
		if !saw {
			t.Errorf("missing %s in %v", name, instrs)
		}
	}
}

func TestLowerTupleDestructuring(t *testing.T) {
	left := testutil.Node("pattern_list", nil, testutil.Leaf("identifier", "x"), testutil.Leaf("identifier", "y"))
	right := testutil.Leaf("identifier", "pair")
	assign := testutil.Node("assignment", testutil.Fields{"left": left, "right": right})
	root := testutil.Node("module", nil, assign)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "t.py")

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

func TestLowerNoneTrueFalseCanonicalization(t *testing.T) {
	for _, tc := range []struct {
		typ, want string
	}{
		{"none", "None"}, {"true", "True"}, {"false", "False"},
	} {
		lit := testutil.Leaf(tc.typ, tc.typ)
		root := testutil.Node("module", nil, lit)
		tree := testutil.Build(root)
		a := New()
		instrs := a.Lower(tree.Root, tree.Source, "x.py")

		var found bool
		for _, i := range instrs {
			if i.Opcode == ir.CONST && len(i.Operands) > 0 && i.Operands[0] == tc.want {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: expected CONST %q in %v", tc.typ, tc.want, instrs)
		}
	}
}
