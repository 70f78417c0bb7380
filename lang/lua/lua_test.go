package lua

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerMethodCallEmitsCallMethod(t *testing.T) {
	callee := testutil.Node("method_index_expression", testutil.Fields{
		"table":  testutil.Leaf("identifier", "obj"),
		"method": testutil.AnonLeaf("identifier", "go"),
	})
	call := testutil.Node("function_call", testutil.Fields{"name": callee})
	root := testutil.Node("chunk", nil, call)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "m.lua")

	var sawCallMethod bool
	for _, i := range instrs {
		if i.Opcode == ir.CALL_METHOD {
			sawCallMethod = true
		}
	}
	if !sawCallMethod {
		t.Errorf("expected CALL_METHOD for a:m(), got %v", instrs)
	}
}

func TestLowerTableConstructorPositionalStartsAtOne(t *testing.T) {
	value := testutil.Leaf("string", "\"hello\"")
	table := testutil.Node("table_constructor", nil, value)
	root := testutil.Node("chunk", nil, table)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "t.lua")

	var sawOne bool
	for _, i := range instrs {
		if i.Opcode == ir.CONST && len(i.Operands) > 0 && i.Operands[0] == "1" {
			sawOne = true
		}
	}
	if !sawOne {
		t.Errorf("expected positional table entry indexed from 1, got %v", instrs)
	}
}

func TestLowerRepeatStatementNegatesCondition(t *testing.T) {
	cond := testutil.Leaf("identifier", "done")
	repeat := testutil.Node("repeat_statement", testutil.Fields{
		"body":      testutil.Node("block", nil),
		"condition": cond,
	})
	root := testutil.Node("chunk", nil, repeat)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "r.lua")

	var sawNegation bool
	for _, i := range instrs {
		if i.Opcode == ir.UNOP && len(i.Operands) > 0 && i.Operands[0] == "!" {
			sawNegation = true
		}
	}
	if !sawNegation {
		t.Errorf("expected UNOP ! negating repeat..until condition, got %v", instrs)
	}
}

func TestLowerDotIndexDistinctFromBracketIndex(t *testing.T) {
	dot := testutil.Node("dot_index_expression", testutil.Fields{
		"table": testutil.Leaf("identifier", "t"),
		"field": testutil.AnonLeaf("identifier", "x"),
	})
	bracket := testutil.Node("bracket_index_expression", testutil.Fields{
		"table": testutil.Leaf("identifier", "t"),
		"field": testutil.Leaf("identifier", "k"),
	})
	root := testutil.Node("chunk", nil, dot, bracket)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "i.lua")

	var sawLoadField, sawLoadIndex bool
	for _, i := range instrs {
		if i.Opcode == ir.LOAD_FIELD {
			sawLoadField = true
		}
		if i.Opcode == ir.LOAD_INDEX {
			sawLoadIndex = true
		}
	}
	if !sawLoadField || !sawLoadIndex {
		t.Errorf("expected both LOAD_FIELD (dot) and LOAD_INDEX (bracket), got %v", instrs)
	}
}
