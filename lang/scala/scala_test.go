package scala

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerBlockExpressionReturnsLastValue(t *testing.T) {
	one := testutil.Leaf("integer_literal", "1")
	two := testutil.Leaf("integer_literal", "2")
	block := testutil.Node("block", nil, one, two)
	root := testutil.Node("compilation_unit", nil, testutil.Node("val_definition",
		testutil.Fields{"pattern": testutil.Leaf("identifier", "x"), "value": block}))

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "b.scala")

	var constCount int
	var lastReg, storedReg string
	for _, i := range instrs {
		if i.Opcode == ir.CONST {
			constCount++
			if len(i.Operands) > 0 && i.Operands[0] == "2" {
				lastReg = i.ResultReg
			}
		}
		if i.Opcode == ir.STORE_VAR && len(i.Operands) == 2 && i.Operands[0] == "x" {
			storedReg = i.Operands[1]
		}
	}
	if constCount != 2 {
		t.Errorf("expected 2 CONST (one per literal), got %d: %v", constCount, instrs)
	}
	if lastReg == "" || storedReg != lastReg {
		t.Errorf("expected x to be stored from the last literal's register %q, got %q: %v", lastReg, storedReg, instrs)
	}
}

func TestLowerMatchExpressionBuildsEqualityChain(t *testing.T) {
	subject := testutil.Leaf("identifier", "n")
	pattern := testutil.Leaf("integer_literal", "1")
	body := testutil.Leaf("string", "\"one\"")
	caseClause := testutil.Node("case_clause", testutil.Fields{"pattern": pattern, "body": body})
	match := testutil.Node("match_expression", testutil.Fields{"value": subject}, caseClause)
	root := testutil.Node("compilation_unit", nil, testutil.Node("val_definition",
		testutil.Fields{"pattern": testutil.Leaf("identifier", "r"), "value": match}))

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "m.scala")

	var sawEq bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && len(i.Operands) > 0 && i.Operands[0] == "==" {
			sawEq = true
		}
	}
	if !sawEq {
		t.Errorf("expected == comparison in match lowering, got %v", instrs)
	}
}

func TestLowerThrowExpressionEmitsThrow(t *testing.T) {
	exc := testutil.Node("instance_expression", nil, testutil.Leaf("identifier", "RuntimeException"))
	throwExpr := testutil.Node("throw_expression", nil, exc)
	root := testutil.Node("compilation_unit", nil, testutil.Node("val_definition",
		testutil.Fields{"pattern": testutil.Leaf("identifier", "z"), "value": throwExpr}))

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "t.scala")

	var sawThrow bool
	for _, i := range instrs {
		if i.Opcode == ir.THROW {
			sawThrow = true
		}
	}
	if !sawThrow {
		t.Errorf("expected THROW, got %v", instrs)
	}
}
