package php

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerVariableNameRetainsSigil(t *testing.T) {
	v := testutil.Leaf("variable_name", "$count")
	stmt := testutil.Node("expression_statement", nil, v)
	root := testutil.Node("program", nil, stmt)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "v.php")

	var sawDollar bool
	for _, i := range instrs {
		if i.Opcode == ir.LOAD_VAR && len(i.Operands) > 0 && i.Operands[0] == "$count" {
			sawDollar = true
		}
	}
	if !sawDollar {
		t.Errorf("expected LOAD_VAR $count retaining the sigil, got %v", instrs)
	}
}

func TestLowerMatchExpressionUsesStrictEquality(t *testing.T) {
	subject := testutil.Leaf("variable_name", "$x")
	conds := testutil.Node("match_conditional_expression", testutil.Fields{
		"conditions": testutil.Node("match_condition_list", nil, testutil.Leaf("integer", "1")),
		"body":       testutil.Leaf("integer", "10"),
	})
	match := testutil.Node("match_expression", testutil.Fields{"condition": subject}, conds)
	stmt := testutil.Node("expression_statement", nil, match)
	root := testutil.Node("program", nil, stmt)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "m.php")

	var sawStrictEq bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && len(i.Operands) > 0 && i.Operands[0] == "===" {
			sawStrictEq = true
		}
	}
	if !sawStrictEq {
		t.Errorf("expected BINOP === for match, got %v", instrs)
	}
}

func TestLowerEnumCaseEmitsStoreFieldSelf(t *testing.T) {
	caseNode := testutil.Node("enum_case", testutil.Fields{
		"name": testutil.Leaf("name", "Red"),
	})
	body := testutil.Node("enum_declaration_list", nil, caseNode)
	enum := testutil.Node("enum_declaration", testutil.Fields{
		"name": testutil.Leaf("name", "Color"),
		"body": body,
	})
	root := testutil.Node("program", nil, enum)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "e.php")

	var sawStoreField bool
	for _, i := range instrs {
		if i.Opcode == ir.STORE_FIELD && len(i.Operands) >= 2 && i.Operands[1] == "Red" {
			sawStoreField = true
		}
	}
	if !sawStoreField {
		t.Errorf("expected STORE_FIELD self, Red for the enum case, got %v", instrs)
	}
}

func TestLowerForeachBindsKeyAndValue(t *testing.T) {
	foreach := testutil.Node("foreach_statement", testutil.Fields{
		"array": testutil.Leaf("variable_name", "$a"),
		"key":   testutil.Leaf("variable_name", "$k"),
		"value": testutil.Leaf("variable_name", "$v"),
		"body":  testutil.Node("compound_statement", nil),
	})
	root := testutil.Node("program", nil, foreach)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "f.php")

	var sawStoreKey, sawStoreValue bool
	for _, i := range instrs {
		if i.Opcode == ir.STORE_VAR && len(i.Operands) > 0 && i.Operands[0] == "$k" {
			sawStoreKey = true
		}
		if i.Opcode == ir.STORE_VAR && len(i.Operands) > 0 && i.Operands[0] == "$v" {
			sawStoreValue = true
		}
	}
	if !sawStoreKey {
		t.Errorf("expected foreach's key variable $k to be bound via STORE_VAR to the loop's own index, got %v", instrs)
	}
	if !sawStoreValue {
		t.Errorf("expected foreach's value variable $v to be bound via STORE_VAR, got %v", instrs)
	}
}
