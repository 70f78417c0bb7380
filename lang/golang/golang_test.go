package golang

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerMainFunctionBodyHoistedToTopLevel(t *testing.T) {
	assign := testutil.Node("short_var_declaration", testutil.Fields{
		"left":  testutil.Node("expression_list", nil, testutil.Leaf("identifier", "x")),
		"right": testutil.Node("expression_list", nil, testutil.Leaf("int_literal", "1")),
	})
	body := testutil.Node("block", nil, assign)
	mainFn := testutil.Node("function_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "main"),
		"body": body,
	})
	root := testutil.Node("source_file", nil, mainFn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "m.go")

	var sawStoreX, sawFuncRefForMain bool
	for _, i := range instrs {
		if i.Opcode == ir.STORE_VAR && len(i.Operands) > 0 && i.Operands[0] == "x" {
			sawStoreX = true
		}
		if i.Opcode == ir.STORE_VAR && len(i.Operands) > 0 && i.Operands[0] == "main" {
			sawFuncRefForMain = true
		}
	}
	if !sawStoreX {
		t.Errorf("expected main's body to be lowered directly (STORE_VAR x), got %v", instrs)
	}
	if sawFuncRefForMain {
		t.Errorf("expected main to NOT be bound as a callable function reference, got %v", instrs)
	}
}

func TestLowerMultiReturnEmitsSequentialReturns(t *testing.T) {
	one := testutil.Leaf("int_literal", "1")
	two := testutil.Leaf("int_literal", "2")
	ret := testutil.Node("return_statement", nil, one, two)
	body := testutil.Node("block", nil, ret)
	fn := testutil.Node("function_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "pair"),
		"body": body,
	})
	root := testutil.Node("source_file", nil, fn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "r.go")

	var returnCount int
	for _, i := range instrs {
		if i.Opcode == ir.RETURN {
			returnCount++
		}
	}
	// Two sequential RETURNs for `return 1, 2`, plus the function's own
	// implicit trailing RETURN.
	if returnCount != 3 {
		t.Errorf("expected 2 sequential RETURN instructions plus the implicit one (3), got %d: %v", returnCount, instrs)
	}
}

func TestLowerCompositeLiteralEmitsNewObjectAndStoreField(t *testing.T) {
	keyed := testutil.Node("keyed_element", testutil.Fields{
		"key":   testutil.Leaf("identifier", "Name"),
		"value": testutil.Leaf("interpreted_string_literal", "\"a\""),
	})
	body := testutil.Node("literal_value", nil, keyed)
	lit := testutil.Node("composite_literal", testutil.Fields{
		"type": testutil.AnonLeaf("type_identifier", "Point"),
		"body": body,
	})
	assign := testutil.Node("short_var_declaration", testutil.Fields{
		"left":  testutil.Node("expression_list", nil, testutil.Leaf("identifier", "p")),
		"right": testutil.Node("expression_list", nil, lit),
	})
	fnBody := testutil.Node("block", nil, assign)
	fn := testutil.Node("function_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "build"),
		"body": fnBody,
	})
	root := testutil.Node("source_file", nil, fn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "c.go")

	var sawNewObject, sawStoreField bool
	for _, i := range instrs {
		if i.Opcode == ir.NEW_OBJECT {
			sawNewObject = true
		}
		if i.Opcode == ir.STORE_FIELD && len(i.Operands) >= 2 && i.Operands[1] == "Name" {
			sawStoreField = true
		}
	}
	if !sawNewObject || !sawStoreField {
		t.Errorf("expected NEW_OBJECT + STORE_FIELD Name, got %v", instrs)
	}
}

func TestLowerRangeForBindsIndexAndValue(t *testing.T) {
	rangeClause := testutil.Node("range_clause", testutil.Fields{
		"left":  testutil.Node("expression_list", nil, testutil.Leaf("identifier", "i"), testutil.Leaf("identifier", "v")),
		"right": testutil.Leaf("identifier", "s"),
	})
	body := testutil.Node("block", nil)
	forStmt := testutil.Node("for_statement", testutil.Fields{
		"body": body,
	}, rangeClause)
	fn := testutil.Node("function_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "walk"),
		"body": testutil.Node("block", nil, forStmt),
	})
	root := testutil.Node("source_file", nil, fn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "r.go")

	var sawStoreI, sawStoreV bool
	for _, instr := range instrs {
		if instr.Opcode == ir.STORE_VAR && len(instr.Operands) > 0 && instr.Operands[0] == "i" {
			sawStoreI = true
		}
		if instr.Opcode == ir.STORE_VAR && len(instr.Operands) > 0 && instr.Operands[0] == "v" {
			sawStoreV = true
		}
	}
	if !sawStoreI {
		t.Errorf("expected the range's index variable i to be bound via STORE_VAR, got %v", instrs)
	}
	if !sawStoreV {
		t.Errorf("expected the range's value variable v to be bound via STORE_VAR, got %v", instrs)
	}
}

func TestLowerRangeForMapBindsKeyAndValue(t *testing.T) {
	rangeClause := testutil.Node("range_clause", testutil.Fields{
		"left":  testutil.Node("expression_list", nil, testutil.Leaf("identifier", "k"), testutil.Leaf("identifier", "v")),
		"right": testutil.Leaf("identifier", "m"),
	})
	forStmt := testutil.Node("for_statement", testutil.Fields{
		"body": testutil.Node("block", nil),
	}, rangeClause)
	fn := testutil.Node("function_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "walk"),
		"body": testutil.Node("block", nil, forStmt),
	})
	root := testutil.Node("source_file", nil, fn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "r.go")

	var sawStoreK, sawStoreV bool
	for _, instr := range instrs {
		if instr.Opcode == ir.STORE_VAR && len(instr.Operands) > 0 && instr.Operands[0] == "k" {
			sawStoreK = true
		}
		if instr.Opcode == ir.STORE_VAR && len(instr.Operands) > 0 && instr.Operands[0] == "v" {
			sawStoreV = true
		}
	}
	if !sawStoreK {
		t.Errorf("expected the range's key variable k to be bound via STORE_VAR, got %v", instrs)
	}
	if !sawStoreV {
		t.Errorf("expected the range's value variable v to be bound via STORE_VAR, got %v", instrs)
	}
}
