package pascal

import (
	"strings"
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerKeywordOperatorMapsToIrString(t *testing.T) {
	left := testutil.Leaf("identifier", "a")
	right := testutil.Leaf("identifier", "b")
	op := testutil.AnonLeaf("kAdd", "+")
	binary := testutil.Node("binary_expression", testutil.Fields{
		"left": left, "operator": op, "right": right,
	})
	assign := testutil.Node("assignment_statement", testutil.Fields{
		"left":  testutil.Leaf("identifier", "c"),
		"right": binary,
	})
	root := testutil.Node("program", nil, assign)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "k.pas")

	var sawPlus bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && len(i.Operands) > 0 && i.Operands[0] == "+" {
			sawPlus = true
		}
	}
	if !sawPlus {
		t.Errorf("expected kAdd mapped to BINOP +, got %v", instrs)
	}
}

func TestLowerAssignmentToFunctionNameEmitsReturn(t *testing.T) {
	assign := testutil.Node("assignment_statement", testutil.Fields{
		"left":  testutil.Leaf("identifier", "compute"),
		"right": testutil.Leaf("number", "42"),
	})
	body := testutil.Node("compound_statement", nil, assign)
	fn := testutil.Node("function_declaration", testutil.Fields{
		"name": testutil.Leaf("identifier", "compute"),
		"body": body,
	})
	root := testutil.Node("program", nil, fn)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "f.pas")

	var sawReturn bool
	for _, i := range instrs {
		if i.Opcode == ir.RETURN {
			sawReturn = true
		}
	}
	if !sawReturn {
		t.Errorf("expected assignment to own function name to lower as RETURN, got %v", instrs)
	}
}

func TestLowerRepeatStatementSwapsBranchTargets(t *testing.T) {
	cond := testutil.Leaf("identifier", "done")
	repeat := testutil.Node("repeat_statement", testutil.Fields{
		"body":  testutil.Node("statement_list", nil),
		"until": cond,
	})
	root := testutil.Node("program", nil, repeat)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "r.pas")

	var branchIf *ir.Instruction
	for idx := range instrs {
		if instrs[idx].Opcode == ir.BRANCH_IF {
			branchIf = &instrs[idx]
		}
	}
	if branchIf == nil || len(branchIf.Operands) < 2 {
		t.Fatalf("expected a BRANCH_IF instruction, got %v", instrs)
	}
	// Swapped order: the true target is the loop's end label, the false
	// target loops back to the body.
	targets := strings.Split(branchIf.Operands[1], ",")
	if len(targets) != 2 || !strings.HasPrefix(targets[0], "repeat_end") || !strings.HasPrefix(targets[1], "repeat_body") {
		t.Errorf("BRANCH_IF targets = %q, want repeat_end first and repeat_body second", branchIf.Operands[1])
	}
}
