package ruby

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerUnlessNegatesConditionWithUnop(t *testing.T) {
	cond := testutil.Leaf("identifier", "ok")
	body := testutil.Node("body_statement", nil, testutil.Leaf("identifier", "x"))
	unless := testutil.Node("unless", testutil.Fields{
		"condition":   cond,
		"consequence": body,
	})
	root := testutil.Node("program", nil, unless)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "u.rb")

	var sawNegation bool
	for _, i := range instrs {
		if i.Opcode == ir.UNOP && len(i.Operands) > 0 && i.Operands[0] == "!" {
			sawNegation = true
		}
	}
	if !sawNegation {
		t.Errorf("expected UNOP ! negating unless condition, got %v", instrs)
	}
}

func TestLowerCallWithBlockPassesAnonymousFunctionAsExtraArgument(t *testing.T) {
	block := testutil.Node("block", nil,
		testutil.Node("body_statement", nil, testutil.Leaf("identifier", "x")))
	call := testutil.Node("call", testutil.Fields{
		"method": testutil.AnonLeaf("identifier", "each"),
	}, block)
	root := testutil.Node("program", nil, call)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "b.rb")

	var sawFuncConst, sawCall bool
	var blockReg string
	for _, i := range instrs {
		if i.Opcode == ir.CONST && len(i.Operands) > 0 && containsBlockRef(i.Operands[0]) {
			sawFuncConst = true
			blockReg = i.ResultReg
		}
		if i.Opcode == ir.CALL_FUNCTION && blockReg != "" {
			for _, op := range i.Operands {
				if op == blockReg {
					sawCall = true
				}
			}
		}
	}
	if !sawFuncConst || !sawCall {
		t.Errorf("expected a synthesized block function reference passed to the call, got %v", instrs)
	}
}

func containsBlockRef(s string) bool {
	for i := 0; i+len("__block") <= len(s); i++ {
		if s[i:i+len("__block")] == "__block" {
			return true
		}
	}
	return false
}

func TestLowerCaseStatementBuildsEqualityChain(t *testing.T) {
	subject := testutil.Leaf("identifier", "x")
	pattern := testutil.Leaf("integer", "1")
	when := testutil.Node("when", testutil.Fields{"pattern": pattern},
		testutil.Leaf("identifier", "y"))
	caseNode := testutil.Node("case", testutil.Fields{"value": subject}, when)
	root := testutil.Node("program", nil, caseNode)

	tree := testutil.Build(root)
	a := New()
	instrs := a.Lower(tree.Root, tree.Source, "c.rb")

	var sawEq bool
	for _, i := range instrs {
		if i.Opcode == ir.BINOP && len(i.Operands) > 0 && i.Operands[0] == "==" {
			sawEq = true
		}
	}
	if !sawEq {
		t.Errorf("expected BINOP == in case/when chain, got %v", instrs)
	}
}
