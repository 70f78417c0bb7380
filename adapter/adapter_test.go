package adapter

import (
	"strings"
	"testing"

	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
	"github.com/tacir/lowercore/testutil"
)

func newTestEngine() *engine.Engine {
	cfg := engine.DefaultConfig()
	e := engine.New(cfg)
	e.ExprDispatch["identifier"] = (*engine.Engine).LowerIdentifier
	e.ExprDispatch["integer"] = (*engine.Engine).LowerConstLiteral
	e.Reset(nil, "test.src")
	return e
}

func opcodes(instrs []ir.Instruction) []ir.Opcode {
	out := make([]ir.Opcode, len(instrs))
	for i, instr := range instrs {
		out[i] = instr.Opcode
	}
	return out
}

func hasOpcode(instrs []ir.Instruction, op ir.Opcode) bool {
	for _, instr := range instrs {
		if instr.Opcode == op {
			return true
		}
	}
	return false
}

func TestForEachAsIndexLoopShape(t *testing.T) {
	e := newTestEngine()
	iterNode := testutil.Leaf("identifier", "items")
	bodyNode := testutil.Node("block", nil)
	target := testutil.Leaf("identifier", "x")

	ForEachAsIndexLoop(e, iterNode, bodyNode, nil,
		func(elemReg, idxReg string) { e.LowerStoreTarget(target, elemReg, nil) },
		func(body node.Node) { e.LowerBlock(body) },
	)

	instrs := e.Instructions()
	for _, want := range []ir.Opcode{ir.CONST, ir.STORE_VAR, ir.CALL_FUNCTION, ir.LABEL, ir.LOAD_VAR, ir.BINOP, ir.BRANCH_IF, ir.LOAD_INDEX, ir.BRANCH} {
		if !hasOpcode(instrs, want) {
			t.Errorf("missing opcode %s in %v", want, opcodes(instrs))
		}
	}
}

func TestForEachAsIndexLoopPassesIndexRegisterToStoreElement(t *testing.T) {
	e := newTestEngine()
	iterNode := testutil.Leaf("identifier", "items")
	bodyNode := testutil.Node("block", nil)
	keyTarget := testutil.Leaf("identifier", "k")
	valTarget := testutil.Leaf("identifier", "v")
	tree := testutil.Build(testutil.Node("block", nil, iterNode, keyTarget, valTarget))
	e.Reset(tree.Source, "test.src")

	ForEachAsIndexLoop(e, iterNode, bodyNode, nil,
		func(elemReg, idxReg string) {
			e.LowerStoreTarget(keyTarget, idxReg, nil)
			e.LowerStoreTarget(valTarget, elemReg, nil)
		},
		func(body node.Node) { e.LowerBlock(body) },
	)

	instrs := e.Instructions()
	var sawStoreK, sawStoreV bool
	var idxStoredReg, elemStoredReg string
	for _, instr := range instrs {
		if instr.Opcode == ir.STORE_VAR && len(instr.Operands) == 2 {
			if instr.Operands[0] == "k" {
				sawStoreK, idxStoredReg = true, instr.Operands[1]
			}
			if instr.Operands[0] == "v" {
				sawStoreV, elemStoredReg = true, instr.Operands[1]
			}
		}
	}
	if !sawStoreK || !sawStoreV {
		t.Fatalf("expected STORE_VAR k and STORE_VAR v, got %v", instrs)
	}
	if idxStoredReg == elemStoredReg {
		t.Errorf("expected the index register and element register to differ, both were %q", idxStoredReg)
	}
}

func TestLowerSwitchAsIfChain(t *testing.T) {
	e := newTestEngine()
	subject := testutil.Leaf("identifier", "x")
	case1 := testutil.Node("block", nil)
	case2 := testutil.Node("block", nil)

	cases := []SwitchCase{
		{Values: []node.Node{testutil.Leaf("integer", "1")}, Body: case1},
		{Values: []node.Node{testutil.Leaf("integer", "2")}, Body: case2},
	}

	LowerSwitchAsIfChain(e, subject, cases, nil, false, func(body node.Node) { e.LowerBlock(body) })

	instrs := e.Instructions()
	if !hasOpcode(instrs, ir.BRANCH_IF) {
		t.Fatalf("expected BRANCH_IF in %v", opcodes(instrs))
	}
	var eqCount int
	for _, instr := range instrs {
		if instr.Opcode == ir.BINOP && len(instr.Operands) > 0 && instr.Operands[0] == "==" {
			eqCount++
		}
	}
	if eqCount != 2 {
		t.Errorf("got %d equality comparisons, want 2", eqCount)
	}
}

func TestLowerTernary(t *testing.T) {
	e := newTestEngine()
	cond := testutil.Leaf("identifier", "c")

	resultReg := LowerTernary(e, cond,
		func() string { return e.Emit(ir.CONST, []string{"1"}, nil, true) },
		func() string { return e.Emit(ir.CONST, []string{"2"}, nil, true) },
		nil, "__if_result")

	if resultReg == "" {
		t.Fatal("expected non-empty result register")
	}
	instrs := e.Instructions()
	var storeCount int
	for _, instr := range instrs {
		if instr.Opcode == ir.STORE_VAR && strings.HasPrefix(instr.Operands[0], "__if_result_") {
			storeCount++
		}
	}
	if storeCount != 2 {
		t.Errorf("got %d phi stores, want 2", storeCount)
	}
	if last := instrs[len(instrs)-1]; last.Opcode != ir.LOAD_VAR {
		t.Errorf("last instruction = %s, want LOAD_VAR", last.Opcode)
	}
}

func TestLowerDestructuring(t *testing.T) {
	e := newTestEngine()
	valueReg := e.Emit(ir.CALL_FUNCTION, []string{"source"}, nil, true)
	entries := []DestructureEntry{
		{Target: testutil.Leaf("identifier", "a"), Key: "a"},
		{Target: testutil.Leaf("identifier", "b"), Index: 1},
	}
	LowerDestructuring(e, entries, valueReg, nil)

	instrs := e.Instructions()
	if !hasOpcode(instrs, ir.LOAD_FIELD) {
		t.Errorf("expected LOAD_FIELD in %v", opcodes(instrs))
	}
	if !hasOpcode(instrs, ir.LOAD_INDEX) {
		t.Errorf("expected LOAD_INDEX in %v", opcodes(instrs))
	}
}
