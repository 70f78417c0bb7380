package engine

import (
	"testing"

	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

func TestFreshRegMonotone(t *testing.T) {
	e := New(DefaultConfig())
	r1 := e.FreshReg()
	r2 := e.FreshReg()
	r3 := e.FreshReg()

	if r1 != "%0" {
		t.Errorf("first reg = %q, want %%0", r1)
	}
	if r2 != "%1" || r3 != "%2" {
		t.Errorf("regs = %v %v, want %%1 %%2", r2, r3)
	}
}

func TestFreshLabelIndependentFromRegs(t *testing.T) {
	e := New(DefaultConfig())
	_ = e.FreshReg()
	l1 := e.FreshLabel("L")
	_ = e.FreshReg()
	l2 := e.FreshLabel("L")

	if l1 != "L_0" || l2 != "L_1" {
		t.Errorf("labels = %v %v, want L_0 L_1", l1, l2)
	}
}

func TestFreshLabelSharedCounterAcrossPrefixes(t *testing.T) {
	e := New(DefaultConfig())
	a := e.FreshLabel("if_true")
	b := e.FreshLabel("if_end")
	if a != "if_true_0" || b != "if_end_1" {
		t.Errorf("labels = %v %v, want if_true_0 if_end_1", a, b)
	}
}

func TestResetClearsState(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset([]byte("x"), "a.py")
	e.FreshReg()
	e.EmitLabel("entry", nil)

	e.Reset([]byte("y"), "b.py")
	if len(e.Instructions()) != 0 {
		t.Fatalf("Reset did not clear instructions")
	}
	if r := e.FreshReg(); r != "%0" {
		t.Errorf("Reset did not clear register counter, got %v", r)
	}
}

func TestLowerExprUnknownNodeIsSymbolic(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset(nil, "")
	n := &fakeNode{typ: "totally_unknown_grammar_node"}

	reg := e.LowerExpr(n)

	instrs := e.Instructions()
	if len(instrs) != 1 {
		t.Fatalf("got %d instructions, want 1", len(instrs))
	}
	if instrs[0].Opcode != ir.SYMBOLIC {
		t.Errorf("opcode = %v, want SYMBOLIC", instrs[0].Opcode)
	}
	if instrs[0].Operands[0] != "unsupported:totally_unknown_grammar_node" {
		t.Errorf("hint = %q", instrs[0].Operands[0])
	}
	if instrs[0].ResultReg != reg {
		t.Errorf("result reg mismatch: instr has %q, returned %q", instrs[0].ResultReg, reg)
	}
}

func TestLowerBreakOutsideLoop(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset(nil, "")
	e.LowerBreak(nil)

	instrs := e.Instructions()
	if instrs[0].Opcode != ir.SYMBOLIC || instrs[0].Operands[0] != "break_outside_loop_or_switch" {
		t.Errorf("got %+v", instrs[0])
	}
}

func TestLowerContinueOutsideLoop(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset(nil, "")
	e.LowerContinue(nil)

	instrs := e.Instructions()
	if instrs[0].Opcode != ir.SYMBOLIC || instrs[0].Operands[0] != "continue_outside_loop" {
		t.Errorf("got %+v", instrs[0])
	}
}

func TestLowerWhileBreakContinueTargeting(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset(nil, "")

	cond := &fakeNode{typ: "identifier", text: "c"}
	e.ExprDispatch["identifier"] = func(e *Engine, n Node) string {
		return e.LowerIdentifier(n)
	}

	var breakNode, contNode *fakeNode
	breakNode = &fakeNode{typ: "break_statement"}
	contNode = &fakeNode{typ: "continue_statement"}
	body := &fakeNode{typ: "block", namedChildren: []Node{breakNode, contNode}}
	e.StmtDispatch["break_statement"] = func(e *Engine, n Node) { e.LowerBreak(n) }
	e.StmtDispatch["continue_statement"] = func(e *Engine, n Node) { e.LowerContinue(n) }

	whileNode := &fakeNode{typ: "while_statement", fields: map[string]Node{"condition": cond, "body": body}}
	e.LowerWhile(whileNode)

	instrs := e.Instructions()
	var condLabel, bodyLabel, endLabel string
	for _, i := range instrs {
		if i.Opcode == ir.LABEL {
			switch {
			case condLabel == "":
				condLabel = i.Label
			case bodyLabel == "":
				bodyLabel = i.Label
			}
		}
	}
	_ = bodyLabel
	for _, i := range instrs {
		if i.Opcode == ir.LABEL && i.Label != condLabel && endLabel == "" && i.Label != bodyLabel {
			endLabel = i.Label
		}
	}

	var sawBreakBranch, sawContinueBranch bool
	for _, i := range instrs {
		if i.Opcode != ir.BRANCH {
			continue
		}
		if i.Operands[0] == endLabel {
			sawBreakBranch = true
		}
		if i.Operands[0] == condLabel {
			sawContinueBranch = true
		}
	}
	if !sawBreakBranch {
		t.Errorf("break did not branch to while_end label %q; instrs=%v", endLabel, instrs)
	}
	if !sawContinueBranch {
		t.Errorf("continue did not branch to while_cond label %q", condLabel)
	}
}

func TestLowerFunctionDefShape(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset([]byte("add"), "")
	e.ExprDispatch["identifier"] = func(e *Engine, n Node) string { return e.LowerIdentifier(n) }

	nameNode := &fakeNode{typ: "identifier", text: "add"}
	params := &fakeNode{typ: "parameters"}
	body := &fakeNode{typ: "block"}
	fn := &fakeNode{typ: "function_definition", fields: map[string]Node{
		"name": nameNode, "parameters": params, "body": body,
	}}

	e.LowerFunctionDef(fn)
	instrs := e.Instructions()

	if instrs[0].Opcode != ir.BRANCH {
		t.Fatalf("instrs[0] = %+v, want BRANCH end_add", instrs[0])
	}
	if instrs[1].Opcode != ir.LABEL {
		t.Fatalf("instrs[1] = %+v, want LABEL func_add", instrs[1])
	}

	var sawReturn, sawEndLabel, sawStoreAdd bool
	for _, i := range instrs {
		if i.Opcode == ir.RETURN {
			sawReturn = true
		}
		if i.Opcode == ir.LABEL && i.Label != instrs[1].Label {
			sawEndLabel = true
		}
		if i.Opcode == ir.STORE_VAR && i.Operands[0] == "add" {
			sawStoreAdd = true
		}
	}
	if !sawReturn {
		t.Error("missing implicit RETURN")
	}
	if !sawEndLabel {
		t.Error("missing end label")
	}
	if !sawStoreAdd {
		t.Error("missing STORE_VAR add")
	}
}

func TestLowerAttributeEmitsLoadField(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset(nil, "")
	e.ExprDispatch["identifier"] = func(e *Engine, n Node) string { return e.LowerIdentifier(n) }

	obj := &fakeNode{typ: "identifier", text: "obj"}
	attrName := &fakeNode{typ: "identifier", text: "field"}
	attr := &fakeNode{typ: "attribute", fields: map[string]Node{"object": obj, "attribute": attrName}}

	e.LowerAttribute(attr)
	instrs := e.Instructions()
	var saw bool
	for _, i := range instrs {
		if i.Opcode == ir.LOAD_FIELD {
			saw = true
		}
	}
	if !saw {
		t.Errorf("expected LOAD_FIELD in %+v", instrs)
	}
}

func TestLowerSubscriptEmitsLoadIndex(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset(nil, "")
	e.ExprDispatch["identifier"] = func(e *Engine, n Node) string { return e.LowerIdentifier(n) }

	value := &fakeNode{typ: "identifier", text: "arr"}
	idx := &fakeNode{typ: "identifier", text: "i"}
	sub := &fakeNode{typ: "subscript", fields: map[string]Node{"value": value, "subscript": idx}}

	e.LowerSubscript(sub)
	instrs := e.Instructions()
	if instrs[len(instrs)-1].Opcode != ir.LOAD_INDEX {
		t.Errorf("last instr = %+v, want LOAD_INDEX", instrs[len(instrs)-1])
	}
}

func TestLowerAssignmentStoresAndReturnsValue(t *testing.T) {
	e := New(DefaultConfig())
	e.Reset([]byte("x 1"), "")
	e.ExprDispatch["identifier"] = func(e *Engine, n Node) string { return e.LowerIdentifier(n) }
	e.ExprDispatch["integer"] = func(e *Engine, n Node) string { return e.LowerConstLiteral(n) }

	left := &fakeNode{typ: "identifier", text: "x"}
	right := &fakeNode{typ: "integer", text: "1", start: 2}
	assign := &fakeNode{typ: "assignment", fields: map[string]Node{"left": left, "right": right}}

	reg := e.LowerAssignment(assign)
	if reg == "" {
		t.Fatal("expected non-empty result register")
	}
	instrs := e.Instructions()
	last := instrs[len(instrs)-1]
	if last.Opcode != ir.STORE_VAR || last.Operands[0] != "x" {
		t.Errorf("last instr = %+v, want STORE_VAR x", last)
	}
}

// fakeNode is a minimal Node implementation local to this test file, kept
// separate from testutil so engine's own tests don't depend on another
// package under test. Its byte range is [start, start+len(text)), so a test
// that needs a node's text must Reset the engine with source bytes holding
// that text at that offset.
type fakeNode struct {
	typ           string
	text          string
	start         int
	namedChildren []Node
	allChildren   []Node
	fields        map[string]Node
}

func (f *fakeNode) Type() string { return f.typ }
func (f *fakeNode) Children() []Node {
	if f.allChildren != nil {
		return f.allChildren
	}
	return f.namedChildren
}
func (f *fakeNode) NamedChildren() []Node { return f.namedChildren }
func (f *fakeNode) ChildByFieldName(name string) (Node, bool) {
	n, ok := f.fields[name]
	return n, ok
}
func (f *fakeNode) StartByte() int         { return f.start }
func (f *fakeNode) EndByte() int           { return f.start + len(f.text) }
func (f *fakeNode) StartPoint() node.Point { return node.Point{} }
func (f *fakeNode) EndPoint() node.Point   { return node.Point{} }
