package ir

import "testing"

func TestSprintLabel(t *testing.T) {
	out := Sprint([]Instruction{{Opcode: LABEL, Label: "entry"}})
	if out != "LABEL entry\n" {
		t.Errorf("got %q", out)
	}
}

func TestSprintConstWithResult(t *testing.T) {
	out := Sprint([]Instruction{{Opcode: CONST, ResultReg: "%0", Operands: []string{"1"}}})
	want := "CONST %0 = 1\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}

func TestSprintBranchNoResult(t *testing.T) {
	out := Sprint([]Instruction{{Opcode: BRANCH, Operands: []string{"L_1"}}})
	want := "BRANCH L_1\n"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
