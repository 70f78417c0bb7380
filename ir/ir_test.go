package ir

import "testing"

func TestOpcodeString(t *testing.T) {
	if LABEL.String() != "LABEL" {
		t.Errorf("LABEL.String() = %q", LABEL.String())
	}
	if SYMBOLIC.String() != "SYMBOLIC" {
		t.Errorf("SYMBOLIC.String() = %q", SYMBOLIC.String())
	}
}

func TestBranchIfTargetsRoundTrip(t *testing.T) {
	joined := JoinBranchTargets("if_true_0", "if_false_1")
	trueLabel, falseLabel := BranchIfTargets([]string{"%0", joined})
	if trueLabel != "if_true_0" || falseLabel != "if_false_1" {
		t.Errorf("got (%q, %q)", trueLabel, falseLabel)
	}
}

func TestUnknownLocation(t *testing.T) {
	loc := Unknown()
	if loc.String() != UnknownLocation {
		t.Errorf("Unknown().String() = %q, want %q", loc.String(), UnknownLocation)
	}
}

func TestHasResult(t *testing.T) {
	withResult := Instruction{Opcode: CONST, ResultReg: "%0"}
	withoutResult := Instruction{Opcode: BRANCH}
	if !withResult.HasResult() {
		t.Error("expected HasResult true")
	}
	if withoutResult.HasResult() {
		t.Error("expected HasResult false")
	}
}
