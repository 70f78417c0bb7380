package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestListLanguagesPrintsFifteenTags(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"list-languages"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Fields(out.String())
	if len(lines) != 15 {
		t.Errorf("expected 15 language tags, got %d: %v", len(lines), lines)
	}
}

func TestLowerKnownScenarioPrintsInstructions(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"lower", "scenario-a-python-function-def"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "LABEL func_add") {
		t.Errorf("expected scenario output to mention LABEL func_add, got:\n%s", out.String())
	}
}

func TestLowerUnknownScenarioReturnsError(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"lower", "nonexistent-scenario"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for an unknown scenario name")
	}
}

func TestReplayReportsAllScenariosPassing(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"replay"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected every scenario to pass, got error: %v\noutput:\n%s", err, out.String())
	}
	if strings.Contains(out.String(), "FAIL") {
		t.Errorf("expected no FAIL lines, got:\n%s", out.String())
	}
}
