package lowercore

import (
	"errors"
	"testing"

	"github.com/tacir/lowercore/node"
	"github.com/tacir/lowercore/testutil"
)

func TestLowerDispatchesToRegisteredLanguage(t *testing.T) {
	assign := testutil.Node("assignment", testutil.Fields{
		"left":  testutil.Leaf("identifier", "x"),
		"right": testutil.Leaf("integer", "1"),
	})
	root := testutil.Node("module", nil, assign)
	tree := testutil.Build(root)

	instrs, err := Lower(tree, tree.Source, "python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instrs) == 0 {
		t.Fatal("expected at least one instruction")
	}
}

func TestLowerUnknownLanguageReturnsError(t *testing.T) {
	root := testutil.Node("module", nil)
	tree := testutil.Build(root)

	_, err := Lower(tree, tree.Source, "cobol")
	if err == nil {
		t.Fatal("expected an error for an unregistered language")
	}
}

func TestLowerFileInvokesParserCollaborator(t *testing.T) {
	root := testutil.Node("module", nil, testutil.Leaf("integer", "1"))
	want := testutil.Build(root)

	parse := func(source []byte) (node.Tree, error) {
		return want, nil
	}

	instrs, err := LowerFile(parse, want.Source, "python")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(instrs) == 0 {
		t.Fatal("expected at least one instruction")
	}
}

func TestLowerFilePropagatesParseError(t *testing.T) {
	wantErr := errors.New("boom")
	parse := func(source []byte) (node.Tree, error) {
		return nil, wantErr
	}

	_, err := LowerFile(parse, nil, "python")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected parse error to propagate, got %v", err)
	}
}
