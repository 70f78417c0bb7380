package testutil

import "testing"

func TestFinalizeLeafText(t *testing.T) {
	root := Leaf("identifier", "x")
	n, src := Finalize(root)
	if got := string(src[n.StartByte():n.EndByte()]); got != "x" {
		t.Errorf("leaf text = %q, want %q", got, "x")
	}
}

func TestFinalizeCompositeSpansChildren(t *testing.T) {
	lhs := Leaf("identifier", "a")
	op := AnonLeaf("+", "+")
	rhs := Leaf("identifier", "b")
	bin := Node("binary_expression", nil, lhs, op, rhs)

	root, src := Finalize(bin)
	if root.StartByte() != lhs.startByte {
		t.Errorf("composite start = %d, want %d", root.StartByte(), lhs.startByte)
	}
	if root.EndByte() != rhs.endByte {
		t.Errorf("composite end = %d, want %d", root.EndByte(), rhs.endByte)
	}
	if got := string(src[root.StartByte():root.EndByte()]); got != "a + b" {
		t.Errorf("composite text = %q", got)
	}
}

func TestNamedChildrenExcludesAnonLeaf(t *testing.T) {
	lhs := Leaf("identifier", "a")
	op := AnonLeaf("+", "+")
	rhs := Leaf("identifier", "b")
	bin := Node("binary_expression", nil, lhs, op, rhs)
	Finalize(bin)

	named := bin.NamedChildren()
	if len(named) != 2 {
		t.Fatalf("got %d named children, want 2", len(named))
	}
	all := bin.Children()
	if len(all) != 3 {
		t.Fatalf("got %d children, want 3", len(all))
	}
}

func TestChildByFieldName(t *testing.T) {
	name := Leaf("identifier", "add")
	fn := Node("function_definition", Fields{"name": name})
	got, ok := fn.ChildByFieldName("name")
	if !ok || got != name {
		t.Errorf("ChildByFieldName did not return the field node")
	}
	if _, ok := fn.ChildByFieldName("missing"); ok {
		t.Error("expected ok=false for missing field")
	}
}
