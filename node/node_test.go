package node

import "testing"

type literalNode struct {
	start, end int
}

func (l literalNode) Type() string                            { return "literal" }
func (l literalNode) Children() []Node                        { return nil }
func (l literalNode) NamedChildren() []Node                   { return nil }
func (l literalNode) ChildByFieldName(string) (Node, bool)     { return nil, false }
func (l literalNode) StartByte() int                           { return l.start }
func (l literalNode) EndByte() int                             { return l.end }
func (l literalNode) StartPoint() Point                        { return Point{} }
func (l literalNode) EndPoint() Point                          { return Point{} }

func TestTextSlicesSource(t *testing.T) {
	src := []byte("hello world")
	n := literalNode{start: 6, end: 11}
	if got := Text(n, src); got != "world" {
		t.Errorf("Text = %q, want %q", got, "world")
	}
}

func TestTextOutOfBoundsReturnsEmpty(t *testing.T) {
	src := []byte("hi")
	n := literalNode{start: 0, end: 10}
	if got := Text(n, src); got != "" {
		t.Errorf("Text = %q, want empty", got)
	}
}
