// Package node defines the minimal parse-tree access interface the lowering
// engine consumes. It is the external parser collaborator boundary from
// spec §4.4: no adapter may depend on any richer API than this.
package node

import "errors"

// Point is a zero-based (row, column) position, matching tree-sitter's own
// convention. Adapters add 1 to Row when they build an ir.SourceLocation
// (spec §9, "Source location").
type Point struct {
	Row    int
	Column int
}

// Node is the shape every node of the input parse tree must support.
type Node interface {
	Type() string
	Children() []Node
	NamedChildren() []Node
	ChildByFieldName(name string) (Node, bool)
	StartByte() int
	EndByte() int
	StartPoint() Point
	EndPoint() Point
}

// Tree is a parsed source file: a root node plus the source bytes needed to
// recover node text.
type Tree interface {
	RootNode() Node
}

// ErrUntraversable is the one hard failure the lowering core can return: the
// parser-contract violation of a tree whose root cannot be walked (spec §7,
// "the only hard failure is a corrupt tree that cannot be traversed").
var ErrUntraversable = errors.New("node: tree root is not traversable")

// Text returns the verbatim source text a node spans, given the file's raw
// bytes. Adapters use this for identifiers and literal tokens (spec §4.1.4).
func Text(n Node, source []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if start < 0 || end > len(source) || start > end {
		return ""
	}
	return string(source[start:end])
}
