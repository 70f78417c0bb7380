// Package testutil builds small synthetic parse trees for tests. It stands
// in for the real tree-sitter-style parser collaborator (spec §4.4), which
// is explicitly out of this module's scope (spec §1) — tests need some way
// to construct node.Node values, and this is the minimal one.
//
// The shape mirrors how the teacher hand-rolls its own recursive-descent
// parser (pkg/parser/parser.go, pkg/lexer): a small builder of typed nodes,
// here reduced to exactly the surface node.Node requires.
package testutil

import (
	"sort"
	"strings"

	"github.com/tacir/lowercore/node"
)

// TNode is a synthetic node.Node implementation.
type TNode struct {
	typ      string
	isLeaf   bool
	leafText string
	named    bool
	children []*TNode
	fields   map[string]*TNode

	startByte, endByte int
	startPoint, endPoint node.Point
}

var _ node.Node = (*TNode)(nil)

func (n *TNode) Type() string { return n.typ }

func (n *TNode) Children() []node.Node {
	out := make([]node.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *TNode) NamedChildren() []node.Node {
	var out []node.Node
	for _, c := range n.children {
		if c.named {
			out = append(out, c)
		}
	}
	return out
}

func (n *TNode) ChildByFieldName(name string) (node.Node, bool) {
	c, ok := n.fields[name]
	if !ok || c == nil {
		return nil, false
	}
	return c, true
}

func (n *TNode) StartByte() int         { return n.startByte }
func (n *TNode) EndByte() int           { return n.endByte }
func (n *TNode) StartPoint() node.Point { return n.startPoint }
func (n *TNode) EndPoint() node.Point   { return n.endPoint }

// Leaf builds a named leaf node (an identifier, a literal token, ...).
func Leaf(typ, text string) *TNode {
	return &TNode{typ: typ, isLeaf: true, leafText: text, named: true}
}

// AnonLeaf builds an unnamed leaf node: punctuation and operator tokens,
// which tree-sitter grammars expose through Children() but not
// NamedChildren().
func AnonLeaf(typ, text string) *TNode {
	return &TNode{typ: typ, isLeaf: true, leafText: text, named: false}
}

// Fields is shorthand for the map literal ChildByFieldName reads from.
type Fields = map[string]*TNode

// Node builds a composite named node from an ordered child list (mixing
// named and unnamed children is expected — e.g. a binary expression's
// [lhs, operator, rhs]) plus an optional field-name map.
func Node(typ string, fields Fields, children ...*TNode) *TNode {
	return &TNode{typ: typ, named: true, fields: fields, children: children}
}

// UnnamedNode is Node's unnamed counterpart, for composite constructs a
// grammar exposes only positionally (rare, but some wrapper types are
// anonymous).
func UnnamedNode(typ string, fields Fields, children ...*TNode) *TNode {
	return &TNode{typ: typ, named: false, fields: fields, children: children}
}

// Finalize assigns byte offsets and line numbers to every leaf in root by a
// left-to-right walk, joining leaf text with single spaces, and returns the
// root as a node.Node alongside the synthesized source buffer. Composite
// node spans cover their descendant leaves, reached either positionally
// (children) or through a field (ChildByFieldName) — a node referenced only
// as a field, never as a positional child, still needs its own byte range
// assigned or Text() on it would recover an empty string.
func Finalize(root *TNode) (node.Node, []byte) {
	var buf strings.Builder
	line := 0
	visited := make(map[*TNode]bool)
	assign(root, &buf, &line, visited)
	return root, []byte(buf.String())
}

func assign(n *TNode, buf *strings.Builder, line *int, visited map[*TNode]bool) {
	if visited[n] {
		return
	}
	visited[n] = true

	if n.isLeaf {
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		start := buf.Len()
		buf.WriteString(n.leafText)
		end := buf.Len()
		n.startByte, n.endByte = start, end
		n.startPoint = node.Point{Row: *line, Column: 0}
		n.endPoint = node.Point{Row: *line, Column: end - start}
		if strings.Contains(n.leafText, "\n") {
			*line += strings.Count(n.leafText, "\n")
		}
		return
	}

	for _, c := range n.children {
		assign(c, buf, line, visited)
	}

	// Field-only descendants aren't reachable through n.children, so a plain
	// positional walk would skip them; visit them too, in a stable
	// field-name-sorted order, after the positional children.
	fieldNames := make([]string, 0, len(n.fields))
	for name := range n.fields {
		fieldNames = append(fieldNames, name)
	}
	sort.Strings(fieldNames)
	for _, name := range fieldNames {
		assign(n.fields[name], buf, line, visited)
	}

	if len(n.children) == 0 && len(fieldNames) == 0 {
		start := buf.Len()
		n.startByte, n.endByte = start, start
		n.startPoint = node.Point{Row: *line, Column: 0}
		n.endPoint = n.startPoint
		return
	}

	first := true
	for _, c := range n.children {
		if first {
			n.startByte, n.startPoint = c.startByte, c.startPoint
			first = false
		} else if c.startByte < n.startByte {
			n.startByte, n.startPoint = c.startByte, c.startPoint
		}
		if c.endByte > n.endByte {
			n.endByte, n.endPoint = c.endByte, c.endPoint
		}
	}
	for _, name := range fieldNames {
		f := n.fields[name]
		if first {
			n.startByte, n.startPoint = f.startByte, f.startPoint
			first = false
		} else if f.startByte < n.startByte {
			n.startByte, n.startPoint = f.startByte, f.startPoint
		}
		if f.endByte > n.endByte {
			n.endByte, n.endPoint = f.endByte, f.endPoint
		}
	}
}

// Tree adapts a finalized root into a node.Tree.
type Tree struct {
	Root   node.Node
	Source []byte
}

func (t Tree) RootNode() node.Node { return t.Root }

// Build is a convenience wrapper combining Finalize with the node.Tree shape
// the public Lower entry point expects.
func Build(root *TNode) Tree {
	r, src := Finalize(root)
	return Tree{Root: r, Source: src}
}
