package engine

import "github.com/tacir/lowercore/node"

// Re-exported so callers within this package, and adapters importing it,
// don't need a second import for the node-access boundary type — the same
// re-export convention the teacher uses for cminorsel types in pkg/rtl/ast.go.
type Node = node.Node

// Text recovers a node's verbatim source text.
func Text(n Node, source []byte) string {
	return node.Text(n, source)
}
