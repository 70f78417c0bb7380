// Package lowercore lowers a parsed syntax tree from any of fifteen
// supported source languages into a flat three-address-code instruction
// sequence, consumed downstream by a CFG builder, a VM, or a dataflow
// pass (spec §1, §6.1). It is the repository's own public entry point,
// playing the role cmd/ralph-cc's newRootCmd plays for the teacher: a
// thin façade over the registry and the per-language adapters that does
// no lowering itself.
package lowercore

import (
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
	"github.com/tacir/lowercore/registry"
)

// Lower lowers tree's root node using the adapter registered for lang
// (spec §6.1: "a factory takes a language tag and returns an adapter").
// A fresh adapter is constructed on every call, matching the
// one-adapter-per-lowering lifetime spec §5 requires.
func Lower(tree node.Tree, source []byte, lang string) ([]ir.Instruction, error) {
	a, err := registry.New(lang)
	if err != nil {
		return nil, err
	}
	return a.Lower(tree.RootNode(), source, ""), nil
}

// LowerFile is the convenience form spec §6.1 names: "(source_bytes,
// language_tag), invokes the parser collaborator, and returns the
// instructions." The parser collaborator itself is out of this
// module's scope (spec §4.4) and supplied by the caller.
func LowerFile(parse func(source []byte) (node.Tree, error), source []byte, lang string) ([]ir.Instruction, error) {
	tree, err := parse(source)
	if err != nil {
		return nil, err
	}
	return Lower(tree, source, lang)
}
