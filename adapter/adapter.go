// Package adapter holds the contract every per-language package implements,
// plus the cross-language lowering patterns (spec §4.2.1) that recur across
// more than one grammar: foreach-as-index-loop, switch/match-as-if-chain,
// ternary-as-phi-variable, and pattern destructuring. Each is grounded on the
// single-pass, dispatch-table style the teacher's pkg/rtlgen translators use
// (pkg/rtlgen/expr.go, pkg/rtlgen/stmt.go) generalized from a closed Cminor
// AST to the open, stringly-typed grammars this spec lowers.
package adapter

import (
	"strconv"

	"github.com/tacir/lowercore/engine"
	"github.com/tacir/lowercore/ir"
	"github.com/tacir/lowercore/node"
)

// Adapter is the uniform surface every lang/* package exposes to the
// registry and to cmd/lowercore (spec §4.3, §6.1).
type Adapter interface {
	// Lower lowers root (the tree-sitter-style root node of a parsed source
	// file) and returns the flat instruction sequence.
	Lower(root node.Node, source []byte, filePath string) []ir.Instruction
}

// SyntheticName allocates a compiler-introduced name such as a phi variable
// or a closure's synthesized identifier (spec §4.1.4's "__if_result",
// §4.2.2's "__arrow"/"__lambda" conventions). It is backed by the same
// monotone label counter as every other generated name, so synthetic names
// never collide with each other or with ordinary labels.
func SyntheticName(e *engine.Engine, prefix string) string {
	return e.FreshLabel(prefix)
}

// ForEachAsIndexLoop desugars a for-each/for-of/range-style loop into the
// index-driven while loop spec §4.2.1 describes: a hidden index variable
// counted from 0 to len(iterable), with the per-iteration element loaded by
// LOAD_INDEX and handed to storeElement for binding (a plain STORE_VAR for a
// single loop variable, or a call into LowerDestructuring for a pattern).
// storeElement also receives the loop's own synthesized index/key register,
// for grammars with a two-binding form (Go's `for i, v := range s`, PHP's
// `foreach ($a as $k => $v)`) where the first name binds to the index rather
// than to another slice of the element itself.
//
// continue targets the index-increment step rather than the condition
// re-check, by analogy with LowerCStyleFor's "continue targets for_update"
// rule (spec §4.1.4) — a plain re-check of the condition would skip the
// increment and loop forever.
func ForEachAsIndexLoop(e *engine.Engine, iterNode, bodyNode, n node.Node, storeElement func(elemReg, idxReg string), lowerBody func(body node.Node)) {
	iterReg := e.LowerExpr(iterNode)
	ForEachAsIndexLoopFromReg(e, iterReg, bodyNode, n, storeElement, lowerBody)
}

// ForEachAsIndexLoopFromReg is ForEachAsIndexLoop for callers that have
// already lowered (or synthesized, e.g. JavaScript's `for...in` wrapping its
// source in a `keys()` call) the iterable into a register.
func ForEachAsIndexLoopFromReg(e *engine.Engine, iterReg string, bodyNode, n node.Node, storeElement func(elemReg, idxReg string), lowerBody func(body node.Node)) {
	idxVar := SyntheticName(e, "__for_idx")

	zeroReg := e.Emit(ir.CONST, []string{"0"}, n, true)
	e.Emit(ir.STORE_VAR, []string{idxVar, zeroReg}, n, false)
	lenReg := e.Emit(ir.CALL_FUNCTION, []string{"len", iterReg}, n, true)

	condLabel := e.FreshLabel("foreach_cond")
	bodyLabel := e.FreshLabel("foreach_body")
	updateLabel := e.FreshLabel("foreach_update")
	endLabel := e.FreshLabel("foreach_end")

	e.EmitLabel(condLabel, n)
	idxReg := e.Emit(ir.LOAD_VAR, []string{idxVar}, n, true)
	cmpReg := e.Emit(ir.BINOP, []string{"<", idxReg, lenReg}, n, true)
	e.Emit(ir.BRANCH_IF, []string{cmpReg, ir.JoinBranchTargets(bodyLabel, endLabel)}, n, false)

	e.EmitLabel(bodyLabel, n)
	curIdxReg := e.Emit(ir.LOAD_VAR, []string{idxVar}, n, true)
	elemReg := e.Emit(ir.LOAD_INDEX, []string{iterReg, curIdxReg}, n, true)
	storeElement(elemReg, curIdxReg)

	e.PushLoop(updateLabel, endLabel)
	lowerBody(bodyNode)
	e.PopLoop()

	e.EmitLabel(updateLabel, n)
	idxAgainReg := e.Emit(ir.LOAD_VAR, []string{idxVar}, n, true)
	oneReg := e.Emit(ir.CONST, []string{"1"}, n, true)
	nextReg := e.Emit(ir.BINOP, []string{"+", idxAgainReg, oneReg}, n, true)
	e.Emit(ir.STORE_VAR, []string{idxVar, nextReg}, n, false)
	e.Emit(ir.BRANCH, []string{condLabel}, n, false)

	e.EmitLabel(endLabel, n)
}

// DestructureEntry is one binding of a destructuring pattern (spec §4.2.1):
// either a named field (JS/Python object/dict patterns) or a positional slot
// (list/tuple patterns). Target is itself a store target, so nested patterns
// recurse through LowerStoreTarget.
type DestructureEntry struct {
	Target node.Node
	Key    string // non-empty selects LOAD_FIELD over LOAD_INDEX
	Index  int
}

// LowerDestructuring binds each entry's Target to the matching slice of
// valueReg, by LOAD_FIELD for a named entry and LOAD_INDEX (against a
// synthesized CONST index) otherwise.
func LowerDestructuring(e *engine.Engine, entries []DestructureEntry, valueReg string, parent node.Node) {
	for _, entry := range entries {
		var elemReg string
		if entry.Key != "" {
			elemReg = e.Emit(ir.LOAD_FIELD, []string{valueReg, entry.Key}, parent, true)
		} else {
			idxReg := e.Emit(ir.CONST, []string{strconv.Itoa(entry.Index)}, parent, true)
			elemReg = e.Emit(ir.LOAD_INDEX, []string{valueReg, idxReg}, parent, true)
		}
		e.LowerStoreTarget(entry.Target, elemReg, parent)
	}
}

// SwitchCase is one arm of a switch/match/when construct lowered by
// LowerSwitchAsIfChain. Values holds one or more node that must equal the
// subject (multiple values model fall-through-free multi-label cases, e.g.
// Pascal's `1, 2: ...`); IsDefault marks the unconditional catch-all arm.
type SwitchCase struct {
	Values    []node.Node
	Body      node.Node
	IsDefault bool
}

// LowerSwitchAsIfChain desugars a switch/match/when statement into the
// chain of equality tests spec §4.2.1 describes: the subject is evaluated
// once, each non-default case becomes a BINOP comparison (OR'd together when
// it carries multiple values) guarding a BRANCH_IF into its arm, and the
// default arm (if any) is unconditional. Every arm ends with an unconditional
// BRANCH to the shared end label, which also serves as this switch's break
// target. strictEq selects "===" over "==" for grammars that distinguish
// them (JavaScript/TypeScript).
func LowerSwitchAsIfChain(e *engine.Engine, subjectNode node.Node, cases []SwitchCase, n node.Node, strictEq bool, lowerBody func(body node.Node)) {
	subjectReg := e.LowerExpr(subjectNode)
	endLabel := e.FreshLabel("switch_end")
	e.PushBreakTarget(endLabel)

	eqOp := "=="
	if strictEq {
		eqOp = "==="
	}

	for i, c := range cases {
		isLast := i == len(cases)-1

		if c.IsDefault {
			armLabel := e.FreshLabel("switch_arm")
			e.EmitLabel(armLabel, n)
			lowerBody(c.Body)
			e.Emit(ir.BRANCH, []string{endLabel}, n, false)
			continue
		}

		armLabel := e.FreshLabel("switch_arm")
		nextTestLabel := endLabel
		if !isLast {
			nextTestLabel = e.FreshLabel("switch_test")
		}

		var condReg string
		for vi, v := range c.Values {
			valReg := e.LowerExpr(v)
			cmpReg := e.Emit(ir.BINOP, []string{eqOp, subjectReg, valReg}, n, true)
			if vi == 0 {
				condReg = cmpReg
			} else {
				condReg = e.Emit(ir.BINOP, []string{"||", condReg, cmpReg}, n, true)
			}
		}

		e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(armLabel, nextTestLabel)}, n, false)
		e.EmitLabel(armLabel, n)
		lowerBody(c.Body)
		e.Emit(ir.BRANCH, []string{endLabel}, n, false)

		if !isLast {
			e.EmitLabel(nextTestLabel, n)
		}
	}

	e.EmitLabel(endLabel, n)
	e.PopBreakTarget()
}

// LowerTernary desugars an expression-oriented conditional (ternary, Rust/Kotlin
// if-as-expression, Scala match-as-expression's simplest case) into a phi
// variable (spec §4.1.4's "__if_result" pattern, generalized to any prefix so
// callers can match their own grammar's naming): both arms store into the
// same synthesized variable, and the merged value is loaded back out after
// the join label.
func LowerTernary(e *engine.Engine, condNode node.Node, lowerTrue, lowerFalse func() string, n node.Node, phiPrefix string) string {
	phiVar := SyntheticName(e, phiPrefix)
	trueLabel := e.FreshLabel("ternary_true")
	falseLabel := e.FreshLabel("ternary_false")
	endLabel := e.FreshLabel("ternary_end")

	condReg := e.LowerExpr(condNode)
	e.Emit(ir.BRANCH_IF, []string{condReg, ir.JoinBranchTargets(trueLabel, falseLabel)}, n, false)

	e.EmitLabel(trueLabel, n)
	trueReg := lowerTrue()
	e.Emit(ir.STORE_VAR, []string{phiVar, trueReg}, n, false)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)

	e.EmitLabel(falseLabel, n)
	falseReg := lowerFalse()
	e.Emit(ir.STORE_VAR, []string{phiVar, falseReg}, n, false)
	e.Emit(ir.BRANCH, []string{endLabel}, n, false)

	e.EmitLabel(endLabel, n)
	return e.Emit(ir.LOAD_VAR, []string{phiVar}, n, true)
}
