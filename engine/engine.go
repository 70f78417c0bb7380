// Package engine is the language-agnostic lowering core (spec §4.1): dispatch,
// register/label allocation, instruction emission, and the reusable lowerers
// every adapter configures and composes. It plays the role the teacher's
// rtlgen.CFGBuilder + rtlgen.RegAllocator + rtlgen.ExprTranslator trio play
// together (pkg/rtlgen/{cfg,regs,expr,instr}.go) — one mutable object owning
// counters and an append-only code buffer — adapted from a CFG of numbered
// nodes to the flat instruction list this spec's IR model requires.
package engine

import (
	"strconv"

	"github.com/tacir/lowercore/ir"
)

// StmtHandler lowers a statement node, emitting instructions by side effect.
type StmtHandler func(e *Engine, n Node)

// ExprHandler lowers an expression node and returns the register holding its
// result.
type ExprHandler func(e *Engine, n Node) string

// StoreTargetHook lets an adapter extend LowerStoreTarget with a
// grammar-specific assignment shape (e.g. C's pointer dereference `*p = v`,
// spec §4.1.4). It returns true when it handled the target itself.
type StoreTargetHook func(e *Engine, target Node, valReg string, parent Node) bool

// loopFrame is one entry of the loop_stack (spec §3.3): the label `continue`
// re-enters at, and the label this loop's `break` exits to.
type loopFrame struct {
	ContinueLabel string
	EndLabel      string
}

// Engine is the per-lowering mutable state (spec §3.3). One instance is
// constructed per adapter and reset at the start of every Lower call; it is
// not safe for concurrent use (spec §5), but is safe to reuse sequentially.
type Engine struct {
	Config Config

	StmtDispatch map[string]StmtHandler
	ExprDispatch map[string]ExprHandler

	// StoreTargetOverride lets an adapter add a grammar-specific assignment
	// target shape on top of the engine's variable/field/index defaults.
	StoreTargetOverride StoreTargetHook

	// FilePath is copied into every emitted instruction's SourceLocation.
	FilePath string

	regCounter   int
	labelCounter int
	instructions []ir.Instruction
	source       []byte

	loopStack  []loopFrame
	breakStack []string

	// currentFunctionName is adapter-local state (spec §3.3): languages
	// where assignment to the function's own name means "return" (Pascal)
	// read it through CurrentFunctionName.
	currentFunctionName string
}

// New constructs an engine with cfg already applied. Adapters call this from
// their own constructor before populating dispatch tables (spec §4.2, step 1).
func New(cfg Config) *Engine {
	return &Engine{
		Config:       cfg,
		StmtDispatch: make(map[string]StmtHandler),
		ExprDispatch: make(map[string]ExprHandler),
	}
}

// Reset clears all per-call state and installs source as the new source
// buffer (spec §3.3: "Engine state is reset at the start of each lower()
// call"). Dispatch tables and Config survive a reset — they are adapter
// configuration, not per-call state.
func (e *Engine) Reset(source []byte, filePath string) {
	e.regCounter = 0
	e.labelCounter = 0
	e.instructions = nil
	e.source = source
	e.FilePath = filePath
	e.loopStack = nil
	e.breakStack = nil
	e.currentFunctionName = ""
}

// LowerProgram runs one full lowering call (spec §6.1): reset state, emit the
// mandatory leading `LABEL "entry"`, hand the root node to lowerRoot, then
// return the accumulated buffer. lowerRoot is usually e.LowerBlock; Go's
// adapter supplies a different callback to hoist main's body to top level.
func (e *Engine) LowerProgram(root Node, source []byte, filePath string, lowerRoot func(e *Engine, root Node)) []ir.Instruction {
	e.Reset(source, filePath)
	e.EmitLabel("entry", root)
	lowerRoot(e, root)
	return e.Instructions()
}

// Instructions returns the instruction buffer accumulated so far.
func (e *Engine) Instructions() []ir.Instruction {
	return e.instructions
}

// Source returns the raw bytes being lowered.
func (e *Engine) Source() []byte {
	return e.source
}

// CurrentFunctionName returns the name of the function currently being
// lowered, or "" outside any function body.
func (e *Engine) CurrentFunctionName() string {
	return e.currentFunctionName
}

// FreshReg allocates a new globally-unique register name (spec §4.1.6).
func (e *Engine) FreshReg() string {
	r := "%" + strconv.Itoa(e.regCounter)
	e.regCounter++
	return r
}

// FreshLabel allocates a new label from the shared label counter, prefixed
// with prefix (spec §4.1.6). The same counter backs every prefix, so labels
// never collide across prefixes within one lowering.
func (e *Engine) FreshLabel(prefix string) string {
	l := prefix + "_" + strconv.Itoa(e.labelCounter)
	e.labelCounter++
	return l
}

func (e *Engine) locationFor(n Node) ir.SourceLocation {
	if n == nil {
		return ir.Unknown()
	}
	sp, ep := n.StartPoint(), n.EndPoint()
	return ir.SourceLocation{
		File:      e.FilePath,
		StartLine: sp.Row + 1,
		StartCol:  sp.Column,
		EndLine:   ep.Row + 1,
		EndCol:    ep.Column,
	}
}

// emit appends an immutable instruction record (spec §4.1.5).
func (e *Engine) emit(opcode ir.Opcode, resultReg string, operands []string, n Node) {
	e.instructions = append(e.instructions, ir.Instruction{
		Opcode:         opcode,
		ResultReg:      resultReg,
		Operands:       operands,
		SourceLocation: e.locationFor(n),
	})
}

// EmitLabel appends a LABEL instruction naming label.
func (e *Engine) EmitLabel(label string, n Node) {
	e.instructions = append(e.instructions, ir.Instruction{
		Opcode:         ir.LABEL,
		Label:          label,
		SourceLocation: e.locationFor(n),
	})
}

// Emit is the public, adapter-facing form of instruction emission: it covers
// every opcode an adapter needs to emit directly (rather than through one of
// the reusable lowerers below) and returns the fresh result register when
// wantsResult requests one.
func (e *Engine) Emit(opcode ir.Opcode, operands []string, n Node, wantsResult bool) string {
	if opcode == ir.LABEL {
		panic("engine: use EmitLabel for LABEL instructions")
	}
	var reg string
	if wantsResult {
		reg = e.FreshReg()
	}
	e.emit(opcode, reg, operands, n)
	return reg
}

func (e *Engine) isNoise(nodeType string) bool {
	return e.Config.CommentTypes[nodeType] || e.Config.NoiseTypes[nodeType]
}

func (e *Engine) filterNoise(children []Node) []Node {
	out := make([]Node, 0, len(children))
	for _, c := range children {
		if !e.isNoise(c.Type()) {
			out = append(out, c)
		}
	}
	return out
}

// missing emits the defensive SYMBOLIC fallback for an absent required node
// (spec §7's "unknown_<role>" convention) and returns its result register.
func (e *Engine) missing(role string, n Node) string {
	reg := e.FreshReg()
	e.emit(ir.SYMBOLIC, reg, []string{"unknown_" + role}, n)
	return reg
}

// lowerExprOrMissing lowers n if present, else emits the "unknown_<role>"
// fallback — the pattern spec §7 requires for malformed subtrees.
func (e *Engine) lowerExprOrMissing(n Node, role string) string {
	if n == nil {
		return e.missing(role, nil)
	}
	return e.LowerExpr(n)
}

// Missing emits the defensive SYMBOLIC fallback for an absent required node
// (spec §7's "unknown_<role>" convention) and returns its result register.
// Exported so adapters can use the same defensive-handler convention the
// engine's own reusable lowerers follow.
func (e *Engine) Missing(role string, n Node) string {
	return e.missing(role, n)
}

// LowerExprOrMissing lowers n if present, else emits the "unknown_<role>"
// fallback.
func (e *Engine) LowerExprOrMissing(n Node, role string) string {
	return e.lowerExprOrMissing(n, role)
}

// NodeNameOrAnon extracts a name node's text, falling back to a synthesized
// anonymous name when nameNode is absent.
func (e *Engine) NodeNameOrAnon(nameNode Node, kind string) string {
	return e.nodeNameOrAnon(nameNode, kind)
}

// nodeNameOrAnon extracts a name node's text, falling back to a synthesized
// anonymous name when the name node is absent (spec §7's defensive-handler
// policy; used for anonymous functions/classes some grammars permit).
func (e *Engine) nodeNameOrAnon(nameNode Node, kind string) string {
	if nameNode == nil {
		return "__anon_" + kind + "_" + strconv.Itoa(e.labelCounter)
	}
	return Text(nameNode, e.source)
}
