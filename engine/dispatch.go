package engine

import "github.com/tacir/lowercore/ir"

// LowerBlock implements spec §4.1.3 rule 1. A node type with a registered
// statement handler is itself a statement (this is how a single-statement
// `if` body without a block wrapper is handled); a node type with no
// statement handler is treated as a block container and its named children,
// skipping comments/noise, are each dispatched through LowerStmt.
func (e *Engine) LowerBlock(n Node) {
	if n == nil {
		return
	}
	if handler, ok := e.StmtDispatch[n.Type()]; ok {
		handler(e, n)
		return
	}
	for _, child := range n.NamedChildren() {
		if e.isNoise(child.Type()) {
			continue
		}
		e.LowerStmt(child)
	}
}

// LowerStmt implements spec §4.1.3 rule 2: comments/noise are skipped, a
// registered statement handler is invoked, and anything else falls through
// to expression-statement lowering.
func (e *Engine) LowerStmt(n Node) {
	if n == nil || e.isNoise(n.Type()) {
		return
	}
	if handler, ok := e.StmtDispatch[n.Type()]; ok {
		handler(e, n)
		return
	}
	e.LowerExpr(n)
}

// LowerExpr implements spec §4.1.3 rule 3: a registered expression handler is
// invoked; any unknown node type degrades to a SYMBOLIC placeholder rather
// than raising (spec §4.1.3, "graceful degradation is required").
func (e *Engine) LowerExpr(n Node) string {
	if n == nil {
		return e.missing("expr", nil)
	}
	if handler, ok := e.ExprDispatch[n.Type()]; ok {
		return handler(e, n)
	}
	reg := e.FreshReg()
	e.emit(ir.SYMBOLIC, reg, []string{"unsupported:" + n.Type()}, n)
	return reg
}
