package ir

import (
	"fmt"
	"io"
	"strings"
)

// Printer renders an instruction list in the textual diagnostic format from
// spec §6.2: one instruction per line,
// "[LABEL] OPCODE result_reg = operand operand ...". This mirrors
// pkg/rtl/printer.go's Printer — an io.Writer sink walked with fmt.Fprintf —
// adapted from RTL's per-node CFG dump to a flat instruction-list dump.
type Printer struct {
	w io.Writer
}

// NewPrinter creates a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintAll writes every instruction, one per line.
func (p *Printer) PrintAll(instrs []Instruction) {
	for _, instr := range instrs {
		p.PrintInstruction(instr)
	}
}

// PrintInstruction writes a single instruction line.
func (p *Printer) PrintInstruction(instr Instruction) {
	if instr.Opcode == LABEL {
		fmt.Fprintf(p.w, "LABEL %s\n", instr.Label)
		return
	}

	var b strings.Builder
	b.WriteString(instr.Opcode.String())
	if instr.ResultReg != "" {
		fmt.Fprintf(&b, " %s =", instr.ResultReg)
	}
	for _, operand := range instr.Operands {
		b.WriteByte(' ')
		b.WriteString(operand)
	}
	fmt.Fprintln(p.w, b.String())
}

// Sprint renders instrs to a single string, for use in tests and the CLI's
// --format=text mode.
func Sprint(instrs []Instruction) string {
	var b strings.Builder
	NewPrinter(&b).PrintAll(instrs)
	return b.String()
}
