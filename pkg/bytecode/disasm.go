package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disasm renders an irep and its children as a human-readable
// instruction listing, one instruction per line. Used by the verbose
// compiler trace and by tests.
func Disasm(ir *Irep) string {
	var sb strings.Builder
	disasmIrep(&sb, ir, 0)
	return sb.String()
}

func disasmIrep(sb *strings.Builder, ir *Irep, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(sb, "%sirep nlocals=%d nregs=%d iseq=%d\n", indent, ir.NLocals, ir.NRegs, len(ir.ISeq))

	pc := 0
	inst := 0
	for pc < len(ir.ISeq) {
		op := Op(ir.ISeq[pc])
		n := OperandLen(op)
		if n < 0 || pc+1+n > len(ir.ISeq) {
			fmt.Fprintf(sb, "%s  %04d <bad opcode %d>\n", indent, pc, byte(op))
			break
		}
		operands := ir.ISeq[pc+1 : pc+1+n]
		fmt.Fprintf(sb, "%s  %04d %-8s %s", indent, pc, op, disasmOperands(ir, op, operands))
		if inst < len(ir.Lines) {
			fmt.Fprintf(sb, "\t; line %d", ir.Lines[inst])
		}
		sb.WriteByte('\n')
		pc += 1 + n
		inst++
	}

	for _, rep := range ir.Reps {
		disasmIrep(sb, rep, depth+1)
	}
}

func disasmOperands(ir *Irep, op Op, operands []byte) string {
	rel := func(b []byte) int16 {
		return int16(binary.LittleEndian.Uint16(b))
	}
	switch op {
	case OpMOVE:
		return fmt.Sprintf("R%d R%d", operands[0], operands[1])
	case OpLOADL, OpSTRING:
		return fmt.Sprintf("R%d %s", operands[0], poolAt(ir, int(operands[1])))
	case OpLOADI:
		return fmt.Sprintf("R%d %d", operands[0], rel(operands[1:]))
	case OpLOADSYM:
		return fmt.Sprintf("R%d :%s", operands[0], symAt(ir, int(operands[1])))
	case OpLOADNIL, OpLOADSELF, OpLOADT, OpLOADF, OpNOT, OpRETURN,
		OpADD, OpSUB, OpMUL, OpDIV, OpMOD, OpEQ, OpLT, OpLE, OpGT, OpGE:
		return fmt.Sprintf("R%d", operands[0])
	case OpJMP:
		return fmt.Sprintf("%+d", rel(operands))
	case OpJMPIF, OpJMPNOT:
		return fmt.Sprintf("R%d %+d", operands[0], rel(operands[1:]))
	case OpSEND:
		return fmt.Sprintf("R%d :%s nargs=%d", operands[0], symAt(ir, int(operands[1])), operands[2])
	case OpARRAY:
		return fmt.Sprintf("R%d n=%d", operands[0], operands[1])
	case OpMETHOD:
		return fmt.Sprintf(":%s rep=%d", symAt(ir, int(operands[0])), operands[1])
	}
	return ""
}

func poolAt(ir *Irep, i int) string {
	if i < len(ir.Pool) {
		return ir.Pool[i].String()
	}
	return fmt.Sprintf("<pool %d>", i)
}

func symAt(ir *Irep, i int) string {
	if i < len(ir.Syms) {
		return ir.Syms[i]
	}
	return fmt.Sprintf("<sym %d>", i)
}
