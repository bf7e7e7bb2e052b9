package bytecode

import "fmt"

// Op is a single bytecode opcode.
//
// Instructions are variable length: one opcode byte followed by
// OperandLen(op) operand bytes. Register operands are one byte,
// pool/symbol indexes are one byte, immediates and jump offsets are
// little-endian int16. Jump offsets are relative to the first byte
// after the full instruction.
type Op byte

const (
	OpNOP      Op = iota // no operation
	OpMOVE               // R(a) = R(b)
	OpLOADL              // R(a) = Pool[b]
	OpLOADI              // R(a) = imm (int16)
	OpLOADSYM            // R(a) = :Syms[b]
	OpLOADNIL            // R(a) = nil
	OpLOADSELF           // R(a) = self
	OpLOADT              // R(a) = true
	OpLOADF              // R(a) = false
	OpSTRING             // R(a) = Pool[b] (string literal)

	// Arithmetic and comparison: R(a) = R(a) <op> R(a+1)
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpMOD
	OpEQ
	OpLT
	OpLE
	OpGT
	OpGE

	OpNOT // R(a) = !R(a)

	OpJMP    // pc += rel
	OpJMPIF  // if R(a) then pc += rel
	OpJMPNOT // if !R(a) then pc += rel

	OpSEND   // R(a) = R(a).send(Syms[b], R(a+1)..R(a+c))
	OpARRAY  // R(a) = [R(a)..R(a+b-1)]
	OpMETHOD // def self.Syms[a] using Reps[b]

	OpRETURN // return R(a)
	OpSTOP   // end of top-level execution
)

// opNames is indexed by Op; keep in sync with the constant block above.
var opNames = [...]string{
	OpNOP:      "NOP",
	OpMOVE:     "MOVE",
	OpLOADL:    "LOADL",
	OpLOADI:    "LOADI",
	OpLOADSYM:  "LOADSYM",
	OpLOADNIL:  "LOADNIL",
	OpLOADSELF: "LOADSELF",
	OpLOADT:    "LOADT",
	OpLOADF:    "LOADF",
	OpSTRING:   "STRING",
	OpADD:      "ADD",
	OpSUB:      "SUB",
	OpMUL:      "MUL",
	OpDIV:      "DIV",
	OpMOD:      "MOD",
	OpEQ:       "EQ",
	OpLT:       "LT",
	OpLE:       "LE",
	OpGT:       "GT",
	OpGE:       "GE",
	OpNOT:      "NOT",
	OpJMP:      "JMP",
	OpJMPIF:    "JMPIF",
	OpJMPNOT:   "JMPNOT",
	OpSEND:     "SEND",
	OpARRAY:    "ARRAY",
	OpMETHOD:   "METHOD",
	OpRETURN:   "RETURN",
	OpSTOP:     "STOP",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// opOperands is the operand byte count for each opcode.
var opOperands = [...]int{
	OpNOP:      0,
	OpMOVE:     2,
	OpLOADL:    2,
	OpLOADI:    3, // reg + int16
	OpLOADSYM:  2,
	OpLOADNIL:  1,
	OpLOADSELF: 1,
	OpLOADT:    1,
	OpLOADF:    1,
	OpSTRING:   2,
	OpADD:      1,
	OpSUB:      1,
	OpMUL:      1,
	OpDIV:      1,
	OpMOD:      1,
	OpEQ:       1,
	OpLT:       1,
	OpLE:       1,
	OpGT:       1,
	OpGE:       1,
	OpNOT:      1,
	OpJMP:      2, // int16
	OpJMPIF:    3, // reg + int16
	OpJMPNOT:   3, // reg + int16
	OpSEND:     3, // reg + sym + nargs
	OpARRAY:    2, // reg + count
	OpMETHOD:   2, // sym + rep
	OpRETURN:   1,
	OpSTOP:     0,
}

// OperandLen returns how many operand bytes follow the opcode byte,
// or -1 for an opcode outside the instruction set.
func OperandLen(op Op) int {
	if int(op) < len(opOperands) {
		return opOperands[op]
	}
	return -1
}
