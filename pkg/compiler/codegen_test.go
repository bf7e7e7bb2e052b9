package compiler

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/kurodash/mruby/pkg/bytecode"
	"github.com/kurodash/mruby/pkg/mrb"
)

func generate(t *testing.T, src string) *bytecode.Irep {
	t.Helper()
	state := mrb.New()
	t.Cleanup(func() { state.Close() })

	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	stmts, err := Parse(tokens, src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	irep, err := Generate(state, stmts, "test.rb")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	return irep
}

// opcodes flattens the instruction stream to its opcode sequence.
func opcodes(t *testing.T, ir *bytecode.Irep) []bytecode.Op {
	t.Helper()
	var ops []bytecode.Op
	pc := 0
	for pc < len(ir.ISeq) {
		op := bytecode.Op(ir.ISeq[pc])
		n := bytecode.OperandLen(op)
		if n < 0 {
			t.Fatalf("bad opcode %d at %d", ir.ISeq[pc], pc)
		}
		ops = append(ops, op)
		pc += 1 + n
	}
	return ops
}

func TestGenerate_Assignment(t *testing.T) {
	ir := generate(t, "x = 10")

	if ir.NLocals != 2 {
		t.Errorf("NLocals = %d, want 2 (self + x)", ir.NLocals)
	}
	want := []bytecode.Op{bytecode.OpLOADI, bytecode.OpMOVE, bytecode.OpSTOP}
	got := opcodes(t, ir)
	if len(got) != len(want) {
		t.Fatalf("opcodes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("op %d = %s, want %s", i, got[i], want[i])
		}
	}
	// MOVE targets the local register R1
	if ir.ISeq[5] != 1 {
		t.Errorf("MOVE dst = R%d, want R1", ir.ISeq[5])
	}
}

func TestGenerate_EndsWithStop(t *testing.T) {
	ir := generate(t, "x = 1\ny = x + 2")
	ops := opcodes(t, ir)
	if ops[len(ops)-1] != bytecode.OpSTOP {
		t.Errorf("top-level irep must end with STOP, got %s", ops[len(ops)-1])
	}
}

func TestGenerate_LargeIntegerGoesToPool(t *testing.T) {
	ir := generate(t, "x = 100000")
	if len(ir.Pool) != 1 || ir.Pool[0] != bytecode.Int(100000) {
		t.Errorf("pool = %v, want [100000]", ir.Pool)
	}
	ops := opcodes(t, ir)
	if ops[0] != bytecode.OpLOADL {
		t.Errorf("first op = %s, want LOADL", ops[0])
	}
}

func TestGenerate_SmallIntegerInline(t *testing.T) {
	ir := generate(t, "x = -42")
	if len(ir.Pool) != 0 {
		t.Errorf("pool = %v, want empty", ir.Pool)
	}
	if imm := int16(binary.LittleEndian.Uint16(ir.ISeq[2:])); imm != -42 {
		t.Errorf("LOADI imm = %d, want -42", imm)
	}
}

func TestGenerate_PoolDedup(t *testing.T) {
	ir := generate(t, `a = "hi"
b = "hi"
c = 2.5
d = 2.5`)
	if len(ir.Pool) != 2 {
		t.Errorf("pool = %v, want 2 deduplicated entries", ir.Pool)
	}
}

func TestGenerate_SelfCall(t *testing.T) {
	ir := generate(t, `puts "hello"`)
	ops := opcodes(t, ir)
	want := []bytecode.Op{bytecode.OpLOADSELF, bytecode.OpSTRING, bytecode.OpSEND, bytecode.OpSTOP}
	if len(ops) != len(want) {
		t.Fatalf("opcodes = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("op %d = %s, want %s", i, ops[i], want[i])
		}
	}
	if len(ir.Syms) != 1 || ir.Syms[0] != "puts" {
		t.Errorf("syms = %v, want [puts]", ir.Syms)
	}
}

func TestGenerate_BareUnknownIdentIsSelfCall(t *testing.T) {
	ir := generate(t, "exit")
	ops := opcodes(t, ir)
	if ops[0] != bytecode.OpLOADSELF || ops[1] != bytecode.OpSEND {
		t.Errorf("opcodes = %v, want self call", ops)
	}
}

func TestGenerate_WhileLoopJumpsBack(t *testing.T) {
	ir := generate(t, "i = 0\nwhile i < 3\n i += 1\nend")
	listing := bytecode.Disasm(ir)

	if !strings.Contains(listing, "JMPNOT") {
		t.Errorf("missing loop exit jump:\n%s", listing)
	}
	// the backward jump has a negative offset
	if !strings.Contains(listing, "JMP      -") {
		t.Errorf("missing backward jump:\n%s", listing)
	}
}

func TestGenerate_IfElse(t *testing.T) {
	ir := generate(t, "if true\n x = 1\nelse\n x = 2\nend")
	ops := opcodes(t, ir)

	var jmpnot, jmp int
	for _, op := range ops {
		switch op {
		case bytecode.OpJMPNOT:
			jmpnot++
		case bytecode.OpJMP:
			jmp++
		}
	}
	if jmpnot != 1 || jmp != 1 {
		t.Errorf("jumps = JMPNOT:%d JMP:%d, want 1 and 1", jmpnot, jmp)
	}
}

func TestGenerate_LogicalShortCircuit(t *testing.T) {
	irAnd := generate(t, "x = true && false")
	if ops := opcodes(t, irAnd); !containsOp(ops, bytecode.OpJMPNOT) {
		t.Errorf("&& should emit JMPNOT: %v", ops)
	}
	irOr := generate(t, "x = true || false")
	if ops := opcodes(t, irOr); !containsOp(ops, bytecode.OpJMPIF) {
		t.Errorf("|| should emit JMPIF: %v", ops)
	}
}

func containsOp(ops []bytecode.Op, want bytecode.Op) bool {
	for _, op := range ops {
		if op == want {
			return true
		}
	}
	return false
}

func TestGenerate_NotEqual(t *testing.T) {
	ir := generate(t, "x = 1 != 2")
	ops := opcodes(t, ir)
	if !containsOp(ops, bytecode.OpEQ) || !containsOp(ops, bytecode.OpNOT) {
		t.Errorf("!= should emit EQ then NOT: %v", ops)
	}
}

func TestGenerate_MethodDef(t *testing.T) {
	ir := generate(t, `
def add(a, b)
  a + b
end
`)
	if len(ir.Reps) != 1 {
		t.Fatalf("expected 1 child irep, got %d", len(ir.Reps))
	}
	child := ir.Reps[0]
	if child.NLocals != 3 {
		t.Errorf("child NLocals = %d, want 3 (self + a + b)", child.NLocals)
	}
	ops := opcodes(t, child)
	if ops[len(ops)-1] != bytecode.OpRETURN {
		t.Errorf("method body must end with RETURN, got %v", ops)
	}
	if !containsOp(opcodes(t, ir), bytecode.OpMETHOD) {
		t.Error("top level missing METHOD op")
	}
	if ir.Syms[len(ir.Syms)-1] != "add" {
		t.Errorf("method name not interned in syms: %v", ir.Syms)
	}
}

func TestGenerate_MethodReturnsLastExpression(t *testing.T) {
	ir := generate(t, "def f\n x = 1\n x\nend")
	child := ir.Reps[0]
	ops := opcodes(t, child)
	// MOVE local, LOADI..., then MOVE to temp and RETURN it
	if ops[len(ops)-1] != bytecode.OpRETURN {
		t.Fatalf("ops = %v", ops)
	}
	if containsOp(ops, bytecode.OpLOADNIL) {
		t.Errorf("trailing expression should be returned, not nil: %v", ops)
	}
}

func TestGenerate_EmptyMethodReturnsNil(t *testing.T) {
	ir := generate(t, "def f\nend")
	ops := opcodes(t, ir.Reps[0])
	want := []bytecode.Op{bytecode.OpLOADNIL, bytecode.OpRETURN}
	if len(ops) != 2 || ops[0] != want[0] || ops[1] != want[1] {
		t.Errorf("ops = %v, want %v", ops, want)
	}
}

func TestGenerate_BreakOutsideLoop(t *testing.T) {
	state := mrb.New()
	defer state.Close()

	tokens, _ := Lex("break")
	stmts, err := Parse(tokens, "break")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	_, err = Generate(state, stmts, "test.rb")
	if err == nil || !strings.Contains(err.Error(), "break outside of loop") {
		t.Errorf("error = %v", err)
	}
}

func TestGenerate_BreakJumpsPastLoop(t *testing.T) {
	ir := generate(t, "while true\n break\nend\nx = 9")
	// all jump targets must stay inside the instruction stream
	pc := 0
	for pc < len(ir.ISeq) {
		op := bytecode.Op(ir.ISeq[pc])
		n := bytecode.OperandLen(op)
		switch op {
		case bytecode.OpJMP, bytecode.OpJMPIF, bytecode.OpJMPNOT:
			operandPos := pc + 1 + n - 2
			rel := int16(binary.LittleEndian.Uint16(ir.ISeq[operandPos:]))
			target := operandPos + 2 + int(rel)
			if target < 0 || target > len(ir.ISeq) {
				t.Errorf("jump at %d targets %d, out of range", pc, target)
			}
		}
		pc += 1 + n
	}
}

func TestGenerate_LineTable(t *testing.T) {
	ir := generate(t, "x = 1\ny = 2")
	ops := opcodes(t, ir)
	if len(ir.Lines) != len(ops) {
		t.Fatalf("lines = %d entries for %d instructions", len(ir.Lines), len(ops))
	}
	if ir.Lines[0] != 1 {
		t.Errorf("first instruction line = %d, want 1", ir.Lines[0])
	}
	// the MOVE for y's assignment sits on line 2
	if ir.Lines[2] != 2 {
		t.Errorf("third instruction line = %d, want 2", ir.Lines[2])
	}
	if ir.Filename != "test.rb" {
		t.Errorf("filename = %q", ir.Filename)
	}
}

func TestGenerate_NRegsCoversTemporaries(t *testing.T) {
	ir := generate(t, "x = 1 + 2 + 3 + 4")
	if ir.NRegs <= ir.NLocals {
		t.Errorf("NRegs = %d, must exceed NLocals = %d", ir.NRegs, ir.NLocals)
	}
}

func TestGenerate_ArrayLiteral(t *testing.T) {
	ir := generate(t, "a = [1, 2, 3]")
	ops := opcodes(t, ir)
	if !containsOp(ops, bytecode.OpARRAY) {
		t.Errorf("missing ARRAY op: %v", ops)
	}
}

func TestGenerate_UnaryMinusOnVariable(t *testing.T) {
	ir := generate(t, "x = 1\ny = -x")
	if ir.Syms[0] != "-@" {
		t.Errorf("syms = %v, want unary minus send", ir.Syms)
	}
}
