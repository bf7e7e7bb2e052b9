package bytecode

import (
	"strings"
	"testing"
)

func sampleIrep() *Irep {
	// R(1) = 10; puts R(1); stop
	return &Irep{
		NLocals: 2,
		NRegs:   4,
		ISeq: []byte{
			byte(OpLOADI), 1, 10, 0,
			byte(OpLOADSELF), 2,
			byte(OpMOVE), 3, 1,
			byte(OpSEND), 2, 0, 1,
			byte(OpSTOP),
		},
		Syms:  []string{"puts"},
		Lines: []uint16{1, 2, 2, 2, 2},
	}
}

func TestDisasm_Listing(t *testing.T) {
	out := Disasm(sampleIrep())

	for _, want := range []string{
		"nlocals=2 nregs=4",
		"LOADI    R1 10",
		"SEND     R2 :puts nargs=1",
		"STOP",
		"; line 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("listing missing %q:\n%s", want, out)
		}
	}
}

func TestDisasm_BadOpcode(t *testing.T) {
	ir := &Irep{ISeq: []byte{200}}
	if out := Disasm(ir); !strings.Contains(out, "bad opcode") {
		t.Errorf("expected bad opcode marker, got:\n%s", out)
	}
}

func TestDisasm_Children(t *testing.T) {
	ir := sampleIrep()
	ir.Reps = []*Irep{{
		NLocals: 2,
		NRegs:   3,
		ISeq:    []byte{byte(OpMOVE), 2, 1, byte(OpRETURN), 2},
	}}
	out := Disasm(ir)
	if !strings.Contains(out, "RETURN") {
		t.Errorf("child irep not disassembled:\n%s", out)
	}
}

func TestIrepEqual(t *testing.T) {
	a := sampleIrep()
	b := sampleIrep()
	if !a.Equal(b) {
		t.Fatal("identical ireps reported unequal")
	}

	// debug info does not affect equality
	b.Lines = nil
	b.Filename = "other.rb"
	if !a.Equal(b) {
		t.Error("debug info should not affect Equal")
	}

	b = sampleIrep()
	b.ISeq[2] = 11
	if a.Equal(b) {
		t.Error("differing iseq reported equal")
	}

	b = sampleIrep()
	b.Syms = []string{"print"}
	if a.Equal(b) {
		t.Error("differing syms reported equal")
	}
}
