package bytecode

import "fmt"

// ValueKind tags a literal pool entry.
type ValueKind byte

const (
	IntValue ValueKind = iota
	FloatValue
	StrValue
)

// Value is one entry in an irep's literal pool.
type Value struct {
	Kind  ValueKind
	Int   int64
	Float float64
	Str   string
}

func Int(v int64) Value     { return Value{Kind: IntValue, Int: v} }
func Float(v float64) Value { return Value{Kind: FloatValue, Float: v} }
func Str(v string) Value    { return Value{Kind: StrValue, Str: v} }

func (v Value) String() string {
	switch v.Kind {
	case IntValue:
		return fmt.Sprintf("%d", v.Int)
	case FloatValue:
		return fmt.Sprintf("%g", v.Float)
	case StrValue:
		return fmt.Sprintf("%q", v.Str)
	}
	return fmt.Sprintf("Value(kind=%d)", v.Kind)
}

// Irep is one compiled instruction record: the bytecode for a single
// body (the top-level program, or one method definition), together
// with its literal pool, symbol list and child ireps.
//
// Register layout follows mruby: R(0) is self, R(1)..R(NLocals-1) are
// local variables, registers above that are expression temporaries.
type Irep struct {
	NLocals int // locals including self at R(0)
	NRegs   int // total registers needed

	ISeq []byte   // instruction stream, see Op for encoding
	Pool []Value  // literal pool
	Syms []string // symbols referenced by LOADSYM/SEND/METHOD
	Reps []*Irep  // child ireps, one per method definition

	// Debug info. Lines holds one source line per instruction, in
	// instruction order; Filename is the diagnostic name the unit
	// was compiled under. Always populated by the code generator;
	// the serializer decides whether it is written out.
	Filename string
	Lines    []uint16
}

// Equal reports whether two ireps describe the same compiled unit,
// ignoring debug info.
func (ir *Irep) Equal(other *Irep) bool {
	if ir.NLocals != other.NLocals || ir.NRegs != other.NRegs {
		return false
	}
	if string(ir.ISeq) != string(other.ISeq) {
		return false
	}
	if len(ir.Pool) != len(other.Pool) || len(ir.Syms) != len(other.Syms) || len(ir.Reps) != len(other.Reps) {
		return false
	}
	for i, v := range ir.Pool {
		if v != other.Pool[i] {
			return false
		}
	}
	for i, s := range ir.Syms {
		if s != other.Syms[i] {
			return false
		}
	}
	for i, rep := range ir.Reps {
		if !rep.Equal(other.Reps[i]) {
			return false
		}
	}
	return true
}
