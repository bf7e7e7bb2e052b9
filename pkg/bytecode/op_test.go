package bytecode

import "testing"

func TestOpTables_Complete(t *testing.T) {
	for op := OpNOP; op <= OpSTOP; op++ {
		if op.String() == "" {
			t.Errorf("opcode %d has no name", byte(op))
		}
		if OperandLen(op) < 0 {
			t.Errorf("opcode %s has no operand length", op)
		}
	}
	if len(opNames) != len(opOperands) {
		t.Fatalf("opNames has %d entries, opOperands has %d", len(opNames), len(opOperands))
	}
}

func TestOperandLen_Unknown(t *testing.T) {
	if got := OperandLen(Op(200)); got != -1 {
		t.Errorf("OperandLen(200) = %d, want -1", got)
	}
}

func TestOpString_Unknown(t *testing.T) {
	if got := Op(200).String(); got != "Op(200)" {
		t.Errorf("String() = %q, want Op(200)", got)
	}
}
