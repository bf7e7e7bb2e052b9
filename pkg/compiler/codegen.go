package compiler

import (
	"encoding/binary"
	"fmt"

	"github.com/kurodash/mruby/pkg/bytecode"
	"github.com/kurodash/mruby/pkg/mrb"
)

// CodeGen walks a statement list and emits bytecode into one irep.
// Each method definition gets its own CodeGen and child irep.
//
// Expression generation follows a stack discipline: genExpr leaves its
// result in the register at the current stack pointer and bumps it;
// callers pop what they consume.
type CodeGen struct {
	mrb  *mrb.State
	irep *bytecode.Irep

	locals map[string]int // name -> register
	sp     int            // next free register
	maxSP  int
	line   int // source line of the statement being generated

	poolCache map[bytecode.Value]int
	symCache  map[string]int
	loops     []*loopFrame
}

// loopFrame tracks the jump targets of one enclosing while loop.
type loopFrame struct {
	start   int   // iseq offset of the condition
	breakPs []int // JMP operand positions to patch to loop end
}

// Generate compiles a parsed program into its top-level irep.
func Generate(state *mrb.State, stmts []Stmt, filename string) (*bytecode.Irep, error) {
	cg := newCodeGen(state, filename, nil, stmts)
	for _, s := range stmts {
		if err := cg.genStmt(s); err != nil {
			return nil, err
		}
	}
	cg.setLine(lastLine(stmts))
	cg.emit(bytecode.OpSTOP)
	cg.finish()
	return cg.irep, nil
}

func newCodeGen(state *mrb.State, filename string, params []string, body []Stmt) *CodeGen {
	cg := &CodeGen{
		mrb:       state,
		irep:      &bytecode.Irep{Filename: filename},
		locals:    make(map[string]int),
		poolCache: make(map[bytecode.Value]int),
		symCache:  make(map[string]int),
		line:      1,
	}
	for _, p := range params {
		cg.declareLocal(p)
	}
	collectLocals(body, cg)
	cg.irep.NLocals = 1 + len(cg.locals) // R(0) is self
	cg.sp = cg.irep.NLocals
	cg.maxSP = cg.sp
	return cg
}

func (cg *CodeGen) declareLocal(name string) {
	if _, ok := cg.locals[name]; !ok {
		cg.locals[name] = 1 + len(cg.locals)
	}
}

// collectLocals pre-declares every assignment target in a body, so
// that locals occupy the low registers before temporaries. Method
// bodies are separate scopes and are not descended into.
func collectLocals(stmts []Stmt, cg *CodeGen) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *AssignStmt:
			cg.declareLocal(s.Name)
		case *IfStmt:
			collectLocals(s.Then, cg)
			for _, e := range s.Elsifs {
				collectLocals(e.Body, cg)
			}
			collectLocals(s.Else, cg)
		case *WhileStmt:
			collectLocals(s.Body, cg)
		}
	}
}

func lastLine(stmts []Stmt) int {
	line := 1
	for _, s := range stmts {
		switch s := s.(type) {
		case *ExprStmt:
			line = s.Line
		case *AssignStmt:
			line = s.Line
		case *IfStmt:
			line = s.Line
		case *WhileStmt:
			line = s.Line
		case *DefStmt:
			line = s.Line
		case *ReturnStmt:
			line = s.Line
		case *BreakStmt:
			line = s.Line
		case *NextStmt:
			line = s.Line
		}
	}
	return line
}

//  Emission primitives

func (cg *CodeGen) setLine(line int) {
	if line > 0 {
		cg.line = line
	}
}

func (cg *CodeGen) emit(op bytecode.Op, operands ...byte) {
	cg.irep.ISeq = append(cg.irep.ISeq, byte(op))
	cg.irep.ISeq = append(cg.irep.ISeq, operands...)
	cg.irep.Lines = append(cg.irep.Lines, uint16(cg.line))
}

// emitJump emits op with a placeholder offset and returns the operand
// position for later patching. regs carries the optional register
// operand of JMPIF/JMPNOT.
func (cg *CodeGen) emitJump(op bytecode.Op, regs ...byte) int {
	operands := append(append([]byte{}, regs...), 0, 0)
	cg.emit(op, operands...)
	return len(cg.irep.ISeq) - 2
}

// patchJump points the placeholder at pos to the current iseq end.
func (cg *CodeGen) patchJump(pos int) {
	cg.patchJumpTo(pos, len(cg.irep.ISeq))
}

func (cg *CodeGen) patchJumpTo(pos, target int) {
	rel := target - (pos + 2)
	binary.LittleEndian.PutUint16(cg.irep.ISeq[pos:], uint16(int16(rel)))
}

func (cg *CodeGen) push() (int, error) {
	r := cg.sp
	if r > 255 {
		return 0, fmt.Errorf("%s:%d: expression too complex (register overflow)", cg.irep.Filename, cg.line)
	}
	cg.sp++
	if cg.sp > cg.maxSP {
		cg.maxSP = cg.sp
	}
	return r, nil
}

func (cg *CodeGen) pop() {
	cg.sp--
}

func (cg *CodeGen) finish() {
	cg.irep.NRegs = cg.maxSP
}

func (cg *CodeGen) poolIndex(v bytecode.Value) (int, error) {
	if i, ok := cg.poolCache[v]; ok {
		return i, nil
	}
	i := len(cg.irep.Pool)
	if i > 255 {
		return 0, fmt.Errorf("%s:%d: too many literals in one scope", cg.irep.Filename, cg.line)
	}
	cg.irep.Pool = append(cg.irep.Pool, v)
	cg.poolCache[v] = i
	return i, nil
}

func (cg *CodeGen) symIndex(name string) (int, error) {
	if i, ok := cg.symCache[name]; ok {
		return i, nil
	}
	i := len(cg.irep.Syms)
	if i > 255 {
		return 0, fmt.Errorf("%s:%d: too many symbols in one scope", cg.irep.Filename, cg.line)
	}
	cg.mrb.Intern(name)
	cg.irep.Syms = append(cg.irep.Syms, name)
	cg.symCache[name] = i
	return i, nil
}

//  Statements

func (cg *CodeGen) genStmt(s Stmt) error {
	switch s := s.(type) {
	case *ExprStmt:
		cg.setLine(s.Line)
		if _, err := cg.genExpr(s.Expr); err != nil {
			return err
		}
		cg.pop()
		return nil

	case *AssignStmt:
		cg.setLine(s.Line)
		return cg.genAssign(s)

	case *IfStmt:
		cg.setLine(s.Line)
		return cg.genIf(s)

	case *WhileStmt:
		cg.setLine(s.Line)
		return cg.genWhile(s)

	case *DefStmt:
		cg.setLine(s.Line)
		return cg.genDef(s)

	case *ReturnStmt:
		cg.setLine(s.Line)
		var r int
		var err error
		if s.Value != nil {
			r, err = cg.genExpr(s.Value)
		} else {
			r, err = cg.push()
			if err == nil {
				cg.emit(bytecode.OpLOADNIL, byte(r))
			}
		}
		if err != nil {
			return err
		}
		cg.emit(bytecode.OpRETURN, byte(r))
		cg.pop()
		return nil

	case *BreakStmt:
		cg.setLine(s.Line)
		if len(cg.loops) == 0 {
			return fmt.Errorf("%s:%d: break outside of loop", cg.irep.Filename, s.Line)
		}
		frame := cg.loops[len(cg.loops)-1]
		frame.breakPs = append(frame.breakPs, cg.emitJump(bytecode.OpJMP))
		return nil

	case *NextStmt:
		cg.setLine(s.Line)
		if len(cg.loops) == 0 {
			return fmt.Errorf("%s:%d: next outside of loop", cg.irep.Filename, s.Line)
		}
		frame := cg.loops[len(cg.loops)-1]
		pos := cg.emitJump(bytecode.OpJMP)
		cg.patchJumpTo(pos, frame.start)
		return nil
	}
	return fmt.Errorf("%s: cannot generate code for %T", cg.irep.Filename, s)
}

func (cg *CodeGen) genBody(stmts []Stmt) error {
	for _, s := range stmts {
		if err := cg.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (cg *CodeGen) genAssign(s *AssignStmt) error {
	value := s.Value
	if s.Op != ASSIGN {
		// x += e  is  x = x + e
		value = &BinaryExpr{Op: s.Op, Left: &LocalRef{Name: s.Name}, Right: value}
	}
	r, err := cg.genExpr(value)
	if err != nil {
		return err
	}
	reg, ok := cg.locals[s.Name]
	if !ok {
		return fmt.Errorf("%s:%d: unresolved assignment target %q", cg.irep.Filename, s.Line, s.Name)
	}
	cg.emit(bytecode.OpMOVE, byte(reg), byte(r))
	cg.pop()
	return nil
}

func (cg *CodeGen) genIf(s *IfStmt) error {
	var endPs []int

	cond, err := cg.genExpr(s.Cond)
	if err != nil {
		return err
	}
	cg.pop()
	elsePos := cg.emitJump(bytecode.OpJMPNOT, byte(cond))

	if err := cg.genBody(s.Then); err != nil {
		return err
	}
	endPs = append(endPs, cg.emitJump(bytecode.OpJMP))
	cg.patchJump(elsePos)

	for _, arm := range s.Elsifs {
		cond, err := cg.genExpr(arm.Cond)
		if err != nil {
			return err
		}
		cg.pop()
		next := cg.emitJump(bytecode.OpJMPNOT, byte(cond))
		if err := cg.genBody(arm.Body); err != nil {
			return err
		}
		endPs = append(endPs, cg.emitJump(bytecode.OpJMP))
		cg.patchJump(next)
	}

	if err := cg.genBody(s.Else); err != nil {
		return err
	}
	for _, pos := range endPs {
		cg.patchJump(pos)
	}
	return nil
}

func (cg *CodeGen) genWhile(s *WhileStmt) error {
	frame := &loopFrame{start: len(cg.irep.ISeq)}

	cond, err := cg.genExpr(s.Cond)
	if err != nil {
		return err
	}
	cg.pop()
	endPos := cg.emitJump(bytecode.OpJMPNOT, byte(cond))

	cg.loops = append(cg.loops, frame)
	err = cg.genBody(s.Body)
	cg.loops = cg.loops[:len(cg.loops)-1]
	if err != nil {
		return err
	}

	back := cg.emitJump(bytecode.OpJMP)
	cg.patchJumpTo(back, frame.start)
	cg.patchJump(endPos)
	for _, pos := range frame.breakPs {
		cg.patchJump(pos)
	}
	return nil
}

func (cg *CodeGen) genDef(s *DefStmt) error {
	child := newCodeGen(cg.mrb, cg.irep.Filename, s.Params, s.Body)

	// a method returns the value of its last expression
	body := s.Body
	var tail Stmt
	if n := len(body); n > 0 {
		if es, ok := body[n-1].(*ExprStmt); ok {
			tail = es
			body = body[:n-1]
		}
	}
	if err := child.genBody(body); err != nil {
		return err
	}
	if es, ok := tail.(*ExprStmt); ok {
		child.setLine(es.Line)
		r, err := child.genExpr(es.Expr)
		if err != nil {
			return err
		}
		child.emit(bytecode.OpRETURN, byte(r))
		child.pop()
	} else {
		child.setLine(lastLine(s.Body))
		r, err := child.push()
		if err != nil {
			return err
		}
		child.emit(bytecode.OpLOADNIL, byte(r))
		child.emit(bytecode.OpRETURN, byte(r))
		child.pop()
	}
	child.finish()

	repIdx := len(cg.irep.Reps)
	if repIdx > 255 {
		return fmt.Errorf("%s:%d: too many method definitions in one scope", cg.irep.Filename, s.Line)
	}
	cg.irep.Reps = append(cg.irep.Reps, child.irep)

	symIdx, err := cg.symIndex(s.Name)
	if err != nil {
		return err
	}
	cg.emit(bytecode.OpMETHOD, byte(symIdx), byte(repIdx))
	return nil
}

//  Expressions

// genExpr emits code leaving the expression value in the returned
// register, which is the new top of the stack.
func (cg *CodeGen) genExpr(e Expr) (int, error) {
	switch e := e.(type) {
	case *IntLit:
		r, err := cg.push()
		if err != nil {
			return 0, err
		}
		if e.Value >= -32768 && e.Value <= 32767 {
			var imm [2]byte
			binary.LittleEndian.PutUint16(imm[:], uint16(int16(e.Value)))
			cg.emit(bytecode.OpLOADI, byte(r), imm[0], imm[1])
		} else {
			i, err := cg.poolIndex(bytecode.Int(e.Value))
			if err != nil {
				return 0, err
			}
			cg.emit(bytecode.OpLOADL, byte(r), byte(i))
		}
		return r, nil

	case *FloatLit:
		r, err := cg.push()
		if err != nil {
			return 0, err
		}
		i, err := cg.poolIndex(bytecode.Float(e.Value))
		if err != nil {
			return 0, err
		}
		cg.emit(bytecode.OpLOADL, byte(r), byte(i))
		return r, nil

	case *StrLit:
		r, err := cg.push()
		if err != nil {
			return 0, err
		}
		i, err := cg.poolIndex(bytecode.Str(e.Value))
		if err != nil {
			return 0, err
		}
		cg.emit(bytecode.OpSTRING, byte(r), byte(i))
		return r, nil

	case *SymLit:
		r, err := cg.push()
		if err != nil {
			return 0, err
		}
		i, err := cg.symIndex(e.Name)
		if err != nil {
			return 0, err
		}
		cg.emit(bytecode.OpLOADSYM, byte(r), byte(i))
		return r, nil

	case *BoolLit:
		r, err := cg.push()
		if err != nil {
			return 0, err
		}
		if e.Value {
			cg.emit(bytecode.OpLOADT, byte(r))
		} else {
			cg.emit(bytecode.OpLOADF, byte(r))
		}
		return r, nil

	case *NilLit:
		r, err := cg.push()
		if err != nil {
			return 0, err
		}
		cg.emit(bytecode.OpLOADNIL, byte(r))
		return r, nil

	case *SelfRef:
		r, err := cg.push()
		if err != nil {
			return 0, err
		}
		cg.emit(bytecode.OpLOADSELF, byte(r))
		return r, nil

	case *LocalRef:
		if reg, ok := cg.locals[e.Name]; ok {
			r, err := cg.push()
			if err != nil {
				return 0, err
			}
			cg.emit(bytecode.OpMOVE, byte(r), byte(reg))
			return r, nil
		}
		// not a local: a bare name is a method call on self
		return cg.genCall(&CallExpr{Name: e.Name})

	case *ArrayLit:
		base := cg.sp
		for _, el := range e.Elements {
			if _, err := cg.genExpr(el); err != nil {
				return 0, err
			}
		}
		if len(e.Elements) == 0 {
			if _, err := cg.push(); err != nil {
				return 0, err
			}
		}
		cg.emit(bytecode.OpARRAY, byte(base), byte(len(e.Elements)))
		cg.sp = base + 1
		return base, nil

	case *BinaryExpr:
		return cg.genBinary(e)

	case *LogicalExpr:
		return cg.genLogical(e)

	case *UnaryExpr:
		if e.Op == NOT {
			r, err := cg.genExpr(e.Right)
			if err != nil {
				return 0, err
			}
			cg.emit(bytecode.OpNOT, byte(r))
			return r, nil
		}
		// unary minus on a non-literal: send :-@ to the value
		r, err := cg.genExpr(e.Right)
		if err != nil {
			return 0, err
		}
		i, err := cg.symIndex("-@")
		if err != nil {
			return 0, err
		}
		cg.emit(bytecode.OpSEND, byte(r), byte(i), 0)
		return r, nil

	case *CallExpr:
		return cg.genCall(e)
	}
	return 0, fmt.Errorf("%s: cannot generate code for %T", cg.irep.Filename, e)
}

// binaryOps maps operator tokens to their opcode. NOT_EQ is absent:
// it is EQ followed by NOT.
var binaryOps = map[TokenType]bytecode.Op{
	PLUS:       bytecode.OpADD,
	MINUS:      bytecode.OpSUB,
	STAR:       bytecode.OpMUL,
	SLASH:      bytecode.OpDIV,
	PERCENT:    bytecode.OpMOD,
	EQUALS:     bytecode.OpEQ,
	LESS:       bytecode.OpLT,
	LESS_EQ:    bytecode.OpLE,
	GREATER:    bytecode.OpGT,
	GREATER_EQ: bytecode.OpGE,
}

func (cg *CodeGen) genBinary(e *BinaryExpr) (int, error) {
	left, err := cg.genExpr(e.Left)
	if err != nil {
		return 0, err
	}
	if _, err := cg.genExpr(e.Right); err != nil {
		return 0, err
	}

	if e.Op == NOT_EQ {
		cg.emit(bytecode.OpEQ, byte(left))
		cg.emit(bytecode.OpNOT, byte(left))
	} else {
		op, ok := binaryOps[e.Op]
		if !ok {
			return 0, fmt.Errorf("%s:%d: unsupported operator %s", cg.irep.Filename, cg.line, e.Op)
		}
		cg.emit(op, byte(left))
	}
	cg.pop() // right operand
	return left, nil
}

func (cg *CodeGen) genLogical(e *LogicalExpr) (int, error) {
	r, err := cg.genExpr(e.Left)
	if err != nil {
		return 0, err
	}
	var pos int
	if e.Op == AND_LOGICAL {
		pos = cg.emitJump(bytecode.OpJMPNOT, byte(r))
	} else {
		pos = cg.emitJump(bytecode.OpJMPIF, byte(r))
	}
	cg.pop()
	if _, err := cg.genExpr(e.Right); err != nil {
		return 0, err
	}
	cg.patchJump(pos)
	return r, nil
}

func (cg *CodeGen) genCall(e *CallExpr) (int, error) {
	base := cg.sp

	if e.Recv != nil {
		if _, err := cg.genExpr(e.Recv); err != nil {
			return 0, err
		}
	} else {
		r, err := cg.push()
		if err != nil {
			return 0, err
		}
		cg.emit(bytecode.OpLOADSELF, byte(r))
	}

	if len(e.Args) > 255 {
		return 0, fmt.Errorf("%s:%d: too many call arguments", cg.irep.Filename, cg.line)
	}
	for _, arg := range e.Args {
		if _, err := cg.genExpr(arg); err != nil {
			return 0, err
		}
	}

	i, err := cg.symIndex(e.Name)
	if err != nil {
		return 0, err
	}
	cg.emit(bytecode.OpSEND, byte(base), byte(i), byte(len(e.Args)))
	cg.sp = base + 1
	return base, nil
}
