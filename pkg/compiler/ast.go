package compiler

import (
	"fmt"
	"strings"
)

//  Expression nodes

// Expr is implemented by every node that produces a value.
type Expr interface {
	exprNode()
	String() string
}

// IntLit is an integer constant.
//
//	x = 10
//	    ^^  IntLit{Value: 10}
type IntLit struct {
	Value int64
}

func (*IntLit) exprNode()        {}
func (l *IntLit) String() string { return fmt.Sprintf("%d", l.Value) }

// FloatLit is a floating point constant.
type FloatLit struct {
	Value float64
}

func (*FloatLit) exprNode()        {}
func (l *FloatLit) String() string { return fmt.Sprintf("%g", l.Value) }

// StrLit is a string constant "..."
type StrLit struct {
	Value string
}

func (*StrLit) exprNode()        {}
func (s *StrLit) String() string { return fmt.Sprintf("%q", s.Value) }

// SymLit is a symbol constant :name
type SymLit struct {
	Name string
}

func (*SymLit) exprNode()        {}
func (s *SymLit) String() string { return ":" + s.Name }

// BoolLit is true or false.
type BoolLit struct {
	Value bool
}

func (*BoolLit) exprNode()        {}
func (b *BoolLit) String() string { return fmt.Sprintf("%t", b.Value) }

// NilLit is the nil constant.
type NilLit struct{}

func (*NilLit) exprNode()        {}
func (*NilLit) String() string { return "nil" }

// SelfRef is an explicit self.
type SelfRef struct{}

func (*SelfRef) exprNode()        {}
func (*SelfRef) String() string { return "self" }

// LocalRef is a read of a named local variable.
//
//	return x
//	       ^  LocalRef{Name: "x"}
type LocalRef struct {
	Name string
}

func (*LocalRef) exprNode()        {}
func (v *LocalRef) String() string { return v.Name }

// ArrayLit represents [a, b, c].
type ArrayLit struct {
	Elements []Expr
}

func (*ArrayLit) exprNode() {}
func (a *ArrayLit) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// BinaryExpr represents a binary operation: Left Op Right.
type BinaryExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// LogicalExpr represents Left && Right or Left || Right. Separate
// from BinaryExpr because it short-circuits in code generation.
type LogicalExpr struct {
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*LogicalExpr) exprNode() {}
func (l *LogicalExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Left, l.Op, l.Right)
}

// UnaryExpr represents !x or -x.
type UnaryExpr struct {
	Op    TokenType
	Right Expr
}

func (*UnaryExpr) exprNode()        {}
func (u *UnaryExpr) String() string { return fmt.Sprintf("(%s %s)", u.Op, u.Right) }

// CallExpr is a method call. Recv is nil for calls on self
// (including paren-less command calls like `puts x`).
type CallExpr struct {
	Recv Expr // nil = self
	Name string
	Args []Expr
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	recv := ""
	if c.Recv != nil {
		recv = c.Recv.String() + "."
	}
	return fmt.Sprintf("%s%s(%s)", recv, c.Name, strings.Join(parts, ", "))
}

//  Statement nodes

// Stmt is implemented by every statement-level node.
type Stmt interface {
	stmtNode()
	String() string
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Line int
	Expr Expr
}

func (*ExprStmt) stmtNode()        {}
func (s *ExprStmt) String() string { return s.Expr.String() }

// AssignStmt is `name = value` or an operator assignment like `name += value`.
// Op is ASSIGN for plain assignment, else the underlying binary operator.
type AssignStmt struct {
	Line  int
	Name  string
	Op    TokenType
	Value Expr
}

func (*AssignStmt) stmtNode() {}
func (s *AssignStmt) String() string {
	if s.Op == ASSIGN {
		return fmt.Sprintf("%s = %s", s.Name, s.Value)
	}
	return fmt.Sprintf("%s %s= %s", s.Name, s.Op, s.Value)
}

// ElsifClause is one `elsif cond` arm of an IfStmt.
type ElsifClause struct {
	Cond Expr
	Body []Stmt
}

// IfStmt is if/elsif/else/end. `unless` parses to an IfStmt with a
// negated condition.
type IfStmt struct {
	Line   int
	Cond   Expr
	Then   []Stmt
	Elsifs []ElsifClause
	Else   []Stmt
}

func (*IfStmt) stmtNode()        {}
func (s *IfStmt) String() string { return fmt.Sprintf("if %s ...", s.Cond) }

// WhileStmt is while/end. `until` parses to a WhileStmt with a
// negated condition.
type WhileStmt struct {
	Line int
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode()        {}
func (s *WhileStmt) String() string { return fmt.Sprintf("while %s ...", s.Cond) }

// DefStmt defines a method on self.
type DefStmt struct {
	Line   int
	Name   string
	Params []string
	Body   []Stmt
}

func (*DefStmt) stmtNode() {}
func (s *DefStmt) String() string {
	return fmt.Sprintf("def %s(%s) ...", s.Name, strings.Join(s.Params, ", "))
}

// ReturnStmt returns Value, or nil when Value is absent.
type ReturnStmt struct {
	Line  int
	Value Expr // may be nil
}

func (*ReturnStmt) stmtNode() {}
func (s *ReturnStmt) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// BreakStmt exits the innermost loop.
type BreakStmt struct {
	Line int
}

func (*BreakStmt) stmtNode()        {}
func (*BreakStmt) String() string { return "break" }

// NextStmt jumps to the next iteration of the innermost loop.
type NextStmt struct {
	Line int
}

func (*NextStmt) stmtNode()        {}
func (*NextStmt) String() string { return "next" }
