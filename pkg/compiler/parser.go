package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar (mruby statement subset):
//
//	program    = stmts EOF
//	stmts      = (statement? (NEWLINE | ";"))*
//	statement  = defStmt | ifStmt | whileStmt | returnStmt
//	           | "break" | "next" | assignment | exprStmt
//	defStmt    = "def" IDENTIFIER ("(" params ")")? sep stmts "end"
//	ifStmt     = ("if" | "unless") expression thenSep stmts
//	             ("elsif" expression thenSep stmts)* ("else" stmts)? "end"
//	whileStmt  = ("while" | "until") expression doSep stmts "end"
//	returnStmt = "return" expression?
//	assignment = IDENTIFIER ("=" | "+=" | "-=" | "*=" | "/=") expression
//	expression = logical_or
//	logical_or = logical_and ("||" logical_and)*
//	logical_and = equality ("&&" equality)*
//	equality   = relational (("=="|"!=") relational)*
//	relational = additive (("<"|"<="|">"|">=") additive)*
//	additive   = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary      = ("!" | "-") unary | postfix
//	postfix    = primary ("." IDENTIFIER callArgs?)*
//	primary    = literal | IDENTIFIER callArgs? | command | "(" expression ")"
//	command    = IDENTIFIER expression ("," expression)*   (paren-less call)
type Parser struct {
	tokens      []Token
	pos         int
	sourceLines []string
}

func NewParser(tokens []Token, rawSource string) *Parser {
	return &Parser{tokens: tokens, sourceLines: strings.Split(rawSource, "\n")}
}

// Parse is the convenience entry point: lex-independent, consumes the
// token slice and returns the statement list for the whole program.
func Parse(tokens []Token, rawSource string) ([]Stmt, error) {
	p := NewParser(tokens, rawSource)
	stmts, err := p.stmts(EOF)
	if err != nil {
		return nil, err
	}
	if p.peek().Type != EOF {
		return nil, p.fmtError(p.peek(), "unexpected %s", p.peek().Type)
	}
	return stmts, nil
}

// fmtError wraps an error message with the source line where the token appears.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	lineIdx := tok.Line - 1 // Lines are 1-based

	snippet := "<source unavailable>"
	if lineIdx >= 0 && lineIdx < len(p.sourceLines) {
		snippet = strings.TrimSpace(p.sourceLines[lineIdx])
	}

	return fmt.Errorf("line %d: %s\n  |> %s", tok.Line, msg, snippet)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// peek2 returns the token after the current one.
func (p *Parser) peek2() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) match(tt TokenType) bool {
	if p.peek().Type == tt {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s", tt, tok.Type)
	}
	return p.advance(), nil
}

// skipSeps consumes any run of statement separators.
func (p *Parser) skipSeps() {
	for p.peek().Type == NEWLINE || p.peek().Type == SEMI {
		p.advance()
	}
}

// terminators for statement lists inside block constructs.
func isBlockEnd(tt TokenType) bool {
	return tt == END || tt == ELSE || tt == ELSIF || tt == EOF
}

// stmts parses a statement list until the given terminator class.
func (p *Parser) stmts(until TokenType) ([]Stmt, error) {
	var out []Stmt
	for {
		p.skipSeps()
		tt := p.peek().Type
		if tt == until || isBlockEnd(tt) {
			return out, nil
		}
		s, err := p.statement()
		if err != nil {
			return nil, err
		}
		out = append(out, s)

		// a statement must be followed by a separator or a block end
		tt = p.peek().Type
		if tt != NEWLINE && tt != SEMI && tt != until && !isBlockEnd(tt) {
			return nil, p.fmtError(p.peek(), "unexpected %s after statement", tt)
		}
	}
}

func (p *Parser) statement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case DEF:
		return p.defStmt()
	case IF, UNLESS:
		return p.ifStmt()
	case WHILE, UNTIL:
		return p.whileStmt()
	case RETURN:
		p.advance()
		stmt := &ReturnStmt{Line: tok.Line}
		if !isSepOrEnd(p.peek().Type) {
			val, err := p.expression()
			if err != nil {
				return nil, err
			}
			stmt.Value = val
		}
		return stmt, nil
	case BREAK:
		p.advance()
		return &BreakStmt{Line: tok.Line}, nil
	case NEXT:
		p.advance()
		return &NextStmt{Line: tok.Line}, nil
	case IDENTIFIER:
		if isAssignOp(p.peek2().Type) {
			return p.assignment()
		}
	}

	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	return &ExprStmt{Line: tok.Line, Expr: expr}, nil
}

func isSepOrEnd(tt TokenType) bool {
	return tt == NEWLINE || tt == SEMI || isBlockEnd(tt)
}

func isAssignOp(tt TokenType) bool {
	switch tt {
	case ASSIGN, PLUS_ASSIGN, MINUS_ASSIGN, STAR_ASSIGN, SLASH_ASSIGN:
		return true
	}
	return false
}

func (p *Parser) assignment() (Stmt, error) {
	name := p.advance()
	op := p.advance()
	val, err := p.expression()
	if err != nil {
		return nil, err
	}

	binOp := ASSIGN
	switch op.Type {
	case PLUS_ASSIGN:
		binOp = PLUS
	case MINUS_ASSIGN:
		binOp = MINUS
	case STAR_ASSIGN:
		binOp = STAR
	case SLASH_ASSIGN:
		binOp = SLASH
	}
	return &AssignStmt{Line: name.Line, Name: name.Lexeme, Op: binOp, Value: val}, nil
}

func (p *Parser) defStmt() (Stmt, error) {
	tok := p.advance() // def
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}

	var params []string
	if p.match(LPAREN) {
		if p.peek().Type != RPAREN {
			for {
				param, err := p.expect(IDENTIFIER)
				if err != nil {
					return nil, err
				}
				params = append(params, param.Lexeme)
				if !p.match(COMMA) {
					break
				}
			}
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}

	body, err := p.stmts(END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(END); err != nil {
		return nil, err
	}
	return &DefStmt{Line: tok.Line, Name: name.Lexeme, Params: params, Body: body}, nil
}

func (p *Parser) ifStmt() (Stmt, error) {
	tok := p.advance() // if / unless
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if tok.Type == UNLESS {
		cond = &UnaryExpr{Op: NOT, Right: cond}
	}
	p.match(THEN)

	then, err := p.stmts(END)
	if err != nil {
		return nil, err
	}

	stmt := &IfStmt{Line: tok.Line, Cond: cond, Then: then}
	for p.peek().Type == ELSIF {
		if tok.Type == UNLESS {
			return nil, p.fmtError(p.peek(), "elsif is not allowed after unless")
		}
		p.advance()
		econd, err := p.expression()
		if err != nil {
			return nil, err
		}
		p.match(THEN)
		ebody, err := p.stmts(END)
		if err != nil {
			return nil, err
		}
		stmt.Elsifs = append(stmt.Elsifs, ElsifClause{Cond: econd, Body: ebody})
	}
	if p.match(ELSE) {
		stmt.Else, err = p.stmts(END)
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(END); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) whileStmt() (Stmt, error) {
	tok := p.advance() // while / until
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if tok.Type == UNTIL {
		cond = &UnaryExpr{Op: NOT, Right: cond}
	}
	p.match(DO)

	body, err := p.stmts(END)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(END); err != nil {
		return nil, err
	}
	return &WhileStmt{Line: tok.Line, Cond: cond, Body: body}, nil
}

//  Expression precedence ladder

func (p *Parser) expression() (Expr, error) {
	return p.logicalOr()
}

func (p *Parser) logicalOr() (Expr, error) {
	left, err := p.logicalAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == OR_LOGICAL {
		p.advance()
		right, err := p.logicalAnd()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: OR_LOGICAL, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) logicalAnd() (Expr, error) {
	left, err := p.equality()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == AND_LOGICAL {
		p.advance()
		right, err := p.equality()
		if err != nil {
			return nil, err
		}
		left = &LogicalExpr{Op: AND_LOGICAL, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) equality() (Expr, error) {
	left, err := p.relational()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == EQUALS || p.peek().Type == NOT_EQ {
		op := p.advance()
		right, err := p.relational()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) relational() (Expr, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	for {
		tt := p.peek().Type
		if tt != LESS && tt != LESS_EQ && tt != GREATER && tt != GREATER_EQ {
			return left, nil
		}
		op := p.advance()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, Left: left, Right: right}
	}
}

func (p *Parser) additive() (Expr, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == PLUS || p.peek().Type == MINUS {
		op := p.advance()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) multiplicative() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == STAR || p.peek().Type == SLASH || p.peek().Type == PERCENT {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op.Type, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) unary() (Expr, error) {
	tt := p.peek().Type
	if tt == NOT || tt == MINUS {
		op := p.advance()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		// fold negated numeric literals so -5 stays a constant
		if op.Type == MINUS {
			switch lit := right.(type) {
			case *IntLit:
				return &IntLit{Value: -lit.Value}, nil
			case *FloatLit:
				return &FloatLit{Value: -lit.Value}, nil
			}
		}
		return &UnaryExpr{Op: op.Type, Right: right}, nil
	}
	return p.postfix()
}

func (p *Parser) postfix() (Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.match(DOT) {
		name, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		call := &CallExpr{Recv: expr, Name: name.Lexeme}
		if p.match(LPAREN) {
			call.Args, err = p.callArgs()
			if err != nil {
				return nil, err
			}
		}
		expr = call
	}
	return expr, nil
}

// callArgs parses a parenthesised argument list; the opening paren
// has already been consumed.
func (p *Parser) callArgs() ([]Expr, error) {
	var args []Expr
	if p.peek().Type != RPAREN {
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(COMMA) {
				break
			}
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) primary() (Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		v, err := strconv.ParseInt(strings.ReplaceAll(tok.Lexeme, "_", ""), 0, 64)
		if err != nil {
			return nil, p.fmtError(tok, "invalid integer literal %q", tok.Lexeme)
		}
		return &IntLit{Value: v}, nil
	case FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Lexeme, "_", ""), 64)
		if err != nil {
			return nil, p.fmtError(tok, "invalid float literal %q", tok.Lexeme)
		}
		return &FloatLit{Value: v}, nil
	case STRING:
		p.advance()
		return &StrLit{Value: tok.Lexeme}, nil
	case SYMBOL:
		p.advance()
		return &SymLit{Name: tok.Lexeme}, nil
	case TRUE:
		p.advance()
		return &BoolLit{Value: true}, nil
	case FALSE:
		p.advance()
		return &BoolLit{Value: false}, nil
	case NIL:
		p.advance()
		return &NilLit{}, nil
	case SELF:
		p.advance()
		return &SelfRef{}, nil
	case LBRACKET:
		p.advance()
		lit := &ArrayLit{}
		p.skipSeps()
		if p.peek().Type != RBRACKET {
			for {
				el, err := p.expression()
				if err != nil {
					return nil, err
				}
				lit.Elements = append(lit.Elements, el)
				p.skipSeps()
				if !p.match(COMMA) {
					break
				}
				p.skipSeps()
			}
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		return lit, nil
	case LPAREN:
		p.advance()
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	case IDENTIFIER, CONSTANT:
		return p.identExpr()
	}
	return nil, p.fmtError(tok, "unexpected %s", tok.Type)
}

// identExpr parses a bare identifier: a local variable reference, a
// parenthesised call, or a paren-less command call (`puts x, y`).
// Whether a bare name with no arguments is a variable or a self call
// is decided later by the code generator, which knows the locals.
func (p *Parser) identExpr() (Expr, error) {
	name := p.advance()

	if p.peek().Type == LPAREN {
		p.advance()
		args, err := p.callArgs()
		if err != nil {
			return nil, err
		}
		return &CallExpr{Name: name.Lexeme, Args: args}, nil
	}

	// command call like `puts x`: an argument expression starts
	// right after the name on the same line
	if startsExpression(p.peek().Type) {
		var args []Expr
		for {
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(COMMA) {
				break
			}
		}
		return &CallExpr{Name: name.Lexeme, Args: args}, nil
	}

	return &LocalRef{Name: name.Lexeme}, nil
}

// startsExpression reports whether a token can begin a command-call
// argument. Operators are deliberately excluded: `a - 1` is a binary
// expression, not a call.
func startsExpression(tt TokenType) bool {
	switch tt {
	case INTEGER, FLOAT, STRING, SYMBOL, TRUE, FALSE, NIL, IDENTIFIER, CONSTANT, LBRACKET:
		return true
	}
	return false
}
