package compiler

import (
	"fmt"
	"unicode"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"def":    DEF,
	"end":    END,
	"if":     IF,
	"elsif":  ELSIF,
	"else":   ELSE,
	"unless": UNLESS,
	"while":  WHILE,
	"until":  UNTIL,
	"then":   THEN,
	"do":     DO,
	"return": RETURN,
	"break":  BREAK,
	"next":   NEXT,
	"true":   TRUE,
	"false":  FALSE,
	"nil":    NIL,
	"self":   SELF,
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), pos: 0, line: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

// skipBlanks discards spaces and tabs. Newlines are significant in
// Ruby source (statement separators) and are left for the scanner.
func (l *Lexer) skipBlanks() {
	for {
		r := l.peek()
		if r == ' ' || r == '\t' || r == '\r' {
			l.advance()
			continue
		}
		if r == '#' {
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		return
	}
}

// scanIdent collects a full identifier, constant or keyword token.
// The first character (letter or '_') must still be at l.peek().
func (l *Lexer) scanIdent() Token {
	line := l.line
	start := l.pos
	for l.pos < len(l.src) {
		r := l.peek()
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		l.advance()
	}
	// Ruby method names may end in ? or !
	if r := l.peek(); r == '?' || r == '!' {
		if l.peek2() != '=' { // don't swallow the != in "x !=" or "empty?="
			l.advance()
		}
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	} else if unicode.IsUpper([]rune(lexeme)[0]) {
		tt = CONSTANT
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line}
}

// scanNumber collects an integer or float literal. Supports decimal,
// 0x hex and underscore digit separators.
func (l *Lexer) scanNumber() (Token, error) {
	line := l.line
	start := l.pos
	isFloat := false

	if l.peek() == '0' && (l.peek2() == 'x' || l.peek2() == 'X') {
		l.advance()
		l.advance()
		digits := 0
		for isHexDigit(l.peek()) || l.peek() == '_' {
			if l.peek() != '_' {
				digits++
			}
			l.advance()
		}
		if digits == 0 {
			return Token{}, fmt.Errorf("line %d: malformed hexadecimal literal", line)
		}
	} else {
		for unicode.IsDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		if l.peek() == '.' && unicode.IsDigit(l.peek2()) {
			isFloat = true
			l.advance() // .
			for unicode.IsDigit(l.peek()) || l.peek() == '_' {
				l.advance()
			}
		}
	}

	tt := INTEGER
	if isFloat {
		tt = FLOAT
	}
	return Token{Type: tt, Lexeme: string(l.src[start:l.pos]), Line: line}, nil
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// scanString collects a double-quoted string literal, resolving
// escape sequences. The opening quote must still be at l.peek().
func (l *Lexer) scanString() (Token, error) {
	line := l.line
	l.advance() // opening "
	var out []rune
	for {
		if l.pos >= len(l.src) {
			return Token{}, fmt.Errorf("line %d: unterminated string literal", line)
		}
		r := l.advance()
		if r == '"' {
			break
		}
		if r == '\\' {
			esc := l.advance()
			switch esc {
			case 'n':
				r = '\n'
			case 't':
				r = '\t'
			case '0':
				r = 0
			case '\\', '"':
				r = esc
			default:
				return Token{}, fmt.Errorf("line %d: unknown string escape \\%c", line, esc)
			}
		}
		out = append(out, r)
	}
	return Token{Type: STRING, Lexeme: string(out), Line: line}, nil
}

// scanSymbol collects a :name literal. The ':' must still be at l.peek().
func (l *Lexer) scanSymbol() (Token, error) {
	line := l.line
	l.advance() // :
	r := l.peek()
	if !unicode.IsLetter(r) && r != '_' {
		return Token{}, fmt.Errorf("line %d: malformed symbol literal", line)
	}
	tok := l.scanIdent()
	return Token{Type: SYMBOL, Lexeme: tok.Lexeme, Line: line}, nil
}

// Lex scans src into a flat token slice terminated by EOF.
// Runs of blank lines collapse into a single NEWLINE token.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token

	emit := func(t Token) {
		if t.Type == NEWLINE && (len(tokens) == 0 || tokens[len(tokens)-1].Type == NEWLINE) {
			return
		}
		tokens = append(tokens, t)
	}

	for {
		l.skipBlanks()
		r := l.peek()
		if r == 0 {
			break
		}

		line := l.line
		switch {
		case r == '\n':
			l.advance()
			emit(Token{Type: NEWLINE, Lexeme: "\\n", Line: line})
		case unicode.IsLetter(r) || r == '_':
			emit(l.scanIdent())
		case unicode.IsDigit(r):
			tok, err := l.scanNumber()
			if err != nil {
				return nil, err
			}
			emit(tok)
		case r == '"':
			tok, err := l.scanString()
			if err != nil {
				return nil, err
			}
			emit(tok)
		case r == ':':
			tok, err := l.scanSymbol()
			if err != nil {
				return nil, err
			}
			emit(tok)
		default:
			tok, err := l.scanOperator()
			if err != nil {
				return nil, err
			}
			emit(tok)
		}
	}

	emit(Token{Type: EOF, Lexeme: "", Line: l.line})
	return tokens, nil
}

// scanOperator matches punctuation and operator tokens, longest first.
func (l *Lexer) scanOperator() (Token, error) {
	line := l.line
	r := l.advance()

	two := func(next rune, tt2 TokenType, tt1 TokenType) Token {
		if l.peek() == next {
			l.advance()
			return Token{Type: tt2, Lexeme: string(r) + string(next), Line: line}
		}
		return Token{Type: tt1, Lexeme: string(r), Line: line}
	}

	switch r {
	case '(':
		return Token{Type: LPAREN, Lexeme: "(", Line: line}, nil
	case ')':
		return Token{Type: RPAREN, Lexeme: ")", Line: line}, nil
	case '[':
		return Token{Type: LBRACKET, Lexeme: "[", Line: line}, nil
	case ']':
		return Token{Type: RBRACKET, Lexeme: "]", Line: line}, nil
	case ',':
		return Token{Type: COMMA, Lexeme: ",", Line: line}, nil
	case '.':
		return Token{Type: DOT, Lexeme: ".", Line: line}, nil
	case ';':
		return Token{Type: SEMI, Lexeme: ";", Line: line}, nil
	case '+':
		return two('=', PLUS_ASSIGN, PLUS), nil
	case '-':
		return two('=', MINUS_ASSIGN, MINUS), nil
	case '*':
		return two('=', STAR_ASSIGN, STAR), nil
	case '/':
		return two('=', SLASH_ASSIGN, SLASH), nil
	case '%':
		return Token{Type: PERCENT, Lexeme: "%", Line: line}, nil
	case '=':
		return two('=', EQUALS, ASSIGN), nil
	case '!':
		return two('=', NOT_EQ, NOT), nil
	case '<':
		return two('=', LESS_EQ, LESS), nil
	case '>':
		return two('=', GREATER_EQ, GREATER), nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return Token{Type: AND_LOGICAL, Lexeme: "&&", Line: line}, nil
		}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return Token{Type: OR_LOGICAL, Lexeme: "||", Line: line}, nil
		}
	}
	return Token{}, fmt.Errorf("line %d: unexpected character %q", line, r)
}
