package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	NEWLINE // statement separator (\n); consecutive runs are collapsed

	// Literals
	IDENTIFIER // local variable / method name
	CONSTANT   // capitalized identifier
	INTEGER    // integer literal, decimal or 0x hex
	FLOAT      // floating point literal
	STRING     // string literal "..."
	SYMBOL     // :name

	// Keywords
	DEF    // "def"
	END    // "end"
	IF     // "if"
	ELSIF  // "elsif"
	ELSE   // "else"
	UNLESS // "unless"
	WHILE  // "while"
	UNTIL  // "until"
	THEN   // "then"
	DO     // "do"
	RETURN // "return"
	BREAK  // "break"
	NEXT   // "next"
	TRUE   // "true"
	FALSE  // "false"
	NIL    // "nil"
	SELF   // "self"

	// Delimiters
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	COMMA    // ,
	DOT      // .
	SEMI     // ; (same role as NEWLINE)

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	NOT     // !

	ASSIGN       // =
	PLUS_ASSIGN  // +=
	MINUS_ASSIGN // -=
	STAR_ASSIGN  // *=
	SLASH_ASSIGN // /=

	EQUALS      // ==
	NOT_EQ      // !=
	LESS        // <
	LESS_EQ     // <=
	GREATER     // >
	GREATER_EQ  // >=
	AND_LOGICAL // &&
	OR_LOGICAL  // ||
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:          "EOF",
	NEWLINE:      "NEWLINE",
	IDENTIFIER:   "IDENTIFIER",
	CONSTANT:     "CONSTANT",
	INTEGER:      "INTEGER",
	FLOAT:        "FLOAT",
	STRING:       "STRING",
	SYMBOL:       "SYMBOL",
	DEF:          "DEF",
	END:          "END",
	IF:           "IF",
	ELSIF:        "ELSIF",
	ELSE:         "ELSE",
	UNLESS:       "UNLESS",
	WHILE:        "WHILE",
	UNTIL:        "UNTIL",
	THEN:         "THEN",
	DO:           "DO",
	RETURN:       "RETURN",
	BREAK:        "BREAK",
	NEXT:         "NEXT",
	TRUE:         "TRUE",
	FALSE:        "FALSE",
	NIL:          "NIL",
	SELF:         "SELF",
	LPAREN:       "LPAREN",
	RPAREN:       "RPAREN",
	LBRACKET:     "LBRACKET",
	RBRACKET:     "RBRACKET",
	COMMA:        "COMMA",
	DOT:          "DOT",
	SEMI:         "SEMI",
	PLUS:         "PLUS",
	MINUS:        "MINUS",
	STAR:         "STAR",
	SLASH:        "SLASH",
	PERCENT:      "PERCENT",
	NOT:          "NOT",
	ASSIGN:       "ASSIGN",
	PLUS_ASSIGN:  "PLUS_ASSIGN",
	MINUS_ASSIGN: "MINUS_ASSIGN",
	STAR_ASSIGN:  "STAR_ASSIGN",
	SLASH_ASSIGN: "SLASH_ASSIGN",
	EQUALS:       "EQUALS",
	NOT_EQ:       "NOT_EQ",
	LESS:         "LESS",
	LESS_EQ:      "LESS_EQ",
	GREATER:      "GREATER",
	GREATER_EQ:   "GREATER_EQ",
	AND_LOGICAL:  "AND_LOGICAL",
	OR_LOGICAL:   "OR_LOGICAL",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text that was matched
	Line   int    // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  line %d", t.Type, t.Lexeme, t.Line)
}
