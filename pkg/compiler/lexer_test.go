package compiler

import (
	"strings"
	"testing"
)

func lexTypes(t *testing.T, src string) []TokenType {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func expectTypes(t *testing.T, got []TokenType, want []TokenType) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(got), got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestLexer_Assignment(t *testing.T) {
	got := lexTypes(t, "x = 10")
	expectTypes(t, got, []TokenType{IDENTIFIER, ASSIGN, INTEGER, EOF})
}

func TestLexer_Keywords(t *testing.T) {
	got := lexTypes(t, "def if elsif else unless while until end true false nil self return break next then do")
	expectTypes(t, got, []TokenType{
		DEF, IF, ELSIF, ELSE, UNLESS, WHILE, UNTIL, END, TRUE, FALSE,
		NIL, SELF, RETURN, BREAK, NEXT, THEN, DO, EOF,
	})
}

func TestLexer_Operators(t *testing.T) {
	got := lexTypes(t, "a == b != c <= d >= e && f || !g")
	expectTypes(t, got, []TokenType{
		IDENTIFIER, EQUALS, IDENTIFIER, NOT_EQ, IDENTIFIER, LESS_EQ,
		IDENTIFIER, GREATER_EQ, IDENTIFIER, AND_LOGICAL, IDENTIFIER,
		OR_LOGICAL, NOT, IDENTIFIER, EOF,
	})
}

func TestLexer_OpAssign(t *testing.T) {
	got := lexTypes(t, "a += 1; a -= 2; a *= 3; a /= 4")
	expectTypes(t, got, []TokenType{
		IDENTIFIER, PLUS_ASSIGN, INTEGER, SEMI,
		IDENTIFIER, MINUS_ASSIGN, INTEGER, SEMI,
		IDENTIFIER, STAR_ASSIGN, INTEGER, SEMI,
		IDENTIFIER, SLASH_ASSIGN, INTEGER, EOF,
	})
}

func TestLexer_NewlinesCollapse(t *testing.T) {
	got := lexTypes(t, "a = 1\n\n\n\nb = 2\n")
	expectTypes(t, got, []TokenType{
		IDENTIFIER, ASSIGN, INTEGER, NEWLINE,
		IDENTIFIER, ASSIGN, INTEGER, NEWLINE, EOF,
	})
}

func TestLexer_LeadingNewlinesDropped(t *testing.T) {
	got := lexTypes(t, "\n\nx = 1")
	expectTypes(t, got, []TokenType{IDENTIFIER, ASSIGN, INTEGER, EOF})
}

func TestLexer_Comments(t *testing.T) {
	got := lexTypes(t, "x = 1 # trailing comment\n# full line\ny = 2")
	expectTypes(t, got, []TokenType{
		IDENTIFIER, ASSIGN, INTEGER, NEWLINE,
		IDENTIFIER, ASSIGN, INTEGER, EOF,
	})
}

func TestLexer_StringEscapes(t *testing.T) {
	tokens, err := Lex(`s = "a\nb\t\"c\"\\"`)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if tokens[2].Type != STRING {
		t.Fatalf("expected STRING, got %s", tokens[2].Type)
	}
	want := "a\nb\t\"c\"\\"
	if tokens[2].Lexeme != want {
		t.Errorf("string lexeme = %q, want %q", tokens[2].Lexeme, want)
	}
}

func TestLexer_UnterminatedString(t *testing.T) {
	_, err := Lex(`x = "oops`)
	if err == nil || !strings.Contains(err.Error(), "unterminated string") {
		t.Errorf("expected unterminated string error, got %v", err)
	}
}

func TestLexer_UnknownEscape(t *testing.T) {
	_, err := Lex(`x = "\q"`)
	if err == nil || !strings.Contains(err.Error(), "unknown string escape") {
		t.Errorf("expected escape error, got %v", err)
	}
}

func TestLexer_Numbers(t *testing.T) {
	tokens, err := Lex("a = 42\nb = 3.14\nc = 0xff\nd = 1_000_000")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	var lits []Token
	for _, tok := range tokens {
		if tok.Type == INTEGER || tok.Type == FLOAT {
			lits = append(lits, tok)
		}
	}
	if len(lits) != 4 {
		t.Fatalf("expected 4 numeric literals, got %d", len(lits))
	}
	if lits[0].Type != INTEGER || lits[0].Lexeme != "42" {
		t.Errorf("literal 0 = %v", lits[0])
	}
	if lits[1].Type != FLOAT || lits[1].Lexeme != "3.14" {
		t.Errorf("literal 1 = %v", lits[1])
	}
	if lits[2].Type != INTEGER || lits[2].Lexeme != "0xff" {
		t.Errorf("literal 2 = %v", lits[2])
	}
	if lits[3].Type != INTEGER || lits[3].Lexeme != "1_000_000" {
		t.Errorf("literal 3 = %v", lits[3])
	}
}

func TestLexer_MalformedHex(t *testing.T) {
	_, err := Lex("x = 0x")
	if err == nil || !strings.Contains(err.Error(), "hexadecimal") {
		t.Errorf("expected hex error, got %v", err)
	}
}

func TestLexer_Symbols(t *testing.T) {
	tokens, err := Lex("s = :name")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if tokens[2].Type != SYMBOL || tokens[2].Lexeme != "name" {
		t.Errorf("symbol token = %v", tokens[2])
	}
}

func TestLexer_MethodNameSuffix(t *testing.T) {
	tokens, err := Lex("x.empty?")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if tokens[2].Type != IDENTIFIER || tokens[2].Lexeme != "empty?" {
		t.Errorf("expected identifier empty?, got %v", tokens[2])
	}
}

func TestLexer_Constant(t *testing.T) {
	tokens, err := Lex("Foo")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	if tokens[0].Type != CONSTANT {
		t.Errorf("expected CONSTANT, got %s", tokens[0].Type)
	}
}

func TestLexer_LineNumbers(t *testing.T) {
	tokens, err := Lex("a = 1\nb = 2\n\nc = 3")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	lineOf := map[string]int{}
	for _, tok := range tokens {
		if tok.Type == IDENTIFIER {
			lineOf[tok.Lexeme] = tok.Line
		}
	}
	if lineOf["a"] != 1 || lineOf["b"] != 2 || lineOf["c"] != 4 {
		t.Errorf("line numbers wrong: %v", lineOf)
	}
}

func TestLexer_UnexpectedCharacter(t *testing.T) {
	_, err := Lex("x = @y")
	if err == nil || !strings.Contains(err.Error(), "unexpected character") {
		t.Errorf("expected lex error, got %v", err)
	}
}
