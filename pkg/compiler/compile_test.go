package compiler

import (
	"strings"
	"testing"

	"github.com/kurodash/mruby/pkg/mrb"
)

func TestCompile_Program(t *testing.T) {
	state := mrb.New()
	defer state.Close()

	src := `
def fib(n)
  if n < 2
    return n
  end
  fib(n - 1) + fib(n - 2)
end

puts fib(10)
`
	irep, err := Compile(state, src, &Context{Filename: "fib.rb", NoExec: true})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(irep.Reps) != 1 {
		t.Errorf("expected 1 method irep, got %d", len(irep.Reps))
	}
	if irep.Filename != "fib.rb" {
		t.Errorf("filename = %q", irep.Filename)
	}
	// compilation interned the referenced method names engine-wide
	if state.SymName(state.Intern("fib")) != "fib" || state.SymCount() < 2 {
		t.Errorf("symbols not interned: count = %d", state.SymCount())
	}
}

func TestCompile_SyntaxErrorCarriesFilename(t *testing.T) {
	state := mrb.New()
	defer state.Close()

	_, err := Compile(state, "if\n", &Context{Filename: "broken.rb"})
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !strings.Contains(err.Error(), "broken.rb") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestCompile_LexErrorCarriesFilename(t *testing.T) {
	state := mrb.New()
	defer state.Close()

	_, err := Compile(state, `x = "unterminated`, &Context{Filename: "bad.rb"})
	if err == nil || !strings.Contains(err.Error(), "bad.rb") {
		t.Errorf("error = %v", err)
	}
}

func TestCompile_ClosedState(t *testing.T) {
	state := mrb.New()
	state.Close()

	_, err := Compile(state, "x = 1", nil)
	if err != mrb.ErrClosed {
		t.Errorf("error = %v, want ErrClosed", err)
	}
}

func TestCompile_NilContext(t *testing.T) {
	state := mrb.New()
	defer state.Close()

	irep, err := Compile(state, "x = 1", nil)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if irep.Filename != "-" {
		t.Errorf("default filename = %q, want -", irep.Filename)
	}
}

func TestCompile_EmptySource(t *testing.T) {
	state := mrb.New()
	defer state.Close()

	irep, err := Compile(state, "", &Context{Filename: "empty.rb"})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if len(irep.ISeq) == 0 {
		t.Error("even an empty program emits STOP")
	}
}
