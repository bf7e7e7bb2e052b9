package mrb

import (
	"strings"
	"testing"
)

func TestIntern_Dedup(t *testing.T) {
	s := New()
	defer s.Close()

	a := s.Intern("puts")
	b := s.Intern("length")
	c := s.Intern("puts")

	if a != c {
		t.Errorf("interning the same name twice gave %d and %d", a, c)
	}
	if a == b {
		t.Errorf("distinct names share symbol %d", a)
	}
	if got := s.SymCount(); got != 2 {
		t.Errorf("expected 2 interned symbols, got %d", got)
	}
}

func TestSymName(t *testing.T) {
	s := New()
	defer s.Close()

	sym := s.Intern("each")
	if got := s.SymName(sym); got != "each" {
		t.Errorf("SymName = %q, want %q", got, "each")
	}
	if got := s.SymName(Sym(999)); got != "" {
		t.Errorf("SymName for unknown handle = %q, want empty", got)
	}
}

func TestClose_Twice(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if !s.Closed() {
		t.Fatal("Closed() false after Close")
	}
	if err := s.Close(); err != ErrClosed {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
}

func TestVersionBanners(t *testing.T) {
	var sb strings.Builder
	ShowVersion(&sb)
	if !strings.Contains(sb.String(), Version) {
		t.Errorf("version banner %q does not mention %q", sb.String(), Version)
	}

	sb.Reset()
	ShowCopyright(&sb)
	if !strings.Contains(sb.String(), "Copyright") {
		t.Errorf("copyright banner %q looks wrong", sb.String())
	}
}
