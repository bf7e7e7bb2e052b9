// Package mrb holds the process-wide engine state shared by the
// compiler and the bytecode serializers. Callers create exactly one
// State per process, thread it explicitly into every call, and close
// it on every exit path.
package mrb

import "errors"

var ErrClosed = errors.New("mrb: state already closed")

// Sym is an interned symbol handle, valid for the lifetime of the
// State that produced it.
type Sym uint32

// State is the engine context. It is not safe for concurrent use;
// the toolchain is strictly single-threaded.
type State struct {
	syms   []string
	symMap map[string]Sym
	closed bool
}

func New() *State {
	return &State{symMap: make(map[string]Sym)}
}

// Intern returns the symbol handle for name, creating it on first use.
func (s *State) Intern(name string) Sym {
	if sym, ok := s.symMap[name]; ok {
		return sym
	}
	sym := Sym(len(s.syms))
	s.syms = append(s.syms, name)
	s.symMap[name] = sym
	return sym
}

// SymName returns the name behind an interned symbol, or "" for a
// handle this State never issued.
func (s *State) SymName(sym Sym) string {
	if int(sym) < len(s.syms) {
		return s.syms[sym]
	}
	return ""
}

// SymCount reports how many symbols have been interned.
func (s *State) SymCount() int {
	return len(s.syms)
}

// Closed reports whether Close has been called.
func (s *State) Closed() bool {
	return s.closed
}

// Close releases the engine context. Calling it twice is an error.
func (s *State) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.syms = nil
	s.symMap = nil
	return nil
}
