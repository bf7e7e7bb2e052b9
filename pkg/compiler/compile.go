// Package compiler turns mruby source text into bytecode ireps.
// Compilation never executes anything; the pipeline stops once the
// top-level irep is built.
package compiler

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	"github.com/kurodash/mruby/pkg/bytecode"
	"github.com/kurodash/mruby/pkg/mrb"
)

// Context carries per-compilation options, mirroring what the CLI
// resolves from its flags.
type Context struct {
	Filename   string // name used in diagnostics; "-" for stdin
	NoExec     bool   // always true for this toolchain; kept for API parity
	DumpResult bool   // dump the parse tree and an instruction listing to stderr
}

// Compile runs the full front end over src: lex, parse, generate.
// The engine state must be open; symbols referenced by the generated
// code are interned into it.
func Compile(state *mrb.State, src string, ctx *Context) (*bytecode.Irep, error) {
	if state == nil || state.Closed() {
		return nil, mrb.ErrClosed
	}
	if ctx == nil {
		ctx = &Context{Filename: "-"}
	}

	tokens, err := Lex(src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ctx.Filename, err)
	}

	stmts, err := Parse(tokens, src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ctx.Filename, err)
	}

	if ctx.DumpResult {
		fmt.Fprintf(os.Stderr, "parse tree of %s:\n", ctx.Filename)
		spew.Fdump(os.Stderr, stmts)
	}

	irep, err := Generate(state, stmts, ctx.Filename)
	if err != nil {
		return nil, err
	}

	if ctx.DumpResult {
		fmt.Fprintf(os.Stderr, "bytecode of %s:\n%s", ctx.Filename, bytecode.Disasm(irep))
	}
	return irep, nil
}
