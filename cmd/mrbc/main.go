// Command mrbc compiles one mruby program file into serialized
// bytecode: a RITE binary module, or a C byte array for static
// embedding. With -c it only checks the syntax.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kurodash/mruby/pkg/compiler"
	"github.com/kurodash/mruby/pkg/dump"
	"github.com/kurodash/mruby/pkg/mrb"
)

func main() {
	os.Exit(run(os.Args, os.Stdout))
}

// run drives one compile-and-emit cycle and returns the process exit
// code. Compilation happens exactly once; every failure path releases
// the streams and the engine state.
func run(argv []string, stdout io.Writer) int {
	prog := filepath.Base(argv[0])

	state := mrb.New()
	defer state.Close()

	a, err := parseArgs(argv[1:], stdout)
	if err != nil {
		if errors.Is(err, errExitSuccess) {
			return 0
		}
		if !errors.Is(err, errNoInput) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", prog, err)
		}
		usage(prog, stdout)
		return 1
	}
	defer a.close()

	src, err := io.ReadAll(a.rfp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read program file. (%s)\n", prog, a.filename)
		a.discardOutput()
		return 1
	}

	ctx := &compiler.Context{
		Filename:   a.filename,
		NoExec:     true,
		DumpResult: a.verbose,
	}
	irep, err := compiler.Compile(state, string(src), ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.discardOutput()
		return 1
	}

	if a.checkSyntax {
		fmt.Fprintln(stdout, "Syntax OK")
		return 0
	}

	if a.initName != "" {
		err = dump.DumpCFunc(state, irep, a.debugInfo, a.wfp, a.initName)
		if errors.Is(err, dump.ErrInvalidSymbolName) {
			fmt.Fprintf(os.Stderr, "%s: invalid C language symbol name\n", a.initName)
			a.discardOutput()
			return 1
		}
	} else {
		err = dump.DumpBinary(state, irep, a.debugInfo, a.wfp)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", prog, err)
		a.discardOutput()
		return 1
	}
	return 0
}
