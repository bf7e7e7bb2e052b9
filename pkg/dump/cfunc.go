package dump

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/kurodash/mruby/pkg/bytecode"
	"github.com/kurodash/mruby/pkg/mrb"
)

// ErrInvalidSymbolName is returned when the requested init name is
// not a valid C identifier.
var ErrInvalidSymbolName = errors.New("dump: invalid C language symbol name")

// bytesPerRow in the generated array literal.
const bytesPerRow = 12

// ValidCIdent reports whether name can be used as a C identifier.
func ValidCIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// DumpCFunc writes the binary form of irep as a C byte array plus an
// accessor function named initName, suitable for compiling into a
// host program.
func DumpCFunc(state *mrb.State, irep *bytecode.Irep, debugInfo bool, w io.Writer, initName string) error {
	if state == nil || state.Closed() {
		return mrb.ErrClosed
	}
	if !ValidCIdent(initName) {
		return ErrInvalidSymbolName
	}

	var bin bytes.Buffer
	if err := DumpBinary(state, irep, debugInfo, &bin); err != nil {
		return err
	}

	var werr error
	p := func(format string, args ...any) {
		if werr == nil {
			_, werr = fmt.Fprintf(w, format, args...)
		}
	}

	p("/* dumped by mrbc */\n")
	p("#include <stdint.h>\n\n")
	p("static const uint8_t %s_irep[] = {", initName)
	for i, b := range bin.Bytes() {
		if i%bytesPerRow == 0 {
			p("\n")
		}
		p("0x%02x,", b)
	}
	p("\n};\n\n")
	p("const uint8_t *\n%s(uint32_t *len)\n{\n", initName)
	p("  if (len) *len = %d;\n", bin.Len())
	p("  return %s_irep;\n}\n", initName)
	return werr
}
