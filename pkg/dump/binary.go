// Package dump serializes compiled ireps: to the RITE binary
// container, to C source for static embedding, and back from binary
// via ReadBinary.
package dump

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/kurodash/mruby/pkg/bytecode"
	"github.com/kurodash/mruby/pkg/mrb"
)

// RITE container layout (all integers little-endian):
//
//	header: magic "RITE", format version "0100", compiler "MRBC",
//	        uint32 total size, uint32 CRC-32 (IEEE) of the section bytes
//	sections: 4-byte tag, uint32 payload size, payload
//	        "IREP": recursive irep records (required, first)
//	        "DBG\0": filename + line tables, preorder (only with debug info)
//	        "END\0": empty, closes the container
const (
	binMagic    = "RITE"
	binVersion  = "0100"
	binCompiler = "MRBC"

	sectIrep  = "IREP"
	sectDebug = "DBG\x00"
	sectEnd   = "END\x00"
)

var (
	ErrInvalidFormat   = errors.New("dump: not a RITE binary")
	ErrVersionMismatch = errors.New("dump: unsupported RITE version")
	ErrCorrupt         = errors.New("dump: checksum mismatch")
)

// DumpBinary writes the serialized form of irep and its children to w.
// When debugInfo is false the DBG section is omitted entirely.
func DumpBinary(state *mrb.State, irep *bytecode.Irep, debugInfo bool, w io.Writer) error {
	if state == nil || state.Closed() {
		return mrb.ErrClosed
	}

	var body bytes.Buffer
	bw := &binWriter{w: &body}

	var irepPayload bytes.Buffer
	writeIrep(&binWriter{w: &irepPayload}, irep)
	bw.section(sectIrep, irepPayload.Bytes())

	if debugInfo {
		var dbgPayload bytes.Buffer
		writeDebug(&binWriter{w: &dbgPayload}, irep)
		bw.section(sectDebug, dbgPayload.Bytes())
	}
	bw.section(sectEnd, nil)
	if bw.err != nil {
		return bw.err
	}

	hw := &binWriter{w: w}
	hw.raw([]byte(binMagic))
	hw.raw([]byte(binVersion))
	hw.raw([]byte(binCompiler))
	hw.u32(uint32(headerSize + body.Len()))
	hw.u32(crc32.ChecksumIEEE(body.Bytes()))
	hw.raw(body.Bytes())
	return hw.err
}

const headerSize = 4 + 4 + 4 + 4 + 4

// binWriter accumulates the first write error so the happy path can
// stay free of per-field error checks.
type binWriter struct {
	w   io.Writer
	err error
}

func (b *binWriter) raw(p []byte) {
	if b.err != nil {
		return
	}
	_, b.err = b.w.Write(p)
}

func (b *binWriter) u8(v uint8)   { b.raw([]byte{v}) }
func (b *binWriter) u16(v uint16) { var p [2]byte; binary.LittleEndian.PutUint16(p[:], v); b.raw(p[:]) }
func (b *binWriter) u32(v uint32) { var p [4]byte; binary.LittleEndian.PutUint32(p[:], v); b.raw(p[:]) }
func (b *binWriter) u64(v uint64) { var p [8]byte; binary.LittleEndian.PutUint64(p[:], v); b.raw(p[:]) }

// str16 writes a uint16 length prefix followed by the raw bytes.
func (b *binWriter) str16(s string) {
	b.u16(uint16(len(s)))
	b.raw([]byte(s))
}

func (b *binWriter) section(tag string, payload []byte) {
	b.raw([]byte(tag))
	b.u32(uint32(len(payload)))
	b.raw(payload)
}

func writeIrep(b *binWriter, ir *bytecode.Irep) {
	b.u16(uint16(ir.NLocals))
	b.u16(uint16(ir.NRegs))

	b.u32(uint32(len(ir.ISeq)))
	b.raw(ir.ISeq)

	b.u16(uint16(len(ir.Pool)))
	for _, v := range ir.Pool {
		b.u8(uint8(v.Kind))
		switch v.Kind {
		case bytecode.IntValue:
			b.u64(uint64(v.Int))
		case bytecode.FloatValue:
			b.u64(math.Float64bits(v.Float))
		case bytecode.StrValue:
			b.str16(v.Str)
		}
	}

	b.u16(uint16(len(ir.Syms)))
	for _, s := range ir.Syms {
		b.str16(s)
	}

	b.u16(uint16(len(ir.Reps)))
	for _, rep := range ir.Reps {
		writeIrep(b, rep)
	}
}

// writeDebug emits one record per irep in the same preorder as the
// IREP section, so the reader can re-attach them by position.
func writeDebug(b *binWriter, ir *bytecode.Irep) {
	b.str16(ir.Filename)
	b.u32(uint32(len(ir.Lines)))
	for _, line := range ir.Lines {
		b.u16(line)
	}
	for _, rep := range ir.Reps {
		writeDebug(b, rep)
	}
}

// binReader is the reading counterpart of binWriter.
type binReader struct {
	r   io.Reader
	err error
}

func (b *binReader) raw(n int) []byte {
	if b.err != nil {
		return nil
	}
	if n < 0 {
		b.err = ErrInvalidFormat
		return nil
	}
	p := make([]byte, n)
	if _, err := io.ReadFull(b.r, p); err != nil {
		b.err = fmt.Errorf("dump: truncated binary: %w", err)
		return nil
	}
	return p
}

func (b *binReader) u8() uint8 {
	p := b.raw(1)
	if p == nil {
		return 0
	}
	return p[0]
}

func (b *binReader) u16() uint16 {
	p := b.raw(2)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(p)
}

func (b *binReader) u32() uint32 {
	p := b.raw(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (b *binReader) u64() uint64 {
	p := b.raw(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

func (b *binReader) str16() string {
	n := b.u16()
	return string(b.raw(int(n)))
}

// ReadBinary decodes a RITE binary back into an irep tree. The
// second result reports whether the binary carried debug info.
func ReadBinary(state *mrb.State, r io.Reader) (*bytecode.Irep, bool, error) {
	if state == nil || state.Closed() {
		return nil, false, mrb.ErrClosed
	}

	br := &binReader{r: r}
	if string(br.raw(4)) != binMagic {
		if br.err != nil {
			return nil, false, br.err
		}
		return nil, false, ErrInvalidFormat
	}
	if v := string(br.raw(4)); br.err == nil && v != binVersion {
		return nil, false, fmt.Errorf("%w: %q", ErrVersionMismatch, v)
	}
	br.raw(4) // compiler name, informational
	total := br.u32()
	sum := br.u32()
	if br.err != nil {
		return nil, false, br.err
	}
	if total < headerSize {
		return nil, false, ErrInvalidFormat
	}

	body := br.raw(int(total) - headerSize)
	if br.err != nil {
		return nil, false, br.err
	}
	if crc32.ChecksumIEEE(body) != sum {
		return nil, false, ErrCorrupt
	}

	var root *bytecode.Irep
	hasDebug := false
	sr := &binReader{r: bytes.NewReader(body)}
	for {
		tag := string(sr.raw(4))
		size := sr.u32()
		if sr.err != nil {
			return nil, false, sr.err
		}
		if int(size) > len(body) {
			return nil, false, ErrInvalidFormat
		}
		payload := sr.raw(int(size))
		if sr.err != nil {
			return nil, false, sr.err
		}

		switch tag {
		case sectIrep:
			pr := &binReader{r: bytes.NewReader(payload)}
			root = readIrep(pr, state)
			if pr.err != nil {
				return nil, false, pr.err
			}
		case sectDebug:
			if root == nil {
				return nil, false, ErrInvalidFormat
			}
			hasDebug = true
			pr := &binReader{r: bytes.NewReader(payload)}
			readDebug(pr, root)
			if pr.err != nil {
				return nil, false, pr.err
			}
		case sectEnd:
			if root == nil {
				return nil, false, ErrInvalidFormat
			}
			return root, hasDebug, nil
		default:
			return nil, false, fmt.Errorf("dump: unknown section %q", tag)
		}
	}
}

func readIrep(b *binReader, state *mrb.State) *bytecode.Irep {
	ir := &bytecode.Irep{}
	ir.NLocals = int(b.u16())
	ir.NRegs = int(b.u16())

	iseqLen := b.u32()
	ir.ISeq = b.raw(int(iseqLen))

	poolLen := b.u16()
	for i := 0; i < int(poolLen) && b.err == nil; i++ {
		kind := bytecode.ValueKind(b.u8())
		switch kind {
		case bytecode.IntValue:
			ir.Pool = append(ir.Pool, bytecode.Int(int64(b.u64())))
		case bytecode.FloatValue:
			ir.Pool = append(ir.Pool, bytecode.Float(math.Float64frombits(b.u64())))
		case bytecode.StrValue:
			ir.Pool = append(ir.Pool, bytecode.Str(b.str16()))
		default:
			b.err = fmt.Errorf("dump: unknown pool value kind %d", kind)
		}
	}

	symsLen := b.u16()
	for i := 0; i < int(symsLen) && b.err == nil; i++ {
		name := b.str16()
		state.Intern(name)
		ir.Syms = append(ir.Syms, name)
	}

	repsLen := b.u16()
	for i := 0; i < int(repsLen) && b.err == nil; i++ {
		ir.Reps = append(ir.Reps, readIrep(b, state))
	}
	return ir
}

func readDebug(b *binReader, ir *bytecode.Irep) {
	ir.Filename = b.str16()
	count := b.u32()
	for i := 0; i < int(count) && b.err == nil; i++ {
		ir.Lines = append(ir.Lines, b.u16())
	}
	for _, rep := range ir.Reps {
		if b.err != nil {
			return
		}
		readDebug(b, rep)
	}
}
