// Package modmem implements the Module Memory view used by the module
// reader (package modreader) to parse an executable header without caring
// whether the bytes come from a local buffer or a live remote process.
package modmem

import (
	"fmt"
	"math"
)

// remoteReader is the subset of reader.Reader that ModuleMemory needs.
// Defined locally (rather than importing package reader) so modmem has no
// dependency on the process-reading backend machinery, mirroring the
// Rust source's ModuleMemory being generic over any ProcessReader.
type remoteReader interface {
	ReadToVec(src uint64, n int) ([]byte, error)
}

// ModuleMemory is a view over either a borrowed local byte slice or a
// (reader, base address) pair into a remote process. It is the Go
// rendering of the Slice/Remote sum type in spec.md §3; the two variants
// are distinguished here by whether reader is nil.
type ModuleMemory struct {
	slice  []byte
	reader remoteReader
	base   uint64
}

// OverflowError reports that offset+length (or base+offset) could not
// be computed without wrapping a uint64, per spec.md §4.B's required
// overflow checks. It maps to minidump.KindReadOverflow at the package
// boundary that classifies errors into the structured type.
type OverflowError struct {
	A, B uint64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("modmem: overflow computing %#x + %#x", e.A, e.B)
}

// OutOfBoundsError reports a Slice read whose [offset, offset+length)
// range exceeds the backing buffer. Maps to minidump.KindReadOutOfBounds.
type OutOfBoundsError struct {
	Offset, End, BufLen uint64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("modmem: read [%#x, %#x) out of bounds (len %#x)", e.Offset, e.End, e.BufLen)
}

// ZeroLengthReadError reports a zero-length Remote read, which spec.md
// §4.B calls out as explicitly an error because its meaning is
// ambiguous across backends. Maps to minidump.KindZeroLengthRead.
type ZeroLengthReadError struct {
	Offset uint64
}

func (e *ZeroLengthReadError) Error() string {
	return fmt.Sprintf("modmem: zero-length read at remote offset %#x", e.Offset)
}

// FromSlice builds a ModuleMemory over a borrowed local buffer. The
// returned value must not outlive buf.
func FromSlice(buf []byte) ModuleMemory {
	return ModuleMemory{slice: buf}
}

// FromProcess builds a ModuleMemory over a process reader plus the
// module's load address. The returned value must not outlive r.
func FromProcess(r remoteReader, base uint64) ModuleMemory {
	return ModuleMemory{reader: r, base: base}
}

// IsRemote reports whether this view reads from a live process rather
// than a borrowed local slice.
func (m ModuleMemory) IsRemote() bool { return m.reader != nil }

// Read returns length bytes starting at offset. For a Slice view this
// bounds-checks offset+length against the backing buffer (detecting
// overflow); for a Remote view, length == 0 is explicitly an error,
// because it is ambiguous whether a zero-length remote read means
// "nothing to read" or "the backend could not service this address" — a
// Slice view has no such ambiguity, so it permits it.
func (m ModuleMemory) Read(offset, length uint64) ([]byte, error) {
	if m.reader != nil {
		if length == 0 {
			return nil, &ZeroLengthReadError{Offset: offset}
		}
		addr, ok := addOverflow(m.base, offset)
		if !ok {
			return nil, &OverflowError{A: m.base, B: offset}
		}
		if length > math.MaxInt32 {
			return nil, fmt.Errorf("modmem: read length %d too large", length)
		}
		return m.reader.ReadToVec(addr, int(length))
	}

	end, ok := addOverflow(offset, length)
	if !ok {
		return nil, &OverflowError{A: offset, B: length}
	}
	if end > uint64(len(m.slice)) || offset > uint64(len(m.slice)) {
		return nil, &OutOfBoundsError{Offset: offset, End: end, BufLen: uint64(len(m.slice))}
	}
	return m.slice[offset:end], nil
}

// ReadAt implements io.ReaderAt so a ModuleMemory can be handed directly
// to debug/elf.NewFile, debug/macho.NewFile, or debug/pe.NewFile.
func (m ModuleMemory) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("modmem: negative ReadAt offset %d", off)
	}
	if len(p) == 0 {
		return 0, nil
	}
	b, err := m.Read(uint64(off), uint64(len(p)))
	if err != nil {
		return 0, err
	}
	n := copy(p, b)
	if n < len(p) {
		return n, fmt.Errorf("modmem: short ReadAt at %#x: got %d of %d bytes", off, n, len(p))
	}
	return n, nil
}

// AbsoluteToRelative converts an absolute address into the module's own
// address space into an offset relative to its load address. For a Slice
// view this is the identity function; for a Remote view it is addr-base,
// with subtraction-overflow detected.
func (m ModuleMemory) AbsoluteToRelative(addr uint64) (uint64, bool) {
	if m.reader == nil {
		return addr, true
	}
	if addr < m.base {
		return 0, false
	}
	return addr - m.base, true
}

// RelativeToAbsolute is the inverse of AbsoluteToRelative.
func (m ModuleMemory) RelativeToAbsolute(addr uint64) (uint64, bool) {
	if m.reader == nil {
		return addr, true
	}
	return addOverflow(m.base, addr)
}

func addOverflow(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}
