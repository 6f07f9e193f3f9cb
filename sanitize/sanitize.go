// Package sanitize redacts pointer-sized values on a captured thread
// stack, replacing them with a fixed sentinel. Small integers, values
// inside the stack's own mapping, and values inside an executable
// mapping are preserved; every other word is redacted. Grounded in
// linux_ptrace_dumper.rs::sanitize_stack_copy.
package sanitize

import (
	"encoding/binary"

	"github.com/coredump-project/minidump/sysmap"
)

const (
	// testBits and shift are fixed per spec.md §4.F: the membership
	// bitfield has 2^testBits bits, and a candidate address is tested
	// by its top bits after shifting right by shift = 32 - testBits.
	testBits = 11
	shift    = 32 - testBits

	bitfieldBytes = 1 << (testBits - 3) // 256 bytes = 2048 bits
	bitfieldMask  = bitfieldBytes - 1

	// smallIntMagnitude is the signed-magnitude threshold below which a
	// word is assumed to be a small integer rather than PII-bearing
	// pointer data, and is preserved unconditionally.
	smallIntMagnitude = 4096

	wordSize = 8

	// sentinel is the fixed fill value for redacted words, written
	// little-endian, the same byte order Sanitize reads stack words in.
	sentinel = 0x0defaced0defaced
)

// Sanitizer precomputes the probabilistic executable-mapping membership
// bitfield once, so Sanitize can be called for every thread of a dump
// without rebuilding it.
type Sanitizer struct {
	bitfield [bitfieldBytes]byte
}

// New builds a Sanitizer from every executable mapping in mappings,
// marking bit (address>>shift) for every address in each mapping's
// range, modulo the bitfield size, per spec.md §4.F step 2.
func New(mappings []sysmap.MappingInfo) *Sanitizer {
	s := &Sanitizer{}
	for _, m := range mappings {
		if !m.IsExecutable {
			continue
		}
		start := m.SystemStart >> shift
		end := m.SystemEnd >> shift
		for bit := start; bit <= end; bit++ {
			s.bitfield[(bit>>3)&bitfieldMask] |= 1 << (bit & 7)
		}
	}
	return s
}

// probablyExecutable reports whether addr might fall in an executable
// mapping, per the precomputed bitfield. A false result is certain; a
// true result requires the caller to consult the real mapping table.
func (s *Sanitizer) probablyExecutable(addr uint64) bool {
	bit := addr >> shift
	return s.bitfield[(bit>>3)&bitfieldMask]&(1<<(bit&7)) != 0
}

// mappingFinder is the subset of enum.Enumerator that Sanitize needs;
// declared locally so this package has no compile-time dependency on
// package enum, the same decoupling pattern modmem and sysmap use for
// their own collaborators.
type mappingFinder interface {
	FindMappingNoBias(addr uint64) (*sysmap.MappingInfo, bool)
}

// Sanitize implements spec.md §4.F's redaction algorithm in place over
// stack, a copy of the thread's captured stack bytes. sp is the
// thread's stack pointer value; spOffset is the byte offset within
// stack at which that pointer's word would logically lie (stack[0]
// corresponds to address sp-spOffset, i.e. the start of the capture may
// be below sp when the capture was page-aligned down).
func (s *Sanitizer) Sanitize(stack []byte, finder mappingFinder, sp uint64, spOffset int) {
	// Step 1: zero everything strictly below the stack pointer, rounded
	// up to the next word boundary (these bytes are dead per the ABI).
	deadEnd := (spOffset + wordSize - 1) &^ (wordSize - 1)
	if deadEnd > len(stack) {
		deadEnd = len(stack)
	}
	for i := 0; i < deadEnd; i++ {
		stack[i] = 0
	}

	stackMapping, haveStackMapping := finder.FindMappingNoBias(sp)
	var lastHit *sysmap.MappingInfo

	body := stack[deadEnd:]
	n := len(body) / wordSize * wordSize
	for off := 0; off < n; off += wordSize {
		word := body[off : off+wordSize]
		addr := binary.LittleEndian.Uint64(word)
		signed := int64(addr)

		if signed >= -smallIntMagnitude && signed <= smallIntMagnitude {
			continue
		}
		if haveStackMapping && contains(stackMapping, addr) {
			continue
		}
		if lastHit != nil && contains(lastHit, addr) {
			continue
		}
		if s.probablyExecutable(addr) {
			if hit, ok := finder.FindMappingNoBias(addr); ok && hit.IsExecutable {
				lastHit = hit
				continue
			}
		}
		putSentinel(word)
	}

	// Step 4: zero any trailing partial word at the top of the stack.
	for i := deadEnd + n; i < len(stack); i++ {
		stack[i] = 0
	}
}

func contains(m *sysmap.MappingInfo, addr uint64) bool {
	return addr >= m.SystemStart && addr < m.SystemEnd
}

func putSentinel(word []byte) {
	binary.LittleEndian.PutUint64(word, sentinel)
}
