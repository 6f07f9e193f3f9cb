package sanitize

import (
	"encoding/binary"
	"testing"

	"github.com/coredump-project/minidump/sysmap"
)

type fakeFinder struct {
	mappings []sysmap.MappingInfo
}

func (f *fakeFinder) FindMappingNoBias(addr uint64) (*sysmap.MappingInfo, bool) {
	for i := range f.mappings {
		m := &f.mappings[i]
		if addr >= m.SystemStart && addr < m.SystemEnd {
			return m, true
		}
	}
	return nil, false
}

func putWord(buf []byte, i int, v uint64) {
	binary.LittleEndian.PutUint64(buf[i*wordSize:], v)
}

func getWord(buf []byte, i int) uint64 {
	return binary.LittleEndian.Uint64(buf[i*wordSize:])
}

func TestSanitizeKeepsExecutablePointerRedactsUnmapped(t *testing.T) {
	exe := sysmap.MappingInfo{SystemStart: 0x555000000000, SystemEnd: 0x555000010000, IsExecutable: true}
	stackMapping := sysmap.MappingInfo{SystemStart: 0x7ffff0000000, SystemEnd: 0x7ffff0010000}
	finder := &fakeFinder{mappings: []sysmap.MappingInfo{exe, stackMapping}}
	s := New(finder.mappings)

	stack := make([]byte, wordSize*4)
	putWord(stack, 0, 0x555000001234) // points into executable mapping, kept
	putWord(stack, 1, 100)            // small int, kept
	putWord(stack, 2, 0x7ffff0000500) // points into the stack's own mapping, kept
	putWord(stack, 3, 0x8badf00d0000) // not executable, not small, not stack -> redacted

	sp := uint64(0x7ffff0000100)
	s.Sanitize(stack, finder, sp, 0)

	if getWord(stack, 0) != 0x555000001234 {
		t.Fatalf("expected executable-mapping pointer preserved, got %#x", getWord(stack, 0))
	}
	if getWord(stack, 1) != 100 {
		t.Fatalf("expected small int preserved, got %#x", getWord(stack, 1))
	}
	if getWord(stack, 2) != 0x7ffff0000500 {
		t.Fatalf("expected stack-mapping pointer preserved, got %#x", getWord(stack, 2))
	}
	if getWord(stack, 3) != sentinel {
		t.Fatalf("expected unrecognized pointer-shaped value redacted, got %#x", getWord(stack, 3))
	}
}

func TestSanitizeZeroesBelowStackPointer(t *testing.T) {
	finder := &fakeFinder{}
	s := New(nil)

	stack := make([]byte, wordSize*2)
	putWord(stack, 0, 0xdeadbeefdeadbeef)
	putWord(stack, 1, 50)

	s.Sanitize(stack, finder, 0, wordSize) // spOffset == wordSize: first word is dead

	if getWord(stack, 0) != 0 {
		t.Fatalf("expected dead region zeroed, got %#x", getWord(stack, 0))
	}
	if getWord(stack, 1) != 50 {
		t.Fatalf("expected live small int preserved, got %#x", getWord(stack, 1))
	}
}

func TestSanitizeLastHitLocality(t *testing.T) {
	exe := sysmap.MappingInfo{SystemStart: 0x1000000, SystemEnd: 0x1001000, IsExecutable: true}
	finder := &fakeFinder{mappings: []sysmap.MappingInfo{exe}}
	s := New(finder.mappings)

	stack := make([]byte, wordSize*2)
	putWord(stack, 0, 0x1000500) // hits the executable mapping, becomes "last hit"
	// A value just past the mapping's end would normally redact, but the
	// last-hit locality rule in the original algorithm only re-checks
	// containment in the *previous* hit mapping, so pick a value that is
	// still inside the same executable mapping to exercise that path.
	putWord(stack, 1, 0x1000900)

	s.Sanitize(stack, finder, 0, 0)

	if getWord(stack, 0) != 0x1000500 {
		t.Fatalf("expected first executable pointer preserved, got %#x", getWord(stack, 0))
	}
	if getWord(stack, 1) != 0x1000900 {
		t.Fatalf("expected second pointer preserved via last-hit locality, got %#x", getWord(stack, 1))
	}
}

func TestSanitizeTrailingPartialWordZeroed(t *testing.T) {
	finder := &fakeFinder{}
	s := New(nil)

	stack := make([]byte, wordSize+3)
	putWord(stack, 0, 50)
	stack[wordSize] = 0xff
	stack[wordSize+1] = 0xff
	stack[wordSize+2] = 0xff

	s.Sanitize(stack, finder, 0, 0)

	for i := wordSize; i < len(stack); i++ {
		if stack[i] != 0 {
			t.Fatalf("expected trailing partial word zeroed at index %d, got %#x", i, stack[i])
		}
	}
}
