package enum

import "github.com/coredump-project/minidump/sysmap"

// mappingTable is an O(1) address -> mapping lookup structure, adapted
// from core/mapping.go's page-table scheme for Process.findMapping: a
// sparse 5-level radix tree keyed on the top bits of a 4 KiB-aligned
// address, built once at enumerator init and never mutated afterward.
// The original Rust scanned its mapping list linearly (O(n) per lookup,
// matching linux_ptrace_dumper.rs::find_mapping); this reuses the page
// table instead, since sanitization can call find_mapping for up to
// every stack word and a linear scan there would turn an O(words)
// sanitize pass into O(words * mappings).
type pageTable0 [1 << 10]*sysmap.MappingInfo
type pageTable1 [1 << 10]*pageTable0
type pageTable2 [1 << 10]*pageTable1
type pageTable3 [1 << 10]*pageTable2
type pageTable4 [1 << 12]*pageTable3

const pageShift = 12 // assume 4 KiB pages

func newMappingTable() *pageTable4 {
	return new(pageTable4)
}

// find returns the mapping containing addr, or nil.
func find(t *pageTable4, addr uint64) *sysmap.MappingInfo {
	t3 := t[addr>>52]
	if t3 == nil {
		return nil
	}
	t2 := t3[addr>>42%(1<<10)]
	if t2 == nil {
		return nil
	}
	t1 := t2[addr>>32%(1<<10)]
	if t1 == nil {
		return nil
	}
	t0 := t1[addr>>22%(1<<10)]
	if t0 == nil {
		return nil
	}
	return t0[addr>>12%(1<<10)]
}

// add registers m under every 4 KiB page in [start, end). start and end
// must already be page-aligned, which every MappingInfo range sourced
// from /proc/<pid>/maps or the psapi/dyld equivalents always is.
func add(t *pageTable4, start, end uint64, m *sysmap.MappingInfo) {
	start -= start % (1 << pageShift)
	for a := start; a < end; a += 1 << pageShift {
		i3 := a >> 52
		t3 := t[i3]
		if t3 == nil {
			t3 = new(pageTable3)
			t[i3] = t3
		}
		i2 := a >> 42 % (1 << 10)
		t2 := t3[i2]
		if t2 == nil {
			t2 = new(pageTable2)
			t3[i2] = t2
		}
		i1 := a >> 32 % (1 << 10)
		t1 := t2[i1]
		if t1 == nil {
			t1 = new(pageTable1)
			t2[i1] = t1
		}
		i0 := a >> 22 % (1 << 10)
		t0 := t1[i0]
		if t0 == nil {
			t0 = new(pageTable0)
			t1[i0] = t0
		}
		t0[a>>12%(1<<10)] = m
	}
}
