//go:build linux

package sysmap

import (
	"os"
	"testing"
)

func TestParseMapsSelf(t *testing.T) {
	regions, err := ParseMaps(os.Getpid())
	if err != nil {
		t.Fatalf("ParseMaps: %v", err)
	}
	if len(regions) == 0 {
		t.Fatalf("expected at least one mapped region for self")
	}
	for i := 1; i < len(regions); i++ {
		if regions[i].Start < regions[i-1].Start {
			t.Fatalf("regions not address-ascending at index %d", i)
		}
	}
}

func TestParseMapsLineFields(t *testing.T) {
	r, err := parseMapsLine("7f1234500000-7f1234521000 r-xp 00001000 08:01 999  /usr/lib/libc.so (deleted)")
	if err != nil {
		t.Fatalf("parseMapsLine: %v", err)
	}
	if r.Start != 0x7f1234500000 || r.End() != 0x7f1234521000 {
		t.Fatalf("bad address range: %#x-%#x", r.Start, r.End())
	}
	if !r.Read || r.Write || !r.Exec {
		t.Fatalf("bad perms: %+v", r)
	}
	if r.Offset != 0x1000 {
		t.Fatalf("bad offset: %#x", r.Offset)
	}
	if !r.IsDeleted || r.Path != "/usr/lib/libc.so" {
		t.Fatalf("bad deleted path handling: %+v", r)
	}
}

func TestParseMapsLineAnonymous(t *testing.T) {
	r, err := parseMapsLine("600000-601000 rw-p 00000000 00:00 0 ")
	if err != nil {
		t.Fatalf("parseMapsLine: %v", err)
	}
	if r.Path != "" {
		t.Fatalf("expected empty path for anonymous mapping, got %q", r.Path)
	}
}

func TestFoldMappingsCoalescesAdjacentRuns(t *testing.T) {
	regions := []MemoryRegion{
		{Start: 0x1000, Size: 0x1000, Path: "/bin/prog", Read: true},
		{Start: 0x2000, Size: 0x1000, Path: "/bin/prog", Read: true, Exec: true, Offset: 0x1000},
		{Start: 0x3000, Size: 0x1000, Path: "/bin/prog", Read: true, Write: true, Offset: 0x2000},
		{Start: 0x5000, Size: 0x1000, Path: "", Read: true, Write: true},
		{Start: 0x6000, Size: 0x1000, Path: "/lib/other.so", Read: true, Exec: true},
	}
	mappings := FoldMappings(regions)
	if len(mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %d: %+v", len(mappings), mappings)
	}

	first := mappings[0]
	if first.Name != "/bin/prog" {
		t.Fatalf("wrong name: %q", first.Name)
	}
	if !first.IsExecutable {
		t.Fatalf("expected the fold to be marked executable")
	}
	if first.Start != 0x2000 {
		t.Fatalf("expected Start biased to first executable region, got %#x", first.Start)
	}
	gotStart, gotEnd := first.SystemRange()
	if gotStart != 0x1000 || gotEnd != 0x4000 {
		t.Fatalf("expected unbiased system range [0x1000,0x4000), got [%#x,%#x)", gotStart, gotEnd)
	}

	second := mappings[1]
	if second.Name != "/lib/other.so" || second.Start != 0x6000 {
		t.Fatalf("unexpected second mapping: %+v", second)
	}
}

func TestFoldMappingsSkipsAnonymous(t *testing.T) {
	regions := []MemoryRegion{{Start: 0, Size: 0x1000, Path: ""}}
	if got := FoldMappings(regions); len(got) != 0 {
		t.Fatalf("expected anonymous-only regions to fold to nothing, got %+v", got)
	}
}
