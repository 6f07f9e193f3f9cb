package enum

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredump-project/minidump/sysmap"
)

func TestMappingTableFindWithinRange(t *testing.T) {
	tbl := newMappingTable()
	m := &sysmap.MappingInfo{Start: 0x400000, Size: 0x3000}
	add(tbl, m.Start, m.Start+m.Size, m)

	require.Same(t, m, find(tbl, 0x400000), "expected match at range start")
	require.Same(t, m, find(tbl, 0x402fff), "expected match at last byte of range")
	require.Nil(t, find(tbl, 0x403000), "expected no match just past range end")
	require.Nil(t, find(tbl, 0x3fffff), "expected no match just before range start")
}

func TestMappingTableDisjointMappings(t *testing.T) {
	tbl := newMappingTable()
	a := &sysmap.MappingInfo{Start: 0x1000, Size: 0x1000}
	b := &sysmap.MappingInfo{Start: 0x7f0000000000, Size: 0x2000}
	add(tbl, a.Start, a.Start+a.Size, a)
	add(tbl, b.Start, b.Start+b.Size, b)

	require.Same(t, a, find(tbl, 0x1500), "wrong mapping for low address")
	require.Same(t, b, find(tbl, 0x7f0000000500), "wrong mapping for high address")
}

func TestSelectPrincipalMappingSwapsToFront(t *testing.T) {
	mappings := []sysmap.MappingInfo{
		{Start: 0x1000, Size: 0x1000, Name: "libc.so"},
		{Start: 0x400000, Size: 0x2000, Name: "prog"},
	}
	selectPrincipalMapping(mappings, sysmap.AuxVector{sysmap.AT_ENTRY: 0x400500})

	require.Equal(t, "prog", mappings[0].Name, "expected prog swapped to index 0")
}

func TestSelectPrincipalMappingNoEntryIsNoOp(t *testing.T) {
	mappings := []sysmap.MappingInfo{
		{Start: 0x1000, Size: 0x1000, Name: "libc.so"},
		{Start: 0x400000, Size: 0x2000, Name: "prog"},
	}
	selectPrincipalMapping(mappings, sysmap.AuxVector{})

	require.Equal(t, "libc.so", mappings[0].Name, "expected no swap without AT_ENTRY")
}

func TestFindMappingUsesBiasedTable(t *testing.T) {
	e := &Enumerator{
		mappings: []sysmap.MappingInfo{
			{Start: 0x2000, Size: 0x1000, SystemStart: 0x1000, SystemEnd: 0x3000, Name: "prog"},
		},
	}
	e.buildTables()

	_, ok := e.FindMapping(0x1500)
	require.False(t, ok, "expected biased lookup to miss below the biased start")

	m, ok := e.FindMapping(0x2500)
	require.True(t, ok)
	require.Equal(t, "prog", m.Name, "expected biased lookup to hit within the biased range")

	m, ok = e.FindMappingNoBias(0x1500)
	require.True(t, ok)
	require.Equal(t, "prog", m.Name, "expected unbiased lookup to hit using the raw system range")
}
