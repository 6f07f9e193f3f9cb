//go:build linux

package sysmap

import (
	"encoding/binary"
	"os"
	"testing"
)

func TestParseAuxvSelf(t *testing.T) {
	aux, err := ParseAuxv(os.Getpid())
	if err != nil {
		t.Fatalf("ParseAuxv: %v", err)
	}
	if len(aux) == 0 {
		t.Fatalf("expected a non-empty auxiliary vector for self")
	}
}

func packAuxvPair(key, val uint64) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[0:8], key)
	binary.LittleEndian.PutUint64(b[8:16], val)
	return b
}

func TestDecodeAuxvStopsAtNull(t *testing.T) {
	var data []byte
	data = append(data, packAuxvPair(AT_ENTRY, 0x400000)...)
	data = append(data, packAuxvPair(AT_SYSINFO_EHDR, 0x7fff0000)...)
	data = append(data, packAuxvPair(AT_NULL, 0)...)
	// Trailing garbage past the terminator must be ignored.
	data = append(data, packAuxvPair(12345, 6789)...)

	aux, err := decodeAuxv(data)
	if err != nil {
		t.Fatalf("decodeAuxv: %v", err)
	}
	if aux[AT_ENTRY] != 0x400000 {
		t.Fatalf("AT_ENTRY = %#x, want 0x400000", aux[AT_ENTRY])
	}
	if aux[AT_SYSINFO_EHDR] != 0x7fff0000 {
		t.Fatalf("AT_SYSINFO_EHDR = %#x, want 0x7fff0000", aux[AT_SYSINFO_EHDR])
	}
	if _, ok := aux[12345]; ok {
		t.Fatalf("expected entries past AT_NULL to be ignored")
	}
}

func TestInjectVDSOAddsSyntheticMapping(t *testing.T) {
	aux := AuxVector{AT_SYSINFO_EHDR: 0x7ffff7fcd000}
	mappings := InjectVDSO(nil, aux)
	if len(mappings) != 1 {
		t.Fatalf("expected one synthetic mapping, got %d", len(mappings))
	}
	if mappings[0].Name != VDSOPath {
		t.Fatalf("expected vdso path marker, got %q", mappings[0].Name)
	}
}

func TestInjectVDSOSkipsWhenAlreadyCovered(t *testing.T) {
	aux := AuxVector{AT_SYSINFO_EHDR: 0x1500}
	existing := []MappingInfo{{Name: VDSOPath, SystemStart: 0x1000, SystemEnd: 0x2000}}
	mappings := InjectVDSO(existing, aux)
	if len(mappings) != 1 {
		t.Fatalf("expected no additional mapping, got %d", len(mappings))
	}
}

func TestInjectVDSONoOpWithoutAuxvEntry(t *testing.T) {
	mappings := InjectVDSO(nil, AuxVector{})
	if len(mappings) != 0 {
		t.Fatalf("expected no mapping without AT_SYSINFO_EHDR, got %+v", mappings)
	}
}
