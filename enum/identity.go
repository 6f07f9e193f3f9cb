package enum

import (
	"encoding/binary"

	"github.com/coredump-project/minidump/modmem"
	"github.com/coredump-project/minidump/modreader"
)

// remoteReader mirrors reader.Reader.ReadToVec; declared locally so enum
// has no compile-time dependency on package reader's backend machinery,
// the same decoupling modmem.remoteReader and sysmap's Darwin module
// walk already use.
type remoteReader interface {
	ReadToVec(src uint64, n int) ([]byte, error)
}

// BuildIdentityForMapping implements spec.md §4.E's
// build_identity_for_mapping: it reads the module header at the given
// mapping's load address directly out of the live process (never from
// disk) and routes it through package modreader (§4.C) via a Module
// Memory view (§4.B) to obtain a stable build identifier. A parse
// failure, unrecognized format, or missing identifier is reported but
// never fatal to the dump as a whole — callers record an empty identity
// and continue.
func (e *Enumerator) BuildIdentityForMapping(index int, r remoteReader) ([]byte, error) {
	if index < 0 || index >= len(e.mappings) {
		return nil, &ModuleNotFoundError{Index: index}
	}
	m := e.mappings[index]
	mem := modmem.FromProcess(r, m.Start)

	magic, err := mem.Read(0, 4)
	if err != nil {
		return nil, err
	}

	switch {
	case isELFMagic(magic):
		f, err := modreader.NewELF(mem)
		if err != nil {
			return nil, err
		}
		return f.BuildID()
	case isMachOMagic(magic):
		f, err := modreader.NewMachO(mem)
		if err != nil {
			return nil, err
		}
		return f.UUID()
	case isPEMagic(magic):
		f, err := modreader.NewPE(mem)
		if err != nil {
			return nil, err
		}
		return f.DebugCodeView()
	default:
		return nil, &ModuleNotFoundError{Index: index, Name: m.Name}
	}
}

func isELFMagic(b []byte) bool {
	return len(b) >= 4 && b[0] == 0x7f && b[1] == 'E' && b[2] == 'L' && b[3] == 'F'
}

// Mach-O 64-bit magic, either endianness (MH_MAGIC_64 / MH_CIGAM_64).
func isMachOMagic(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	v := binary.LittleEndian.Uint32(b)
	return v == 0xfeedfacf || v == 0xcffaedfe
}

// PE images begin with the DOS "MZ" signature.
func isPEMagic(b []byte) bool {
	return len(b) >= 2 && b[0] == 'M' && b[1] == 'Z'
}

// ModuleNotFoundError reports that a mapping index named a module this
// package could not identify, either because the header format is
// unrecognized or because the index itself is out of range.
type ModuleNotFoundError struct {
	Index int
	Name  string
}

func (e *ModuleNotFoundError) Error() string {
	if e.Name != "" {
		return "enum: module " + e.Name + ": unrecognized header format"
	}
	return "enum: mapping index out of range"
}
