package modreader

import (
	"debug/macho"

	"github.com/coredump-project/minidump/modmem"
)

// dataSegmentName is the Mach-O segment FindSection searches, matching
// original_source/src/mac/module_reader.rs, which only ever needs
// sections living in __DATA (the ones minidumpwriter's breakpad-id and
// crashpad-info lookups care about).
const dataSegmentName = "__DATA"

// MachOReader parses a Mach-O header lazily through a modmem.ModuleMemory.
type MachOReader struct {
	f *macho.File
}

// NewMachO opens the Mach-O header found in mem.
func NewMachO(mem modmem.ModuleMemory) (*MachOReader, error) {
	f, err := macho.NewFile(mem)
	if err != nil {
		return nil, &ParseError{Format: FormatMachO, Cause: err}
	}
	return &MachOReader{f: f}, nil
}

// FindSection returns the file offset of the named section within the
// __DATA segment.
func (r *MachOReader) FindSection(name string) (uint64, error) {
	seg := r.f.Segment(dataSegmentName)
	if seg == nil {
		return 0, &SectionNotFoundError{Format: FormatMachO, Name: name}
	}
	sec := r.f.Section(name)
	if sec == nil || sec.Seg != dataSegmentName {
		return 0, &SectionNotFoundError{Format: FormatMachO, Name: name}
	}
	return uint64(sec.Offset), nil
}

// lcUUID is LC_UUID, the Mach-O load command carrying a module's unique
// identifier. debug/macho does not expose a typed wrapper for it, so it
// surfaces as generic LoadBytes holding the whole command: an 8-byte
// header (cmd, cmdsize) followed by the 16-byte uuid.
const lcUUID macho.LoadCmd = 0x1b

// UUID returns the module identifier carried in an LC_UUID load command,
// Mach-O's equivalent of an ELF build-id. Darwin modules without one
// (rare, but possible for hand-built Mach-O images) report errNoUUID.
func (r *MachOReader) UUID() ([]byte, error) {
	for _, l := range r.f.Loads {
		raw, ok := l.(macho.LoadBytes)
		if !ok {
			continue
		}
		b := []byte(raw)
		if len(b) < 24 {
			continue
		}
		cmd := macho.LoadCmd(r.f.ByteOrder.Uint32(b[0:4]))
		if cmd != lcUUID {
			continue
		}
		return append([]byte(nil), b[8:24]...), nil
	}
	return nil, errNoUUID
}

var errNoUUID = sectionlessError("modreader: macho: no LC_UUID load command present")

type sectionlessError string

func (e sectionlessError) Error() string { return string(e) }
