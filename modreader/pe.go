package modreader

import (
	"debug/pe"

	"github.com/coredump-project/minidump/modmem"
)

// PEReader parses a PE header lazily through a modmem.ModuleMemory.
type PEReader struct {
	f *pe.File
}

// NewPE opens the PE header found in mem.
func NewPE(mem modmem.ModuleMemory) (*PEReader, error) {
	f, err := pe.NewFile(mem)
	if err != nil {
		return nil, &ParseError{Format: FormatPE, Cause: err}
	}
	return &PEReader{f: f}, nil
}

// FindSection returns the virtual address at which the named section
// begins, matching original_source/src/windows/module_reader.rs's use of
// a section's virtual address (rather than its file offset, since PE
// images are mapped section-aligned and minidump readers work in
// relative-virtual-address terms for this format).
//
// Section names in a PE image header are truncated to 8 bytes; a longer
// name is matched against its own 8-byte truncation.
func (r *PEReader) FindSection(name string) (uint64, error) {
	want := name
	if len(want) > 8 {
		want = want[:8]
	}
	for _, s := range r.f.Sections {
		if s.Name == want {
			return uint64(s.VirtualAddress), nil
		}
	}
	return 0, &SectionNotFoundError{Format: FormatPE, Name: name}
}

// DebugCodeView returns the raw bytes of the image's debug data
// directory (IMAGE_DIRECTORY_ENTRY_DEBUG), used as the PE's build-id
// equivalent: the table of debug directory records, among them the
// CodeView entry that points at the GUID+age record. The CodeView record
// itself is not followed. debug/pe exposes the data directory table but
// does not decode the debug directory, so this locates its bytes through
// the section table.
func (r *PEReader) DebugCodeView() ([]byte, error) {
	const imageDirectoryEntryDebug = 6
	var rva, size uint32

	switch oh := r.f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if int(imageDirectoryEntryDebug) >= len(oh.DataDirectory) {
			return nil, &SectionNotFoundError{Format: FormatPE, Name: "IMAGE_DIRECTORY_ENTRY_DEBUG"}
		}
		dd := oh.DataDirectory[imageDirectoryEntryDebug]
		rva, size = dd.VirtualAddress, dd.Size
	case *pe.OptionalHeader64:
		if int(imageDirectoryEntryDebug) >= len(oh.DataDirectory) {
			return nil, &SectionNotFoundError{Format: FormatPE, Name: "IMAGE_DIRECTORY_ENTRY_DEBUG"}
		}
		dd := oh.DataDirectory[imageDirectoryEntryDebug]
		rva, size = dd.VirtualAddress, dd.Size
	default:
		return nil, &ParseError{Format: FormatPE, Cause: errUnsupportedOptionalHeader}
	}
	if rva == 0 || size == 0 {
		return nil, &SectionNotFoundError{Format: FormatPE, Name: "IMAGE_DIRECTORY_ENTRY_DEBUG"}
	}

	for _, s := range r.f.Sections {
		if rva < s.VirtualAddress || rva >= s.VirtualAddress+s.Size {
			continue
		}
		data, err := s.Data()
		if err != nil {
			return nil, &ParseError{Format: FormatPE, Cause: err}
		}
		off := rva - s.VirtualAddress
		if uint64(off)+uint64(size) > uint64(len(data)) {
			return nil, &ParseError{Format: FormatPE, Cause: errDebugDirectoryTruncated}
		}
		return data[off : off+size], nil
	}
	return nil, &SectionNotFoundError{Format: FormatPE, Name: "IMAGE_DIRECTORY_ENTRY_DEBUG"}
}

var errUnsupportedOptionalHeader = sectionlessError("modreader: pe: unrecognized optional header type")
var errDebugDirectoryTruncated = sectionlessError("modreader: pe: debug directory entry extends past its section")
