// Package dump implements the Dump Writer: it drives package enum to
// walk a suspended target, composes caller-supplied memory regions and
// captured stacks, and emits a tagged-stream binary container whose
// header and directory are flushed before any stream body, so a crash
// mid-write still leaves a structurally parseable file.
//
// The exact minidump wire schema for each stream's payload is an
// external collaborator (spec.md §1 lists it as out of scope); this
// package defines its own compact, documented encodings for stream
// bodies so the directory bookkeeping, flush-ordering, and
// crash-survivability invariants are fully exercised and testable.
package dump

import "encoding/binary"

const (
	headerMagic   uint32 = 0x504d444d // "MDMP", arbitrary but stable
	headerVersion uint32 = 1
	headerSize           = 32
	dirEntrySize         = 12
)

// StreamType tags a directory entry's payload kind.
type StreamType uint32

const (
	StreamThreadList    StreamType = 1
	StreamModuleList    StreamType = 2
	StreamMemoryList    StreamType = 4
	StreamException     StreamType = 5
	StreamSystemInfo    StreamType = 6
	StreamLinuxCPUInfo  StreamType = 7
	StreamLinuxProcStat StreamType = 8
	StreamLinuxLSBRel   StreamType = 9
	StreamLinuxCmdLine  StreamType = 10
	StreamLinuxEnviron  StreamType = 11
	StreamLinuxAuxv     StreamType = 12
	StreamLinuxMaps     StreamType = 13
	StreamLinuxDSODebug StreamType = 14
)

// header is the fixed 32-byte leading record: magic, version, stream
// count, directory rva, checksum (always zero), unix timestamp, flags.
type header struct {
	Magic           uint32
	Version         uint32
	StreamCount     uint32
	DirectoryRVA    uint32
	Checksum        uint32
	TimeDateStampS  uint32
	Flags           uint32
	reservedPadding uint32 // pads the struct to a round 32 bytes
}

func (h header) marshal() []byte {
	b := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.StreamCount)
	binary.LittleEndian.PutUint32(b[12:16], h.DirectoryRVA)
	binary.LittleEndian.PutUint32(b[16:20], h.Checksum)
	binary.LittleEndian.PutUint32(b[20:24], h.TimeDateStampS)
	binary.LittleEndian.PutUint32(b[24:28], h.Flags)
	binary.LittleEndian.PutUint32(b[28:32], h.reservedPadding)
	return b
}

// DirectoryEntry is one fixed-size slot in the directory array:
// { type: u32, size: u32, rva: u32 }.
type DirectoryEntry struct {
	Type StreamType
	RVA  uint32
	Size uint32
}

func (d DirectoryEntry) marshal() []byte {
	b := make([]byte, dirEntrySize)
	binary.LittleEndian.PutUint32(b[0:4], uint32(d.Type))
	binary.LittleEndian.PutUint32(b[4:8], d.Size)
	binary.LittleEndian.PutUint32(b[8:12], d.RVA)
	return b
}
