// Package sysmap reads a target process's virtual-memory layout and
// auxiliary kernel vectors: /proc/<pid>/maps and /proc/<pid>/auxv on
// Linux, the dyld image array on Darwin, and the psapi module list on
// Windows, each folded into the same MemoryRegion/MappingInfo/AuxVector
// shapes so package enum doesn't need to know which OS produced them.
package sysmap

import "fmt"

// MemoryRegion is one contiguous range reported directly by the kernel,
// before any folding. Regions never overlap and are totally ordered by
// Start.
type MemoryRegion struct {
	Start     uint64
	Size      uint64
	Offset    uint64
	Read      bool
	Write     bool
	Exec      bool
	Path      string // may be empty; VDSOPath for the synthetic vdso entry
	IsVDSO    bool
	IsDeleted bool // kernel appended " (deleted)" to the mapped path
}

// End returns the address just past the region.
func (r MemoryRegion) End() uint64 { return r.Start + r.Size }

// VDSOPath is the synthetic path recorded for the injected vdso mapping,
// matching spec.md §4.D's "reserved name" requirement.
const VDSOPath = "[vdso]"

// MappingInfo is a logical module view folded from one or more adjacent
// MemoryRegions that share a path. Start may be biased forward to the
// first executable region; SystemRange always preserves the raw,
// unbiased, kernel-reported extent of the fold.
type MappingInfo struct {
	Start        uint64
	Size         uint64
	FileOffset   uint64
	Name         string
	IsExecutable bool
	SystemStart  uint64
	SystemEnd    uint64
}

// SystemRange returns the unbiased [start, end) the kernel reported for
// this mapping, before any executable-segment bias was applied to Start.
func (m MappingInfo) SystemRange() (uint64, uint64) { return m.SystemStart, m.SystemEnd }

// AuxVector is the process's auxiliary vector, decoded as integer
// key/value pairs.
type AuxVector map[uint64]uint64

// Well-known auxv keys this package and package enum consult directly.
const (
	AT_NULL         = 0
	AT_ENTRY        = 9
	AT_SYSINFO_EHDR = 33
)

// ParseError reports a failure reading or decoding one of the kernel
// files this package consumes.
type ParseError struct {
	Pid    int
	Source string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sysmap: pid %d: %s: %v", e.Pid, e.Source, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
