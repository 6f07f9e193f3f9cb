// Package enum implements the Process Enumerator: it suspends a target
// process, walks its threads and memory mappings, extracts auxiliary
// kernel vectors, and reorders mappings so the principal executable
// occupies index 0, giving the dump writer (package dump) a single
// stable view to drive stream generation from.
package enum

import (
	"fmt"

	"github.com/coredump-project/minidump/sysmap"
)

// ThreadID is an OS-level thread identifier; on Linux it is the same
// integer type as a process ID (/proc/<pid>/task/<tid> entries are
// themselves pids in the kernel's eyes).
type ThreadID int

// Thread is a single retained thread of the target, captured at the
// moment Suspend succeeded for it.
type Thread struct {
	ID ThreadID
	SP uint64
	PC uint64
}

// Enumerator holds the Init-time snapshot (threads, mappings, auxv) plus
// suspend/resume lifecycle state for a single target process.
//
// Callers MUST arrange for Close to run on every path after New succeeds
// — typically `e, err := enum.New(pid); if err != nil { ...}; defer
// e.Close()` — even if Suspend is never called or itself fails, so a
// thread left attached by a partially-successful Suspend is always
// detached. This mirrors the scoped-resource discipline spec.md
// requires instead of a finalizer, which would run at a
// non-deterministic, unbounded-later time.
type Enumerator struct {
	pid       int
	threads   []Thread
	mappings  []sysmap.MappingInfo
	aux       sysmap.AuxVector
	suspended bool

	biased *pageTable4
	raw    *pageTable4
}

// NoThreadsRemainingError reports that every thread of the target either
// vanished or was excluded (seccomp-sandboxed trusted code with a zero
// stack pointer) during Suspend, leaving nothing to dump.
type NoThreadsRemainingError struct {
	Pid int
}

func (e *NoThreadsRemainingError) Error() string {
	return fmt.Sprintf("enum: pid %d: no threads left after suspend", e.Pid)
}

// Pid returns the target process ID this enumerator was built for.
func (e *Enumerator) Pid() int { return e.pid }

// Threads returns the currently retained threads. Before Suspend this is
// every thread found at Init; after a successful Suspend it is only the
// survivors.
func (e *Enumerator) Threads() []Thread { return e.threads }

// Mappings returns the folded mapping list, principal executable first.
func (e *Enumerator) Mappings() []sysmap.MappingInfo { return e.mappings }

// Auxv returns the target's auxiliary vector.
func (e *Enumerator) Auxv() sysmap.AuxVector { return e.aux }

// Suspended reports whether a call to Suspend currently holds the
// target's threads stopped.
func (e *Enumerator) Suspended() bool { return e.suspended }

// FindMapping returns the mapping whose biased [Start, Start+Size) range
// contains addr.
func (e *Enumerator) FindMapping(addr uint64) (*sysmap.MappingInfo, bool) {
	m := find(e.biased, addr)
	return m, m != nil
}

// FindMappingNoBias returns the mapping whose raw, kernel-reported
// [SystemStart, SystemEnd) range contains addr.
func (e *Enumerator) FindMappingNoBias(addr uint64) (*sysmap.MappingInfo, bool) {
	m := find(e.raw, addr)
	return m, m != nil
}

func (e *Enumerator) buildTables() {
	e.biased = newMappingTable()
	e.raw = newMappingTable()
	for i := range e.mappings {
		m := &e.mappings[i]
		add(e.biased, m.Start, m.Start+m.Size, m)
		add(e.raw, m.SystemStart, m.SystemEnd, m)
	}
}

// selectPrincipalMapping implements spec.md §4.E's principal-module
// selection: if AT_ENTRY names an address some mapping covers, that
// mapping is swapped into index 0, matching
// linux_ptrace_dumper.rs::enumerate_mappings's own swap (and the
// rationale a minidump reader assumes mappings[0] is the main
// executable).
func selectPrincipalMapping(mappings []sysmap.MappingInfo, aux sysmap.AuxVector) {
	entry, ok := aux[sysmap.AT_ENTRY]
	if !ok || entry == 0 {
		return
	}
	for i, m := range mappings {
		if entry >= m.Start && entry-m.Start < m.Size {
			mappings[0], mappings[i] = mappings[i], mappings[0]
			return
		}
	}
}
