// Package minidump ties together the Process Enumerator (package enum)
// and the Dump Writer (package dump) into the single call most callers
// need: attach to a live pid, suspend it, and write a minidump to a
// sink.
//
// Callers who need finer control — custom register fetchers, app-memory
// regions, or their own retry policy around Suspend — should use
// package enum and package dump directly; WriteMinidump is a thin
// convenience wrapper over the same two packages.
package minidump

import (
	"github.com/coredump-project/minidump/dump"
	"github.com/coredump-project/minidump/enum"
	"github.com/coredump-project/minidump/reader"
)

// WriteMinidump suspends pid, captures its threads, modules, and
// mappings, and writes a minidump to sink, resuming pid before
// returning regardless of outcome.
//
// rf supplies the per-OS thread-register read; on Linux,
// dump.LinuxRegisterFetcher() is the ready-made choice. opts configures
// stack sanitization, the per-thread capture budget, and any
// caller-supplied app-memory regions.
// Every error WriteMinidump returns is a *Error (see Classify), so a
// caller can switch on Kind rather than match on message text, per
// spec.md §7's "single structured error" requirement.
func WriteMinidump(sink dump.Sink, pid int, rf dump.RegisterFetcher, opts dump.Options) error {
	e, err := enum.New(pid)
	if err != nil {
		ce := Classify(err)
		ce.Pid = pid
		return ce
	}
	defer e.Close()

	if err := e.Suspend(); err != nil {
		ce := Classify(err)
		ce.Pid = pid
		return ce
	}

	r := reader.New(pid)
	if err := dump.Dump(sink, e, r, rf, opts); err != nil {
		ce := Classify(err)
		ce.Pid = pid
		return ce
	}
	return nil
}
