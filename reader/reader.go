// Package reader implements the uniform process-memory reader: copying
// arbitrary byte ranges out of a foreign process's address space,
// negotiating the best available OS mechanism the first time it is used
// and caching that choice for every subsequent read.
//
// A Reader carries no other mutable state once its backend is chosen, and
// is safe to share across goroutines only if the chosen backend is; see
// the per-OS notes on Reader for the concurrency discipline of each
// backend.
package reader

import (
	"fmt"
	"sync"
)

// style names the OS mechanism a Reader has committed to using. The zero
// value is styleUninit; a Reader transitions out of styleUninit exactly
// once, on its first Read call.
type style int

const (
	styleUninit style = iota
	styleVirtualMem
	styleProcMem
	stylePtrace
	styleUnavailable
)

func (s style) String() string {
	switch s {
	case styleVirtualMem:
		return "process_vm_readv"
	case styleProcMem:
		return "/proc/<pid>/mem"
	case stylePtrace:
		return "PTRACE_PEEKDATA"
	case styleUnavailable:
		return "unavailable"
	default:
		return "uninitialized"
	}
}

// probeErrors records the distinct failure from each backend tried during
// the one-time probe, so that a reader that never initializes can report
// all three causes rather than just the last one tried.
type probeErrors struct {
	vmem, procMem, ptrace error
}

func (p *probeErrors) Error() string {
	return fmt.Sprintf("process_vm_readv: %v, /proc/<pid>/mem: %v, ptrace: %v", p.vmem, p.procMem, p.ptrace)
}

// Reader copies bytes out of a single target process. It begins
// uninitialized: the first call to Read probes the available backends in
// descending order of speed and commits to the winner for the lifetime of
// the Reader. All later reads use that backend unconditionally, even if
// it would now fail faster than an untried one.
type Reader struct {
	pid int

	once  sync.Once
	style style
	err   error // non-nil only when style == styleUnavailable

	backend backend
}

// backend is the platform-specific machinery a Reader drives once it has
// committed to a style. Each OS file in this package supplies exactly one
// implementation of probe.
type backend interface {
	// probe attempts every mechanism this platform supports, in descending
	// order of speed, returning the style that succeeded and performing
	// the requested read as a side effect (so the probing read is not
	// wasted). If every mechanism fails, it returns styleUnavailable and a
	// *probeErrors (on Linux) or a single wrapped OS error (Darwin/Windows,
	// which have only one mechanism to begin with).
	probe(pid int, src uint64, dst []byte) (style, int, error)

	// read performs a read using the previously committed style. Called
	// only after probe has run once.
	read(pid int, st style, src uint64, dst []byte) (int, error)
}

// New creates a Reader for the given process id. The reader begins
// uninitialized; no OS resources are acquired until the first Read.
func New(pid int) *Reader {
	return &Reader{pid: pid, backend: newBackend()}
}

// Pid returns the target process id this reader reads from.
func (r *Reader) Pid() int { return r.pid }

// Style returns a human-readable name for the backend this reader has
// committed to, or "uninitialized" if Read has not yet been called.
func (r *Reader) Style() string { return r.style.String() }

// Read copies up to len(dst) bytes from address src in the target
// process into dst, returning the number of bytes actually read. A short
// read is not itself an error; see ReadAll for a loop that insists on
// filling dst.
//
// On the first call, Read probes the available backends in descending
// order of speed and commits to the first one that succeeds; every
// subsequent call uses that backend unconditionally. If every backend
// fails during the probe, the reader transitions to "unavailable" and
// every future Read fails with the same underlying cause.
func (r *Reader) Read(src uint64, dst []byte) (int, error) {
	var n int
	var err error
	var probed bool
	r.once.Do(func() {
		r.style, n, err = r.backend.probe(r.pid, src, dst)
		if r.style == styleUnavailable {
			r.err = err
		}
		probed = true
	})
	if probed {
		return n, err
	}
	if r.style == styleUnavailable {
		return 0, r.err
	}
	return r.backend.read(r.pid, r.style, src, dst)
}
