//go:build linux

package dump

import (
	"fmt"
	"syscall"

	"github.com/coredump-project/minidump/enum"
)

// LinuxRegisterFetcher returns a RegisterFetcher that reads a thread's
// current register state via PTRACE_GETREGS. The thread must already be
// ptrace-stopped (i.e. package enum's Suspend must have succeeded for
// it) — this is the per-OS thread-register-fetching helper spec.md §1
// treats as an external collaborator the dump writer merely calls.
func LinuxRegisterFetcher() RegisterFetcher {
	return func(tid enum.ThreadID) (Registers, error) {
		var regs syscall.PtraceRegs
		if err := syscall.PtraceGetRegs(int(tid), &regs); err != nil {
			return Registers{}, fmt.Errorf("dump: PtraceGetRegs(%d): %w", tid, err)
		}
		return Registers{PC: archPC(&regs), SP: archSP(&regs), Raw: rawRegs(&regs)}, nil
	}
}
