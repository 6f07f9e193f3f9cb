//go:build linux && amd64

package enum

import "syscall"

// checkZeroStackPointer is true on x86/x86_64 per spec.md §4.E: a zero
// stack pointer there marks a thread executing trusted seccomp-sandbox
// code, which must be excluded from the dump.
const checkZeroStackPointer = true

func regSP(regs *syscall.PtraceRegs) uint64 { return regs.Rsp }
func regPC(regs *syscall.PtraceRegs) uint64 { return regs.Rip }
