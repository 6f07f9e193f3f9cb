//go:build linux && 386

package enum

import "syscall"

// checkZeroStackPointer is true on x86/x86_64 per spec.md §4.E.
const checkZeroStackPointer = true

func regSP(regs *syscall.PtraceRegs) uint64 { return uint64(regs.Esp) }
func regPC(regs *syscall.PtraceRegs) uint64 { return uint64(regs.Eip) }
