//go:build linux && arm64

package enum

import "syscall"

// checkZeroStackPointer is false outside x86/x86_64: spec.md §4.E scopes
// the seccomp-sandbox trusted-code exclusion to those architectures
// only.
const checkZeroStackPointer = false

func regSP(regs *syscall.PtraceRegs) uint64 { return regs.Sp }
func regPC(regs *syscall.PtraceRegs) uint64 { return regs.Pc }
