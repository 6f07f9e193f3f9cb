//go:build linux && amd64

package dump

import (
	"encoding/binary"
	"syscall"
)

func archPC(regs *syscall.PtraceRegs) uint64 { return regs.Rip }
func archSP(regs *syscall.PtraceRegs) uint64 { return regs.Rsp }

// rawRegs gives the thread-list stream a byte-exact copy of the general
// purpose registers beyond PC/SP, for readers that want more than this
// package's own minimal Registers view exposes.
func rawRegs(regs *syscall.PtraceRegs) []byte {
	fields := []uint64{
		regs.R15, regs.R14, regs.R13, regs.R12, regs.Rbp, regs.Rbx,
		regs.R11, regs.R10, regs.R9, regs.R8, regs.Rax, regs.Rcx,
		regs.Rdx, regs.Rsi, regs.Rdi, regs.Rip, regs.Rsp,
	}
	b := make([]byte, 8*len(fields))
	for i, f := range fields {
		binary.LittleEndian.PutUint64(b[i*8:], f)
	}
	return b
}
