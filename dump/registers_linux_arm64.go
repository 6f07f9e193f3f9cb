//go:build linux && arm64

package dump

import (
	"encoding/binary"
	"syscall"
)

func archPC(regs *syscall.PtraceRegs) uint64 { return regs.Pc }
func archSP(regs *syscall.PtraceRegs) uint64 { return regs.Sp }

func rawRegs(regs *syscall.PtraceRegs) []byte {
	b := make([]byte, 8*len(regs.Regs)+16)
	for i, f := range regs.Regs {
		binary.LittleEndian.PutUint64(b[i*8:], f)
	}
	binary.LittleEndian.PutUint64(b[8*len(regs.Regs):], regs.Sp)
	binary.LittleEndian.PutUint64(b[8*len(regs.Regs)+8:], regs.Pc)
	return b
}
