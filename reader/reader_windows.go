//go:build windows

package reader

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// windowsBackend has a single mechanism, per spec.md §4.A: ReadProcessMemory
// against a handle opened with PROCESS_VM_READ|PROCESS_QUERY_INFORMATION.
type windowsBackend struct {
	handle windows.Handle
	have   bool
}

func newBackend() backend { return &windowsBackend{} }

func (b *windowsBackend) probe(pid int, src uint64, dst []byte) (style, int, error) {
	h, err := windows.OpenProcess(windows.PROCESS_VM_READ|windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return styleUnavailable, 0, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	b.handle = h
	b.have = true
	n, err := b.vmRead(src, dst)
	if err != nil {
		return styleUnavailable, 0, err
	}
	return styleVirtualMem, n, nil
}

func (b *windowsBackend) read(pid int, st style, src uint64, dst []byte) (int, error) {
	return b.vmRead(src, dst)
}

func (b *windowsBackend) vmRead(src uint64, dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	var read uintptr
	err := windows.ReadProcessMemory(b.handle, uintptr(src), &dst[0], uintptr(len(dst)), &read)
	if err != nil {
		return 0, fmt.Errorf("ReadProcessMemory: %w", err)
	}
	return int(read), nil
}
