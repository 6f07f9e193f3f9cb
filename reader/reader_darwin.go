//go:build darwin

package reader

/*
#cgo LDFLAGS: -framework CoreFoundation
#include <mach/mach.h>
#include <mach/mach_vm.h>

static kern_return_t minidump_vm_read_overwrite(mach_port_t task, mach_vm_address_t addr,
                                                 mach_vm_size_t size, void *out, mach_vm_size_t *outSize) {
	return mach_vm_read_overwrite(task, addr, size, (mach_vm_address_t)out, outSize);
}

static kern_return_t minidump_task_for_pid(int pid, mach_port_t *task) {
	return task_for_pid(mach_task_self(), pid, task);
}
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// darwinBackend has a single mechanism, per spec.md §4.A: the kernel
// mach_vm_read_overwrite call, addressed through the task port obtained
// via task_for_pid. There is no fallback tier on Darwin.
type darwinBackend struct {
	task C.mach_port_t
	have bool
}

func newBackend() backend { return &darwinBackend{} }

func (b *darwinBackend) probe(pid int, src uint64, dst []byte) (style, int, error) {
	var task C.mach_port_t
	if kr := C.minidump_task_for_pid(C.int(pid), &task); kr != C.KERN_SUCCESS {
		return styleUnavailable, 0, fmt.Errorf("task_for_pid(%d): kern_return_t %d", pid, int(kr))
	}
	b.task = task
	b.have = true
	n, err := b.vmRead(src, dst)
	if err != nil {
		return styleUnavailable, 0, err
	}
	return styleVirtualMem, n, nil
}

func (b *darwinBackend) read(pid int, st style, src uint64, dst []byte) (int, error) {
	return b.vmRead(src, dst)
}

func (b *darwinBackend) vmRead(src uint64, dst []byte) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	var outSize C.mach_vm_size_t
	kr := C.minidump_vm_read_overwrite(
		b.task,
		C.mach_vm_address_t(src),
		C.mach_vm_size_t(len(dst)),
		unsafe.Pointer(&dst[0]),
		&outSize,
	)
	if kr != C.KERN_SUCCESS {
		return 0, fmt.Errorf("mach_vm_read_overwrite: kern_return_t %d", int(kr))
	}
	return int(outSize), nil
}
