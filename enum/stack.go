package enum

const (
	pageSize = 4096

	// maxStackCapture caps how much stack the dump writer copies per
	// thread, per spec.md §4.G's stack capture policy.
	maxStackCapture = 32 * 1024
)

// StackInfo returns the page-aligned address to start copying from and
// the number of bytes to copy for a thread whose stack pointer is sp,
// matching linux_ptrace_dumper.rs::get_stack_info: align sp down to a
// page boundary, then capture up to maxStackCapture bytes or whatever
// remains of the containing mapping, whichever is smaller.
func (e *Enumerator) StackInfo(sp uint64) (start uint64, length uint64, ok bool) {
	aligned := sp &^ (pageSize - 1)
	m, found := e.FindMapping(aligned)
	if !found {
		return 0, 0, false
	}
	remaining := (m.Start + m.Size) - aligned
	length = remaining
	if length > maxStackCapture {
		length = maxStackCapture
	}
	return aligned, length, true
}
