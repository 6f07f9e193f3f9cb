package dump

import (
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/coredump-project/minidump/enum"
	"github.com/coredump-project/minidump/sanitize"
	"github.com/coredump-project/minidump/sysmap"
)

// remoteReader is the subset of reader.Reader this package needs,
// declared locally so dump has no compile-time dependency on package
// reader's backend machinery (the same decoupling modmem, sysmap, and
// enum use for their own collaborators).
type remoteReader interface {
	ReadToVec(src uint64, n int) ([]byte, error)
}

// Registers is a minimal, architecture-agnostic view of a thread's
// register state: the two fields every stream body in this package
// actually consumes (PC for display, SP to drive stack capture), plus
// the raw bytes of whatever richer per-OS register structure the
// caller's fetcher produced, carried through opaquely.
type Registers struct {
	PC  uint64
	SP  uint64
	Raw []byte
}

// RegisterFetcher is the per-OS thread-register-fetching collaborator
// spec.md §1 describes as appearing "only as a typed function the dump
// writer calls". The only implementation this package ships is
// LinuxRegisterFetcher, on Linux.
type RegisterFetcher func(tid enum.ThreadID) (Registers, error)

// AppMemoryRegion is one caller-supplied address range to copy into the
// app-memory stream, verbatim from the target.
type AppMemoryRegion struct {
	Start  uint64
	Length uint64
}

// MemoryBlock names one byte range already captured elsewhere (e.g. a
// thread's stack) that should also be listed in the memory-blocks
// stream so readers can locate it without re-deriving it from the
// thread list.
type MemoryBlock struct {
	Start  uint64
	Length uint64
}

// Options configures a single Dump call.
type Options struct {
	// Sanitize redacts likely pointers out of captured thread stacks
	// via package sanitize when true.
	Sanitize bool
	// ByteCap, if non-zero, lets the writer skip per-thread stack
	// captures for threads that do not reference the principal
	// mapping, decided before any stack is written, per spec.md §4.G's
	// size-limit note.
	ByteCap uint64
	// AppMemory lists caller-supplied ranges for the app-memory stream.
	AppMemory []AppMemoryRegion
}

const maxStackCaptureBytes = 32 * 1024

// Dump implements spec.md §4.G's top-level orchestration: header →
// directory reservation → flush → each stream in fixed order, updating
// the directory and flushing after every stream. e must already be
// suspended by the caller (Dump never calls Suspend/Resume itself,
// keeping that lifecycle decision with the caller per package enum's
// scoped-resource discipline).
func Dump(sink Sink, e *enum.Enumerator, r remoteReader, rf RegisterFetcher, opts Options) error {
	buf := &Buffer{}

	const numDirectorySlots = 13
	w, err := NewWriter(buf, sink, numDirectorySlots)
	if err != nil {
		return err
	}

	h := header{
		Magic:       headerMagic,
		Version:     headerVersion,
		StreamCount: numDirectorySlots,
		// DirectoryRVA filled in below once the writer has computed it.
		TimeDateStampS: uint32(time.Now().Unix()),
	}
	h.DirectoryRVA = w.DirectoryRVA()
	w.WriteHeader(h)
	if err := w.FlushHeaderAndDirectory(); err != nil {
		return err
	}

	var sanitizer *sanitize.Sanitizer
	if opts.Sanitize {
		sanitizer = sanitize.New(e.Mappings())
	}

	if _, err := writeThreadList(w, e, r, rf, sanitizer, opts); err != nil {
		return err
	}
	if _, err := writeModuleList(w, e, r); err != nil {
		return err
	}
	writeAppMemory(w, opts.AppMemory, r)
	if err := w.Flush(); err != nil {
		return err
	}
	if _, err := writeMemoryList(w, e, opts); err != nil {
		return err
	}
	if _, err := writeException(w); err != nil {
		return err
	}
	if _, err := writeSystemInfo(w); err != nil {
		return err
	}

	blamed := blamedThread(e)
	if _, err := writeFileCapture(w, "/proc/cpuinfo", StreamLinuxCPUInfo); err != nil {
		return err
	}
	if _, err := writeFileCapture(w, fmt.Sprintf("/proc/%d/status", blamed), StreamLinuxProcStat); err != nil {
		return err
	}
	if _, err := writeLSBRelease(w); err != nil {
		return err
	}
	if _, err := writeFileCapture(w, fmt.Sprintf("/proc/%d/cmdline", blamed), StreamLinuxCmdLine); err != nil {
		return err
	}
	if _, err := writeFileCapture(w, fmt.Sprintf("/proc/%d/environ", blamed), StreamLinuxEnviron); err != nil {
		return err
	}
	if _, err := writeFileCapture(w, fmt.Sprintf("/proc/%d/auxv", blamed), StreamLinuxAuxv); err != nil {
		return err
	}
	if _, err := writeFileCapture(w, fmt.Sprintf("/proc/%d/maps", blamed), StreamLinuxMaps); err != nil {
		return err
	}
	if _, err := writeDSODebugStream(w, e); err != nil {
		return err
	}
	return nil
}

func blamedThread(e *enum.Enumerator) int {
	threads := e.Threads()
	if len(threads) == 0 {
		return e.Pid()
	}
	return int(threads[0].ID)
}

// writeThreadList emits stream 1: per-thread register state plus a
// stack slice, sanitized if requested.
func writeThreadList(w *Writer, e *enum.Enumerator, r remoteReader, rf RegisterFetcher, s *sanitize.Sanitizer, opts Options) (DirectoryEntry, error) {
	threads := e.Threads()

	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, uint32(len(threads)))

	principal := e.Mappings()
	var principalMapping *struct{ Start, End uint64 }
	if len(principal) > 0 {
		principalMapping = &struct{ Start, End uint64 }{principal[0].Start, principal[0].Start + principal[0].Size}
	}

	for _, t := range threads {
		regs, err := rf(t.ID)
		if err != nil {
			regs = Registers{}
		}

		skipStack := false
		if opts.ByteCap > 0 && principalMapping != nil {
			skipStack = regs.SP < principalMapping.Start || regs.SP >= principalMapping.End
		}

		var stack []byte
		var stackStart uint64
		if !skipStack {
			start, length, ok := e.StackInfo(regs.SP)
			if ok {
				if length > maxStackCaptureBytes {
					length = maxStackCaptureBytes
				}
				if captured, err := r.ReadToVec(start, int(length)); err == nil {
					stack = captured
					stackStart = start
				}
			}
		}
		if s != nil && len(stack) > 0 {
			spOffset := int(regs.SP - stackStart)
			if spOffset < 0 {
				spOffset = 0
			}
			s.Sanitize(stack, e, regs.SP, spOffset)
		}

		entry := make([]byte, 4+8+8+8+8+4+len(regs.Raw)+len(stack))
		binary.LittleEndian.PutUint32(entry[0:4], uint32(t.ID))
		binary.LittleEndian.PutUint64(entry[4:12], regs.PC)
		binary.LittleEndian.PutUint64(entry[12:20], regs.SP)
		binary.LittleEndian.PutUint64(entry[20:28], stackStart)
		binary.LittleEndian.PutUint64(entry[28:36], uint64(len(stack)))
		binary.LittleEndian.PutUint32(entry[36:40], uint32(len(regs.Raw)))
		copy(entry[40:], regs.Raw)
		copy(entry[40+len(regs.Raw):], stack)
		body = append(body, entry...)
	}

	return w.WriteStream(StreamThreadList, body)
}

// writeModuleList emits stream 2: the mapping table with build
// identities resolved through package enum's route into §4.C.
func writeModuleList(w *Writer, e *enum.Enumerator, r remoteReader) (DirectoryEntry, error) {
	mappings := e.Mappings()

	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, uint32(len(mappings)))

	for i, m := range mappings {
		id, _ := e.BuildIdentityForMapping(i, r) // failure -> empty identity, per spec.md §7

		name := []byte(m.Name)
		entry := make([]byte, 8+8+4+4+len(name)+len(id))
		binary.LittleEndian.PutUint64(entry[0:8], m.Start)
		binary.LittleEndian.PutUint64(entry[8:16], m.Size)
		binary.LittleEndian.PutUint32(entry[16:20], uint32(len(name)))
		binary.LittleEndian.PutUint32(entry[20:24], uint32(len(id)))
		copy(entry[24:], name)
		copy(entry[24+len(name):], id)
		body = append(body, entry...)
	}

	return w.WriteStream(StreamModuleList, body)
}

// writeAppMemory emits the caller-supplied memory ranges. Per the
// original's own generate_dump (which passes None as this stream's
// dirent), this consumes no directory slot: its bytes exist in the
// dump but are not named by the directory.
func writeAppMemory(w *Writer, regions []AppMemoryRegion, r remoteReader) {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, uint32(len(regions)))

	for _, reg := range regions {
		data, err := r.ReadToVec(reg.Start, int(reg.Length))
		if err != nil {
			data = nil
		}
		entry := make([]byte, 8+4+len(data))
		binary.LittleEndian.PutUint64(entry[0:8], reg.Start)
		binary.LittleEndian.PutUint32(entry[8:12], uint32(len(data)))
		copy(entry[12:], data)
		body = append(body, entry...)
	}
	w.WriteStreamNoSlot(body)
}

// writeMemoryList emits stream 4: a directory of named memory blocks
// already captured by the thread-list stream (stacks), so a reader can
// enumerate captured regions without re-deriving them.
func writeMemoryList(w *Writer, e *enum.Enumerator, opts Options) (DirectoryEntry, error) {
	threads := e.Threads()
	body := make([]byte, 4)
	binary.LittleEndian.PutUint32(body, uint32(len(threads)))
	for _, t := range threads {
		entry := make([]byte, 16)
		binary.LittleEndian.PutUint64(entry[0:8], t.SP)
		binary.LittleEndian.PutUint64(entry[8:16], 0) // length unknown here; reader cross-references the thread-list stream
		body = append(body, entry...)
	}
	return w.WriteStream(StreamMemoryList, body)
}

// writeException emits stream 5. Exception recording is reserved: this
// implementation has no fault-context source to populate it from, so
// the body is an empty, well-formed placeholder.
func writeException(w *Writer) (DirectoryEntry, error) {
	return w.WriteStream(StreamException, nil)
}

// writeSystemInfo emits stream 6: a minimal OS/arch identification
// record, independent of the target process.
func writeSystemInfo(w *Writer) (DirectoryEntry, error) {
	body := []byte(fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH))
	return w.WriteStream(StreamSystemInfo, body)
}

// maxFileCaptureBytes matches spec.md §4.G's 1008-byte cap: 1024 minus
// two machine words of bookkeeping overhead the original reserved.
const maxFileCaptureBytes = 1024 - 2*8

// writeFileCapture reads up to maxFileCaptureBytes of path and writes
// it as a raw-blob stream. A read failure yields a default-zeroed
// directory entry for that stream, per spec.md §7, so the slot is still
// present but empty.
func writeFileCapture(w *Writer, path string, typ StreamType) (DirectoryEntry, error) {
	data, err := readCapped(path, maxFileCaptureBytes)
	if err != nil {
		return w.WriteStream(typ, nil)
	}
	return w.WriteStream(typ, data)
}

// writeLSBRelease captures /etc/lsb-release, falling back to
// /etc/os-release, matching minidump_writer.rs::generate_dump's own
// `.or_else` fallback for the same stream.
func writeLSBRelease(w *Writer) (DirectoryEntry, error) {
	data, err := readCapped("/etc/lsb-release", maxFileCaptureBytes)
	if err != nil {
		data, err = readCapped("/etc/os-release", maxFileCaptureBytes)
	}
	if err != nil {
		return w.WriteStream(StreamLinuxLSBRel, nil)
	}
	return w.WriteStream(StreamLinuxLSBRel, data)
}

func readCapped(path string, limit int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, limit)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return nil, err
	}
	return buf[:n], nil
}

// writeDSODebugStream emits stream 8: the dynamic-linker debug record.
// The original's dso_debug module cross-references live r_debug state
// inside the target via AT_PHDR/the loader's link map; absent that
// collaborator here, this records the auxv-derived fields a reader
// would otherwise need to locate it manually.
func writeDSODebugStream(w *Writer, e *enum.Enumerator) (DirectoryEntry, error) {
	aux := e.Auxv()
	body := make([]byte, 16)
	binary.LittleEndian.PutUint64(body[0:8], aux[sysmap.AT_ENTRY])
	binary.LittleEndian.PutUint64(body[8:16], aux[sysmap.AT_SYSINFO_EHDR])
	return w.WriteStream(StreamLinuxDSODebug, body)
}
