package dump

import (
	"fmt"
	"io"
)

// Sink is what the writer flushes buffered bytes to: positioned writes
// plus seeking, per spec.md §6's sink contract. Append-only sinks are
// not supported because directory entries must be patched in place
// after the fact.
type Sink interface {
	io.Writer
	io.Seeker
}

// SinkError wraps a failed write or seek against the Sink. Per spec.md
// §7, anything from the dump writer's own bookkeeping (buffer, sink,
// header placement) is fatal; this type lets a caller at the
// minidump package boundary classify it as minidump.KindSinkIoError
// rather than an opaque string.
type SinkError struct {
	Op    string // "write" or "seek"
	Cause error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("dump: sink %s: %v", e.Op, e.Cause)
}

func (e *SinkError) Unwrap() error { return e.Cause }

// Writer drives the directory-patching protocol from spec.md §4.G: for
// each stream, append the body to the in-memory Buffer, compute its
// directory entry, seek the sink to that entry's slot and write it,
// seek back to the end, and flush the newly appended body bytes. The
// header and an all-zero directory are flushed first, so a crash before
// any stream completes still leaves a structurally valid, empty-looking
// dump rather than a truncated one.
type Writer struct {
	buf            *Buffer
	sink           Sink
	sinkStartRVA   int64 // sink's seek offset when this writer began
	flushedThrough uint32
	dirRVA         uint32
	dirCount       uint32
	nextSlot       uint32
}

// NewWriter reserves the header and a directory of streamCount entries
// in buf, and records the sink's current position as the base all
// later directory-slot seeks are relative to (supporting a sink that is
// not positioned at absolute zero, e.g. one shared with other content).
func NewWriter(buf *Buffer, sink Sink, streamCount uint32) (*Writer, error) {
	start, err := sink.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, &SinkError{Op: "seek", Cause: err}
	}

	buf.Reserve(headerSize)
	dirRVA := buf.Reserve(int(streamCount) * dirEntrySize)

	return &Writer{
		buf:          buf,
		sink:         sink,
		sinkStartRVA: start,
		dirRVA:       dirRVA,
		dirCount:     streamCount,
	}, nil
}

// DirectoryRVA returns the RVA of the directory array, for the header.
func (w *Writer) DirectoryRVA() uint32 { return w.dirRVA }

// WriteHeader fills in the reserved header record.
func (w *Writer) WriteHeader(h header) {
	w.buf.WriteAt(0, h.marshal())
}

// FlushHeaderAndDirectory writes the header and the (still all-zero)
// directory array to the sink, per spec.md §4.G step 3: this is the
// first flush, so a reader sees stream_count default-zero directory
// entries but a structurally valid header if the process dies right
// after.
func (w *Writer) FlushHeaderAndDirectory() error {
	return w.flushNewBytes()
}

// WriteStream appends body to the buffer, assigns it the next
// directory slot with the given stream type, patches that slot in the
// sink, and flushes the newly appended body bytes — spec.md §4.G's
// per-stream append/patch/flush protocol.
func (w *Writer) WriteStream(typ StreamType, body []byte) (DirectoryEntry, error) {
	entry := DirectoryEntry{Type: typ, RVA: w.buf.Append(body), Size: uint32(len(body))}
	if err := w.commit(entry); err != nil {
		return DirectoryEntry{}, err
	}
	return entry, nil
}

// WriteStreamNoSlot appends body to the buffer but consumes no
// directory slot: this is how the original's app-memory stream behaves
// (see minidump_writer.rs::generate_dump, which passes None for that
// stream's dirent) — the stream's bytes exist in the dump, but nothing
// in the directory names them directly. It does not flush; the bytes
// reach the sink on the caller's next Flush or WriteStream call.
func (w *Writer) WriteStreamNoSlot(body []byte) {
	w.buf.Append(body)
}

// Flush writes any buffered bytes appended since the last flush to the
// sink, without patching any directory slot. Used after
// WriteStreamNoSlot, and safe to call redundantly.
func (w *Writer) Flush() error {
	return w.flushNewBytes()
}

func (w *Writer) commit(entry DirectoryEntry) error {
	if w.nextSlot >= w.dirCount {
		return fmt.Errorf("dump: directory overflow: %d streams exceeds reserved %d slots", w.nextSlot+1, w.dirCount)
	}
	slotRVA := w.dirRVA + w.nextSlot*dirEntrySize
	w.buf.WriteAt(slotRVA, entry.marshal())
	w.nextSlot++

	curPos, err := w.sink.Seek(0, io.SeekCurrent)
	if err != nil {
		return &SinkError{Op: "seek", Cause: err}
	}
	if _, err := w.sink.Seek(w.sinkStartRVA+int64(slotRVA), io.SeekStart); err != nil {
		return &SinkError{Op: "seek", Cause: err}
	}
	if _, err := w.sink.Write(w.buf.Bytes()[slotRVA : slotRVA+dirEntrySize]); err != nil {
		return &SinkError{Op: "write", Cause: err}
	}
	if _, err := w.sink.Seek(curPos, io.SeekStart); err != nil {
		return &SinkError{Op: "seek", Cause: err}
	}
	return w.flushNewBytes()
}

func (w *Writer) flushNewBytes() error {
	data := w.buf.Bytes()
	if uint32(len(data)) <= w.flushedThrough {
		return nil
	}
	if _, err := w.sink.Write(data[w.flushedThrough:]); err != nil {
		return &SinkError{Op: "write", Cause: err}
	}
	w.flushedThrough = uint32(len(data))
	return nil
}
