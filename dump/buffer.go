package dump

// Buffer is an in-memory growable byte buffer with a cursor, the Go
// rendering of the original's Cursor<Vec<u8>> DumpBuf: the writer
// appends stream bodies here, and positions recorded into directory
// entries are offsets ("RVA"s) into this buffer.
type Buffer struct {
	data []byte
}

// Position returns the current write cursor, always equal to len(data)
// since Buffer only ever grows by appending.
func (b *Buffer) Position() uint32 { return uint32(len(b.data)) }

// Reserve appends n zero bytes and returns the RVA at which they start,
// for fixed-size records (the header, the directory array) whose
// contents are filled in after the fact via WriteAt.
func (b *Buffer) Reserve(n int) uint32 {
	rva := b.Position()
	b.data = append(b.data, make([]byte, n)...)
	return rva
}

// Append writes p at the current cursor and returns the RVA it starts
// at, growing the buffer by len(p).
func (b *Buffer) Append(p []byte) uint32 {
	rva := b.Position()
	b.data = append(b.data, p...)
	return rva
}

// WriteAt overwrites len(p) bytes starting at rva, which must lie
// entirely within previously Reserve'd or Append'd space.
func (b *Buffer) WriteAt(rva uint32, p []byte) {
	copy(b.data[rva:int(rva)+len(p)], p)
}

// Bytes returns the buffer's current contents. The returned slice is a
// view, not a copy; callers must not retain it across further writes.
func (b *Buffer) Bytes() []byte { return b.data }
