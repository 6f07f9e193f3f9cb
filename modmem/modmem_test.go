package modmem

import (
	"bytes"
	"testing"
)

func TestSliceRead(t *testing.T) {
	buf := []byte("0123456789")
	m := FromSlice(buf)

	got, err := m.Read(2, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte("2345")) {
		t.Fatalf("got %q", got)
	}

	if _, err := m.Read(8, 10); err == nil {
		t.Fatalf("expected out-of-bounds error")
	}

	if _, err := m.Read(1<<63, 1<<63); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestSliceIdentityAddressing(t *testing.T) {
	m := FromSlice([]byte("x"))
	rel, ok := m.AbsoluteToRelative(0x1234)
	if !ok || rel != 0x1234 {
		t.Fatalf("identity mapping broken: %#x, %v", rel, ok)
	}
	abs, ok := m.RelativeToAbsolute(0x1234)
	if !ok || abs != 0x1234 {
		t.Fatalf("identity mapping broken: %#x, %v", abs, ok)
	}
}

type fakeReader struct {
	data map[uint64][]byte
}

func (f *fakeReader) ReadToVec(src uint64, n int) ([]byte, error) {
	b, ok := f.data[src]
	if !ok {
		return nil, errNotFound
	}
	if n < len(b) {
		b = b[:n]
	}
	return b, nil
}

var errNotFound = &notFoundError{}

type notFoundError struct{}

func (*notFoundError) Error() string { return "not found" }

func TestRemoteAddressing(t *testing.T) {
	fr := &fakeReader{data: map[uint64][]byte{0x2000: []byte("hdr!")}}
	m := FromProcess(fr, 0x1000)

	if !m.IsRemote() {
		t.Fatalf("expected remote view")
	}

	got, err := m.Read(0x1000, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hdr!" {
		t.Fatalf("got %q", got)
	}

	if _, err := m.Read(0, 0); err == nil {
		t.Fatalf("expected zero-length remote read to be an error")
	}

	rel, ok := m.AbsoluteToRelative(0x1010)
	if !ok || rel != 0x10 {
		t.Fatalf("AbsoluteToRelative: %#x, %v", rel, ok)
	}
	if _, ok := m.AbsoluteToRelative(0x10); ok {
		t.Fatalf("expected underflow to be rejected")
	}

	abs, ok := m.RelativeToAbsolute(0x10)
	if !ok || abs != 0x1010 {
		t.Fatalf("RelativeToAbsolute: %#x, %v", abs, ok)
	}
}

func TestReadAtImplementsIoReaderAt(t *testing.T) {
	m := FromSlice([]byte("goodbye"))
	buf := make([]byte, 3)
	n, err := m.ReadAt(buf, 4)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 3 || string(buf) != "bye" {
		t.Fatalf("got %q (%d)", buf, n)
	}
}
