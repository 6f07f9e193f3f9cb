package reader

import (
	"bytes"
	"os"
	"testing"
	"unsafe"
)

// TestReadSelf exercises the real backend probe against the test binary's
// own process, which is always readable regardless of which backend wins.
func TestReadSelf(t *testing.T) {
	if testing.Short() {
		t.Skip("reads live process memory")
	}
	value := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	addr := uint64(uintptr(unsafe.Pointer(&value[0])))

	r := New(os.Getpid())
	got, err := r.ReadToVec(addr, len(value))
	if err != nil {
		t.Fatalf("ReadToVec: %v", err)
	}
	if !bytes.Equal(got, value[:]) {
		t.Fatalf("got %v, want %v", got, value[:])
	}
	if r.Style() == "uninitialized" {
		t.Fatalf("expected a committed style after a successful read")
	}
}

func TestReadAllShortReads(t *testing.T) {
	if testing.Short() {
		t.Skip("reads live process memory")
	}
	var buf [4096]byte
	for i := range buf {
		buf[i] = byte(i)
	}
	addr := uint64(uintptr(unsafe.Pointer(&buf[0])))

	r := New(os.Getpid())
	dst := make([]byte, len(buf))
	if err := r.ReadAll(addr, dst); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(dst, buf[:]) {
		t.Fatalf("content mismatch")
	}
}

func TestCopyNulTerminatedString(t *testing.T) {
	if testing.Short() {
		t.Skip("reads live process memory")
	}
	s := append([]byte("hello, minidump"), 0)
	addr := uint64(uintptr(unsafe.Pointer(&s[0])))

	r := New(os.Getpid())
	got, err := r.CopyNulTerminatedString(addr)
	if err != nil {
		t.Fatalf("CopyNulTerminatedString: %v", err)
	}
	if !bytes.Equal(got, s) {
		t.Fatalf("got %q, want %q", got, s)
	}
}

func TestCopyObjectAndArray(t *testing.T) {
	if testing.Short() {
		t.Skip("reads live process memory")
	}
	type point struct{ X, Y int64 }
	pts := [3]point{{1, 2}, {3, 4}, {5, 6}}
	addr := uint64(uintptr(unsafe.Pointer(&pts[0])))

	r := New(os.Getpid())
	raw, err := r.CopyArray(addr, int(unsafe.Sizeof(point{})), len(pts))
	if err != nil {
		t.Fatalf("CopyArray: %v", err)
	}
	if len(raw) != len(pts)*int(unsafe.Sizeof(point{})) {
		t.Fatalf("unexpected length %d", len(raw))
	}
}
