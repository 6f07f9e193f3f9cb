package dump

import (
	"bytes"
	"testing"
)

func TestBufferReserveThenWriteAt(t *testing.T) {
	b := &Buffer{}
	rva := b.Reserve(8)
	if rva != 0 {
		t.Fatalf("expected first reservation at rva 0, got %d", rva)
	}
	if b.Position() != 8 {
		t.Fatalf("expected position 8 after reserving 8 bytes, got %d", b.Position())
	}
	b.WriteAt(rva, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	if !bytes.Equal(b.Bytes(), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("WriteAt did not patch reserved bytes: %v", b.Bytes())
	}
}

func TestBufferAppendGrowsAndReturnsRVA(t *testing.T) {
	b := &Buffer{}
	b.Reserve(4)
	rva := b.Append([]byte("hello"))
	if rva != 4 {
		t.Fatalf("expected append rva 4, got %d", rva)
	}
	if b.Position() != 9 {
		t.Fatalf("expected position 9, got %d", b.Position())
	}
	if string(b.Bytes()[4:9]) != "hello" {
		t.Fatalf("unexpected buffer contents: %q", b.Bytes()[4:9])
	}
}
