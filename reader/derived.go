package reader

import "fmt"

// ReadAll reads exactly len(dst) bytes from src, looping over short reads
// (which are not errors from Read) until dst is full or Read returns a
// hard error.
func (r *Reader) ReadAll(src uint64, dst []byte) error {
	for offset := 0; offset < len(dst); {
		n, err := r.Read(src+uint64(offset), dst[offset:])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("reader: ReadAll made no progress at %#x", src+uint64(offset))
		}
		offset += n
	}
	return nil
}

// ReadToVec allocates an n-byte buffer, reads once, and truncates the
// result to however many bytes actually came back. Unlike ReadAll, a
// short read is not an error here: the caller gets back exactly what the
// single underlying Read call produced.
func (r *Reader) ReadToVec(src uint64, n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := r.Read(src, buf)
	if err != nil {
		return nil, err
	}
	return buf[:got], nil
}

// wordSize is the machine word size used for word-at-a-time reads: 8 on
// every architecture this module targets (amd64, arm64).
const wordSize = 8

// CopyNulTerminatedString reads a NUL-terminated byte string starting at
// addr. It first tries to read a word at a time, which is considerably
// faster; if that fails (typically because a word-sized read straddles an
// unreadable page right after the string's final page), it falls back to
// reading one byte at a time. The returned slice includes the trailing
// NUL.
func (r *Reader) CopyNulTerminatedString(addr uint64) ([]byte, error) {
	if s, err := r.copyNulTerminatedStringWordByWord(addr); err == nil {
		return s, nil
	}
	var out []byte
	var c [1]byte
	for {
		if _, err := r.Read(addr+uint64(len(out)), c[:]); err != nil {
			return nil, err
		}
		out = append(out, c[0])
		if c[0] == 0 {
			return out, nil
		}
	}
}

func (r *Reader) copyNulTerminatedStringWordByWord(addr uint64) ([]byte, error) {
	var out []byte
	var word [wordSize]byte
	for {
		n, err := r.Read(addr+uint64(len(out)), word[:])
		if err != nil {
			return nil, err
		}
		chunk := word[:n]
		if idx := indexByte(chunk, 0); idx >= 0 {
			out = append(out, chunk[:idx+1]...)
			return out, nil
		}
		out = append(out, chunk...)
		if n == 0 {
			return nil, fmt.Errorf("reader: word-by-word string copy made no progress at %#x", addr+uint64(len(out)))
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// CopyObject reads exactly size bytes at addr into a newly allocated
// buffer. The caller is responsible for asserting that those bytes form a
// valid value of whatever type they intend to decode them as; this
// function only guarantees the byte count and origin.
func (r *Reader) CopyObject(addr uint64, size int) ([]byte, error) {
	buf := make([]byte, size)
	if err := r.ReadAll(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// CopyArray reads exactly n*elemSize contiguous bytes starting at addr.
func (r *Reader) CopyArray(addr uint64, elemSize, n int) ([]byte, error) {
	return r.CopyObject(addr, elemSize*n)
}
