package dump

import (
	"encoding/binary"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// memSink is a growable, seekable in-memory Sink, standing in for a
// real file for the writer-protocol tests.
type memSink struct {
	data []byte
	pos  int64
}

func (s *memSink) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	copy(s.data[s.pos:end], p)
	s.pos = end
	return len(p), nil
}

func (s *memSink) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = s.pos + offset
	case io.SeekEnd:
		newPos = int64(len(s.data)) + offset
	default:
		return 0, fmt.Errorf("bad whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("negative seek position")
	}
	s.pos = newPos
	return newPos, nil
}

func TestWriterFlushesHeaderAndZeroDirectoryFirst(t *testing.T) {
	buf := &Buffer{}
	sink := &memSink{}

	w, err := NewWriter(buf, sink, 2)
	require.NoError(t, err)
	h := header{Magic: headerMagic, Version: headerVersion, StreamCount: 2, DirectoryRVA: w.DirectoryRVA()}
	w.WriteHeader(h)
	require.NoError(t, w.FlushHeaderAndDirectory())

	wantLen := headerSize + 2*dirEntrySize
	require.Len(t, sink.data, wantLen, "expected sink to contain header+directory")
	for i := headerSize; i < wantLen; i++ {
		require.Zerof(t, sink.data[i], "expected all-zero directory before any stream is written, byte %d", i)
	}
}

func TestWriterPatchesDirectoryEntryAfterStream(t *testing.T) {
	buf := &Buffer{}
	sink := &memSink{}

	w, err := NewWriter(buf, sink, 1)
	require.NoError(t, err)
	h := header{Magic: headerMagic, Version: headerVersion, StreamCount: 1, DirectoryRVA: w.DirectoryRVA()}
	w.WriteHeader(h)
	require.NoError(t, w.FlushHeaderAndDirectory())

	body := []byte("stream body bytes")
	entry, err := w.WriteStream(StreamSystemInfo, body)
	require.NoError(t, err)

	slotStart := int(w.DirectoryRVA())
	gotType := binary.LittleEndian.Uint32(sink.data[slotStart : slotStart+4])
	gotSize := binary.LittleEndian.Uint32(sink.data[slotStart+4 : slotStart+8])
	gotRVA := binary.LittleEndian.Uint32(sink.data[slotStart+8 : slotStart+12])

	require.Equal(t, uint32(StreamSystemInfo), gotType, "directory type mismatch")
	require.Equal(t, uint32(len(body)), gotSize, "directory size mismatch")
	require.Equal(t, entry.RVA, gotRVA, "directory rva mismatch")

	gotBody := sink.data[gotRVA : gotRVA+gotSize]
	require.Equal(t, body, gotBody, "stream body bytes at [rva,rva+size)")
}

func TestWriterRejectsOverflow(t *testing.T) {
	buf := &Buffer{}
	sink := &memSink{}

	w, err := NewWriter(buf, sink, 1)
	require.NoError(t, err)
	h := header{Magic: headerMagic, Version: headerVersion, StreamCount: 1, DirectoryRVA: w.DirectoryRVA()}
	w.WriteHeader(h)
	require.NoError(t, w.FlushHeaderAndDirectory())

	_, err = w.WriteStream(StreamSystemInfo, nil)
	require.NoError(t, err)
	_, err = w.WriteStream(StreamException, nil)
	require.Error(t, err, "expected an error writing past the reserved directory capacity")
}

func TestWriterRestoresSinkPositionAfterPatch(t *testing.T) {
	buf := &Buffer{}
	sink := &memSink{}

	w, err := NewWriter(buf, sink, 1)
	require.NoError(t, err)
	h := header{Magic: headerMagic, Version: headerVersion, StreamCount: 1, DirectoryRVA: w.DirectoryRVA()}
	w.WriteHeader(h)
	require.NoError(t, w.FlushHeaderAndDirectory())
	posBefore := sink.pos

	_, err = w.WriteStream(StreamSystemInfo, []byte("abc"))
	require.NoError(t, err)
	require.Equal(t, posBefore+3, sink.pos, "expected sink cursor to end at the end of newly appended bytes")
}
