//go:build linux

package minidump

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coredump-project/minidump/dump"
	"github.com/coredump-project/minidump/enum"
)

type discardSink struct{ *bytes.Buffer }

func (discardSink) Seek(offset int64, whence int) (int64, error) { return 0, nil }

func TestWriteMinidumpFailsForNonexistentProcess(t *testing.T) {
	// A pid this large should never be live; enum.New's auxv read is the
	// first thing that fails, before any thread is ever touched.
	const bogusPid = 1 << 30

	sink := discardSink{&bytes.Buffer{}}
	rf := func(enum.ThreadID) (dump.Registers, error) { return dump.Registers{}, io.EOF }

	err := WriteMinidump(sink, bogusPid, rf, dump.Options{})
	require.Error(t, err, "expected WriteMinidump to fail for a pid with no corresponding process")

	var mdErr *Error
	require.ErrorAs(t, err, &mdErr, "WriteMinidump must return the structured Error type")
	require.Equal(t, bogusPid, mdErr.Pid)
}
