// Package minidump orchestrates a post-mortem process-memory snapshot of a
// running target process: thread register state and stack memory, virtual
// memory mappings, loaded module identities, auxiliary kernel vectors,
// operating-system metadata, and caller-supplied memory regions, written to
// a self-describing binary container of tagged streams.
//
// The concrete minidump stream layouts are treated as an external binary
// schema: this package only knows where streams begin and end, not what is
// inside them beyond the opaque byte slices the stream writers produce.
package minidump

import (
	"errors"
	"fmt"
	"os"

	"github.com/coredump-project/minidump/dump"
	"github.com/coredump-project/minidump/enum"
	"github.com/coredump-project/minidump/modmem"
	"github.com/coredump-project/minidump/modreader"
)

// Kind classifies the failure modes a caller needs to distinguish, per the
// propagation policy: some kinds are swallowed internally (thread
// suspension failures, per-mapping identity failures, per-auxiliary-file
// failures) and never escape to a caller; the rest are fatal.
type Kind int

const (
	KindUnknown Kind = iota
	KindProcessAccessDenied
	KindProcessGone
	KindReadOverflow
	KindReadOutOfBounds
	KindZeroLengthRead
	KindParseFailure
	KindSectionNotFound
	KindModuleNotFound
	KindNoThreadsRemaining
	KindSinkIoError
	KindPrincipalMappingUnreferenced
)

func (k Kind) String() string {
	switch k {
	case KindProcessAccessDenied:
		return "process access denied"
	case KindProcessGone:
		return "process gone"
	case KindReadOverflow:
		return "read overflow"
	case KindReadOutOfBounds:
		return "read out of bounds"
	case KindZeroLengthRead:
		return "zero length read"
	case KindParseFailure:
		return "parse failure"
	case KindSectionNotFound:
		return "section not found"
	case KindModuleNotFound:
		return "module not found"
	case KindNoThreadsRemaining:
		return "no threads remaining"
	case KindSinkIoError:
		return "sink io error"
	case KindPrincipalMappingUnreferenced:
		return "principal mapping unreferenced"
	default:
		return "unknown"
	}
}

// Error is the single structured error type returned to callers. Its
// Error() rendering includes every field relevant to diagnosing a failed
// read or write: the offending pid, source address, offset, length, and
// the underlying OS error where one exists.
type Error struct {
	Kind    Kind
	Format  string // set for KindParseFailure: "elf", "macho", "pe"
	Pid     int
	Address uint64
	Offset  uint64
	Length  uint64
	Cause   error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("minidump: %s", e.Kind)
	if e.Format != "" {
		s += fmt.Sprintf(" (%s)", e.Format)
	}
	if e.Pid != 0 {
		s += fmt.Sprintf(" pid=%d", e.Pid)
	}
	if e.Address != 0 {
		s += fmt.Sprintf(" addr=%#x", e.Address)
	}
	if e.Offset != 0 {
		s += fmt.Sprintf(" offset=%#x", e.Offset)
	}
	if e.Length != 0 {
		s += fmt.Sprintf(" length=%#x", e.Length)
	}
	if e.Cause != nil {
		s += fmt.Sprintf(": %v", e.Cause)
	}
	return s
}

func (e *Error) Unwrap() error { return e.Cause }

// Classify wraps err, returned from any package in this module, into
// the single structured Error spec.md §7 requires callers to receive,
// by recognizing the concrete error types each subpackage already
// defines for the cases it distinguishes (modmem's overflow/bounds/
// zero-length reads, modreader's parse/section failures, enum's
// missing-module and no-threads-remaining conditions, dump's sink
// failures) and mapping each to its Kind. err is preserved as Cause
// either way; if none of the known shapes match, Classify still
// returns an *Error with KindUnknown rather than the raw err, so every
// path out of WriteMinidump yields the same structured type.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}

	var overflow *modmem.OverflowError
	if errors.As(err, &overflow) {
		return &Error{Kind: KindReadOverflow, Cause: err}
	}
	var oob *modmem.OutOfBoundsError
	if errors.As(err, &oob) {
		return &Error{Kind: KindReadOutOfBounds, Offset: oob.Offset, Length: oob.End - oob.Offset, Cause: err}
	}
	var zero *modmem.ZeroLengthReadError
	if errors.As(err, &zero) {
		return &Error{Kind: KindZeroLengthRead, Offset: zero.Offset, Cause: err}
	}
	var parse *modreader.ParseError
	if errors.As(err, &parse) {
		return &Error{Kind: KindParseFailure, Format: string(parse.Format), Cause: err}
	}
	var sectionNotFound *modreader.SectionNotFoundError
	if errors.As(err, &sectionNotFound) {
		return &Error{Kind: KindSectionNotFound, Format: string(sectionNotFound.Format), Cause: err}
	}
	var noModule *enum.ModuleNotFoundError
	if errors.As(err, &noModule) {
		return &Error{Kind: KindModuleNotFound, Cause: err}
	}
	var noThreads *enum.NoThreadsRemainingError
	if errors.As(err, &noThreads) {
		return &Error{Kind: KindNoThreadsRemaining, Pid: noThreads.Pid, Cause: err}
	}
	var sinkErr *dump.SinkError
	if errors.As(err, &sinkErr) {
		return &Error{Kind: KindSinkIoError, Cause: err}
	}
	switch {
	case os.IsPermission(err):
		return &Error{Kind: KindProcessAccessDenied, Cause: err}
	case os.IsNotExist(err):
		return &Error{Kind: KindProcessGone, Cause: err}
	}
	return &Error{Kind: KindUnknown, Cause: err}
}
