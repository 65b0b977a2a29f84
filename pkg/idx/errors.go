package idx

import (
	"errors"
	"fmt"
	"io"
)

// Stream names used in errors.
const (
	StreamImages = "images"
	StreamLabels = "labels"
)

// Errors
var (
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("idx: invalid format")

	// ErrShortRead matches a *ReadError caused by a stream ending early.
	ErrShortRead = errors.New("idx: short read")

	// ErrNilFunc is returned by Decode when no record func is given.
	ErrNilFunc = errors.New("idx: record func may not be nil")

	// ErrRecordCount is returned by Writer.Close when the number of records
	// written differs from the count declared in the header.
	ErrRecordCount = errors.New("idx: record count does not match header")
)

// FormatError reports a header that violates the IDX layout.
type FormatError struct {
	Field    string // "image magic", "label magic" or "count"
	Expected uint32
	Actual   uint32
}

func (e *FormatError) Error() string {
	if e.Field == "count" {
		return fmt.Sprintf("idx: found %d images but %d labels", e.Expected, e.Actual)
	}
	return fmt.Sprintf("idx: expected %s 0x%08x, found 0x%08x", e.Field, e.Expected, e.Actual)
}

// Is reports whether target is ErrFormat.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormat
}

// ReadError reports a failure reading one of the two streams. Index is the
// record being read, or -1 while reading the header.
type ReadError struct {
	Stream string
	Index  int64
	Want   int64
	Got    int64
	Err    error
}

func (e *ReadError) Error() string {
	where := "header"
	if e.Index >= 0 {
		where = fmt.Sprintf("record %d", e.Index)
	}
	if e.short() {
		return fmt.Sprintf("idx: reading %s %s: tried to read %d bytes, but only found %d", e.Stream, where, e.Want, e.Got)
	}
	return fmt.Sprintf("idx: reading %s %s: %v", e.Stream, where, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrShortRead and the stream ended early.
func (e *ReadError) Is(target error) bool {
	return target == ErrShortRead && e.short()
}

func (e *ReadError) short() bool {
	return errors.Is(e.Err, io.ErrUnexpectedEOF)
}

// noEOF converts io.EOF into io.ErrUnexpectedEOF. Any EOF inside the
// declared length of a file is unexpected.
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
