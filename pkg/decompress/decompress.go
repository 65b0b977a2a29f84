package decompress

import (
	"bufio"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// ErrUnknownFormat is returned when a stream carries no known compression
// signature and passthrough is disabled.
var ErrUnknownFormat = errors.New("unknown compression format")

// Error reports a stream that could not be decompressed.
type Error struct {
	Format Format
	Err    error
}

func (e *Error) Error() string {
	if e.Format == FormatNone {
		return fmt.Sprintf("decompress: %v", e.Err)
	}
	return fmt.Sprintf("decompress: %s: %v", e.Format, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Decompressor turns a raw byte stream into a plain one.
type Decompressor interface {
	Open(r io.Reader) (io.ReadCloser, error)
}

// Option configures an Auto decompressor.
type Option func(*Auto)

// WithPassthrough makes Open return streams without a known signature
// unchanged instead of failing.
func WithPassthrough() Option {
	return func(a *Auto) {
		a.passthrough = true
	}
}

// WithMaxMemory limits the memory a zstd decoder may allocate. Zero means
// no limit.
func WithMaxMemory(n uint64) Option {
	return func(a *Auto) {
		a.maxMemory = n
	}
}

// Auto detects the compression format of a stream from its first bytes.
type Auto struct {
	passthrough bool
	maxMemory   uint64
}

// New creates an Auto decompressor.
func New(opts ...Option) *Auto {
	a := &Auto{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open is shorthand for New(opts...).Open(r).
func Open(r io.Reader, opts ...Option) (io.ReadCloser, error) {
	return New(opts...).Open(r)
}

// Open sniffs r and returns a reader over its decompressed bytes. Closing
// the returned reader releases decoder resources but does not close r.
func (a *Auto) Open(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	prefix, err := br.Peek(magicLen)
	if err != nil && err != io.EOF {
		return nil, &Error{Err: err}
	}

	format := Detect(prefix)
	if format == FormatNone {
		if a.passthrough {
			return io.NopCloser(br), nil
		}
		return nil, &Error{Err: ErrUnknownFormat}
	}

	rc, err := a.open(format, br)
	if err != nil {
		return nil, &Error{Format: format, Err: err}
	}
	return &reader{rc: rc, format: format}, nil
}

func (a *Auto) open(format Format, r io.Reader) (io.ReadCloser, error) {
	switch format {
	case FormatGzip:
		return gzip.NewReader(r)
	case FormatZstd:
		opts := []zstd.DOption{zstd.WithDecoderConcurrency(1)}
		if a.maxMemory != 0 {
			opts = append(opts, zstd.WithDecoderMaxMemory(a.maxMemory))
		}
		dec, err := zstd.NewReader(r, opts...)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case FormatXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case FormatLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case FormatBzip2:
		return io.NopCloser(bzip2.NewReader(r)), nil
	case FormatSnappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	default:
		return nil, ErrUnknownFormat
	}
}

// reader tags mid-stream decoding failures with the container format.
type reader struct {
	rc     io.ReadCloser
	format Format
}

func (r *reader) Read(p []byte) (int, error) {
	n, err := r.rc.Read(p)
	if err != nil && err != io.EOF {
		var de *Error
		if !errors.As(err, &de) {
			err = &Error{Format: r.format, Err: err}
		}
	}
	return n, err
}

func (r *reader) Close() error {
	return r.rc.Close()
}
