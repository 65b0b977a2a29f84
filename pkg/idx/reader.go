package idx

import (
	"bufio"
	"bytes"
	"io"
	"iter"
	"math"

	"github.com/ssargent/mnistidx/pkg/codec"
)

const (
	defaultImageBufferSize = 64 * 1024
	defaultLabelBufferSize = 4 * 1024

	// Pixel blocks above this size are filled incrementally so that a
	// corrupt dimension header fails on the short read, not on allocation.
	defaultEagerLimit = 1 << 20
)

// Option configures a Reader.
type Option func(*readerConfig)

type readerConfig struct {
	imageBufferSize int
	labelBufferSize int
	eagerLimit      uint64
}

// WithBufferSize sets the read buffer size used for the image stream.
func WithBufferSize(n int) Option {
	return func(c *readerConfig) {
		if n > 0 {
			c.imageBufferSize = n
		}
	}
}

// WithEagerLimit sets the largest pixel block that is allocated up front.
func WithEagerLimit(n uint64) Option {
	return func(c *readerConfig) {
		c.eagerLimit = n
	}
}

// RecordIterator provides streaming access to records
type RecordIterator interface {
	Next() bool
	Record() codec.Record
	Err() error
	Close() error
}

// byteStream is a stream that can be read one byte at a time without an
// extra buffer.
type byteStream interface {
	io.Reader
	io.ByteReader
}

// buffered returns r itself when it already reads byte-wise, so that no
// byte past the last record is consumed. Other streams get a bufio.Reader.
func buffered(r io.Reader, size int) byteStream {
	if bs, ok := r.(byteStream); ok {
		return bs
	}
	return bufio.NewReaderSize(r, size)
}

// Reader provides sequential access to the records of an image/label
// stream pair. It holds at most one pixel block at a time and never closes
// the underlying streams.
//
// Streams implementing io.ByteReader, such as *bytes.Reader and
// *bufio.Reader, are left positioned right after the last record. Other
// streams are wrapped in a buffer and may be read ahead of it.
type Reader struct {
	images     byteStream
	labels     byteStream
	header     Header
	next       uint32
	eagerLimit uint64
	err        error
}

// NewReader validates both headers and returns a Reader positioned at the
// first record.
func NewReader(images, labels io.Reader, opts ...Option) (*Reader, error) {
	cfg := readerConfig{
		imageBufferSize: defaultImageBufferSize,
		labelBufferSize: defaultLabelBufferSize,
		eagerLimit:      defaultEagerLimit,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Reader{
		images:     buffered(images, cfg.imageBufferSize),
		labels:     buffered(labels, cfg.labelBufferSize),
		eagerLimit: cfg.eagerLimit,
	}

	header, err := readHeaders(r.images, r.labels)
	if err != nil {
		return nil, err
	}
	r.header = header
	return r, nil
}

// Header returns the validated header shared by both streams.
func (r *Reader) Header() Header {
	return r.header
}

// Remaining returns the number of records not yet read.
func (r *Reader) Remaining() uint32 {
	return r.header.Count - r.next
}

// Next reads the next record. It returns io.EOF after the last record.
// Errors are sticky: once Next fails it keeps returning the same error.
func (r *Reader) Next() (codec.Record, error) {
	if r.err != nil {
		return codec.Record{}, r.err
	}
	if r.next >= r.header.Count {
		r.err = io.EOF
		return codec.Record{}, r.err
	}

	label, err := r.labels.ReadByte()
	if err != nil {
		return r.fail(&ReadError{Stream: StreamLabels, Index: int64(r.next), Want: 1, Err: noEOF(err)})
	}

	pixels, err := r.readPixels()
	if err != nil {
		return r.fail(err)
	}

	record, err := codec.NewRecord(r.next, label, r.header.Rows, r.header.Cols, pixels)
	if err != nil {
		return r.fail(err)
	}
	r.next++
	return record, nil
}

func (r *Reader) fail(err error) (codec.Record, error) {
	r.err = err
	return codec.Record{}, err
}

func (r *Reader) readPixels() ([]byte, error) {
	size := r.header.ImageSize()
	if size <= r.eagerLimit {
		pixels := make([]byte, size)
		n, err := io.ReadFull(r.images, pixels)
		if err != nil {
			return nil, &ReadError{Stream: StreamImages, Index: int64(r.next), Want: int64(size), Got: int64(n), Err: noEOF(err)}
		}
		return pixels, nil
	}

	want := int64(math.MaxInt64)
	if size < math.MaxInt64 {
		want = int64(size)
	}
	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r.images, want)
	if err != nil {
		return nil, &ReadError{Stream: StreamImages, Index: int64(r.next), Want: want, Got: n, Err: noEOF(err)}
	}
	return buf.Bytes(), nil
}

// Iterator returns a streaming iterator for records
func (r *Reader) Iterator() RecordIterator {
	return &recordIterator{reader: r}
}

// All returns a sequence over the remaining records. Iteration stops after
// the first error, which is yielded with a zero record.
func (r *Reader) All() iter.Seq2[codec.Record, error] {
	return func(yield func(codec.Record, error) bool) {
		for {
			record, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(record, err) || err != nil {
				return
			}
		}
	}
}

// recordIterator implements RecordIterator for streaming access
type recordIterator struct {
	reader *Reader
	record codec.Record
	err    error
}

func (it *recordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.record, it.err = it.reader.Next()
	return it.err == nil
}

func (it *recordIterator) Record() codec.Record {
	return it.record
}

func (it *recordIterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

func (it *recordIterator) Close() error {
	// Don't close the underlying streams as they're owned by the caller
	return nil
}
