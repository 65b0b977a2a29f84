package idx

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/ssargent/mnistidx/pkg/codec"
)

// Writer encodes records as an IDX image/label stream pair. The record count
// is part of the header, so it must be known before the first write.
type Writer struct {
	images  *bufio.Writer
	labels  *bufio.Writer
	header  Header
	written uint32
	closed  bool
	mutex   sync.Mutex
}

// NewWriter writes both headers and returns a Writer for h.Count records.
// The underlying writers are not closed by Close.
func NewWriter(images, labels io.Writer, h Header) (*Writer, error) {
	w := &Writer{
		images: bufio.NewWriterSize(images, defaultImageBufferSize),
		labels: bufio.NewWriterSize(labels, defaultLabelBufferSize),
		header: h,
	}

	if _, err := w.images.Write(putHeader(nil, MagicImages, h.Count, h.Rows, h.Cols)); err != nil {
		return nil, err
	}
	if _, err := w.labels.Write(putHeader(nil, MagicLabels, h.Count)); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends one image and its label.
func (w *Writer) Write(label uint8, pixels []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return fmt.Errorf("idx: write on closed writer")
	}
	if uint64(len(pixels)) != w.header.ImageSize() {
		return fmt.Errorf("idx: image has %d pixels, header declares %dx%d", len(pixels), w.header.Rows, w.header.Cols)
	}
	if w.written >= w.header.Count {
		return fmt.Errorf("%w: more than %d records", ErrRecordCount, w.header.Count)
	}

	if err := w.labels.WriteByte(label); err != nil {
		return err
	}
	if _, err := w.images.Write(pixels); err != nil {
		return err
	}
	w.written++
	return nil
}

// WriteRecord appends a record. Its dimensions must match the header; its
// index is ignored.
func (w *Writer) WriteRecord(r codec.Record) error {
	if r.Rows() != w.header.Rows || r.Cols() != w.header.Cols {
		return fmt.Errorf("idx: record %d is %dx%d, header declares %dx%d",
			r.Index(), r.Rows(), r.Cols(), w.header.Rows, w.header.Cols)
	}
	return w.Write(r.Label(), r.Pixels())
}

// Written returns the number of records written so far.
func (w *Writer) Written() uint32 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.written
}

// Flush writes buffered data to the underlying writers.
func (w *Writer) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.flush()
}

func (w *Writer) flush() error {
	if err := w.images.Flush(); err != nil {
		return err
	}
	return w.labels.Flush()
}

// Close flushes the writer and checks that the declared number of records
// was written.
func (w *Writer) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flush(); err != nil {
		return err
	}
	if w.written != w.header.Count {
		return fmt.Errorf("%w: wrote %d of %d", ErrRecordCount, w.written, w.header.Count)
	}
	return nil
}
