package idx

import (
	"io"

	"github.com/ssargent/mnistidx/pkg/codec"
)

// RecordFunc receives one record at a time, in index order. Returning an
// error stops decoding and is returned unchanged from Decode.
type RecordFunc func(codec.Record) error

// Decode reads an image stream and a label stream and calls fn once per
// record, before the next record is read. The streams are not closed; see
// Reader for how far each one is consumed.
func Decode(images, labels io.Reader, fn RecordFunc, opts ...Option) error {
	if fn == nil {
		return ErrNilFunc
	}

	r, err := NewReader(images, labels, opts...)
	if err != nil {
		return err
	}

	for {
		record, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(record); err != nil {
			return err
		}
	}
}

// maxPrealloc bounds the capacity ReadAll reserves from an untrusted count.
const maxPrealloc = 1 << 16

// ReadAll decodes every record into memory. Prefer Decode or Reader for
// large datasets.
func ReadAll(images, labels io.Reader, opts ...Option) ([]codec.Record, error) {
	r, err := NewReader(images, labels, opts...)
	if err != nil {
		return nil, err
	}

	records := make([]codec.Record, 0, min(r.Remaining(), maxPrealloc))
	for record, err := range r.All() {
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
