package decompress

import (
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// NewWriter returns a writer that compresses into w using format. Closing
// it flushes the container trailer but does not close w. FormatNone yields
// a pass-through writer. bzip2 has no encoder.
func NewWriter(w io.Writer, format Format) (io.WriteCloser, error) {
	switch format {
	case FormatNone:
		return nopWriteCloser{w}, nil
	case FormatGzip:
		return gzip.NewWriter(w), nil
	case FormatZstd:
		return zstd.NewWriter(w)
	case FormatXZ:
		return xz.NewWriter(w)
	case FormatLZ4:
		return lz4.NewWriter(w), nil
	case FormatSnappy:
		return snappy.NewBufferedWriter(w), nil
	default:
		return nil, fmt.Errorf("decompress: no encoder for %s", format)
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
