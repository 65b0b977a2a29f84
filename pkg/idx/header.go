package idx

import (
	"encoding/binary"
	"io"
)

// Magic numbers of the two MNIST file kinds. The third byte is the data type
// (0x08, unsigned byte) and the fourth the number of dimensions.
const (
	MagicImages uint32 = 0x00000803
	MagicLabels uint32 = 0x00000801
)

// Header sizes in bytes.
const (
	ImageHeaderSize = 16
	LabelHeaderSize = 8
)

// Header describes a validated image/label file pair.
type Header struct {
	Count uint32
	Rows  uint32
	Cols  uint32
}

// ImageSize returns the number of pixel bytes per record.
func (h Header) ImageSize() uint64 {
	return uint64(h.Rows) * uint64(h.Cols)
}

// ReadImageHeader reads and validates the header of an image file.
func ReadImageHeader(r io.Reader) (Header, error) {
	magic, err := readUint32(r, StreamImages)
	if err != nil {
		return Header{}, err
	}
	if magic != MagicImages {
		return Header{}, &FormatError{Field: "image magic", Expected: MagicImages, Actual: magic}
	}

	var h Header
	for _, field := range []*uint32{&h.Count, &h.Rows, &h.Cols} {
		if *field, err = readUint32(r, StreamImages); err != nil {
			return Header{}, err
		}
	}
	return h, nil
}

// ReadLabelHeader reads and validates the header of a label file and
// returns its record count.
func ReadLabelHeader(r io.Reader) (uint32, error) {
	magic, err := readUint32(r, StreamLabels)
	if err != nil {
		return 0, err
	}
	if magic != MagicLabels {
		return 0, &FormatError{Field: "label magic", Expected: MagicLabels, Actual: magic}
	}
	return readUint32(r, StreamLabels)
}

// readHeaders validates both headers in file order: both magics first, then
// both counts, then the image dimensions.
func readHeaders(images, labels io.Reader) (Header, error) {
	magic, err := readUint32(images, StreamImages)
	if err != nil {
		return Header{}, err
	}
	if magic != MagicImages {
		return Header{}, &FormatError{Field: "image magic", Expected: MagicImages, Actual: magic}
	}

	magic, err = readUint32(labels, StreamLabels)
	if err != nil {
		return Header{}, err
	}
	if magic != MagicLabels {
		return Header{}, &FormatError{Field: "label magic", Expected: MagicLabels, Actual: magic}
	}

	imageCount, err := readUint32(images, StreamImages)
	if err != nil {
		return Header{}, err
	}
	labelCount, err := readUint32(labels, StreamLabels)
	if err != nil {
		return Header{}, err
	}
	if imageCount != labelCount {
		return Header{}, &FormatError{Field: "count", Expected: imageCount, Actual: labelCount}
	}

	h := Header{Count: imageCount}
	if h.Rows, err = readUint32(images, StreamImages); err != nil {
		return Header{}, err
	}
	if h.Cols, err = readUint32(images, StreamImages); err != nil {
		return Header{}, err
	}
	return h, nil
}

func readUint32(r io.Reader, stream string) (uint32, error) {
	var buf [4]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		return 0, &ReadError{Stream: stream, Index: -1, Want: 4, Got: int64(n), Err: noEOF(err)}
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func putHeader(buf []byte, magic uint32, fields ...uint32) []byte {
	buf = binary.BigEndian.AppendUint32(buf, magic)
	for _, f := range fields {
		buf = binary.BigEndian.AppendUint32(buf, f)
	}
	return buf
}
