package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"strings"
)

// HeaderSize is the size of an encoded record header:
// CRC32(4) + Index(4) + Label(1) + Rows(4) + Cols(4).
const HeaderSize = 17

// Record is one decoded image/label pair at a given position in a dataset.
// A Record is immutable once constructed.
type Record struct {
	index  uint32
	label  uint8
	rows   uint32
	cols   uint32
	pixels []byte
}

// NewRecord creates a record that takes ownership of pixels. The caller must
// not modify pixels afterwards.
func NewRecord(index uint32, label uint8, rows, cols uint32, pixels []byte) (Record, error) {
	if uint64(len(pixels)) != uint64(rows)*uint64(cols) {
		return Record{}, fmt.Errorf("pixel count %d does not match %dx%d", len(pixels), rows, cols)
	}
	return Record{
		index:  index,
		label:  label,
		rows:   rows,
		cols:   cols,
		pixels: pixels,
	}, nil
}

// Index returns the zero-based position of the record in its dataset.
func (r Record) Index() uint32 { return r.index }

// Label returns the digit class.
func (r Record) Label() uint8 { return r.label }

// Rows returns the image height in pixels.
func (r Record) Rows() uint32 { return r.rows }

// Cols returns the image width in pixels.
func (r Record) Cols() uint32 { return r.cols }

// Len returns the number of pixels.
func (r Record) Len() int { return len(r.pixels) }

// Pixels returns a copy of the row-major grayscale pixels.
func (r Record) Pixels() []byte {
	out := make([]byte, len(r.pixels))
	copy(out, r.pixels)
	return out
}

// PixelAt returns the intensity at the given row and column. It panics if
// either coordinate is outside the image, like an out-of-range slice index.
func (r Record) PixelAt(row, col int) uint8 {
	if row < 0 || col < 0 || row >= int(r.rows) || col >= int(r.cols) {
		panic(fmt.Sprintf("codec: pixel (%d, %d) out of range for %dx%d record", row, col, r.rows, r.cols))
	}
	return r.pixels[row*int(r.cols)+col]
}

// Image returns the record as a grayscale image.
func (r Record) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, int(r.cols), int(r.rows)))
	copy(img.Pix, r.pixels)
	return img
}

// String renders the record header followed by a coarse text preview.
func (r Record) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Record[index=%d, label=%d, %dx%d]\n", r.index, r.label, r.rows, r.cols)
	for row := 0; row < int(r.rows); row++ {
		for col := 0; col < int(r.cols); col++ {
			sb.WriteByte(shade(r.PixelAt(row, col)))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func shade(v uint8) byte {
	switch {
	case v == 0:
		return ' '
	case v < 64:
		return '.'
	case v < 128:
		return '+'
	case v < 192:
		return '*'
	default:
		return '#'
	}
}

// RecordCodec handles serialization and deserialization of records for storage
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// Encode serializes a record into its storage format
// Format: [CRC32(4)][Index(4)][Label(1)][Rows(4)][Cols(4)][Pixels]
func (c *RecordCodec) Encode(r Record) []byte {
	buf := make([]byte, HeaderSize+len(r.pixels))

	binary.LittleEndian.PutUint32(buf[4:], r.index)
	buf[8] = r.label
	binary.LittleEndian.PutUint32(buf[9:], r.rows)
	binary.LittleEndian.PutUint32(buf[13:], r.cols)
	copy(buf[HeaderSize:], r.pixels)

	binary.LittleEndian.PutUint32(buf[0:], crc32.ChecksumIEEE(buf[4:]))
	return buf
}

// Decode deserializes a stored record and validates its checksum. The
// returned record does not alias data.
func (c *RecordCodec) Decode(data []byte) (Record, error) {
	if len(data) < HeaderSize {
		return Record{}, fmt.Errorf("data too short for record header")
	}

	sum := binary.LittleEndian.Uint32(data[0:4])
	if actual := crc32.ChecksumIEEE(data[4:]); sum != actual {
		return Record{}, fmt.Errorf("CRC32 mismatch: %d != %d", sum, actual)
	}

	index := binary.LittleEndian.Uint32(data[4:8])
	label := data[8]
	rows := binary.LittleEndian.Uint32(data[9:13])
	cols := binary.LittleEndian.Uint32(data[13:17])

	pixels := make([]byte, len(data)-HeaderSize)
	copy(pixels, data[HeaderSize:])

	return NewRecord(index, label, rows, cols, pixels)
}
