// Package codec provides the MNIST record model and its storage encoding.
//
// A [Record] is one labeled image decoded from an IDX image/label file pair.
// Records are immutable: the pixel buffer handed to [NewRecord] becomes owned
// by the record, and [Record.Pixels] returns a copy.
//
// # Storage Format
//
// [RecordCodec] serializes records for key-value storage:
//
//	[CRC32(4)][Index(4)][Label(1)][Rows(4)][Cols(4)][Pixels]
//
// Fields:
//   - CRC32: IEEE checksum over every byte that follows it (little-endian)
//   - Index: position of the record in its dataset (little-endian)
//   - Label: digit class, one byte
//   - Rows, Cols: image dimensions (little-endian)
//   - Pixels: Rows*Cols grayscale bytes, row-major
//
// This encoding is unrelated to the big-endian IDX files the records are read
// from; see package idx for those.
//
// # Usage
//
//	rec, err := codec.NewRecord(0, 7, 2, 2, []byte{1, 2, 3, 4})
//	if err != nil {
//	    return err
//	}
//
//	c := codec.NewRecordCodec()
//	stored := c.Encode(rec)
//	back, err := c.Decode(stored)
//
// # Thread Safety
//
// RecordCodec instances are safe for concurrent use. Records are immutable
// and safe to share between goroutines.
package codec
