package decompress

import (
	"bytes"
	"fmt"
	"strings"
)

// Format identifies a compression container.
type Format uint8

const (
	FormatNone Format = iota
	FormatGzip
	FormatZstd
	FormatXZ
	FormatLZ4
	FormatBzip2
	FormatSnappy
)

// String returns the human-readable name of the format.
func (f Format) String() string {
	switch f {
	case FormatNone:
		return "none"
	case FormatGzip:
		return "gzip"
	case FormatZstd:
		return "zstd"
	case FormatXZ:
		return "xz"
	case FormatLZ4:
		return "lz4"
	case FormatBzip2:
		return "bzip2"
	case FormatSnappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Extension returns the conventional file name suffix, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatGzip:
		return ".gz"
	case FormatZstd:
		return ".zst"
	case FormatXZ:
		return ".xz"
	case FormatLZ4:
		return ".lz4"
	case FormatBzip2:
		return ".bz2"
	case FormatSnappy:
		return ".sz"
	default:
		return ""
	}
}

// ParseFormat parses a format name as returned by String.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return FormatNone, nil
	case "gzip", "gz":
		return FormatGzip, nil
	case "zstd", "zst":
		return FormatZstd, nil
	case "xz":
		return FormatXZ, nil
	case "lz4":
		return FormatLZ4, nil
	case "bzip2", "bz2":
		return FormatBzip2, nil
	case "snappy", "sz":
		return FormatSnappy, nil
	default:
		return FormatNone, fmt.Errorf("unknown compression format %q", s)
	}
}

var magics = []struct {
	format Format
	magic  []byte
}{
	{FormatGzip, []byte{0x1f, 0x8b}},
	{FormatZstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{FormatXZ, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{FormatLZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
	{FormatBzip2, []byte{'B', 'Z', 'h'}},
	{FormatSnappy, []byte{0xff, 0x06, 0x00, 0x00, 's', 'N', 'a', 'P', 'p', 'Y'}},
}

// magicLen is the number of leading bytes Detect needs.
const magicLen = 10

// Detect identifies the format from the leading bytes of a stream. It
// returns FormatNone when no known signature matches.
func Detect(prefix []byte) Format {
	for _, m := range magics {
		if bytes.HasPrefix(prefix, m.magic) {
			return m.format
		}
	}
	return FormatNone
}
