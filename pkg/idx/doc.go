// Package idx decodes the IDX files of the MNIST handwritten digit dataset.
//
// An MNIST dataset is a pair of files. All integers are unsigned 32-bit
// big-endian:
//
//	images: [magic 0x00000803][count][rows][cols][count*rows*cols pixel bytes]
//	labels: [magic 0x00000801][count][count label bytes]
//
// [Decode] validates both headers, checks that the counts agree and then
// streams one [codec.Record] per image/label pair to a callback. [Reader]
// offers the same stream as a pull-style iterator. Neither ever holds more
// than one record's pixels, and neither closes the streams it is given.
//
// Decoding works on plain bytes only; wrap compressed files with package
// decompress first.
//
// # Errors
//
// Header violations are reported as *[FormatError] (matching [ErrFormat]).
// Streams that end early or fail are reported as *[ReadError]; short reads
// match [ErrShortRead]. Errors returned by the callback are passed through
// unchanged.
package idx
