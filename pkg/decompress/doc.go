// Package decompress opens compressed dataset files without knowing their
// container format in advance.
//
// [Open] peeks at the first bytes of a stream, matches them against the
// signatures of gzip, zstd, xz, lz4 (frame), bzip2 and framed snappy, and
// returns a reader over the decompressed bytes. Streams with no known
// signature fail with an *[Error] wrapping [ErrUnknownFormat], unless
// [WithPassthrough] is given.
//
// The package knows nothing about the data it decompresses. Decoding
// failures that happen mid-stream are returned from Read as *Error values
// tagged with the container format.
package decompress
