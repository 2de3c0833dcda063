// Package compression packs volume images for snapshots and test fixtures.
//
// A freshly formatted 500 MiB volume is almost entirely null sectors, and even
// a busy one has long runs of zeroes in its FAT and root directory. Images are
// first run-length encoded and the result is gzipped. Run-length encoding
// alone turns megabytes of zeroes into a few kilobytes, and gzip then removes
// the repetition between the RLE groups.
//
// The run-length scheme is RLE8, the one used by the BMP file format: a byte
// that occurs N >= 2 times in a row is written twice, followed by an unsigned
// byte giving how many more times it occurred.
//
//	WXXXXXXXXXXXXXXXYZZ
//	W XX 13 Y ZZ 0
//
// One group covers at most 257 bytes, so longer runs are split into several
// groups. A 300-byte run of X becomes `XX 255 XX 41`. A byte occurring exactly
// twice costs three bytes, since the count follows even when it is zero.
package compression
