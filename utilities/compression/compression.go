package compression

import (
	"bytes"
	"compress/gzip"
	"io"
)

// countingWriter counts the bytes that pass through to the wrapped writer.
type countingWriter struct {
	target io.Writer
	count  int64
}

func (w *countingWriter) Write(data []byte) (int, error) {
	n, err := w.target.Write(data)
	w.count += int64(n)
	return n, err
}

// CompressImage compresses a volume image using RLE8 and gzip. It returns the
// number of compressed bytes written to `output`.
func CompressImage(input io.Reader, output io.Writer) (int64, error) {
	counter := &countingWriter{target: output}

	// The images are mostly runs by the time gzip sees them, so the highest
	// level costs little extra time.
	gzWriter, err := gzip.NewWriterLevel(counter, gzip.BestCompression)
	if err != nil {
		return 0, err
	}

	_, err = CompressRLE8(input, gzWriter)
	if err != nil {
		gzWriter.Close()
		return counter.count, err
	}

	err = gzWriter.Close()
	return counter.count, err
}

// DecompressImage takes a gzipped, RLE8-encoded image and writes the original
// bytes to `output`. It returns the decompressed size.
func DecompressImage(input io.Reader, output io.Writer) (int64, error) {
	gzReader, err := gzip.NewReader(input)
	if err != nil {
		return 0, err
	}
	defer gzReader.Close()
	return DecompressRLE8(gzReader, output)
}

// CompressImageToBytes is like [CompressImage] but returns the result in a new
// byte slice.
func CompressImageToBytes(input io.Reader) ([]byte, error) {
	buffer := bytes.Buffer{}
	_, err := CompressImage(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// DecompressImageToBytes is like [DecompressImage] but returns the result in a
// new byte slice.
func DecompressImageToBytes(input io.Reader) ([]byte, error) {
	buffer := bytes.Buffer{}
	_, err := DecompressImage(input, &buffer)
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
