package compression

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// maxGroupLength is the longest run one RLE8 group can encode: the byte twice
// plus up to 255 repetitions.
const maxGroupLength = 257

// CompressRLE8 reads `input` until EOF and writes its RLE8 encoding to
// `output`. It returns the number of bytes written.
func CompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	sink := bufio.NewWriter(output)
	written := int64(0)

	emitRun := func(value byte, length int) error {
		for length >= 2 {
			group := length
			if group > maxGroupLength {
				group = maxGroupLength
			}
			_, err := sink.Write([]byte{value, value, byte(group - 2)})
			if err != nil {
				return err
			}
			written += 3
			length -= group
		}
		if length == 1 {
			if err := sink.WriteByte(value); err != nil {
				return err
			}
			written++
		}
		return nil
	}

	current, err := source.ReadByte()
	if errors.Is(err, io.EOF) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	runLength := 1
	for {
		next, err := source.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return written, err
		}

		if next == current {
			runLength++
			continue
		}
		if err = emitRun(current, runLength); err != nil {
			return written, err
		}
		current, runLength = next, 1
	}

	if err = emitRun(current, runLength); err != nil {
		return written, err
	}
	return written, sink.Flush()
}

// DecompressRLE8 reverses [CompressRLE8]. It returns the number of bytes
// written to `output`.
func DecompressRLE8(input io.Reader, output io.Writer) (int64, error) {
	source := bufio.NewReader(input)
	sink := bufio.NewWriter(output)
	written := int64(0)

	// previous is the last literal byte, or -1 right after a complete group so
	// that a following identical byte starts a new group.
	previous := -1

	for {
		value, err := source.ReadByte()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return written, fmt.Errorf("error reading input: %w", err)
		}

		if int(value) != previous {
			if err = sink.WriteByte(value); err != nil {
				return written, fmt.Errorf("failed to write to output: %w", err)
			}
			written++
			previous = int(value)
			continue
		}

		extra, err := source.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return written, fmt.Errorf("missing repeat count after two %02x bytes: %w", value, err)
		}

		// The first byte of the pair was already written as a literal.
		for i := 0; i <= int(extra); i++ {
			if err = sink.WriteByte(value); err != nil {
				return written, fmt.Errorf("failed to write to output: %w", err)
			}
		}
		written += int64(extra) + 1
		previous = -1
	}

	if err := sink.Flush(); err != nil {
		return written, fmt.Errorf("failed to write to output: %w", err)
	}
	return written, nil
}
