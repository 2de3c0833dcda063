package common

import (
	"fmt"
	"io"

	"github.com/dargueta/fat16/errors"
	"github.com/xaionaro-go/bytesextra"
)

//go:generate mockgen -source=blockdevice.go -destination=blockdevice_mock.go -package=common

// BlockDevice is the storage a volume lives on. Buffers passed to either method
// are exactly [BytesPerSector] bytes.
type BlockDevice interface {
	ReadSector(lba SectorID, buffer []byte) error
	WriteSector(lba SectorID, buffer []byte) error
	// TotalSectors returns the capacity of the device, in sectors.
	TotalSectors() uint32
}

// StreamDevice is a [BlockDevice] backed by any [io.ReadWriteSeeker] with a
// fixed capacity.
type StreamDevice struct {
	stream       io.ReadWriteSeeker
	totalSectors uint32
}

// NewStreamDevice wraps `stream`, which must be at least `totalSectors` sectors
// long or be able to grow to that size on write.
func NewStreamDevice(stream io.ReadWriteSeeker, totalSectors uint32) *StreamDevice {
	return &StreamDevice{stream: stream, totalSectors: totalSectors}
}

// NewStreamDeviceFromSize wraps `stream` and determines the capacity by seeking
// to its end. Trailing bytes that don't fill a whole sector are ignored.
func NewStreamDeviceFromSize(stream io.ReadWriteSeeker) (*StreamDevice, error) {
	size, err := stream.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errors.NewFromError(errors.EIO, err)
	}
	return NewStreamDevice(stream, uint32(size/BytesPerSector)), nil
}

// NewMemoryDevice creates a zeroed device of `totalSectors` sectors held in
// memory.
func NewMemoryDevice(totalSectors uint32) *StreamDevice {
	data := make([]byte, int(totalSectors)*BytesPerSector)
	return NewStreamDevice(bytesextra.NewReadWriteSeeker(data), totalSectors)
}

// NewMemoryDeviceFromBytes creates a device on top of `data`. Writes to the
// device modify `data` directly.
func NewMemoryDeviceFromBytes(data []byte) *StreamDevice {
	return NewStreamDevice(
		bytesextra.NewReadWriteSeeker(data), uint32(len(data)/BytesPerSector))
}

func (d *StreamDevice) TotalSectors() uint32 {
	return d.totalSectors
}

// CheckIOBounds returns an error if `lba` is outside the device or `buffer`
// isn't exactly one sector.
func (d *StreamDevice) CheckIOBounds(lba SectorID, buffer []byte) error {
	if len(buffer) != BytesPerSector {
		return errors.NewWithMessage(
			errors.EINVAL,
			fmt.Sprintf("buffer must be %d bytes, got %d", BytesPerSector, len(buffer)),
		)
	}
	if uint32(lba) >= d.totalSectors {
		return errors.NewWithMessage(
			errors.ERANGE,
			fmt.Sprintf("sector %d not in range [0, %d)", lba, d.totalSectors),
		)
	}
	return nil
}

func (d *StreamDevice) seekToSector(lba SectorID) error {
	_, err := d.stream.Seek(int64(lba)*BytesPerSector, io.SeekStart)
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}
	return nil
}

func (d *StreamDevice) ReadSector(lba SectorID, buffer []byte) error {
	if err := d.CheckIOBounds(lba, buffer); err != nil {
		return err
	}
	if err := d.seekToSector(lba); err != nil {
		return err
	}

	n, err := io.ReadFull(d.stream, buffer)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// Sparse image files may be shorter than their nominal size. Anything
		// past the end reads as zeroes.
		for i := n; i < len(buffer); i++ {
			buffer[i] = 0
		}
		return nil
	}
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}
	return nil
}

func (d *StreamDevice) WriteSector(lba SectorID, buffer []byte) error {
	if err := d.CheckIOBounds(lba, buffer); err != nil {
		return err
	}
	if err := d.seekToSector(lba); err != nil {
		return err
	}

	_, err := d.stream.Write(buffer)
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}
	return nil
}

// Stream returns the underlying stream.
func (d *StreamDevice) Stream() io.ReadWriteSeeker {
	return d.stream
}
