package common

import (
	"fmt"
	"os"

	"github.com/dargueta/fat16/errors"
	"github.com/hashicorp/go-multierror"
)

// ImageFile is a [BlockDevice] backed by a disk image on the host file system.
// The file is locked exclusively for as long as it is open, so two processes
// can't mount the same image.
type ImageFile struct {
	*StreamDevice
	file *os.File
}

var _ Truncator = (*ImageFile)(nil)

// OpenImageFile opens or creates the image at `path`. If `minSectors` is
// larger than the current image, the file is extended to that size; the new
// space reads as zeroes. Passing 0 keeps the image at its current size.
func OpenImageFile(path string, minSectors uint32) (*ImageFile, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.NewFromError(errors.EIO, err)
	}

	err = lockFile(file)
	if err != nil {
		file.Close()
		return nil, errors.NewWithMessage(
			errors.EBUSY,
			fmt.Sprintf("can't lock %q, is it mounted elsewhere? %s", path, err.Error()),
		)
	}

	info, err := file.Stat()
	if err != nil {
		unlockFile(file)
		file.Close()
		return nil, errors.NewFromError(errors.EIO, err)
	}

	totalSectors := uint32(info.Size() / BytesPerSector)
	if minSectors > totalSectors {
		err = file.Truncate(int64(minSectors) * BytesPerSector)
		if err != nil {
			unlockFile(file)
			file.Close()
			return nil, errors.NewFromError(errors.EIO, err)
		}
		totalSectors = minSectors
	}

	return &ImageFile{
		StreamDevice: NewStreamDevice(file, totalSectors),
		file:         file,
	}, nil
}

// Path returns the path the image was opened with.
func (f *ImageFile) Path() string {
	return f.file.Name()
}

// Truncate changes the size of the image file. The device's capacity follows
// it, rounded down to whole sectors.
func (f *ImageFile) Truncate(size int64) error {
	if size < 0 {
		return errors.NewWithMessage(errors.EINVAL, fmt.Sprintf("negative size %d", size))
	}
	err := f.file.Truncate(size)
	if err != nil {
		return errors.NewFromError(errors.EIO, err)
	}
	f.totalSectors = uint32(size / BytesPerSector)
	return nil
}

// Close releases the lock and closes the file. It doesn't sync any volume
// mounted on the image; unmount the volume first.
func (f *ImageFile) Close() error {
	var result error
	if err := unlockFile(f.file); err != nil {
		result = multierror.Append(result, err)
	}
	if err := f.file.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result
}
