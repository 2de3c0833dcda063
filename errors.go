package fat16

import (
	"github.com/dargueta/fat16/errors"
)

// DriverError is the error type returned by every operation on a volume. Use
// [errors.Is] against the sentinels below to classify a failure.
type DriverError = errors.DriverError

var ErrInvalidVolume = errors.New(errors.EMEDIUMTYPE)
var ErrNotFound = errors.New(errors.ENOENT)
var ErrExists = errors.New(errors.EEXIST)
var ErrDirectoryFull = errors.NewWithMessage(errors.ENFILE, "root directory is full")
var ErrNoSpace = errors.New(errors.ENOSPC)
var ErrOutOfBounds = errors.New(errors.ERANGE)
var ErrBadMode = errors.New(errors.EBADF)
var ErrBusy = errors.New(errors.EBUSY)
var ErrClosed = errors.New(errors.EBADFD)
var ErrInvalidName = errors.New(errors.EINVAL)
var ErrInvalidSeek = errors.New(errors.ESPIPE)
var ErrFileTooLarge = errors.New(errors.EFBIG)
var ErrCorrupted = errors.New(errors.EUCLEAN)
var ErrIOFailed = errors.New(errors.EIO)
