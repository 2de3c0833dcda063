// Errno values mirror the Linux numbering so that messages and codes line up
// with what users see from host tools. The syscall package doesn't define all
// of these on every platform, EUCLEAN and EMEDIUMTYPE in particular.

package errors

import (
	"fmt"
)

type Errno int

const (
	EOK          Errno = 0
	EPERM        Errno = 1
	ENOENT       Errno = 2
	EIO          Errno = 5
	EBADF        Errno = 9
	EBUSY        Errno = 16
	EEXIST       Errno = 17
	EINVAL       Errno = 22
	ENFILE       Errno = 23
	EFBIG        Errno = 27
	ENOSPC       Errno = 28
	ESPIPE       Errno = 29
	EROFS        Errno = 30
	ERANGE       Errno = 34
	ENAMETOOLONG Errno = 36
	ENOSYS       Errno = 38
	EBADFD       Errno = 77
	ENOTSUP      Errno = 95
	EUCLEAN      Errno = 117
	EMEDIUMTYPE  Errno = 124
)

var errorMessagesByCode = map[Errno]string{
	EOK:          "Success",
	EPERM:        "Operation not permitted",
	ENOENT:       "No such file or directory",
	EIO:          "Input/output error",
	EBADF:        "Bad file descriptor",
	EBUSY:        "Device or resource busy",
	EEXIST:       "File exists",
	EINVAL:       "Invalid argument",
	ENFILE:       "Too many open files in system",
	EFBIG:        "File too large",
	ENOSPC:       "No space left on device",
	ESPIPE:       "Illegal seek",
	EROFS:        "Read-only file system",
	ERANGE:       "Numerical result out of range",
	ENAMETOOLONG: "File name too long",
	ENOSYS:       "Function not implemented",
	EBADFD:       "File descriptor in bad state",
	ENOTSUP:      "Operation not supported",
	EUCLEAN:      "Structure needs cleaning",
	EMEDIUMTYPE:  "Wrong medium type",
}

var ErrIOFailed = New(EIO)
var ErrInvalidArgument = New(EINVAL)
var ErrResultOutOfRange = New(ERANGE)

// StrError returns the human-readable message for an errno code.
func StrError(code Errno) string {
	message, ok := errorMessagesByCode[code]
	if ok {
		return message
	}
	return fmt.Sprintf("error %d not recognized.", int(code))
}
