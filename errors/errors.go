package errors

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// DriverError is a wrapper around system errno codes, with a customizable error
// message. Two DriverErrors match under [errors.Is] if their codes are equal.
type DriverError interface {
	error
	Errno() Errno
	Unwrap() error
	WithMessage(message string) DriverError
	Wrap(err error) DriverError
}

type driverError struct {
	errno         Errno
	message       string
	originalError error
}

// Error implements the `error` object interface. When called, it returns a string
// describing the error.
func (e *driverError) Error() string {
	if e.message != "" {
		return e.message
	}
	return StrError(e.errno)
}

func (e *driverError) Errno() Errno {
	return e.errno
}

func (e *driverError) Unwrap() error {
	return e.originalError
}

func (e *driverError) Is(target error) bool {
	other, ok := target.(DriverError)
	return ok && other.Errno() == e.errno
}

// WithMessage returns a copy of the error with `message` appended to its text.
// The copy keeps the same errno.
func (e *driverError) WithMessage(message string) DriverError {
	return &driverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.Error(), message),
		originalError: e.originalError,
	}
}

// Wrap returns a copy of the error that has `err` as a cause. Both the receiver
// and `err` are reachable through [errors.Is] and [errors.As].
func (e *driverError) Wrap(err error) DriverError {
	return &driverError{
		errno:         e.errno,
		message:       fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		originalError: multierror.Append(e, err),
	}
}

// New creates a new [DriverError] with a default message derived from the
// system's error code.
func New(errnoCode Errno) DriverError {
	return &driverError{
		errno:   errnoCode,
		message: StrError(errnoCode),
	}
}

func NewFromError(errnoCode Errno, originalError error) DriverError {
	return &driverError{
		errno:         errnoCode,
		message:       fmt.Sprintf("%s: %s", StrError(errnoCode), originalError.Error()),
		originalError: originalError,
	}
}

// NewWithMessage creates a new DriverError from a system error code with a
// custom message.
func NewWithMessage(errnoCode Errno, message string) DriverError {
	return &driverError{
		errno:   errnoCode,
		message: fmt.Sprintf("%s: %s", StrError(errnoCode), message),
	}
}
