package fat16

import "fmt"

// OpenMode selects how a file handle may be used.
type OpenMode int

const (
	// OpenModeRead opens an existing file for reading from the beginning.
	OpenModeRead OpenMode = iota
	// OpenModeWrite opens a file for writing from the beginning, creating it if
	// needed. Existing contents are not truncated; only the bytes written are
	// overwritten.
	OpenModeWrite
	// OpenModeAppend opens a file for writing with the cursor at the end,
	// creating it if needed.
	OpenModeAppend
)

func (m OpenMode) String() string {
	switch m {
	case OpenModeRead:
		return "read"
	case OpenModeWrite:
		return "write"
	case OpenModeAppend:
		return "append"
	default:
		return fmt.Sprintf("OpenMode(%d)", int(m))
	}
}

// CanWrite returns true for the modes that permit writing.
func (m OpenMode) CanWrite() bool {
	return m == OpenModeWrite || m == OpenModeAppend
}

// Valid reports whether `m` is one of the defined modes.
func (m OpenMode) Valid() bool {
	return m >= OpenModeRead && m <= OpenModeAppend
}

// ParseOpenMode converts the short forms used on the command line ("r", "w",
// "a") or the long names returned by [OpenMode.String] into an OpenMode.
func ParseOpenMode(s string) (OpenMode, error) {
	switch s {
	case "r", "read":
		return OpenModeRead, nil
	case "w", "write":
		return OpenModeWrite, nil
	case "a", "append":
		return OpenModeAppend, nil
	}
	return OpenModeRead, ErrInvalidName.WithMessage(fmt.Sprintf("unrecognized open mode %q", s))
}
