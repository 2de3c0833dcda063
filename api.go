// Package fat16 defines the public surface of a FAT16 volume engine. The
// implementation lives in file_systems/fat; this package holds the interfaces,
// open modes, and error sentinels shared by the engine and its front ends.
package fat16

import (
	"io"
	"os"
)

// FileHandle is an open file on a volume. Handles are not safe for use from
// more than one goroutine at a time.
type FileHandle interface {
	io.ReadWriteSeeker
	io.Closer
	io.StringWriter

	// Name returns the file name as it was given to Open.
	Name() string
	// Size returns the logical size of the file in bytes.
	Size() int64
	// Mode returns the mode the handle was opened with.
	Mode() OpenMode
	Stat() (os.FileInfo, error)
}

// ReadingVolume is the interface for volumes supporting read operations.
type ReadingVolume interface {
	// List returns every visible file in the root directory in storage order.
	List() ([]os.FileInfo, error)
	Exists(name string) bool
	// Stat returns the directory entry for `name`, or [ErrNotFound].
	Stat(name string) (os.FileInfo, error)
	// FreeSpace returns the number of bytes in unallocated clusters.
	FreeSpace() int64
	// TotalSpace returns the number of bytes in the data region.
	TotalSpace() int64
	ReadFile(name string) ([]byte, error)
}

// WritingVolume is the interface for volumes supporting write operations.
type WritingVolume interface {
	Create(name string) error
	Delete(name string) error
	Rename(oldName, newName string) error
	WriteFile(name string, data []byte) error
	// Format wipes the volume in place, keeping its geometry.
	Format() error
	// Sync writes all modified metadata to the block device.
	Sync() error
}

// Volume is the interface for a mounted volume implementing all capabilities.
type Volume interface {
	ReadingVolume
	WritingVolume

	// Open returns a new handle for `name`. Read mode requires the file to
	// exist; write and append create it on demand.
	Open(name string, mode OpenMode) (FileHandle, error)

	// Unmount closes all live handles and syncs. The volume must not be used
	// after this returns.
	Unmount() error
}
