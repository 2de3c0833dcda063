// Package common contains the block device abstraction and the fundamental
// address types shared by the FAT16 engine and its helpers.
package common

import "math"

// BytesPerSector is the only sector size the engine supports.
const BytesPerSector = 512

// SectorID is a zero-based logical block address on a device.
type SectorID uint32

// ClusterID is an index into the File Allocation Table. Clusters 0 and 1 are
// reserved; the first data cluster is 2.
type ClusterID uint16

const InvalidSector = SectorID(math.MaxUint32)

// Truncator is an interface for objects that support a Truncate() method. This
// method must behave just like [os.File.Truncate].
type Truncator interface {
	Truncate(size int64) error
}
