package fat

import (
	"encoding/binary"

	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/common/blockcache"
)

// Values of a FAT entry.
const (
	// FreeCluster marks an unallocated cluster.
	FreeCluster uint16 = 0x0000
	// MaxClusterLink is the largest value that is a link to another cluster.
	MaxClusterLink = 0xFFF7
	// EndOfChainMin is the smallest value that terminates a chain.
	EndOfChainMin uint16 = 0xFFF8
	// EndOfChain is the terminator written by this package.
	EndOfChain uint16 = 0xFFFF
)

// IsEndOfChain returns true if `entry` terminates a cluster chain.
func IsEndOfChain(entry uint16) bool {
	return entry >= EndOfChainMin
}

// FATTable is the in-memory File Allocation Table. It holds a single
// authoritative copy that the arena writes to every on-disk copy when flushed.
type FATTable struct {
	cache         *blockcache.BlockCache
	totalClusters uint32
}

// NewFATTable wraps an arena holding the first FAT copy. The arena must hold
// at least 2*totalClusters bytes.
func NewFATTable(cache *blockcache.BlockCache, totalClusters uint32) *FATTable {
	return &FATTable{cache: cache, totalClusters: totalClusters}
}

func (f *FATTable) data() []byte {
	// The volume loads the whole arena at mount, so this never fetches.
	data, _ := f.cache.Data()
	return data
}

// TotalClusters returns the number of entries in use, including the two
// reserved entries.
func (f *FATTable) TotalClusters() uint32 {
	return f.totalClusters
}

// ReadEntry returns the entry for `cluster`, or [EndOfChain] if the cluster is
// out of range.
func (f *FATTable) ReadEntry(cluster c.ClusterID) uint16 {
	if uint32(cluster) >= f.totalClusters {
		return EndOfChain
	}
	return binary.LittleEndian.Uint16(f.data()[2*uint(cluster):])
}

// WriteEntry sets the entry for `cluster` and marks its sector dirty. Writes to
// clusters out of range are ignored.
func (f *FATTable) WriteEntry(cluster c.ClusterID, value uint16) {
	if uint32(cluster) >= f.totalClusters {
		return
	}
	binary.LittleEndian.PutUint16(f.data()[2*uint(cluster):], value)
	f.cache.MarkByteRangeDirty(2*uint(cluster), 2)
}

// FindFreeCluster returns the lowest-numbered free data cluster.
func (f *FATTable) FindFreeCluster() (c.ClusterID, bool) {
	for i := uint32(FirstDataCluster); i < f.totalClusters; i++ {
		if f.ReadEntry(c.ClusterID(i)) == FreeCluster {
			return c.ClusterID(i), true
		}
	}
	return 0, false
}

// AllocateChain appends `clustersNeeded` clusters to the chain that ends at or
// after `head`. Each new cluster is terminated before the previous tail is
// linked to it, so the chain stays terminated at every step.
//
// It returns false if the table runs out of free clusters; clusters allocated
// before that point stay linked into the chain.
func (f *FATTable) AllocateChain(head c.ClusterID, clustersNeeded uint32) bool {
	tail := f.ChainTail(head)
	if f.ReadEntry(tail) == FreeCluster {
		// The head of a damaged chain can be marked free. Claim it first.
		f.WriteEntry(tail, EndOfChain)
	}
	for i := uint32(0); i < clustersNeeded; i++ {
		next, ok := f.FindFreeCluster()
		if !ok {
			return false
		}
		f.WriteEntry(next, EndOfChain)
		f.WriteEntry(tail, uint16(next))
		tail = next
	}
	return true
}

// AllocateHead takes a free cluster and marks it as a one-cluster chain.
func (f *FATTable) AllocateHead() (c.ClusterID, bool) {
	cluster, ok := f.FindFreeCluster()
	if !ok {
		return 0, false
	}
	f.WriteEntry(cluster, EndOfChain)
	return cluster, true
}

// FreeChain releases every cluster in the chain beginning at `head` and returns
// how many were released. The walk stops at the end-of-chain marker, at a
// cluster that is already free, or at an index out of range.
func (f *FATTable) FreeChain(head c.ClusterID) int {
	freed := 0
	current := head
	for uint32(current) >= uint32(FirstDataCluster) && uint32(current) < f.totalClusters {
		next := f.ReadEntry(current)
		if next == FreeCluster {
			break
		}
		f.WriteEntry(current, FreeCluster)
		freed++
		if IsEndOfChain(next) {
			break
		}
		current = c.ClusterID(next)
	}
	return freed
}

// Next returns the cluster after `cluster` in its chain, or false if `cluster`
// is the last one or the link doesn't point at a data cluster.
func (f *FATTable) Next(cluster c.ClusterID) (c.ClusterID, bool) {
	entry := f.ReadEntry(cluster)
	if entry < uint16(FirstDataCluster) || uint32(entry) >= f.totalClusters {
		return 0, false
	}
	return c.ClusterID(entry), true
}

// ChainTail returns the last cluster of the chain beginning at `head`. A
// corrupted chain that loops is cut off after TotalClusters steps.
func (f *FATTable) ChainTail(head c.ClusterID) c.ClusterID {
	current := head
	for steps := uint32(0); steps < f.totalClusters; steps++ {
		next, ok := f.Next(current)
		if !ok {
			break
		}
		current = next
	}
	return current
}

// ChainLength returns the number of clusters in the chain beginning at `head`,
// or 0 if `head` isn't an allocated data cluster.
func (f *FATTable) ChainLength(head c.ClusterID) uint32 {
	if uint32(head) < uint32(FirstDataCluster) || uint32(head) >= f.totalClusters {
		return 0
	}
	if f.ReadEntry(head) == FreeCluster {
		return 0
	}

	length := uint32(1)
	current := head
	for length < f.totalClusters {
		next, ok := f.Next(current)
		if !ok {
			break
		}
		current = next
		length++
	}
	return length
}

// ClusterAt walks `index` links from `head` and returns the cluster it lands
// on, or false if the chain is shorter than that.
func (f *FATTable) ClusterAt(head c.ClusterID, index uint32) (c.ClusterID, bool) {
	current := head
	for i := uint32(0); i < index; i++ {
		next, ok := f.Next(current)
		if !ok {
			return 0, false
		}
		current = next
	}
	return current, true
}

// CountFree returns the number of free data clusters.
func (f *FATTable) CountFree() uint32 {
	count := uint32(0)
	for i := uint32(FirstDataCluster); i < f.totalClusters; i++ {
		if f.ReadEntry(c.ClusterID(i)) == FreeCluster {
			count++
		}
	}
	return count
}

// Reset clears every entry and writes the two reserved entries.
func (f *FATTable) Reset(media uint8) {
	f.cache.Reset()
	f.WriteEntry(0, 0xFF00|uint16(media))
	f.WriteEntry(1, EndOfChain)
}

// IsDirty returns true if any sector of the table has changed since the last
// flush.
func (f *FATTable) IsDirty() bool {
	return f.cache.IsDirty()
}
