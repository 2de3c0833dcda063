package fat

import (
	"fmt"

	"github.com/dargueta/fat16"
	c "github.com/dargueta/fat16/file_systems/common"
)

// FirstDataCluster is the index of the first cluster that can hold file data.
// FAT entries 0 and 1 are reserved.
const FirstDataCluster c.ClusterID = 2

// Geometry holds the region boundaries derived from a boot sector.
type Geometry struct {
	FATStart          c.SectorID
	RootStart         c.SectorID
	DataStart         c.SectorID
	TotalSectors      uint32
	SectorsPerCluster uint32
	SectorsPerFAT     uint32
	NumFATs           uint32
	RootEntries       uint32
	RootSectors       uint32
	// TotalClusters counts FAT entries in use, including the two reserved ones.
	// Valid data clusters are [2, TotalClusters).
	TotalClusters uint32
}

// ComputeGeometry derives the layout of a volume from its boot sector, and
// rejects boot sectors that can't describe a volume this package can mount.
func ComputeGeometry(b BootSector) (Geometry, error) {
	if b.BytesPerSector != c.BytesPerSector {
		return Geometry{}, fat16.ErrInvalidVolume.WithMessage(
			fmt.Sprintf("bytes per sector must be %d, got %d", c.BytesPerSector, b.BytesPerSector))
	}
	if b.ReservedSectors == 0 {
		return Geometry{}, fat16.ErrInvalidVolume.WithMessage("no reserved sectors for the boot sector")
	}
	if b.SectorsPerCluster == 0 {
		return Geometry{}, fat16.ErrInvalidVolume.WithMessage("sectors per cluster is 0")
	}
	if b.NumFATs == 0 {
		return Geometry{}, fat16.ErrInvalidVolume.WithMessage("FAT count is 0")
	}
	if b.SectorsPerFAT == 0 {
		return Geometry{}, fat16.ErrInvalidVolume.WithMessage("sectors per FAT is 0")
	}
	if b.RootEntryCount == 0 {
		return Geometry{}, fat16.ErrInvalidVolume.WithMessage("root directory has no entries")
	}

	g := Geometry{
		TotalSectors:      b.TotalSectors(),
		SectorsPerCluster: uint32(b.SectorsPerCluster),
		SectorsPerFAT:     uint32(b.SectorsPerFAT),
		NumFATs:           uint32(b.NumFATs),
		RootEntries:       uint32(b.RootEntryCount),
	}
	g.RootSectors = (g.RootEntries*DirentSize + c.BytesPerSector - 1) / c.BytesPerSector
	g.FATStart = c.SectorID(b.ReservedSectors)
	g.RootStart = g.FATStart + c.SectorID(g.NumFATs*g.SectorsPerFAT)
	g.DataStart = g.RootStart + c.SectorID(g.RootSectors)

	if uint32(g.DataStart) >= g.TotalSectors {
		return Geometry{}, fat16.ErrInvalidVolume.WithMessage(
			fmt.Sprintf(
				"data region starts at sector %d but the volume has %d sectors",
				g.DataStart,
				g.TotalSectors,
			),
		)
	}

	g.TotalClusters = (g.TotalSectors - uint32(g.DataStart)) / g.SectorsPerCluster

	// A 16-bit table can't address more entries than fit in it, and no link
	// can point past MaxClusterLink.
	entriesInFAT := g.SectorsPerFAT * c.BytesPerSector / 2
	if g.TotalClusters > entriesInFAT {
		g.TotalClusters = entriesInFAT
	}
	if g.TotalClusters > MaxClusterLink+1 {
		g.TotalClusters = MaxClusterLink + 1
	}
	if g.TotalClusters <= uint32(FirstDataCluster) {
		return Geometry{}, fat16.ErrInvalidVolume.WithMessage(
			fmt.Sprintf("volume only has room for %d clusters", g.TotalClusters))
	}
	return g, nil
}

// BytesPerCluster returns the size of one cluster, in bytes.
func (g Geometry) BytesPerCluster() uint32 {
	return g.SectorsPerCluster * c.BytesPerSector
}

// ClusterToSector returns the first sector of data cluster `cluster`.
func (g Geometry) ClusterToSector(cluster c.ClusterID) c.SectorID {
	return g.DataStart + c.SectorID((uint32(cluster)-uint32(FirstDataCluster))*g.SectorsPerCluster)
}

// UsableClusters returns the number of clusters that can hold file data.
func (g Geometry) UsableClusters() uint32 {
	return g.TotalClusters - uint32(FirstDataCluster)
}

// MinimumSectors returns the smallest volume size, in sectors, that gives
// `clusters` usable data clusters with the default layout.
func MinimumSectors(clusters uint32) uint32 {
	g, _ := ComputeGeometry(NewDefaultBootSector(DefaultTotalSectors))
	return uint32(g.DataStart) + (clusters+uint32(FirstDataCluster))*DefaultSectorsPerCluster
}
