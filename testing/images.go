package testing

import (
	"bytes"
	"testing"

	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/fat"
	"github.com/dargueta/fat16/utilities/compression"
	"github.com/stretchr/testify/require"
)

// NewBlankDevice creates a zeroed in-memory device just large enough for a
// default-layout volume with `clusters` usable data clusters.
func NewBlankDevice(t *testing.T, clusters uint32) *c.StreamDevice {
	totalSectors := fat.MinimumSectors(clusters)
	require.Greater(t, totalSectors, uint32(0))
	return c.NewMemoryDevice(totalSectors)
}

// FormattedVolume formats a new in-memory volume with `clusters` usable data
// clusters. It returns the volume and the device under it so tests can
// remount or inspect raw sectors.
func FormattedVolume(
	t *testing.T, clusters uint32, options fat.Options,
) (*fat.Volume, *c.StreamDevice) {
	device := NewBlankDevice(t, clusters)
	volume, err := fat.Format(device, options)
	require.NoError(t, err, "failed to format volume")
	require.EqualValues(t, clusters, volume.Geometry().UsableClusters(), "wrong cluster count")
	return volume, device
}

// PatternBytes returns `size` bytes following a repeating pattern that doesn't
// line up with sector or cluster boundaries.
func PatternBytes(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// ReadSector returns a copy of one sector of `device`, failing the test on
// error.
func ReadSector(t *testing.T, device c.BlockDevice, lba c.SectorID) []byte {
	sector := make([]byte, c.BytesPerSector)
	require.NoErrorf(t, device.ReadSector(lba, sector), "failed to read sector %d", lba)
	return sector
}

// SnapshotDevice returns the RLE8+gzip compressed contents of `device`.
func SnapshotDevice(t *testing.T, device *c.StreamDevice) []byte {
	image := make([]byte, 0, int(device.TotalSectors())*c.BytesPerSector)
	for i := uint32(0); i < device.TotalSectors(); i++ {
		image = append(image, ReadSector(t, device, c.SectorID(i))...)
	}

	compressed, err := compression.CompressImageToBytes(bytes.NewReader(image))
	require.NoError(t, err)
	return compressed
}

// LoadDiskImage takes a compressed disk image and returns an in-memory device
// holding the uncompressed data. Writes to the device do not affect
// `compressedImageBytes`.
func LoadDiskImage(
	t *testing.T, compressedImageBytes []byte, totalSectors uint32,
) *c.StreamDevice {
	require.Greater(t, len(compressedImageBytes), 0, "compressed image is empty")

	imageBytes, err := compression.DecompressImageToBytes(bytes.NewReader(compressedImageBytes))
	require.NoError(t, err)
	require.Equal(
		t,
		int(totalSectors)*c.BytesPerSector,
		len(imageBytes),
		"uncompressed image is wrong size",
	)
	return c.NewMemoryDeviceFromBytes(imageBytes)
}
