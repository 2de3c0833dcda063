package common_test

import (
	"bytes"
	"crypto/rand"
	"path/filepath"
	"testing"

	"github.com/dargueta/fat16/errors"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDevice__RoundTrip(t *testing.T) {
	dev := c.NewMemoryDevice(16)
	assert.EqualValues(t, 16, dev.TotalSectors())

	writeBuffer := make([]byte, c.BytesPerSector)
	readBuffer := make([]byte, c.BytesPerSector)

	for i := c.SectorID(0); i < 16; i++ {
		_, err := rand.Read(writeBuffer)
		require.NoError(t, err)
		require.NoErrorf(t, dev.WriteSector(i, writeBuffer), "write sector %d", i)
		require.NoErrorf(t, dev.ReadSector(i, readBuffer), "read sector %d", i)
		assert.Equalf(t, writeBuffer, readBuffer, "sector %d read back different data", i)
	}
}

func TestMemoryDevice__OutOfBounds(t *testing.T) {
	dev := c.NewMemoryDevice(16)
	buffer := make([]byte, c.BytesPerSector)

	assert.NoError(t, dev.ReadSector(15, buffer), "last sector should be readable")
	assert.ErrorIs(t, dev.ReadSector(16, buffer), errors.ErrResultOutOfRange)
	assert.ErrorIs(t, dev.WriteSector(16, buffer), errors.ErrResultOutOfRange)
	assert.ErrorIs(t, dev.WriteSector(c.InvalidSector, buffer), errors.ErrResultOutOfRange)
}

func TestMemoryDevice__WrongBufferSize(t *testing.T) {
	dev := c.NewMemoryDevice(4)
	assert.ErrorIs(t, dev.ReadSector(0, make([]byte, 511)), errors.ErrInvalidArgument)
	assert.ErrorIs(t, dev.WriteSector(0, make([]byte, 1024)), errors.ErrInvalidArgument)
}

func TestMemoryDeviceFromBytes__WritesThrough(t *testing.T) {
	backing := make([]byte, 4*c.BytesPerSector+100)
	dev := c.NewMemoryDeviceFromBytes(backing)
	assert.EqualValues(t, 4, dev.TotalSectors(), "partial trailing sector must be ignored")

	sector := bytes.Repeat([]byte{0xA5}, c.BytesPerSector)
	require.NoError(t, dev.WriteSector(2, sector))
	assert.Equal(t, sector, backing[2*c.BytesPerSector:3*c.BytesPerSector])
	assert.Equal(t, make([]byte, c.BytesPerSector), backing[:c.BytesPerSector])
}

func TestStreamDeviceFromSize(t *testing.T) {
	dev := c.NewMemoryDevice(10)
	sized, err := c.NewStreamDeviceFromSize(dev.Stream())
	require.NoError(t, err)
	assert.EqualValues(t, 10, sized.TotalSectors())
}

func TestImageFile__CreateAndExtend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	image, err := c.OpenImageFile(path, 32)
	require.NoError(t, err)
	assert.EqualValues(t, 32, image.TotalSectors())

	sector := bytes.Repeat([]byte{0x42}, c.BytesPerSector)
	require.NoError(t, image.WriteSector(31, sector))
	require.NoError(t, image.Close())

	// Reopening without a minimum keeps the size and the data.
	image, err = c.OpenImageFile(path, 0)
	require.NoError(t, err)
	defer image.Close()

	assert.EqualValues(t, 32, image.TotalSectors())
	readBack := make([]byte, c.BytesPerSector)
	require.NoError(t, image.ReadSector(31, readBack))
	assert.Equal(t, sector, readBack)
	assert.Equal(t, path, image.Path())
}

func TestImageFile__Truncate(t *testing.T) {
	image, err := c.OpenImageFile(filepath.Join(t.TempDir(), "shrink.img"), 16)
	require.NoError(t, err)
	defer image.Close()

	require.NoError(t, image.Truncate(4*c.BytesPerSector+100))
	assert.EqualValues(t, 4, image.TotalSectors())
	assert.Error(t, image.ReadSector(4, make([]byte, c.BytesPerSector)))

	assert.Error(t, image.Truncate(-1))
}
