package fat_test

import (
	"errors"
	"testing"

	"github.com/dargueta/fat16"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/fat"
	fattest "github.com/dargueta/fat16/testing"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDeviceBroken = errors.New("device is on fire")

// newFlakyDevice returns a mock that forwards to a real formatted volume,
// except for writes to `failingSector`.
func newFlakyDevice(t *testing.T, failingSector c.SectorID) (*c.MockBlockDevice, *c.StreamDevice) {
	_, backing := fattest.FormattedVolume(t, 8, fat.Options{})

	ctrl := gomock.NewController(t)
	device := c.NewMockBlockDevice(ctrl)
	device.EXPECT().TotalSectors().Return(backing.TotalSectors()).AnyTimes()
	device.EXPECT().ReadSector(gomock.Any(), gomock.Any()).DoAndReturn(backing.ReadSector).AnyTimes()
	device.EXPECT().WriteSector(gomock.Any(), gomock.Any()).DoAndReturn(
		func(lba c.SectorID, buffer []byte) error {
			if lba == failingSector {
				return errDeviceBroken
			}
			return backing.WriteSector(lba, buffer)
		},
	).AnyTimes()
	return device, backing
}

func TestLoad__ReadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	device := c.NewMockBlockDevice(ctrl)
	device.EXPECT().ReadSector(c.SectorID(0), gomock.Any()).Return(errDeviceBroken)

	_, err := fat.Load(device, fat.Options{})
	assert.ErrorIs(t, err, errDeviceBroken)

	// Mount only formats when the volume is invalid, not when the device fails.
	device.EXPECT().ReadSector(c.SectorID(0), gomock.Any()).Return(errDeviceBroken)
	_, err = fat.Mount(device, fat.Options{})
	assert.ErrorIs(t, err, errDeviceBroken)
}

// A failed write to the mirror FAT is reported, but the primary copy and the
// directory are still written.
func TestSync__MirrorWriteFailure(t *testing.T) {
	device, backing := newFlakyDevice(t, mirrorFATSector)

	volume, err := fat.Load(device, fat.Options{})
	require.NoError(t, err)
	require.NoError(t, volume.Create("A"))

	err = volume.Sync()
	assert.ErrorIs(t, err, fat16.ErrIOFailed)
	assert.ErrorIs(t, err, errDeviceBroken)
	assert.True(t, volume.IsDirty(), "failed sectors should stay dirty")

	primary := fattest.ReadSector(t, backing, primaryFATSector)
	assert.Equal(t, []byte{0xF8, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, primary[:6])
	root := fattest.ReadSector(t, backing, rootSector)
	assert.Equal(t, "A          ", string(root[:11]))
}

func TestFile__DataWriteFailure(t *testing.T) {
	device, _ := newFlakyDevice(t, dataSector)

	volume, err := fat.Load(device, fat.Options{})
	require.NoError(t, err)
	file, err := volume.OpenFile("A", fat16.OpenModeWrite)
	require.NoError(t, err)
	defer file.Close()

	n, err := file.Write([]byte("abc"))
	assert.ErrorIs(t, err, errDeviceBroken)
	assert.Equal(t, 0, n)
	assert.EqualValues(t, 0, file.Size())
}
