package disks

import (
	"testing"

	"github.com/dargueta/fat16/errors"
	"github.com/dargueta/fat16/file_systems/fat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPreset(t *testing.T) {
	preset, err := GetPreset("zip100")
	require.NoError(t, err)
	assert.Equal(t, "Iomega Zip 100", preset.Name)
	assert.EqualValues(t, 196608, preset.TotalSectors)
	assert.EqualValues(t, 100663296, preset.TotalSizeBytes())

	preset, err = GetPreset("default")
	require.NoError(t, err)
	assert.EqualValues(t, fat.DefaultTotalSectors, preset.TotalSectors)

	_, err = GetPreset("floppy")
	assert.ErrorIs(t, err, errors.New(errors.ENOENT))
}

// Every preset must be large enough to format.
func TestPresets__AllFormattable(t *testing.T) {
	presets := Presets()
	require.Len(t, presets, 6)
	assert.Equal(t, "cf32m", presets[0].Slug)
	assert.Equal(t, "default", presets[len(presets)-1].Slug)

	for _, preset := range presets {
		_, err := fat.ComputeGeometry(fat.NewDefaultBootSector(preset.TotalSectors))
		assert.NoError(t, err, preset.Slug)
	}
}

func TestParsePresets__Rejects(t *testing.T) {
	_, err := parsePresets("slug|name|first_year_available|total_sectors|notes\na|A|2000|100|\na|B|2000|100|\n")
	assert.ErrorContains(t, err, "duplicate")

	_, err = parsePresets("slug|name|first_year_available|total_sectors|notes\na|A|2000|0|\n")
	assert.ErrorContains(t, err, "no size")
}
