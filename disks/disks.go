// Package disks holds predefined sizes for new images, named after the media
// they imitate.
package disks

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/dargueta/fat16/errors"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/gocarina/gocsv"
)

// Preset describes the size of a storage device that an image can imitate.
type Preset struct {
	Slug               string `csv:"slug"`
	Name               string `csv:"name"`
	FirstYearAvailable uint   `csv:"first_year_available"`
	TotalSectors       uint32 `csv:"total_sectors"`
	Notes              string `csv:"notes"`
}

// TotalSizeBytes gives the size of the device. This is the minimum size of
// the image file.
func (p *Preset) TotalSizeBytes() int64 {
	return int64(p.TotalSectors) * c.BytesPerSector
}

//go:embed disk-presets.csv
var diskPresetsRawCSV string
var diskPresets map[string]Preset

// GetPreset returns the preset called `slug`.
func GetPreset(slug string) (Preset, error) {
	preset, ok := diskPresets[slug]
	if ok {
		return preset, nil
	}
	return Preset{}, errors.NewWithMessage(
		errors.ENOENT, fmt.Sprintf("no predefined disk exists with slug %q", slug))
}

// Presets returns every preset, smallest first.
func Presets() []Preset {
	presets := make([]Preset, 0, len(diskPresets))
	for _, preset := range diskPresets {
		presets = append(presets, preset)
	}
	sort.Slice(presets, func(i, j int) bool {
		return presets[i].TotalSectors < presets[j].TotalSectors
	})
	return presets
}

func parsePresets(rawCSV string) (map[string]Preset, error) {
	csvReader := csv.NewReader(strings.NewReader(rawCSV))
	csvReader.Comma = '|'

	rows := []Preset{}
	err := gocsv.UnmarshalCSV(csvReader, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to decode disk presets: %w", err)
	}

	presets := make(map[string]Preset, len(rows))
	for i, row := range rows {
		if _, exists := presets[row.Slug]; exists {
			return nil, fmt.Errorf("duplicate definition for disk %q found on row %d", row.Slug, i+1)
		}
		if row.TotalSectors == 0 {
			return nil, fmt.Errorf("disk %q on row %d has no size", row.Slug, i+1)
		}
		presets[row.Slug] = row
	}
	return presets, nil
}

func init() {
	var err error
	diskPresets, err = parsePresets(diskPresetsRawCSV)
	if err != nil {
		panic(err)
	}
}
