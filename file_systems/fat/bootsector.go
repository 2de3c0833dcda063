// Package fat implements a FAT16 volume: the boot sector and geometry, the
// File Allocation Table, the root directory, file handles, and the
// load/format/sync cycle that persists them to a block device.
package fat

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dargueta/fat16"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/noxer/bytewriter"
)

// Layout written by Format. Only the total sector count varies.
const (
	DefaultSectorsPerCluster = 8
	DefaultReservedSectors   = 1
	DefaultNumFATs           = 2
	DefaultRootEntries       = 512
	DefaultSectorsPerFAT     = 800
	DefaultMediaDescriptor   = 0xF8
	DefaultSectorsPerTrack   = 63
	DefaultHeads             = 16

	// DefaultTotalSectors is the size of a 500 MiB volume.
	DefaultTotalSectors = 500 * 1024 * 1024 / c.BytesPerSector
)

var defaultOEMName = [8]byte{'M', 'Y', 'O', 'S', ' ', ' ', ' ', ' '}
var fat16TypeName = [8]byte{'F', 'A', 'T', '1', '6', ' ', ' ', ' '}

// bootSignatureOffset is where 0x55 0xAA is written in sector 0.
const bootSignatureOffset = 510

// BootSector is the on-disk representation of the first 62 bytes of sector 0:
// the BIOS Parameter Block and the FAT12/16 extended fields.
type BootSector struct {
	JmpBoot           [3]byte
	OEMName           [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	NumFATs           uint8
	RootEntryCount    uint16
	TotalSectors16    uint16
	Media             uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	NumHeads          uint16
	HiddenSectors     uint32
	TotalSectors32    uint32
	DriveNumber       uint8
	Reserved1         uint8
	BootSignature     uint8
	VolumeID          uint32
	VolumeLabel       [11]byte
	FileSystemType    [8]byte
}

// NewDefaultBootSector returns the boot sector Format writes for a volume of
// `totalSectors` sectors.
func NewDefaultBootSector(totalSectors uint32) BootSector {
	return BootSector{
		JmpBoot:           [3]byte{0xEB, 0x3C, 0x90},
		OEMName:           defaultOEMName,
		BytesPerSector:    c.BytesPerSector,
		SectorsPerCluster: DefaultSectorsPerCluster,
		ReservedSectors:   DefaultReservedSectors,
		NumFATs:           DefaultNumFATs,
		RootEntryCount:    DefaultRootEntries,
		Media:             DefaultMediaDescriptor,
		SectorsPerFAT:     DefaultSectorsPerFAT,
		SectorsPerTrack:   DefaultSectorsPerTrack,
		NumHeads:          DefaultHeads,
		TotalSectors32:    totalSectors,
		FileSystemType:    fat16TypeName,
	}
}

// TotalSectors returns the volume size, taking it from whichever of the two
// size fields is in use.
func (b *BootSector) TotalSectors() uint32 {
	if b.TotalSectors16 != 0 {
		return uint32(b.TotalSectors16)
	}
	return b.TotalSectors32
}

// ParseBootSector decodes sector 0 of a volume. It only checks that the buffer
// is large enough; use [ComputeGeometry] to validate the values.
func ParseBootSector(sector []byte) (BootSector, error) {
	bootSector := BootSector{}
	if len(sector) < binary.Size(bootSector) {
		return bootSector, fat16.ErrInvalidVolume.WithMessage(
			fmt.Sprintf("boot sector is %d bytes, need %d", len(sector), binary.Size(bootSector)))
	}

	err := binary.Read(bytes.NewReader(sector), binary.LittleEndian, &bootSector)
	if err != nil {
		return bootSector, fat16.ErrInvalidVolume.Wrap(err)
	}
	return bootSector, nil
}

// MarshalSector encodes the boot sector into a full 512-byte sector ending in
// the 0x55AA signature.
func (b *BootSector) MarshalSector() ([]byte, error) {
	sector := make([]byte, c.BytesPerSector)
	writer := bytewriter.New(sector)

	err := binary.Write(writer, binary.LittleEndian, b)
	if err != nil {
		return nil, fat16.ErrIOFailed.Wrap(err)
	}

	sector[bootSignatureOffset] = 0x55
	sector[bootSignatureOffset+1] = 0xAA
	return sector, nil
}
