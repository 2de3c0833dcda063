package fat

import (
	"bytes"
	"encoding/binary"
	"os"
	"time"

	"github.com/dargueta/fat16"
	"github.com/noxer/bytewriter"
)

// DirentSize is the size of a single raw directory entry, in bytes.
const DirentSize = 32

// Values of the first byte of a directory entry's name that mark the slot as
// unused.
const (
	// EndOfDirectory marks the first never-used slot. Every slot after it is
	// also unused, so scans stop here.
	EndOfDirectory = 0x00
	// DeletedEntry marks a slot whose file was deleted. The rest of the entry
	// is stale.
	DeletedEntry = 0xE5
)

const (
	// AttrReadOnly is an attribute flag marking a directory entry as read-only.
	AttrReadOnly = 0x01

	// AttrHidden is an attribute flag marking a directory entry as "hidden". It
	// is preserved but not honored.
	AttrHidden = 0x02

	AttrSystem = 0x04

	// AttrVolumeLabel is an attribute flag that marks an entry as holding the
	// volume label instead of a file. Such entries are skipped.
	AttrVolumeLabel = 0x08

	// AttrDirectory marks an entry as a subdirectory. Subdirectories aren't
	// supported, so these entries are skipped.
	AttrDirectory = 0x10

	// AttrArchived is set on every entry this package creates. Backup tools use
	// it to find files that changed.
	AttrArchived = 0x20
)

// The timestamp given to new entries when the volume has no clock.
const (
	DefaultTime uint16 = 0x8000
	DefaultDate uint16 = 0x4A97
)

// fatEpoch is the earliest representable date, 1980-01-01.
var fatEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// DirEntry is the on-disk representation of a directory entry.
type DirEntry struct {
	Name         Name83
	Attributes   uint8
	Reserved     [10]byte
	Time         uint16
	Date         uint16
	FirstCluster uint16
	Size         uint32
}

// DecodeDirEntry deserializes 32 bytes into a DirEntry.
func DecodeDirEntry(data []byte) (DirEntry, error) {
	entry := DirEntry{}
	err := binary.Read(bytes.NewReader(data[:DirentSize]), binary.LittleEndian, &entry)
	if err != nil {
		return entry, fat16.ErrIOFailed.Wrap(err)
	}
	return entry, nil
}

// EncodeInto serializes the entry into the first 32 bytes of `data`.
func (e *DirEntry) EncodeInto(data []byte) error {
	err := binary.Write(bytewriter.New(data[:DirentSize]), binary.LittleEndian, e)
	if err != nil {
		return fat16.ErrIOFailed.Wrap(err)
	}
	return nil
}

// IsEndOfDirectory returns true if the slot and all slots after it are unused.
func (e *DirEntry) IsEndOfDirectory() bool {
	return e.Name[0] == EndOfDirectory
}

// IsDeleted returns true if the slot held a file that was deleted.
func (e *DirEntry) IsDeleted() bool {
	return e.Name[0] == DeletedEntry
}

// IsFree returns true if a new entry can be written into the slot.
func (e *DirEntry) IsFree() bool {
	return e.IsEndOfDirectory() || e.IsDeleted()
}

// IsFile returns true if the slot holds a regular file.
func (e *DirEntry) IsFile() bool {
	return !e.IsFree() && e.Attributes&(AttrVolumeLabel|AttrDirectory) == 0
}

// ModTime converts the entry's date and time fields into a time.Time.
func (e *DirEntry) ModTime() time.Time {
	return TimestampFromParts(e.Date, e.Time)
}

// DateFromInt converts the FAT on-disk representation of a date into a Go
// time.Time at midnight UTC.
func DateFromInt(value uint16) time.Time {
	day := int(value & 0x001f)
	month := time.Month((value >> 5) & 0x000f)
	year := 1980 + int(value>>9)
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// TimestampFromParts converts a FAT date and time into a time.Time. The time
// field has a resolution of two seconds.
func TimestampFromParts(datePart uint16, timePart uint16) time.Time {
	date := DateFromInt(datePart)
	seconds := int(timePart&0x001f) * 2
	minutes := int((timePart >> 5) & 0x003f)
	hours := int(timePart >> 11)
	return time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, seconds, 0, time.UTC)
}

// TimestampToParts is the inverse of [TimestampFromParts]. Times outside of
// 1980-2107 are clamped to the nearest representable value.
func TimestampToParts(t time.Time) (datePart uint16, timePart uint16) {
	t = t.UTC()
	if t.Before(fatEpoch) {
		t = fatEpoch
	}
	if t.Year() > 2107 {
		t = time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC)
	}

	datePart = uint16(t.Year()-1980)<<9 | uint16(t.Month())<<5 | uint16(t.Day())
	timePart = uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
	return datePart, timePart
}

// AttrFlagsToFileMode converts FAT attribute flags into an os.FileMode. FAT
// has no execute permission, so it is never set.
func AttrFlagsToFileMode(flags uint8) os.FileMode {
	var mode os.FileMode = 0o666
	if flags&AttrReadOnly != 0 {
		mode = 0o444
	}
	if flags&AttrDirectory != 0 {
		mode |= os.ModeDir | 0o111
	}
	return mode
}
