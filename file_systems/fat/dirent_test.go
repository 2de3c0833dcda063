package fat

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirEntry__EncodeDecode(t *testing.T) {
	name, err := NameTo83("readme.txt")
	require.NoError(t, err)

	entry := DirEntry{
		Name:         name,
		Attributes:   AttrArchived,
		Time:         DefaultTime,
		Date:         DefaultDate,
		FirstCluster: 0x1234,
		Size:         0xAABBCCDD,
	}

	raw := make([]byte, DirentSize)
	require.NoError(t, entry.EncodeInto(raw))

	expected := []byte{
		'R', 'E', 'A', 'D', 'M', 'E', ' ', ' ', 'T', 'X', 'T',
		0x20,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0x00, 0x80,
		0x97, 0x4A,
		0x34, 0x12,
		0xDD, 0xCC, 0xBB, 0xAA,
	}
	assert.Equal(t, expected, raw)

	decoded, err := DecodeDirEntry(raw)
	require.NoError(t, err)
	assert.Equal(t, entry, decoded)
	assert.True(t, decoded.IsFile())
}

func TestDirEntry__SlotStates(t *testing.T) {
	entry := DirEntry{}
	assert.True(t, entry.IsEndOfDirectory())
	assert.True(t, entry.IsFree())
	assert.False(t, entry.IsFile())

	entry.Name[0] = DeletedEntry
	assert.True(t, entry.IsDeleted())
	assert.True(t, entry.IsFree())
	assert.False(t, entry.IsFile())

	entry.Name[0] = 'A'
	assert.True(t, entry.IsFile())

	entry.Attributes = AttrVolumeLabel
	assert.False(t, entry.IsFile(), "volume labels aren't files")
	entry.Attributes = AttrDirectory
	assert.False(t, entry.IsFile(), "subdirectories aren't files")
	entry.Attributes = AttrReadOnly | AttrHidden | AttrSystem | AttrArchived
	assert.True(t, entry.IsFile())
}

func TestDefaultTimestamp(t *testing.T) {
	entry := DirEntry{Date: DefaultDate, Time: DefaultTime}
	assert.Equal(t, time.Date(2017, time.April, 23, 16, 0, 0, 0, time.UTC), entry.ModTime())
}

func TestTimestampToParts(t *testing.T) {
	when := time.Date(2024, time.February, 29, 13, 45, 58, 0, time.UTC)
	date, tm := TimestampToParts(when)
	assert.Equal(t, when, TimestampFromParts(date, tm))

	// Odd seconds round down.
	date, tm = TimestampToParts(when.Add(time.Second))
	assert.Equal(t, when, TimestampFromParts(date, tm))

	date, tm = TimestampToParts(time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC))
	assert.EqualValues(t, 0x0021, date)
	assert.EqualValues(t, 0, tm)

	date, tm = TimestampToParts(time.Date(2200, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(
		t,
		time.Date(2107, time.December, 31, 23, 59, 58, 0, time.UTC),
		TimestampFromParts(date, tm),
	)
}

func TestAttrFlagsToFileMode(t *testing.T) {
	assert.Equal(t, os.FileMode(0o666), AttrFlagsToFileMode(AttrArchived))
	assert.Equal(t, os.FileMode(0o444), AttrFlagsToFileMode(AttrReadOnly))
	assert.True(t, AttrFlagsToFileMode(AttrDirectory).IsDir())
}
