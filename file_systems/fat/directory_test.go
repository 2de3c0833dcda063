package fat

import (
	"testing"
	"time"

	"github.com/dargueta/fat16"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/common/blockcache"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDirectory creates a one-sector directory (16 slots) backed by a FAT
// with `totalClusters` entries.
func newTestDirectory(t *testing.T, totalClusters uint32, clock func() time.Time) *DirectoryTable {
	cache := blockcache.WrapDevice(c.NewMemoryDevice(1), 0, 1)
	require.NoError(t, cache.LoadAll())
	return NewDirectoryTable(cache, 16, newTestFAT(t, totalClusters), clock)
}

func listedNames(d *DirectoryTable) []string {
	names := []string{}
	for _, info := range d.List() {
		names = append(names, info.Name())
	}
	return names
}

func TestDirectory__CreateAndFind(t *testing.T) {
	dir := newTestDirectory(t, 32, nil)

	index, entry, err := dir.Create("hello.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, index)
	assert.Equal(t, "HELLO   TXT", string(entry.Name[:]))
	assert.EqualValues(t, AttrArchived, entry.Attributes)
	assert.EqualValues(t, 2, entry.FirstCluster)
	assert.EqualValues(t, 0, entry.Size)
	assert.Equal(t, DefaultDate, entry.Date)
	assert.Equal(t, DefaultTime, entry.Time)
	assert.True(t, IsEndOfChain(dir.fat.ReadEntry(2)))

	found, foundEntry, ok := dir.FindEntry("HELLO.TXT")
	require.True(t, ok, "lookup should be case-insensitive")
	assert.Equal(t, index, found)
	assert.Equal(t, entry, foundEntry)

	_, _, err = dir.Create("Hello.Txt")
	assert.ErrorIs(t, err, fat16.ErrExists)

	_, _, err = dir.Create("bad name")
	assert.ErrorIs(t, err, fat16.ErrInvalidName)

	_, _, ok = dir.FindEntry("bad name")
	assert.False(t, ok)
}

func TestDirectory__UsesClock(t *testing.T) {
	when := time.Date(2020, time.July, 4, 10, 30, 0, 0, time.UTC)
	dir := newTestDirectory(t, 32, func() time.Time { return when })

	_, entry, err := dir.Create("a.txt")
	require.NoError(t, err)
	assert.Equal(t, when, entry.ModTime())
}

func TestDirectory__Full(t *testing.T) {
	dir := newTestDirectory(t, 64, nil)
	for i := 0; i < dir.Capacity(); i++ {
		_, _, err := dir.Create(string(rune('A'+i)) + ".TXT")
		require.NoError(t, err)
	}

	_, _, err := dir.Create("ONEMORE.TXT")
	assert.ErrorIs(t, err, fat16.ErrDirectoryFull)

	// A deleted slot can be reused.
	require.NoError(t, dir.Delete("C.TXT"))
	index, _, err := dir.Create("ONEMORE.TXT")
	require.NoError(t, err)
	assert.Equal(t, 2, index)
}

func TestDirectory__NoSpace(t *testing.T) {
	dir := newTestDirectory(t, 3, nil)

	_, _, err := dir.Create("first")
	require.NoError(t, err)

	_, _, err = dir.Create("second")
	assert.ErrorIs(t, err, fat16.ErrNoSpace)
	assert.Equal(t, []string{"FIRST"}, listedNames(dir))
}

func TestDirectory__Delete(t *testing.T) {
	dir := newTestDirectory(t, 32, nil)
	index, _, err := dir.Create("a.txt")
	require.NoError(t, err)
	require.NoError(t, dir.UpdateFile(index, 9000, 2))
	require.True(t, dir.fat.AllocateChain(2, 2))
	freeBefore := dir.fat.CountFree()

	require.NoError(t, dir.Delete("A.TXT"))
	assert.Equal(t, freeBefore+3, dir.fat.CountFree())

	raw, err := dir.Entry(index)
	require.NoError(t, err)
	assert.True(t, raw.IsDeleted())
	// Everything but the first byte is left alone.
	assert.Equal(t, "TXT", string(raw.Name[8:]))
	assert.EqualValues(t, 9000, raw.Size)

	_, _, found := dir.FindEntry("A.TXT")
	assert.False(t, found)
	assert.ErrorIs(t, dir.Delete("A.TXT"), fat16.ErrNotFound)
}

func TestDirectory__Rename(t *testing.T) {
	dir := newTestDirectory(t, 32, nil)
	index, _, err := dir.Create("old.txt")
	require.NoError(t, err)
	require.NoError(t, dir.UpdateFile(index, 77, 2))
	_, _, err = dir.Create("other.txt")
	require.NoError(t, err)

	require.NoError(t, dir.Rename("old.txt", "new.dat"))
	newIndex, entry, found := dir.FindEntry("NEW.DAT")
	require.True(t, found)
	assert.Equal(t, index, newIndex)
	assert.EqualValues(t, 77, entry.Size)
	assert.EqualValues(t, 2, entry.FirstCluster)

	assert.ErrorIs(t, dir.Rename("old.txt", "x.txt"), fat16.ErrNotFound)
	assert.ErrorIs(t, dir.Rename("new.dat", "other.txt"), fat16.ErrExists)
	assert.ErrorIs(t, dir.Rename("new.dat", "new.dat"), fat16.ErrExists)
	assert.ErrorIs(t, dir.Rename("new.dat", "a*b"), fat16.ErrInvalidName)
}

// Entries after the end-of-directory marker are invisible, and volume labels
// and subdirectories are skipped.
func TestDirectory__ScanRules(t *testing.T) {
	dir := newTestDirectory(t, 32, nil)

	put := func(index int, name string, attrs uint8) {
		name83, err := NameTo83(name)
		require.NoError(t, err)
		require.NoError(t, dir.putEntry(index, DirEntry{Name: name83, Attributes: attrs}))
	}
	put(0, "LABEL", AttrVolumeLabel)
	put(1, "SUBDIR", AttrDirectory)
	put(2, "VISIBLE.TXT", AttrArchived)
	// Slot 3 is left as the end-of-directory marker.
	put(4, "HIDDEN.TXT", AttrArchived)

	assert.Equal(t, []string{"VISIBLE.TXT"}, listedNames(dir))
	_, _, found := dir.FindEntry("HIDDEN.TXT")
	assert.False(t, found)
	_, _, found = dir.FindEntry("SUBDIR")
	assert.False(t, found)

	slot, ok := dir.FindFreeSlot()
	require.True(t, ok)
	assert.Equal(t, 3, slot)

	infos := dir.List()
	require.Len(t, infos, 1)
	assert.Equal(t, 2, infos[0].Slot())
}

func TestDirectory__List(t *testing.T) {
	dir := newTestDirectory(t, 32, nil)
	for _, name := range []string{"one.txt", "two", "three.c"} {
		_, _, err := dir.Create(name)
		require.NoError(t, err)
	}
	require.NoError(t, dir.Delete("two"))

	type row struct {
		Name    string
		Cluster c.ClusterID
		Slot    int
	}
	rows := []row{}
	for _, info := range dir.List() {
		rows = append(rows, row{info.Name(), info.FirstCluster(), info.Slot()})
	}

	expected := []row{{"ONE.TXT", 2, 0}, {"THREE.C", 4, 2}}
	if diff := cmp.Diff(expected, rows); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}
