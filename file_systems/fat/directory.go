package fat

import (
	"fmt"
	"time"

	"github.com/dargueta/fat16"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/common/blockcache"
)

// DirectoryTable is the in-memory root directory: a fixed array of 32-byte
// slots kept in an arena that is written back to the root region on sync.
type DirectoryTable struct {
	cache    *blockcache.BlockCache
	capacity int
	fat      *FATTable
	clock    func() time.Time
}

// NewDirectoryTable wraps an arena holding `capacity` slots. New entries are
// stamped with `clock`, or with [DefaultDate] and [DefaultTime] if it's nil.
func NewDirectoryTable(
	cache *blockcache.BlockCache,
	capacity int,
	fat *FATTable,
	clock func() time.Time,
) *DirectoryTable {
	return &DirectoryTable{cache: cache, capacity: capacity, fat: fat, clock: clock}
}

// Capacity returns the number of slots in the directory.
func (d *DirectoryTable) Capacity() int {
	return d.capacity
}

func (d *DirectoryTable) slot(index int) []byte {
	data, _ := d.cache.Data()
	return data[index*DirentSize : (index+1)*DirentSize]
}

// Entry decodes the entry in slot `index`.
func (d *DirectoryTable) Entry(index int) (DirEntry, error) {
	if index < 0 || index >= d.capacity {
		return DirEntry{}, fat16.ErrOutOfBounds.WithMessage(
			fmt.Sprintf("directory slot %d not in [0, %d)", index, d.capacity))
	}
	return DecodeDirEntry(d.slot(index))
}

func (d *DirectoryTable) putEntry(index int, entry DirEntry) error {
	err := entry.EncodeInto(d.slot(index))
	if err != nil {
		return err
	}
	return d.cache.MarkByteRangeDirty(uint(index*DirentSize), DirentSize)
}

func (d *DirectoryTable) timestamp() (uint16, uint16) {
	if d.clock == nil {
		return DefaultDate, DefaultTime
	}
	return TimestampToParts(d.clock())
}

// findName83 scans the slots in storage order, stopping at the end-of-directory
// marker.
func (d *DirectoryTable) findName83(name Name83) (int, DirEntry, bool) {
	for i := 0; i < d.capacity; i++ {
		entry, err := d.Entry(i)
		if err != nil || entry.IsEndOfDirectory() {
			break
		}
		if entry.IsFile() && entry.Name == name {
			return i, entry, true
		}
	}
	return -1, DirEntry{}, false
}

// FindEntry returns the slot index and contents of the file called `name`.
// Names are compared in their 8.3 form, so "readme.txt" finds "README.TXT".
func (d *DirectoryTable) FindEntry(name string) (int, DirEntry, bool) {
	name83, err := NameTo83(name)
	if err != nil {
		return -1, DirEntry{}, false
	}
	return d.findName83(name83)
}

// lookup is like FindEntry but returns an error suitable for callers.
func (d *DirectoryTable) lookup(name string) (int, DirEntry, error) {
	name83, err := NameTo83(name)
	if err != nil {
		return -1, DirEntry{}, err
	}
	index, entry, ok := d.findName83(name83)
	if !ok {
		return -1, DirEntry{}, fat16.ErrNotFound.WithMessage(name)
	}
	return index, entry, nil
}

// FindFreeSlot returns the first slot that is unused or deleted.
func (d *DirectoryTable) FindFreeSlot() (int, bool) {
	for i := 0; i < d.capacity; i++ {
		if d.slot(i)[0] == EndOfDirectory || d.slot(i)[0] == DeletedEntry {
			return i, true
		}
	}
	return -1, false
}

// Create adds an empty file called `name` and gives it one cluster marked as
// the end of its chain.
func (d *DirectoryTable) Create(name string) (int, DirEntry, error) {
	name83, err := NameTo83(name)
	if err != nil {
		return -1, DirEntry{}, err
	}
	if _, _, exists := d.findName83(name83); exists {
		return -1, DirEntry{}, fat16.ErrExists.WithMessage(name)
	}

	index, ok := d.FindFreeSlot()
	if !ok {
		return -1, DirEntry{}, fat16.ErrDirectoryFull
	}

	cluster, ok := d.fat.AllocateHead()
	if !ok {
		return -1, DirEntry{}, fat16.ErrNoSpace.WithMessage(
			fmt.Sprintf("no free cluster for %s", name))
	}

	date, tm := d.timestamp()
	entry := DirEntry{
		Name:         name83,
		Attributes:   AttrArchived,
		Time:         tm,
		Date:         date,
		FirstCluster: uint16(cluster),
	}
	err = d.putEntry(index, entry)
	if err != nil {
		d.fat.FreeChain(cluster)
		return -1, DirEntry{}, err
	}
	return index, entry, nil
}

// Delete releases the file's clusters and marks its slot as deleted. The size
// and cluster fields of the slot are left as they were.
func (d *DirectoryTable) Delete(name string) error {
	index, entry, err := d.lookup(name)
	if err != nil {
		return err
	}

	d.fat.FreeChain(c.ClusterID(entry.FirstCluster))
	d.slot(index)[0] = DeletedEntry
	return d.cache.MarkByteRangeDirty(uint(index*DirentSize), 1)
}

// Rename changes the name of a file in place. Size, cluster, and timestamps
// are unchanged.
func (d *DirectoryTable) Rename(oldName, newName string) error {
	index, entry, err := d.lookup(oldName)
	if err != nil {
		return err
	}

	newName83, err := NameTo83(newName)
	if err != nil {
		return err
	}
	if _, _, exists := d.findName83(newName83); exists {
		return fat16.ErrExists.WithMessage(newName)
	}

	entry.Name = newName83
	return d.putEntry(index, entry)
}

// UpdateFile records a new size and first cluster for the entry in slot
// `index`.
func (d *DirectoryTable) UpdateFile(index int, size uint32, firstCluster c.ClusterID) error {
	entry, err := d.Entry(index)
	if err != nil {
		return err
	}
	entry.Size = size
	entry.FirstCluster = uint16(firstCluster)
	return d.putEntry(index, entry)
}

// List returns every regular file in storage order, stopping at the
// end-of-directory marker.
func (d *DirectoryTable) List() []*FileInfo {
	files := make([]*FileInfo, 0, 16)
	for i := 0; i < d.capacity; i++ {
		entry, err := d.Entry(i)
		if err != nil || entry.IsEndOfDirectory() {
			break
		}
		if entry.IsFile() {
			files = append(files, newFileInfo(entry, i))
		}
	}
	return files
}

// Reset marks every slot as unused.
func (d *DirectoryTable) Reset() {
	d.cache.Reset()
}

// IsDirty returns true if any slot has changed since the last flush.
func (d *DirectoryTable) IsDirty() bool {
	return d.cache.IsDirty()
}
