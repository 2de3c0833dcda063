package fat

import (
	"os"
	"time"

	c "github.com/dargueta/fat16/file_systems/common"
)

// FileInfo describes a file in the root directory. It implements
// [os.FileInfo]; Sys returns the raw [DirEntry].
type FileInfo struct {
	entry DirEntry
	index int
}

func newFileInfo(entry DirEntry, index int) *FileInfo {
	return &FileInfo{entry: entry, index: index}
}

// Name returns the display name, e.g. "README.TXT".
func (fi *FileInfo) Name() string {
	return fi.entry.Name.String()
}

func (fi *FileInfo) Size() int64 {
	return int64(fi.entry.Size)
}

func (fi *FileInfo) Mode() os.FileMode {
	return AttrFlagsToFileMode(fi.entry.Attributes)
}

func (fi *FileInfo) ModTime() time.Time {
	return fi.entry.ModTime()
}

func (fi *FileInfo) IsDir() bool {
	return fi.entry.Attributes&AttrDirectory != 0
}

func (fi *FileInfo) Sys() interface{} {
	return fi.entry
}

// FirstCluster returns the first cluster of the file's data.
func (fi *FileInfo) FirstCluster() c.ClusterID {
	return c.ClusterID(fi.entry.FirstCluster)
}

// Attributes returns the raw attribute flags.
func (fi *FileInfo) Attributes() uint8 {
	return fi.entry.Attributes
}

// Slot returns the index of the entry in the root directory.
func (fi *FileInfo) Slot() int {
	return fi.index
}
