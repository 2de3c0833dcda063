package fat

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dargueta/fat16"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/golang/glog"
)

// File is an open handle on a file in the root directory. Handles are created
// by [Volume.OpenFile] and are not safe for concurrent use.
type File struct {
	volume *Volume
	name   string
	name83 Name83
	// slot is the file's index in the root directory. It doesn't change while
	// the file is open because open files can't be deleted or renamed.
	slot         int
	size         uint32
	firstCluster c.ClusterID
	// currentCluster is cluster number `clusterIndex` of the chain. It saves
	// walking the chain from the start on every sequential access.
	currentCluster c.ClusterID
	clusterIndex   uint32
	position       uint32
	mode           fat16.OpenMode
	isOpen         bool
}

var _ fat16.FileHandle = (*File)(nil)

// Name returns the name the file was opened with.
func (f *File) Name() string {
	return f.name
}

func (f *File) Size() int64 {
	return int64(f.size)
}

func (f *File) Mode() fat16.OpenMode {
	return f.mode
}

// Tell returns the cursor position.
func (f *File) Tell() int64 {
	return int64(f.position)
}

// FirstCluster returns the head of the file's cluster chain.
func (f *File) FirstCluster() c.ClusterID {
	return f.firstCluster
}

// IsOpen returns false once the handle has been closed, either directly or by
// unmounting the volume.
func (f *File) IsOpen() bool {
	return f.isOpen
}

func (f *File) checkOpen() error {
	if !f.isOpen {
		return fat16.ErrClosed.WithMessage(f.name)
	}
	return nil
}

// seekCluster returns cluster number `index` of the file's chain. Sequential
// access continues from the last cluster used; going backwards restarts from
// the head.
func (f *File) seekCluster(index uint32) (c.ClusterID, bool) {
	if uint32(f.firstCluster) < uint32(FirstDataCluster) {
		return 0, false
	}

	start, steps := f.firstCluster, index
	if uint32(f.currentCluster) >= uint32(FirstDataCluster) && index >= f.clusterIndex {
		start, steps = f.currentCluster, index-f.clusterIndex
	}

	cluster, ok := f.volume.fat.ClusterAt(start, steps)
	if !ok {
		return 0, false
	}
	f.currentCluster = cluster
	f.clusterIndex = index
	return cluster, true
}

// sectorFor returns the sector holding byte `position` of the file, and the
// offset of that byte within the sector.
func (f *File) sectorFor(cluster c.ClusterID, position uint32) (c.SectorID, uint32) {
	g := f.volume.geometry
	inCluster := position % g.BytesPerCluster()
	lba := g.ClusterToSector(cluster) + c.SectorID(inCluster/c.BytesPerSector)
	return lba, inCluster % c.BytesPerSector
}

// Read copies bytes from the cursor into `buffer` and advances the cursor. It
// never reads past the file's size; at the end it returns 0 and [io.EOF].
func (f *File) Read(buffer []byte) (int, error) {
	v := f.volume
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if f.mode != fat16.OpenModeRead {
		return 0, fat16.ErrBadMode.WithMessage(
			fmt.Sprintf("can't read %s, opened for %s", f.name, f.mode))
	}
	if f.position >= f.size {
		return 0, io.EOF
	}
	if len(buffer) == 0 {
		return 0, nil
	}

	scratch, err := v.acquireScratch()
	if err != nil {
		return 0, err
	}
	defer v.releaseScratch()

	bytesPerCluster := v.geometry.BytesPerCluster()
	total := 0
	for total < len(buffer) && f.position < f.size {
		cluster, ok := f.seekCluster(f.position / bytesPerCluster)
		if !ok {
			return total, fat16.ErrCorrupted.WithMessage(
				fmt.Sprintf(
					"%s: cluster chain ends before byte %d of %d",
					f.name,
					f.position,
					f.size,
				),
			)
		}

		lba, offset := f.sectorFor(cluster, f.position)
		err = v.device.ReadSector(lba, scratch)
		if err != nil {
			return total, err
		}

		chunk := minUint32(
			c.BytesPerSector-offset,
			sectorClamp(len(buffer)-total),
			f.size-f.position,
		)
		copy(buffer[total:], scratch[offset:offset+chunk])
		total += int(chunk)
		f.position += chunk
	}
	return total, nil
}

// Write copies `data` into the file at the cursor, extending the file and its
// cluster chain as needed. If the volume runs out of clusters it writes as
// much as fits and returns the count with [fat16.ErrNoSpace].
func (f *File) Write(data []byte) (int, error) {
	v := f.volume
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := f.checkOpen(); err != nil {
		return 0, err
	}
	if !f.mode.CanWrite() {
		return 0, fat16.ErrBadMode.WithMessage(
			fmt.Sprintf("can't write %s, opened for %s", f.name, f.mode))
	}
	if len(data) == 0 {
		return 0, nil
	}

	end := uint64(f.position) + uint64(len(data))
	if end > math.MaxUint32 {
		return 0, fat16.ErrFileTooLarge.WithMessage(
			fmt.Sprintf("%s can't grow to %d bytes", f.name, end))
	}

	oldSize := f.size
	oldHead := f.firstCluster

	// An entry with no clusters gets its first one now.
	if uint32(f.firstCluster) < uint32(FirstDataCluster) {
		head, ok := v.fat.AllocateHead()
		if !ok {
			return 0, fat16.ErrNoSpace.WithMessage(f.name)
		}
		f.firstCluster = head
		f.currentCluster = head
		f.clusterIndex = 0
	}

	bytesPerCluster := uint64(v.geometry.BytesPerCluster())
	needed := uint32((end + bytesPerCluster - 1) / bytesPerCluster)
	have := v.fat.ChainLength(f.firstCluster)
	if needed > have && !v.fat.AllocateChain(f.firstCluster, needed-have) {
		glog.Warningf("%s: volume full, wanted %d more clusters", f.name, needed-have)
	}

	total, err := f.writeLocked(data)

	if f.position > f.size {
		f.size = f.position
	}
	if f.size != oldSize || f.firstCluster != oldHead {
		updateErr := v.dir.UpdateFile(f.slot, f.size, f.firstCluster)
		if err == nil {
			err = updateErr
		}
	}

	if err == nil && total < len(data) {
		glog.Warningf("%s: short write, %d of %d bytes", f.name, total, len(data))
		err = fat16.ErrNoSpace.WithMessage(
			fmt.Sprintf("%s: wrote %d of %d bytes", f.name, total, len(data)))
	}
	return total, err
}

func (f *File) writeLocked(data []byte) (int, error) {
	v := f.volume
	scratch, err := v.acquireScratch()
	if err != nil {
		return 0, err
	}
	defer v.releaseScratch()

	bytesPerCluster := v.geometry.BytesPerCluster()
	total := 0
	for total < len(data) {
		cluster, ok := f.seekCluster(f.position / bytesPerCluster)
		if !ok {
			// The chain ended early. Link one more cluster onto it.
			next, found := v.fat.FindFreeCluster()
			if !found {
				break
			}
			v.fat.WriteEntry(next, EndOfChain)
			v.fat.WriteEntry(v.fat.ChainTail(f.firstCluster), uint16(next))
			continue
		}

		lba, offset := f.sectorFor(cluster, f.position)
		chunk := minUint32(c.BytesPerSector-offset, sectorClamp(len(data)-total))

		if offset != 0 || chunk < c.BytesPerSector {
			err = v.device.ReadSector(lba, scratch)
			if err != nil {
				return total, err
			}
		} else {
			for i := range scratch {
				scratch[i] = 0
			}
		}

		copy(scratch[offset:], data[total:total+int(chunk)])
		err = v.device.WriteSector(lba, scratch)
		if err != nil {
			return total, err
		}

		total += int(chunk)
		f.position += chunk
	}
	return total, nil
}

// WriteString is like Write but takes a string.
func (f *File) WriteString(s string) (int, error) {
	return f.Write([]byte(s))
}

// Seek moves the cursor. The new position must be within [0, Size()].
func (f *File) Seek(offset int64, whence int) (int64, error) {
	f.volume.mutex.Lock()
	defer f.volume.mutex.Unlock()

	if err := f.checkOpen(); err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(f.position)
	case io.SeekEnd:
		base = int64(f.size)
	default:
		return int64(f.position), fat16.ErrInvalidSeek.WithMessage(
			fmt.Sprintf("bad whence %d", whence))
	}

	target := base + offset
	if target < 0 || target > int64(f.size) {
		return int64(f.position), fat16.ErrInvalidSeek.WithMessage(
			fmt.Sprintf("position %d not in [0, %d]", target, f.size))
	}
	f.position = uint32(target)
	return target, nil
}

// Stat returns the current directory entry of the file.
func (f *File) Stat() (os.FileInfo, error) {
	f.volume.mutex.Lock()
	defer f.volume.mutex.Unlock()

	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	entry, err := f.volume.dir.Entry(f.slot)
	if err != nil {
		return nil, err
	}
	return newFileInfo(entry, f.slot), nil
}

// Close releases the handle. It doesn't sync the volume.
func (f *File) Close() error {
	f.volume.mutex.Lock()
	defer f.volume.mutex.Unlock()

	if err := f.checkOpen(); err != nil {
		return err
	}
	f.closeLocked()
	return nil
}

func (f *File) closeLocked() {
	f.isOpen = false
	delete(f.volume.openFiles, f.name83)
	glog.V(1).Infof("closed %q", f.name)
}

// sectorClamp converts a remaining byte count to uint32, capped at one sector.
func sectorClamp(n int) uint32 {
	if n > c.BytesPerSector {
		return c.BytesPerSector
	}
	return uint32(n)
}

func minUint32(first uint32, rest ...uint32) uint32 {
	result := first
	for _, value := range rest {
		if value < result {
			result = value
		}
	}
	return result
}
