package fat

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dargueta/fat16"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/dargueta/fat16/file_systems/common/blockcache"
	"github.com/golang/glog"
	"github.com/hashicorp/go-multierror"
)

// Options controls how a volume is mounted or formatted.
type Options struct {
	// TotalSectors is the size of a volume created by Format. 0 means the size
	// of the device, or [DefaultTotalSectors] if the device doesn't know.
	TotalSectors uint32
	// SeedDemoFiles makes Format create README.TXT and TEST.TXT.
	SeedDemoFiles bool
	// Clock stamps new directory entries. If nil, entries get the fixed
	// [DefaultDate] and [DefaultTime].
	Clock func() time.Time
}

// reformatZeroSectors is how many sectors at the start of the data region
// Volume.Format clears.
const reformatZeroSectors = 100

// Volume is a mounted FAT16 volume. Its methods are safe to call from multiple
// goroutines; they are serialized internally.
type Volume struct {
	mutex      sync.Mutex
	device     c.BlockDevice
	bootSector BootSector
	geometry   Geometry
	options    Options

	fatCache  *blockcache.BlockCache
	rootCache *blockcache.BlockCache
	fat       *FATTable
	dir       *DirectoryTable

	openFiles map[Name83]*File

	// scratch is the single sector buffer used for all data I/O.
	scratch     []byte
	scratchBusy bool

	// fatMirrorsInSync is false after Load until the first sync has rewritten
	// every FAT copy from the in-memory table.
	fatMirrorsInSync bool
	unmounted        bool
}

var _ fat16.Volume = (*Volume)(nil)

func newVolume(device c.BlockDevice, bootSector BootSector, options Options) (*Volume, error) {
	geometry, err := ComputeGeometry(bootSector)
	if err != nil {
		return nil, err
	}
	if geometry.TotalSectors > device.TotalSectors() {
		return nil, fat16.ErrInvalidVolume.WithMessage(
			fmt.Sprintf(
				"volume has %d sectors but the device only has %d",
				geometry.TotalSectors,
				device.TotalSectors(),
			),
		)
	}

	mirrors := make([]c.SectorID, 0, geometry.NumFATs-1)
	for i := uint32(1); i < geometry.NumFATs; i++ {
		mirrors = append(mirrors, geometry.FATStart+c.SectorID(i*geometry.SectorsPerFAT))
	}

	v := &Volume{
		device:     device,
		bootSector: bootSector,
		geometry:   geometry,
		options:    options,
		fatCache:   blockcache.WrapDevice(device, geometry.FATStart, uint(geometry.SectorsPerFAT), mirrors...),
		rootCache:  blockcache.WrapDevice(device, geometry.RootStart, uint(geometry.RootSectors)),
		openFiles:  make(map[Name83]*File),
		scratch:    make([]byte, c.BytesPerSector),
	}
	v.fat = NewFATTable(v.fatCache, geometry.TotalClusters)
	v.dir = NewDirectoryTable(v.rootCache, int(geometry.RootEntries), v.fat, options.Clock)
	return v, nil
}

// Load mounts the volume already on `device`. It fails with
// [fat16.ErrInvalidVolume] if sector 0 doesn't describe a volume this package
// supports.
func Load(device c.BlockDevice, options Options) (*Volume, error) {
	sector := make([]byte, c.BytesPerSector)
	err := device.ReadSector(0, sector)
	if err != nil {
		return nil, err
	}

	bootSector, err := ParseBootSector(sector)
	if err != nil {
		return nil, err
	}

	v, err := newVolume(device, bootSector, options)
	if err != nil {
		return nil, err
	}

	err = v.fatCache.LoadAll()
	if err != nil {
		return nil, err
	}
	err = v.rootCache.LoadAll()
	if err != nil {
		return nil, err
	}

	glog.V(2).Infof(
		"loaded volume: FAT at sector %d, root at %d, data at %d, %d clusters",
		v.geometry.FATStart,
		v.geometry.RootStart,
		v.geometry.DataStart,
		v.geometry.TotalClusters,
	)
	return v, nil
}

// Format writes a new, empty volume to `device` and mounts it.
func Format(device c.BlockDevice, options Options) (*Volume, error) {
	totalSectors := options.TotalSectors
	if totalSectors == 0 {
		totalSectors = device.TotalSectors()
	}
	if totalSectors == 0 {
		totalSectors = DefaultTotalSectors
	}
	if totalSectors > device.TotalSectors() {
		return nil, fat16.ErrOutOfBounds.WithMessage(
			fmt.Sprintf(
				"can't format %d sectors on a device of %d sectors",
				totalSectors,
				device.TotalSectors(),
			),
		)
	}

	bootSector := NewDefaultBootSector(totalSectors)
	v, err := newVolume(device, bootSector, options)
	if err != nil {
		return nil, err
	}

	glog.V(1).Infof("creating new volume of %d sectors", totalSectors)
	v.fat.Reset(bootSector.Media)
	v.dir.Reset()
	v.fatMirrorsInSync = true

	sector, err := bootSector.MarshalSector()
	if err != nil {
		return nil, err
	}
	err = device.WriteSector(0, sector)
	if err != nil {
		return nil, err
	}

	if options.SeedDemoFiles {
		err = v.seedDemoFiles()
		if err != nil {
			return nil, err
		}
	}

	err = v.Sync()
	if err != nil {
		return nil, err
	}

	glog.V(2).Infof(
		"formatted volume: FAT at sector %d, root at %d, data at %d, %d clusters",
		v.geometry.FATStart,
		v.geometry.RootStart,
		v.geometry.DataStart,
		v.geometry.TotalClusters,
	)
	return v, nil
}

// Mount loads the volume on `device`, or formats it if there isn't a valid
// one.
func Mount(device c.BlockDevice, options Options) (*Volume, error) {
	v, err := Load(device, options)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, fat16.ErrInvalidVolume) {
		return nil, err
	}

	glog.Infof("no valid volume found (%s), creating a new one", err.Error())
	return Format(device, options)
}

// Demonstration files written by Format when Options.SeedDemoFiles is set.
const (
	ReadmeText = "Welcome to PureC OS with FAT16 file system!\n" +
		"This is a persistent file system.\n" +
		"Files will be preserved between reboots.\n"
	TestText = "This is a test file for FAT16 file system.\n" +
		"You can create, read, write and delete files.\n"
)

func (v *Volume) seedDemoFiles() error {
	err := v.WriteFile("README.TXT", []byte(ReadmeText))
	if err != nil {
		return err
	}
	return v.WriteFile("TEST.TXT", []byte(TestText))
}

// Geometry returns the layout of the volume.
func (v *Volume) Geometry() Geometry {
	return v.geometry
}

// BootSector returns the parameters the volume was mounted with.
func (v *Volume) BootSector() BootSector {
	return v.bootSector
}

// FAT returns the in-memory allocation table.
func (v *Volume) FAT() *FATTable {
	return v.fat
}

// Directory returns the in-memory root directory.
func (v *Volume) Directory() *DirectoryTable {
	return v.dir
}

func (v *Volume) checkMounted() error {
	if v.unmounted {
		return fat16.ErrClosed.WithMessage("volume is unmounted")
	}
	return nil
}

func (v *Volume) acquireScratch() ([]byte, error) {
	if v.scratchBusy {
		return nil, fat16.ErrBusy.WithMessage("sector buffer in use")
	}
	v.scratchBusy = true
	return v.scratch, nil
}

func (v *Volume) releaseScratch() {
	v.scratchBusy = false
}

// IsDirty returns true if the volume has changes that haven't been synced.
func (v *Volume) IsDirty() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.fat.IsDirty() || v.dir.IsDirty()
}

// Sync writes modified FAT and directory sectors to the device. Each FAT
// sector goes to every FAT copy. Nothing is written if nothing changed.
func (v *Volume) Sync() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkMounted(); err != nil {
		return err
	}
	return v.syncLocked()
}

func (v *Volume) syncLocked() error {
	fatDirty := v.fat.IsDirty()
	dirDirty := v.dir.IsDirty()
	if !fatDirty && !dirDirty {
		return nil
	}

	// The copies on disk may disagree after a load. Rewrite all of them once
	// so they match the table in memory.
	if fatDirty && !v.fatMirrorsInSync {
		v.fatCache.MarkBlockRangeDirty(0, v.fatCache.TotalBlocks())
	}

	fatSectors := v.fatCache.DirtyBlocks()
	dirSectors := v.rootCache.DirtyBlocks()

	var result error
	if err := v.fatCache.Flush(); err != nil {
		result = multierror.Append(result, err)
	} else {
		v.fatMirrorsInSync = true
	}
	if err := v.rootCache.Flush(); err != nil {
		result = multierror.Append(result, err)
	}

	if result != nil {
		glog.Warningf("sync failed: %s", result.Error())
		return fat16.ErrIOFailed.Wrap(result)
	}

	glog.V(1).Infof(
		"synced %d FAT sectors (x%d copies) and %d directory sectors",
		fatSectors,
		v.geometry.NumFATs,
		dirSectors,
	)
	return nil
}

// Unmount closes every open handle and syncs. The volume can't be used
// afterwards.
func (v *Volume) Unmount() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkMounted(); err != nil {
		return err
	}

	for _, file := range v.openFiles {
		file.closeLocked()
	}

	err := v.syncLocked()
	v.unmounted = true
	return err
}

// Format wipes the mounted volume in place: every FAT entry and directory slot
// is cleared, the start of the data region is zeroed, and the result is
// synced. It fails with [fat16.ErrBusy] while any file is open.
func (v *Volume) Format() error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkMounted(); err != nil {
		return err
	}
	if len(v.openFiles) != 0 {
		return fat16.ErrBusy.WithMessage(
			fmt.Sprintf("%d files are still open", len(v.openFiles)))
	}

	v.fat.Reset(v.bootSector.Media)
	v.dir.Reset()

	scratch, err := v.acquireScratch()
	if err != nil {
		return err
	}
	defer v.releaseScratch()

	for i := range scratch {
		scratch[i] = 0
	}
	for i := uint32(0); i < reformatZeroSectors; i++ {
		lba := v.geometry.DataStart + c.SectorID(i)
		if uint32(lba) >= v.geometry.TotalSectors {
			break
		}
		err = v.device.WriteSector(lba, scratch)
		if err != nil {
			return err
		}
	}

	glog.V(1).Info("volume formatted")
	return v.syncLocked()
}

// Exists returns true if a file called `name` is in the root directory.
func (v *Volume) Exists(name string) bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	_, _, found := v.dir.FindEntry(name)
	return found
}

// Stat returns information about the file called `name`.
func (v *Volume) Stat(name string) (os.FileInfo, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	index, entry, err := v.dir.lookup(name)
	if err != nil {
		return nil, err
	}
	return newFileInfo(entry, index), nil
}

// ListFiles returns every file in the root directory in storage order.
func (v *Volume) ListFiles() []*FileInfo {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return v.dir.List()
}

// List is like ListFiles but returns the generic interface type.
func (v *Volume) List() ([]os.FileInfo, error) {
	files := v.ListFiles()
	result := make([]os.FileInfo, len(files))
	for i, file := range files {
		result[i] = file
	}
	return result, nil
}

// Create adds an empty file called `name`.
func (v *Volume) Create(name string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkMounted(); err != nil {
		return err
	}

	_, entry, err := v.dir.Create(name)
	if err != nil {
		return err
	}
	glog.V(1).Infof("created %q at cluster %d", name, entry.FirstCluster)
	return nil
}

// Delete removes the file called `name` and frees its clusters. Deleting an
// open file fails with [fat16.ErrBusy].
func (v *Volume) Delete(name string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkMounted(); err != nil {
		return err
	}
	if err := v.checkNotOpen(name); err != nil {
		return err
	}

	err := v.dir.Delete(name)
	if err != nil {
		return err
	}
	glog.V(1).Infof("deleted %q", name)
	return nil
}

// Rename changes the name of a file. Renaming an open file fails with
// [fat16.ErrBusy].
func (v *Volume) Rename(oldName, newName string) error {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkMounted(); err != nil {
		return err
	}
	if err := v.checkNotOpen(oldName); err != nil {
		return err
	}

	err := v.dir.Rename(oldName, newName)
	if err != nil {
		return err
	}
	glog.V(1).Infof("renamed %q to %q", oldName, newName)
	return nil
}

func (v *Volume) checkNotOpen(name string) error {
	name83, err := NameTo83(name)
	if err != nil {
		return err
	}
	if _, open := v.openFiles[name83]; open {
		return fat16.ErrBusy.WithMessage(fmt.Sprintf("%s is open", name83.String()))
	}
	return nil
}

// FreeSpace returns the number of bytes in free clusters.
func (v *Volume) FreeSpace() int64 {
	v.mutex.Lock()
	defer v.mutex.Unlock()
	return int64(v.fat.CountFree()) * int64(v.geometry.BytesPerCluster())
}

// TotalSpace returns the number of bytes in the data region.
func (v *Volume) TotalSpace() int64 {
	return int64(v.geometry.UsableClusters()) * int64(v.geometry.BytesPerCluster())
}

// OpenFile returns a new handle for `name`. Read mode requires the file to
// exist; write and append create it. Only one handle per file may be open at
// a time.
func (v *Volume) OpenFile(name string, mode fat16.OpenMode) (*File, error) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	if err := v.checkMounted(); err != nil {
		return nil, err
	}
	if !mode.Valid() {
		return nil, fat16.ErrBadMode.WithMessage(mode.String())
	}

	name83, err := NameTo83(name)
	if err != nil {
		return nil, err
	}
	if _, open := v.openFiles[name83]; open {
		return nil, fat16.ErrBusy.WithMessage(fmt.Sprintf("%s is already open", name83.String()))
	}

	index, entry, found := v.dir.findName83(name83)
	if !found {
		if mode == fat16.OpenModeRead {
			return nil, fat16.ErrNotFound.WithMessage(name)
		}
		index, entry, err = v.dir.Create(name)
		if err != nil {
			return nil, err
		}
		glog.V(1).Infof("created %q at cluster %d", name, entry.FirstCluster)
	}

	file := &File{
		volume:         v,
		name:           name,
		name83:         name83,
		slot:           index,
		size:           entry.Size,
		firstCluster:   c.ClusterID(entry.FirstCluster),
		currentCluster: c.ClusterID(entry.FirstCluster),
		mode:           mode,
		isOpen:         true,
	}
	if mode == fat16.OpenModeAppend {
		file.position = file.size
	}

	v.openFiles[name83] = file
	glog.V(1).Infof("opened %q (%d bytes, mode: %s)", name, file.size, mode)
	return file, nil
}

// Open is like OpenFile but returns the generic interface type.
func (v *Volume) Open(name string, mode fat16.OpenMode) (fat16.FileHandle, error) {
	file, err := v.OpenFile(name, mode)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// ReadFile returns the whole contents of the file called `name`.
func (v *Volume) ReadFile(name string) ([]byte, error) {
	file, err := v.OpenFile(name, fat16.OpenModeRead)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data := make([]byte, file.Size())
	total := 0
	for total < len(data) {
		n, err := file.Read(data[total:])
		total += n
		if err != nil {
			return data[:total], err
		}
	}
	return data, nil
}

// WriteFile replaces the file called `name` with one holding `data`, creating
// it if needed.
func (v *Volume) WriteFile(name string, data []byte) error {
	if v.Exists(name) {
		err := v.Delete(name)
		if err != nil {
			return err
		}
	}

	file, err := v.OpenFile(name, fat16.OpenModeWrite)
	if err != nil {
		return err
	}

	_, writeErr := file.Write(data)
	closeErr := file.Close()
	if writeErr != nil {
		return writeErr
	}
	return closeErr
}
