// Package blockcache provides an in-memory arena over a fixed run of sectors,
// with per-sector tracking of which sectors have been loaded and which have
// been modified since the last flush.
//
// The FAT16 engine keeps its File Allocation Table and root directory in two
// of these. All block indices are relative to the start of the arena and begin
// at 0.

package blockcache

import (
	"fmt"

	"github.com/boljen/go-bitmap"
	"github.com/dargueta/fat16/errors"
	c "github.com/dargueta/fat16/file_systems/common"
	"github.com/hashicorp/go-multierror"
)

// FetchBlockCallback is a pointer to a function that writes the contents of a
// single block from the backing storage into `buffer`. The following guarantees
// apply:
//
// - `blockIndex` is in the range [0, TotalBlocks).
// - `buffer` is always BytesPerBlock bytes.
type FetchBlockCallback func(blockIndex uint, buffer []byte) error

// FlushBlockCallback is a pointer to a function that writes the contents of the
// given buffer to a block in the backing storage. All restrictions and
// guarantees in [FetchBlockCallback] apply here too.
type FlushBlockCallback func(blockIndex uint, buffer []byte) error

type BlockCache struct {
	loadedBlocks  bitmap.Bitmap
	dirtyBlocks   bitmap.Bitmap
	fetch         FetchBlockCallback
	flush         FlushBlockCallback
	bytesPerBlock uint
	totalBlocks   uint
	data          []byte
}

// New creates a new BlockCache. `fetchCb` reads a single block from the backing
// storage and `flushCb` writes one.
func New(
	bytesPerBlock uint,
	totalBlocks uint,
	fetchCb FetchBlockCallback,
	flushCb FlushBlockCallback,
) *BlockCache {
	return &BlockCache{
		loadedBlocks:  bitmap.NewSlice(int(totalBlocks)),
		dirtyBlocks:   bitmap.NewSlice(int(totalBlocks)),
		data:          make([]byte, int(bytesPerBlock*totalBlocks)),
		fetch:         fetchCb,
		flush:         flushCb,
		bytesPerBlock: bytesPerBlock,
		totalBlocks:   totalBlocks,
	}
}

// WrapDevice creates a [BlockCache] over `totalBlocks` sectors of `device`
// beginning at `firstSector`. Blocks are fetched from that region only, but
// flushed to it and to every region in `mirrors`, which start at the given
// sectors and have the same length. A failed write to one copy doesn't stop
// the others from being written.
func WrapDevice(
	device c.BlockDevice,
	firstSector c.SectorID,
	totalBlocks uint,
	mirrors ...c.SectorID,
) *BlockCache {
	fetchCb := func(block uint, buffer []byte) error {
		return device.ReadSector(firstSector+c.SectorID(block), buffer)
	}

	flushCb := func(block uint, buffer []byte) error {
		var result error
		for _, start := range append([]c.SectorID{firstSector}, mirrors...) {
			err := device.WriteSector(start+c.SectorID(block), buffer)
			if err != nil {
				result = multierror.Append(result, err)
			}
		}
		return result
	}

	return New(c.BytesPerSector, totalBlocks, fetchCb, flushCb)
}

// BytesPerBlock returns the size of a single block, in bytes.
func (cache *BlockCache) BytesPerBlock() uint {
	return cache.bytesPerBlock
}

// TotalBlocks returns the size of the cache, in blocks.
func (cache *BlockCache) TotalBlocks() uint {
	return cache.totalBlocks
}

// Size gives the size of the cache, in bytes (not blocks!).
func (cache *BlockCache) Size() int64 {
	return int64(cache.bytesPerBlock) * int64(cache.totalBlocks)
}

// LengthToNumBlocks gives the minimum number of blocks required to hold the
// given number of bytes.
func (cache *BlockCache) LengthToNumBlocks(size uint) uint {
	return (size + cache.bytesPerBlock - 1) / cache.bytesPerBlock
}

// checkBounds verifies that `bufferSize` bytes can be accessed in the cache
// starting from block `start`. If not, it returns an error describing the exact
// conditions. If no error would occur, this returns nil.
func (cache *BlockCache) checkBounds(start uint, bufferSize uint) error {
	numBlocks := cache.LengthToNumBlocks(bufferSize)

	if start >= cache.totalBlocks || start+numBlocks > cache.totalBlocks {
		return errors.NewWithMessage(
			errors.ERANGE,
			fmt.Sprintf(
				"can't access %d bytes (%d blocks) from block %d; range not in [0, %d)",
				bufferSize,
				numBlocks,
				start,
				cache.totalBlocks,
			),
		)
	}
	return nil
}

// GetSlice returns a slice pointing to the cache's storage, beginning at block
// `start` and continuing for `count` blocks. Missing blocks are loaded first.
//
// If the returned slice is modified, the modified blocks MUST be marked as
// dirty.
func (cache *BlockCache) GetSlice(start uint, count uint) ([]byte, error) {
	err := cache.loadBlockRange(start, count)
	if err != nil {
		return nil, err
	}
	return cache.blockSlice(start, count), nil
}

func (cache *BlockCache) blockSlice(start uint, count uint) []byte {
	startOffset := start * cache.bytesPerBlock
	endOffset := startOffset + (count * cache.bytesPerBlock)
	return cache.data[startOffset:endOffset]
}

// Data returns a slice of the entire cache's data. This requires loading all
// blocks not yet in the cache.
//
// If the returned slice is modified, the modified blocks MUST be marked as
// dirty.
func (cache *BlockCache) Data() ([]byte, error) {
	err := cache.LoadAll()
	if err != nil {
		return nil, err
	}
	return cache.data, nil
}

// loadBlockRange ensures that all blocks in the range [start, start + count) are
// present in the cache, and loads any missing ones from storage.
func (cache *BlockCache) loadBlockRange(start uint, count uint) error {
	err := cache.checkBounds(start, count*cache.bytesPerBlock)
	if err != nil {
		return err
	}

	for blockIndex := start; blockIndex < start+count; blockIndex++ {
		// Dirty blocks are loaded by definition, so there's no need to check
		// `dirtyBlocks`.
		if cache.loadedBlocks.Get(int(blockIndex)) {
			continue
		}

		err = cache.fetch(blockIndex, cache.blockSlice(blockIndex, 1))
		if err != nil {
			return errors.ErrIOFailed.Wrap(
				fmt.Errorf("failed to load block %d from source: %w", blockIndex, err))
		}

		cache.loadedBlocks.Set(int(blockIndex), true)
		cache.dirtyBlocks.Set(int(blockIndex), false)
	}

	return nil
}

// flushBlockRange writes out all dirty blocks (and only dirty blocks) to the
// underlying storage and marks them as clean. Blocks that fail to flush stay
// dirty.
func (cache *BlockCache) flushBlockRange(start uint, count uint) error {
	err := cache.checkBounds(start, count*cache.bytesPerBlock)
	if err != nil {
		return err
	}

	var result error
	for blockIndex := start; blockIndex < start+count; blockIndex++ {
		// Missing blocks are considered clean, so this skips them too.
		if !cache.dirtyBlocks.Get(int(blockIndex)) {
			continue
		}

		err = cache.flush(blockIndex, cache.blockSlice(blockIndex, 1))
		if err != nil {
			result = multierror.Append(
				result,
				fmt.Errorf("failed to flush block %d to storage: %w", blockIndex, err),
			)
			continue
		}
		cache.dirtyBlocks.Set(int(blockIndex), false)
	}

	if result != nil {
		return errors.ErrIOFailed.Wrap(result)
	}
	return nil
}

// LoadAll ensures all missing blocks are loaded from storage into the cache.
func (cache *BlockCache) LoadAll() error {
	return cache.loadBlockRange(0, cache.totalBlocks)
}

// Flush flushes all dirty blocks from the cache into storage, and marks them
// as clean.
func (cache *BlockCache) Flush() error {
	return cache.flushBlockRange(0, cache.totalBlocks)
}

// ReadAt fills `buffer` with data beginning at block `start`, loading any
// missing blocks first. `buffer` does not need to be an exact multiple of the
// size of one block.
//
// Attempting to read past the end of the cache will result in an error, and
// `buffer` will be left unmodified.
func (cache *BlockCache) ReadAt(buffer []byte, start uint) (int, error) {
	bufLen := uint(len(buffer))
	err := cache.checkBounds(start, bufLen)
	if err != nil {
		return 0, err
	}

	sourceData, err := cache.GetSlice(start, cache.LengthToNumBlocks(bufLen))
	if err != nil {
		return 0, err
	}
	return copy(buffer, sourceData), nil
}

// WriteAt copies data into the cache from `buffer`, beginning at block
// `start`. All modified blocks are marked as dirty. A trailing partial block
// keeps whatever data it held beyond the end of `buffer`.
//
// Attempting to write past the end of the cache will result in an error, and
// the cache will be left unmodified.
func (cache *BlockCache) WriteAt(buffer []byte, start uint) (int, error) {
	bufLen := uint(len(buffer))
	err := cache.checkBounds(start, bufLen)
	if err != nil {
		return 0, err
	}

	numBlocks := cache.LengthToNumBlocks(bufLen)
	targetSlice, err := cache.GetSlice(start, numBlocks)
	if err != nil {
		return 0, err
	}

	n := copy(targetSlice, buffer)
	cache.markRange(start, numBlocks)
	return n, nil
}

// MarkBlockRangeDirty marks a range of blocks as modified. They will be written
// out to the backing storage on the next call to [BlockCache.Flush].
func (cache *BlockCache) MarkBlockRangeDirty(start uint, count uint) error {
	err := cache.checkBounds(start, count*cache.bytesPerBlock)
	if err != nil {
		return err
	}
	cache.markRange(start, count)
	return nil
}

// MarkByteRangeDirty marks every block overlapping `length` bytes beginning at
// byte `offset` as modified.
func (cache *BlockCache) MarkByteRangeDirty(offset uint, length uint) error {
	if length == 0 {
		return nil
	}
	first := offset / cache.bytesPerBlock
	last := (offset + length - 1) / cache.bytesPerBlock
	return cache.MarkBlockRangeDirty(first, last-first+1)
}

func (cache *BlockCache) markRange(start uint, count uint) {
	for i := start; i < start+count; i++ {
		cache.dirtyBlocks.Set(int(i), true)
		cache.loadedBlocks.Set(int(i), true)
	}
}

// IsDirty returns true if any block has been modified since it was last
// flushed.
func (cache *BlockCache) IsDirty() bool {
	for i := 0; i < int(cache.totalBlocks); i++ {
		if cache.dirtyBlocks.Get(i) {
			return true
		}
	}
	return false
}

// DirtyBlocks returns the number of blocks waiting to be flushed.
func (cache *BlockCache) DirtyBlocks() int {
	count := 0
	for i := 0; i < int(cache.totalBlocks); i++ {
		if cache.dirtyBlocks.Get(i) {
			count++
		}
	}
	return count
}

// Reset zeroes the whole cache without reading from storage and marks every
// block as dirty, so the next flush overwrites the backing region.
func (cache *BlockCache) Reset() {
	for i := range cache.data {
		cache.data[i] = 0
	}
	cache.markRange(0, cache.totalBlocks)
}
