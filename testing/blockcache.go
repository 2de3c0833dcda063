// Package testing contains helpers shared by the test suites of this module.
// Import it under another name, such as fattest, to avoid shadowing the
// standard library's package.
package testing

import (
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/dargueta/fat16/errors"
	"github.com/dargueta/fat16/file_systems/common/blockcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// CreateRandomImage creates an image with the given number of blocks and bytes
// per block. It is guaranteed to either return a valid slice or fail the test
// and abort.
func CreateRandomImage(bytesPerBlock, totalBlocks uint, t *testing.T) []byte {
	backingData := make([]byte, bytesPerBlock*totalBlocks)

	_, err := rand.Read(backingData)
	require.NoErrorf(
		t,
		err,
		"failed to initialize %d blocks of size %d with random bytes",
		totalBlocks,
		bytesPerBlock,
	)
	return backingData
}

// CreateDefaultCache creates a block cache with fetch/flush handlers that
// operate on `backingData`.
//
//   - writable: if false, the flush handler fails the test when called.
//   - backingData: Optional. A byte slice of at least `bytesPerBlock * totalBlocks`
//     bytes. Pass `nil` to get completely random data.
//
// The handlers fail the test on out-of-bounds access, so negative conditions
// have to be tested against the cache's own bounds checks.
func CreateDefaultCache(
	bytesPerBlock,
	totalBlocks uint,
	writable bool,
	backingData []byte,
	t *testing.T,
) *blockcache.BlockCache {
	if backingData == nil {
		backingData = CreateRandomImage(bytesPerBlock, totalBlocks, t)
	}

	fetchCallback := func(blockIndex uint, buffer []byte) error {
		if blockIndex >= totalBlocks {
			message := fmt.Sprintf(
				"attempted to read outside bounds: block %d not in [0, %d)",
				blockIndex,
				totalBlocks,
			)
			t.Error(message)
			return errors.ErrIOFailed.WithMessage(message)
		}

		start := blockIndex * bytesPerBlock
		copy(buffer, backingData[start:start+bytesPerBlock])
		return nil
	}

	var flushCallback blockcache.FlushBlockCallback
	if writable {
		flushCallback = func(blockIndex uint, buffer []byte) error {
			if blockIndex >= totalBlocks {
				message := fmt.Sprintf(
					"attempted to write outside bounds: %d not in [0, %d)",
					blockIndex,
					totalBlocks,
				)
				t.Error(message)
				return errors.ErrIOFailed.WithMessage(message)
			}

			start := blockIndex * bytesPerBlock
			copy(backingData[start:start+bytesPerBlock], buffer)
			return nil
		}
	} else {
		flushCallback = func(blockIndex uint, buffer []byte) error {
			message := fmt.Sprintf(
				"attempted to write %d bytes to block %d of read-only image",
				len(buffer),
				blockIndex,
			)
			t.Error(message)
			return errors.New(errors.EROFS).WithMessage(message)
		}
	}

	cache := blockcache.New(bytesPerBlock, totalBlocks, fetchCallback, flushCallback)
	assert.EqualValues(t, bytesPerBlock, cache.BytesPerBlock(), "wrong bytes per block")
	assert.EqualValues(t, totalBlocks, cache.TotalBlocks(), "wrong total blocks")
	assert.EqualValues(t, bytesPerBlock*totalBlocks, cache.Size(), "total size is wrong")
	return cache
}
