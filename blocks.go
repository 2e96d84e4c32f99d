package memory

import (
	"sync/atomic"

	"github.com/charmbracelet/log"

	"github.com/pavanmanishd/memory/internal/blockstore"
)

var (
	numAllocs atomic.Int64
	numFrees  atomic.Int64
)

// NumAllocs returns the number of blocks and chunks acquired by all
// allocators in the process.
func NumAllocs() int64 { return numAllocs.Load() }

// NumFrees returns the number of blocks and chunks given back by all
// allocators in the process.
func NumFrees() int64 { return numFrees.Load() }

func acquireBlock(src Source, size int, owner string) *blockstore.Block {
	numAllocs.Add(1)
	log.Debug("acquire block", "owner", owner, "size", size)
	return blockstore.New(src.Acquire(size))
}

func releaseBlock(src Source, b *blockstore.Block, owner string) {
	numFrees.Add(1)
	log.Debug("release block", "owner", owner, "size", b.Cap())
	src.Release(b.Bytes())
}

func countChunk(owner string, slots int) {
	numAllocs.Add(1)
	log.Debug("pool chunk", "owner", owner, "slots", slots)
}

func countChunkRelease(n int) {
	numFrees.Add(int64(n))
}
