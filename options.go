package memory

import (
	"os"

	"github.com/pavanmanishd/memory/internal/blockstore"
)

const (
	// DefaultStackBlockCapacity is the minimum block size of a stack allocator (1 MiB).
	DefaultStackBlockCapacity = 1 << 20

	// DefaultFrameBlockSize is the minimum block size of a frame allocator (1 MiB).
	DefaultFrameBlockSize = 1 << 20

	// DefaultElemsPerBlock is the number of slots in each pool chunk.
	DefaultElemsPerBlock = 512

	// DefaultPoolAlignment is the byte pool slot alignment.
	DefaultPoolAlignment = 4
)

// debugFromEnv turns on contract checks for allocators that do not set
// Debug explicitly. Controlled by the MEMORY_DEBUG env var.
var debugFromEnv = os.Getenv("MEMORY_DEBUG") != ""

// Source is where stack and frame allocators get their block memory.
type Source = blockstore.Source

// MmapSource maps large blocks directly from the OS.
type MmapSource = blockstore.MmapSource

// StackOptions configures a StackAllocator.
type StackOptions struct {
	// BlockCapacity is the minimum size of a block. Requests larger than it
	// get a block of their own size.
	BlockCapacity int

	// Debug enables the out-of-order deallocation check.
	Debug bool

	// Source provides block memory. Nil means the Go heap.
	Source Source
}

// FrameOptions configures a FrameAllocator.
type FrameOptions struct {
	// BlockSize is the minimum size of a block.
	BlockSize int

	// Debug stores a size header in front of every allocation and tracks the
	// allocated byte count, so a mark-less Clear can detect leaks.
	Debug bool

	// Source provides block memory. Nil means the Go heap.
	Source Source
}

// PoolOptions configures a typed Pool.
type PoolOptions struct {
	// ElemsPerBlock is the number of slots in each chunk.
	ElemsPerBlock int

	// Stride is the number of consecutive values held by one slot.
	Stride int
}

// BytePoolOptions configures a BytePool.
type BytePoolOptions struct {
	// ElemSize is the exact allocation size, at least 4 bytes.
	ElemSize int

	// ElemsPerBlock is the number of slots in each chunk.
	ElemsPerBlock int

	// Alignment of every slot. Must be a power of two.
	Alignment int
}

// DefaultStackOptions returns the options used by NewStackAllocator for zero fields.
func DefaultStackOptions() StackOptions {
	return StackOptions{
		BlockCapacity: DefaultStackBlockCapacity,
		Debug:         debugFromEnv,
		Source:        blockstore.Heap,
	}
}

// DefaultFrameOptions returns the options used by NewFrameAllocator for zero fields.
func DefaultFrameOptions() FrameOptions {
	return FrameOptions{
		BlockSize: DefaultFrameBlockSize,
		Debug:     debugFromEnv,
		Source:    blockstore.Heap,
	}
}

func (o StackOptions) normalize() StackOptions {
	if o.BlockCapacity <= 0 {
		o.BlockCapacity = DefaultStackBlockCapacity
	}
	if o.Source == nil {
		o.Source = blockstore.Heap
	}
	o.Debug = o.Debug || debugFromEnv
	return o
}

func (o FrameOptions) normalize() FrameOptions {
	if o.BlockSize <= 0 {
		o.BlockSize = DefaultFrameBlockSize
	}
	if o.Source == nil {
		o.Source = blockstore.Heap
	}
	o.Debug = o.Debug || debugFromEnv
	return o
}

func (o PoolOptions) normalize() PoolOptions {
	if o.ElemsPerBlock <= 0 {
		o.ElemsPerBlock = DefaultElemsPerBlock
	}
	if o.Stride <= 0 {
		o.Stride = 1
	}
	return o
}

func (o BytePoolOptions) normalize() BytePoolOptions {
	if o.ElemSize < 4 {
		o.ElemSize = 4
	}
	if o.ElemsPerBlock <= 0 {
		o.ElemsPerBlock = DefaultElemsPerBlock
	}
	if o.Alignment <= 0 {
		o.Alignment = DefaultPoolAlignment
	}
	if !blockstore.IsPowerOfTwo(o.Alignment) {
		violate("NewBytePool", ErrBadAlignment)
	}
	return o
}
