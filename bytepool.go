package memory

import (
	"unsafe"

	"github.com/pavanmanishd/memory/internal/blockstore"
)

// BytePool hands out raw slots of one fixed size. It is the pool category
// of the Allocator interface; prefer Pool[T] for values holding Go pointers.
type BytePool struct {
	elemSize      int
	slotSize      int
	elemsPerBlock int
	alignment     int

	head      *byteChunk
	numBlocks int
	live      int
}

type byteChunk struct {
	data      []byte
	next      []int32
	freeHead  int32
	freeElems int
	nextChunk *byteChunk
}

// NewBytePool creates an empty byte pool. The slot size is ElemSize rounded
// up to Alignment.
func NewBytePool(opts BytePoolOptions) *BytePool {
	opts = opts.normalize()
	return &BytePool{
		elemSize:      opts.ElemSize,
		slotSize:      blockstore.AlignUp(opts.ElemSize, opts.Alignment),
		elemsPerBlock: opts.ElemsPerBlock,
		alignment:     opts.Alignment,
	}
}

// ElemSize returns the requested element size.
func (p *BytePool) ElemSize() int { return p.elemSize }

// Alloc returns one slot. n must not exceed ElemSize; the returned slice has
// length n. Returns nil if n <= 0.
func (p *BytePool) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	if n > p.elemSize {
		violate("BytePool.Alloc", ErrTooLarge)
	}

	if p.head == nil || p.head.freeElems == 0 {
		p.allocChunk()
	}

	c := p.head
	s := c.freeHead
	c.freeHead = c.next[s]
	c.next[s] = slotLive
	c.freeElems--
	p.live++

	off := int(s) * p.slotSize
	return c.data[off : off+n : off+n]
}

// AllocAligned returns one slot. Slots are aligned to the pool alignment,
// so align must not exceed it.
func (p *BytePool) AllocAligned(n, align int) []byte {
	if !blockstore.IsPowerOfTwo(align) || align > p.alignment {
		violate("BytePool.AllocAligned", ErrBadAlignment)
	}
	return p.Alloc(n)
}

// Free returns the slot that b starts at.
func (p *BytePool) Free(b []byte) {
	if b == nil {
		return
	}
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	for c := p.head; c != nil; c = c.nextChunk {
		base := uintptr(unsafe.Pointer(unsafe.SliceData(c.data)))
		if addr < base || addr >= base+uintptr(len(c.data)) {
			continue
		}
		s := int32(int(addr-base) / p.slotSize)
		if int(addr-base)%p.slotSize != 0 || c.next[s] != slotLive {
			violate("BytePool.Free", ErrBadHandle)
		}
		c.next[s] = c.freeHead
		c.freeHead = s
		c.freeElems++
		p.live--
		return
	}
	violate("BytePool.Free", ErrNotOwned)
}

// Len returns the number of live slots.
func (p *BytePool) Len() int { return p.live }

// NumBlocks returns the number of chunks.
func (p *BytePool) NumBlocks() int { return p.numBlocks }

// Capacity returns the number of slots across all chunks.
func (p *BytePool) Capacity() int { return p.numBlocks * p.elemsPerBlock }

// Release drops every chunk.
func (p *BytePool) Release() {
	countChunkRelease(p.numBlocks)
	p.head = nil
	p.numBlocks = 0
	p.live = 0
}

// allocChunk moves a chunk with free slots to the front of the list, or
// adds a new one there.
func (p *BytePool) allocChunk() {
	for c := p.head; c != nil; c = c.nextChunk {
		if n := c.nextChunk; n != nil && n.freeElems > 0 {
			c.nextChunk = n.nextChunk
			n.nextChunk = p.head
			p.head = n
			return
		}
	}

	n := p.elemsPerBlock
	size := n * p.slotSize
	raw := make([]byte, size+p.alignment-1)
	pad := blockstore.AlignPadding(uintptr(unsafe.Pointer(unsafe.SliceData(raw))), p.alignment)

	c := &byteChunk{
		data:      raw[pad : pad+size : pad+size],
		next:      make([]int32, n),
		freeElems: n,
		nextChunk: p.head,
	}
	for s := range c.next {
		c.next[s] = int32(s) + 1
	}
	c.next[n-1] = freeListEnd
	p.head = c
	p.numBlocks++
	countChunk("bytepool", n)
}
