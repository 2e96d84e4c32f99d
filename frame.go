package memory

import (
	"slices"
	"unsafe"

	"github.com/charmbracelet/log"

	"github.com/pavanmanishd/memory/internal/blockstore"
)

// FrameAllocator is a bump allocator whose memory is released in bulk.
// MarkFrame opens a frame and Clear releases everything allocated since the
// matching mark. Marks nest and must be cleared in LIFO order.
//
// Blocks are kept around after Clear and reused, so a steady workload stops
// acquiring memory after the first few frames. Not goroutine-safe; see Local.
type FrameAllocator struct {
	blockSize int
	debug     bool
	src       Source

	blocks       []*blockstore.Block
	nextBlockIdx int
	current      *blockstore.Block

	totalAllocBytes int
	lastFrame       uintptr
	released        bool
}

// NewFrameAllocator creates a frame allocator. No memory is acquired until
// the first allocation.
func NewFrameAllocator(opts FrameOptions) *FrameAllocator {
	opts = opts.normalize()
	return &FrameAllocator{
		blockSize: opts.BlockSize,
		debug:     opts.Debug,
		src:       opts.Source,
	}
}

// Alloc returns n bytes from the current block. Sizes are rounded up to the
// word size so every allocation is word aligned. Returns nil if n <= 0.
func (f *FrameAllocator) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	f.panicIfReleased("FrameAllocator.Alloc")

	b, off := f.alloc(blockstore.AlignUp(n, headerSize))
	return b.Slice(off, n)
}

// AllocAligned returns n bytes whose address is a multiple of align.
func (f *FrameAllocator) AllocAligned(n, align int) []byte {
	if !blockstore.IsPowerOfTwo(align) {
		violate("FrameAllocator.AllocAligned", ErrBadAlignment)
	}
	if n <= 0 {
		return nil
	}
	f.panicIfReleased("FrameAllocator.AllocAligned")

	align = max(align, headerSize)
	amount := blockstore.AlignUp(n, headerSize)
	if f.debug {
		amount += headerSize
	}

	pad := 0
	if f.current != nil {
		pad = f.padding(align)
	}
	if f.current == nil || amount+pad > f.current.Remaining() {
		f.allocBlock(amount + align - headerSize)
		pad = f.padding(align)
	}

	amount += pad
	b := f.current
	off := b.Alloc(amount) + pad
	if f.debug {
		f.totalAllocBytes += amount
		b.PutWord(off, uintptr(amount))
		off += headerSize
	}
	return b.Slice(off, n)
}

// Free does not release memory; that only happens in Clear. With debug
// checks on it updates the allocated byte count used for leak detection.
func (f *FrameAllocator) Free(b []byte) {
	if !f.debug || b == nil {
		return
	}
	f.panicIfReleased("FrameAllocator.Free")

	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b))) - uintptr(headerSize)
	i, off := f.locate(addr)
	if i < 0 {
		violate("FrameAllocator.Free", ErrNotOwned)
	}
	f.totalAllocBytes -= int(f.blocks[i].Word(off))
}

// MarkFrame opens a new frame. Everything allocated after it is released by
// the matching Clear.
func (f *FrameAllocator) MarkFrame() {
	f.panicIfReleased("FrameAllocator.MarkFrame")

	b, off := f.alloc(headerSize)
	b.PutWord(off, f.lastFrame)
	f.lastFrame = b.Addr(off)
}

// Clear releases the most recent frame. Without an open frame it releases
// everything, and with debug checks on it panics with ErrFrameLeak unless
// every allocation was handed back through Free.
func (f *FrameAllocator) Clear() {
	f.panicIfReleased("FrameAllocator.Clear")

	if f.lastFrame == 0 {
		f.clearAll()
		return
	}

	mark, off := f.locate(f.lastFrame)
	if mark < 0 {
		panic("memory: frame mark outside of frame blocks")
	}
	f.lastFrame = f.blocks[mark].Word(off)
	if f.debug {
		off -= headerSize
		f.totalAllocBytes -= int(f.blocks[mark].Word(off))
	}

	numFreed := 0
	for i := f.nextBlockIdx - 1; i >= 0; i-- {
		b := f.blocks[i]
		if i == mark {
			b.SetOffset(off)
			if off == 0 {
				numFreed++
				if numFreed > 1 {
					f.nextBlockIdx = i
				}
			}
			break
		}
		b.SetOffset(0)
		f.nextBlockIdx = i
		numFreed++
	}

	if numFreed > 1 {
		f.merge(f.nextBlockIdx, numFreed)
		return
	}
	f.current = f.blocks[f.nextBlockIdx-1]
}

func (f *FrameAllocator) clearAll() {
	if f.debug && f.totalAllocBytes > 0 {
		violate("FrameAllocator.Clear", ErrFrameLeak)
	}

	switch len(f.blocks) {
	case 0:
	case 1:
		f.blocks[0].SetOffset(0)
		f.current = f.blocks[0]
		f.nextBlockIdx = 1
	default:
		total := 0
		for _, b := range f.blocks {
			total += b.Cap()
			releaseBlock(f.src, b, "frame")
		}
		f.blocks = f.blocks[:0]
		f.nextBlockIdx = 0
		f.current = nil
		f.allocBlock(total)
		log.Debug("frame: merged all blocks", "size", total)
	}
}

// merge replaces count emptied blocks starting at start with one block of
// their combined capacity. The merged block is the next one handed out.
func (f *FrameAllocator) merge(start, count int) {
	total := 0
	for _, b := range f.blocks[start : start+count] {
		total += b.Cap()
		releaseBlock(f.src, b, "frame")
	}
	f.blocks = slices.Delete(f.blocks, start, start+count)

	merged := acquireBlock(f.src, total, "frame")
	f.blocks = slices.Insert(f.blocks, start, merged)
	log.Debug("frame: merged freed blocks", "blocks", count, "size", total)

	if start > 0 {
		f.current = f.blocks[start-1]
		f.nextBlockIdx = start
		return
	}
	f.current = merged
	f.nextBlockIdx = 1
}

// Release returns every block to the source. The allocator is unusable
// afterwards.
func (f *FrameAllocator) Release() {
	if f.released {
		return
	}
	for _, b := range f.blocks {
		releaseBlock(f.src, b, "frame")
	}
	f.blocks = nil
	f.current = nil
	f.nextBlockIdx = 0
	f.lastFrame = 0
	f.released = true
}

// alloc reserves amount bytes plus the debug header and returns the payload
// offset.
func (f *FrameAllocator) alloc(amount int) (*blockstore.Block, int) {
	if f.debug {
		amount += headerSize
	}
	if f.current == nil || amount > f.current.Remaining() {
		f.allocBlock(amount)
	}

	b := f.current
	off := b.Alloc(amount)
	if f.debug {
		f.totalAllocBytes += amount
		b.PutWord(off, uintptr(amount))
		off += headerSize
	}
	return b, off
}

// allocBlock makes a block of at least wanted bytes current. Pooled blocks
// that are too small are released on the way. Space left in the previous
// block is lost until the next Clear.
func (f *FrameAllocator) allocBlock(wanted int) *blockstore.Block {
	size := max(f.blockSize, wanted)

	var nb *blockstore.Block
	for f.nextBlockIdx < len(f.blocks) {
		b := f.blocks[f.nextBlockIdx]
		if size <= b.Cap() {
			nb = b
			f.nextBlockIdx++
			break
		}
		releaseBlock(f.src, b, "frame")
		f.blocks = slices.Delete(f.blocks, f.nextBlockIdx, f.nextBlockIdx+1)
	}

	if nb == nil {
		nb = acquireBlock(f.src, size, "frame")
		f.blocks = append(f.blocks, nb)
		f.nextBlockIdx++
	}

	f.current = nb
	return nb
}

// locate finds the in-use block holding addr, newest first.
func (f *FrameAllocator) locate(addr uintptr) (int, int) {
	for i := f.nextBlockIdx - 1; i >= 0; i-- {
		if off, ok := f.blocks[i].OffsetOf(addr); ok {
			return i, off
		}
	}
	return -1, 0
}

func (f *FrameAllocator) padding(align int) int {
	addr := f.current.Addr(f.current.Offset())
	if f.debug {
		addr += uintptr(headerSize)
	}
	return blockstore.AlignPadding(addr, align)
}

func (f *FrameAllocator) panicIfReleased(op string) {
	if f.released {
		violate(op, ErrReleased)
	}
}
