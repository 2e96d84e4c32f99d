package memory

import (
	"unsafe"

	"github.com/charmbracelet/log"

	"github.com/pavanmanishd/memory/internal/blockstore"
)

const headerSize = blockstore.WordSize

// StackAllocator is a LIFO allocator: every Dealloc must release the most
// recent live allocation. It grows by linking new blocks after the current
// one and merges blocks back together as they drain.
//
// A StackAllocator belongs to a single goroutine. Memory it returns must not
// hold Go pointers.
type StackAllocator struct {
	blockCapacity int
	debug         bool
	src           Source

	current *blockstore.Block
	live    int
}

// NewStackAllocator creates a stack allocator with one empty block.
func NewStackAllocator(opts StackOptions) *StackAllocator {
	opts = opts.normalize()
	s := &StackAllocator{
		blockCapacity: opts.BlockCapacity,
		debug:         opts.Debug,
		src:           opts.Source,
	}
	s.allocBlock(s.blockCapacity)
	return s
}

// Alloc returns n bytes on top of the stack. A hidden header of one word in
// front of the returned memory records the span so Dealloc needs no size.
// Returns nil if n <= 0.
func (s *StackAllocator) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	s.panicIfReleased("StackAllocator.Alloc")

	amount := blockstore.AlignUp(n, headerSize) + headerSize
	if amount > s.current.Remaining() {
		s.allocBlock(amount)
	}

	off := s.current.Alloc(amount)
	s.current.PutWord(off, uintptr(amount))
	s.live++
	return s.current.Slice(off+headerSize, n)
}

// AllocAligned returns n bytes whose address is a multiple of align. When
// padding is needed it sits in front of the header and its size is stored
// in the word before the header, flagged by the header's low bit.
func (s *StackAllocator) AllocAligned(n, align int) []byte {
	if !blockstore.IsPowerOfTwo(align) {
		violate("StackAllocator.AllocAligned", ErrBadAlignment)
	}
	if align <= headerSize {
		return s.Alloc(n)
	}
	if n <= 0 {
		return nil
	}
	s.panicIfReleased("StackAllocator.AllocAligned")

	body := blockstore.AlignUp(n, headerSize) + headerSize
	pad := s.padding(align)
	if pad+body > s.current.Remaining() {
		s.allocBlock(body + align)
		pad = s.padding(align)
	}

	off := s.current.Alloc(pad + body)
	hdr := off + pad
	word := uintptr(pad + body)
	if pad > 0 {
		s.current.PutWord(hdr-headerSize, uintptr(pad))
		word |= 1
	}
	s.current.PutWord(hdr, word)
	s.live++
	return s.current.Slice(hdr+headerSize, n)
}

func (s *StackAllocator) padding(align int) int {
	return blockstore.AlignPadding(s.current.Addr(s.current.Offset()+headerSize), align)
}

// Dealloc releases b, which must be the most recent live allocation.
// Deallocating nil is a no-op.
func (s *StackAllocator) Dealloc(b []byte) {
	if b == nil {
		return
	}
	s.panicIfReleased("StackAllocator.Dealloc")

	cur := s.current
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	hdr, ok := cur.OffsetOf(addr - uintptr(headerSize))
	if !ok {
		violate("StackAllocator.Dealloc", ErrOutOfOrder)
	}

	word := cur.Word(hdr)
	amount, pad := int(word&^1), 0
	if word&1 != 0 {
		pad = int(cur.Word(hdr - headerSize))
	}
	start := cur.Offset() - amount
	if s.debug && start != hdr-pad {
		violate("StackAllocator.Dealloc", ErrOutOfOrder)
	}
	cur.SetOffset(start)
	s.live--

	if cur.Offset() == 0 {
		s.drain(cur)
	}
}

// Free is Dealloc under the Allocator interface.
func (s *StackAllocator) Free(b []byte) { s.Dealloc(b) }

// Live returns the number of allocations not yet deallocated.
func (s *StackAllocator) Live() int { return s.live }

// Release returns every block to the source. The allocator is unusable
// afterwards.
func (s *StackAllocator) Release() {
	if s.current == nil {
		return
	}
	if s.debug && s.live != 0 {
		violate("StackAllocator.Release", ErrStackNotEmpty)
	}

	b := s.head()
	for b != nil {
		next := b.Next
		releaseBlock(s.src, b, "stack")
		b = next
	}
	s.current = nil
}

// drain runs when the current block becomes empty. The previous block
// becomes current again, and the empty block is merged with its successor
// into one block of their combined capacity.
func (s *StackAllocator) drain(empty *blockstore.Block) {
	prev := empty.Prev
	if prev != nil {
		s.current = prev
	}

	next := empty.Next
	if next == nil {
		return
	}

	total := empty.Cap() + next.Cap()
	after := next.Next
	blockstore.Unlink(next)
	blockstore.Unlink(empty)
	releaseBlock(s.src, next, "stack")
	releaseBlock(s.src, empty, "stack")

	merged := acquireBlock(s.src, total, "stack")
	if prev != nil {
		blockstore.InsertAfter(prev, merged)
	} else {
		merged.Next = after
		if after != nil {
			after.Prev = merged
		}
		s.current = merged
	}
	log.Debug("stack: merged drained blocks", "size", total)
}

// allocBlock makes a block of at least wanted bytes current. Empty blocks
// reachable through next links from the current block are reused before a
// new one is acquired.
func (s *StackAllocator) allocBlock(wanted int) *blockstore.Block {
	size := max(s.blockCapacity, wanted)

	var nb *blockstore.Block
	for cur := s.current; cur != nil; cur = cur.Next {
		if next := cur.Next; next != nil && next.Cap() >= size {
			nb = next
			break
		}
	}

	switch {
	case nb == nil:
		nb = acquireBlock(s.src, size, "stack")
		blockstore.InsertAfter(s.current, nb)
	case nb != s.current.Next:
		// Blocks after current stay in the order they were used.
		blockstore.Unlink(nb)
		blockstore.InsertAfter(s.current, nb)
	}

	s.current = nb
	return nb
}

func (s *StackAllocator) head() *blockstore.Block {
	b := s.current
	for b != nil && b.Prev != nil {
		b = b.Prev
	}
	return b
}

func (s *StackAllocator) panicIfReleased(op string) {
	if s.current == nil {
		violate(op, ErrReleased)
	}
}
