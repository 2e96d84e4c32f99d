package memory

import (
	"unsafe"

	"github.com/pavanmanishd/memory/internal/blockstore"
)

// StaticAllocator bumps through one buffer acquired up front. It never
// grows: running out of space is a contract violation. Free only rewinds
// the most recent allocation; everything else waits for Reset.
type StaticAllocator struct {
	block *blockstore.Block
	last  int
}

// NewStaticAllocator creates a static allocator of capacity bytes.
func NewStaticAllocator(capacity int) *StaticAllocator {
	return &StaticAllocator{
		block: blockstore.New(blockstore.Heap.Acquire(max(capacity, 0))),
		last:  -1,
	}
}

// Alloc returns n word-aligned bytes. Returns nil if n <= 0.
func (s *StaticAllocator) Alloc(n int) []byte {
	return s.AllocAligned(n, headerSize)
}

// AllocAligned returns n bytes whose address is a multiple of align.
func (s *StaticAllocator) AllocAligned(n, align int) []byte {
	if !blockstore.IsPowerOfTwo(align) {
		violate("StaticAllocator.AllocAligned", ErrBadAlignment)
	}
	if n <= 0 {
		return nil
	}

	b := s.block
	pad := blockstore.AlignPadding(b.Addr(b.Offset()), align)
	if pad+n > b.Remaining() {
		violate("StaticAllocator.Alloc", ErrStaticOverflow)
	}
	start := b.Alloc(pad)
	off := b.Alloc(n)
	s.last = start
	return b.Slice(off, n)
}

// Free rewinds the allocator if b is the most recent allocation.
func (s *StaticAllocator) Free(b []byte) {
	if b == nil || s.last < 0 {
		return
	}
	blk := s.block
	off, ok := blk.OffsetOf(uintptr(unsafe.Pointer(unsafe.SliceData(b))))
	if !ok || off+len(b) != blk.Offset() {
		return
	}
	blk.SetOffset(s.last)
	s.last = -1
}

// Reset rewinds to the start of the buffer.
func (s *StaticAllocator) Reset() {
	s.block.SetOffset(0)
	s.last = -1
}

// Capacity returns the buffer size.
func (s *StaticAllocator) Capacity() int { return s.block.Cap() }

// SizeInUse returns the bytes handed out since the last Reset.
func (s *StaticAllocator) SizeInUse() int { return s.block.Offset() }

// StaticVec is a fixed-capacity stack of T stored in a StaticAllocator.
// T must not contain Go pointers.
type StaticVec[T any] struct {
	buf []T
}

// NewStaticVec reserves room for capacity elements in s.
func NewStaticVec[T any](s *StaticAllocator, capacity int) *StaticVec[T] {
	return &StaticVec[T]{buf: NewSlice[T](s, capacity)[:0]}
}

// Push appends x. Pushing past the capacity panics with ErrStaticOverflow.
func (v *StaticVec[T]) Push(x T) {
	if len(v.buf) == cap(v.buf) {
		violate("StaticVec.Push", ErrStaticOverflow)
	}
	v.buf = append(v.buf, x)
}

// Pop removes and returns the last element.
func (v *StaticVec[T]) Pop() (T, bool) {
	var zero T
	if len(v.buf) == 0 {
		return zero, false
	}
	x := v.buf[len(v.buf)-1]
	v.buf = v.buf[:len(v.buf)-1]
	return x, true
}

// Len returns the number of elements.
func (v *StaticVec[T]) Len() int { return len(v.buf) }

// Cap returns the fixed capacity.
func (v *StaticVec[T]) Cap() int { return cap(v.buf) }

// Clear empties the vector.
func (v *StaticVec[T]) Clear() { v.buf = v.buf[:0] }
