// Package blockstore manages the chains of raw memory blocks that back the
// stack and frame allocators.
package blockstore

import "unsafe"

// WordSize is the size of the hidden headers and frame marks stored inside
// block memory.
const WordSize = int(unsafe.Sizeof(uintptr(0)))

// Block is a single contiguous buffer with a bump offset.
// The free offset always stays within [0, Cap()].
type Block struct {
	buf  []byte
	free int

	Prev *Block
	Next *Block
}

// New wraps buf in an empty block. buf must live on the heap or in mapped
// memory: blocks hand out addresses as uintptr, and a buffer on a goroutine
// stack moves when the stack grows. Get buffers from a Source.
func New(buf []byte) *Block {
	return &Block{buf: buf}
}

// Cap returns the block capacity in bytes.
func (b *Block) Cap() int { return len(b.buf) }

// Offset returns the current free offset.
func (b *Block) Offset() int { return b.free }

// SetOffset moves the free offset. It panics if off is outside the block.
func (b *Block) SetOffset(off int) {
	if off < 0 || off > len(b.buf) {
		panic("blockstore: offset out of range")
	}
	b.free = off
}

// Remaining returns the number of bytes left after the free offset.
func (b *Block) Remaining() int { return len(b.buf) - b.free }

// Alloc bumps the free offset by n and returns the previous offset.
// The caller must check Remaining first.
func (b *Block) Alloc(n int) int {
	off := b.free
	b.free += n
	return off
}

// Base returns the address of the first byte of the block.
func (b *Block) Base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b.buf)))
}

// Addr returns the address of the byte at off.
func (b *Block) Addr(off int) uintptr {
	return b.Base() + uintptr(off)
}

// Contains reports whether addr points into the block's capacity.
func (b *Block) Contains(addr uintptr) bool {
	base := b.Base()
	return addr >= base && addr < base+uintptr(len(b.buf))
}

// OffsetOf converts an address inside the block to an offset.
func (b *Block) OffsetOf(addr uintptr) (int, bool) {
	if !b.Contains(addr) {
		return 0, false
	}
	return int(addr - b.Base()), true
}

// Slice returns n bytes starting at off with the capacity clipped to n, so
// appends by the caller never spill into neighbouring allocations.
func (b *Block) Slice(off, n int) []byte {
	return b.buf[off : off+n : off+n]
}

// Word reads the word stored at off.
func (b *Block) Word(off int) uintptr {
	_ = b.buf[off+WordSize-1]
	return *(*uintptr)(unsafe.Pointer(&b.buf[off]))
}

// PutWord stores v at off.
func (b *Block) PutWord(off int, v uintptr) {
	_ = b.buf[off+WordSize-1]
	*(*uintptr)(unsafe.Pointer(&b.buf[off])) = v
}

// Bytes returns the whole backing buffer.
func (b *Block) Bytes() []byte { return b.buf }

// InsertAfter links nb directly after at. A nil at leaves nb unlinked on
// its left side.
func InsertAfter(at, nb *Block) {
	nb.Prev = at
	if at == nil {
		return
	}
	if at.Next != nil {
		at.Next.Prev = nb
	}
	nb.Next = at.Next
	at.Next = nb
}

// Unlink removes b from its chain.
func Unlink(b *Block) {
	if b.Prev != nil {
		b.Prev.Next = b.Next
	}
	if b.Next != nil {
		b.Next.Prev = b.Prev
	}
	b.Prev, b.Next = nil, nil
}

// AlignUp rounds n up to a multiple of align, which must be a power of two.
func AlignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}

// AlignPadding returns the bytes needed to move addr to the next multiple
// of align.
func AlignPadding(addr uintptr, align int) int {
	a := uintptr(align)
	return int((a - (addr & (a - 1))) & (a - 1))
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
