package memory

import (
	"unsafe"

	"github.com/pavanmanishd/memory/internal/blockstore"
)

// Allocator is the raw byte interface shared by every allocator category.
// Memory returned by an Allocator other than HeapAllocator is invisible to
// the garbage collector and must not hold Go pointers.
type Allocator interface {
	Alloc(n int) []byte
	AllocAligned(n, align int) []byte
	Free(b []byte)
}

// Category names an allocation strategy.
type Category int

const (
	CategoryHeap Category = iota
	CategoryStack
	CategoryFrame
	CategoryPool
	CategoryStatic
)

var categoryNames = map[Category]string{
	CategoryHeap:   "Heap",
	CategoryStack:  "Stack",
	CategoryFrame:  "Frame",
	CategoryPool:   "Pool",
	CategoryStatic: "Static",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return "Unknown"
}

var (
	_ Allocator = HeapAllocator{}
	_ Allocator = (*StackAllocator)(nil)
	_ Allocator = (*FrameAllocator)(nil)
	_ Allocator = (*BytePool)(nil)
	_ Allocator = (*StaticAllocator)(nil)
)

// HeapAllocator allocates from the Go heap. Free is a no-op.
type HeapAllocator struct{}

func (HeapAllocator) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	return make([]byte, n)
}

func (HeapAllocator) AllocAligned(n, align int) []byte {
	if !blockstore.IsPowerOfTwo(align) {
		violate("HeapAllocator.AllocAligned", ErrBadAlignment)
	}
	if n <= 0 {
		return nil
	}
	buf := make([]byte, n+align-1)
	pad := blockstore.AlignPadding(uintptr(unsafe.Pointer(unsafe.SliceData(buf))), align)
	return buf[pad : pad+n : pad+n]
}

func (HeapAllocator) Free([]byte) {}

// New returns a zeroed T allocated from a.
func New[T any](a Allocator) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return new(T)
	}
	b := a.AllocAligned(size, int(unsafe.Alignof(zero)))
	clear(b)
	return (*T)(unsafe.Pointer(unsafe.SliceData(b)))
}

// NewSlice returns n zeroed elements of type T allocated from a.
// Returns nil if n <= 0.
func NewSlice[T any](a Allocator, n int) []T {
	if n <= 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return make([]T, n)
	}
	b := a.AllocAligned(size*n, int(unsafe.Alignof(zero)))
	clear(b)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

// Delete zeroes *p and returns its memory to a.
func Delete[T any](a Allocator, p *T) {
	if p == nil {
		return
	}
	*p = *new(T)
	if b := bytesOf(p, 1); b != nil {
		a.Free(b)
	}
}

// DeleteSlice zeroes s and returns its memory to a.
func DeleteSlice[T any](a Allocator, s []T) {
	if len(s) == 0 {
		return
	}
	clear(s)
	if b := bytesOf(unsafe.SliceData(s), len(s)); b != nil {
		a.Free(b)
	}
}

func bytesOf[T any](p *T, n int) []byte {
	size := int(unsafe.Sizeof(*p))
	if size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), size*n)
}
