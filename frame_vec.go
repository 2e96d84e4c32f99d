package memory

import "unsafe"

// FrameVec is a growable vector whose storage lives in a FrameAllocator.
// Growing copies into a new frame allocation and frees the old one. T must
// not contain Go pointers.
type FrameVec[T any] struct {
	f   *FrameAllocator
	buf []T
}

// NewFrameVec creates a vector with room for capacity elements.
func NewFrameVec[T any](f *FrameAllocator, capacity int) *FrameVec[T] {
	v := &FrameVec[T]{f: f}
	if capacity > 0 {
		v.buf = v.allocBuf(capacity)[:0]
	}
	return v
}

// Len returns the number of elements.
func (v *FrameVec[T]) Len() int { return len(v.buf) }

// At returns the element at i.
func (v *FrameVec[T]) At(i int) T { return v.buf[i] }

// Push appends x.
func (v *FrameVec[T]) Push(x T) {
	if len(v.buf) == cap(v.buf) {
		v.grow()
	}
	v.buf = append(v.buf, x)
}

// Pop removes and returns the last element.
func (v *FrameVec[T]) Pop() (T, bool) {
	var zero T
	if len(v.buf) == 0 {
		return zero, false
	}
	x := v.buf[len(v.buf)-1]
	v.buf = v.buf[:len(v.buf)-1]
	return x, true
}

// Release frees the storage back to the frame allocator.
func (v *FrameVec[T]) Release() {
	v.freeBuf()
	v.buf = nil
}

func (v *FrameVec[T]) grow() {
	nb := v.allocBuf(max(8, 2*cap(v.buf)))
	n := copy(nb, v.buf)
	v.freeBuf()
	v.buf = nb[:n]
}

func (v *FrameVec[T]) allocBuf(n int) []T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return make([]T, n)
	}
	b := v.f.AllocAligned(size*n, int(unsafe.Alignof(zero)))
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

func (v *FrameVec[T]) freeBuf() {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if cap(v.buf) == 0 || size == 0 {
		return
	}
	v.f.Free(unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v.buf))), cap(v.buf)*size))
}
