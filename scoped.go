package memory

import "unsafe"

// Scoped owns memory taken from an allocator and gives it back on Release.
// Release is idempotent, so it is safe to defer it and also call it early.
//
//	m := memory.StackAllocScoped(s, 256)
//	defer m.Release()
type Scoped[T any] struct {
	a     Allocator
	data  []T
	freed bool
}

// NewScoped allocates a zeroed T from a.
func NewScoped[T any](a Allocator) *Scoped[T] {
	p := New[T](a)
	return &Scoped[T]{a: a, data: unsafe.Slice(p, 1)}
}

// NewScopedSlice allocates n zeroed elements from a.
func NewScopedSlice[T any](a Allocator, n int) *Scoped[T] {
	return &Scoped[T]{a: a, data: NewSlice[T](a, n)}
}

// Get returns the first element, or nil after Release.
func (m *Scoped[T]) Get() *T {
	if m.freed || len(m.data) == 0 {
		return nil
	}
	return &m.data[0]
}

// Slice returns the owned elements, or nil after Release.
func (m *Scoped[T]) Slice() []T {
	if m.freed {
		return nil
	}
	return m.data
}

// Release returns the memory to its allocator.
func (m *Scoped[T]) Release() {
	if m.freed {
		return
	}
	m.freed = true
	DeleteSlice(m.a, m.data)
	m.data = nil
}

// StackAllocScoped allocates n bytes on s.
func StackAllocScoped(s *StackAllocator, n int) *Scoped[byte] {
	return &Scoped[byte]{a: s, data: s.Alloc(n)}
}

// StackNew allocates a zeroed T on s.
func StackNew[T any](s *StackAllocator) *T { return New[T](s) }

// StackNewSlice allocates n zeroed elements on s.
func StackNewSlice[T any](s *StackAllocator, n int) []T { return NewSlice[T](s, n) }

// StackDelete zeroes *p and pops it off s.
func StackDelete[T any](s *StackAllocator, p *T) { Delete(s, p) }

// StackDeleteSlice zeroes e and pops it off s.
func StackDeleteSlice[T any](s *StackAllocator, e []T) { DeleteSlice(s, e) }
