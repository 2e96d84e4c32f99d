package memory

import "sync"

// SafePool is a mutex-protected Pool for pools shared between goroutines.
// All operations lock; values returned by Get stay valid until the slot is
// freed, but access to them is not synchronised.
type SafePool[T any] struct {
	mu sync.Mutex
	p  *Pool[T]
}

// NewSafePool creates an empty locked pool.
func NewSafePool[T any](opts PoolOptions) *SafePool[T] {
	return &SafePool[T]{p: NewPool[T](opts)}
}

// Construct takes a slot and stores v in it.
func (s *SafePool[T]) Construct(v T) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, _ := s.p.Construct(v)
	return h
}

// Load returns a copy of the value stored in h.
func (s *SafePool[T]) Load(h Handle) T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.p.Get(h)
}

// Store replaces the value stored in h.
func (s *SafePool[T]) Store(h Handle, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.p.Get(h) = v
}

// Destruct zeroes and frees h.
func (s *SafePool[T]) Destruct(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Destruct(h)
}

// Live reports whether h is still live at generation gen.
func (s *SafePool[T]) Live(h Handle, gen uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Live(h, gen)
}

// Gen returns the generation of h.
func (s *SafePool[T]) Gen(h Handle) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Gen(h)
}

// Len returns the number of live slots.
func (s *SafePool[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Len()
}

// Metrics returns a snapshot of the pool statistics.
func (s *SafePool[T]) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Metrics()
}

// Release drops every chunk.
func (s *SafePool[T]) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.Release()
}
