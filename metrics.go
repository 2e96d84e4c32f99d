package memory

// Metrics is a snapshot of an allocator's statistics.
type Metrics struct {
	Category    Category `json:"-"`
	Name        string   `json:"category"`
	SizeInUse   int      `json:"size_in_use"` // Bytes (or slots, for pools) currently handed out
	Capacity    int      `json:"capacity"`    // Total capacity of all blocks
	NumBlocks   int      `json:"num_blocks"`
	BlockSize   int      `json:"block_size"` // Minimum block size, or slots per chunk
	Live        int      `json:"live"`       // Outstanding allocations, where tracked
	Utilization float64  `json:"utilization"`
}

func newMetrics(c Category, inUse, capacity, blocks, blockSize, live int) Metrics {
	m := Metrics{
		Category:  c,
		Name:      c.String(),
		SizeInUse: inUse,
		Capacity:  capacity,
		NumBlocks: blocks,
		BlockSize: blockSize,
		Live:      live,
	}
	if capacity > 0 {
		m.Utilization = float64(inUse) / float64(capacity)
	}
	return m
}

// SizeInUse returns the bytes in use across all blocks, headers included.
func (s *StackAllocator) SizeInUse() int {
	sum := 0
	for b := s.head(); b != nil; b = b.Next {
		sum += b.Offset()
	}
	return sum
}

// NumBlocks returns the number of blocks in the chain.
func (s *StackAllocator) NumBlocks() int {
	n := 0
	for b := s.head(); b != nil; b = b.Next {
		n++
	}
	return n
}

// Capacity returns the total capacity of all blocks.
func (s *StackAllocator) Capacity() int {
	sum := 0
	for b := s.head(); b != nil; b = b.Next {
		sum += b.Cap()
	}
	return sum
}

// Metrics returns a snapshot of the stack statistics.
func (s *StackAllocator) Metrics() Metrics {
	return newMetrics(CategoryStack, s.SizeInUse(), s.Capacity(), s.NumBlocks(), s.blockCapacity, s.live)
}

// SizeInUse returns the bytes in use across all blocks, including padding,
// frame marks and debug headers.
func (f *FrameAllocator) SizeInUse() int {
	sum := 0
	for _, b := range f.blocks {
		sum += b.Offset()
	}
	return sum
}

// NumBlocks returns the number of blocks, including pooled empty ones.
func (f *FrameAllocator) NumBlocks() int { return len(f.blocks) }

// Capacity returns the total capacity of all blocks.
func (f *FrameAllocator) Capacity() int {
	sum := 0
	for _, b := range f.blocks {
		sum += b.Cap()
	}
	return sum
}

// AllocatedBytes returns the bytes allocated and not yet freed. Only
// tracked with debug checks on.
func (f *FrameAllocator) AllocatedBytes() int { return f.totalAllocBytes }

// Metrics returns a snapshot of the frame statistics.
func (f *FrameAllocator) Metrics() Metrics {
	return newMetrics(CategoryFrame, f.SizeInUse(), f.Capacity(), f.NumBlocks(), f.blockSize, 0)
}

// Metrics returns a snapshot of the pool statistics, counted in slots.
func (p *Pool[T]) Metrics() Metrics {
	return newMetrics(CategoryPool, p.live, p.Capacity(), p.NumBlocks(), p.elemsPerBlock, p.live)
}

// Metrics returns a snapshot of the pool statistics, counted in bytes.
func (p *BytePool) Metrics() Metrics {
	return newMetrics(CategoryPool, p.live*p.slotSize, p.Capacity()*p.slotSize, p.numBlocks, p.elemsPerBlock, p.live)
}

// Metrics returns a snapshot of the static allocator statistics.
func (s *StaticAllocator) Metrics() Metrics {
	return newMetrics(CategoryStatic, s.SizeInUse(), s.Capacity(), 1, s.Capacity(), 0)
}
