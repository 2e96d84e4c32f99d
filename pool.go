package memory

import "fmt"

// Handle identifies a live pool slot. The zero Handle is nil.
type Handle uint32

// NilHandle never refers to a slot.
const NilHandle Handle = 0

// IsNil reports whether h is the nil handle.
func (h Handle) IsNil() bool { return h == NilHandle }

func (h Handle) String() string {
	if h.IsNil() {
		return "nil"
	}
	return fmt.Sprintf("#%d", uint32(h)-1)
}

const (
	freeListEnd int32 = -1
	slotLive    int32 = -2
)

// Pool hands out fixed-size slots of T from chunks of ElemsPerBlock slots.
// Freed slots go back to an index-based free list and are reused before a
// new chunk is added; chunks stay until Release.
//
// Each slot carries a generation that changes when it is freed, so holders
// of a handle can tell whether it still names the same object. Pool is not
// goroutine-safe; see SafePool.
type Pool[T any] struct {
	elemsPerBlock int
	stride        int

	chunks   []*poolChunk[T]
	freeHead int32
	live     int
}

type poolChunk[T any] struct {
	values []T
	next   []int32
	gens   []uint32
}

// NewPool creates an empty pool.
func NewPool[T any](opts PoolOptions) *Pool[T] {
	opts = opts.normalize()
	return &Pool[T]{
		elemsPerBlock: opts.ElemsPerBlock,
		stride:        opts.Stride,
		freeHead:      freeListEnd,
	}
}

// Alloc takes a free slot. Its contents are whatever the last Free left
// behind; use Construct for an initialised value.
func (p *Pool[T]) Alloc() Handle {
	if p.freeHead == freeListEnd {
		p.grow()
	}
	i := p.freeHead
	c, s := p.slot(int(i))
	p.freeHead = c.next[s]
	c.next[s] = slotLive
	p.live++
	return Handle(i + 1)
}

// Construct takes a slot and stores v in it.
func (p *Pool[T]) Construct(v T) (Handle, *T) {
	h := p.Alloc()
	ptr := p.Get(h)
	*ptr = v
	return h, ptr
}

// Get returns the first value of the slot.
func (p *Pool[T]) Get(h Handle) *T {
	c, s := p.mustLive("Pool.Get", h)
	return &c.values[s*p.stride]
}

// Run returns all Stride values of the slot.
func (p *Pool[T]) Run(h Handle) []T {
	c, s := p.mustLive("Pool.Run", h)
	lo := s * p.stride
	return c.values[lo : lo+p.stride : lo+p.stride]
}

// Gen returns the generation of the slot named by h.
func (p *Pool[T]) Gen(h Handle) uint32 {
	c, s, ok := p.lookup(h)
	if !ok {
		return 0
	}
	return c.gens[s]
}

// Live reports whether h names a live slot that has not been freed since
// its generation was gen.
func (p *Pool[T]) Live(h Handle, gen uint32) bool {
	c, s, ok := p.lookup(h)
	return ok && c.next[s] == slotLive && c.gens[s] == gen
}

// Destruct zeroes the slot and frees it.
func (p *Pool[T]) Destruct(h Handle) {
	clear(p.Run(h))
	p.Free(h)
}

// Free returns the slot to the free list. Freeing a slot twice panics with
// ErrBadHandle.
func (p *Pool[T]) Free(h Handle) {
	c, s := p.mustLive("Pool.Free", h)
	c.gens[s]++
	c.next[s] = p.freeHead
	p.freeHead = int32(h - 1)
	p.live--
}

// Len returns the number of live slots.
func (p *Pool[T]) Len() int { return p.live }

// NumBlocks returns the number of chunks.
func (p *Pool[T]) NumBlocks() int { return len(p.chunks) }

// Capacity returns the number of slots across all chunks.
func (p *Pool[T]) Capacity() int { return len(p.chunks) * p.elemsPerBlock }

// Release drops every chunk. Outstanding handles become invalid.
func (p *Pool[T]) Release() {
	countChunkRelease(len(p.chunks))
	p.chunks = nil
	p.freeHead = freeListEnd
	p.live = 0
}

func (p *Pool[T]) grow() {
	n := p.elemsPerBlock
	base := int32(len(p.chunks) * n)
	c := &poolChunk[T]{
		values: make([]T, n*p.stride),
		next:   make([]int32, n),
		gens:   make([]uint32, n),
	}
	for s := range c.next {
		c.next[s] = base + int32(s) + 1
	}
	c.next[n-1] = p.freeHead
	p.freeHead = base
	p.chunks = append(p.chunks, c)
	countChunk("pool", n)
}

func (p *Pool[T]) slot(i int) (*poolChunk[T], int) {
	return p.chunks[i/p.elemsPerBlock], i % p.elemsPerBlock
}

func (p *Pool[T]) lookup(h Handle) (*poolChunk[T], int, bool) {
	if h.IsNil() || int(h-1) >= len(p.chunks)*p.elemsPerBlock {
		return nil, 0, false
	}
	c, s := p.slot(int(h - 1))
	return c, s, true
}

func (p *Pool[T]) mustLive(op string, h Handle) (*poolChunk[T], int) {
	c, s, ok := p.lookup(h)
	if !ok || c.next[s] != slotLive {
		violate(op, ErrBadHandle)
	}
	return c, s
}
