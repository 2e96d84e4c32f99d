package memory

import "context"

// ThreadOptions configures the allocators owned by a Local.
type ThreadOptions struct {
	Stack          StackOptions
	Frame          FrameOptions
	Pool           BytePoolOptions
	StaticCapacity int
}

// DefaultStaticCapacity is the size of a Local's static allocator (64 KiB).
const DefaultStaticCapacity = 64 << 10

// DefaultPoolElemSize is the slot size of a Local's byte pool.
const DefaultPoolElemSize = 64

// Local is the set of allocators owned by one goroutine. Stack and frame
// allocators are never shared: each goroutine that needs them calls
// BeginThread and passes the Local down, usually through a context.
//
//	l := memory.BeginThread(memory.ThreadOptions{})
//	defer l.End()
//	ctx = memory.NewContext(ctx, l)
type Local struct {
	opts ThreadOptions

	stack  *StackAllocator
	frame  *FrameAllocator
	pool   *BytePool
	static *StaticAllocator
}

// BeginThread creates the allocators for the calling goroutine. They are
// constructed on first use.
func BeginThread(opts ThreadOptions) *Local {
	if opts.StaticCapacity <= 0 {
		opts.StaticCapacity = DefaultStaticCapacity
	}
	if opts.Pool.ElemSize <= 0 {
		opts.Pool.ElemSize = DefaultPoolElemSize
	}
	return &Local{opts: opts}
}

// Stack returns the goroutine's stack allocator.
func (l *Local) Stack() *StackAllocator {
	if l.stack == nil {
		l.stack = NewStackAllocator(l.opts.Stack)
	}
	return l.stack
}

// Frame returns the goroutine's frame allocator.
func (l *Local) Frame() *FrameAllocator {
	if l.frame == nil {
		l.frame = NewFrameAllocator(l.opts.Frame)
	}
	return l.frame
}

// Pool returns the goroutine's byte pool.
func (l *Local) Pool() *BytePool {
	if l.pool == nil {
		l.pool = NewBytePool(l.opts.Pool)
	}
	return l.pool
}

// Static returns the goroutine's static allocator.
func (l *Local) Static() *StaticAllocator {
	if l.static == nil {
		l.static = NewStaticAllocator(l.opts.StaticCapacity)
	}
	return l.static
}

// Allocator returns the allocator of category c.
func (l *Local) Allocator(c Category) Allocator {
	switch c {
	case CategoryStack:
		return l.Stack()
	case CategoryFrame:
		return l.Frame()
	case CategoryPool:
		return l.Pool()
	case CategoryStatic:
		return l.Static()
	default:
		return HeapAllocator{}
	}
}

// Metrics returns a snapshot of every allocator constructed so far.
func (l *Local) Metrics() []Metrics {
	var out []Metrics
	if l.stack != nil {
		out = append(out, l.stack.Metrics())
	}
	if l.frame != nil {
		out = append(out, l.frame.Metrics())
	}
	if l.pool != nil {
		out = append(out, l.pool.Metrics())
	}
	if l.static != nil {
		out = append(out, l.static.Metrics())
	}
	return out
}

// End releases every allocator. The Local must not be used afterwards.
func (l *Local) End() {
	if l.stack != nil {
		l.stack.Release()
		l.stack = nil
	}
	if l.frame != nil {
		l.frame.Release()
		l.frame = nil
	}
	if l.pool != nil {
		l.pool.Release()
		l.pool = nil
	}
	l.static = nil
}

type localKey struct{}

// NewContext returns a copy of ctx carrying l.
func NewContext(ctx context.Context, l *Local) context.Context {
	return context.WithValue(ctx, localKey{}, l)
}

// FromContext returns the Local carried by ctx.
func FromContext(ctx context.Context) (*Local, bool) {
	l, ok := ctx.Value(localKey{}).(*Local)
	return l, ok
}

// MustFromContext is like FromContext but panics if ctx carries no Local.
func MustFromContext(ctx context.Context) *Local {
	l, ok := FromContext(ctx)
	if !ok {
		panic("memory: no Local in context; call BeginThread and NewContext")
	}
	return l
}

// FrameAlloc allocates n bytes from the frame allocator carried by ctx.
func FrameAlloc(ctx context.Context, n int) []byte {
	return MustFromContext(ctx).Frame().Alloc(n)
}

// FrameAllocAligned allocates n bytes aligned to align from the frame
// allocator carried by ctx.
func FrameAllocAligned(ctx context.Context, n, align int) []byte {
	return MustFromContext(ctx).Frame().AllocAligned(n, align)
}

// FrameFree frees memory from FrameAlloc or FrameAllocAligned.
func FrameFree(ctx context.Context, b []byte) {
	MustFromContext(ctx).Frame().Free(b)
}

// FrameMark opens a frame on the frame allocator carried by ctx.
func FrameMark(ctx context.Context) {
	MustFromContext(ctx).Frame().MarkFrame()
}

// FrameClear clears the most recent frame on the frame allocator carried
// by ctx.
func FrameClear(ctx context.Context) {
	MustFromContext(ctx).Frame().Clear()
}
