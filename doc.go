// Package memory provides allocators shaped after object lifetimes.
//
// # Overview
//
// Each allocator serves one lifetime pattern:
//
//   - StackAllocator: strictly nested (LIFO) allocations
//   - FrameAllocator: bulk release at the end of a frame, with nested marks
//   - Pool and BytePool: many objects of one size, freed individually
//   - StaticAllocator: fixed-capacity scratch space that never grows
//
// All of them implement Allocator, so code can pick a Category at run time
// and use the typed helpers New, NewSlice, Delete and DeleteSlice.
//
// # Basic Usage
//
//	l := memory.BeginThread(memory.ThreadOptions{})
//	defer l.End()
//
//	f := l.Frame()
//	f.MarkFrame()
//	buf := f.Alloc(1024)
//	pts := memory.NewSlice[Point](f, 100)
//	f.Clear() // releases buf and pts
//
//	s := l.Stack()
//	tmp := memory.StackAllocScoped(s, 256)
//	defer tmp.Release()
//
// # Memory Layout
//
// Stack and frame allocators bump through blocks obtained from a Source
// (Go heap by default, or MmapSource for large blocks). The stack allocator
// stores a one-word size header in front of every allocation; the frame
// allocator does so only with debug checks on. Blocks are merged as they
// drain, so a steady workload settles on a single block.
//
// # Important Notes
//
//   - Memory from the stack, frame, byte pool and static allocators is not
//     scanned by the garbage collector: it must not hold Go pointers.
//     Pool[T] stores values in typed slices and has no such restriction.
//   - Stack and frame allocators belong to one goroutine. Use a Local per
//     goroutine; SafePool is the only locked type.
//   - Misuse (out-of-order stack frees, frame leaks, static overflow) panics
//     with a *ContractError. The checks that cost time only run with
//     Debug set in the options or MEMORY_DEBUG in the environment.
//
// # Metrics and Monitoring
//
//	m := f.Metrics()
//	fmt.Printf("Utilization: %.2f%%\n", m.Utilization*100)
//	fmt.Printf("Blocks acquired: %d\n", memory.NumAllocs())
package memory
