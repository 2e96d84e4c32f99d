package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFrameAllocator(t *testing.T) {
	f := NewFrameAllocator(FrameOptions{})
	defer f.Release()

	assert.Equal(t, DefaultFrameBlockSize, f.blockSize)
	assert.Zero(t, f.NumBlocks(), "no memory until the first allocation")

	assert.Nil(t, f.Alloc(0))
	b := f.Alloc(100)
	assert.Len(t, b, 100)
	assert.Equal(t, 1, f.NumBlocks())
	assert.Equal(t, 104, f.SizeInUse())
}

func TestFrameMarkClearRoundTrip(t *testing.T) {
	tests := []struct {
		x, y  int
		debug bool
	}{
		{16, 16, false},
		{16, 16, true},
		{900, 10, false},
		{1000, 1000, false},
		{1000, 1000, true},
		{1, 1024, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("x=%d/y=%d/debug=%t", tt.x, tt.y, tt.debug), func(t *testing.T) {
			f := NewFrameAllocator(FrameOptions{BlockSize: 1024, Debug: tt.debug})
			defer f.Release()

			pre := f.Alloc(100)
			before := f.SizeInUse()
			allocated := f.AllocatedBytes()

			f.MarkFrame()
			f.Alloc(tt.x)
			f.MarkFrame()
			f.Alloc(tt.y)
			f.Clear()
			f.Clear()

			assert.Equal(t, before, f.SizeInUse())
			if tt.debug {
				// Frame clears only account for the mark words.
				assert.Equal(t, allocated+roundedWithHeader(tt.x)+roundedWithHeader(tt.y), f.AllocatedBytes())
			}

			f.Free(pre)
		})
	}
}

func roundedWithHeader(n int) int {
	return (n+headerSize-1)/headerSize*headerSize + headerSize
}

func TestFrameNestedMarksAcrossBlocks(t *testing.T) {
	f := NewFrameAllocator(FrameOptions{BlockSize: 256})
	defer f.Release()

	f.MarkFrame()
	a := f.Alloc(200)
	f.MarkFrame()
	b := f.Alloc(200)
	copy(a, "outer")
	copy(b, "inner")
	require.Equal(t, 2, f.NumBlocks())

	f.Clear()
	assert.Equal(t, "outer", string(a[:5]), "outer frame survives the inner clear")

	c := f.Alloc(200)
	assert.Equal(t, addrOf(b), addrOf(c), "inner frame memory is reused")

	f.Clear()
	assert.Zero(t, f.SizeInUse())
}

func TestFrameMergesEmptiedBlocks(t *testing.T) {
	f := NewFrameAllocator(FrameOptions{BlockSize: 256})
	defer f.Release()

	f.Alloc(100)
	f.MarkFrame()
	f.Alloc(296)
	f.Alloc(296)
	require.Equal(t, 3, f.NumBlocks())

	f.Clear()
	assert.Equal(t, 2, f.NumBlocks(), "the two emptied blocks become one")
	assert.Equal(t, 256+592, f.Capacity())
	assert.Equal(t, 104, f.SizeInUse())

	before := NumAllocs()
	f.Alloc(500)
	assert.Equal(t, before, NumAllocs(), "merged block is handed out next")
	assert.Equal(t, 2, f.NumBlocks())
}

func TestFrameMergeIncludesMarkBlock(t *testing.T) {
	f := NewFrameAllocator(FrameOptions{BlockSize: 256})
	defer f.Release()

	f.MarkFrame()
	f.Alloc(296)
	f.Alloc(296)
	require.Equal(t, 3, f.NumBlocks())

	f.Clear()
	assert.Equal(t, 1, f.NumBlocks())
	assert.Equal(t, 256+296+296, f.Capacity())
	assert.Zero(t, f.SizeInUse())
}

func TestFrameClearWithoutMark(t *testing.T) {
	f := NewFrameAllocator(FrameOptions{BlockSize: 256})
	defer f.Release()

	f.Alloc(296)
	f.Alloc(296)
	require.Equal(t, 2, f.NumBlocks())

	f.Clear()
	assert.Equal(t, 1, f.NumBlocks())
	assert.Equal(t, 592, f.Capacity())
	assert.Zero(t, f.SizeInUse())

	f.Alloc(10)
	f.Clear()
	assert.Equal(t, 1, f.NumBlocks())
	assert.Zero(t, f.SizeInUse())
}

func TestFrameLeakDetection(t *testing.T) {
	f := NewFrameAllocator(FrameOptions{Debug: true})
	defer f.Release()

	a := f.Alloc(16)
	b := f.AllocAligned(40, 64)
	requireViolation(t, ErrFrameLeak, f.Clear)

	f.Free(a)
	f.Free(b)
	assert.Zero(t, f.AllocatedBytes())
	assert.NotPanics(t, f.Clear)

	requireViolation(t, ErrNotOwned, func() { f.Free(make([]byte, 8)) })
}

func TestFrameAllocAligned(t *testing.T) {
	for _, debug := range []bool{false, true} {
		for _, align := range []int{1, 8, 16, 64, 4096} {
			t.Run(fmt.Sprintf("debug=%t/align=%d", debug, align), func(t *testing.T) {
				f := NewFrameAllocator(FrameOptions{BlockSize: 1024, Debug: debug})
				defer f.Release()

				f.Alloc(3)
				b := f.AllocAligned(100, align)
				require.Len(t, b, 100)
				assert.Zero(t, addrOf(b)%uintptr(align))
			})
		}
	}

	f := NewFrameAllocator(FrameOptions{})
	defer f.Release()
	requireViolation(t, ErrBadAlignment, func() { f.AllocAligned(8, 12) })
}

func TestFrameUseAfterRelease(t *testing.T) {
	f := NewFrameAllocator(FrameOptions{})
	f.Alloc(8)
	f.Release()

	requireViolation(t, ErrReleased, func() { f.Alloc(8) })
	requireViolation(t, ErrReleased, f.MarkFrame)
	assert.NotPanics(t, f.Release)
}

func TestFrameVec(t *testing.T) {
	f := NewFrameAllocator(FrameOptions{BlockSize: 512, Debug: true})
	defer f.Release()

	f.MarkFrame()
	v := NewFrameVec[int64](f, 2)
	for i := range 1000 {
		v.Push(int64(i))
	}
	require.Equal(t, 1000, v.Len())
	for i := range 1000 {
		require.Equal(t, int64(i), v.At(i))
	}

	last, ok := v.Pop()
	assert.True(t, ok)
	assert.Equal(t, int64(999), last)

	v.Release()
	f.Clear()
	assert.Zero(t, f.AllocatedBytes(), "grown buffers are freed")
	assert.NotPanics(t, f.Clear)
}

func BenchmarkFrameFrame(b *testing.B) {
	f := NewFrameAllocator(FrameOptions{BlockSize: 64 << 10})
	defer f.Release()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.MarkFrame()
		for j := 0; j < 100; j++ {
			f.Alloc(64)
		}
		f.Clear()
	}
}
