//go:build unix

package blockstore

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// MmapSource maps block memory directly from the OS with anonymous private
// mappings, so released blocks are returned with munmap instead of waiting
// for a GC cycle. Requests smaller than MinSize are served from the heap.
type MmapSource struct {
	MinSize int
}

func (s MmapSource) Acquire(size int) []byte {
	if size < s.MinSize {
		return make([]byte, size)
	}
	page := unix.Getpagesize()
	mapped := AlignUp(size, page)
	buf, err := unix.Mmap(-1, 0, mapped, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic(fmt.Errorf("blockstore: mmap %d bytes: %w", mapped, err))
	}
	return buf[:size]
}

func (s MmapSource) Release(buf []byte) {
	if cap(buf) < s.MinSize || cap(buf)%unix.Getpagesize() != 0 {
		return
	}
	if err := unix.Munmap(buf[:cap(buf)]); err != nil {
		panic(fmt.Errorf("blockstore: munmap %d bytes: %w", cap(buf), err))
	}
}
