//go:build !unix

package blockstore

// MmapSource falls back to heap memory on platforms without mmap.
type MmapSource struct {
	MinSize int
}

func (MmapSource) Acquire(size int) []byte { return make([]byte, size) }

func (MmapSource) Release([]byte) {}
