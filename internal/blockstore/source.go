package blockstore

// Source hands out raw buffers for new blocks and takes them back once a
// block is released or merged away.
type Source interface {
	Acquire(size int) []byte
	Release(buf []byte)
}

// HeapSource allocates block memory on the Go heap. Release is a no-op and
// the garbage collector reclaims the buffer once no block references it.
type HeapSource struct{}

func (HeapSource) Acquire(size int) []byte { return make([]byte, size) }

func (HeapSource) Release([]byte) {}

// Heap is the default source.
var Heap Source = HeapSource{}
