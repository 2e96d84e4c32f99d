package quadtree

import (
	"fmt"

	"github.com/pavanmanishd/memory"
)

// Options tunes a Tree.
type Options struct {
	// LoosePadding controls how far child bounds extend past their quarter
	// of the parent: child extent = parent extent * (1 + 1/LoosePadding) / 2.
	LoosePadding float32

	// MinElementsPerNode is the total element count below which a subtree
	// collapses back into one leaf.
	MinElementsPerNode int

	// MaxElementsPerNode is the element count above which a leaf splits.
	// It is also the size of each element group.
	MaxElementsPerNode int

	// MaxDepth bounds how often a node can be subdivided.
	MaxDepth int

	// Frame provides the work storage for collapses. Nil makes the tree use
	// a private frame allocator.
	Frame *memory.FrameAllocator

	// Context is passed to every Policy call.
	Context any
}

// DefaultOptions returns the default tuning.
func DefaultOptions() Options {
	return Options{
		LoosePadding:       16,
		MinElementsPerNode: 8,
		MaxElementsPerNode: 16,
		MaxDepth:           12,
	}
}

func (o Options) validate() error {
	switch {
	case o.LoosePadding <= 0:
		return fmt.Errorf("%w: LoosePadding must be positive, got %v", ErrInvalidOptions, o.LoosePadding)
	case o.MaxElementsPerNode < 1:
		return fmt.Errorf("%w: MaxElementsPerNode must be at least 1, got %d", ErrInvalidOptions, o.MaxElementsPerNode)
	case o.MinElementsPerNode < 0 || o.MinElementsPerNode > o.MaxElementsPerNode:
		return fmt.Errorf("%w: MinElementsPerNode must be in [0, %d], got %d", ErrInvalidOptions, o.MaxElementsPerNode, o.MinElementsPerNode)
	case o.MaxDepth < 0:
		return fmt.Errorf("%w: MaxDepth must not be negative, got %d", ErrInvalidOptions, o.MaxDepth)
	}
	return nil
}
