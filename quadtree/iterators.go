package quadtree

import (
	"iter"
	"unsafe"

	"github.com/pavanmanishd/memory"
	"github.com/pavanmanishd/memory/simd"
)

// NodeRef is a node visited by a NodeIterator together with its loose bounds.
type NodeRef struct {
	Handle memory.Handle
	Bounds simd.Rect2
}

type hnode struct {
	node   memory.Handle
	bounds nodeBounds
}

// NodeIterator walks nodes depth first. It starts with the root queued;
// after each MoveNext the caller chooses which children to descend into
// with PushChild. Close hands its traversal stack back to the tree.
type NodeIterator[E any, P Policy[E]] struct {
	t       *Tree[E, P]
	stack   *memory.StaticVec[hnode]
	current hnode
	shared  bool
}

// scratchIterators is the number of node iterators that can be open at
// once on the tree's scratch memory. Further iterators get their own.
const scratchIterators = 4

// iterStackLen is the traversal stack length: each level pushes at most
// four children and pops one.
func iterStackLen(maxDepth int) int { return (maxDepth + 1) * 4 }

func iterStackBytes(maxDepth int) int {
	n := iterStackLen(maxDepth) * int(unsafe.Sizeof(hnode{}))
	return (n + 7) &^ 7
}

// NewNodeIterator returns an iterator positioned before the root.
func (t *Tree[E, P]) NewNodeIterator() *NodeIterator[E, P] {
	it := &NodeIterator[E, P]{t: t}
	it.stack = t.iterStack(&it.shared)
	it.stack.Push(hnode{node: t.root, bounds: t.rootBounds})
	return it
}

// iterStack returns a traversal stack from the tree's scratch memory,
// reset once no iterator uses it, or from a fresh static allocator when
// the scratch memory is taken.
func (t *Tree[E, P]) iterStack(shared *bool) *memory.StaticVec[hnode] {
	n, size := iterStackLen(t.opts.MaxDepth), iterStackBytes(t.opts.MaxDepth)
	if t.openIters == 0 {
		t.scratch.Reset()
	}
	if t.scratch.Capacity()-t.scratch.SizeInUse() >= size {
		t.openIters++
		*shared = true
		return memory.NewStaticVec[hnode](t.scratch, n)
	}
	*shared = false
	return memory.NewStaticVec[hnode](memory.NewStaticAllocator(size), n)
}

// Close ends the iteration. Iterators that are never closed keep their
// share of the tree's scratch memory.
func (it *NodeIterator[E, P]) Close() {
	if it.shared {
		it.t.openIters--
		it.shared = false
	}
	it.stack.Clear()
}

// MoveNext pops the next node. It returns false when no nodes are left.
func (it *NodeIterator[E, P]) MoveNext() bool {
	n, ok := it.stack.Pop()
	it.current = n
	return ok
}

// Current returns the node the iterator is positioned on.
func (it *NodeIterator[E, P]) Current() NodeRef {
	return NodeRef{Handle: it.current.node, Bounds: it.current.bounds.bounds}
}

// PushChild queues child quadrant i of the current node. Missing children
// are skipped.
func (it *NodeIterator[E, P]) PushChild(i int) {
	c := it.t.nodes.Get(it.current.node).children[i]
	if c.IsNil() {
		return
	}
	it.stack.Push(hnode{node: c, bounds: it.current.bounds.child(i, it.t.scale)})
}

// ElementIterator walks the elements stored at one node, newest group
// first.
type ElementIterator[E any, P Policy[E]] struct {
	t       *Tree[E, P]
	node    memory.Handle
	group   []entry[E]
	next    memory.Handle
	idx     int
	inGroup int
	base    int
}

// NewElementIterator returns an iterator over the elements of node h.
func (t *Tree[E, P]) NewElementIterator(h memory.Handle) *ElementIterator[E, P] {
	it := &ElementIterator[E, P]{}
	it.reset(t, h)
	return it
}

func (it *ElementIterator[E, P]) reset(t *Tree[E, P], h memory.Handle) {
	n := t.nodes.Get(h)
	per := t.opts.MaxElementsPerNode
	*it = ElementIterator[E, P]{t: t, node: h, idx: -1, next: n.groups}
	if n.count == 0 {
		return
	}
	numGroups := (int(n.count) + per - 1) / per
	it.base = (numGroups - 1) * per
	it.inGroup = int(n.count) - it.base
	it.group = t.groups.Run(n.groups)
	it.next = it.group[0].next
}

// MoveNext advances to the next element.
func (it *ElementIterator[E, P]) MoveNext() bool {
	if it.group == nil {
		return false
	}
	it.idx++
	if it.idx < it.inGroup {
		return true
	}
	if it.next.IsNil() {
		it.group = nil
		return false
	}
	it.group = it.t.groups.Run(it.next)
	it.next = it.group[0].next
	it.inGroup = it.t.opts.MaxElementsPerNode
	it.base -= it.inGroup
	it.idx = 0
	return true
}

// Element returns the current element.
func (it *ElementIterator[E, P]) Element() E { return it.group[it.idx].value }

// Bounds returns the bounds of the current element.
func (it *ElementIterator[E, P]) Bounds() simd.Rect2 { return it.group[it.idx].bounds }

// ID returns the id of the current element.
func (it *ElementIterator[E, P]) ID() ElementID {
	return ElementID{
		node:  it.node,
		gen:   it.t.nodes.Gen(it.node),
		index: uint32(it.base + it.idx),
		tag:   it.group[it.idx].tag,
	}
}

// BoxIntersectIterator yields the elements whose bounds overlap a query
// rectangle. Only children whose loose bounds intersect the query are
// visited. The tree must not change while iterating.
type BoxIntersectIterator[E any, P Policy[E]] struct {
	nodes  *NodeIterator[E, P]
	elems  ElementIterator[E, P]
	bounds simd.Rect2
}

// NewBoxIntersectIterator returns an iterator over the elements overlapping r.
func (t *Tree[E, P]) NewBoxIntersectIterator(r simd.Rect2) *BoxIntersectIterator[E, P] {
	return &BoxIntersectIterator[E, P]{
		nodes:  t.NewNodeIterator(),
		bounds: r,
	}
}

// MoveNext advances to the next overlapping element.
func (it *BoxIntersectIterator[E, P]) MoveNext() bool {
	for {
		for it.elems.MoveNext() {
			if it.elems.Bounds().Overlaps(it.bounds) {
				return true
			}
		}
		if !it.nodes.MoveNext() {
			return false
		}

		cur := it.nodes.current
		it.elems.reset(it.nodes.t, cur.node)
		r := cur.bounds.findIntersectingChildren(it.bounds)
		for i := range 4 {
			if rangeContains(r, i) {
				it.nodes.PushChild(i)
			}
		}
	}
}

// Element returns the current element.
func (it *BoxIntersectIterator[E, P]) Element() E { return it.elems.Element() }

// Bounds returns the bounds of the current element.
func (it *BoxIntersectIterator[E, P]) Bounds() simd.Rect2 { return it.elems.Bounds() }

// Close ends the iteration.
func (it *BoxIntersectIterator[E, P]) Close() { it.nodes.Close() }

// Query returns the elements whose bounds overlap r.
func (t *Tree[E, P]) Query(r simd.Rect2) iter.Seq[E] {
	return func(yield func(E) bool) {
		it := t.NewBoxIntersectIterator(r)
		defer it.Close()
		for it.MoveNext() {
			if !yield(it.Element()) {
				return
			}
		}
	}
}
