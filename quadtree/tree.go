// Package quadtree implements a loose quadtree whose nodes and element
// storage live in memory pools.
//
// Elements that straddle a split line stay at the higher node instead of
// being duplicated. Each node stores its elements in groups of
// MaxElementsPerNode entries; removal is O(1) by moving the last element
// into the freed entry, and the moved element is told its new ElementID
// through the Policy.
package quadtree

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/pavanmanishd/memory"
	"github.com/pavanmanishd/memory/simd"
)

// Policy tells the tree how to read an element's bounds and where to store
// its ElementID. The zero value of the policy type is used, so it is
// usually an empty struct.
type Policy[E any] interface {
	Bounds(e E, ctx any) simd.Rect2
	SetElementID(e E, id ElementID, ctx any)
}

// ElementID addresses an element for RemoveElement. Ids change when
// elements move; the tree reports every change through
// Policy.SetElementID.
type ElementID struct {
	node  memory.Handle
	gen   uint32
	index uint32
	tag   uint32
}

// IsZero reports whether id was never assigned.
func (id ElementID) IsZero() bool { return id.node.IsNil() }

func (id ElementID) String() string {
	return fmt.Sprintf("node %v gen %d index %d tag %d", id.node, id.gen, id.index, id.tag)
}

type node struct {
	parent   memory.Handle
	children [4]memory.Handle
	groups   memory.Handle
	count    uint32
	total    uint32
	leaf     bool
}

// entry is one element slot of a group. Only the first entry of a group
// uses next, linking to the previous group of the node.
type entry[E any] struct {
	value  E
	bounds simd.Rect2
	tag    uint32
	next   memory.Handle
}

// Tree is a loose quadtree of E. It is not goroutine-safe.
type Tree[E any, P Policy[E]] struct {
	opts   Options
	policy P

	scale         float32
	rootBounds    nodeBounds
	minNodeExtent float32

	root   memory.Handle
	nodes  *memory.Pool[node]
	groups *memory.Pool[entry[E]]

	frame     *memory.FrameAllocator
	ownsFrame bool
	nextTag   uint32

	// scratch holds the traversal stacks of open node iterators.
	scratch   *memory.StaticAllocator
	openIters int
}

// New creates an empty tree covering the square centered on center with
// half extent extent.
func New[E any, P Policy[E]](center simd.Vector2, extent float32, opts Options) (*Tree[E, P], error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	scale := 0.5 * (1 + 1/opts.LoosePadding)
	minExtent := extent
	for range opts.MaxDepth {
		minExtent *= scale
	}

	t := &Tree[E, P]{
		opts:          opts,
		scale:         scale,
		rootBounds:    newNodeBounds(simd.Square(center, extent), scale),
		minNodeExtent: minExtent,
		nodes:         memory.NewPool[node](memory.PoolOptions{}),
		groups: memory.NewPool[entry[E]](memory.PoolOptions{
			Stride: opts.MaxElementsPerNode,
		}),
		frame:   opts.Frame,
		scratch: memory.NewStaticAllocator(scratchIterators * iterStackBytes(opts.MaxDepth)),
	}
	if t.frame == nil {
		t.frame = memory.NewFrameAllocator(memory.FrameOptions{BlockSize: 4 << 10})
		t.ownsFrame = true
	}
	t.root = t.newNode(memory.NilHandle)
	return t, nil
}

// AddElement inserts e at the deepest node whose loose bounds contain it.
func (t *Tree[E, P]) AddElement(e E) {
	t.nextTag++
	b := t.policy.Bounds(e, t.opts.Context)
	t.addToNode(e, b, t.nextTag, t.root, t.rootBounds)
}

// RemoveElement removes the element named by id. Subtrees whose total
// element count drops below MinElementsPerNode are collapsed.
func (t *Tree[E, P]) RemoveElement(id ElementID) error {
	if !t.valid(id) {
		return fmt.Errorf("%w: %v", ErrStaleElementID, id)
	}

	t.popElement(id.node, id.index)

	var collapse memory.Handle
	for h := id.node; !h.IsNil(); {
		n := t.nodes.Get(h)
		n.total--
		if int(n.total) < t.opts.MinElementsPerNode {
			collapse = h
		}
		h = n.parent
	}
	if !collapse.IsNil() {
		t.collapse(collapse)
	}
	return nil
}

// Len returns the number of elements in the tree.
func (t *Tree[E, P]) Len() int { return int(t.nodes.Get(t.root).total) }

// Root returns the root node handle.
func (t *Tree[E, P]) Root() memory.Handle { return t.root }

// IsLeaf reports whether the node has no children.
func (t *Tree[E, P]) IsLeaf(h memory.Handle) bool { return t.nodes.Get(h).leaf }

// Child returns the child of h in quadrant i, or the nil handle.
func (t *Tree[E, P]) Child(h memory.Handle, i int) memory.Handle {
	return t.nodes.Get(h).children[i]
}

// NodeElementCount returns the number of elements stored at the node itself.
func (t *Tree[E, P]) NodeElementCount(h memory.Handle) int {
	return int(t.nodes.Get(h).count)
}

// TotalElements returns the number of elements in the node's subtree.
func (t *Tree[E, P]) TotalElements(h memory.Handle) int {
	return int(t.nodes.Get(h).total)
}

// Release frees all nodes and element storage. The tree is unusable
// afterwards.
func (t *Tree[E, P]) Release() {
	t.nodes.Release()
	t.groups.Release()
	if t.ownsFrame {
		t.frame.Release()
	}
	t.root = memory.NilHandle
}

func (t *Tree[E, P]) newNode(parent memory.Handle) memory.Handle {
	h, _ := t.nodes.Construct(node{parent: parent, leaf: true})
	return h
}

func (t *Tree[E, P]) addToNode(e E, b simd.Rect2, tag uint32, h memory.Handle, nb nodeBounds) {
	n := t.nodes.Get(h)
	n.total++

	if !n.leaf {
		i, ok := nb.findContainingChild(b)
		if !ok {
			t.pushElement(h, e, b, tag)
			return
		}
		if n.children[i].IsNil() {
			n.children[i] = t.newNode(h)
		}
		t.addToNode(e, b, tag, n.children[i], nb.child(i, t.scale))
		return
	}

	if int(n.count)+1 <= t.opts.MaxElementsPerNode || nb.bounds.Extents.X <= t.minNodeExtent {
		t.pushElement(h, e, b, tag)
		return
	}

	// Split: detach the elements, flip to internal and insert them again.
	head, count := n.groups, n.count
	n.groups, n.count = memory.NilHandle, 0
	n.leaf = false
	n.total = 0
	log.Debug("quadtree: split", "node", h, "elements", count, "extent", nb.bounds.Extents.X)

	t.eachInGroups(head, count, func(en *entry[E]) {
		t.addToNode(en.value, en.bounds, en.tag, h, nb)
	})
	t.freeGroups(head)
	t.addToNode(e, b, tag, h, nb)
}

func (t *Tree[E, P]) pushElement(h memory.Handle, e E, b simd.Rect2, tag uint32) {
	n := t.nodes.Get(h)
	free := int(n.count) % t.opts.MaxElementsPerNode
	if free == 0 {
		g := t.groups.Alloc()
		t.groups.Run(g)[0].next = n.groups
		n.groups = g
	}

	en := &t.groups.Run(n.groups)[free]
	en.value = e
	en.bounds = b
	en.tag = tag

	id := ElementID{node: h, gen: t.nodes.Gen(h), index: n.count, tag: tag}
	n.count++
	t.policy.SetElementID(e, id, t.opts.Context)
}

func (t *Tree[E, P]) popElement(h memory.Handle, idx uint32) {
	n := t.nodes.Get(h)
	last := n.count - 1
	g, gi := t.mapToGroup(n, idx)
	lg, li := t.mapToGroup(n, last)

	if idx != last {
		dst, src := &g[gi], &lg[li]
		dst.value, dst.bounds, dst.tag = src.value, src.bounds, src.tag
		id := ElementID{node: h, gen: t.nodes.Gen(h), index: idx, tag: dst.tag}
		t.policy.SetElementID(dst.value, id, t.opts.Context)
	}
	var zero E
	lg[li].value = zero

	if li == 0 {
		head := n.groups
		n.groups = lg[0].next
		t.groups.Destruct(head)
	}
	n.count--
}

// mapToGroup returns the group holding element idx and the index inside it.
// The head group is the newest and the only one that may be partial.
func (t *Tree[E, P]) mapToGroup(n *node, idx uint32) ([]entry[E], int) {
	per := uint32(t.opts.MaxElementsPerNode)
	numGroups := (n.count + per - 1) / per
	skip := numGroups - idx/per - 1

	g := n.groups
	for range skip {
		g = t.groups.Run(g)[0].next
	}
	return t.groups.Run(g), int(idx % per)
}

func (t *Tree[E, P]) valid(id ElementID) bool {
	if id.IsZero() || !t.nodes.Live(id.node, id.gen) {
		return false
	}
	n := t.nodes.Get(id.node)
	if id.index >= n.count {
		return false
	}
	g, i := t.mapToGroup(n, id.index)
	return g[i].tag == id.tag
}

// collapse turns target back into a leaf holding every element of its
// subtree. Descendants are swept breadth first using frame memory.
func (t *Tree[E, P]) collapse(target memory.Handle) {
	if t.nodes.Get(target).leaf {
		return
	}

	t.frame.MarkFrame()
	todo := memory.NewFrameVec[memory.Handle](t.frame, 16)
	todo.Push(target)
	for i := 0; i < todo.Len(); i++ {
		for _, c := range t.nodes.Get(todo.At(i)).children {
			if c.IsNil() {
				continue
			}
			cn := t.nodes.Get(c)
			t.eachInGroups(cn.groups, cn.count, func(en *entry[E]) {
				t.pushElement(target, en.value, en.bounds, en.tag)
			})
			todo.Push(c)
		}
	}
	swept := todo.Len() - 1
	todo.Release()
	t.frame.Clear()

	n := t.nodes.Get(target)
	for i, c := range n.children {
		if !c.IsNil() {
			t.destroyNode(c)
			n.children[i] = memory.NilHandle
		}
	}
	n.leaf = true
	log.Debug("quadtree: collapse", "node", target, "nodes", swept, "elements", n.count)
}

func (t *Tree[E, P]) destroyNode(h memory.Handle) {
	n := t.nodes.Get(h)
	t.freeGroups(n.groups)
	for _, c := range n.children {
		if !c.IsNil() {
			t.destroyNode(c)
		}
	}
	t.nodes.Destruct(h)
}

func (t *Tree[E, P]) freeGroups(head memory.Handle) {
	for !head.IsNil() {
		next := t.groups.Run(head)[0].next
		t.groups.Destruct(head)
		head = next
	}
}

// eachInGroups visits count elements starting at group head.
func (t *Tree[E, P]) eachInGroups(head memory.Handle, count uint32, fn func(*entry[E])) {
	per := t.opts.MaxElementsPerNode
	inGroup := int(count) % per
	if inGroup == 0 && count > 0 {
		inGroup = per
	}
	for g := head; !g.IsNil(); {
		run := t.groups.Run(g)
		next := run[0].next
		for i := range inGroup {
			fn(&run[i])
		}
		inGroup = per
		g = next
	}
}
