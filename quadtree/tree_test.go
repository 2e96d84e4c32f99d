package quadtree

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanmanishd/memory"
	"github.com/pavanmanishd/memory/simd"
)

type item struct {
	pos simd.Vector2
	ext float32
	id  ElementID
}

type itemPolicy struct{}

func (itemPolicy) Bounds(e *item, _ any) simd.Rect2 { return simd.Square(e.pos, e.ext) }

func (itemPolicy) SetElementID(e *item, id ElementID, _ any) { e.id = id }

type itemTree = Tree[*item, itemPolicy]

func newTree(t testing.TB, opts Options) *itemTree {
	t.Helper()
	tree, err := New[*item, itemPolicy](simd.Vector2{}, 100, opts)
	require.NoError(t, err)
	t.Cleanup(tree.Release)
	return tree
}

func point(x, y float32) *item { return &item{pos: simd.Vector2{X: x, Y: y}} }

func fullExtent() simd.Rect2 { return simd.Square(simd.Vector2{}, 1000) }

func collect(seq func(func(*item) bool)) []*item {
	var out []*item
	for e := range seq {
		out = append(out, e)
	}
	return out
}

func randomItems(f *gofakeit.Faker, n int) []*item {
	items := make([]*item, n)
	for i := range items {
		items[i] = &item{
			pos: simd.Vector2{X: f.Float32Range(-95, 95), Y: f.Float32Range(-95, 95)},
			ext: f.Float32Range(0, 4),
		}
	}
	return items
}

// checkCounts verifies that every node's total equals its own count plus
// the totals of its children, and that leaves have no children.
func checkCounts(t *testing.T, tree *itemTree) {
	t.Helper()
	var visit func(h memory.Handle) int
	visit = func(h memory.Handle) int {
		sum := tree.NodeElementCount(h)
		for i := range 4 {
			c := tree.Child(h, i)
			if c.IsNil() {
				continue
			}
			require.False(t, tree.IsLeaf(h), "leaf node %v has child %d", h, i)
			sum += visit(c)
		}
		require.Equal(t, tree.TotalElements(h), sum, "node %v", h)
		return sum
	}
	visit(tree.Root())
}

func TestNewValidatesOptions(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"zero padding", func(o *Options) { o.LoosePadding = 0 }},
		{"zero max", func(o *Options) { o.MaxElementsPerNode = 0 }},
		{"min above max", func(o *Options) { o.MinElementsPerNode = o.MaxElementsPerNode + 1 }},
		{"negative depth", func(o *Options) { o.MaxDepth = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)
			_, err := New[*item, itemPolicy](simd.Vector2{}, 100, opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestSplitExample(t *testing.T) {
	tree := newTree(t, Options{
		LoosePadding:       16,
		MinElementsPerNode: 1,
		MaxElementsPerNode: 4,
		MaxDepth:           4,
	})

	items := []*item{point(1, 1), point(2, 2), point(-1, -1), point(-2, -2), point(50, 50)}
	for i, it := range items {
		tree.AddElement(it)
		if i < 4 {
			assert.True(t, tree.IsLeaf(tree.Root()), "root split early at insert %d", i+1)
		}
	}
	assert.False(t, tree.IsLeaf(tree.Root()))
	assert.Equal(t, 5, tree.Len())

	box := simd.FromMinMax(simd.Vector2{X: -10, Y: -10}, simd.Vector2{X: 10, Y: 10})
	assert.ElementsMatch(t, items[:4], collect(tree.Query(box)))
	checkCounts(t, tree)
}

func TestFullExtentQueryReturnsEveryElementOnce(t *testing.T) {
	f := gofakeit.New(42)
	opts := DefaultOptions()
	opts.MaxElementsPerNode = 8
	opts.MinElementsPerNode = 4
	tree := newTree(t, opts)

	items := randomItems(f, 2000)
	for _, it := range items {
		tree.AddElement(it)
	}
	require.Equal(t, len(items), tree.Len())

	seen := make(map[*item]int, len(items))
	for e := range tree.Query(fullExtent()) {
		seen[e]++
	}
	assert.Len(t, seen, len(items))
	for e, n := range seen {
		assert.Equal(t, 1, n, "element at %v returned %d times", e.pos, n)
	}
	checkCounts(t, tree)
}

func TestQueryMatchesBruteForce(t *testing.T) {
	f := gofakeit.New(7)
	tree := newTree(t, DefaultOptions())
	items := randomItems(f, 500)
	for _, it := range items {
		tree.AddElement(it)
	}

	for range 50 {
		q := simd.Square(simd.Vector2{X: f.Float32Range(-100, 100), Y: f.Float32Range(-100, 100)}, f.Float32Range(1, 30))
		var want []*item
		for _, it := range items {
			if simd.Square(it.pos, it.ext).Overlaps(q) {
				want = append(want, it)
			}
		}
		assert.ElementsMatch(t, want, collect(tree.Query(q)))
	}
}

func TestRemoveDownToEmptyLeafRoot(t *testing.T) {
	f := gofakeit.New(3)
	opts := DefaultOptions()
	opts.MaxElementsPerNode = 4
	opts.MinElementsPerNode = 2
	tree := newTree(t, opts)

	items := randomItems(f, 300)
	for _, it := range items {
		tree.AddElement(it)
	}
	require.False(t, tree.IsLeaf(tree.Root()))

	f.ShuffleAnySlice(items)
	for i, it := range items[:len(items)-1] {
		require.NoError(t, tree.RemoveElement(it.id), "removal %d", i)
		if i%50 == 0 {
			checkCounts(t, tree)
		}
	}

	last := items[len(items)-1]
	assert.Equal(t, []*item{last}, collect(tree.Query(fullExtent())))

	require.NoError(t, tree.RemoveElement(last.id))
	assert.Equal(t, 0, tree.Len())
	assert.Equal(t, 0, tree.NodeElementCount(tree.Root()))
	assert.True(t, tree.IsLeaf(tree.Root()))
	assert.Empty(t, collect(tree.Query(fullExtent())))
}

func TestStraddlingElementsStayAtNode(t *testing.T) {
	opts := DefaultOptions()
	tree := newTree(t, opts)

	// Centered on the root center and too large for any child.
	var items []*item
	for range opts.MaxElementsPerNode + 1 {
		it := &item{ext: 10}
		items = append(items, it)
		tree.AddElement(it)
	}

	assert.False(t, tree.IsLeaf(tree.Root()))
	assert.Equal(t, len(items), tree.NodeElementCount(tree.Root()))
	for i := range 4 {
		assert.True(t, tree.Child(tree.Root(), i).IsNil())
	}
	assert.ElementsMatch(t, items, collect(tree.Query(fullExtent())))
}

func TestIdenticalPointsStopAtDepthFloor(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxDepth = 5
	tree := newTree(t, opts)

	var items []*item
	for range 10 * opts.MaxElementsPerNode {
		it := point(12.5, -33)
		items = append(items, it)
		tree.AddElement(it)
	}

	depth := 0
	for h := tree.Root(); !tree.IsLeaf(h); depth++ {
		next := memory.NilHandle
		for i := range 4 {
			if c := tree.Child(h, i); !c.IsNil() {
				next = c
			}
		}
		require.False(t, next.IsNil())
		h = next
	}
	assert.Equal(t, opts.MaxDepth, depth)
	assert.ElementsMatch(t, items, collect(tree.Query(fullExtent())))
	checkCounts(t, tree)
}

func TestRemoveUpdatesMovedElementID(t *testing.T) {
	tree := newTree(t, DefaultOptions())
	a, b, c := point(1, 1), point(2, 2), point(3, 3)
	for _, it := range []*item{a, b, c} {
		tree.AddElement(it)
	}
	require.Equal(t, uint32(2), c.id.index)

	require.NoError(t, tree.RemoveElement(a.id))
	assert.Equal(t, uint32(0), c.id.index)

	require.NoError(t, tree.RemoveElement(c.id))
	assert.Equal(t, []*item{b}, collect(tree.Query(fullExtent())))
}

func TestStaleIDIsRejected(t *testing.T) {
	tree := newTree(t, DefaultOptions())
	a, b, c := point(1, 1), point(2, 2), point(3, 3)
	for _, it := range []*item{a, b, c} {
		tree.AddElement(it)
	}

	removed := a.id
	require.NoError(t, tree.RemoveElement(removed))
	assert.ErrorIs(t, tree.RemoveElement(removed), ErrStaleElementID)
	assert.ErrorIs(t, tree.RemoveElement(ElementID{}), ErrStaleElementID)
	assert.Equal(t, 2, tree.Len())
}

func TestCollapseUsesSharedFrame(t *testing.T) {
	frame := memory.NewFrameAllocator(memory.FrameOptions{BlockSize: 1024, Debug: true})
	defer frame.Release()

	opts := DefaultOptions()
	opts.MaxElementsPerNode = 4
	opts.MinElementsPerNode = 3
	opts.Frame = frame
	tree := newTree(t, opts)

	items := randomItems(gofakeit.New(11), 64)
	for _, it := range items {
		tree.AddElement(it)
	}
	for _, it := range items[:62] {
		require.NoError(t, tree.RemoveElement(it.id))
	}

	assert.True(t, tree.IsLeaf(tree.Root()))
	assert.Equal(t, 2, tree.NodeElementCount(tree.Root()))
	assert.Zero(t, frame.AllocatedBytes())
	assert.NotPanics(t, frame.Clear)
}

func TestIterators(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxElementsPerNode = 4
	opts.MinElementsPerNode = 1
	tree := newTree(t, opts)
	for _, it := range randomItems(gofakeit.New(5), 100) {
		tree.AddElement(it)
	}

	nodes, elems := 0, 0
	it := tree.NewNodeIterator()
	defer it.Close()
	for it.MoveNext() {
		nodes++
		cur := it.Current()
		ei := tree.NewElementIterator(cur.Handle)
		for ei.MoveNext() {
			elems++
			e := ei.Element()
			assert.Equal(t, e.id, ei.ID())
			assert.True(t, cur.Bounds.Contains(ei.Bounds()), "element %v outside node bounds", e.pos)
		}
		for i := range 4 {
			it.PushChild(i)
		}
	}
	assert.Greater(t, nodes, 1)
	assert.Equal(t, tree.Len(), elems)
}

func TestIteratorsShareScratch(t *testing.T) {
	tree := newTree(t, DefaultOptions())
	for _, it := range randomItems(gofakeit.New(11), 200) {
		tree.AddElement(it)
	}
	stackBytes := iterStackBytes(tree.opts.MaxDepth)

	for range 3 {
		require.Len(t, collect(tree.Query(fullExtent())), tree.Len())
		assert.Zero(t, tree.openIters)
	}

	n := 0
	for range tree.Query(fullExtent()) {
		n++
		if n == 1 {
			assert.Equal(t, stackBytes, tree.scratch.SizeInUse(), "scratch is reset between queries")
			inner := collect(tree.Query(simd.Square(simd.Vector2{}, 50)))
			assert.NotEmpty(t, inner)
			assert.Equal(t, 1, tree.openIters)
		}
	}
	assert.Equal(t, tree.Len(), n)
	assert.Zero(t, tree.openIters)

	// Iterators past the scratch capacity get their own stack.
	iters := make([]*NodeIterator[*item, itemPolicy], scratchIterators+1)
	for i := range iters {
		iters[i] = tree.NewNodeIterator()
		assert.Equal(t, i < scratchIterators, iters[i].shared, "iterator %d", i)
	}
	for _, it := range iters {
		nodes := 0
		for it.MoveNext() {
			nodes++
			for c := range 4 {
				it.PushChild(c)
			}
		}
		assert.Greater(t, nodes, 1)
		it.Close()
	}
	assert.Zero(t, tree.openIters)
	assert.Equal(t, scratchIterators*stackBytes, tree.scratch.Capacity())
}

func TestQueryStopsEarly(t *testing.T) {
	tree := newTree(t, DefaultOptions())
	for _, it := range randomItems(gofakeit.New(9), 50) {
		tree.AddElement(it)
	}

	n := 0
	for range tree.Query(fullExtent()) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func BenchmarkAddRemove(b *testing.B) {
	items := randomItems(gofakeit.New(1), 1024)
	tree := newTree(b, DefaultOptions())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, it := range items {
			tree.AddElement(it)
		}
		for _, it := range items {
			if err := tree.RemoveElement(it.id); err != nil {
				b.Fatal(err)
			}
		}
	}
}

func BenchmarkQuery(b *testing.B) {
	tree := newTree(b, DefaultOptions())
	for _, it := range randomItems(gofakeit.New(2), 4096) {
		tree.AddElement(it)
	}
	q := simd.Square(simd.Vector2{X: 10, Y: -20}, 15)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for range tree.Query(q) {
		}
	}
}
