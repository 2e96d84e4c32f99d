package quadtree

import "github.com/pavanmanishd/memory/simd"

// nodeBounds is the loose bounds of a node plus the extent and center
// offset shared by its four children.
type nodeBounds struct {
	bounds      simd.Rect2
	childExtent float32
	childOffset float32
}

func newNodeBounds(r simd.Rect2, scale float32) nodeBounds {
	ext := r.Extents.X * scale
	return nodeBounds{
		bounds:      r,
		childExtent: ext,
		childOffset: r.Extents.X - ext,
	}
}

// findContainingChild returns the child whose loose bounds fully contain q.
// Children are indexed x | y<<1, a set bit meaning the positive side.
func (nb nodeBounds) findContainingChild(q simd.Rect2) (int, bool) {
	queryCenter := q.Center.Lanes()
	nodeCenter := nb.bounds.Center.Lanes()
	offset := simd.Splat(nb.childOffset)

	negativeDiff := queryCenter.Sub(nodeCenter.Sub(offset))
	positiveDiff := nodeCenter.Add(offset).Sub(queryCenter)
	diff := negativeDiff.Min(positiveDiff)

	if q.Extents.Lanes().Add(diff).Gt(simd.Splat(nb.childExtent)).Any() {
		return 0, false
	}
	return int(queryCenter.Gt(nodeCenter).Bits() & 0b11), true
}

// findIntersectingChildren returns a 4-bit range: bits 0-1 are set when q
// reaches the positive child on x and y, bits 2-3 when it reaches the
// negative child.
func (nb nodeBounds) findIntersectingChildren(q simd.Rect2) uint32 {
	queryCenter := q.Center.Lanes()
	queryExtents := q.Extents.Lanes()
	queryMax := queryCenter.Add(queryExtents)
	queryMin := queryCenter.Sub(queryExtents)

	nodeCenter := nb.bounds.Center.Lanes()
	offset := simd.Splat(nb.childOffset)
	childExtent := simd.Splat(nb.childExtent)
	negativeMax := nodeCenter.Sub(offset).Add(childExtent)
	positiveMin := nodeCenter.Add(offset).Sub(childExtent)

	pos := queryMax.Gt(positiveMin).Bits() & 0b11
	neg := queryMin.Le(negativeMax).Bits() & 0b11
	return pos | neg<<2
}

// rangeContains reports whether the child is inside a range returned by
// findIntersectingChildren.
func rangeContains(r uint32, child int) bool {
	c := uint32(child)
	want := c | (^c&0b11)<<2
	return r&want == want
}

func (nb nodeBounds) child(i int, scale float32) nodeBounds {
	sign := [2]float32{-1, 1}
	c := nb.bounds.Center
	center := simd.Vector2{
		X: c.X + nb.childOffset*sign[i&1],
		Y: c.Y + nb.childOffset*sign[i>>1&1],
	}
	return newNodeBounds(simd.Square(center, nb.childExtent), scale)
}
