package quadtree

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pavanmanishd/memory/simd"
)

const testScale = 0.5 * (1 + 1.0/16)

func rootBounds() nodeBounds {
	return newNodeBounds(simd.Square(simd.Vector2{}, 100), testScale)
}

func TestNodeBoundsChildGeometry(t *testing.T) {
	nb := rootBounds()
	assert.InDelta(t, 53.125, nb.childExtent, 1e-4)
	assert.InDelta(t, 46.875, nb.childOffset, 1e-4)

	c := nb.child(3, testScale)
	assert.InDelta(t, 46.875, c.bounds.Center.X, 1e-4)
	assert.InDelta(t, 46.875, c.bounds.Center.Y, 1e-4)
	assert.InDelta(t, 53.125, c.bounds.Extents.X, 1e-4)

	c = nb.child(1, testScale)
	assert.InDelta(t, 46.875, c.bounds.Center.X, 1e-4)
	assert.InDelta(t, -46.875, c.bounds.Center.Y, 1e-4)
}

func TestFindContainingChild(t *testing.T) {
	nb := rootBounds()

	tests := []struct {
		name   string
		rect   simd.Rect2
		child  int
		inside bool
	}{
		{"positive quadrant", simd.Square(simd.Vector2{X: 1, Y: 1}, 0), 3, true},
		{"negative quadrant", simd.Square(simd.Vector2{X: -1, Y: -1}, 0), 0, true},
		{"positive x negative y", simd.Square(simd.Vector2{X: 30, Y: -30}, 5), 1, true},
		{"negative x positive y", simd.Square(simd.Vector2{X: -30, Y: 30}, 5), 2, true},
		{"far corner", simd.Square(simd.Vector2{X: 50, Y: 50}, 0), 3, true},
		{"loose overlap past center", simd.Square(simd.Vector2{X: 3, Y: 3}, 5), 3, true},
		{"straddles center", simd.Square(simd.Vector2{}, 10), 0, false},
		{"too wide for a child", simd.Square(simd.Vector2{X: 40, Y: 40}, 60), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child, ok := nb.findContainingChild(tt.rect)
			assert.Equal(t, tt.inside, ok)
			if tt.inside {
				assert.Equal(t, tt.child, child)
			}
		})
	}
}

func TestFindIntersectingChildren(t *testing.T) {
	nb := rootBounds()

	tests := []struct {
		name string
		rect simd.Rect2
		want []int
	}{
		{"center box hits all", simd.Square(simd.Vector2{}, 10), []int{0, 1, 2, 3}},
		{"positive corner", simd.Square(simd.Vector2{X: 80, Y: 80}, 5), []int{3}},
		{"negative corner", simd.Square(simd.Vector2{X: -80, Y: -80}, 5), []int{0}},
		{"right edge", simd.Square(simd.Vector2{X: 80, Y: 0}, 2), []int{1, 3}},
		{"bottom edge", simd.Square(simd.Vector2{X: 0, Y: -80}, 2), []int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := nb.findIntersectingChildren(tt.rect)
			var got []int
			for i := range 4 {
				if rangeContains(r, i) {
					got = append(got, i)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
