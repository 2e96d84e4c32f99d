package simd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaneOps(t *testing.T) {
	a := Float32x4{1, -2, 3, -4}
	b := Splat(2)

	assert.Equal(t, Float32x4{3, 0, 5, -2}, a.Add(b))
	assert.Equal(t, Float32x4{-1, -4, 1, -6}, a.Sub(b))
	assert.Equal(t, Float32x4{2, -4, 6, -8}, a.Mul(b))
	assert.Equal(t, Float32x4{1, -2, 2, -4}, a.Min(b))
	assert.Equal(t, Float32x4{2, 2, 3, 2}, a.Max(b))
	assert.Equal(t, Float32x4{1, 2, 3, 4}, a.Abs())
}

func TestMasks(t *testing.T) {
	a := Float32x4{1, 2, 3, 4}
	b := Float32x4{2, 2, 2, 2}

	gt := a.Gt(b)
	assert.Equal(t, Mask4{false, false, true, true}, gt)
	assert.Equal(t, uint32(0b1100), gt.Bits())
	assert.True(t, gt.Any())

	le := a.Le(b)
	assert.Equal(t, uint32(0b0011), le.Bits())
	assert.False(t, Mask4{}.Any())

	assert.Equal(t, Float32x4{2, 2, 3, 4}, Blend(a, b, gt))
}

func TestRectOverlaps(t *testing.T) {
	r := Square(Vector2{0, 0}, 10)

	tests := []struct {
		name  string
		other Rect2
		want  bool
	}{
		{"inside", Square(Vector2{1, 1}, 1), true},
		{"touching edge", Square(Vector2{20, 0}, 10), true},
		{"apart on x", Square(Vector2{21, 0}, 0.5), false},
		{"apart on y", Square(Vector2{0, -30}, 5), false},
		{"covering", Square(Vector2{0, 0}, 100), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(r))
		})
	}
}

func TestRectContains(t *testing.T) {
	r := FromMinMax(Vector2{-10, -10}, Vector2{10, 10})
	assert.Equal(t, Vector2{-10, -10}, r.Min())
	assert.Equal(t, Vector2{10, 10}, r.Max())

	assert.True(t, r.Contains(Square(Vector2{5, 5}, 5)))
	assert.False(t, r.Contains(Square(Vector2{6, 5}, 5)))
	assert.True(t, r.Contains(r))
}

func TestHostFeatures(t *testing.T) {
	f := HostFeatures()
	assert.Contains(t, f.String(), "vector=")
}

func BenchmarkOverlaps(b *testing.B) {
	r := Square(Vector2{0, 0}, 10)
	o := Square(Vector2{5, 5}, 10)
	for i := 0; i < b.N; i++ {
		_ = r.Overlaps(o)
	}
}
