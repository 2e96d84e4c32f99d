package simd

// Vector2 is a 2D point or size.
type Vector2 struct {
	X, Y float32
}

// Lanes loads v into lanes 0 and 1; lanes 2 and 3 are zero.
func (v Vector2) Lanes() Float32x4 {
	return Float32x4{v.X, v.Y, 0, 0}
}

// Rect2 is an axis-aligned rectangle stored as a center and half extents.
type Rect2 struct {
	Center  Vector2
	Extents Vector2
}

// Square returns the square centered on center with half extent extent.
func Square(center Vector2, extent float32) Rect2 {
	return Rect2{Center: center, Extents: Vector2{extent, extent}}
}

// FromMinMax returns the rectangle spanning lo to hi.
func FromMinMax(lo, hi Vector2) Rect2 {
	return Rect2{
		Center:  Vector2{(lo.X + hi.X) * 0.5, (lo.Y + hi.Y) * 0.5},
		Extents: Vector2{(hi.X - lo.X) * 0.5, (hi.Y - lo.Y) * 0.5},
	}
}

// Min returns the lower corner.
func (r Rect2) Min() Vector2 {
	return Vector2{r.Center.X - r.Extents.X, r.Center.Y - r.Extents.Y}
}

// Max returns the upper corner.
func (r Rect2) Max() Vector2 {
	return Vector2{r.Center.X + r.Extents.X, r.Center.Y + r.Extents.Y}
}

// Overlaps reports whether r and o intersect. Touching edges overlap.
func (r Rect2) Overlaps(o Rect2) bool {
	diff := r.Center.Lanes().Sub(o.Center.Lanes()).Abs()
	ext := r.Extents.Lanes().Add(o.Extents.Lanes())
	return !diff.Gt(ext).Any()
}

// Contains reports whether o lies entirely inside r.
func (r Rect2) Contains(o Rect2) bool {
	diff := r.Center.Lanes().Sub(o.Center.Lanes()).Abs()
	return !diff.Add(o.Extents.Lanes()).Gt(r.Extents.Lanes()).Any()
}
