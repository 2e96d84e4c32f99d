// Package simd provides the 4-lane float32 arithmetic used for bounds tests.
//
// Lanes are plain arrays so the compiler can keep them in registers; every
// operation works on all four lanes, matching the semantics of a 128-bit
// vector unit.
package simd

// Float32x4 holds four float32 lanes.
type Float32x4 [4]float32

// Mask4 holds one comparison result per lane.
type Mask4 [4]bool

// Splat returns v in every lane.
func Splat(v float32) Float32x4 {
	return Float32x4{v, v, v, v}
}

func (a Float32x4) Add(b Float32x4) Float32x4 {
	return Float32x4{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func (a Float32x4) Sub(b Float32x4) Float32x4 {
	return Float32x4{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func (a Float32x4) Mul(b Float32x4) Float32x4 {
	return Float32x4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

func (a Float32x4) Min(b Float32x4) Float32x4 {
	return Float32x4{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2]), min(a[3], b[3])}
}

func (a Float32x4) Max(b Float32x4) Float32x4 {
	return Float32x4{max(a[0], b[0]), max(a[1], b[1]), max(a[2], b[2]), max(a[3], b[3])}
}

func (a Float32x4) Abs() Float32x4 {
	return Float32x4{abs(a[0]), abs(a[1]), abs(a[2]), abs(a[3])}
}

// Gt compares a > b lane by lane.
func (a Float32x4) Gt(b Float32x4) Mask4 {
	return Mask4{a[0] > b[0], a[1] > b[1], a[2] > b[2], a[3] > b[3]}
}

// Le compares a <= b lane by lane.
func (a Float32x4) Le(b Float32x4) Mask4 {
	return Mask4{a[0] <= b[0], a[1] <= b[1], a[2] <= b[2], a[3] <= b[3]}
}

// Any reports whether any lane is set.
func (m Mask4) Any() bool {
	return m[0] || m[1] || m[2] || m[3]
}

// Bits packs the mask into the low four bits, lane 0 first.
func (m Mask4) Bits() uint32 {
	var out uint32
	for i, set := range m {
		if set {
			out |= 1 << i
		}
	}
	return out
}

// Blend picks a where the mask is set and b elsewhere.
func Blend(a, b Float32x4, m Mask4) Float32x4 {
	var out Float32x4
	for i := range out {
		if m[i] {
			out[i] = a[i]
		} else {
			out[i] = b[i]
		}
	}
	return out
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
