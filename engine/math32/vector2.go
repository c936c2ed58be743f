package math32

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Vec2 is a point or direction in world space.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ZeroVec2 zero vector
var ZeroVec2 = Vec2{}

// NewVec2 ctor
func NewVec2(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", v.X, v.Y)
}

// Add v + o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub v - o
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Scale v * s
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Neg -v
func (v Vec2) Neg() Vec2 {
	return Vec2{-v.X, -v.Y}
}

// Len euclidean length
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Normalize returns the unit vector of v, the zero vector stays zero.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return ZeroVec2
	}
	return Vec2{v.X / l, v.Y / l}
}

// Distance between two points.
func Distance(a, b Vec2) float64 {
	return b.Sub(a).Len()
}

// DistanceDirection returns the distance from a to b and the unit direction a -> b.
func DistanceDirection(a, b Vec2) (float64, Vec2) {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 {
		return 0, ZeroVec2
	}
	return l, Vec2{d.X / l, d.Y / l}
}

// Clamp v into [lo, hi]
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
