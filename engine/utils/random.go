package utils

import (
	"math/rand"

	"github.com/tutumagi/soul/engine/math32"
)

// RandomFloat64 rand float64 in [min, max)
func RandomFloat64(r *rand.Rand, min, max float64) float64 {
	if min == max {
		return min
	}
	if r == nil {
		return min + rand.Float64()*(max-min)
	}
	return min + r.Float64()*(max-min)
}

// RandomInt rand int in [min, max]
func RandomInt(r *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	if r == nil {
		return min + rand.Intn(max-min+1)
	}
	return min + r.Intn(max-min+1)
}

// RandomPointAround picks an integer point in the square of half side radius around c.
func RandomPointAround(r *rand.Rand, c math32.Vec2, radius float64) math32.Vec2 {
	return math32.NewVec2(
		float64(RandomInt(r, int(c.X-radius), int(c.X+radius))),
		float64(RandomInt(r, int(c.Y-radius), int(c.Y+radius))),
	)
}
