package systems

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// absf returns the absolute value of a float32.
func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// floorDiv returns floor(x / size) as an int. Exact multiples of size land in
// the upper cell, so a boundary point belongs to exactly one cell.
func floorDiv(x, size float32) int {
	return int(math.Floor(float64(x / size)))
}

// clampSpeed scales v down to maxSpeed. A non-positive maxSpeed means unlimited.
func clampSpeed(v mgl32.Vec2, maxSpeed float32) mgl32.Vec2 {
	if maxSpeed <= 0 {
		return v
	}
	speedSq := v.Dot(v)
	if speedSq <= maxSpeed*maxSpeed {
		return v
	}
	return v.Mul(maxSpeed / float32(math.Sqrt(float64(speedSq))))
}

// rotate rotates v by angle radians.
func rotate(v mgl32.Vec2, angle float32) mgl32.Vec2 {
	s, c := math.Sincos(float64(angle))
	sf, cf := float32(s), float32(c)
	return mgl32.Vec2{v[0]*cf - v[1]*sf, v[0]*sf + v[1]*cf}
}

// normalizeOr returns v normalized, or fallback when v has zero length.
func normalizeOr(v, fallback mgl32.Vec2) mgl32.Vec2 {
	l := v.Len()
	if l == 0 {
		return fallback
	}
	return v.Mul(1 / l)
}
