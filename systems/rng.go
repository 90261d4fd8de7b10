package systems

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// RNG is a seeded random source owned by its caller. The same seed always
// yields the same sequence. It is not safe for concurrent use.
type RNG struct {
	seed int64
	r    *rand.Rand
}

// NewRNG creates a generator seeded with seed.
func NewRNG(seed int64) *RNG {
	g := &RNG{}
	g.Seed(seed)
	return g
}

// Seed resets the generator to the start of seed's sequence.
func (g *RNG) Seed(seed int64) {
	g.seed = seed
	g.r = rand.New(rand.NewSource(seed))
}

// SeedValue returns the seed last passed to Seed.
func (g *RNG) SeedValue() int64 {
	return g.seed
}

// Next returns a float in [0, 1).
func (g *RNG) Next() float32 {
	return g.r.Float32()
}

// NextInRange returns a float in [min, max). Returns min when min == max.
func (g *RNG) NextInRange(min, max float32) float32 {
	if min == max {
		return min
	}
	return min + g.Next()*(max-min)
}

// NextVector2InRange returns a vector whose components are each drawn from [min, max).
func (g *RNG) NextVector2InRange(min, max float32) mgl32.Vec2 {
	return mgl32.Vec2{g.NextInRange(min, max), g.NextInRange(min, max)}
}

// NextUnitVector returns a uniformly distributed direction.
func (g *RNG) NextUnitVector() mgl32.Vec2 {
	angle := float64(g.Next()) * 2 * math.Pi
	s, c := math.Sincos(angle)
	return mgl32.Vec2{float32(c), float32(s)}
}

// Intn returns an int in [0, n). Returns 0 for n <= 0.
func (g *RNG) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return g.r.Intn(n)
}

// Int63 returns a non-negative 63-bit integer, used to derive child seeds.
func (g *RNG) Int63() int64 {
	return g.r.Int63()
}

// StreamSeed derives an independent seed for a sub-stream (e.g. one per emitter).
func StreamSeed(base int64, stream uint64) int64 {
	// splitmix64 finalizer
	z := uint64(base) + (stream+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return int64(z ^ (z >> 31))
}
