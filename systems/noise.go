package systems

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"
)

// FlowSampler provides flow vectors at world positions.
type FlowSampler interface {
	Sample(pos mgl32.Vec2, t float32) mgl32.Vec2
}

// TurbulenceField is a time-varying simplex flow field. The noise value at
// (x*scale, y*scale, t*timeSpeed) picks a direction; the result has length
// strength. Safe for concurrent Sample calls.
type TurbulenceField struct {
	noise     opensimplex.Noise32
	strength  float32
	scale     float32
	timeSpeed float32
}

// NewTurbulenceField creates a flow field from a seed.
func NewTurbulenceField(seed int64, strength, scale, timeSpeed float32) *TurbulenceField {
	return &TurbulenceField{
		noise:     opensimplex.New32(seed),
		strength:  strength,
		scale:     scale,
		timeSpeed: timeSpeed,
	}
}

// Strength returns the field magnitude.
func (f *TurbulenceField) Strength() float32 { return f.strength }

// Sample returns the flow acceleration at pos and time t.
func (f *TurbulenceField) Sample(pos mgl32.Vec2, t float32) mgl32.Vec2 {
	if f == nil || f.strength == 0 {
		return mgl32.Vec2{}
	}
	n := f.noise.Eval3(pos[0]*f.scale, pos[1]*f.scale, t*f.timeSpeed)
	// Eval3 is roughly [-1, 1]; map to a full turn
	angle := float64(n) * 2 * math.Pi
	s, c := math.Sincos(angle)
	return mgl32.Vec2{float32(c) * f.strength, float32(s) * f.strength}
}
