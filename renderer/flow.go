package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/camera"
	"github.com/pthm-cable/swarm/systems"
)

// FlowRenderer draws the turbulence field as a grid of short strokes.
type FlowRenderer struct {
	field   systems.FlowSampler
	spacing float32 // world units between samples
	maxLen  float32 // screen length of the strongest stroke
	color   rl.Color
}

// NewFlowRenderer creates a flow overlay for field.
func NewFlowRenderer(field systems.FlowSampler, spacing float32) *FlowRenderer {
	if spacing <= 0 {
		spacing = 40
	}
	return &FlowRenderer{
		field:   field,
		spacing: spacing,
		maxLen:  spacing * 0.45,
		color:   rl.Color{R: 120, G: 170, B: 220, A: 90},
	}
}

// Draw samples the field over the visible world rectangle.
func (r *FlowRenderer) Draw(cam *camera.Camera, t float32) {
	if r.field == nil {
		return
	}
	lo, hi := cam.VisibleWorldBounds()
	lo = mgl32.Vec2{max(lo[0], 0), max(lo[1], 0)}
	hi = mgl32.Vec2{min(hi[0], cam.World[0]), min(hi[1], cam.World[1])}

	// Strokes are normalized to the strongest sample in view
	var strongest float32
	for y := lo[1] + r.spacing/2; y < hi[1]; y += r.spacing {
		for x := lo[0] + r.spacing/2; x < hi[0]; x += r.spacing {
			strongest = max(strongest, r.field.Sample(mgl32.Vec2{x, y}, t).Len())
		}
	}
	if strongest == 0 {
		return
	}

	scale := r.maxLen / strongest
	for y := lo[1] + r.spacing/2; y < hi[1]; y += r.spacing {
		for x := lo[0] + r.spacing/2; x < hi[0]; x += r.spacing {
			p := mgl32.Vec2{x, y}
			v := r.field.Sample(p, t)
			s := cam.WorldToScreen(p)
			e := s.Add(v.Mul(scale))
			rl.DrawLineV(rl.Vector2{X: s[0], Y: s[1]}, rl.Vector2{X: e[0], Y: e[1]}, r.color)
			rl.DrawCircleV(rl.Vector2{X: e[0], Y: e[1]}, 1.5, r.color)
		}
	}
}
