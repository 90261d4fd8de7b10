// Package renderer draws simulation snapshots with raylib.
package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/camera"
	"github.com/pthm-cable/swarm/components"
	"github.com/pthm-cable/swarm/sim"
)

// Particles below this on-screen radius are drawn as single pixels.
const minCircleRadius = 1.0

// Color converts a [0, 1] RGBA vector to a raylib color.
func Color(c mgl32.Vec4) rl.Color {
	return rl.Color{
		R: unit8(c[0]),
		G: unit8(c[1]),
		B: unit8(c[2]),
		A: unit8(c[3]),
	}
}

func unit8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// ParticleRenderer draws particles and emitters from a snapshot.
type ParticleRenderer struct {
	ShowEmitters bool
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{ShowEmitters: true}
}

// Draw renders every visible particle, then the emitter markers.
// It returns the number of particles drawn.
func (r *ParticleRenderer) Draw(snap *sim.Snapshot, cam *camera.Camera) int {
	drawn := 0
	for i := 0; i < snap.Count; i++ {
		p := snap.Positions[i]
		radius := snap.Radii[i]
		if !cam.IsVisible(p, radius) {
			continue
		}
		s := cam.WorldToScreen(p)
		sr := radius * cam.Zoom
		color := Color(snap.Colors[i])
		if sr < minCircleRadius {
			rl.DrawPixelV(rl.Vector2{X: s[0], Y: s[1]}, color)
		} else {
			rl.DrawCircleV(rl.Vector2{X: s[0], Y: s[1]}, sr, color)
		}
		drawn++
	}

	if r.ShowEmitters {
		for i := range snap.Emitters {
			drawEmitter(&snap.Emitters[i], cam)
		}
	}
	return drawn
}

// drawEmitter draws a ring at the emitter position with its direction and
// a fill arc showing how much of its budget it owns.
func drawEmitter(e *components.EmitterView, cam *camera.Camera) {
	s := cam.WorldToScreen(e.Position)
	center := rl.Vector2{X: s[0], Y: s[1]}
	color := Color(e.Color)

	ring := float32(10)
	if e.Selected {
		rl.DrawCircleLinesV(center, ring+4, rl.Yellow)
	}
	rl.DrawCircleLinesV(center, ring, color)

	tip := s.Add(e.Direction.Mul(ring * 2.5))
	rl.DrawLineV(center, rl.Vector2{X: tip[0], Y: tip[1]}, color)

	if e.Budget > 0 {
		fill := float32(e.Owned) / float32(e.Budget)
		rl.DrawCircleSector(center, ring-3, -90, -90+360*fill, 24, rl.Fade(color, 0.6))
	}
}
