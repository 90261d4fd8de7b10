package sim

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
)

// SimParam is the host-facing parameter block. Hosts write the per-frame
// fields and raise one-shot request flags; TakeCommands turns the flags into
// commands exactly once.
type SimParam struct {
	ParticleCount int
	EmitterCount  int
	ViewportSize  mgl32.Vec2
	GravityForce  mgl32.Vec2
	AttractPoint  mgl32.Vec2
	AttractForce  float32
	MousePos      mgl32.Vec2
	CurrentTime   float32
	DeltaTime     float32
	Seed          int64

	// Add one particle, or AddParticlesCount of them, built from NewParticle.
	ShouldAddParticle bool
	AddParticlesCount int
	NewParticle       components.ParticleInit
	SpawnJitter       float32

	ClearParticles bool

	AddEmitter bool
	NewEmitter components.EmitterSpec

	RemoveEmitter   bool
	RemoveEmitterID components.EmitterID

	SelectEmitter     bool
	SelectedEmitterID components.EmitterID
}

// TakeCommands converts the raised flags into commands and lowers them.
// A clear request comes first so particles added in the same frame survive.
func (p *SimParam) TakeCommands() []Command {
	var cmds []Command
	if p.ClearParticles {
		cmds = append(cmds, ClearParticles{})
		p.ClearParticles = false
	}
	if p.ShouldAddParticle || p.AddParticlesCount > 0 {
		n := max(p.AddParticlesCount, 1)
		for i := 0; i < n; i++ {
			cmds = append(cmds, SpawnParticle{Particle: p.NewParticle, Jitter: p.SpawnJitter})
		}
		p.ShouldAddParticle = false
		p.AddParticlesCount = 0
	}
	if p.AddEmitter {
		cmds = append(cmds, AddEmitter{Spec: p.NewEmitter})
		p.AddEmitter = false
	}
	if p.RemoveEmitter {
		cmds = append(cmds, RemoveEmitter{ID: p.RemoveEmitterID})
		p.RemoveEmitter = false
	}
	if p.SelectEmitter {
		cmds = append(cmds, SelectEmitter{ID: p.SelectedEmitterID})
		p.SelectEmitter = false
	}
	return cmds
}

// FrameInput builds the next frame's input, consuming the request flags.
func (p *SimParam) FrameInput() FrameInput {
	return FrameInput{
		DeltaTime:    p.DeltaTime,
		ViewportSize: p.ViewportSize,
		GravityForce: p.GravityForce,
		AttractPoint: p.AttractPoint,
		AttractForce: p.AttractForce,
		MousePos:     p.MousePos,
		Commands:     p.TakeCommands(),
	}
}

// Observe copies the frame results the host reads back.
func (p *SimParam) Observe(snap *Snapshot) {
	p.ParticleCount = snap.Count
	p.EmitterCount = len(snap.Emitters)
	p.CurrentTime = snap.Time
	p.ViewportSize = snap.Viewport
}
