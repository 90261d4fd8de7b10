// Package components defines the plain data shared by the simulation systems.
package components

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
)

// SlotID indexes a particle slot in the pool.
type SlotID uint32

// EmitterID identifies an emitter. IDs are never reused.
type EmitterID uint32

// NoEmitter marks a particle without an owning emitter.
const NoEmitter EmitterID = 0

// Particle is a copy of one slot's attributes.
type Particle struct {
	Pos    mgl32.Vec2
	Vel    mgl32.Vec2
	Radius float32
	Mass   float32
	Color  mgl32.Vec4
	Alive  bool

	Lifetime    float32 // remaining seconds, used with behavior.Lifetime
	MaxLifetime float32 // lifetime of the current emission
	MaxSpeed    float32 // 0 = unlimited

	Owner    EmitterID
	Behavior behavior.Mask

	// Respawn target, captured at the last emission
	Origin    mgl32.Vec2
	OriginVel mgl32.Vec2
}

// ParticleInit holds the parameters of a spawn request.
type ParticleInit struct {
	Pos      mgl32.Vec2
	Vel      mgl32.Vec2
	Radius   float32
	Mass     float32
	Color    mgl32.Vec4
	Lifetime float32
	MaxSpeed float32
	Owner    EmitterID
	Behavior behavior.Mask
}
