package components

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
	"github.com/pthm-cable/swarm/config"
)

// EmitterPhase is the lifecycle state of an emitter.
type EmitterPhase uint8

const (
	EmitterInactive EmitterPhase = iota // Created, spawns nothing until the next update
	EmitterActive                       // Spawning
	EmitterRemoving                     // Held only inside Remove while particles are released
)

func (p EmitterPhase) String() string {
	switch p {
	case EmitterInactive:
		return "inactive"
	case EmitterActive:
		return "active"
	case EmitterRemoving:
		return "removing"
	}
	return fmt.Sprintf("phase(%d)", p)
}

// EmitterSpec is the immutable description of an emitter.
// Behavior flags are fixed after creation.
type EmitterSpec struct {
	Position  mgl32.Vec2
	Direction mgl32.Vec2 // normalized on creation
	Speed     float32
	MaxSpeed  float32 // 0 = unlimited
	Spread    float32 // full cone angle, radians
	Rate      float32 // particles per second (with behavior.CanAddParticles)
	Burst     int     // particles spawned on activation
	Budget    int     // maximum owned particles

	Radius   float32
	Mass     float32
	Color    mgl32.Vec4
	Lifetime float32
	Behavior behavior.Mask
}

// EmitterState holds the mutable per-emitter bookkeeping.
type EmitterState struct {
	ID       EmitterID
	Phase    EmitterPhase
	SpawnAcc float32 // fractional spawns carried between frames
	Spawned  int     // lifetime total
	Dropped  int     // requests dropped at capacity, lifetime total
}

// EmitterView is a read-only description of an emitter for renderers and UIs.
type EmitterView struct {
	ID        EmitterID
	Position  mgl32.Vec2
	Direction mgl32.Vec2
	Color     mgl32.Vec4
	Phase     EmitterPhase
	Behavior  behavior.Mask
	Owned     int
	Budget    int
	Selected  bool
}

// EmitterSpecFromConfig converts a config entry into a spec.
func EmitterSpecFromConfig(ec *config.EmitterConfig) (EmitterSpec, error) {
	mask, err := behavior.Parse(ec.Behaviors)
	if err != nil {
		return EmitterSpec{}, fmt.Errorf("emitter behaviors: %w", err)
	}
	return EmitterSpec{
		Position:  mgl32.Vec2{float32(ec.Position[0]), float32(ec.Position[1])},
		Direction: mgl32.Vec2{float32(ec.Direction[0]), float32(ec.Direction[1])},
		Speed:     float32(ec.Speed),
		MaxSpeed:  float32(ec.MaxSpeed),
		Spread:    float32(ec.Spread),
		Rate:      float32(ec.Rate),
		Burst:     ec.Burst,
		Budget:    ec.Budget,
		Radius:    float32(ec.Radius),
		Mass:      float32(ec.Mass),
		Color:     Color(ec.Color),
		Lifetime:  float32(ec.Lifetime),
		Behavior:  mask,
	}, nil
}

// Color converts a config RGBA array.
func Color(c [4]float64) mgl32.Vec4 {
	return mgl32.Vec4{float32(c[0]), float32(c[1]), float32(c[2]), float32(c[3])}
}
