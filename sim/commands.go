package sim

import (
	"fmt"

	"github.com/pthm-cable/swarm/components"
)

// Command is a request applied at the start of a frame.
type Command interface {
	apply(s *Simulation) error
}

// SpawnParticle adds one unowned particle. A positive Jitter offsets the
// position randomly within that radius.
type SpawnParticle struct {
	Particle components.ParticleInit
	Jitter   float32
}

func (c SpawnParticle) apply(s *Simulation) error {
	init := c.Particle
	init.Owner = components.NoEmitter
	if c.Jitter > 0 {
		offset := s.rng.NextUnitVector().Mul(s.rng.NextInRange(0, c.Jitter))
		init.Pos = init.Pos.Add(offset)
	}
	if _, err := s.pool.Spawn(init); err != nil {
		return fmt.Errorf("spawn particle: %w", err)
	}
	s.stats.Spawned++
	return nil
}

// ClearParticles kills every particle. Emitters are kept.
type ClearParticles struct{}

func (ClearParticles) apply(s *Simulation) error {
	s.pool.Clear()
	return nil
}

// AddEmitter creates an emitter. It becomes active on the same frame.
type AddEmitter struct {
	Spec components.EmitterSpec
}

func (c AddEmitter) apply(s *Simulation) error {
	id, err := s.emitters.Add(c.Spec)
	if err != nil {
		return fmt.Errorf("add emitter: %w", err)
	}
	s.lastEmitter = id
	return nil
}

// RemoveEmitter deletes an emitter; its particles are orphaned or killed
// according to the configured policy.
type RemoveEmitter struct {
	ID components.EmitterID
}

func (c RemoveEmitter) apply(s *Simulation) error {
	return s.emitters.Remove(c.ID, s.pool)
}

// SelectEmitter changes the selected emitter. NoEmitter clears it.
type SelectEmitter struct {
	ID components.EmitterID
}

func (c SelectEmitter) apply(s *Simulation) error {
	return s.emitters.Select(c.ID)
}
