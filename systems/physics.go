package systems

import (
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
	"github.com/pthm-cable/swarm/components"
)

// FrameForces holds the per-frame inputs of the integrator.
type FrameForces struct {
	DT           float32
	Gravity      mgl32.Vec2
	AttractPoint mgl32.Vec2
	AttractForce float32
	MousePos     mgl32.Vec2
	Viewport     mgl32.Vec2
	Time         float32
}

// IntegratorConfig holds the static integrator tuning.
type IntegratorConfig struct {
	AttractSoftening float32
	AttractAll       bool
	Repel            bool
	HomingStrength   float32
	Drag             float32
	Restitution      float32
	// BorderCollisions bounds every particle, regardless of its mask.
	BorderCollisions bool
}

// StepCounts reports lifecycle events of one integration step.
type StepCounts struct {
	Expired   int
	Escaped   int
	Respawned int
}

func (c *StepCounts) add(o StepCounts) {
	c.Expired += o.Expired
	c.Escaped += o.Escaped
	c.Respawned += o.Respawned
}

// Integrator advances live particles by one explicit Euler step.
type Integrator struct {
	cfg        IntegratorConfig
	turbulence FlowSampler
	perWorker  []StepCounts
	reemitBuf  [][]components.SlotID
	reemit     []components.SlotID
}

// NewIntegrator creates an integrator. turbulence may be nil.
func NewIntegrator(cfg IntegratorConfig, turbulence FlowSampler) *Integrator {
	if cfg.AttractSoftening <= 0 {
		cfg.AttractSoftening = 1
	}
	return &Integrator{cfg: cfg, turbulence: turbulence}
}

// Config returns the integrator tuning.
func (in *Integrator) Config() IntegratorConfig { return in.cfg }

// Step integrates every live particle. Each particle is touched by exactly
// one worker. Deaths only clear the alive flag; the pool frees them at Commit.
// Respawning particles return to their origin; those with a live owner are
// also listed by Reemits for their emitter to re-emit.
func (in *Integrator) Step(pool *Pool, f FrameForces, run ParallelFor) StepCounts {
	workers := run.Workers()
	if cap(in.perWorker) < workers {
		in.perWorker = make([]StepCounts, workers)
	}
	in.perWorker = in.perWorker[:workers]
	for i := range in.perWorker {
		in.perWorker[i] = StepCounts{}
	}
	for len(in.reemitBuf) < workers {
		in.reemitBuf = append(in.reemitBuf, nil)
	}
	for i := range in.reemitBuf {
		in.reemitBuf[i] = in.reemitBuf[i][:0]
	}

	live := pool.Live()
	run.For(len(live), func(worker, start, end int) {
		var counts StepCounts
		buf := in.reemitBuf[worker]
		for _, slot := range live[start:end] {
			if in.stepParticle(pool, slot, f, &counts) && pool.owner[slot] != components.NoEmitter {
				buf = append(buf, slot)
			}
		}
		in.reemitBuf[worker] = buf
		in.perWorker[worker].add(counts)
	})

	var total StepCounts
	for _, c := range in.perWorker {
		total.add(c)
	}
	in.reemit = in.reemit[:0]
	for _, buf := range in.reemitBuf {
		in.reemit = append(in.reemit, buf...)
	}
	slices.Sort(in.reemit)
	return total
}

// Reemits returns the owned particles respawned by the last Step, in slot
// order. Valid until the next Step.
func (in *Integrator) Reemits() []components.SlotID { return in.reemit }

// stepParticle advances one particle and reports whether it respawned.
func (in *Integrator) stepParticle(pool *Pool, slot components.SlotID, f FrameForces, counts *StepCounts) bool {
	if !pool.alive[slot] {
		return false
	}
	mask := pool.mask[slot]

	if mask.Has(behavior.Lifetime) {
		pool.lifetime[slot] -= f.DT
		if pool.lifetime[slot] <= 0 {
			counts.Expired++
			if mask.Has(behavior.Respawns) {
				respawn(pool, slot)
				counts.Respawned++
				return true
			}
			pool.alive[slot] = false
			return false
		}
	}

	p := pool.pos[slot]
	v := pool.vel[slot]

	a := f.Gravity
	if f.AttractForce != 0 && (in.cfg.AttractAll || mask.Has(behavior.Attracted)) {
		d := f.AttractPoint.Sub(p)
		if dist := d.Len(); dist > 0 {
			strength := f.AttractForce / max(dist, in.cfg.AttractSoftening) / pool.mass[slot]
			if in.cfg.Repel {
				strength = -strength
			}
			a = a.Add(d.Mul(strength / dist))
		}
	}
	if in.cfg.HomingStrength != 0 && mask.Has(behavior.Homing) {
		d := f.MousePos.Sub(p)
		if dist := d.Len(); dist > 0 {
			a = a.Add(d.Mul(in.cfg.HomingStrength / dist))
		}
	}
	if in.turbulence != nil && mask.Has(behavior.Turbulence) {
		a = a.Add(in.turbulence.Sample(p, f.Time))
	}

	v = v.Add(a.Mul(f.DT))
	v = clampSpeed(v, pool.maxSpeed[slot])
	if in.cfg.Drag > 0 {
		v = v.Mul(1 / (1 + in.cfg.Drag*f.DT))
	}
	p = p.Add(v.Mul(f.DT))

	r := pool.radius[slot]
	if in.cfg.BorderCollisions || mask.Has(behavior.BorderBound) {
		p, v = in.bounce(p, v, r, f.Viewport)
	} else if p[0]+r < 0 || p[0]-r > f.Viewport[0] || p[1]+r < 0 || p[1]-r > f.Viewport[1] {
		counts.Escaped++
		if mask.Has(behavior.Respawns) {
			respawn(pool, slot)
			counts.Respawned++
			return true
		}
		pool.alive[slot] = false
		return false
	}

	pool.pos[slot] = p
	pool.vel[slot] = v
	return false
}

// bounce keeps a particle of radius r inside the viewport.
func (in *Integrator) bounce(p, v mgl32.Vec2, r float32, size mgl32.Vec2) (mgl32.Vec2, mgl32.Vec2) {
	return Contain(p, v, r, size, in.cfg.Restitution)
}

// Contain clamps a particle of radius r to [r, size-r] on each axis and
// reflects the outward velocity component, scaled by restitution.
func Contain(p, v mgl32.Vec2, r float32, size mgl32.Vec2, restitution float32) (mgl32.Vec2, mgl32.Vec2) {
	for axis := 0; axis < 2; axis++ {
		lo, hi := r, size[axis]-r
		if hi < lo {
			// Viewport narrower than the particle
			lo = size[axis] / 2
			hi = lo
		}
		if p[axis] < lo {
			p[axis] = lo
			if v[axis] < 0 {
				v[axis] = -v[axis] * restitution
			}
		} else if p[axis] > hi {
			p[axis] = hi
			if v[axis] > 0 {
				v[axis] = -v[axis] * restitution
			}
		}
	}
	return p, v
}

// respawn resets a particle to the state it was last emitted with.
func respawn(pool *Pool, slot components.SlotID) {
	pool.pos[slot] = pool.origin[slot]
	pool.vel[slot] = pool.originVel[slot]
	pool.lifetime[slot] = pool.maxLifetime[slot]
}
