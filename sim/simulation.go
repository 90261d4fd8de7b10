// Package sim steps the particle simulation one frame at a time.
//
// A frame applies pending commands, runs the emitters, integrates, commits
// structural pool changes, rebuilds the neighbour grid, resolves collisions
// and publishes a snapshot. The package has no rendering or windowing
// dependencies.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
	"github.com/pthm-cable/swarm/components"
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/systems"
	"github.com/pthm-cable/swarm/telemetry"
)

// FrameInput holds the host inputs for one frame.
type FrameInput struct {
	DeltaTime    float32
	ViewportSize mgl32.Vec2 // zero keeps the current viewport
	GravityForce mgl32.Vec2
	AttractPoint mgl32.Vec2
	AttractForce float32
	MousePos     mgl32.Vec2
	Commands     []Command // applied this frame, after queued commands
}

// Options holds construction parameters that are not part of the config file.
type Options struct {
	Seed    int64
	Workers int                      // overrides sim.workers when > 0
	Perf    *telemetry.PerfCollector // optional step timings
}

// Simulation owns the particle pool and every stage operating on it.
// Step must be called from one goroutine; Enqueue may be called from any.
type Simulation struct {
	mu     sync.Mutex
	queued []Command

	pool       *systems.Pool
	grid       *systems.SpatialGrid
	integrator *systems.Integrator
	resolver   *systems.CollisionResolver
	emitters   *systems.EmitterManager
	flow       *systems.TurbulenceField
	rng        *systems.RNG
	workers    *workerPool
	perf       *telemetry.PerfCollector

	dt         float32
	maxDT      float32
	collisions bool
	viewport   mgl32.Vec2

	frame       uint64
	time        float32
	stats       FrameStats
	lastEmitter components.EmitterID
	snap        Snapshot
}

// New builds a simulation from cfg and creates the configured initial
// emitters.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	if cfg.Pool.Capacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", cfg.Pool.Capacity)
	}
	policy, err := systems.ParseRemovePolicy(cfg.Emitters.RemovePolicy)
	if err != nil {
		return nil, fmt.Errorf("emitters: %w", err)
	}

	w, h := cfg.ViewportSize()
	rng := systems.NewRNG(opts.Seed)
	phys := cfg.Physics
	turb := cfg.Turbulence
	flow := systems.NewTurbulenceField(rng.Int63(),
		float32(turb.Strength), float32(turb.Scale), float32(turb.TimeSpeed))

	workers := cfg.Sim.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	s := &Simulation{
		pool: systems.NewPool(cfg.Pool.Capacity),
		grid: systems.NewSpatialGrid(float32(w), float32(h), float32(cfg.CellSize())),
		integrator: systems.NewIntegrator(systems.IntegratorConfig{
			AttractSoftening: float32(phys.AttractSoftening),
			AttractAll:       phys.AttractAll,
			Repel:            phys.Repel,
			HomingStrength:   float32(phys.HomingStrength),
			Drag:             float32(phys.Drag),
			Restitution:      float32(phys.Restitution),
			BorderCollisions: phys.EnableBorderCollisions,
		}, flow),
		resolver: systems.NewCollisionResolver(systems.CollisionConfig{
			Epsilon:          float32(phys.CollisionEpsilon),
			Separate:         phys.Separate,
			Restitution:      float32(phys.Restitution),
			BorderCollisions: phys.EnableBorderCollisions,
		}),
		emitters: systems.NewEmitterManager(systems.EmitterOptions{
			Seed:         opts.Seed,
			Capacity:     cfg.Pool.Capacity,
			RemovePolicy: policy,
			FollowMouse:  cfg.Emitters.SelectedFollowsMouse,
		}),
		flow:       flow,
		rng:        rng,
		workers:    newWorkerPool(workers, cfg.Sim.ParallelThreshold),
		perf:       opts.Perf,
		dt:         float32(phys.DT),
		maxDT:      float32(phys.MaxDT),
		collisions: phys.EnableCollisions,
		viewport:   mgl32.Vec2{float32(w), float32(h)},
	}
	if s.dt <= 0 {
		s.dt = 1.0 / 60.0
	}
	if s.maxDT < s.dt {
		s.maxDT = s.dt
	}

	for i := range cfg.Emitters.Initial {
		spec, err := components.EmitterSpecFromConfig(&cfg.Emitters.Initial[i])
		if err != nil {
			return nil, fmt.Errorf("initial emitter %d: %w", i, err)
		}
		if _, err := s.emitters.Add(spec); err != nil {
			return nil, fmt.Errorf("initial emitter %d: %w", i, err)
		}
	}

	s.workers.start()
	return s, nil
}

// DefaultParticle builds the spawn template for directly added particles.
func DefaultParticle(cfg *config.Config) (components.ParticleInit, error) {
	mask, err := behavior.Parse(cfg.Particle.Behaviors)
	if err != nil {
		return components.ParticleInit{}, fmt.Errorf("particle behaviors: %w", err)
	}
	return components.ParticleInit{
		Radius:   float32(cfg.Particle.Radius),
		Mass:     float32(cfg.Particle.Mass),
		Color:    components.Color(cfg.Particle.Color),
		Lifetime: float32(cfg.Particle.Lifetime),
		Behavior: mask,
	}, nil
}

// Close stops the worker goroutines.
func (s *Simulation) Close() {
	s.workers.stop()
}

// Enqueue schedules commands for the next frame. Safe for concurrent use.
func (s *Simulation) Enqueue(cmds ...Command) {
	s.mu.Lock()
	s.queued = append(s.queued, cmds...)
	s.mu.Unlock()
}

func (s *Simulation) drain() []Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmds := s.queued
	s.queued = nil
	return cmds
}

// Step advances the simulation by one frame. The frame always completes;
// the returned error joins the commands that were rejected.
func (s *Simulation) Step(in FrameInput) (*Snapshot, error) {
	s.perf.StartTick()
	s.stats = FrameStats{}

	dt := in.DeltaTime
	if !(dt > 0) {
		dt = s.dt
	}
	if dt > s.maxDT {
		dt = s.maxDT
	}
	if in.ViewportSize[0] > 0 && in.ViewportSize[1] > 0 {
		s.viewport = in.ViewportSize
		s.grid.Resize(s.viewport[0], s.viewport[1])
	}

	s.perf.StartPhase(telemetry.PhaseCommands)
	var errs []error
	apply := func(cmds []Command) {
		for _, cmd := range cmds {
			if err := cmd.apply(s); err != nil {
				slog.Debug("command rejected", "frame", s.frame, "error", err)
				errs = append(errs, err)
			}
		}
	}
	apply(s.drain())
	apply(in.Commands)
	s.stats.CommandErrors = len(errs)

	s.perf.StartPhase(telemetry.PhaseEmitters)
	ec := s.emitters.Update(s.pool, dt, in.MousePos)
	s.stats.Spawned += ec.Spawned
	s.stats.Dropped += ec.Dropped

	s.perf.StartPhase(telemetry.PhaseIntegrate)
	s.pool.Lock()
	counts := s.integrator.Step(s.pool, systems.FrameForces{
		DT:           dt,
		Gravity:      in.GravityForce,
		AttractPoint: in.AttractPoint,
		AttractForce: in.AttractForce,
		MousePos:     in.MousePos,
		Viewport:     s.viewport,
		Time:         s.time,
	}, s.workers)
	s.stats.Expired = counts.Expired
	s.stats.Escaped = counts.Escaped
	s.stats.Respawned = counts.Respawned
	s.emitters.Reemit(s.pool, s.integrator.Reemits())

	s.perf.StartPhase(telemetry.PhaseCommit)
	s.stats.Freed = s.pool.Commit()

	s.perf.StartPhase(telemetry.PhaseGrid)
	var participants []components.SlotID
	if s.collisions {
		participants = s.resolver.Participants(s.pool)
	}
	s.grid.EnsureCellSize(2 * s.pool.MaxRadius())
	s.grid.Build(s.pool, participants, s.workers)
	s.stats.Participants = len(participants)
	s.stats.Candidates = s.grid.CandidateCount()

	s.perf.StartPhase(telemetry.PhaseCollide)
	if len(participants) > 1 {
		s.stats.Collisions = s.resolver.Resolve(s.pool, s.grid, s.workers)
		s.stats.Contacts = s.resolver.Pairs()
	}

	s.perf.StartPhase(telemetry.PhaseSnapshot)
	s.frame++
	s.time += dt
	s.snap.fill(s.pool)
	s.snap.Emitters = s.emitters.Views(s.pool, s.snap.Emitters)
	s.snap.Viewport = s.viewport
	s.snap.Frame = s.frame
	s.snap.Time = s.time
	s.snap.Stats = s.stats
	s.perf.EndTick()

	return &s.snap, errors.Join(errs...)
}

// Frame returns the number of completed frames.
func (s *Simulation) Frame() uint64 { return s.frame }

// Time returns the simulated time in seconds.
func (s *Simulation) Time() float32 { return s.time }

// Len returns the live particle count.
func (s *Simulation) Len() int { return s.pool.Len() }

// Capacity returns the pool capacity.
func (s *Simulation) Capacity() int { return s.pool.Cap() }

// Viewport returns the current viewport size.
func (s *Simulation) Viewport() mgl32.Vec2 { return s.viewport }

// SelectedEmitter returns the selected emitter id, or NoEmitter.
func (s *Simulation) SelectedEmitter() components.EmitterID { return s.emitters.Selected() }

// LastAddedEmitter returns the id assigned by the most recent AddEmitter.
func (s *Simulation) LastAddedEmitter() components.EmitterID { return s.lastEmitter }

// Flow returns the turbulence field driving particles with the turbulence bit.
func (s *Simulation) Flow() systems.FlowSampler { return s.flow }

// Particle returns the particle in a slot, for inspection.
func (s *Simulation) Particle(slot components.SlotID) components.Particle { return s.pool.Get(slot) }

// Slots returns the live slots in snapshot order. Valid until the next Step.
func (s *Simulation) Slots() []components.SlotID { return s.pool.Live() }
