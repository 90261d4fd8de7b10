// Package game hosts the simulation: it turns input into simulation
// parameters, steps frames, drives telemetry and draws snapshots.
package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/camera"
	"github.com/pthm-cable/swarm/components"
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/renderer"
	"github.com/pthm-cable/swarm/sim"
	"github.com/pthm-cable/swarm/telemetry"
	"github.com/pthm-cable/swarm/ui"
)

// Game holds the simulation and everything around it.
type Game struct {
	cfg    *config.Config
	sim    *sim.Simulation
	params sim.SimParam
	snap   *sim.Snapshot

	// Telemetry
	collector     *telemetry.Collector
	perf          *telemetry.PerfCollector
	output        *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)
	speedBuf      []float64
	energyBuf     []float64

	// Viewer, nil when headless
	headless     bool
	camera       *camera.Camera
	particles    *renderer.ParticleRenderer
	flow         *renderer.FlowRenderer
	hud          *ui.HUD
	perfPanel    *ui.PerfPanel
	emitterPanel *ui.EmitterPanel

	// Templates for viewer-created particles and emitters
	particleTemplate components.ParticleInit
	emitterTemplate  components.EmitterSpec

	// State
	paused         bool
	stepsPerUpdate int
	gravityOn      bool
	showFlow       bool
	showPerf       bool
	drawn          int
	lastErr        string
	lastErrFrame   uint64

	screenWidth, screenHeight float32
}

// NewGameWithOptions creates a game from cfg. Headless games never touch
// raylib.
func NewGameWithOptions(cfg *config.Config, opts Options) (*Game, error) {
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	s, err := sim.New(cfg, sim.Options{Seed: opts.Seed, Workers: opts.Workers, Perf: perf})
	if err != nil {
		return nil, fmt.Errorf("creating simulation: %w", err)
	}

	particle, err := sim.DefaultParticle(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}

	g := &Game{
		cfg:              cfg,
		sim:              s,
		collector:        telemetry.NewCollector(statsWindow, cfg.Derived.DT32),
		perf:             perf,
		output:           output,
		logStats:         opts.LogStats,
		headless:         opts.Headless,
		particleTemplate: particle,
		emitterTemplate:  defaultEmitterTemplate(cfg, particle),
		stepsPerUpdate:   max(opts.StepsPerUpdate, 1),
		gravityOn:        cfg.Physics.GravityEnabled,
		screenWidth:      cfg.Derived.ScreenW32,
		screenHeight:     cfg.Derived.ScreenH32,
	}

	g.params.Seed = opts.Seed
	g.params.DeltaTime = cfg.Derived.DT32
	g.params.ViewportSize = s.Viewport()
	g.params.NewParticle = particle
	g.params.SpawnJitter = float32(cfg.Particle.Radius)

	if !g.headless {
		g.initViewer()
	}

	slog.Info("game created",
		"seed", opts.Seed,
		"capacity", s.Capacity(),
		"emitters", len(cfg.Emitters.Initial),
		"output_dir", output.Dir(),
		"run_id", output.RunID(),
	)
	return g, nil
}

// defaultEmitterTemplate is the EmitterSpec for emitters added from the viewer:
// the first configured emitter when there is one, otherwise the default
// particle fired upward.
func defaultEmitterTemplate(cfg *config.Config, particle components.ParticleInit) components.EmitterSpec {
	if len(cfg.Emitters.Initial) > 0 {
		if spec, err := components.EmitterSpecFromConfig(&cfg.Emitters.Initial[0]); err == nil {
			return spec
		}
	}
	return components.EmitterSpec{
		Direction: mgl32.Vec2{0, -1},
		Speed:     200,
		Spread:    0.5,
		Rate:      100,
		Budget:    max(cfg.Pool.Capacity/4, 1),
		Radius:    particle.Radius,
		Mass:      particle.Mass,
		Color:     particle.Color,
		Lifetime:  particle.Lifetime,
		Behavior:  particle.Behavior,
	}
}

// SetStatsCallback registers a function called with every flushed window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.statsCallback = fn
}

// Update handles input, then runs stepsPerUpdate frames unless paused.
func (g *Game) Update() {
	g.perf.RecordFrame()
	g.handleInput()
	if g.paused {
		return
	}
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.step()
	}
}

// UpdateHeadless runs stepsPerUpdate frames without input or drawing.
func (g *Game) UpdateHeadless() {
	g.applyForces()
	for i := 0; i < g.stepsPerUpdate; i++ {
		g.step()
	}
}

// Enqueue schedules commands for the next frame.
func (g *Game) Enqueue(cmds ...sim.Command) {
	g.sim.Enqueue(cmds...)
}

// step runs one simulation frame and the per-frame telemetry.
func (g *Game) step() {
	snap, err := g.sim.Step(g.params.FrameInput())
	g.snap = snap
	g.params.Observe(snap)
	if err != nil {
		g.lastErr = err.Error()
		g.lastErrFrame = snap.Frame
		slog.Debug("frame commands rejected", "frame", snap.Frame, "error", err)
	} else if g.lastErr != "" && snap.Frame-g.lastErrFrame > 180 {
		g.lastErr = ""
	}

	start := time.Now()
	g.collector.Record(snap.Stats.Counts())
	g.flushTelemetry()
	g.perf.AddPhase(telemetry.PhaseTelemetry, time.Since(start))
}

// applyForces sets the global force inputs from the toggles.
func (g *Game) applyForces() {
	g.params.GravityForce = mgl32.Vec2{}
	if g.gravityOn {
		g.params.GravityForce = mgl32.Vec2{
			float32(g.cfg.Physics.Gravity[0]),
			float32(g.cfg.Physics.Gravity[1]),
		}
	}
}

// Tick returns the number of completed frames.
func (g *Game) Tick() uint64 {
	return g.sim.Frame()
}

// Snapshot returns the most recent frame result, or nil before the first step.
func (g *Game) Snapshot() *sim.Snapshot {
	return g.snap
}

// Unload flushes output and stops the simulation workers.
func (g *Game) Unload() {
	if err := g.output.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
	g.sim.Close()
}
