package sim

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
	"github.com/pthm-cable/swarm/components"
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/systems"
)

// testConfig returns the defaults without initial emitters.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Emitters.Initial = nil
	cfg.Pool.Capacity = 64
	cfg.World.Width = 200
	cfg.World.Height = 200
	cfg.Turbulence.Strength = 0
	return cfg
}

func newTestSim(t *testing.T, cfg *config.Config, workers int) *Simulation {
	t.Helper()
	s, err := New(cfg, Options{Seed: 1, Workers: workers})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func particle(x, y, vx, vy float32, mask behavior.Mask) components.ParticleInit {
	return components.ParticleInit{
		Pos:      mgl32.Vec2{x, y},
		Vel:      mgl32.Vec2{vx, vy},
		Radius:   2,
		Mass:     1,
		Color:    mgl32.Vec4{1, 1, 1, 1},
		Behavior: mask,
	}
}

func TestHeadOnCollisionSwapsVelocities(t *testing.T) {
	for _, workers := range []int{1, 4} {
		cfg := testConfig(t)
		cfg.Sim.ParallelThreshold = 1
		s := newTestSim(t, cfg, workers)

		mask := behavior.Intercollision
		_, err := s.Step(FrameInput{
			DeltaTime: 0.001,
			Commands: []Command{
				SpawnParticle{Particle: particle(100, 100, 100, 0, mask)},
				SpawnParticle{Particle: particle(105, 100, -100, 0, mask)},
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		// Centers 4.8 apart after the first frame, 2.8 after the second
		snap, _ := s.Step(FrameInput{DeltaTime: 0.01})
		if snap.Count != 2 {
			t.Fatalf("workers=%d: Count = %d", workers, snap.Count)
		}
		if snap.Stats.Collisions != 1 {
			t.Errorf("workers=%d: Collisions = %d, want 1", workers, snap.Stats.Collisions)
		}
		left, right := snap.Velocities[0], snap.Velocities[1]
		if math.Abs(float64(left[0]+100)) > 1e-3 || math.Abs(float64(right[0]-100)) > 1e-3 {
			t.Errorf("workers=%d: velocities %v, %v, want swapped", workers, left, right)
		}
	}
}

func TestCommandsApplyOnNextFrame(t *testing.T) {
	s := newTestSim(t, testConfig(t), 1)

	s.Enqueue(SpawnParticle{Particle: particle(50, 50, 0, 0, 0)})
	if s.Len() != 0 {
		t.Fatal("enqueued command applied before a step")
	}
	snap, err := s.Step(FrameInput{})
	if err != nil {
		t.Fatal(err)
	}
	if snap.Count != 1 {
		t.Errorf("Count = %d after step, want 1", snap.Count)
	}

	// Commands enqueued concurrently all land
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Enqueue(SpawnParticle{Particle: particle(float32(10+i*20), 150, 0, 0, 0)})
		}(i)
	}
	wg.Wait()
	snap, _ = s.Step(FrameInput{})
	if snap.Count != 9 {
		t.Errorf("Count = %d, want 9", snap.Count)
	}
}

func TestStepJoinsCommandErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pool.Capacity = 1
	s := newTestSim(t, cfg, 1)

	bad := particle(10, 10, 0, 0, 0)
	bad.Mass = 0
	snap, err := s.Step(FrameInput{Commands: []Command{
		SpawnParticle{Particle: particle(10, 10, 0, 0, 0)},
		SpawnParticle{Particle: particle(20, 10, 0, 0, 0)},
		SpawnParticle{Particle: bad},
		RemoveEmitter{ID: 42},
	}})

	if snap == nil || snap.Count != 1 {
		t.Fatalf("frame did not complete: %+v", snap)
	}
	for _, want := range []error{systems.ErrCapacityExceeded, systems.ErrInvalidParticle, systems.ErrInvalidEmitterID} {
		if !errors.Is(err, want) {
			t.Errorf("error %v does not include %v", err, want)
		}
	}
	if snap.Stats.CommandErrors != 3 {
		t.Errorf("CommandErrors = %d, want 3", snap.Stats.CommandErrors)
	}
}

func TestStepClampsDeltaTime(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, 1)

	snap, _ := s.Step(FrameInput{DeltaTime: 5})
	if want := float32(cfg.Physics.MaxDT); math.Abs(float64(snap.Time-want)) > 1e-6 {
		t.Errorf("Time after huge dt = %v, want %v", snap.Time, want)
	}
	before := snap.Time
	snap, _ = s.Step(FrameInput{DeltaTime: -1})
	if got := snap.Time - before; math.Abs(float64(got-float32(cfg.Physics.DT))) > 1e-6 {
		t.Errorf("negative dt advanced %v, want %v", got, cfg.Physics.DT)
	}
}

func TestLifetimeExpiresAfterTwoHalfSeconds(t *testing.T) {
	cfg := testConfig(t)
	cfg.Physics.MaxDT = 1
	s := newTestSim(t, cfg, 1)

	p := particle(100, 100, 0, 0, behavior.Lifetime)
	p.Lifetime = 1
	s.Enqueue(SpawnParticle{Particle: p})

	snap, _ := s.Step(FrameInput{DeltaTime: 0.5})
	if snap.Count != 1 {
		t.Fatalf("Count = %d after 0.5s, want 1", snap.Count)
	}
	snap, _ = s.Step(FrameInput{DeltaTime: 0.5})
	if snap.Count != 0 || snap.Stats.Expired != 1 {
		t.Errorf("Count=%d Expired=%d after 1s, want 0/1", snap.Count, snap.Stats.Expired)
	}
}

func TestEmitterLifecycleThroughCommands(t *testing.T) {
	cfg := testConfig(t)
	cfg.Emitters.RemovePolicy = "orphan"
	s := newTestSim(t, cfg, 1)

	spec := components.EmitterSpec{
		Position:  mgl32.Vec2{100, 100},
		Direction: mgl32.Vec2{0, 1},
		Speed:     5,
		Burst:     10,
		Budget:    20,
		Radius:    1,
		Mass:      1,
		Behavior:  behavior.BorderBound,
	}
	snap, err := s.Step(FrameInput{Commands: []Command{AddEmitter{Spec: spec}}})
	if err != nil {
		t.Fatal(err)
	}
	id := s.LastAddedEmitter()
	if len(snap.Emitters) != 1 || snap.Emitters[0].ID != id {
		t.Fatalf("emitters = %+v", snap.Emitters)
	}
	if snap.Count != 10 || snap.Emitters[0].Owned != 10 {
		t.Errorf("burst: Count=%d Owned=%d, want 10", snap.Count, snap.Emitters[0].Owned)
	}

	snap, err = s.Step(FrameInput{Commands: []Command{SelectEmitter{ID: id}}})
	if err != nil || s.SelectedEmitter() != id || !snap.Emitters[0].Selected {
		t.Errorf("select failed: err=%v selected=%d", err, s.SelectedEmitter())
	}

	snap, err = s.Step(FrameInput{Commands: []Command{RemoveEmitter{ID: id}}})
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Emitters) != 0 || snap.Count != 10 {
		t.Errorf("after remove: emitters=%d Count=%d, want 0/10 orphans", len(snap.Emitters), snap.Count)
	}
	if s.SelectedEmitter() != components.NoEmitter {
		t.Error("removed emitter still selected")
	}
}

func TestCapacityHoldsUnderEmitterPressure(t *testing.T) {
	cfg := testConfig(t)
	cfg.Pool.Capacity = 50
	cfg.Emitters.Initial = []config.EmitterConfig{
		{Position: [2]float64{50, 50}, Direction: [2]float64{1, 0}, Speed: 10, Rate: 1000,
			Budget: 40, Radius: 1, Mass: 1, Behaviors: []string{"can_add_particles", "border_bound"}},
		{Position: [2]float64{150, 150}, Direction: [2]float64{-1, 0}, Speed: 10, Rate: 1000,
			Budget: 40, Radius: 1, Mass: 1, Behaviors: []string{"can_add_particles", "border_bound"}},
	}
	s := newTestSim(t, cfg, 2)

	dropped := 0
	for i := 0; i < 20; i++ {
		snap, err := s.Step(FrameInput{DeltaTime: 0.05})
		if err != nil {
			t.Fatal(err)
		}
		if snap.Count > 50 {
			t.Fatalf("Count = %d exceeds capacity", snap.Count)
		}
		owned := 0
		for _, e := range snap.Emitters {
			owned += e.Owned
		}
		if owned > snap.Count {
			t.Fatalf("owned %d > live %d", owned, snap.Count)
		}
		dropped += snap.Stats.Dropped
	}
	if s.Len() != 50 {
		t.Errorf("Len() = %d, want pool full at 50", s.Len())
	}
	if dropped == 0 {
		t.Error("expected dropped requests once budgets were exhausted")
	}
}

func TestSimParamTakeCommandsOnce(t *testing.T) {
	p := SimParam{
		ClearParticles:    true,
		AddParticlesCount: 3,
		NewParticle:       particle(1, 1, 0, 0, 0),
		SelectEmitter:     true,
		SelectedEmitterID: 7,
	}
	cmds := p.TakeCommands()
	if len(cmds) != 5 {
		t.Fatalf("got %d commands, want 5", len(cmds))
	}
	if _, ok := cmds[0].(ClearParticles); !ok {
		t.Errorf("first command = %T, want ClearParticles", cmds[0])
	}
	if sel, ok := cmds[4].(SelectEmitter); !ok || sel.ID != 7 {
		t.Errorf("last command = %#v", cmds[4])
	}
	if again := p.TakeCommands(); len(again) != 0 {
		t.Errorf("flags not reset: %d commands on second take", len(again))
	}

	p.ShouldAddParticle = true
	in := p.FrameInput()
	if len(in.Commands) != 1 {
		t.Errorf("ShouldAddParticle produced %d commands, want 1", len(in.Commands))
	}
}

func TestSimParamObserve(t *testing.T) {
	s := newTestSim(t, testConfig(t), 1)
	p := SimParam{ShouldAddParticle: true, NewParticle: particle(20, 20, 0, 0, 0)}
	snap, err := s.Step(p.FrameInput())
	if err != nil {
		t.Fatal(err)
	}
	p.Observe(snap)
	if p.ParticleCount != 1 || p.CurrentTime != snap.Time || p.ViewportSize != (mgl32.Vec2{200, 200}) {
		t.Errorf("observed %+v", p)
	}
}

func TestDeterministicRuns(t *testing.T) {
	run := func() []mgl32.Vec2 {
		cfg := testConfig(t)
		cfg.Pool.Capacity = 500
		cfg.Emitters.Initial = []config.EmitterConfig{{
			Position: [2]float64{100, 100}, Direction: [2]float64{1, 0}, Speed: 40, Spread: 2,
			Rate: 600, Budget: 400, Radius: 2, Mass: 1,
			Behaviors: []string{"can_add_particles", "border_bound", "intercollision"},
		}}
		cfg.Sim.ParallelThreshold = 1
		s := newTestSim(t, cfg, 3)
		var snap *Snapshot
		for i := 0; i < 30; i++ {
			snap, _ = s.Step(FrameInput{DeltaTime: 1.0 / 60})
		}
		return append([]mgl32.Vec2(nil), snap.Positions...)
	}
	a, b := run(), run()
	if len(a) != len(b) || len(a) == 0 {
		t.Fatalf("counts differ or empty: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("position %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestDefaultParticle(t *testing.T) {
	cfg := testConfig(t)
	p, err := DefaultParticle(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.Radius != float32(cfg.Particle.Radius) || !p.Behavior.Has(behavior.Intercollision) {
		t.Errorf("DefaultParticle = %+v", p)
	}

	cfg.Particle.Behaviors = []string{"warp"}
	if _, err := DefaultParticle(cfg); err == nil {
		t.Error("expected error for unknown behavior")
	}
}

func TestWallPileUpStaysInsideViewport(t *testing.T) {
	cfg := testConfig(t)
	cfg.Physics.Separate = true
	s := newTestSim(t, cfg, 1)

	var cmds []Command
	for i := 0; i < 4; i++ {
		p := particle(196-float32(i), 100, 50, 0, behavior.BorderBound|behavior.Intercollision)
		p.Radius = 4
		cmds = append(cmds, SpawnParticle{Particle: p})
	}

	in := FrameInput{DeltaTime: 0.01, Commands: cmds}
	for frame := 0; frame < 10; frame++ {
		snap, err := s.Step(in)
		if err != nil {
			t.Fatal(err)
		}
		in.Commands = nil
		if frame == 0 && snap.Stats.Contacts == 0 {
			t.Fatal("expected contacts in the pile-up")
		}
		for i, p := range snap.Positions {
			r := snap.Radii[i]
			if p[0] < r-1e-4 || p[0] > 200-r+1e-4 {
				t.Fatalf("frame %d: particle %d at x=%v outside [%v, %v]", frame, i, p[0], r, 200-r)
			}
		}
	}
}

func TestRespawnFollowsSelectedEmitter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Emitters.SelectedFollowsMouse = true
	s := newTestSim(t, cfg, 1)

	start := mgl32.Vec2{40, 40}
	spec := components.EmitterSpec{
		Position:  start,
		Direction: mgl32.Vec2{1, 0},
		Speed:     5,
		Burst:     1,
		Budget:    1,
		Radius:    1,
		Mass:      1,
		Lifetime:  0.1,
		Behavior:  behavior.Lifetime | behavior.Respawns,
	}
	if _, err := s.Step(FrameInput{MousePos: start, Commands: []Command{AddEmitter{Spec: spec}}}); err != nil {
		t.Fatal(err)
	}
	id := s.LastAddedEmitter()

	mouse := mgl32.Vec2{150, 120}
	in := FrameInput{MousePos: mouse, Commands: []Command{SelectEmitter{ID: id}}}
	for frame := 0; frame < 30; frame++ {
		snap, err := s.Step(in)
		if err != nil {
			t.Fatal(err)
		}
		in.Commands = nil
		if snap.Stats.Respawned == 0 {
			continue
		}
		if snap.Count != 1 || snap.Positions[0] != mouse {
			t.Fatalf("respawned at %v, want the emitter's new position %v", snap.Positions, mouse)
		}
		return
	}
	t.Fatal("particle never respawned")
}

func TestSnapshotFadesLifetimeParticles(t *testing.T) {
	cfg := testConfig(t)
	cfg.Physics.MaxDT = 1
	s := newTestSim(t, cfg, 1)

	fading := particle(50, 50, 0, 0, behavior.Lifetime)
	fading.Lifetime = 1
	fading.Color = mgl32.Vec4{1, 0.5, 0, 0.8}
	steady := particle(150, 150, 0, 0, behavior.None)
	s.Enqueue(SpawnParticle{Particle: fading}, SpawnParticle{Particle: steady})

	tests := []struct {
		dt   float32
		want float32
	}{
		{0.25, 0.6},
		{0.5, 0.2},
	}
	for _, tc := range tests {
		snap, err := s.Step(FrameInput{DeltaTime: tc.dt})
		if err != nil {
			t.Fatal(err)
		}
		if snap.Count != 2 {
			t.Fatalf("Count = %d, want 2", snap.Count)
		}
		if got := snap.Colors[0][3]; math.Abs(float64(got-tc.want)) > 1e-5 {
			t.Errorf("fading alpha = %v, want %v", got, tc.want)
		}
		if rgb := snap.Colors[0].Vec3(); rgb != (mgl32.Vec3{1, 0.5, 0}) {
			t.Errorf("fading rgb = %v, want unchanged", rgb)
		}
		if got := snap.Colors[1][3]; got != 1 {
			t.Errorf("steady alpha = %v, want 1", got)
		}
	}
}
