package systems

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
)

func frame(dt float32) FrameForces {
	return FrameForces{DT: dt, Viewport: mgl32.Vec2{100, 100}}
}

func stepFrame(pool *Pool, in *Integrator, f FrameForces) StepCounts {
	pool.Lock()
	counts := in.Step(pool, f, Serial{})
	pool.Commit()
	return counts
}

func TestIntegratorBorderContainment(t *testing.T) {
	tests := []struct {
		name string
		pos  mgl32.Vec2
		vel  mgl32.Vec2
	}{
		{"right edge", mgl32.Vec2{100 + 2, 50}, mgl32.Vec2{10, 0}},
		{"left edge", mgl32.Vec2{-2, 50}, mgl32.Vec2{-10, 0}},
		{"top edge", mgl32.Vec2{50, -2}, mgl32.Vec2{0, -10}},
		{"bottom corner", mgl32.Vec2{102, 102}, mgl32.Vec2{5, 5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool := NewPool(1)
			init := testParticle(tc.pos[0], tc.pos[1])
			init.Radius = 2
			init.Vel = tc.vel
			init.Behavior = behavior.BorderBound
			s, _ := pool.Spawn(init)

			in := NewIntegrator(IntegratorConfig{Restitution: 1}, nil)
			stepFrame(pool, in, frame(1.0/60))

			got := pool.Get(s)
			if !got.Alive {
				t.Fatal("border-bound particle died")
			}
			for axis := 0; axis < 2; axis++ {
				if got.Pos[axis] < 2 || got.Pos[axis] > 98 {
					t.Errorf("pos[%d] = %v, want within [2, 98]", axis, got.Pos[axis])
				}
				if got.Vel[axis]*tc.vel[axis] > 0 {
					t.Errorf("vel[%d] = %v still points outward", axis, got.Vel[axis])
				}
			}
		})
	}
}

func TestIntegratorGlobalBorderSwitch(t *testing.T) {
	pool := NewPool(1)
	init := testParticle(99, 50)
	init.Vel = mgl32.Vec2{600, 0}
	s, _ := pool.Spawn(init)

	in := NewIntegrator(IntegratorConfig{Restitution: 1, BorderCollisions: true}, nil)
	stepFrame(pool, in, frame(0.1))

	got := pool.Get(s)
	if !got.Alive || got.Pos[0] > 99 {
		t.Errorf("particle not contained: alive=%v pos=%v", got.Alive, got.Pos)
	}
}

func TestIntegratorLifetimeExpiry(t *testing.T) {
	pool := NewPool(1)
	init := testParticle(50, 50)
	init.Lifetime = 1.0
	init.Behavior = behavior.Lifetime
	s, _ := pool.Spawn(init)
	in := NewIntegrator(IntegratorConfig{}, nil)

	counts := stepFrame(pool, in, frame(0.5))
	if !pool.Get(s).Alive || counts.Expired != 0 {
		t.Fatal("particle died after first half second")
	}

	counts = stepFrame(pool, in, frame(0.5))
	if counts.Expired != 1 {
		t.Errorf("Expired = %d, want 1", counts.Expired)
	}
	if pool.Len() != 0 {
		t.Errorf("Len() = %d after expiry, want 0", pool.Len())
	}
}

func TestIntegratorRespawn(t *testing.T) {
	pool := NewPool(1)
	init := testParticle(10, 10)
	init.Vel = mgl32.Vec2{20, 0}
	init.Lifetime = 0.2
	init.Behavior = behavior.Lifetime | behavior.Respawns
	s, _ := pool.Spawn(init)
	in := NewIntegrator(IntegratorConfig{}, nil)

	stepFrame(pool, in, frame(0.1))
	if pool.Pos(s) == init.Pos {
		t.Fatal("particle did not move")
	}
	counts := stepFrame(pool, in, frame(0.1))
	if counts.Respawned != 1 {
		t.Fatalf("Respawned = %d, want 1", counts.Respawned)
	}
	got := pool.Get(s)
	if !got.Alive || got.Pos != init.Pos || got.Vel != init.Vel {
		t.Errorf("respawned to %v/%v alive=%v, want %v/%v", got.Pos, got.Vel, got.Alive, init.Pos, init.Vel)
	}
	if math.Abs(float64(got.Lifetime-0.2)) > 1e-6 {
		t.Errorf("lifetime = %v, want 0.2", got.Lifetime)
	}
}

func TestIntegratorEscapedParticleDies(t *testing.T) {
	pool := NewPool(2)
	gone := testParticle(99, 50)
	gone.Vel = mgl32.Vec2{1000, 0}
	pool.Spawn(gone)

	back := gone
	back.Behavior = behavior.Respawns
	b, _ := pool.Spawn(back)

	in := NewIntegrator(IntegratorConfig{}, nil)
	counts := stepFrame(pool, in, frame(0.1))
	if counts.Escaped != 2 || counts.Respawned != 1 {
		t.Errorf("counts = %+v, want 2 escaped, 1 respawned", counts)
	}
	if pool.Len() != 1 || pool.Live()[0] != b {
		t.Errorf("live = %v, want only the respawning particle", pool.Live())
	}
}

func TestIntegratorGravity(t *testing.T) {
	pool := NewPool(1)
	s, _ := pool.Spawn(testParticle(50, 50))
	in := NewIntegrator(IntegratorConfig{}, nil)

	f := frame(0.1)
	f.Gravity = mgl32.Vec2{0, 10}
	stepFrame(pool, in, f)

	got := pool.Get(s)
	if math.Abs(float64(got.Vel[1]-1)) > 1e-5 {
		t.Errorf("vel.y = %v, want 1", got.Vel[1])
	}
	if math.Abs(float64(got.Pos[1]-50.1)) > 1e-4 {
		t.Errorf("pos.y = %v, want 50.1", got.Pos[1])
	}
}

func TestIntegratorAttraction(t *testing.T) {
	tests := []struct {
		name  string
		mask  behavior.Mask
		cfg   IntegratorConfig
		wantX int // sign of the resulting x velocity
	}{
		{"attracted bit", behavior.Attracted, IntegratorConfig{}, 1},
		{"attract all", behavior.None, IntegratorConfig{AttractAll: true}, 1},
		{"repel", behavior.Attracted, IntegratorConfig{Repel: true}, -1},
		{"not attracted", behavior.None, IntegratorConfig{}, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool := NewPool(1)
			init := testParticle(20, 50)
			init.Behavior = tc.mask
			s, _ := pool.Spawn(init)

			in := NewIntegrator(tc.cfg, nil)
			f := frame(0.1)
			f.AttractPoint = mgl32.Vec2{80, 50}
			f.AttractForce = 500
			stepFrame(pool, in, f)

			vx := pool.Vel(s)[0]
			switch {
			case tc.wantX > 0 && vx <= 0,
				tc.wantX < 0 && vx >= 0,
				tc.wantX == 0 && vx != 0:
				t.Errorf("vel.x = %v, want sign %d", vx, tc.wantX)
			}
			if pool.Vel(s)[1] != 0 {
				t.Errorf("vel.y = %v, want 0", pool.Vel(s)[1])
			}
		})
	}
}

func TestIntegratorHomingAndMaxSpeed(t *testing.T) {
	pool := NewPool(1)
	init := testParticle(50, 50)
	init.MaxSpeed = 5
	init.Behavior = behavior.Homing
	s, _ := pool.Spawn(init)

	in := NewIntegrator(IntegratorConfig{HomingStrength: 1000}, nil)
	f := frame(0.1)
	f.MousePos = mgl32.Vec2{50, 0}
	stepFrame(pool, in, f)

	v := pool.Vel(s)
	if v[1] >= 0 {
		t.Errorf("vel = %v, want movement toward the mouse", v)
	}
	if speed := v.Len(); speed > 5+1e-4 {
		t.Errorf("speed = %v exceeds max 5", speed)
	}
}

func TestIntegratorTurbulence(t *testing.T) {
	pool := NewPool(2)
	plain := testParticle(30, 30)
	a, _ := pool.Spawn(plain)
	noisy := plain
	noisy.Behavior = behavior.Turbulence
	b, _ := pool.Spawn(noisy)

	field := NewTurbulenceField(1, 100, 0.01, 1)
	in := NewIntegrator(IntegratorConfig{}, field)
	stepFrame(pool, in, frame(0.1))

	if pool.Vel(a) != (mgl32.Vec2{}) {
		t.Errorf("particle without turbulence moved: %v", pool.Vel(a))
	}
	if l := pool.Vel(b).Len(); math.Abs(float64(l-10)) > 1e-3 {
		t.Errorf("turbulent speed = %v, want strength*dt = 10", l)
	}
}

func TestIntegratorParallelMatchesSerial(t *testing.T) {
	build := func() *Pool {
		pool := NewPool(500)
		rng := NewRNG(3)
		for i := 0; i < 500; i++ {
			init := testParticle(rng.NextInRange(0, 100), rng.NextInRange(0, 100))
			init.Vel = rng.NextVector2InRange(-50, 50)
			init.Lifetime = rng.NextInRange(0.05, 0.3)
			init.Behavior = behavior.Lifetime | behavior.BorderBound
			pool.Spawn(init)
		}
		return pool
	}
	serial, parallel := build(), build()
	in := NewIntegrator(IntegratorConfig{Restitution: 1}, nil)
	f := frame(0.1)
	f.Gravity = mgl32.Vec2{0, 30}

	var cs, cp StepCounts
	for i := 0; i < 3; i++ {
		serial.Lock()
		cs.add(in.Step(serial, f, Serial{}))
		serial.Commit()
		parallel.Lock()
		cp.add(in.Step(parallel, f, goFor{workers: 4}))
		parallel.Commit()
	}
	if cs != cp {
		t.Errorf("counts differ: serial %+v parallel %+v", cs, cp)
	}
	if serial.Len() != parallel.Len() {
		t.Fatalf("Len differs: %d vs %d", serial.Len(), parallel.Len())
	}
	for i, s := range serial.Live() {
		if parallel.Live()[i] != s || parallel.Pos(s) != serial.Pos(s) {
			t.Fatalf("slot %d diverged", s)
		}
	}
}
