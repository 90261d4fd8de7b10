package systems

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
)

func TestCollisionCheck(t *testing.T) {
	tests := []struct {
		name   string
		pa, pb mgl32.Vec2
		ra, rb float32
		want   bool
	}{
		{"overlapping", mgl32.Vec2{0, 0}, mgl32.Vec2{1, 0}, 1, 1, true},
		{"touching", mgl32.Vec2{0, 0}, mgl32.Vec2{2, 0}, 1, 1, false},
		{"apart", mgl32.Vec2{0, 0}, mgl32.Vec2{5, 5}, 1, 1, false},
		{"coincident", mgl32.Vec2{3, 3}, mgl32.Vec2{3, 3}, 0.5, 0.5, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CollisionCheck(tc.pa, tc.pb, tc.ra, tc.rb); got != tc.want {
				t.Errorf("CollisionCheck = %v, want %v", got, tc.want)
			}
		})
	}
}

func momentum(a, b Body) mgl32.Vec2 {
	return a.Vel.Mul(a.Mass).Add(b.Vel.Mul(b.Mass))
}

func penetration(a, b Body) float32 {
	return a.Radius + b.Radius - b.Pos.Sub(a.Pos).Len()
}

func TestResolvePairConservesMomentum(t *testing.T) {
	rng := NewRNG(17)
	for i := 0; i < 200; i++ {
		a := Body{
			Pos:    mgl32.Vec2{0, 0},
			Vel:    rng.NextVector2InRange(-10, 10),
			Radius: 1,
			Mass:   rng.NextInRange(0.1, 5),
		}
		b := Body{
			Pos:    rng.NextVector2InRange(-1.2, 1.2),
			Vel:    rng.NextVector2InRange(-10, 10),
			Radius: 1,
			Mass:   rng.NextInRange(0.1, 5),
		}
		before := momentum(a, b)
		ResolvePair(&a, &b, 1e-4, true)
		after := momentum(a, b)
		for axis := 0; axis < 2; axis++ {
			if math.Abs(float64(after[axis]-before[axis])) > 1e-3 {
				t.Fatalf("case %d: momentum %v -> %v", i, before, after)
			}
		}
	}
}

func TestResolvePairNeverIncreasesPenetration(t *testing.T) {
	for _, separate := range []bool{false, true} {
		rng := NewRNG(23)
		for i := 0; i < 200; i++ {
			a := Body{Pos: mgl32.Vec2{0, 0}, Vel: rng.NextVector2InRange(-5, 5), Radius: 1, Mass: 1}
			b := Body{Pos: rng.NextVector2InRange(-1.5, 1.5), Vel: rng.NextVector2InRange(-5, 5), Radius: 1, Mass: rng.NextInRange(0.5, 2)}
			if !CollisionCheck(a.Pos, b.Pos, a.Radius, b.Radius) {
				continue
			}
			before := penetration(a, b)
			ResolvePair(&a, &b, 1e-4, separate)
			if after := penetration(a, b); after > before+1e-5 {
				t.Fatalf("separate=%v case %d: penetration %v -> %v", separate, i, before, after)
			}
		}
	}
}

func TestResolvePairHeadOnSwap(t *testing.T) {
	a := Body{Pos: mgl32.Vec2{0, 0}, Vel: mgl32.Vec2{1, 0}, Radius: 1, Mass: 1}
	b := Body{Pos: mgl32.Vec2{1.5, 0}, Vel: mgl32.Vec2{-1, 0}, Radius: 1, Mass: 1}

	if !ResolvePair(&a, &b, 1e-4, false) {
		t.Fatal("approaching pair was not resolved")
	}
	if math.Abs(float64(a.Vel[0]+1)) > 1e-5 || math.Abs(float64(b.Vel[0]-1)) > 1e-5 || a.Vel[1] != 0 || b.Vel[1] != 0 {
		t.Errorf("velocities = %v, %v, want swapped", a.Vel, b.Vel)
	}
}

func TestResolvePairKeepsTangential(t *testing.T) {
	a := Body{Pos: mgl32.Vec2{0, 0}, Vel: mgl32.Vec2{2, 3}, Radius: 1, Mass: 1}
	b := Body{Pos: mgl32.Vec2{1, 0}, Vel: mgl32.Vec2{0, -1}, Radius: 1, Mass: 1}
	ResolvePair(&a, &b, 1e-4, false)
	if a.Vel[1] != 3 || b.Vel[1] != -1 {
		t.Errorf("tangential components changed: %v, %v", a.Vel, b.Vel)
	}
}

func TestResolvePairSeparating(t *testing.T) {
	a := Body{Pos: mgl32.Vec2{0, 0}, Vel: mgl32.Vec2{-1, 0}, Radius: 1, Mass: 1}
	b := Body{Pos: mgl32.Vec2{1, 0}, Vel: mgl32.Vec2{1, 0}, Radius: 1, Mass: 1}
	if ResolvePair(&a, &b, 1e-4, false) {
		t.Error("separating pair received an impulse")
	}
	if a.Vel[0] != -1 || b.Vel[0] != 1 {
		t.Errorf("velocities changed: %v, %v", a.Vel, b.Vel)
	}
}

func TestResolvePairZeroDistance(t *testing.T) {
	a := Body{Pos: mgl32.Vec2{5, 5}, Vel: mgl32.Vec2{1, 0}, Radius: 1, Mass: 1}
	b := Body{Pos: mgl32.Vec2{5, 5}, Vel: mgl32.Vec2{0, 0}, Radius: 1, Mass: 1}
	ResolvePair(&a, &b, 1e-3, false)

	for _, v := range []float32{a.Pos[0], a.Pos[1], b.Pos[0], b.Pos[1], a.Vel[0], b.Vel[0]} {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			t.Fatalf("non-finite state: a=%+v b=%+v", a, b)
		}
	}
	if b.Pos[0] <= a.Pos[0] {
		t.Errorf("b not perturbed along +x: a=%v b=%v", a.Pos, b.Pos)
	}
	if math.Abs(float64(a.Vel[0])) > 1e-5 || math.Abs(float64(b.Vel[0]-1)) > 1e-5 {
		t.Errorf("velocities = %v, %v, want exchanged along +x", a.Vel, b.Vel)
	}
}

func TestResolvePairSeparationWeightsByMass(t *testing.T) {
	a := Body{Pos: mgl32.Vec2{0, 0}, Radius: 1, Mass: 3}
	b := Body{Pos: mgl32.Vec2{1, 0}, Radius: 1, Mass: 1}
	ResolvePair(&a, &b, 1e-4, true)

	if d := b.Pos.Sub(a.Pos).Len(); math.Abs(float64(d-2)) > 1e-5 {
		t.Errorf("distance after separation = %v, want 2", d)
	}
	if math.Abs(float64(a.Pos[0]+0.25)) > 1e-5 || math.Abs(float64(b.Pos[0]-1.75)) > 1e-5 {
		t.Errorf("positions = %v, %v, want heavy body to move less", a.Pos, b.Pos)
	}
}

func TestCollisionResolverParticipants(t *testing.T) {
	pool := NewPool(3)
	in := testParticle(0, 0)
	in.Behavior = behavior.Intercollision
	a, _ := pool.Spawn(in)
	pool.Spawn(testParticle(1, 0))
	c, _ := pool.Spawn(in)

	r := NewCollisionResolver(CollisionConfig{})
	got := r.Participants(pool)
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Errorf("Participants = %v, want [%d %d]", got, a, c)
	}
}

func TestCollisionResolverPairsOnceAndDeterministic(t *testing.T) {
	build := func() *Pool {
		pool := NewPool(400)
		rng := NewRNG(8)
		for i := 0; i < 400; i++ {
			init := testParticle(rng.NextInRange(0, 120), rng.NextInRange(0, 120))
			init.Vel = rng.NextVector2InRange(-20, 20)
			init.Radius = 3
			init.Behavior = behavior.Intercollision
			pool.Spawn(init)
		}
		return pool
	}

	run := func(pool *Pool, pf ParallelFor) (int, int) {
		r := NewCollisionResolver(CollisionConfig{Epsilon: 1e-4, Separate: true})
		g := NewSpatialGrid(120, 120, 6)
		g.Build(pool, r.Participants(pool), pf)
		resolved := r.Resolve(pool, g, pf)
		seen := make(map[slotPair]bool)
		for _, c := range r.pairs {
			if c.a >= c.b {
				t.Fatalf("pair (%d,%d) not ordered", c.a, c.b)
			}
			key := slotPair{c.a, c.b}
			if seen[key] {
				t.Fatalf("pair (%d,%d) listed twice", c.a, c.b)
			}
			seen[key] = true
		}
		return r.Pairs(), resolved
	}

	serial, parallel := build(), build()
	sp, sr := run(serial, Serial{})
	pp, pr := run(parallel, goFor{workers: 4})
	if sp == 0 {
		t.Fatal("expected some contacts")
	}
	if sp != pp || sr != pr {
		t.Errorf("serial %d/%d, parallel %d/%d", sp, sr, pp, pr)
	}
	for _, s := range serial.Live() {
		if serial.Vel(s) != parallel.Vel(s) || serial.Pos(s) != parallel.Pos(s) {
			t.Fatalf("slot %d differs between serial and parallel runs", s)
		}
	}
}

func TestCollisionResolverKeepsBorderBoundInside(t *testing.T) {
	tests := []struct {
		name   string
		mask   behavior.Mask
		global bool
		want   float32 // x of the wall-side particle
	}{
		{"border bound", behavior.Intercollision | behavior.BorderBound, false, 96},
		{"global border switch", behavior.Intercollision, true, 96},
		{"unbounded", behavior.Intercollision, false, 99.5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			pool := NewPool(2)
			inner := testParticle(95, 50)
			inner.Radius = 4
			inner.Vel = mgl32.Vec2{10, 0}
			inner.Behavior = tc.mask
			wall := inner
			wall.Pos = mgl32.Vec2{96, 50}
			wall.Vel = mgl32.Vec2{}
			pool.Spawn(inner)
			w, _ := pool.Spawn(wall)

			r := NewCollisionResolver(CollisionConfig{Epsilon: 1e-4, Separate: true, Restitution: 1, BorderCollisions: tc.global})
			g := NewSpatialGrid(100, 100, 8)
			g.Build(pool, r.Participants(pool), Serial{})
			if r.Resolve(pool, g, Serial{}) != 1 {
				t.Fatal("expected one resolved pair")
			}

			if got := pool.Pos(w)[0]; math.Abs(float64(got-tc.want)) > 1e-4 {
				t.Errorf("wall particle x = %v, want %v", got, tc.want)
			}
			if tc.want == 96 && pool.Vel(w)[0] != -10 {
				t.Errorf("wall particle vx = %v, want -10 after reflection", pool.Vel(w)[0])
			}
		})
	}
}
