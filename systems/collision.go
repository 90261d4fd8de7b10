package systems

import (
	"cmp"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
	"github.com/pthm-cable/swarm/components"
)

// minContactDistance is the separation below which two centers are treated
// as coincident and the contact normal is undefined.
const minContactDistance = 1e-11

// Body is the collision-relevant state of one particle.
type Body struct {
	Pos    mgl32.Vec2
	Vel    mgl32.Vec2
	Radius float32
	Mass   float32
}

// CollisionCheck reports whether two circles overlap. Touching is not a
// collision.
func CollisionCheck(pa, pb mgl32.Vec2, ra, rb float32) bool {
	d := pb.Sub(pa)
	r := ra + rb
	return d.Dot(d) < r*r
}

// ResolvePair applies an elastic impulse along the contact normal of two
// overlapping bodies. The tangential components are unchanged and the total
// momentum of the pair is conserved. Pairs already moving apart get no
// impulse. Coincident centers are pushed epsilon apart along +x first.
// With separate set, the overlap is removed by moving each body along the
// normal in proportion to the other's mass.
// Reports whether an impulse was applied.
func ResolvePair(a, b *Body, epsilon float32, separate bool) bool {
	delta := b.Pos.Sub(a.Pos)
	dist := delta.Len()
	if dist < minContactDistance {
		b.Pos[0] += epsilon
		delta = b.Pos.Sub(a.Pos)
		dist = delta.Len()
		if dist < minContactDistance {
			delta = mgl32.Vec2{1, 0}
			dist = 1
		}
	}
	n := delta.Mul(1 / dist)

	if separate {
		if overlap := a.Radius + b.Radius - dist; overlap > 0 {
			total := a.Mass + b.Mass
			a.Pos = a.Pos.Sub(n.Mul(overlap * b.Mass / total))
			b.Pos = b.Pos.Add(n.Mul(overlap * a.Mass / total))
		}
	}

	van := a.Vel.Dot(n)
	vbn := b.Vel.Dot(n)
	if van-vbn <= 0 {
		return false
	}

	total := a.Mass + b.Mass
	newA := ((a.Mass-b.Mass)*van + 2*b.Mass*vbn) / total
	newB := ((b.Mass-a.Mass)*vbn + 2*a.Mass*van) / total
	a.Vel = a.Vel.Add(n.Mul(newA - van))
	b.Vel = b.Vel.Add(n.Mul(newB - vbn))
	return true
}

// CollisionConfig holds the collision tuning.
type CollisionConfig struct {
	Epsilon  float32
	Separate bool
	// Border containment reapplied after separation
	Restitution      float32
	BorderCollisions bool
}

type contact struct {
	a, b components.SlotID
}

// CollisionResolver finds overlapping pairs among grid participants and
// resolves them. Detection is parallel; resolution is a single sequential
// pass in (a, b) slot order so every velocity has one writer.
type CollisionResolver struct {
	cfg          CollisionConfig
	buffers      [][]contact
	pairs        []contact
	participants []components.SlotID
}

// NewCollisionResolver creates a resolver.
func NewCollisionResolver(cfg CollisionConfig) *CollisionResolver {
	return &CollisionResolver{cfg: cfg}
}

// Participants returns the live particles with the Intercollision bit.
// The slice is reused between calls.
func (r *CollisionResolver) Participants(pool *Pool) []components.SlotID {
	r.participants = r.participants[:0]
	for _, slot := range pool.Live() {
		if pool.alive[slot] && pool.mask[slot].Has(behavior.Intercollision) {
			r.participants = append(r.participants, slot)
		}
	}
	return r.participants
}

// Detect collects the overlapping candidate pairs of the last grid build,
// each once with a < b, sorted.
func (r *CollisionResolver) Detect(pool *Pool, grid *SpatialGrid, run ParallelFor) int {
	workers := run.Workers()
	for len(r.buffers) < workers {
		r.buffers = append(r.buffers, nil)
	}
	for i := range r.buffers {
		r.buffers[i] = r.buffers[i][:0]
	}

	participants := grid.Participants()
	run.For(len(participants), func(worker, start, end int) {
		buf := r.buffers[worker]
		for i := start; i < end; i++ {
			a := participants[i]
			pa, ra := pool.pos[a], pool.radius[a]
			for _, b := range grid.Candidates(grid.Range(i)) {
				if b <= a {
					continue
				}
				if CollisionCheck(pa, pool.pos[b], ra, pool.radius[b]) {
					buf = append(buf, contact{a, b})
				}
			}
		}
		r.buffers[worker] = buf
	})

	r.pairs = r.pairs[:0]
	for _, buf := range r.buffers {
		r.pairs = append(r.pairs, buf...)
	}
	slices.SortFunc(r.pairs, func(x, y contact) int {
		if c := cmp.Compare(x.a, y.a); c != 0 {
			return c
		}
		return cmp.Compare(x.b, y.b)
	})
	return len(r.pairs)
}

// Resolve detects and resolves collisions. Returns the number of pairs that
// received an impulse.
func (r *CollisionResolver) Resolve(pool *Pool, grid *SpatialGrid, run ParallelFor) int {
	if r.Detect(pool, grid, run) == 0 {
		return 0
	}
	resolved := 0
	for _, c := range r.pairs {
		a := Body{Pos: pool.pos[c.a], Vel: pool.vel[c.a], Radius: pool.radius[c.a], Mass: pool.mass[c.a]}
		b := Body{Pos: pool.pos[c.b], Vel: pool.vel[c.b], Radius: pool.radius[c.b], Mass: pool.mass[c.b]}
		if ResolvePair(&a, &b, r.cfg.Epsilon, r.cfg.Separate) {
			resolved++
		}
		pool.pos[c.a], pool.vel[c.a] = a.Pos, a.Vel
		pool.pos[c.b], pool.vel[c.b] = b.Pos, b.Vel
	}
	r.contain(pool, grid.Bounds())
	return resolved
}

// contain clamps the border-bound members of every pair back inside the
// viewport, since separation and the epsilon nudge move positions after the
// integrator's border pass.
func (r *CollisionResolver) contain(pool *Pool, size mgl32.Vec2) {
	for _, c := range r.pairs {
		for _, slot := range [2]components.SlotID{c.a, c.b} {
			if !r.cfg.BorderCollisions && !pool.mask[slot].Has(behavior.BorderBound) {
				continue
			}
			pool.pos[slot], pool.vel[slot] = Contain(pool.pos[slot], pool.vel[slot], pool.radius[slot], size, r.cfg.Restitution)
		}
	}
}

// Pairs returns the contacts found by the last Detect.
func (r *CollisionResolver) Pairs() int { return len(r.pairs) }
