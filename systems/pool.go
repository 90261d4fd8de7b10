package systems

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/behavior"
	"github.com/pthm-cable/swarm/components"
)

var (
	// ErrCapacityExceeded is returned when a spawn finds no free slot.
	ErrCapacityExceeded = errors.New("particle pool at capacity")
	// ErrInvalidParticle is returned for spawns with non-positive mass or radius.
	ErrInvalidParticle = errors.New("particle mass and radius must be positive")
)

// Pool is a fixed-capacity structure-of-arrays particle store.
//
// Attributes are indexed by SlotID. Live slots are also kept in a dense list
// so iteration never touches dead slots. Between Lock and Commit the live list
// is frozen: Kill only clears the alive flag and Spawn defers insertion, so
// stages can iterate Live() safely.
type Pool struct {
	capacity int

	pos         []mgl32.Vec2
	vel         []mgl32.Vec2
	radius      []float32
	mass        []float32
	color       []mgl32.Vec4
	alive       []bool
	lifetime    []float32
	maxLifetime []float32
	maxSpeed    []float32
	owner       []components.EmitterID
	mask        []behavior.Mask
	origin      []mgl32.Vec2
	originVel   []mgl32.Vec2

	free    []components.SlotID // stack of dead slots
	live    []components.SlotID // dense iteration order
	livePos []int32             // slot -> index in live, -1 when absent
	pending []components.SlotID // spawned while locked

	owned     map[components.EmitterID]int
	locked    bool
	maxRadius float32
}

// NewPool creates a pool holding at most capacity particles.
func NewPool(capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	p := &Pool{
		capacity:    capacity,
		pos:         make([]mgl32.Vec2, capacity),
		vel:         make([]mgl32.Vec2, capacity),
		radius:      make([]float32, capacity),
		mass:        make([]float32, capacity),
		color:       make([]mgl32.Vec4, capacity),
		alive:       make([]bool, capacity),
		lifetime:    make([]float32, capacity),
		maxLifetime: make([]float32, capacity),
		maxSpeed:    make([]float32, capacity),
		owner:       make([]components.EmitterID, capacity),
		mask:        make([]behavior.Mask, capacity),
		origin:      make([]mgl32.Vec2, capacity),
		originVel:   make([]mgl32.Vec2, capacity),
		free:        make([]components.SlotID, 0, capacity),
		live:        make([]components.SlotID, 0, capacity),
		livePos:     make([]int32, capacity),
		owned:       make(map[components.EmitterID]int),
	}
	p.resetFree()
	return p
}

// resetFree refills the free stack so the lowest slot is handed out first.
func (p *Pool) resetFree() {
	p.free = p.free[:0]
	for i := p.capacity - 1; i >= 0; i-- {
		p.free = append(p.free, components.SlotID(i))
		p.livePos[i] = -1
	}
}

// Cap returns the fixed capacity.
func (p *Pool) Cap() int { return p.capacity }

// Len returns the number of iterable live particles.
func (p *Pool) Len() int { return len(p.live) }

// Free returns the number of slots available to Spawn.
func (p *Pool) Free() int { return len(p.free) }

// Live returns the dense list of live slots. The slice is owned by the pool
// and only valid until the next structural change.
func (p *Pool) Live() []components.SlotID { return p.live }

// OwnedBy returns how many allocated particles the emitter owns.
func (p *Pool) OwnedBy(id components.EmitterID) int { return p.owned[id] }

// MaxRadius returns the largest radius spawned since the last Clear.
func (p *Pool) MaxRadius() float32 { return p.maxRadius }

// Locked reports whether a frame is in progress.
func (p *Pool) Locked() bool { return p.locked }

// Spawn allocates a slot for a new particle.
func (p *Pool) Spawn(init components.ParticleInit) (components.SlotID, error) {
	if !(init.Mass > 0) || !(init.Radius > 0) || isNaN(init.Pos[0]) || isNaN(init.Pos[1]) {
		return 0, ErrInvalidParticle
	}
	n := len(p.free)
	if n == 0 {
		return 0, ErrCapacityExceeded
	}
	slot := p.free[n-1]
	p.free = p.free[:n-1]

	p.pos[slot] = init.Pos
	p.vel[slot] = init.Vel
	p.radius[slot] = init.Radius
	p.mass[slot] = init.Mass
	p.color[slot] = init.Color
	p.alive[slot] = true
	p.lifetime[slot] = init.Lifetime
	p.maxLifetime[slot] = init.Lifetime
	p.maxSpeed[slot] = init.MaxSpeed
	p.owner[slot] = init.Owner
	p.mask[slot] = init.Behavior
	p.origin[slot] = init.Pos
	p.originVel[slot] = init.Vel
	if init.Radius > p.maxRadius {
		p.maxRadius = init.Radius
	}

	if init.Owner != components.NoEmitter {
		p.owned[init.Owner]++
	}

	if p.locked {
		p.pending = append(p.pending, slot)
	} else {
		p.appendLive(slot)
	}
	return slot, nil
}

// Kill marks a slot dead. Outside a frame the slot returns to the free list
// immediately; inside a frame it is released by Commit.
func (p *Pool) Kill(slot components.SlotID) {
	if int(slot) >= p.capacity || !p.alive[slot] {
		return
	}
	p.alive[slot] = false
	if p.locked {
		return
	}
	p.removeLive(slot)
	p.release(slot)
}

// Clear kills every particle. Must not be called while a stage iterates Live().
func (p *Pool) Clear() {
	for _, slot := range p.live {
		p.alive[slot] = false
		p.owner[slot] = components.NoEmitter
	}
	for _, slot := range p.pending {
		p.alive[slot] = false
		p.owner[slot] = components.NoEmitter
	}
	p.live = p.live[:0]
	p.pending = p.pending[:0]
	for id := range p.owned {
		delete(p.owned, id)
	}
	p.maxRadius = 0
	p.resetFree()
}

// Lock begins a frame. Structural changes are deferred until Commit.
func (p *Pool) Lock() {
	p.locked = true
}

// Commit ends a frame: dead slots are returned to the free list and pending
// spawns join the live list. Live order of survivors is preserved.
// Returns the number of slots freed.
func (p *Pool) Commit() int {
	freed := 0
	kept := 0
	for _, slot := range p.live {
		if p.alive[slot] {
			p.live[kept] = slot
			p.livePos[slot] = int32(kept)
			kept++
			continue
		}
		p.livePos[slot] = -1
		p.release(slot)
		freed++
	}
	p.live = p.live[:kept]

	for _, slot := range p.pending {
		if p.alive[slot] {
			p.appendLive(slot)
			continue
		}
		p.release(slot)
		freed++
	}
	p.pending = p.pending[:0]
	p.locked = false
	return freed
}

// Orphan detaches every particle owned by id. The particles keep their
// behavior mask.
func (p *Pool) Orphan(id components.EmitterID) int {
	if id == components.NoEmitter {
		return 0
	}
	n := 0
	detach := func(slots []components.SlotID) {
		for _, slot := range slots {
			if p.owner[slot] == id {
				p.owner[slot] = components.NoEmitter
				n++
			}
		}
	}
	detach(p.live)
	detach(p.pending)
	delete(p.owned, id)
	return n
}

// KillOwnedBy kills every particle owned by id.
func (p *Pool) KillOwnedBy(id components.EmitterID) int {
	if id == components.NoEmitter {
		return 0
	}
	var victims []components.SlotID
	for _, slot := range p.live {
		if p.owner[slot] == id && p.alive[slot] {
			victims = append(victims, slot)
		}
	}
	for _, slot := range p.pending {
		if p.owner[slot] == id && p.alive[slot] {
			victims = append(victims, slot)
		}
	}
	for _, slot := range victims {
		p.Kill(slot)
	}
	return len(victims)
}

// Get returns a copy of a slot's attributes.
func (p *Pool) Get(slot components.SlotID) components.Particle {
	return components.Particle{
		Pos:         p.pos[slot],
		Vel:         p.vel[slot],
		Radius:      p.radius[slot],
		Mass:        p.mass[slot],
		Color:       p.color[slot],
		Alive:       p.alive[slot],
		Lifetime:    p.lifetime[slot],
		MaxLifetime: p.maxLifetime[slot],
		MaxSpeed:    p.maxSpeed[slot],
		Owner:       p.owner[slot],
		Behavior:    p.mask[slot],
		Origin:      p.origin[slot],
		OriginVel:   p.originVel[slot],
	}
}

// Pos returns a slot's position.
func (p *Pool) Pos(slot components.SlotID) mgl32.Vec2 { return p.pos[slot] }

// Vel returns a slot's velocity.
func (p *Pool) Vel(slot components.SlotID) mgl32.Vec2 { return p.vel[slot] }

// Radius returns a slot's radius.
func (p *Pool) Radius(slot components.SlotID) float32 { return p.radius[slot] }

// Mass returns a slot's mass.
func (p *Pool) Mass(slot components.SlotID) float32 { return p.mass[slot] }

// Color returns a slot's color.
func (p *Pool) Color(slot components.SlotID) mgl32.Vec4 { return p.color[slot] }

// Behavior returns a slot's behavior mask.
func (p *Pool) Behavior(slot components.SlotID) behavior.Mask { return p.mask[slot] }

// Owner returns a slot's owning emitter, or NoEmitter.
func (p *Pool) Owner(slot components.SlotID) components.EmitterID { return p.owner[slot] }

// LifeFraction returns the remaining share of a lifetime particle's life in
// [0, 1], or 1 for particles without the Lifetime bit.
func (p *Pool) LifeFraction(slot components.SlotID) float32 {
	if !p.mask[slot].Has(behavior.Lifetime) || !(p.maxLifetime[slot] > 0) {
		return 1
	}
	return clampFloat(p.lifetime[slot]/p.maxLifetime[slot], 0, 1)
}

// Reemit restarts a live particle from a new emission state. The state also
// becomes its respawn origin.
func (p *Pool) Reemit(slot components.SlotID, pos, vel mgl32.Vec2, lifetime float32) {
	p.pos[slot] = pos
	p.vel[slot] = vel
	p.origin[slot] = pos
	p.originVel[slot] = vel
	p.lifetime[slot] = lifetime
	p.maxLifetime[slot] = lifetime
}

// SetVel overwrites a slot's velocity.
func (p *Pool) SetVel(slot components.SlotID, v mgl32.Vec2) { p.vel[slot] = v }

// SetPos overwrites a slot's position.
func (p *Pool) SetPos(slot components.SlotID, v mgl32.Vec2) { p.pos[slot] = v }

func (p *Pool) appendLive(slot components.SlotID) {
	p.livePos[slot] = int32(len(p.live))
	p.live = append(p.live, slot)
}

// removeLive swap-removes a slot from the live list.
func (p *Pool) removeLive(slot components.SlotID) {
	i := p.livePos[slot]
	if i < 0 {
		return
	}
	last := len(p.live) - 1
	moved := p.live[last]
	p.live[i] = moved
	p.livePos[moved] = i
	p.live = p.live[:last]
	p.livePos[slot] = -1
}

// release returns a dead slot to the free list and drops its ownership.
func (p *Pool) release(slot components.SlotID) {
	if id := p.owner[slot]; id != components.NoEmitter {
		if p.owned[id]--; p.owned[id] <= 0 {
			delete(p.owned, id)
		}
		p.owner[slot] = components.NoEmitter
	}
	p.free = append(p.free, slot)
}

func isNaN(f float32) bool {
	return math.IsNaN(float64(f))
}
