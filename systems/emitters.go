package systems

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/swarm/behavior"
	"github.com/pthm-cable/swarm/components"
)

var (
	// ErrInvalidEmitterID is returned for ids that name no live emitter.
	ErrInvalidEmitterID = errors.New("unknown emitter id")
	// ErrInvalidEmitterSpec is returned when an emitter spec fails validation.
	ErrInvalidEmitterSpec = errors.New("invalid emitter spec")
)

// RemovePolicy decides what happens to an emitter's particles on removal.
type RemovePolicy uint8

const (
	RemoveOrphan RemovePolicy = iota // Particles live on without an owner
	RemoveKill                       // Particles die with the emitter
)

// ParseRemovePolicy converts a config value. Empty means orphan.
func ParseRemovePolicy(s string) (RemovePolicy, error) {
	switch s {
	case "", "orphan":
		return RemoveOrphan, nil
	case "kill":
		return RemoveKill, nil
	}
	return RemoveOrphan, fmt.Errorf("unknown remove policy %q", s)
}

// EmitterOptions configures an EmitterManager.
type EmitterOptions struct {
	Seed         int64
	Capacity     int // pool capacity; bounds the sum of budgets
	RemovePolicy RemovePolicy
	FollowMouse  bool // the selected emitter tracks the mouse
}

// EmitterCounts reports the spawn activity of one update.
type EmitterCounts struct {
	Spawned int
	Dropped int
}

// emitterStream is the per-emitter random stream.
type emitterStream struct {
	rng *RNG
}

// EmitterManager owns the emitters as ECS entities and spawns their
// particles into the pool.
type EmitterManager struct {
	world  *ecs.World
	mapper *ecs.Map3[components.EmitterSpec, components.EmitterState, emitterStream]
	filter *ecs.Filter3[components.EmitterSpec, components.EmitterState, emitterStream]

	ids       map[components.EmitterID]ecs.Entity
	nextID    components.EmitterID
	selected  components.EmitterID
	budgetSum int
	opts      EmitterOptions
}

// NewEmitterManager creates an empty manager.
func NewEmitterManager(opts EmitterOptions) *EmitterManager {
	world := ecs.NewWorld()
	return &EmitterManager{
		world:  world,
		mapper: ecs.NewMap3[components.EmitterSpec, components.EmitterState, emitterStream](world),
		filter: ecs.NewFilter3[components.EmitterSpec, components.EmitterState, emitterStream](world),
		ids:    make(map[components.EmitterID]ecs.Entity),
		nextID: 1,
		opts:   opts,
	}
}

// Len returns the number of emitters.
func (m *EmitterManager) Len() int { return len(m.ids) }

// BudgetTotal returns the sum of all emitter budgets.
func (m *EmitterManager) BudgetTotal() int { return m.budgetSum }

// Selected returns the selected emitter, or NoEmitter.
func (m *EmitterManager) Selected() components.EmitterID { return m.selected }

func validSpec(s *components.EmitterSpec) error {
	finite := func(vs ...float32) bool {
		for _, v := range vs {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return false
			}
		}
		return true
	}
	switch {
	case !finite(s.Position[0], s.Position[1], s.Direction[0], s.Direction[1],
		s.Speed, s.MaxSpeed, s.Spread, s.Rate, s.Radius, s.Mass, s.Lifetime):
		return fmt.Errorf("%w: non-finite value", ErrInvalidEmitterSpec)
	case !(s.Radius > 0) || !(s.Mass > 0):
		return fmt.Errorf("%w: radius and mass must be positive", ErrInvalidEmitterSpec)
	case s.Budget < 0 || s.Burst < 0 || s.Rate < 0 || s.Speed < 0 || s.MaxSpeed < 0 || s.Spread < 0:
		return fmt.Errorf("%w: negative budget, burst, rate, speed or spread", ErrInvalidEmitterSpec)
	case s.Behavior.Has(behavior.Lifetime) && !(s.Lifetime > 0):
		return fmt.Errorf("%w: lifetime behavior needs a positive lifetime", ErrInvalidEmitterSpec)
	}
	return nil
}

// Add validates spec and creates an inactive emitter. The budget is clamped
// so the sum of budgets never exceeds the pool capacity.
func (m *EmitterManager) Add(spec components.EmitterSpec) (components.EmitterID, error) {
	if err := validSpec(&spec); err != nil {
		return components.NoEmitter, err
	}
	spec.Direction = normalizeOr(spec.Direction, mgl32.Vec2{1, 0})
	if room := m.opts.Capacity - m.budgetSum; spec.Budget > room {
		spec.Budget = max(room, 0)
	}

	id := m.nextID
	m.nextID++
	state := components.EmitterState{ID: id, Phase: components.EmitterInactive}
	stream := emitterStream{rng: NewRNG(StreamSeed(m.opts.Seed, uint64(id)))}
	m.ids[id] = m.mapper.NewEntity(&spec, &state, &stream)
	m.budgetSum += spec.Budget
	return id, nil
}

// Remove releases the emitter's particles according to the remove policy
// and deletes the emitter. The emitter is in the removing phase only for the
// duration of the call; Update never sees it.
func (m *EmitterManager) Remove(id components.EmitterID, pool *Pool) error {
	entity, ok := m.ids[id]
	if !ok {
		return fmt.Errorf("remove emitter %d: %w", id, ErrInvalidEmitterID)
	}
	spec, state, _ := m.mapper.Get(entity)
	state.Phase = components.EmitterRemoving

	switch m.opts.RemovePolicy {
	case RemoveKill:
		pool.KillOwnedBy(id)
	default:
		pool.Orphan(id)
	}

	m.budgetSum -= spec.Budget
	delete(m.ids, id)
	if m.selected == id {
		m.selected = components.NoEmitter
	}
	m.world.RemoveEntity(entity)
	return nil
}

// Select marks an emitter as selected. NoEmitter clears the selection.
func (m *EmitterManager) Select(id components.EmitterID) error {
	if id == components.NoEmitter {
		m.selected = components.NoEmitter
		return nil
	}
	if _, ok := m.ids[id]; !ok {
		return fmt.Errorf("select emitter %d: %w", id, ErrInvalidEmitterID)
	}
	m.selected = id
	return nil
}

// Move sets an emitter's position.
func (m *EmitterManager) Move(id components.EmitterID, pos mgl32.Vec2) error {
	entity, ok := m.ids[id]
	if !ok {
		return fmt.Errorf("move emitter %d: %w", id, ErrInvalidEmitterID)
	}
	spec, _, _ := m.mapper.Get(entity)
	spec.Position = pos
	return nil
}

// Update activates new emitters (spawning their burst) and spawns rate-based
// particles for active emitters that can add particles. Requests beyond the
// emitter's remaining budget or the pool's free slots are dropped.
func (m *EmitterManager) Update(pool *Pool, dt float32, mouse mgl32.Vec2) EmitterCounts {
	var counts EmitterCounts
	query := m.filter.Query()
	for query.Next() {
		spec, state, stream := query.Get()

		if m.opts.FollowMouse && state.ID == m.selected {
			spec.Position = mouse
		}

		request := 0
		if state.Phase == components.EmitterInactive {
			state.Phase = components.EmitterActive
			request = spec.Burst
		}
		if spec.Behavior.Has(behavior.CanAddParticles) && spec.Rate > 0 {
			state.SpawnAcc += spec.Rate * dt
			n := int(state.SpawnAcc)
			state.SpawnAcc -= float32(n)
			request += n
		}
		if request == 0 {
			continue
		}

		allowed := min(request, spec.Budget-pool.OwnedBy(state.ID), pool.Free())
		allowed = max(allowed, 0)
		spawned := 0
		for i := 0; i < allowed; i++ {
			if _, err := pool.Spawn(m.particleFor(spec, state.ID, stream.rng)); err != nil {
				break
			}
			spawned++
		}
		state.Spawned += spawned
		state.Dropped += request - spawned
		counts.Spawned += spawned
		counts.Dropped += request - spawned
	}
	return counts
}

// Reemit restarts respawned particles from their owning emitter: current
// position, a fresh direction within the spread cone and, for lifetime
// particles, a lifetime drawn from [0.5, 1] of the emitter's. Slots whose
// owner is gone keep their origin respawn. Returns the number re-emitted.
func (m *EmitterManager) Reemit(pool *Pool, slots []components.SlotID) int {
	n := 0
	for _, slot := range slots {
		id := pool.Owner(slot)
		entity, ok := m.ids[id]
		if !ok {
			continue
		}
		spec, _, stream := m.mapper.Get(entity)
		init := m.particleFor(spec, id, stream.rng)
		if init.Lifetime > 0 {
			init.Lifetime *= stream.rng.NextInRange(0.5, 1)
		}
		pool.Reemit(slot, init.Pos, init.Vel, init.Lifetime)
		n++
	}
	return n
}

// particleFor builds a particle leaving the emitter, jittered within the
// spread cone.
func (m *EmitterManager) particleFor(spec *components.EmitterSpec, id components.EmitterID, rng *RNG) components.ParticleInit {
	dir := spec.Direction
	if spec.Spread > 0 {
		dir = rotate(dir, rng.NextInRange(-spec.Spread/2, spec.Spread/2))
	}
	init := components.ParticleInit{
		Pos:      spec.Position,
		Vel:      dir.Mul(spec.Speed),
		Radius:   spec.Radius,
		Mass:     spec.Mass,
		Color:    spec.Color,
		MaxSpeed: spec.MaxSpeed,
		Owner:    id,
		Behavior: spec.Behavior,
	}
	if spec.Behavior.Has(behavior.Lifetime) {
		init.Lifetime = spec.Lifetime
	}
	return init
}

// Views appends a read-only description of every emitter to dst, ordered
// by id.
func (m *EmitterManager) Views(pool *Pool, dst []components.EmitterView) []components.EmitterView {
	dst = dst[:0]
	query := m.filter.Query()
	for query.Next() {
		spec, state, _ := query.Get()
		dst = append(dst, components.EmitterView{
			ID:        state.ID,
			Position:  spec.Position,
			Direction: spec.Direction,
			Color:     spec.Color,
			Phase:     state.Phase,
			Behavior:  spec.Behavior,
			Owned:     pool.OwnedBy(state.ID),
			Budget:    spec.Budget,
			Selected:  state.ID == m.selected,
		})
	}
	slices.SortFunc(dst, func(a, b components.EmitterView) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return dst
}

// Spec returns a copy of an emitter's spec.
func (m *EmitterManager) Spec(id components.EmitterID) (components.EmitterSpec, error) {
	entity, ok := m.ids[id]
	if !ok {
		return components.EmitterSpec{}, fmt.Errorf("emitter %d: %w", id, ErrInvalidEmitterID)
	}
	spec, _, _ := m.mapper.Get(entity)
	return *spec, nil
}

// State returns a copy of an emitter's bookkeeping.
func (m *EmitterManager) State(id components.EmitterID) (components.EmitterState, error) {
	entity, ok := m.ids[id]
	if !ok {
		return components.EmitterState{}, fmt.Errorf("emitter %d: %w", id, ErrInvalidEmitterID)
	}
	_, state, _ := m.mapper.Get(entity)
	return *state, nil
}
