package sim

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
	"github.com/pthm-cable/swarm/systems"
	"github.com/pthm-cable/swarm/telemetry"
)

// FrameStats counts what happened during one frame.
type FrameStats struct {
	Spawned       int // emitters and spawn commands
	Dropped       int // emitter requests over budget or capacity
	Expired       int
	Escaped       int
	Respawned     int
	Freed         int
	Participants  int
	Candidates    int
	Contacts      int
	Collisions    int
	CommandErrors int
}

// LogValue implements slog.LogValuer.
func (f FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("spawned", f.Spawned),
		slog.Int("dropped", f.Dropped),
		slog.Int("expired", f.Expired),
		slog.Int("escaped", f.Escaped),
		slog.Int("respawned", f.Respawned),
		slog.Int("contacts", f.Contacts),
		slog.Int("collisions", f.Collisions),
		slog.Int("command_errors", f.CommandErrors),
	)
}

// Counts converts the frame's event counts for a telemetry collector.
func (f FrameStats) Counts() telemetry.FrameCounts {
	return telemetry.FrameCounts{
		Spawned:       f.Spawned,
		Dropped:       f.Dropped,
		Expired:       f.Expired,
		Escaped:       f.Escaped,
		Respawned:     f.Respawned,
		Contacts:      f.Contacts,
		Collisions:    f.Collisions,
		CommandErrors: f.CommandErrors,
	}
}

// Snapshot is the read-only result of a frame. Index i of every slice
// describes the same particle. Buffers are reused: a snapshot is valid until
// the next Step.
type Snapshot struct {
	Positions  []mgl32.Vec2
	Velocities []mgl32.Vec2
	Radii      []float32
	Masses     []float32
	Colors     []mgl32.Vec4
	Count      int

	Emitters []components.EmitterView
	Viewport mgl32.Vec2
	Frame    uint64
	Time     float32
	Stats    FrameStats
}

// fill copies the live particles in iteration order. Lifetime particles
// fade: color alpha is scaled by the remaining share of their life.
func (s *Snapshot) fill(pool *systems.Pool) {
	live := pool.Live()
	n := len(live)
	s.Positions = s.Positions[:0]
	s.Velocities = s.Velocities[:0]
	s.Radii = s.Radii[:0]
	s.Masses = s.Masses[:0]
	s.Colors = s.Colors[:0]
	for _, slot := range live {
		s.Positions = append(s.Positions, pool.Pos(slot))
		s.Velocities = append(s.Velocities, pool.Vel(slot))
		s.Radii = append(s.Radii, pool.Radius(slot))
		s.Masses = append(s.Masses, pool.Mass(slot))
		c := pool.Color(slot)
		c[3] *= pool.LifeFraction(slot)
		s.Colors = append(s.Colors, c)
	}
	s.Count = n
}

// KineticEnergy returns 0.5*m*v^2 per particle, appended to dst.
func (s *Snapshot) KineticEnergy(dst []float64) []float64 {
	dst = dst[:0]
	for i := 0; i < s.Count; i++ {
		v := s.Velocities[i]
		dst = append(dst, 0.5*float64(s.Masses[i])*float64(v.Dot(v)))
	}
	return dst
}

// Speeds returns each particle's speed, appended to dst.
func (s *Snapshot) Speeds(dst []float64) []float64 {
	dst = dst[:0]
	for i := 0; i < s.Count; i++ {
		dst = append(dst, float64(s.Velocities[i].Len()))
	}
	return dst
}
