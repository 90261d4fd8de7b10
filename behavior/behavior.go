// Package behavior defines the per-particle behavior mask.
//
// An emitter's capability flags are copied into every particle it spawns, so
// a particle stays governed by the same rules after its emitter is removed.
package behavior

import (
	"fmt"
	"strings"
)

// Mask is a set of behavior bits.
type Mask uint16

const (
	Homing          Mask = 1 << iota // Steers toward the mouse position
	Lifetime                         // Counts down and expires
	BorderBound                      // Bounces off the viewport edges
	Intercollision                   // Collides with other intercollision particles
	CanAddParticles                  // Emitter keeps spawning at its rate (emitter-level)
	Respawns                         // Returns to its spawn point instead of dying
	Attracted                        // Pulled toward the attract point
	Turbulence                       // Pushed by the noise flow field
)

// None is the empty mask.
const None Mask = 0

// Has checks if a mask contains any of the given bits.
func (m Mask) Has(other Mask) bool {
	return m&other != 0
}

// Add adds bits to the mask.
func (m Mask) Add(other Mask) Mask {
	return m | other
}

// Remove removes bits from the mask.
func (m Mask) Remove(other Mask) Mask {
	return m &^ other
}

// names maps config names to bits, in bit order.
var names = []struct {
	name string
	bit  Mask
}{
	{"homing", Homing},
	{"lifetime", Lifetime},
	{"border_bound", BorderBound},
	{"intercollision", Intercollision},
	{"can_add_particles", CanAddParticles},
	{"respawns", Respawns},
	{"attracted", Attracted},
	{"turbulence", Turbulence},
}

// Parse converts config names (e.g. "border_bound") into a mask.
func Parse(list []string) (Mask, error) {
	var m Mask
	for _, raw := range list {
		name := strings.ToLower(strings.TrimSpace(raw))
		found := false
		for _, n := range names {
			if n.name == name {
				m |= n.bit
				found = true
				break
			}
		}
		if !found {
			return m, fmt.Errorf("unknown behavior %q", raw)
		}
	}
	return m, nil
}

// Names returns the config names of the bits set in m.
func (m Mask) Names() []string {
	var out []string
	for _, n := range names {
		if m.Has(n.bit) {
			out = append(out, n.name)
		}
	}
	return out
}

// String renders the mask as a pipe-separated list.
func (m Mask) String() string {
	if m == None {
		return "none"
	}
	return strings.Join(m.Names(), "|")
}

// All lists every bit in declaration order, for UI toggles.
func All() []Mask {
	out := make([]Mask, len(names))
	for i, n := range names {
		out[i] = n.bit
	}
	return out
}
