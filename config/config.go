// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen     ScreenConfig     `yaml:"screen"`
	World      WorldConfig      `yaml:"world"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Turbulence TurbulenceConfig `yaml:"turbulence"`
	Pool       PoolConfig       `yaml:"pool"`
	Particle   ParticleConfig   `yaml:"particle"`
	Emitters   EmittersConfig   `yaml:"emitters"`
	Sim        SimConfig        `yaml:"sim"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the simulated viewport dimensions.
type WorldConfig struct {
	Width  int `yaml:"width"`  // Viewport width in world units (0 = use screen width)
	Height int `yaml:"height"` // Viewport height in world units (0 = use screen height)
}

// PhysicsConfig holds simulation physics parameters.
type PhysicsConfig struct {
	DT    float64 `yaml:"dt"`     // Fallback step when the host passes a non-positive delta
	MaxDT float64 `yaml:"max_dt"` // Upper bound on a single step (limits tunneling after stalls)

	Gravity          [2]float64 `yaml:"gravity"`
	GravityEnabled   bool       `yaml:"gravity_enabled"`   // Initial state of the viewer's gravity toggle
	AttractForce     float64    `yaml:"attract_force"`     // Applied while the viewer's attract input is held
	AttractSoftening float64    `yaml:"attract_softening"` // Minimum distance used in the inverse-distance falloff
	AttractAll       bool       `yaml:"attract_all"`       // Attract every particle, not only those with the attracted bit
	Repel            bool       `yaml:"repel"`             // Invert the attraction force
	HomingStrength   float64    `yaml:"homing_strength"`
	Drag             float64    `yaml:"drag"`        // Linear velocity damping per second
	Restitution      float64    `yaml:"restitution"` // Border bounce factor (1 = elastic)

	MaxRadius        float64 `yaml:"max_radius"`        // Largest particle radius the grid must handle
	GridCellSize     float64 `yaml:"grid_cell_size"`    // Explicit cell size (0 = derive from max_radius)
	CellSizeFactor   float64 `yaml:"cell_size_factor"`  // cell = factor * max_radius, at least 2
	CollisionEpsilon float64 `yaml:"collision_epsilon"` // Perturbation for coincident centers
	Separate         bool    `yaml:"separate"`          // Push overlapping pairs apart after the impulse

	EnableCollisions       bool `yaml:"enable_collisions"`
	EnableBorderCollisions bool `yaml:"enable_border_collisions"` // Treat every particle as border-bound
}

// TurbulenceConfig holds the noise flow field parameters.
type TurbulenceConfig struct {
	Strength  float64 `yaml:"strength"`   // Acceleration magnitude
	Scale     float64 `yaml:"scale"`      // Spatial frequency (per world unit)
	TimeSpeed float64 `yaml:"time_speed"` // Field animation speed (0 = static)
}

// PoolConfig holds particle pool parameters.
type PoolConfig struct {
	Capacity int `yaml:"capacity"` // Fixed maximum particle count
}

// ParticleConfig holds defaults for directly spawned particles.
type ParticleConfig struct {
	Radius    float64    `yaml:"radius"`
	Mass      float64    `yaml:"mass"`
	Color     [4]float64 `yaml:"color"`
	Lifetime  float64    `yaml:"lifetime"`
	Behaviors []string   `yaml:"behaviors"`
}

// EmitterConfig describes one emitter created at startup.
type EmitterConfig struct {
	Position  [2]float64 `yaml:"position"`
	Direction [2]float64 `yaml:"direction"`
	Speed     float64    `yaml:"speed"`
	MaxSpeed  float64    `yaml:"max_speed"`
	Spread    float64    `yaml:"spread"` // Full cone angle in radians
	Rate      float64    `yaml:"rate"`   // Particles per second
	Burst     int        `yaml:"burst"`  // Particles spawned on activation
	Budget    int        `yaml:"budget"` // Maximum owned particles
	Radius    float64    `yaml:"radius"`
	Mass      float64    `yaml:"mass"`
	Color     [4]float64 `yaml:"color"`
	Lifetime  float64    `yaml:"lifetime"`
	Behaviors []string   `yaml:"behaviors"`
}

// EmittersConfig holds emitter manager settings.
type EmittersConfig struct {
	RemovePolicy         string          `yaml:"remove_policy"` // "orphan" or "kill"
	SelectedFollowsMouse bool            `yaml:"selected_follows_mouse"`
	Initial              []EmitterConfig `yaml:"initial"`
}

// SimConfig holds scheduling parameters.
type SimConfig struct {
	ParallelThreshold int `yaml:"parallel_threshold"` // Minimum items before a stage fans out to workers
	Workers           int `yaml:"workers"`            // Worker count (0 = GOMAXPROCS)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32      float32 // Physics.DT as float32
	ScreenW32 float32 // Screen.Width as float32
	ScreenH32 float32 // Screen.Height as float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects values the simulation cannot run with.
func (c *Config) validate() error {
	if c.Pool.Capacity <= 0 {
		return fmt.Errorf("pool.capacity must be positive, got %d", c.Pool.Capacity)
	}
	if c.Physics.MaxRadius <= 0 {
		return fmt.Errorf("physics.max_radius must be positive, got %g", c.Physics.MaxRadius)
	}
	if c.Particle.Radius <= 0 || c.Particle.Mass <= 0 {
		return fmt.Errorf("particle radius and mass must be positive, got %g and %g", c.Particle.Radius, c.Particle.Mass)
	}
	switch c.Emitters.RemovePolicy {
	case "", "orphan", "kill":
	default:
		return fmt.Errorf("emitters.remove_policy must be orphan or kill, got %q", c.Emitters.RemovePolicy)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Physics.DT <= 0 {
		c.Physics.DT = 1.0 / 60.0
	}
	if c.Physics.MaxDT < c.Physics.DT {
		c.Physics.MaxDT = c.Physics.DT
	}
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	if c.Emitters.RemovePolicy == "" {
		c.Emitters.RemovePolicy = "orphan"
	}
}

// ViewportSize returns the simulated viewport, defaulting to the screen size.
func (c *Config) ViewportSize() (w, h int) {
	w, h = c.World.Width, c.World.Height
	if w == 0 {
		w = c.Screen.Width
	}
	if h == 0 {
		h = c.Screen.Height
	}
	return w, h
}

// CellSize returns the effective grid cell size. An explicit grid_cell_size
// wins; otherwise the size is cell_size_factor * max_radius with the factor
// floored at 2 so a cell always spans a full particle diameter.
func (c *Config) CellSize() float64 {
	if c.Physics.GridCellSize > 0 {
		return c.Physics.GridCellSize
	}
	factor := c.Physics.CellSizeFactor
	if factor < 2 {
		factor = 2
	}
	return factor * c.Physics.MaxRadius
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
