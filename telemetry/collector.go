package telemetry

// FrameCounts holds the per-frame event counts fed into a Collector.
type FrameCounts struct {
	Spawned       int
	Dropped       int
	Expired       int
	Escaped       int
	Respawned     int
	Contacts      int
	Collisions    int
	CommandErrors int
}

// Collector accumulates frame counts within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec    float64
	windowDurationFrames uint64

	windowStartFrame uint64
	windowStartTime  float64
	counts           FrameCounts
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: nominal seconds per frame (used for frame-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	framesPerWindow := uint64(1)
	if dt > 0 && windowDurationSec > float64(dt) {
		framesPerWindow = uint64(windowDurationSec / float64(dt))
	}
	return &Collector{
		windowDurationSec:    windowDurationSec,
		windowDurationFrames: framesPerWindow,
	}
}

// Record adds one frame's counts to the current window.
func (c *Collector) Record(f FrameCounts) {
	c.counts.Spawned += f.Spawned
	c.counts.Dropped += f.Dropped
	c.counts.Expired += f.Expired
	c.counts.Escaped += f.Escaped
	c.counts.Respawned += f.Respawned
	c.counts.Contacts += f.Contacts
	c.counts.Collisions += f.Collisions
	c.counts.CommandErrors += f.CommandErrors
}

// Counts returns the counts accumulated since the last flush.
func (c *Collector) Counts() FrameCounts {
	return c.counts
}

// ShouldFlush returns true if enough frames have passed to flush the window.
func (c *Collector) ShouldFlush(frame uint64) bool {
	return frame-c.windowStartFrame >= c.windowDurationFrames
}

// Flush produces a WindowStats and resets counters for the next window.
// speeds and energies are per-particle samples taken at window end.
func (c *Collector) Flush(frame uint64, simTime float64, particles, emitters int, speeds, energies []float64) WindowStats {
	speed := Summarize(speeds)

	var contactRate float64
	if elapsed := simTime - c.windowStartTime; elapsed > 0 {
		contactRate = float64(c.counts.Contacts) / elapsed
	}

	stats := WindowStats{
		WindowStartFrame: c.windowStartFrame,
		WindowEndFrame:   frame,
		SimTimeSec:       simTime,

		Particles: particles,
		Emitters:  emitters,

		Spawned:       c.counts.Spawned,
		Dropped:       c.counts.Dropped,
		Expired:       c.counts.Expired,
		Escaped:       c.counts.Escaped,
		Respawned:     c.counts.Respawned,
		Contacts:      c.counts.Contacts,
		Collisions:    c.counts.Collisions,
		CommandErrors: c.counts.CommandErrors,

		SpeedMean: speed.Mean,
		SpeedStd:  speed.Std,
		SpeedP10:  speed.P10,
		SpeedP50:  speed.P50,
		SpeedP90:  speed.P90,

		KineticEnergy:  Total(energies),
		ContactsPerSec: contactRate,
	}

	c.windowStartFrame = frame
	c.windowStartTime = simTime
	c.counts = FrameCounts{}

	return stats
}

// WindowDurationFrames returns the number of frames per window.
func (c *Collector) WindowDurationFrames() uint64 {
	return c.windowDurationFrames
}
