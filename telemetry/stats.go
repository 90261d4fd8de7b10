package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	RunID            string  `csv:"run_id"`
	WindowStartFrame uint64  `csv:"-"`
	WindowEndFrame   uint64  `csv:"window_end"`
	SimTimeSec       float64 `csv:"sim_time"`

	// Population at window end
	Particles int `csv:"particles"`
	Emitters  int `csv:"emitters"`

	// Events during window
	Spawned       int `csv:"spawned"`
	Dropped       int `csv:"dropped"`
	Expired       int `csv:"expired"`
	Escaped       int `csv:"escaped"`
	Respawned     int `csv:"respawned"`
	Contacts      int `csv:"contacts"`
	Collisions    int `csv:"collisions"`
	CommandErrors int `csv:"command_errors"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	KineticEnergy  float64 `csv:"kinetic_energy"`
	ContactsPerSec float64 `csv:"contacts_per_sec"`
}

// Distribution summarizes a sample. Zero for an empty sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes mean, sample standard deviation and empirical
// percentiles. values is not modified.
func Summarize(values []float64) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	var d Distribution
	d.Mean, d.Std = stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		d.Std = 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	d.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	d.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	d.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return d
}

// Total sums values.
func Total(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values)
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("window_start", s.WindowStartFrame),
		slog.Uint64("window_end", s.WindowEndFrame),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("emitters", s.Emitters),
		slog.Int("spawned", s.Spawned),
		slog.Int("dropped", s.Dropped),
		slog.Int("expired", s.Expired),
		slog.Int("escaped", s.Escaped),
		slog.Int("respawned", s.Respawned),
		slog.Int("contacts", s.Contacts),
		slog.Int("collisions", s.Collisions),
		slog.Int("command_errors", s.CommandErrors),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("kinetic_energy", s.KineticEnergy),
	)
}
