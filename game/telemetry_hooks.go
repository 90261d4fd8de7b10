package game

import "log/slog"

// flushTelemetry closes the stats window when it is due.
func (g *Game) flushTelemetry() {
	frame := g.sim.Frame()
	if !g.collector.ShouldFlush(frame) {
		return
	}

	g.speedBuf = g.snap.Speeds(g.speedBuf)
	g.energyBuf = g.snap.KineticEnergy(g.energyBuf)

	stats := g.collector.Flush(frame, float64(g.snap.Time), g.snap.Count, len(g.snap.Emitters), g.speedBuf, g.energyBuf)
	perfStats := g.perf.Stats()

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		slog.Info("stats", "window", stats)
		slog.Info("perf", "window", perfStats)
	}

	if g.output != nil {
		if err := g.output.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.output.WritePerf(perfStats, stats.WindowEndFrame); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
