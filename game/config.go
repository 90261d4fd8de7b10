package game

// Options holds run parameters that come from the command line rather than
// the config file.
type Options struct {
	Seed           int64
	LogStats       bool    // log window stats and perf via slog
	StatsWindowSec float64 // telemetry window, 0 = telemetry.stats_window
	OutputDir      string  // CSV + config output, empty = disabled
	Headless       bool    // no raylib calls
	StepsPerUpdate int     // simulation frames per Update call
	Workers        int     // overrides sim.workers when > 0
}

// Controls is the key legend shown at the bottom of the screen.
const Controls = "[LMB] add particles  [RMB] attract  [E] emitter  [Tab] select  [Del] remove  " +
	"[C] clear  [G] gravity  [F] flow  [P] perf  [H] panel  [Space] pause  [</>] speed"
