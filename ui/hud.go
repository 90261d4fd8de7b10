package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/swarm/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title          string
	Particles      int
	Capacity       int
	Emitters       int
	Drawn          int
	Frame          uint64
	SimTime        float32
	StepsPerUpdate int
	FPS            int32
	Paused         bool
	Gravity        bool
	Attracting     bool
	Contacts       int
	Dropped        int
	LastError      string
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	y := h.renderer.DrawUsageBar(10, 35, "Particles", data.Particles, data.Capacity, 300)
	rl.DrawText(
		fmt.Sprintf("Emitters: %d | Drawn: %d | Contacts: %d | Dropped: %d",
			data.Emitters, data.Drawn, data.Contacts, data.Dropped),
		10, y, 16, rl.LightGray,
	)
	y += 20
	rl.DrawText(
		fmt.Sprintf("Frame: %d | Time: %.1fs | Steps: %dx | FPS: %d",
			data.Frame, data.SimTime, data.StepsPerUpdate, data.FPS),
		10, y, 16, rl.LightGray,
	)
	y += 20

	status := "Running"
	if data.Paused {
		status = "PAUSED"
	}
	if data.Gravity {
		status += " | gravity"
	}
	if data.Attracting {
		status += " | attract"
	}
	rl.DrawText(status, 10, y, 16, rl.Yellow)
	y += 20

	if data.LastError != "" {
		rl.DrawText(data.LastError, 10, y, 14, rl.Red)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders per-phase step timings.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{renderer: NewRenderer(), x: x, y: y}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x, y := p.x, p.y
	phases := telemetry.Phases()
	p.renderer.DrawPanel(x-6, y-6, 250, int32(len(phases))*14+46)

	rl.DrawText("Frame Phases", x, y, 16, rl.White)
	y += 20
	rl.DrawText(fmt.Sprintf("Avg: %s  Max: %s",
		stats.AvgTickDuration.Round(time.Microsecond),
		stats.MaxTickDuration.Round(time.Microsecond)), x, y, 14, rl.Yellow)
	y += 16

	for _, ph := range phases {
		pct := stats.PhasePct[ph]
		color := rl.LightGray
		if pct > 40 {
			color = rl.Red
		} else if pct > 20 {
			color = rl.Orange
		}
		rl.DrawText(
			fmt.Sprintf("%-10s %8s %5.1f%%", ph, stats.PhaseAvg[ph].Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}
