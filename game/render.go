package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/camera"
	"github.com/pthm-cable/swarm/renderer"
	"github.com/pthm-cable/swarm/ui"
)

var backgroundColor = rl.Color{R: 10, G: 12, B: 18, A: 255}

// initViewer creates the camera, renderers and panels. Requires an open
// raylib window.
func (g *Game) initViewer() {
	world := g.sim.Viewport()
	g.camera = camera.New(mgl32.Vec2{g.screenWidth, g.screenHeight}, world)
	g.particles = renderer.NewParticleRenderer()
	g.flow = renderer.NewFlowRenderer(g.sim.Flow(), 40)
	g.hud = ui.NewHUD()
	g.perfPanel = ui.NewPerfPanel(int32(g.screenWidth)-250, 10)
	g.emitterPanel = ui.NewEmitterPanel(g.screenWidth-290, 220, g.emitterTemplate, g.sim.Capacity())
}

// Draw renders the latest snapshot and the UI.
func (g *Game) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(backgroundColor)

	g.drawWorldBounds()
	if g.showFlow {
		g.flow.Draw(g.camera, g.sim.Time())
	}
	if g.snap != nil {
		g.drawn = g.particles.Draw(g.snap, g.camera)
	}

	g.drawHUD()
	if g.showPerf {
		g.perfPanel.Draw(g.perf.Stats())
	}
	if g.snap != nil {
		g.emitterRequests(g.emitterPanel.Draw(g.snap.Emitters))
	}
	g.hud.DrawControls(int32(g.screenHeight), Controls)

	rl.EndDrawing()
}

// drawWorldBounds outlines the simulated viewport.
func (g *Game) drawWorldBounds() {
	lo := g.camera.WorldToScreen(mgl32.Vec2{})
	hi := g.camera.WorldToScreen(g.camera.World)
	rl.DrawRectangleLinesEx(
		rl.Rectangle{X: lo[0], Y: lo[1], Width: hi[0] - lo[0], Height: hi[1] - lo[1]},
		1, rl.Color{R: 50, G: 60, B: 75, A: 255},
	)
}

func (g *Game) drawHUD() {
	data := ui.HUDData{
		Title:          "Swarm",
		Capacity:       g.sim.Capacity(),
		Frame:          g.sim.Frame(),
		SimTime:        g.sim.Time(),
		StepsPerUpdate: g.stepsPerUpdate,
		FPS:            rl.GetFPS(),
		Paused:         g.paused,
		Gravity:        g.gravityOn,
		Attracting:     g.params.AttractForce != 0,
		Drawn:          g.drawn,
		LastError:      g.lastErr,
	}
	if g.snap != nil {
		data.Particles = g.snap.Count
		data.Emitters = len(g.snap.Emitters)
		data.Contacts = g.snap.Stats.Contacts
		data.Dropped = g.snap.Stats.Dropped
	}
	g.hud.Draw(data)
}
