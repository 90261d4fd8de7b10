package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
	"github.com/pthm-cable/swarm/ui"
)

// Particles added per frame while the left button is held.
const brushParticles = 8

// handleInput processes keyboard and mouse input into simulation parameters.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		g.paused = !g.paused
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) && g.stepsPerUpdate > 1 {
		g.stepsPerUpdate--
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.stepsPerUpdate < 10 {
		g.stepsPerUpdate++
	}

	if rl.IsKeyPressed(rl.KeyG) {
		g.gravityOn = !g.gravityOn
	}
	if rl.IsKeyPressed(rl.KeyF) {
		g.showFlow = !g.showFlow
	}
	if rl.IsKeyPressed(rl.KeyP) {
		g.showPerf = !g.showPerf
	}
	if rl.IsKeyPressed(rl.KeyH) {
		g.emitterPanel.Toggle()
	}

	g.handleCameraInput()
	g.handlePointer()
	g.handleEmitterKeys()
	g.applyForces()
}

// handleResize checks for window resize and propagates new dimensions.
// The simulated viewport follows the window only when the world size is
// not fixed in the config.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	world := g.params.ViewportSize
	if g.cfg.World.Width == 0 {
		world[0] = w
	}
	if g.cfg.World.Height == 0 {
		world[1] = h
	}
	g.params.ViewportSize = world

	g.camera.Resize(mgl32.Vec2{w, h})
	g.camera.SetWorld(world)
	g.perfPanel.SetPosition(int32(w)-250, 10)
	g.emitterPanel.SetPosition(w-290, 220)
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	panSpeed := float32(8.0)

	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(mgl32.Vec2{panSpeed, 0})
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(mgl32.Vec2{-panSpeed, 0})
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(mgl32.Vec2{0, panSpeed})
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(mgl32.Vec2{0, -panSpeed})
	}

	// Zoom toward the cursor
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		m := rl.GetMousePosition()
		g.camera.ZoomAt(mgl32.Vec2{m.X, m.Y}, 1+wheel*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomAt(g.camera.Viewport.Mul(0.5), 1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomAt(g.camera.Viewport.Mul(0.5), 0.8)
	}
	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}

// handlePointer maps the mouse into world space: the position drives homing
// and the selected emitter, the left button paints particles and the right
// button attracts.
func (g *Game) handlePointer() {
	m := rl.GetMousePosition()
	world := g.camera.ScreenToWorld(mgl32.Vec2{m.X, m.Y})
	g.params.MousePos = world

	overPanel := g.emitterPanel.Contains(m)

	g.params.AttractForce = 0
	if rl.IsMouseButtonDown(rl.MouseButtonRight) && !overPanel {
		g.params.AttractPoint = world
		g.params.AttractForce = float32(g.cfg.Physics.AttractForce)
	}

	if rl.IsMouseButtonDown(rl.MouseButtonLeft) && !overPanel && !g.paused {
		p := g.particleTemplate
		p.Pos = world
		g.params.NewParticle = p
		g.params.AddParticlesCount += brushParticles
	}
}

// handleEmitterKeys maps keyboard shortcuts to emitter requests.
func (g *Game) handleEmitterKeys() {
	g.emitterRequests(ui.EmitterActions{
		Add:        rl.IsKeyPressed(rl.KeyE),
		Remove:     rl.IsKeyPressed(rl.KeyDelete) || rl.IsKeyPressed(rl.KeyBackspace),
		SelectNext: rl.IsKeyPressed(rl.KeyTab),
		Clear:      rl.IsKeyPressed(rl.KeyC),
	})
}

// emitterRequests raises the SimParam flags for panel buttons or keys.
func (g *Game) emitterRequests(act ui.EmitterActions) {
	if act.Add {
		g.params.NewEmitter = g.emitterPanel.Draft.Apply(g.emitterTemplate, g.params.MousePos)
		g.params.AddEmitter = true
	}
	if act.Remove {
		if id := g.sim.SelectedEmitter(); id != components.NoEmitter {
			g.params.RemoveEmitterID = id
			g.params.RemoveEmitter = true
		}
	}
	if act.SelectNext && g.snap != nil {
		g.params.SelectedEmitterID = ui.NextEmitter(g.snap.Emitters, g.sim.SelectedEmitter())
		g.params.SelectEmitter = true
	}
	if act.Clear {
		g.params.ClearParticles = true
	}
}
