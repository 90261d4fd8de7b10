package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/pthm-cable/swarm/components"
)

// EmitterDraft holds the panel's editable emitter parameters. New emitters
// copy the template spec and override these fields.
type EmitterDraft struct {
	Rate   float32
	Speed  float32
	Spread float32
	Budget int
	Radius float32
}

// DraftFromSpec extracts the editable fields of a spec.
func DraftFromSpec(spec components.EmitterSpec) EmitterDraft {
	return EmitterDraft{
		Rate:   spec.Rate,
		Speed:  spec.Speed,
		Spread: spec.Spread,
		Budget: spec.Budget,
		Radius: spec.Radius,
	}
}

// Apply returns template with the draft's fields and the given position.
func (d EmitterDraft) Apply(template components.EmitterSpec, pos mgl32.Vec2) components.EmitterSpec {
	spec := template
	spec.Position = pos
	spec.Rate = d.Rate
	spec.Speed = d.Speed
	if spec.MaxSpeed > 0 && spec.MaxSpeed < d.Speed {
		spec.MaxSpeed = d.Speed
	}
	spec.Spread = d.Spread
	spec.Budget = d.Budget
	spec.Radius = d.Radius
	return spec
}

// EmitterActions reports the buttons pressed this frame.
type EmitterActions struct {
	Add        bool
	Remove     bool
	SelectNext bool
	Clear      bool
}

// Any reports whether a button was pressed.
func (a EmitterActions) Any() bool {
	return a.Add || a.Remove || a.SelectNext || a.Clear
}

// EmitterPanel is the raygui panel for creating and managing emitters.
type EmitterPanel struct {
	renderer *Renderer
	x, y     float32
	width    float32
	height   float32
	visible  bool

	Draft     EmitterDraft
	MaxBudget int
}

// NewEmitterPanel creates a panel at (x, y) seeded from a template spec.
func NewEmitterPanel(x, y float32, template components.EmitterSpec, maxBudget int) *EmitterPanel {
	return &EmitterPanel{
		renderer:  NewRenderer(),
		x:         x,
		y:         y,
		width:     280,
		height:    330,
		visible:   true,
		Draft:     DraftFromSpec(template),
		MaxBudget: max(maxBudget, 1),
	}
}

// Toggle switches panel visibility.
func (p *EmitterPanel) Toggle() bool {
	p.visible = !p.visible
	return p.visible
}

// SetPosition moves the panel.
func (p *EmitterPanel) SetPosition(x, y float32) {
	p.x = x
	p.y = y
}

// Contains reports whether a screen point is over the visible panel, so
// the host can ignore world clicks there.
func (p *EmitterPanel) Contains(pt rl.Vector2) bool {
	if !p.visible {
		return false
	}
	return rl.CheckCollisionPointRec(pt, rl.Rectangle{X: p.x, Y: p.y, Width: p.width, Height: p.height})
}

// Draw renders the panel and returns the pressed buttons.
func (p *EmitterPanel) Draw(emitters []components.EmitterView) EmitterActions {
	var act EmitterActions
	if !p.visible {
		return act
	}

	r := p.renderer
	pad := float32(r.Theme.Padding)
	r.DrawPanel(int32(p.x), int32(p.y), int32(p.width), int32(p.height))

	x := p.x + pad
	y := p.y + pad
	w := p.width - 2*pad

	rl.DrawText("Emitters", int32(x), int32(y), 16, rl.White)
	y += 24

	slider := func(label string, value, lo, hi float32, format string) float32 {
		rl.DrawText(label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		rl.DrawText(fmt.Sprintf(format, value), int32(x+w-50), int32(y), r.Theme.FontSize, r.Theme.ValueColor)
		y += 14
		v := gui.SliderBar(rl.Rectangle{X: x, Y: y, Width: w, Height: 14}, "", "", value, lo, hi)
		y += 22
		return v
	}
	p.Draft.Rate = slider("Rate (/s)", p.Draft.Rate, 0, 2000, "%.0f")
	p.Draft.Speed = slider("Speed", p.Draft.Speed, 0, 1000, "%.0f")
	p.Draft.Spread = slider("Spread (rad)", p.Draft.Spread, 0, 6.28, "%.2f")
	p.Draft.Budget = int(slider("Budget", float32(p.Draft.Budget), 1, float32(p.MaxBudget), "%.0f"))
	p.Draft.Radius = slider("Radius", p.Draft.Radius, 0.5, 16, "%.1f")

	half := (w - pad) / 2
	act.Add = gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, "Add at cursor [E]")
	act.Remove = gui.Button(rl.Rectangle{X: x + half + pad, Y: y, Width: half, Height: 24}, "Remove [Del]")
	y += 30
	act.SelectNext = gui.Button(rl.Rectangle{X: x, Y: y, Width: half, Height: 24}, "Select next [Tab]")
	act.Clear = gui.Button(rl.Rectangle{X: x + half + pad, Y: y, Width: half, Height: 24}, "Clear [C]")
	y += 34

	for i := range emitters {
		e := &emitters[i]
		if y > p.y+p.height-float32(r.Theme.LineHeight) {
			break
		}
		label := fmt.Sprintf("#%d", e.ID)
		if e.Selected {
			label += " *"
		}
		r.DrawColorSwatch(int32(x), int32(y), label, rgba(e.Color))
		rl.DrawText(fmt.Sprintf("%d/%d %s", e.Owned, e.Budget, e.Phase),
			int32(x)+r.Theme.LabelWidth+18, int32(y), r.Theme.FontSize, r.Theme.ValueColor)
		y += float32(r.Theme.LineHeight)
	}
	return act
}

// NextEmitter returns the id after current in views, wrapping around.
// It returns NoEmitter when there are no emitters.
func NextEmitter(views []components.EmitterView, current components.EmitterID) components.EmitterID {
	if len(views) == 0 {
		return components.NoEmitter
	}
	for i, v := range views {
		if v.ID == current {
			return views[(i+1)%len(views)].ID
		}
	}
	return views[0].ID
}

func rgba(c mgl32.Vec4) rl.Color {
	return rl.ColorFromNormalized(rl.Vector4{X: c[0], Y: c[1], Z: c[2], W: c[3]})
}
