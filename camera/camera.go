// Package camera provides a 2D camera for viewing the particle field.
package camera

import "github.com/go-gl/mathgl/mgl32"

// Camera controls the view into a bounded world. The view never leaves the
// world rectangle, so zooming out stops once the whole world is visible.
type Camera struct {
	// Center of the view in world coordinates
	Center mgl32.Vec2

	// Zoom level (1.0 = 1:1, 2.0 = 2x magnification)
	Zoom float32

	// Screen size in pixels
	Viewport mgl32.Vec2

	// World size in world units
	World mgl32.Vec2

	MinZoom, MaxZoom float32
}

// New creates a camera centered on the world showing as much of it as fits.
func New(viewport, world mgl32.Vec2) *Camera {
	c := &Camera{
		Center:   world.Mul(0.5),
		Viewport: viewport,
		World:    world,
		MaxZoom:  8.0,
	}
	c.MinZoom = minZoom(viewport, world)
	c.Zoom = max(1.0, c.MinZoom)
	c.clampCenter()
	return c
}

// minZoom is the smallest zoom at which the view fits inside the world.
func minZoom(viewport, world mgl32.Vec2) float32 {
	if world[0] <= 0 || world[1] <= 0 {
		return 1
	}
	return max(viewport[0]/world[0], viewport[1]/world[1])
}

// WorldToScreen converts a world position to screen pixels.
func (c *Camera) WorldToScreen(p mgl32.Vec2) mgl32.Vec2 {
	return p.Sub(c.Center).Mul(c.Zoom).Add(c.Viewport.Mul(0.5))
}

// ScreenToWorld converts screen pixels to a world position.
func (c *Camera) ScreenToWorld(s mgl32.Vec2) mgl32.Vec2 {
	return s.Sub(c.Viewport.Mul(0.5)).Mul(1 / c.Zoom).Add(c.Center)
}

// IsVisible reports whether a circle could overlap the screen.
func (c *Camera) IsVisible(p mgl32.Vec2, radius float32) bool {
	d := p.Sub(c.Center)
	halfW := c.Viewport[0]/(2*c.Zoom) + radius
	halfH := c.Viewport[1]/(2*c.Zoom) + radius
	return absf(d[0]) <= halfW && absf(d[1]) <= halfH
}

// Resize updates the screen size and the zoom floor.
func (c *Camera) Resize(viewport mgl32.Vec2) {
	if viewport == c.Viewport {
		return
	}
	c.Viewport = viewport
	c.MinZoom = minZoom(viewport, c.World)
	c.SetZoom(c.Zoom)
}

// SetWorld changes the world size, keeping the relative view position.
func (c *Camera) SetWorld(world mgl32.Vec2) {
	if world == c.World || world[0] <= 0 || world[1] <= 0 {
		return
	}
	if c.World[0] > 0 && c.World[1] > 0 {
		c.Center = mgl32.Vec2{
			c.Center[0] / c.World[0] * world[0],
			c.Center[1] / c.World[1] * world[1],
		}
	}
	c.World = world
	c.MinZoom = minZoom(c.Viewport, world)
	c.SetZoom(c.Zoom)
}

// Pan moves the camera by a delta in screen pixels.
func (c *Camera) Pan(delta mgl32.Vec2) {
	c.Center = c.Center.Add(delta.Mul(1 / c.Zoom))
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
	c.clampCenter()
}

// ZoomAt multiplies the zoom while keeping the world point under the
// screen position s fixed.
func (c *Camera) ZoomAt(s mgl32.Vec2, factor float32) {
	before := c.ScreenToWorld(s)
	c.Zoom = clamp(c.Zoom*factor, c.MinZoom, c.MaxZoom)
	after := c.ScreenToWorld(s)
	c.Center = c.Center.Add(before.Sub(after))
	c.clampCenter()
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.Center = c.World.Mul(0.5)
	c.SetZoom(1.0)
}

// VisibleWorldBounds returns the world rectangle on screen.
func (c *Camera) VisibleWorldBounds() (min, max mgl32.Vec2) {
	half := c.Viewport.Mul(0.5 / c.Zoom)
	return c.Center.Sub(half), c.Center.Add(half)
}

// clampCenter keeps the view inside the world. An axis the view cannot
// fill is centered.
func (c *Camera) clampCenter() {
	half := c.Viewport.Mul(0.5 / c.Zoom)
	for i := 0; i < 2; i++ {
		if 2*half[i] >= c.World[i] {
			c.Center[i] = c.World[i] / 2
			continue
		}
		c.Center[i] = clamp(c.Center[i], half[i], c.World[i]-half[i])
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
