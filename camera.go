package spritz

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a 2D camera producing orthographic projections with the y axis
// pointing downwards.
//
// The camera does not take part in batching; its projection is handed to
// Batch.SetProjection by the caller.
//
type Camera struct {
	Viewport image.Point // viewport size in pixels
	Pos      Point       // world coordinates of the top-left corner of the view
	Zoom     float32     // 0 is treated as 1

	bounded  bool
	min, max Point
}

// NewCamera returns a camera for a viewport of the given size, at zoom 1.
//
func NewCamera(width, height int) *Camera {
	return &Camera{Viewport: image.Pt(width, height), Zoom: 1}
}

func (c *Camera) zoom() float32 {
	if c.Zoom == 0 {
		return 1
	}
	return c.Zoom
}

// SetBounds restricts the camera position to the rectangle (min, max). The
// current position is clamped right away.
//
func (c *Camera) SetBounds(min, max Point) {
	c.bounded = true
	c.min, c.max = min, max
	c.SetPos(c.Pos)
}

// SetPos moves the camera, honoring bounds set by SetBounds.
//
func (c *Camera) SetPos(p Point) {
	if c.bounded {
		p.X = mgl32.Clamp(p.X, c.min.X, c.max.X)
		p.Y = mgl32.Clamp(p.Y, c.min.Y, c.max.Y)
	}
	c.Pos = p
}

// CenterOn moves the camera so that the world point p is at the center of the
// viewport.
//
func (c *Camera) CenterOn(p Point) {
	z := c.zoom()
	c.SetPos(Point{
		X: p.X - float32(c.Viewport.X)/(2*z),
		Y: p.Y - float32(c.Viewport.Y)/(2*z),
	})
}

// Projection returns the orthographic projection matrix for the camera.
//
func (c *Camera) Projection() mgl32.Mat4 {
	z := c.zoom()
	w, h := float32(c.Viewport.X)/z, float32(c.Viewport.Y)/z
	return mgl32.Ortho2D(c.Pos.X, c.Pos.X+w, c.Pos.Y+h, c.Pos.Y)
}

// ScreenToWorld converts viewport pixel coordinates to world coordinates.
//
func (c *Camera) ScreenToWorld(p image.Point) Point {
	return c.Pos.Add(PtPt(p).Div(c.zoom()))
}

// WorldToScreen converts world coordinates to viewport pixel coordinates.
//
func (c *Camera) WorldToScreen(p Point) Point {
	return p.Sub(c.Pos).Mul(c.zoom())
}
