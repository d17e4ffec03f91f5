package spritz

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// A Sprite holds the transform state of a textured quad: position, origin,
// size, rotation, scale, flip flags and tint.
//
// The world position of the four corners is cached. The cache is invalidated
// by any change of position, origin, size, rotation or scale. Flip flags and
// color are resolved by the batch when the sprite is drawn and do not
// invalidate it.
//
// The position is the top-left corner of the unscaled, unrotated box. The
// origin is relative to that corner and is the pivot for scale and rotation.
//
type Sprite struct {
	region       *Region
	x, y         float32
	ox, oy       float32
	w, h         float32
	rot          float32 // degrees
	sx, sy       float32
	flipX, flipY bool
	color        Color

	corners [4]Point
	dirty   bool
}

// NewSprite returns a new sprite of the given size, drawing region r.
//
func NewSprite(w, h float32, r *Region) *Sprite {
	return &Sprite{
		region: r,
		w:      w,
		h:      h,
		sx:     1,
		sy:     1,
		color:  White,
		dirty:  true,
	}
}

func (s *Sprite) Region() *Region          { return s.region }
func (s *Sprite) SetRegion(r *Region)      { s.region = r }
func (s *Sprite) Position() (x, y float32) { return s.x, s.y }
func (s *Sprite) Origin() (x, y float32)   { return s.ox, s.oy }
func (s *Sprite) Size() (w, h float32)     { return s.w, s.h }
func (s *Sprite) Rotation() float32        { return s.rot }
func (s *Sprite) Scale() (x, y float32)    { return s.sx, s.sy }
func (s *Sprite) Flip() (x, y bool)        { return s.flipX, s.flipY }
func (s *Sprite) Color() Color             { return s.color }

// SetPosition sets the position of the sprite's top-left corner.
//
func (s *Sprite) SetPosition(x, y float32) {
	s.x, s.y = x, y
	s.dirty = true
}

// Translate moves the sprite by (dx, dy).
//
func (s *Sprite) Translate(dx, dy float32) {
	s.SetPosition(s.x+dx, s.y+dy)
}

// SetOrigin sets the pivot point, relative to the sprite's top-left corner.
//
func (s *Sprite) SetOrigin(ox, oy float32) {
	s.ox, s.oy = ox, oy
	s.dirty = true
}

// SetOriginCenter moves the pivot to the center of the sprite.
//
func (s *Sprite) SetOriginCenter() {
	s.SetOrigin(s.w/2, s.h/2)
}

func (s *Sprite) SetSize(w, h float32) {
	s.w, s.h = w, h
	s.dirty = true
}

// SetRotation sets the rotation angle in degrees.
//
func (s *Sprite) SetRotation(deg float32) {
	s.rot = deg
	s.dirty = true
}

// Rotate adds deg degrees to the current rotation.
//
func (s *Sprite) Rotate(deg float32) {
	s.SetRotation(s.rot + deg)
}

func (s *Sprite) SetScale(sx, sy float32) {
	s.sx, s.sy = sx, sy
	s.dirty = true
}

// SetFlip sets the horizontal and vertical flip flags. Flipping mirrors the
// sampled texture, the quad geometry does not change.
//
func (s *Sprite) SetFlip(x, y bool) {
	s.flipX, s.flipY = x, y
}

func (s *Sprite) SetColor(c Color) {
	s.color = c
}

// Corners returns the world position of the sprite's corners in the order
// top-left, top-right, bottom-right, bottom-left, regardless of rotation.
//
// The result is cached and only recomputed after a transform change.
//
func (s *Sprite) Corners() [4]Point {
	if s.dirty {
		s.corners = s.computeCorners()
		s.dirty = false
	}
	return s.corners
}

// Bounds returns the axis aligned bounding box of the sprite's corners.
//
func (s *Sprite) Bounds() (min, max Point) {
	c := s.Corners()
	min, max = c[0], c[0]
	for _, p := range c[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
	}
	return min, max
}

func (s *Sprite) computeCorners() [4]Point {
	lx, ly := -s.ox, -s.oy
	lx2, ly2 := lx+s.w, ly+s.h
	// the pivot's world position does not depend on scale
	wx, wy := s.x-lx, s.y-ly

	if s.sx != 1 || s.sy != 1 {
		lx *= s.sx
		ly *= s.sy
		lx2 *= s.sx
		ly2 *= s.sy
	}

	if s.rot == 0 {
		x1, y1 := lx+wx, ly+wy
		x2, y2 := lx2+wx, ly2+wy
		return [4]Point{{x1, y1}, {x2, y1}, {x2, y2}, {x1, y2}}
	}

	sin64, cos64 := math.Sincos(float64(mgl32.DegToRad(s.rot)))
	sin, cos := float32(sin64), float32(cos64)

	tl := Point{lx*cos - ly*sin + wx, ly*cos + lx*sin + wy}
	bl := Point{lx*cos - ly2*sin + wx, ly2*cos + lx*sin + wy}
	br := Point{lx2*cos - ly2*sin + wx, ly2*cos + lx2*sin + wy}
	// derive the top-right corner from the other three so that opposite
	// edges stay exactly parallel.
	tr := tl.Add(br.Sub(bl))

	return [4]Point{tl, tr, br, bl}
}
