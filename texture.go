package spritz

import "image"

// Texture is implemented by device textures. Batches only need the native
// handle for identity checks and binding, and the size in pixels to compute
// normalized texture coordinates.
//
// A Texture must stay alive as long as any Region references it and until
// any batch that has pending quads using it has been flushed.
//
type Texture interface {
	NativeID() uint32
	Size() image.Point
}

// Region maps a rectangular pixel area of a Texture to normalized texture
// coordinates in the range [0, 1]. The coordinate system has its origin in the
// top left corner of the texture with the y axis pointing downwards.
//
// Coordinates are computed once, against the texture size at construction
// time. If the texture is later reloaded with a different size, existing
// regions are not updated.
//
type Region struct {
	tex Texture
	uv  [4]Point // TL, TR, BR, BL
	sz  Point    // size in pixels, informational
	org Point    // top-left corner in pixels
}

// NewRegion returns the region of t with its top-left corner at (x, y) and
// of size (w, h), in pixels. w and h may be negative in order to flip the
// region.
//
func NewRegion(t Texture, x, y, w, h float32) *Region {
	sz := t.Size()
	tw, th := float32(sz.X), float32(sz.Y)
	u, v := x/tw, y/th
	du, dv := w/tw, h/th
	return &Region{
		tex: t,
		uv: [4]Point{
			{u, v},
			{u + du, v},
			{u + du, v + dv},
			{u, v + dv},
		},
		sz:  Point{w, h},
		org: Point{x, y},
	}
}

// NewRegionRect is a shorthand for NewRegion with an image.Rectangle.
//
func NewRegionRect(t Texture, r image.Rectangle) *Region {
	return NewRegion(t, float32(r.Min.X), float32(r.Min.Y), float32(r.Dx()), float32(r.Dy()))
}

// FullRegion returns a region covering the whole texture.
//
func FullRegion(t Texture) *Region {
	return NewRegionRect(t, image.Rectangle{Max: t.Size()})
}

// RegionFromUV returns a region with explicit normalized coordinates in the
// order top-left, top-right, bottom-right, bottom-left. The array is used as
// is.
//
func RegionFromUV(t Texture, uv [4]Point) *Region {
	r := &Region{tex: t, uv: uv}
	if t != nil {
		sz := PtPt(t.Size())
		r.org = Point{uv[0].X * sz.X, uv[0].Y * sz.Y}
		r.sz = Point{(uv[1].X - uv[0].X) * sz.X, (uv[3].Y - uv[0].Y) * sz.Y}
	}
	return r
}

// Sub returns a sub-region of r. x and y are relative to the top-left corner
// of r, in pixels.
//
func (r *Region) Sub(x, y, w, h float32) *Region {
	return NewRegion(r.tex, r.org.X+x, r.org.Y+y, w, h)
}

// Texture returns the texture the region belongs to.
//
func (r *Region) Texture() Texture {
	return r.tex
}

// UV returns the region's texture coordinates in the order top-left,
// top-right, bottom-right, bottom-left.
//
func (r *Region) UV() [4]Point {
	return r.uv
}

// Size returns the region size in pixels, as given at construction time.
//
func (r *Region) Size() Point {
	return r.sz
}
