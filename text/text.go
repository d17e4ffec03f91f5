// Package text draws strings through a spritz.Batch using a glyph atlas.
//
// Glyphs are rasterized on demand from a font.Face, packed into atlas
// textures and cached per rune and sub-pixel offset.
//
package text

import (
	"image"
	"image/color"

	"github.com/db47h/spritz"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	// see subPixels() in github.com/golang/freetype/truetype/face.go
	SubPixelsX    = 8
	subPixelBiasX = 4
	subPixelMaskX = -8
	SubPixelsY    = 8
	subPixelBiasY = 4
	subPixelMaskY = -8
)

// DefaultAtlasSize is the default width and height of glyph atlas textures.
// It should be no larger than the device's maximum texture size.
//
const DefaultAtlasSize = 1024

// Atlas is a texture glyphs can be uploaded to. Both gl.Texture and
// ebitendev.Image implement it.
//
type Atlas interface {
	spritz.Texture
	SetSubImage(dr image.Rectangle, src image.Image, sp image.Point)
}

// AtlasMaker creates empty atlas textures of the given size.
//
type AtlasMaker func(size int) (Atlas, error)

// Drawer draws text with a single font face.
//
type Drawer struct {
	face   font.Face
	mk     AtlasMaker
	size   int
	atlas  []Atlas
	glyphs []glyph
	cache  map[cacheKey]cacheValue
	p      image.Point // next free spot in current atlas
	lh     int         // row height in current atlas
	buf    *image.RGBA
}

type glyph struct {
	r   *spritz.Region
	off image.Point // top-left corner relative to the quantized dot
	sz  spritz.Point
}

type cacheKey struct {
	r  rune
	fx uint8
	fy uint8
}

type cacheValue struct {
	index int // glyph index, -1 for empty glyphs
	adv   fixed.Int26_6
}

// NewDrawer returns a Drawer for face. Atlas textures of size x size pixels
// are created with mk as needed. If size is 0, DefaultAtlasSize is used.
//
func NewDrawer(face font.Face, mk AtlasMaker, size int) *Drawer {
	if size <= 0 {
		size = DefaultAtlasSize
	}
	return &Drawer{
		face:  face,
		mk:    mk,
		size:  size,
		cache: make(map[cacheKey]cacheValue),
	}
}

func (d *Drawer) Face() font.Face { return d.face }

// Atlases returns the number of atlas textures in use.
//
func (d *Drawer) Atlases() int { return len(d.atlas) }

// DrawString draws s with its baseline starting at (x, y) and returns the
// advance in pixels. The batch color is set to c during the call.
//
func (d *Drawer) DrawString(b *spritz.Batch, x, y float32, s string, c color.Color) (advance float32, err error) {
	saved := b.Color()
	b.SetColor(c)
	defer b.SetColor(saved)

	dot := fixed.Point26_6{X: toFixed(x), Y: toFixed(y)}
	start := dot.X
	prev := rune(-1)
	for _, r := range s {
		if prev >= 0 {
			dot.X += d.face.Kern(prev, r)
		}
		dp, g, adv, err := d.lookup(dot, r)
		if err != nil {
			return fromFixed(dot.X - start), err
		}
		if g != nil {
			if err := b.DrawRegion(g.r, g.corners(dp)); err != nil {
				return fromFixed(dot.X - start), err
			}
		}
		dot.X += adv
		prev = r
	}
	return fromFixed(dot.X - start), nil
}

// DrawBytes is like DrawString but takes a byte slice.
//
func (d *Drawer) DrawBytes(b *spritz.Batch, x, y float32, s []byte, c color.Color) (advance float32, err error) {
	return d.DrawString(b, x, y, string(s), c)
}

func (g *glyph) corners(dp image.Point) [4]spritz.Point {
	tl := spritz.PtPt(dp.Add(g.off))
	return [4]spritz.Point{
		tl,
		{X: tl.X + g.sz.X, Y: tl.Y},
		tl.Add(g.sz),
		{X: tl.X, Y: tl.Y + g.sz.Y},
	}
}

func toFixed(v float32) fixed.Int26_6   { return fixed.Int26_6(v * 64) }
func fromFixed(v fixed.Int26_6) float32 { return float32(v) / 64 }

// lookup returns the glyph for r drawn at dot, the integer dot position the
// glyph is relative to, and the advance. The glyph is nil for runes with an
// empty image.
//
func (d *Drawer) lookup(dot fixed.Point26_6, r rune) (dp image.Point, g *glyph, advance fixed.Int26_6, err error) {
	dx, dy := (dot.X+subPixelBiasX)&subPixelMaskX, (dot.Y+subPixelBiasY)&subPixelMaskY
	dp = image.Pt(dx.Floor(), dy.Floor())
	fx, fy := dx&0x3f, dy&0x3f

	key := cacheKey{r, uint8(fx), uint8(fy)}
	if v, ok := d.cache[key]; ok {
		if v.index < 0 {
			return dp, nil, v.adv, nil
		}
		return dp, &d.glyphs[v.index], v.adv, nil
	}

	dr, mask, maskp, advance, ok := d.face.Glyph(fixed.Point26_6{X: fx, Y: fy}, r)
	if !ok {
		d.cache[key] = cacheValue{-1, 0}
		return dp, nil, 0, nil
	}
	sz := dr.Size()
	if sz.X == 0 || sz.Y == 0 {
		d.cache[key] = cacheValue{-1, advance}
		return dp, nil, advance, nil
	}
	if sz.X > d.size || sz.Y > d.size {
		return dp, nil, advance, errors.Errorf("glyph %q too large for atlas: %v", r, sz)
	}

	t, tr, err := d.place(sz)
	if err != nil {
		return dp, nil, advance, err
	}
	t.SetSubImage(tr, d.rgba(mask, maskp, sz), image.Point{})

	index := len(d.glyphs)
	d.glyphs = append(d.glyphs, glyph{
		r:   spritz.NewRegionRect(t, tr),
		off: dr.Min,
		sz:  spritz.PtPt(sz),
	})
	d.cache[key] = cacheValue{index, advance}
	return dp, &d.glyphs[index], advance, nil
}

// place reserves a sz rectangle in the current atlas, creating a new one
// when full. Glyphs are separated by one pixel.
//
func (d *Drawer) place(sz image.Point) (Atlas, image.Rectangle, error) {
	if l := len(d.atlas); l > 0 {
		if d.p.X+sz.X > d.size {
			d.p = image.Pt(0, d.p.Y+d.lh)
			d.lh = 0
		}
		if d.p.Y+sz.Y <= d.size {
			return d.reserve(d.atlas[l-1], sz)
		}
	}
	t, err := d.mk(d.size)
	if err != nil {
		return nil, image.Rectangle{}, errors.Wrap(err, "create glyph atlas")
	}
	d.atlas = append(d.atlas, t)
	d.p = image.Point{}
	d.lh = 0
	return d.reserve(t, sz)
}

func (d *Drawer) reserve(t Atlas, sz image.Point) (Atlas, image.Rectangle, error) {
	tr := image.Rectangle{Min: d.p, Max: d.p.Add(sz)}
	d.p.X += sz.X + 1
	if h := sz.Y + 1; h > d.lh {
		d.lh = h
	}
	return t, tr, nil
}

// rgba converts a glyph mask to white premultiplied RGBA pixels.
//
func (d *Drawer) rgba(mask image.Image, mp image.Point, sz image.Point) *image.RGBA {
	r := image.Rectangle{Max: sz}
	if d.buf == nil || d.buf.Rect.Dx() < sz.X || d.buf.Rect.Dy() < sz.Y {
		d.buf = image.NewRGBA(r)
	}
	dst := d.buf.SubImage(r).(*image.RGBA)
	draw.DrawMask(dst, r, image.White, image.Point{}, mask, mp, draw.Src)
	return dst
}

// Close releases atlas textures.
//
func (d *Drawer) Close() error {
	for _, t := range d.atlas {
		switch t := t.(type) {
		case interface{ Delete() }:
			t.Delete()
		case interface{ Dispose() }:
			t.Dispose()
		}
	}
	d.atlas = nil
	d.glyphs = nil
	d.cache = make(map[cacheKey]cacheValue)
	return nil
}

// BoundString returns the bounding box of s, drawn at a dot equal to the
// origin, as well as the advance.
//
func (d *Drawer) BoundString(s string) (bounds fixed.Rectangle26_6, advance fixed.Int26_6) {
	return font.BoundString(d.face, s)
}

// MeasureString returns how far dot would advance by drawing s.
//
func (d *Drawer) MeasureString(s string) (advance fixed.Int26_6) {
	return font.MeasureString(d.face, s)
}

// BoundRect returns the pixel bounds of s drawn with its baseline at the
// origin, rounded outwards.
//
func (d *Drawer) BoundRect(s string) image.Rectangle {
	b, _ := font.BoundString(d.face, s)
	return image.Rect(b.Min.X.Floor(), b.Min.Y.Floor(), b.Max.X.Ceil(), b.Max.Y.Ceil())
}
