// Package ebitendev implements the spritz device interfaces on top of
// ebiten.
//
// Vertices produced by a spritz.Batch are transformed by the projection
// matrix of the current shader, then mapped to pixels of the destination
// image. Texture coordinates are scaled to pixels of the source image.
// Submissions larger than what ebiten accepts in a single call are split.
//
// Typical use from an ebiten.Game:
//
//	func (g *game) Draw(screen *ebiten.Image) {
//		g.dev.SetScreen(screen)
//		g.batch.Begin()
//		...
//		g.batch.End()
//	}
//
package ebitendev

import (
	"fmt"
	"image"
	"os"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/db47h/spritz"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/image/draw"
)

// MaxQuadsPerCall is the maximum number of quads submitted in a single
// DrawTriangles call. Indices are 16 bits wide.
//
const MaxQuadsPerCall = (1<<16 - 1) / 4

var lastID uint32

func nextID() uint32 {
	return atomic.AddUint32(&lastID, 1)
}

// Image wraps an ebiten image. It implements spritz.Texture.
//
type Image struct {
	img *ebiten.Image
	id  uint32
}

// NewImage wraps img.
//
func NewImage(img *ebiten.Image) *Image {
	return &Image{img: img, id: nextID()}
}

// NewImageFromImage returns a new ebiten image with the content of src.
//
func NewImageFromImage(src image.Image) *Image {
	return NewImage(ebiten.NewImageFromImage(src))
}

func (i *Image) NativeID() uint32      { return i.id }
func (i *Image) Size() image.Point     { return i.img.Bounds().Size() }
func (i *Image) Ebiten() *ebiten.Image { return i.img }

// SetSubImage draws src to the image. It works identically to draw.Draw
// with op set to draw.Src.
//
func (i *Image) SetSubImage(dr image.Rectangle, src image.Image, sp image.Point) {
	dr = dr.Intersect(i.img.Bounds())
	if dr.Empty() {
		return
	}
	pix := image.NewRGBA(image.Rectangle{Max: dr.Size()})
	draw.Draw(pix, pix.Rect, src, sp, draw.Src)
	i.img.SubImage(dr).(*ebiten.Image).WritePixels(pix.Pix)
}

// Dispose releases the ebiten image.
//
func (i *Image) Dispose() { i.img.Dispose() }

// Option configures a Device.
//
type Option func(*Device)

// Logger sets the device logger.
//
func Logger(l *log.Logger) Option {
	return func(d *Device) { d.log = l }
}

// Filter sets the filter used to sample textures. The default is
// ebiten.FilterNearest.
//
func Filter(f ebiten.Filter) Option {
	return func(d *Device) { d.filter = f }
}

// Device is a spritz.Device drawing to ebiten images.
//
type Device struct {
	log    *log.Logger
	filter ebiten.Filter

	screen *ebiten.Image
	dst    *ebiten.Image
	shader *Shader
	tex    *Image

	quads    int
	vertices []ebiten.Vertex
	indices  []uint32
	chunk    []uint16
}

// NewDevice returns a new Device.
//
func NewDevice(opts ...Option) *Device {
	d := &Device{filter: ebiten.FilterNearest}
	for _, o := range opts {
		o(d)
	}
	if d.log == nil {
		d.log = log.NewWithOptions(os.Stderr, log.Options{Prefix: "ebitendev"})
	}
	return d
}

// SetScreen sets the default destination image. It must be called every
// frame with the screen image passed to ebiten.Game.Draw.
//
func (d *Device) SetScreen(screen *ebiten.Image) {
	if d.dst == d.screen {
		d.dst = screen
	}
	d.screen = screen
}

// Allocate implements spritz.Device.
//
func (d *Device) Allocate(quads int) error {
	d.quads = quads
	d.vertices = make([]ebiten.Vertex, 0, quads*4)
	d.indices = make([]uint32, 0, quads*spritz.IndicesPerQuad)
	n := quads
	if n > MaxQuadsPerCall {
		n = MaxQuadsPerCall
	}
	d.chunk = make([]uint16, 0, n*spritz.IndicesPerQuad)
	return nil
}

// BindTexture implements spritz.Device. Textures must be *Image.
//
func (d *Device) BindTexture(t spritz.Texture) {
	img, ok := t.(*Image)
	if !ok {
		d.log.Error("unsupported texture type", "type", fmt.Sprintf("%T", t))
	}
	d.tex = img
}

// Upload implements spritz.Device.
//
func (d *Device) Upload(vertices []float32, indices []uint32) {
	var proj mgl32.Mat4
	if d.shader != nil {
		proj = d.shader.proj
	} else {
		proj = mgl32.Ident4()
	}
	var dsz, tsz image.Point
	if d.dst != nil {
		dsz = d.dst.Bounds().Size()
	}
	if d.tex != nil {
		tsz = d.tex.Size()
	}
	d.vertices = convertVertices(d.vertices[:0], vertices, proj, dsz, tsz)
	d.indices = append(d.indices[:0], indices...)
}

// DrawIndexed implements spritz.Device.
//
func (d *Device) DrawIndexed(count int) {
	if d.dst == nil || d.tex == nil {
		d.log.Warn("draw skipped", "screen", d.dst != nil, "texture", d.tex != nil)
		return
	}
	if count > len(d.indices) {
		count = len(d.indices)
	}
	forEachChunk(d.indices[:count], MaxQuadsPerCall, d.chunk[:0], func(first, n int, idx []uint16) {
		d.draw(d.vertices[first*4:(first+n)*4], idx)
	})
}

func (d *Device) draw(vs []ebiten.Vertex, is []uint16) {
	if d.shader == nil || d.shader.shader == nil {
		d.dst.DrawTriangles(vs, is, d.tex.img, &ebiten.DrawTrianglesOptions{Filter: d.filter})
		return
	}
	op := &ebiten.DrawTrianglesShaderOptions{Uniforms: d.shader.uniforms}
	op.Images[0] = d.tex.img
	d.dst.DrawTrianglesShader(vs, is, d.shader.shader, op)
}

// Release implements spritz.Device.
//
func (d *Device) Release() {
	d.vertices, d.indices, d.chunk = nil, nil, nil
	d.tex, d.shader = nil, nil
}

// convertVertices appends to dst the vertices in src, in spritz layout,
// transformed by proj and mapped to a destination of size dsz. Texture
// coordinates are scaled by tsz.
//
func convertVertices(dst []ebiten.Vertex, src []float32, proj mgl32.Mat4, dsz, tsz image.Point) []ebiten.Vertex {
	w, h := float32(dsz.X), float32(dsz.Y)
	tw, th := float32(tsz.X), float32(tsz.Y)
	for i := 0; i+spritz.FloatsPerVertex <= len(src); i += spritz.FloatsPerVertex {
		v := src[i : i+spritz.FloatsPerVertex]
		c := proj.Mul4x1(mgl32.Vec4{v[0], v[1], 0, 1})
		if c[3] != 0 && c[3] != 1 {
			c = c.Mul(1 / c[3])
		}
		dst = append(dst, ebiten.Vertex{
			DstX:   (c[0] + 1) / 2 * w,
			DstY:   (1 - c[1]) / 2 * h,
			SrcX:   v[2] * tw,
			SrcY:   v[3] * th,
			ColorR: v[4],
			ColorG: v[5],
			ColorB: v[6],
			ColorA: v[7],
		})
	}
	return dst
}

// forEachChunk splits indices in runs of at most max quads and calls fn with
// the first quad of each run, the number of quads in the run, and its indices
// rebased to the first vertex of the run. Indices must reference the
// vertices of their own quad, as written by spritz.Batch.
//
func forEachChunk(indices []uint32, max int, buf []uint16, fn func(first, n int, idx []uint16)) {
	quads := len(indices) / spritz.IndicesPerQuad
	for first := 0; first < quads; first += max {
		n := quads - first
		if n > max {
			n = max
		}
		base := uint32(first * 4)
		buf = buf[:0]
		for _, i := range indices[first*spritz.IndicesPerQuad : (first+n)*spritz.IndicesPerQuad] {
			buf = append(buf, uint16(i-base))
		}
		fn(first, n, buf)
	}
}

