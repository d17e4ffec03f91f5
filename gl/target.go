package gl

import (
	"image"
	"image/color"

	"github.com/db47h/spritz"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/pkg/errors"
)

var _ spritz.RenderTarget = (*RenderTarget)(nil)

// A RenderTarget is a framebuffer object with a color texture attachment. It
// implements spritz.RenderTarget.
//
type RenderTarget struct {
	fbo   uint32
	tex   *Texture
	clear spritz.Color
	prev  [4]int32 // viewport saved by BindForWriting
	bound bool
}

// NewRenderTarget returns a new render target of the given size. params
// apply to the color texture and default to nearest filtering.
//
func NewRenderTarget(width, height int, params ...Parameter) (*RenderTarget, error) {
	params = append([]Parameter{Filter(Nearest, Nearest)}, params...)
	tex, err := NewTexture(width, height, params...)
	if err != nil {
		return nil, errors.Wrap(err, "render target texture")
	}
	rt := &RenderTarget{tex: tex, clear: spritz.Color{A: 1}}
	gl.GenFramebuffers(1, &rt.fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, tex.glID, 0)
	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		rt.Delete()
		return nil, errors.Errorf("incomplete framebuffer: status 0x%04x", status)
	}
	return rt, nil
}

// BindForWriting implements spritz.RenderTarget. It saves the current
// viewport and sets a viewport covering the whole target.
//
func (rt *RenderTarget) BindForWriting() {
	if rt.bound {
		return
	}
	gl.GetIntegerv(gl.VIEWPORT, &rt.prev[0])
	gl.BindFramebuffer(gl.FRAMEBUFFER, rt.fbo)
	sz := rt.tex.Size()
	gl.Viewport(0, 0, int32(sz.X), int32(sz.Y))
	rt.bound = true
}

// Unbind implements spritz.RenderTarget. It restores the default framebuffer
// and the viewport saved by BindForWriting.
//
func (rt *RenderTarget) Unbind() {
	if !rt.bound {
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(rt.prev[0], rt.prev[1], rt.prev[2], rt.prev[3])
	rt.bound = false
}

// Texture returns the color attachment.
//
func (rt *RenderTarget) Texture() spritz.Texture {
	return rt.tex
}

// Size returns the size of the target in pixels.
//
func (rt *RenderTarget) Size() image.Point {
	return rt.tex.Size()
}

// SetClearColor sets the color used by Clear.
//
func (rt *RenderTarget) SetClearColor(c color.Color) {
	rt.clear = spritz.ToColor(c)
}

// Clear clears the target with its clear color. It is a no-op if the target
// is not bound.
//
func (rt *RenderTarget) Clear() {
	if !rt.bound {
		return
	}
	gl.ClearColor(rt.clear.R, rt.clear.G, rt.clear.B, rt.clear.A)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// Delete deletes the framebuffer and its texture.
//
func (rt *RenderTarget) Delete() {
	if rt.fbo != 0 {
		gl.DeleteFramebuffers(1, &rt.fbo)
		rt.fbo = 0
	}
	if rt.tex != nil {
		rt.tex.Delete()
	}
}

// Clear clears the currently bound framebuffer.
//
func Clear(c color.Color) {
	cc := spritz.ToColor(c)
	gl.ClearColor(cc.R, cc.G, cc.B, cc.A)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// Viewport sets the GL viewport.
//
func Viewport(r image.Rectangle) {
	gl.Viewport(int32(r.Min.X), int32(r.Min.Y), int32(r.Dx()), int32(r.Dy()))
}
