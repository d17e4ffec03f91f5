package ebitendev

import (
	"image"

	"github.com/db47h/spritz"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

var (
	_ spritz.Device       = (*Device)(nil)
	_ spritz.Shader       = (*Shader)(nil)
	_ spritz.RenderTarget = (*RenderTarget)(nil)
	_ spritz.Texture      = (*Image)(nil)
)

// Shader is a spritz.Shader for a Device. A Shader without a Kage program
// draws with ebiten's built-in shader.
//
type Shader struct {
	dev      *Device
	shader   *ebiten.Shader
	proj     mgl32.Mat4
	uniforms map[string]interface{}
}

// DefaultShader returns a shader drawing with ebiten's built-in shader.
//
func (d *Device) DefaultShader() *Shader {
	return d.NewShader(nil)
}

// NewShader returns a shader drawing with the given Kage program. Uniforms
// set through the spritz.Shader interface are passed to the program, except
// for the texture sampler which is always source image 0.
//
func (d *Device) NewShader(s *ebiten.Shader) *Shader {
	return &Shader{
		dev:      d,
		shader:   s,
		proj:     mgl32.Ident4(),
		uniforms: make(map[string]interface{}),
	}
}

// CompileShader compiles Kage source and returns a shader for it.
//
func (d *Device) CompileShader(src []byte) (*Shader, error) {
	s, err := ebiten.NewShader(src)
	if err != nil {
		return nil, err
	}
	return d.NewShader(s), nil
}

func (s *Shader) Bind() { s.dev.shader = s }

func (s *Shader) Unbind() {
	if s.dev.shader == s {
		s.dev.shader = nil
	}
}

// SetUniformMatrix4 implements spritz.Shader. The projection matrix is used
// to map vertices to destination pixels.
//
func (s *Shader) SetUniformMatrix4(name string, m mgl32.Mat4) {
	if name == spritz.ProjectionUniform {
		s.proj = m
		return
	}
	s.uniforms[name] = m[:]
}

// SetUniformInt implements spritz.Shader.
//
func (s *Shader) SetUniformInt(name string, v int32) {
	if name == spritz.TextureUniform {
		return
	}
	s.uniforms[name] = int(v)
}

// SetUniform sets a Kage uniform to any value ebiten accepts.
//
func (s *Shader) SetUniform(name string, v interface{}) {
	s.uniforms[name] = v
}

// RenderTarget is an offscreen ebiten image usable as a spritz.RenderTarget.
//
type RenderTarget struct {
	dev  *Device
	img  *Image
	prev *ebiten.Image
}

// NewRenderTarget returns a new offscreen target of the given size.
//
func (d *Device) NewRenderTarget(width, height int) *RenderTarget {
	return &RenderTarget{dev: d, img: NewImage(ebiten.NewImage(width, height))}
}

func (rt *RenderTarget) BindForWriting() {
	rt.prev = rt.dev.dst
	rt.dev.dst = rt.img.img
}

func (rt *RenderTarget) Unbind() {
	if rt.dev.dst == rt.img.img {
		rt.dev.dst = rt.prev
		if rt.dev.dst == nil {
			rt.dev.dst = rt.dev.screen
		}
	}
	rt.prev = nil
}

func (rt *RenderTarget) Texture() spritz.Texture { return rt.img }
func (rt *RenderTarget) Size() image.Point       { return rt.img.Size() }

// Clear clears the target to transparent black.
//
func (rt *RenderTarget) Clear() {
	rt.img.img.Clear()
}

// Dispose deallocates the target image.
//
func (rt *RenderTarget) Dispose() {
	rt.img.img.Deallocate()
}
