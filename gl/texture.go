package gl

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/pkg/errors"
)

// FilterMode selects how to filter textures.
//
type FilterMode int32

// FilterMode values map directly to their OpenGL equivalents.
//
const (
	Nearest              FilterMode = gl.NEAREST
	Linear               FilterMode = gl.LINEAR
	NearestMipmapNearest FilterMode = gl.NEAREST_MIPMAP_NEAREST
	NearestMipmapLinear  FilterMode = gl.NEAREST_MIPMAP_LINEAR
	LinearMipmapNearest  FilterMode = gl.LINEAR_MIPMAP_NEAREST
	LinearMipmapLinear   FilterMode = gl.LINEAR_MIPMAP_LINEAR
)

func (f FilterMode) mipmap() bool {
	switch f {
	case NearestMipmapNearest, NearestMipmapLinear, LinearMipmapNearest, LinearMipmapLinear:
		return true
	}
	return false
}

// WrapMode selects how textures wrap when texture coordinates get outside of
// the range [0, 1].
//
// When drawing through a spritz.Batch, the only settings that make sense are
// ClampToEdge (the default) and ClampToBorder.
//
type WrapMode int32

// WrapMode values map directly to their OpenGL equivalents.
//
const (
	Repeat         WrapMode = gl.REPEAT
	MirroredRepeat WrapMode = gl.MIRRORED_REPEAT
	ClampToEdge    WrapMode = gl.CLAMP_TO_EDGE
	ClampToBorder  WrapMode = gl.CLAMP_TO_BORDER
)

// A Texture is an OpenGL texture. It implements spritz.Texture.
//
type Texture struct {
	width  int
	height int
	glID   uint32
	mipmap bool
	dirty  bool
}

type tp struct {
	wrapS, wrapT         WrapMode
	minFilter, magFilter FilterMode
	border               color.Color
}

// Parameter is implemented by functions setting texture parameters. See
// NewTexture.
//
type Parameter interface {
	set(*tp)
}

type paramFunc func(*tp)

func (f paramFunc) set(p *tp) {
	f(p)
}

// Wrap sets the GL_TEXTURE_WRAP_S and GL_TEXTURE_WRAP_T texture parameters.
//
func Wrap(wrapS, wrapT WrapMode) Parameter {
	return paramFunc(func(p *tp) {
		p.wrapS = wrapS
		p.wrapT = wrapT
	})
}

// Filter sets the GL_TEXTURE_MIN_FILTER and GL_TEXTURE_MAG_FILTER texture
// parameters.
//
func Filter(min, mag FilterMode) Parameter {
	return paramFunc(func(p *tp) {
		p.minFilter = min
		p.magFilter = mag
	})
}

// BorderColor sets the GL_TEXTURE_BORDER_COLOR texture parameter.
//
func BorderColor(c color.Color) Parameter {
	return paramFunc(func(p *tp) {
		p.border = c
	})
}

// defaults applied to every new texture before user parameters
var defaultParams = []Parameter{
	Wrap(ClampToEdge, ClampToEdge),
	Filter(Linear, Linear),
}

// NewTexture returns a new uninitialized texture of the given width and
// height.
//
func NewTexture(width, height int, params ...Parameter) (*Texture, error) {
	return newTexture(width, height, nil, params...)
}

// TextureFromImage creates a new texture of the same dimensions as the source
// image. Regardless of the source image type, the resulting texture is always
// in RGBA format.
//
func TextureFromImage(src image.Image, params ...Parameter) (*Texture, error) {
	pix, sz := rgbaPixels(src, src.Bounds())
	return newTexture(sz.X, sz.Y, pix, params...)
}

// rgbaPixels returns the pixels of the sr region of src in tightly packed
// RGBA format.
//
func rgbaPixels(src image.Image, sr image.Rectangle) ([]uint8, image.Point) {
	sz := sr.Size()
	if i, ok := src.(*image.RGBA); ok && sr == i.Bounds() && i.Stride == 4*sz.X {
		return i.Pix, sz
	}
	r := image.Rectangle{Max: sz}
	dst := image.NewRGBA(r)
	draw.Draw(dst, r, src, sr.Min, draw.Src)
	return dst.Pix, sz
}

func newTexture(width, height int, pix []uint8, params ...Parameter) (*Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid texture size %dx%d", width, height)
	}
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)

	t := &Texture{width: width, height: height, glID: tex}
	t.setParams(append(defaultParams[:len(defaultParams):len(defaultParams)], params...)...)

	var ptr interface{}
	if pix != nil {
		ptr = pix
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(ptr))
	if t.dirty && pix != nil {
		gl.GenerateMipmap(gl.TEXTURE_2D)
		t.dirty = false
	}
	if err := checkError("create texture"); err != nil {
		gl.DeleteTextures(1, &tex)
		return nil, err
	}
	return t, nil
}

// Parameters sets the given texture parameters.
//
func (t *Texture) Parameters(params ...Parameter) {
	if len(params) == 0 {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, t.glID)
	t.setParams(params...)
}

func (t *Texture) setParams(params ...Parameter) {
	var tp tp
	for _, p := range params {
		p.set(&tp)
	}
	if tp.wrapS != 0 {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, int32(tp.wrapS))
	}
	if tp.wrapT != 0 {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, int32(tp.wrapT))
	}
	if tp.minFilter != 0 {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, int32(tp.minFilter))
		t.mipmap = tp.minFilter.mipmap()
		t.dirty = t.mipmap
	}
	if tp.magFilter != 0 {
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, int32(tp.magFilter))
	}
	if tp.border != nil {
		c := color.NRGBAModel.Convert(tp.border).(color.NRGBA)
		bc := [...]float32{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}
		gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &bc[0])
	}
}

// Bind binds the texture to the active texture unit and regenerates mipmaps
// if needed.
//
func (t *Texture) Bind() {
	gl.BindTexture(gl.TEXTURE_2D, t.glID)
	if t.dirty {
		gl.GenerateMipmap(gl.TEXTURE_2D)
		t.dirty = false
	}
}

// SetSubImage draws src to the texture. It works identically to draw.Draw
// with op set to draw.Src.
//
func (t *Texture) SetSubImage(dr image.Rectangle, src image.Image, sp image.Point) {
	sz := dr.Size()
	if sz.X <= 0 || sz.Y <= 0 {
		return
	}
	pix, _ := rgbaPixels(src, image.Rectangle{Min: sp, Max: sp.Add(sz)})
	gl.BindTexture(gl.TEXTURE_2D, t.glID)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, int32(dr.Min.X), int32(dr.Min.Y), int32(sz.X), int32(sz.Y), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	if t.mipmap {
		t.dirty = true
	}
}

// Size returns the size of the texture.
//
func (t *Texture) Size() image.Point {
	return image.Pt(t.width, t.height)
}

// NativeID returns the GL name of the texture.
//
func (t *Texture) NativeID() uint32 {
	return t.glID
}

// Delete deletes the texture.
//
func (t *Texture) Delete() {
	gl.DeleteTextures(1, &t.glID)
	t.glID = 0
}
