package spritz

import "image/color"

// Color implements color.Color. It stores non-premultiplied color components
// in the range [0, 1], which is the layout written into vertex buffers.
//
type Color struct {
	R, G, B, A float32
}

// White is the default tint of sprites and batches.
//
var White = Color{1, 1, 1, 1}

// RGBA returns a Color from float components in the range [0, 1].
//
func RGBA(r, g, b, a float32) Color {
	return Color{r, g, b, a}
}

// RGBA8 returns a Color from 8 bit components.
//
func RGBA8(r, g, b, a uint8) Color {
	return Color{float32(r) / 255, float32(g) / 255, float32(b) / 255, float32(a) / 255}
}

// RGBA implements color.Color.
//
func (c Color) RGBA() (r, g, b, a uint32) {
	a = uint32(clamp(c.A) * 0xffff)
	r = uint32(clamp(c.R)*clamp(c.A)*0xffff) & 0xffff
	g = uint32(clamp(c.G)*clamp(c.A)*0xffff) & 0xffff
	b = uint32(clamp(c.B)*clamp(c.A)*0xffff) & 0xffff
	return r, g, b, a
}

func clamp(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// ColorModel converts any color.Color to a Color; i.e. the result can safely be
// casted to a Color.
//
var ColorModel = color.ModelFunc(colorModel)

func colorModel(c color.Color) color.Color {
	if _, ok := c.(Color); ok {
		return c
	}
	nc := color.NRGBA64Model.Convert(c).(color.NRGBA64)
	return Color{
		R: float32(nc.R) / 0xffff,
		G: float32(nc.G) / 0xffff,
		B: float32(nc.B) / 0xffff,
		A: float32(nc.A) / 0xffff,
	}
}

// ToColor converts c to a Color. A nil color converts to White.
//
func ToColor(c color.Color) Color {
	if c == nil {
		return White
	}
	return ColorModel.Convert(c).(Color)
}
