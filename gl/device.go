package gl

import (
	"github.com/db47h/spritz"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/pkg/errors"
)

const (
	sizeofFloat  = 4
	sizeofUint32 = 4
	stride       = spritz.FloatsPerVertex * sizeofFloat
)

var _ spritz.Device = (*Device)(nil)

// Device is a spritz.Device backed by a vertex array object with fixed size
// vertex and index buffers.
//
type Device struct {
	vao, vbo, ebo uint32
	quads         int
}

// NewDevice returns a new Device. Buffers are allocated by spritz.NewBatch.
//
func NewDevice() *Device {
	return new(Device)
}

// Allocate implements spritz.Device. It also enables blending for textures
// with premultiplied alpha.
//
func (d *Device) Allocate(quads int) error {
	if d.vao != 0 {
		return errors.New("device buffers already allocated")
	}
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)

	gl.GenBuffers(1, &d.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, quads*spritz.FloatsPerQuad*sizeofFloat, nil, gl.DYNAMIC_DRAW)

	gl.GenBuffers(1, &d.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, d.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, quads*spritz.IndicesPerQuad*sizeofUint32, nil, gl.DYNAMIC_DRAW)

	// position, texture coordinates, color
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointer(0, 2, gl.FLOAT, false, stride, gl.PtrOffset(0))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointer(1, 2, gl.FLOAT, false, stride, gl.PtrOffset(2*sizeofFloat))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointer(2, 4, gl.FLOAT, false, stride, gl.PtrOffset(4*sizeofFloat))

	gl.BindVertexArray(0)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.ONE, gl.ONE_MINUS_SRC_ALPHA)

	if err := checkError("allocate device buffers"); err != nil {
		d.Release()
		return err
	}
	d.quads = quads
	return nil
}

type binder interface {
	Bind()
}

// BindTexture implements spritz.Device. Textures created by this package
// regenerate their mipmaps on bind if needed.
//
func (d *Device) BindTexture(t spritz.Texture) {
	gl.ActiveTexture(gl.TEXTURE0)
	if b, ok := t.(binder); ok {
		b.Bind()
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, t.NativeID())
}

// Upload implements spritz.Device.
//
func (d *Device) Upload(vertices []float32, indices []uint32) {
	gl.BindVertexArray(d.vao)
	if len(vertices) > 0 {
		gl.BindBuffer(gl.ARRAY_BUFFER, d.vbo)
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(vertices)*sizeofFloat, gl.Ptr(vertices))
	}
	if len(indices) > 0 {
		gl.BufferSubData(gl.ELEMENT_ARRAY_BUFFER, 0, len(indices)*sizeofUint32, gl.Ptr(indices))
	}
}

// DrawIndexed implements spritz.Device.
//
func (d *Device) DrawIndexed(count int) {
	gl.BindVertexArray(d.vao)
	gl.DrawElements(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, nil)
}

// Release implements spritz.Device.
//
func (d *Device) Release() {
	if d.ebo != 0 {
		gl.DeleteBuffers(1, &d.ebo)
	}
	if d.vbo != 0 {
		gl.DeleteBuffers(1, &d.vbo)
	}
	if d.vao != 0 {
		gl.DeleteVertexArrays(1, &d.vao)
	}
	d.vao, d.vbo, d.ebo, d.quads = 0, 0, 0, 0
}
