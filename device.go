package spritz

import "github.com/go-gl/mathgl/mgl32"

// Uniform names set by a Batch on its shaders.
const (
	ProjectionUniform = "projection"
	TextureUniform    = "u_texture"
)

// Vertex layout written by a Batch: x, y, u, v, r, g, b, a.
const (
	FloatsPerVertex = 8
	FloatsPerQuad   = FloatsPerVertex * 4
	IndicesPerQuad  = 6
)

// Device is the graphics device a Batch submits geometry to. All methods are
// called from the goroutine that owns the graphics context.
//
type Device interface {
	// Allocate creates device side vertex and index buffers large enough to
	// hold quads quads.
	Allocate(quads int) error
	// BindTexture makes t the texture sampled by subsequent draws.
	BindTexture(t Texture)
	// Upload copies vertices and indices to the device buffers, starting at
	// offset 0. The slices are only valid for the duration of the call.
	Upload(vertices []float32, indices []uint32)
	// DrawIndexed draws count indices from the uploaded buffers as a list of
	// triangles.
	DrawIndexed(count int)
	// Release frees device side buffers.
	Release()
}

// Shader is implemented by shader programs. Batches compare shaders by
// identity, so implementations should be pointer types.
//
type Shader interface {
	Bind()
	Unbind()
	SetUniformMatrix4(name string, m mgl32.Mat4)
	SetUniformInt(name string, v int32)
}

// RenderTarget is an offscreen surface that can receive drawing output
// instead of the default surface. Batches compare render targets by
// identity.
//
type RenderTarget interface {
	BindForWriting()
	Unbind()
	Texture() Texture
}
