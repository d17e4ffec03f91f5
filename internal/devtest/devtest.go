// Package devtest provides recording implementations of the spritz device
// interfaces for tests.
//
package devtest

import (
	"fmt"
	"image"

	"github.com/db47h/spritz"
	"github.com/go-gl/mathgl/mgl32"
)

// Log records device calls in order.
//
type Log struct {
	Calls []string
}

func (l *Log) add(format string, args ...interface{}) {
	l.Calls = append(l.Calls, fmt.Sprintf(format, args...))
}

// Reset clears recorded calls.
//
func (l *Log) Reset() {
	l.Calls = l.Calls[:0]
}

// Count returns how many recorded calls start with prefix.
//
func (l *Log) Count(prefix string) int {
	n := 0
	for _, c := range l.Calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// Submission is the data of one DrawIndexed call.
//
type Submission struct {
	Texture  uint32
	Vertices []float32
	Indices  []uint32
	Count    int
}

// Quads returns the number of quads in the submission.
//
func (s *Submission) Quads() int {
	return len(s.Vertices) / spritz.FloatsPerQuad
}

// Device is a recording spritz.Device.
//
type Device struct {
	*Log
	Quads       int
	AllocErr    error
	Released    bool
	Submissions []Submission

	tex      uint32
	vertices []float32
	indices  []uint32
}

// NewDevice returns a device recording calls to l. If l is nil, a new Log is
// created.
//
func NewDevice(l *Log) *Device {
	if l == nil {
		l = new(Log)
	}
	return &Device{Log: l}
}

func (d *Device) Allocate(quads int) error {
	d.add("allocate %d", quads)
	if d.AllocErr != nil {
		return d.AllocErr
	}
	d.Quads = quads
	return nil
}

func (d *Device) BindTexture(t spritz.Texture) {
	d.tex = t.NativeID()
	d.add("bind texture %d", d.tex)
}

// BindExternal changes the bound texture without going through BindTexture,
// like a texture upload does on a real device.
//
func (d *Device) BindExternal(id uint32) {
	d.add("external bind %d", id)
	d.tex = id
}

func (d *Device) Upload(vertices []float32, indices []uint32) {
	d.add("upload %d %d", len(vertices), len(indices))
	d.vertices = append(d.vertices[:0], vertices...)
	d.indices = append(d.indices[:0], indices...)
}

func (d *Device) DrawIndexed(count int) {
	d.add("draw %d", count)
	d.Submissions = append(d.Submissions, Submission{
		Texture:  d.tex,
		Vertices: append([]float32(nil), d.vertices...),
		Indices:  append([]uint32(nil), d.indices...),
		Count:    count,
	})
}

func (d *Device) Release() {
	d.add("release")
	d.Released = true
}

// TotalQuads returns the number of quads across all submissions.
//
func (d *Device) TotalQuads() int {
	n := 0
	for i := range d.Submissions {
		n += d.Submissions[i].Quads()
	}
	return n
}

// Shader is a recording spritz.Shader.
//
type Shader struct {
	*Log
	Name     string
	Bound    bool
	Matrices map[string]mgl32.Mat4
	Ints     map[string]int32
}

func NewShader(l *Log, name string) *Shader {
	return &Shader{
		Log:      l,
		Name:     name,
		Matrices: make(map[string]mgl32.Mat4),
		Ints:     make(map[string]int32),
	}
}

func (s *Shader) Bind() {
	s.add("bind shader %s", s.Name)
	s.Bound = true
}

func (s *Shader) Unbind() {
	s.add("unbind shader %s", s.Name)
	s.Bound = false
}

func (s *Shader) SetUniformMatrix4(name string, m mgl32.Mat4) {
	s.add("uniform %s %s", s.Name, name)
	s.Matrices[name] = m
}

func (s *Shader) SetUniformInt(name string, v int32) {
	s.add("uniform %s %s=%d", s.Name, name, v)
	s.Ints[name] = v
}

// Texture is a spritz.Texture with a fixed id and size.
//
type Texture struct {
	ID   uint32
	W, H int
}

func (t *Texture) NativeID() uint32  { return t.ID }
func (t *Texture) Size() image.Point { return image.Pt(t.W, t.H) }
func (t *Texture) String() string    { return fmt.Sprintf("texture %d", t.ID) }

// Target is a recording spritz.RenderTarget.
//
type Target struct {
	*Log
	Name  string
	Tex   *Texture
	Bound bool
}

func NewTarget(l *Log, name string, tex *Texture) *Target {
	return &Target{Log: l, Name: name, Tex: tex}
}

func (rt *Target) BindForWriting() {
	rt.add("bind target %s", rt.Name)
	rt.Bound = true
}

func (rt *Target) Unbind() {
	rt.add("unbind target %s", rt.Name)
	rt.Bound = false
}

func (rt *Target) Texture() spritz.Texture {
	return rt.Tex
}
