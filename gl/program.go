package gl

import (
	"strings"

	"github.com/db47h/spritz"
	"github.com/go-gl/gl/v3.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Vertex attribute locations. Custom shaders must declare their inputs with
// these names; locations are bound before linking.
//
const (
	AttribPosition = "in_position"
	AttribTexCoord = "in_texCoord"
	AttribColor    = "in_color"
)

var attribs = [...]string{AttribPosition, AttribTexCoord, AttribColor}

// DefaultVertexShader is the vertex shader of the default program.
//
const DefaultVertexShader = `#version 330 core
in vec2 in_position;
in vec2 in_texCoord;
in vec4 in_color;

out vec2 v_texCoord;
out vec4 v_color;

uniform mat4 projection;

void main() {
	v_texCoord = in_texCoord;
	v_color = vec4(in_color.rgb * in_color.a, in_color.a);
	gl_Position = projection * vec4(in_position, 0.0, 1.0);
}
`

// DefaultFragmentShader is the fragment shader of the default program.
//
const DefaultFragmentShader = `#version 330 core
in vec2 v_texCoord;
in vec4 v_color;

out vec4 color;

uniform sampler2D u_texture;

void main() {
	color = texture(u_texture, v_texCoord) * v_color;
}
`

var _ spritz.Shader = (*Program)(nil)

// A Program is a linked shader program. It implements spritz.Shader.
//
type Program struct {
	id       uint32
	name     string
	uniforms map[string]int32
}

func compileShader(typ uint32, src string) (uint32, error) {
	s := gl.CreateShader(typ)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(s, 1, csrc, nil)
	free()
	gl.CompileShader(s)

	var status int32
	gl.GetShaderiv(s, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetShaderiv(s, gl.INFO_LOG_LENGTH, &n)
		msg := strings.Repeat("\x00", int(n+1))
		gl.GetShaderInfoLog(s, n, nil, gl.Str(msg))
		gl.DeleteShader(s)
		return 0, errors.New(strings.TrimRight(msg, "\x00"))
	}
	return s, nil
}

// NewProgram compiles and links a program from vertex and fragment shader
// sources. name is used in error messages.
//
func NewProgram(name, vertex, fragment string) (*Program, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertex)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: compile vertex shader", name)
	}
	defer gl.DeleteShader(vs)
	fs, err := compileShader(gl.FRAGMENT_SHADER, fragment)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: compile fragment shader", name)
	}
	defer gl.DeleteShader(fs)

	id := gl.CreateProgram()
	gl.AttachShader(id, vs)
	gl.AttachShader(id, fs)
	for i, a := range attribs {
		gl.BindAttribLocation(id, uint32(i), gl.Str(a+"\x00"))
	}
	gl.LinkProgram(id)

	var status int32
	gl.GetProgramiv(id, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var n int32
		gl.GetProgramiv(id, gl.INFO_LOG_LENGTH, &n)
		msg := strings.Repeat("\x00", int(n+1))
		gl.GetProgramInfoLog(id, n, nil, gl.Str(msg))
		gl.DeleteProgram(id)
		return nil, errors.Errorf("%s: link program: %s", name, strings.TrimRight(msg, "\x00"))
	}
	gl.DetachShader(id, vs)
	gl.DetachShader(id, fs)
	return &Program{id: id, name: name, uniforms: make(map[string]int32)}, nil
}

// DefaultProgram returns a new program built from DefaultVertexShader and
// DefaultFragmentShader.
//
func DefaultProgram() (*Program, error) {
	return NewProgram("default", DefaultVertexShader, DefaultFragmentShader)
}

// Name returns the name given to NewProgram.
//
func (p *Program) Name() string { return p.name }

func (p *Program) Bind()   { gl.UseProgram(p.id) }
func (p *Program) Unbind() { gl.UseProgram(0) }

// UniformLocation returns the location of the named uniform, or -1 if the
// program has no such active uniform. Locations are cached.
//
func (p *Program) UniformLocation(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.id, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

// SetUniformMatrix4 implements spritz.Shader. The program must be bound.
//
func (p *Program) SetUniformMatrix4(name string, m mgl32.Mat4) {
	if loc := p.UniformLocation(name); loc >= 0 {
		gl.UniformMatrix4fv(loc, 1, false, &m[0])
	}
}

// SetUniformInt implements spritz.Shader. The program must be bound.
//
func (p *Program) SetUniformInt(name string, v int32) {
	if loc := p.UniformLocation(name); loc >= 0 {
		gl.Uniform1i(loc, v)
	}
}

// SetUniformFloat sets a float uniform. The program must be bound.
//
func (p *Program) SetUniformFloat(name string, v float32) {
	if loc := p.UniformLocation(name); loc >= 0 {
		gl.Uniform1f(loc, v)
	}
}

// SetUniformColor sets a vec4 uniform from a color. The program must be
// bound.
//
func (p *Program) SetUniformColor(name string, c spritz.Color) {
	if loc := p.UniformLocation(name); loc >= 0 {
		gl.Uniform4f(loc, c.R, c.G, c.B, c.A)
	}
}

// Delete deletes the program.
//
func (p *Program) Delete() {
	gl.DeleteProgram(p.id)
	p.id = 0
}
