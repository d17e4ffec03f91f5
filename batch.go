package spritz

import (
	"image/color"
	"math"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type batchState int

const (
	stateClosed batchState = iota
	stateOpen
	stateFlushing
	stateDisposed
)

func (s batchState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateFlushing:
		return "flushing"
	case stateDisposed:
		return "disposed"
	}
	return "unknown"
}

// flush triggers, reported in debug logs
const (
	reasonExplicit   = "explicit"
	reasonCapacity   = "capacity"
	reasonTexture    = "texture"
	reasonShader     = "shader"
	reasonTarget     = "target"
	reasonProjection = "projection"
	reasonEnd        = "end"
)

var (
	defaultLoggerOnce sync.Once
	defaultLogger     *log.Logger
)

func getDefaultLogger() *log.Logger {
	defaultLoggerOnce.Do(func() {
		defaultLogger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          "spritz",
		})
	})
	return defaultLogger
}

// Stats holds submission counters since the last call to Begin.
//
type Stats struct {
	Flushes         int // draw submissions
	Quads           int // quads submitted
	TextureSwitches int // flushes caused by a texture change
}

// A Batch accumulates textured quads and submits them to a Device in as few
// draw calls as possible. Quads are drawn in the order they are added; a
// flush is triggered when the buffer is full, when the texture changes, when
// the shader, render target or projection changes, and by End.
//
// A Batch is not safe for concurrent use. It must be used from the goroutine
// that owns the graphics context.
//
type Batch struct {
	dev Device
	log *log.Logger

	capacity int
	vertices []float32
	indices  []uint32
	vi, ii   int // write cursors
	count    int // pending quads

	state   batchState
	color   Color
	proj    mgl32.Mat4
	hasProj bool

	defaultShader Shader
	shader        Shader
	target        RenderTarget
	texture       Texture

	stats Stats
}

// Option is implemented by functions configuring a Batch. See NewBatch.
//
type Option interface {
	set(*Batch)
}

type optionFunc func(*Batch)

func (f optionFunc) set(b *Batch) {
	f(b)
}

// Logger sets the logger used by the batch.
//
func Logger(l *log.Logger) Option {
	return optionFunc(func(b *Batch) {
		b.log = l
	})
}

// Projection sets the initial projection matrix.
//
func Projection(m mgl32.Mat4) Option {
	return optionFunc(func(b *Batch) {
		b.proj = m
		b.hasProj = true
	})
}

// NewBatch returns a new Batch that can hold up to capacity quads between
// flushes. defaultShader is used when no other shader is selected.
//
func NewBatch(dev Device, capacity int, defaultShader Shader, opts ...Option) (*Batch, error) {
	if capacity <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "batch capacity must be positive, got %d", capacity)
	}
	if dev == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil device")
	}
	if defaultShader == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "nil default shader")
	}
	if uint64(capacity)*4 > math.MaxUint32 {
		return nil, errors.Wrapf(ErrInvalidArgument, "batch capacity %d overflows 32 bits indices", capacity)
	}
	b := &Batch{
		dev:           dev,
		capacity:      capacity,
		vertices:      make([]float32, capacity*FloatsPerQuad),
		indices:       make([]uint32, capacity*IndicesPerQuad),
		color:         White,
		defaultShader: defaultShader,
		shader:        defaultShader,
	}
	for _, o := range opts {
		o.set(b)
	}
	if b.log == nil {
		b.log = getDefaultLogger()
	}
	if err := dev.Allocate(capacity); err != nil {
		return nil, errors.Wrap(err, "allocate device buffers")
	}
	b.log.Debug("batch created", "capacity", capacity)
	return b, nil
}

// Capacity returns the maximum number of quads between two flushes.
//
func (b *Batch) Capacity() int {
	return b.capacity
}

// Pending returns the number of quads waiting to be flushed.
//
func (b *Batch) Pending() int {
	return b.count
}

// IsOpen reports whether the batch is between Begin and End.
//
func (b *Batch) IsOpen() bool {
	return b.state == stateOpen || b.state == stateFlushing
}

// Stats returns submission counters since the last call to Begin.
//
func (b *Batch) Stats() Stats {
	return b.stats
}

// Color returns the tint applied by DrawRegion and DrawTransformed.
//
func (b *Batch) Color() Color {
	return b.color
}

// SetColor sets the tint applied by DrawRegion and DrawTransformed. A nil
// color resets it to White. Sprites carry their own color.
//
func (b *Batch) SetColor(c color.Color) {
	b.color = ToColor(c)
}

func (b *Batch) checkOpen(op string) error {
	switch b.state {
	case stateOpen:
		return nil
	case stateDisposed:
		return errors.Wrap(ErrDisposed, op)
	case stateFlushing:
		return errors.Wrapf(ErrInvalidState, "%s called during flush", op)
	}
	return errors.Wrapf(ErrInvalidState, "%s called before Begin", op)
}

func (b *Batch) checkUsable(op string) error {
	switch b.state {
	case stateDisposed:
		return errors.Wrap(ErrDisposed, op)
	case stateFlushing:
		return errors.Wrapf(ErrInvalidState, "%s called during flush", op)
	}
	return nil
}

// SetProjection sets the projection matrix. If the batch is open, pending
// quads are flushed and the new matrix is uploaded to the current shader.
//
func (b *Batch) SetProjection(m mgl32.Mat4) error {
	if err := b.checkUsable("SetProjection"); err != nil {
		return err
	}
	b.proj = m
	b.hasProj = true
	if b.state == stateOpen {
		b.flush(reasonProjection)
		b.shader.SetUniformMatrix4(ProjectionUniform, b.proj)
	}
	return nil
}

// SetShader selects the shader program for subsequent quads. A nil shader
// selects the default one. If the batch is open, pending quads are flushed
// before the switch.
//
func (b *Batch) SetShader(s Shader) error {
	if err := b.checkUsable("SetShader"); err != nil {
		return err
	}
	if s == nil {
		s = b.defaultShader
	}
	if s == b.shader {
		return nil
	}
	if b.state == stateOpen {
		b.flush(reasonShader)
		b.shader.Unbind()
		b.bindShader(s)
	}
	b.shader = s
	return nil
}

// SetRenderTarget redirects output to rt. A nil target selects the default
// surface. If the batch is open, pending quads are flushed before the switch.
//
func (b *Batch) SetRenderTarget(rt RenderTarget) error {
	if err := b.checkUsable("SetRenderTarget"); err != nil {
		return err
	}
	if rt == b.target {
		return nil
	}
	if b.state == stateOpen {
		b.flush(reasonTarget)
		if b.target != nil {
			b.target.Unbind()
		}
		if rt != nil {
			rt.BindForWriting()
		}
	}
	b.target = rt
	return nil
}

func (b *Batch) bindShader(s Shader) {
	s.Bind()
	s.SetUniformMatrix4(ProjectionUniform, b.proj)
	s.SetUniformInt(TextureUniform, 0)
}

type frameCfg struct {
	texture   Texture
	shader    Shader
	target    RenderTarget
	hasShader bool
	hasTarget bool
}

// FrameOption is implemented by functions passed to Begin.
//
type FrameOption interface {
	set(*frameCfg)
}

type frameOptionFunc func(*frameCfg)

func (f frameOptionFunc) set(cfg *frameCfg) {
	f(cfg)
}

// WithTexture presets the active texture. Drawing quads from this texture
// right after Begin does not count as a texture change.
//
func WithTexture(t Texture) FrameOption {
	return frameOptionFunc(func(cfg *frameCfg) {
		cfg.texture = t
	})
}

// WithShader selects the shader for the frame. nil selects the default
// shader.
//
func WithShader(s Shader) FrameOption {
	return frameOptionFunc(func(cfg *frameCfg) {
		cfg.shader = s
		cfg.hasShader = true
	})
}

// WithTarget selects the render target for the frame. nil selects the
// default surface.
//
func WithTarget(rt RenderTarget) FrameOption {
	return frameOptionFunc(func(cfg *frameCfg) {
		cfg.target = rt
		cfg.hasTarget = true
	})
}

// Begin opens the batch. The render target is bound first, if any, then the
// shader, and the projection matrix is uploaded to it.
//
// Without options, the shader and render target last selected with
// SetShader, SetRenderTarget or a previous Begin are used.
//
func (b *Batch) Begin(opts ...FrameOption) error {
	switch b.state {
	case stateDisposed:
		return errors.Wrap(ErrDisposed, "Begin")
	case stateOpen, stateFlushing:
		return errors.Wrap(ErrInvalidState, "Begin called twice without End")
	}
	if !b.hasProj {
		return errors.Wrap(ErrInvalidArgument, "Begin: projection matrix not set")
	}

	var cfg frameCfg
	for _, o := range opts {
		o.set(&cfg)
	}
	if cfg.hasShader {
		b.shader = cfg.shader
		if b.shader == nil {
			b.shader = b.defaultShader
		}
	}
	if cfg.hasTarget {
		b.target = cfg.target
	}
	b.texture = cfg.texture
	b.stats = Stats{}

	if b.target != nil {
		b.target.BindForWriting()
	}
	b.bindShader(b.shader)
	b.state = stateOpen
	return nil
}

// End flushes pending quads and closes the batch. The shader is unbound and
// the default surface restored if a render target was active.
//
func (b *Batch) End() error {
	switch b.state {
	case stateDisposed:
		return errors.Wrap(ErrDisposed, "End")
	case stateClosed:
		return errors.Wrap(ErrInvalidState, "End called before Begin")
	case stateFlushing:
		return errors.Wrap(ErrInvalidState, "End called during flush")
	}
	b.flush(reasonEnd)
	if b.target != nil {
		b.target.Unbind()
	}
	b.shader.Unbind()
	b.texture = nil
	b.state = stateClosed
	return nil
}

// Flush submits pending quads to the device. It is a no-op if there are none.
//
func (b *Batch) Flush() error {
	if err := b.checkOpen("Flush"); err != nil {
		return err
	}
	b.flush(reasonExplicit)
	return nil
}

func (b *Batch) flush(reason string) {
	if b.count == 0 {
		return
	}
	b.state = stateFlushing
	// texture uploads change the device binding outside of the batch
	b.dev.BindTexture(b.texture)
	if reason == reasonTexture {
		b.stats.TextureSwitches++
	}
	b.dev.Upload(b.vertices[:b.vi], b.indices[:b.ii])
	b.dev.DrawIndexed(b.ii)
	b.stats.Flushes++
	b.stats.Quads += b.count
	if b.log.GetLevel() <= log.DebugLevel {
		b.log.Debug("flush", "reason", reason, "quads", b.count, "texture", b.texture.NativeID())
	}
	b.count, b.vi, b.ii = 0, 0, 0
	b.state = stateOpen
}

// Draw adds a sprite to the batch using the sprite's tint and flip flags.
//
func (b *Batch) Draw(s *Sprite) error {
	if err := b.checkOpen("Draw"); err != nil {
		return err
	}
	if s == nil || s.region == nil || s.region.tex == nil {
		return errors.Wrap(ErrInvalidArgument, "Draw: sprite has no texture region")
	}
	b.append(s.Corners(), s.region.uv, s.color, s.region.tex, s.flipX, s.flipY)
	return nil
}

// DrawRegion adds a quad with the given corners, in the order top-left,
// top-right, bottom-right, bottom-left, using the batch color.
//
func (b *Batch) DrawRegion(r *Region, corners [4]Point) error {
	if err := b.checkOpen("DrawRegion"); err != nil {
		return err
	}
	if r == nil || r.tex == nil {
		return errors.Wrap(ErrInvalidArgument, "DrawRegion: region has no texture")
	}
	b.append(corners, r.uv, b.color, r.tex, false, false)
	return nil
}

// DrawTransformed adds a quad of size (w, h) at (x, y), scaled by (sx, sy)
// and rotated by angle degrees around its center, using the batch color.
//
// Unlike sprite flipping, flipX and flipY mirror the quad geometry: the quad
// is mirrored in place, which also mirrors the sampled texture.
//
func (b *Batch) DrawTransformed(r *Region, x, y, w, h, sx, sy, angle float32, flipX, flipY bool) error {
	w *= sx
	h *= sy
	if flipX {
		w = -w
	}
	if flipY {
		h = -h
	}

	var c [4]Point
	if angle != 0 {
		sin64, cos64 := math.Sincos(float64(mgl32.DegToRad(angle)))
		sin, cos := float32(sin64), float32(cos64)
		hw, hh := w/2, h/2
		rot := func(lx, ly float32) Point {
			return Point{cos*lx - sin*ly + hw + x, sin*lx + cos*ly + hh + y}
		}
		c = [4]Point{rot(-hw, -hh), rot(hw, -hh), rot(hw, hh), rot(-hw, hh)}
	} else {
		c = [4]Point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
	}

	var d Point
	if flipX {
		d.X = -w
	}
	if flipY {
		d.Y = -h
	}
	for i := range c {
		c[i] = c[i].Add(d)
	}
	return b.DrawRegion(r, c)
}

func (b *Batch) append(corners, uv [4]Point, c Color, t Texture, flipX, flipY bool) {
	if b.count > 0 && b.texture.NativeID() != t.NativeID() {
		b.flush(reasonTexture)
	}
	if b.count == b.capacity {
		b.flush(reasonCapacity)
	}
	b.texture = t

	if flipX {
		uv[0].X, uv[1].X = uv[1].X, uv[0].X
		uv[3].X, uv[2].X = uv[2].X, uv[3].X
	}
	if flipY {
		uv[0].Y, uv[3].Y = uv[3].Y, uv[0].Y
		uv[1].Y, uv[2].Y = uv[2].Y, uv[1].Y
	}

	v := b.vertices[b.vi : b.vi+FloatsPerQuad]
	for i := 0; i < 4; i++ {
		o := i * FloatsPerVertex
		v[o+0] = corners[i].X
		v[o+1] = corners[i].Y
		v[o+2] = uv[i].X
		v[o+3] = uv[i].Y
		v[o+4] = c.R
		v[o+5] = c.G
		v[o+6] = c.B
		v[o+7] = c.A
	}
	b.vi += FloatsPerQuad

	base := uint32(b.count * 4)
	idx := b.indices[b.ii : b.ii+IndicesPerQuad]
	idx[0] = base + 0
	idx[1] = base + 1
	idx[2] = base + 3
	idx[3] = base + 1
	idx[4] = base + 2
	idx[5] = base + 3
	b.ii += IndicesPerQuad

	b.count++
}

// Dispose releases device side buffers. The batch cannot be used afterwards.
// Disposing an open batch is an error.
//
func (b *Batch) Dispose() error {
	switch b.state {
	case stateDisposed:
		return nil
	case stateOpen, stateFlushing:
		return errors.Wrapf(ErrInvalidState, "Dispose called while %s", b.state)
	}
	b.dev.Release()
	b.vertices, b.indices = nil, nil
	b.state = stateDisposed
	b.log.Debug("batch disposed")
	return nil
}
