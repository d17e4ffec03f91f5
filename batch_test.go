package spritz_test

import (
	"io"
	"reflect"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/db47h/spritz"
	"github.com/db47h/spritz/internal/devtest"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

type fixture struct {
	log    *devtest.Log
	dev    *devtest.Device
	shader *devtest.Shader
	b      *spritz.Batch
}

func newFixture(t *testing.T, capacity int) *fixture {
	t.Helper()
	l := new(devtest.Log)
	f := &fixture{
		log:    l,
		dev:    devtest.NewDevice(l),
		shader: devtest.NewShader(l, "default"),
	}
	var err error
	f.b, err = spritz.NewBatch(f.dev, capacity, f.shader,
		spritz.Projection(mgl32.Ortho2D(0, 800, 600, 0)),
		spritz.Logger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func unitQuad(x float32) [4]spritz.Point {
	return [4]spritz.Point{{x, 0}, {x + 1, 0}, {x + 1, 1}, {x, 1}}
}

func isErr(err, target error) bool {
	return errors.Cause(err) == target
}

func TestNewBatch_invalid(t *testing.T) {
	dev := devtest.NewDevice(nil)
	sh := devtest.NewShader(dev.Log, "s")
	for _, c := range []int{0, -1} {
		if _, err := spritz.NewBatch(dev, c, sh); !isErr(err, spritz.ErrInvalidArgument) {
			t.Errorf("capacity %d: got error %v", c, err)
		}
	}
	if _, err := spritz.NewBatch(dev, 1, nil); !isErr(err, spritz.ErrInvalidArgument) {
		t.Errorf("nil shader: got error %v", err)
	}
	if _, err := spritz.NewBatch(nil, 1, sh); !isErr(err, spritz.ErrInvalidArgument) {
		t.Errorf("nil device: got error %v", err)
	}
	if dev.Count("allocate") != 0 {
		t.Error("device buffers allocated for invalid batch")
	}
}

func TestNewBatch_allocError(t *testing.T) {
	dev := devtest.NewDevice(nil)
	allocErr := errors.New("out of memory")
	dev.AllocErr = allocErr
	_, err := spritz.NewBatch(dev, 10, devtest.NewShader(dev.Log, "s"))
	if errors.Cause(err) != allocErr {
		t.Fatalf("got error %v", err)
	}
}

func TestBatch_drawBeforeBegin(t *testing.T) {
	f := newFixture(t, 4)
	tex := &devtest.Texture{ID: 1, W: 1, H: 1}
	err := f.b.DrawRegion(spritz.FullRegion(tex), unitQuad(0))
	if !isErr(err, spritz.ErrInvalidState) {
		t.Fatalf("got error %v", err)
	}
	if f.b.Pending() != 0 {
		t.Errorf("got %d pending quads", f.b.Pending())
	}
	if err = f.b.Draw(spritz.NewSprite(1, 1, spritz.FullRegion(tex))); !isErr(err, spritz.ErrInvalidState) {
		t.Errorf("Draw: got error %v", err)
	}
	if err = f.b.Flush(); !isErr(err, spritz.ErrInvalidState) {
		t.Errorf("Flush: got error %v", err)
	}
}

func TestBatch_beginEndState(t *testing.T) {
	f := newFixture(t, 4)
	if err := f.b.End(); !isErr(err, spritz.ErrInvalidState) {
		t.Errorf("End before Begin: got error %v", err)
	}
	if err := f.b.Begin(); err != nil {
		t.Fatal(err)
	}
	if !f.b.IsOpen() {
		t.Error("batch not open after Begin")
	}
	if err := f.b.Begin(); !isErr(err, spritz.ErrInvalidState) {
		t.Errorf("Begin twice: got error %v", err)
	}
	if err := f.b.End(); err != nil {
		t.Fatal(err)
	}
	if f.b.IsOpen() {
		t.Error("batch open after End")
	}
}

func TestBatch_beginWithoutProjection(t *testing.T) {
	dev := devtest.NewDevice(nil)
	b, err := spritz.NewBatch(dev, 4, devtest.NewShader(dev.Log, "s"), spritz.Logger(log.New(io.Discard)))
	if err != nil {
		t.Fatal(err)
	}
	if err = b.Begin(); !isErr(err, spritz.ErrInvalidArgument) {
		t.Fatalf("got error %v", err)
	}
	if b.IsOpen() {
		t.Fatal("batch open after failed Begin")
	}
	if err = b.SetProjection(mgl32.Ident4()); err != nil {
		t.Fatal(err)
	}
	if err = b.Begin(); err != nil {
		t.Fatal(err)
	}
}

func TestBatch_capacity(t *testing.T) {
	const n = 5
	f := newFixture(t, n)
	tex := &devtest.Texture{ID: 1, W: 16, H: 16}
	r := spritz.FullRegion(tex)
	f.b.Begin()
	for i := 0; i < n+1; i++ {
		if err := f.b.DrawRegion(r, unitQuad(float32(i))); err != nil {
			t.Fatal(err)
		}
	}
	if len(f.dev.Submissions) != 1 {
		t.Fatalf("expected a flush when the buffer is full, got %d submissions", len(f.dev.Submissions))
	}
	if f.b.Pending() != 1 {
		t.Errorf("got %d pending quads after capacity flush", f.b.Pending())
	}
	f.b.End()
	if len(f.dev.Submissions) != 2 {
		t.Fatalf("got %d submissions, want 2", len(f.dev.Submissions))
	}
	if q := f.dev.Submissions[0].Quads(); q != n {
		t.Errorf("first submission: got %d quads, want %d", q, n)
	}
	if q := f.dev.TotalQuads(); q != n+1 {
		t.Errorf("got %d quads total, want %d", q, n+1)
	}
	if s := f.b.Stats(); s.Flushes != 2 || s.Quads != n+1 || s.TextureSwitches != 0 {
		t.Errorf("got stats %+v", s)
	}
	for _, s := range f.dev.Submissions {
		if len(s.Vertices) > n*spritz.FloatsPerQuad || s.Count > n*spritz.IndicesPerQuad {
			t.Errorf("submission exceeds batch capacity: %d floats, %d indices", len(s.Vertices), s.Count)
		}
	}
}

func TestBatch_textureSwitch(t *testing.T) {
	f := newFixture(t, 100)
	a := spritz.FullRegion(&devtest.Texture{ID: 1, W: 8, H: 8})
	b := spritz.FullRegion(&devtest.Texture{ID: 2, W: 8, H: 8})
	f.b.Begin()
	for i, r := range []*spritz.Region{a, a, b, a} {
		f.b.DrawRegion(r, unitQuad(float32(i)))
	}
	f.b.End()
	var got []uint32
	var quads []int
	for _, s := range f.dev.Submissions {
		got = append(got, s.Texture)
		quads = append(quads, s.Quads())
	}
	if !reflect.DeepEqual(got, []uint32{1, 2, 1}) {
		t.Errorf("got textures %v", got)
	}
	if !reflect.DeepEqual(quads, []int{2, 1, 1}) {
		t.Errorf("got quads %v", quads)
	}
	if f.dev.Count("bind texture") != 3 {
		t.Errorf("got %d texture binds", f.dev.Count("bind texture"))
	}
	if s := f.b.Stats(); s.TextureSwitches != 2 {
		t.Errorf("got %d texture switches, want 2", s.TextureSwitches)
	}
}

func TestBatch_textureBoundPerFlush(t *testing.T) {
	f := newFixture(t, 1)
	r := spritz.FullRegion(&devtest.Texture{ID: 7, W: 8, H: 8})
	f.b.Begin()
	for i := 0; i < 3; i++ {
		f.b.DrawRegion(r, unitQuad(float32(i)))
	}
	f.b.End()
	if len(f.dev.Submissions) != 3 {
		t.Fatalf("got %d submissions", len(f.dev.Submissions))
	}
	if n := f.dev.Count("bind texture"); n != 3 {
		t.Errorf("texture bound %d times for 3 submissions", n)
	}
	if s := f.b.Stats(); s.TextureSwitches != 0 {
		t.Errorf("got %d texture switches, want 0", s.TextureSwitches)
	}
}

// A texture upload between two flushes of the same texture changes the
// device binding; the next submission must still sample the batch texture.
func TestBatch_rebindAfterExternalBind(t *testing.T) {
	f := newFixture(t, 2)
	r := spritz.FullRegion(&devtest.Texture{ID: 1, W: 8, H: 8})
	f.b.Begin()
	for i := 0; i < 3; i++ {
		f.b.DrawRegion(r, unitQuad(float32(i)))
	}
	f.dev.BindExternal(99)
	f.b.End()
	if len(f.dev.Submissions) != 2 {
		t.Fatalf("got %d submissions", len(f.dev.Submissions))
	}
	for i, s := range f.dev.Submissions {
		if s.Texture != 1 {
			t.Errorf("submission %d drawn with texture %d bound", i, s.Texture)
		}
	}
}

func TestBatch_withTexture(t *testing.T) {
	f := newFixture(t, 10)
	tex := &devtest.Texture{ID: 3, W: 8, H: 8}
	f.b.Begin(spritz.WithTexture(tex))
	f.b.DrawRegion(spritz.FullRegion(tex), unitQuad(0))
	f.b.End()
	if len(f.dev.Submissions) != 1 {
		t.Errorf("got %d submissions", len(f.dev.Submissions))
	}
}

func TestBatch_emptyEnd(t *testing.T) {
	f := newFixture(t, 10)
	f.b.Begin()
	f.b.Flush()
	f.b.End()
	if len(f.dev.Submissions) != 0 {
		t.Errorf("got %d submissions for an empty frame", len(f.dev.Submissions))
	}
	if f.dev.Count("upload") != 0 || f.dev.Count("bind texture") != 0 {
		t.Errorf("unexpected device calls %v", f.log.Calls)
	}
}

func TestBatch_vertexLayout(t *testing.T) {
	f := newFixture(t, 10)
	tex := &devtest.Texture{ID: 1, W: 100, H: 100}
	r := spritz.NewRegion(tex, 0, 0, 50, 100)
	f.b.Begin()
	f.b.SetColor(spritz.RGBA(0.25, 0.5, 0.75, 1))
	f.b.DrawRegion(r, unitQuad(0))
	f.b.DrawRegion(r, unitQuad(10))
	f.b.End()

	s := f.dev.Submissions[0]
	want := []float32{
		0, 0, 0, 0, 0.25, 0.5, 0.75, 1,
		1, 0, 0.5, 0, 0.25, 0.5, 0.75, 1,
		1, 1, 0.5, 1, 0.25, 0.5, 0.75, 1,
		0, 1, 0, 1, 0.25, 0.5, 0.75, 1,
	}
	if !reflect.DeepEqual(s.Vertices[:spritz.FloatsPerQuad], want) {
		t.Errorf("got vertices %v", s.Vertices[:spritz.FloatsPerQuad])
	}
	if s.Vertices[spritz.FloatsPerQuad] != 10 {
		t.Errorf("second quad x = %v, want 10", s.Vertices[spritz.FloatsPerQuad])
	}
	wantIdx := []uint32{0, 1, 3, 1, 2, 3, 4, 5, 7, 5, 6, 7}
	if !reflect.DeepEqual(s.Indices, wantIdx) {
		t.Errorf("got indices %v", s.Indices)
	}
	if s.Count != 12 {
		t.Errorf("got index count %d", s.Count)
	}
}

func TestBatch_flip(t *testing.T) {
	f := newFixture(t, 10)
	tex := &devtest.Texture{ID: 1, W: 10, H: 10}
	r := spritz.RegionFromUV(tex, [4]spritz.Point{{0.1, 0}, {0.4, 0}, {0.4, 1}, {0.1, 1}})
	s := spritz.NewSprite(3, 10, r)
	c := s.Corners()

	f.b.Begin()
	f.b.Draw(s)
	s.SetFlip(true, false)
	f.b.Draw(s)
	s.SetFlip(false, true)
	f.b.Draw(s)
	f.b.End()

	v := f.dev.Submissions[0].Vertices
	uv := func(q, i int) spritz.Point {
		o := q*spritz.FloatsPerQuad + i*spritz.FloatsPerVertex
		return spritz.Pt(v[o+2], v[o+3])
	}
	pos := func(q, i int) spritz.Point {
		o := q*spritz.FloatsPerQuad + i*spritz.FloatsPerVertex
		return spritz.Pt(v[o], v[o+1])
	}
	for q := 0; q < 3; q++ {
		for i := 0; i < 4; i++ {
			if pos(q, i) != c[i] {
				t.Errorf("quad %d vertex %d: flip changed position to %v", q, i, pos(q, i))
			}
		}
	}
	if uv(1, 0).X != 0.4 || uv(1, 1).X != 0.1 || uv(1, 2).X != 0.1 || uv(1, 3).X != 0.4 {
		t.Errorf("horizontal flip: got u %v %v %v %v", uv(1, 0).X, uv(1, 1).X, uv(1, 2).X, uv(1, 3).X)
	}
	if uv(2, 0).Y != 1 || uv(2, 1).Y != 1 || uv(2, 2).Y != 0 || uv(2, 3).Y != 0 {
		t.Errorf("vertical flip: got v %v %v %v %v", uv(2, 0).Y, uv(2, 1).Y, uv(2, 2).Y, uv(2, 3).Y)
	}
	if r.UV()[0].X != 0.1 {
		t.Error("flipping modified the region")
	}
}

func TestBatch_spriteColor(t *testing.T) {
	f := newFixture(t, 10)
	s := spritz.NewSprite(1, 1, spritz.FullRegion(&devtest.Texture{ID: 1, W: 1, H: 1}))
	s.SetColor(spritz.RGBA(1, 0, 0, 0.5))
	f.b.Begin()
	f.b.Draw(s)
	f.b.End()
	v := f.dev.Submissions[0].Vertices
	if got := (spritz.Color{R: v[4], G: v[5], B: v[6], A: v[7]}); got != s.Color() {
		t.Errorf("got color %v", got)
	}
	if f.b.Color() != spritz.White {
		t.Errorf("drawing a sprite changed the batch color to %v", f.b.Color())
	}
}

func TestBatch_determinism(t *testing.T) {
	f := newFixture(t, 3)
	a := spritz.NewRegion(&devtest.Texture{ID: 1, W: 32, H: 32}, 0, 0, 16, 16)
	b := spritz.NewRegion(&devtest.Texture{ID: 2, W: 32, H: 32}, 16, 16, 16, 16)
	s := spritz.NewSprite(16, 16, a)
	frame := func() []devtest.Submission {
		start := len(f.dev.Submissions)
		if err := f.b.Begin(); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 10; i++ {
			s.SetPosition(float32(i*3), float32(i))
			s.SetRotation(float32(i * 33))
			if i%4 == 3 {
				s.SetRegion(b)
			} else {
				s.SetRegion(a)
			}
			if err := f.b.Draw(s); err != nil {
				t.Fatal(err)
			}
		}
		if err := f.b.End(); err != nil {
			t.Fatal(err)
		}
		return f.dev.Submissions[start:]
	}
	first := frame()
	second := frame()
	if len(first) == 0 {
		t.Fatal("no submissions")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second frame on the same batch differs:\n%v\n%v", first, second)
	}
	if st := f.b.Stats(); st.Quads != 10 || st.Flushes != len(second) {
		t.Errorf("stats after second frame: %+v", st)
	}
}

func TestBatch_callOrder(t *testing.T) {
	f := newFixture(t, 10)
	rt := devtest.NewTarget(f.log, "fbo", &devtest.Texture{ID: 9, W: 64, H: 64})
	tex := &devtest.Texture{ID: 1, W: 1, H: 1}
	f.log.Reset()

	f.b.Begin(spritz.WithTarget(rt))
	f.b.DrawRegion(spritz.FullRegion(tex), unitQuad(0))
	f.b.End()

	want := []string{
		"bind target fbo",
		"bind shader default",
		"uniform default projection",
		"uniform default u_texture=0",
		"bind texture 1",
		"upload 32 6",
		"draw 6",
		"unbind target fbo",
		"unbind shader default",
	}
	if !reflect.DeepEqual(f.log.Calls, want) {
		t.Errorf("got calls\n%v\nwant\n%v", f.log.Calls, want)
	}
	if f.shader.Matrices[spritz.ProjectionUniform] != mgl32.Ortho2D(0, 800, 600, 0) {
		t.Error("wrong projection uploaded")
	}

	// the target sticks to subsequent frames
	f.log.Reset()
	f.b.Begin()
	f.b.End()
	if f.log.Count("bind target fbo") != 1 {
		t.Errorf("target not rebound: %v", f.log.Calls)
	}
	f.log.Reset()
	f.b.Begin(spritz.WithTarget(nil))
	f.b.End()
	if f.log.Count("bind target") != 0 {
		t.Errorf("target bound after reset: %v", f.log.Calls)
	}
}

func TestBatch_setShader(t *testing.T) {
	f := newFixture(t, 10)
	other := devtest.NewShader(f.log, "other")
	r := spritz.FullRegion(&devtest.Texture{ID: 1, W: 1, H: 1})

	f.b.Begin()
	f.b.DrawRegion(r, unitQuad(0))
	f.log.Reset()
	if err := f.b.SetShader(other); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"bind texture 1",
		"upload 32 6",
		"draw 6",
		"unbind shader default",
		"bind shader other",
		"uniform other projection",
		"uniform other u_texture=0",
	}
	if !reflect.DeepEqual(f.log.Calls, want) {
		t.Errorf("got calls\n%v\nwant\n%v", f.log.Calls, want)
	}
	if f.shader.Bound || !other.Bound {
		t.Error("wrong shader bound")
	}

	// same shader is a no-op
	f.log.Reset()
	f.b.SetShader(other)
	if len(f.log.Calls) != 0 {
		t.Errorf("unexpected calls %v", f.log.Calls)
	}

	// nil selects the default shader
	f.b.SetShader(nil)
	if !f.shader.Bound || other.Bound {
		t.Error("default shader not restored")
	}
	f.b.End()
}

func TestBatch_setShaderClosed(t *testing.T) {
	f := newFixture(t, 10)
	other := devtest.NewShader(f.log, "other")
	f.log.Reset()
	f.b.SetShader(other)
	if len(f.log.Calls) != 0 {
		t.Errorf("shader switch while closed touched the device: %v", f.log.Calls)
	}
	f.b.Begin()
	f.b.End()
	if other.Count("bind shader other") != 1 || f.shader.Count("bind shader default") != 0 {
		t.Errorf("shader selected while closed not used by Begin: %v", f.log.Calls)
	}
	f.log.Reset()
	f.b.Begin(spritz.WithShader(nil))
	f.b.End()
	if f.log.Count("bind shader default") != 1 {
		t.Errorf("WithShader(nil) did not select the default shader: %v", f.log.Calls)
	}
}

func TestBatch_setRenderTarget(t *testing.T) {
	f := newFixture(t, 10)
	a := devtest.NewTarget(f.log, "a", &devtest.Texture{ID: 10, W: 8, H: 8})
	b := devtest.NewTarget(f.log, "b", &devtest.Texture{ID: 11, W: 8, H: 8})
	r := spritz.FullRegion(&devtest.Texture{ID: 1, W: 1, H: 1})

	f.b.Begin(spritz.WithTarget(a))
	f.b.DrawRegion(r, unitQuad(0))
	f.log.Reset()
	f.b.SetRenderTarget(b)
	want := []string{
		"bind texture 1",
		"upload 32 6",
		"draw 6",
		"unbind target a",
		"bind target b",
	}
	if !reflect.DeepEqual(f.log.Calls, want) {
		t.Errorf("got calls\n%v\nwant\n%v", f.log.Calls, want)
	}
	f.log.Reset()
	f.b.SetRenderTarget(nil)
	if !reflect.DeepEqual(f.log.Calls, []string{"unbind target b"}) {
		t.Errorf("got calls %v", f.log.Calls)
	}
	f.b.End()
	if a.Bound || b.Bound {
		t.Error("target still bound after End")
	}
}

func TestBatch_setProjection(t *testing.T) {
	f := newFixture(t, 10)
	r := spritz.FullRegion(&devtest.Texture{ID: 1, W: 1, H: 1})
	m := mgl32.Ortho2D(0, 10, 10, 0)
	f.b.Begin()
	f.b.DrawRegion(r, unitQuad(0))
	f.log.Reset()
	f.b.SetProjection(m)
	if len(f.dev.Submissions) != 1 {
		t.Error("projection change did not flush")
	}
	if f.log.Count("uniform default projection") != 1 || f.shader.Matrices[spritz.ProjectionUniform] != m {
		t.Errorf("projection not uploaded: %v", f.log.Calls)
	}
	f.b.End()
}

func TestBatch_drawTransformed(t *testing.T) {
	f := newFixture(t, 10)
	r := spritz.FullRegion(&devtest.Texture{ID: 1, W: 1, H: 1})
	f.b.Begin()
	f.b.DrawTransformed(r, 10, 20, 4, 2, 2, 3, 0, false, false)
	f.b.DrawTransformed(r, 10, 20, 4, 2, 1, 1, 0, true, false)
	f.b.DrawTransformed(r, 0, 0, 4, 4, 1, 1, 90, false, false)
	f.b.End()

	v := f.dev.Submissions[0].Vertices
	corners := func(q int) [4]spritz.Point {
		var c [4]spritz.Point
		for i := range c {
			o := q*spritz.FloatsPerQuad + i*spritz.FloatsPerVertex
			c[i] = spritz.Pt(v[o], v[o+1])
		}
		return c
	}
	td := [][4]spritz.Point{
		{{10, 20}, {18, 20}, {18, 26}, {10, 26}},
		{{14, 20}, {10, 20}, {10, 22}, {14, 22}},
		{{4, 0}, {4, 4}, {0, 4}, {0, 0}},
	}
	for q, want := range td {
		if got := corners(q); !cornersNear(got, want) {
			t.Errorf("quad %d: got %v, want %v", q, got, want)
		}
	}
}

func TestBatch_nilRegion(t *testing.T) {
	f := newFixture(t, 10)
	f.b.Begin()
	defer f.b.End()
	if err := f.b.DrawRegion(nil, unitQuad(0)); !isErr(err, spritz.ErrInvalidArgument) {
		t.Errorf("got error %v", err)
	}
	if err := f.b.Draw(spritz.NewSprite(1, 1, nil)); !isErr(err, spritz.ErrInvalidArgument) {
		t.Errorf("got error %v", err)
	}
}

func TestBatch_dispose(t *testing.T) {
	f := newFixture(t, 10)
	f.b.Begin()
	if err := f.b.Dispose(); !isErr(err, spritz.ErrInvalidState) {
		t.Errorf("dispose while open: got error %v", err)
	}
	f.b.End()
	if err := f.b.Dispose(); err != nil {
		t.Fatal(err)
	}
	if !f.dev.Released {
		t.Error("device buffers not released")
	}
	if err := f.b.Dispose(); err != nil {
		t.Errorf("second Dispose: %v", err)
	}
	if f.dev.Count("release") != 1 {
		t.Errorf("device released %d times", f.dev.Count("release"))
	}
	if err := f.b.Begin(); !isErr(err, spritz.ErrDisposed) {
		t.Errorf("Begin after Dispose: got error %v", err)
	}
	if err := f.b.SetShader(nil); !isErr(err, spritz.ErrDisposed) {
		t.Errorf("SetShader after Dispose: got error %v", err)
	}
}
