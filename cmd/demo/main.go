package main

import (
	"flag"
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/db47h/ofs"
	"github.com/db47h/spritz"
	"github.com/db47h/spritz/animation"
	"github.com/db47h/spritz/app"
	"github.com/db47h/spritz/app/event"
	"github.com/db47h/spritz/assets"
	"github.com/db47h/spritz/config"
	"github.com/db47h/spritz/debug"
	"github.com/db47h/spritz/gl"
	"github.com/db47h/spritz/text"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/golang/freetype/truetype"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	cfgFile = flag.String("config", "", "configuration file (.toml or .yaml)")
	count   = flag.Int("n", 5000, "number of sprites")
)

const (
	worldSize = 4096
	fontName  = "Go-Regular.ttf"
	boxName   = "box.png"
)

func loadConfig(logger *log.Logger) *config.Config {
	if *cfgFile == "" {
		cfg := config.Default()
		cfg.Assets.Dirs = []string{"assets", "cmd/demo/assets"}
		return cfg
	}
	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	return cfg
}

func main() {
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "demo", ReportTimestamp: true})
	cfg := loadConfig(logger)
	logger.SetLevel(cfg.Level())

	// preload assets
	var ovl ofs.Overlay
	if err := ovl.Add(false, cfg.Assets.Dirs...); err != nil {
		logger.Fatal("asset dirs", "err", err)
	}
	mgr := assets.NewManager(&ovl,
		assets.TexturePath(cfg.Assets.TexturePath),
		assets.FontPath(cfg.Assets.FontPath),
		assets.Logger(logger.WithPrefix("assets")),
		assets.Textures(func(img image.Image) (spritz.Texture, error) {
			return gl.TextureFromImage(img, gl.Filter(gl.LinearMipmapLinear, gl.Linear))
		}))
	rc, n := mgr.Preload([]assets.Asset{assets.Texture(boxName), assets.Font(fontName)}, false)
	bar := progressbar.Default(int64(n), "loading assets")
	for r := range rc {
		if r.Err != nil {
			logger.Warn("preload", "err", r.Err)
		}
		_ = bar.Add(1)
	}

	d := &demo{cfg: cfg, log: logger, mgr: mgr}
	err := app.Main(d,
		app.Title(cfg.Window.Title),
		app.Size(cfg.Window.Width, cfg.Window.Height),
		app.FullScreen(cfg.Window.FullScreen),
		app.VSync(cfg.Window.VSync),
		app.Logger(logger.WithPrefix("app")))
	if err != nil {
		logger.Fatal("exit", "err", err)
	}
}

type demo struct {
	cfg *config.Config
	log *log.Logger
	mgr *assets.Manager
	w   *assets.Watcher

	prog    *gl.Program
	batch   *spritz.Batch
	cam     *spritz.Camera
	minimap *gl.RenderTarget
	td      *text.Drawer
	overlay debug.Overlay
	timer   debug.Timer

	sprites []*spritz.Sprite
	spin    []float32
	marker  *spritz.Sprite
	anim    *animation.Animation
	vel     spritz.Point
	mouse   image.Point
	stats   spritz.Stats
}

func (d *demo) Init(w app.Window) error {
	d.log.Info("driver", "version", app.DriverVersion())
	var err error
	if d.prog, err = gl.DefaultProgram(); err != nil {
		return err
	}
	d.batch, err = spritz.NewBatch(gl.NewDevice(), d.cfg.Batch.Capacity, d.prog,
		spritz.Logger(d.log.WithPrefix("batch")))
	if err != nil {
		return err
	}
	fb := w.FrameBufferSize()
	d.cam = spritz.NewCamera(fb.X, fb.Y)
	d.cam.SetBounds(spritz.Pt(-worldSize/2, -worldSize/2), spritz.Pt(worldSize/2, worldSize/2))
	d.cam.CenterOn(spritz.Point{})

	if d.minimap, err = gl.NewRenderTarget(200, 200); err != nil {
		return err
	}
	d.minimap.SetClearColor(spritz.RGBA(0, .3, 0, 1))

	face, err := d.mgr.Face(fontName, 16, font.HintingFull)
	if err != nil {
		d.log.Warn("using built-in font", "err", err)
		f, _ := truetype.Parse(goregular.TTF)
		face = truetype.NewFace(f, &truetype.Options{
			Size:       16,
			Hinting:    font.HintingFull,
			SubPixelsX: text.SubPixelsX,
			SubPixelsY: text.SubPixelsY,
		})
	}
	d.td = text.NewDrawer(face, func(size int) (text.Atlas, error) {
		return gl.NewTexture(size, size, gl.Filter(gl.Linear, gl.Nearest))
	}, 0)
	d.overlay = debug.Overlay{TD: d.td}

	if d.cfg.Assets.Watch {
		var dirs []string
		for _, dir := range d.cfg.Assets.Dirs {
			dirs = append(dirs, filepath.Join(dir, d.cfg.Assets.TexturePath))
		}
		if d.w, err = assets.Watch(d.mgr, dirs...); err != nil {
			d.log.Warn("hot reload disabled", "err", err)
		}
	}

	tex, err := d.mgr.Texture(boxName)
	if err != nil {
		return err
	}
	rnd := rand.New(rand.NewSource(424242))
	for i := 0; i < *count; i++ {
		s := spritz.NewSprite(64, 64, nil)
		s.SetOriginCenter()
		s.SetPosition(rnd.Float32()*worldSize-worldSize/2, rnd.Float32()*worldSize-worldSize/2)
		sc := rnd.Float32() + .5
		s.SetScale(sc, sc)
		s.SetFlip(rnd.Intn(2) == 0, false)
		s.SetColor(spritz.RGBA(.5+rnd.Float32()/2, .5+rnd.Float32()/2, .5+rnd.Float32()/2, 1))
		d.sprites = append(d.sprites, s)
		d.spin = append(d.spin, (rnd.Float32()-.5)*180)
	}
	d.marker = spritz.NewSprite(128, 128, nil)
	d.marker.SetOriginCenter()
	return d.setTexture(tex)
}

// setTexture points all sprites and the marker animation at tex.
//
func (d *demo) setTexture(tex spritz.Texture) error {
	box := spritz.FullRegion(tex)
	inner := box.Sub(16, 16, 32, 32)
	for i, s := range d.sprites {
		if i&1 != 0 {
			s.SetRegion(inner)
		} else {
			s.SetRegion(box)
		}
	}
	anim, err := new(animation.Builder).
		Add(box, 300*time.Millisecond).
		Add(box.Sub(8, 8, 48, 48), 150*time.Millisecond).
		Add(inner, 300*time.Millisecond).
		Add(box.Sub(8, 8, 48, 48), 150*time.Millisecond).
		Mode(animation.Loop).
		Build()
	if err != nil {
		return err
	}
	d.anim = anim
	d.anim.Start()
	d.marker.SetRegion(d.anim.Frame())
	return nil
}

func (d *demo) HandleEvent(w app.Window, e event.Interface) bool {
	const speed = 400
	switch e := e.(type) {
	case event.WindowClose:
		return true
	case event.FrameBufferSize:
		d.cam.Viewport = image.Pt(e.Width, e.Height)
	case event.KeyDown:
		if e.Repeat {
			break
		}
		switch glfw.Key(e.Key) {
		case glfw.KeyEscape:
			return true
		case glfw.KeyUp, glfw.KeyW:
			d.vel.Y -= speed
		case glfw.KeyDown, glfw.KeyS:
			d.vel.Y += speed
		case glfw.KeyLeft, glfw.KeyA:
			d.vel.X -= speed
		case glfw.KeyRight, glfw.KeyD:
			d.vel.X += speed
		case glfw.KeyHome:
			d.cam.Zoom = 1
			d.cam.CenterOn(spritz.Point{})
		}
	case event.KeyUp:
		switch glfw.Key(e.Key) {
		case glfw.KeyUp, glfw.KeyW:
			d.vel.Y += speed
		case glfw.KeyDown, glfw.KeyS:
			d.vel.Y -= speed
		case glfw.KeyLeft, glfw.KeyA:
			d.vel.X += speed
		case glfw.KeyRight, glfw.KeyD:
			d.vel.X -= speed
		}
	case event.MouseMove:
		d.mouse = image.Pt(int(e.X), int(e.Y))
	case event.Scroll:
		// keep the world point under the cursor in place
		p := d.cam.ScreenToWorld(d.mouse)
		switch {
		case e.DY < 0:
			d.cam.Zoom = d.cam.Zoom / 1.1
		case e.DY > 0:
			d.cam.Zoom = d.cam.Zoom * 1.1
		}
		d.cam.SetPos(d.cam.Pos.Add(p).Sub(d.cam.ScreenToWorld(d.mouse)))
	}
	return false
}

func (d *demo) Update(dt time.Duration) {
	sec := float32(dt.Seconds())
	for i, s := range d.sprites {
		s.Rotate(d.spin[i] * sec)
	}
	d.marker.SetRegion(d.anim.Update(dt))
	if d.vel != (spritz.Point{}) {
		d.cam.SetPos(d.cam.Pos.Add(d.vel.Mul(sec / d.cam.Zoom)))
	}
}

func (d *demo) drawSprites() error {
	for _, s := range d.sprites {
		if err := d.batch.Draw(s); err != nil {
			return err
		}
	}
	return d.batch.Draw(d.marker)
}

func (d *demo) Draw(w app.Window, ft, _ time.Duration) {
	d.timer.Add(ft)
	if err := d.draw(w); err != nil {
		d.log.Error("draw", "err", err)
		w.Close()
	}
}

func (d *demo) draw(w app.Window) error {
	fb := w.FrameBufferSize()
	gl.Clear(spritz.RGBA(.2, .2, .2, 1))

	// hot reloaded textures are picked up here
	tex, err := d.mgr.Texture(boxName)
	if err != nil {
		return err
	}
	if d.marker.Region().Texture() != tex {
		if err := d.setTexture(tex); err != nil {
			return err
		}
	}

	// world
	if err := d.batch.SetProjection(d.cam.Projection()); err != nil {
		return err
	}
	if err := d.batch.Begin(spritz.WithTarget(nil)); err != nil {
		return err
	}
	if err := d.drawSprites(); err != nil {
		return err
	}
	if err := d.batch.End(); err != nil {
		return err
	}
	d.stats = d.batch.Stats()

	// minimap: the whole world in an offscreen target
	mc := spritz.Camera{Viewport: d.minimap.Size(), Zoom: 200.0 / worldSize, Pos: spritz.Pt(-worldSize/2, -worldSize/2)}
	if err := d.batch.SetProjection(mc.Projection()); err != nil {
		return err
	}
	if err := d.batch.Begin(spritz.WithTarget(d.minimap)); err != nil {
		return err
	}
	d.minimap.Clear()
	if err := d.drawSprites(); err != nil {
		return err
	}

	// overlay in screen space
	if err := d.batch.SetRenderTarget(nil); err != nil {
		return err
	}
	if err := d.batch.SetProjection(spritz.NewCamera(fb.X, fb.Y).Projection()); err != nil {
		return err
	}
	// framebuffer textures are upside down
	mm := d.minimap.Texture()
	sz := spritz.PtPt(mm.Size())
	org := spritz.Pt(float32(fb.X)-sz.X-8, float32(fb.Y)-sz.Y-8)
	if err := d.batch.DrawRegion(spritz.NewRegion(mm, 0, sz.Y, sz.X, -sz.Y), [4]spritz.Point{
		org, org.Add(spritz.Pt(sz.X, 0)), org.Add(sz), org.Add(spritz.Pt(0, sz.Y)),
	}); err != nil {
		return err
	}
	info := fmt.Sprintf("%s\n%v - zoom %.2f",
		debug.Format(&d.timer, d.stats), d.cam.ScreenToWorld(d.mouse), d.cam.Zoom)
	if err := d.overlay.Draw(d.batch, 4, 4, info); err != nil {
		return err
	}
	return d.batch.End()
}

func (d *demo) Terminate() error {
	if d.w != nil {
		d.w.Close()
	}
	d.td.Close()
	if err := d.batch.Dispose(); err != nil {
		d.log.Warn("dispose batch", "err", err)
	}
	d.minimap.Delete()
	d.prog.Delete()
	// do not defer this or the program will crash with SIGSEGV (because of destroyed GL context)
	return d.mgr.Close()
}
