// Command ebidemo draws sprites and text through a spritz.Batch on top of
// ebiten.
//
package main

import (
	"flag"
	"fmt"
	"image"
	"math/rand"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/db47h/ofs"
	"github.com/db47h/spritz"
	"github.com/db47h/spritz/assets"
	"github.com/db47h/spritz/config"
	"github.com/db47h/spritz/debug"
	"github.com/db47h/spritz/ebitendev"
	"github.com/db47h/spritz/text"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"
)

var (
	cfgFile = flag.String("config", "", "configuration file (.toml or .yaml)")
	count   = flag.Int("n", 2000, "number of sprites")
)

// pulse modulates sprite brightness over time.
var pulse = []byte(`//kage:unit pixels
package main

var Time float

func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {
	return imageSrc0At(srcPos) * color * (0.75 + 0.25*sin(Time*3))
}
`)

type sprite struct {
	*spritz.Sprite
	v    spritz.Point
	spin float32
}

type game struct {
	log    *log.Logger
	dev    *ebitendev.Device
	batch  *spritz.Batch
	pulse  *ebitendev.Shader
	td     *text.Drawer
	ovl    debug.Overlay
	timer  debug.Timer
	last   time.Time
	start  time.Time
	size   image.Point
	stats  spritz.Stats
	sprite []sprite
}

func newGame(cfg *config.Config, logger *log.Logger, mgr *assets.Manager) (*game, error) {
	g := &game{
		log:   logger,
		dev:   ebitendev.NewDevice(ebitendev.Logger(logger.WithPrefix("ebitendev")), ebitendev.Filter(ebiten.FilterLinear)),
		size:  image.Pt(cfg.Window.Width, cfg.Window.Height),
		start: time.Now(),
	}
	var err error
	g.batch, err = spritz.NewBatch(g.dev, cfg.Batch.Capacity, g.dev.DefaultShader(),
		spritz.Logger(logger.WithPrefix("batch")),
		spritz.Projection(spritz.NewCamera(g.size.X, g.size.Y).Projection()))
	if err != nil {
		return nil, err
	}
	if g.pulse, err = g.dev.CompileShader(pulse); err != nil {
		return nil, errors.Wrap(err, "compile pulse shader")
	}
	g.td = text.NewDrawer(basicfont.Face7x13, func(size int) (text.Atlas, error) {
		return ebitendev.NewImage(ebiten.NewImage(size, size)), nil
	}, 512)
	g.ovl = debug.Overlay{TD: g.td}

	tex, err := mgr.Texture("box.png")
	if err != nil {
		return nil, err
	}
	r := spritz.FullRegion(tex)
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < *count; i++ {
		s := spritz.NewSprite(32, 32, r)
		s.SetOriginCenter()
		s.SetPosition(rnd.Float32()*float32(g.size.X), rnd.Float32()*float32(g.size.Y))
		s.SetColor(spritz.RGBA(.5+rnd.Float32()/2, .5+rnd.Float32()/2, 1, 1))
		g.sprite = append(g.sprite, sprite{
			Sprite: s,
			v:      spritz.Pt(rnd.Float32()*200-100, rnd.Float32()*200-100),
			spin:   rnd.Float32()*360 - 180,
		})
	}
	return g, nil
}

func (g *game) Update() error {
	dt := float32(1) / float32(ebiten.TPS())
	w, h := float32(g.size.X), float32(g.size.Y)
	for i := range g.sprite {
		s := &g.sprite[i]
		s.Translate(s.v.X*dt, s.v.Y*dt)
		s.Rotate(s.spin * dt)
		x, y := s.Position()
		if x < 0 || x > w {
			s.v.X = -s.v.X
		}
		if y < 0 || y > h {
			s.v.Y = -s.v.Y
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	now := time.Now()
	if !g.last.IsZero() {
		g.timer.Add(now.Sub(g.last))
	}
	g.last = now
	if err := g.draw(screen); err != nil {
		g.log.Error("draw", "err", err)
	}
}

func (g *game) draw(screen *ebiten.Image) error {
	g.dev.SetScreen(screen)
	g.pulse.SetUniform("Time", float32(time.Since(g.start).Seconds()))
	if err := g.batch.Begin(spritz.WithShader(g.pulse)); err != nil {
		return err
	}
	for i := range g.sprite {
		if err := g.batch.Draw(g.sprite[i].Sprite); err != nil {
			return err
		}
	}
	if err := g.batch.SetShader(nil); err != nil {
		return err
	}
	info := fmt.Sprintf("%s\n%.0f tps", debug.Format(&g.timer, g.stats), ebiten.ActualTPS())
	if err := g.ovl.Draw(g.batch, 4, 4, info); err != nil {
		return err
	}
	if err := g.batch.End(); err != nil {
		return err
	}
	g.stats = g.batch.Stats()
	return nil
}

func (g *game) Layout(w, h int) (int, int) {
	if p := image.Pt(w, h); p != g.size {
		g.size = p
		if err := g.batch.SetProjection(spritz.NewCamera(w, h).Projection()); err != nil {
			g.log.Error("layout", "err", err)
		}
	}
	return w, h
}

func main() {
	flag.Parse()
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "ebidemo", ReportTimestamp: true})

	cfg := config.Default()
	cfg.Assets.Dirs = []string{"assets", "cmd/demo/assets"}
	if *cfgFile != "" {
		var err error
		if cfg, err = config.Load(*cfgFile); err != nil {
			logger.Fatal("load config", "err", err)
		}
	}
	logger.SetLevel(cfg.Level())

	var fs ofs.Overlay
	if err := fs.Add(false, cfg.Assets.Dirs...); err != nil {
		logger.Fatal("asset dirs", "err", err)
	}
	mgr := assets.NewManager(&fs,
		assets.TexturePath(cfg.Assets.TexturePath),
		assets.Logger(logger.WithPrefix("assets")),
		assets.Textures(func(img image.Image) (spritz.Texture, error) {
			return ebitendev.NewImageFromImage(img), nil
		}))
	defer mgr.Close()

	g, err := newGame(cfg, logger, mgr)
	if err != nil {
		logger.Fatal("init", "err", err)
	}
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetFullscreen(cfg.Window.FullScreen)
	ebiten.SetVsyncEnabled(cfg.Window.VSync != 0)
	if err := ebiten.RunGame(g); err != nil {
		logger.Error("exit", "err", err)
	}
	if err := g.batch.Dispose(); err != nil {
		logger.Warn("dispose", "err", err)
	}
	g.td.Close()
}
