// Package app opens a window with an OpenGL 3.3 core context and runs a
// fixed timestep loop around an Application.
//
package app

import (
	"image"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/db47h/spritz/app/event"
	"github.com/db47h/spritz/loop"
)

func init() {
	// GLFW and OpenGL calls must happen on the main thread.
	runtime.LockOSThread()
}

// Main creates the window, calls a.Init, then runs the frame loop until the
// window is closed or an event handler asks to quit. a.Terminate is called
// before the window is destroyed.
//
func Main(a Application, opts ...WindowOption) error {
	cfg := defaultConfig()
	for _, o := range opts {
		o.set(&cfg)
	}
	d, err := newDriver(a, &cfg)
	if err != nil {
		return err
	}
	defer d.terminate()
	if err := a.Init(d.w); err != nil {
		return err
	}
	l := loop.FixedStep{DT: cfg.dt}
	l.Run(d)
	cfg.logger().Debug("loop exited", "frames", l.Frames())
	return a.Terminate()
}

// Window is the application window.
//
type Window interface {
	NativeHandle() interface{}
	FrameBufferSize() image.Point
	Size() image.Point
	SetTitle(string)
	// Close asks the loop to exit at the end of the current frame.
	Close()
}

// Application is the interface implemented by programs run by Main.
//
// Draw is called with the GL context current and the viewport set to the
// whole framebuffer. Buffers are swapped after Draw returns.
//
type Application interface {
	Init(Window) error
	Update(timestep time.Duration)
	Draw(w Window, frameTime, partialTimestep time.Duration)
	Terminate() error
}

// EventHandler is implemented by applications that want window events.
// Returning true terminates the application.
//
type EventHandler interface {
	HandleEvent(w Window, e event.Interface) (quit bool)
}

// WindowOption is implemented by functions configuring the window. See Main.
//
type WindowOption interface {
	set(*winCfg)
}

type winCfg struct {
	fullScreen bool
	hidden     bool
	resizable  bool
	x, y, w, h int
	title      string
	vsync      int
	dt         time.Duration
	log        *log.Logger
}

func defaultConfig() winCfg {
	return winCfg{
		title:     "spritz",
		x:         -1,
		y:         -1,
		w:         800,
		h:         600,
		vsync:     1,
		resizable: true,
		dt:        loop.DefaultDT,
	}
}

type winOption func(*winCfg)

func (f winOption) set(cfg *winCfg) {
	f(cfg)
}

// Title sets the window title.
//
func Title(title string) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.title = title
	})
}

// Pos sets the window position. Negative values let the window manager decide.
//
func Pos(x, y int) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.x, cfg.y = x, y
	})
}

// Size sets the window size in screen coordinates.
//
func Size(w, h int) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.w, cfg.h = w, h
	})
}

// FullScreen opens the window full screen on the primary monitor, at the
// monitor's resolution.
//
func FullScreen(b bool) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.fullScreen = b
	})
}

func Visible(b bool) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.hidden = !b
	})
}

func Resizable(b bool) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.resizable = b
	})
}

// VSync sets the swap interval. 0 disables vertical sync.
//
func VSync(interval int) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.vsync = interval
	})
}

// TimeStep sets the fixed update timestep.
//
func TimeStep(dt time.Duration) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.dt = dt
	})
}

// Logger sets the logger used by the driver.
//
func Logger(l *log.Logger) WindowOption {
	return winOption(func(cfg *winCfg) {
		cfg.log = l
	})
}

func (cfg *winCfg) logger() *log.Logger {
	if cfg.log == nil {
		cfg.log = log.NewWithOptions(os.Stderr, log.Options{Prefix: "app", ReportTimestamp: true})
	}
	return cfg.log
}
