package app

import (
	"fmt"
	"image"
	"time"

	"github.com/db47h/spritz/app/event"
	"github.com/db47h/spritz/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/pkg/errors"
)

// DriverVersion returns the GLFW and OpenGL versions. It must be called from
// Application.Init or later.
//
func DriverVersion() string {
	return fmt.Sprintf("GLFW %s - %s", glfw.GetVersionString(), gl.Version())
}

type glfwDriver struct {
	w   *window
	a   Application
	h   EventHandler
	cfg *winCfg
	q   event.Queue
}

func newDriver(a Application, cfg *winCfg) (*glfwDriver, error) {
	if err := glfw.Init(); err != nil {
		return nil, errors.Wrap(err, "init GLFW")
	}
	d := &glfwDriver{a: a, cfg: cfg}
	d.h, _ = a.(EventHandler)

	glfw.WindowHint(glfw.ContextVersionMajor, 3)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Samples, 4)

	if err := d.createWindow(); err != nil {
		glfw.Terminate()
		return nil, err
	}
	if err := gl.Init(); err != nil {
		d.w.glfw.Destroy()
		glfw.Terminate()
		return nil, err
	}
	glfw.SwapInterval(cfg.vsync)
	cfg.logger().Info("window created", "driver", DriverVersion(), "framebuffer", d.w.fb)
	return d, nil
}

func (d *glfwDriver) terminate() {
	d.w.glfw.Destroy()
	glfw.Terminate()
}

func glfwBool(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}

func (d *glfwDriver) createWindow() error {
	cfg := d.cfg
	var (
		monitor *glfw.Monitor
		width   = cfg.w
		height  = cfg.h
	)
	if cfg.fullScreen {
		monitor = glfw.GetPrimaryMonitor()
		mode := monitor.GetVideoMode()
		glfw.WindowHint(glfw.RedBits, mode.RedBits)
		glfw.WindowHint(glfw.GreenBits, mode.GreenBits)
		glfw.WindowHint(glfw.BlueBits, mode.BlueBits)
		glfw.WindowHint(glfw.RefreshRate, mode.RefreshRate)
		width = mode.Width
		height = mode.Height
	}
	placed := !cfg.fullScreen && cfg.x >= 0 && cfg.y >= 0
	glfw.WindowHint(glfw.Visible, glfwBool(!cfg.hidden && !placed))
	glfw.WindowHint(glfw.Resizable, glfwBool(cfg.resizable))
	w, err := glfw.CreateWindow(width, height, cfg.title, monitor, nil)
	if err != nil {
		return errors.Wrap(err, "create window")
	}
	if placed {
		w.SetPos(cfg.x, cfg.y)
		if !cfg.hidden {
			w.Show()
		}
	}
	w.MakeContextCurrent()

	fw, fh := w.GetFramebufferSize()
	d.w = &window{glfw: w, fb: image.Pt(fw, fh), setViewport: true}

	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		d.w.fb = image.Pt(width, height)
		d.w.setViewport = true
		d.q.Push(event.FrameBufferSize{Width: width, Height: height})
	})
	w.SetCloseCallback(func(*glfw.Window) {
		d.q.Push(event.WindowClose{})
	})
	w.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		switch action {
		case glfw.Press, glfw.Repeat:
			d.q.Push(event.KeyDown{Key: int(key), Mods: toMod(mods), Repeat: action == glfw.Repeat})
		case glfw.Release:
			d.q.Push(event.KeyUp{Key: int(key), Mods: toMod(mods)})
		}
	})
	w.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		d.q.Push(event.MouseMove{X: x, Y: y})
	})
	w.SetMouseButtonCallback(func(_ *glfw.Window, b glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		d.q.Push(event.MouseButton{Button: int(b), Pressed: action == glfw.Press, Mods: toMod(mods)})
	})
	w.SetScrollCallback(func(_ *glfw.Window, dx, dy float64) {
		d.q.Push(event.Scroll{DX: dx, DY: dy})
	})
	return nil
}

func toMod(m glfw.ModifierKey) event.Mod {
	var r event.Mod
	if m&glfw.ModShift != 0 {
		r |= event.ModShift
	}
	if m&glfw.ModControl != 0 {
		r |= event.ModControl
	}
	if m&glfw.ModAlt != 0 {
		r |= event.ModAlt
	}
	if m&glfw.ModSuper != 0 {
		r |= event.ModSuper
	}
	return r
}

// ProcessEvents implements loop.Stepper. Buffers are swapped before
// polling events.
//
func (d *glfwDriver) ProcessEvents() bool {
	w := d.w
	if w.drawn {
		w.glfw.SwapBuffers()
		w.drawn = false
	}
	glfw.PollEvents()
	quit := d.q.Drain(func(e event.Interface) bool {
		if d.h != nil {
			return d.h.HandleEvent(w, e)
		}
		return false
	})
	return quit || w.glfw.ShouldClose()
}

func (d *glfwDriver) Update(dt time.Duration) {
	d.a.Update(dt)
}

func (d *glfwDriver) Draw(ft, partial time.Duration) {
	w := d.w
	if w.setViewport {
		gl.Viewport(image.Rectangle{Max: w.fb})
		w.setViewport = false
	}
	d.a.Draw(w, ft, partial)
	w.drawn = true
}

type window struct {
	glfw        *glfw.Window
	fb          image.Point
	setViewport bool
	drawn       bool
}

func (w *window) NativeHandle() interface{}    { return w.glfw }
func (w *window) FrameBufferSize() image.Point { return w.fb }
func (w *window) SetTitle(t string)            { w.glfw.SetTitle(t) }
func (w *window) Close()                       { w.glfw.SetShouldClose(true) }

func (w *window) Size() image.Point {
	x, y := w.glfw.GetSize()
	return image.Pt(x, y)
}
