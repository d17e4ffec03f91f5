// Package event defines the window events delivered by the app package.
//
package event

import "fmt"

// Interface is implemented by all events.
//
type Interface interface {
	fmt.Stringer
}

// Quit is sent when the application is asked to terminate.
//
type Quit struct{}

// WindowClose is sent when the user closes the window. Returning quit from
// the handler terminates the application.
//
type WindowClose struct{}

// FrameBufferSize is sent when the size of the default framebuffer changes.
//
type FrameBufferSize struct {
	Width, Height int
}

// Mod is a bitmask of modifier keys.
//
type Mod int

// Modifier keys.
//
const (
	ModShift Mod = 1 << iota
	ModControl
	ModAlt
	ModSuper
)

// KeyDown is sent when a key is pressed or auto-repeated.
//
type KeyDown struct {
	Key    int // backend key code
	Mods   Mod
	Repeat bool
}

// KeyUp is sent when a key is released.
//
type KeyUp struct {
	Key  int
	Mods Mod
}

// MouseMove is sent when the cursor moves, in window coordinates.
//
type MouseMove struct {
	X, Y float64
}

// MouseButton is sent when a mouse button is pressed or released.
//
type MouseButton struct {
	Button  int
	Pressed bool
	Mods    Mod
}

// Scroll is sent on mouse wheel or touchpad scroll.
//
type Scroll struct {
	DX, DY float64
}

func (Quit) String() string        { return "quit" }
func (WindowClose) String() string { return "window close" }
func (e FrameBufferSize) String() string {
	return fmt.Sprintf("framebuffer size %dx%d", e.Width, e.Height)
}
func (e KeyDown) String() string { return fmt.Sprintf("key down %d mods %d", e.Key, e.Mods) }
func (e KeyUp) String() string   { return fmt.Sprintf("key up %d mods %d", e.Key, e.Mods) }
func (e MouseMove) String() string {
	return fmt.Sprintf("mouse move %.1f,%.1f", e.X, e.Y)
}
func (e MouseButton) String() string {
	return fmt.Sprintf("mouse button %d pressed %t", e.Button, e.Pressed)
}
func (e Scroll) String() string { return fmt.Sprintf("scroll %.1f,%.1f", e.DX, e.DY) }

// Queue is a FIFO of pending events.
//
type Queue struct {
	events []Interface
}

// Push appends e to the queue.
//
func (q *Queue) Push(e Interface) {
	q.events = append(q.events, e)
}

// Len returns the number of pending events.
//
func (q *Queue) Len() int {
	return len(q.events)
}

// Drain calls fn for every pending event in order and empties the queue. It
// stops early and returns true as soon as fn returns true; remaining events
// are dropped.
//
func (q *Queue) Drain(fn func(Interface) bool) bool {
	defer func() { q.events = q.events[:0] }()
	for _, e := range q.events {
		if fn(e) {
			return true
		}
	}
	return false
}
