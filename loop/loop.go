// Package loop provides the fixed timestep frame loop driving a spritz
// application.
//
package loop

import (
	"context"
	"time"
)

// Default timings for FixedStep.
//
const (
	DefaultDT    time.Duration = time.Second / 240
	DefaultMaxFT time.Duration = time.Second
)

// Stepper is the interface of applications run by FixedStep.
//
// ProcessEvents is called first in each frame; graphical applications swap
// their buffers there. Update is then called zero or more times with the
// constant timestep and Draw once with the clamped frame time and the time
// left over in the accumulator, which renderers can use to interpolate
// between states.
//
type Stepper interface {
	ProcessEvents() (quit bool)
	Update(timestep time.Duration)
	Draw(frameTime, partialTimestep time.Duration)
}

// Clock returns the current time. FixedStep uses time.Now when nil.
//
type Clock func() time.Time

// FixedStep is a fixed timestep loop. Frame times longer than MaxFT are
// clamped so that the application does not spiral into ever longer update
// phases after a stall.
//
type FixedStep struct {
	DT    time.Duration // timestep, DefaultDT if zero
	MaxFT time.Duration // maximum frame time, DefaultMaxFT if zero
	Clock Clock

	frames uint64
	last   time.Time
	acc    time.Duration
}

// Frames returns the number of frames run so far.
//
func (l *FixedStep) Frames() uint64 {
	return l.frames
}

func (l *FixedStep) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

// Run runs the loop until ProcessEvents returns true.
//
func (l *FixedStep) Run(a Stepper) {
	l.RunContext(context.Background(), a)
}

// RunContext is like Run but also returns when ctx is done. The context is
// checked once per frame.
//
func (l *FixedStep) RunContext(ctx context.Context, a Stepper) {
	if l.DT <= 0 {
		l.DT = DefaultDT
	}
	if l.MaxFT <= 0 {
		l.MaxFT = DefaultMaxFT
	}
	l.last = l.now()
	l.acc = 0
	for ctx.Err() == nil && !a.ProcessEvents() {
		l.frame(a)
	}
}

func (l *FixedStep) frame(a Stepper) {
	now := l.now()
	ft := now.Sub(l.last)
	if ft > l.MaxFT {
		ft = l.MaxFT
	}
	l.last = now
	l.acc += ft
	for ; l.acc >= l.DT; l.acc -= l.DT {
		a.Update(l.DT)
	}
	a.Draw(ft, l.acc)
	l.frames++
}
