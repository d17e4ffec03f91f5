// Package animation plays sequences of texture regions, one region per frame
// with a duration each.
//
package animation

import (
	"strconv"
	"time"

	"github.com/db47h/spritz"
	"github.com/pkg/errors"
)

// PlayMode selects what happens after the last frame.
//
type PlayMode int

// Play modes.
//
const (
	Normal PlayMode = iota // stop on the last frame
	Loop                   // restart from the first frame
)

func (m PlayMode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Loop:
		return "loop"
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// Animation is a sequence of frames. The zero value is not usable, see New
// and Builder.
//
// An Animation is paused until Start is called.
//
type Animation struct {
	frames    []*spritz.Region
	durations []time.Duration
	total     time.Duration
	mode      PlayMode

	index   int
	elapsed time.Duration // time spent on the current frame
	paused  bool
	done    bool
}

// New returns an animation showing frames[i] for durations[i]. Both slices
// must have the same non-zero length and all durations must be positive.
//
func New(frames []*spritz.Region, durations []time.Duration, mode PlayMode) (*Animation, error) {
	if len(frames) == 0 {
		return nil, errors.Wrap(spritz.ErrInvalidArgument, "animation without frames")
	}
	if len(frames) != len(durations) {
		return nil, errors.Wrapf(spritz.ErrInvalidArgument, "%d frames and %d durations", len(frames), len(durations))
	}
	if mode != Normal && mode != Loop {
		return nil, errors.Wrapf(spritz.ErrInvalidArgument, "play mode %d", int(mode))
	}
	a := &Animation{
		frames:    append([]*spritz.Region(nil), frames...),
		durations: append([]time.Duration(nil), durations...),
		mode:      mode,
		paused:    true,
	}
	for i, d := range durations {
		if d <= 0 {
			return nil, errors.Wrapf(spritz.ErrInvalidArgument, "frame %d duration %v", i, d)
		}
		if frames[i] == nil {
			return nil, errors.Wrapf(spritz.ErrInvalidArgument, "frame %d is nil", i)
		}
		a.total += d
	}
	return a, nil
}

// Uniform returns an animation where every frame lasts d.
//
func Uniform(frames []*spritz.Region, d time.Duration, mode PlayMode) (*Animation, error) {
	ds := make([]time.Duration, len(frames))
	for i := range ds {
		ds[i] = d
	}
	return New(frames, ds, mode)
}

// Update advances the animation by dt and returns the current frame. Large
// values of dt may skip frames. Update does nothing while the animation is
// paused.
//
func (a *Animation) Update(dt time.Duration) *spritz.Region {
	if a.paused || dt <= 0 {
		return a.Frame()
	}
	if a.mode == Loop {
		// whole cycles end where they started
		dt %= a.total
	}
	a.elapsed += dt
	for a.elapsed >= a.durations[a.index] {
		if a.index == len(a.frames)-1 && a.mode == Normal {
			a.elapsed = a.durations[a.index]
			a.done = true
			a.paused = true
			break
		}
		a.elapsed -= a.durations[a.index]
		a.index = (a.index + 1) % len(a.frames)
	}
	return a.Frame()
}

// Start resumes playback. A finished Normal animation restarts from the first
// frame.
//
func (a *Animation) Start() {
	if a.done {
		a.Reset()
	}
	a.paused = false
}

// Stop pauses playback on the current frame.
//
func (a *Animation) Stop() { a.paused = true }

// Reset rewinds to the first frame without changing the paused state.
//
func (a *Animation) Reset() {
	a.index = 0
	a.elapsed = 0
	a.done = false
}

func (a *Animation) Frame() *spritz.Region        { return a.frames[a.index] }
func (a *Animation) Index() int                   { return a.index }
func (a *Animation) Len() int                     { return len(a.frames) }
func (a *Animation) Elapsed() time.Duration       { return a.elapsed }
func (a *Animation) FrameDuration() time.Duration { return a.durations[a.index] }
func (a *Animation) TotalDuration() time.Duration { return a.total }
func (a *Animation) Mode() PlayMode               { return a.mode }
func (a *Animation) Paused() bool                 { return a.paused }
func (a *Animation) Finished() bool               { return a.done }

// SetMode changes the play mode. A finished animation can be resumed with
// Start.
//
func (a *Animation) SetMode(m PlayMode) {
	a.mode = m
}

// Builder builds an Animation frame by frame.
//
//	anim, err := new(animation.Builder).
//		Add(walk0, 100*time.Millisecond).
//		Add(walk1, 80*time.Millisecond).
//		Mode(animation.Loop).
//		Build()
//
type Builder struct {
	frames    []*spritz.Region
	durations []time.Duration
	mode      PlayMode
}

// Add appends a frame.
//
func (b *Builder) Add(r *spritz.Region, d time.Duration) *Builder {
	b.frames = append(b.frames, r)
	b.durations = append(b.durations, d)
	return b
}

// Mode sets the play mode. The default is Normal.
//
func (b *Builder) Mode(m PlayMode) *Builder {
	b.mode = m
	return b
}

// Build returns the animation. See New for the possible errors.
//
func (b *Builder) Build() (*Animation, error) {
	return New(b.frames, b.durations, b.mode)
}
