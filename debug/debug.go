// Package debug provides a frame timer and an on-screen stats overlay.
//
package debug

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/db47h/spritz"
	"github.com/db47h/spritz/text"
)

const samples = 32

// Timer keeps a moving average of the last 32 frame times.
//
type Timer struct {
	times [samples]time.Duration
	index int
	n     int
}

func (t *Timer) Add(dt time.Duration) {
	t.times[t.index] = dt
	t.index = (t.index + 1) & (samples - 1)
	if t.n < samples {
		t.n++
	}
}

// Average returns the average of the recorded frame times, 0 if none.
//
func (t *Timer) Average() time.Duration {
	if t.n == 0 {
		return 0
	}
	var avg time.Duration
	for _, dt := range t.times[:t.n] {
		avg += dt
	}
	return avg / time.Duration(t.n)
}

func (t *Timer) AveragePerSecond() float64 {
	avg := t.Average()
	if avg == 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}

// Format returns a one line summary of frame timings and batch statistics.
//
func Format(t *Timer, s spritz.Stats) string {
	return fmt.Sprintf("%.1f fps (%.2fms) - %d quads, %d draws, %d texture switches",
		t.AveragePerSecond(),
		float64(t.Average())/float64(time.Millisecond),
		s.Quads, s.Flushes, s.TextureSwitches)
}

// Overlay draws lines of text in the top-left corner of the screen.
//
type Overlay struct {
	TD    *text.Drawer
	Color color.Color
}

// Draw draws s, one line per newline, starting at (x, y). The batch must be
// open.
//
func (o *Overlay) Draw(b *spritz.Batch, x, y float32, s string) error {
	m := o.TD.Face().Metrics()
	lh := float32(m.Height) / 64
	y += float32(m.Ascent) / 64
	c := o.Color
	if c == nil {
		c = color.White
	}
	for _, l := range strings.Split(s, "\n") {
		if _, err := o.TD.DrawString(b, x, y, l, c); err != nil {
			return err
		}
		y += lh
	}
	return nil
}
