package spritz_test

import (
	"testing"

	"github.com/db47h/spritz"
)

const eps = 1e-4

func cornersNear(a, b [4]spritz.Point) bool {
	for i := range a {
		if !a[i].Near(b[i], eps) {
			return false
		}
	}
	return true
}

func TestSprite_axisAligned(t *testing.T) {
	td := []struct {
		name           string
		x, y, w, h     float32
		ox, oy, sx, sy float32
		want           [4]spritz.Point
	}{
		{"unit", 0, 0, 1, 1, 0, 0, 1, 1,
			[4]spritz.Point{{0, 0}, {1, 0}, {1, 1}, {0, 1}}},
		{"offset", 10, 20, 32, 16, 0, 0, 1, 1,
			[4]spritz.Point{{10, 20}, {42, 20}, {42, 36}, {10, 36}}},
		{"origin does not move unscaled box", 10, 20, 32, 16, 16, 8, 1, 1,
			[4]spritz.Point{{10, 20}, {42, 20}, {42, 36}, {10, 36}}},
		{"scale around center", 0, 0, 10, 20, 5, 10, 2, 2,
			[4]spritz.Point{{-5, -10}, {15, -10}, {15, 30}, {-5, 30}}},
		{"scale around top-left", 4, 4, 10, 20, 0, 0, 0.5, 2,
			[4]spritz.Point{{4, 4}, {9, 4}, {9, 44}, {4, 44}}},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			s := spritz.NewSprite(d.w, d.h, nil)
			s.SetPosition(d.x, d.y)
			s.SetOrigin(d.ox, d.oy)
			s.SetScale(d.sx, d.sy)
			if got := s.Corners(); got != d.want {
				t.Errorf("got %v, want %v", got, d.want)
			}
		})
	}
}

func TestSprite_rotate90(t *testing.T) {
	s := spritz.NewSprite(10, 20, nil)
	s.SetRotation(90)
	want := [4]spritz.Point{{0, 0}, {0, 10}, {-20, 10}, {-20, 0}}
	if got := s.Corners(); !cornersNear(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSprite_rotate180(t *testing.T) {
	td := []struct {
		x, y, w, h, ox, oy float32
	}{
		{0, 0, 10, 10, 5, 5},
		{100, 50, 64, 32, 0, 0},
		{-7, 3, 13, 29, 2, 21},
	}
	for _, d := range td {
		s := spritz.NewSprite(d.w, d.h, nil)
		s.SetPosition(d.x, d.y)
		s.SetOrigin(d.ox, d.oy)
		c0 := s.Corners()
		s.SetRotation(180)
		c180 := s.Corners()
		pivot := spritz.Pt(d.x+d.ox, d.y+d.oy)
		for i := range c0 {
			// reflection of p through pivot is 2*pivot - p
			want := pivot.Mul(2).Sub(c0[i])
			if !c180[i].Near(want, eps) {
				t.Errorf("%+v corner %d: got %v, want %v", d, i, c180[i], want)
			}
		}
	}
}

func TestSprite_rotationKeepsParallelEdges(t *testing.T) {
	s := spritz.NewSprite(33, 17, nil)
	s.SetPosition(12, -4)
	s.SetOriginCenter()
	s.SetScale(1.5, 0.75)
	for deg := float32(0); deg < 360; deg += 7.5 {
		s.SetRotation(deg)
		c := s.Corners()
		top := c[1].Sub(c[0])
		bottom := c[2].Sub(c[3])
		if !top.Near(bottom, eps) {
			t.Fatalf("%v degrees: top edge %v != bottom edge %v", deg, top, bottom)
		}
	}
}

func TestSprite_flipAndColorKeepGeometry(t *testing.T) {
	s := spritz.NewSprite(8, 8, nil)
	s.SetPosition(3, 4)
	s.SetRotation(30)
	c := s.Corners()
	s.SetFlip(true, true)
	s.SetColor(spritz.RGBA(1, 0, 0, 1))
	if got := s.Corners(); got != c {
		t.Errorf("flip/color changed corners: %v != %v", got, c)
	}
	s.Translate(1, 0)
	if got := s.Corners(); got == c {
		t.Error("translate did not update corners")
	}
}

func TestSprite_bounds(t *testing.T) {
	s := spritz.NewSprite(10, 10, nil)
	s.SetOriginCenter()
	s.SetRotation(45)
	min, max := s.Bounds()
	const h = 7.0710678
	if !min.Near(spritz.Pt(5-h, 5-h), eps) || !max.Near(spritz.Pt(5+h, 5+h), eps) {
		t.Errorf("got bounds %v-%v", min, max)
	}
}
