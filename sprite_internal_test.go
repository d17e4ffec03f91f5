package spritz

import "testing"

func TestSprite_cache(t *testing.T) {
	s := NewSprite(4, 4, nil)
	if !s.dirty {
		t.Fatal("new sprite should be dirty")
	}
	c := s.Corners()
	if s.dirty {
		t.Fatal("Corners did not clear the dirty flag")
	}

	s.SetFlip(true, false)
	s.SetColor(Color{0, 0, 0, 1})
	if s.dirty {
		t.Error("flip or color invalidated the corner cache")
	}

	for _, f := range []func(){
		func() { s.SetPosition(1, 1) },
		func() { s.SetOrigin(2, 2) },
		func() { s.SetSize(8, 8) },
		func() { s.SetRotation(10) },
		func() { s.SetScale(2, 1) },
	} {
		s.Corners()
		f()
		if !s.dirty {
			t.Error("transform change did not invalidate the corner cache")
		}
	}

	// stale cache is returned as is until recomputed
	s = NewSprite(4, 4, nil)
	s.corners = c
	s.dirty = false
	s.corners[0] = Point{42, 42}
	if got := s.Corners(); got[0] != (Point{42, 42}) {
		t.Error("clean cache was recomputed")
	}
}
