package assets_test

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/db47h/ofs"
	"github.com/db47h/spritz"
	"github.com/db47h/spritz/assets"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

type fakeTex struct {
	id      uint32
	sz      image.Point
	deleted *int
}

func (t *fakeTex) NativeID() uint32  { return t.id }
func (t *fakeTex) Size() image.Point { return t.sz }
func (t *fakeTex) Delete()           { *t.deleted++ }

type fixture struct {
	dir     string
	mgr     *assets.Manager
	made    int
	deleted int
}

func writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func writePNG(t *testing.T, name string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{dir: t.TempDir()}
	writePNG(t, filepath.Join(fx.dir, "textures", "a.png"), 4, 2)
	writePNG(t, filepath.Join(fx.dir, "textures", "b.png"), 8, 8)
	writeFile(t, filepath.Join(fx.dir, "textures", "broken.png"), []byte("not a png"))
	writeFile(t, filepath.Join(fx.dir, "fonts", "Go-Regular.ttf"), goregular.TTF)
	writeFile(t, filepath.Join(fx.dir, "hello.txt"), []byte("hello"))

	var ovl ofs.Overlay
	if err := ovl.Add(true, fx.dir); err != nil {
		t.Fatal(err)
	}
	fx.mgr = assets.NewManager(&ovl,
		assets.TexturePath("textures"),
		assets.FontPath("fonts"),
		assets.FilePath("."),
		assets.Workers(2),
		assets.Logger(log.New(io.Discard)),
		assets.Textures(func(img image.Image) (spritz.Texture, error) {
			fx.made++
			return &fakeTex{id: uint32(fx.made), sz: img.Bounds().Size(), deleted: &fx.deleted}, nil
		}))
	return fx
}

func TestManager_Texture(t *testing.T) {
	fx := newFixture(t)
	tx, err := fx.mgr.Texture("a.png")
	if err != nil {
		t.Fatal(err)
	}
	if sz := tx.Size(); sz != image.Pt(4, 2) {
		t.Errorf("size = %v, want (4,2)", sz)
	}
	tx2, err := fx.mgr.Texture("a.png")
	if err != nil {
		t.Fatal(err)
	}
	if tx2 != tx || fx.made != 1 {
		t.Errorf("texture not cached: made %d textures", fx.made)
	}
	if _, err := fx.mgr.Image("a.png"); err == nil {
		t.Error("Image succeeded after upload")
	}
	if _, err := fx.mgr.Texture("broken.png"); err == nil {
		t.Error("decoding garbage succeeded")
	}
	if _, err := fx.mgr.Texture("missing.png"); err == nil {
		t.Error("loading missing file succeeded")
	}
}

func TestManager_MarkStale(t *testing.T) {
	fx := newFixture(t)
	if fx.mgr.MarkStale("a.png") {
		t.Error("MarkStale reported an uncached texture")
	}
	tx, err := fx.mgr.Texture("a.png")
	if err != nil {
		t.Fatal(err)
	}
	writePNG(t, filepath.Join(fx.dir, "textures", "a.png"), 16, 16)
	if !fx.mgr.MarkStale("a.png") {
		t.Fatal("MarkStale did not find cached texture")
	}
	tx2, err := fx.mgr.Texture("a.png")
	if err != nil {
		t.Fatal(err)
	}
	if tx2 == tx {
		t.Error("stale texture not reloaded")
	}
	if fx.deleted != 1 {
		t.Errorf("deleted %d textures, want 1", fx.deleted)
	}
	if sz := tx2.Size(); sz != image.Pt(16, 16) {
		t.Errorf("reloaded size = %v, want (16,16)", sz)
	}
}

func TestManager_Preload(t *testing.T) {
	fx := newFixture(t)
	list := []assets.Asset{
		assets.Texture("a.png"),
		assets.Texture("b.png"),
		assets.Texture("a.png"),
		assets.Font("Go-Regular.ttf"),
		assets.File("hello.txt"),
	}
	rc, n := fx.mgr.Preload(list, false)
	if n != 4 {
		t.Errorf("n = %d, want 4", n)
	}
	if err := assets.Wait(rc); err != nil {
		t.Fatal(err)
	}
	for _, a := range list {
		if !fx.mgr.Loaded(a) {
			t.Errorf("%s not loaded", a)
		}
	}
	if fx.made != 0 {
		t.Errorf("Preload created %d device textures", fx.made)
	}

	// reload with flush: only b.png is kept
	if _, err := fx.mgr.Texture("a.png"); err != nil {
		t.Fatal(err)
	}
	rc, n = fx.mgr.Preload([]assets.Asset{assets.Texture("b.png"), assets.Texture("broken.png")}, true)
	if n != 1 {
		t.Errorf("n = %d, want 1", n)
	}
	if err := assets.Wait(rc); err == nil {
		t.Error("expected error for broken.png")
	}
	if fx.mgr.Loaded(assets.Texture("a.png")) || fx.mgr.Loaded(assets.File("hello.txt")) {
		t.Error("flushed assets still loaded")
	}
	if !fx.mgr.Loaded(assets.Texture("b.png")) {
		t.Error("b.png flushed")
	}
	if fx.deleted != 1 {
		t.Errorf("deleted %d textures, want 1", fx.deleted)
	}
}

func TestManager_FileAndFont(t *testing.T) {
	fx := newFixture(t)
	data, err := fx.mgr.File("hello.txt")
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}
	if _, err := fx.mgr.Font("Go-Regular.ttf"); err != nil {
		t.Fatal(err)
	}
	f1, err := fx.mgr.Face("Go-Regular.ttf", 12, font.HintingNone)
	if err != nil {
		t.Fatal(err)
	}
	f2, err := fx.mgr.Face("Go-Regular.ttf", 12, font.HintingNone)
	if err != nil {
		t.Fatal(err)
	}
	if f1 != f2 {
		t.Error("face not cached")
	}
	if m := f1.Metrics(); m.Height <= 0 {
		t.Errorf("bad metrics %+v", m)
	}
}

func TestManager_Discard(t *testing.T) {
	fx := newFixture(t)
	if _, err := fx.mgr.Texture("a.png"); err != nil {
		t.Fatal(err)
	}
	if err := fx.mgr.Discard(assets.Texture("a.png")); err != nil {
		t.Fatal(err)
	}
	if fx.deleted != 1 {
		t.Errorf("deleted %d textures, want 1", fx.deleted)
	}
	err := fx.mgr.Discard(assets.Texture("a.png"))
	if errors.Cause(err) != assets.ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestManager_Close(t *testing.T) {
	fx := newFixture(t)
	for _, name := range []string{"a.png", "b.png"} {
		if _, err := fx.mgr.Texture(name); err != nil {
			t.Fatal(err)
		}
	}
	if err := fx.mgr.Close(); err != nil {
		t.Fatal(err)
	}
	if fx.deleted != 2 {
		t.Errorf("deleted %d textures, want 2", fx.deleted)
	}
	// the manager stays usable
	if _, err := fx.mgr.File("hello.txt"); err != nil {
		t.Fatal(err)
	}
}
