package assets

import (
	"image"
	_ "image/jpeg" // register decoders
	_ "image/png"
	"io"

	"github.com/db47h/spritz"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
)

// TextureMaker creates device textures from decoded images.
//
type TextureMaker func(image.Image) (spritz.Texture, error)

// Textures sets the function used to turn decoded images into device
// textures. Without it, Manager.Texture fails.
//
func Textures(fn TextureMaker) Option {
	return cfn(func(cfg *config) {
		cfg.maker = fn
	})
}

// texImage is a decoded image waiting to be turned into a device texture.
//
type texImage struct {
	img image.Image
}

func (*texImage) Close() error { return nil }

type tex struct {
	spritz.Texture
}

// Close releases the device texture. Textures from the gl package have a
// Delete method, those from the ebiten backend have Dispose.
//
func (t tex) Close() error {
	switch d := t.Texture.(type) {
	case interface{ Delete() }:
		d.Delete()
	case interface{ Dispose() }:
		d.Dispose()
	case closer:
		return d.Close()
	}
	return nil
}

func loadImage(r io.Reader, _ string) (interface{}, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return &texImage{img}, nil
}

// Image returns the decoded image of the named texture asset. It fails if the
// device texture has already been created.
//
func (m *Manager) Image(name string) (image.Image, error) {
	m.m.Lock()
	defer m.m.Unlock()
	data, err := m.get(Texture(name))
	if err != nil {
		return nil, err
	}
	t, ok := data.(*texImage)
	if !ok {
		return nil, errors.Errorf("%s: image already uploaded", Texture(name))
	}
	return t.img, nil
}

// Texture returns the named texture asset, creating the device texture on the
// first call. Textures marked stale by a Watcher are reloaded and the previous
// device texture is released.
//
// Texture must be called from the goroutine owning the graphics context.
//
func (m *Manager) Texture(name string) (spritz.Texture, error) {
	a := Texture(name)
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.stale[a]; ok {
		delete(m.stale, a)
		if old, ok := m.assets[a]; ok {
			delete(m.assets, a)
			if err := old.(closer).Close(); err != nil {
				m.cfg.log.Warn("release stale texture", "name", name, "err", err)
			}
			m.cfg.log.Info("reloading", "asset", a)
		}
	}
	data, err := m.get(a)
	if err != nil {
		return nil, err
	}
	switch t := data.(type) {
	case tex:
		return t.Texture, nil
	case *texImage:
		if m.cfg.maker == nil {
			return nil, errors.Errorf("%s: no texture maker configured", a)
		}
		dt, err := m.cfg.maker(t.img)
		if err != nil {
			return nil, errors.Wrapf(err, "create %s", a)
		}
		m.assets[a] = tex{dt}
		return dt, nil
	}
	return nil, errors.Errorf("%s: unexpected data type %T", a, data)
}

// MarkStale flags a texture asset for reloading on the next call to Texture.
// It reports whether the texture was cached.
//
func (m *Manager) MarkStale(name string) bool {
	a := Texture(name)
	m.m.Lock()
	defer m.m.Unlock()
	if _, ok := m.assets[a]; !ok {
		return false
	}
	m.stale[a] = struct{}{}
	return true
}
