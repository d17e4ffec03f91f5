package assets

import (
	"io"

	"github.com/db47h/spritz/text"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
)

type fnt struct {
	f     *truetype.Font
	faces map[faceOpts]font.Face
}

type faceOpts struct {
	size    float64
	hinting font.Hinting
}

func (f *fnt) Close() error {
	var errs errorList
	for opts, face := range f.faces {
		if err := face.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close face %v", opts))
		}
	}
	if errs != nil {
		return errs
	}
	return nil
}

func loadFont(r io.Reader, _ string) (interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil, err
	}
	return &fnt{ttf, make(map[faceOpts]font.Face)}, nil
}

func (m *Manager) font(name string) (*fnt, error) {
	data, err := m.get(Font(name))
	if err != nil {
		return nil, err
	}
	return data.(*fnt), nil
}

// Font returns the named font asset.
//
func (m *Manager) Font(name string) (*truetype.Font, error) {
	m.m.Lock()
	defer m.m.Unlock()
	f, err := m.font(name)
	if err != nil {
		return nil, err
	}
	return f.f, nil
}

// Face returns a font.Face for the named font at the given size in points,
// with a DPI of 72 and sub-pixel positioning suitable for text.Drawer.
//
// Faces are cached until the font asset is discarded.
//
func (m *Manager) Face(name string, size float64, hinting font.Hinting) (font.Face, error) {
	m.m.Lock()
	defer m.m.Unlock()
	f, err := m.font(name)
	if err != nil {
		return nil, err
	}
	opts := faceOpts{size, hinting}
	if face := f.faces[opts]; face != nil {
		return face, nil
	}
	face := truetype.NewFace(f.f, &truetype.Options{
		Size:       size,
		Hinting:    hinting,
		DPI:        72,
		SubPixelsX: text.SubPixelsX,
		SubPixelsY: text.SubPixelsY,
	})
	f.faces[opts] = face
	return face, nil
}
