package assets

import (
	"io"
)

type file []byte

func loadFile(r io.Reader, _ string) (interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return file(data), nil
}

// File returns the content of the named file asset. The returned slice is
// shared and must not be modified.
//
func (m *Manager) File(name string) ([]byte, error) {
	m.m.Lock()
	defer m.m.Unlock()
	data, err := m.get(File(name))
	if err != nil {
		return nil, err
	}
	return data.(file), nil
}
