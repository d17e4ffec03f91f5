package assets

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// A Watcher marks texture assets stale when their backing file changes on
// disk, so that the next call to Manager.Texture reloads them.
//
type Watcher struct {
	m    *Manager
	w    *fsnotify.Watcher
	dirs []string
	wg   sync.WaitGroup
}

// Watch starts watching the given OS directories. File names relative to the
// watched directory are used as texture names, so dirs should be the OS
// directories backing the manager's texture path. Sub-directories are not
// watched.
//
func Watch(m *Manager, dirs ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	w := &Watcher{m: m, w: fw}
	for _, d := range dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "watch %s", d)
		}
		if err := fw.Add(abs); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "watch %s", d)
		}
		w.dirs = append(w.dirs, abs)
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if name := w.textureName(ev.Name); name != "" && w.m.MarkStale(name) {
				w.m.cfg.log.Debug("texture changed", "name", name)
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.m.cfg.log.Error("watcher", "err", err)
		}
	}
}

// textureName maps an OS file name to a texture name.
//
func (w *Watcher) textureName(name string) string {
	for _, d := range w.dirs {
		rel, err := filepath.Rel(d, name)
		if err != nil || rel == "." || filepath.Dir(rel) != "." {
			continue
		}
		return filepath.ToSlash(rel)
	}
	return ""
}

// Close stops the watcher.
//
func (w *Watcher) Close() error {
	err := w.w.Close()
	w.wg.Wait()
	return err
}
