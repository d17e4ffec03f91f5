// Package assets manages asynchronous (pre)loading and caching of textures,
// fonts and raw files from an ofs.FileSystem.
//
// Files are read and decoded by background workers. Device textures are
// created from decoded images on the goroutine calling Manager.Texture, which
// must be the one owning the graphics context.
//
package assets

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/db47h/ofs"
	"github.com/pkg/errors"
)

// ErrNotFound is returned by Discard for assets that are neither loaded nor
// being loaded.
//
var ErrNotFound = errors.New("asset not found")

// Type designates the type of an asset.
//
type Type int

// Asset types.
//
const (
	TypeFont Type = iota
	TypeTexture
	TypeFile
	typeLast
)

func (t Type) String() string {
	switch t {
	case TypeFont:
		return "font"
	case TypeTexture:
		return "texture"
	case TypeFile:
		return "file"
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Asset uniquely describes an asset.
//
type Asset struct {
	Type
	Name string
}

func (a Asset) String() string {
	return a.Type.String() + " asset " + a.Name
}

func Font(name string) Asset    { return Asset{TypeFont, name} }
func Texture(name string) Asset { return Asset{TypeTexture, name} }
func File(name string) Asset    { return Asset{TypeFile, name} }

// Result wraps the result from preloading an asset.
//
type Result struct {
	Asset
	Err error
}

type closer interface {
	Close() error
}

type loader func(r io.Reader, name string) (interface{}, error)

var loaders = [typeLast]loader{
	TypeFont:    loadFont,
	TypeTexture: loadImage,
	TypeFile:    loadFile,
}

type config struct {
	texturePath string
	fontPath    string
	filePath    string
	workers     int
	maker       TextureMaker
	log         *log.Logger
}

// Option is implemented by option functions passed as arguments to NewManager.
//
type Option interface {
	set(*config)
}

type cfn func(*config)

func (f cfn) set(cfg *config) {
	f(cfg)
}

// TexturePath sets the directory of texture assets.
//
func TexturePath(name string) Option {
	return cfn(func(cfg *config) {
		cfg.texturePath = name
	})
}

// FontPath sets the directory of font assets.
//
func FontPath(name string) Option {
	return cfn(func(cfg *config) {
		cfg.fontPath = name
	})
}

// FilePath sets the directory of raw file assets.
//
func FilePath(name string) Option {
	return cfn(func(cfg *config) {
		cfg.filePath = name
	})
}

// Workers sets the maximum number of files loaded concurrently by Preload.
// The default is twice the number of CPUs.
//
func Workers(n int) Option {
	return cfn(func(cfg *config) {
		cfg.workers = n
	})
}

// Logger sets the logger used to report load failures and reloads.
//
func Logger(l *log.Logger) Option {
	return cfn(func(cfg *config) {
		cfg.log = l
	})
}

// A Manager manages asynchronous (pre)loading and caching of textures, fonts
// and raw files. It is safe for concurrent use, with the exception of
// Texture, Discard and Close which may release device resources and must be
// called from the goroutine owning the graphics context.
//
type Manager struct {
	fs      ofs.FileSystem
	cfg     config
	m       sync.Mutex
	cond    *sync.Cond
	assets  map[Asset]interface{}
	pending map[Asset]struct{}
	stale   map[Asset]struct{}
}

// NewManager returns a new asset Manager.
//
func NewManager(fs ofs.FileSystem, options ...Option) *Manager {
	m := &Manager{
		fs:      fs,
		assets:  make(map[Asset]interface{}),
		pending: make(map[Asset]struct{}),
		stale:   make(map[Asset]struct{}),
	}
	for _, o := range options {
		o.set(&m.cfg)
	}
	if m.cfg.workers <= 0 {
		m.cfg.workers = 2 * runtime.NumCPU()
	}
	if m.cfg.log == nil {
		m.cfg.log = log.NewWithOptions(os.Stderr, log.Options{Prefix: "assets"})
	}
	m.cond = sync.NewCond(&m.m)
	return m
}

type loadState int

const (
	stateMissing loadState = iota
	statePending
	stateLoaded
)

func (m *Manager) lookup(a Asset) (data interface{}, state loadState) {
	if data, ok := m.assets[a]; ok {
		return data, stateLoaded
	}
	if _, ok := m.pending[a]; ok {
		return nil, statePending
	}
	return nil, stateMissing
}

func (m *Manager) assetPath(a Asset) string {
	switch a.Type {
	case TypeFont:
		return path.Join(m.cfg.fontPath, a.Name)
	case TypeTexture:
		return path.Join(m.cfg.texturePath, a.Name)
	case TypeFile:
		return path.Join(m.cfg.filePath, a.Name)
	}
	return a.Name
}

// load loads an asset from the file system. It must be called without holding
// the lock.
//
func (m *Manager) load(a Asset) (interface{}, error) {
	name := m.assetPath(a)
	f, err := m.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loaders[a.Type](f, name)
}

// get returns an asset from cache or synchronously loads it if not in the
// cache. If this asset is being loaded from another goroutine, get waits for
// the asset to be loaded and returns the cached version. The caller must hold
// the lock.
//
func (m *Manager) get(a Asset) (data interface{}, err error) {
	for {
		data, s := m.lookup(a)
		switch s {
		case stateMissing:
			m.pending[a] = struct{}{}
			m.m.Unlock()
			data, err := m.load(a)
			m.m.Lock()
			delete(m.pending, a)
			m.cond.Broadcast()
			if err != nil {
				m.cfg.log.Warn("load failed", "asset", a, "err", err)
				return nil, errors.Wrapf(err, "load %s", a)
			}
			m.assets[a] = data
			return data, nil
		case stateLoaded:
			return data, nil
		}
		m.cond.Wait()
	}
}

// Discard removes the given asset from the cache and releases its resources.
// If the asset is being loaded, Discard waits for the load to complete.
//
func (m *Manager) Discard(a Asset) (err error) {
	m.m.Lock()
	for {
		if aa, ok := m.assets[a]; ok {
			delete(m.assets, a)
			delete(m.stale, a)
			m.m.Unlock()
			if cl, ok := aa.(closer); ok {
				if err := cl.Close(); err != nil {
					return errors.Wrapf(err, "discard %s", a)
				}
			}
			return nil
		}
		if _, ok := m.pending[a]; !ok {
			m.m.Unlock()
			return errors.Wrapf(ErrNotFound, "discard %s", a)
		}
		m.cond.Wait()
	}
}

// Loaded reports whether a is in the cache.
//
func (m *Manager) Loaded(a Asset) bool {
	m.m.Lock()
	defer m.m.Unlock()
	_, s := m.lookup(a)
	return s == stateLoaded
}

// Close discards all assets. Assets being preloaded are waited for.
//
func (m *Manager) Close() error {
	m.m.Lock()
	for len(m.pending) > 0 {
		m.cond.Wait()
	}
	var errs errorList
	for a, data := range m.assets {
		if cl, ok := data.(closer); ok {
			if err := cl.Close(); err != nil {
				errs = append(errs, errors.Wrapf(err, "close %s", a))
			}
		}
	}
	m.assets = make(map[Asset]interface{})
	m.stale = make(map[Asset]struct{})
	m.m.Unlock()
	if errs != nil {
		return errs
	}
	return nil
}

// Preload bulk preloads assets. If the flush argument is true, cached assets
// not present in the asset list will be removed from the cache. It returns a
// channel to read preload results from as well as the number of items that will
// actually be preloaded. This item count is informational only and callers
// should rely on the rc channel being closed to ensure that the operation is
// complete.
//
// While preload starts immediately, it will stall after a few assets have been
// preloaded until the rc channel is read from (or Wait is called).
//
// Calling Preload concurrently may result in unexpected side effects, like
// flushing assets that should not be. An alternative is to build the assets
// slice concurrently and have a single goroutine call Preload and Wait.
//
// Flushed assets are closed, so Preload with flush set must be called from
// the goroutine owning the graphics context.
//
func (m *Manager) Preload(assets []Asset, flush bool) (rc <-chan Result, n int) {
	var flushed []interface{}
	m.m.Lock()
	if flush {
		keep := make(map[Asset]struct{}, len(assets))
		for _, a := range assets {
			keep[a] = struct{}{}
		}
		for k, data := range m.assets {
			if _, ok := keep[k]; !ok {
				delete(m.assets, k)
				delete(m.stale, k)
				flushed = append(flushed, data)
			}
		}
	}

	// mark assets as pending and ignore loaded/pending or duplicate assets
	todo := make([]Asset, 0, len(assets))
	for _, a := range assets {
		if a.Type < 0 || a.Type >= typeLast {
			panic(errors.Errorf("invalid asset type %d", a.Type))
		}
		if _, state := m.lookup(a); state != stateMissing {
			continue
		}
		m.pending[a] = struct{}{}
		todo = append(todo, a)
	}
	m.m.Unlock()

	for _, data := range flushed {
		if cl, ok := data.(closer); ok {
			if err := cl.Close(); err != nil {
				m.cfg.log.Warn("flush failed", "err", err)
			}
		}
	}

	c := make(chan Result)
	go m.preload(todo, c)
	return c, len(todo)
}

func (m *Manager) preload(assets []Asset, rc chan Result) {
	// we use a buffered channel as a semaphore to spawn a limited number of
	// workers. This is to prevent excessive simultaneous disk access on
	// mechanical hard drives.
	//
	// goroutines will release the semaphore as soon as they have finished
	// loading the asset but will remain alive until they have sent their result
	// over rc.
	//
	sem := make(chan struct{}, m.cfg.workers)
	wg := new(sync.WaitGroup)
	for i := range assets {
		sem <- struct{}{}
		wg.Add(1)
		go func(a Asset) {
			defer wg.Done()
			data, err := m.load(a)
			m.m.Lock()
			if err != nil {
				err = errors.Wrapf(err, "preload %s", a)
				m.cfg.log.Warn("preload failed", "asset", a, "err", err)
			} else {
				m.assets[a] = data
			}
			delete(m.pending, a)
			m.cond.Broadcast()
			m.m.Unlock()
			<-sem
			rc <- Result{Asset: a, Err: err}
		}(assets[i])
	}
	wg.Wait()
	close(rc)
}

// Wait waits for completion of a previous Preload and returns any load errors.
//
func Wait(rc <-chan Result) error {
	var errs errorList
	for r := range rc {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	if errs != nil {
		return errs
	}
	return nil
}

type errorList []error

func (e errorList) Error() string {
	var sb strings.Builder
	for i, err := range e {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}
