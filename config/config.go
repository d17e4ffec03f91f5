// Package config loads demo and application settings from TOML or YAML
// files.
//
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Window struct {
	Title      string `toml:"title" yaml:"title"`
	Width      int    `toml:"width" yaml:"width"`
	Height     int    `toml:"height" yaml:"height"`
	FullScreen bool   `toml:"fullscreen" yaml:"fullscreen"`
	VSync      int    `toml:"vsync" yaml:"vsync"`
}

type Batch struct {
	// Capacity is the maximum number of quads per draw call.
	Capacity int `toml:"capacity" yaml:"capacity"`
}

type Assets struct {
	// Dirs are overlaid in order. Files in later directories shadow those in
	// earlier ones.
	Dirs        []string `toml:"dirs" yaml:"dirs"`
	TexturePath string   `toml:"textures" yaml:"textures"`
	FontPath    string   `toml:"fonts" yaml:"fonts"`
	// Watch enables texture hot reloading.
	Watch bool `toml:"watch" yaml:"watch"`
}

type Log struct {
	Level string `toml:"level" yaml:"level"`
}

// Config holds all settings.
//
type Config struct {
	Window Window `toml:"window" yaml:"window"`
	Batch  Batch  `toml:"batch" yaml:"batch"`
	Assets Assets `toml:"assets" yaml:"assets"`
	Log    Log    `toml:"log" yaml:"log"`
}

// Default returns the default configuration.
//
func Default() *Config {
	return &Config{
		Window: Window{
			Title:  "spritz",
			Width:  800,
			Height: 600,
			VSync:  1,
		},
		Batch: Batch{Capacity: 1000},
		Assets: Assets{
			Dirs:        []string{"assets"},
			TexturePath: "textures",
			FontPath:    "fonts",
		},
		Log: Log{Level: "info"},
	}
}

// Load reads the configuration file at path on top of the defaults. The format
// is chosen by file extension: .toml, .yaml or .yml.
//
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, errors.Errorf("%s: unsupported config format %q", path, ext)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return cfg, nil
}

// Validate checks that sizes are positive and that the log level is known.
//
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Batch.Capacity <= 0 {
		return errors.Errorf("invalid batch capacity %d", c.Batch.Capacity)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

// Level returns the configured log level. Validate must have succeeded.
//
func (c *Config) Level() log.Level {
	l, _ := log.ParseLevel(c.Log.Level)
	return l
}
