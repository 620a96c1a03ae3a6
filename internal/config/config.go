package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"x2d/internal/graphics/batch"
	"x2d/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration read from YAML. Missing keys keep
// their Default values.
type Config struct {
	Window    WindowConfig    `yaml:"window"`
	Graphics  GraphicsConfig  `yaml:"graphics"`
	Assets    AssetsConfig    `yaml:"assets"`
	Log       LogConfig       `yaml:"log"`
	Profiling ProfilingConfig `yaml:"profiling"`
	Demo      DemoConfig      `yaml:"demo"`
}

type WindowConfig struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	VSync     bool   `yaml:"vsync"`
	Resizable bool   `yaml:"resizable"`
}

type GraphicsConfig struct {
	// FPSLimit caps the frame rate; 0 disables the limiter.
	FPSLimit       int  `yaml:"fps_limit"`
	StaticBatching bool `yaml:"static_batching"`
	// DisabledFeatures names device features to treat as unsupported,
	// e.g. "vertex_buffer_objects".
	DisabledFeatures []string   `yaml:"disabled_features"`
	ClearColor       [4]float32 `yaml:"clear_color,flow"`
}

type AssetsConfig struct {
	// Font is a TrueType/OpenType file; empty uses the built-in Go font.
	Font     string `yaml:"font"`
	FontSize int    `yaml:"font_size"`
	// Sprite is an image file; empty uses a generated checker texture.
	Sprite string `yaml:"sprite"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type ProfilingConfig struct {
	// SlowFrame logs frames taking longer than this; 0 disables the log.
	SlowFrame time.Duration `yaml:"slow_frame"`
	Overlay   bool          `yaml:"overlay"`
}

type DemoConfig struct {
	Sprites int `yaml:"sprites"`
	Workers int `yaml:"workers"`
}

// Limits applied by Validate.
const (
	MinFPS       = 30
	MaxFPS       = 1000
	MinWindow    = 64
	MinFontSize  = 8
	MaxFontSize  = 256
	MinWorkers   = 1
	MaxWorkers   = 64
	MaxSprites   = 200000
	maxFileBytes = 1 << 20
)

var ErrUnknownFeature = errors.New("config: unknown feature")

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:     "x2d",
			Width:     900,
			Height:    600,
			Resizable: true,
		},
		Graphics: GraphicsConfig{
			FPSLimit:       120,
			StaticBatching: true,
			ClearColor:     [4]float32{0.1, 0.1, 0.12, 1},
		},
		Assets:    AssetsConfig{FontSize: 24},
		Log:       LogConfig{Level: "info"},
		Profiling: ProfilingConfig{SlowFrame: 16 * time.Millisecond, Overlay: true},
		Demo:      DemoConfig{Sprites: 2000, Workers: 4},
	}
}

// Load reads and validates the YAML file at path.
func Load(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("stat config: %w", err)
	}
	// Prevent DoS from excessively large config files
	if info.Size() > maxFileBytes {
		return Config{}, fmt.Errorf("config %s is %d bytes, limit %d", path, info.Size(), maxFileBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate clamps numeric settings into range and rejects unknown feature
// names and log levels.
func (c *Config) Validate() error {
	if c.Graphics.FPSLimit <= 0 {
		c.Graphics.FPSLimit = 0
	} else {
		c.Graphics.FPSLimit = clamp(c.Graphics.FPSLimit, MinFPS, MaxFPS)
	}
	c.Window.Width = max(c.Window.Width, MinWindow)
	c.Window.Height = max(c.Window.Height, MinWindow)
	c.Assets.FontSize = clamp(c.Assets.FontSize, MinFontSize, MaxFontSize)
	c.Demo.Workers = clamp(c.Demo.Workers, MinWorkers, MaxWorkers)
	c.Demo.Sprites = clamp(c.Demo.Sprites, 0, MaxSprites)
	c.Profiling.SlowFrame = max(c.Profiling.SlowFrame, 0)

	if _, err := c.DisabledFeatures(); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config log.level: %w", err)
	}
	return nil
}

// DisabledFeatures resolves Graphics.DisabledFeatures to device features.
func (c *Config) DisabledFeatures() ([]batch.Feature, error) {
	var out []batch.Feature
	for _, name := range c.Graphics.DisabledFeatures {
		f, ok := batch.ParseFeature(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		out = append(out, f)
	}
	return out, nil
}

// Marshal encodes c as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// RenderSettings holds render configuration that can change while running.
type RenderSettings struct {
	mu             sync.RWMutex
	fpsLimit       int
	staticBatching bool
}

func NewRenderSettings(g GraphicsConfig) *RenderSettings {
	s := &RenderSettings{staticBatching: g.StaticBatching}
	s.SetFPSLimit(g.FPSLimit)
	return s
}

// FPSLimit returns the current frame cap; 0 means uncapped.
func (s *RenderSettings) FPSLimit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fpsLimit
}

// SetFPSLimit sets the frame cap. Non-zero values are clamped to [MinFPS, MaxFPS].
func (s *RenderSettings) SetFPSLimit(fps int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clamp to reasonable values
	if fps < 0 {
		fps = 0
	}
	if fps != 0 {
		fps = clamp(fps, MinFPS, MaxFPS)
	}
	s.fpsLimit = fps
}

// StaticBatching reports whether scene batches are uploaded to the GPU.
func (s *RenderSettings) StaticBatching() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.staticBatching
}

func (s *RenderSettings) SetStaticBatching(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staticBatching = enabled
}
