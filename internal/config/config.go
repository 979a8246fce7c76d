// Package config holds the tunable settings of the renderer and loads them
// from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"os"

	css "github.com/mazznoer/csscolorparser"
	"gopkg.in/yaml.v3"
)

const (
	DefaultClampLimit = 15.0
	DefaultSmoothing  = 20.0
)

var ErrInvalid = errors.New("invalid config")

type Tracking struct {
	// ClampLimit bounds the raw pointer delta, in device independent pixels,
	// before it is normalized by the half extent of the container.
	ClampLimit float64 `yaml:"clamp_limit"`
	// Smoothing is the divisor of the per-tick interpolation step.
	Smoothing float64 `yaml:"smoothing"`
}

type Window struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Title     string `yaml:"title"`
	TargetFPS int    `yaml:"target_fps"`
	// Pointer selects the pointer source: "window" or "x11".
	Pointer string `yaml:"pointer"`
	// Background is any CSS color; it shows through while the color image
	// is still loading.
	Background string `yaml:"background"`
}

// BackgroundColor parses Background. Translucent colors are returned
// premultiplied, as color.RGBA requires.
func (w Window) BackgroundColor() (color.RGBA, error) {
	c, err := css.Parse(w.Background)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: window.background: %v", ErrInvalid, err)
	}
	to8 := func(v float64) uint8 { return uint8(math.Round(255 * v)) }
	return color.RGBA{R: to8(c.R * c.A), G: to8(c.G * c.A), B: to8(c.B * c.A), A: to8(c.A)}, nil
}

type Config struct {
	Color      string `yaml:"color"`
	Depth      string `yaml:"depth"`
	AssetsPath string `yaml:"assets"`
	TexCache   string `yaml:"tex_cache"`
	LogLevel   string `yaml:"log_level"`
	// RaylibInfo forwards raylib's info-level trace log.
	RaylibInfo bool     `yaml:"raylib_info"`
	Tracking   Tracking `yaml:"tracking"`
	Window     Window   `yaml:"window"`
}

func Default() Config {
	return Config{
		Color:    "001.png",
		Depth:    "001_depth.png",
		LogLevel: "info",
		Tracking: Tracking{
			ClampLimit: DefaultClampLimit,
			Smoothing:  DefaultSmoothing,
		},
		Window: Window{
			Width:      1280,
			Height:     720,
			Title:      "Depth Parallax",
			TargetFPS:  60,
			Pointer:    "window",
			Background: "black",
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func (c Config) Validate() error {
	var errs []error
	if c.Color == "" {
		errs = append(errs, fmt.Errorf("%w: color image is required", ErrInvalid))
	}
	if c.Depth == "" {
		errs = append(errs, fmt.Errorf("%w: depth image is required", ErrInvalid))
	}
	if !finitePositive(c.Tracking.ClampLimit) {
		errs = append(errs, fmt.Errorf("%w: tracking.clamp_limit must be positive, got %v", ErrInvalid, c.Tracking.ClampLimit))
	}
	// A divisor below 1 overshoots the target on every step.
	if !finitePositive(c.Tracking.Smoothing) || c.Tracking.Smoothing < 1 {
		errs = append(errs, fmt.Errorf("%w: tracking.smoothing must be >= 1, got %v", ErrInvalid, c.Tracking.Smoothing))
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height))
	}
	if c.Window.TargetFPS < 0 {
		errs = append(errs, fmt.Errorf("%w: window.target_fps must not be negative", ErrInvalid))
	}
	if _, err := c.Window.BackgroundColor(); err != nil {
		errs = append(errs, err)
	}
	switch c.Window.Pointer {
	case "window", "x11":
	default:
		errs = append(errs, fmt.Errorf("%w: window.pointer must be window or x11, got %q", ErrInvalid, c.Window.Pointer))
	}
	return errors.Join(errs...)
}
