package main

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"depth-parallax/internal/config"
	"depth-parallax/internal/convert"
	"depth-parallax/internal/parallax"
	"depth-parallax/internal/utils"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

type snapshotOptions struct {
	Output  string
	Pointer string
	Ticks   int
	Width   int
	Height  int
}

// staticHost is a fixed-size host with no real window. Events are pushed
// by the caller.
type staticHost struct {
	viewport  parallax.Viewport
	listeners []parallax.Listeners
}

func (h *staticHost) Viewport() parallax.Viewport { return h.viewport }

func (h *staticHost) Subscribe(l parallax.Listeners) func() {
	h.listeners = append(h.listeners, l)
	return func() { h.listeners = nil }
}

func (h *staticHost) move(x, y float64) {
	e := parallax.PointerEvent{ClientX: x, ClientY: y, Width: h.viewport.Width, Height: h.viewport.Height}
	for _, l := range h.listeners {
		if l.PointerMove != nil {
			l.PointerMove(e)
		}
	}
}

func parsePoint(s string) (float64, float64, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("pointer %q: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("pointer %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("pointer %q: %w", s, err)
	}
	return x, y, nil
}

// runSnapshot renders opts.Ticks frames on the software backend after both
// images have loaded and writes the last frame as PNG.
func runSnapshot(ctx context.Context, cfg config.Config, colorPath, depthPath string, opts snapshotOptions) error {
	if opts.Ticks < 1 {
		opts.Ticks = 1
	}

	host := &staticHost{viewport: parallax.Viewport{
		Width:      float64(opts.Width),
		Height:     float64(opts.Height),
		PixelRatio: 1,
	}}
	background, err := cfg.Window.BackgroundColor()
	if err != nil {
		return err
	}
	backend := parallax.NewSoftwareBackend()
	backend.Background = color.NRGBAModel.Convert(background).(color.NRGBA)
	scheduler := parallax.NewManualScheduler()

	session, err := parallax.Mount(ctx, host, backend, scheduler, parallax.Options{
		ColorPath: colorPath,
		DepthPath: depthPath,
		Tracking:  cfg.Tracking,
		Decode:    convert.DecodeImage,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.Loader().Wait(ctx); err != nil {
		return err
	}

	if opts.Pointer != "" {
		x, y, err := parsePoint(opts.Pointer)
		if err != nil {
			return err
		}
		host.move(x, y)
	}

	var bar *progressbar.ProgressBar
	if opts.Ticks > 1 && term.IsTerminal(int(os.Stderr.Fd())) {
		bar = progressbar.Default(int64(opts.Ticks), "rendering")
		defer bar.Close()
	}
	for i := 0; i < opts.Ticks; i++ {
		scheduler.Dispatch()
		if bar != nil {
			bar.Add(1)
		}
	}
	if err := session.Close(); err != nil {
		return err
	}

	if dir := filepath.Dir(opts.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(opts.Output)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, backend.Frame); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	cur := session.Tracker().Current
	utils.Info("Snapshot saved to %s (%d frames, offset %.4f,%.4f)", opts.Output, session.Driver().Frames(), cur.X, cur.Y)
	return nil
}
