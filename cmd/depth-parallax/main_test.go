package main

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"depth-parallax/internal/config"
)

type fakePointer struct {
	x, y, w, h float64
	err        error
}

func (p *fakePointer) Position() (float64, float64, float64, float64, error) {
	return p.x, p.y, p.w, p.h, p.err
}

func TestPointerFeedEmitsOnChange(t *testing.T) {
	src := &fakePointer{x: 10, y: 20, w: 800, h: 600}
	feed := &pointerFeed{source: src}

	e, ok := feed.Next()
	if !ok || e.ClientX != 10 || e.ClientY != 20 || e.Width != 800 || e.Height != 600 {
		t.Fatalf("first Next = %+v, %v", e, ok)
	}
	if _, ok := feed.Next(); ok {
		t.Error("unchanged pointer produced an event")
	}

	src.x = 11
	if e, ok := feed.Next(); !ok || e.ClientX != 11 {
		t.Errorf("moved pointer: %+v, %v", e, ok)
	}

	src.w = 1024
	if _, ok := feed.Next(); !ok {
		t.Error("container resize did not produce an event")
	}

	src.err = errors.New("gone")
	if _, ok := feed.Next(); ok {
		t.Error("failed query produced an event")
	}
}

func TestParsePoint(t *testing.T) {
	x, y, err := parsePoint("450, 250")
	if err != nil || x != 450 || y != 250 {
		t.Errorf("parsePoint = %v, %v, %v", x, y, err)
	}
	for _, bad := range []string{"", "450", "a,1", "1,b"} {
		if _, _, err := parsePoint(bad); err == nil {
			t.Errorf("parsePoint(%q) succeeded", bad)
		}
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(&cfg, "c.png", "", "art", "x11", 640, 0)

	if cfg.Color != "c.png" || cfg.Depth != "001_depth.png" {
		t.Errorf("images = %q, %q", cfg.Color, cfg.Depth)
	}
	if cfg.AssetsPath != "art" || cfg.Window.Pointer != "x11" {
		t.Errorf("assets = %q, pointer = %q", cfg.AssetsPath, cfg.Window.Pointer)
	}
	if cfg.Window.Width != 640 || cfg.Window.Height != 720 {
		t.Errorf("size = %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
}

func writePNG(t *testing.T, path string, c color.Color) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestRunSnapshot(t *testing.T) {
	dir := t.TempDir()
	colorPath := filepath.Join(dir, "color.png")
	depthPath := filepath.Join(dir, "depth.png")
	writePNG(t, colorPath, color.NRGBA{R: 200, G: 10, B: 30, A: 255})
	writePNG(t, depthPath, color.Gray{Y: 128})

	out := filepath.Join(dir, "out", "frame.png")
	err := runSnapshot(context.Background(), config.Default(), colorPath, depthPath, snapshotOptions{
		Output:  out,
		Pointer: "0,0",
		Ticks:   3,
		Width:   32,
		Height:  24,
	})
	if err != nil {
		t.Fatalf("runSnapshot: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
		t.Fatalf("snapshot size = %v", b)
	}
	r, g, b, a := img.At(16, 12).RGBA()
	if r>>8 != 200 || g>>8 != 10 || b>>8 != 30 || a>>8 != 255 {
		t.Errorf("center pixel = %d,%d,%d,%d", r>>8, g>>8, b>>8, a>>8)
	}
}

func TestRunSnapshotBadPointer(t *testing.T) {
	dir := t.TempDir()
	colorPath := filepath.Join(dir, "color.png")
	writePNG(t, colorPath, color.White)

	err := runSnapshot(context.Background(), config.Default(), colorPath, colorPath, snapshotOptions{
		Output:  filepath.Join(dir, "frame.png"),
		Pointer: "nope",
		Width:   8,
		Height:  8,
	})
	if err == nil {
		t.Fatal("runSnapshot accepted a malformed pointer")
	}
}
