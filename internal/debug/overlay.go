// Package debug draws the F8 diagnostics overlay on top of the parallax
// frame.
package debug

import (
	"fmt"

	"depth-parallax/internal/parallax"
	"depth-parallax/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	fontHeight  = 16
	padding     = 8
	padSize     = 96
	panelWidth  = 260
	markerSize  = 6
	toggleKey   = rl.KeyF8
	panelAlpha  = 180
	lineSpacing = 4
)

// Stats is a snapshot of the session state shown by the overlay.
type Stats struct {
	FPS     int32
	Frames  uint64
	State   parallax.LoopState
	Current parallax.Vec2
	Target  parallax.Vec2
	Color   *parallax.Texture
	Depth   *parallax.Texture
	Width   int
	Height  int
}

func CollectStats(s *parallax.Session) Stats {
	tracker := s.Tracker()
	return Stats{
		FPS:     rl.GetFPS(),
		Frames:  s.Driver().Frames(),
		State:   s.Driver().State(),
		Current: tracker.Current,
		Target:  tracker.Target,
		Color:   s.ColorTexture(),
		Depth:   s.DepthTexture(),
		Width:   s.Surface().Width,
		Height:  s.Surface().Height,
	}
}

func textureStatus(t *parallax.Texture) string {
	if t == nil || t.Placeholder() {
		return "placeholder"
	}
	w, h := t.Size()
	return fmt.Sprintf("%dx%d v%d", w, h, t.Version())
}

// Lines formats the overlay text.
func (s Stats) Lines() []string {
	return []string{
		fmt.Sprintf("FPS: %d  frames: %d", s.FPS, s.Frames),
		fmt.Sprintf("Loop: %s  surface: %dx%d", s.State, s.Width, s.Height),
		fmt.Sprintf("Offset: %+.4f, %+.4f", s.Current.X, s.Current.Y),
		fmt.Sprintf("Target: %+.4f, %+.4f", s.Target.X, s.Target.Y),
		"Color: " + textureStatus(s.Color),
		"Depth: " + textureStatus(s.Depth),
	}
}

// padPoint maps an offset in [-1,1]² into the offset pad whose top-left
// corner is (x, y). Positive y points up.
func padPoint(v parallax.Vec2, x, y float32) rl.Vector2 {
	half := float32(padSize) / 2
	return rl.NewVector2(x+half+float32(v.X)*half, y+half-float32(v.Y)*half)
}

type Overlay struct {
	Visible bool
}

// NewOverlay starts visible when utils.ShowDebugUI is set.
func NewOverlay() *Overlay {
	return &Overlay{Visible: utils.ShowDebugUI}
}

// Update handles the toggle key. Call it once per frame.
func (o *Overlay) Update() {
	if rl.IsKeyPressed(toggleKey) {
		o.Visible = !o.Visible
	}
}

// Draw renders the overlay. Must run between rl.BeginDrawing and
// rl.EndDrawing, after the frame itself.
func (o *Overlay) Draw(stats Stats) {
	if !o.Visible {
		return
	}

	lines := stats.Lines()
	textHeight := int32(len(lines)) * (fontHeight + lineSpacing)
	panelHeight := textHeight + padSize + 3*padding

	rl.DrawRectangle(padding, padding, panelWidth, panelHeight, rl.NewColor(0, 0, 0, panelAlpha))

	y := int32(2 * padding)
	for _, line := range lines {
		rl.DrawText(line, 2*padding, y, fontHeight, rl.White)
		y += fontHeight + lineSpacing
	}

	padX, padY := float32(2*padding), float32(y+padding)
	rl.DrawRectangleLines(int32(padX), int32(padY), padSize, padSize, rl.Gray)
	center := padPoint(parallax.Vec2{}, padX, padY)
	rl.DrawLineV(rl.NewVector2(padX, center.Y), rl.NewVector2(padX+padSize, center.Y), rl.DarkGray)
	rl.DrawLineV(rl.NewVector2(center.X, padY), rl.NewVector2(center.X, padY+padSize), rl.DarkGray)

	target := padPoint(stats.Target, padX, padY)
	rl.DrawCircleLines(int32(target.X), int32(target.Y), markerSize, rl.Yellow)
	current := padPoint(stats.Current, padX, padY)
	rl.DrawCircleV(current, markerSize/2, rl.Green)
}
