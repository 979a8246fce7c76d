package main

import (
	"context"

	"depth-parallax/internal/debug"
	"depth-parallax/internal/parallax"
	"depth-parallax/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// pointerSource reports the pointer position and the size of the area it
// moves in, both in logical pixels.
type pointerSource interface {
	Position() (x, y, width, height float64, err error)
}

type windowPointer struct{}

func (windowPointer) Position() (float64, float64, float64, float64, error) {
	pos := rl.GetMousePosition()
	return float64(pos.X), float64(pos.Y), float64(rl.GetScreenWidth()), float64(rl.GetScreenHeight()), nil
}

// x11Pointer reads the pointer from the X11 root window, for wallpaper
// windows that never get focus.
type x11Pointer struct{}

func (x11Pointer) Position() (float64, float64, float64, float64, error) {
	x, y, err := utils.GetGlobalMousePosition()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	w, h, err := utils.GetRootSize()
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return float64(x), float64(y), float64(w), float64(h), nil
}

func newPointerSource(mode string) pointerSource {
	if mode != "x11" {
		return windowPointer{}
	}
	if err := utils.InitX11(); err != nil {
		utils.Warn("X11 pointer unavailable, using window pointer: %v", err)
		return windowPointer{}
	}
	utils.Info("Using X11 root pointer")
	return x11Pointer{}
}

// pointerFeed turns polled positions into move events, emitting only when
// the pointer or its container changed.
type pointerFeed struct {
	source pointerSource
	last   parallax.PointerEvent
	seen   bool
	failed bool
}

func (f *pointerFeed) Next() (parallax.PointerEvent, bool) {
	x, y, w, h, err := f.source.Position()
	if err != nil {
		if !f.failed {
			utils.Warn("Pointer query failed: %v", err)
			f.failed = true
		}
		return parallax.PointerEvent{}, false
	}
	f.failed = false

	e := parallax.PointerEvent{ClientX: x, ClientY: y, Width: w, Height: h}
	if f.seen && e == f.last {
		return e, false
	}
	f.last = e
	f.seen = true
	return e, true
}

// Window is the raylib host of a parallax session. All of its methods run
// on the main thread.
type Window struct {
	scheduler *parallax.ManualScheduler
	pointer   *pointerFeed
	overlay   *debug.Overlay
	session   *parallax.Session
	listeners map[int]parallax.Listeners
	nextID    int
	fatal     error
}

func NewWindow(source pointerSource) *Window {
	return &Window{
		scheduler: parallax.NewManualScheduler(),
		pointer:   &pointerFeed{source: source},
		overlay:   debug.NewOverlay(),
		listeners: make(map[int]parallax.Listeners),
	}
}

func (w *Window) Scheduler() *parallax.ManualScheduler { return w.scheduler }

func (w *Window) Viewport() parallax.Viewport {
	ratio := float64(rl.GetWindowScaleDPI().X)
	if ratio <= 0 {
		ratio = 1
	}
	return parallax.Viewport{
		Width:      float64(rl.GetScreenWidth()),
		Height:     float64(rl.GetScreenHeight()),
		PixelRatio: ratio,
	}
}

func (w *Window) Subscribe(l parallax.Listeners) func() {
	id := w.nextID
	w.nextID++
	w.listeners[id] = l
	return func() { delete(w.listeners, id) }
}

// Attach sets the session shown by the debug overlay.
func (w *Window) Attach(s *parallax.Session) { w.session = s }

// Fail records a fatal session error; Run returns it after the frame.
func (w *Window) Fail(err error) {
	if w.fatal == nil {
		w.fatal = err
	}
}

func (w *Window) deliver() {
	w.overlay.Update()

	if rl.IsWindowResized() {
		vp := w.Viewport()
		utils.Debug("Window resized to %.0fx%.0f @%.2f", vp.Width, vp.Height, vp.PixelRatio)
		for _, l := range w.listeners {
			if l.Resize != nil {
				l.Resize(vp)
			}
		}
	}

	if e, ok := w.pointer.Next(); ok {
		for _, l := range w.listeners {
			if l.PointerMove != nil {
				l.PointerMove(e)
			}
		}
	}
}

// Run delivers events and dispatches scheduled frames once per display
// refresh until the window closes, ctx ends or the session fails.
func (w *Window) Run(ctx context.Context) error {
	for !rl.WindowShouldClose() {
		if ctx.Err() != nil {
			utils.Info("Shutting down: %v", context.Cause(ctx))
			return nil
		}

		w.deliver()

		rl.BeginDrawing()
		w.scheduler.Dispatch()
		if w.session != nil {
			w.overlay.Draw(debug.CollectStats(w.session))
		}
		rl.EndDrawing()

		if w.fatal != nil {
			return w.fatal
		}
	}
	return nil
}
