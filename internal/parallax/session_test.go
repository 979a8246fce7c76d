package parallax

import (
	"context"
	"errors"
	"testing"

	"depth-parallax/internal/config"
)

type fakeHost struct {
	viewport  Viewport
	listeners *Listeners
	detached  int
}

func (h *fakeHost) Viewport() Viewport { return h.viewport }

func (h *fakeHost) Subscribe(l Listeners) func() {
	h.listeners = &l
	return func() {
		h.listeners = nil
		h.detached++
	}
}

func (h *fakeHost) move(x, y, w, hgt float64) {
	if h.listeners != nil {
		h.listeners.PointerMove(PointerEvent{ClientX: x, ClientY: y, Width: w, Height: hgt})
	}
}

func (h *fakeHost) resize(vp Viewport) {
	h.viewport = vp
	if h.listeners != nil {
		h.listeners.Resize(vp)
	}
}

func mountTest(t *testing.T, dec *fakeDecoder) (*Session, *fakeHost, *ManualScheduler, *SoftwareBackend) {
	t.Helper()
	host := &fakeHost{viewport: Viewport{Width: 80, Height: 60, PixelRatio: 1}}
	sched := NewManualScheduler()
	backend := NewSoftwareBackend()
	s, err := Mount(context.Background(), host, backend, sched, Options{
		ColorPath: "001.png",
		DepthPath: "001_depth.png",
		Tracking:  config.Tracking{ClampLimit: 15, Smoothing: 20},
		Decode:    dec.Decode,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s, host, sched, backend
}

func TestSessionEndToEnd(t *testing.T) {
	dec := newFakeDecoder()
	dec.add("001.png", grayImage(8, 6, 90))
	dec.add("001_depth.png", grayImage(8, 6, 255))
	s, host, sched, backend := mountTest(t, dec)

	if s.Driver().State() != LoopScheduled {
		t.Fatalf("loop not started: %v", s.Driver().State())
	}

	host.move(450, 250, 800, 600)
	if got := s.Tracker().Target; !near(got.X, -0.0375, eps) || !near(got.Y, 0.05, eps) {
		t.Fatalf("target = %+v", got)
	}

	if err := s.Loader().Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	sched.Dispatch()
	if backend.Draws() != 1 {
		t.Fatalf("draws = %d", backend.Draws())
	}
	if s.ColorTexture().Placeholder() || s.DepthTexture().Placeholder() {
		t.Error("textures still placeholders after load")
	}
	if got := backend.Frame.NRGBAAt(40, 30); got.R != 90 || got.A != 255 {
		t.Errorf("center pixel = %v", got)
	}
	if got := s.Tracker().Current; !near(got.X, -0.0375/20, eps) {
		t.Errorf("current after one tick = %+v", got)
	}

	host.resize(Viewport{Width: 40, Height: 20, PixelRatio: 2})
	if s.Surface().Width != 80 || s.Surface().Height != 40 {
		t.Errorf("surface %dx%d after resize", s.Surface().Width, s.Surface().Height)
	}
	sched.Dispatch()
	if backend.Frame.Rect.Dx() != 80 || backend.Frame.Rect.Dy() != 40 {
		t.Errorf("frame %v after resize", backend.Frame.Rect)
	}
}

func TestSessionRendersWhileOneAssetFails(t *testing.T) {
	dec := newFakeDecoder()
	dec.add("001.png", grayImage(4, 4, 70))
	s, _, sched, backend := mountTest(t, dec)

	if err := s.Loader().Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		sched.Dispatch()
	}
	if backend.Draws() != 3 {
		t.Errorf("draws = %d, want 3", backend.Draws())
	}
	if !s.DepthTexture().Placeholder() || s.ColorTexture().Placeholder() {
		t.Error("unexpected texture state")
	}
	if got := backend.Frame.NRGBAAt(10, 10); got.R != 70 {
		t.Errorf("pixel = %v, want color image without depth", got)
	}
}

func TestSessionIgnoresDegeneratePointerGeometry(t *testing.T) {
	s, host, _, _ := mountTest(t, newFakeDecoder())
	host.move(10, 10, 0, 0)
	if s.Tracker().Target != (Vec2{}) {
		t.Errorf("target = %+v", s.Tracker().Target)
	}
}

func TestSessionCloseTearsDown(t *testing.T) {
	dec := newFakeDecoder()
	gate := dec.hold("001.png")
	defer close(gate)
	s, host, sched, backend := mountTest(t, dec)

	sched.Dispatch()
	if err := s.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}

	if host.detached != 1 || host.listeners != nil {
		t.Errorf("listeners detached %d times", host.detached)
	}
	if !backend.Released() {
		t.Error("backend not released")
	}
	if s.Driver().State() != LoopStopped || sched.Pending() != 0 {
		t.Errorf("loop still scheduled: %v pending=%d", s.Driver().State(), sched.Pending())
	}
	draws := backend.Draws()
	sched.Dispatch()
	if backend.Draws() != draws {
		t.Error("tick ran after Close")
	}
}

func TestMountRequiresDecoder(t *testing.T) {
	host := &fakeHost{viewport: Viewport{Width: 1, Height: 1, PixelRatio: 1}}
	_, err := Mount(context.Background(), host, NewSoftwareBackend(), NewManualScheduler(), Options{})
	if err == nil {
		t.Fatal("Mount without decoder succeeded")
	}
}

func TestMountReleasesBackendOnCompileFailure(t *testing.T) {
	host := &fakeHost{viewport: Viewport{Width: 10, Height: 10, PixelRatio: 1}}
	backend := &failingCompiler{}
	_, err := Mount(context.Background(), host, backend, NewManualScheduler(), Options{Decode: newFakeDecoder().Decode})
	if !errors.Is(err, ErrShaderCompile) {
		t.Fatalf("err = %v", err)
	}
	if !backend.released {
		t.Error("backend not released after compile failure")
	}
	if host.listeners != nil {
		t.Error("listeners attached despite failed mount")
	}
}
