package parallax

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"
)

var errDecode = errors.New("decode failed")

// fakeDecoder serves images by path. Paths listed in gate block until the
// gate channel is closed.
type fakeDecoder struct {
	mu     sync.Mutex
	images map[string]image.Image
	gate   map[string]chan struct{}
	calls  map[string]int
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{
		images: make(map[string]image.Image),
		gate:   make(map[string]chan struct{}),
		calls:  make(map[string]int),
	}
}

func (f *fakeDecoder) add(path string, img image.Image) { f.images[path] = img }

func (f *fakeDecoder) hold(path string) chan struct{} {
	ch := make(chan struct{})
	f.gate[path] = ch
	return ch
}

func (f *fakeDecoder) Decode(path string) (image.Image, error) {
	f.mu.Lock()
	f.calls[path]++
	gate := f.gate[path]
	img, ok := f.images[path]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return nil, errDecode
	}
	return img, nil
}

func (f *fakeDecoder) callCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func grayImage(w, h int, v uint8) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestLoaderAppliesOnPoll(t *testing.T) {
	dec := newFakeDecoder()
	dec.add("depth.png", grayImage(4, 2, 200))
	gate := dec.hold("depth.png")

	loader := NewLoader(context.Background(), dec.Decode)
	tex := NewTexture("depth")
	p := loader.Load("depth.png", tex)

	if n := loader.Poll(); n != 1 {
		t.Fatalf("Poll() = %d in flight, want 1", n)
	}
	if !tex.Placeholder() || p.Settled() {
		t.Fatal("texture replaced before the decode finished")
	}

	close(gate)
	if err := loader.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}

	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed after Wait")
	}
	if p.Err() != nil {
		t.Fatalf("Err() = %v", p.Err())
	}
	if w, h := tex.Size(); w != 4 || h != 2 {
		t.Errorf("texture size %dx%d, want 4x2", w, h)
	}
	if !tex.NeedsUpdate() || tex.Version() != 1 {
		t.Errorf("texture not marked for upload (needsUpdate=%v version=%d)", tex.NeedsUpdate(), tex.Version())
	}
	if tex.Sampling != ImageSampling {
		t.Errorf("sampling = %+v, want %+v", tex.Sampling, ImageSampling)
	}
	if got := tex.Pixels().NRGBAAt(1, 1); got != (color.NRGBA{200, 200, 200, 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestLoaderFailureKeepsPlaceholder(t *testing.T) {
	dec := newFakeDecoder()
	dec.add("color.png", grayImage(2, 2, 9))

	loader := NewLoader(context.Background(), dec.Decode)
	colorTex, depthTex := NewTexture("color"), NewTexture("depth")
	pc := loader.Load("color.png", colorTex)
	pd := loader.Load("missing.png", depthTex)

	if err := loader.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(pd.Err(), errDecode) {
		t.Errorf("depth Err() = %v, want errDecode", pd.Err())
	}
	if !depthTex.Placeholder() || depthTex.NeedsUpdate() {
		t.Error("failed load touched the placeholder")
	}
	if pc.Err() != nil || colorTex.Placeholder() {
		t.Errorf("color load affected by depth failure: err=%v", pc.Err())
	}
}

func TestLoaderRejectsEmptyImage(t *testing.T) {
	dec := newFakeDecoder()
	dec.add("empty.tex", image.NewNRGBA(image.Rect(0, 0, 0, 0)))

	loader := NewLoader(context.Background(), dec.Decode)
	depthTex := NewTexture("depth")
	p := loader.Load("empty.tex", depthTex)
	if err := loader.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(p.Err(), ErrEmptyImage) {
		t.Errorf("Err() = %v, want ErrEmptyImage", p.Err())
	}
	if !depthTex.Placeholder() {
		t.Error("empty image replaced the placeholder")
	}
}

func TestShadeEmptyTexture(t *testing.T) {
	colorTex := NewTexture("color")
	colorTex.Copy(image.NewNRGBA(image.Rect(0, 0, 0, 0)), ImageSampling)
	offset := Vec2{}
	u := NewParallaxProgram(colorTex, NewTexture("depth"), &offset).Uniforms
	if got := Shade(Vec2{X: 0.5, Y: 0.5}, &u); got != (color.NRGBA{}) {
		t.Errorf("Shade = %v, want transparent", got)
	}
}

func TestLoaderSingleAttemptPerTexture(t *testing.T) {
	dec := newFakeDecoder()
	loader := NewLoader(context.Background(), dec.Decode)
	tex := NewTexture("depth")

	first := loader.Load("a.png", tex)
	if err := loader.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	second := loader.Load("b.png", tex)

	if first != second {
		t.Error("second Load started a new attempt")
	}
	if dec.callCount("b.png") != 0 || dec.callCount("a.png") != 1 {
		t.Errorf("decode calls a=%d b=%d", dec.callCount("a.png"), dec.callCount("b.png"))
	}
	if loader.InFlight() != 0 {
		t.Errorf("InFlight() = %d", loader.InFlight())
	}
}

func TestLoaderCancelledContext(t *testing.T) {
	dec := newFakeDecoder()
	dec.add("color.png", grayImage(1, 1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := NewLoader(ctx, dec.Decode)
	tex := NewTexture("color")
	p := loader.Load("color.png", tex)
	if err := loader.Wait(waitCtx(t)); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(p.Err(), context.Canceled) {
		t.Errorf("Err() = %v, want context.Canceled", p.Err())
	}
	if !tex.Placeholder() {
		t.Error("cancelled load replaced the texture")
	}
}

func TestLoaderWaitHonoursContext(t *testing.T) {
	dec := newFakeDecoder()
	gate := dec.hold("slow.png")
	defer close(gate)

	loader := NewLoader(context.Background(), dec.Decode)
	loader.Load("slow.png", NewTexture("color"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := loader.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
}

func TestTextureCopyFlipsRows(t *testing.T) {
	img := image.NewNRGBA(image.Rect(10, 10, 12, 13))
	for y := 10; y < 13; y++ {
		img.SetNRGBA(10, y, color.NRGBA{G: uint8(y), A: 255})
	}
	tex := NewTexture("t")
	tex.Copy(img, ImageSampling)

	pix := tex.Pixels()
	if pix.Rect != image.Rect(0, 0, 2, 3) {
		t.Fatalf("rect = %v", pix.Rect)
	}
	// Texture row 0 holds the bottom image row.
	if got := pix.NRGBAAt(0, 0).G; got != 12 {
		t.Errorf("row 0 green = %d, want 12", got)
	}
	if got := pix.NRGBAAt(0, 2).G; got != 10 {
		t.Errorf("row 2 green = %d, want 10", got)
	}
}
