package parallax

import (
	"context"
	"errors"
	"sync"

	"depth-parallax/internal/config"
	"depth-parallax/internal/utils"
)

// PointerEvent is a pointer move inside the container, in client
// coordinates, together with the container's content box size.
type PointerEvent struct {
	ClientX, ClientY float64
	Width, Height    float64
}

// Listeners are the callbacks a session registers with its host. The host
// calls them synchronously on the loop thread.
type Listeners struct {
	PointerMove func(PointerEvent)
	Resize      func(Viewport)
}

// Host is the shell that owns the window and delivers its events.
type Host interface {
	Viewport() Viewport
	// Subscribe attaches l and returns a function that detaches it.
	Subscribe(l Listeners) (unsubscribe func())
}

type Options struct {
	ColorPath string
	DepthPath string
	Tracking  config.Tracking
	Decode    Decoder
	// OnFatal is called on the loop thread when the session can no longer
	// render, typically after losing the GPU context.
	OnFatal func(error)
}

// Session is one mounted renderer. It owns the surface, the listeners and
// the render loop; Close releases all of them.
type Session struct {
	surface  *Surface
	scene    *Scene
	tracker  *OffsetTracker
	loader   *Loader
	driver   *Driver
	color    *Texture
	depth    *Texture
	backend  Backend
	detach   func()
	cancel   context.CancelFunc
	closeErr error
	once     sync.Once
}

// Mount builds the scene on backend, starts loading both images and starts
// the render loop on scheduler.
func Mount(ctx context.Context, host Host, backend Backend, scheduler FrameScheduler, opts Options) (*Session, error) {
	if opts.Decode == nil {
		return nil, errors.New("parallax: no image decoder configured")
	}
	tracking := opts.Tracking
	if tracking.ClampLimit == 0 {
		tracking.ClampLimit = config.DefaultClampLimit
	}
	if tracking.Smoothing == 0 {
		tracking.Smoothing = config.DefaultSmoothing
	}

	camera := NewScreenCamera()
	surface := NewSurface(backend, camera, host.Viewport())

	colorTex := NewTexture("color")
	depthTex := NewTexture("depth")
	tracker := NewOffsetTracker(tracking.ClampLimit, tracking.Smoothing)

	program := NewParallaxProgram(colorTex, depthTex, &tracker.Current)
	scene, err := NewScene(backend, camera, NewFullscreenQuad(program))
	if err != nil {
		backend.Release()
		return nil, err
	}

	loadCtx, cancel := context.WithCancel(ctx)
	loader := NewLoader(loadCtx, opts.Decode)
	loader.Load(opts.DepthPath, depthTex)
	loader.Load(opts.ColorPath, colorTex)

	s := &Session{
		surface: surface,
		scene:   scene,
		tracker: tracker,
		loader:  loader,
		color:   colorTex,
		depth:   depthTex,
		backend: backend,
		cancel:  cancel,
	}

	s.driver = NewDriver(scheduler, tracker, scene, surface, loader)
	s.driver.OnFatal = opts.OnFatal

	s.detach = host.Subscribe(Listeners{
		PointerMove: s.onPointerMove,
		Resize:      surface.OnResize,
	})

	s.driver.Start()
	utils.Info("Parallax session mounted (%dx%d)", surface.Width, surface.Height)
	return s, nil
}

func (s *Session) onPointerMove(e PointerEvent) {
	if !s.tracker.SetTarget(e.ClientX, e.ClientY, e.Width, e.Height) {
		utils.Debug("Skipping pointer event on degenerate container %.1fx%.1f", e.Width, e.Height)
	}
}

// Close stops the loop, detaches the listeners, abandons pending loads and
// releases the GPU resources, in that order. It returns the error that
// stopped the loop, if any. Later calls do nothing.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.driver.Stop()
		if s.detach != nil {
			s.detach()
		}
		s.cancel()
		s.backend.Release()
		s.closeErr = s.driver.Err()
		utils.Info("Parallax session closed after %d frames", s.driver.Frames())
	})
	return s.closeErr
}

func (s *Session) Tracker() *OffsetTracker { return s.tracker }
func (s *Session) Driver() *Driver         { return s.driver }
func (s *Session) Surface() *Surface       { return s.surface }
func (s *Session) Scene() *Scene           { return s.scene }
func (s *Session) Loader() *Loader         { return s.loader }
func (s *Session) ColorTexture() *Texture  { return s.color }
func (s *Session) DepthTexture() *Texture  { return s.depth }
