package parallax

import (
	"depth-parallax/internal/utils"
)

// FrameHandle identifies a scheduled frame callback. Zero is never issued.
type FrameHandle uint64

// FrameScheduler runs callbacks on the next display refresh.
type FrameScheduler interface {
	RequestFrame(cb func()) FrameHandle
	CancelFrame(h FrameHandle)
}

type frameRequest struct {
	handle FrameHandle
	cb     func()
}

// ManualScheduler is a FrameScheduler driven by the host, which calls
// Dispatch once per refresh. Callbacks requested while a dispatch is running
// wait for the next one.
type ManualScheduler struct {
	next    FrameHandle
	queue   []frameRequest
	running []frameRequest
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (s *ManualScheduler) RequestFrame(cb func()) FrameHandle {
	s.next++
	s.queue = append(s.queue, frameRequest{handle: s.next, cb: cb})
	return s.next
}

// CancelFrame drops a queued callback. Cancelling a handle that already ran
// or was never issued does nothing.
func (s *ManualScheduler) CancelFrame(h FrameHandle) {
	for i, req := range s.queue {
		if req.handle == h {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
	// Cancelled from inside a dispatch: skip it if it has not run yet.
	for i := range s.running {
		if s.running[i].handle == h {
			s.running[i].cb = nil
		}
	}
}

// Dispatch runs the callbacks queued before the call. It returns how many ran.
func (s *ManualScheduler) Dispatch() int {
	s.running, s.queue = s.queue, nil
	ran := 0
	for i := range s.running {
		if cb := s.running[i].cb; cb != nil {
			cb()
			ran++
		}
	}
	s.running = nil
	return ran
}

func (s *ManualScheduler) Pending() int { return len(s.queue) }

type LoopState int

const (
	LoopStopped LoopState = iota
	LoopScheduled
)

func (s LoopState) String() string {
	switch s {
	case LoopStopped:
		return "stopped"
	case LoopScheduled:
		return "scheduled"
	}
	return "unknown"
}

// Driver advances the offset tracker and redraws the scene once per frame.
type Driver struct {
	scheduler FrameScheduler
	tracker   *OffsetTracker
	scene     *Scene
	surface   *Surface
	loader    *Loader

	// OnFatal is called once when a tick fails and the loop stops for good.
	OnFatal func(error)

	state     LoopState
	cancelled bool
	handle    FrameHandle
	frames    uint64
	err       error
}

func NewDriver(scheduler FrameScheduler, tracker *OffsetTracker, scene *Scene, surface *Surface, loader *Loader) *Driver {
	return &Driver{
		scheduler: scheduler,
		tracker:   tracker,
		scene:     scene,
		surface:   surface,
		loader:    loader,
	}
}

// Start schedules the first tick. It does nothing while a tick is already
// scheduled, after Stop or after the loop failed.
func (d *Driver) Start() {
	if d.state == LoopScheduled || d.cancelled || d.err != nil {
		return
	}
	d.state = LoopScheduled
	d.handle = d.scheduler.RequestFrame(d.tick)
}

// Stop cancels the scheduled tick for good. Safe to call any number of times.
func (d *Driver) Stop() {
	d.cancelled = true
	if d.state != LoopScheduled {
		return
	}
	d.scheduler.CancelFrame(d.handle)
	d.handle = 0
	d.state = LoopStopped
}

func (d *Driver) tick() {
	if d.state != LoopScheduled {
		return
	}

	if d.loader != nil {
		d.loader.Poll()
	}
	d.tracker.Step()

	if err := d.scene.Render(d.surface); err != nil {
		d.state = LoopStopped
		d.handle = 0
		d.err = err
		utils.Error("Render loop stopped after %d frames: %v", d.frames, err)
		if d.OnFatal != nil {
			d.OnFatal(err)
		}
		return
	}
	d.frames++

	d.handle = d.scheduler.RequestFrame(d.tick)
}

func (d *Driver) State() LoopState { return d.state }

// Frames counts successfully rendered ticks.
func (d *Driver) Frames() uint64 { return d.frames }

// Err is the error that stopped the loop, if any.
func (d *Driver) Err() error { return d.err }
