package parallax

import (
	"context"
	"errors"
	"fmt"
	"image"

	"depth-parallax/internal/utils"
)

// ErrEmptyImage is reported for a decoded image without pixels.
var ErrEmptyImage = errors.New("decoded image is empty")

// Decoder fetches and decodes one image. It runs off the loop thread.
type Decoder func(path string) (image.Image, error)

type loadResult struct {
	img image.Image
	err error
}

// Pending is the single load attempt of one texture. It settles on the loop
// thread, when Loader.Poll or Loader.Wait applies the decoded image.
type Pending struct {
	Path    string
	Texture *Texture

	result  chan loadResult
	done    chan struct{}
	err     error
	settled bool
}

// Done is closed once the load has settled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Err reports why the load failed. Only meaningful after Done is closed.
func (p *Pending) Err() error { return p.err }

func (p *Pending) Settled() bool { return p.settled }

func (p *Pending) settle(res loadResult) {
	if p.settled {
		return
	}
	p.settled = true
	p.err = res.err
	if res.err != nil {
		utils.Error("Failed to load %s texture from %s: %v", p.Texture.Name, p.Path, res.err)
	} else {
		p.Texture.Copy(res.img, ImageSampling)
		w, h := p.Texture.Size()
		utils.Info("Loaded %s texture %s (%dx%d)", p.Texture.Name, p.Path, w, h)
	}
	close(p.done)
}

// Loader runs texture loads in the background and hands the decoded images
// back to the loop thread. Each texture gets exactly one attempt; a failed
// load leaves its placeholder in place for the rest of the session.
type Loader struct {
	ctx     context.Context
	decode  Decoder
	pending []*Pending
	byTex   map[*Texture]*Pending
}

func NewLoader(ctx context.Context, decode Decoder) *Loader {
	return &Loader{
		ctx:    ctx,
		decode: decode,
		byTex:  make(map[*Texture]*Pending),
	}
}

// Load starts fetching path into dst. Calling it again for the same texture
// returns the first Pending.
func (l *Loader) Load(path string, dst *Texture) *Pending {
	if p, ok := l.byTex[dst]; ok {
		utils.Debug("Texture %s already has a load attempt (%s), not retrying", dst.Name, p.Path)
		return p
	}

	p := &Pending{
		Path:    path,
		Texture: dst,
		result:  make(chan loadResult, 1),
		done:    make(chan struct{}),
	}
	l.byTex[dst] = p
	l.pending = append(l.pending, p)

	utils.Debug("Loading %s texture from %s", dst.Name, path)
	ctx, decode := l.ctx, l.decode
	go func() {
		if err := ctx.Err(); err != nil {
			p.result <- loadResult{err: err}
			return
		}
		img, err := decode(path)
		if err == nil && img == nil {
			err = errors.New("decoder returned no image")
		}
		if err == nil && img.Bounds().Empty() {
			err = fmt.Errorf("%w: bounds %v", ErrEmptyImage, img.Bounds())
			img = nil
		}
		p.result <- loadResult{img: img, err: err}
	}()
	return p
}

// Poll applies every load that has finished since the last call without
// blocking. It returns the number of loads still in flight.
func (l *Loader) Poll() int {
	remaining := l.pending[:0]
	for _, p := range l.pending {
		select {
		case res := <-p.result:
			p.settle(res)
		default:
			remaining = append(remaining, p)
		}
	}
	l.pending = remaining
	return len(l.pending)
}

// Wait blocks until every load has been applied or ctx is done.
func (l *Loader) Wait(ctx context.Context) error {
	for len(l.pending) > 0 {
		p := l.pending[0]
		select {
		case res := <-p.result:
			p.settle(res)
			l.pending = l.pending[1:]
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (l *Loader) InFlight() int { return len(l.pending) }
