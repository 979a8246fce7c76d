package parallax

import (
	"image"
	"image/draw"
	"sync/atomic"
)

type WrapMode int

const (
	WrapRepeat WrapMode = iota
	WrapClampToEdge
)

type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

type Sampling struct {
	WrapS     WrapMode
	WrapT     WrapMode
	MinFilter Filter
	MagFilter Filter
}

// ImageSampling is applied to every loaded image: clamped edges and plain
// linear filtering without mipmaps.
var ImageSampling = Sampling{
	WrapS:     WrapClampToEdge,
	WrapT:     WrapClampToEdge,
	MinFilter: FilterLinear,
	MagFilter: FilterLinear,
}

// Texture is a 2D image slot bound to a shader sampler. It starts as an
// empty placeholder which samples as transparent black. Loaded pixels are
// copied into the same Texture, so the sampler binding never changes; the
// backend uploads the new contents on its next draw.
type Texture struct {
	Name     string
	Sampling Sampling

	pixels      *image.NRGBA
	version     uint64
	needsUpdate atomic.Bool
}

func NewTexture(name string) *Texture {
	return &Texture{Name: name, Sampling: ImageSampling}
}

// Copy replaces the contents with src flipped vertically, so row 0 of the
// texture is the bottom of the image and uv (0, 0) is its bottom-left corner.
func (t *Texture) Copy(src image.Image, sampling Sampling) {
	b := src.Bounds()
	upright := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(upright, upright.Bounds(), src, b.Min, draw.Src)

	flipped := image.NewNRGBA(upright.Rect)
	for y := 0; y < b.Dy(); y++ {
		srcRow := upright.Pix[y*upright.Stride : y*upright.Stride+b.Dx()*4]
		dstY := b.Dy() - 1 - y
		copy(flipped.Pix[dstY*flipped.Stride:], srcRow)
	}

	t.pixels = flipped
	t.Sampling = sampling
	t.version++
	t.needsUpdate.Store(true)
}

// Pixels returns the texture contents in texture row order, nil for a
// placeholder.
func (t *Texture) Pixels() *image.NRGBA { return t.pixels }

func (t *Texture) Placeholder() bool { return t.pixels == nil }

func (t *Texture) Size() (int, int) {
	if t.pixels == nil {
		return 0, 0
	}
	return t.pixels.Rect.Dx(), t.pixels.Rect.Dy()
}

// Version counts content replacements.
func (t *Texture) Version() uint64 { return t.version }

func (t *Texture) NeedsUpdate() bool { return t.needsUpdate.Load() }

// MarkUploaded is called by a backend once the current contents are on the GPU.
func (t *Texture) MarkUploaded() { t.needsUpdate.Store(false) }
