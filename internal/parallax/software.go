package parallax

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// SoftwareBackend rasterizes the mesh on the CPU with Shade as the fragment
// stage. It backs snapshot rendering and the tests; raylib is used for the
// interactive window.
type SoftwareBackend struct {
	Frame *image.NRGBA
	// Background fills the frame before each draw.
	Background color.NRGBA

	program  *Program
	uploads  int
	draws    int
	released bool
}

func NewSoftwareBackend() *SoftwareBackend {
	return &SoftwareBackend{}
}

func (b *SoftwareBackend) CompileProgram(p *Program) error {
	if b.released {
		return ErrContextLost
	}
	u := p.Uniforms
	if u.ColorTexture == nil || u.DepthTexture == nil || u.Offset == nil {
		return fmt.Errorf("%w: uniform set of %s is incomplete", ErrShaderCompile, p.Name)
	}
	b.program = p
	return nil
}

func (b *SoftwareBackend) ResizeSurface(width, height int) {
	b.Frame = image.NewNRGBA(image.Rect(0, 0, width, height))
}

func (b *SoftwareBackend) upload(t *Texture) {
	if t.NeedsUpdate() {
		t.MarkUploaded()
		b.uploads++
	}
}

func (b *SoftwareBackend) Draw(surface *Surface, cam *Camera, mesh *Mesh) error {
	if b.released {
		return ErrContextLost
	}
	if mesh.Program != b.program {
		return fmt.Errorf("%w: program %s was not compiled", ErrShaderCompile, mesh.Program.Name)
	}
	if b.Frame == nil || b.Frame.Rect.Dx() != surface.Width || b.Frame.Rect.Dy() != surface.Height {
		b.ResizeSurface(surface.Width, surface.Height)
	}

	u := &mesh.Program.Uniforms
	b.upload(u.ColorTexture)
	b.upload(u.DepthTexture)

	b.clearFrame()
	mesh.Triangles(func(v0, v1, v2 Vertex) {
		b.rasterize(v0, v1, v2, u)
	})
	b.draws++
	return nil
}

func (b *SoftwareBackend) clearFrame() {
	if b.Background == (color.NRGBA{}) {
		clear(b.Frame.Pix)
		return
	}
	bg := []byte{b.Background.R, b.Background.G, b.Background.B, b.Background.A}
	for i := 0; i < len(b.Frame.Pix); i += 4 {
		copy(b.Frame.Pix[i:i+4], bg)
	}
}

type screenVertex struct {
	x, y float64
	uv   Vec2
}

// toScreen maps a clip-space position, passed through unchanged by the
// vertex stage, to pixel coordinates with y pointing down.
func (b *SoftwareBackend) toScreen(v Vertex) screenVertex {
	w, h := float64(b.Frame.Rect.Dx()), float64(b.Frame.Rect.Dy())
	return screenVertex{
		x:  (float64(v.Position.X()) + 1) / 2 * w,
		y:  (1 - float64(v.Position.Y())) / 2 * h,
		uv: Vec2{X: float64(v.UV.X()), Y: float64(v.UV.Y())},
	}
}

func edge(a, b screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func (b *SoftwareBackend) rasterize(v0, v1, v2 Vertex, u *Uniforms) {
	a, c, d := b.toScreen(v0), b.toScreen(v1), b.toScreen(v2)
	area := edge(a, c, d.x, d.y)
	if area == 0 {
		return
	}

	bounds := b.Frame.Rect
	minX := max(bounds.Min.X, int(math.Floor(min(a.x, c.x, d.x))))
	maxX := min(bounds.Max.X, int(math.Ceil(max(a.x, c.x, d.x))))
	minY := max(bounds.Min.Y, int(math.Floor(min(a.y, c.y, d.y))))
	maxY := min(bounds.Max.Y, int(math.Ceil(max(a.y, c.y, d.y))))

	for y := minY; y < maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x < maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(c, d, px, py) / area
			w1 := edge(d, a, px, py) / area
			w2 := edge(a, c, px, py) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			uv := Vec2{
				X: w0*a.uv.X + w1*c.uv.X + w2*d.uv.X,
				Y: w0*a.uv.Y + w1*c.uv.Y + w2*d.uv.Y,
			}
			b.blend(x, y, Shade(uv, u))
		}
	}
}

// blend composites src over the frame with straight alpha, like GL's
// SRC_ALPHA, ONE_MINUS_SRC_ALPHA blending.
func (b *SoftwareBackend) blend(x, y int, src color.NRGBA) {
	switch src.A {
	case 255:
		b.Frame.SetNRGBA(x, y, src)
		return
	case 0:
		return
	}
	dst := b.Frame.NRGBAAt(x, y)
	a := uint32(src.A)
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*(255-a) + 127) / 255)
	}
	b.Frame.SetNRGBA(x, y, color.NRGBA{
		R: mix(src.R, dst.R),
		G: mix(src.G, dst.G),
		B: mix(src.B, dst.B),
		A: uint8(min(255, a+uint32(dst.A)*(255-a)/255)),
	})
}

func (b *SoftwareBackend) Release() {
	b.released = true
	b.program = nil
}

// Draws counts successful draw calls.
func (b *SoftwareBackend) Draws() int { return b.draws }

// Uploads counts texture content uploads.
func (b *SoftwareBackend) Uploads() int { return b.uploads }

func (b *SoftwareBackend) Released() bool { return b.released }
