package parallax

import (
	"image/color"
	"math"
)

// Uniform names of the parallax program.
const (
	UniformColorTexture = "colorTexture"
	UniformDepthTexture = "depthTexture"
	UniformOffset       = "offset"
)

const (
	// UVContraction pulls sample points toward the center so the displaced
	// lookups stay inside the image.
	UVContraction = 0.95
	// DepthDivisor scales the offset applied at full depth.
	DepthDivisor = 2.0
)

// VertexShader forwards clip-space positions and uvs untouched.
const VertexShader = `#version 330
in vec3 vertexPosition;
in vec2 vertexTexCoord;

out vec2 vUv;

void main() {
    vUv = vertexTexCoord;
    gl_Position = vec4(vertexPosition, 1.0);
}
`

// FragmentShader displaces the color lookup by offset scaled with the red
// channel of the depth map.
const FragmentShader = `#version 330
uniform sampler2D colorTexture;
uniform sampler2D depthTexture;
uniform vec2 offset;

in vec2 vUv;

out vec4 finalColor;

void main() {
    vec2 posUV = vec2(0.5) + (vUv - vec2(0.5)) * 0.95;
    vec4 depth = texture(depthTexture, posUV);
    finalColor = texture(colorTexture, posUV + offset * depth.r / 2.0);
}
`

// Uniforms is the fixed binding set of the program. The fields point at
// long-lived state; only the values behind them change.
type Uniforms struct {
	ColorTexture *Texture
	DepthTexture *Texture
	Offset       *Vec2
}

type Program struct {
	Name           string
	VertexShader   string
	FragmentShader string
	Uniforms       Uniforms
}

func NewParallaxProgram(colorTex, depthTex *Texture, offset *Vec2) *Program {
	return &Program{
		Name:           "depthparallax",
		VertexShader:   VertexShader,
		FragmentShader: FragmentShader,
		Uniforms: Uniforms{
			ColorTexture: colorTex,
			DepthTexture: depthTex,
			Offset:       offset,
		},
	}
}

type vec4 [4]float64

func wrapIndex(i, n int, mode WrapMode) int {
	if mode == WrapRepeat {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func wrapCoord(v float64, mode WrapMode) float64 {
	if mode == WrapRepeat {
		return v - math.Floor(v)
	}
	return clamp(v, 0, 1)
}

func texel(t *Texture, x, y int) vec4 {
	p := t.pixels
	w, h := p.Rect.Dx(), p.Rect.Dy()
	x = wrapIndex(x, w, t.Sampling.WrapS)
	y = wrapIndex(y, h, t.Sampling.WrapT)
	i := y*p.Stride + x*4
	return vec4{
		float64(p.Pix[i]) / 255,
		float64(p.Pix[i+1]) / 255,
		float64(p.Pix[i+2]) / 255,
		float64(p.Pix[i+3]) / 255,
	}
}

// sample2D mirrors texture() in GLSL for a texture without mipmaps.
// A placeholder samples as transparent black.
func sample2D(t *Texture, uv Vec2) vec4 {
	if t == nil || t.Placeholder() {
		return vec4{}
	}
	w, h := t.Size()
	if w == 0 || h == 0 {
		return vec4{}
	}
	u := wrapCoord(uv.X, t.Sampling.WrapS) * float64(w)
	v := wrapCoord(uv.Y, t.Sampling.WrapT) * float64(h)

	if t.Sampling.MagFilter == FilterNearest {
		return texel(t, int(math.Floor(u)), int(math.Floor(v)))
	}

	u -= 0.5
	v -= 0.5
	x0, y0 := math.Floor(u), math.Floor(v)
	fx, fy := u-x0, v-y0
	ix, iy := int(x0), int(y0)

	c00 := texel(t, ix, iy)
	c10 := texel(t, ix+1, iy)
	c01 := texel(t, ix, iy+1)
	c11 := texel(t, ix+1, iy+1)

	var out vec4
	for i := range out {
		top := c00[i]*(1-fx) + c10[i]*fx
		bottom := c01[i]*(1-fx) + c11[i]*fx
		out[i] = top*(1-fy) + bottom*fy
	}
	return out
}

// Shade evaluates the fragment program at uv on the CPU.
func Shade(uv Vec2, u *Uniforms) color.NRGBA {
	posUV := Vec2{
		X: 0.5 + (uv.X-0.5)*UVContraction,
		Y: 0.5 + (uv.Y-0.5)*UVContraction,
	}
	d := sample2D(u.DepthTexture, posUV)[0]

	var offset Vec2
	if u.Offset != nil {
		offset = *u.Offset
	}
	c := sample2D(u.ColorTexture, Vec2{
		X: posUV.X + offset.X*d/DepthDivisor,
		Y: posUV.Y + offset.Y*d/DepthDivisor,
	})

	to8 := func(v float64) uint8 { return uint8(math.Round(clamp(v, 0, 1) * 255)) }
	return color.NRGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: to8(c[3])}
}
