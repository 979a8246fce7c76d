package engine2D

import (
	"fmt"
	"image/color"

	"depth-parallax/internal/parallax"
	"depth-parallax/internal/utils"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

// Renderer is the raylib implementation of parallax.Backend. It must be
// created and used on the thread that owns the raylib window.
type Renderer struct {
	SurfaceWidth  int
	SurfaceHeight int
	Background    color.RGBA

	program    *parallax.Program
	shader     rl.Shader
	parameters ShaderParameters
	textures   map[*parallax.Texture]*gpuTexture
	blank      *rl.Texture2D
	released   bool
}

func NewRenderer(background color.RGBA) *Renderer {
	return &Renderer{
		Background: background,
		textures:   make(map[*parallax.Texture]*gpuTexture),
	}
}

// initDefaults creates the 1x1 transparent texture bound in place of
// textures that have not loaded.
func (r *Renderer) initDefaults() {
	if r.blank == nil {
		img := rl.GenImageColor(1, 1, rl.Blank)
		tex := rl.LoadTextureFromImage(img)
		rl.SetTextureWrap(tex, rl.TextureWrapClamp)
		rl.UnloadImage(img)
		r.blank = &tex
	}
}

func (r *Renderer) CompileProgram(p *parallax.Program) error {
	if r.released || !rl.IsWindowReady() {
		return parallax.ErrContextLost
	}
	shader, err := LoadShader(p)
	if err != nil {
		return err
	}
	if r.shader.ID != 0 {
		rl.UnloadShader(r.shader)
	}
	r.program = p
	r.shader = shader
	r.parameters = ResolveShaderLocations(shader)
	utils.Debug("Shader: %s locations %+v", p.Name, r.parameters)
	r.initDefaults()
	return nil
}

// ResizeSurface records the surface size. raylib resizes the default
// framebuffer and its viewport itself when the window changes.
func (r *Renderer) ResizeSurface(width, height int) {
	r.SurfaceWidth = width
	r.SurfaceHeight = height
	utils.Debug("Renderer: surface %dx%d", width, height)
}

// texture returns the GPU texture for t, uploading new contents first.
func (r *Renderer) texture(t *parallax.Texture) rl.Texture2D {
	slot, ok := r.textures[t]
	if !ok {
		slot = &gpuTexture{}
		r.textures[t] = slot
	}

	pixels := t.Pixels()
	if pixels == nil {
		return *r.blank
	}
	if slot.loaded && slot.version == t.Version() && !t.NeedsUpdate() {
		return slot.texture
	}

	if slot.loaded {
		rl.UnloadTexture(slot.texture)
	}

	w, h := t.Size()
	img := rl.NewImage(pixels.Pix, int32(w), int32(h), 1, rl.UncompressedR8g8b8a8)
	tex := rl.LoadTextureFromImage(img)
	rl.SetTextureWrap(tex, wrapMode(t.Sampling.WrapS))
	rl.SetTextureFilter(tex, filterMode(t.Sampling))

	slot.texture = tex
	slot.version = t.Version()
	slot.loaded = true
	t.MarkUploaded()
	utils.Debug("Uploaded %s texture %dx%d (ID: %d)", t.Name, w, h, tex.ID)
	return tex
}

// toMatrix converts a column-major mathgl matrix to raylib's layout.
func toMatrix(m mgl32.Mat4) rl.Matrix {
	return rl.Matrix{
		M0: m[0], M1: m[1], M2: m[2], M3: m[3],
		M4: m[4], M5: m[5], M6: m[6], M7: m[7],
		M8: m[8], M9: m[9], M10: m[10], M11: m[11],
		M12: m[12], M13: m[13], M14: m[14], M15: m[15],
	}
}

// Draw renders the mesh with its program. The caller wraps it in
// rl.BeginDrawing / rl.EndDrawing.
func (r *Renderer) Draw(surface *parallax.Surface, cam *parallax.Camera, mesh *parallax.Mesh) error {
	if r.released || !rl.IsWindowReady() {
		return parallax.ErrContextLost
	}
	if mesh.Program != r.program || r.shader.ID == 0 {
		return fmt.Errorf("%w: program %s was not compiled", parallax.ErrShaderCompile, mesh.Program.Name)
	}

	u := &mesh.Program.Uniforms
	colorTex := r.texture(u.ColorTexture)
	depthTex := r.texture(u.DepthTexture)

	rl.ClearBackground(r.Background)

	prevProjection := rl.GetMatrixProjection()
	prevModelview := rl.GetMatrixModelview()

	rl.BeginShaderMode(r.shader)
	rl.SetMatrixProjection(toMatrix(cam.Projection()))
	rl.SetMatrixModelview(rl.MatrixIdentity())
	ApplyUniforms(r.shader, &r.parameters, colorTex, depthTex, *u.Offset)

	rl.Begin(rl.Triangles)
	rl.Color4ub(255, 255, 255, 255)
	mesh.Triangles(func(a, b, c parallax.Vertex) {
		for _, v := range [3]parallax.Vertex{a, b, c} {
			rl.TexCoord2f(v.UV.X(), v.UV.Y())
			rl.Vertex3f(v.Position.X(), v.Position.Y(), v.Position.Z())
		}
	})
	rl.End()
	rl.EndShaderMode()

	// Later 2D drawing in the same frame expects raylib's screen matrices.
	rl.SetMatrixProjection(prevProjection)
	rl.SetMatrixModelview(prevModelview)

	return nil
}

func (r *Renderer) Release() {
	if r.released {
		return
	}
	r.released = true

	if !rl.IsWindowReady() {
		return
	}
	for t, slot := range r.textures {
		if slot.loaded {
			rl.UnloadTexture(slot.texture)
		}
		delete(r.textures, t)
	}
	if r.blank != nil {
		rl.UnloadTexture(*r.blank)
		r.blank = nil
	}
	if r.shader.ID != 0 {
		rl.UnloadShader(r.shader)
		r.shader = rl.Shader{}
	}
	utils.Debug("Renderer: GPU resources released")
}
