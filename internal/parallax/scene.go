package parallax

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// ErrContextLost means the GPU context is gone. The session cannot draw
	// any further frames.
	ErrContextLost   = errors.New("gpu context lost")
	ErrShaderCompile = errors.New("shader compile failed")
)

// Backend is the GPU side of the renderer. All methods are called from the
// loop thread.
type Backend interface {
	CompileProgram(p *Program) error
	// Draw renders mesh through cam into the surface, uploading any texture
	// whose contents changed since the previous draw.
	Draw(surface *Surface, cam *Camera, mesh *Mesh) error
	ResizeSurface(width, height int)
	Release()
}

// Camera is an orthographic camera with a fixed view volume.
type Camera struct {
	Left, Right, Top, Bottom float32
	Near, Far                float32

	projection mgl32.Mat4
}

func NewOrthographicCamera(left, right, top, bottom, near, far float32) *Camera {
	c := &Camera{
		Left:   left,
		Right:  right,
		Top:    top,
		Bottom: bottom,
		Near:   near,
		Far:    far,
	}
	c.UpdateProjectionMatrix()
	return c
}

// NewScreenCamera returns the [-1,1]x[-1,1] camera with near 0 and far 1
// matching the fullscreen quad.
func NewScreenCamera() *Camera {
	return NewOrthographicCamera(-1, 1, 1, -1, 0, 1)
}

// UpdateProjectionMatrix recomputes the projection from the view volume.
func (c *Camera) UpdateProjectionMatrix() {
	c.projection = mgl32.Ortho(c.Left, c.Right, c.Bottom, c.Top, c.Near, c.Far)
}

func (c *Camera) Projection() mgl32.Mat4 { return c.projection }

type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
}

// Mesh is an indexed triangle list drawn with a single program.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint16
	Program  *Program
}

// NewFullscreenQuad builds a 2x2 plane centered on the origin, which covers
// normalized device coordinates exactly. uv (0,0) is the bottom-left corner.
func NewFullscreenQuad(p *Program) *Mesh {
	return &Mesh{
		Vertices: []Vertex{
			{Position: mgl32.Vec3{-1, 1, 0}, UV: mgl32.Vec2{0, 1}},
			{Position: mgl32.Vec3{1, 1, 0}, UV: mgl32.Vec2{1, 1}},
			{Position: mgl32.Vec3{-1, -1, 0}, UV: mgl32.Vec2{0, 0}},
			{Position: mgl32.Vec3{1, -1, 0}, UV: mgl32.Vec2{1, 0}},
		},
		Indices: []uint16{0, 2, 1, 2, 3, 1},
		Program: p,
	}
}

// Triangles calls fn for every triangle of the mesh, in index order.
func (m *Mesh) Triangles(fn func(a, b, c Vertex)) {
	for i := 0; i+2 < len(m.Indices); i += 3 {
		fn(m.Vertices[m.Indices[i]], m.Vertices[m.Indices[i+1]], m.Vertices[m.Indices[i+2]])
	}
}

// Scene holds the single mesh and camera of the renderer.
type Scene struct {
	Camera  *Camera
	Mesh    *Mesh
	backend Backend
}

// NewScene compiles the mesh program on backend.
func NewScene(backend Backend, cam *Camera, mesh *Mesh) (*Scene, error) {
	if err := backend.CompileProgram(mesh.Program); err != nil {
		return nil, fmt.Errorf("%s: %w", mesh.Program.Name, err)
	}
	return &Scene{Camera: cam, Mesh: mesh, backend: backend}, nil
}

// Render issues one draw of the mesh into surface.
func (s *Scene) Render(surface *Surface) error {
	return s.backend.Draw(surface, s.Camera, s.Mesh)
}
