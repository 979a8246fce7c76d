package parallax

import (
	"math"

	"depth-parallax/internal/utils"
)

// Viewport is the host's view size in CSS-style logical pixels plus the
// device pixel ratio.
type Viewport struct {
	Width      float64
	Height     float64
	PixelRatio float64
}

func (v Viewport) valid() bool {
	return validExtent(v.Width) && validExtent(v.Height)
}

// PixelSize is the viewport in device pixels.
func (v Viewport) PixelSize() (int, int) {
	ratio := v.PixelRatio
	if !validExtent(ratio) {
		ratio = 1
	}
	return int(math.Round(v.Width * ratio)), int(math.Round(v.Height * ratio))
}

// Surface is the output drawing surface, kept at the viewport size.
type Surface struct {
	Width      int
	Height     int
	PixelRatio float64

	camera  *Camera
	backend Backend
}

func NewSurface(backend Backend, cam *Camera, vp Viewport) *Surface {
	s := &Surface{camera: cam, backend: backend, Width: 1, Height: 1, PixelRatio: 1}
	s.OnResize(vp)
	return s
}

// OnResize resizes the surface to the viewport and refreshes the camera
// projection. Runs synchronously for every host resize notification.
func (s *Surface) OnResize(vp Viewport) {
	if !vp.valid() {
		utils.Warn("Ignoring resize to invalid viewport %.1fx%.1f", vp.Width, vp.Height)
		return
	}

	s.camera.UpdateProjectionMatrix()

	s.Width, s.Height = vp.PixelSize()
	s.PixelRatio = vp.PixelRatio
	if !validExtent(s.PixelRatio) {
		s.PixelRatio = 1
	}
	s.backend.ResizeSurface(s.Width, s.Height)
	utils.Debug("Surface resized to %dx%d (ratio %.2f)", s.Width, s.Height, s.PixelRatio)
}
