package parallax

import "math"

// Vec2 is a normalized pointer displacement from the image center.
type Vec2 struct {
	X, Y float64
}

func clamp(value, min, max float64) float64 {
	if value > max {
		return max
	}
	if value < min {
		return min
	}
	return value
}

func validExtent(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// OffsetTracker smooths the pointer-derived offset fed to the shader.
// The pointer handler writes Target, the render tick writes Current.
type OffsetTracker struct {
	Current Vec2
	Target  Vec2

	limit   float64
	divisor float64
}

func NewOffsetTracker(limit, divisor float64) *OffsetTracker {
	return &OffsetTracker{limit: limit, divisor: divisor}
}

// SetTarget maps a pointer position inside a width x height container to the
// target offset. The raw delta from the center is clamped to the tracker's
// limit before it is normalized by the half extents. A degenerate container
// leaves the target untouched and reports false.
func (t *OffsetTracker) SetTarget(clientX, clientY, width, height float64) bool {
	hw := width / 2
	hh := height / 2
	if !validExtent(hw) || !validExtent(hh) {
		return false
	}

	x := clamp(hw-clientX, -t.limit, t.limit)
	y := clamp(hh-clientY, -t.limit, t.limit)
	if math.IsNaN(x) || math.IsNaN(y) {
		return false
	}

	t.Target.X = x / hw
	t.Target.Y = y / hh
	return true
}

// Step moves Current a fixed fraction of the way to Target. It runs once per
// tick, so the smoothing time constant follows the display refresh rate.
func (t *OffsetTracker) Step() Vec2 {
	t.Current.X += (t.Target.X - t.Current.X) / t.divisor
	t.Current.Y += (t.Target.Y - t.Current.Y) / t.divisor
	return t.Current
}
