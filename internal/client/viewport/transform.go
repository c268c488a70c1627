// Package viewport implements the screen/world coordinate mapping for the
// infinite canvas and the gesture controller that mutates it.
package viewport

// Scale bounds enforced after every gesture operation.
const (
	MinScale = 0.1
	MaxScale = 4.0
)

// Point is a 2D coordinate, either screen-space pixels or world-space units
// depending on context.
type Point struct {
	X float64
	Y float64
}

// Transform maps world space to screen space: screen = world*Scale + Pan.
// Every client holds its own; it is never shared across participants.
type Transform struct {
	PanX  float64
	PanY  float64
	Scale float64
}

// Identity returns the neutral transform (no pan, scale 1).
func Identity() Transform {
	return Transform{Scale: 1}
}

// ScreenToWorld converts a screen-space point, relative to the viewport
// origin, into world space. A zero scale marks a transform that was never
// initialized (the viewport is not mounted yet); in that case the world
// origin is returned instead of dividing by zero.
func (t Transform) ScreenToWorld(p Point) Point {
	if t.Scale == 0 {
		return Point{}
	}
	return Point{
		X: (p.X - t.PanX) / t.Scale,
		Y: (p.Y - t.PanY) / t.Scale,
	}
}

// WorldToScreen is the exact inverse of ScreenToWorld for the same transform.
func (t Transform) WorldToScreen(p Point) Point {
	return Point{
		X: p.X*t.Scale + t.PanX,
		Y: p.Y*t.Scale + t.PanY,
	}
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}
