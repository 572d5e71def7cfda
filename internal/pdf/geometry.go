package pdf

import "math"

// Point is a 2D coordinate in page space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle. Origin convention is carried by the
// caller; the math is origin-agnostic.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Left returns the left edge of the rectangle.
func (r Rect) Left() float64 { return r.X }

// Right returns the right edge of the rectangle.
func (r Rect) Right() float64 { return r.X + r.Width }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Intersects reports whether r and other overlap.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width && other.X < r.X+r.Width &&
		r.Y < other.Y+other.Height && other.Y < r.Y+r.Height
}

// flipY converts a y coordinate between top-left and bottom-left origin
// for a page of the given height. The conversion is its own inverse.
func flipY(y, pageHeight float64) float64 {
	return pageHeight - y
}

// isFinite reports whether v is a usable coordinate value.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
