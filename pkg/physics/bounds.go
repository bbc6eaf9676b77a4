// pkg/physics/bounds.go
package physics

import (
	"fmt"
	"math"
)

// Bounds is an axis-aligned rectangle. X and Y locate the top-left corner
// and Y grows downward, matching screen coordinates.
type Bounds struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Width  float64 `json:"w" msgpack:"w"`
	Height float64 `json:"h" msgpack:"h"`
}

// NewBounds creates bounds from a corner and a size.
func NewBounds(x, y, width, height float64) Bounds {
	return Bounds{X: x, Y: y, Width: width, Height: height}
}

// Valid reports whether the size is non-negative and every field is finite.
func (b Bounds) Valid() bool {
	for _, f := range [...]float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return b.Width >= 0 && b.Height >= 0
}

// Right returns the X coordinate of the right edge.
func (b Bounds) Right() float64 {
	return b.X + b.Width
}

// Bottom returns the Y coordinate of the bottom edge.
func (b Bounds) Bottom() float64 {
	return b.Y + b.Height
}

// Position returns the top-left corner.
func (b Bounds) Position() Vector2D {
	return Vector2D{X: b.X, Y: b.Y}
}

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() Vector2D {
	return Vector2D{X: b.X + b.Width/2, Y: b.Y + b.Height/2}
}

// Translate returns the bounds shifted by v.
func (b Bounds) Translate(v Vector2D) Bounds {
	return Bounds{X: b.X + v.X, Y: b.Y + v.Y, Width: b.Width, Height: b.Height}
}

// Intersects reports whether the rectangles share any point, edges included.
// The spatial index uses this test so a query never misses a touching item.
func (b Bounds) Intersects(other Bounds) bool {
	return b.X <= other.Right() && other.X <= b.Right() &&
		b.Y <= other.Bottom() && other.Y <= b.Bottom()
}

// Overlaps reports whether the rectangles share a region of positive area.
// Resting contact is not an overlap.
func (b Bounds) Overlaps(other Bounds) bool {
	return b.X < other.Right() && other.X < b.Right() &&
		b.Y < other.Bottom() && other.Y < b.Bottom()
}

// Contains reports whether other lies entirely within b.
func (b Bounds) Contains(other Bounds) bool {
	return other.X >= b.X && other.Right() <= b.Right() &&
		other.Y >= b.Y && other.Bottom() <= b.Bottom()
}

// ContainsPoint reports whether p lies within b, edges included.
func (b Bounds) ContainsPoint(p Vector2D) bool {
	return p.X >= b.X && p.X <= b.Right() && p.Y >= b.Y && p.Y <= b.Bottom()
}

// Union returns the smallest bounds containing both rectangles.
func (b Bounds) Union(other Bounds) Bounds {
	x := math.Min(b.X, other.X)
	y := math.Min(b.Y, other.Y)
	return Bounds{
		X:      x,
		Y:      y,
		Width:  math.Max(b.Right(), other.Right()) - x,
		Height: math.Max(b.Bottom(), other.Bottom()) - y,
	}
}

// Quadrants splits b into four equal children ordered
// north-west, north-east, south-west, south-east.
func (b Bounds) Quadrants() [4]Bounds {
	w := b.Width / 2
	h := b.Height / 2
	return [4]Bounds{
		{X: b.X, Y: b.Y, Width: w, Height: h},
		{X: b.X + w, Y: b.Y, Width: w, Height: h},
		{X: b.X, Y: b.Y + h, Width: w, Height: h},
		{X: b.X + w, Y: b.Y + h, Width: w, Height: h},
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("(%g,%g %gx%g)", b.X, b.Y, b.Width, b.Height)
}
