package quadtree

// Rect is an axis-aligned rectangle [MinX, MaxX) x [MinY, MaxY).
// Both axes are half-open: the minimum edge belongs to the rectangle,
// the maximum edge does not.
type Rect struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Contains reports whether (x, y) lies inside the rectangle under the
// half-open rule.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

// Mid returns the midpoint of the rectangle, the point where a node
// splits into quadrants.
func (r Rect) Mid() (midX, midY float64) {
	return (r.MinX + r.MaxX) / 2, (r.MinY + r.MaxY) / 2
}

// degenerate reports whether the rectangle has collapsed to a single
// coordinate on both axes. Such a region can never be usefully split.
func (r Rect) degenerate() bool {
	return r.MinX == r.MaxX && r.MinY == r.MaxY
}
