package geom

import "math"

// Point is a location on the 2D plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Equal(p1 Point) bool {
	return p.X == p1.X && p.Y == p1.Y
}

// Finite reports whether both coordinates are ordinary numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// SqDist returns the squared euclidean distance to p1.
func (p Point) SqDist(p1 Point) float64 {
	dx, dy := p.X-p1.X, p.Y-p1.Y
	return dx*dx + dy*dy
}

func (p Point) Magnitude() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

func (p Point) Scale(value float64) Point {
	return Point{X: p.X * value, Y: p.Y * value}
}
