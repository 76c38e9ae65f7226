package geom

import "math"

func EuclideanDistance(p, p1 Point) float64 {
	return math.Sqrt(p.SqDist(p1))
}

func ChebyshevDistance(p, p1 Point) float64 {
	dx := math.Abs(p.X - p1.X)
	dy := math.Abs(p.Y - p1.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func ManhattanDistance(p, p1 Point) float64 {
	return math.Abs(p.X-p1.X) + math.Abs(p.Y-p1.Y)
}
