// Package quadtree implements an adaptive point quadtree over a bounded
// rectangular region with exact nearest-point queries.
//
// A node is either a leaf holding a small slice of points or an internal
// node holding exactly four children covering disjoint half-open
// quadrants, never both. Leaves subdivide when they grow past the upper
// threshold and internal nodes collapse back into leaves when their
// subtree shrinks below the lower threshold.
//
// The tree is not safe for concurrent use; callers mutating and querying
// from multiple goroutines must synchronize externally. A point's
// coordinates must not change while it is indexed: remove it, move it,
// add it again.
package quadtree

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned by Add when the point's coordinates fall
// outside the bounds of the node it was called on.
var ErrOutOfBounds = errors.New("quadtree: point out of bounds")

// NoPointDistance is the squared distance reported by NearestPoint when
// the tree holds no points.
const NoPointDistance = math.MaxFloat64

// Node is a quadtree node. The node returned by New is the root of the
// tree; children created by subdivision are owned exclusively by their
// parent and are discarded when a merge collapses them. Callers must not
// retain references to inner nodes across mutations.
type Node struct {
	bounds Rect

	// Leaf payload. Empty for internal nodes.
	points []interface{}
	// Quadrant children. All nil for leaf nodes; all set for internal
	// nodes. Top is the min-y side.
	topLeft     *Node
	topRight    *Node
	bottomLeft  *Node
	bottomRight *Node

	// Number of points in the whole subtree, maintained incrementally.
	size int

	// Remaining subdivision budget. A node with maxDepth <= 1 never
	// splits.
	maxDepth int

	upperThreshold int
	lowerThreshold int

	xAt AccessorFn
	yAt AccessorFn

	// Construction-time staging for WithInitialPoints; nil afterwards.
	initial []interface{}
}

// New constructs a root node covering [minX, maxX) x [minY, maxY).
// Configuration problems are reported immediately and never defaulted
// silently.
func New(minX, minY, maxX, maxY float64, opts ...Option) (*Node, error) {
	for _, v := range [4]float64{minX, minY, maxX, maxY} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("quadtree: bounds must be finite, got [%v %v %v %v]", minX, minY, maxX, maxY)
		}
	}

	n := &Node{
		bounds:         Rect{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY},
		upperThreshold: DefaultUpperThreshold,
		lowerThreshold: DefaultLowerThreshold,
		maxDepth:       DefaultMaxDepth,
		xAt:            defaultXAccessor,
		yAt:            defaultYAccessor,
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.xAt == nil || n.yAt == nil {
		return nil, fmt.Errorf("quadtree: coordinate accessors must not be nil")
	}
	if n.upperThreshold < 1 {
		return nil, fmt.Errorf("quadtree: upper threshold must be positive, got %d", n.upperThreshold)
	}
	if n.lowerThreshold < 0 {
		return nil, fmt.Errorf("quadtree: lower threshold must not be negative, got %d", n.lowerThreshold)
	}
	if n.lowerThreshold >= n.upperThreshold {
		return nil, fmt.Errorf(
			"quadtree: lower threshold %d must be less than upper threshold %d",
			n.lowerThreshold, n.upperThreshold,
		)
	}
	if n.maxDepth < 1 {
		return nil, fmt.Errorf("quadtree: max depth must be at least 1, got %d", n.maxDepth)
	}

	initial := n.initial
	n.initial = nil
	for _, p := range initial {
		if err := n.Add(p); err != nil {
			return nil, fmt.Errorf("quadtree: initial point: %w", err)
		}
	}

	return n, nil
}

// Leaf reports whether the node currently holds points directly rather
// than children.
func (n *Node) Leaf() bool {
	return n.topLeft == nil
}

// Bounds returns the node's rectangle.
func (n *Node) Bounds() Rect {
	return n.bounds
}

// Len returns the number of points in the node's subtree.
func (n *Node) Len() int {
	return n.size
}

// Contains reports whether (x, y) lies within the node's bounds.
func (n *Node) Contains(x, y float64) bool {
	return n.bounds.Contains(x, y)
}

// ContainsPoint is Contains with the coordinates resolved through the
// node's accessors.
func (n *Node) ContainsPoint(p interface{}) bool {
	return n.bounds.Contains(n.xAt(p), n.yAt(p))
}

// Add inserts p into the subtree. The point's coordinates must lie
// within the node's bounds; Add is normally called on the root.
func (n *Node) Add(p interface{}) error {
	return n.insert(n.xAt(p), n.yAt(p), p)
}

func (n *Node) insert(x, y float64, p interface{}) error {
	if !n.bounds.Contains(x, y) {
		return fmt.Errorf("quadtree: add (%v, %v) to %+v: %w", x, y, n.bounds, ErrOutOfBounds)
	}
	n.size++
	if n.Leaf() {
		n.points = append(n.points, p)
		if n.shouldSplit() {
			n.split()
		}
		return nil
	}
	return n.quadrant(x, y).insert(x, y, p)
}

// shouldSplit is the split policy, evaluated on a leaf immediately after
// an insertion. Unbounded leaf growth at max depth or in a degenerate
// region is accepted behavior, not an error.
func (n *Node) shouldSplit() bool {
	return len(n.points) > n.upperThreshold && !n.bounds.degenerate() && n.maxDepth > 1
}

// split converts the leaf into an internal node with four quadrant
// children and redistributes its points. Redistribution goes through the
// regular insert path, so an over-full quadrant may subdivide further
// until its depth budget runs out.
func (n *Node) split() {
	midX, midY := n.bounds.Mid()
	n.topLeft = n.child(Rect{MinX: n.bounds.MinX, MinY: n.bounds.MinY, MaxX: midX, MaxY: midY})
	n.topRight = n.child(Rect{MinX: midX, MinY: n.bounds.MinY, MaxX: n.bounds.MaxX, MaxY: midY})
	n.bottomLeft = n.child(Rect{MinX: n.bounds.MinX, MinY: midY, MaxX: midX, MaxY: n.bounds.MaxY})
	n.bottomRight = n.child(Rect{MinX: midX, MinY: midY, MaxX: n.bounds.MaxX, MaxY: n.bounds.MaxY})

	points := n.points
	n.points = nil
	for _, p := range points {
		x, y := n.xAt(p), n.yAt(p)
		// Routing and quadrant bounds use the same midpoint rule, so the
		// chosen child always contains the point.
		_ = n.quadrant(x, y).insert(x, y, p)
	}
}

func (n *Node) child(bounds Rect) *Node {
	return &Node{
		bounds:         bounds,
		maxDepth:       n.maxDepth - 1,
		upperThreshold: n.upperThreshold,
		lowerThreshold: n.lowerThreshold,
		xAt:            n.xAt,
		yAt:            n.yAt,
	}
}

// quadrant returns the single child whose bounds contain (x, y).
// Coordinates exactly on a dividing line route to the bottom/right
// side, consistent with the half-open child bounds.
func (n *Node) quadrant(x, y float64) *Node {
	midX, midY := n.bounds.Mid()
	if y < midY {
		if x < midX {
			return n.topLeft
		}
		return n.topRight
	}
	if x < midX {
		return n.bottomLeft
	}
	return n.bottomRight
}

// Remove removes one occurrence of p, matched by interface identity
// rather than coordinate equality, and reports whether it was found.
// Removing an absent point is a normal outcome, not an error.
func (n *Node) Remove(p interface{}) bool {
	return n.remove(n.xAt(p), n.yAt(p), p)
}

func (n *Node) remove(x, y float64, p interface{}) bool {
	if !n.bounds.Contains(x, y) {
		return false
	}
	if n.Leaf() {
		for i := range n.points {
			if n.points[i] == p {
				n.points = append(n.points[:i], n.points[i+1:]...)
				n.size--
				return true
			}
		}
		return false
	}
	if !n.quadrant(x, y).remove(x, y, p) {
		return false
	}
	n.size--
	if n.size < n.lowerThreshold {
		n.merge()
	}
	return true
}

// merge collapses the internal node back into a leaf holding every point
// of its four child subtrees. The children are discarded; nothing outside
// the parent may hold a reference to them. Merge is single-level: the
// resulting leaf is below the lower threshold and therefore also below
// the split trigger.
func (n *Node) merge() {
	points := make([]interface{}, 0, n.size)
	points = n.topLeft.appendPoints(points)
	points = n.topRight.appendPoints(points)
	points = n.bottomLeft.appendPoints(points)
	points = n.bottomRight.appendPoints(points)
	n.points = points
	n.topLeft, n.topRight, n.bottomLeft, n.bottomRight = nil, nil, nil, nil
}

func (n *Node) appendPoints(dst []interface{}) []interface{} {
	if n.Leaf() {
		return append(dst, n.points...)
	}
	dst = n.topLeft.appendPoints(dst)
	dst = n.topRight.appendPoints(dst)
	dst = n.bottomLeft.appendPoints(dst)
	dst = n.bottomRight.appendPoints(dst)
	return dst
}

// Result is the answer to a nearest-point query.
type Result struct {
	// Minimum squared euclidean distance from the query coordinate, or
	// NoPointDistance when the subtree holds no points.
	SqDistance float64
	// Every point at the minimum distance. The order follows traversal
	// order and carries no meaning; callers needing a canonical order
	// must sort.
	Points []interface{}
	// Number of points whose distance was computed.
	Examined int
}

// NearestPoint returns all points at minimum squared euclidean distance
// from (x, y). The query coordinate does not have to lie within the
// tree's bounds.
func (n *Node) NearestPoint(x, y float64) Result {
	res := Result{SqDistance: NoPointDistance}
	n.nearest(x, y, &res)
	return res
}

// nearest is a branch-and-bound descent. At an internal node the
// quadrant containing the query is visited first; each remaining
// quadrant is visited only if the current best distance is still at
// least the squared distance to the dividing line(s) separating it from
// the query, so no quadrant that could hold a closer or equally close
// point is ever skipped.
func (n *Node) nearest(x, y float64, res *Result) {
	if n.Leaf() {
		for _, p := range n.points {
			dx, dy := n.xAt(p)-x, n.yAt(p)-y
			d := dx*dx + dy*dy
			switch {
			case d < res.SqDistance:
				res.SqDistance = d
				res.Points = append(res.Points[:0], p)
			case d == res.SqDistance:
				res.Points = append(res.Points, p)
			}
		}
		res.Examined += len(n.points)
		return
	}

	midX, midY := n.bounds.Mid()
	dx := (midX - x) * (midX - x)
	dy := (midY - y) * (midY - y)
	qLeft, qTop := x < midX, y < midY

	quadrants := [4]struct {
		node      *Node
		left, top bool
	}{
		{n.topLeft, true, true},
		{n.topRight, false, true},
		{n.bottomLeft, true, false},
		{n.bottomRight, false, false},
	}

	for _, q := range quadrants {
		if q.left == qLeft && q.top == qTop {
			q.node.nearest(x, y, res)
			break
		}
	}
	for _, q := range quadrants {
		if q.left == qLeft && q.top == qTop {
			continue
		}
		var bound float64
		if q.left != qLeft {
			bound += dx
		}
		if q.top != qTop {
			bound += dy
		}
		if res.SqDistance >= bound {
			q.node.nearest(x, y, res)
		}
	}
}
