package quadtree

const (
	DefaultUpperThreshold = 8
	DefaultLowerThreshold = 4
	DefaultMaxDepth       = 16
)

// XY is the coordinate shape resolved by the default accessors. Points
// stored with the default configuration must implement it.
type XY interface {
	X() float64
	Y() float64
}

// AccessorFn resolves a single coordinate of a caller-supplied point.
// Accessors are captured once at root construction and propagated
// unchanged to every descendant.
type AccessorFn func(p interface{}) float64

func defaultXAccessor(p interface{}) float64 {
	return p.(XY).X()
}

func defaultYAccessor(p interface{}) float64 {
	return p.(XY).Y()
}

type Option func(*Node)

// WithXAccessor overrides how the x coordinate is read from a point.
func WithXAccessor(fn AccessorFn) Option {
	return func(n *Node) {
		n.xAt = fn
	}
}

// WithYAccessor overrides how the y coordinate is read from a point.
func WithYAccessor(fn AccessorFn) Option {
	return func(n *Node) {
		n.yAt = fn
	}
}

// WithUpperThreshold sets the leaf size above which a node subdivides.
func WithUpperThreshold(n int) Option {
	return func(t *Node) {
		t.upperThreshold = n
	}
}

// WithLowerThreshold sets the subtree size below which an internal node
// collapses back into a leaf.
func WithLowerThreshold(n int) Option {
	return func(t *Node) {
		t.lowerThreshold = n
	}
}

// WithMaxDepth bounds the number of subdivisions below this node. A node
// whose remaining budget is 1 never subdivides regardless of occupancy.
func WithMaxDepth(n int) Option {
	return func(t *Node) {
		t.maxDepth = n
	}
}

// WithInitialPoints inserts the given points through the standard Add
// path immediately after construction, so they participate in split
// decisions identically to runtime insertions.
func WithInitialPoints(points ...interface{}) Option {
	return func(t *Node) {
		t.initial = append(t.initial, points...)
	}
}
