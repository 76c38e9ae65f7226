package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-nearby/nearby/internal/point/model"
	"github.com/go-nearby/nearby/pkg/container/avltree"
	"github.com/go-nearby/nearby/pkg/container/quadtree"
)

const (
	rebuildOutdatedTime = 60 * time.Second
	rebuildSizeTime     = 5 * time.Second
)

type layerOption func(*layer)

func withLayerMaxItems(n int) layerOption {
	return func(l *layer) {
		l.opts.maxItemsStored = n
	}
}

func withLayerStorageTime(t time.Duration) layerOption {
	return func(l *layer) {
		l.opts.maxStorageTime = t
	}
}

type layerOptions struct {
	maxItemsStored int
	maxStorageTime time.Duration
}

// layer owns a single quadtree plus a time-ordered view of the same
// points used for in-memory eviction. All access goes through the
// mutex, eviction runs on its own goroutine until Close.
type layer struct {
	mtx                 sync.RWMutex
	opts                layerOptions
	tree                *quadtree.Node
	timesTree           *avltree.Tree
	rebuildOutdatedTime time.Time
	cancel              func()
}

func newLayer(spec LayerSpec, opts ...layerOption) (*layer, error) {
	var treeOpts []quadtree.Option
	if spec.UpperThreshold > 0 {
		treeOpts = append(treeOpts, quadtree.WithUpperThreshold(spec.UpperThreshold))
	}
	if spec.LowerThreshold > 0 {
		treeOpts = append(treeOpts, quadtree.WithLowerThreshold(spec.LowerThreshold))
	}
	if spec.MaxDepth > 0 {
		treeOpts = append(treeOpts, quadtree.WithMaxDepth(spec.MaxDepth))
	}

	tree, err := quadtree.New(spec.MinX, spec.MinY, spec.MaxX, spec.MaxY, treeOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable create quadtree: %w", err)
	}

	l := &layer{
		tree:                tree,
		timesTree:           avltree.New(),
		rebuildOutdatedTime: time.Now(),
	}
	for _, opt := range opts {
		opt(l)
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go l.schedule(ctx)

	return l, nil
}

func (l *layer) Close() {
	l.cancel()
}

func (l *layer) Append(points ...*model.Point) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	for i := range points {
		p := points[i]
		if err := l.tree.Add(p); err != nil {
			return fmt.Errorf("unable add point %s: %w", p.ID, err)
		}
		l.timesTree.Add(timeNode{K: p.CreatedAt, V: p})
	}
	return nil
}

func (l *layer) Remove(points ...*model.Point) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	for i := range points {
		p := points[i]
		if l.tree.Remove(p) {
			l.timesTree.Remove(timeNode{K: p.CreatedAt, V: p})
		}
	}
}

func (l *layer) Nearest(x, y float64) quadtree.Result {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.tree.NearestPoint(x, y)
}

func (l *layer) Contains(x, y float64) bool {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.tree.Contains(x, y)
}

func (l *layer) Bounds() quadtree.Rect {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.tree.Bounds()
}

func (l *layer) Len() int {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.tree.Len()
}

func (l *layer) schedule(ctx context.Context) {
	outdatedTicker := time.NewTicker(rebuildOutdatedTime)
	sizeTicker := time.NewTicker(rebuildSizeTime)
	defer outdatedTicker.Stop()
	defer sizeTicker.Stop()
	for {
		select {
		case <-outdatedTicker.C:
			l.mtx.RLock()
			rebuildAt := l.rebuildOutdatedTime
			l.mtx.RUnlock()
			if l.opts.maxStorageTime > 0 && time.Since(rebuildAt) > l.opts.maxStorageTime {
				l.rebuildOutdated()
			}
		case <-sizeTicker.C:
			if l.opts.maxItemsStored > 0 && l.Len() > l.opts.maxItemsStored {
				l.rebuildSize()
			}
		case <-ctx.Done():
			return
		}
	}
}

func (l *layer) rebuildOutdated() {
	l.mtx.RLock()
	list := l.timesTree.Filter(func(current avltree.Item) bool {
		return time.Since(current.(timeNode).K) > l.opts.maxStorageTime
	})
	l.mtx.RUnlock()
	for i := range list {
		l.removeNode(list[i].(timeNode))
	}
	l.mtx.Lock()
	l.rebuildOutdatedTime = time.Now()
	l.mtx.Unlock()
}

func (l *layer) rebuildSize() {
	l.mtx.RLock()
	sub := l.timesTree.Len() - l.opts.maxItemsStored
	list := l.timesTree.Items()
	l.mtx.RUnlock()
	if sub <= 0 {
		return
	}
	// items come out oldest first
	for i := range list[:sub] {
		l.removeNode(list[i].(timeNode))
	}
}

func (l *layer) removeNode(node timeNode) {
	l.mtx.Lock()
	l.timesTree.Remove(node)
	l.tree.Remove(node.V)
	l.mtx.Unlock()
}
