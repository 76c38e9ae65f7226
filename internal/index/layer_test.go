package index

import (
	"errors"
	"testing"
	"time"

	"github.com/go-nearby/nearby/internal/geom"
	"github.com/go-nearby/nearby/internal/point/model"
	"github.com/go-nearby/nearby/pkg/container/quadtree"
)

func testLayerSpec() LayerSpec {
	return LayerSpec{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}
}

func TestLayer_AppendNearest(t *testing.T) {
	l, err := newLayer(testLayerSpec())
	if err != nil {
		t.Fatalf("newLayer: %v", err)
	}
	defer l.Close()

	p1 := model.NewPoint("test-layer", geom.Point{X: 10, Y: 10}, time.Now(), nil)
	p2 := model.NewPoint("test-layer", geom.Point{X: 90, Y: 90}, time.Now(), nil)
	if err := l.Append(&p1, &p2); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if l.Len() != 2 {
		t.Errorf("Len() = %v, want 2", l.Len())
	}

	res := l.Nearest(12, 12)
	if len(res.Points) != 1 {
		t.Fatalf("Nearest returned %v points, want 1", len(res.Points))
	}
	if got := res.Points[0].(*model.Point); got != &p1 {
		t.Errorf("Nearest returned %v, want %v", got.ID, p1.ID)
	}
	if want := 8.0; res.SqDistance != want {
		t.Errorf("Nearest SqDistance = %v, want %v", res.SqDistance, want)
	}
}

func TestLayer_AppendOutOfBounds(t *testing.T) {
	l, err := newLayer(testLayerSpec())
	if err != nil {
		t.Fatalf("newLayer: %v", err)
	}
	defer l.Close()

	p := model.NewPoint("test-layer", geom.Point{X: 500, Y: 500}, time.Now(), nil)
	if err := l.Append(&p); !errors.Is(err, quadtree.ErrOutOfBounds) {
		t.Errorf("Append out of bounds err = %v, want %v", err, quadtree.ErrOutOfBounds)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %v after failed append, want 0", l.Len())
	}
}

func TestLayer_Remove(t *testing.T) {
	l, err := newLayer(testLayerSpec())
	if err != nil {
		t.Fatalf("newLayer: %v", err)
	}
	defer l.Close()

	p := model.NewPoint("test-layer", geom.Point{X: 10, Y: 10}, time.Now(), nil)
	twin := model.NewPoint("test-layer", geom.Point{X: 10, Y: 10}, time.Now(), nil)
	if err := l.Append(&p, &twin); err != nil {
		t.Fatalf("Append: %v", err)
	}

	l.Remove(&p)
	if l.Len() != 1 {
		t.Fatalf("Len() = %v after remove, want 1", l.Len())
	}
	res := l.Nearest(10, 10)
	if res.Points[0].(*model.Point) != &twin {
		t.Errorf("Nearest after remove returned the removed point")
	}
}

func TestLayer_NearestEmpty(t *testing.T) {
	l, err := newLayer(testLayerSpec())
	if err != nil {
		t.Fatalf("newLayer: %v", err)
	}
	defer l.Close()

	res := l.Nearest(50, 50)
	if res.SqDistance != quadtree.NoPointDistance {
		t.Errorf("empty layer SqDistance = %v, want %v", res.SqDistance, quadtree.NoPointDistance)
	}
	if len(res.Points) != 0 {
		t.Errorf("empty layer returned %v points, want 0", len(res.Points))
	}
}

func TestLayer_ConcurrentRebuildOutdated(t *testing.T) {
	l, err := newLayer(testLayerSpec(), withLayerStorageTime(time.Millisecond))
	if err != nil {
		t.Fatalf("newLayer: %v", err)
	}
	defer l.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			l.rebuildOutdated()
		}
	}()
	for i := 0; i < 100; i++ {
		l.mtx.RLock()
		rebuildAt := l.rebuildOutdatedTime
		l.mtx.RUnlock()
		if rebuildAt.After(time.Now()) {
			t.Fatalf("rebuild time %v is in the future", rebuildAt)
		}
	}
	<-done
}

func TestLayer_RebuildSize(t *testing.T) {
	l, err := newLayer(testLayerSpec(), withLayerMaxItems(2))
	if err != nil {
		t.Fatalf("newLayer: %v", err)
	}
	defer l.Close()

	now := time.Now()
	oldest := model.NewPoint("test-layer", geom.Point{X: 10, Y: 10}, now.Add(-3*time.Minute), nil)
	middle := model.NewPoint("test-layer", geom.Point{X: 20, Y: 20}, now.Add(-2*time.Minute), nil)
	newest := model.NewPoint("test-layer", geom.Point{X: 30, Y: 30}, now, nil)
	if err := l.Append(&oldest, &middle, &newest); err != nil {
		t.Fatalf("Append: %v", err)
	}

	l.rebuildSize()

	if l.Len() != 2 {
		t.Fatalf("Len() = %v after rebuildSize, want 2", l.Len())
	}
	if res := l.Nearest(10, 10); res.Points[0].(*model.Point) == &oldest {
		t.Errorf("rebuildSize kept the oldest point")
	}
}

func TestLayer_RebuildOutdated(t *testing.T) {
	l, err := newLayer(testLayerSpec(), withLayerStorageTime(time.Minute))
	if err != nil {
		t.Fatalf("newLayer: %v", err)
	}
	defer l.Close()

	outdated := model.NewPoint("test-layer", geom.Point{X: 10, Y: 10}, time.Now().Add(-2*time.Minute), nil)
	fresh := model.NewPoint("test-layer", geom.Point{X: 20, Y: 20}, time.Now(), nil)
	if err := l.Append(&outdated, &fresh); err != nil {
		t.Fatalf("Append: %v", err)
	}

	l.rebuildOutdated()

	if l.Len() != 1 {
		t.Fatalf("Len() = %v after rebuildOutdated, want 1", l.Len())
	}
	if res := l.Nearest(10, 10); res.Points[0].(*model.Point) != &fresh {
		t.Errorf("rebuildOutdated removed the fresh point")
	}
}
