package notify

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-nearby/nearby/internal/database"
	"github.com/go-nearby/nearby/internal/geom"
	pointModel "github.com/go-nearby/nearby/internal/point/model"
	bolt "go.etcd.io/bbolt"
)

func newTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "notifydb")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	boltDB, err := bolt.Open(filepath.Join(dir, "test.db"), 0600, nil)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("bolt.Open: %v", err)
	}
	return &database.DB{DB: boltDB}, func() {
		boltDB.Close()
		os.RemoveAll(dir)
	}
}

func TestManager_NotifyBuffers(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	m, err := New(db, make(chan error, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.Notify(
		pointModel.NewPoint("layer-a", geom.Point{X: 1, Y: 1}, time.Now(), nil),
		pointModel.NewPoint("layer-a", geom.Point{X: 2, Y: 2}, time.Now(), nil),
		pointModel.NewPoint("layer-b", geom.Point{X: 3, Y: 3}, time.Now(), nil),
	)

	if got := len(m.buffers["layer-a"]); got != 2 {
		t.Errorf("layer-a buffer len = %v, want 2", got)
	}
	if got := len(m.buffers["layer-b"]); got != 1 {
		t.Errorf("layer-b buffer len = %v, want 1", got)
	}
}

func TestManager_NotifyDisabled(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	m, err := New(db, make(chan error, 1), WithAllowNotify(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.Notify(pointModel.NewPoint("layer-a", geom.Point{X: 1, Y: 1}, time.Now(), nil))
	if len(m.buffers) != 0 {
		t.Errorf("buffers = %v with notifications disabled, want empty", m.buffers)
	}
}

func TestManager_Delivery(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	var (
		mtx      sync.Mutex
		received request
		hits     int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := ioutil.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		mtx.Lock()
		hits++
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		mtx.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	shutdownCh := make(chan error, 1)
	m, err := New(
		db,
		shutdownCh,
		WithInterval(50*time.Millisecond),
		WithMaxConcurrentRequest(4),
		WithTargets(Targets{{URL: srv.URL, LayerID: "layer-a"}}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := m.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	m.Notify(pointModel.NewPoint("layer-a", geom.Point{X: 7, Y: 9}, time.Now(), "extra"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mtx.Lock()
		done := hits > 0
		mtx.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	<-shutdownCh

	mtx.Lock()
	defer mtx.Unlock()
	if hits == 0 {
		t.Fatalf("notification target was never called")
	}
	if received.LayerID != "layer-a" {
		t.Errorf("delivered layer = %v, want layer-a", received.LayerID)
	}
	if len(received.Data) != 1 || received.Data[0].X != 7 || received.Data[0].Y != 9 {
		t.Errorf("delivered data = %+v, want one point at (7, 9)", received.Data)
	}
}

func TestManager_ShutdownPersistsBuffers(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	m, err := New(db, make(chan error, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Notify(pointModel.NewPoint("layer-a", geom.Point{X: 1, Y: 1}, time.Now(), nil))
	if err := m.shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	reloaded, err := New(db, make(chan error, 1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := reloaded.initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if got := len(reloaded.buffers["layer-a"]); got != 1 {
		t.Errorf("reloaded buffer len = %v, want 1", got)
	}
}
