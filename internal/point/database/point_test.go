package database

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-nearby/nearby/internal/database"
	"github.com/go-nearby/nearby/internal/geom"
	"github.com/go-nearby/nearby/internal/point/model"
	bolt "go.etcd.io/bbolt"
)

func newTestDB(t *testing.T) (*DB, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "pointdb")
	if err != nil {
		t.Fatalf("TempDir: %v", err)
	}
	boltDB, err := bolt.Open(filepath.Join(dir, "test.db"), 0600, nil)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("bolt.Open: %v", err)
	}
	db := New(&database.DB{DB: boltDB})
	return db, func() {
		boltDB.Close()
		os.RemoveAll(dir)
	}
}

func TestDB_StoreFind(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	ctx := context.Background()
	p := model.NewPoint("test-layer", geom.Point{X: 1, Y: 2}, time.Now(), "extra")
	if err := db.Store(ctx, p); err != nil {
		t.Fatalf("Store: %v", err)
	}

	found, err := db.FindByLayer("test-layer", nil)
	if err != nil {
		t.Fatalf("FindByLayer: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("FindByLayer len = %v, want 1", len(found))
	}
	if found[0].ID != p.ID {
		t.Errorf("found ID = %v, want %v", found[0].ID, p.ID)
	}
	if found[0].Coord.X != 1 || found[0].Coord.Y != 2 {
		t.Errorf("found coord = %+v, want (1, 2)", found[0].Coord)
	}

	keys, err := db.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "test-layer" {
		t.Errorf("Keys = %v, want [test-layer]", keys)
	}
}

func TestDB_AppendManyCount(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	ctx := context.Background()
	points := []model.Point{
		model.NewPoint("layer-a", geom.Point{X: 1, Y: 1}, time.Now(), nil),
		model.NewPoint("layer-a", geom.Point{X: 2, Y: 2}, time.Now(), nil),
		model.NewPoint("layer-b", geom.Point{X: 3, Y: 3}, time.Now(), nil),
	}
	if err := db.AppendMany(ctx, points); err != nil {
		t.Fatalf("AppendMany: %v", err)
	}

	count, err := db.CountByLayer("layer-a")
	if err != nil {
		t.Fatalf("CountByLayer: %v", err)
	}
	if count != 2 {
		t.Errorf("CountByLayer(layer-a) = %v, want 2", count)
	}

	all, err := db.FindAll(ctx, nil)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("FindAll len = %v, want 3", len(all))
	}
}

func TestDB_Delete(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	ctx := context.Background()
	p1 := model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), nil)
	p2 := model.NewPoint("test-layer", geom.Point{X: 2, Y: 2}, time.Now(), nil)
	if err := db.AppendMany(ctx, []model.Point{p1, p2}); err != nil {
		t.Fatalf("AppendMany: %v", err)
	}

	if err := db.Delete(ctx, p1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	count, err := db.CountByLayer("test-layer")
	if err != nil {
		t.Fatalf("CountByLayer: %v", err)
	}
	if count != 1 {
		t.Errorf("CountByLayer = %v after delete, want 1", count)
	}

	if err := db.DeleteMany(ctx, []model.Point{p2}); err != nil {
		t.Fatalf("DeleteMany: %v", err)
	}
	count, err = db.CountByLayer("test-layer")
	if err != nil {
		t.Fatalf("CountByLayer: %v", err)
	}
	if count != 0 {
		t.Errorf("CountByLayer = %v after delete many, want 0", count)
	}
}

func TestDB_FindAllFilter(t *testing.T) {
	db, cleanup := newTestDB(t)
	defer cleanup()

	ctx := context.Background()
	indexed := model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), nil)
	indexed.Status = model.StatusIndexed
	fresh := model.NewPoint("test-layer", geom.Point{X: 2, Y: 2}, time.Now(), nil)
	if err := db.AppendMany(ctx, []model.Point{indexed, fresh}); err != nil {
		t.Fatalf("AppendMany: %v", err)
	}

	found, err := db.FindAll(ctx, func(p model.Point) bool {
		return p.IsIndexed()
	})
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("FindAll filtered len = %v, want 1", len(found))
	}
	if found[0].ID != indexed.ID {
		t.Errorf("filtered ID = %v, want %v", found[0].ID, indexed.ID)
	}
}
