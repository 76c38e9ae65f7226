package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-nearby/nearby/internal/database"
	"github.com/go-nearby/nearby/internal/point/model"
	bolt "go.etcd.io/bbolt"
)

const (
	layerKeys = "layer:keys:"
	prefix    = "point:"
)

type FilterFn func(point model.Point) bool

func New(db *database.DB) *DB {
	return &DB{sDB: db}
}

type DB struct {
	sDB *database.DB
}

func (db *DB) extractKey(key string) string {
	prefixPos := strings.Index(key, prefix)

	return key[prefixPos+len(prefix):]
}

func (db *DB) Keys() ([]string, error) {
	var bucketKeys []string
	err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(layerKeys))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			bucketKeys = append(bucketKeys, db.extractKey(string(k)))
		}
		return nil
	})

	return bucketKeys, err
}

func (db *DB) Store(_ context.Context, point model.Point) error {
	var b *bolt.Bucket
	bytes, err := json.Marshal(point)
	if err != nil {
		return err
	}

	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b = tx.Bucket([]byte(prefix + point.LayerID))
		if b == nil {
			b, err = tx.CreateBucket([]byte(prefix + point.LayerID))
			if err != nil {
				return fmt.Errorf("create bucket: %w", err)
			}
		}
		if err := b.Put([]byte(point.ID.String()), bytes); err != nil {
			return fmt.Errorf("put to bucket error: %w", err)
		}
		b = tx.Bucket([]byte(layerKeys))
		if b == nil {
			b, err = tx.CreateBucket([]byte(layerKeys))
			if err != nil {
				return fmt.Errorf("unable create layers bucket: %w", err)
			}
		}
		if err := b.Put([]byte(prefix+point.LayerID), []byte{0x0}); err != nil {
			return fmt.Errorf("unable put to layers bucket: %w", err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

func (db *DB) AppendMany(_ context.Context, points []model.Point) error {
	var b *bolt.Bucket
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		for _, point := range points {
			b = tx.Bucket([]byte(prefix + point.LayerID))
			if b == nil {
				layerBucket, err := tx.CreateBucket([]byte(prefix + point.LayerID))
				if err != nil {
					return fmt.Errorf("create bucket: %w", err)
				}
				b = layerBucket
			}
			bytes, err := json.Marshal(point)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(point.ID.String()), bytes); err != nil {
				return fmt.Errorf("put to bucket error: %w", err)
			}
			b = tx.Bucket([]byte(layerKeys))
			if b == nil {
				keysBucket, err := tx.CreateBucket([]byte(layerKeys))
				if err != nil {
					return fmt.Errorf("unable create layers bucket: %w", err)
				}
				if err := keysBucket.Put([]byte(prefix+point.LayerID), []byte{0x0}); err != nil {
					return fmt.Errorf("unable put to layers bucket: %w", err)
				}
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

func (db *DB) DeleteMany(_ context.Context, points []model.Point) error {
	var b *bolt.Bucket
	if err := db.sDB.DB.Batch(func(tx *bolt.Tx) error {
		for _, point := range points {
			b = tx.Bucket([]byte(prefix + point.LayerID))
			if b == nil {
				continue
			}
			if err := b.Delete([]byte(point.ID.String())); err != nil {
				return fmt.Errorf("unable delete: %w", err)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

func (db *DB) Delete(_ context.Context, point model.Point) error {
	var b *bolt.Bucket
	if err := db.sDB.DB.Update(func(tx *bolt.Tx) error {
		b = tx.Bucket([]byte(prefix + point.LayerID))
		if b == nil {
			return nil
		}

		return b.Delete([]byte(point.ID.String()))
	}); err != nil {
		return fmt.Errorf("update transaction error: %v", err)
	}

	return nil
}

func (db *DB) FindAll(_ context.Context, filter FilterFn) ([]model.Point, error) {
	var (
		keys   []string
		points []model.Point
	)
	tx, err := db.sDB.DB.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %v", err)
	}

	defer tx.Rollback()

	b := tx.Bucket([]byte(layerKeys))
	if b == nil {
		b, err = tx.CreateBucket([]byte(layerKeys))
		if err != nil {
			return nil, fmt.Errorf("can not create bucket %s: %w", layerKeys, err)
		}
	}

	c := b.Cursor()

	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, string(k))
	}

	for _, key := range keys {
		b := tx.Bucket([]byte(key))
		if b == nil {
			b, err = tx.CreateBucket([]byte(key))
			if err != nil {
				return nil, fmt.Errorf("can not create bucket %s: %w", key, err)
			}
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var p model.Point
			if err := json.Unmarshal(v, &p); err != nil {
				return nil, fmt.Errorf("point unmarshal error, %q", err)
			}
			points = append(points, p)
		}
	}

	filtered := points
	if filter != nil {
		filtered = points[:0]
		for _, x := range points {
			if filter(x) {
				filtered = append(filtered, x)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %v", err)
	}

	return filtered, nil
}

func (db *DB) CountByLayer(layerID string) (int, error) {
	var length int
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + layerID))
		if b == nil {
			length = 0
			return nil
		}
		stats := b.Stats()
		length = stats.KeyN
		return nil
	}); err != nil {
		return 0, fmt.Errorf("view transaction error: %v", err)
	}

	return length, nil
}

func (db *DB) FindByLayer(layerID string, filter FilterFn) ([]model.Point, error) {
	var list []model.Point
	if err := db.sDB.DB.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(prefix + layerID))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var point model.Point
			if err := json.Unmarshal(v, &point); err != nil {
				return fmt.Errorf("json unmarshal error, %q", err)
			}
			if filter == nil || filter(point) {
				list = append(list, point)
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("view transaction error: %v", err)
	}

	return list, nil
}
