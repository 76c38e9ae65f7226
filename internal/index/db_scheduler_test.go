package index

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-nearby/nearby/internal/geom"
	pointDb "github.com/go-nearby/nearby/internal/point/database"
	"github.com/go-nearby/nearby/internal/point/model"
)

func indexedPoint(layerID string, createdAt time.Time) model.Point {
	p := model.NewPoint(layerID, geom.Point{X: 1, Y: 1}, createdAt, "test")
	p.Status = model.StatusIndexed
	return p
}

func TestProcessOverSizePoints(t *testing.T) {
	tests := []struct {
		name           string
		maxItemsStored int
		expectedErr    error
		expectedLen    int
		batch          []model.Point
	}{
		{
			name:           "positive_process_over_size_points",
			maxItemsStored: 3,
			batch: []model.Point{
				indexedPoint("test-layer", time.Now()),
				indexedPoint("test-layer", time.Now()),
				indexedPoint("test-layer", time.Now()),
				indexedPoint("test-layer", time.Now()),
				indexedPoint("test-layer", time.Now()),
			},
			expectedLen: 2,
			expectedErr: nil,
		},
		{
			name:           "negative_process_over_size_points",
			maxItemsStored: 3,
			batch: []model.Point{
				indexedPoint("test-layer", time.Now()),
				indexedPoint("test-layer", time.Now()),
				indexedPoint("test-layer", time.Now()),
				indexedPoint("test-layer", time.Now()),
				indexedPoint("test-layer", time.Now()),
			},
			expectedLen: 2,
			expectedErr: errors.New("test error"),
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var deletedLen int
			scheduler := newDBScheduler(dbSchedulerConfig{maxItemsStored: test.maxItemsStored})
			err := scheduler.processOverSizePoints(
				"test-layer",
				func(s string, fn pointDb.FilterFn) ([]model.Point, error) {
					return test.batch, test.expectedErr
				},
				func(ctx context.Context, points []model.Point) error {
					deletedLen = len(points)
					return test.expectedErr
				},
			)
			if test.expectedErr != nil && err == nil {
				t.Errorf(
					"calling the processOverSizePoints method, err got: %v, expected: %v",
					err,
					test.expectedErr,
				)
			}
			if err == nil && deletedLen != test.expectedLen {
				t.Errorf(
					"calling the processOverSizePoints method, the length of deleted data got: %v, expected: %v",
					deletedLen,
					test.expectedLen,
				)
			}
		})
	}
}

func TestProcessOutdatedPoints(t *testing.T) {
	tests := []struct {
		name           string
		maxStorageTime time.Duration
		batch          []model.Point
		expectedLen    int
	}{
		{
			name:           "deletes_only_outdated",
			maxStorageTime: time.Minute,
			batch: []model.Point{
				indexedPoint("test-layer", time.Now().Add(-2*time.Minute)),
				indexedPoint("test-layer", time.Now().Add(-3*time.Minute)),
				indexedPoint("test-layer", time.Now()),
			},
			expectedLen: 2,
		},
		{
			name:           "keeps_new_status",
			maxStorageTime: time.Minute,
			batch: []model.Point{
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now().Add(-2*time.Minute), "test"),
				indexedPoint("test-layer", time.Now().Add(-2*time.Minute)),
			},
			expectedLen: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var deletedLen int
			scheduler := newDBScheduler(dbSchedulerConfig{maxStorageTime: test.maxStorageTime})
			err := scheduler.processOutdatedPoints(
				"test-layer",
				func(s string, fn pointDb.FilterFn) ([]model.Point, error) {
					var filtered []model.Point
					for _, p := range test.batch {
						if fn(p) {
							filtered = append(filtered, p)
						}
					}
					return filtered, nil
				},
				func(ctx context.Context, points []model.Point) error {
					deletedLen = len(points)
					return nil
				},
			)
			if err != nil {
				t.Fatalf("calling the processOutdatedPoints method, err got: %v, expected: nil", err)
			}
			if deletedLen != test.expectedLen {
				t.Errorf(
					"calling the processOutdatedPoints method, the length of deleted data got: %v, expected: %v",
					deletedLen,
					test.expectedLen,
				)
			}
		})
	}
}
