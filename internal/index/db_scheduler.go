package index

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-nearby/nearby/internal/logging"
	"github.com/go-nearby/nearby/internal/point/model"
)

// Scheduler options
type dbSchedulerConfig struct {
	maxItemsStored int
	maxStorageTime time.Duration
	rebuildDBTime  time.Duration
}

func newDBScheduler(config dbSchedulerConfig) *dbScheduler {
	return &dbScheduler{opts: config}
}

// The scheduler is responsible for deleting old points from the DB.
// It can maintain the required amount of data in the DB or delete old
// points depending on the configuration.
type dbScheduler struct {
	opts dbSchedulerConfig
}

// processOutdatedPoints retrieves all points for the specified layer,
// filters, leaving the outdated ones, and performs bulk deletion.
func (s *dbScheduler) processOutdatedPoints(
	layerID string,
	fetchFn fetchPointsByLayerFn,
	deleteFn deletePointsFn,
) error {
	points, err := fetchFn(layerID, func(point model.Point) bool {
		// only indexed points with a creation date older than specified in the settings
		return point.Status == model.StatusIndexed && time.Since(point.CreatedAt) > s.opts.maxStorageTime
	})
	if err != nil {
		return fmt.Errorf("unable find points by layer %s: %v", layerID, err)
	}

	if err := deleteFn(context.Background(), points); err != nil {
		return fmt.Errorf("unable delete outdated points layer %s: %v", layerID, err)
	}
	return nil
}

// processOverSizePoints retrieves all points for the specified layer,
// sorts by date added, and deletes the oldest ones.
func (s *dbScheduler) processOverSizePoints(
	layerID string,
	fetchFn fetchPointsByLayerFn,
	deleteFn deletePointsFn,
) error {
	points, err := fetchFn(layerID, func(point model.Point) bool {
		return point.Status == model.StatusIndexed // only the indexed values
	})
	if err != nil {
		return fmt.Errorf("unable find points by layer %s: %v", layerID, err)
	}

	if len(points) <= s.opts.maxItemsStored {
		return nil
	}

	// This can be a costly operation for large values.
	sort.Slice(points, func(i, j int) bool {
		return points[i].CreatedAt.UnixNano() < points[j].CreatedAt.UnixNano()
	})

	// Deleting a slice from the first n sorted points
	if err := deleteFn(context.Background(), points[:len(points)-s.opts.maxItemsStored]); err != nil {
		return fmt.Errorf("unable delete oversize points layer %s: %v", layerID, err)
	}
	return nil
}

// rebuildOutdated gets all layer keys and checks for outdated points
// for each layer
func (s *dbScheduler) rebuildOutdated(
	keysFn fetchKeysFn,
	fetchFn fetchPointsByLayerFn,
	deleteFn deletePointsFn,
) error {
	keys, err := keysFn()
	if err != nil {
		return fmt.Errorf("unable to fetch layer keys: %v", err)
	}
	for i := range keys {
		if err := s.processOutdatedPoints(keys[i], fetchFn, deleteFn); err != nil {
			return fmt.Errorf("unable process points: %v", err)
		}
	}
	return nil
}

// rebuildSize gets all layer keys and calls a check for the number of
// elements in the DB for each layer
func (s *dbScheduler) rebuildSize(
	keysFn fetchKeysFn,
	countLayerFn countByLayerFn,
	fetchFn fetchPointsByLayerFn,
	deleteFn deletePointsFn,
) error {
	keys, err := keysFn()
	if err != nil {
		return fmt.Errorf("unable fetch keys: %v", err)
	}
	for i := range keys {
		// getting the number of points for the layer
		length, err := countLayerFn(keys[i])
		if err != nil {
			return fmt.Errorf("unable count by layer %s: %v", keys[i], err)
		}
		if length > s.opts.maxItemsStored {
			if err := s.processOverSizePoints(keys[i], fetchFn, deleteFn); err != nil {
				return fmt.Errorf("unable process points: %v", err)
			}
		}
	}

	return nil
}

// Scheduler for running data cleanup functions in the DB
func (s *dbScheduler) schedule(
	ctx context.Context,
	keysFn fetchKeysFn,
	countLayerFn countByLayerFn,
	fetchFn fetchPointsByLayerFn,
	deleteFn deletePointsFn,
) {
	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(s.opts.rebuildDBTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if s.opts.maxItemsStored > 0 {
				if err := s.rebuildSize(keysFn, countLayerFn, fetchFn, deleteFn); err != nil {
					logger.Errorf("unable db rebuild size: %v", err)
				}
			}
			if s.opts.maxStorageTime > 0 {
				if err := s.rebuildOutdated(keysFn, fetchFn, deleteFn); err != nil {
					logger.Errorf("unable db rebuild outdated: %v", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
