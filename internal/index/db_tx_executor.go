package index

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-nearby/nearby/internal/logging"
	"github.com/go-nearby/nearby/internal/point/model"
)

// dbTxExecutorOptions returns the structure with configuration options
type dbTxExecutorOptions struct {
	dbFlushSize int
	dbFlushTime time.Duration
}

// A structure that represents the database transaction execution service.
// Accumulates a queue of points and inserts it in bulk into persistent storage.
type dbTxExecutor struct {
	mtx sync.RWMutex

	opts dbTxExecutorOptions
	// Buffer that accumulates point data for adding
	buf        []model.Point
	shutdownCh chan<- error
}

// Urgently inserts all data from the buffer into persistent storage or returns an error
func (tx *dbTxExecutor) shutdown(appendFn appendPointsFn) error {
	tx.mtx.Lock()
	defer tx.mtx.Unlock()
	if err := appendFn(context.Background(), tx.buf); err != nil {
		return fmt.Errorf("txExecutor: append many operation failed: %v", err)
	}
	tx.buf = tx.buf[:0]
	return nil
}

// This is the main method for adding points. It adds data to the buffer.
// If the buffer is full, it calls the bulkAppend method
func (tx *dbTxExecutor) append(ctx context.Context, data model.Point, appendFn appendPointsFn) {
	tx.mtx.Lock()
	if tx.buf == nil {
		tx.buf = []model.Point{}
	}

	tx.buf = append(tx.buf, data)
	bufLen := len(tx.buf)
	tx.mtx.Unlock()

	if bufLen >= tx.opts.dbFlushSize {
		go tx.bulkAppend(ctx, appendFn)
	}
}

// Bulk adds points to persistent storage and clears the buffer
func (tx *dbTxExecutor) bulkAppend(ctx context.Context, appendFn appendPointsFn) {
	logger := logging.FromContext(ctx)

	tx.mtx.Lock()
	tmpBuf := make([]model.Point, len(tx.buf))
	copy(tmpBuf, tx.buf)
	tx.buf = tx.buf[:0]
	tx.mtx.Unlock()

	if err := appendFn(context.Background(), tmpBuf); err != nil {
		logger.Errorf("txExecutor: append many operation failed: %v", err)
	}
}

// Every n seconds, data from the buffer must be inserted into the database
func (tx *dbTxExecutor) flusher(ctx context.Context, appendFn appendPointsFn) {
	defer func() {
		tx.shutdownCh <- tx.shutdown(appendFn)
	}()
	ticker := time.NewTicker(tx.opts.dbFlushTime)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			tx.bulkAppend(ctx, appendFn)
		case <-ctx.Done():
			return
		}
	}
}
