package index

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-nearby/nearby/internal/geom"
	"github.com/go-nearby/nearby/internal/point/model"
)

func TestDbTxExecutorFlusher(t *testing.T) {
	tests := []struct {
		name           string
		expectedErr    error
		expectedLen    int
		expectedBufLen int
		waitingTime    time.Duration
		batch          []model.Point
	}{
		{
			name:        "positive_flusher",
			waitingTime: 1 * time.Second,
			batch: []model.Point{
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
			},
			expectedLen:    5,
			expectedBufLen: 0,
			expectedErr:    nil,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			shutdownCh := make(chan error, 1)
			txExecutor := &dbTxExecutor{
				opts:       dbTxExecutorOptions{dbFlushTime: 1 * time.Second},
				shutdownCh: shutdownCh,
			}
			length := 0
			bit := int64(0)
			ctx, cancel := context.WithCancel(context.TODO())
			txExecutor.buf = test.batch
			go txExecutor.flusher(ctx, func(ctx context.Context, points []model.Point) error {
				if atomic.LoadInt64(&bit) == 0 {
					length = len(points)
					atomic.StoreInt64(&bit, 1)
				}

				return nil
			})

			time.Sleep(test.waitingTime * 2)
			cancel()
			<-shutdownCh

			if length != test.expectedLen {
				t.Errorf(
					"calling the flusher method, the length of the inserted data got: %v, expected: %v",
					length,
					test.expectedLen,
				)
			}

			if len(txExecutor.buf) != test.expectedBufLen {
				t.Errorf(
					"calling the flusher method, the length of buffer got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedBufLen,
				)
			}
		})
	}
}

func TestDbTxExecutorAppend(t *testing.T) {
	tests := []struct {
		name        string
		items       []model.Point
		expectedLen int
	}{
		{
			name: "append_one",
			items: []model.Point{
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
			},
			expectedLen: 1,
		},
		{
			name: "append_two",
			items: []model.Point{
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
			},
			expectedLen: 2,
		},
		{
			name: "append_three",
			items: []model.Point{
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
			},
			expectedLen: 3,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			txExecutor := &dbTxExecutor{opts: dbTxExecutorOptions{dbFlushSize: 100}}
			for _, item := range test.items {
				txExecutor.append(context.Background(), item, func(ctx context.Context, points []model.Point) error {
					return nil
				})
			}

			if len(txExecutor.buf) != test.expectedLen {
				t.Errorf(
					"calling the append method, the length of the inserted data got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedLen,
				)
			}
		})
	}
}

func TestDbTxExecutorBulkAppend(t *testing.T) {
	tests := []struct {
		name           string
		expectedLen    int
		expectedBufLen int
		buf            []model.Point
	}{
		{
			name: "positive_bulk_append",
			buf: []model.Point{
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
			},
			expectedLen:    5,
			expectedBufLen: 0,
		},
		{
			name:           "empty_bulk_append",
			buf:            []model.Point{},
			expectedLen:    0,
			expectedBufLen: 0,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			txExecutor := &dbTxExecutor{}
			length := 0
			txExecutor.buf = test.buf
			txExecutor.bulkAppend(context.Background(), func(ctx context.Context, points []model.Point) error {
				length = len(points)
				return nil
			})

			if length != test.expectedLen {
				t.Errorf(
					"calling the bulkAppend method, the length of the inserted data got: %v, expected: %v",
					length,
					test.expectedLen,
				)
			}

			if len(txExecutor.buf) != test.expectedBufLen {
				t.Errorf(
					"calling the bulkAppend method, the length of buffer got: %v, expected: %v",
					len(txExecutor.buf),
					test.expectedBufLen,
				)
			}
		})
	}
}

func TestDbTxExecutorShutdown(t *testing.T) {
	tests := []struct {
		name           string
		expectedLen    int
		expectedBufLen int
		expectedErr    error
		buf            []model.Point
	}{
		{
			name: "positive_shutdown",
			buf: []model.Point{
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
				model.NewPoint("test-layer", geom.Point{X: 1, Y: 1}, time.Now(), "test"),
			},
			expectedLen:    5,
			expectedBufLen: 0,
			expectedErr:    nil,
		},
		{
			name:           "negative_shutdown",
			buf:            []model.Point{},
			expectedLen:    0,
			expectedBufLen: 0,
			expectedErr:    errors.New("test"),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			length := 0
			txExecutor := &dbTxExecutor{}
			txExecutor.buf = test.buf
			err := txExecutor.shutdown(func(ctx context.Context, points []model.Point) error {
				length = len(points)
				if test.expectedErr != nil {
					return test.expectedErr
				}
				return nil
			})

			if test.expectedErr == nil && err != nil {
				t.Errorf("calling the shutdown method, err got: %v, expected: %v", err, test.expectedErr)
			}

			if test.expectedErr != nil && err == nil {
				t.Errorf("calling the shutdown method, err got: %v, expected: %v", err, test.expectedErr)
			}

			if length != test.expectedLen {
				t.Errorf(
					"calling the shutdown method, the length of the inserted data got: %v, expected: %v",
					length,
					test.expectedLen,
				)
			}
		})
	}
}
