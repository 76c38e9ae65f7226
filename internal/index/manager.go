package index

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-nearby/nearby/internal/database"
	"github.com/go-nearby/nearby/internal/logging"
	"github.com/go-nearby/nearby/internal/notify"
	pointDb "github.com/go-nearby/nearby/internal/point/database"
	"github.com/go-nearby/nearby/internal/point/model"
	"github.com/go-nearby/nearby/pkg/iqueue"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
)

// Contract for returning the Manager instance
type ProvideFn func(notify.Manager, chan<- error) (Manager, error)

// The interface defines the behavior of the background indexing service.
type Manager interface {
	CollectSearcher
	// Start method of the service
	Run(context.Context) error
	// Method for stopping the service
	Stop()
}

// Collector defines the behavior of the service for data intake
type Collector interface {
	// The method accepts points from outside and writes them to the queue
	Collect(in ...model.Point) error
}

// The interface defines the behavior of the service only for queries
type Searcher interface {
	// The method finds the closest indexed points to the query location
	Nearest(ctx context.Context, layerID string, x, y float64) (*Result, error)
}

// Aggregation interface for Collector and Searcher interfaces
type CollectSearcher interface {
	Collector
	Searcher
}

// Result of a nearest point query. Points holds every indexed point at
// the winning squared distance, Examined counts the candidates the
// search visited.
type Result struct {
	SqDistance float64        `json:"sqDistance"`
	Points     []*model.Point `json:"points"`
	Examined   int            `json:"examined"`
}

// Abstractions for getting dependencies
type (
	// function for getting all points
	fetchPointsFn func(context.Context, pointDb.FilterFn) ([]model.Point, error)
	// function for getting points based on the layer id
	fetchPointsByLayerFn func(string, pointDb.FilterFn) ([]model.Point, error)
	// function for deleting a point
	deletePointFn func(context.Context, model.Point) error
	// function for deleting multiple points
	deletePointsFn func(context.Context, []model.Point) error
	// function to add sets of points
	appendPointsFn func(context.Context, []model.Point) error
	// function for getting all layer IDs
	fetchKeysFn func() ([]string, error)
	// number of points by layer id
	countByLayerFn func(string) (int, error)
)

// General structure for aggregation of dependency pulling functions
type pullDependencies struct {
	fetchPoints        fetchPointsFn
	fetchPointsByLayer fetchPointsByLayerFn
	deletePoint        deletePointFn
	deletePoints       deletePointsFn
	appendPoints       appendPointsFn
	fetchKeys          fetchKeysFn
	countByLayer       countByLayerFn
}

type Options struct {
	maxItemsStored int
	maxStorageTime time.Duration
	dbFlushTime    time.Duration
	dbFlushSize    int
	rebuildDBTime  time.Duration
	deps           pullDependencies
}

type Option func(*manager)

func WithDBFlushTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.dbFlushTime = t
	}
}

func WithDBFlushSize(n int) Option {
	return func(o *manager) {
		o.opts.dbFlushSize = n
	}
}

func WithRebuildDBTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.rebuildDBTime = t
	}
}

func WithMaxItemsStored(n int) Option {
	return func(o *manager) {
		o.opts.maxItemsStored = n
	}
}

func WithMaxStorageTime(t time.Duration) Option {
	return func(o *manager) {
		o.opts.maxStorageTime = t
	}
}

// New returns manager
func New(
	db *database.DB,
	specs *LayerSpecs,
	notifier notify.Manager,
	shutdownCh chan<- error,
	opts ...Option,
) (*manager, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier instance is not created")
	}

	if specs == nil {
		specs = NewLayerSpecs()
	}

	m := &manager{
		pointDB:    pointDb.New(db),
		specs:      specs,
		collectCh:  make(chan model.Point, 1),
		shutDownCh: shutdownCh,
		layers:     map[string]*layer{},
		queue:      map[string]*iqueue.Queue{},
		notifier:   notifier,
	}

	for _, f := range opts {
		f(m)
	}

	// structure containing functions for getting and adding points
	m.opts.deps = pullDependencies{
		fetchPoints:        m.pointDB.FindAll,
		fetchPointsByLayer: m.pointDB.FindByLayer,
		deletePoint:        m.pointDB.Delete,
		deletePoints:       m.pointDB.DeleteMany,
		appendPoints:       m.pointDB.AppendMany,
		fetchKeys:          m.pointDB.Keys,
		countByLayer:       m.pointDB.CountByLayer,
	}

	m.dbScheduler = newDBScheduler(dbSchedulerConfig{
		maxItemsStored: m.opts.maxItemsStored,
		maxStorageTime: m.opts.maxStorageTime,
		rebuildDBTime:  m.opts.rebuildDBTime,
	})

	m.dbTxExecutor = &dbTxExecutor{
		opts: dbTxExecutorOptions{
			dbFlushTime: m.opts.dbFlushTime,
			dbFlushSize: m.opts.dbFlushSize,
		},
		shutdownCh: shutdownCh,
	}

	return m, nil
}

// The queue management structure of the indexing service. Holds one
// quadtree layer per layer id, calls indexed point notification
// functions and keeps the persistent storage in sync.
type manager struct {
	mtx sync.RWMutex

	// Manager options
	opts Options
	// Main point storage
	pointDB *pointDb.DB
	// The notification manager
	notifier notify.Manager
	// The transaction manager in the store
	dbTxExecutor *dbTxExecutor
	// Managing data in storage
	dbScheduler *dbScheduler

	// Per-layer quadtree parameters
	specs *LayerSpecs
	// Created quadtree layers
	layers map[string]*layer

	// Queue for new points to be processed
	queue map[string]*iqueue.Queue
	// New points channel for processing
	collectCh chan model.Point
	// Channel to shutdown the application
	shutDownCh chan<- error

	closed bool

	// cancellation
	cancelNotifier func()
	cancel         func()
}

// The Run method starts the collection and query serving functions
func (m *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	c, cancel := context.WithCancel(context.Background())
	m.cancelNotifier = cancel

	go m.collector(ctx)
	go m.dbTxExecutor.flusher(ctx, m.opts.deps.appendPoints)
	go m.dbScheduler.schedule(
		ctx,
		m.opts.deps.fetchKeys,
		m.opts.deps.countByLayer,
		m.opts.deps.fetchPointsByLayer,
		m.opts.deps.deletePoints,
	)

	// Loading data from storage to memory
	if err := m.bulkLoad(ctx); err != nil {
		return fmt.Errorf("can not start index manager: %w", err)
	}
	// Launching the notification service
	if err := m.notifier.Run(c); err != nil {
		return fmt.Errorf("notify.Run: %w", err)
	}

	return nil
}

// Stop the manager
func (m *manager) Stop() {
	m.cancel()
}

// Nearest returns the points of the layer closest to the given location
func (m *manager) Nearest(ctx context.Context, layerID string, x, y float64) (*Result, error) {
	m.mtx.Lock()
	if m.closed {
		m.mtx.Unlock()
		return nil, fmt.Errorf("error to query, shutting down")
	}
	queryLayer, err := m.layerFor(layerID)
	if err != nil {
		m.mtx.Unlock()
		return nil, fmt.Errorf("can not create layer instance: %w", err)
	}
	m.mtx.Unlock()

	started := time.Now()
	found := queryLayer.Nearest(x, y)

	points := make([]*model.Point, len(found.Points))
	for i := range found.Points {
		points[i] = found.Points[i].(*model.Point)
	}

	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyLayer, layerID)},
		MQueries.M(1),
		MExamined.M(int64(found.Examined)),
		MQueryLatency.M(float64(time.Since(started).Nanoseconds())/1e6),
	)

	return &Result{
		SqDistance: found.SqDistance,
		Points:     points,
		Examined:   found.Examined,
	}, nil
}

// Collect adds points to the feed for saving to the queue
func (m *manager) Collect(data ...model.Point) error {
	m.mtx.RLock()
	if m.closed {
		m.mtx.RUnlock()
		return fmt.Errorf("error send to collect, shutting down")
	}
	for i := range data {
		m.collectCh <- data[i]
	}
	m.mtx.RUnlock()
	return nil
}

// layerFor returns the layer instance for the id, creating it from the
// configured spec on first use. Callers hold m.mtx.
func (m *manager) layerFor(layerID string) (*layer, error) {
	l, ok := m.layers[layerID]
	if ok {
		return l, nil
	}
	newL, err := newLayer(
		m.specs.For(layerID),
		withLayerMaxItems(m.opts.maxItemsStored),
		withLayerStorageTime(m.opts.maxStorageTime),
	)
	if err != nil {
		return nil, err
	}
	m.layers[layerID] = newL
	return newL, nil
}

// bulkLoad loading points from storage to memory
func (m *manager) bulkLoad(ctx context.Context) error {
	var newPoints []model.Point

	// getting all points that are in the storage
	data, err := m.opts.deps.fetchPoints(ctx, nil)
	if err != nil {
		return fmt.Errorf("error fetching all points: %w", err)
	}

	indexedPoints := map[string][]*model.Point{}
	for i := range data {
		dat := data[i]
		if _, ok := indexedPoints[dat.LayerID]; !ok {
			indexedPoints[dat.LayerID] = []*model.Point{}
		}
		// divide points by the statuses "indexed" and "new"
		if dat.IsIndexed() {
			indexedPoints[dat.LayerID] = append(indexedPoints[dat.LayerID], &data[i])
		}
		if dat.IsNew() {
			newPoints = append(newPoints, dat)
		}
	}

	for k, list := range indexedPoints {
		m.mtx.Lock()
		loadLayer, err := m.layerFor(k)
		m.mtx.Unlock()
		if err != nil {
			return fmt.Errorf("can not create layer instance: %w", err)
		}
		// bulk load points to the layer
		if err := loadLayer.Append(list...); err != nil {
			return fmt.Errorf("can not load layer %s: %w", k, err)
		}
	}
	// points with the "new" status are sent to the queue for processing
	for i := range newPoints {
		m.collectCh <- newPoints[i]
	}

	return nil
}

func (m *manager) process(ctx context.Context, point model.Point) error {
	m.mtx.Lock()
	pointLayer, err := m.layerFor(point.LayerID)
	m.mtx.Unlock()
	if err != nil {
		return fmt.Errorf("can not create layer instance: %w", err)
	}

	point.Status = model.StatusIndexed

	if err := pointLayer.Append(&point); err != nil {
		// outside the layer bounds, drop it from the storage as well
		if delErr := m.opts.deps.deletePoint(context.Background(), point); delErr != nil {
			return fmt.Errorf("unable index: %w", delErr)
		}
		return fmt.Errorf("unable index: %w", err)
	}

	m.dbTxExecutor.append(ctx, point, m.opts.deps.appendPoints)

	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyLayer, point.LayerID)},
		MPointsCollected.M(1),
	)

	m.alert(point)

	return nil
}

func (m *manager) alert(in ...model.Point) {
	m.mtx.RLock()
	if !m.closed {
		m.mtx.RUnlock()
		m.notifier.Notify(in...)
		return
	}
	m.mtx.RUnlock()
}

func (m *manager) shutdown(ctx context.Context, q *iqueue.Queue) error {
	for {
		front := q.Queue().Front()
		if front == nil {
			if !m.recvShutdown() {
				return fmt.Errorf("index shutdown: closed num receivers not equal created")
			}
			m.cancelNotifier()
			break
		}

		if err := m.process(ctx, front.Value.(model.Point)); err != nil {
			return fmt.Errorf("index shutdown: unable processed data: %w", err)
		}

		q.Queue().Remove(front)
	}
	return nil
}

func (m *manager) recvShutdown() bool {
	finishedNum, layersNum := 0, len(m.queue)
	for _, q := range m.queue {
		if q.Queue().Len() == 0 {
			finishedNum += 1
		}
	}

	return finishedNum == layersNum
}

func (m *manager) receive(ctx context.Context, q *iqueue.Queue) {
	logger := logging.FromContext(ctx)
	defer func() {
		m.shutDownCh <- m.shutdown(ctx, q)
	}()

	for {
		select {
		case recv := <-q.Receive():
			if err := m.process(ctx, recv.(model.Point)); err != nil {
				logger.Errorf("unable processed data: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

const workerMul = 2

func (m *manager) worker(ctx context.Context, queue *iqueue.Queue, num int) {
	for i := 0; i < num; i++ {
		go m.receive(ctx, queue)
	}
}

func (m *manager) collector(ctx context.Context) {
	defer close(m.collectCh)
	for {
		select {
		case in := <-m.collectCh:
			q, ok := m.queue[in.LayerID]
			if !ok {
				queue := iqueue.New()
				go queue.Loop()
				m.worker(ctx, queue, runtime.NumCPU()*workerMul)
				m.queue[in.LayerID] = queue
				q = queue
			}
			q.Send(in)
		case <-ctx.Done():
			m.mtx.Lock()
			m.closed = true
			m.mtx.Unlock()
			return
		}
	}
}
