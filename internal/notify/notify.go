package notify

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-nearby/nearby/internal/byteutil"
	"github.com/go-nearby/nearby/internal/database"
	"github.com/go-nearby/nearby/internal/httputil"
	"github.com/go-nearby/nearby/internal/logging"
	notifyDb "github.com/go-nearby/nearby/internal/notify/database"
	"github.com/go-nearby/nearby/internal/notify/model"
	pointModel "github.com/go-nearby/nearby/internal/point/model"
	"github.com/go-nearby/nearby/pkg/rworker"
)

type ProvideFn = func(chan<- error) (Manager, error)

const UserAgent = "NEARBY/0.1"

const defaultRequestTimeout = 30 * time.Second

type Options struct {
	allowNotify          bool
	maxConcurrentRequest int
	requestTimeout       time.Duration
	notifyInterval       time.Duration
	targets              Targets
}

type Option func(*manager)

func WithAllowNotify(v bool) Option {
	return func(o *manager) {
		o.opts.allowNotify = v
	}
}

func WithMaxConcurrentRequest(n int) Option {
	return func(o *manager) {
		o.opts.maxConcurrentRequest = n
	}
}

func WithInterval(t time.Duration) Option {
	return func(o *manager) {
		o.opts.notifyInterval = t
	}
}

func WithTargets(m Targets) Option {
	return func(o *manager) {
		o.opts.targets = m
	}
}

type data struct {
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	CreatedAt time.Time   `json:"createdAt"`
	Extra     interface{} `json:"extra"`
}

type request struct {
	LayerID string `json:"layerId"`
	Data    []data `json:"data"`
}

func New(db *database.DB, shutdownCh chan<- error, opts ...Option) (*manager, error) {
	m := &manager{
		notifyDb:   notifyDb.New(db),
		shutdownCh: shutdownCh,
		clients:    map[string]*http.Client{},
		buffers:    map[string][]pointModel.Point{},
		opts:       Options{allowNotify: true, requestTimeout: defaultRequestTimeout},
	}
	for _, f := range opts {
		f(m)
	}
	for _, target := range m.opts.targets {
		if _, ok := m.clients[target.LayerID]; !ok {
			client, err := httputil.NewClientFromConfig(target.HTTPConfig, true)
			if err != nil {
				return nil, fmt.Errorf("unable create client for layer %s: %v", target.LayerID, err)
			}
			m.clients[target.LayerID] = client
		}
	}
	return m, nil
}

type Notifier interface {
	Notify(points ...pointModel.Point)
}

type Manager interface {
	Notifier
	Run(context.Context) error
	Stop()
}

// The manager buffers freshly indexed points per layer and posts them
// to the configured targets on every tick. Undelivered buffers are
// persisted on shutdown and reloaded on the next Run.
type manager struct {
	mtx        sync.RWMutex
	opts       Options
	notifyDb   *notifyDb.DB
	shutdownCh chan<- error
	clients    map[string]*http.Client
	buffers    map[string][]pointModel.Point
	cancel     func()
}

func (m *manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	go m.notifier(ctx)
	if err := m.initialize(ctx); err != nil {
		return fmt.Errorf("can not start notify manager: %v", err)
	}
	return nil
}

func (m *manager) Stop() {
	m.cancel()
}

func (m *manager) Notify(points ...pointModel.Point) {
	if !m.opts.allowNotify {
		return
	}
	m.mtx.Lock()
	for i := range points {
		if _, ok := m.buffers[points[i].LayerID]; !ok {
			m.buffers[points[i].LayerID] = []pointModel.Point{}
		}
		m.buffers[points[i].LayerID] = append(m.buffers[points[i].LayerID], points[i])
	}
	m.mtx.Unlock()
}

func (m *manager) initialize(ctx context.Context) error {
	logger := logging.FromContext(ctx)
	notifications, err := m.notifyDb.FindAll(ctx, nil)
	if err != nil {
		logger.Errorf("Error with fetching data from db, %v", err)
	}
	for i := range notifications {
		m.Notify(notifications[i].Points...)
		if err := m.notifyDb.Delete(context.Background(), notifications[i]); err != nil {
			return fmt.Errorf("unable delete notification on initialize: %v", err)
		}
	}
	return nil
}

func (m *manager) shutdown() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	for layerID, points := range m.buffers {
		if len(points) == 0 {
			continue
		}
		notification := model.NewNotification(layerID, points)
		if err := m.notifyDb.Store(context.Background(), notification); err != nil {
			return fmt.Errorf("notify shutdown: unable store notification: %v", err)
		}
	}
	return nil
}

type makeRequestFn func() request

func (m *manager) notifier(ctx context.Context) {
	logger := logging.FromContext(ctx)
	errCh := make(chan error, 1)
	rateCh := make(chan struct{}, m.opts.maxConcurrentRequest)
	defer close(errCh)
	defer close(rateCh)
	go func() {
		for err := range errCh {
			logger.Errorf("notify error: %v", err)
		}
	}()
	defer func() {
		m.shutdownCh <- m.shutdown()
	}()
	wg := sync.WaitGroup{}
	ticker := time.NewTicker(m.opts.notifyInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		OuterLoop:
			for _, target := range m.opts.targets {
				target := target
				m.mtx.RLock()
				points := m.buffers[target.LayerID]
				m.mtx.RUnlock()
				if len(points) == 0 {
					continue OuterLoop
				}
				rworker.Job(&wg, func() error {
					notification := model.NewNotification(target.LayerID, points)
					if err := m.notifyDb.Store(context.Background(), notification); err != nil {
						return fmt.Errorf("unable store notification: %v", err)
					}
					if err := m.do(context.Background(), target, func() request {
						items := make([]data, len(points))
						for i := range points {
							items[i] = data{
								X:         points[i].X(),
								Y:         points[i].Y(),
								CreatedAt: points[i].CreatedAt,
								Extra:     points[i].Extra,
							}
						}
						return request{
							LayerID: target.LayerID,
							Data:    items,
						}
					}); err != nil {
						return fmt.Errorf("notify do request error: %v", err)
					}
					if err := m.notifyDb.Delete(context.Background(), notification); err != nil {
						return fmt.Errorf("unable delete notification: %v", err)
					}
					m.mtx.Lock()
					m.buffers[target.LayerID] = m.buffers[target.LayerID][:0]
					m.mtx.Unlock()
					return nil
				}, rateCh, errCh)
			}
			wg.Wait()
		case <-ctx.Done():
			return
		}
	}
}

func (m *manager) do(ctx context.Context, target Target, fn makeRequestFn) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.requestTimeout)
	defer cancel()

	buf := byteutil.GetBytesBuf()
	defer func() {
		buf.Reset()
		byteutil.PutBytesBuf(buf)
	}()
	if err := json.NewEncoder(buf).Encode(fn()); err != nil {
		return fmt.Errorf("unable encode json data: %w", err)
	}

	link, err := url.Parse(target.URL)
	if err != nil {
		return fmt.Errorf("url parsing error: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", link.String(), buf)
	if err != nil {
		return fmt.Errorf("creating request error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Add("User-Agent", UserAgent)
	req.Header.Add("Accept-Encoding", "gzip")
	client, ok := m.clients[target.LayerID]
	if !ok {
		return fmt.Errorf("client for layer %s not defined", target.LayerID)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request error: %w", err)
	}

	defer resp.Body.Close()

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return fmt.Errorf("unable create gzip.NewReader: %w", err)
		}
		defer reader.Close()
	default:
		reader = resp.Body
	}

	if _, err := ioutil.ReadAll(reader); err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("response was not 200 OK: %s", resp.Status)
	}
	return nil
}
