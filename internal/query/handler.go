package query

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-nearby/nearby/internal/httputil"
	"github.com/go-nearby/nearby/internal/index"
	"github.com/go-nearby/nearby/internal/logging"
	"golang.org/x/sync/errgroup"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	LayerID string `json:"layer"`
	Queries []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"queries"`
}

type match struct {
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	CreatedAt time.Time   `json:"createdAt"`
	Extra     interface{} `json:"extra"`
}

type answer struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Found      bool    `json:"found"`
	SqDistance float64 `json:"sqDistance"`
	Distance   float64 `json:"distance"`
	Examined   int     `json:"examined"`
	Points     []match `json:"points"`
}

type response struct {
	LayerID string   `json:"layer"`
	Data    []answer `json:"data"`
}

func NewHandler(cfg *Config, searcher index.Searcher) (http.Handler, error) {
	return &handler{
		cfg:      cfg,
		searcher: searcher,
	}, nil
}

type handler struct {
	searcher index.Searcher
	cfg      *Config
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		logger.Debug(fmt.Sprintf(`{"error": "method %v is not allowed"}`, r.Method))
		_, _ = fmt.Fprintf(w, `{"error": "method %v is not allowed"}`, r.Method)
		return
	}

	if t := r.Header.Get("content-type"); len(t) < 16 || t[:16] != "application/json" {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		logger.Debug(fmt.Sprintf(`{"error": "%v"}`, "content-type is not application/json"))
		_, _ = fmt.Fprintf(w, `{"error": "%v"}`, "content-type is not application/json")
		return
	}

	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	if err := d.Decode(&req); err != nil {
		httputil.DecodeErr(ctx, w, err)
		return
	}

	if len(req.Queries) > h.cfg.MaxQueriesLen {
		httputil.RespBadRequest(ctx, w, `{"error": "queries is too large, max allowed len is %d"}`, h.cfg.MaxQueriesLen)
		return
	}

	answers := make([]answer, len(req.Queries))
	errGrp := errgroup.Group{}
	mtx := sync.Mutex{}
	for i, q := range req.Queries {
		i, q := i, q
		errGrp.Go(func() error {
			result, err := h.searcher.Nearest(ctx, req.LayerID, q.X, q.Y)
			if err != nil {
				return fmt.Errorf("query error: %v", err)
			}
			out := answer{
				X:        q.X,
				Y:        q.Y,
				Found:    len(result.Points) > 0,
				Examined: result.Examined,
				Points:   []match{},
			}
			if out.Found {
				out.SqDistance = result.SqDistance
				out.Distance = math.Sqrt(result.SqDistance)
				for _, p := range result.Points {
					out.Points = append(out.Points, match{
						X:         p.X(),
						Y:         p.Y(),
						CreatedAt: p.CreatedAt,
						Extra:     p.Extra,
					})
				}
			}
			mtx.Lock()
			answers[i] = out
			mtx.Unlock()
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "query processing error, %v"}`, err)
		return
	}
	resp := response{
		LayerID: req.LayerID,
		Data:    answers,
	}
	bytes, err := json.Marshal(resp)
	if err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "failed to encode output json %v"}`, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "%s", bytes)
}
