// Package classify serves the query and import endpoints over the
// dispatcher's dataset snapshot.
package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/go-sod/knn/internal/dispatcher"
	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/httputil"
	"github.com/go-sod/knn/internal/knn"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/metrics"
)

const maxBodyBytes = 64 * 1024 * 1024

type request struct {
	// K falls back to the configured default when omitted.
	K       *int        `json:"k"`
	Queries [][]float64 `json:"queries"`
}

type neighbor struct {
	ID       uint64  `json:"neighborId"`
	Class    string  `json:"class"`
	Distance float64 `json:"distance"`
}

type result struct {
	Query     []float64  `json:"queryPoint"`
	Neighbors []neighbor `json:"nearestNeighbors"`
	Class     string     `json:"class,omitempty"`
	Tie       bool       `json:"tie,omitempty"`
	Truncated bool       `json:"truncated,omitempty"`
}

type response struct {
	RequestID string   `json:"requestId"`
	K         int      `json:"k"`
	Results   []result `json:"results"`
}

type mode int

const (
	modeSearch mode = iota
	modeClassify
)

func (m mode) operation() string {
	if m == modeClassify {
		return metrics.OperationClassify
	}
	return metrics.OperationSearch
}

// NewClassifyHandler answers every query with its neighbors and the voted class.
func NewClassifyHandler(cfg *Config, searcher dispatcher.Searcher) (http.Handler, error) {
	return newHandler(cfg, searcher, modeClassify)
}

// NewSearchHandler answers every query with its neighbors only.
func NewSearchHandler(cfg *Config, searcher dispatcher.Searcher) (http.Handler, error) {
	return newHandler(cfg, searcher, modeSearch)
}

func newHandler(cfg *Config, searcher dispatcher.Searcher, m mode) (http.Handler, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher instance is not created")
	}
	return &handler{cfg: cfg, searcher: searcher, mode: m}, nil
}

type handler struct {
	cfg      *Config
	searcher dispatcher.Searcher
	mode     mode
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	ctx, requestID := withRequestID(ctx, w)

	if !decode(ctx, w, r, &req) {
		return
	}

	if len(req.Queries) == 0 {
		httputil.RespBadRequest(ctx, w, `{"error": "queries must not be empty"}`)
		return
	}
	if len(req.Queries) > h.cfg.MaxQueriesLen {
		httputil.RespBadRequest(ctx, w, `{"error": "queries is too large, max allowed len is %d"}`, h.cfg.MaxQueriesLen)
		return
	}

	k := h.cfg.DefaultK
	if req.K != nil {
		k = *req.K
	}

	results := make([]result, len(req.Queries))
	errGrp, grpCtx := errgroup.WithContext(ctx)
	for i := range req.Queries {
		i := i
		errGrp.Go(func() error {
			res, err := h.evaluate(grpCtx, k, req.Queries[i])
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		respQueryErr(ctx, w, err)
		return
	}

	httputil.RespJSON(ctx, w, http.StatusOK, response{RequestID: requestID, K: k, Results: results})
}

func (h *handler) evaluate(ctx context.Context, k int, query []float64) (result, error) {
	started := time.Now()
	res := result{Query: query}
	if h.mode == modeSearch {
		nn, err := h.searcher.Search(ctx, k, query)
		metrics.RecordQuery(ctx, h.mode.operation(), started, err)
		if err != nil {
			return result{}, err
		}
		res.Neighbors = neighbors(nn)
		return res, nil
	}

	p, err := h.searcher.Predict(ctx, k, query)
	metrics.RecordQuery(ctx, h.mode.operation(), started, err)
	if err != nil {
		return result{}, err
	}
	metrics.RecordVote(ctx, p.Label())
	res.Neighbors = neighbors(p.Neighbors)
	res.Class = p.Label()
	res.Tie = p.Ballot.Tie
	res.Truncated = p.Truncated
	return res, nil
}

func neighbors(nn []knn.Neighbor[geom.Vec]) []neighbor {
	list := make([]neighbor, len(nn))
	for i := range nn {
		list[i] = neighbor{ID: nn[i].Datum.ID, Class: nn[i].Datum.Class, Distance: nn[i].Distance}
	}
	return list
}

func withRequestID(ctx context.Context, w http.ResponseWriter) (context.Context, string) {
	id := uuid.New().String()
	w.Header().Set("X-Request-Id", id)
	logger := logging.FromContext(ctx).With("request_id", id)
	return logging.WithLogger(ctx, logger), id
}

// decode checks the method and content type and reads the JSON body into v.
// It writes the error response and returns false on failure.
func decode(ctx context.Context, w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		httputil.RespError(ctx, w, http.StatusMethodNotAllowed, `{"error": "method %v is not allowed"}`, r.Method)
		return false
	}
	if !httputil.IsJSON(r) {
		httputil.RespError(ctx, w, http.StatusUnsupportedMediaType, `{"error": "%v"}`, "content-type is not application/json")
		return false
	}

	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(v); err != nil {
		httputil.DecodeErr(ctx, w, err)
		return false
	}
	return true
}

// statusOf maps a query error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, knn.ErrInvalidPoint),
		errors.Is(err, knn.ErrInvalidK),
		errors.Is(err, knn.ErrDimNotEqual),
		errors.Is(err, knn.ErrMetricMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, knn.ErrEmptyNeighborhood):
		return http.StatusConflict
	case errors.Is(err, dispatcher.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respQueryErr(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		httputil.RespInternalError(ctx, w, `{"error": "query processing error, %v"}`, err)
		return
	}
	msg, _ := json.Marshal(err.Error())
	httputil.RespError(ctx, w, status, `{"error": %s}`, msg)
}
