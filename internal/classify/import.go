package classify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-sod/knn/internal/dispatcher"
	"github.com/go-sod/knn/internal/httputil"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/metrics"
	"github.com/go-sod/knn/internal/observation/model"
)

type importRequest struct {
	Observations []model.Observation `json:"observations"`
}

type importResponse struct {
	RequestID string `json:"requestId"`
	Imported  int    `json:"imported"`
	Size      int    `json:"size"`
}

type importer interface {
	dispatcher.Importer
	Len() int
}

func NewImportHandler(cfg *Config, im importer) (http.Handler, error) {
	if im == nil {
		return nil, fmt.Errorf("importer instance is not created")
	}
	return &importHandler{cfg: cfg, importer: im}, nil
}

type importHandler struct {
	cfg      *Config
	importer importer
}

func (h *importHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()
	ctx, requestID := withRequestID(ctx, w)

	if !decode(ctx, w, r, &req) {
		return
	}
	if len(req.Observations) > h.cfg.MaxImportLen {
		httputil.RespBadRequest(ctx, w, `{"error": "observations is too large, max allowed len is %d"}`, h.cfg.MaxImportLen)
		return
	}

	now := time.Now().UTC()
	for i := range req.Observations {
		if req.Observations[i].CreatedAt.IsZero() {
			req.Observations[i].CreatedAt = now
		}
	}

	started := time.Now()
	err := h.importer.Import(ctx, req.Observations...)
	metrics.RecordQuery(ctx, metrics.OperationImport, started, err)
	if err != nil {
		respQueryErr(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Infof("imported %d observations", len(req.Observations))
	httputil.RespJSON(ctx, w, http.StatusCreated, importResponse{
		RequestID: requestID,
		Imported:  len(req.Observations),
		Size:      h.importer.Len(),
	})
}
