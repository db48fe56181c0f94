// Package metrics defines the OpenCensus measures of the server and exposes
// them in the Prometheus format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"contrib.go.opencensus.io/exporter/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const (
	OperationSearch   = "search"
	OperationClassify = "classify"
	OperationImport   = "import"

	statusOK    = "ok"
	statusError = "error"
)

var (
	QueryLatencyMs = stats.Float64("knn/query_latency", "Latency of a single query", stats.UnitMilliseconds)
	Queries        = stats.Int64("knn/queries", "Number of queries", stats.UnitDimensionless)
	Votes          = stats.Int64("knn/votes", "Predicted labels", stats.UnitDimensionless)
	DatasetSize    = stats.Int64("knn/dataset_size", "Data in the served snapshot", stats.UnitDimensionless)

	KeyOperation = tag.MustNewKey("operation")
	KeyStatus    = tag.MustNewKey("status")
	KeyLabel     = tag.MustNewKey("label")
)

var Views = []*view.View{
	{
		Name:        "knn/query_latency",
		Measure:     QueryLatencyMs,
		Description: "Distribution of query latencies",
		TagKeys:     []tag.Key{KeyOperation},
		Aggregation: view.Distribution(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000),
	},
	{
		Name:        "knn/queries_total",
		Measure:     Queries,
		Description: "Count of queries by operation and status",
		TagKeys:     []tag.Key{KeyOperation, KeyStatus},
		Aggregation: view.Count(),
	},
	{
		Name:        "knn/votes_total",
		Measure:     Votes,
		Description: "Count of predictions by label",
		TagKeys:     []tag.Key{KeyLabel},
		Aggregation: view.Count(),
	},
	{
		Name:        "knn/dataset_size",
		Measure:     DatasetSize,
		Description: "Size of the served dataset snapshot",
		Aggregation: view.LastValue(),
	},
}

func Register() error {
	if err := view.Register(Views...); err != nil {
		return fmt.Errorf("register views: %w", err)
	}
	return nil
}

// NewExporter returns the handler serving the registered views.
func NewExporter(namespace string) (http.Handler, error) {
	pe, err := prometheus.NewExporter(prometheus.Options{Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	return pe, nil
}

func RecordQuery(ctx context.Context, operation string, started time.Time, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	ms := float64(time.Since(started)) / float64(time.Millisecond)
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyOperation, operation), tag.Upsert(KeyStatus, status)},
		QueryLatencyMs.M(ms), Queries.M(1),
	)
}

func RecordVote(ctx context.Context, label string) {
	_ = stats.RecordWithTags(ctx, []tag.Mutator{tag.Upsert(KeyLabel, label)}, Votes.M(1))
}

func RecordDatasetSize(ctx context.Context, n int) {
	stats.Record(ctx, DatasetSize.M(int64(n)))
}
