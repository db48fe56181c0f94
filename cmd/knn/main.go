// Command knn generates or loads a labeled dataset, finds the k nearest
// neighbors of a query point and prints them with the voted class.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/sethvargo/go-envconfig"
	"github.com/valyala/fastrand"

	"github.com/go-sod/knn/internal/fixture"
	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/knn"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/shutdown"
)

const (
	formatJSON = "json"
	formatDump = "dump"
)

var defaultClasses = []string{"A", "B", "C"}

type config struct {
	K           int      `env:"KNN_K,default=10"`
	DatasetSize int      `env:"KNN_DATASET_SIZE,default=1000"`
	Dimensions  int      `env:"KNN_DIMENSIONS,default=2"`
	Classes     []string `env:"KNN_CLASSES"`
	Shards      int      `env:"KNN_SHARDS,default=0"`
	Metric      string   `env:"KNN_METRIC,default=EUCLIDEAN"`
}

type options struct {
	config
	classes string
	query   string
	fixture string
	format  string
}

type neighbor struct {
	ID       uint64  `json:"neighborId"`
	Class    string  `json:"class"`
	Distance float64 `json:"distance"`
}

type output struct {
	QueryPoint       []float64  `json:"queryPoint"`
	NearestNeighbors []neighbor `json:"nearestNeighbors"`
	Class            string     `json:"class"`
}

func main() {
	ctx, done := shutdown.New()
	defer done()

	logger := logging.NewLoggerFromEnv()
	ctx = logging.WithLogger(ctx, logger)
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		done()
		logger.Fatal(err)
	}
}

func run(ctx context.Context, args []string, w io.Writer) error {
	opts, err := parseOptions(ctx, args)
	if err != nil {
		return err
	}

	var out output
	switch {
	case opts.fixture != "":
		out, err = fromFixture(ctx, opts)
	case opts.Dimensions == 2:
		out, err = fromRandom(ctx, opts, fixture.RandomPoint2, func(c []float64) (geom.Point2, error) {
			if len(c) != 2 {
				return geom.Point2{}, fmt.Errorf("%w: query has %d coordinates, want 2", geom.ErrDimNotEqual, len(c))
			}
			return geom.NewPoint2(c[0], c[1])
		})
	case opts.Dimensions == 3:
		out, err = fromRandom(ctx, opts, fixture.RandomPoint3, func(c []float64) (geom.Point3, error) {
			if len(c) != 3 {
				return geom.Point3{}, fmt.Errorf("%w: query has %d coordinates, want 3", geom.ErrDimNotEqual, len(c))
			}
			return geom.NewPoint3(c[0], c[1], c[2])
		})
	case opts.Dimensions > 0:
		var metric geom.Metric
		metric, err = geom.MetricFor(geom.MetricType(opts.Metric))
		if err != nil {
			return err
		}
		out, err = fromRandom(ctx, opts, fixture.RandomVec(opts.Dimensions, geom.WithMetric(metric)), func(c []float64) (geom.Vec, error) {
			return geom.NewVec(c, geom.WithMetric(metric))
		})
	default:
		return fmt.Errorf("dimensions must be positive, got %d", opts.Dimensions)
	}
	if err != nil {
		return err
	}

	return write(w, opts.format, out)
}

func parseOptions(ctx context.Context, args []string) (*options, error) {
	var opts options
	if err := envconfig.Process(ctx, &opts.config); err != nil {
		return nil, fmt.Errorf("error loading environment variables: %w", err)
	}

	if len(opts.Classes) == 0 {
		opts.Classes = defaultClasses
	}

	fs := flag.NewFlagSet("knn", flag.ContinueOnError)
	fs.IntVar(&opts.K, "k", opts.K, "number of neighbors")
	fs.IntVar(&opts.DatasetSize, "dataset-size", opts.DatasetSize, "number of random data")
	fs.IntVar(&opts.Dimensions, "dim", opts.Dimensions, "dimensions of random points")
	fs.StringVar(&opts.classes, "classes", strings.Join(opts.Classes, ","), "comma separated class labels")
	fs.IntVar(&opts.Shards, "shards", opts.Shards, "parallel search shards, 0 searches in one goroutine")
	fs.StringVar(&opts.Metric, "metric", opts.Metric, "distance of vectors above 3 dimensions and fixtures: EUCLIDEAN, CHEBYSHEV or MANHATTAN")
	fs.StringVar(&opts.query, "query", "", "comma separated query coordinates, random when empty")
	fs.StringVar(&opts.fixture, "fixture", "", "TOML file with observations and an optional query")
	fs.StringVar(&opts.format, "format", formatJSON, "output format: json or dump")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.Classes = splitClasses(opts.classes)
	if opts.format != formatJSON && opts.format != formatDump {
		return nil, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.DatasetSize < 0 {
		return nil, fmt.Errorf("dataset size must not be negative, got %d", opts.DatasetSize)
	}
	return &opts, nil
}

func splitClasses(s string) []string {
	var classes []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			classes = append(classes, c)
		}
	}
	return classes
}

func parseCoords(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	coords := make([]float64, len(parts))
	for i, p := range parts {
		c, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("query coordinate %d: %w", i, err)
		}
		coords[i] = c
	}
	return coords, nil
}

func fromRandom[P geom.Point[P]](ctx context.Context, opts *options, gen fixture.Generator[P], parse func([]float64) (P, error)) (output, error) {
	var r fastrand.RNG
	ds, err := knn.NewDataset(fixture.Random(&r, opts.DatasetSize, gen, fixture.WithClasses(opts.Classes...))...)
	if err != nil {
		return output{}, err
	}

	query := gen(&r)
	if opts.query != "" {
		coords, err := parseCoords(opts.query)
		if err != nil {
			return output{}, err
		}
		if query, err = parse(coords); err != nil {
			return output{}, err
		}
	}
	return predict(ctx, opts, query, ds)
}

func fromFixture(ctx context.Context, opts *options) (output, error) {
	metric, err := geom.MetricFor(geom.MetricType(opts.Metric))
	if err != nil {
		return output{}, err
	}
	f, err := os.Open(opts.fixture)
	if err != nil {
		return output{}, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	set, err := fixture.LoadTOML(f, geom.WithMetric(metric))
	if err != nil {
		return output{}, err
	}
	ds, err := knn.NewDataset(set.Data...)
	if err != nil {
		return output{}, err
	}

	var query geom.Vec
	switch {
	case opts.query != "":
		coords, err := parseCoords(opts.query)
		if err != nil {
			return output{}, err
		}
		if query, err = geom.NewVec(coords, geom.WithMetric(metric)); err != nil {
			return output{}, err
		}
	case set.Query != nil:
		query = *set.Query
	default:
		var r fastrand.RNG
		query = fixture.RandomVec(ds.Dimensions(), geom.WithMetric(metric))(&r)
	}
	return predict(ctx, opts, query, ds)
}

func predict[P geom.Point[P]](ctx context.Context, opts *options, query P, ds *knn.Dataset[P]) (output, error) {
	logging.FromContext(ctx).Debugf("searching %d nearest of %d data in %d shards", opts.K, ds.Len(), opts.Shards)

	p, err := knn.PredictParallel(ctx, opts.K, query, ds, opts.Shards)
	if err != nil {
		return output{}, err
	}
	out := output{
		QueryPoint:       query.Coords(),
		NearestNeighbors: make([]neighbor, len(p.Neighbors)),
		Class:            p.Label(),
	}
	for i, nb := range p.Neighbors {
		out.NearestNeighbors[i] = neighbor{ID: nb.Datum.ID, Class: nb.Datum.Class, Distance: nb.Distance}
	}
	return out, nil
}

func write(w io.Writer, format string, out output) error {
	if format == formatDump {
		spew.Fdump(w, out)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
