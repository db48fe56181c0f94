package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/knn"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/metrics"
	obsDb "github.com/go-sod/knn/internal/observation/database"
	"github.com/go-sod/knn/internal/observation/model"
)

var ErrClosed = errors.New("dispatcher is shutting down")

// Source is the persistent side of the dataset.
type Source interface {
	FindAll(context.Context, obsDb.FilterFn) ([]model.Observation, error)
	AppendMany(context.Context, []model.Observation) error
	Delete(context.Context, ...uint64) error
}

// Manager serves queries against the latest dataset snapshot.
type Manager interface {
	Searcher
	Importer
	Run(context.Context) error
	Reload(context.Context) error
	Stop()
}

type Searcher interface {
	Search(ctx context.Context, k int, query []float64) ([]knn.Neighbor[geom.Vec], error)
	Predict(ctx context.Context, k int, query []float64) (knn.Prediction[geom.Vec], error)
	Len() int
}

type Importer interface {
	Import(ctx context.Context, in ...model.Observation) error
}

// Abstractions for getting dependencies
type (
	fetchObservationsFn  func(context.Context, obsDb.FilterFn) ([]model.Observation, error)
	appendObservationsFn func(context.Context, []model.Observation) error
	deleteObservationsFn func(context.Context, ...uint64) error
)

type pullDependencies struct {
	fetchObservations  fetchObservationsFn
	appendObservations appendObservationsFn
	deleteObservations deleteObservationsFn
}

type Options struct {
	shards         int
	metric         geom.Metric
	reloadInterval time.Duration
	maxItemsStored int
	maxStorageTime time.Duration
	deps           pullDependencies
}

type Option func(*manager)

func WithShards(n int) Option {
	return func(m *manager) {
		m.opts.shards = n
	}
}

func WithMetric(metric geom.Metric) Option {
	return func(m *manager) {
		m.opts.metric = metric
	}
}

func WithReloadInterval(t time.Duration) Option {
	return func(m *manager) {
		m.opts.reloadInterval = t
	}
}

func WithMaxItemsStored(n int) Option {
	return func(m *manager) {
		m.opts.maxItemsStored = n
	}
}

func WithMaxStorageTime(t time.Duration) Option {
	return func(m *manager) {
		m.opts.maxStorageTime = t
	}
}

func New(source Source, opts ...Option) (*manager, error) {
	if source == nil {
		return nil, fmt.Errorf("observation source is not created")
	}

	m := &manager{
		opts: Options{
			shards: 1,
			metric: geom.EuclideanDistance,
		},
	}
	for _, f := range opts {
		f(m)
	}
	if m.opts.shards < 1 {
		m.opts.shards = 1
	}

	m.opts.deps = pullDependencies{
		fetchObservations:  source.FindAll,
		appendObservations: source.AppendMany,
		deleteObservations: source.Delete,
	}
	m.scheduler = newDBScheduler(dbSchedulerConfig{
		deps:           m.opts.deps,
		maxItemsStored: m.opts.maxItemsStored,
		maxStorageTime: m.opts.maxStorageTime,
		reloadInterval: m.opts.reloadInterval,
	})

	empty, _ := knn.NewDataset[geom.Vec]()
	m.snapshot.Store(empty)

	return m, nil
}

// manager keeps the dataset as an immutable snapshot. Writers build a new
// dataset and swap the pointer; a query works on the snapshot it loaded
// when it started.
type manager struct {
	mtx sync.RWMutex
	// serializes snapshot writers
	writeMtx sync.Mutex

	opts      Options
	snapshot  atomic.Pointer[knn.Dataset[geom.Vec]]
	scheduler *dbScheduler

	closed bool
	cancel func()
	done   chan struct{}
}

// Run loads the dataset from the source and starts the reload scheduler.
// A stopped manager can not be started again.
func (m *manager) Run(ctx context.Context) error {
	if m.isClosed() {
		return fmt.Errorf("can not start dispatcher manager: %w", ErrClosed)
	}
	if err := m.Reload(ctx); err != nil {
		return fmt.Errorf("can not start dispatcher manager: %w", err)
	}

	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.closed {
		return fmt.Errorf("can not start dispatcher manager: %w", ErrClosed)
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel, m.done = cancel, done

	go func() {
		defer close(done)
		m.scheduler.schedule(ctx, m.Reload)
	}()

	return nil
}

// Stop rejects new calls and waits for the scheduler to exit.
func (m *manager) Stop() {
	m.mtx.Lock()
	if m.closed {
		m.mtx.Unlock()
		return
	}
	m.closed = true
	cancel, done := m.cancel, m.done
	m.mtx.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (m *manager) isClosed() bool {
	m.mtx.RLock()
	defer m.mtx.RUnlock()
	return m.closed
}

func (m *manager) Len() int {
	return m.snapshot.Load().Len()
}

// Reload replaces the snapshot with the full content of the source. A
// source that does not form a valid dataset leaves the snapshot as it was.
func (m *manager) Reload(ctx context.Context) error {
	m.writeMtx.Lock()
	defer m.writeMtx.Unlock()

	observations, err := m.opts.deps.fetchObservations(ctx, nil)
	if err != nil {
		return fmt.Errorf("error fetching all observations: %w", err)
	}

	data := make([]knn.Datum[geom.Vec], 0, len(observations))
	for i := range observations {
		d, err := observations[i].Datum(geom.WithMetric(m.opts.metric))
		if err != nil {
			return fmt.Errorf("unable load observation: %w", err)
		}
		data = append(data, d)
	}

	return m.store(ctx, data)
}

// Import validates the observations against the current snapshot, writes
// them to the source and publishes the extended snapshot. Observations
// with a known id replace the stored one.
func (m *manager) Import(ctx context.Context, in ...model.Observation) error {
	if m.isClosed() {
		return fmt.Errorf("error to import: %w", ErrClosed)
	}
	if len(in) == 0 {
		return nil
	}

	m.writeMtx.Lock()
	defer m.writeMtx.Unlock()

	byID := map[uint64]knn.Datum[geom.Vec]{}
	current := m.snapshot.Load()
	for i := 0; i < current.Len(); i++ {
		d := current.At(i)
		byID[d.ID] = *d
	}
	for i := range in {
		d, err := in[i].Datum(geom.WithMetric(m.opts.metric))
		if err != nil {
			return fmt.Errorf("unable import observations: %w", err)
		}
		byID[d.ID] = d
	}

	data := make([]knn.Datum[geom.Vec], 0, len(byID))
	for _, d := range byID {
		data = append(data, d)
	}
	sort.Slice(data, func(i, j int) bool {
		return data[i].ID < data[j].ID
	})

	ds, err := knn.NewDataset(data...)
	if err != nil {
		return fmt.Errorf("unable import observations: %w", err)
	}
	if err := m.opts.deps.appendObservations(ctx, in); err != nil {
		return fmt.Errorf("unable store observations: %w", err)
	}

	m.publish(ctx, ds)
	return nil
}

func (m *manager) store(ctx context.Context, data []knn.Datum[geom.Vec]) error {
	ds, err := knn.NewDataset(data...)
	if err != nil {
		return fmt.Errorf("unable build dataset: %w", err)
	}
	m.publish(ctx, ds)
	return nil
}

func (m *manager) publish(ctx context.Context, ds *knn.Dataset[geom.Vec]) {
	prev := m.snapshot.Swap(ds)
	if prev.Len() != ds.Len() {
		logging.FromContext(ctx).Infof("dataset snapshot replaced, size %d -> %d", prev.Len(), ds.Len())
	}
	metrics.RecordDatasetSize(ctx, ds.Len())
}

func (m *manager) query(coords []float64) (geom.Vec, *knn.Dataset[geom.Vec], error) {
	if m.isClosed() {
		return geom.Vec{}, nil, ErrClosed
	}
	q, err := geom.NewVec(coords, geom.WithMetric(m.opts.metric))
	if err != nil {
		return geom.Vec{}, nil, fmt.Errorf("query point: %w", err)
	}
	return q, m.snapshot.Load(), nil
}

// Search returns the k nearest stored observations of query.
func (m *manager) Search(ctx context.Context, k int, query []float64) ([]knn.Neighbor[geom.Vec], error) {
	q, ds, err := m.query(query)
	if err != nil {
		return nil, err
	}
	return knn.SearchParallel(ctx, k, q, ds, m.opts.shards)
}

// Predict classifies query by a majority vote of its k nearest observations.
func (m *manager) Predict(ctx context.Context, k int, query []float64) (knn.Prediction[geom.Vec], error) {
	q, ds, err := m.query(query)
	if err != nil {
		return knn.Prediction[geom.Vec]{}, err
	}
	return knn.PredictParallel(ctx, k, q, ds, m.opts.shards)
}
