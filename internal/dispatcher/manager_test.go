package dispatcher

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/knn/internal/knn"
	obsDb "github.com/go-sod/knn/internal/observation/database"
	"github.com/go-sod/knn/internal/observation/model"
)

type memSource struct {
	mtx       sync.Mutex
	data      map[uint64]model.Observation
	appendErr error
}

func newMemSource(in ...model.Observation) *memSource {
	s := &memSource{data: map[uint64]model.Observation{}}
	for _, o := range in {
		s.data[o.ID] = o
	}
	return s
}

func (s *memSource) FindAll(_ context.Context, filter obsDb.FilterFn) ([]model.Observation, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	var list []model.Observation
	for _, o := range s.data {
		if filter == nil || filter(o) {
			list = append(list, o)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (s *memSource) AppendMany(_ context.Context, in []model.Observation) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	for _, o := range in {
		s.data[o.ID] = o
	}
	return nil
}

func (s *memSource) Delete(_ context.Context, ids ...uint64) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for _, id := range ids {
		delete(s.data, id)
	}
	return nil
}

func (s *memSource) len() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.data)
}

func exampleObservations() []model.Observation {
	now := time.Now()
	return []model.Observation{
		model.NewObservation(1, "A", []float64{0, 0}, now),
		model.NewObservation(2, "A", []float64{1, 0}, now),
		model.NewObservation(3, "A", []float64{0, 1}, now),
		model.NewObservation(4, "B", []float64{10, 10}, now),
		model.NewObservation(5, "B", []float64{11, 10}, now),
		model.NewObservation(6, "B", []float64{10, 11}, now),
	}
}

func runManager(t *testing.T, src Source, opts ...Option) *manager {
	t.Helper()
	m, err := New(src, opts...)
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))
	t.Cleanup(m.Stop)
	return m
}

func TestNew_NilSource(t *testing.T) {
	t.Parallel()
	_, err := New(nil)
	assert.Error(t, err)
}

func TestManager_Predict(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		query    []float64
		k        int
		expected string
	}{
		{name: "near_a", query: []float64{0.5, 0.5}, k: 3, expected: "A"},
		{name: "near_b", query: []float64{10.2, 10.2}, k: 3, expected: "B"},
		{name: "whole_dataset_tie", query: []float64{5, 5}, k: 6, expected: "A"},
	}
	m := runManager(t, newMemSource(exampleObservations()...), WithShards(3))
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			p, err := m.Predict(context.Background(), test.k, test.query)
			require.NoError(t, err)
			assert.Equal(t, test.expected, p.Label())
			assert.Len(t, p.Neighbors, test.k)
		})
	}
}

func TestManager_Search(t *testing.T) {
	t.Parallel()
	m := runManager(t, newMemSource(exampleObservations()...))

	nn, err := m.Search(context.Background(), 3, []float64{0.5, 0.5})
	require.NoError(t, err)
	require.Len(t, nn, 3)
	for i, id := range []uint64{1, 2, 3} {
		assert.Equal(t, id, nn[i].Datum.ID)
		assert.InDelta(t, math.Sqrt(0.5), nn[i].Distance, 1e-12)
	}

	_, err = m.Search(context.Background(), -1, []float64{0.5, 0.5})
	assert.ErrorIs(t, err, knn.ErrInvalidK)

	_, err = m.Search(context.Background(), 1, []float64{0.5, math.NaN()})
	assert.ErrorIs(t, err, knn.ErrInvalidPoint)

	_, err = m.Search(context.Background(), 1, []float64{0.5, 0.5, 0.5})
	assert.ErrorIs(t, err, knn.ErrDimNotEqual)
}

func TestManager_Empty(t *testing.T) {
	t.Parallel()
	m := runManager(t, newMemSource())

	nn, err := m.Search(context.Background(), 3, []float64{1, 2})
	require.NoError(t, err)
	assert.Empty(t, nn)

	_, err = m.Predict(context.Background(), 3, []float64{1, 2})
	assert.ErrorIs(t, err, knn.ErrEmptyNeighborhood)
}

func TestManager_Import(t *testing.T) {
	t.Parallel()
	src := newMemSource(exampleObservations()...)
	m := runManager(t, src)
	ctx := context.Background()

	require.NoError(t, m.Import(ctx,
		model.NewObservation(7, "C", []float64{0.5, 0.5}, time.Now()),
		model.NewObservation(4, "C", []float64{0.4, 0.4}, time.Now()),
	))
	assert.Equal(t, 7, m.Len())
	assert.Equal(t, 7, src.len())

	nn, err := m.Search(ctx, 2, []float64{0.5, 0.5})
	require.NoError(t, err)
	require.Len(t, nn, 2)
	assert.Equal(t, uint64(7), nn[0].Datum.ID)
	assert.Equal(t, uint64(4), nn[1].Datum.ID)
	assert.Equal(t, "C", nn[1].Datum.Class)
}

func TestManager_ImportRejected(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		in          model.Observation
		appendErr   error
		expectedErr error
	}{
		{
			name:        "non_finite",
			in:          model.NewObservation(7, "C", []float64{math.Inf(1), 0}, time.Now()),
			expectedErr: knn.ErrInvalidPoint,
		},
		{
			name:        "dimensions",
			in:          model.NewObservation(7, "C", []float64{1, 2, 3}, time.Now()),
			expectedErr: knn.ErrDimNotEqual,
		},
		{
			name:        "source_failure",
			in:          model.NewObservation(7, "C", []float64{1, 2}, time.Now()),
			appendErr:   errors.New("disk full"),
			expectedErr: nil,
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			src := newMemSource(exampleObservations()...)
			src.appendErr = test.appendErr
			m := runManager(t, src)

			err := m.Import(context.Background(), test.in)
			require.Error(t, err)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
			}
			assert.Equal(t, 6, m.Len())
			assert.Equal(t, 6, src.len())
		})
	}
}

func TestManager_Reload(t *testing.T) {
	t.Parallel()
	src := newMemSource(exampleObservations()...)
	m := runManager(t, src)
	ctx := context.Background()

	before := m.snapshot.Load()
	require.NoError(t, src.Delete(ctx, 4, 5, 6))
	require.NoError(t, m.Reload(ctx))

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 6, before.Len(), "a loaded snapshot never changes")

	require.NoError(t, src.AppendMany(ctx, []model.Observation{
		model.NewObservation(8, "A", []float64{1, 2, 3}, time.Now()),
	}))
	assert.ErrorIs(t, m.Reload(ctx), knn.ErrDimNotEqual)
	assert.Equal(t, 3, m.Len())
}

func TestManager_ScheduledReload(t *testing.T) {
	t.Parallel()
	src := newMemSource(exampleObservations()...)
	m := runManager(t, src, WithReloadInterval(10*time.Millisecond))

	require.NoError(t, src.AppendMany(context.Background(), []model.Observation{
		model.NewObservation(7, "C", []float64{3, 3}, time.Now()),
	}))
	assert.Eventually(t, func() bool {
		return m.Len() == 7
	}, time.Second, 5*time.Millisecond)
}

func TestManager_Stop(t *testing.T) {
	t.Parallel()
	m, err := New(newMemSource(exampleObservations()...))
	require.NoError(t, err)
	require.NoError(t, m.Run(context.Background()))
	m.Stop()
	m.Stop()

	_, err = m.Search(context.Background(), 1, []float64{0, 0})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.Predict(context.Background(), 1, []float64{0, 0})
	assert.ErrorIs(t, err, ErrClosed)
	err = m.Import(context.Background(), model.NewObservation(7, "C", []float64{0, 0}, time.Now()))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestManager_StopBeforeRun(t *testing.T) {
	t.Parallel()
	m, err := New(newMemSource(exampleObservations()...), WithReloadInterval(time.Millisecond))
	require.NoError(t, err)
	m.Stop()

	err = m.Run(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, m.cancel)
	assert.Nil(t, m.done)
	assert.Equal(t, 0, m.Len())
	m.Stop()
}
