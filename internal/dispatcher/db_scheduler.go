package dispatcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/observation/model"
)

// Scheduler options
type dbSchedulerConfig struct {
	deps           pullDependencies
	maxItemsStored int
	maxStorageTime time.Duration
	reloadInterval time.Duration
}

func newDBScheduler(config dbSchedulerConfig) *dbScheduler {
	return &dbScheduler{opts: config}
}

// The scheduler keeps the source within the retention limits and
// periodically refreshes the snapshot from it, which picks up
// observations written by other servers sharing the source.
type dbScheduler struct {
	opts dbSchedulerConfig
}

// processOutdated deletes the observations older than maxStorageTime.
func (s *dbScheduler) processOutdated(ctx context.Context, fetchFn fetchObservationsFn, deleteFn deleteObservationsFn) (int, error) {
	outdated, err := fetchFn(ctx, func(o model.Observation) bool {
		return !o.CreatedAt.IsZero() && time.Since(o.CreatedAt) > s.opts.maxStorageTime
	})
	if err != nil {
		return 0, fmt.Errorf("unable find outdated observations: %w", err)
	}
	if len(outdated) == 0 {
		return 0, nil
	}

	if err := deleteFn(ctx, ids(outdated)...); err != nil {
		return 0, fmt.Errorf("unable delete outdated observations: %w", err)
	}
	return len(outdated), nil
}

// processOverSize deletes the oldest observations above maxItemsStored.
func (s *dbScheduler) processOverSize(ctx context.Context, fetchFn fetchObservationsFn, deleteFn deleteObservationsFn) (int, error) {
	observations, err := fetchFn(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("unable find observations: %w", err)
	}
	if len(observations) <= s.opts.maxItemsStored {
		return 0, nil
	}

	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].CreatedAt.Before(observations[j].CreatedAt)
	})

	over := observations[:len(observations)-s.opts.maxItemsStored]
	if err := deleteFn(ctx, ids(over)...); err != nil {
		return 0, fmt.Errorf("unable delete oversize observations: %w", err)
	}
	return len(over), nil
}

// rebuild applies the configured retention limits and reports how many
// observations were removed.
func (s *dbScheduler) rebuild(ctx context.Context) (int, error) {
	var removed int
	if s.opts.maxStorageTime > 0 {
		n, err := s.processOutdated(ctx, s.opts.deps.fetchObservations, s.opts.deps.deleteObservations)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if s.opts.maxItemsStored > 0 {
		n, err := s.processOverSize(ctx, s.opts.deps.fetchObservations, s.opts.deps.deleteObservations)
		if err != nil {
			return removed, err
		}
		removed += n
	}
	return removed, nil
}

// schedule runs retention and reload every reloadInterval until ctx is done.
// A zero interval disables the scheduler.
func (s *dbScheduler) schedule(ctx context.Context, reloadFn func(context.Context) error) {
	if s.opts.reloadInterval <= 0 {
		<-ctx.Done()
		return
	}

	logger := logging.FromContext(ctx)
	ticker := time.NewTicker(s.opts.reloadInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			removed, err := s.rebuild(ctx)
			if err != nil {
				logger.Errorf("unable db rebuild: %v", err)
			}
			if removed > 0 {
				logger.Infof("retention removed %d observations", removed)
			}
			if err := reloadFn(ctx); err != nil {
				logger.Errorf("unable reload dataset: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func ids(observations []model.Observation) []uint64 {
	list := make([]uint64, len(observations))
	for i := range observations {
		list[i] = observations[i].ID
	}
	return list
}
