package knn

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/pkg/rworker"
)

// SearchParallel splits the dataset into shards, selects the local top-k of
// every shard concurrently and merges them. The result equals Search for
// any shard count.
func SearchParallel[P geom.Point[P]](ctx context.Context, k int, query P, ds *Dataset[P], shards int) ([]Neighbor[P], error) {
	if k < 0 {
		return nil, &KError{K: k, reason: "must not be negative"}
	}
	if err := ds.validateQuery(query); err != nil {
		return nil, err
	}
	n := ds.Len()
	if shards > n {
		shards = n
	}
	if shards <= 1 || k == 0 {
		return ds.scan(k, query, 0, n), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search canceled: %w", err)
	}

	var (
		wg        sync.WaitGroup
		size      = (n + shards - 1) / shards
		results   = make([][]Neighbor[P], shards)
		rate      = make(chan struct{}, runtime.GOMAXPROCS(0))
		errCh     = make(chan error, 1)
		shardJobs = 0
	)
	for s := 0; s < shards; s++ {
		from, to := s*size, (s+1)*size
		if to > n {
			to = n
		}
		if from >= to {
			break
		}
		s := s
		shardJobs++
		rworker.Job(&wg, func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[s] = ds.scan(k, query, from, to)
			return nil
		}, rate, errCh)
	}
	wg.Wait()

	select {
	case err := <-errCh:
		return nil, fmt.Errorf("search canceled: %w", err)
	default:
	}
	return merge(k, results[:shardJobs]), nil
}

// merge is a k-way merge of ranked shard results.
func merge[P geom.Point[P]](k int, shards [][]Neighbor[P]) []Neighbor[P] {
	total := 0
	for i := range shards {
		total += len(shards[i])
	}
	if k > total {
		k = total
	}
	out := make([]Neighbor[P], 0, k)
	heads := make([]int, len(shards))
	for len(out) < k {
		best := -1
		for s := range shards {
			if heads[s] >= len(shards[s]) {
				continue
			}
			if best < 0 || before(shards[s][heads[s]], shards[best][heads[best]]) {
				best = s
			}
		}
		out = append(out, shards[best][heads[best]])
		heads[best]++
	}
	return out
}

// before ranks by distance, then dataset position; NaN goes last.
func before[P geom.Point[P]](a, b Neighbor[P]) bool {
	aNaN, bNaN := math.IsNaN(a.Distance), math.IsNaN(b.Distance)
	switch {
	case aNaN && bNaN:
		return a.index < b.index
	case aNaN:
		return false
	case bNaN:
		return true
	}
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.index < b.index
}
