package knn

import (
	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/pkg/pqueue"
)

// Neighbor pairs a datum of the searched snapshot with its distance to the query.
type Neighbor[P geom.Point[P]] struct {
	Datum    *Datum[P]
	Distance float64
	// position in the dataset, the tie-breaker for equal distances
	index int
}

// Search returns the min(k, n) data closest to query, ascending by distance.
// Equal distances keep dataset order. k == 0 yields an empty result.
func Search[P geom.Point[P]](k int, query P, ds *Dataset[P]) ([]Neighbor[P], error) {
	if k < 0 {
		return nil, &KError{K: k, reason: "must not be negative"}
	}
	if err := ds.validateQuery(query); err != nil {
		return nil, err
	}
	return ds.scan(k, query, 0, ds.Len()), nil
}

// scan runs the bounded selection over data[from:to].
func (ds *Dataset[P]) scan(k int, query P, from, to int) []Neighbor[P] {
	if k == 0 || from >= to {
		return []Neighbor[P]{}
	}
	if n := to - from; k > n {
		k = n
	}
	pq := pqueue.New[int](pqueue.WithCap(uint(k)))
	for i := from; i < to; i++ {
		pq.Push(i, ds.data[i].Distance(query))
	}
	items := pq.PopAll()
	nn := make([]Neighbor[P], len(items))
	for i, item := range items {
		nn[i] = Neighbor[P]{Datum: &ds.data[item.Value], Distance: item.Priority, index: item.Value}
	}
	return nn
}
