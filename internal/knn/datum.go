package knn

import (
	"fmt"

	"github.com/go-sod/knn/internal/geom"
)

// Datum is one labeled observation. Class may be empty for plain search.
type Datum[P geom.Point[P]] struct {
	Point P      `json:"point"`
	ID    uint64 `json:"id"`
	Class string `json:"class,omitempty"`
}

func NewDatum[P geom.Point[P]](point P, id uint64, class string) Datum[P] {
	return Datum[P]{Point: point, ID: id, Class: class}
}

func (d Datum[P]) Distance(point P) float64 {
	return d.Point.Distance(point)
}

// metricAware is implemented by points that carry their own metric.
type metricAware[P any] interface {
	SameMetric(P) bool
}

// sameMetric reports whether a and b may be compared by distance.
func sameMetric[P geom.Point[P]](a, b P) bool {
	if m, ok := any(a).(metricAware[P]); ok {
		return m.SameMetric(b)
	}
	return true
}

// Dataset is a read-only snapshot. Replace it as a whole instead of
// mutating it; concurrent readers are safe.
type Dataset[P geom.Point[P]] struct {
	data []Datum[P]
	dim  int
}

// NewDataset validates every point and copies the slice so later changes
// by the caller do not leak into the snapshot.
func NewDataset[P geom.Point[P]](data ...Datum[P]) (*Dataset[P], error) {
	ds := &Dataset[P]{data: make([]Datum[P], len(data))}
	copy(ds.data, data)
	for i := range ds.data {
		p := ds.data[i].Point
		coords := p.Coords()
		if !geom.Finite(coords) {
			return nil, &PointError{ID: ds.data[i].ID, Coords: coords, cause: ErrInvalidPoint}
		}
		if i == 0 {
			ds.dim = p.Dimensions()
			continue
		}
		if p.Dimensions() != ds.dim {
			return nil, &PointError{
				ID:     ds.data[i].ID,
				Coords: coords,
				cause:  fmt.Errorf("%w: got %d, dataset has %d", ErrDimNotEqual, p.Dimensions(), ds.dim),
			}
		}
		if !sameMetric(ds.data[0].Point, p) {
			return nil, &PointError{ID: ds.data[i].ID, Coords: coords, cause: ErrMetricMismatch}
		}
	}
	return ds, nil
}

func (ds *Dataset[P]) Len() int {
	if ds == nil {
		return 0
	}
	return len(ds.data)
}

// Dimensions is zero for an empty dataset.
func (ds *Dataset[P]) Dimensions() int {
	if ds == nil {
		return 0
	}
	return ds.dim
}

// At returns a reference into the snapshot.
func (ds *Dataset[P]) At(i int) *Datum[P] {
	return &ds.data[i]
}

// Classes returns the distinct labels in first-seen order.
func (ds *Dataset[P]) Classes() []string {
	var (
		seen    = map[string]struct{}{}
		classes []string
	)
	for i := range ds.data {
		if _, ok := seen[ds.data[i].Class]; ok {
			continue
		}
		seen[ds.data[i].Class] = struct{}{}
		classes = append(classes, ds.data[i].Class)
	}
	return classes
}

func (ds *Dataset[P]) validateQuery(query P) error {
	coords := query.Coords()
	if !geom.Finite(coords) {
		return &PointError{Query: true, Coords: coords, cause: ErrInvalidPoint}
	}
	if ds.Len() > 0 && query.Dimensions() != ds.dim {
		return &PointError{
			Query:  true,
			Coords: coords,
			cause:  fmt.Errorf("%w: got %d, dataset has %d", ErrDimNotEqual, query.Dimensions(), ds.dim),
		}
	}
	if ds.Len() > 0 && !sameMetric(ds.data[0].Point, query) {
		return &PointError{Query: true, Coords: coords, cause: ErrMetricMismatch}
	}
	return nil
}
