package knn

import (
	"errors"
	"fmt"

	"github.com/go-sod/knn/internal/geom"
)

var (
	ErrInvalidPoint      = geom.ErrInvalidPoint
	ErrDimNotEqual       = geom.ErrDimNotEqual
	ErrMetricMismatch    = geom.ErrMetricMismatch
	ErrInvalidK          = errors.New("invalid k")
	ErrEmptyNeighborhood = errors.New("no neighbors to vote")
	errEmptyDataset      = fmt.Errorf("%w: dataset is empty", ErrEmptyNeighborhood)
)

// PointError reports the point that failed validation.
type PointError struct {
	// ID of the offending datum, zero for a query point.
	ID     uint64
	Query  bool
	Coords []float64
	cause  error
}

func (e *PointError) Error() string {
	if e.Query {
		return fmt.Sprintf("query point %v: %v", e.Coords, e.cause)
	}
	return fmt.Sprintf("datum %d point %v: %v", e.ID, e.Coords, e.cause)
}

func (e *PointError) Unwrap() error { return e.cause }

type KError struct {
	K      int
	reason string
}

func (e *KError) Error() string {
	return fmt.Sprintf("k=%d: %s", e.K, e.reason)
}

func (e *KError) Unwrap() error { return ErrInvalidK }
