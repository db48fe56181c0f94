package knn

import (
	"context"

	"github.com/go-sod/knn/internal/geom"
)

type Prediction[P geom.Point[P]] struct {
	Neighbors []Neighbor[P]
	Ballot    Ballot
	// Truncated is set when the dataset held fewer than k data.
	Truncated bool
}

func (p Prediction[P]) Label() string {
	return p.Ballot.Label
}

// Predict searches the k nearest neighbors of query and votes on their classes.
func Predict[P geom.Point[P]](k int, query P, ds *Dataset[P]) (Prediction[P], error) {
	return PredictParallel(context.Background(), k, query, ds, 1)
}

// PredictParallel is Predict over a sharded search, see SearchParallel.
func PredictParallel[P geom.Point[P]](ctx context.Context, k int, query P, ds *Dataset[P], shards int) (Prediction[P], error) {
	if k < 1 {
		return Prediction[P]{}, &KError{K: k, reason: "must be at least 1 to classify"}
	}
	if ds.Len() == 0 {
		return Prediction[P]{}, errEmptyDataset
	}
	nn, err := SearchParallel(ctx, k, query, ds, shards)
	if err != nil {
		return Prediction[P]{}, err
	}
	ballot, err := Vote(nn)
	if err != nil {
		return Prediction[P]{}, err
	}
	return Prediction[P]{Neighbors: nn, Ballot: ballot, Truncated: len(nn) < k}, nil
}
