package geom

import (
	"fmt"
	"math"
)

var ErrDimNotEqual = fmt.Errorf("vectors dimension is not equal")

type Metric func(vec, vec1 []float64) (float64, error)

type MetricType string

const (
	MetricTypeEuclidean MetricType = "EUCLIDEAN"
	MetricTypeChebyshev MetricType = "CHEBYSHEV"
	MetricTypeManhattan MetricType = "MANHATTAN"
)

func MetricFor(t MetricType) (Metric, error) {
	switch t {
	case MetricTypeEuclidean:
		return EuclideanDistance, nil
	case MetricTypeChebyshev:
		return ChebyshevDistance, nil
	case MetricTypeManhattan:
		return ManhattanDistance, nil
	default:
		return nil, fmt.Errorf("unknown distance function: %s", t)
	}
}

func EuclideanDistance(vec, vec1 []float64) (float64, error) {
	if len(vec) != len(vec1) {
		return 0.0, ErrDimNotEqual
	}
	return euclidean(vec, vec1), nil
}

// Sums of squares outside (sqSmall, sqLarge) have lost range to underflow or
// are close to overflow, the distance is then recomputed on scaled differences.
const (
	sqSmall = 0x1p-500
	sqLarge = 0x1p500
)

// euclidean is sqrt(sum((a[i]-b[i])^2)) that stays finite for any finite
// input whose distance is representable. len(a) must equal len(b).
func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	if sum > sqSmall && sum < sqLarge {
		return math.Sqrt(sum)
	}

	var scale float64
	for i := range a {
		if diff := math.Abs(a[i] - b[i]); diff > scale {
			scale = diff
		}
	}
	if scale == 0 || math.IsInf(scale, 1) {
		return scale
	}
	sum = 0
	for i := range a {
		diff := (a[i] - b[i]) / scale
		sum += diff * diff
	}
	return scale * math.Sqrt(sum)
}

func ChebyshevDistance(vec, vec1 []float64) (float64, error) {
	var absDistance, distance float64
	if len(vec) != len(vec1) {
		return 0.0, ErrDimNotEqual
	}
	for i := 0; i < len(vec1); i++ {
		absDistance = math.Abs(vec[i] - vec1[i])
		if distance < absDistance {
			distance = absDistance
		}
	}
	return distance, nil
}

func ManhattanDistance(vec, vec1 []float64) (float64, error) {
	var distance float64
	if len(vec) != len(vec1) {
		return 0.0, ErrDimNotEqual
	}
	for i := 0; i < len(vec); i++ {
		distance += math.Abs(vec[i] - vec1[i])
	}
	return distance, nil
}
