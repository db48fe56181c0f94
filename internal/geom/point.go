package geom

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
)

var (
	ErrInvalidPoint   = errors.New("point has non-finite coordinates")
	ErrMetricMismatch = errors.New("points use different metrics")
)

// Point is anything that can measure the distance to another value of its own type.
// Search is generic over P Point[P], so points of different dimensionality never mix.
type Point[P any] interface {
	Distance(other P) float64
	Dimensions() int
	Coords() []float64
}

var (
	_ Point[Point2] = Point2{}
	_ Point[Point3] = Point3{}
	_ Point[Vec]    = Vec{}
)

// Finite reports whether none of the coordinates is NaN or infinite.
func Finite(coords []float64) bool {
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func invalidPoint(coords []float64) error {
	return fmt.Errorf("%w: %v", ErrInvalidPoint, coords)
}

type Point2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func NewPoint2(x, y float64) (Point2, error) {
	p := Point2{X: x, Y: y}
	if !Finite(p.Coords()) {
		return Point2{}, invalidPoint(p.Coords())
	}
	return p, nil
}

func (p Point2) Distance(b Point2) float64 {
	return math.Hypot(p.X-b.X, p.Y-b.Y)
}

func (p Point2) Dimensions() int { return 2 }

func (p Point2) Coords() []float64 { return []float64{p.X, p.Y} }

type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func NewPoint3(x, y, z float64) (Point3, error) {
	p := Point3{X: x, Y: y, Z: z}
	if !Finite(p.Coords()) {
		return Point3{}, invalidPoint(p.Coords())
	}
	return p, nil
}

func (p Point3) Distance(b Point3) float64 {
	a, c := [3]float64{p.X, p.Y, p.Z}, [3]float64{b.X, b.Y, b.Z}
	return euclidean(a[:], c[:])
}

func (p Point3) Dimensions() int { return 3 }

func (p Point3) Coords() []float64 { return []float64{p.X, p.Y, p.Z} }

type VecOption func(*Vec)

// WithMetric overrides the Euclidean default. Vecs only measure distances
// to Vecs of the same metric, see SameMetric.
func WithMetric(m Metric) VecOption {
	return func(v *Vec) {
		v.metric = m
	}
}

// Vec is a point whose dimensionality is only known at run time.
// The coordinates are copied on construction and never exposed for writing.
type Vec struct {
	coords []float64
	metric Metric
}

func NewVec(coords []float64, opts ...VecOption) (Vec, error) {
	if !Finite(coords) {
		return Vec{}, invalidPoint(coords)
	}
	v := Vec{coords: make([]float64, len(coords)), metric: EuclideanDistance}
	copy(v.coords, coords)
	for _, opt := range opts {
		opt(&v)
	}
	return v, nil
}

// Distance returns NaN when the dimensions or the metrics differ.
func (v Vec) Distance(b Vec) float64 {
	if !v.SameMetric(b) {
		return math.NaN()
	}
	d, err := v.metricFn()(v.coords, b.coords)
	if err != nil {
		return math.NaN()
	}
	return d
}

// SameMetric reports whether both vecs measure distances with the same function.
func (v Vec) SameMetric(b Vec) bool {
	return reflect.ValueOf(v.metricFn()).Pointer() == reflect.ValueOf(b.metricFn()).Pointer()
}

func (v Vec) metricFn() Metric {
	if v.metric == nil {
		return EuclideanDistance
	}
	return v.metric
}

func (v Vec) Dimensions() int {
	return len(v.coords)
}

func (v Vec) Dim(idx int) float64 {
	return v.coords[idx]
}

// Coords returns a copy of the coordinates.
func (v Vec) Coords() []float64 {
	c := make([]float64, len(v.coords))
	copy(c, v.coords)
	return c
}

func (v Vec) SizeEqual(vec Vec) bool {
	return len(v.coords) == len(vec.coords)
}

func (v Vec) Equal(vec Vec) bool {
	if len(v.coords) != len(vec.coords) {
		return false
	}
	for i, value := range v.coords {
		if vec.coords[i] != value {
			return false
		}
	}
	return true
}

func (v Vec) String() string {
	return fmt.Sprint(v.coords)
}

func (v Vec) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.coords)
}
