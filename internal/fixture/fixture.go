// Package fixture produces datasets for the CLI and tests: uniformly random
// points, or labeled observations read from TOML files.
package fixture

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/valyala/fastrand"

	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/knn"
)

// Generator draws a random point from r.
type Generator[P geom.Point[P]] func(r *fastrand.RNG) P

func Float64(r *fastrand.RNG) float64 {
	return float64(r.Uint32()) / (1 << 32)
}

func RandomPoint2(r *fastrand.RNG) geom.Point2 {
	return geom.Point2{X: Float64(r), Y: Float64(r)}
}

func RandomPoint3(r *fastrand.RNG) geom.Point3 {
	return geom.Point3{X: Float64(r), Y: Float64(r), Z: Float64(r)}
}

func RandomVec(dim int, opts ...geom.VecOption) Generator[geom.Vec] {
	return func(r *fastrand.RNG) geom.Vec {
		coords := make([]float64, dim)
		for i := range coords {
			coords[i] = Float64(r)
		}
		// coordinates in [0, 1) are always finite
		v, _ := geom.NewVec(coords, opts...)
		return v
	}
}

type Option func(*options)

type options struct {
	classes []string
}

// WithClasses labels every datum with one of classes picked uniformly.
func WithClasses(classes ...string) Option {
	return func(o *options) {
		o.classes = classes
	}
}

func Random[P geom.Point[P]](r *fastrand.RNG, n int, gen Generator[P], opts ...Option) []knn.Datum[P] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	data := make([]knn.Datum[P], n)
	for i := range data {
		id := uint64(r.Uint32())<<32 | uint64(r.Uint32())
		var class string
		if len(o.classes) > 0 {
			class = o.classes[r.Uint32n(uint32(len(o.classes)))]
		}
		data[i] = knn.NewDatum(gen(r), id, class)
	}
	return data
}

type record struct {
	ID     uint64    `toml:"id"`
	Class  string    `toml:"class"`
	Coords []float64 `toml:"coords"`
}

type file struct {
	Query        *record  `toml:"query"`
	Observations []record `toml:"observation"`
}

// Set is the content of a fixture file.
type Set struct {
	Data []knn.Datum[geom.Vec]
	// Query is nil when the file has no [query] table.
	Query *geom.Vec
}

// LoadTOML reads
//
//	[query]
//	coords = [0.5, 0.5]
//
//	[[observation]]
//	id = 1
//	class = "A"
//	coords = [0.0, 0.0]
func LoadTOML(r io.Reader, opts ...geom.VecOption) (*Set, error) {
	var f file
	if _, err := toml.DecodeReader(r, &f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	set := &Set{Data: make([]knn.Datum[geom.Vec], len(f.Observations))}
	for i, rec := range f.Observations {
		v, err := geom.NewVec(rec.Coords, opts...)
		if err != nil {
			return nil, fmt.Errorf("observation %d: %w", rec.ID, err)
		}
		set.Data[i] = knn.NewDatum(v, rec.ID, rec.Class)
	}
	if f.Query != nil {
		q, err := geom.NewVec(f.Query.Coords, opts...)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		set.Query = &q
	}
	return set, nil
}
