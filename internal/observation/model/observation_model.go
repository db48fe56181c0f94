package model

import (
	"bytes"
	"fmt"
	"time"

	xdr "github.com/davecgh/go-xdr/xdr2"

	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/knn"
)

func NewObservation(id uint64, class string, coords []float64, createdAt time.Time) Observation {
	return Observation{
		ID:        id,
		Class:     class,
		Coords:    coords,
		CreatedAt: createdAt,
	}
}

// Observation is the stored form of a labeled point.
type Observation struct {
	ID        uint64    `json:"id"`
	Class     string    `json:"class"`
	Coords    []float64 `json:"vector"`
	CreatedAt time.Time `json:"createdAt"`
}

// Datum converts the observation into a searchable datum.
func (o Observation) Datum(opts ...geom.VecOption) (knn.Datum[geom.Vec], error) {
	v, err := geom.NewVec(o.Coords, opts...)
	if err != nil {
		return knn.Datum[geom.Vec]{}, fmt.Errorf("observation %d: %w", o.ID, err)
	}
	return knn.NewDatum(v, o.ID, o.Class), nil
}

// wire is the XDR layout of an observation.
type wire struct {
	ID        uint64
	Class     string
	Coords    []float64
	CreatedAt int64
}

func (o Observation) Encode() ([]byte, error) {
	var buf bytes.Buffer
	w := wire{ID: o.ID, Class: o.Class, Coords: o.Coords, CreatedAt: o.CreatedAt.UnixNano()}
	if o.CreatedAt.IsZero() {
		w.CreatedAt = 0
	}
	if _, err := xdr.Marshal(&buf, w); err != nil {
		return nil, fmt.Errorf("xdr marshal observation %d: %w", o.ID, err)
	}
	return buf.Bytes(), nil
}

func Decode(b []byte) (Observation, error) {
	var w wire
	if _, err := xdr.Unmarshal(bytes.NewReader(b), &w); err != nil {
		return Observation{}, fmt.Errorf("xdr unmarshal observation: %w", err)
	}
	o := Observation{ID: w.ID, Class: w.Class, Coords: w.Coords}
	if w.CreatedAt != 0 {
		o.CreatedAt = time.Unix(0, w.CreatedAt).UTC()
	}
	return o, nil
}
