package integration

import "time"

type QueryRequest struct {
	K       *int        `json:"k,omitempty"`
	Queries [][]float64 `json:"queries"`
}

type Neighbor struct {
	ID       uint64  `json:"neighborId"`
	Class    string  `json:"class"`
	Distance float64 `json:"distance"`
}

type Result struct {
	Query     []float64  `json:"queryPoint"`
	Neighbors []Neighbor `json:"nearestNeighbors"`
	Class     string     `json:"class"`
	Tie       bool       `json:"tie"`
	Truncated bool       `json:"truncated"`
}

type QueryResponse struct {
	RequestID string   `json:"requestId"`
	K         int      `json:"k"`
	Results   []Result `json:"results"`
}

type Observation struct {
	ID        uint64     `json:"id"`
	Class     string     `json:"class"`
	Vec       []float64  `json:"vector"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

type ImportRequest struct {
	Observations []Observation `json:"observations"`
}

type ImportResponse struct {
	RequestID string `json:"requestId"`
	Imported  int    `json:"imported"`
	Size      int    `json:"size"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Size   int    `json:"size"`
}
