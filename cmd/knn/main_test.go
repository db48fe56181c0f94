package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/knn/internal/geom"
)

const exampleFixture = `
[query]
coords = [0.5, 0.5]

[[observation]]
id = 1
class = "A"
coords = [0.0, 0.0]

[[observation]]
id = 2
class = "A"
coords = [1.0, 0.0]

[[observation]]
id = 3
class = "A"
coords = [0.0, 1.0]

[[observation]]
id = 4
class = "B"
coords = [10.0, 10.0]

[[observation]]
id = 5
class = "B"
coords = [11.0, 10.0]

[[observation]]
id = 6
class = "B"
coords = [10.0, 11.0]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "example.toml")
	require.NoError(t, os.WriteFile(path, []byte(exampleFixture), 0o600))
	return path
}

func decodeOutput(t *testing.T, b []byte) output {
	t.Helper()
	var out output
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestRun_Fixture(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-k", "3", "-fixture", writeFixture(t)}, &buf))

	out := decodeOutput(t, buf.Bytes())
	assert.Equal(t, "A", out.Class)
	assert.Equal(t, []float64{0.5, 0.5}, out.QueryPoint)
	require.Len(t, out.NearestNeighbors, 3)
	for i, id := range []uint64{1, 2, 3} {
		assert.Equal(t, id, out.NearestNeighbors[i].ID)
		assert.InDelta(t, math.Sqrt(0.5), out.NearestNeighbors[i].Distance, 1e-12)
	}
}

func TestRun_FixtureQueryOverride(t *testing.T) {
	var buf bytes.Buffer
	args := []string{"-k", "3", "-shards", "2", "-query", "10.5, 10.5", "-fixture", writeFixture(t)}
	require.NoError(t, run(context.Background(), args, &buf))

	out := decodeOutput(t, buf.Bytes())
	assert.Equal(t, "B", out.Class)
	assert.Equal(t, uint64(4), out.NearestNeighbors[0].ID)
}

func TestRun_Random(t *testing.T) {
	tests := []struct {
		name string
		args []string
		dim  int
	}{
		{name: "point2", args: []string{"-k", "5", "-dataset-size", "100"}, dim: 2},
		{name: "point3", args: []string{"-k", "5", "-dataset-size", "100", "-dim", "3", "-shards", "4"}, dim: 3},
		{name: "vec", args: []string{"-k", "5", "-dataset-size", "100", "-dim", "8", "-metric", "MANHATTAN"}, dim: 8},
		{name: "query", args: []string{"-k", "5", "-dataset-size", "100", "-query", "0.5,0.5", "-classes", "X,Y"}, dim: 2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, run(context.Background(), test.args, &buf))

			out := decodeOutput(t, buf.Bytes())
			assert.Len(t, out.QueryPoint, test.dim)
			require.Len(t, out.NearestNeighbors, 5)
			assert.NotEmpty(t, out.Class)
			for i := 1; i < len(out.NearestNeighbors); i++ {
				assert.LessOrEqual(t, out.NearestNeighbors[i-1].Distance, out.NearestNeighbors[i].Distance)
			}
		})
	}
}

func TestRun_Dump(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-k", "1", "-format", "dump", "-fixture", writeFixture(t)}, &buf))
	assert.Contains(t, buf.String(), "NearestNeighbors")
	assert.Contains(t, buf.String(), `Class: (string) (len=1) "A"`)
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		expectedErr error
	}{
		{name: "zero_k", args: []string{"-k", "0", "-dataset-size", "10"}},
		{name: "empty_dataset", args: []string{"-dataset-size", "0"}},
		{name: "format", args: []string{"-format", "xml"}},
		{name: "dimensions", args: []string{"-dim", "0"}},
		{name: "query_dimensions", args: []string{"-query", "1,2,3", "-dataset-size", "10"}, expectedErr: geom.ErrDimNotEqual},
		{name: "query_nan", args: []string{"-query", "1,NaN", "-dataset-size", "10"}, expectedErr: geom.ErrInvalidPoint},
		{name: "metric", args: []string{"-dim", "5", "-metric", "COSINE"}},
		{name: "fixture_missing", args: []string{"-fixture", "/nonexistent/fixture.toml"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := run(context.Background(), test.args, &buf)
			require.Error(t, err)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
			}
			assert.Empty(t, buf.String())
		})
	}
}
