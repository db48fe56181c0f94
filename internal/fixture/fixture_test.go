package fixture

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"

	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/knn"
)

func TestRandom(t *testing.T) {
	t.Parallel()
	var r fastrand.RNG
	data := Random(&r, 200, RandomPoint3, WithClasses("A", "B"))
	require.Len(t, data, 200)
	for _, d := range data {
		for _, c := range d.Point.Coords() {
			assert.GreaterOrEqual(t, c, 0.0)
			assert.Less(t, c, 1.0)
		}
		assert.Contains(t, []string{"A", "B"}, d.Class)
	}
	_, err := knn.NewDataset(data...)
	assert.NoError(t, err)
}

func TestRandomVec(t *testing.T) {
	t.Parallel()
	var r fastrand.RNG
	data := Random(&r, 10, RandomVec(7))
	for _, d := range data {
		assert.Equal(t, 7, d.Point.Dimensions())
		assert.Empty(t, d.Class)
	}
	assert.Len(t, Random(&r, 3, RandomPoint2), 3)
}

func TestLoadTOML(t *testing.T) {
	t.Parallel()
	const in = `
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
	set, err := LoadTOML(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, set.Data, 6)
	require.NotNil(t, set.Query)
	assert.Equal(t, uint64(4), set.Data[3].ID)
	assert.Equal(t, "B", set.Data[3].Class)

	ds, err := knn.NewDataset(set.Data...)
	require.NoError(t, err)
	prediction, err := knn.Predict(3, *set.Query, ds)
	require.NoError(t, err)
	assert.Equal(t, "A", prediction.Label())
}

func TestLoadTOML_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
	}{
		{name: "syntax", in: "[[observation]\nid = 1"},
		{name: "nan", in: "[[observation]]\nid = 1\ncoords = [nan, 0.0]"},
		{name: "query_inf", in: "[query]\ncoords = [inf]"},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadTOML(strings.NewReader(test.in), geom.WithMetric(geom.ManhattanDistance))
			assert.Error(t, err)
		})
	}
}
