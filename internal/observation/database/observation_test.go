package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-sod/knn/internal/database"
	"github.com/go-sod/knn/internal/observation/model"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewFromEnv(ctx, &database.Config{
		FileName: filepath.Join(t.TempDir(), "test.db"),
		Timeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close(ctx)
	})
	return New(db)
}

func TestDB_AppendFind(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testDB(t)

	empty, err := db.FindAll(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	now := time.Now()
	require.NoError(t, db.AppendMany(ctx, []model.Observation{
		model.NewObservation(300, "B", []float64{10, 10}, now),
		model.NewObservation(2, "A", []float64{0, 1}, now),
		model.NewObservation(1, "A", []float64{0, 0}, now),
	}))

	all, err := db.FindAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint64{1, 2, 300}, []uint64{all[0].ID, all[1].ID, all[2].ID})

	onlyB, err := db.FindAll(ctx, func(o model.Observation) bool { return o.Class == "B" })
	require.NoError(t, err)
	require.Len(t, onlyB, 1)
	assert.Equal(t, []float64{10, 10}, onlyB[0].Coords)

	// same id overwrites
	require.NoError(t, db.AppendMany(ctx, []model.Observation{model.NewObservation(2, "C", []float64{5, 5}, now)}))
	count, err := db.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, db.Delete(ctx, 1, 300))
	rest, err := db.FindAll(ctx, nil)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "C", rest[0].Class)
}
