package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

func TestRecordQuery(t *testing.T) {
	require.NoError(t, Register())
	t.Cleanup(func() { view.Unregister(Views...) })

	ctx := context.Background()
	RecordQuery(ctx, OperationSearch, time.Now(), nil)
	RecordQuery(ctx, OperationSearch, time.Now(), errors.New("boom"))
	RecordVote(ctx, "A")
	RecordDatasetSize(ctx, 6)

	rows, err := view.RetrieveData("knn/queries_total")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = view.RetrieveData("knn/dataset_size")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 6.0, rows[0].Data.(*view.LastValueData).Value)
}
