package pqueue

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func values(items []Item[string]) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].Value
	}
	return out
}

func TestQueue_PushBounded(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		opts       []Option
		priorities []float64
		expected   []string
	}{
		{
			name:       "asc_unbounded",
			priorities: []float64{3, 1, 2},
			expected:   []string{"1", "2", "0"},
		},
		{
			name:       "asc_cap",
			opts:       []Option{WithCap(2)},
			priorities: []float64{3, 1, 2, 0.5},
			expected:   []string{"3", "1"},
		},
		{
			name:       "cap_evicts_worst",
			opts:       []Option{WithCap(2)},
			priorities: []float64{1, 5, 3, 0.5, 4},
			expected:   []string{"3", "0"},
		},
		{
			name:       "ties_keep_push_order",
			opts:       []Option{WithCap(3)},
			priorities: []float64{1, 1, 1, 1, 0},
			expected:   []string{"4", "0", "1"},
		},
		{
			name:       "nan_ranks_last",
			opts:       []Option{WithCap(3)},
			priorities: []float64{math.NaN(), 2, math.NaN(), 1},
			expected:   []string{"3", "1", "0"},
		},
		{
			name:       "zero_cap",
			opts:       []Option{WithCap(0)},
			priorities: []float64{1, 2},
			expected:   []string{},
		},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			q := New[string](test.opts...)
			names := []string{"0", "1", "2", "3", "4"}
			for i, p := range test.priorities {
				q.Push(names[i], p)
			}
			assert.Equal(t, test.expected, values(q.PopAll()))
			assert.Empty(t, q.PopAll())
		})
	}
}

func TestQueue_HeapRootIsWorst(t *testing.T) {
	t.Parallel()
	q := New[int](WithCap(2))
	q.Push(1, 1)
	q.Push(2, 5)
	q.Push(3, 3)
	assert.Len(t, q.items, 2)
	assert.Equal(t, 3, q.items[0].Value)
}
