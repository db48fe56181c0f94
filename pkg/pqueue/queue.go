package pqueue

import (
	"math"
	"sort"
)

// WithCap bounds the queue: once full, a pushed item only enters if it
// ranks before the current worst one, which is then evicted.
func WithCap(size uint) Option {
	return func(o *options) {
		o.cap = int(size)
	}
}

type Option func(*options)

type options struct {
	cap int
}

// Item is a queued value with its priority. Seq is the push sequence number,
// it breaks ties between equal priorities in favour of the earlier push.
type Item[T any] struct {
	Value    T
	Priority float64
	Seq      int
}

func New[T any](opts ...Option) *Queue[T] {
	o := options{cap: -1}
	for _, opt := range opts {
		opt(&o)
	}
	q := &Queue[T]{cap: o.cap}
	if q.cap > 0 {
		q.items = make([]Item[T], 0, q.cap)
	}
	return q
}

// Queue keeps the lowest priorities in a heap whose root is the worst
// retained item. NaN priorities always rank last.
type Queue[T any] struct {
	cap   int
	seq   int
	items []Item[T]
}

func (q *Queue[T]) Push(val T, priority float64) {
	it := Item[T]{Value: val, Priority: priority, Seq: q.seq}
	q.seq++
	if q.cap == 0 {
		return
	}
	if q.cap < 0 || len(q.items) < q.cap {
		q.items = append(q.items, it)
		q.up(len(q.items) - 1)
		return
	}
	if q.before(it, q.items[0]) {
		q.items[0] = it
		q.down(0)
	}
}

// PopAll drains the queue in rank order.
func (q *Queue[T]) PopAll() []Item[T] {
	pulled := make([]Item[T], len(q.items))
	copy(pulled, q.items)
	sort.Slice(pulled, func(i, j int) bool {
		return q.before(pulled[i], pulled[j])
	})
	q.items = q.items[:0]
	return pulled
}

func (q *Queue[T]) before(a, b Item[T]) bool {
	aNaN, bNaN := math.IsNaN(a.Priority), math.IsNaN(b.Priority)
	switch {
	case aNaN && bNaN:
		return a.Seq < b.Seq
	case aNaN:
		return false
	case bNaN:
		return true
	}
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.Seq < b.Seq
}

// worse orders the heap so that the root is the item ranking last.
func (q *Queue[T]) worse(i, j int) bool {
	return q.before(q.items[j], q.items[i])
}

func (q *Queue[T]) up(j int) {
	for j > 0 {
		i := (j - 1) / 2
		if !q.worse(j, i) {
			break
		}
		q.items[i], q.items[j] = q.items[j], q.items[i]
		j = i
	}
}

func (q *Queue[T]) down(i int) {
	n := len(q.items)
	for {
		j1 := 2*i + 1
		if j1 >= n {
			break
		}
		j := j1
		if j2 := j1 + 1; j2 < n && q.worse(j2, j1) {
			j = j2
		}
		if !q.worse(j, i) {
			break
		}
		q.items[i], q.items[j] = q.items[j], q.items[i]
		i = j
	}
}
