package core

// Queue is an unbounded FIFO. It is not safe for concurrent use; callers hold
// their own lock.
type Queue[T any] struct {
	items []T
	head  int
}

// Push appends v at the tail.
func (q *Queue[T]) Push(v ...T) {
	q.items = append(q.items, v...)
}

// Pop removes and returns the head.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.head == len(q.items) {
		return zero, false
	}
	v := q.items[q.head]
	q.items[q.head] = zero
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= 32 && q.head*2 >= len(q.items):
		n := copy(q.items, q.items[q.head:])
		clear(q.items[n:])
		q.items = q.items[:n]
		q.head = 0
	}
	return v, true
}

// Peek returns the head without removing it.
func (q *Queue[T]) Peek() (T, bool) {
	if q.head == len(q.items) {
		var zero T
		return zero, false
	}
	return q.items[q.head], true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.items) - q.head }

// Snapshot returns a copy of the queued items, head first.
func (q *Queue[T]) Snapshot() []T {
	out := make([]T, q.Len())
	copy(out, q.items[q.head:])
	return out
}
