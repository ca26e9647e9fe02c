// Package core provides the bookkeeping tier of the runtime: the bounded
// transition log and the FIFO command queue.
package core

import "sync"

// Log records entries in arrival order and keeps at most Bound of them.
//
// Bound semantics:
//   - bound > 0 keeps the most recent bound entries
//   - bound == 0 records nothing
//   - bound < 0 keeps everything
//
// Log is safe for concurrent use.
type Log[T any] struct {
	mu    sync.RWMutex
	bound int
	buf   []T
	start int // index of the oldest entry once buf is full
	total uint64
}

// NewLog creates a Log with the given bound.
func NewLog[T any](bound int) *Log[T] {
	l := &Log[T]{bound: bound}
	if bound > 0 {
		l.buf = make([]T, 0, bound)
	}
	return l
}

// Record appends v, evicting the oldest entry when the bound is reached.
func (l *Log[T]) Record(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	switch {
	case l.bound == 0:
		return
	case l.bound < 0 || len(l.buf) < l.bound:
		l.buf = append(l.buf, v)
	default:
		l.buf[l.start] = v
		l.start = (l.start + 1) % l.bound
	}
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Log[T]) Entries() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]T, 0, len(l.buf))
	out = append(out, l.buf[l.start:]...)
	return append(out, l.buf[:l.start]...)
}

// Last returns the newest entry.
func (l *Log[T]) Last() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var zero T
	if len(l.buf) == 0 {
		return zero, false
	}
	i := len(l.buf) - 1
	if l.start > 0 {
		i = l.start - 1
	}
	return l.buf[i], true
}

// Len returns the number of retained entries.
func (l *Log[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.buf)
}

// Total returns the number of entries ever recorded, retained or not.
func (l *Log[T]) Total() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Bound returns the configured bound.
func (l *Log[T]) Bound() int { return l.bound }

// Reset drops every retained entry. Total is preserved.
func (l *Log[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buf)
	l.buf = l.buf[:0]
	l.start = 0
}
