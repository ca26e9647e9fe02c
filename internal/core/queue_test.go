package core

import (
	"slices"
	"testing"
)

func TestQueue_FIFO(t *testing.T) {
	var q Queue[int]
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop() on empty queue reported an item")
	}
	q.Push(1, 2)
	q.Push(3)
	if v, _ := q.Peek(); v != 1 {
		t.Errorf("Peek() = %d, want 1", v)
	}
	var got []int
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	if !slices.Equal(got, []int{1, 2, 3}) {
		t.Errorf("popped %v, want [1 2 3]", got)
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d after drain", q.Len())
	}
}

func TestQueue_InterleavedCompaction(t *testing.T) {
	var q Queue[int]
	next, want := 0, 0
	for round := 0; round < 50; round++ {
		for i := 0; i < 3; i++ {
			q.Push(next)
			next++
		}
		for i := 0; i < 2; i++ {
			v, ok := q.Pop()
			if !ok || v != want {
				t.Fatalf("round %d: Pop() = %d,%v want %d", round, v, ok, want)
			}
			want++
		}
	}
	if q.Len() != 50 {
		t.Fatalf("Len() = %d, want 50", q.Len())
	}
	snap := q.Snapshot()
	if snap[0] != want || snap[len(snap)-1] != next-1 {
		t.Errorf("Snapshot() = [%d..%d], want [%d..%d]", snap[0], snap[len(snap)-1], want, next-1)
	}
}
