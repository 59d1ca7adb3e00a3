package core

import (
	"context"
	"sync"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// Work is a unit submitted to a worker pool.
type Work func(ctx context.Context)

// =============================================================================
// FIFOQueue: unbounded first-in first-out work queue
// =============================================================================

// FIFOQueue is a mutex-guarded slice queue that gives memory back when it
// drains.
type FIFOQueue struct {
	mu    sync.Mutex
	items []Work
}

func NewFIFOQueue() *FIFOQueue {
	return &FIFOQueue{
		items: make([]Work, 0, defaultQueueCap),
	}
}

func (q *FIFOQueue) Push(w Work) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, w)
}

func (q *FIFOQueue) Pop() (Work, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}

	w := q.items[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.items[0] = nil
	q.items = q.items[1:]
	q.maybeCompactLocked()

	return w, true
}

func (q *FIFOQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *FIFOQueue) IsEmpty() bool {
	return q.Len() == 0
}

func (q *FIFOQueue) maybeCompactLocked() {
	n := len(q.items)
	c := cap(q.items)

	// A drained queue always starts over, whatever its capacity shrank to.
	if n == 0 {
		if c != defaultQueueCap {
			q.items = make([]Work, 0, defaultQueueCap)
		}
		return
	}
	if c < compactMinCap {
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)
	items := make([]Work, n, newCap)
	copy(items, q.items)
	q.items = items
}
