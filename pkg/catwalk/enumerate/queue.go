package enumerate

import (
	"context"

	"github.com/fairweather/catwalk/pkg/catwalk/types"
)

// Queue is the bounded handoff between the enumerator and the worker pool.
// Push blocks while the queue is full, which suspends enumeration and is
// the sole mechanism keeping memory bounded on trees with millions of
// entries. Pop blocks while the queue is empty. Both respect cancellation.
type Queue struct {
	ch chan types.FileEntry
}

// DefaultQueueCapacity bounds in-flight entries when the caller does not
// configure a capacity.
const DefaultQueueCapacity = 10000

// NewQueue creates a queue with the given capacity. Non-positive
// capacities use the default.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{ch: make(chan types.FileEntry, capacity)}
}

// Push enqueues an entry, blocking while the queue is full.
// Returns ctx.Err() when cancelled during the wait.
func (q *Queue) Push(ctx context.Context, e types.FileEntry) error {
	select {
	case q.ch <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop dequeues an entry, blocking while the queue is empty.
// ok is false once the queue is closed and drained.
func (q *Queue) Pop(ctx context.Context) (e types.FileEntry, ok bool, err error) {
	select {
	case e, ok = <-q.ch:
		return e, ok, nil
	case <-ctx.Done():
		return types.FileEntry{}, false, ctx.Err()
	}
}

// Close marks the producer side finished. Pending entries remain poppable.
func (q *Queue) Close() {
	close(q.ch)
}

// Len returns the number of buffered entries.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Cap returns the queue capacity.
func (q *Queue) Cap() int {
	return cap(q.ch)
}
