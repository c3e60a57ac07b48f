package util

import (
	"sync/atomic"
)

// node is a single element of the queue
type node[T any] struct {
	value *T
	next  atomic.Pointer[node[T]]
}

// MPSCQueue is an unbounded multi-producer single-consumer queue.
//
// Producers never block or retry: Push swaps itself into the tail and links the
// previous tail afterwards. The consumer calls Next (or TryPop) from a single
// goroutine and receives the values in the order their Push swapped the tail.
//
// After Close, Push fails but every value whose Push returned true is still
// delivered by Next before it reports the end of the queue.
type MPSCQueue[T any] struct {
	head    *node[T] // consumer only, points at the last consumed node
	tail    atomic.Pointer[node[T]]
	pending atomic.Int64 // values pushed (or being pushed) but not consumed yet
	closed  atomic.Bool
	notify  chan struct{} // wakes the consumer, capacity 1
}

// NewMPSCQueue creates an empty queue
func NewMPSCQueue[T any]() *MPSCQueue[T] {
	sentinel := &node[T]{}
	q := &MPSCQueue[T]{
		head:   sentinel,
		notify: make(chan struct{}, 1),
	}
	q.tail.Store(sentinel)
	return q
}

// Push appends value to the queue. It returns false if value is nil or the queue is closed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *MPSCQueue[T]) Push(value *T) bool {
	if value == nil {
		return false
	}

	// pending is raised before closed is checked, so a consumer that saw the
	// queue closed and empty cannot miss a value accepted here
	q.pending.Add(1)
	if q.closed.Load() {
		q.pending.Add(-1)
		q.wake()
		return false
	}

	n := &node[T]{value: value}
	prev := q.tail.Swap(n)
	prev.next.Store(n)

	q.wake()
	return true
}

// TryPop returns the next value without blocking.
// It returns false if no linked value is available yet.
//
// Must only be called by the consumer.
func (q *MPSCQueue[T]) TryPop() (*T, bool) {
	next := q.head.next.Load()
	if next == nil {
		return nil, false
	}
	value := next.value
	next.value = nil // the node stays as new sentinel
	q.head = next
	q.pending.Add(-1)
	return value, true
}

// Next blocks until a value is available and returns it.
// It returns false once the queue is closed and drained.
//
// Must only be called by the consumer.
func (q *MPSCQueue[T]) Next() (*T, bool) {
	for {
		if value, ok := q.TryPop(); ok {
			return value, true
		}
		if q.closed.Load() && q.pending.Load() == 0 {
			return nil, false
		}
		// either empty or a producer is between its swap and link, it wakes us when done
		<-q.notify
	}
}

// Close stops accepting values. Values already accepted are still delivered.
func (q *MPSCQueue[T]) Close() {
	q.closed.Store(true)
	q.wake()
}

func (q *MPSCQueue[T]) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// IsClosed returns true if the queue is closed.
func (q *MPSCQueue[T]) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of values accepted but not consumed yet.
func (q *MPSCQueue[T]) Len() int {
	return int(q.pending.Load())
}
