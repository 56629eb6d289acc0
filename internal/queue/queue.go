// Package queue provides a small goroutine-safe FIFO.
package queue

import "sync"

// Queue is a FIFO backed by a slice and guarded by a mutex.
//
// One goroutine may enqueue while another dequeues.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty queue with room for prealloc items.
func New[T any](prealloc int) *Queue[T] {
	return &Queue[T]{items: make([]T, 0, prealloc)}
}

// Enqueue adds items to the tail of the queue.
func (q *Queue[T]) Enqueue(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// Dequeue removes and returns the item at the head of the queue.
// ok is false if the queue is empty.
func (q *Queue[T]) Dequeue() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item, false
	}

	item = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]

	return item, true
}

// Peek returns the item at the head of the queue without removing it.
func (q *Queue[T]) Peek() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return item, false
	}

	return q.items[0], true
}

// Reset empties the queue.
func (q *Queue[T]) Reset() {
	q.mu.Lock()
	q.items = q.items[:0]
	q.mu.Unlock()
}

// Length returns the number of items in the queue.
func (q *Queue[T]) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}
