// Package queue provides the bounded mailbox that feeds a single consumer.
package queue

import (
	"context"
	"sync"

	"github.com/okian/fakemeh/pkg/metrics"
)

const defaultCapacity = 64

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds v without blocking. Returns false if the queue is full,
	// closed, or ctx is done.
	Enqueue(ctx context.Context, v T) bool

	// Put adds v, waiting for space until ctx is done or the queue closes.
	Put(ctx context.Context, v T) error

	// Dequeue returns a channel that receives items in FIFO order. The
	// channel closes after the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	Len() int
	Close() error
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	name     string

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	s := settings{capacity: defaultCapacity, name: "mailbox"}
	for _, opt := range opts {
		opt(&s)
	}
	q := &InMemoryQueue[T]{
		items:    make(chan T, s.capacity),
		capacity: s.capacity,
		name:     s.name,
		done:     make(chan struct{}),
	}
	metrics.UpdateMailboxDepth(0)
	return q
}

// Enqueue adds v to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, v T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent(q.name, "closed")
		return false
	}
	if ctx.Err() != nil {
		metrics.RecordErrorByComponent(q.name, "context_cancelled")
		return false
	}

	select {
	case q.items <- v:
		metrics.UpdateMailboxDepth(len(q.items))
		return true
	default:
		metrics.RecordErrorByComponent(q.name, "queue_full")
		return false
	}
}

// Put adds v, blocking while the queue is full.
func (q *InMemoryQueue[T]) Put(ctx context.Context, v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}
	select {
	case q.items <- v:
		metrics.UpdateMailboxDepth(len(q.items))
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		metrics.RecordErrorByComponent(q.name, "context_cancelled")
		return ctx.Err()
	}
}

// Dequeue returns a channel that will receive items as they become available.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for v := range q.items {
			select {
			case out <- v:
				metrics.UpdateMailboxDepth(len(q.items))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Close stops accepting items. Items already queued are still delivered.
func (q *InMemoryQueue[T]) Close() error {
	q.closeOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
