// Package worker runs a single consumer loop over a mailbox.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/fakemeh/pkg/logger"
	"github.com/okian/fakemeh/pkg/metrics"
)

// Source defines how the loop receives messages.
type Source[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Handler processes one message. Handle is never called concurrently.
type Handler[T any] interface {
	Handle(ctx context.Context, msg T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, msg T) error

// Handle calls f.
func (f HandlerFunc[T]) Handle(ctx context.Context, msg T) error { return f(ctx, msg) }

// Loop feeds messages from a Source to a Handler one at a time.
type Loop[T any] struct {
	source  Source[T]
	handler Handler[T]
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewLoop creates a loop with configuration options.
func NewLoop[T any](source Source[T], handler Handler[T], opts ...Option) *Loop[T] {
	s := settings{name: "worker"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named(s.name)
	}
	return &Loop[T]{
		source:   source,
		handler:  handler,
		name:     s.name,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   s.logger,
	}
}

// Run consumes messages until ctx is cancelled, Shutdown is called or the
// source is closed and drained.
func (l *Loop[T]) Run(ctx context.Context) {
	defer close(l.done)

	msgs := l.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.shutdown:
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			if err := l.handle(ctx, msg); err != nil {
				metrics.RecordErrorByComponent(l.name, "handler")
				l.logger.Error(ctx, "error handling message", logger.Error(err))
			}
		}
	}
}

func (l *Loop[T]) handle(ctx context.Context, msg T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return l.handler.Handle(ctx, msg)
}

// Done is closed when Run returns.
func (l *Loop[T]) Done() <-chan struct{} {
	return l.done
}

// Shutdown stops the loop without draining and waits for Run to return.
func (l *Loop[T]) Shutdown(ctx context.Context) error {
	l.shutdownOnce.Do(func() { close(l.shutdown) })

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}
