package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/fakemeh/internal/adapters/mq/queue"
	"github.com/okian/fakemeh/internal/adapters/mq/worker"
	logging "github.com/okian/fakemeh/pkg/logger"
)

type recorder struct {
	mu   sync.Mutex
	seen []string
	busy bool
	// overlap is set if Handle was ever entered concurrently.
	overlap bool
}

func (r *recorder) Handle(_ context.Context, msg string) error {
	r.mu.Lock()
	if r.busy {
		r.overlap = true
	}
	r.busy = true
	r.mu.Unlock()

	time.Sleep(time.Millisecond)

	r.mu.Lock()
	r.busy = false
	r.seen = append(r.seen, msg)
	r.mu.Unlock()

	switch msg {
	case "fail":
		return errors.New("handler failed")
	case "panic":
		panic("boom")
	}
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func TestLoop(t *testing.T) {
	convey.Convey("Given a loop over an in-memory queue", t, func() {
		_ = logging.Init()

		q := queue.NewInMemoryQueue[string](queue.WithCapacity(16))
		rec := &recorder{}
		loop := worker.NewLoop[string](q, rec, worker.WithName("test-loop"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go loop.Run(ctx)

		convey.Convey("When messages are enqueued from several goroutines", func() {
			var wg sync.WaitGroup
			for i := 0; i < 4; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < 3; j++ {
						_ = q.Put(ctx, "m")
					}
				}()
			}
			wg.Wait()
			_ = q.Close()

			convey.Convey("Then they are handled one at a time and the loop exits once drained", func() {
				select {
				case <-loop.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("loop did not exit")
				}
				convey.So(rec.snapshot(), convey.ShouldHaveLength, 12)
				convey.So(rec.overlap, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the handler fails or panics", func() {
			_ = q.Put(ctx, "fail")
			_ = q.Put(ctx, "panic")
			_ = q.Put(ctx, "after")
			_ = q.Close()
			<-loop.Done()

			convey.Convey("Then the loop keeps going", func() {
				convey.So(rec.snapshot(), convey.ShouldResemble, []string{"fail", "panic", "after"})
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()

			convey.So(loop.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(loop.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a loop that never started", t, func() {
		q := queue.NewInMemoryQueue[string]()
		loop := worker.NewLoop[string](q, worker.HandlerFunc[string](func(context.Context, string) error { return nil }))

		convey.Convey("Shutdown times out", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			err := loop.Shutdown(ctx)
			convey.So(errors.Is(err, worker.ErrShutdownTimeout), convey.ShouldBeTrue)
		})
	})
}
