// Package dispatch provides a bounded asynchronous work queue used for audit
// events and outbound notifications.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls queue capacity and back-pressure.
type Config struct {
	BufferSize int
	Workers    int
	DropIfFull bool
}

// Queue hands items of type T to a handler on background workers.
type Queue[T any] struct {
	cfg       Config
	handle    func(context.Context, T)
	ch        chan T
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts cfg.Workers goroutines that call handle for each enqueued item.
func New[T any](cfg Config, handle func(context.Context, T)) *Queue[T] {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	q := &Queue[T]{
		cfg:    cfg,
		handle: handle,
		ch:     make(chan T, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	q.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go q.run()
	}

	return q
}

func (q *Queue[T]) run() {
	defer q.wg.Done()

	for {
		select {
		case item := <-q.ch:
			q.handle(context.Background(), item)
		case <-q.done:
			for {
				select {
				case item := <-q.ch:
					q.handle(context.Background(), item)
				default:
					return
				}
			}
		}
	}
}

// Enqueue submits item. With DropIfFull the call never blocks and a full
// buffer counts the item as dropped; otherwise it waits for room, ctx, or
// Close. It reports whether the item was accepted.
func (q *Queue[T]) Enqueue(ctx context.Context, item T) bool {
	if q == nil || q.closed.Load() {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if q.cfg.DropIfFull {
		select {
		case q.ch <- item:
			return true
		case <-q.done:
			return false
		default:
			q.dropped.Add(1)
			return false
		}
	}

	select {
	case q.ch <- item:
		return true
	case <-ctx.Done():
		return false
	case <-q.done:
		return false
	}
}

// Close stops accepting items and waits until buffered items are handled.
func (q *Queue[T]) Close() {
	if q == nil {
		return
	}
	q.closeOnce.Do(func() {
		q.closed.Store(true)
		close(q.done)
		q.wg.Wait()
	})
}

// Dropped returns the number of items discarded because the buffer was full.
func (q *Queue[T]) Dropped() uint64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}
