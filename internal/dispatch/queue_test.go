package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueHandlesAllItemsBeforeClose(t *testing.T) {
	var handled atomic.Int64
	q := New(Config{BufferSize: 16, Workers: 4}, func(context.Context, int) {
		handled.Add(1)
	})

	for i := 0; i < 100; i++ {
		if !q.Enqueue(context.Background(), i) {
			t.Fatalf("enqueue %d rejected", i)
		}
	}
	q.Close()

	if got := handled.Load(); got != 100 {
		t.Fatalf("expected 100 handled items, got %d", got)
	}
}

func TestQueueDropIfFullCountsDrops(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := New(Config{BufferSize: 1, Workers: 1, DropIfFull: true}, func(context.Context, int) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	q.Enqueue(context.Background(), 0)
	<-started
	// Worker is blocked; one item fits in the buffer, the rest drop.
	q.Enqueue(context.Background(), 1)
	for i := 0; i < 5; i++ {
		if q.Enqueue(context.Background(), i) {
			t.Fatalf("expected enqueue to drop when full")
		}
	}

	if got := q.Dropped(); got != 5 {
		t.Fatalf("expected 5 dropped, got %d", got)
	}
	close(release)
	q.Close()
}

func TestQueueBlockingEnqueueHonorsContext(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := New(Config{BufferSize: 1, Workers: 1}, func(context.Context, int) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})
	defer func() {
		close(release)
		q.Close()
	}()

	q.Enqueue(context.Background(), 0)
	<-started
	q.Enqueue(context.Background(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if q.Enqueue(ctx, 2) {
		t.Fatalf("expected blocked enqueue to give up on context deadline")
	}
	if q.Dropped() != 0 {
		t.Fatalf("blocking mode must not count drops")
	}
}

func TestQueueEnqueueAfterCloseRejected(t *testing.T) {
	q := New(Config{}, func(context.Context, string) {})
	q.Close()
	q.Close()

	if q.Enqueue(context.Background(), "late") {
		t.Fatalf("expected enqueue after close to be rejected")
	}
}

func TestNilQueueIsInert(t *testing.T) {
	var q *Queue[int]
	if q.Enqueue(context.Background(), 1) {
		t.Fatalf("nil queue accepted item")
	}
	if q.Dropped() != 0 {
		t.Fatalf("nil queue reported drops")
	}
	q.Close()
}

func TestQueueConcurrentEnqueue(t *testing.T) {
	var handled atomic.Int64
	q := New(Config{BufferSize: 8, Workers: 2}, func(context.Context, int) {
		handled.Add(1)
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				q.Enqueue(context.Background(), i)
			}
		}()
	}
	wg.Wait()
	q.Close()

	if got := handled.Load(); got != 400 {
		t.Fatalf("expected 400 handled, got %d", got)
	}
}
