package transfer

import (
	"context"
	"sync"

	xerrors "celo-nlte/internal/errors"
)

// MemoryQueue is a channel-backed queue for tests and single-process runs.
type MemoryQueue struct {
	ch     chan string
	mu     sync.Mutex
	closed bool
}

// NewMemoryQueue creates an in-memory queue with the given buffer size.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{ch: make(chan string, size)}
}

// Publish enqueues a transfer ID.
func (q *MemoryQueue) Publish(ctx context.Context, transferID string) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return xerrors.New(xerrors.CodeQueueFailure, "queue closed")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- transferID:
		return nil
	}
}

// Consume runs workerCount goroutines until the context ends.
func (q *MemoryQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case transferID, ok := <-q.ch:
					if !ok {
						return
					}
					_ = handler(ctx, transferID)
				}
			}
		}()
	}
	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close shuts the channel; pending entries are still drained by consumers.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if !q.closed {
		close(q.ch)
		q.closed = true
	}
	q.mu.Unlock()
	return nil
}

var _ Queue = (*MemoryQueue)(nil)
