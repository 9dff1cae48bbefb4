package transfer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"celo-nlte/internal/token"
)

type captureProducer struct {
	mu        sync.Mutex
	published []string
	fail      bool
}

func (p *captureProducer) Publish(_ context.Context, transferID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("broker down")
	}
	p.published = append(p.published, transferID)
	return nil
}

func (p *captureProducer) Close() error { return nil }

func (p *captureProducer) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.published...)
}

func dueTransfer(id, userKey string, offset time.Duration) *Transfer {
	return newTransfer(id, userKey, time.Now().Add(offset).UnixMilli())
}

func TestDispatcherPublishesEarliestDuePerUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	// Two due transfers for the same user plus one for another user.
	if err := store.Create(ctx, dueTransfer("st_late", userA, -time.Minute)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, dueTransfer("st_early", userA, -2*time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, dueTransfer("st_other", userB, -time.Minute)); err != nil {
		t.Fatalf("create: %v", err)
	}

	producer := &captureProducer{}
	dp := NewDispatcher(store, producer)
	dp.Tick(ctx)

	ids := producer.ids()
	if len(ids) != 2 {
		t.Fatalf("expected one dispatch per user, got %v", ids)
	}
	for _, id := range ids {
		if id == "st_late" {
			t.Fatalf("earliest due transfer must go first, got %v", ids)
		}
	}
}

func TestDispatcherHoldsWhileInFlight(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, dueTransfer("st_1", userA, -time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, dueTransfer("st_2", userA, -time.Minute)); err != nil {
		t.Fatalf("create: %v", err)
	}

	producer := &captureProducer{}
	dp := NewDispatcher(store, producer)

	dp.Tick(ctx)
	dp.Tick(ctx)
	if ids := producer.ids(); len(ids) != 1 || ids[0] != "st_1" {
		t.Fatalf("second tick must not double dispatch, got %v", ids)
	}

	// Once the first transfer completes, the slot frees up.
	if err := store.MarkCompleted(ctx, "st_1", "0xhash"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	dp.Tick(ctx)
	if ids := producer.ids(); len(ids) != 2 || ids[1] != "st_2" {
		t.Fatalf("completed transfer must release the user slot, got %v", ids)
	}
}

func TestDispatcherReleasesOnPublishFailure(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, dueTransfer("st_1", userA, -time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	producer := &captureProducer{fail: true}
	dp := NewDispatcher(store, producer)
	dp.Tick(ctx)

	producer.mu.Lock()
	producer.fail = false
	producer.mu.Unlock()

	dp.Tick(ctx)
	if ids := producer.ids(); len(ids) != 1 || ids[0] != "st_1" {
		t.Fatalf("failed publish must be retried next tick, got %v", ids)
	}
}

type scriptedExecutor struct {
	txHash string
	err    error
	calls  int
}

func (e *scriptedExecutor) ExecuteTransfer(_ context.Context, _, _ string, _ token.Token) (string, error) {
	e.calls++
	return e.txHash, e.err
}

func TestWorkerHandleCompletes(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, dueTransfer("st_1", userA, -time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	exec := &scriptedExecutor{txHash: "0xhash"}
	w := NewWorker(store, nil, exec, 1)
	if err := w.Handle(ctx, "st_1"); err != nil {
		t.Fatalf("handle: %v", err)
	}

	got, _ := store.Get(ctx, "st_1")
	if got.Status != StatusCompleted || got.TxHash != "0xhash" {
		t.Fatalf("unexpected outcome: %+v", got)
	}
}

func TestWorkerHandleRecordsFailure(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, dueTransfer("st_1", userA, -time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}

	exec := &scriptedExecutor{err: fmt.Errorf("nonce too low")}
	w := NewWorker(store, nil, exec, 1)
	if err := w.Handle(ctx, "st_1"); err == nil {
		t.Fatalf("expected execution error")
	}

	got, _ := store.Get(ctx, "st_1")
	if got.Status != StatusFailed || got.LastError == "" {
		t.Fatalf("failure must land in the store: %+v", got)
	}
}

func TestWorkerHandleSkipsNonPending(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tr := dueTransfer("st_1", userA, -time.Hour)
	if err := store.Create(ctx, tr); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Cancel(ctx, "st_1", userA); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	exec := &scriptedExecutor{txHash: "0xhash"}
	w := NewWorker(store, nil, exec, 1)
	if err := w.Handle(ctx, "st_1"); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("cancelled transfer must not execute")
	}

	// Unknown IDs are dropped, not retried.
	if err := w.Handle(ctx, "st_missing"); err != nil {
		t.Fatalf("unknown id must be dropped: %v", err)
	}
}

func TestMemoryQueueRoundTrip(t *testing.T) {
	q := NewMemoryQueue(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := make([]string, 0)
	done := make(chan struct{})

	go func() {
		_ = q.Consume(ctx, 2, func(_ context.Context, id string) error {
			mu.Lock()
			seen = append(seen, id)
			if len(seen) == 2 {
				close(done)
			}
			mu.Unlock()
			return nil
		})
	}()

	if err := q.Publish(ctx, "st_1"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := q.Publish(ctx, "st_2"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer did not drain the queue")
	}

	cancel()
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := q.Publish(context.Background(), "st_3"); err == nil {
		t.Fatalf("publish after close must fail")
	}
}
