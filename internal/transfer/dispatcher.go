package transfer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"celo-nlte/pkg/logger"
)

// Dispatcher polls the store for due transfers and publishes their IDs for
// execution. At most one transfer per user is in flight at a time; the
// earliest due entry for each user goes first. The in-flight set is held in
// memory, so run a single dispatcher per store.
type Dispatcher struct {
	store    Store
	producer Producer
	interval time.Duration
	batch    int
	log      *slog.Logger

	mu       sync.Mutex
	inFlight map[string]string // user key -> transfer ID
}

// DispatcherOption mutates a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchInterval overrides the polling interval.
func WithDispatchInterval(d time.Duration) DispatcherOption {
	return func(dp *Dispatcher) {
		if d > 0 {
			dp.interval = d
		}
	}
}

// WithDispatchBatch caps how many due transfers one tick loads.
func WithDispatchBatch(n int) DispatcherOption {
	return func(dp *Dispatcher) {
		if n > 0 {
			dp.batch = n
		}
	}
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(store Store, producer Producer, opts ...DispatcherOption) *Dispatcher {
	dp := &Dispatcher{
		store:    store,
		producer: producer,
		interval: 5 * time.Second,
		batch:    100,
		log:      logger.Named("dispatcher"),
		inFlight: make(map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(dp)
		}
	}
	return dp
}

// Run polls until the context ends.
func (dp *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(dp.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			dp.Tick(ctx)
		}
	}
}

// Tick performs one dispatch round. Exported so tests and callers with
// their own scheduling can drive it directly.
func (dp *Dispatcher) Tick(ctx context.Context) {
	dp.releaseFinished(ctx)

	now := time.Now().UnixMilli()
	due, err := dp.store.ListDue(ctx, now, dp.batch)
	if err != nil {
		dp.log.Error("list due transfers failed", slog.Any("error", err))
		return
	}

	seen := make(map[string]bool)
	for _, t := range due {
		// Earliest first is the store's ordering; the first hit per user
		// this tick wins and the rest wait.
		if seen[t.UserKey] {
			continue
		}
		seen[t.UserKey] = true

		dp.mu.Lock()
		_, busy := dp.inFlight[t.UserKey]
		if !busy {
			dp.inFlight[t.UserKey] = t.ID
		}
		dp.mu.Unlock()
		if busy {
			continue
		}

		if err := dp.producer.Publish(ctx, t.ID); err != nil {
			dp.log.Error("publish transfer failed",
				slog.String("transfer_id", t.ID),
				slog.Any("error", err),
			)
			dp.release(t.UserKey)
			continue
		}
		dp.log.Info("transfer dispatched",
			slog.String("transfer_id", t.ID),
			slog.Int64("scheduled_time", t.ScheduledTime),
		)
	}
}

// releaseFinished clears in-flight slots whose transfers left pending.
func (dp *Dispatcher) releaseFinished(ctx context.Context) {
	dp.mu.Lock()
	snapshot := make(map[string]string, len(dp.inFlight))
	for user, id := range dp.inFlight {
		snapshot[user] = id
	}
	dp.mu.Unlock()

	for user, id := range snapshot {
		t, err := dp.store.Get(ctx, id)
		if err != nil || t.Status != StatusPending {
			dp.release(user)
		}
	}
}

func (dp *Dispatcher) release(userKey string) {
	dp.mu.Lock()
	delete(dp.inFlight, userKey)
	dp.mu.Unlock()
}
