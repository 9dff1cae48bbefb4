package transfer

import (
	"context"
	stdErrors "errors"
	"log/slog"

	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/observability/metrics"
	"celo-nlte/internal/token"
	"celo-nlte/pkg/logger"
)

// Executor broadcasts one transfer on chain and returns the transaction
// hash. The celo package provides the production implementation.
type Executor interface {
	ExecuteTransfer(ctx context.Context, to, amount string, tok token.Token) (string, error)
}

// Worker consumes dispatched transfer IDs and executes them. Terminal
// outcomes land in the store; the queue never holds business state.
type Worker struct {
	store    Store
	consumer Consumer
	executor Executor
	workers  int
	log      *slog.Logger
}

// NewWorker wires a Worker with the given concurrency.
func NewWorker(store Store, consumer Consumer, executor Executor, workers int) *Worker {
	if workers <= 0 {
		workers = 1
	}
	return &Worker{
		store:    store,
		consumer: consumer,
		executor: executor,
		workers:  workers,
		log:      logger.Named("worker"),
	}
}

// Run consumes until the context ends.
func (w *Worker) Run(ctx context.Context) error {
	return w.consumer.Consume(ctx, w.workers, w.Handle)
}

// Handle executes one dispatched transfer. Duplicate deliveries are safe:
// anything no longer pending is skipped, and the conditional terminal
// markers reject a second writer.
func (w *Worker) Handle(ctx context.Context, transferID string) error {
	t, err := w.store.Get(ctx, transferID)
	if err != nil {
		if stdErrors.Is(err, ErrTransferNotFound) {
			w.log.Warn("dispatched transfer vanished", slog.String("transfer_id", transferID))
			return nil
		}
		return err
	}
	if t.Status != StatusPending {
		return nil
	}

	txHash, execErr := w.executor.ExecuteTransfer(ctx, t.Recipient, t.Amount, t.Token)
	if execErr != nil {
		w.log.Error("transfer execution failed",
			slog.String("transfer_id", t.ID),
			slog.Any("error", execErr),
		)
		if markErr := w.store.MarkFailed(ctx, t.ID, execErr.Error()); markErr != nil && !stdErrors.Is(markErr, ErrTransferConflict) {
			return markErr
		}
		metrics.ObserveTransferOutcome(string(StatusFailed))
		return xerrors.Wrap(CodeTransferExecution, execErr, "execute transfer")
	}

	if err := w.store.MarkCompleted(ctx, t.ID, txHash); err != nil && !stdErrors.Is(err, ErrTransferConflict) {
		return err
	}
	metrics.ObserveTransferOutcome(string(StatusCompleted))
	w.log.Info("transfer completed",
		slog.String("transfer_id", t.ID),
		slog.String("tx_hash", txHash),
	)
	return nil
}
