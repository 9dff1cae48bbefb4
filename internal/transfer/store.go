package transfer

import "context"

// Store persists scheduled transfers. List and ListDue order by scheduled
// time ascending so the earliest due entry always surfaces first. The
// terminal markers are conditional on pending status; losing that race
// returns ErrTransferConflict.
type Store interface {
	Create(ctx context.Context, t *Transfer) error
	Get(ctx context.Context, id string) (*Transfer, error)
	List(ctx context.Context, userKey string) ([]*Transfer, error)
	ListDue(ctx context.Context, now int64, limit int) ([]*Transfer, error)
	Cancel(ctx context.Context, id, userKey string) error
	MarkCompleted(ctx context.Context, id, txHash string) error
	MarkFailed(ctx context.Context, id, reason string) error
	Close() error
}
