package transfer

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	xerrors "celo-nlte/internal/errors"
	mysqlstorage "celo-nlte/internal/storage/mysql"
	"celo-nlte/internal/token"
)

// MySQLStore persists scheduled transfers in MySQL.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens the pool and applies pending schema migrations.
func NewMySQLStore(ctx context.Context, dsn string) (*MySQLStore, error) {
	db, err := mysqlstorage.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := mysqlstorage.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &MySQLStore{db: db}, nil
}

const transferColumns = `id, user_key, recipient, recipient_name, amount, token,
        scheduled_time, status, auto_approved, tx_hash, COALESCE(last_error, ''), created_at, updated_at`

// Create inserts a new transfer record.
func (s *MySQLStore) Create(ctx context.Context, t *Transfer) error {
	if t == nil || strings.TrimSpace(t.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "transfer id is required")
	}

	now := time.Now().UnixMilli()
	t.CreatedAt = now
	t.UpdatedAt = now

	const stmt = `INSERT INTO scheduled_transfers
        (id, user_key, recipient, recipient_name, amount, token, scheduled_time, status, auto_approved, tx_hash, last_error, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, '', '', ?, ?)`

	_, err := s.db.ExecContext(ctx, stmt,
		t.ID,
		t.UserKey,
		t.Recipient,
		t.RecipientName,
		t.Amount,
		string(t.Token),
		t.ScheduledTime,
		string(t.Status),
		t.AutoApproved,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return ErrTransferConflict
		}
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "insert transfer")
	}
	return nil
}

// Get returns the transfer with the given ID.
func (s *MySQLStore) Get(ctx context.Context, id string) (*Transfer, error) {
	const stmt = `SELECT ` + transferColumns + ` FROM scheduled_transfers WHERE id = ?`
	return scanTransfer(s.db.QueryRowContext(ctx, stmt, id))
}

// List returns the user's transfers ordered by scheduled time ascending.
func (s *MySQLStore) List(ctx context.Context, userKey string) ([]*Transfer, error) {
	const stmt = `SELECT ` + transferColumns + ` FROM scheduled_transfers
        WHERE user_key = ? ORDER BY scheduled_time ASC, created_at ASC`

	rows, err := s.db.QueryContext(ctx, stmt, userKey)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "list transfers")
	}
	defer rows.Close()
	return collectTransfers(rows)
}

// ListDue returns pending auto-approved transfers due at or before now.
func (s *MySQLStore) ListDue(ctx context.Context, now int64, limit int) ([]*Transfer, error) {
	if limit <= 0 {
		limit = 100
	}
	const stmt = `SELECT ` + transferColumns + ` FROM scheduled_transfers
        WHERE status = ? AND auto_approved = 1 AND scheduled_time <= ?
        ORDER BY scheduled_time ASC, created_at ASC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, stmt, string(StatusPending), now, limit)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "list due transfers")
	}
	defer rows.Close()
	return collectTransfers(rows)
}

// Cancel moves a pending transfer owned by the user to cancelled.
func (s *MySQLStore) Cancel(ctx context.Context, id, userKey string) error {
	const stmt = `UPDATE scheduled_transfers SET status = ?, updated_at = ?
        WHERE id = ? AND user_key = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, stmt,
		string(StatusCancelled),
		time.Now().UnixMilli(),
		id,
		userKey,
		string(StatusPending),
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "cancel transfer")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		t, getErr := s.Get(ctx, id)
		if getErr != nil || t.UserKey != userKey {
			return ErrTransferNotFound
		}
		return ErrTransferConflict
	}
	return nil
}

// MarkCompleted records the broadcast hash on a pending transfer.
func (s *MySQLStore) MarkCompleted(ctx context.Context, id, txHash string) error {
	return s.finish(ctx, id, StatusCompleted, txHash, "")
}

// MarkFailed records the failure reason on a pending transfer.
func (s *MySQLStore) MarkFailed(ctx context.Context, id, reason string) error {
	return s.finish(ctx, id, StatusFailed, "", reason)
}

func (s *MySQLStore) finish(ctx context.Context, id string, status Status, txHash, reason string) error {
	const stmt = `UPDATE scheduled_transfers SET status = ?, tx_hash = ?, last_error = ?, updated_at = ?
        WHERE id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, stmt,
		string(status),
		txHash,
		reason,
		time.Now().UnixMilli(),
		id,
		string(StatusPending),
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "finish transfer")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return ErrTransferNotFound
		}
		return ErrTransferConflict
	}
	return nil
}

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransfer(row rowScanner) (*Transfer, error) {
	var t Transfer
	var tok string
	var status string
	if err := row.Scan(
		&t.ID,
		&t.UserKey,
		&t.Recipient,
		&t.RecipientName,
		&t.Amount,
		&tok,
		&t.ScheduledTime,
		&status,
		&t.AutoApproved,
		&t.TxHash,
		&t.LastError,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransferNotFound
		}
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan transfer")
	}
	t.Token = token.Token(tok)
	t.Status = Status(status)
	return &t, nil
}

func collectTransfers(rows *sql.Rows) ([]*Transfer, error) {
	out := make([]*Transfer, 0)
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "iterate transfers")
	}
	return out, nil
}

var _ Store = (*MySQLStore)(nil)
