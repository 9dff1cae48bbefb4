package contact

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "celo-nlte/internal/errors"
	mysqlstorage "celo-nlte/internal/storage/mysql"
)

// MySQLStore persists contacts in MySQL.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool and applies pending schema
// migrations.
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

// List implements Store.
func (s *MySQLStore) List(ctx context.Context, userKey string) ([]Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, created_at FROM contacts WHERE user_key = ? ORDER BY created_at ASC`,
		normalizeUserKey(userKey),
	)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "list contacts")
	}
	defer rows.Close()

	var results []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Name, &c.Address, &c.CreatedAt); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "scan contact")
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeStorageFailure, err, "iterate contacts")
	}
	return results, nil
}

// Add implements Store.
func (s *MySQLStore) Add(ctx context.Context, userKey string, c Contact) (Contact, error) {
	if err := validateContact(c); err != nil {
		return Contact{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, user_key, name, address, address_lower, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, normalizeUserKey(userKey), c.Name, c.Address, strings.ToLower(c.Address), c.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return Contact{}, ErrDuplicateAddress
		}
		return Contact{}, xerrors.Wrap(xerrors.CodeStorageFailure, err, "insert contact")
	}
	return c, nil
}

// Remove implements Store.
func (s *MySQLStore) Remove(ctx context.Context, userKey, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE user_key = ? AND id = ?`,
		normalizeUserKey(userKey), id,
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "delete contact")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeStorageFailure, err, "rows affected")
	}
	if affected == 0 {
		return ErrContactNotFound
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

func isDuplicateKey(err error) bool {
	// MySQL error 1062; matching on the message keeps the driver dependency
	// surface small.
	return err != nil && strings.Contains(err.Error(), "Error 1062")
}
