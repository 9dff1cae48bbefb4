package contact

import "context"

// Store abstracts per-user contact persistence so the resolver never
// depends on a concrete storage backend. Uniqueness is enforced
// case-insensitively on the address within a user's set.
type Store interface {
	List(ctx context.Context, userKey string) ([]Contact, error)
	Add(ctx context.Context, userKey string, c Contact) (Contact, error)
	Remove(ctx context.Context, userKey, id string) error
	Close() error
}
