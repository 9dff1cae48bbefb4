package contact

import (
	"context"
	"log/slog"
	"strings"

	"celo-nlte/internal/token"
	"celo-nlte/pkg/logger"
)

// Resolver maps human names onto stored addresses. Input that is already
// address-shaped is returned unchanged without touching the store; a miss
// also returns the input unchanged, leaving validation to flag it.
type Resolver struct {
	store Store
	log   *slog.Logger
}

// NewResolver builds a Resolver over the given store.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, log: logger.Named("contact")}
}

// Resolve returns the address for nameOrAddress. The second return value
// reports whether a contact lookup produced the result.
func (r *Resolver) Resolve(ctx context.Context, nameOrAddress, userKey string) (string, bool) {
	if nameOrAddress == "" {
		return "", false
	}
	if token.IsValidAddress(nameOrAddress) {
		return nameOrAddress, false
	}
	if r == nil || r.store == nil || strings.TrimSpace(userKey) == "" {
		return nameOrAddress, false
	}

	wanted := strings.ToLower(strings.TrimSpace(nameOrAddress))
	contacts, err := r.store.List(ctx, userKey)
	if err != nil {
		r.log.Warn("contact lookup failed",
			slog.Any("error", err),
			slog.String("user", token.ShortenAddress(userKey)),
		)
		return nameOrAddress, false
	}
	for _, c := range contacts {
		if strings.ToLower(strings.TrimSpace(c.Name)) == wanted {
			return c.Address, true
		}
	}
	return nameOrAddress, false
}
