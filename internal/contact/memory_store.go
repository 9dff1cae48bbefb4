package contact

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps contacts in process memory, mainly for tests and the
// default single-node setup.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts map[string][]Contact
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{contacts: make(map[string][]Contact)}
}

// List returns the contacts stored for userKey.
func (m *MemoryStore) List(_ context.Context, userKey string) ([]Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.contacts[normalizeUserKey(userKey)]
	results := make([]Contact, len(stored))
	copy(results, stored)
	return results, nil
}

// Add stores a contact, rejecting duplicate addresses within the user's set.
func (m *MemoryStore) Add(_ context.Context, userKey string, c Contact) (Contact, error) {
	if err := validateContact(c); err != nil {
		return Contact{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeUserKey(userKey)
	for _, existing := range m.contacts[key] {
		if strings.EqualFold(existing.Address, c.Address) {
			return Contact{}, ErrDuplicateAddress
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	m.contacts[key] = append(m.contacts[key], c)
	return c, nil
}

// Remove deletes a contact by id.
func (m *MemoryStore) Remove(_ context.Context, userKey, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := normalizeUserKey(userKey)
	stored := m.contacts[key]
	for i, existing := range stored {
		if existing.ID == id {
			m.contacts[key] = append(stored[:i], stored[i+1:]...)
			return nil
		}
	}
	return ErrContactNotFound
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

func normalizeUserKey(userKey string) string {
	return strings.ToLower(strings.TrimSpace(userKey))
}
