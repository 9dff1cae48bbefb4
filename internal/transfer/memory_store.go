package transfer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	xerrors "celo-nlte/internal/errors"
)

// MemoryStore keeps scheduled transfers in process memory. It backs tests
// and single-node deployments without MySQL.
type MemoryStore struct {
	mu        sync.RWMutex
	transfers map[string]*Transfer
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{transfers: make(map[string]*Transfer)}
}

// Create inserts a new transfer record.
func (s *MemoryStore) Create(_ context.Context, t *Transfer) error {
	if t == nil || strings.TrimSpace(t.ID) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "transfer id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.transfers[t.ID]; exists {
		return ErrTransferConflict
	}
	now := time.Now().UnixMilli()
	t.CreatedAt = now
	t.UpdatedAt = now
	s.transfers[t.ID] = cloneTransfer(t)
	return nil
}

// Get returns a copy of the transfer.
func (s *MemoryStore) Get(_ context.Context, id string) (*Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, ErrTransferNotFound
	}
	return cloneTransfer(t), nil
}

// List returns the user's transfers ordered by scheduled time ascending.
func (s *MemoryStore) List(_ context.Context, userKey string) ([]*Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Transfer, 0)
	for _, t := range s.transfers {
		if t.UserKey == userKey {
			out = append(out, cloneTransfer(t))
		}
	}
	sortBySchedule(out)
	return out, nil
}

// ListDue returns pending auto-approved transfers due at or before now.
func (s *MemoryStore) ListDue(_ context.Context, now int64, limit int) ([]*Transfer, error) {
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	due := make([]*Transfer, 0)
	for _, t := range s.transfers {
		if t.Status == StatusPending && t.AutoApproved && t.ScheduledTime <= now {
			due = append(due, cloneTransfer(t))
		}
	}
	sortBySchedule(due)
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Cancel moves a pending transfer owned by the user to cancelled.
func (s *MemoryStore) Cancel(_ context.Context, id, userKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok || t.UserKey != userKey {
		return ErrTransferNotFound
	}
	if t.Status != StatusPending {
		return ErrTransferConflict
	}
	t.Status = StatusCancelled
	t.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// MarkCompleted records the broadcast hash on a pending transfer.
func (s *MemoryStore) MarkCompleted(_ context.Context, id, txHash string) error {
	return s.finish(id, StatusCompleted, txHash, "")
}

// MarkFailed records the failure reason on a pending transfer.
func (s *MemoryStore) MarkFailed(_ context.Context, id, reason string) error {
	return s.finish(id, StatusFailed, "", reason)
}

func (s *MemoryStore) finish(id string, status Status, txHash, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transfers[id]
	if !ok {
		return ErrTransferNotFound
	}
	if t.Status != StatusPending {
		return ErrTransferConflict
	}
	t.Status = status
	t.TxHash = txHash
	t.LastError = reason
	t.UpdatedAt = time.Now().UnixMilli()
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func cloneTransfer(t *Transfer) *Transfer {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

func sortBySchedule(transfers []*Transfer) {
	sort.SliceStable(transfers, func(i, j int) bool {
		if transfers[i].ScheduledTime != transfers[j].ScheduledTime {
			return transfers[i].ScheduledTime < transfers[j].ScheduledTime
		}
		return transfers[i].CreatedAt < transfers[j].CreatedAt
	})
}

var _ Store = (*MemoryStore)(nil)
