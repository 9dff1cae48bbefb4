package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/token"
	"celo-nlte/pkg/logger"
)

// ScheduleRequest captures what a scheduled SEND command resolved to.
// AutoApproved left nil defaults to true; a scheduled transfer the user
// would still have to approve at fire time is rarely what they asked for.
type ScheduleRequest struct {
	UserKey       string      `json:"user_key"`
	Recipient     string      `json:"recipient"`
	RecipientName string      `json:"recipient_name,omitempty"`
	Amount        string      `json:"amount"`
	Token         token.Token `json:"token"`
	ScheduledTime int64       `json:"scheduled_time"`
	AutoApproved  *bool       `json:"auto_approved,omitempty"`
}

// Service owns the scheduled transfer lifecycle up to dispatch.
type Service struct {
	store Store
	now   func() time.Time
	log   *slog.Logger
}

// ServiceOption mutates a Service.
type ServiceOption func(*Service)

// WithServiceClock injects a clock for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires a Service on top of a store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		log:   logger.Named("transfer"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Schedule validates the request and persists a pending transfer.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) (*Transfer, error) {
	if strings.TrimSpace(req.UserKey) == "" {
		return nil, xerrors.New(CodeTransferValidation, "user key is required")
	}
	if !token.IsValidAddress(req.Recipient) {
		return nil, xerrors.New(CodeTransferValidation,
			fmt.Sprintf("recipient %q is not a valid address", req.Recipient))
	}
	if !token.IsValidAmount(req.Amount) {
		return nil, xerrors.New(CodeTransferValidation, "amount must be greater than 0")
	}
	if !token.IsSupported(req.Token) {
		return nil, xerrors.New(CodeTransferValidation, fmt.Sprintf("unsupported token: %s", req.Token))
	}
	if req.ScheduledTime <= s.now().UnixMilli() {
		return nil, xerrors.New(CodeTransferValidation, "scheduled time must be in the future")
	}

	autoApproved := true
	if req.AutoApproved != nil {
		autoApproved = *req.AutoApproved
	}

	t := &Transfer{
		ID:            fmt.Sprintf("st_%s", uuid.NewString()),
		UserKey:       req.UserKey,
		Recipient:     req.Recipient,
		RecipientName: req.RecipientName,
		Amount:        req.Amount,
		Token:         req.Token,
		ScheduledTime: req.ScheduledTime,
		Status:        StatusPending,
		AutoApproved:  autoApproved,
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.Info("transfer scheduled",
		slog.String("transfer_id", t.ID),
		slog.String("token", string(t.Token)),
		slog.String("amount", t.Amount),
		slog.Int64("scheduled_time", t.ScheduledTime),
	)
	return t, nil
}

// RecordOutcome applies a worker-reported terminal status to a pending
// transfer. Only completed and failed are accepted; the conditional store
// update rejects a second writer with ErrTransferConflict.
func (s *Service) RecordOutcome(ctx context.Context, id string, status Status, txHash, reason string) error {
	switch status {
	case StatusCompleted:
		if strings.TrimSpace(txHash) == "" {
			return xerrors.New(CodeTransferValidation, "tx_hash is required for a completed transfer")
		}
		if err := s.store.MarkCompleted(ctx, id, txHash); err != nil {
			return err
		}
	case StatusFailed:
		if err := s.store.MarkFailed(ctx, id, reason); err != nil {
			return err
		}
	default:
		return xerrors.New(CodeTransferValidation,
			fmt.Sprintf("status %q is not a terminal outcome", status))
	}
	s.log.Info("transfer outcome recorded",
		slog.String("transfer_id", id),
		slog.String("status", string(status)),
	)
	return nil
}

// List returns the user's transfers, earliest first.
func (s *Service) List(ctx context.Context, userKey string) ([]*Transfer, error) {
	return s.store.List(ctx, userKey)
}

// Get returns one transfer, enforcing ownership.
func (s *Service) Get(ctx context.Context, id, userKey string) (*Transfer, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.UserKey != userKey {
		return nil, ErrTransferNotFound
	}
	return t, nil
}

// Cancel aborts a pending transfer owned by the user.
func (s *Service) Cancel(ctx context.Context, id, userKey string) error {
	if err := s.store.Cancel(ctx, id, userKey); err != nil {
		return err
	}
	s.log.Info("transfer cancelled", slog.String("transfer_id", id))
	return nil
}
