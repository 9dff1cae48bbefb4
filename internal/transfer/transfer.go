package transfer

import (
	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/token"
)

// Status tracks a scheduled transfer through its lifecycle. There is no
// intermediate running state; a transfer stays pending until the worker
// reports the terminal outcome.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Transfer is one queued future transfer captured from a scheduled command.
type Transfer struct {
	ID            string      `json:"id"`
	UserKey       string      `json:"user_key"`
	Recipient     string      `json:"recipient"`
	RecipientName string      `json:"recipient_name,omitempty"`
	Amount        string      `json:"amount"`
	Token         token.Token `json:"token"`
	ScheduledTime int64       `json:"scheduled_time"`
	Status        Status      `json:"status"`
	AutoApproved  bool        `json:"auto_approved"`
	TxHash        string      `json:"tx_hash,omitempty"`
	LastError     string      `json:"last_error,omitempty"`
	CreatedAt     int64       `json:"created_at"`
	UpdatedAt     int64       `json:"updated_at"`
}

var (
	// ErrTransferNotFound marks a lookup for an unknown transfer ID.
	ErrTransferNotFound = xerrors.New(CodeTransferNotFound, "scheduled transfer not found")
	// ErrTransferConflict marks a state change the current status forbids.
	ErrTransferConflict = xerrors.New(CodeTransferConflict, "transfer not in a modifiable state")
)

const (
	CodeTransferNotFound   xerrors.Code = "TRANSFER_NOT_FOUND"
	CodeTransferConflict   xerrors.Code = "TRANSFER_CONFLICT"
	CodeTransferValidation xerrors.Code = "TRANSFER_VALIDATION_FAILED"
	CodeTransferPublish    xerrors.Code = "TRANSFER_PUBLISH_FAILED"
	CodeTransferExecution  xerrors.Code = "TRANSFER_EXECUTION_FAILED"
)

func init() {
	xerrors.Register(CodeTransferNotFound, xerrors.Attributes{
		Message:  "scheduled transfer not found",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeTransferConflict, xerrors.Attributes{
		Message:  "transfer not in a modifiable state",
		Severity: xerrors.SeverityWarning,
	})
	xerrors.Register(CodeTransferValidation, xerrors.Attributes{
		Message:  "transfer validation failed",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeTransferPublish, xerrors.Attributes{
		Message:   "failed to publish transfer",
		Severity:  xerrors.SeverityCritical,
		Retryable: true,
	})
	xerrors.Register(CodeTransferExecution, xerrors.Attributes{
		Message:   "transfer execution failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
	})
}

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsValidStatus checks the status against the supported enum.
func IsValidStatus(status Status) bool {
	switch status {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}
