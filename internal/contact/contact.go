package contact

import (
	"fmt"
	"strings"

	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/token"
)

// Contact is a user-scoped alias for an address. Contacts are keyed by the
// owning wallet address; there is no global registry.
type Contact struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	CreatedAt int64  `json:"created_at"`
}

var (
	// ErrContactNotFound indicates the contact does not exist for the user.
	ErrContactNotFound = xerrors.New(CodeContactNotFound, "contact not found")
	// ErrDuplicateAddress indicates the user already stores this address.
	ErrDuplicateAddress = xerrors.New(CodeDuplicateAddress, "address already saved for this user")
)

const (
	CodeContactNotFound  xerrors.Code = "CONTACT_NOT_FOUND"
	CodeDuplicateAddress xerrors.Code = "CONTACT_DUPLICATE_ADDRESS"
)

func init() {
	xerrors.Register(CodeContactNotFound, xerrors.Attributes{
		Message:  "contact not found",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeDuplicateAddress, xerrors.Attributes{
		Message:  "address already saved for this user",
		Severity: xerrors.SeverityInfo,
	})
}

// validateContact rejects a contact before it reaches any store. A
// malformed address saved here would surface much later, inside a draft
// or a scheduled transfer, so both stores gate on it at save time.
func validateContact(c Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return xerrors.New(xerrors.CodeInvalidArgument, "contact name cannot be empty")
	}
	if !token.IsValidAddress(c.Address) {
		return xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("contact address %q is not a valid address", c.Address))
	}
	return nil
}
