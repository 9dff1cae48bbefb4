package draft

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"celo-nlte/internal/nlp"
	"celo-nlte/internal/token"
)

// GasEstimate mirrors an EIP-1559 fee quote. All values are decimal strings;
// EstimatedCost is denominated in the native token.
type GasEstimate struct {
	GasLimit             string `json:"gas_limit"`
	MaxFeePerGas         string `json:"max_fee_per_gas"`
	MaxPriorityFeePerGas string `json:"max_priority_fee_per_gas"`
	EstimatedCost        string `json:"estimated_cost"`
}

// Issue is one validation finding. The same shape serves blocking errors
// and non-blocking warnings.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ValidationResult aggregates all rule findings for a draft. IsValid is
// exactly "no errors"; warnings never affect it.
type ValidationResult struct {
	IsValid  bool    `json:"is_valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Metadata carries intent-specific extras for display and execution.
type Metadata struct {
	RecipientName string      `json:"recipient_name,omitempty"`
	FromToken     token.Token `json:"from_token,omitempty"`
	ToToken       token.Token `json:"to_token,omitempty"`
	SwapRate      string      `json:"swap_rate,omitempty"`
	StakeDuration int         `json:"stake_duration,omitempty"`
}

// Draft is a fully populated, validated, not-yet-submitted transaction.
// Callers rebuild rather than mutate once validation is attached.
type Draft struct {
	ID          string           `json:"id"`
	Intent      nlp.Intent       `json:"intent"`
	From        string           `json:"from"`
	To          string           `json:"to,omitempty"`
	Token       token.Token      `json:"token"`
	Amount      string           `json:"amount"`
	GasEstimate GasEstimate      `json:"gas_estimate"`
	Metadata    Metadata         `json:"metadata"`
	Validation  ValidationResult `json:"validation"`
	Timestamp   int64            `json:"timestamp"`
}

// BalanceOracle reports a user's token balance as a plain decimal string.
type BalanceOracle interface {
	Balance(ctx context.Context, address string, tok token.Token) (string, error)
}

// FeeOracle quotes live network fees for a transfer.
type FeeOracle interface {
	EstimateTransferGas(ctx context.Context, from, to, amount string, tok token.Token) (GasEstimate, error)
}

// RewardOracle reports pending staking rewards in the smallest unit.
type RewardOracle interface {
	PendingRewards(ctx context.Context, address string) (*big.Int, error)
}

// Features exposes what the connected network configuration supports.
type Features interface {
	StakingSupported() bool
	SwapSupported(from, to token.Token) bool
}

// Description renders a draft as one human-readable sentence.
func Description(d *Draft) string {
	switch d.Intent {
	case nlp.IntentSend:
		to := d.To
		if to == "" {
			to = "unknown"
		}
		return fmt.Sprintf("Send %s %s to %s", d.Amount, d.Token, to)
	case nlp.IntentSwap:
		return fmt.Sprintf("Swap %s %s for %s", d.Amount, d.Metadata.FromToken, d.Metadata.ToToken)
	case nlp.IntentStake:
		if d.Metadata.StakeDuration > 0 {
			return fmt.Sprintf("Stake %s %s for %d days", d.Amount, d.Token, d.Metadata.StakeDuration)
		}
		return fmt.Sprintf("Stake %s %s", d.Amount, d.Token)
	case nlp.IntentClaimRewards:
		return "Claim pending rewards"
	default:
		return "Unknown transaction"
	}
}

// TotalCost sums amount and gas in the native token. For stablecoin
// transfers only the gas leg is native.
func TotalCost(d *Draft) string {
	gas, err := strconv.ParseFloat(d.GasEstimate.EstimatedCost, 64)
	if err != nil {
		gas = 0
	}
	if d.Token == token.Native {
		amount, err := strconv.ParseFloat(d.Amount, 64)
		if err != nil {
			amount = 0
		}
		return strconv.FormatFloat(amount+gas, 'f', 6, 64)
	}
	return strconv.FormatFloat(gas, 'f', 6, 64)
}
