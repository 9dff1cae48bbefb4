package draft

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"time"

	"celo-nlte/internal/nlp"
	"celo-nlte/internal/token"
	"celo-nlte/pkg/logger"
)

// Validation issue codes. Errors block submission; warnings never do.
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeInvalidRecipient    = "INVALID_RECIPIENT"
	CodeStakingNotSupported = "STAKING_NOT_SUPPORTED"
	CodeInvalidStakeToken   = "INVALID_STAKE_TOKEN"
	CodeInvalidDuration     = "INVALID_DURATION"
	CodeRewardsNotSupported = "REWARDS_NOT_SUPPORTED"
	CodeNoRewards           = "NO_REWARDS"
	CodeSwapNotSupported    = "SWAP_NOT_SUPPORTED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeLowBalance          = "LOW_BALANCE"
	CodeBalanceCheckFailed  = "BALANCE_CHECK_FAILED"
)

// allowedStakeDurations are the preset lock periods in days; 0 is flexible.
var allowedStakeDurations = []int{0, 30, 90, 180, 365}

// Validator runs every rule applicable to a draft and merges the findings.
// Rules have no ordering dependency between each other. External reads go
// through bounded probes so a slow collaborator degrades the result instead
// of stalling it.
type Validator struct {
	balances       BalanceOracle
	rewards        RewardOracle
	features       Features
	balanceTimeout time.Duration
	rewardTimeout  time.Duration
	log            *slog.Logger
}

// ValidatorOption mutates a Validator.
type ValidatorOption func(*Validator)

// WithBalanceTimeout bounds the balance probe.
func WithBalanceTimeout(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		if d > 0 {
			v.balanceTimeout = d
		}
	}
}

// WithRewardTimeout bounds the pending-reward probe.
func WithRewardTimeout(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		if d > 0 {
			v.rewardTimeout = d
		}
	}
}

// NewValidator wires a Validator. Nil oracles degrade the corresponding
// probes rather than disabling the rules.
func NewValidator(balances BalanceOracle, rewards RewardOracle, features Features, opts ...ValidatorOption) *Validator {
	v := &Validator{
		balances:       balances,
		rewards:        rewards,
		features:       features,
		balanceTimeout: 2 * time.Second,
		rewardTimeout:  2 * time.Second,
		log:            logger.Named("validator"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate runs all rules against the draft and returns the merged result.
func (v *Validator) Validate(ctx context.Context, d *Draft) ValidationResult {
	var errs, warnings []Issue

	// Amount: required positive decimal except for claims.
	if d.Intent != nlp.IntentClaimRewards && !token.IsValidAmount(d.Amount) {
		errs = append(errs, Issue{
			Code:    CodeInvalidAmount,
			Message: "transaction amount must be greater than 0",
			Field:   "amount",
		})
	}

	// Token: one of the four known tokens.
	if !token.IsSupported(d.Token) {
		errs = append(errs, Issue{
			Code:    CodeInvalidToken,
			Message: fmt.Sprintf("unsupported token: %s", d.Token),
			Field:   "token",
		})
	}

	if d.Intent == nlp.IntentSend {
		errs = append(errs, v.checkRecipient(d)...)
	}
	if d.Intent == nlp.IntentSwap {
		errs = append(errs, v.checkSwap(d)...)
	}
	if d.Intent == nlp.IntentStake {
		stakeErrs, stakeWarnings := v.checkStake(d)
		errs = append(errs, stakeErrs...)
		warnings = append(warnings, stakeWarnings...)
	}
	if d.Intent == nlp.IntentClaimRewards {
		claimErrs, claimWarnings := v.checkClaim(ctx, d)
		errs = append(errs, claimErrs...)
		warnings = append(warnings, claimWarnings...)
	}

	// Balance sufficiency applies to everything that spends.
	if d.Intent != nlp.IntentClaimRewards {
		balanceErrs, balanceWarnings := v.checkBalance(ctx, d)
		errs = append(errs, balanceErrs...)
		warnings = append(warnings, balanceWarnings...)
	}

	return ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

func (v *Validator) checkRecipient(d *Draft) []Issue {
	if d.To == "" {
		return []Issue{{
			Code:    CodeInvalidRecipient,
			Message: "recipient address is required",
			Field:   "to",
		}}
	}
	if !token.IsValidAddress(d.To) {
		// An unresolved contact name is indistinguishable from free text
		// here; the message points the user at both fixes.
		return []Issue{{
			Code:    CodeInvalidRecipient,
			Message: fmt.Sprintf("%q is not a valid address; use a full 0x address or a saved contact name", d.To),
			Field:   "to",
		}}
	}
	return nil
}

func (v *Validator) checkSwap(d *Draft) []Issue {
	from, to := d.Metadata.FromToken, d.Metadata.ToToken
	if v.features != nil && from != "" && to != "" && !v.features.SwapSupported(from, to) {
		return []Issue{{
			Code:    CodeSwapNotSupported,
			Message: fmt.Sprintf("swapping %s for %s is not configured on this network", from, to),
			Field:   "intent",
		}}
	}
	return nil
}

func (v *Validator) checkStake(d *Draft) ([]Issue, []Issue) {
	var errs, warnings []Issue
	if v.features == nil || !v.features.StakingSupported() {
		errs = append(errs, Issue{
			Code:    CodeStakingNotSupported,
			Message: "staking contracts are not deployed on this network",
			Field:   "intent",
		})
	}
	if d.Token != token.Native {
		errs = append(errs, Issue{
			Code:    CodeInvalidStakeToken,
			Message: "only CELO can be staked",
			Field:   "token",
		})
	}
	if duration := d.Metadata.StakeDuration; duration != 0 && !isAllowedDuration(duration) {
		warnings = append(warnings, Issue{
			Code:    CodeInvalidDuration,
			Message: "recommended durations: 0 (flexible), 30, 90, 180 or 365 days",
			Field:   "stake_duration",
		})
	}
	return errs, warnings
}

func (v *Validator) checkClaim(ctx context.Context, d *Draft) ([]Issue, []Issue) {
	var errs, warnings []Issue
	if v.features == nil || !v.features.StakingSupported() {
		errs = append(errs, Issue{
			Code:    CodeRewardsNotSupported,
			Message: "rewards contracts are not deployed on this network",
			Field:   "intent",
		})
	}

	pending, ok := probe(ctx, v.rewardTimeout, func(ctx context.Context) (*big.Int, error) {
		if v.rewards == nil {
			return nil, fmt.Errorf("reward oracle not configured")
		}
		return v.rewards.PendingRewards(ctx, d.From)
	})
	if !ok {
		// A degraded reward probe is not worth surfacing; claiming with an
		// unknown pending balance is still valid.
		v.log.Debug("pending reward probe degraded", slog.String("from", token.ShortenAddress(d.From)))
		return errs, warnings
	}
	if pending == nil || pending.Sign() == 0 {
		warnings = append(warnings, Issue{
			Code:    CodeNoRewards,
			Message: "you have no pending rewards to claim",
			Field:   "amount",
		})
	}
	return errs, warnings
}

func (v *Validator) checkBalance(ctx context.Context, d *Draft) ([]Issue, []Issue) {
	balance, ok := probe(ctx, v.balanceTimeout, func(ctx context.Context) (string, error) {
		if v.balances == nil {
			return "", fmt.Errorf("balance oracle not configured")
		}
		return v.balances.Balance(ctx, d.From, d.Token)
	})
	if !ok {
		// Availability beats strict enforcement when the network is slow.
		return nil, []Issue{{
			Code:    CodeBalanceCheckFailed,
			Message: "could not verify balance (continuing anyway)",
		}}
	}

	available, err := strconv.ParseFloat(balance, 64)
	if err != nil {
		return nil, []Issue{{
			Code:    CodeBalanceCheckFailed,
			Message: "could not verify balance (continuing anyway)",
		}}
	}
	amount, err := strconv.ParseFloat(d.Amount, 64)
	if err != nil {
		// The amount rule already reported this.
		return nil, nil
	}

	var errs, warnings []Issue
	if available < amount {
		errs = append(errs, Issue{
			Code:    CodeInsufficientBalance,
			Message: fmt.Sprintf("insufficient %s balance, available: %s", d.Token, balance),
			Field:   "amount",
		})
	}
	if available < amount*1.1 {
		warnings = append(warnings, Issue{
			Code:    CodeLowBalance,
			Message: "low balance after transaction",
			Field:   "amount",
		})
	}
	return errs, warnings
}

func isAllowedDuration(duration int) bool {
	for _, allowed := range allowedStakeDurations {
		if duration == allowed {
			return true
		}
	}
	return false
}
