package draft

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"celo-nlte/internal/nlp"
	"celo-nlte/internal/token"
	"celo-nlte/pkg/logger"
)

// Default gas placeholders used until a live quote replaces them. Staking
// and claiming call into contracts and get higher fixed limits.
var (
	defaultGasEstimate = GasEstimate{
		GasLimit:             "100000",
		MaxFeePerGas:         "5000000000",
		MaxPriorityFeePerGas: "1000000000",
		EstimatedCost:        "0.0005",
	}
	stakeGasEstimate = GasEstimate{
		GasLimit:             "150000",
		MaxFeePerGas:         "5000000000",
		MaxPriorityFeePerGas: "1000000000",
		EstimatedCost:        "0.00075",
	}
	claimGasEstimate = GasEstimate{
		GasLimit:             "120000",
		MaxFeePerGas:         "5000000000",
		MaxPriorityFeePerGas: "1000000000",
		EstimatedCost:        "0.0006",
	}
)

// Drafter assembles transaction drafts from parsed commands and attaches
// the validation verdict. Drafting never fails on business-rule violations;
// those land inside the returned draft.
type Drafter struct {
	validator  *Validator
	fees       FeeOracle
	gasTimeout time.Duration
	log        *slog.Logger
}

// DrafterOption mutates a Drafter.
type DrafterOption func(*Drafter)

// WithGasTimeout bounds the live fee probe.
func WithGasTimeout(d time.Duration) DrafterOption {
	return func(dr *Drafter) {
		if d > 0 {
			dr.gasTimeout = d
		}
	}
}

// NewDrafter wires a Drafter. A nil fee oracle leaves placeholders in
// place, which keeps drafting usable offline.
func NewDrafter(validator *Validator, fees FeeOracle, opts ...DrafterOption) *Drafter {
	dr := &Drafter{
		validator:  validator,
		fees:       fees,
		gasTimeout: 3 * time.Second,
		log:        logger.Named("drafter"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(dr)
		}
	}
	return dr
}

// Draft builds a validated transaction draft for the parsed command.
func (dr *Drafter) Draft(ctx context.Context, parsed nlp.ParsedCommand, fromAddress string) *Draft {
	params := parsed.Parameters

	tok := params.Token
	if tok == "" {
		tok = token.Normalize("")
	}
	amount := params.Amount
	if amount == "" {
		amount = "0"
	}

	d := &Draft{
		ID:          fmt.Sprintf("tx_%s", uuid.NewString()),
		Intent:      parsed.Intent,
		From:        fromAddress,
		To:          params.Recipient,
		Token:       tok,
		Amount:      amount,
		GasEstimate: defaultGasEstimate,
		Metadata: Metadata{
			RecipientName: params.RecipientName,
			FromToken:     params.FromToken,
			ToToken:       params.ToToken,
			StakeDuration: params.StakeDuration,
		},
		Timestamp: time.Now().UnixMilli(),
	}
	if params.ToToken != "" {
		// Placeholder rate until a swap quote collaborator exists.
		d.Metadata.SwapRate = "1.0"
	}

	if dr.validator != nil {
		d.Validation = dr.validator.Validate(ctx, d)
	} else {
		d.Validation = ValidationResult{IsValid: true}
	}

	// Best-effort gas refinement only for drafts that passed validation. A
	// degraded quote keeps the placeholder and never invalidates the draft.
	if len(d.Validation.Errors) == 0 {
		dr.refineGas(ctx, d)
	}
	return d
}

func (dr *Drafter) refineGas(ctx context.Context, d *Draft) {
	switch d.Intent {
	case nlp.IntentSend:
		estimate, ok := probe(ctx, dr.gasTimeout, func(ctx context.Context) (GasEstimate, error) {
			if dr.fees == nil {
				return GasEstimate{}, fmt.Errorf("fee oracle not configured")
			}
			return dr.fees.EstimateTransferGas(ctx, d.From, d.To, d.Amount, d.Token)
		})
		if !ok {
			dr.log.Warn("gas estimation degraded, keeping placeholder",
				slog.String("draft_id", d.ID),
				slog.String("token", string(d.Token)),
			)
			return
		}
		d.GasEstimate = estimate
	case nlp.IntentStake:
		d.GasEstimate = stakeGasEstimate
	case nlp.IntentClaimRewards:
		d.GasEstimate = claimGasEstimate
	}
}
