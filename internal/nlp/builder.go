package nlp

import (
	"context"
	"log/slog"
	"strconv"

	"celo-nlte/internal/contact"
	"celo-nlte/internal/schedule"
	"celo-nlte/internal/token"
	"celo-nlte/pkg/logger"
)

// Builder turns a pattern match into a structured ParsedCommand, pulling in
// the token normalizer, the contact resolver and the schedule calculator.
type Builder struct {
	resolver *contact.Resolver
	calc     *schedule.Calculator
	log      *slog.Logger
}

// NewBuilder wires a Builder. Either collaborator may be nil; a nil
// resolver always misses and a nil calculator is replaced with the default.
func NewBuilder(resolver *contact.Resolver, calc *schedule.Calculator) *Builder {
	if calc == nil {
		calc = schedule.NewCalculator()
	}
	return &Builder{resolver: resolver, calc: calc, log: logger.Named("nlp")}
}

// Build produces the ParsedCommand for a successful match. userKey scopes
// contact resolution; an empty key yields an always-miss resolver.
func (b *Builder) Build(ctx context.Context, text string, m Match, userKey string) ParsedCommand {
	normalized := Normalized(text)
	params := Parameters{}
	confidence := m.confidence

	switch m.shape {
	case shapeSendScheduledRelative, shapeSendScheduledDate:
		params.Amount = m.Groups[1]
		params.Token = token.Normalize(m.Groups[2])
		params.Recipient, params.RecipientName = b.resolveRecipient(ctx, m.Groups[3], userKey)

		ts, err := b.resolveSchedule(m)
		if err != nil {
			// Unresolvable clause (e.g. month 13): degrade to an immediate
			// send rather than dropping the command.
			b.log.Warn("schedule clause ignored", slog.String("text", normalized), slog.Any("error", err))
			confidence = 0.85
			break
		}
		params.ScheduledTime = ts
		params.IsScheduled = true

	case shapeSendImmediate:
		params.Amount = m.Groups[1]
		params.Token = token.Normalize(m.Groups[2])
		params.Recipient, params.RecipientName = b.resolveRecipient(ctx, m.Groups[3], userKey)

	case shapeSendReordered:
		params.Recipient, params.RecipientName = b.resolveRecipient(ctx, m.Groups[1], userKey)
		params.Amount = m.Groups[2]
		params.Token = token.Normalize(m.Groups[3])

	case shapeSwap:
		params.Amount = m.Groups[1]
		params.FromToken = token.Normalize(m.Groups[2])
		params.ToToken = token.Normalize(m.Groups[3])

	case shapeStakeDuration:
		params.Amount = m.Groups[1]
		params.Token = token.Normalize(m.Groups[2])
		if days, err := strconv.Atoi(m.Groups[3]); err == nil {
			params.StakeDuration = days
		}

	case shapeStake:
		params.Amount = m.Groups[1]
		params.Token = token.Normalize(m.Groups[2])

	case shapeClaim:
		// No parameters to extract.
	}

	return ParsedCommand{
		Intent:     m.Intent,
		Parameters: params,
		Confidence: confidence,
		RawCommand: normalized,
	}
}

// resolveRecipient maps a captured name through the contact store. The
// second value carries the human name only when a contact lookup resolved
// it, so drafts can show "Alice" next to the address.
func (b *Builder) resolveRecipient(ctx context.Context, raw, userKey string) (string, string) {
	if b.resolver == nil {
		return raw, ""
	}
	address, resolved := b.resolver.Resolve(ctx, raw, userKey)
	if resolved {
		return address, raw
	}
	return address, ""
}

func (b *Builder) resolveSchedule(m Match) (int64, error) {
	hour, err := strconv.Atoi(m.Groups[5])
	if err != nil {
		return 0, err
	}
	minute := 0
	if m.Groups[6] != "" {
		if minute, err = strconv.Atoi(m.Groups[6]); err != nil {
			return 0, err
		}
	}
	meridiem := m.Groups[7]

	if m.shape == shapeSendScheduledDate {
		return b.calc.ResolveDate(m.Groups[4], hour, minute, meridiem)
	}
	return b.calc.ResolveRelative(m.Groups[4], hour, minute, meridiem)
}
