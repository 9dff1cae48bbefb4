package nlp

import (
	"fmt"
	"math"
)

// Describe renders a parsed command as one human-readable sentence.
func Describe(parsed ParsedCommand) string {
	p := parsed.Parameters
	switch parsed.Intent {
	case IntentSend:
		recipient := p.Recipient
		if p.RecipientName != "" {
			recipient = fmt.Sprintf("%s (%s)", p.RecipientName, p.Recipient)
		}
		return fmt.Sprintf("Send %s %s to %s", p.Amount, p.Token, recipient)
	case IntentSwap:
		return fmt.Sprintf("Swap %s %s for %s", p.Amount, p.FromToken, p.ToToken)
	case IntentStake:
		if p.StakeDuration > 0 {
			return fmt.Sprintf("Stake %s %s for %d days", p.Amount, p.Token, p.StakeDuration)
		}
		return fmt.Sprintf("Stake %s %s", p.Amount, p.Token)
	case IntentClaimRewards:
		return "Claim pending rewards"
	default:
		return "Unknown transaction"
	}
}

// ConfidencePercent converts the confidence score to a 0-100 integer.
func ConfidencePercent(parsed ParsedCommand) int {
	return int(math.Round(parsed.Confidence * 100))
}
