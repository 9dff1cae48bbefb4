package nlp

import "celo-nlte/internal/token"

// Intent is the category of action a parsed command requests.
type Intent string

const (
	IntentSend         Intent = "SEND"
	IntentSwap         Intent = "SWAP"
	IntentStake        Intent = "STAKE"
	IntentClaimRewards Intent = "CLAIM_REWARDS"
	IntentUnknown      Intent = "UNKNOWN"
)

// Command is the raw natural-language input. Immutable once received.
type Command struct {
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
}

// Parameters carries everything extracted from a matched command. The set
// serializes to a flat JSON object; fields absent from the match are omitted.
type Parameters struct {
	Amount        string      `json:"amount,omitempty"`
	Token         token.Token `json:"token,omitempty"`
	Recipient     string      `json:"recipient,omitempty"`
	RecipientName string      `json:"recipient_name,omitempty"`
	FromToken     token.Token `json:"from_token,omitempty"`
	ToToken       token.Token `json:"to_token,omitempty"`
	StakeDuration int         `json:"stake_duration,omitempty"`
	ScheduledTime int64       `json:"scheduled_time,omitempty"`
	IsScheduled   bool        `json:"is_scheduled,omitempty"`
}

// ParsedCommand is the immutable result of one parse call. Confidence is a
// hand-tuned per-pattern constant, 0 exactly when the intent is UNKNOWN.
type ParsedCommand struct {
	Intent     Intent     `json:"intent"`
	Parameters Parameters `json:"parameters"`
	Confidence float64    `json:"confidence"`
	RawCommand string     `json:"raw_command"`
}

// Unknown is the parse-miss result for the given text. A miss is not an
// error. RawCommand carries the same normalized form a match would, so
// both branches echo the command identically.
func Unknown(text string) ParsedCommand {
	return ParsedCommand{
		Intent:     IntentUnknown,
		Parameters: Parameters{},
		Confidence: 0,
		RawCommand: Normalized(text),
	}
}
