package nlp

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"celo-nlte/internal/contact"
	"celo-nlte/internal/schedule"
	"celo-nlte/internal/token"
)

const (
	testUser  = "0xAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaaaAaa1"
	aliceAddr = "0x1111111111111111111111111111111111111111"
)

func newTestBuilder(t *testing.T, withAlice bool) *Builder {
	t.Helper()
	store := contact.NewMemoryStore()
	if withAlice {
		if _, err := store.Add(context.Background(), testUser, contact.Contact{Name: "Alice", Address: aliceAddr}); err != nil {
			t.Fatalf("seed contact: %v", err)
		}
	}
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	calc := schedule.NewCalculator(
		schedule.WithClock(func() time.Time { return now }),
		schedule.WithLocation(time.UTC),
	)
	return NewBuilder(contact.NewResolver(store), calc)
}

func parse(t *testing.T, b *Builder, text, userKey string) ParsedCommand {
	t.Helper()
	match, ok := MatchText(text)
	if !ok {
		return Unknown(Normalized(text))
	}
	return b.Build(context.Background(), text, match, userKey)
}

func TestBuildSendWithoutContact(t *testing.T) {
	b := newTestBuilder(t, false)
	parsed := parse(t, b, "Send 100 cUSD to Alice", testUser)

	if parsed.Intent != IntentSend {
		t.Fatalf("intent = %s", parsed.Intent)
	}
	if parsed.Parameters.Amount != "100" {
		t.Fatalf("amount = %q", parsed.Parameters.Amount)
	}
	if parsed.Parameters.Token != token.CUSD {
		t.Fatalf("token = %q", parsed.Parameters.Token)
	}
	if parsed.Parameters.Recipient != "alice" {
		t.Fatalf("unresolved recipient should stay as typed, got %q", parsed.Parameters.Recipient)
	}
	if parsed.Confidence <= 0.8 {
		t.Fatalf("confidence = %v, want > 0.8", parsed.Confidence)
	}
}

func TestBuildSendResolvesContact(t *testing.T) {
	b := newTestBuilder(t, true)
	parsed := parse(t, b, "Send 100 cUSD to Alice", testUser)

	if parsed.Parameters.Recipient != aliceAddr {
		t.Fatalf("recipient = %q, want contact address", parsed.Parameters.Recipient)
	}
	if parsed.Parameters.RecipientName != "alice" {
		t.Fatalf("recipient name = %q", parsed.Parameters.RecipientName)
	}
}

func TestBuildScheduledSend(t *testing.T) {
	b := newTestBuilder(t, true)
	parsed := parse(t, b, "Send 1 CELO to Alice tomorrow at 3pm", testUser)

	if !parsed.Parameters.IsScheduled {
		t.Fatalf("expected scheduled send: %+v", parsed.Parameters)
	}
	want := time.Date(2026, time.March, 11, 15, 0, 0, 0, time.UTC).UnixMilli()
	if parsed.Parameters.ScheduledTime != want {
		t.Fatalf("scheduled time = %d, want %d", parsed.Parameters.ScheduledTime, want)
	}
	if parsed.Confidence != 0.9 {
		t.Fatalf("confidence = %v, want 0.9", parsed.Confidence)
	}
}

func TestBuildSwap(t *testing.T) {
	b := newTestBuilder(t, false)
	parsed := parse(t, b, "Swap 50 CELO for cUSD", testUser)

	if parsed.Intent != IntentSwap {
		t.Fatalf("intent = %s", parsed.Intent)
	}
	p := parsed.Parameters
	if p.Amount != "50" || p.FromToken != token.CELO || p.ToToken != token.CUSD {
		t.Fatalf("unexpected swap parameters: %+v", p)
	}
	if parsed.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want 0.8", parsed.Confidence)
	}
}

func TestBuildStake(t *testing.T) {
	b := newTestBuilder(t, false)

	parsed := parse(t, b, "Stake 1000 CELO", testUser)
	if parsed.Intent != IntentStake {
		t.Fatalf("intent = %s", parsed.Intent)
	}
	if parsed.Parameters.Amount != "1000" || parsed.Parameters.Token != token.CELO {
		t.Fatalf("unexpected stake parameters: %+v", parsed.Parameters)
	}
	if parsed.Parameters.StakeDuration != 0 {
		t.Fatalf("plain stake must carry no duration, got %d", parsed.Parameters.StakeDuration)
	}

	parsed = parse(t, b, "stake 100 celo for 90 days", testUser)
	if parsed.Parameters.StakeDuration != 90 {
		t.Fatalf("duration = %d, want 90", parsed.Parameters.StakeDuration)
	}
}

func TestBuildClaimRewards(t *testing.T) {
	b := newTestBuilder(t, false)
	parsed := parse(t, b, "Claim my rewards", testUser)

	if parsed.Intent != IntentClaimRewards {
		t.Fatalf("intent = %s", parsed.Intent)
	}
	if parsed.Confidence <= 0.85 {
		t.Fatalf("confidence = %v, want > 0.85", parsed.Confidence)
	}
	if parsed.Parameters != (Parameters{}) {
		t.Fatalf("claim must carry no parameters: %+v", parsed.Parameters)
	}
}

func TestBuildUnknown(t *testing.T) {
	b := newTestBuilder(t, false)
	parsed := parse(t, b, "xyz abc def", testUser)

	if parsed.Intent != IntentUnknown || parsed.Confidence != 0 {
		t.Fatalf("unexpected parse result: %+v", parsed)
	}
	if parsed.Parameters != (Parameters{}) {
		t.Fatalf("unknown parse must carry empty parameters: %+v", parsed.Parameters)
	}
}

// Parsing the same text twice with unchanged contact state yields identical
// results; the scheduled timestamp only depends on the injected clock.
func TestBuildIsIdempotent(t *testing.T) {
	b := newTestBuilder(t, true)

	first := parse(t, b, "Send 1 CELO to Alice tomorrow at 3pm", testUser)
	second := parse(t, b, "Send 1 CELO to Alice tomorrow at 3pm", testUser)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parse is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestDescribeContainsAmountAndToken(t *testing.T) {
	b := newTestBuilder(t, false)
	for _, text := range []string{
		"Send 100 cUSD to Alice",
		"Swap 50 CELO for cUSD",
		"Stake 1000 CELO",
	} {
		parsed := parse(t, b, text, testUser)
		desc := Describe(parsed)
		if !strings.Contains(desc, parsed.Parameters.Amount) && parsed.Parameters.Amount != "" {
			t.Fatalf("description %q misses amount %q", desc, parsed.Parameters.Amount)
		}
		tok := parsed.Parameters.Token
		if parsed.Intent == IntentSwap {
			tok = parsed.Parameters.FromToken
		}
		if !strings.Contains(desc, string(tok)) {
			t.Fatalf("description %q misses token %q", desc, tok)
		}
	}
}

func TestConfidencePercent(t *testing.T) {
	if got := ConfidencePercent(ParsedCommand{Confidence: 0.85}); got != 85 {
		t.Fatalf("ConfidencePercent = %d, want 85", got)
	}
}
