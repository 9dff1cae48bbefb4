package nlp

import "testing"

func TestMatchTextIntents(t *testing.T) {
	cases := []struct {
		text   string
		intent Intent
	}{
		{"Send 100 cUSD to Alice", IntentSend},
		{"transfer 5 celo to bob", IntentSend},
		{"pay 12.5 ceur to carol", IntentSend},
		{"give alice 10 cusd", IntentSend},
		{"Swap 50 CELO for cUSD", IntentSwap},
		{"exchange 3 ceur to creal", IntentSwap},
		{"convert 1 celo to cusd", IntentSwap},
		{"trade 9 cusd for celo", IntentSwap},
		{"Stake 1000 CELO", IntentStake},
		{"stake 100 celo for 30 days", IntentStake},
		{"lock 100 celo for 90 days", IntentStake},
		{"Claim my rewards", IntentClaimRewards},
		{"harvest rewards", IntentClaimRewards},
		{"collect my earnings", IntentClaimRewards},
	}
	for _, tc := range cases {
		match, ok := MatchText(tc.text)
		if !ok {
			t.Fatalf("expected %q to match", tc.text)
		}
		if match.Intent != tc.intent {
			t.Fatalf("%q matched %s, want %s", tc.text, match.Intent, tc.intent)
		}
	}
}

func TestMatchTextMiss(t *testing.T) {
	for _, text := range []string{"xyz abc def", "", "   ", "send money please"} {
		if _, ok := MatchText(text); ok {
			t.Fatalf("expected %q not to match", text)
		}
	}
}

// The general immediate-send pattern is a strict prefix subset of the
// scheduled patterns; the bank order guarantees scheduled phrasings hit a
// scheduled entry first.
func TestScheduledPatternsWinOverImmediate(t *testing.T) {
	immediateIdx := -1
	for idx, p := range bank {
		if p.shape == shapeSendImmediate {
			immediateIdx = idx
			break
		}
	}
	if immediateIdx < 0 {
		t.Fatalf("no immediate send pattern in bank")
	}

	scheduled := []string{
		"send 1 celo to alice tomorrow at 3pm",
		"send 1 celo to alice today at 15:30",
		"send 2.5 cusd to bob on 2026-12-24 at 9am",
	}
	for _, text := range scheduled {
		match, ok := MatchText(text)
		if !ok {
			t.Fatalf("expected %q to match", text)
		}
		if match.PatternIndex >= immediateIdx {
			t.Fatalf("%q matched pattern %d, want a scheduled entry before %d", text, match.PatternIndex, immediateIdx)
		}
		if match.confidence != 0.9 {
			t.Fatalf("%q confidence %v, want 0.9", text, match.confidence)
		}
	}
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	lower, ok := MatchText("send 100 cusd to alice")
	if !ok {
		t.Fatalf("lowercase text should match")
	}
	upper, ok := MatchText("  SEND 100 cUSD TO Alice  ")
	if !ok {
		t.Fatalf("mixed-case text should match")
	}
	if lower.PatternIndex != upper.PatternIndex {
		t.Fatalf("case must not change which pattern fires: %d vs %d", lower.PatternIndex, upper.PatternIndex)
	}
}

func TestUnknownNormalizesRawCommand(t *testing.T) {
	parsed := Unknown("  Do Something STRANGE  ")
	if parsed.Intent != IntentUnknown || parsed.Confidence != 0 {
		t.Fatalf("unexpected parse-miss result: %+v", parsed)
	}
	if parsed.RawCommand != "do something strange" {
		t.Fatalf("miss must echo the normalized text, got %q", parsed.RawCommand)
	}
}
