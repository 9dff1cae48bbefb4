package nlp

import "strings"

// Match describes which bank entry fired and the raw capture groups it
// produced.
type Match struct {
	Intent       Intent
	PatternIndex int
	Groups       []string

	shape      captureShape
	confidence float64
}

// MatchText runs the ordered pattern bank over the input. The text is
// lowercased and trimmed first; the first matching entry wins and no
// scoring happens across alternatives.
func MatchText(text string) (Match, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Match{}, false
	}
	for idx, p := range bank {
		groups := p.re.FindStringSubmatch(normalized)
		if groups == nil {
			continue
		}
		confidence := p.confidence
		if confidence <= 0 {
			confidence = baseConfidence
		}
		return Match{
			Intent:       p.intent,
			PatternIndex: idx,
			Groups:       groups,
			shape:        p.shape,
			confidence:   confidence,
		}, true
	}
	return Match{}, false
}

// Normalized returns the text form the bank actually matched against.
func Normalized(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
