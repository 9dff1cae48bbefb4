package nlp

import "regexp"

// captureShape tags how a pattern's capture groups map onto parameters.
type captureShape int

const (
	shapeSendScheduledRelative captureShape = iota // amount token recipient day hour [minute] [am|pm]
	shapeSendScheduledDate                         // amount token recipient date hour [minute] [am|pm]
	shapeSendImmediate                             // amount token recipient
	shapeSendReordered                             // recipient amount token
	shapeSwap                                      // amount fromToken toToken
	shapeStakeDuration                             // amount token days
	shapeStake                                     // amount token
	shapeClaim                                     // no captures
)

// pattern is one entry of the priority-ordered bank. Confidence is an
// explicit hand-tuned constant per pattern: more specific phrasings carry a
// higher score.
type pattern struct {
	intent     Intent
	shape      captureShape
	confidence float64
	re         *regexp.Regexp
}

const (
	amountGroup = `(\d+(?:\.\d+)?)`
	wordGroup   = `(\w+)`
	clockGroup  = `(\d{1,2})(?::(\d{2}))?\s*(am|pm)?`
)

// bank is matched top to bottom against the lowercased, trimmed input; the
// first hit wins. Within SEND the scheduled patterns sit above the general
// immediate form because the immediate form is a strict prefix subset and
// would shadow them. Reordering entries is a behavioural change; the tests
// pin the current order.
var bank = []pattern{
	{IntentSend, shapeSendScheduledRelative, 0.9, regexp.MustCompile(
		`send\s+` + amountGroup + `\s+` + wordGroup + `\s+to\s+` + wordGroup + `\s+(tomorrow|today)\s+at\s+` + clockGroup)},
	{IntentSend, shapeSendScheduledDate, 0.9, regexp.MustCompile(
		`send\s+` + amountGroup + `\s+` + wordGroup + `\s+to\s+` + wordGroup + `\s+on\s+(\d{4}-\d{2}-\d{2})\s+at\s+` + clockGroup)},
	{IntentSend, shapeSendImmediate, 0.85, regexp.MustCompile(
		`send\s+` + amountGroup + `\s+` + wordGroup + `\s+to\s+` + wordGroup)},
	{IntentSend, shapeSendImmediate, 0.85, regexp.MustCompile(
		`transfer\s+` + amountGroup + `\s+` + wordGroup + `\s+to\s+` + wordGroup)},
	{IntentSend, shapeSendImmediate, 0.85, regexp.MustCompile(
		`pay\s+` + amountGroup + `\s+` + wordGroup + `\s+to\s+` + wordGroup)},
	{IntentSend, shapeSendReordered, 0.85, regexp.MustCompile(
		`give\s+` + wordGroup + `\s+` + amountGroup + `\s+` + wordGroup)},
	{IntentSwap, shapeSwap, 0.8, regexp.MustCompile(
		`swap\s+` + amountGroup + `\s+` + wordGroup + `\s+(?:for|to)\s+` + wordGroup)},
	{IntentSwap, shapeSwap, 0.8, regexp.MustCompile(
		`exchange\s+` + amountGroup + `\s+` + wordGroup + `\s+(?:for|to)\s+` + wordGroup)},
	{IntentSwap, shapeSwap, 0.8, regexp.MustCompile(
		`convert\s+` + amountGroup + `\s+` + wordGroup + `\s+(?:for|to)\s+` + wordGroup)},
	{IntentSwap, shapeSwap, 0.8, regexp.MustCompile(
		`trade\s+` + amountGroup + `\s+` + wordGroup + `\s+(?:for|to)\s+` + wordGroup)},
	{IntentStake, shapeStakeDuration, 0.8, regexp.MustCompile(
		`stake\s+` + amountGroup + `\s+` + wordGroup + `\s+for\s+(\d+)\s+days`)},
	{IntentStake, shapeStakeDuration, 0.8, regexp.MustCompile(
		`lock\s+` + amountGroup + `\s+` + wordGroup + `\s+for\s+(\d+)\s+days`)},
	{IntentStake, shapeStake, 0.8, regexp.MustCompile(
		`stake\s+` + amountGroup + `\s+` + wordGroup)},
	{IntentStake, shapeStake, 0.8, regexp.MustCompile(
		`lock\s+` + amountGroup + `\s+` + wordGroup)},
	{IntentClaimRewards, shapeClaim, 0.9, regexp.MustCompile(`claim\s+(?:my\s+)?rewards`)},
	{IntentClaimRewards, shapeClaim, 0.9, regexp.MustCompile(`harvest\s+(?:my\s+)?rewards`)},
	{IntentClaimRewards, shapeClaim, 0.9, regexp.MustCompile(`collect\s+(?:my\s+)?earnings`)},
}

// baseConfidence is the floor for any successful match. Every bank entry
// overrides it upward; it exists so a future pattern without an explicit
// score still reports a meaningful value.
const baseConfidence = 0.75
