package token

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
)

// Token is a canonical Celo token symbol.
type Token string

const (
	CELO  Token = "CELO"
	CUSD  Token = "cUSD"
	CEUR  Token = "cEUR"
	CREAL Token = "cREAL"
)

// Native is the gas token of the network. Staking only accepts it.
const Native = CELO

// Decimals is shared by all four Celo tokens.
const Decimals = 18

var aliases = map[string]Token{
	"celo":  CELO,
	"cel":   CELO,
	"cusd":  CUSD,
	"usd":   CUSD,
	"usdc":  CUSD,
	"ceur":  CEUR,
	"eur":   CEUR,
	"creal": CREAL,
	"real":  CREAL,
}

// fallbackToken is returned for empty or unrecognized symbols. Defaulting
// instead of erroring is deliberate product behaviour; changing it is a
// one-line edit here.
func fallbackToken() Token {
	return CUSD
}

// Normalize maps a free-form symbol onto a canonical token. Empty and
// unknown input fall back to cUSD.
func Normalize(symbol string) Token {
	if symbol == "" {
		return fallbackToken()
	}
	if tok, ok := aliases[strings.ToLower(strings.TrimSpace(symbol))]; ok {
		return tok
	}
	return fallbackToken()
}

// All returns the supported token set.
func All() []Token {
	return []Token{CELO, CUSD, CEUR, CREAL}
}

// IsSupported reports whether t is one of the four known tokens.
func IsSupported(t Token) bool {
	switch t {
	case CELO, CUSD, CEUR, CREAL:
		return true
	default:
		return false
	}
}

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s is a 0x-prefixed 40-hex-char address.
func IsValidAddress(s string) bool {
	return addressPattern.MatchString(s)
}

// IsValidAmount reports whether s is a strictly positive finite decimal.
func IsValidAmount(s string) bool {
	if s == "" {
		return false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	return value > 0
}

// ShortenAddress renders an address as "0x1234...5678" for logs and replies.
func ShortenAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}

// ToWei converts a plain decimal amount into the token's smallest unit.
func ToWei(amount string, decimals int) (*big.Int, error) {
	rat, ok := new(big.Rat).SetString(strings.TrimSpace(amount))
	if !ok {
		return nil, strconv.ErrSyntax
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat.Mul(rat, new(big.Rat).SetInt(scale))
	if !rat.IsInt() {
		// Truncate sub-wei precision.
		return new(big.Int).Quo(rat.Num(), rat.Denom()), nil
	}
	return rat.Num(), nil
}
