package celo

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"celo-nlte/internal/token"
)

const sampleConfig = `
name: alfajores
chain_id: 44787
rpc_url: https://alfajores-forno.celo-testnet.org
tokens:
  cUSD: "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1"
  cEUR: "0x10c892A6EC43a53E45D0B916B4b7D383B1b78C0F"
staking:
  manager: "0x0000000000000000000000000000000000001111"
  rewards: "0x0000000000000000000000000000000000002222"
swap_pairs:
  - from: CELO
    to: cUSD
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "celo.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadNetworkConfig(t *testing.T) {
	cfg, err := LoadNetworkConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "alfajores" || cfg.ChainID != 44787 {
		t.Fatalf("unexpected identity: %+v", cfg)
	}
	if len(cfg.Tokens) != 2 {
		t.Fatalf("expected 2 token contracts, got %d", len(cfg.Tokens))
	}
}

func TestLoadNetworkConfigErrors(t *testing.T) {
	if _, err := LoadNetworkConfig(""); err == nil {
		t.Fatalf("empty path must fail")
	}
	if _, err := LoadNetworkConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing file must fail")
	}
	if _, err := LoadNetworkConfig(writeConfig(t, ":\nnot yaml")); err == nil {
		t.Fatalf("malformed yaml must fail")
	}
}

func TestTokenContract(t *testing.T) {
	cfg, err := LoadNetworkConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if addr, ok := cfg.TokenContract(token.Native); !ok || addr != "" {
		t.Fatalf("native token must resolve to an empty contract, got %q %v", addr, ok)
	}
	if addr, ok := cfg.TokenContract(token.CUSD); !ok || addr == "" {
		t.Fatalf("cUSD contract must resolve, got %q %v", addr, ok)
	}
	if _, ok := cfg.TokenContract(token.CREAL); ok {
		t.Fatalf("unconfigured token must not resolve")
	}
}

func TestFeatureFlags(t *testing.T) {
	cfg, err := LoadNetworkConfig(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if !cfg.StakingSupported() {
		t.Fatalf("staking must be supported with a manager configured")
	}
	if !cfg.SwapSupported(token.CELO, token.CUSD) {
		t.Fatalf("configured pair must be supported")
	}
	if !cfg.SwapSupported(token.CUSD, token.CELO) {
		t.Fatalf("pairs are bidirectional")
	}
	if cfg.SwapSupported(token.CEUR, token.CREAL) {
		t.Fatalf("unconfigured pair must not be supported")
	}

	bare := NetworkConfig{}
	if bare.StakingSupported() {
		t.Fatalf("empty staking config must report unsupported")
	}
}

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		wei  string
		want string
	}{
		{"0", "0"},
		{"1000000000000000000", "1"},
		{"1500000000000000000", "1.5"},
		{"1", "0.000000000000000001"},
		{"2000500000000000000000", "2000.5"},
	}
	for _, tc := range cases {
		wei, ok := new(big.Int).SetString(tc.wei, 10)
		if !ok {
			t.Fatalf("bad test input %q", tc.wei)
		}
		if got := formatUnits(wei, token.Decimals); got != tc.want {
			t.Fatalf("formatUnits(%s) = %q, want %q", tc.wei, got, tc.want)
		}
	}
	if got := formatUnits(nil, token.Decimals); got != "0" {
		t.Fatalf("nil wei must format as 0, got %q", got)
	}
}
