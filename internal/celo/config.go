package celo

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"celo-nlte/internal/token"
)

// NetworkConfig models the structure of configs/celo.yaml. Token entries map
// a symbol to its ERC-20 contract; the native token has no contract and is
// listed with an empty address.
type NetworkConfig struct {
	Name      string            `yaml:"name"`
	ChainID   int64             `yaml:"chain_id"`
	RPCURL    string            `yaml:"rpc_url"`
	Tokens    map[string]string `yaml:"tokens"`
	Staking   StakingConfig     `yaml:"staking"`
	SwapPairs []SwapPair        `yaml:"swap_pairs"`
}

// StakingConfig holds the staking contract addresses. Empty addresses mean
// the network has no staking deployment.
type StakingConfig struct {
	Manager string `yaml:"manager"`
	Rewards string `yaml:"rewards"`
}

// SwapPair is one configured swap route.
type SwapPair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadNetworkConfig parses the YAML file describing the target network.
func LoadNetworkConfig(path string) (NetworkConfig, error) {
	if strings.TrimSpace(path) == "" {
		return NetworkConfig{}, fmt.Errorf("network config path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return NetworkConfig{}, fmt.Errorf("read network config: %w", err)
	}

	var cfg NetworkConfig
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return NetworkConfig{}, fmt.Errorf("parse network config: %w", err)
	}
	if cfg.Tokens == nil {
		cfg.Tokens = map[string]string{}
	}
	return cfg, nil
}

// TokenContract returns the ERC-20 contract address for a symbol. The empty
// string with ok=true marks the native token.
func (c NetworkConfig) TokenContract(tok token.Token) (string, bool) {
	if tok == token.Native {
		return "", true
	}
	addr, ok := c.Tokens[string(tok)]
	if !ok || strings.TrimSpace(addr) == "" {
		return "", false
	}
	return addr, true
}

// StakingSupported reports whether the staking manager is configured.
func (c NetworkConfig) StakingSupported() bool {
	return strings.TrimSpace(c.Staking.Manager) != ""
}

// SwapSupported reports whether the pair appears in the configured routes,
// in either direction.
func (c NetworkConfig) SwapSupported(from, to token.Token) bool {
	for _, pair := range c.SwapPairs {
		if (pair.From == string(from) && pair.To == string(to)) ||
			(pair.From == string(to) && pair.To == string(from)) {
			return true
		}
	}
	return false
}
