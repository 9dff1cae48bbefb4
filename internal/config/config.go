package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"celo-nlte/pkg/logger"
)

// Config holds everything the interpreter daemons load at startup.
type Config struct {
	Server        ServerConfig   `json:"server"`
	Logging       logger.Config  `json:"logging"`
	Chain         ChainConfig    `json:"chain"`
	Storage       StorageConfig  `json:"storage"`
	TransferQueue QueueConfig    `json:"transfer_queue"`
	Dispatch      DispatchConfig `json:"dispatch"`
	NATS          NATSConfig     `json:"nats"`
	Probes        ProbeConfig    `json:"probes"`
}

// ServerConfig controls the REST listener.
type ServerConfig struct {
	Address string `json:"address"`
}

// ChainConfig points at the network definition and the signer key.
// The key itself never lives in the config file, only the env var name.
type ChainConfig struct {
	ConfigPath   string `json:"config_path"`
	SignerKeyEnv string `json:"signer_key_env"`
}

// StorageConfig selects the backing stores.
type StorageConfig struct {
	Contacts  StoreConfig `json:"contacts"`
	Transfers StoreConfig `json:"transfers"`
}

// StoreConfig selects a driver ("memory" or "mysql") and its DSN.
type StoreConfig struct {
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
}

// QueueConfig selects the dispatch queue driver.
type QueueConfig struct {
	Driver   string         `json:"driver"`
	Redis    RedisConfig    `json:"redis"`
	RabbitMQ RabbitMQConfig `json:"rabbitmq"`
}

// RedisConfig mirrors transfer.RedisQueueConfig.
type RedisConfig struct {
	Address   string `json:"address"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	Queue     string `json:"queue"`
	BlockWait int    `json:"block_wait_seconds"`
}

// RabbitMQConfig mirrors transfer.RabbitMQConfig.
type RabbitMQConfig struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Prefetch   int    `json:"prefetch"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// DispatchConfig tunes the due-transfer dispatcher and the worker pool.
type DispatchConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
	Batch           int `json:"batch"`
	Workers         int `json:"workers"`
}

// NATSConfig enables the in-cluster request/reply surface.
type NATSConfig struct {
	Enabled        bool   `json:"enabled"`
	URL            string `json:"url"`
	Name           string `json:"name"`
	ParseSubject   string `json:"parse_subject"`
	DraftSubject   string `json:"draft_subject"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ProbeConfig bounds the chain reads during validation and drafting.
type ProbeConfig struct {
	BalanceTimeoutMS int `json:"balance_timeout_ms"`
	RewardTimeoutMS  int `json:"reward_timeout_ms"`
	GasTimeoutMS     int `json:"gas_timeout_ms"`
}

// Load parses the JSON config at path and fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	return &cfg, nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Chain.ConfigPath == "" {
		c.Chain.ConfigPath = filepath.Join(baseDir, "celo.yaml")
	} else if !filepath.IsAbs(c.Chain.ConfigPath) {
		c.Chain.ConfigPath = filepath.Join(baseDir, c.Chain.ConfigPath)
	}
	if c.Chain.SignerKeyEnv == "" {
		c.Chain.SignerKeyEnv = "NLTE_SIGNER_KEY"
	}
	if c.Storage.Contacts.Driver == "" {
		c.Storage.Contacts.Driver = "memory"
	}
	if c.Storage.Transfers.Driver == "" {
		c.Storage.Transfers.Driver = "memory"
	}
	if c.TransferQueue.Driver == "" {
		c.TransferQueue.Driver = "memory"
	}
	if c.Dispatch.IntervalSeconds <= 0 {
		c.Dispatch.IntervalSeconds = 5
	}
	if c.Dispatch.Batch <= 0 {
		c.Dispatch.Batch = 100
	}
	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = 4
	}
	if c.NATS.Name == "" {
		c.NATS.Name = "celo-nlte"
	}
	if c.NATS.TimeoutSeconds <= 0 {
		c.NATS.TimeoutSeconds = 10
	}
	if c.Probes.BalanceTimeoutMS <= 0 {
		c.Probes.BalanceTimeoutMS = 2000
	}
	if c.Probes.RewardTimeoutMS <= 0 {
		c.Probes.RewardTimeoutMS = 2000
	}
	if c.Probes.GasTimeoutMS <= 0 {
		c.Probes.GasTimeoutMS = 3000
	}
}
