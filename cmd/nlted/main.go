package main

import (
	"context"
	stdErrors "errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"celo-nlte/internal/api"
	"celo-nlte/internal/celo"
	"celo-nlte/internal/config"
	"celo-nlte/internal/contact"
	"celo-nlte/internal/draft"
	"celo-nlte/internal/engine"
	"celo-nlte/internal/nlp"
	"celo-nlte/internal/schedule"
	"celo-nlte/internal/transfer"
	"celo-nlte/internal/transport"
	"celo-nlte/pkg/logger"
)

// nlted is the interpreter daemon: REST and optional NATS surfaces over
// the parse/draft engine, plus contact and scheduled transfer management.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !stdErrors.Is(err, context.Canceled) {
		log.Fatalf("nlted failed: %v", err)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	configPath := os.Getenv("NLTE_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "nlted.json")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	appLog := logger.Named("nlted")

	// The chain client is optional at startup: without it validation
	// degrades to warnings instead of blocking the interpreter.
	var (
		balances draft.BalanceOracle
		rewards  draft.RewardOracle
		features draft.Features
		fees     draft.FeeOracle
	)
	networkCfg, err := celo.LoadNetworkConfig(cfg.Chain.ConfigPath)
	if err != nil {
		appLog.Warn("network config unavailable, running degraded", "error", err)
	} else {
		features = networkCfg
		client, err := celo.NewClient(ctx, networkCfg)
		if err != nil {
			appLog.Warn("chain client unavailable, running degraded", "error", err)
		} else {
			defer client.Close()
			balances = client
			rewards = client
			features = client
			fees = client
		}
	}

	contacts, err := newContactStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = contacts.Close() }()

	transferStore, err := newTransferStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = transferStore.Close() }()

	validator := draft.NewValidator(balances, rewards, features,
		draft.WithBalanceTimeout(time.Duration(cfg.Probes.BalanceTimeoutMS)*time.Millisecond),
		draft.WithRewardTimeout(time.Duration(cfg.Probes.RewardTimeoutMS)*time.Millisecond),
	)
	drafter := draft.NewDrafter(validator, fees,
		draft.WithGasTimeout(time.Duration(cfg.Probes.GasTimeoutMS)*time.Millisecond),
	)
	builder := nlp.NewBuilder(contact.NewResolver(contacts), schedule.NewCalculator())
	eng := engine.New(builder, drafter)

	transferService := transfer.NewService(transferStore)

	if cfg.NATS.Enabled {
		nats, err := transport.NewNATSTransport(transport.NATSConfig{
			URL:            cfg.NATS.URL,
			Name:           cfg.NATS.Name,
			ParseSubject:   cfg.NATS.ParseSubject,
			DraftSubject:   cfg.NATS.DraftSubject,
			RequestTimeout: time.Duration(cfg.NATS.TimeoutSeconds) * time.Second,
		}, eng)
		if err != nil {
			return err
		}
		defer func() { _ = nats.Close() }()
		if err := nats.Start(); err != nil {
			return err
		}
	}

	appLog.Info("nlted starting", "address", cfg.Server.Address)
	server := api.NewServer(cfg.Server.Address, eng, contacts, transferService)
	return server.Start(ctx)
}

func newContactStore(ctx context.Context, cfg *config.Config) (contact.Store, error) {
	switch cfg.Storage.Contacts.Driver {
	case "", "memory":
		return contact.NewMemoryStore(), nil
	case "mysql":
		return contact.NewMySQLStore(ctx, cfg.Storage.Contacts.DSN)
	default:
		return nil, stdErrors.New("unknown contact store driver: " + cfg.Storage.Contacts.Driver)
	}
}

func newTransferStore(ctx context.Context, cfg *config.Config) (transfer.Store, error) {
	switch cfg.Storage.Transfers.Driver {
	case "", "memory":
		return transfer.NewMemoryStore(), nil
	case "mysql":
		return transfer.NewMySQLStore(ctx, cfg.Storage.Transfers.DSN)
	default:
		return nil, stdErrors.New("unknown transfer store driver: " + cfg.Storage.Transfers.Driver)
	}
}
