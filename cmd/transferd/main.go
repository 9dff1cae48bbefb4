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

	"celo-nlte/internal/celo"
	"celo-nlte/internal/config"
	"celo-nlte/internal/transfer"
	"celo-nlte/pkg/logger"
)

// transferd is the execution daemon: it polls for due scheduled transfers,
// dispatches them through the configured queue and signs the resulting
// transactions. It shares the transfer store and queue with nlted; run it
// with the memory drivers only when both roles live in one process.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !stdErrors.Is(err, context.Canceled) {
		log.Fatalf("transferd failed: %v", err)
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
	appLog := logger.Named("transferd")

	networkCfg, err := celo.LoadNetworkConfig(cfg.Chain.ConfigPath)
	if err != nil {
		return err
	}
	client, err := celo.NewClient(ctx, networkCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	signerKey := os.Getenv(cfg.Chain.SignerKeyEnv)
	if signerKey == "" {
		return stdErrors.New("signer key env " + cfg.Chain.SignerKeyEnv + " is not set")
	}
	executor, err := celo.NewExecutor(client, signerKey)
	if err != nil {
		return err
	}
	appLog.Info("executor ready", "signer", executor.Address())

	store, err := newTransferStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	queue, err := newTransferQueue(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = queue.Close() }()

	dispatcher := transfer.NewDispatcher(store, queue,
		transfer.WithDispatchInterval(time.Duration(cfg.Dispatch.IntervalSeconds)*time.Second),
		transfer.WithDispatchBatch(cfg.Dispatch.Batch),
	)
	go func() {
		if err := dispatcher.Run(ctx); err != nil && !stdErrors.Is(err, context.Canceled) {
			appLog.Error("dispatcher stopped", "error", err)
		}
	}()

	worker := transfer.NewWorker(store, queue, executor, cfg.Dispatch.Workers)
	appLog.Info("transferd starting", "workers", cfg.Dispatch.Workers)
	return worker.Run(ctx)
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

func newTransferQueue(cfg *config.Config) (transfer.Queue, error) {
	switch cfg.TransferQueue.Driver {
	case "", "memory":
		return transfer.NewMemoryQueue(1024), nil
	case "redis":
		return transfer.NewRedisQueue(transfer.RedisQueueConfig{
			Address:   cfg.TransferQueue.Redis.Address,
			Password:  cfg.TransferQueue.Redis.Password,
			DB:        cfg.TransferQueue.Redis.DB,
			Queue:     cfg.TransferQueue.Redis.Queue,
			BlockWait: time.Duration(cfg.TransferQueue.Redis.BlockWait) * time.Second,
		})
	case "rabbitmq":
		return transfer.NewRabbitMQQueue(transfer.RabbitMQConfig{
			URL:        cfg.TransferQueue.RabbitMQ.URL,
			Queue:      cfg.TransferQueue.RabbitMQ.Queue,
			Prefetch:   cfg.TransferQueue.RabbitMQ.Prefetch,
			Durable:    cfg.TransferQueue.RabbitMQ.Durable,
			AutoDelete: cfg.TransferQueue.RabbitMQ.AutoDelete,
		})
	default:
		return nil, stdErrors.New("unknown transfer queue driver: " + cfg.TransferQueue.Driver)
	}
}
