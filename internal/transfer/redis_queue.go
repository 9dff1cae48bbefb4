package transfer

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	xerrors "celo-nlte/internal/errors"
)

// RedisQueueConfig describes the Redis connection and queue key.
type RedisQueueConfig struct {
	Address   string
	Password  string
	DB        int
	Queue     string
	BlockWait time.Duration
}

// RedisQueue implements the transfer queue on a Redis list.
type RedisQueue struct {
	client *redis.Client
	queue  string
	wait   time.Duration
}

// NewRedisQueue connects to Redis and verifies the connection.
func NewRedisQueue(cfg RedisQueueConfig) (*RedisQueue, error) {
	if cfg.Address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "redis address is required")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "nlte:transfers"
	}
	wait := cfg.BlockWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "connect redis")
	}
	return &RedisQueue{client: client, queue: queue, wait: wait}, nil
}

// Publish pushes a transfer ID onto the list.
func (q *RedisQueue) Publish(ctx context.Context, transferID string) error {
	if err := q.client.LPush(ctx, q.queue, transferID).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "publish transfer")
	}
	return nil
}

// Consume pulls transfer IDs with BRPOP. A handler failure requeues the ID.
func (q *RedisQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	errCh := make(chan error, workerCount)
	for i := 0; i < workerCount; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				default:
				}
				values, err := q.client.BRPop(ctx, q.wait, q.queue).Result()
				if err != nil {
					if stdErrors.Is(err, context.Canceled) || stdErrors.Is(err, redis.ErrClosed) {
						errCh <- err
						return
					}
					if err == redis.Nil {
						continue
					}
					errCh <- xerrors.Wrap(xerrors.CodeQueueFailure, err, "pop transfer")
					return
				}
				if len(values) != 2 {
					continue
				}
				transferID := values[1]
				if handlerErr := handler(ctx, transferID); handlerErr != nil {
					_ = q.client.RPush(ctx, q.queue, transferID).Err()
				}
			}
		}()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Close releases the Redis connection.
func (q *RedisQueue) Close() error {
	if q == nil || q.client == nil {
		return nil
	}
	return q.client.Close()
}

var _ Queue = (*RedisQueue)(nil)
