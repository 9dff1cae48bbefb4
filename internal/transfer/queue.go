package transfer

import "context"

// Handler processes one due transfer ID taken from the queue.
type Handler func(ctx context.Context, transferID string) error

// Producer publishes due transfer IDs.
type Producer interface {
	Publish(ctx context.Context, transferID string) error
	Close() error
}

// Consumer drains the queue with a fixed worker count.
type Consumer interface {
	Consume(ctx context.Context, workerCount int, handler Handler) error
	Close() error
}

// Queue combines both sides for in-process deployments.
type Queue interface {
	Producer
	Consumer
}
