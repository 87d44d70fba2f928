package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonesrussell/north-cloud/draft-review/internal/logger"
	"github.com/redis/go-redis/v9"
)

// DefaultExpiryChannel is the Pub/Sub channel the auth service publishes to.
const DefaultExpiryChannel = "auth:session-expired"

// RedisBridge raises guard expiry for every message on a Redis channel.
type RedisBridge struct {
	client  *redis.Client
	channel string
	guard   *Guard
	log     logger.Logger

	mu     sync.Mutex
	sub    *redis.PubSub
	done   chan struct{}
	closed bool
}

// NewRedisBridge creates a bridge. An empty channel uses DefaultExpiryChannel.
func NewRedisBridge(client *redis.Client, channel string, guard *Guard, log logger.Logger) *RedisBridge {
	if channel == "" {
		channel = DefaultExpiryChannel
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisBridge{client: client, channel: channel, guard: guard, log: log}
}

// Start subscribes and returns once Redis has confirmed the subscription.
// Messages are consumed until ctx ends or Close is called.
func (b *RedisBridge) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		return errors.New("redis bridge already started")
	}

	sub := b.client.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}

	b.sub = sub
	b.done = make(chan struct{})
	go b.consume(ctx, sub.Channel(), b.done)

	b.log.Info("Session expiry bridge subscribed", logger.String("channel", b.channel))
	return nil
}

func (b *RedisBridge) consume(ctx context.Context, msgs <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			reason := msg.Payload
			if reason == "" {
				reason = "session expired"
			}
			if b.guard.Expire(reason) {
				b.log.Info("Session expired by remote signal", logger.String("reason", reason))
			}
		}
	}
}

// Close unsubscribes and waits for the consumer to stop.
func (b *RedisBridge) Close() error {
	b.mu.Lock()
	if b.closed || b.sub == nil {
		b.closed = true
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	sub, done := b.sub, b.done
	b.mu.Unlock()

	err := sub.Close()
	<-done
	if err != nil {
		return fmt.Errorf("close subscription: %w", err)
	}
	return nil
}
