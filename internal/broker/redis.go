package broker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBroker implements Broker on Redis pub/sub. One instance is shared
// by all hubs in a process.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker creates a broker on an existing Redis client.
func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Confirm the subscription before handing it out so a Publish issued
	// right after Subscribe returns is not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	sub := &redisSubscription{
		pubsub:   pubsub,
		messages: make(chan []byte, 64),
	}
	go sub.pump()

	return sub, nil
}

type redisSubscription struct {
	pubsub   *redis.PubSub
	messages chan []byte
}

func (s *redisSubscription) pump() {
	defer close(s.messages)
	for msg := range s.pubsub.Channel() {
		s.messages <- []byte(msg.Payload)
	}
}

func (s *redisSubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
