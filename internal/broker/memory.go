package broker

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBroker implements Broker with in-process delivery. It backs
// single-worker deployments without Redis and the test suite.
type MemoryBroker struct {
	mu       sync.RWMutex
	channels map[string]map[string]*memorySubscription // channel -> sub id -> sub
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		channels: make(map[string]map[string]*memorySubscription),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	subs := make([]*memorySubscription, 0, len(b.channels[channel]))
	for _, sub := range b.channels[channel] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		// Copy so subscribers never share the caller's buffer.
		frame := make([]byte, len(payload))
		copy(frame, payload)
		sub.deliver(frame)
	}

	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memorySubscription{
		id:       uuid.NewString(),
		channel:  channel,
		broker:   b,
		messages: make(chan []byte, 64),
	}

	b.mu.Lock()
	if b.channels[channel] == nil {
		b.channels[channel] = make(map[string]*memorySubscription)
	}
	b.channels[channel][sub.id] = sub
	b.mu.Unlock()

	return sub, nil
}

type memorySubscription struct {
	id       string
	channel  string
	broker   *MemoryBroker
	messages chan []byte

	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) deliver(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.messages <- frame:
	default:
		// Subscriber buffer full; best-effort delivery drops the frame.
	}
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *memorySubscription) Close() error {
	s.broker.mu.Lock()
	delete(s.broker.channels[s.channel], s.id)
	if len(s.broker.channels[s.channel]) == 0 {
		delete(s.broker.channels, s.channel)
	}
	s.broker.mu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.messages)
	}
	return nil
}
