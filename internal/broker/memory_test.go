package broker

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func receive(t *testing.T, sub Subscription) []byte {
	t.Helper()
	select {
	case payload := <-sub.Messages():
		return payload
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func TestMemoryBrokerDeliversToAllSubscribers(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()

	sub1, err := b.Subscribe(ctx, "slideshow.1")
	assert.Equal(t, err, nil)
	sub2, err := b.Subscribe(ctx, "slideshow.1")
	assert.Equal(t, err, nil)
	other, err := b.Subscribe(ctx, "slideshow.2")
	assert.Equal(t, err, nil)

	assert.Equal(t, b.Publish(ctx, "slideshow.1", []byte("hello")), nil)

	assert.Equal(t, string(receive(t, sub1)), "hello")
	assert.Equal(t, string(receive(t, sub2)), "hello")

	select {
	case payload := <-other.Messages():
		t.Fatalf("unexpected delivery on other channel: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryBrokerCopiesPayload(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()

	sub, err := b.Subscribe(ctx, "ch")
	assert.Equal(t, err, nil)

	payload := []byte("original")
	assert.Equal(t, b.Publish(ctx, "ch", payload), nil)
	payload[0] = 'X'

	assert.Equal(t, string(receive(t, sub)), "original")
}

func TestMemoryBrokerCloseStopsDelivery(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBroker()

	sub, err := b.Subscribe(ctx, "ch")
	assert.Equal(t, err, nil)
	assert.Equal(t, sub.Close(), nil)

	// Publishing after close must not panic, and the message channel is
	// closed.
	assert.Equal(t, b.Publish(ctx, "ch", []byte("late")), nil)

	_, open := <-sub.Messages()
	assert.Equal(t, open, false)

	// Close is idempotent.
	assert.Equal(t, sub.Close(), nil)
}
