package broker

import "context"

// Broker is the cross-process message bus backing slideshow fan-out
// groups. Every worker process handling connections for the same slideshow
// subscribes to that slideshow's channel; broadcasts are published once
// and delivered to every subscriber, including the publisher's own
// subscription.
type Broker interface {
	// Publish delivers payload to every active subscription on channel.
	// Delivery is best effort per subscriber.
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe opens a subscription on channel. The caller owns the
	// subscription and must Close it when done.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is one open channel subscription. Messages is closed after
// Close is called or the underlying connection is lost.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}
