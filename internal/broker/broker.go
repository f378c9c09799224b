// Package broker wraps the pub/sub providers the relay can publish through
// and dashboards can subscribe to. Delivery is best-effort and at-most-once:
// subscribers that are disconnected or too slow miss messages and nothing is
// redelivered.
package broker

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured is returned when the credentials a side needs are absent.
	ErrNotConfigured = errors.New("broker not configured")
	// ErrClosed is returned when publishing through a closed client.
	ErrClosed = errors.New("broker client closed")
)

// Message is one delivery on a channel.
type Message struct {
	Channel string
	Event   string
	Data    []byte
}

// ConnectionState is a subscriber connection's lifecycle position.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// StateFunc receives connection state transitions. It may be called from the
// provider's own goroutines.
type StateFunc func(ConnectionState)

// Publisher sends events to every current subscriber of a channel.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, data []byte) error
	Close() error
}

// Subscriber opens one connection per Subscribe call.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, onState StateFunc) (Subscription, error)
}

// Subscription delivers messages in broker order until closed. Close
// unsubscribes and disconnects; Messages is closed once delivery stops.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// topic namespaces a channel with the application key.
func topic(key, channel, sep string) string {
	if key == "" {
		return channel
	}
	return key + sep + channel
}

func notify(fn StateFunc, s ConnectionState) {
	if fn != nil {
		fn(s)
	}
}
