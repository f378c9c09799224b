// Package relay owns the webhook's publish side: a lazily built broker
// handle derived from configuration, and the trigger that sends one payload
// on the incident channel.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/youmna-rabie/incident-relay/internal/broker"
	"github.com/youmna-rabie/incident-relay/internal/config"
	"github.com/youmna-rabie/incident-relay/internal/types"
)

var errClosed = errors.New("relay publisher closed")

// Factory builds a publisher on first use.
type Factory func() (broker.Publisher, error)

// FromConfig returns a Factory for cfg. hub backs the memory driver.
func FromConfig(cfg config.BrokerConfig, hub *broker.Hub) Factory {
	return func() (broker.Publisher, error) {
		return broker.NewPublisher(cfg, hub)
	}
}

// Publisher is safe for concurrent use. Only a successfully built handle is
// kept; after a construction failure the next call builds again.
type Publisher struct {
	factory    Factory
	configured bool

	mu     sync.Mutex
	pub    broker.Publisher
	closed bool
}

// New wraps factory. configured reports whether the publish credentials are
// present, which callers can check without dialing the broker.
func New(factory Factory, configured bool) *Publisher {
	return &Publisher{factory: factory, configured: configured}
}

// IsConfigured reports whether publishing is possible at all.
func (p *Publisher) IsConfigured() bool {
	return p.configured
}

// Handle returns the shared broker publisher, building it on first call.
func (p *Publisher) Handle() (broker.Publisher, error) {
	if !p.configured {
		return nil, broker.ErrNotConfigured
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, errClosed
	}
	if p.pub != nil {
		return p.pub, nil
	}
	pub, err := p.factory()
	if err != nil {
		return nil, err
	}
	p.pub = pub
	return pub, nil
}

// Trigger publishes payload once on the incident channel. The payload is
// sent as given; stamping is the caller's job.
func (p *Publisher) Trigger(ctx context.Context, payload map[string]any) error {
	pub, err := p.Handle()
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	if err := pub.Publish(ctx, types.IncidentChannel, types.IncidentUpdateEvent, data); err != nil {
		return fmt.Errorf("publishing %s: %w", types.IncidentUpdateEvent, err)
	}
	return nil
}

// Close releases the handle if one was built. Later calls to Handle fail.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.pub == nil {
		return nil
	}
	pub := p.pub
	p.pub = nil
	return pub.Close()
}
