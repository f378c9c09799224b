package broker

import (
	"context"
	"sync"
)

const defaultHubBuffer = 64

// Hub is an in-process broker for single-binary deployments. It is both a
// Publisher and a Subscriber. A subscriber whose buffer is full misses the
// message.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*hubSubscription]struct{}
	buffer int
	closed bool
}

// NewHub returns a Hub giving each subscription buffer pending messages.
// A non-positive buffer selects the default.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultHubBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*hubSubscription]struct{}),
		buffer: buffer,
	}
}

// Publish implements Publisher.
func (h *Hub) Publish(ctx context.Context, channel, event string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := Message{Channel: channel, Event: event, Data: append([]byte(nil), data...)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	for sub := range h.subs[channel] {
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe implements Subscriber. The connection is established immediately.
func (h *Hub) Subscribe(ctx context.Context, channel string, onState StateFunc) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	notify(onState, StateConnecting)

	sub := &hubSubscription{
		hub:     h,
		channel: channel,
		ch:      make(chan Message, h.buffer),
		onState: onState,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		notify(onState, StateDisconnected)
		return nil, ErrClosed
	}
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[*hubSubscription]struct{})
	}
	h.subs[channel][sub] = struct{}{}
	h.mu.Unlock()

	notify(onState, StateConnected)
	return sub, nil
}

// Subscribers returns the number of live subscriptions on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[channel])
}

// Close disconnects every subscription and rejects further publishes.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var all []*hubSubscription
	for _, set := range h.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range all {
		sub.Close()
	}
	return nil
}

type hubSubscription struct {
	hub     *Hub
	channel string
	ch      chan Message
	onState StateFunc
	once    sync.Once
}

func (s *hubSubscription) Messages() <-chan Message { return s.ch }

func (s *hubSubscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs[s.channel], s)
		if len(s.hub.subs[s.channel]) == 0 {
			delete(s.hub.subs, s.channel)
		}
		// Publish sends under the same lock, so closing here cannot race a send.
		close(s.ch)
		s.hub.mu.Unlock()

		notify(s.onState, StateDisconnected)
	})
	return nil
}
