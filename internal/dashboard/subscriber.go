package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/youmna-rabie/incident-relay/internal/broker"
	"github.com/youmna-rabie/incident-relay/internal/types"
)

// ChangeKind says which part of the dashboard changed.
type ChangeKind int

const (
	ChangeConnection ChangeKind = iota
	ChangeIncident
	ChangeAlert
)

// Change describes one state transition. Event is set for ChangeIncident.
// Alert and Connected always reflect the state after the change.
type Change struct {
	Kind      ChangeKind
	Event     types.Event
	Alert     bool
	Connected bool
}

// Option configures a Subscriber.
type Option func(*Subscriber)

// WithLogger sets the logger used for dropped messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Subscriber) { s.logger = l }
}

// WithOnChange registers fn to run after every state change. fn runs with
// the subscriber's lock held and must not call Mount or Unmount.
func WithOnChange(fn func(Change)) Option {
	return func(s *Subscriber) { s.onChange = fn }
}

// WithClock overrides the clock used to stamp events missing a timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Subscriber) { s.now = now }
}

// WithEvent overrides the event name the subscriber forwards.
func WithEvent(name string) Option {
	return func(s *Subscriber) { s.event = name }
}

// Subscriber binds a broker subscription to a State for the lifetime of one
// dashboard. It is mounted at most once; Unmount is final.
type Subscriber struct {
	src      broker.Subscriber
	state    *State
	logger   *slog.Logger
	onChange func(Change)
	now      func() time.Time
	channel  string
	event    string

	mu        sync.Mutex
	active    bool
	mounted   bool
	unmounted bool
	sub       broker.Subscription
	done      chan struct{}
}

// NewSubscriber returns a subscriber feeding state. A nil src means the
// subscribe side is not configured: Mount does nothing and the dashboard
// stays disconnected.
func NewSubscriber(src broker.Subscriber, state *State, opts ...Option) *Subscriber {
	s := &Subscriber{
		src:     src,
		state:   state,
		logger:  slog.Default(),
		now:     time.Now,
		channel: types.IncidentChannel,
		event:   types.IncidentUpdateEvent,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the dashboard state the subscriber feeds.
func (s *Subscriber) State() *State {
	return s.state
}

// Mount connects and subscribes to the incident channel. It returns once
// the provider has accepted the subscription. Calling it again, or after
// Unmount, is a no-op.
func (s *Subscriber) Mount(ctx context.Context) error {
	if s.src == nil {
		return nil
	}

	s.mu.Lock()
	if s.mounted || s.unmounted {
		s.mu.Unlock()
		return nil
	}
	s.mounted = true
	s.active = true
	s.mu.Unlock()

	sub, err := s.src.Subscribe(ctx, s.channel, s.onState)
	if err != nil {
		s.mu.Lock()
		s.active = false
		s.mounted = false
		s.mu.Unlock()
		return fmt.Errorf("subscribing to %s: %w", s.channel, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		// Unmounted while subscribing.
		sub.Close()
		return nil
	}
	s.sub = sub
	s.done = make(chan struct{})
	go s.consume(sub, s.done)
	return nil
}

// Unmount unsubscribes and disconnects. Once it returns, neither deliveries
// nor connection callbacks change the state. It is safe to call more than
// once and without a prior Mount.
func (s *Subscriber) Unmount() error {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return nil
	}
	s.unmounted = true
	s.active = false
	sub, done := s.sub, s.done
	s.sub = nil
	s.mu.Unlock()

	s.state.SetConnected(false)
	if sub == nil {
		return nil
	}
	err := sub.Close()
	<-done
	return err
}

// Dismiss clears the transfer alert.
func (s *Subscriber) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Dismiss() {
		s.emit(Change{Kind: ChangeAlert})
	}
}

func (s *Subscriber) onState(st broker.ConnectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	if s.state.SetConnected(st == broker.StateConnected) {
		s.emit(Change{Kind: ChangeConnection})
	}
}

func (s *Subscriber) consume(sub broker.Subscription, done chan struct{}) {
	defer close(done)
	for msg := range sub.Messages() {
		if msg.Event != s.event {
			continue
		}
		ev, err := types.Normalize(msg.Data, s.now())
		if err != nil {
			s.logger.Warn("dropping incident update", "channel", msg.Channel, "error", err)
			continue
		}
		s.apply(ev)
	}
}

func (s *Subscriber) apply(ev types.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	raised := s.state.Add(ev)
	s.emit(Change{Kind: ChangeIncident, Event: ev})
	if raised {
		s.emit(Change{Kind: ChangeAlert})
	}
}

// emit fills in the current flags and calls onChange. Callers hold s.mu.
func (s *Subscriber) emit(c Change) {
	if s.onChange == nil {
		return
	}
	c.Alert = s.state.Alert()
	c.Connected = s.state.Connected()
	s.onChange(c)
}
