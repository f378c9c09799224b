// Package dashboard folds incident updates delivered by the broker into a
// per-viewer dashboard: a newest-first event list, a sticky transfer alert
// and a connection indicator.
package dashboard

import (
	"sync"

	"github.com/youmna-rabie/incident-relay/internal/types"
)

// State is one viewer's dashboard. Events are only ever added; nothing is
// evicted for the lifetime of the state.
type State struct {
	mu        sync.RWMutex
	events    []types.Event // oldest first
	alert     bool
	connected bool
}

// Snapshot is a point-in-time copy of a State.
type Snapshot struct {
	Events    []types.Event `json:"events"`
	Alert     bool          `json:"alert"`
	Connected bool          `json:"connected"`
}

func NewState() *State {
	return &State{}
}

// Add prepends ev. A transfer_to_human event raises the alert. It reports
// whether the alert was raised by this call.
func (s *State) Add(ev types.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	if ev.Type == types.EventTypeTransferToHuman && !s.alert {
		s.alert = true
		return true
	}
	return false
}

// Dismiss clears the alert and reports whether it was set.
func (s *State) Dismiss() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	was := s.alert
	s.alert = false
	return was
}

// SetConnected records the connection flag and reports whether it changed.
func (s *State) SetConnected(connected bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connected == connected {
		return false
	}
	s.connected = connected
	return true
}

// Events returns the events newest first.
func (s *State) Events() []types.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.newestFirst()
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func (s *State) Alert() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alert
}

func (s *State) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Events: s.newestFirst(), Alert: s.alert, Connected: s.connected}
}

func (s *State) newestFirst() []types.Event {
	out := make([]types.Event, len(s.events))
	for i, ev := range s.events {
		out[len(s.events)-1-i] = ev
	}
	return out
}
