package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// Well-known broker names shared by the webhook and every dashboard.
const (
	IncidentChannel     = "incident-channel"
	IncidentUpdateEvent = "incident-update"
)

// TimestampLayout matches JavaScript's Date.toISOString output.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// EventType tags a tool-call payload.
type EventType string

const (
	EventTypeUpdateInformation         EventType = "update_information"
	EventTypeDispatchEmergencyServices EventType = "dispatch_emergency_services"
	EventTypeTransferToHuman           EventType = "transfer_to_human"
)

// Known reports whether t is one of the tags the dashboard understands.
func (t EventType) Known() bool {
	switch t {
	case EventTypeUpdateInformation, EventTypeDispatchEmergencyServices, EventTypeTransferToHuman:
		return true
	}
	return false
}

// Event is a normalized tool-call payload as stored by a dashboard.
// Data keeps the recognized keys for Type plus anything else the agent sent.
type Event struct {
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp string         `json:"timestamp"`
}

// Time parses the event timestamp. The zero time is returned when it is not
// valid ISO-8601.
func (e Event) Time() time.Time {
	t, err := time.Parse(time.RFC3339Nano, e.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// FormatTimestamp renders t the way every stage stamps payloads.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// StampTimestamp sets body["timestamp"] to now when it is missing, null or
// the empty string. Any other value is left alone. It reports whether the
// body was changed.
func StampTimestamp(body map[string]any, now time.Time) bool {
	if hasTimestamp(body) {
		return false
	}
	body["timestamp"] = FormatTimestamp(now)
	return true
}

func hasTimestamp(body map[string]any) bool {
	switch v := body["timestamp"].(type) {
	case nil:
		return false
	case string:
		return v != ""
	}
	return true
}

// DecodeObject decodes raw as a single JSON object. Numbers are kept as
// json.Number so they marshal back exactly as received.
func DecodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}
	if body == nil {
		return nil, errors.New("not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return body, nil
}

// Normalize decodes a delivered payload into an Event.
//
// Payloads with a string "type" keep it, taking "data" when it is an object.
// Anything else is the legacy flat shape and becomes update_information with
// the whole body under Data. A missing timestamp is filled with now.
func Normalize(raw []byte, now time.Time) (Event, error) {
	body, err := DecodeObject(raw)
	if err != nil {
		return Event{}, fmt.Errorf("decoding payload: %w", err)
	}
	return NormalizeMap(body, now), nil
}

// NormalizeMap is Normalize for an already decoded body.
func NormalizeMap(body map[string]any, now time.Time) Event {
	ev := Event{}

	if tag, ok := body["type"].(string); ok && tag != "" {
		ev.Type = EventType(tag)
		if data, ok := body["data"].(map[string]any); ok {
			ev.Data = data
		} else {
			ev.Data = map[string]any{}
		}
	} else {
		ev.Type = EventTypeUpdateInformation
		ev.Data = body
	}

	switch ts := body["timestamp"].(type) {
	case string:
		if ts != "" {
			ev.Timestamp = ts
		}
	case nil:
	default:
		// Non-string timestamps are shown as their JSON text.
		if b, err := json.Marshal(ts); err == nil {
			ev.Timestamp = string(b)
		}
	}
	if ev.Timestamp == "" {
		ev.Timestamp = FormatTimestamp(now)
	}
	return ev
}
