package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// Payload is the typed view of an Event's Data. The concrete type is one of
// UpdateInformation, DispatchEmergencyServices or TransferToHuman.
type Payload interface {
	EventType() EventType
}

// ServiceType names the emergency service a dispatch asks for.
type ServiceType string

const (
	ServicePolice      ServiceType = "police"
	ServiceFirefighter ServiceType = "firefighter"
	ServiceAmbulance   ServiceType = "ambulance"
)

// PriorityHigh is the only priority value the dashboard treats specially.
const PriorityHigh = "high"

// UpdateInformation carries facts extracted from the caller.
type UpdateInformation struct {
	Location         string
	CallerType       string
	Situation        string
	EmergencySummary string
	// GravityScore is nominally 1-5; the range is not enforced.
	GravityScore *int
}

func (UpdateInformation) EventType() EventType { return EventTypeUpdateInformation }

// DispatchEmergencyServices asks for a service to be sent.
type DispatchEmergencyServices struct {
	ServiceType ServiceType
	Priority    string
}

func (DispatchEmergencyServices) EventType() EventType { return EventTypeDispatchEmergencyServices }

// HighPriority reports whether the dispatch is flagged "high".
func (d DispatchEmergencyServices) HighPriority() bool { return d.Priority == PriorityHigh }

// TransferToHuman signals the caller should reach a human operator. The flags
// are advisory; the tag alone raises the dashboard alert.
type TransferToHuman struct {
	Transfer       *bool
	HumanRequested *bool
}

func (TransferToHuman) EventType() EventType { return EventTypeTransferToHuman }

// Payload decodes Data according to Type. Unknown tags decode as
// UpdateInformation so newer agent tools still render something useful.
func (e Event) Payload() Payload {
	switch e.Type {
	case EventTypeDispatchEmergencyServices:
		return DispatchEmergencyServices{
			ServiceType: ServiceType(stringField(e.Data, "service_type")),
			Priority:    stringField(e.Data, "priority"),
		}
	case EventTypeTransferToHuman:
		return TransferToHuman{
			Transfer:       boolField(e.Data, "transfer"),
			HumanRequested: boolField(e.Data, "human_requested"),
		}
	default:
		return UpdateInformation{
			Location:         stringField(e.Data, "location"),
			CallerType:       stringField(e.Data, "caller_type"),
			Situation:        stringField(e.Data, "situation"),
			EmergencySummary: stringField(e.Data, "emergency_summary"),
			GravityScore:     intField(e.Data, "gravity_score"),
		}
	}
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func intField(m map[string]any, key string) *int {
	var n int
	switch v := m[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return nil
		}
		n = int(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil || f != math.Trunc(f) {
			return nil
		}
		n = int(f)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}

func boolField(m map[string]any, key string) *bool {
	var b bool
	switch v := m[key].(type) {
	case bool:
		b = v
	case string:
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil
		}
		b = parsed
	default:
		return nil
	}
	return &b
}
