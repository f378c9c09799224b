package types

import (
	"encoding/json"
	"testing"
)

func TestPayload_UpdateInformation(t *testing.T) {
	ev := Event{
		Type: EventTypeUpdateInformation,
		Data: map[string]any{
			"location":      "Pier 39",
			"caller_type":   "victim",
			"situation":     "smoke in the kitchen",
			"gravity_score": float64(4),
		},
	}
	p, ok := ev.Payload().(UpdateInformation)
	if !ok {
		t.Fatalf("Payload() = %T, want UpdateInformation", ev.Payload())
	}
	if p.Location != "Pier 39" || p.CallerType != "victim" || p.Situation != "smoke in the kitchen" {
		t.Errorf("unexpected fields: %+v", p)
	}
	if p.GravityScore == nil || *p.GravityScore != 4 {
		t.Errorf("GravityScore = %v, want 4", p.GravityScore)
	}
}

func TestPayload_GravityScoreUnbounded(t *testing.T) {
	ev := Event{Type: EventTypeUpdateInformation, Data: map[string]any{"gravity_score": float64(9)}}
	p := ev.Payload().(UpdateInformation)
	if p.GravityScore == nil || *p.GravityScore != 9 {
		t.Errorf("GravityScore = %v, want 9", p.GravityScore)
	}

	ev.Data["gravity_score"] = "2"
	if p := ev.Payload().(UpdateInformation); p.GravityScore == nil || *p.GravityScore != 2 {
		t.Errorf("string gravity score should parse, got %v", p.GravityScore)
	}

	ev.Data["gravity_score"] = 2.5
	if p := ev.Payload().(UpdateInformation); p.GravityScore != nil {
		t.Errorf("fractional gravity score should be ignored, got %v", *p.GravityScore)
	}
}

func TestPayload_Dispatch(t *testing.T) {
	ev := Event{
		Type: EventTypeDispatchEmergencyServices,
		Data: map[string]any{"service_type": "ambulance", "priority": "high"},
	}
	p, ok := ev.Payload().(DispatchEmergencyServices)
	if !ok {
		t.Fatalf("Payload() = %T", ev.Payload())
	}
	if p.ServiceType != ServiceAmbulance {
		t.Errorf("ServiceType = %q", p.ServiceType)
	}
	if !p.HighPriority() {
		t.Error("expected high priority")
	}

	ev.Data["priority"] = "HIGH"
	if ev.Payload().(DispatchEmergencyServices).HighPriority() {
		t.Error("priority match is exact")
	}
}

func TestPayload_Transfer(t *testing.T) {
	ev := Event{Type: EventTypeTransferToHuman, Data: map[string]any{"transfer": true}}
	p, ok := ev.Payload().(TransferToHuman)
	if !ok {
		t.Fatalf("Payload() = %T", ev.Payload())
	}
	if p.Transfer == nil || !*p.Transfer {
		t.Errorf("Transfer = %v", p.Transfer)
	}
	if p.HumanRequested != nil {
		t.Errorf("HumanRequested = %v, want nil", *p.HumanRequested)
	}
}

func TestPayload_UnknownTagFallsBackToUpdate(t *testing.T) {
	ev := Event{Type: "close_call", Data: map[string]any{"location": "Main St"}}
	p, ok := ev.Payload().(UpdateInformation)
	if !ok {
		t.Fatalf("Payload() = %T, want UpdateInformation", ev.Payload())
	}
	if p.Location != "Main St" {
		t.Errorf("Location = %q", p.Location)
	}
}

func TestPayload_DecodedNumbers(t *testing.T) {
	ev, err := Normalize([]byte(`{"location":"A","gravity_score":3}`), fixedNow)
	if err != nil {
		t.Fatal(err)
	}
	p := ev.Payload().(UpdateInformation)
	if p.GravityScore == nil || *p.GravityScore != 3 {
		t.Errorf("GravityScore = %v, want 3", p.GravityScore)
	}

	ev.Data["gravity_score"] = json.Number("3.5")
	if p := ev.Payload().(UpdateInformation); p.GravityScore != nil {
		t.Errorf("fractional score should be dropped, got %v", *p.GravityScore)
	}
}
