package channel

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/youmna-rabie/incident-relay/internal/types"
)

func TestToolCallChannel_Name(t *testing.T) {
	ch := NewToolCallChannel("elevenlabs")
	if ch.Name() != "elevenlabs" {
		t.Fatalf("expected name %q, got %q", "elevenlabs", ch.Name())
	}
}

func TestToolCallChannel_ParseRequest_ValidJSON(t *testing.T) {
	ch := NewToolCallChannel("elevenlabs")
	stamp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ch.now = func() time.Time { return stamp }

	body := `{"type":"update_information","data":{"location":"5th & Main"}}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	r.Header.Set("User-Agent", "agent-tools/1.0")

	d, err := ch.ParseRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ChannelID != "elevenlabs" {
		t.Errorf("expected channel_id %q, got %q", "elevenlabs", d.ChannelID)
	}
	if string(d.RawBody) != body {
		t.Errorf("expected raw_body %q, got %q", body, string(d.RawBody))
	}
	if d.Status != types.DeliveryStatusReceived {
		t.Errorf("expected status %q, got %q", types.DeliveryStatusReceived, d.Status)
	}
	if !d.Timestamp.Equal(stamp) {
		t.Errorf("expected timestamp %v, got %v", stamp, d.Timestamp)
	}
	if d.Headers["User-Agent"] != "agent-tools/1.0" {
		t.Errorf("expected User-Agent header to be captured, got %v", d.Headers)
	}
}

func TestToolCallChannel_ParseRequest_NoContentTypeRequired(t *testing.T) {
	ch := NewToolCallChannel("elevenlabs")
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	r.Header.Set("Content-Type", "text/plain")

	if _, err := ch.ParseRequest(r); err != nil {
		t.Fatalf("Content-Type should not matter: %v", err)
	}
}

func TestToolCallChannel_ParseRequest_InvalidJSON(t *testing.T) {
	ch := NewToolCallChannel("elevenlabs")
	for _, body := range []string{"not json", `{"location":`, ""} {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		_, err := ch.ParseRequest(r)
		if !errors.Is(err, ErrMalformedJSON) {
			t.Errorf("ParseRequest(%q) error = %v, want ErrMalformedJSON", body, err)
		}
	}
}

func TestToolCallChannel_ParseRequest_BodyTooLarge(t *testing.T) {
	ch := NewToolCallChannel("elevenlabs")
	big := strings.Repeat("x", maxBodySize+1)
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))

	_, err := ch.ParseRequest(r)
	if !errors.Is(err, ErrBodyTooLarge) {
		t.Fatalf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestToolCallChannel_ParseRequest_BodyExactlyAtLimit(t *testing.T) {
	ch := NewToolCallChannel("elevenlabs")
	body := `"` + strings.Repeat("a", maxBodySize-2) + `"`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	d, err := ch.ParseRequest(r)
	if err != nil {
		t.Fatalf("body at exactly 1MB should be accepted: %v", err)
	}
	if len(d.RawBody) != maxBodySize {
		t.Errorf("expected body length %d, got %d", maxBodySize, len(d.RawBody))
	}
}

func TestToolCallChannel_ImplementsChannel(t *testing.T) {
	var _ types.Channel = (*ToolCallChannel)(nil)
}
