package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/youmna-rabie/incident-relay/internal/types"
)

const maxBodySize = 1 << 20 // 1 MB

var (
	ErrBodyTooLarge  = errors.New("request body exceeds 1MB limit")
	ErrMalformedJSON = errors.New("request body is not valid JSON")
)

// ToolCallChannel accepts the server-tool webhook of a voice agent. The body
// is caller-defined JSON; no Content-Type or auth checks are made.
type ToolCallChannel struct {
	name string
	now  func() time.Time
}

// NewToolCallChannel creates a ToolCallChannel with the given name.
func NewToolCallChannel(name string) *ToolCallChannel {
	return &ToolCallChannel{name: name, now: time.Now}
}

func (c *ToolCallChannel) Name() string {
	return c.name
}

// ParseRequest reads at most 1MB of body and checks that it is valid JSON.
func (c *ToolCallChannel) ParseRequest(r *http.Request) (*types.Delivery, error) {
	limited := io.LimitReader(r.Body, maxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, ErrBodyTooLarge
	}

	if !json.Valid(body) {
		return nil, ErrMalformedJSON
	}

	return &types.Delivery{
		ID:        uuid.New(),
		ChannelID: c.name,
		RawBody:   json.RawMessage(body),
		Headers:   extractHeaders(r),
		Timestamp: c.now(),
		Status:    types.DeliveryStatusReceived,
	}, nil
}

func extractHeaders(r *http.Request) map[string]string {
	h := make(map[string]string, len(r.Header))
	for k := range r.Header {
		h[k] = r.Header.Get(k)
	}
	return h
}
