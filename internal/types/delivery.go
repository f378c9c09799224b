package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the outcome of one webhook call.
type DeliveryStatus string

const (
	DeliveryStatusReceived  DeliveryStatus = "received"
	DeliveryStatusPublished DeliveryStatus = "published"
	DeliveryStatusSkipped   DeliveryStatus = "skipped"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

// Delivery records a tool-call request received by the webhook.
type Delivery struct {
	ID        uuid.UUID         `json:"id"`
	ChannelID string            `json:"channel_id"`
	RawBody   json.RawMessage   `json:"raw_body"`
	Headers   map[string]string `json:"headers"`
	Timestamp time.Time         `json:"timestamp"`
	Status    DeliveryStatus    `json:"status"`
}
