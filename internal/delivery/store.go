package delivery

import (
	"github.com/google/uuid"
	"github.com/youmna-rabie/incident-relay/internal/types"
)

// Store records webhook deliveries for operators. It is not a replay source:
// dashboards never read from it.
type Store interface {
	// Record appends a delivery, evicting the oldest one when full.
	Record(d types.Delivery) error

	// Get retrieves a delivery by ID. Returns ErrNotFound if it was never
	// recorded or has been evicted.
	Get(id uuid.UUID) (types.Delivery, error)

	// Recent returns up to limit deliveries, newest-first, after skipping
	// offset of them.
	Recent(limit, offset int) ([]types.Delivery, error)

	// SetStatus changes the status of a recorded delivery.
	SetStatus(id uuid.UUID, status types.DeliveryStatus) error

	// Stats returns how many retained deliveries are in each status.
	Stats() map[types.DeliveryStatus]int

	// Count returns the number of deliveries currently retained.
	Count() int
}
