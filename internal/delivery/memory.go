package delivery

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/youmna-rabie/incident-relay/internal/types"
)

var (
	ErrNotFound        = errors.New("delivery not found")
	ErrInvalidCapacity = errors.New("capacity must be greater than zero")
)

// MemoryLog is a fixed-size delivery log backed by a ring buffer, indexed by
// delivery ID. Safe for concurrent use.
type MemoryLog struct {
	mu    sync.RWMutex
	ring  []types.Delivery
	index map[uuid.UUID]int // delivery ID → slot in ring
	size  int               // retained deliveries
	next  int               // slot the next Record writes
}

// NewMemoryLog creates a MemoryLog retaining at most capacity deliveries.
func NewMemoryLog(capacity int) (*MemoryLog, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &MemoryLog{
		ring:  make([]types.Delivery, capacity),
		index: make(map[uuid.UUID]int, capacity),
	}, nil
}

func (l *MemoryLog) Record(d types.Delivery) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.size == len(l.ring) {
		delete(l.index, l.ring[l.next].ID)
	} else {
		l.size++
	}

	l.ring[l.next] = d
	l.index[d.ID] = l.next
	l.next = (l.next + 1) % len(l.ring)
	return nil
}

func (l *MemoryLog) Get(id uuid.UUID) (types.Delivery, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	slot, ok := l.index[id]
	if !ok {
		return types.Delivery{}, ErrNotFound
	}
	return l.ring[slot], nil
}

func (l *MemoryLog) Recent(limit, offset int) ([]types.Delivery, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if limit <= 0 || offset >= l.size {
		return nil, nil
	}
	offset = max(offset, 0)

	n := min(limit, l.size-offset)
	out := make([]types.Delivery, 0, n)
	for i := offset; i < offset+n; i++ {
		// i-th newest sits i slots behind the write cursor.
		slot := (l.next - 1 - i + 2*len(l.ring)) % len(l.ring)
		out = append(out, l.ring[slot])
	}
	return out, nil
}

func (l *MemoryLog) SetStatus(id uuid.UUID, status types.DeliveryStatus) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.index[id]
	if !ok {
		return ErrNotFound
	}
	l.ring[slot].Status = status
	return nil
}

func (l *MemoryLog) Stats() map[types.DeliveryStatus]int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := make(map[types.DeliveryStatus]int)
	for _, slot := range l.index {
		stats[l.ring[slot].Status]++
	}
	return stats
}

func (l *MemoryLog) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.size
}
