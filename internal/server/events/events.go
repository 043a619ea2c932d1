package events

import (
	"context"
	"time"

	"github.com/KyooRuss/Parking-Management/pkg/models"
	"github.com/google/uuid"
)

// Event types published after a committed change.
const (
	TypeSlotAssigned    = "slot.assigned"
	TypeSlotReleased    = "slot.released"
	TypeSlotFlags       = "slot.flags_changed"
	TypeCapacityUpdated = "capacity.updated"
)

// Event describes one committed change.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	SlotID    string          `json:"slot_id,omitempty"`
	Category  models.Category `json:"category,omitempty"`
	Slot      *models.Slot    `json:"slot,omitempty"`
	Total     int             `json:"total,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent stamps a fresh id and the current time.
func NewEvent(eventType string) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

// Publisher fans committed changes out to external listeners such as slot
// display boards.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	PublishOccupancy(ctx context.Context, occ models.Occupancy) error
	Close() error
}

// NopPublisher discards everything. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error                     { return nil }
func (NopPublisher) PublishOccupancy(context.Context, models.Occupancy) error { return nil }
func (NopPublisher) Close() error                                             { return nil }
