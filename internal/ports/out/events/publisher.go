package events

import (
	"context"
	"time"

	"github.com/peraluna/trip-planner-api/internal/domain"
)

const TypeBookingConfirmed = "booking.confirmed"

type ConfirmedItem struct {
	ItemID    domain.ItemID
	Type      domain.ItemType
	Title     string
	Reference string
}

// Event is a notification about a trip. Publishing is best effort.
type Event struct {
	Type       string
	TripID     domain.TripID
	OwnerID    domain.OwnerID
	Items      []ConfirmedItem
	OccurredAt time.Time
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
