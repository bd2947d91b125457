package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/peraluna/trip-planner-api/internal/ports/out/events"
)

const DefaultSubjectPrefix = "peraluna.trips"

// Publisher sends trip events to NATS as JSON messages on <prefix>.<event type>.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

func Connect(url, prefix string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("peraluna-trip-planner-api"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewPublisher(nc, prefix), nil
}

func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{nc: nc, prefix: prefix}
}

func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(e)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(Subject(p.prefix, e.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	return p.nc.Drain()
}

// Subject maps an event type such as "booking.confirmed" onto the configured prefix.
func Subject(prefix, eventType string) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

type wireItem struct {
	ItemID    string `json:"itemId"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Reference string `json:"bookingReference"`
}

type wireEvent struct {
	Type       string     `json:"type"`
	TripID     string     `json:"tripId"`
	OwnerID    string     `json:"ownerId"`
	Items      []wireItem `json:"items"`
	OccurredAt time.Time  `json:"occurredAt"`
}

func Encode(e events.Event) ([]byte, error) {
	w := wireEvent{
		Type:       e.Type,
		TripID:     string(e.TripID),
		OwnerID:    string(e.OwnerID),
		Items:      make([]wireItem, 0, len(e.Items)),
		OccurredAt: e.OccurredAt.UTC(),
	}
	for _, it := range e.Items {
		w.Items = append(w.Items, wireItem{
			ItemID:    string(it.ItemID),
			Type:      string(it.Type),
			Title:     it.Title,
			Reference: it.Reference,
		})
	}
	return json.Marshal(w)
}

var _ events.Publisher = (*Publisher)(nil)
