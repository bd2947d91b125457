package nats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/events"
)

func TestSubject(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "peraluna.trips.booking.confirmed", Subject("peraluna.trips", events.TypeBookingConfirmed))
	assert.Equal(t, "acme.booking.confirmed", Subject("acme.", events.TypeBookingConfirmed))
	assert.Equal(t, "booking.confirmed", Subject("", events.TypeBookingConfirmed))
}

func TestEncode(t *testing.T) {
	t.Parallel()
	at := time.Date(2025, 5, 2, 10, 0, 0, 0, time.FixedZone("X", 3600))
	data, err := Encode(events.Event{
		Type:    events.TypeBookingConfirmed,
		TripID:  "trip-1",
		OwnerID: "owner-1",
		Items: []events.ConfirmedItem{
			{ItemID: "i1", Type: domain.ItemTypeHotel, Title: "Memmo Alfama", Reference: "PL-ABC-1234"},
		},
		OccurredAt: at,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "booking.confirmed", got["type"])
	assert.Equal(t, "trip-1", got["tripId"])
	assert.Equal(t, "2025-05-02T09:00:00Z", got["occurredAt"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "PL-ABC-1234", items[0].(map[string]any)["bookingReference"])
}

func TestEncode_NoItemsIsEmptyArray(t *testing.T) {
	t.Parallel()
	data, err := Encode(events.Event{Type: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"items":[]`)
}
