package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)] % n
	r.i++
	return v
}

func fixedGen(now time.Time) *ReferenceGenerator {
	return NewReferenceGenerator(func() time.Time { return now }, nil)
}

func TestAddItem_ValidatesAndForcesTentative(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(2, 0, 3000, 5)
	ref := "PL-FAKE-0000"
	err := trip.AddItem(PlannedItem{ID: "f1", Type: ItemTypeFlight, Title: "TP 123", Price: 500, IsConfirmed: true, BookingReference: &ref})
	require.NoError(t, err)
	require.Len(t, trip.Items, 1)
	assert.False(t, trip.Items[0].IsConfirmed)
	assert.Nil(t, trip.Items[0].BookingReference)
	assert.Equal(t, trip.ID, trip.Items[0].TripID)
}

func TestAddItem_RejectsMissingFields(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(2, 0, 3000, 5)

	err := trip.AddItem(PlannedItem{ID: "x", Title: "No type"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "type")

	err = trip.AddItem(PlannedItem{ID: "y", Type: ItemTypeHotel, Title: "   "})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")

	err = trip.AddItem(PlannedItem{ID: "z", Type: "cruise", Title: "Boat"})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "type")

	err = trip.AddItem(PlannedItem{ID: "w", Type: ItemTypeHotel, Title: "Hotel", Details: FlightDetails{}})
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "details")

	assert.Empty(t, trip.Items)
}

func TestRemoveItem(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(2, 0, 3000, 5)
	require.NoError(t, trip.AddItem(PlannedItem{ID: "a", Type: ItemTypeActivity, Title: "A"}))
	require.NoError(t, trip.AddItem(PlannedItem{ID: "b", Type: ItemTypeActivity, Title: "B"}))

	removed, err := trip.RemoveItem("a")
	require.NoError(t, err)
	assert.Equal(t, ItemID("a"), removed.ID)
	require.Len(t, trip.Items, 1)
	assert.Equal(t, ItemID("b"), trip.Items[0].ID)

	_, err = trip.RemoveItem("a")
	assert.ErrorIs(t, err, ErrItemNotFound)

	trip.ConfirmAll(fixedGen(time.Unix(1700000000, 0)))
	_, err = trip.RemoveItem("b")
	assert.ErrorIs(t, err, ErrItemConfirmed)
	assert.Len(t, trip.Items, 1)
}

func TestConfirmAll_AssignsReferencesInOrder(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(2, 0, 3000, 5)
	for _, id := range []ItemID{"f1", "h1", "a1"} {
		require.NoError(t, trip.AddItem(PlannedItem{ID: id, Type: ItemTypeActivity, Title: string(id)}))
	}

	confs := trip.ConfirmAll(fixedGen(time.Unix(1700000000, 0)))
	require.Len(t, confs, 3)
	assert.Equal(t, TripStatusBooked, trip.Status)

	seen := map[string]bool{}
	for i, c := range confs {
		assert.Equal(t, trip.Items[i].ID, c.ItemID)
		assert.True(t, trip.Items[i].IsConfirmed)
		require.NotNil(t, trip.Items[i].BookingReference)
		assert.Equal(t, c.Reference, *trip.Items[i].BookingReference)
		assert.False(t, seen[c.Reference], "duplicate reference %s", c.Reference)
		seen[c.Reference] = true
	}
}

func TestConfirmAll_IdempotentAndEmpty(t *testing.T) {
	t.Parallel()

	empty := newTestTrip(1, 0, 1000, 2)
	assert.Empty(t, empty.ConfirmAll(fixedGen(time.Unix(1, 0))))
	assert.Equal(t, TripStatusBooked, empty.Status)

	trip := newTestTrip(1, 0, 1000, 2)
	require.NoError(t, trip.AddItem(PlannedItem{ID: "f1", Type: ItemTypeFlight, Title: "F"}))
	first := trip.ConfirmAll(fixedGen(time.Unix(1, 0)))
	require.Len(t, first, 1)
	ref := *trip.Items[0].BookingReference

	second := trip.ConfirmAll(fixedGen(time.Unix(2, 0)))
	assert.Empty(t, second)
	assert.Equal(t, TripStatusBooked, trip.Status)
	assert.Equal(t, ref, *trip.Items[0].BookingReference)
}

func TestConfirmAll_OnlyTouchesTentativeItems(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(1, 0, 1000, 2)
	require.NoError(t, trip.AddItem(PlannedItem{ID: "f1", Type: ItemTypeFlight, Title: "F"}))
	trip.ConfirmAll(fixedGen(time.Unix(1, 0)))
	require.NoError(t, trip.AddItem(PlannedItem{ID: "h1", Type: ItemTypeHotel, Title: "H"}))

	confs := trip.ConfirmAll(fixedGen(time.Unix(5, 0)))
	require.Len(t, confs, 1)
	assert.Equal(t, ItemID("h1"), confs[0].ItemID)
	for _, it := range trip.Items {
		assert.Equal(t, it.IsConfirmed, it.BookingReference != nil)
	}
}

func TestConfirmItem(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(1, 0, 1000, 2)
	require.NoError(t, trip.AddItem(PlannedItem{ID: "f1", Type: ItemTypeFlight, Title: "F"}))

	_, err := trip.ConfirmItem("f1", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	ok, err := trip.ConfirmItem("f1", "PL-A-0001")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = trip.ConfirmItem("f1", "PL-B-0002")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "PL-A-0001", *trip.Items[0].BookingReference)

	_, err = trip.ConfirmItem("missing", "PL-C-0003")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestKeepConfirmed(t *testing.T) {
	t.Parallel()

	ref := "PL-STORE-0001"
	stored := []PlannedItem{
		{ID: "a", Type: ItemTypeFlight, Title: "TP 204", Price: 780, IsConfirmed: true, BookingReference: &ref},
		{ID: "b", Type: ItemTypeHotel, Title: "Memmo", Price: 200},
		{ID: "c", Type: ItemTypeActivity, Title: "Fado", Price: 45, IsConfirmed: true, BookingReference: &ref},
	}
	incoming := []PlannedItem{
		{ID: "b", Type: ItemTypeHotel, Title: "Memmo", Price: 180},
		{ID: "a", Type: ItemTypeFlight, Title: "TP 204", Price: 1},
		{ID: "d", Type: ItemTypeActivity, Title: "Tram 28", Price: 3},
	}

	got := KeepConfirmed(stored, incoming)
	require.Len(t, got, 4)
	assert.Equal(t, []ItemID{"b", "a", "d", "c"}, []ItemID{got[0].ID, got[1].ID, got[2].ID, got[3].ID})
	assert.Equal(t, 180.0, got[0].Price, "tentative items take the incoming copy")
	assert.True(t, got[1].IsConfirmed)
	assert.Equal(t, 780.0, got[1].Price)
	require.NotNil(t, got[1].BookingReference)
	assert.Equal(t, ref, *got[1].BookingReference)
	assert.True(t, got[3].IsConfirmed, "confirmed items missing from incoming are kept")

	assert.NotNil(t, KeepConfirmed(nil, nil))
}

func TestTripStatus_CanMoveTo(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to TripStatus
		want     bool
	}{
		{TripStatusPlanning, TripStatusPlanning, true},
		{TripStatusPlanning, TripStatusBooked, false},
		{TripStatusPlanning, TripStatusCompleted, false},
		{TripStatusBooked, TripStatusCompleted, true},
		{TripStatusBooked, TripStatusPlanning, false},
		{TripStatusCompleted, TripStatusBooked, false},
		{TripStatusCompleted, TripStatusCompleted, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.from.CanMoveTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}
