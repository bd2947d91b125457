package assistant_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peraluna/trip-planner-api/internal/app/assistant"
	"github.com/peraluna/trip-planner-api/internal/domain"
)

func sampleTrip(items ...domain.PlannedItem) domain.Trip {
	return domain.Trip{
		ID:          "t1",
		OwnerID:     "alice",
		Destination: "Lisbon",
		Country:     "Portugal",
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		Adults:      2,
		Children:    1,
		Budget:      4500,
		BudgetType:  domain.BudgetTypeTotal,
		Flexibility: domain.FlexibilityModerately,
		Interests:   []string{"food", "history"},
		Status:      domain.TripStatusPlanning,
		Items:       items,
	}
}

func item(id string, typ domain.ItemType, title string, price float64) domain.PlannedItem {
	return domain.PlannedItem{ID: domain.ItemID(id), TripID: "t1", Type: typ, Title: title, Price: price}
}

func prompt(t *testing.T, trip domain.Trip) string {
	t.Helper()
	tc, err := domain.BuildContext(trip)
	require.NoError(t, err)
	return assistant.BuildSystemPrompt(&tc)
}

func TestBuildSystemPrompt_TripContext(t *testing.T) {
	t.Parallel()
	p := prompt(t, sampleTrip())

	assert.Contains(t, p, "You are Luna")
	assert.Contains(t, p, "Destination: Lisbon, Portugal")
	assert.Contains(t, p, "Travel Dates: 2025-06-01 to 2025-06-06 (5 nights)")
	assert.Contains(t, p, "Travelers: 2 adults + 1 child (3 total)")
	assert.Contains(t, p, "Total Budget: $4,500")
	assert.Contains(t, p, "Budget Tier: STANDARD ($300/person/night)")
	assert.Contains(t, p, "Interests: food, history")
	assert.Contains(t, p, "Flexibility: moderately flexible")
	assert.Contains(t, p, "- Flights: $800-1500/person")
	assert.Contains(t, p, "- Hotels: $120-280/night")
	assert.Contains(t, p, "total cost = price × 3 travelers")
	assert.Contains(t, p, "They're traveling with 1 child - suggest family-friendly options!")
	assert.Contains(t, p, "Flights: NOT YET SELECTED")
	assert.Contains(t, p, "Hotel: NOT YET SELECTED")
	assert.Contains(t, p, "Activities: None selected yet")
	assert.Contains(t, p, "DISCOVERY PHASE")
}

func TestBuildSystemPrompt_NilContextIsPersonaOnly(t *testing.T) {
	t.Parallel()
	p := assistant.BuildSystemPrompt(nil)
	assert.Contains(t, p, "You are Luna")
	assert.NotContains(t, p, "CURRENT TRIP CONTEXT")
}

func TestBuildSystemPrompt_PlannedItems(t *testing.T) {
	t.Parallel()
	ref := "PL-ABC-1234"
	nights := 2
	hotel := item("h1", domain.ItemTypeHotel, "Memmo Alfama", 200)
	hotel.Nights = &nights
	flight := item("f1", domain.ItemTypeFlight, "TAP TP204", 780)
	sub := "JFK → LIS"
	flight.Subtitle = &sub
	flight.IsConfirmed = true
	flight.BookingReference = &ref

	p := prompt(t, sampleTrip(
		flight,
		hotel,
		item("h2", domain.ItemTypeHotel, "Pestana Palace", 300),
		item("a1", domain.ItemTypeActivity, "Fado night", 45),
		item("a2", domain.ItemTypeActivity, "Sintra day trip", 90),
	))

	assert.Contains(t, p, "Flight: TAP TP204 (JFK → LIS) - $780/person (Total: $2,340) [CONFIRMED]")
	assert.Contains(t, p, "Hotel: Memmo Alfama - $200/night (Total: $400 for 2 nights) [PLANNED]")
	assert.Contains(t, p, "Hotel: Pestana Palace - $300/night (Total: $1,500 for 5 nights) [PLANNED]")
	assert.Contains(t, p, "Activities: Fado night ($45/person = $135 total), Sintra day trip ($90/person = $270 total)")
	assert.Contains(t, p, "Total Planned Cost: $4,645")
	assert.Contains(t, p, "Remaining Budget: -$145")
	assert.Contains(t, p, "Everything is planned!")
}

func TestBuildSystemPrompt_Phases(t *testing.T) {
	t.Parallel()
	flight := item("f1", domain.ItemTypeFlight, "TAP", 500)
	hotel := item("h1", domain.ItemTypeHotel, "Memmo", 100)

	cases := []struct {
		name  string
		items []domain.PlannedItem
		want  string
	}{
		{"nothing planned", nil, "DISCOVERY PHASE"},
		{"flights only", []domain.PlannedItem{flight}, "Now discuss accommodations"},
		{"flights and hotels", []domain.PlannedItem{flight, hotel}, "Time for activities"},
		{"hotel without flight", []domain.PlannedItem{hotel}, "Everything is planned!"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Contains(t, prompt(t, sampleTrip(tc.items...)), tc.want)
		})
	}
}

func TestTravelerSummary(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "1 adult", assistant.TravelerSummary(1, 0))
	assert.Equal(t, "2 adults", assistant.TravelerSummary(2, 0))
	assert.Equal(t, "1 adult + 2 children (3 total)", assistant.TravelerSummary(1, 2))
}
