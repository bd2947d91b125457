package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNightsBetween(t *testing.T) {
	t.Parallel()

	start := day(2025, time.March, 10)
	assert.Equal(t, 1, NightsBetween(start, start))
	assert.Equal(t, 5, NightsBetween(start, day(2025, time.March, 15)))
	assert.Equal(t, 2, NightsBetween(start, start.Add(25*time.Hour)))
	assert.Equal(t, 1, NightsBetween(start, start.AddDate(0, 0, -3)))
}

func TestTripValidate(t *testing.T) {
	t.Parallel()

	ok := newTestTrip(2, 1, 3000, 5)
	require.NoError(t, ok.Validate())

	bad := ok
	bad.Destination = ""
	bad.Adults = 0
	bad.Children = -1
	bad.Budget = 0
	bad.EndDate = bad.StartDate.AddDate(0, 0, -1)
	bad.BudgetType = "weekly"
	bad.Flexibility = "sometimes"

	err := bad.Validate()
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	for _, f := range []string{"destination", "adults", "children", "budget", "endDate", "budgetType", "flexibility"} {
		assert.Contains(t, ve.Fields, f)
	}
	assert.Contains(t, err.Error(), "adults: must be at least 1")
}

func TestTripClone_IsDeep(t *testing.T) {
	t.Parallel()

	trip := newTestTrip(1, 0, 1000, 2)
	trip.Interests = []string{"food"}
	tag := "Best Value"
	trip.Items = []PlannedItem{{ID: "h1", Type: ItemTypeHotel, Title: "H", Nights: intPtr(2), Tag: &tag}}

	cp := trip.Clone()
	cp.Interests[0] = "art"
	*cp.Items[0].Nights = 9
	*cp.Items[0].Tag = "Premium"

	assert.Equal(t, "food", trip.Interests[0])
	assert.Equal(t, 2, *trip.Items[0].Nights)
	assert.Equal(t, "Best Value", *trip.Items[0].Tag)
}

func TestNormalizeInterests(t *testing.T) {
	t.Parallel()

	got := NormalizeInterests([]string{" Food ", "food", "", "street   art", "History"})
	assert.Equal(t, []string{"Food", "street art", "History"}, got)
}
