package domain

import "time"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func newTestTrip(adults, children int, budget float64, nights int) Trip {
	start := day(2025, time.June, 1)
	return Trip{
		ID:          "trip-1",
		OwnerID:     "owner-1",
		Destination: "Lisbon",
		Country:     "Portugal",
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, nights),
		Adults:      adults,
		Children:    children,
		Budget:      budget,
		BudgetType:  BudgetTypeTotal,
		Flexibility: FlexibilityModerately,
		Status:      TripStatusPlanning,
	}
}
