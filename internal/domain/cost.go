package domain

import "github.com/samber/lo"

// ItemCost is the contribution of one item to the trip total.
//
// Flights and activities are charged per traveler, hotels per night (the item's own
// night count when set, otherwise the trip's). Any other type is a flat amount.
func ItemCost(it PlannedItem, travelers, tripNights int) float64 {
	switch it.Type {
	case ItemTypeFlight, ItemTypeActivity:
		return it.Price * float64(travelers)
	case ItemTypeHotel:
		nights := tripNights
		if it.Nights != nil && *it.Nights > 0 {
			nights = *it.Nights
		}
		return it.Price * float64(nights)
	default:
		return it.Price
	}
}

// ItemCost applies the trip's traveler and night multipliers to it.
func (t Trip) ItemCost(it PlannedItem) float64 {
	return ItemCost(it, t.TotalTravelers(), t.Nights())
}

// TotalPlannedCost sums every item's contribution. It is recomputed on each call.
func TotalPlannedCost(t Trip) float64 {
	travelers, nights := t.TotalTravelers(), t.Nights()
	return lo.SumBy(t.Items, func(it PlannedItem) float64 {
		return ItemCost(it, travelers, nights)
	})
}

// RemainingBudget may be negative: over budget is a valid state.
func RemainingBudget(t Trip) float64 {
	return t.Budget - TotalPlannedCost(t)
}
