package domain

import "github.com/samber/lo"

const dateLayout = "2006-01-02"

// PlannedItemsByType partitions a trip's items. Each list keeps the items' relative order.
// Other holds items of unknown type so that the lists always account for the full total.
type PlannedItemsByType struct {
	Flights    []PlannedItem
	Hotels     []PlannedItem
	Activities []PlannedItem
	Other      []PlannedItem
}

// TripContext is the read-only snapshot of a trip handed to the assistant prompt builder.
type TripContext struct {
	TripID      TripID
	Destination string
	Country     string
	StartDate   string // YYYY-MM-DD
	EndDate     string // YYYY-MM-DD
	Nights      int

	Adults         int
	Children       int
	TotalTravelers int

	TotalBudget             float64
	BudgetType              BudgetType
	BudgetTier              BudgetTier
	BudgetPerPersonPerNight float64
	PriceRanges             PriceRanges

	Interests   []string
	Flexibility Flexibility
	Status      TripStatus

	PlannedItems     PlannedItemsByType
	TotalPlannedCost float64
	RemainingBudget  float64
}

// BuildContext derives the snapshot for t.
func BuildContext(t Trip) (TripContext, error) {
	nights, travelers := t.Nights(), t.TotalTravelers()
	ppn, err := PerPersonPerNight(t.Budget, nights, travelers)
	if err != nil {
		return TripContext{}, err
	}
	tier := tierForDailySpend(ppn)

	items := make([]PlannedItem, len(t.Items))
	for i, it := range t.Items {
		items[i] = it.Clone()
	}
	byType := lo.GroupBy(items, func(it PlannedItem) ItemType {
		if it.Type.Valid() {
			return it.Type
		}
		return ""
	})
	total := TotalPlannedCost(t)

	return TripContext{
		TripID:      t.ID,
		Destination: t.Destination,
		Country:     t.Country,
		StartDate:   t.StartDate.UTC().Format(dateLayout),
		EndDate:     t.EndDate.UTC().Format(dateLayout),
		Nights:      nights,

		Adults:         t.Adults,
		Children:       t.Children,
		TotalTravelers: travelers,

		TotalBudget:             t.Budget,
		BudgetType:              t.BudgetType,
		BudgetTier:              tier,
		BudgetPerPersonPerNight: ppn,
		PriceRanges:             PriceRangesFor(tier),

		Interests:   append([]string{}, t.Interests...),
		Flexibility: t.Flexibility,
		Status:      t.Status,

		PlannedItems: PlannedItemsByType{
			Flights:    nonNil(byType[ItemTypeFlight]),
			Hotels:     nonNil(byType[ItemTypeHotel]),
			Activities: nonNil(byType[ItemTypeActivity]),
			Other:      byType[""],
		},
		TotalPlannedCost: total,
		RemainingBudget:  t.Budget - total,
	}, nil
}

// AllItems returns the partitioned items in flight, hotel, activity, other order.
func (p PlannedItemsByType) AllItems() []PlannedItem {
	out := make([]PlannedItem, 0, len(p.Flights)+len(p.Hotels)+len(p.Activities)+len(p.Other))
	out = append(out, p.Flights...)
	out = append(out, p.Hotels...)
	out = append(out, p.Activities...)
	return append(out, p.Other...)
}

// ItemCost applies the snapshot's multipliers to it.
func (c TripContext) ItemCost(it PlannedItem) float64 {
	return ItemCost(it, c.TotalTravelers, c.Nights)
}

func nonNil(items []PlannedItem) []PlannedItem {
	if items == nil {
		return []PlannedItem{}
	}
	return items
}
