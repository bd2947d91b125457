package domain

import "fmt"

type BudgetTier string

const (
	BudgetTierBudget   BudgetTier = "budget"
	BudgetTierStandard BudgetTier = "standard"
	BudgetTierLuxury   BudgetTier = "luxury"
)

// Tier thresholds in money units per person per night.
const (
	standardTierFloor = 150
	luxuryTierFloor   = 350
)

// PriceRange is an inclusive [min, max] band. It encodes as a two-element JSON array.
type PriceRange [2]int

func (r PriceRange) Min() int { return r[0] }
func (r PriceRange) Max() int { return r[1] }

// PriceRanges holds the suggested unit-price bands for a tier:
// flights and activities per person, hotels per night.
type PriceRanges struct {
	Flight   PriceRange `json:"flight"`
	Hotel    PriceRange `json:"hotel"`
	Activity PriceRange `json:"activity"`
}

var priceRangesByTier = map[BudgetTier]PriceRanges{
	BudgetTierBudget: {
		Flight:   PriceRange{400, 800},
		Hotel:    PriceRange{50, 120},
		Activity: PriceRange{20, 60},
	},
	BudgetTierStandard: {
		Flight:   PriceRange{800, 1500},
		Hotel:    PriceRange{120, 280},
		Activity: PriceRange{50, 150},
	},
	BudgetTierLuxury: {
		Flight:   PriceRange{1500, 4000},
		Hotel:    PriceRange{280, 800},
		Activity: PriceRange{100, 500},
	},
}

// PerPersonPerNight divides a total budget across travelers and nights.
func PerPersonPerNight(budget float64, nights, travelers int) (float64, error) {
	if nights < 1 {
		return 0, fmt.Errorf("%w: nights must be at least 1, got %d", ErrInvalidArgument, nights)
	}
	if travelers < 1 {
		return 0, fmt.Errorf("%w: travelers must be at least 1, got %d", ErrInvalidArgument, travelers)
	}
	return budget / float64(travelers) / float64(nights), nil
}

// BudgetTierFor classifies spend per person per night.
func BudgetTierFor(budget float64, nights, travelers int) (BudgetTier, error) {
	x, err := PerPersonPerNight(budget, nights, travelers)
	if err != nil {
		return "", err
	}
	return tierForDailySpend(x), nil
}

func tierForDailySpend(x float64) BudgetTier {
	switch {
	case x < standardTierFloor:
		return BudgetTierBudget
	case x < luxuryTierFloor:
		return BudgetTierStandard
	default:
		return BudgetTierLuxury
	}
}

// PriceRangesFor returns the fixed price bands for tier. Unknown tiers yield zero ranges.
func PriceRangesFor(tier BudgetTier) PriceRanges {
	return priceRangesByTier[tier]
}
