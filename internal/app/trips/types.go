package trips

import (
	"time"

	"github.com/peraluna/trip-planner-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// CreateTripInput carries the trip form. Nil pointers take the documented defaults:
// 1 adult, 0 children, a 3000 total budget and moderate flexibility.
type CreateTripInput struct {
	Destination string
	Country     string
	StartDate   time.Time
	EndDate     time.Time

	Adults   *int
	Children *int

	// Budget is read according to BudgetType: a trip total or a per-traveler amount.
	Budget      *float64
	BudgetType  *domain.BudgetType
	Flexibility *domain.Flexibility
	Interests   []string
}

// UpdateTripInput patches a trip. Null is only meaningful for Interests (clears them);
// every other field rejects null.
type UpdateTripInput struct {
	Destination Optional[string]
	Country     Optional[string]
	StartDate   Optional[time.Time]
	EndDate     Optional[time.Time]

	Adults   Optional[int]
	Children Optional[int]

	// Budget, when set, is read according to the resulting BudgetType.
	Budget      Optional[float64]
	BudgetType  Optional[domain.BudgetType]
	Flexibility Optional[domain.Flexibility]
	Interests   Optional[[]string]
	Status      Optional[domain.TripStatus]
}

type AddItemInput struct {
	Type     domain.ItemType
	Provider string
	Title    string
	Subtitle *string
	Details  domain.Details

	// Price is per traveler for flights and activities and per night for hotels.
	Price  float64
	Nights *int
	Tag    *string
}

// UpdateItemInput patches a tentative item. Null clears Nights, Tag or Subtitle.
type UpdateItemInput struct {
	Price    Optional[float64]
	Nights   Optional[int]
	Tag      Optional[string]
	Subtitle Optional[string]
}

// ConfirmResult is the outcome of confirming a trip's tentative items.
// Confirmations lists only the items this call confirmed.
type ConfirmResult struct {
	Trip          domain.Trip
	Confirmations []domain.Confirmation
}
