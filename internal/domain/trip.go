package domain

import (
	"math"
	"time"
)

type TripStatus string

const (
	TripStatusPlanning  TripStatus = "planning"
	TripStatusBooked    TripStatus = "booked"
	TripStatusCompleted TripStatus = "completed"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripStatusPlanning, TripStatusBooked, TripStatusCompleted:
		return true
	default:
		return false
	}
}

// BudgetType records how the user entered the budget. It is an input hint only:
// Trip.Budget always holds the trip-wide total.
type BudgetType string

const (
	BudgetTypeTotal     BudgetType = "total"
	BudgetTypePerPerson BudgetType = "per-person"
)

func (b BudgetType) Valid() bool {
	return b == BudgetTypeTotal || b == BudgetTypePerPerson
}

type Flexibility string

const (
	FlexibilityVery       Flexibility = "very-flexible"
	FlexibilityModerately Flexibility = "moderately-flexible"
	FlexibilityNot        Flexibility = "not-flexible"
)

func (f Flexibility) Valid() bool {
	switch f {
	case FlexibilityVery, FlexibilityModerately, FlexibilityNot:
		return true
	default:
		return false
	}
}

// Trip is a user's planned journey together with its planned items.
type Trip struct {
	ID      TripID
	OwnerID OwnerID

	Destination string
	Country     string

	StartDate time.Time // date-only semantics, UTC midnight
	EndDate   time.Time // date-only semantics, UTC midnight

	Adults   int
	Children int

	// Budget is the trip-wide total, never a per-person figure.
	Budget      float64
	BudgetType  BudgetType
	Flexibility Flexibility
	Interests   []string

	Status TripStatus
	Items  []PlannedItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalTravelers is adults plus children.
func (t Trip) TotalTravelers() int {
	return t.Adults + t.Children
}

// Nights is the trip-wide night count: the ceiling of the day difference, minimum 1.
func (t Trip) Nights() int {
	return NightsBetween(t.StartDate, t.EndDate)
}

func NightsBetween(start, end time.Time) int {
	n := int(math.Ceil(end.Sub(start).Hours() / 24))
	if n < 1 {
		return 1
	}
	return n
}

// DateOnly truncates t to UTC midnight of its calendar date.
func DateOnly(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeBudget converts an entered amount into the stored trip-wide total.
func NormalizeBudget(amount float64, bt BudgetType, travelers int) float64 {
	if bt == BudgetTypePerPerson {
		return amount * float64(travelers)
	}
	return amount
}

// Validate checks the trip-level invariants. Items are validated when they are added.
func (t Trip) Validate() error {
	ve := &ValidationError{}
	if t.Destination == "" {
		ve.add("destination", "must be non-empty")
	}
	if t.Country == "" {
		ve.add("country", "must be non-empty")
	}
	if t.StartDate.IsZero() {
		ve.add("startDate", "is required")
	}
	if t.EndDate.IsZero() {
		ve.add("endDate", "is required")
	}
	if !t.StartDate.IsZero() && !t.EndDate.IsZero() && t.EndDate.Before(t.StartDate) {
		ve.add("endDate", "must be on or after startDate")
	}
	if t.Adults < 1 {
		ve.add("adults", "must be at least 1")
	}
	if t.Children < 0 {
		ve.add("children", "must be non-negative")
	}
	if !(t.Budget > 0) || math.IsInf(t.Budget, 0) {
		ve.add("budget", "must be a positive amount")
	}
	if !t.BudgetType.Valid() {
		ve.add("budgetType", "must be one of total, per-person")
	}
	if !t.Flexibility.Valid() {
		ve.add("flexibility", "must be one of very-flexible, moderately-flexible, not-flexible")
	}
	if !t.Status.Valid() {
		ve.add("status", "must be one of planning, booked, completed")
	}
	return ve.orNil()
}

// Clone returns a deep copy. Details values are treated as immutable and shared.
func (t Trip) Clone() Trip {
	cp := t
	if t.Interests != nil {
		cp.Interests = append([]string(nil), t.Interests...)
	}
	if t.Items != nil {
		cp.Items = make([]PlannedItem, len(t.Items))
		for i, it := range t.Items {
			cp.Items[i] = it.Clone()
		}
	}
	return cp
}
