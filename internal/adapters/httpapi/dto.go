package httpapi

import (
	"encoding/json"
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/peraluna/trip-planner-api/internal/app/assistant"
	"github.com/peraluna/trip-planner-api/internal/app/trips"
	"github.com/peraluna/trip-planner-api/internal/domain"
)

// Trip is the JSON shape of a trip. Derived totals are recomputed on every response.
type Trip struct {
	TripID           string             `json:"tripId"`
	Destination      string             `json:"destination"`
	Country          string             `json:"country"`
	StartDate        openapi_types.Date `json:"startDate"`
	EndDate          openapi_types.Date `json:"endDate"`
	Nights           int                `json:"nights"`
	Adults           int                `json:"adults"`
	Children         int                `json:"children"`
	Budget           float64            `json:"budget"`
	BudgetType       domain.BudgetType  `json:"budgetType"`
	Flexibility      domain.Flexibility `json:"flexibility"`
	Interests        []string           `json:"interests"`
	Status           domain.TripStatus  `json:"status"`
	Items            []PlannedItem      `json:"items"`
	TotalPlannedCost float64            `json:"totalPlannedCost"`
	RemainingBudget  float64            `json:"remainingBudget"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

type PlannedItem struct {
	ItemID           string                    `json:"itemId"`
	TripID           string                    `json:"tripId"`
	Type             domain.ItemType           `json:"type"`
	Provider         string                    `json:"provider"`
	Title            string                    `json:"title"`
	Subtitle         nullable.Nullable[string] `json:"subtitle"`
	Details          json.RawMessage           `json:"details"`
	Price            float64                   `json:"price"`
	Nights           nullable.Nullable[int]    `json:"nights"`
	Tag              nullable.Nullable[string] `json:"tag"`
	IsConfirmed      bool                      `json:"isConfirmed"`
	BookingReference nullable.Nullable[string] `json:"bookingReference"`
	TotalCost        float64                   `json:"totalCost"`
	CreatedAt        time.Time                 `json:"createdAt"`
}

type TripResponse struct {
	Trip Trip `json:"trip"`
}

type TripListResponse struct {
	Trips []Trip `json:"trips"`
}

type ItemResponse struct {
	Item PlannedItem `json:"item"`
}

type Confirmation struct {
	ItemID           string `json:"itemId"`
	BookingReference string `json:"bookingReference"`
}

type ConfirmResponse struct {
	Trip          Trip           `json:"trip"`
	Confirmations []Confirmation `json:"confirmations"`
}

type SelectionResponse struct {
	Item    PlannedItem `json:"item"`
	Message string      `json:"message"`
}

type SyncResponse struct {
	Pushed  int  `json:"pushed"`
	Pending int  `json:"pending"`
	Offline bool `json:"offline"`
}

// TripContext mirrors domain.TripContext for the assistant-facing clients.
type TripContext struct {
	TripID                  string             `json:"tripId"`
	Destination             string             `json:"destination"`
	Country                 string             `json:"country"`
	StartDate               string             `json:"startDate"`
	EndDate                 string             `json:"endDate"`
	Nights                  int                `json:"nights"`
	Adults                  int                `json:"adults"`
	Children                int                `json:"children"`
	TotalTravelers          int                `json:"totalTravelers"`
	TotalBudget             float64            `json:"totalBudget"`
	BudgetType              domain.BudgetType  `json:"budgetType"`
	BudgetTier              domain.BudgetTier  `json:"budgetTier"`
	BudgetPerPersonPerNight float64            `json:"budgetPerPersonPerNight"`
	PriceRanges             domain.PriceRanges `json:"priceRanges"`
	Interests               []string           `json:"interests"`
	Flexibility             domain.Flexibility `json:"flexibility"`
	Status                  domain.TripStatus  `json:"status"`
	PlannedItems            PlannedItemsByType `json:"plannedItems"`
	TotalPlannedCost        float64            `json:"totalPlannedCost"`
	RemainingBudget         float64            `json:"remainingBudget"`
}

type PlannedItemsByType struct {
	Flights    []PlannedItem `json:"flights"`
	Hotels     []PlannedItem `json:"hotels"`
	Activities []PlannedItem `json:"activities"`
	Other      []PlannedItem `json:"other,omitempty"`
}

type ContextResponse struct {
	Context TripContext `json:"context"`
}

type CreateTripRequest struct {
	Destination string              `json:"destination"`
	Country     string              `json:"country"`
	StartDate   openapi_types.Date  `json:"startDate"`
	EndDate     openapi_types.Date  `json:"endDate"`
	Adults      *int                `json:"adults,omitempty"`
	Children    *int                `json:"children,omitempty"`
	Budget      *float64            `json:"budget,omitempty"`
	BudgetType  *domain.BudgetType  `json:"budgetType,omitempty"`
	Flexibility *domain.Flexibility `json:"flexibility,omitempty"`
	Interests   []string            `json:"interests,omitempty"`
}

// UpdateTripRequest is a PATCH body: omitted fields are left alone, null clears where allowed.
type UpdateTripRequest struct {
	Destination nullable.Nullable[string]             `json:"destination,omitempty"`
	Country     nullable.Nullable[string]             `json:"country,omitempty"`
	StartDate   nullable.Nullable[openapi_types.Date] `json:"startDate,omitempty"`
	EndDate     nullable.Nullable[openapi_types.Date] `json:"endDate,omitempty"`
	Adults      nullable.Nullable[int]                `json:"adults,omitempty"`
	Children    nullable.Nullable[int]                `json:"children,omitempty"`
	Budget      nullable.Nullable[float64]            `json:"budget,omitempty"`
	BudgetType  nullable.Nullable[domain.BudgetType]  `json:"budgetType,omitempty"`
	Flexibility nullable.Nullable[domain.Flexibility] `json:"flexibility,omitempty"`
	Interests   nullable.Nullable[[]string]           `json:"interests,omitempty"`
	Status      nullable.Nullable[domain.TripStatus]  `json:"status,omitempty"`
}

type AddItemRequest struct {
	Type     domain.ItemType `json:"type"`
	Provider string          `json:"provider"`
	Title    string          `json:"title"`
	Subtitle *string         `json:"subtitle,omitempty"`
	Details  json.RawMessage `json:"details,omitempty"`
	Price    *float64        `json:"price"`
	Nights   *int            `json:"nights,omitempty"`
	Tag      *string         `json:"tag,omitempty"`
}

type UpdateItemRequest struct {
	Price    nullable.Nullable[float64] `json:"price,omitempty"`
	Nights   nullable.Nullable[int]     `json:"nights,omitempty"`
	Tag      nullable.Nullable[string]  `json:"tag,omitempty"`
	Subtitle nullable.Nullable[string]  `json:"subtitle,omitempty"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatDelta struct {
	Text string `json:"text"`
}

// ChatDone is the final event of a chat stream.
type ChatDone struct {
	Content   string             `json:"content"`
	Before    string             `json:"before"`
	Options   []assistant.Option `json:"options"`
	After     string             `json:"after"`
	Offline   bool               `json:"offline"`
	Truncated bool               `json:"truncated"`
}

func tripFromDomain(t domain.Trip) Trip {
	travelers, nights := t.TotalTravelers(), t.Nights()
	items := make([]PlannedItem, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, itemFromDomain(it, domain.ItemCost(it, travelers, nights)))
	}
	interests := t.Interests
	if interests == nil {
		interests = []string{}
	}
	total := domain.TotalPlannedCost(t)
	return Trip{
		TripID:           string(t.ID),
		Destination:      t.Destination,
		Country:          t.Country,
		StartDate:        openapi_types.Date{Time: t.StartDate.UTC()},
		EndDate:          openapi_types.Date{Time: t.EndDate.UTC()},
		Nights:           nights,
		Adults:           t.Adults,
		Children:         t.Children,
		Budget:           t.Budget,
		BudgetType:       t.BudgetType,
		Flexibility:      t.Flexibility,
		Interests:        interests,
		Status:           t.Status,
		Items:            items,
		TotalPlannedCost: total,
		RemainingBudget:  t.Budget - total,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func itemFromDomain(it domain.PlannedItem, totalCost float64) PlannedItem {
	details, err := domain.EncodeDetails(it.Details)
	if err != nil {
		details = []byte("{}")
	}
	return PlannedItem{
		ItemID:           string(it.ID),
		TripID:           string(it.TripID),
		Type:             it.Type,
		Provider:         it.Provider,
		Title:            it.Title,
		Subtitle:         nullableString(it.Subtitle),
		Details:          details,
		Price:            it.Price,
		Nights:           nullableInt(it.Nights),
		Tag:              nullableString(it.Tag),
		IsConfirmed:      it.IsConfirmed,
		BookingReference: nullableString(it.BookingReference),
		TotalCost:        totalCost,
		CreatedAt:        it.CreatedAt,
	}
}

func contextFromDomain(tc domain.TripContext) TripContext {
	items := func(in []domain.PlannedItem) []PlannedItem {
		out := make([]PlannedItem, 0, len(in))
		for _, it := range in {
			out = append(out, itemFromDomain(it, tc.ItemCost(it)))
		}
		return out
	}
	out := TripContext{
		TripID:                  string(tc.TripID),
		Destination:             tc.Destination,
		Country:                 tc.Country,
		StartDate:               tc.StartDate,
		EndDate:                 tc.EndDate,
		Nights:                  tc.Nights,
		Adults:                  tc.Adults,
		Children:                tc.Children,
		TotalTravelers:          tc.TotalTravelers,
		TotalBudget:             tc.TotalBudget,
		BudgetType:              tc.BudgetType,
		BudgetTier:              tc.BudgetTier,
		BudgetPerPersonPerNight: tc.BudgetPerPersonPerNight,
		PriceRanges:             tc.PriceRanges,
		Interests:               tc.Interests,
		Flexibility:             tc.Flexibility,
		Status:                  tc.Status,
		PlannedItems: PlannedItemsByType{
			Flights:    items(tc.PlannedItems.Flights),
			Hotels:     items(tc.PlannedItems.Hotels),
			Activities: items(tc.PlannedItems.Activities),
		},
		TotalPlannedCost: tc.TotalPlannedCost,
		RemainingBudget:  tc.RemainingBudget,
	}
	if len(tc.PlannedItems.Other) > 0 {
		out.PlannedItems.Other = items(tc.PlannedItems.Other)
	}
	return out
}

func createTripInputFromRequest(b CreateTripRequest) trips.CreateTripInput {
	return trips.CreateTripInput{
		Destination: b.Destination,
		Country:     b.Country,
		StartDate:   b.StartDate.Time,
		EndDate:     b.EndDate.Time,
		Adults:      b.Adults,
		Children:    b.Children,
		Budget:      b.Budget,
		BudgetType:  b.BudgetType,
		Flexibility: b.Flexibility,
		Interests:   b.Interests,
	}
}

func updateTripInputFromRequest(b UpdateTripRequest) trips.UpdateTripInput {
	return trips.UpdateTripInput{
		Destination: optionalFromNullable(b.Destination, identity[string]),
		Country:     optionalFromNullable(b.Country, identity[string]),
		StartDate:   optionalFromNullable(b.StartDate, dateTime),
		EndDate:     optionalFromNullable(b.EndDate, dateTime),
		Adults:      optionalFromNullable(b.Adults, identity[int]),
		Children:    optionalFromNullable(b.Children, identity[int]),
		Budget:      optionalFromNullable(b.Budget, identity[float64]),
		BudgetType:  optionalFromNullable(b.BudgetType, identity[domain.BudgetType]),
		Flexibility: optionalFromNullable(b.Flexibility, identity[domain.Flexibility]),
		Interests:   optionalFromNullable(b.Interests, identity[[]string]),
		Status:      optionalFromNullable(b.Status, identity[domain.TripStatus]),
	}
}

func updateItemInputFromRequest(b UpdateItemRequest) trips.UpdateItemInput {
	return trips.UpdateItemInput{
		Price:    optionalFromNullable(b.Price, identity[float64]),
		Nights:   optionalFromNullable(b.Nights, identity[int]),
		Tag:      optionalFromNullable(b.Tag, identity[string]),
		Subtitle: optionalFromNullable(b.Subtitle, identity[string]),
	}
}

func optionalFromNullable[T, U any](n nullable.Nullable[T], conv func(T) U) trips.Optional[U] {
	if !n.IsSpecified() {
		return trips.Unspecified[U]()
	}
	if n.IsNull() {
		return trips.Null[U]()
	}
	v, err := n.Get()
	if err != nil {
		return trips.Unspecified[U]()
	}
	return trips.Some(conv(v))
}

func identity[T any](v T) T { return v }

func dateTime(d openapi_types.Date) time.Time { return d.Time }

func nullableString(p *string) nullable.Nullable[string] {
	var out nullable.Nullable[string]
	if p != nil {
		out.Set(*p)
	} else {
		out.SetNull()
	}
	return out
}

func nullableInt(p *int) nullable.Nullable[int] {
	var out nullable.Nullable[int]
	if p != nil {
		out.Set(*p)
	} else {
		out.SetNull()
	}
	return out
}
