package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

type ItemType string

const (
	ItemTypeFlight   ItemType = "flight"
	ItemTypeHotel    ItemType = "hotel"
	ItemTypeActivity ItemType = "activity"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeFlight, ItemTypeHotel, ItemTypeActivity:
		return true
	default:
		return false
	}
}

// PlannedItem is a tentative or confirmed selection attached to a trip.
//
// Price is a unit price: per person for flights and activities, per night for hotels.
// BookingReference is set exactly when IsConfirmed is true.
type PlannedItem struct {
	ID     ItemID
	TripID TripID

	Type     ItemType
	Provider string
	Title    string
	Subtitle *string
	Details  Details

	Price  float64
	Nights *int // hotel-only override of the trip night count
	Tag    *string

	IsConfirmed      bool
	BookingReference *string

	CreatedAt time.Time
}

func (it PlannedItem) Clone() PlannedItem {
	cp := it
	cp.Subtitle = cloneStringPtr(it.Subtitle)
	cp.Tag = cloneStringPtr(it.Tag)
	cp.BookingReference = cloneStringPtr(it.BookingReference)
	if it.Nights != nil {
		n := *it.Nights
		cp.Nights = &n
	}
	return cp
}

// ValidateNewItem checks an item before it is attached to a trip.
func ValidateNewItem(it PlannedItem) error {
	ve := &ValidationError{}
	if it.Type == "" {
		ve.add("type", "is required")
	} else if !it.Type.Valid() {
		ve.add("type", "must be one of flight, hotel, activity")
	}
	if strings.TrimSpace(it.Title) == "" {
		ve.add("title", "is required")
	}
	if it.Price < 0 || math.IsNaN(it.Price) || math.IsInf(it.Price, 0) {
		ve.add("price", "must be a non-negative amount")
	}
	if it.Nights != nil && *it.Nights < 1 {
		ve.add("nights", "must be at least 1")
	}
	if it.Details != nil && it.Type.Valid() && it.Details.ItemType() != it.Type {
		ve.add("details", fmt.Sprintf("%s details do not match item type %s", it.Details.ItemType(), it.Type))
	}
	return ve.orNil()
}

// Details is the type-specific payload of a planned item.
// Each implementation belongs to exactly one ItemType.
type Details interface {
	ItemType() ItemType
}

// FlightDetails describes a flight option. Highlights carries the free-form detail lines
// shown on the option card.
type FlightDetails struct {
	Highlights   []string `json:"rawDetails,omitempty"`
	Airline      string   `json:"airline,omitempty"`
	FlightNumber string   `json:"flightNumber,omitempty"`
	Route        string   `json:"route,omitempty"`
	CabinClass   string   `json:"cabinClass,omitempty"`
}

func (FlightDetails) ItemType() ItemType { return ItemTypeFlight }

type HotelDetails struct {
	Highlights   []string `json:"rawDetails,omitempty"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	StarRating   float64  `json:"starRating,omitempty"`
}

func (HotelDetails) ItemType() ItemType { return ItemTypeHotel }

type ActivityDetails struct {
	Highlights []string `json:"rawDetails,omitempty"`
	Duration   string   `json:"duration,omitempty"`
	Location   string   `json:"location,omitempty"`
}

func (ActivityDetails) ItemType() ItemType { return ItemTypeActivity }

// RawDetails keeps the payload of an item whose type this service does not know.
type RawDetails struct {
	Kind ItemType
	Raw  json.RawMessage
}

func (d RawDetails) ItemType() ItemType { return d.Kind }

func (d RawDetails) MarshalJSON() ([]byte, error) {
	if len(d.Raw) == 0 {
		return []byte("{}"), nil
	}
	return d.Raw, nil
}

// NewDetails builds the typed details for t from free-form detail lines.
func NewDetails(t ItemType, highlights []string) Details {
	lines := append([]string(nil), highlights...)
	switch t {
	case ItemTypeFlight:
		return FlightDetails{Highlights: lines}
	case ItemTypeHotel:
		return HotelDetails{Highlights: lines}
	case ItemTypeActivity:
		return ActivityDetails{Highlights: lines}
	default:
		raw, _ := json.Marshal(map[string]any{"rawDetails": lines})
		return RawDetails{Kind: t, Raw: raw}
	}
}

// DecodeDetails decodes a stored or submitted payload using the item type as the tag.
// An empty or null payload yields the zero value for the type.
func DecodeDetails(t ItemType, raw []byte) (Details, error) {
	trimmed := bytes.TrimSpace(raw)
	empty := len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
	switch t {
	case ItemTypeFlight:
		var d FlightDetails
		if !empty {
			if err := json.Unmarshal(trimmed, &d); err != nil {
				return nil, fmt.Errorf("decode flight details: %w", err)
			}
		}
		return d, nil
	case ItemTypeHotel:
		var d HotelDetails
		if !empty {
			if err := json.Unmarshal(trimmed, &d); err != nil {
				return nil, fmt.Errorf("decode hotel details: %w", err)
			}
		}
		return d, nil
	case ItemTypeActivity:
		var d ActivityDetails
		if !empty {
			if err := json.Unmarshal(trimmed, &d); err != nil {
				return nil, fmt.Errorf("decode activity details: %w", err)
			}
		}
		return d, nil
	default:
		if empty {
			return RawDetails{Kind: t}, nil
		}
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("decode %s details: invalid json", t)
		}
		return RawDetails{Kind: t, Raw: append(json.RawMessage(nil), trimmed...)}, nil
	}
}

// EncodeDetails is the inverse of DecodeDetails. Nil details encode as an empty object.
func EncodeDetails(d Details) ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d)
}

// DetailLines returns the free-form detail lines carried by d, if any.
func DetailLines(d Details) []string {
	switch v := d.(type) {
	case FlightDetails:
		return v.Highlights
	case HotelDetails:
		return v.Highlights
	case ActivityDetails:
		return v.Highlights
	default:
		return nil
	}
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
