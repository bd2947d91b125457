package domain

// OwnerID is the authenticated subject (JWT "sub") that owns a trip.
// We model it as an opaque identifier: its format is controlled by the IdP.
type OwnerID string

// TripID is an internal identifier for a trip record.
type TripID string

// ItemID is an internal identifier for a planned item.
type ItemID string
