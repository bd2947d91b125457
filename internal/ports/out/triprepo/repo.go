package triprepo

import (
	"context"

	"github.com/peraluna/trip-planner-api/internal/domain"
)

// Repository provides owner-scoped access to persisted trips and their planned items.
//
// Cross-owner access must behave exactly like a missing record (ErrNotFound).
// GetByID returns items in insertion order; ListByOwner returns trips newest first.
type Repository interface {
	Create(ctx context.Context, t domain.Trip) error
	// Save updates trip-level fields. Items are managed by the item methods.
	Save(ctx context.Context, t domain.Trip) error
	// Upsert writes the trip and replaces its tentative items (last write wins).
	// Items confirmed in the store are kept as stored, whatever the incoming copy says.
	Upsert(ctx context.Context, t domain.Trip) error
	Delete(ctx context.Context, owner domain.OwnerID, id domain.TripID) error

	GetByID(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.Trip, error)
	ListByOwner(ctx context.Context, owner domain.OwnerID) ([]domain.Trip, error)

	AddItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error
	// UpdateItem rewrites the mutable fields of a tentative item (price, nights, tag,
	// subtitle, details). UpdateItem and DeleteItem return ErrConfirmed for a confirmed item.
	UpdateItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error
	DeleteItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID) error

	// ConfirmItem marks an item confirmed with reference only if it is still tentative.
	// It reports whether this call performed the transition.
	ConfirmItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID, reference string) (bool, error)
}

// Pending identifies a trip changed in a WorkingSet while the primary store was unreachable.
type Pending struct {
	Owner   domain.OwnerID
	TripID  domain.TripID
	Deleted bool
}

// WorkingSet is the local copy of trips used while the primary store is unavailable.
//
// Its Repository methods are offline writes and mark the trip pending.
// Remember and Forget mirror the primary store and never mark anything pending.
type WorkingSet interface {
	Repository

	Remember(t domain.Trip)
	// RememberConfirmation applies a confirmation the primary store accepted to the local copy.
	RememberConfirmation(owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID, reference string)
	Forget(owner domain.OwnerID, id domain.TripID)

	Pending() []Pending
	ClearPending(owner domain.OwnerID, id domain.TripID)
}
