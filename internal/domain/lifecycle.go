package domain

import "fmt"

// Confirmation pairs a newly confirmed item with its booking reference.
type Confirmation struct {
	ItemID    ItemID
	Reference string
}

// AddItem validates it and appends it to the trip as a tentative selection.
func (t *Trip) AddItem(it PlannedItem) error {
	if err := ValidateNewItem(it); err != nil {
		return err
	}
	it.TripID = t.ID
	it.IsConfirmed = false
	it.BookingReference = nil
	t.Items = append(t.Items, it)
	return nil
}

func (t *Trip) FindItem(id ItemID) (PlannedItem, bool) {
	if i := t.itemIndex(id); i >= 0 {
		return t.Items[i], true
	}
	return PlannedItem{}, false
}

// RemoveItem deletes a tentative item. Confirmed items cannot be removed.
func (t *Trip) RemoveItem(id ItemID) (PlannedItem, error) {
	i := t.itemIndex(id)
	if i < 0 {
		return PlannedItem{}, ErrItemNotFound
	}
	it := t.Items[i]
	if it.IsConfirmed {
		return PlannedItem{}, ErrItemConfirmed
	}
	t.Items = append(t.Items[:i:i], t.Items[i+1:]...)
	return it, nil
}

// UnconfirmedItemIDs snapshots the tentative items in trip order.
func (t *Trip) UnconfirmedItemIDs() []ItemID {
	out := make([]ItemID, 0, len(t.Items))
	for _, it := range t.Items {
		if !it.IsConfirmed {
			out = append(out, it.ID)
		}
	}
	return out
}

// ConfirmItem promotes one item. It reports false when the item was already confirmed,
// leaving its reference untouched.
func (t *Trip) ConfirmItem(id ItemID, reference string) (bool, error) {
	i := t.itemIndex(id)
	if i < 0 {
		return false, ErrItemNotFound
	}
	if t.Items[i].IsConfirmed {
		return false, nil
	}
	if reference == "" {
		return false, fmt.Errorf("%w: empty booking reference", ErrInvalidArgument)
	}
	ref := reference
	t.Items[i].IsConfirmed = true
	t.Items[i].BookingReference = &ref
	return true, nil
}

// ConfirmAll confirms every item that is tentative at call time, in trip order, and moves
// the trip to booked even when there was nothing to confirm.
func (t *Trip) ConfirmAll(refs *ReferenceGenerator) []Confirmation {
	pending := t.UnconfirmedItemIDs()
	batch := refs.Batch(len(pending))
	out := make([]Confirmation, 0, len(pending))
	for i, id := range pending {
		if ok, err := t.ConfirmItem(id, batch[i]); err == nil && ok {
			out = append(out, Confirmation{ItemID: id, Reference: batch[i]})
		}
	}
	t.Status = TripStatusBooked
	return out
}

// KeepConfirmed lays incoming over stored without undoing a stored confirmation. A
// confirmed stored item replaces its incoming copy, and is appended when incoming dropped it.
func KeepConfirmed(stored, incoming []PlannedItem) []PlannedItem {
	locked := make(map[ItemID]PlannedItem)
	for _, it := range stored {
		if it.IsConfirmed {
			locked[it.ID] = it
		}
	}
	out := make([]PlannedItem, 0, len(incoming)+len(locked))
	for _, it := range incoming {
		if cur, ok := locked[it.ID]; ok {
			out = append(out, cur.Clone())
			delete(locked, it.ID)
			continue
		}
		out = append(out, it.Clone())
	}
	for _, it := range stored {
		if _, ok := locked[it.ID]; ok {
			out = append(out, it.Clone())
		}
	}
	return out
}

// CanMoveTo reports whether a status change requested by the owner is allowed.
// Trips only move forward, and booked is reserved to ConfirmAll.
func (s TripStatus) CanMoveTo(next TripStatus) bool {
	switch {
	case s == next:
		return true
	case s == TripStatusBooked && next == TripStatusCompleted:
		return true
	default:
		return false
	}
}

func (t *Trip) itemIndex(id ItemID) int {
	for i := range t.Items {
		if t.Items[i].ID == id {
			return i
		}
	}
	return -1
}
