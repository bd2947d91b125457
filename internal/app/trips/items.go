package trips

import (
	"context"
	"errors"
	"strings"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

// AddItem attaches a tentative item to the trip and returns it.
func (s *Service) AddItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, in AddItemInput) (domain.PlannedItem, error) {
	t, err := s.load(ctx, owner, tripID)
	if err != nil {
		return domain.PlannedItem{}, err
	}

	it := domain.PlannedItem{
		ID:        s.newItemID(),
		Type:      in.Type,
		Provider:  strings.TrimSpace(in.Provider),
		Title:     strings.TrimSpace(in.Title),
		Subtitle:  trimmedPtr(in.Subtitle),
		Details:   in.Details,
		Price:     in.Price,
		Tag:       trimmedPtr(in.Tag),
		CreatedAt: s.clock.Now(),
	}
	if in.Nights != nil {
		n := *in.Nights
		it.Nights = &n
	}
	if it.Details == nil && in.Type.Valid() {
		it.Details = domain.NewDetails(in.Type, nil)
	}
	if err := t.AddItem(it); err != nil {
		return domain.PlannedItem{}, validationFailed("invalid planned item", err)
	}
	added := t.Items[len(t.Items)-1]

	online, err := s.withStore(ctx, "AddItem", func(r triprepo.Repository) error {
		return r.AddItem(ctx, owner, added)
	})
	if err != nil {
		if errors.Is(err, triprepo.ErrAlreadyExists) {
			return domain.PlannedItem{}, &Error{Status: 409, Code: "ITEM_ID_CONFLICT", Message: "item id conflict"}
		}
		return domain.PlannedItem{}, notFoundAs(err, errTripNotFound)
	}
	if online {
		s.remember(t)
	}
	return added.Clone(), nil
}

// UpdateItem changes price, nights, tag or subtitle of a tentative item.
func (s *Service) UpdateItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID, in UpdateItemInput) (domain.PlannedItem, error) {
	t, err := s.load(ctx, owner, tripID)
	if err != nil {
		return domain.PlannedItem{}, err
	}
	it, ok := t.FindItem(itemID)
	if !ok {
		return domain.PlannedItem{}, errItemNotFound
	}
	if it.IsConfirmed {
		return domain.PlannedItem{}, errItemLocked
	}
	it = it.Clone()

	ve := map[string]any{}
	applyValue(&it.Price, "price", in.Price, ve, nil)
	if in.Nights.IsSpecified() {
		if in.Nights.IsNull() {
			it.Nights = nil
		} else {
			n := in.Nights.Value()
			it.Nights = &n
		}
	}
	applyNullableString(&it.Tag, in.Tag)
	applyNullableString(&it.Subtitle, in.Subtitle)
	if len(ve) > 0 {
		return domain.PlannedItem{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid planned item", Details: ve}
	}
	if err := domain.ValidateNewItem(it); err != nil {
		return domain.PlannedItem{}, validationFailed("invalid planned item", err)
	}

	online, err := s.withStore(ctx, "UpdateItem", func(r triprepo.Repository) error {
		return r.UpdateItem(ctx, owner, it)
	})
	if err != nil {
		if errors.Is(err, triprepo.ErrConfirmed) {
			return domain.PlannedItem{}, errItemLocked
		}
		return domain.PlannedItem{}, notFoundAs(err, errItemNotFound)
	}
	if online {
		for i := range t.Items {
			if t.Items[i].ID == it.ID {
				t.Items[i] = it
			}
		}
		s.remember(t)
	}
	return it, nil
}

// RemoveItem deletes a tentative item. Confirmed items are kept and reported as a conflict.
func (s *Service) RemoveItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID) error {
	t, err := s.load(ctx, owner, tripID)
	if err != nil {
		return err
	}
	if _, err := t.RemoveItem(itemID); err != nil {
		switch {
		case errors.Is(err, domain.ErrItemNotFound):
			return errItemNotFound
		case errors.Is(err, domain.ErrItemConfirmed):
			return errItemLocked
		default:
			return err
		}
	}

	online, err := s.withStore(ctx, "RemoveItem", func(r triprepo.Repository) error {
		return r.DeleteItem(ctx, owner, tripID, itemID)
	})
	if err != nil {
		if errors.Is(err, triprepo.ErrConfirmed) {
			return errItemLocked
		}
		return notFoundAs(err, errItemNotFound)
	}
	if online {
		s.remember(t)
	}
	return nil
}

func applyNullableString(dst **string, o Optional[string]) {
	if !o.IsSpecified() {
		return
	}
	if o.IsNull() {
		*dst = nil
		return
	}
	v := o.Value()
	*dst = trimmedPtr(&v)
}
