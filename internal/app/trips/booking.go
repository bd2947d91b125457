package trips

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/events"
	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

// ConfirmAll confirms every item that is tentative when the call starts and marks the
// trip booked. Each item is confirmed through the store's conditional update, so an item
// confirmed concurrently by another caller keeps its first reference and is left out of
// the result.
func (s *Service) ConfirmAll(ctx context.Context, owner domain.OwnerID, tripID domain.TripID) (ConfirmResult, error) {
	t, err := s.load(ctx, owner, tripID)
	if err != nil {
		return ConfirmResult{}, err
	}

	planned := t.Clone()
	candidates := planned.ConfirmAll(s.refs)

	confirmed := make([]domain.Confirmation, 0, len(candidates))
	for _, c := range candidates {
		var ok bool
		online, err := s.withStore(ctx, "ConfirmItem", func(r triprepo.Repository) error {
			var err error
			ok, err = r.ConfirmItem(ctx, owner, tripID, c.ItemID, c.Reference)
			return err
		})
		if errors.Is(err, triprepo.ErrNotFound) {
			// Removed since the snapshot was taken.
			continue
		}
		if err != nil {
			return ConfirmResult{}, err
		}
		if !ok {
			continue
		}
		if online && s.local != nil {
			// Reconcile pushes the working-set copy, so it must see this confirmation too.
			s.local.RememberConfirmation(owner, tripID, c.ItemID, c.Reference)
		}
		confirmed = append(confirmed, c)
	}

	fresh, err := s.load(ctx, owner, tripID)
	if err != nil {
		return ConfirmResult{}, err
	}
	fresh.Status = domain.TripStatusBooked
	fresh.UpdatedAt = s.clock.Now()
	online, err := s.withStore(ctx, "ConfirmAll", func(r triprepo.Repository) error {
		return r.Save(ctx, fresh)
	})
	if err != nil {
		return ConfirmResult{}, notFoundAs(err, errTripNotFound)
	}
	if online {
		s.remember(fresh)
	}

	s.metrics.BookingsConfirmed(len(confirmed))
	if len(confirmed) > 0 {
		s.publishConfirmed(ctx, fresh, confirmed)
	}
	s.log.WithFields(logrus.Fields{
		"tripId":    tripID,
		"confirmed": len(confirmed),
		"offline":   !online,
	}).Info("trip booked")

	return ConfirmResult{Trip: fresh, Confirmations: confirmed}, nil
}

// publishConfirmed is best effort: a broker failure never fails the booking.
func (s *Service) publishConfirmed(ctx context.Context, t domain.Trip, confirmed []domain.Confirmation) {
	e := events.Event{
		Type:       events.TypeBookingConfirmed,
		TripID:     t.ID,
		OwnerID:    t.OwnerID,
		Items:      make([]events.ConfirmedItem, 0, len(confirmed)),
		OccurredAt: s.clock.Now(),
	}
	for _, c := range confirmed {
		ci := events.ConfirmedItem{ItemID: c.ItemID, Reference: c.Reference}
		if it, ok := t.FindItem(c.ItemID); ok {
			ci.Type = it.Type
			ci.Title = it.Title
		}
		e.Items = append(e.Items, ci)
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.WithError(err).WithField("tripId", t.ID).Warn("publish booking event failed")
	}
}
