package trips

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

// Offline reports whether the last store operation fell back to the working set.
func (s *Service) Offline() bool {
	return s.offline.Load()
}

// withStore runs fn against the trip store, or against the working set when the store is
// unavailable. It reports whether the trip store served the call.
func (s *Service) withStore(ctx context.Context, op string, fn func(triprepo.Repository) error) (bool, error) {
	if s.local == nil {
		return true, fn(s.trips)
	}
	if s.offline.Load() {
		if _, err := s.Reconcile(ctx); err != nil {
			s.metrics.OfflineFallback(op)
			return false, fn(s.local)
		}
	}

	err := fn(s.trips)
	if !errors.Is(err, triprepo.ErrUnavailable) {
		return true, err
	}
	if s.offline.CompareAndSwap(false, true) {
		s.log.WithError(err).WithField("op", op).Warn("trip store unavailable; serving from working set")
	}
	s.metrics.OfflineFallback(op)
	return false, fn(s.local)
}

// Reconcile pushes trips changed while offline back to the trip store, last write wins,
// and clears the offline flag once everything pending was written.
// It returns the number of trips pushed.
func (s *Service) Reconcile(ctx context.Context) (int, error) {
	if s.local == nil {
		return 0, nil
	}
	s.reconcileMu.Lock()
	defer s.reconcileMu.Unlock()

	pushed := 0
	for _, p := range s.local.Pending() {
		log := s.log.WithFields(logrus.Fields{"tripId": p.TripID, "deleted": p.Deleted})
		var err error
		if p.Deleted {
			err = s.trips.Delete(ctx, p.Owner, p.TripID)
			if errors.Is(err, triprepo.ErrNotFound) {
				err = nil
			}
		} else {
			t, gerr := s.local.GetByID(ctx, p.Owner, p.TripID)
			if gerr != nil {
				log.WithError(gerr).Warn("pending trip missing from working set; dropping")
				s.local.ClearPending(p.Owner, p.TripID)
				continue
			}
			err = s.trips.Upsert(ctx, t)
		}
		switch {
		case err == nil:
			s.local.ClearPending(p.Owner, p.TripID)
			pushed++
		case errors.Is(err, triprepo.ErrUnavailable):
			s.metrics.Reconciled(pushed)
			return pushed, err
		default:
			// The store rejected the change; retrying will not help.
			log.WithError(err).Error("dropping offline change rejected by trip store")
			s.local.ClearPending(p.Owner, p.TripID)
		}
	}
	s.metrics.Reconciled(pushed)
	if s.offline.CompareAndSwap(true, false) {
		s.log.WithField("pushed", pushed).Info("trip store reachable again")
	}
	return pushed, nil
}

// PendingChanges is the number of trips waiting to be reconciled.
func (s *Service) PendingChanges() int {
	if s.local == nil {
		return 0
	}
	return len(s.local.Pending())
}
