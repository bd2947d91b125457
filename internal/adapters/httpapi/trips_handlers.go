package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/peraluna/trip-planner-api/internal/app/trips"
	"github.com/peraluna/trip-planner-api/internal/domain"
)

func tripIDParam(r *http.Request) domain.TripID {
	return domain.TripID(chi.URLParam(r, "tripId"))
}

func itemIDParam(r *http.Request) domain.ItemID {
	return domain.ItemID(chi.URLParam(r, "itemId"))
}

func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	list, err := s.trips.ListTrips(r.Context(), sub)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	out := make([]Trip, 0, len(list))
	for _, t := range list {
		out = append(out, tripFromDomain(t))
	}
	writeJSON(w, http.StatusOK, TripListResponse{Trips: out})
}

func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body CreateTripRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	t, err := s.trips.CreateTrip(r.Context(), sub, createTripInputFromRequest(body))
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, TripResponse{Trip: tripFromDomain(t)})
}

func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	t, err := s.trips.GetTrip(r.Context(), sub, tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, TripResponse{Trip: tripFromDomain(t)})
}

func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body UpdateTripRequest
	if !decodeBody(w, r, &body, true) {
		return
	}
	t, err := s.trips.UpdateTrip(r.Context(), sub, tripIDParam(r), updateTripInputFromRequest(body))
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, TripResponse{Trip: tripFromDomain(t)})
}

func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if err := s.trips.DeleteTrip(r.Context(), sub, tripIDParam(r)); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) GetContext(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	tc, err := s.trips.GetContext(r.Context(), sub, tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ContextResponse{Context: contextFromDomain(tc)})
}

func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body AddItemRequest
	if !decodeBody(w, r, &body, false) {
		return
	}
	if body.Price == nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid item", map[string]any{"price": "is required"})
		return
	}
	details, err := domain.DecodeDetails(body.Type, body.Details)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid item", map[string]any{"details": err.Error()})
		return
	}
	it, err := s.trips.AddItem(r.Context(), sub, tripIDParam(r), trips.AddItemInput{
		Type:     body.Type,
		Provider: body.Provider,
		Title:    body.Title,
		Subtitle: body.Subtitle,
		Details:  details,
		Price:    *body.Price,
		Nights:   body.Nights,
		Tag:      body.Tag,
	})
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ItemResponse{Item: s.itemWithCost(r, sub, it)})
}

func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	var body UpdateItemRequest
	if !decodeBody(w, r, &body, true) {
		return
	}
	it, err := s.trips.UpdateItem(r.Context(), sub, tripIDParam(r), itemIDParam(r), updateItemInputFromRequest(body))
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse{Item: s.itemWithCost(r, sub, it)})
}

func (s *Server) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if err := s.trips.RemoveItem(r.Context(), sub, tripIDParam(r), itemIDParam(r)); err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// itemWithCost renders it with its total cost against the trip's current travelers and
// nights. If the trip cannot be reloaded the unit price stands in.
func (s *Server) itemWithCost(r *http.Request, owner domain.OwnerID, it domain.PlannedItem) PlannedItem {
	t, err := s.trips.GetTrip(r.Context(), owner, tripIDParam(r))
	if err != nil {
		return itemFromDomain(it, it.Price)
	}
	return itemFromDomain(it, t.ItemCost(it))
}

func (s *Server) Sync(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.subject(w, r); !ok {
		return
	}
	pushed, err := s.trips.Reconcile(r.Context())
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, SyncResponse{
		Pushed:  pushed,
		Pending: s.trips.PendingChanges(),
		Offline: s.trips.Offline(),
	})
}
