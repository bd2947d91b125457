package httpapi

import (
	"fmt"
	"net/http"

	"github.com/peraluna/trip-planner-api/internal/app/itinerary"
)

func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	tc, err := s.trips.GetContext(r.Context(), sub, tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(itinerary.Summary(tc)))
}

func (s *Server) Calendar(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	tc, err := s.trips.GetContext(r.Context(), sub, tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	ics, err := itinerary.Calendar(tc, s.clock.Now())
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "trip-"+string(tc.TripID)+".ics"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics))
}
