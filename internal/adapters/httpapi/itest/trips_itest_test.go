package itest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/peraluna/trip-planner-api/internal/domain"
	triprepoport "github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

type tripJSON struct {
	TripID           string  `json:"tripId"`
	Status           string  `json:"status"`
	Nights           int     `json:"nights"`
	Budget           float64 `json:"budget"`
	TotalPlannedCost float64 `json:"totalPlannedCost"`
	RemainingBudget  float64 `json:"remainingBudget"`
	Items            []struct {
		ItemID           string  `json:"itemId"`
		Type             string  `json:"type"`
		IsConfirmed      bool    `json:"isConfirmed"`
		BookingReference *string `json:"bookingReference"`
		TotalCost        float64 `json:"totalCost"`
	} `json:"items"`
}

type tripEnvelope struct {
	Trip tripJSON `json:"trip"`
}

type itemEnvelope struct {
	Item struct {
		ItemID    string  `json:"itemId"`
		TotalCost float64 `json:"totalCost"`
	} `json:"item"`
}

type confirmEnvelope struct {
	Trip          tripJSON `json:"trip"`
	Confirmations []struct {
		ItemID           string `json:"itemId"`
		BookingReference string `json:"bookingReference"`
	} `json:"confirmations"`
}

func newTripBody(budgetType string, budget float64) map[string]any {
	return map[string]any{
		"destination": "Lisbon",
		"country":     "Portugal",
		"startDate":   "2025-06-01",
		"endDate":     "2025-06-06",
		"adults":      2,
		"children":    1,
		"budget":      budget,
		"budgetType":  budgetType,
		"interests":   []string{"food", "history"},
	}
}

func TestTrips_PlanAndBook(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			s := newTestServer(t, b, serverOptions{})
			owner := fmt.Sprintf("owner-%s", b)

			status, body, _ := s.doJSON(t, http.MethodPost, "/trips", owner, newTripBody("per-person", 1500))
			requireStatus(t, status, body, http.StatusCreated)
			trip := mustUnmarshal[tripEnvelope](t, body).Trip
			if trip.Budget != 4500 || trip.Nights != 5 {
				t.Fatalf("expected per-person budget stored as total 4500 over 5 nights, got %+v", trip)
			}
			base := "/trips/" + trip.TripID

			items := []map[string]any{
				{"type": "flight", "provider": "TAP", "title": "TAP TP204", "price": 780},
				{"type": "hotel", "provider": "Memmo", "title": "Memmo Alfama", "price": 200, "nights": 2},
				{"type": "activity", "provider": "Taste", "title": "Food tour", "price": 95},
			}
			var costs float64
			for _, it := range items {
				status, body, _ = s.doJSON(t, http.MethodPost, base+"/items", owner, it)
				requireStatus(t, status, body, http.StatusCreated)
				costs += mustUnmarshal[itemEnvelope](t, body).Item.TotalCost
			}
			// 780*3 + 200*2 + 95*3
			if costs != 3025 {
				t.Fatalf("expected item costs 3025, got %v", costs)
			}

			status, body, _ = s.doJSON(t, http.MethodGet, base+"/context", owner, nil)
			requireStatus(t, status, body, http.StatusOK)
			if !strings.Contains(string(body), `"budgetTier":"standard"`) {
				t.Fatalf("expected budget tier in context: %s", body)
			}

			status, body, _ = s.doJSON(t, http.MethodPost, base+"/confirm", owner, nil, "Idempotency-Key", "book-1")
			requireStatus(t, status, body, http.StatusOK)
			booked := mustUnmarshal[confirmEnvelope](t, body)
			if booked.Trip.Status != "booked" || len(booked.Confirmations) != 3 {
				t.Fatalf("expected 3 confirmations on a booked trip, got %+v", booked)
			}
			if booked.Trip.RemainingBudget != 4500-3025 {
				t.Fatalf("expected remaining %v, got %v", 4500-3025, booked.Trip.RemainingBudget)
			}
			for _, it := range booked.Trip.Items {
				if !it.IsConfirmed || it.BookingReference == nil || !strings.HasPrefix(*it.BookingReference, "PL-") {
					t.Fatalf("expected confirmed item with reference, got %+v", it)
				}
			}
			if n := len(s.events.Events()); n != 1 {
				t.Fatalf("expected 1 booking event, got %d", n)
			}

			status, body, hdr := s.doJSON(t, http.MethodPost, base+"/confirm", owner, nil, "Idempotency-Key", "book-1")
			requireStatus(t, status, body, http.StatusOK)
			requireHeaderPresent(t, hdr, "Idempotent-Replay")
			if again := mustUnmarshal[confirmEnvelope](t, body); len(again.Confirmations) != 3 {
				t.Fatalf("expected replayed confirmations, got %+v", again.Confirmations)
			}

			status, body, _ = s.doJSON(t, http.MethodDelete, base+"/items/"+booked.Confirmations[0].ItemID, owner, nil)
			requireErrorCode(t, status, body, http.StatusConflict, "ITEM_CONFIRMED")

			status, body, _ = s.doJSON(t, http.MethodGet, base, "someone-else", nil)
			requireErrorCode(t, status, body, http.StatusNotFound, "TRIP_NOT_FOUND")

			status, body, _ = s.doJSON(t, http.MethodDelete, base, owner, nil)
			requireStatus(t, status, body, http.StatusNoContent)
			status, body, _ = s.doJSON(t, http.MethodGet, base, owner, nil)
			requireErrorCode(t, status, body, http.StatusNotFound, "TRIP_NOT_FOUND")
		})
	}
}

func TestTrips_RequireSubject(t *testing.T) {
	s := newTestServer(t, backendMemory, serverOptions{})

	status, body, _ := s.doJSON(t, http.MethodGet, "/trips", "", nil)
	requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")

	status, body, hdr := s.doJSON(t, http.MethodGet, "/trips", "owner-1", nil)
	requireStatus(t, status, body, http.StatusOK)
	requireHeaderPresent(t, hdr, "X-Request-Id")
}

func TestMetrics_Exposed(t *testing.T) {
	s := newTestServer(t, backendMemory, serverOptions{})

	status, body, _ := s.doJSON(t, http.MethodGet, "/metrics", "", nil)
	requireStatus(t, status, body, http.StatusOK)
	if !strings.Contains(string(body), "peraluna_") && !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("expected prometheus exposition, got %s", body)
	}
}

func TestOffline_FallbackAndSync(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			var flaky *switchableRepo
			s := newTestServer(t, b, serverOptions{wrap: func(r triprepoport.Repository) triprepoport.Repository {
				flaky = &switchableRepo{Repository: r}
				return flaky
			}})
			owner := fmt.Sprintf("offline-%s", b)

			status, body, _ := s.doJSON(t, http.MethodPost, "/trips", owner, newTripBody("total", 5000))
			requireStatus(t, status, body, http.StatusCreated)
			trip := mustUnmarshal[tripEnvelope](t, body).Trip

			flaky.down.Store(true)
			status, body, hdr := s.doJSON(t, http.MethodPost, "/trips/"+trip.TripID+"/items", owner,
				map[string]any{"type": "activity", "provider": "Taste", "title": "Food tour", "price": 95})
			requireStatus(t, status, body, http.StatusCreated)
			if hdr.Get("X-Offline") != "true" {
				t.Fatalf("expected X-Offline on a working-set response")
			}

			status, body, _ = s.doJSON(t, http.MethodPost, "/sync", owner, nil)
			requireErrorCode(t, status, body, http.StatusServiceUnavailable, "STORE_UNAVAILABLE")

			flaky.down.Store(false)
			status, body, _ = s.doJSON(t, http.MethodPost, "/sync", owner, nil)
			requireStatus(t, status, body, http.StatusOK)
			synced := mustUnmarshal[struct {
				Pushed  int  `json:"pushed"`
				Pending int  `json:"pending"`
				Offline bool `json:"offline"`
			}](t, body)
			if synced.Pushed != 1 || synced.Pending != 0 || synced.Offline {
				t.Fatalf("unexpected sync result: %+v", synced)
			}

			status, body, hdr = s.doJSON(t, http.MethodGet, "/trips/"+trip.TripID, owner, nil)
			requireStatus(t, status, body, http.StatusOK)
			if hdr.Get("X-Offline") != "" {
				t.Fatalf("expected online response after sync")
			}
			if got := mustUnmarshal[tripEnvelope](t, body).Trip; len(got.Items) != 1 {
				t.Fatalf("expected offline item to survive sync, got %+v", got.Items)
			}
		})
	}
}

// switchableRepo fails every call with ErrUnavailable while down is set.
type switchableRepo struct {
	triprepoport.Repository
	down atomic.Bool
}

func (r *switchableRepo) err() error {
	if r.down.Load() {
		return fmt.Errorf("dial: %w", triprepoport.ErrUnavailable)
	}
	return nil
}

func (r *switchableRepo) Create(ctx context.Context, t domain.Trip) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.Repository.Create(ctx, t)
}

func (r *switchableRepo) Save(ctx context.Context, t domain.Trip) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.Repository.Save(ctx, t)
}

func (r *switchableRepo) Upsert(ctx context.Context, t domain.Trip) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.Repository.Upsert(ctx, t)
}

func (r *switchableRepo) Delete(ctx context.Context, owner domain.OwnerID, id domain.TripID) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.Repository.Delete(ctx, owner, id)
}

func (r *switchableRepo) GetByID(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.Trip, error) {
	if err := r.err(); err != nil {
		return domain.Trip{}, err
	}
	return r.Repository.GetByID(ctx, owner, id)
}

func (r *switchableRepo) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]domain.Trip, error) {
	if err := r.err(); err != nil {
		return nil, err
	}
	return r.Repository.ListByOwner(ctx, owner)
}

func (r *switchableRepo) AddItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.Repository.AddItem(ctx, owner, it)
}

func (r *switchableRepo) UpdateItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.Repository.UpdateItem(ctx, owner, it)
}

func (r *switchableRepo) DeleteItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID) error {
	if err := r.err(); err != nil {
		return err
	}
	return r.Repository.DeleteItem(ctx, owner, tripID, itemID)
}

func (r *switchableRepo) ConfirmItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID, reference string) (bool, error) {
	if err := r.err(); err != nil {
		return false, err
	}
	return r.Repository.ConfirmItem(ctx, owner, tripID, itemID, reference)
}
