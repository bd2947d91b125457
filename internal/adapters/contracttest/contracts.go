package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/peraluna/trip-planner-api/internal/domain"
	idempotencyport "github.com/peraluna/trip-planner-api/internal/ports/out/idempotency"
	triprepoport "github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

type CleanupFunc = func()

type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.OwnerID("sub-1"),
		Method:   "POST",
		Route:    "/trips/{tripId}/confirm",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("expected miss before Put, got ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// A different body hash is a different fingerprint.
	other := fp
	other.BodyHash = "different"
	if _, ok, err := store.Get(ctx, other); err != nil || ok {
		t.Fatalf("expected miss for different body hash, got ok=%v err=%v", ok, err)
	}
}

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	// Unique owners keep runs against a shared database independent.
	alice := domain.OwnerID("alice-" + uuid.NewString())
	bob := domain.OwnerID("bob-" + uuid.NewString())
	now := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	newTrip := func(owner domain.OwnerID, created time.Time) domain.Trip {
		return domain.Trip{
			ID:          domain.TripID(uuid.NewString()),
			OwnerID:     owner,
			Destination: "Lisbon",
			Country:     "Portugal",
			StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			EndDate:     time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
			Adults:      2,
			Children:    1,
			Budget:      4500,
			BudgetType:  domain.BudgetTypePerPerson,
			Flexibility: domain.FlexibilityVery,
			Interests:   []string{"food", "history"},
			Status:      domain.TripStatusPlanning,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
	}

	trip := newTrip(alice, now)
	if err := repo.Create(ctx, trip); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Create(ctx, trip); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate: want ErrAlreadyExists, got %v", err)
	}

	got, err := repo.GetByID(ctx, alice, trip.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Destination != "Lisbon" || got.Country != "Portugal" || got.Adults != 2 || got.Children != 1 ||
		got.Budget != 4500 || got.BudgetType != domain.BudgetTypePerPerson || got.Flexibility != domain.FlexibilityVery ||
		got.Status != domain.TripStatusPlanning || got.OwnerID != alice {
		t.Fatalf("unexpected trip: %+v", got)
	}
	if !got.StartDate.Equal(trip.StartDate) || !got.EndDate.Equal(trip.EndDate) || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected dates: start=%v end=%v created=%v", got.StartDate, got.EndDate, got.CreatedAt)
	}
	if len(got.Interests) != 2 || got.Interests[0] != "food" || got.Interests[1] != "history" {
		t.Fatalf("unexpected interests: %v", got.Interests)
	}
	if len(got.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(got.Items))
	}

	// Owner scoping: other owners see nothing.
	if _, err := repo.GetByID(ctx, bob, trip.ID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("cross-owner GetByID: want ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, alice, domain.TripID(uuid.NewString())); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("missing GetByID: want ErrNotFound, got %v", err)
	}

	// Save updates trip fields only.
	got.Destination = "Porto"
	got.Budget = 3900.5
	got.Status = domain.TripStatusBooked
	got.Interests = []string{"wine"}
	got.UpdatedAt = now.Add(time.Hour)
	if err := repo.Save(ctx, got); err != nil {
		t.Fatalf("Save: %v", err)
	}
	saved, err := repo.GetByID(ctx, alice, trip.ID)
	if err != nil {
		t.Fatalf("GetByID after Save: %v", err)
	}
	if saved.Destination != "Porto" || saved.Budget != 3900.5 || saved.Status != domain.TripStatusBooked ||
		len(saved.Interests) != 1 || !saved.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("Save not applied: %+v", saved)
	}
	stolen := saved
	stolen.OwnerID = bob
	if err := repo.Save(ctx, stolen); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("cross-owner Save: want ErrNotFound, got %v", err)
	}

	// Items keep insertion order and typed details.
	nights := 3
	tag := "Best Value"
	sub := "Alfama • 4 stars"
	items := []domain.PlannedItem{
		{ID: domain.ItemID(uuid.NewString()), TripID: trip.ID, Type: domain.ItemTypeHotel, Provider: "Memmo", Title: "Memmo Alfama", Subtitle: &sub,
			Details: domain.HotelDetails{Highlights: []string{"Rooftop pool"}, Neighborhood: "Alfama"}, Price: 210, Nights: &nights, Tag: &tag, CreatedAt: now},
		{ID: domain.ItemID(uuid.NewString()), TripID: trip.ID, Type: domain.ItemTypeFlight, Provider: "TAP", Title: "TAP TP204",
			Details: domain.FlightDetails{Highlights: []string{"JFK 18:10 → LIS 06:25"}}, Price: 780.25, CreatedAt: now},
		{ID: domain.ItemID(uuid.NewString()), TripID: trip.ID, Type: domain.ItemTypeActivity, Provider: "Fado", Title: "Fado night",
			Details: domain.ActivityDetails{}, Price: 45, CreatedAt: now},
	}
	for _, it := range items {
		if err := repo.AddItem(ctx, alice, it); err != nil {
			t.Fatalf("AddItem %s: %v", it.Title, err)
		}
	}
	if err := repo.AddItem(ctx, bob, domain.PlannedItem{ID: domain.ItemID(uuid.NewString()), TripID: trip.ID, Type: domain.ItemTypeFlight, Title: "x", CreatedAt: now}); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("cross-owner AddItem: want ErrNotFound, got %v", err)
	}

	withItems, err := repo.GetByID(ctx, alice, trip.ID)
	if err != nil {
		t.Fatalf("GetByID with items: %v", err)
	}
	if len(withItems.Items) != 3 {
		t.Fatalf("items=%d, want 3", len(withItems.Items))
	}
	for i, it := range withItems.Items {
		if it.ID != items[i].ID {
			t.Fatalf("item order: position %d has %s, want %s", i, it.ID, items[i].ID)
		}
		if it.TripID != trip.ID || it.IsConfirmed || it.BookingReference != nil {
			t.Fatalf("unexpected item state: %+v", it)
		}
	}
	hotel := withItems.Items[0]
	hd, ok := hotel.Details.(domain.HotelDetails)
	if !ok || hd.Neighborhood != "Alfama" || len(hd.Highlights) != 1 {
		t.Fatalf("hotel details not preserved: %#v", hotel.Details)
	}
	if hotel.Nights == nil || *hotel.Nights != 3 || hotel.Tag == nil || *hotel.Tag != tag || hotel.Subtitle == nil || *hotel.Subtitle != sub {
		t.Fatalf("hotel optional fields not preserved: %+v", hotel)
	}
	if withItems.Items[1].Price != 780.25 {
		t.Fatalf("flight price=%v, want 780.25", withItems.Items[1].Price)
	}

	// UpdateItem rewrites mutable fields.
	hotel.Price = 190
	hotel.Nights = nil
	hotel.Tag = nil
	if err := repo.UpdateItem(ctx, alice, hotel); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	missing := hotel
	missing.ID = domain.ItemID(uuid.NewString())
	if err := repo.UpdateItem(ctx, alice, missing); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("UpdateItem missing: want ErrNotFound, got %v", err)
	}

	// ConfirmItem is conditional and monotonic.
	ok, err = repo.ConfirmItem(ctx, alice, trip.ID, hotel.ID, "PL-TEST-0001")
	if err != nil || !ok {
		t.Fatalf("ConfirmItem first: ok=%v err=%v", ok, err)
	}
	ok, err = repo.ConfirmItem(ctx, alice, trip.ID, hotel.ID, "PL-TEST-0002")
	if err != nil || ok {
		t.Fatalf("ConfirmItem second: ok=%v err=%v, want ok=false", ok, err)
	}
	if _, err := repo.ConfirmItem(ctx, bob, trip.ID, hotel.ID, "PL-TEST-0003"); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("cross-owner ConfirmItem: want ErrNotFound, got %v", err)
	}
	afterConfirm, err := repo.GetByID(ctx, alice, trip.ID)
	if err != nil {
		t.Fatalf("GetByID after confirm: %v", err)
	}
	h := afterConfirm.Items[0]
	if !h.IsConfirmed || h.BookingReference == nil || *h.BookingReference != "PL-TEST-0001" || h.Price != 190 || h.Nights != nil || h.Tag != nil {
		t.Fatalf("unexpected hotel after update+confirm: %+v", h)
	}

	// Confirmed items can no longer be changed or removed.
	reprice := h
	reprice.Price = 1
	if err := repo.UpdateItem(ctx, alice, reprice); !errors.Is(err, triprepoport.ErrConfirmed) {
		t.Fatalf("UpdateItem confirmed: want ErrConfirmed, got %v", err)
	}
	if err := repo.DeleteItem(ctx, alice, trip.ID, h.ID); !errors.Is(err, triprepoport.ErrConfirmed) {
		t.Fatalf("DeleteItem confirmed: want ErrConfirmed, got %v", err)
	}
	if err := repo.DeleteItem(ctx, bob, trip.ID, h.ID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("cross-owner DeleteItem confirmed: want ErrNotFound, got %v", err)
	}
	locked, err := repo.GetByID(ctx, alice, trip.ID)
	if err != nil {
		t.Fatalf("GetByID after rejected writes: %v", err)
	}
	if len(locked.Items) != 3 || locked.Items[0].Price != 190 {
		t.Fatalf("confirmed hotel changed: %+v", locked.Items)
	}

	// DeleteItem.
	if err := repo.DeleteItem(ctx, alice, trip.ID, items[2].ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	if err := repo.DeleteItem(ctx, alice, trip.ID, items[2].ID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("DeleteItem twice: want ErrNotFound, got %v", err)
	}

	// ListByOwner is owner-scoped and newest first.
	older := newTrip(alice, now.Add(-24*time.Hour))
	if err := repo.Create(ctx, older); err != nil {
		t.Fatalf("Create older: %v", err)
	}
	bobs := newTrip(bob, now.Add(time.Minute))
	if err := repo.Create(ctx, bobs); err != nil {
		t.Fatalf("Create bob: %v", err)
	}
	list, err := repo.ListByOwner(ctx, alice)
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(list) != 2 || list[0].ID != trip.ID || list[1].ID != older.ID {
		t.Fatalf("ListByOwner order/scope unexpected: %+v", list)
	}
	if len(list[0].Items) != 2 {
		t.Fatalf("ListByOwner should include items, got %d", len(list[0].Items))
	}

	// Upsert creates and replaces the item set.
	up := newTrip(alice, now.Add(2*time.Hour))
	up.Items = []domain.PlannedItem{{ID: domain.ItemID(uuid.NewString()), TripID: up.ID, Type: domain.ItemTypeFlight, Title: "Local only", Price: 500, CreatedAt: now}}
	if err := repo.Upsert(ctx, up); err != nil {
		t.Fatalf("Upsert create: %v", err)
	}
	ref := "PL-UPSERT-0001"
	up.Destination = "Madeira"
	up.Items = []domain.PlannedItem{{ID: domain.ItemID(uuid.NewString()), TripID: up.ID, Type: domain.ItemTypeActivity, Title: "Levada walk", Price: 60,
		IsConfirmed: true, BookingReference: &ref, CreatedAt: now}}
	if err := repo.Upsert(ctx, up); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}
	gotUp, err := repo.GetByID(ctx, alice, up.ID)
	if err != nil {
		t.Fatalf("GetByID upserted: %v", err)
	}
	if gotUp.Destination != "Madeira" || len(gotUp.Items) != 1 || gotUp.Items[0].Title != "Levada walk" ||
		!gotUp.Items[0].IsConfirmed || *gotUp.Items[0].BookingReference != ref {
		t.Fatalf("unexpected upserted trip: %+v", gotUp)
	}

	// Upsert never undoes a stored confirmation, even from a stale tentative copy.
	stale := up
	staleLevada := up.Items[0]
	staleLevada.IsConfirmed = false
	staleLevada.BookingReference = nil
	staleLevada.Price = 1
	extra := domain.PlannedItem{ID: domain.ItemID(uuid.NewString()), TripID: up.ID, Type: domain.ItemTypeFlight, Title: "Added offline", Price: 300, CreatedAt: now}
	stale.Items = []domain.PlannedItem{staleLevada, extra}
	if err := repo.Upsert(ctx, stale); err != nil {
		t.Fatalf("Upsert stale: %v", err)
	}
	gotStale, err := repo.GetByID(ctx, alice, up.ID)
	if err != nil {
		t.Fatalf("GetByID after stale Upsert: %v", err)
	}
	if len(gotStale.Items) != 2 || gotStale.Items[0].ID != staleLevada.ID || !gotStale.Items[0].IsConfirmed ||
		gotStale.Items[0].BookingReference == nil || *gotStale.Items[0].BookingReference != ref ||
		gotStale.Items[0].Price != 60 || gotStale.Items[1].ID != extra.ID {
		t.Fatalf("stale Upsert downgraded a confirmed item: %+v", gotStale.Items)
	}
	dropped := up
	dropped.Items = nil
	if err := repo.Upsert(ctx, dropped); err != nil {
		t.Fatalf("Upsert without items: %v", err)
	}
	gotDropped, err := repo.GetByID(ctx, alice, up.ID)
	if err != nil {
		t.Fatalf("GetByID after dropping Upsert: %v", err)
	}
	if len(gotDropped.Items) != 1 || gotDropped.Items[0].ID != staleLevada.ID || !gotDropped.Items[0].IsConfirmed {
		t.Fatalf("Upsert dropped a confirmed item: %+v", gotDropped.Items)
	}

	hijack := up
	hijack.OwnerID = bob
	if err := repo.Upsert(ctx, hijack); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("cross-owner Upsert: want ErrNotFound, got %v", err)
	}

	// Delete cascades to items.
	if err := repo.Delete(ctx, bob, trip.ID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("cross-owner Delete: want ErrNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, alice, trip.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, alice, trip.ID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("GetByID after Delete: want ErrNotFound, got %v", err)
	}
	if err := repo.DeleteItem(ctx, alice, trip.ID, items[0].ID); !errors.Is(err, triprepoport.ErrNotFound) {
		t.Fatalf("DeleteItem after trip Delete: want ErrNotFound, got %v", err)
	}
}
