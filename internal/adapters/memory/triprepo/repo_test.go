package triprepo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/peraluna/trip-planner-api/internal/domain"
)

func TestRepo_ListByOwner_SortsNewestFirst(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	mk := func(id domain.TripID, owner domain.OwnerID, created int64) domain.Trip {
		return domain.Trip{ID: id, OwnerID: owner, CreatedAt: time.Unix(created, 0).UTC()}
	}
	_ = r.Create(context.Background(), mk("t1", "alice", 10))
	_ = r.Create(context.Background(), mk("t3", "alice", 30))
	_ = r.Create(context.Background(), mk("t2", "alice", 30))
	_ = r.Create(context.Background(), mk("t4", "bob", 40))

	got, err := r.ListByOwner(context.Background(), "alice")
	if err != nil {
		t.Fatalf("ListByOwner() err=%v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len=%d, want 3", len(got))
	}
	if got[0].ID != "t2" || got[1].ID != "t3" || got[2].ID != "t1" {
		t.Fatalf("order=%v, want [t2 t3 t1]", []domain.TripID{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestRepo_ReturnsCopies(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	trip := domain.Trip{ID: "t1", OwnerID: "alice", Interests: []string{"food"}}
	if err := r.Create(context.Background(), trip); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	trip.Interests[0] = "mutated"

	got, err := r.GetByID(context.Background(), "alice", "t1")
	if err != nil {
		t.Fatalf("GetByID() err=%v", err)
	}
	if got.Interests[0] != "food" {
		t.Fatalf("stored trip was aliased: %v", got.Interests)
	}
	got.Interests[0] = "again"
	again, _ := r.GetByID(context.Background(), "alice", "t1")
	if again.Interests[0] != "food" {
		t.Fatalf("returned trip was aliased: %v", again.Interests)
	}
}

func TestRepo_ConfirmItem_ConcurrentCallersConfirmOnce(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	if err := r.Create(ctx, domain.Trip{ID: "t1", OwnerID: "alice"}); err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	if err := r.AddItem(ctx, "alice", domain.PlannedItem{ID: "i1", TripID: "t1", Type: domain.ItemTypeFlight, Title: "F"}); err != nil {
		t.Fatalf("AddItem() err=%v", err)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := r.ConfirmItem(ctx, "alice", "t1", "i1", "PL-REF-"+string(rune('A'+n)))
			if err != nil {
				t.Errorf("ConfirmItem() err=%v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("wins=%d, want exactly 1", wins)
	}
	got, _ := r.GetByID(ctx, "alice", "t1")
	if !got.Items[0].IsConfirmed || got.Items[0].BookingReference == nil {
		t.Fatalf("item not confirmed: %+v", got.Items[0])
	}
}
