package workingset

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

func testTrip(id string, owner domain.OwnerID) domain.Trip {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return domain.Trip{
		ID:          domain.TripID(id),
		OwnerID:     owner,
		Destination: "Kyoto",
		Country:     "Japan",
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 4),
		Adults:      2,
		Budget:      5000,
		BudgetType:  domain.BudgetTypeTotal,
		Flexibility: domain.FlexibilityModerately,
		Status:      domain.TripStatusPlanning,
		Items:       []domain.PlannedItem{},
		CreatedAt:   start,
		UpdatedAt:   start,
	}
}

func TestRememberDoesNotMarkPending(t *testing.T) {
	t.Parallel()
	s := New(time.Minute, time.Minute)
	s.Remember(testTrip("t1", "alice"))

	got, err := s.GetByID(context.Background(), "alice", "t1")
	require.NoError(t, err)
	assert.Equal(t, "Kyoto", got.Destination)
	assert.Empty(t, s.Pending())
}

func TestOfflineWritesArePending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(time.Minute, time.Minute)
	s.Remember(testTrip("t1", "alice"))
	s.Remember(testTrip("t2", "alice"))

	require.NoError(t, s.AddItem(ctx, "alice", domain.PlannedItem{ID: "i1", TripID: "t1", Type: domain.ItemTypeFlight, Title: "JL 5", Price: 900}))
	require.NoError(t, s.Delete(ctx, "alice", "t2"))
	require.NoError(t, s.Create(ctx, testTrip("t3", "bob")))

	assert.Equal(t, []triprepo.Pending{
		{Owner: "alice", TripID: "t1"},
		{Owner: "alice", TripID: "t2", Deleted: true},
		{Owner: "bob", TripID: "t3"},
	}, s.Pending())

	s.ClearPending("bob", "t1") // wrong owner is ignored
	s.ClearPending("alice", "t1")
	assert.Len(t, s.Pending(), 2)

	got, err := s.GetByID(ctx, "alice", "t1")
	require.NoError(t, err)
	assert.Len(t, got.Items, 1)
}

func TestFailedMutationLeavesTripClean(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(time.Minute, time.Minute)
	s.Remember(testTrip("t1", "alice"))

	err := s.DeleteItem(ctx, "alice", "t1", "missing")
	assert.ErrorIs(t, err, triprepo.ErrNotFound)
	assert.Empty(t, s.Pending())
}

func TestRememberedTripsExpire(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(20*time.Millisecond, time.Hour)
	s.Remember(testTrip("t1", "alice"))
	require.NoError(t, s.Create(ctx, testTrip("t2", "alice")))

	time.Sleep(60 * time.Millisecond)

	_, err := s.GetByID(ctx, "alice", "t1")
	assert.ErrorIs(t, err, triprepo.ErrNotFound)
	_, err = s.GetByID(ctx, "alice", "t2")
	assert.NoError(t, err, "pending trips never expire")
}

func TestForgetIsOwnerScoped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(time.Minute, time.Minute)
	s.Remember(testTrip("t1", "alice"))

	s.Forget("bob", "t1")
	_, err := s.GetByID(ctx, "alice", "t1")
	require.NoError(t, err)

	s.Forget("alice", "t1")
	_, err = s.GetByID(ctx, "alice", "t1")
	assert.ErrorIs(t, err, triprepo.ErrNotFound)
}

func TestRememberConfirmation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New(time.Minute, time.Minute)
	trip := testTrip("t1", "alice")
	trip.Items = []domain.PlannedItem{{ID: "i1", TripID: "t1", Type: domain.ItemTypeFlight, Title: "JL 5", Price: 900}}
	s.Remember(trip)

	s.RememberConfirmation("bob", "t1", "i1", "PL-BOB-0001")
	s.RememberConfirmation("alice", "t1", "i1", "PL-FIRST-0001")
	s.RememberConfirmation("alice", "t1", "i1", "PL-SECOND-0001")
	s.RememberConfirmation("alice", "missing", "i1", "PL-X-0001")

	got, err := s.GetByID(ctx, "alice", "t1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].IsConfirmed)
	require.NotNil(t, got.Items[0].BookingReference)
	assert.Equal(t, "PL-FIRST-0001", *got.Items[0].BookingReference)
	assert.Empty(t, s.Pending(), "mirrored confirmations are not offline writes")

	assert.ErrorIs(t, s.DeleteItem(ctx, "alice", "t1", "i1"), triprepo.ErrConfirmed)
	assert.ErrorIs(t, s.UpdateItem(ctx, "alice", got.Items[0]), triprepo.ErrConfirmed)
}
