package assistant_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memassistant "github.com/peraluna/trip-planner-api/internal/adapters/memory/assistant"
	memclock "github.com/peraluna/trip-planner-api/internal/adapters/memory/clock"
	memtriprepo "github.com/peraluna/trip-planner-api/internal/adapters/memory/triprepo"
	"github.com/peraluna/trip-planner-api/internal/app/assistant"
	"github.com/peraluna/trip-planner-api/internal/app/trips"
	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/platform/logging"
	assistantport "github.com/peraluna/trip-planner-api/internal/ports/out/assistant"
)

type outcomes struct {
	mu  sync.Mutex
	got []string
}

func (o *outcomes) AssistantRequest(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, outcome)
}

type harness struct {
	trips    *trips.Service
	tripID   domain.TripID
	outcomes *outcomes
}

func newHarness(t *testing.T) harness {
	t.Helper()
	svc := trips.NewService(memtriprepo.NewRepo(), memclock.NewManualClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)),
		trips.WithLogger(logging.Discard()))
	adults := 2
	trip, err := svc.CreateTrip(context.Background(), "alice", trips.CreateTripInput{
		Destination: "Lisbon",
		Country:     "Portugal",
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
		Adults:      &adults,
		Interests:   []string{"food"},
	})
	require.NoError(t, err)
	return harness{trips: svc, tripID: trip.ID, outcomes: &outcomes{}}
}

func (h harness) service(p assistantport.Provider) *assistant.Service {
	return assistant.NewService(h.trips, p, assistant.WithRecorder(h.outcomes), assistant.WithLogger(logging.Discard()))
}

func collect(deltas *[]string) func(string) error {
	return func(s string) error {
		*deltas = append(*deltas, s)
		return nil
	}
}

func TestChat_StreamsProviderReply(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	provider := memassistant.NewScripted([]string{"Lisbon ", "is ", "lovely.\n```options\n[{\"id\":\"a1\",\"type\":\"activity\",\"title\":\"Fado\",\"price\":\"$40/person\",\"details\":[]}]\n```"})
	svc := h.service(provider)

	var deltas []string
	reply, err := svc.Chat(context.Background(), "alice", h.tripID, []assistantport.Turn{
		{Role: assistantport.RoleUser, Content: "What should we do?"},
	}, collect(&deltas))
	require.NoError(t, err)

	assert.Len(t, deltas, 3)
	assert.Equal(t, strings.Join(deltas, ""), reply.Content)
	assert.False(t, reply.Offline)
	assert.Equal(t, "Lisbon is lovely.", reply.Message.Before)
	require.Len(t, reply.Message.Options, 1)
	assert.Equal(t, []string{assistant.OutcomeOK}, h.outcomes.got)

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].SystemPrompt, "Destination: Lisbon, Portugal")
	assert.Equal(t, int64(assistant.DefaultMaxTokens), reqs[0].MaxTokens)
	assert.Len(t, reqs[0].Turns, 1)
}

func TestChat_EmptyConversationSendsKickoff(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	provider := memassistant.NewScripted([]string{"Olá!"})

	var deltas []string
	_, err := h.service(provider).Chat(context.Background(), "alice", h.tripID, nil, collect(&deltas))
	require.NoError(t, err)

	reqs := provider.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Turns, 1)
	assert.Equal(t, assistantport.RoleUser, reqs[0].Turns[0].Role)
	assert.Equal(t, assistant.KickoffTurn, reqs[0].Turns[0].Content)
}

func TestChat_ProviderUnavailableFallsBack(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	svc := h.service(memassistant.NewScripted()) // exhausted script returns ErrUnavailable

	var deltas []string
	reply, err := svc.Chat(context.Background(), "alice", h.tripID, nil, collect(&deltas))
	require.NoError(t, err)
	assert.True(t, reply.Offline)
	assert.Equal(t, assistant.FallbackGreeting, reply.Content)
	assert.Equal(t, []string{assistant.FallbackGreeting}, deltas)

	deltas = nil
	reply, err = svc.Chat(context.Background(), "alice", h.tripID, []assistantport.Turn{{Role: assistantport.RoleUser, Content: "hi"}}, collect(&deltas))
	require.NoError(t, err)
	assert.Equal(t, assistant.ErrorReply, reply.Content)
	assert.Equal(t, []string{assistant.OutcomeFallback, assistant.OutcomeFallback}, h.outcomes.got)
}

func TestChat_NilProviderFallsBack(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	reply, err := h.service(nil).Chat(context.Background(), "alice", h.tripID, nil, func(string) error { return nil })
	require.NoError(t, err)
	assert.True(t, reply.Offline)
}

func TestChat_SinkErrorAborts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	gone := errors.New("client gone")
	svc := h.service(memassistant.NewScripted([]string{"a", "b"}))

	_, err := svc.Chat(context.Background(), "alice", h.tripID, nil, func(string) error { return gone })
	assert.ErrorIs(t, err, gone)
	assert.Equal(t, []string{assistant.OutcomeError}, h.outcomes.got)
}

func TestChat_Errors(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	svc := h.service(memassistant.NewScripted())

	_, err := svc.Chat(context.Background(), "bob", h.tripID, nil, func(string) error { return nil })
	var ae *trips.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 404, ae.Status)

	_, err = svc.Chat(context.Background(), "alice", h.tripID, []assistantport.Turn{{Role: "system", Content: "x"}}, func(string) error { return nil })
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 422, ae.Status)
	assert.Contains(t, ae.Details, "messages[0].role")
}

func TestSelect_AddsItemFromOption(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	svc := h.service(nil)
	nights := 3

	sel, err := svc.Select(context.Background(), "alice", h.tripID, assistant.Option{
		ID:       "h1",
		Type:     domain.ItemTypeHotel,
		Title:    "Memmo Alfama Hotel",
		Subtitle: "Alfama • 4★",
		Price:    "$1,210/night",
		Details:  []string{"Rooftop pool"},
		Tag:      "Best Value",
		Nights:   &nights,
	})
	require.NoError(t, err)

	it := sel.Item
	assert.Equal(t, "Memmo", it.Provider)
	assert.Equal(t, 1210.0, it.Price)
	require.NotNil(t, it.Nights)
	assert.Equal(t, 3, *it.Nights)
	require.NotNil(t, it.Tag)
	assert.Equal(t, "Best Value", *it.Tag)
	assert.Equal(t, domain.HotelDetails{Highlights: []string{"Rooftop pool"}}, it.Details)
	assert.Equal(t, "I'll take the Memmo Alfama Hotel (Best Value) for 3 nights", sel.Message)

	tc, err := h.trips.GetContext(context.Background(), "alice", h.tripID)
	require.NoError(t, err)
	assert.Equal(t, 3630.0, tc.TotalPlannedCost)
}

func TestSelect_UnparseablePriceIsZeroAndNightsOnlyForHotels(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	nights := 4

	sel, err := h.service(nil).Select(context.Background(), "alice", h.tripID, assistant.Option{
		Type: domain.ItemTypeActivity, Title: "Free walking tour", Price: "free", Nights: &nights,
	})
	require.NoError(t, err)
	assert.Zero(t, sel.Item.Price)
	assert.Nil(t, sel.Item.Nights)
}

func TestSelect_InvalidOption(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	_, err := h.service(nil).Select(context.Background(), "alice", h.tripID, assistant.Option{Type: "restaurant", Title: "Tasca", Price: "$20"})
	var ae *trips.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, 422, ae.Status)
}
