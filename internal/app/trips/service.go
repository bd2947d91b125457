package trips

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/clock"
	"github.com/peraluna/trip-planner-api/internal/ports/out/events"
	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

const (
	DefaultAdults   = 1
	DefaultChildren = 0
	DefaultBudget   = 3000.0
)

// Recorder receives service counters. *metrics.Metrics satisfies it.
type Recorder interface {
	BookingsConfirmed(n int)
	OfflineFallback(op string)
	Reconciled(n int)
}

type noopRecorder struct{}

func (noopRecorder) BookingsConfirmed(int) {}
func (noopRecorder) OfflineFallback(string) {}
func (noopRecorder) Reconciled(int)        {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Event) error { return nil }

type Option func(*Service)

// WithWorkingSet enables offline fallback onto ws when the trip store is unavailable.
func WithWorkingSet(ws triprepo.WorkingSet) Option {
	return func(s *Service) { s.local = ws }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithReferenceGenerator(g *domain.ReferenceGenerator) Option {
	return func(s *Service) {
		if g != nil {
			s.refs = g
		}
	}
}

type Service struct {
	trips   triprepo.Repository
	local   triprepo.WorkingSet
	clock   clock.Clock
	events  events.Publisher
	metrics Recorder
	log     logrus.FieldLogger
	refs    *domain.ReferenceGenerator

	newTripID func() domain.TripID
	newItemID func() domain.ItemID

	offline     atomic.Bool
	reconcileMu sync.Mutex
}

func NewService(tripsRepo triprepo.Repository, clk clock.Clock, opts ...Option) *Service {
	s := &Service{
		trips:   tripsRepo,
		clock:   clk,
		events:  noopPublisher{},
		metrics: noopRecorder{},
		log:     logrus.StandardLogger(),
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
		newItemID: func() domain.ItemID {
			return domain.ItemID(uuid.NewString())
		},
	}
	for _, o := range opts {
		o(s)
	}
	if s.refs == nil {
		s.refs = domain.NewReferenceGenerator(clk.Now, nil)
	}
	return s
}

// SetNewTripIDForTest overrides trip ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

// SetNewItemIDForTest overrides item ID generation for deterministic tests.
func (s *Service) SetNewItemIDForTest(fn func() domain.ItemID) {
	if fn != nil {
		s.newItemID = fn
	}
}

func (s *Service) CreateTrip(ctx context.Context, owner domain.OwnerID, in CreateTripInput) (domain.Trip, error) {
	now := s.clock.Now()
	t := domain.Trip{
		ID:          s.newTripID(),
		OwnerID:     owner,
		Destination: domain.NormalizeHumanName(in.Destination),
		Country:     domain.NormalizeHumanName(in.Country),
		Adults:      intOr(in.Adults, DefaultAdults),
		Children:    intOr(in.Children, DefaultChildren),
		BudgetType:  domain.BudgetTypeTotal,
		Flexibility: domain.FlexibilityModerately,
		Interests:   domain.NormalizeInterests(in.Interests),
		Status:      domain.TripStatusPlanning,
		Items:       []domain.PlannedItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !in.StartDate.IsZero() {
		t.StartDate = domain.DateOnly(in.StartDate)
	}
	if !in.EndDate.IsZero() {
		t.EndDate = domain.DateOnly(in.EndDate)
	}
	if in.BudgetType != nil {
		t.BudgetType = *in.BudgetType
	}
	if in.Flexibility != nil {
		t.Flexibility = *in.Flexibility
	}
	amount := DefaultBudget
	if in.Budget != nil {
		amount = *in.Budget
	}
	t.Budget = domain.NormalizeBudget(amount, t.BudgetType, t.TotalTravelers())

	if err := t.Validate(); err != nil {
		return domain.Trip{}, validationFailed("invalid trip", err)
	}

	online, err := s.withStore(ctx, "CreateTrip", func(r triprepo.Repository) error {
		return r.Create(ctx, t)
	})
	if err != nil {
		if errors.Is(err, triprepo.ErrAlreadyExists) {
			// Extremely unlikely (UUID collision); treat as conflict.
			return domain.Trip{}, &Error{Status: 409, Code: "TRIP_ID_CONFLICT", Message: "trip id conflict"}
		}
		return domain.Trip{}, err
	}
	if online {
		s.remember(t)
	}
	return t, nil
}

func (s *Service) GetTrip(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.Trip, error) {
	return s.load(ctx, owner, id)
}

// ListTrips returns the owner's trips, newest first. While offline only trips held in
// the working set are listed.
func (s *Service) ListTrips(ctx context.Context, owner domain.OwnerID) ([]domain.Trip, error) {
	var ts []domain.Trip
	online, err := s.withStore(ctx, "ListTrips", func(r triprepo.Repository) error {
		var err error
		ts, err = r.ListByOwner(ctx, owner)
		return err
	})
	if err != nil {
		return nil, err
	}
	if online {
		for _, t := range ts {
			s.remember(t)
		}
	}
	return ts, nil
}

func (s *Service) UpdateTrip(ctx context.Context, owner domain.OwnerID, id domain.TripID, in UpdateTripInput) (domain.Trip, error) {
	t, err := s.load(ctx, owner, id)
	if err != nil {
		return domain.Trip{}, err
	}
	oldTravelers := t.TotalTravelers()

	ve := map[string]any{}
	applyString := func(dst *string, field string, o Optional[string]) {
		if !o.IsSpecified() {
			return
		}
		if o.IsNull() {
			ve[field] = "cannot be null"
			return
		}
		*dst = domain.NormalizeHumanName(o.Value())
	}
	applyString(&t.Destination, "destination", in.Destination)
	applyString(&t.Country, "country", in.Country)

	applyValue(&t.StartDate, "startDate", in.StartDate, ve, domain.DateOnly)
	applyValue(&t.EndDate, "endDate", in.EndDate, ve, domain.DateOnly)
	applyValue(&t.Adults, "adults", in.Adults, ve, nil)
	applyValue(&t.Children, "children", in.Children, ve, nil)
	applyValue(&t.BudgetType, "budgetType", in.BudgetType, ve, nil)
	applyValue(&t.Flexibility, "flexibility", in.Flexibility, ve, nil)
	if in.Status.IsSpecified() && !in.Status.IsNull() && !t.Status.CanMoveTo(in.Status.Value()) {
		ve["status"] = fmt.Sprintf("cannot move from %s to %s", t.Status, in.Status.Value())
	} else {
		applyValue(&t.Status, "status", in.Status, ve, nil)
	}

	if in.Interests.IsSpecified() {
		if in.Interests.IsNull() {
			t.Interests = []string{}
		} else {
			t.Interests = domain.NormalizeInterests(in.Interests.Value())
		}
	}

	newTravelers := t.TotalTravelers()
	switch {
	case in.Budget.IsSpecified():
		if in.Budget.IsNull() {
			ve["budget"] = "cannot be null"
		} else {
			t.Budget = domain.NormalizeBudget(in.Budget.Value(), t.BudgetType, newTravelers)
		}
	case t.BudgetType == domain.BudgetTypePerPerson && newTravelers != oldTravelers && oldTravelers > 0:
		// Keep the per-traveler amount and rescale the stored total.
		t.Budget = t.Budget / float64(oldTravelers) * float64(newTravelers)
	}

	if len(ve) > 0 {
		return domain.Trip{}, &Error{Status: 422, Code: "VALIDATION_ERROR", Message: "invalid trip", Details: ve}
	}
	if err := t.Validate(); err != nil {
		return domain.Trip{}, validationFailed("invalid trip", err)
	}

	t.UpdatedAt = s.clock.Now()
	online, err := s.withStore(ctx, "UpdateTrip", func(r triprepo.Repository) error {
		return r.Save(ctx, t)
	})
	if err != nil {
		return domain.Trip{}, notFoundAs(err, errTripNotFound)
	}
	if online {
		s.remember(t)
	}
	return t, nil
}

// DeleteTrip removes the trip and, with it, all of its items.
func (s *Service) DeleteTrip(ctx context.Context, owner domain.OwnerID, id domain.TripID) error {
	online, err := s.withStore(ctx, "DeleteTrip", func(r triprepo.Repository) error {
		return r.Delete(ctx, owner, id)
	})
	if err != nil {
		return notFoundAs(err, errTripNotFound)
	}
	if online && s.local != nil {
		s.local.Forget(owner, id)
	}
	return nil
}

// GetContext builds the read-only snapshot the assistant prompt is rendered from.
func (s *Service) GetContext(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.TripContext, error) {
	t, err := s.load(ctx, owner, id)
	if err != nil {
		return domain.TripContext{}, err
	}
	tc, err := domain.BuildContext(t)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return domain.TripContext{}, &Error{Status: 422, Code: "INVALID_TRIP", Message: err.Error()}
		}
		return domain.TripContext{}, err
	}
	return tc, nil
}

func (s *Service) load(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.Trip, error) {
	var t domain.Trip
	online, err := s.withStore(ctx, "GetTrip", func(r triprepo.Repository) error {
		var err error
		t, err = r.GetByID(ctx, owner, id)
		return err
	})
	if err != nil {
		return domain.Trip{}, notFoundAs(err, errTripNotFound)
	}
	if online {
		s.remember(t)
	}
	return t, nil
}

func (s *Service) remember(t domain.Trip) {
	if s.local != nil {
		s.local.Remember(t)
	}
}

var (
	errTripNotFound = &Error{Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found"}
	errItemNotFound = &Error{Status: 404, Code: "ITEM_NOT_FOUND", Message: "planned item not found"}
	errItemLocked   = &Error{Status: 409, Code: "ITEM_CONFIRMED", Message: "planned item is confirmed and cannot be changed"}
)

func notFoundAs(err error, nf *Error) error {
	if errors.Is(err, triprepo.ErrNotFound) {
		return nf
	}
	return err
}

func validationFailed(msg string, err error) error {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	details := make(map[string]any, len(ve.Fields))
	for k, v := range ve.Fields {
		details[k] = v
	}
	return &Error{Status: 422, Code: "VALIDATION_ERROR", Message: msg, Details: details}
}

func applyValue[T any](dst *T, field string, o Optional[T], ve map[string]any, norm func(T) T) {
	if !o.IsSpecified() {
		return
	}
	if o.IsNull() {
		ve[field] = "cannot be null"
		return
	}
	v := o.Value()
	if norm != nil {
		v = norm(v)
	}
	*dst = v
}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func trimmedPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
