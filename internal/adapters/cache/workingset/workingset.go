package workingset

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

const (
	DefaultTTL             = 30 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
)

// Set is a go-cache backed triprepo.WorkingSet.
//
// Trips mirrored from the primary store expire after the TTL. Trips written while
// offline never expire until ClearPending is called for them.
type Set struct {
	mu      sync.Mutex
	c       *gocache.Cache
	pending map[domain.TripID]triprepo.Pending
}

func New(ttl, cleanup time.Duration) *Set {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if cleanup <= 0 {
		cleanup = DefaultCleanupInterval
	}
	return &Set{
		c:       gocache.New(ttl, cleanup),
		pending: make(map[domain.TripID]triprepo.Pending),
	}
}

func key(id domain.TripID) string { return "trip:" + string(id) }

// Remember mirrors a trip read from or written to the primary store.
func (s *Set) Remember(t domain.Trip) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(t.Clone())
}

// RememberConfirmation mirrors a store-side confirmation onto the local copy, if held.
// A pending offline copy keeps its pending mark.
func (s *Set) RememberConfirmation(owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID, reference string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.get(tripID)
	if !ok || t.OwnerID != owner {
		return
	}
	t = t.Clone()
	if changed, err := t.ConfirmItem(itemID, reference); err != nil || !changed {
		return
	}
	s.put(t)
}

func (s *Set) Forget(owner domain.OwnerID, id domain.TripID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.get(id); ok && t.OwnerID == owner {
		s.c.Delete(key(id))
	}
}

func (s *Set) Pending() []triprepo.Pending {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]triprepo.Pending, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TripID < out[j].TripID })
	return out
}

// ClearPending drops the pending mark so the trip expires like any mirrored trip.
func (s *Set) ClearPending(owner domain.OwnerID, id domain.TripID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok || p.Owner != owner {
		return
	}
	delete(s.pending, id)
	if t, ok := s.get(id); ok {
		s.c.Set(key(id), t, gocache.DefaultExpiration)
	}
}

func (s *Set) Create(ctx context.Context, t domain.Trip) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		return triprepo.ErrAlreadyExists
	}
	if _, ok := s.get(t.ID); ok {
		return triprepo.ErrAlreadyExists
	}
	cp := t.Clone()
	if cp.Items == nil {
		cp.Items = []domain.PlannedItem{}
	}
	s.markDirty(cp)
	return nil
}

func (s *Set) Save(ctx context.Context, t domain.Trip) error {
	return s.mutate(ctx, t.OwnerID, t.ID, func(cur *domain.Trip) error {
		next := t.Clone()
		next.Items = cur.Items
		next.CreatedAt = cur.CreatedAt
		*cur = next
		return nil
	})
}

func (s *Set) Upsert(ctx context.Context, t domain.Trip) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.get(t.ID)
	if ok && cur.OwnerID != t.OwnerID {
		return triprepo.ErrNotFound
	}
	cp := t.Clone()
	cp.Items = domain.KeepConfirmed(cur.Items, cp.Items)
	s.markDirty(cp)
	return nil
}

func (s *Set) Delete(ctx context.Context, owner domain.OwnerID, id domain.TripID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.get(id)
	if !ok || t.OwnerID != owner {
		return triprepo.ErrNotFound
	}
	s.c.Delete(key(id))
	s.pending[id] = triprepo.Pending{Owner: owner, TripID: id, Deleted: true}
	return nil
}

func (s *Set) GetByID(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.Trip, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.get(id)
	if !ok || t.OwnerID != owner {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	return t.Clone(), nil
}

// ListByOwner only sees trips currently held locally.
func (s *Set) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]domain.Trip, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Trip, 0)
	for _, item := range s.c.Items() {
		t, ok := item.Object.(domain.Trip)
		if !ok || t.OwnerID != owner {
			continue
		}
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Set) AddItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error {
	return s.mutate(ctx, owner, it.TripID, func(t *domain.Trip) error {
		if _, exists := t.FindItem(it.ID); exists {
			return triprepo.ErrAlreadyExists
		}
		t.Items = append(t.Items, it.Clone())
		return nil
	})
}

func (s *Set) UpdateItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error {
	return s.mutate(ctx, owner, it.TripID, func(t *domain.Trip) error {
		for i := range t.Items {
			if t.Items[i].ID != it.ID {
				continue
			}
			upd := it.Clone()
			cur := t.Items[i]
			if cur.IsConfirmed {
				return triprepo.ErrConfirmed
			}
			cur.Price = upd.Price
			cur.Nights = upd.Nights
			cur.Tag = upd.Tag
			cur.Subtitle = upd.Subtitle
			cur.Details = upd.Details
			t.Items[i] = cur
			return nil
		}
		return triprepo.ErrNotFound
	})
}

func (s *Set) DeleteItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID) error {
	return s.mutate(ctx, owner, tripID, func(t *domain.Trip) error {
		for i := range t.Items {
			if t.Items[i].ID != itemID {
				continue
			}
			if t.Items[i].IsConfirmed {
				return triprepo.ErrConfirmed
			}
			t.Items = append(t.Items[:i:i], t.Items[i+1:]...)
			return nil
		}
		return triprepo.ErrNotFound
	})
}

func (s *Set) ConfirmItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID, reference string) (bool, error) {
	var changed bool
	err := s.mutate(ctx, owner, tripID, func(t *domain.Trip) error {
		ok, err := t.ConfirmItem(itemID, reference)
		if errors.Is(err, domain.ErrItemNotFound) {
			return triprepo.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !ok {
			return errUnchanged
		}
		changed = true
		return nil
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	return changed, err
}

var errUnchanged = errors.New("unchanged")

// mutate applies fn to a copy of the trip and stores it as an offline write when fn succeeds.
func (s *Set) mutate(ctx context.Context, owner domain.OwnerID, id domain.TripID, fn func(*domain.Trip) error) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.get(id)
	if !ok || t.OwnerID != owner {
		return triprepo.ErrNotFound
	}
	t = t.Clone()
	if err := fn(&t); err != nil {
		return err
	}
	s.markDirty(t)
	return nil
}

// get must be called with s.mu held.
func (s *Set) get(id domain.TripID) (domain.Trip, bool) {
	v, ok := s.c.Get(key(id))
	if !ok {
		return domain.Trip{}, false
	}
	t, ok := v.(domain.Trip)
	return t, ok
}

// put must be called with s.mu held.
func (s *Set) put(t domain.Trip) {
	exp := gocache.DefaultExpiration
	if _, dirty := s.pending[t.ID]; dirty {
		exp = gocache.NoExpiration
	}
	s.c.Set(key(t.ID), t, exp)
}

// markDirty must be called with s.mu held.
func (s *Set) markDirty(t domain.Trip) {
	s.pending[t.ID] = triprepo.Pending{Owner: t.OwnerID, TripID: t.ID}
	s.c.Set(key(t.ID), t, gocache.NoExpiration)
}

var _ triprepo.WorkingSet = (*Set)(nil)
