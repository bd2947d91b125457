package triprepo

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.TripID]domain.Trip
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.TripID]domain.Trip),
	}
}

func (r *Repo) Create(ctx context.Context, t domain.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrAlreadyExists // treat empty ID as invalid for now
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	cp := t.Clone()
	if cp.Items == nil {
		cp.Items = []domain.PlannedItem{}
	}
	r.byID[t.ID] = cp
	return nil
}

func (r *Repo) Save(ctx context.Context, t domain.Trip) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.owned(t.OwnerID, t.ID)
	if !ok {
		return triprepo.ErrNotFound
	}
	next := t.Clone()
	next.Items = cur.Items
	next.CreatedAt = cur.CreatedAt
	r.byID[t.ID] = next
	return nil
}

func (r *Repo) Upsert(ctx context.Context, t domain.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrNotFound
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, exists := r.byID[t.ID]
	if exists && cur.OwnerID != t.OwnerID {
		return triprepo.ErrNotFound
	}
	cp := t.Clone()
	cp.Items = domain.KeepConfirmed(cur.Items, cp.Items)
	for i := range cp.Items {
		cp.Items[i].TripID = t.ID
	}
	r.byID[t.ID] = cp
	return nil
}

func (r *Repo) Delete(ctx context.Context, owner domain.OwnerID, id domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owned(owner, id); !ok {
		return triprepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, owner domain.OwnerID, id domain.TripID) (domain.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.owned(owner, id)
	if !ok {
		return domain.Trip{}, triprepo.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *Repo) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]domain.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Trip, 0)
	for _, t := range r.byID {
		if t.OwnerID == owner {
			out = append(out, t.Clone())
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (r *Repo) AddItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.owned(owner, it.TripID)
	if !ok {
		return triprepo.ErrNotFound
	}
	if _, exists := t.FindItem(it.ID); exists {
		return triprepo.ErrAlreadyExists
	}
	t = t.Clone()
	t.Items = append(t.Items, it.Clone())
	r.byID[t.ID] = t
	return nil
}

func (r *Repo) UpdateItem(ctx context.Context, owner domain.OwnerID, it domain.PlannedItem) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.owned(owner, it.TripID)
	if !ok {
		return triprepo.ErrNotFound
	}
	t = t.Clone()
	for i := range t.Items {
		if t.Items[i].ID != it.ID {
			continue
		}
		cur := t.Items[i]
		if cur.IsConfirmed {
			return triprepo.ErrConfirmed
		}
		cur.Price = it.Price
		cur.Nights = it.Clone().Nights
		cur.Tag = it.Clone().Tag
		cur.Subtitle = it.Clone().Subtitle
		cur.Details = it.Details
		t.Items[i] = cur
		r.byID[t.ID] = t
		return nil
	}
	return triprepo.ErrNotFound
}

func (r *Repo) DeleteItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.owned(owner, tripID)
	if !ok {
		return triprepo.ErrNotFound
	}
	t = t.Clone()
	for i := range t.Items {
		if t.Items[i].ID != itemID {
			continue
		}
		if t.Items[i].IsConfirmed {
			return triprepo.ErrConfirmed
		}
		t.Items = append(t.Items[:i:i], t.Items[i+1:]...)
		r.byID[t.ID] = t
		return nil
	}
	return triprepo.ErrNotFound
}

func (r *Repo) ConfirmItem(ctx context.Context, owner domain.OwnerID, tripID domain.TripID, itemID domain.ItemID, reference string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.owned(owner, tripID)
	if !ok {
		return false, triprepo.ErrNotFound
	}
	t = t.Clone()
	changed, err := t.ConfirmItem(itemID, reference)
	if err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return false, triprepo.ErrNotFound
		}
		return false, err
	}
	if changed {
		r.byID[t.ID] = t
	}
	return changed, nil
}

// owned must be called with r.mu held.
func (r *Repo) owned(owner domain.OwnerID, id domain.TripID) (domain.Trip, bool) {
	t, ok := r.byID[id]
	if !ok || t.OwnerID != owner {
		return domain.Trip{}, false
	}
	return t, true
}

// SortNewestFirst orders trips by createdAt descending, then ID.
func SortNewestFirst(ts []domain.Trip) {
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return string(a.ID) < string(b.ID)
	})
}
