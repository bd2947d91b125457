package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/peraluna/trip-planner-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use. Records older than the retention window are
// treated as absent and pruned on write.
type Store struct {
	mu        sync.RWMutex
	m         map[idempotency.Fingerprint]idempotency.Record
	retention time.Duration
	now       func() time.Time
}

func NewStore() *Store {
	return NewStoreWithRetention(idempotency.DefaultRetention, nil)
}

// NewStoreWithRetention keeps records for retention; a non-positive retention keeps them forever.
func NewStoreWithRetention(retention time.Duration, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		m:         make(map[idempotency.Fingerprint]idempotency.Record),
		retention: retention,
		now:       now,
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok || s.expired(rec) {
		return idempotency.Record{}, false, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now().UTC()
	}
	rec.Body = append([]byte(nil), rec.Body...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = rec
	return nil
}

func (s *Store) Prune(ctx context.Context) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, v := range s.m {
		if s.expired(v) {
			delete(s.m, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	return rec.Expired(s.now(), s.retention)
}
