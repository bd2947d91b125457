package idempotency

import (
	"context"
	"time"

	"github.com/peraluna/trip-planner-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// DefaultRetention bounds how long a confirm response stays replayable.
const DefaultRetention = 24 * time.Hour

// HeaderReplay is set on responses served from a stored Record.
const HeaderReplay = "Idempotent-Replay"

// Fingerprint identifies a request uniquely for idempotency purposes:
// key + route + owner + request body hash.
// Route is represented as HTTP method + path template (e.g. "POST /trips/{tripId}/confirm").
type Fingerprint struct {
	Key      Key
	Subject  domain.OwnerID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Expired reports whether rec fell out of a retention window at now.
// A non-positive retention never expires.
func (rec Record) Expired(now time.Time, retention time.Duration) bool {
	return retention > 0 && now.Sub(rec.CreatedAt) > retention
}

// Store persists idempotency records for replaying booking confirmations on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error
}

// Pruner is implemented by stores that drop expired records in bulk.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}
