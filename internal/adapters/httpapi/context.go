package httpapi

import (
	"context"

	"github.com/peraluna/trip-planner-api/internal/domain"
)

type subjectKey struct{}

// WithSubject scopes ctx to the owner whose trips the request may touch.
func WithSubject(ctx context.Context, owner domain.OwnerID) context.Context {
	return context.WithValue(ctx, subjectKey{}, owner)
}

func SubjectFromContext(ctx context.Context) (domain.OwnerID, bool) {
	v, ok := ctx.Value(subjectKey{}).(domain.OwnerID)
	return v, ok && v != ""
}
