package triprepo

import "errors"

var (
	ErrNotFound      = errors.New("trip not found")
	ErrAlreadyExists = errors.New("trip already exists")

	// ErrConfirmed means the item is confirmed and can no longer be changed or removed.
	ErrConfirmed = errors.New("planned item is confirmed")

	// ErrUnavailable means the store could not be reached. Callers may fall back to a
	// WorkingSet and reconcile later.
	ErrUnavailable = errors.New("trip store unavailable")
)
