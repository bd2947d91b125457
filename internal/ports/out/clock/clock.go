package clock

import "time"

// Clock provides time to the application.
// Services stamp CreatedAt/UpdatedAt and booking references from it, so tests can pin it.
type Clock interface {
	Now() time.Time
}
