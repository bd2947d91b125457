package events

import (
	"context"
	"sync"

	"github.com/peraluna/trip-planner-api/internal/ports/out/events"
)

// Recorder keeps published events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func NewRecorder() *Recorder { return &Recorder{} }

// FailWith makes subsequent Publish calls return err without recording.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Publish(ctx context.Context, e events.Event) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, events.Event) error { return nil }
