package assistant

import (
	"context"
	"sync"

	"github.com/peraluna/trip-planner-api/internal/ports/out/assistant"
)

// Scripted replays canned replies in order, one per Stream call, split into the given chunks.
// When the script is exhausted it returns assistant.ErrUnavailable.
type Scripted struct {
	mu       sync.Mutex
	replies  [][]string
	requests []assistant.Request
}

func NewScripted(replies ...[]string) *Scripted {
	return &Scripted{replies: replies}
}

func (s *Scripted) Stream(ctx context.Context, req assistant.Request, onDelta func(string) error) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		s.mu.Unlock()
		return assistant.ErrUnavailable
	}
	chunks := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()

	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return nil
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []assistant.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]assistant.Request(nil), s.requests...)
}
