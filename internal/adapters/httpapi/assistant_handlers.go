package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/lo"

	"github.com/peraluna/trip-planner-api/internal/app/assistant"
	assistantport "github.com/peraluna/trip-planner-api/internal/ports/out/assistant"
)

// Chat streams the assistant reply as server-sent events:
//
//	event: delta  data: {"text": "..."}   (repeated)
//	event: done   data: ChatDone
//
// Errors raised before the first delta are plain JSON error responses.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if s.assistant == nil {
		writeError(w, r, http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE", "assistant is not configured", nil)
		return
	}
	var body ChatRequest
	if !decodeBody(w, r, &body, true) {
		return
	}
	turns := lo.Map(body.Messages, func(m ChatMessage, _ int) assistantport.Turn {
		return assistantport.Turn{Role: assistantport.Role(m.Role), Content: m.Content}
	})

	sse := &eventStream{w: w, rc: http.NewResponseController(w)}
	reply, err := s.assistant.Chat(r.Context(), sub, tripIDParam(r), turns, func(delta string) error {
		return sse.send("delta", ChatDelta{Text: delta})
	})
	if err != nil {
		if !sse.started {
			writeAppError(w, r, s.log, err)
			return
		}
		s.log.WithError(err).WithField("tripId", tripIDParam(r)).Warn("chat stream aborted")
		return
	}
	_ = sse.send("done", ChatDone{
		Content:   reply.Content,
		Before:    reply.Message.Before,
		Options:   reply.Message.Options,
		After:     reply.Message.After,
		Offline:   reply.Offline,
		Truncated: reply.Truncated,
	})
}

// eventStream writes server-sent events, sending the stream headers with the first event.
type eventStream struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func (e *eventStream) send(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if !e.started {
		h := e.w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		e.w.WriteHeader(http.StatusOK)
		e.started = true
	}
	if _, err := fmt.Fprintf(e.w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	if err := e.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// Select adds an option card the user picked to the trip.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	if s.assistant == nil {
		writeError(w, r, http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE", "assistant is not configured", nil)
		return
	}
	var opt assistant.Option
	if !decodeBody(w, r, &opt, false) {
		return
	}
	sel, err := s.assistant.Select(r.Context(), sub, tripIDParam(r), opt)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, SelectionResponse{
		Item:    s.itemWithCost(r, sub, sel.Item),
		Message: sel.Message,
	})
}
