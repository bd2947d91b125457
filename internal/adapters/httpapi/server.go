package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/peraluna/trip-planner-api/internal/app/assistant"
	"github.com/peraluna/trip-planner-api/internal/app/trips"
	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/clock"
	"github.com/peraluna/trip-planner-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server implements the HTTP handlers on top of the application services.
type Server struct {
	trips     *trips.Service
	assistant *assistant.Service
	idem      idempotency.Store
	clock     clock.Clock
	log       logrus.FieldLogger
}

// NewServer wires the handlers. idem may be nil, in which case Idempotency-Key headers are
// ignored.
func NewServer(tripsSvc *trips.Service, asst *assistant.Service, idem idempotency.Store, clk clock.Clock, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{trips: tripsSvc, assistant: asst, idem: idem, clock: clk, log: log}
}

func (s *Server) subject(w http.ResponseWriter, r *http.Request) (domain.OwnerID, bool) {
	sub, ok := SubjectFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing subject", nil)
		return "", false
	}
	return sub, true
}

// decodeBody reads a JSON request body into v. An empty body is accepted when allowEmpty
// is set and leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	err := dec.Decode(v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, io.EOF) && allowEmpty:
		return true
	case errors.Is(err, io.EOF):
		writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
	default:
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large", nil)
			return false
		}
		writeError(w, r, http.StatusBadRequest, "MALFORMED_JSON", "request body is not valid JSON", map[string]any{"reason": err.Error()})
	}
	return false
}
