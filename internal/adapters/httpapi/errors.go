package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"github.com/sirupsen/logrus"

	"github.com/peraluna/trip-planner-api/internal/app/trips"
	"github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

// writeAppError maps service errors onto HTTP responses. Anything unrecognised is logged
// and reported as a 500 without leaking its text.
func writeAppError(w http.ResponseWriter, r *http.Request, log logrus.FieldLogger, err error) {
	var ae *trips.Error
	switch {
	case errors.As(err, &ae):
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
	case errors.Is(err, triprepo.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "trip store is unavailable", nil)
	default:
		log.WithError(err).WithField("requestId", middleware.GetReqID(r.Context())).Error("request failed")
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
