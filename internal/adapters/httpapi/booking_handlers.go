package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/peraluna/trip-planner-api/internal/domain"
	"github.com/peraluna/trip-planner-api/internal/ports/out/idempotency"
)

const confirmRoute = "/trips/{tripId}/confirm"

// ConfirmAll books every tentative item of the trip.
//
// With an Idempotency-Key header:
// - a retry by the same owner for the same trip replays the first response
// - reusing the key for another trip is rejected (409)
func (s *Server) ConfirmAll(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.subject(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	tripID := tripIDParam(r)

	var respFP idempotency.Fingerprint
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	useIdem := s.idem != nil && key != ""
	if useIdem {
		bodyHash := hashConfirmBody(tripID)
		metaFP := idempotency.Fingerprint{
			Key:      idempotency.Key(key),
			Subject:  sub,
			Method:   http.MethodPost,
			Route:    confirmRoute,
			BodyHash: "",
		}
		if meta, found, err := s.idem.Get(ctx, metaFP); err != nil {
			writeAppError(w, r, s.log, err)
			return
		} else if found {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			_ = s.idem.Put(ctx, metaFP, idempotency.Record{
				StatusCode:  0,
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   s.clock.Now().UTC(),
			})
		}

		respFP = metaFP
		respFP.BodyHash = bodyHash
		if rec, found, err := s.idem.Get(ctx, respFP); err != nil {
			writeAppError(w, r, s.log, err)
			return
		} else if found && rec.StatusCode == http.StatusOK && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set(idempotency.HeaderReplay, "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	res, err := s.trips.ConfirmAll(ctx, sub, tripID)
	if err != nil {
		writeAppError(w, r, s.log, err)
		return
	}
	resp := ConfirmResponse{
		Trip: tripFromDomain(res.Trip),
		Confirmations: lo.Map(res.Confirmations, func(c domain.Confirmation, _ int) Confirmation {
			return Confirmation{ItemID: string(c.ItemID), BookingReference: c.Reference}
		}),
	}

	if useIdem {
		if b, err := json.Marshal(resp); err == nil {
			_ = s.idem.Put(ctx, respFP, idempotency.Record{
				StatusCode:  http.StatusOK,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   s.clock.Now().UTC(),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func hashConfirmBody(tripID domain.TripID) string {
	sum := sha256.Sum256([]byte(tripID))
	return hex.EncodeToString(sum[:])
}
